package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tradeboard/calendar-sync/internal/models"
)

type fakeSyncer struct {
	mu    sync.Mutex
	calls []string
	fn    func(connectionID string, events []models.EventPayload) (*models.SyncResponse, error)
}

func (f *fakeSyncer) Sync(ctx context.Context, connectionID string, events []models.EventPayload) (*models.SyncResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, connectionID)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(connectionID, events)
	}
	return &models.SyncResponse{Accepted: true}, nil
}

func (f *fakeSyncer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []*models.Notification
}

func (f *fakeNotifier) Notify(ctx context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeNotifier) single(t *testing.T) *models.Notification {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.notifications) != 1 {
		t.Fatalf("Expected exactly one notification, got %d", len(f.notifications))
	}
	return f.notifications[0]
}

func testJobs() []*models.Job {
	date := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	return []*models.Job{
		{ID: "J1", Title: "Kitchen Remodel", Date: date},
		{ID: "J2", Title: "Roof Inspection", Date: date},
	}
}

func testConnections(enabled ...bool) []*models.CalendarConnection {
	conns := make([]*models.CalendarConnection, 0, len(enabled))
	for i, on := range enabled {
		conns = append(conns, &models.CalendarConnection{
			ID:          string(rune('a' + i)),
			UserID:      "user-1",
			Provider:    models.ProviderGoogle,
			SyncEnabled: on,
		})
	}
	return conns
}

func TestSyncNothingToSync(t *testing.T) {
	syncer := &fakeSyncer{}
	notifier := &fakeNotifier{}
	o := New(syncer, notifier, nil)

	outcome := o.SyncJobsToCalendars(context.Background(), nil, testConnections(true), "user-1")

	if outcome.Success {
		t.Error("Expected unsuccessful outcome for empty job list")
	}
	if outcome.Message != "Nothing to sync" {
		t.Errorf("Unexpected message: %q", outcome.Message)
	}
	if syncer.callCount() != 0 {
		t.Errorf("Expected no sync calls, got %d", syncer.callCount())
	}
	n := notifier.single(t)
	if n.Level != models.NotificationInfo {
		t.Errorf("Expected info notification, got %q", n.Level)
	}
}

func TestSyncNoEnabledConnections(t *testing.T) {
	syncer := &fakeSyncer{}
	notifier := &fakeNotifier{}
	o := New(syncer, notifier, nil)

	outcome := o.SyncJobsToCalendars(context.Background(), testJobs(), testConnections(false, false), "user-1")

	if outcome.Success {
		t.Error("Expected unsuccessful outcome with all connections disabled")
	}
	if outcome.Message != "No enabled calendar connections" {
		t.Errorf("Unexpected message: %q", outcome.Message)
	}
	if syncer.callCount() != 0 {
		t.Errorf("Expected no sync calls, got %d", syncer.callCount())
	}
}

func TestSyncAllSucceed(t *testing.T) {
	syncer := &fakeSyncer{}
	notifier := &fakeNotifier{}
	o := New(syncer, notifier, nil)

	outcome := o.SyncJobsToCalendars(context.Background(), testJobs(), testConnections(true, true, false), "user-1")

	if !outcome.Success {
		t.Errorf("Expected success, got %+v", outcome)
	}
	if syncer.callCount() != 2 {
		t.Errorf("Expected 2 sync calls for 2 enabled connections, got %d", syncer.callCount())
	}
	if len(outcome.Results) != 2 {
		t.Fatalf("Expected 2 connection results, got %d", len(outcome.Results))
	}
	for _, r := range outcome.Results {
		if !r.Success {
			t.Errorf("Expected connection %s to succeed: %+v", r.ConnectionID, r)
		}
	}
	n := notifier.single(t)
	if n.Level != models.NotificationSuccess {
		t.Errorf("Expected success notification, got %q", n.Level)
	}
	if n.UserID != "user-1" {
		t.Errorf("Expected notification for user-1, got %q", n.UserID)
	}
}

func TestSyncPartialFailure(t *testing.T) {
	syncer := &fakeSyncer{
		fn: func(connectionID string, events []models.EventPayload) (*models.SyncResponse, error) {
			if connectionID == "b" {
				return nil, errors.New("connection refused")
			}
			return &models.SyncResponse{Accepted: true}, nil
		},
	}
	notifier := &fakeNotifier{}
	o := New(syncer, notifier, nil)

	outcome := o.SyncJobsToCalendars(context.Background(), testJobs(), testConnections(true, true), "user-1")

	if outcome.Success {
		t.Error("Expected failure outcome when one connection fails")
	}
	if outcome.Message != "1 out of 2 calendars failed to sync" {
		t.Errorf("Unexpected message: %q", outcome.Message)
	}
	if syncer.callCount() != 2 {
		t.Errorf("Expected both connections attempted, got %d calls", syncer.callCount())
	}
	if outcome.FailedConnections() != 1 {
		t.Errorf("Expected 1 failed connection, got %d", outcome.FailedConnections())
	}
	n := notifier.single(t)
	if n.Level != models.NotificationWarning {
		t.Errorf("Expected warning notification, got %q", n.Level)
	}
}

func TestSyncRejectedEventsFailConnection(t *testing.T) {
	syncer := &fakeSyncer{
		fn: func(connectionID string, events []models.EventPayload) (*models.SyncResponse, error) {
			return &models.SyncResponse{
				Accepted: true,
				Failed:   1,
				Results: []models.EventResult{
					{EventID: "J1", Status: models.SyncStatusSynced},
					{EventID: "J2", Status: models.SyncStatusFailed, Error: "storage error"},
				},
			}, nil
		},
	}
	notifier := &fakeNotifier{}
	o := New(syncer, notifier, nil)

	outcome := o.SyncJobsToCalendars(context.Background(), testJobs(), testConnections(true), "user-1")

	if outcome.Success {
		t.Error("Expected failure when the handler reports failed events")
	}
	if len(outcome.Results) != 1 || len(outcome.Results[0].Results) != 2 {
		t.Fatalf("Expected per-event results to be carried through, got %+v", outcome.Results)
	}
}

func TestSyncPanicIsolation(t *testing.T) {
	syncer := &fakeSyncer{
		fn: func(connectionID string, events []models.EventPayload) (*models.SyncResponse, error) {
			if connectionID == "a" {
				panic("transport blew up")
			}
			return &models.SyncResponse{Accepted: true}, nil
		},
	}
	notifier := &fakeNotifier{}
	o := New(syncer, notifier, nil)

	outcome := o.SyncJobsToCalendars(context.Background(), testJobs(), testConnections(true, true), "user-1")

	if outcome.Success {
		t.Error("Expected failure outcome after panic")
	}
	if outcome.Message != "1 out of 2 calendars failed to sync" {
		t.Errorf("Unexpected message: %q", outcome.Message)
	}
	if outcome.Results[0].Success || outcome.Results[0].Error == "" {
		t.Errorf("Expected panicking connection recorded as failed, got %+v", outcome.Results[0])
	}
	if !outcome.Results[1].Success {
		t.Errorf("Expected surviving connection to succeed, got %+v", outcome.Results[1])
	}
}
