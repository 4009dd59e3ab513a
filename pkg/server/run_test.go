package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/tradeboard/calendar-sync/internal/models"
	"github.com/tradeboard/calendar-sync/pkg/orchestrator"
	"github.com/tradeboard/calendar-sync/pkg/registry"
)

type recordingSyncer struct {
	mu          sync.Mutex
	connections []string
	failFor     string
}

func (s *recordingSyncer) Sync(ctx context.Context, connectionID string, events []models.EventPayload) (*models.SyncResponse, error) {
	s.mu.Lock()
	s.connections = append(s.connections, connectionID)
	s.mu.Unlock()
	if connectionID == s.failFor {
		return nil, errors.New("connection refused")
	}
	return &models.SyncResponse{Accepted: true}, nil
}

func (s *recordingSyncer) synced() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.connections...)
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []*models.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, notification *models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	return nil
}

type runEnv struct {
	*testEnv
	syncer   *recordingSyncer
	notifier *recordingNotifier
	tokens   []string
	run      *SyncRunHandler
}

func newRunEnv(t *testing.T) *runEnv {
	t.Helper()

	env := &runEnv{
		testEnv:  newTestEnv(t),
		syncer:   &recordingSyncer{},
		notifier: &recordingNotifier{},
	}

	auth := NewStaticTokenAuthenticator(map[string]string{"token-1": "user-1"})
	newSyncer := func(token string) orchestrator.Syncer {
		env.tokens = append(env.tokens, token)
		return env.syncer
	}
	env.run = NewSyncRunHandler(auth, env.registry, env.notifier, newSyncer, nil)
	return env
}

func (e *runEnv) runRequest(t *testing.T, token string, jobs []*models.Job) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(syncRunRequest{Jobs: jobs})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/sync/run", bytes.NewReader(body))
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.run.ServeHTTP(w, r)
	return w
}

func runJobs() []*models.Job {
	return []*models.Job{{
		ID:    "J1",
		Title: "Kitchen Remodel",
		Date:  time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
	}}
}

func TestSyncRunNoAuth(t *testing.T) {
	env := newRunEnv(t)

	w := env.runRequest(t, "", runJobs())
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", w.Code)
	}
	if len(env.syncer.synced()) != 0 {
		t.Errorf("Expected no sync calls, got %v", env.syncer.synced())
	}
}

func TestSyncRunInvalidBody(t *testing.T) {
	env := newRunEnv(t)

	r := httptest.NewRequest(http.MethodPost, "/api/sync/run", bytes.NewReader([]byte("{not json")))
	r.Header.Set("Authorization", "Bearer token-1")
	w := httptest.NewRecorder()
	env.run.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", w.Code)
	}
}

func TestSyncRunFansOutToOwnedEnabledConnections(t *testing.T) {
	env := newRunEnv(t)
	ctx := context.Background()

	enabled, err := env.registry.Create(ctx, "user-1", models.ProviderGoogle, "", "primary")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	disabled, err := env.registry.Create(ctx, "user-1", models.ProviderApple, "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	off := false
	if _, err := env.registry.Update(ctx, disabled.ID, registry.ConnectionUpdate{SyncEnabled: &off}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	w := env.runRequest(t, "token-1", runJobs())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var outcome models.SyncOutcome
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("Failed to parse outcome: %v", err)
	}
	if !outcome.Success {
		t.Errorf("Expected successful outcome, got %+v", outcome)
	}

	if got := env.syncer.synced(); len(got) != 1 || got[0] != enabled.ID {
		t.Errorf("Expected fan-out to the enabled connection only, got %v", got)
	}
	if len(env.tokens) != 1 || env.tokens[0] != "token-1" {
		t.Errorf("Expected caller's token forwarded to transport, got %v", env.tokens)
	}
	if len(env.notifier.notifications) != 1 {
		t.Fatalf("Expected exactly one notification, got %d", len(env.notifier.notifications))
	}
	if env.notifier.notifications[0].UserID != "user-1" {
		t.Errorf("Expected notification for user-1, got %q", env.notifier.notifications[0].UserID)
	}
}

func TestSyncRunReportsPartialFailure(t *testing.T) {
	env := newRunEnv(t)
	ctx := context.Background()

	if _, err := env.registry.Create(ctx, "user-1", models.ProviderGoogle, "", "primary"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	failing, err := env.registry.Create(ctx, "user-1", models.ProviderOutlook, "", "work")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	env.syncer.failFor = failing.ID

	w := env.runRequest(t, "token-1", runJobs())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var outcome models.SyncOutcome
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("Failed to parse outcome: %v", err)
	}
	if outcome.Success {
		t.Error("Expected failure outcome when one connection fails")
	}
	if outcome.Message != "1 out of 2 calendars failed to sync" {
		t.Errorf("Unexpected message: %q", outcome.Message)
	}
}

func TestSyncRunNothingToSync(t *testing.T) {
	env := newRunEnv(t)

	w := env.runRequest(t, "token-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var outcome models.SyncOutcome
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("Failed to parse outcome: %v", err)
	}
	if outcome.Success || outcome.Message != "Nothing to sync" {
		t.Errorf("Expected nothing-to-sync outcome, got %+v", outcome)
	}
	if len(env.syncer.synced()) != 0 {
		t.Errorf("Expected no sync calls for empty job list, got %v", env.syncer.synced())
	}
}
