// Package orchestrator fans sync requests out to every enabled calendar
// connection and folds the per-connection outcomes into one result and
// one user notification.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tradeboard/calendar-sync/internal/models"
)

// Syncer delivers one batch of events to one connection
type Syncer interface {
	Sync(ctx context.Context, connectionID string, events []models.EventPayload) (*models.SyncResponse, error)
}

// Notifier delivers the single user-facing message for one invocation
type Notifier interface {
	Notify(ctx context.Context, notification *models.Notification) error
}

const notificationTitle = "Calendar Sync"

// Orchestrator coordinates job-to-calendar synchronization
type Orchestrator struct {
	syncer   Syncer
	notifier Notifier
	logger   *slog.Logger
}

// New creates an orchestrator
func New(syncer Syncer, notifier Notifier, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		syncer:   syncer,
		notifier: notifier,
		logger:   logger,
	}
}

// SyncJobsToCalendars pushes the given jobs to every enabled connection.
//
// All connections are synced in parallel and independently: the call
// waits for every connection to settle, and one connection's failure
// never cancels or blocks the others. The returned outcome is successful
// only when every connection fully succeeded. Exactly one notification is
// emitted per invocation, whatever the number of connections involved.
func (o *Orchestrator) SyncJobsToCalendars(ctx context.Context, jobs []*models.Job, connections []*models.CalendarConnection, userID string) *models.SyncOutcome {
	if len(jobs) == 0 || len(connections) == 0 || userID == "" {
		return o.conclude(ctx, userID, &models.SyncOutcome{
			Success: false,
			Message: "Nothing to sync",
		}, models.NotificationInfo)
	}

	var enabled []*models.CalendarConnection
	for _, conn := range connections {
		if conn.SyncEnabled {
			enabled = append(enabled, conn)
		}
	}
	if len(enabled) == 0 {
		return o.conclude(ctx, userID, &models.SyncOutcome{
			Success: false,
			Message: "No enabled calendar connections",
		}, models.NotificationInfo)
	}

	payloads := make([]models.EventPayload, 0, len(jobs))
	for _, job := range jobs {
		payloads = append(payloads, models.PayloadFromJob(job))
	}

	o.logger.Info("Starting calendar sync",
		"user_id", userID,
		"jobs", len(jobs),
		"connections", len(enabled))

	// Fan out and wait for every connection to settle. Each slot is
	// written by exactly one goroutine.
	results := make([]models.ConnectionResult, len(enabled))
	var wg sync.WaitGroup
	for i, conn := range enabled {
		wg.Add(1)
		go func(i int, conn *models.CalendarConnection) {
			defer wg.Done()
			results[i] = o.syncConnection(ctx, conn, payloads)
		}(i, conn)
	}
	wg.Wait()

	outcome := &models.SyncOutcome{Results: results}
	failed := outcome.FailedConnections()
	if failed == 0 {
		outcome.Success = true
		outcome.Message = fmt.Sprintf("Synced %d jobs to %d calendars", len(jobs), len(enabled))
		return o.conclude(ctx, userID, outcome, models.NotificationSuccess)
	}

	outcome.Message = fmt.Sprintf("%d out of %d calendars failed to sync", failed, len(enabled))
	return o.conclude(ctx, userID, outcome, models.NotificationWarning)
}

// syncConnection is the per-connection boundary: nothing escapes it, any
// failure becomes that connection's result entry.
func (o *Orchestrator) syncConnection(ctx context.Context, conn *models.CalendarConnection, events []models.EventPayload) (result models.ConnectionResult) {
	result = models.ConnectionResult{
		ConnectionID: conn.ID,
		Provider:     conn.Provider,
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Panic during connection sync",
				"connection_id", conn.ID,
				"panic", r)
			result.Success = false
			result.Error = fmt.Sprintf("internal error: %v", r)
		}
	}()

	resp, err := o.syncer.Sync(ctx, conn.ID, events)
	if err != nil {
		o.logger.Warn("Connection sync failed",
			"connection_id", conn.ID,
			"provider", conn.Provider,
			"error", err)
		result.Error = err.Error()
		return result
	}

	result.Results = resp.Results
	if resp.Failed > 0 {
		result.Error = fmt.Sprintf("%d events failed to sync", resp.Failed)
		return result
	}

	result.Success = true
	return result
}

// conclude emits the invocation's single notification and returns the
// outcome
func (o *Orchestrator) conclude(ctx context.Context, userID string, outcome *models.SyncOutcome, level models.NotificationLevel) *models.SyncOutcome {
	notification := &models.Notification{
		Level:     level,
		Title:     notificationTitle,
		Message:   outcome.Message,
		UserID:    userID,
		CreatedAt: time.Now(),
	}

	if err := o.notifier.Notify(ctx, notification); err != nil {
		o.logger.Error("Failed to deliver sync notification",
			"user_id", userID,
			"error", err)
	}

	return outcome
}
