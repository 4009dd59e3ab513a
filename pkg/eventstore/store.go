// Package eventstore holds the local, reconciled cache of calendar events.
//
// The store is rebuilt from the job list on every reconciliation:
// job-sourced events are derived state and are replaced wholesale, while
// events of any other type are left alone. Events and the last sync
// timestamp survive restarts via a JSON snapshot on disk.
package eventstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tradeboard/calendar-sync/internal/models"
)

// Store is the local event cache. It has a single logical writer (the
// application shell) but is safe for concurrent readers, and concurrent
// reconciliations converge because SyncWithJobs is a pure function of the
// incoming job list.
type Store struct {
	mu       sync.RWMutex
	events   []*models.CalendarEvent
	lastSync time.Time

	path   string
	logger *slog.Logger
}

// snapshot is the on-disk shape. Unknown fields in an existing snapshot
// are ignored on load so newer writers don't break older readers.
type snapshot struct {
	Events   []*models.CalendarEvent `json:"events"`
	LastSync *time.Time              `json:"last_sync"`
}

// EventUpdate carries a partial update for one event. Nil fields are left
// untouched.
type EventUpdate struct {
	Title     *string
	Start     *time.Time
	End       *time.Time
	AllDay    *bool
	Status    *string
	TeamColor *string
	Location  *string
}

// New creates a store persisting to path. An empty path keeps the store
// in memory only.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		logger: logger,
	}
}

// Load reads the snapshot from disk. A missing snapshot is not an error;
// the store simply starts empty.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read event snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to parse event snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = snap.Events
	if snap.LastSync != nil {
		s.lastSync = *snap.LastSync
	}

	s.logger.Debug("Loaded event snapshot",
		"path", s.path,
		"event_count", len(s.events))

	return nil
}

// persist writes the snapshot. Callers must hold the write lock.
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}

	snap := snapshot{Events: s.events}
	if !s.lastSync.IsZero() {
		last := s.lastSync
		snap.LastSync = &last
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal event snapshot: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write event snapshot: %w", err)
	}

	return nil
}

// AddEvent appends an event to the store
func (s *Store) AddEvent(event *models.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	s.lastSync = time.Now()
	return s.persist()
}

// UpdateEvent applies a partial update to the event with the given id.
// Updating an unknown id is a no-op, matching the reconciliation model
// where the job list is the source of truth.
func (s *Store) UpdateEvent(id string, update EventUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, event := range s.events {
		if event.ID != id {
			continue
		}
		if update.Title != nil {
			event.Title = *update.Title
		}
		if update.Start != nil {
			event.Start = *update.Start
		}
		if update.End != nil {
			event.End = update.End
		}
		if update.AllDay != nil {
			event.AllDay = *update.AllDay
		}
		if update.Status != nil {
			event.Status = *update.Status
		}
		if update.TeamColor != nil {
			event.TeamColor = *update.TeamColor
		}
		if update.Location != nil {
			event.Location = *update.Location
		}
		break
	}

	s.lastSync = time.Now()
	return s.persist()
}

// RemoveEvent deletes the event with the given id
func (s *Store) RemoveEvent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := s.events[:0]
	for _, event := range s.events {
		if event.ID != id {
			filtered = append(filtered, event)
		}
	}
	s.events = filtered
	s.lastSync = time.Now()
	return s.persist()
}

// SetEvents replaces the full event list
func (s *Store) SetEvents(events []*models.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = events
	s.lastSync = time.Now()
	return s.persist()
}

// SyncWithJobs reconciles the store against the current job list. Events
// that are not job-sourced, or whose id is not among the incoming jobs,
// are kept; every incoming job contributes a freshly projected event.
// Job events are re-derived, not merged: any manual edit made to a
// job-linked event is discarded here. Calling this twice with the same
// job list yields an identical store.
func (s *Store) SyncWithJobs(jobs []*models.Job) error {
	jobIDs := make(map[string]bool, len(jobs))
	jobEvents := make([]*models.CalendarEvent, 0, len(jobs))
	for _, job := range jobs {
		jobIDs[job.ID] = true
		jobEvents = append(jobEvents, models.EventFromJob(job))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]*models.CalendarEvent, 0, len(s.events)+len(jobEvents))
	for _, event := range s.events {
		if event.Type != models.EventTypeJob || !jobIDs[event.ID] {
			updated = append(updated, event)
		}
	}
	updated = append(updated, jobEvents...)

	s.events = updated
	s.lastSync = time.Now()

	s.logger.Debug("Reconciled events with jobs",
		"job_count", len(jobs),
		"event_count", len(s.events))

	return s.persist()
}

// Events returns a copy of the current event list
func (s *Store) Events() []*models.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*models.CalendarEvent, len(s.events))
	copy(events, s.events)
	return events
}

// EventsForDate returns the events starting on the given calendar day
func (s *Store) EventsForDate(date time.Time) []*models.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.CalendarEvent
	for _, event := range s.events {
		if event.OnDate(date) {
			matched = append(matched, event)
		}
	}
	return matched
}

// EventsForJob returns the job-sourced events for the given job id
func (s *Store) EventsForJob(jobID string) []*models.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.CalendarEvent
	for _, event := range s.events {
		if event.ID == jobID && event.Type == models.EventTypeJob {
			matched = append(matched, event)
		}
	}
	return matched
}

// EventsForTeam returns the events carrying the given team color
func (s *Store) EventsForTeam(teamColor string) []*models.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.CalendarEvent
	for _, event := range s.events {
		if event.TeamColor == teamColor {
			matched = append(matched, event)
		}
	}
	return matched
}

// LastSync returns the time of the last store mutation, or the zero time
// if the store has never been written
func (s *Store) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}
