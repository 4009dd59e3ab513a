package models

import (
	"time"
)

// EventType classifies a calendar event by where it came from
type EventType string

const (
	EventTypeJob      EventType = "job"
	EventTypeTeam     EventType = "team"
	EventTypePersonal EventType = "personal"
	EventTypeOther    EventType = "other"
)

// CalendarEvent is the local projection of something that occupies a slot
// on the calendar. Job-sourced events are derived from the job list and are
// fully replaced on every reconciliation; they are never edited in place.
type CalendarEvent struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Start     time.Time      `json:"start"`
	End       *time.Time     `json:"end,omitempty"`
	AllDay    bool           `json:"all_day"`
	Type      EventType      `json:"type"`
	Status    string         `json:"status,omitempty"`
	TeamColor string         `json:"team_color,omitempty"`
	Location  string         `json:"location,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// IsJobEvent returns true if the event was derived from a job
func (e *CalendarEvent) IsJobEvent() bool {
	return e.Type == EventTypeJob
}

// OnDate returns true if the event starts on the given calendar day.
// Both sides are compared in UTC so the answer does not depend on the
// zone each time.Time happens to carry.
func (e *CalendarEvent) OnDate(date time.Time) bool {
	y1, m1, d1 := e.Start.UTC().Date()
	y2, m2, d2 := date.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
