package models

import (
	"time"
)

// SyncStatus tracks the state of one event on one connection
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
	SyncStatusPending SyncStatus = "pending"
)

// SyncRecord is the server-persisted row tracking the relationship between
// one trade event and its representation on one calendar connection.
// Identity is the (ConnectionID, TradeEventID) pair. ProviderEventID is
// minted exactly once on first sync and never reassigned afterwards.
type SyncRecord struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	ConnectionID    string     `json:"connection_id"`
	TradeEventID    string     `json:"trade_event_id"`
	ProviderEventID string     `json:"provider_event_id"`
	EventTitle      string     `json:"event_title"`
	EventStart      string     `json:"event_start"`
	EventEnd        string     `json:"event_end"`
	SyncStatus      SyncStatus `json:"sync_status"`
	LastSyncedAt    time.Time  `json:"last_synced_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// EventPayload is one event in a sync request batch. Start and End are
// RFC3339 timestamps.
type EventPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// SyncRequest is the wire request to the sync handler
type SyncRequest struct {
	ConnectionID string         `json:"connectionId"`
	Events       []EventPayload `json:"events"`
}

// EventResult is the per-event outcome inside a sync response
type EventResult struct {
	EventID string     `json:"eventId"`
	Status  SyncStatus `json:"status"`
	Error   string     `json:"error,omitempty"`
}

// SyncResponse is the wire response from the sync handler. Accepted means
// the batch was authorized and processed; Failed counts the events within
// it that could not be persisted. The two are deliberately separate:
// an accepted batch can still contain failed events.
type SyncResponse struct {
	Accepted bool          `json:"accepted"`
	Failed   int           `json:"failed"`
	Results  []EventResult `json:"results"`
}

// ErrorResponse is returned with a non-2xx status on authorization or
// validation failure
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConnectionResult is the aggregated outcome for one connection after a
// fan-out
type ConnectionResult struct {
	ConnectionID string        `json:"connection_id"`
	Provider     Provider      `json:"provider"`
	Success      bool          `json:"success"`
	Results      []EventResult `json:"results,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// SyncOutcome is the single result of one orchestrator invocation.
// Success is true only when every connection succeeded.
type SyncOutcome struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Results []ConnectionResult `json:"results,omitempty"`
}

// FailedConnections counts connections that did not fully succeed
func (o *SyncOutcome) FailedConnections() int {
	failed := 0
	for _, r := range o.Results {
		if !r.Success {
			failed++
		}
	}
	return failed
}
