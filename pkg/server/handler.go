// Package server exposes the calendar sync HTTP API: the idempotent sync
// endpoint plus CRUD over a user's calendar connections.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tradeboard/calendar-sync/internal/models"
	"github.com/tradeboard/calendar-sync/pkg/records"
	"github.com/tradeboard/calendar-sync/pkg/registry"
)

// SyncHandler processes sync batches for one connection. Each event in
// the batch is upserted independently; a failing event never aborts its
// siblings. The response distinguishes "batch accepted" from "every event
// synced" so callers can react to partial failure.
type SyncHandler struct {
	auth     Authenticator
	registry *registry.Registry
	records  *records.Store
	logger   *slog.Logger
}

// NewSyncHandler creates a sync handler
func NewSyncHandler(auth Authenticator, reg *registry.Registry, recs *records.Store, logger *slog.Logger) *SyncHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncHandler{
		auth:     auth,
		registry: reg,
		records:  recs,
		logger:   logger,
	}
}

func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := userFromRequest(h.auth, r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConnectionID == "" || req.Events == nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Ownership and enablement are checked before anything is written.
	// A foreign or disabled connection answers exactly like a missing one.
	if _, err := h.registry.GetOwnedEnabled(ctx, req.ConnectionID, userID); err != nil {
		if errors.Is(err, registry.ErrConnectionNotFound) {
			writeError(w, http.StatusNotFound, "calendar connection not found")
			return
		}
		h.logger.Error("Failed to look up connection",
			"connection_id", req.ConnectionID,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	results := make([]models.EventResult, 0, len(req.Events))
	failed := 0
	for _, event := range req.Events {
		if _, err := h.records.Upsert(ctx, userID, req.ConnectionID, event); err != nil {
			h.logger.Error("Failed to upsert sync record",
				"connection_id", req.ConnectionID,
				"event_id", event.ID,
				"error", err)
			results = append(results, models.EventResult{
				EventID: event.ID,
				Status:  models.SyncStatusFailed,
				Error:   err.Error(),
			})
			failed++
			continue
		}
		results = append(results, models.EventResult{
			EventID: event.ID,
			Status:  models.SyncStatusSynced,
		})
	}

	h.logger.Info("Processed sync batch",
		"user_id", userID,
		"connection_id", req.ConnectionID,
		"events", len(req.Events),
		"failed", failed)

	writeJSON(w, http.StatusOK, models.SyncResponse{
		Accepted: true,
		Failed:   failed,
		Results:  results,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}
