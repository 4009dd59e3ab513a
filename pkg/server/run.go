package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tradeboard/calendar-sync/internal/models"
	"github.com/tradeboard/calendar-sync/pkg/orchestrator"
	"github.com/tradeboard/calendar-sync/pkg/registry"
)

// SyncerFactory builds the per-connection transport for one run. The
// caller's bearer token is carried through so the fan-out acts with the
// caller's identity.
type SyncerFactory func(token string) orchestrator.Syncer

// SyncRunHandler is the "sync now" trigger: it takes the caller's current
// job list, fans it out to every enabled connection the caller owns, and
// answers with the aggregated outcome.
type SyncRunHandler struct {
	auth      Authenticator
	registry  *registry.Registry
	notifier  orchestrator.Notifier
	newSyncer SyncerFactory
	logger    *slog.Logger
}

// NewSyncRunHandler creates a sync run handler
func NewSyncRunHandler(auth Authenticator, reg *registry.Registry, notifier orchestrator.Notifier, newSyncer SyncerFactory, logger *slog.Logger) *SyncRunHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncRunHandler{
		auth:      auth,
		registry:  reg,
		notifier:  notifier,
		newSyncer: newSyncer,
		logger:    logger,
	}
}

type syncRunRequest struct {
	Jobs []*models.Job `json:"jobs"`
}

func (h *SyncRunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID, err := h.auth.UserForToken(ctx, token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req syncRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conns, err := h.registry.ListByUser(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to list connections for sync run",
			"user_id", userID,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	orch := orchestrator.New(h.newSyncer(token), h.notifier, h.logger)
	outcome := orch.SyncJobsToCalendars(ctx, req.Jobs, conns, userID)

	writeJSON(w, http.StatusOK, outcome)
}
