package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tradeboard/calendar-sync/internal/models"
	"github.com/tradeboard/calendar-sync/pkg/registry"
)

// ConnectionsHandler exposes CRUD over a user's calendar connections.
// Every operation is scoped to the authenticated user; a connection owned
// by someone else answers like a missing one.
type ConnectionsHandler struct {
	auth     Authenticator
	registry *registry.Registry
	logger   *slog.Logger
}

// NewConnectionsHandler creates a connections handler
func NewConnectionsHandler(auth Authenticator, reg *registry.Registry, logger *slog.Logger) *ConnectionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionsHandler{auth: auth, registry: reg, logger: logger}
}

type createConnectionRequest struct {
	Provider   models.Provider `json:"provider"`
	ProviderID string          `json:"provider_id"`
	CalendarID string          `json:"calendar_id"`
}

type updateConnectionRequest struct {
	ProviderID  *string `json:"provider_id"`
	CalendarID  *string `json:"calendar_id"`
	SyncEnabled *bool   `json:"sync_enabled"`
}

// List handles GET /api/connections
func (h *ConnectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(h.auth, r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conns, err := h.registry.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list connections", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if conns == nil {
		conns = []*models.CalendarConnection{}
	}

	writeJSON(w, http.StatusOK, conns)
}

// Create handles POST /api/connections
func (h *ConnectionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(h.auth, r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Provider.Valid() {
		writeError(w, http.StatusBadRequest, "unsupported provider")
		return
	}

	conn, err := h.registry.Create(r.Context(), userID, req.Provider, req.ProviderID, req.CalendarID)
	if err != nil {
		h.logger.Error("Failed to create connection", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, conn)
}

// Update handles PATCH /api/connections/{id}
func (h *ConnectionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(h.auth, r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, ok := h.ownedConnection(w, r, userID)
	if !ok {
		return
	}

	var req updateConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.registry.Update(r.Context(), conn.ID, registry.ConnectionUpdate{
		ProviderID:  req.ProviderID,
		CalendarID:  req.CalendarID,
		SyncEnabled: req.SyncEnabled,
	})
	if err != nil {
		h.logger.Error("Failed to update connection", "connection_id", conn.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/connections/{id}
func (h *ConnectionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(h.auth, r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, ok := h.ownedConnection(w, r, userID)
	if !ok {
		return
	}

	if err := h.registry.Delete(r.Context(), conn.ID); err != nil {
		h.logger.Error("Failed to delete connection", "connection_id", conn.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ownedConnection loads the path's connection and verifies ownership.
// On failure it writes the response and returns ok=false.
func (h *ConnectionsHandler) ownedConnection(w http.ResponseWriter, r *http.Request, userID string) (*models.CalendarConnection, bool) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "connection id is required")
		return nil, false
	}

	conn, err := h.registry.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrConnectionNotFound) {
			writeError(w, http.StatusNotFound, "calendar connection not found")
			return nil, false
		}
		h.logger.Error("Failed to look up connection", "connection_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if conn.UserID != userID {
		writeError(w, http.StatusNotFound, "calendar connection not found")
		return nil, false
	}

	return conn, true
}
