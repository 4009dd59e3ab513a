// Package registry manages calendar connections: the stored links between
// a user and their external calendar accounts.
//
// OAuth token acquisition and refresh happen outside this subsystem;
// connections are created with placeholder tokens and a short default
// expiry, and the provider flow fills them in later.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tradeboard/calendar-sync/internal/models"
)

// ErrConnectionNotFound is returned when no connection matches. A
// disabled or foreign connection is reported the same way: fail closed.
var ErrConnectionNotFound = errors.New("calendar connection not found")

// DefaultTokenExpiry is assumed for freshly created connections until the
// OAuth flow stores real tokens.
const DefaultTokenExpiry = time.Hour

// Registry is the CRUD layer over stored calendar connections
type Registry struct {
	db     *sql.DB
	logger *slog.Logger
}

// ConnectionUpdate carries a partial update. Nil fields are left as-is.
type ConnectionUpdate struct {
	ProviderID  *string
	CalendarID  *string
	SyncEnabled *bool
}

// New creates a registry over an initialized database
func New(db *sql.DB, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{db: db, logger: logger}
}

// Create links a user to an external calendar. The connection starts
// enabled, with placeholder tokens and a one-hour expiry.
func (r *Registry) Create(ctx context.Context, userID string, provider models.Provider, providerID, calendarID string) (*models.CalendarConnection, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if !provider.Valid() {
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}

	now := time.Now().UTC()
	conn := &models.CalendarConnection{
		ID:             uuid.NewString(),
		UserID:         userID,
		Provider:       provider,
		ProviderID:     providerID,
		CalendarID:     calendarID,
		AccessToken:    "pending",
		RefreshToken:   "pending",
		TokenExpiresAt: now.Add(DefaultTokenExpiry),
		SyncEnabled:    true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO user_calendar_connections
		(id, user_id, provider, provider_id, calendar_id, access_token, refresh_token,
		 token_expires_at, sync_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conn.ID, conn.UserID, string(conn.Provider), conn.ProviderID, conn.CalendarID,
		conn.AccessToken, conn.RefreshToken, conn.TokenExpiresAt,
		conn.SyncEnabled, conn.CreatedAt, conn.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	r.logger.Info("Created calendar connection",
		"connection_id", conn.ID,
		"user_id", userID,
		"provider", provider)

	return conn, nil
}

// Get returns the connection with the given id
func (r *Registry) Get(ctx context.Context, id string) (*models.CalendarConnection, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		selectConnection+" WHERE id = ?", id))
}

// GetOwnedEnabled returns the connection only if it belongs to the given
// user and has sync enabled. Anything else is ErrConnectionNotFound, so a
// caller cannot distinguish foreign, disabled and nonexistent connections.
func (r *Registry) GetOwnedEnabled(ctx context.Context, id, userID string) (*models.CalendarConnection, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		selectConnection+" WHERE id = ? AND user_id = ? AND sync_enabled = 1", id, userID))
}

// ListByUser returns all of a user's connections, newest first
func (r *Registry) ListByUser(ctx context.Context, userID string) ([]*models.CalendarConnection, error) {
	rows, err := r.db.QueryContext(ctx,
		selectConnection+" WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var conns []*models.CalendarConnection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

// Update applies a partial update and touches updated_at
func (r *Registry) Update(ctx context.Context, id string, update ConnectionUpdate) (*models.CalendarConnection, error) {
	conn, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.ProviderID != nil {
		conn.ProviderID = *update.ProviderID
	}
	if update.CalendarID != nil {
		conn.CalendarID = *update.CalendarID
	}
	if update.SyncEnabled != nil {
		conn.SyncEnabled = *update.SyncEnabled
	}
	conn.UpdatedAt = time.Now().UTC()

	_, err = r.db.ExecContext(ctx, `UPDATE user_calendar_connections
		SET provider_id = ?, calendar_id = ?, sync_enabled = ?, updated_at = ?
		WHERE id = ?`,
		conn.ProviderID, conn.CalendarID, conn.SyncEnabled, conn.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update connection: %w", err)
	}

	return conn, nil
}

// Delete removes a connection. Sync records for it are kept; they track
// history on the provider side, not the link itself.
func (r *Registry) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM user_calendar_connections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrConnectionNotFound
	}

	r.logger.Info("Deleted calendar connection", "connection_id", id)
	return nil
}

const selectConnection = `SELECT id, user_id, provider, provider_id, calendar_id,
	access_token, refresh_token, token_expires_at, sync_enabled, created_at, updated_at
	FROM user_calendar_connections`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Registry) scanOne(row *sql.Row) (*models.CalendarConnection, error) {
	conn, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConnectionNotFound
	}
	return conn, err
}

func scanConnection(row rowScanner) (*models.CalendarConnection, error) {
	var conn models.CalendarConnection
	var provider string
	err := row.Scan(&conn.ID, &conn.UserID, &provider, &conn.ProviderID, &conn.CalendarID,
		&conn.AccessToken, &conn.RefreshToken, &conn.TokenExpiresAt,
		&conn.SyncEnabled, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan connection: %w", err)
	}
	conn.Provider = models.Provider(provider)
	return &conn, nil
}
