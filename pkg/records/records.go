// Package records persists sync records: one row per (connection, trade
// event) pair tracking how that event is represented on that connection.
package records

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

// ErrRecordNotFound is returned when no sync record matches
var ErrRecordNotFound = errors.New("sync record not found")

// Store is the sync record persistence layer
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a store over an initialized database
func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Upsert records one event as synced on one connection. The first sync of
// a (connection, trade event) pair inserts the row and mints its provider
// event id; every later sync only refreshes title, times, status and the
// sync timestamp. The whole operation is a single statement, so two
// concurrent syncs of the same pair cannot both insert.
func (s *Store) Upsert(ctx context.Context, userID, connectionID string, event models.EventPayload) (*models.SyncRecord, error) {
	now := time.Now().UTC()
	providerEventID := fmt.Sprintf("provider_%s", uuid.NewString())

	_, err := s.db.ExecContext(ctx, `INSERT INTO calendar_sync_events
		(id, user_id, connection_id, trade_event_id, provider_event_id,
		 event_title, event_start, event_end, sync_status, last_synced_at,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (connection_id, trade_event_id) DO UPDATE SET
			event_title = excluded.event_title,
			event_start = excluded.event_start,
			event_end = excluded.event_end,
			sync_status = excluded.sync_status,
			last_synced_at = excluded.last_synced_at,
			updated_at = excluded.updated_at`,
		uuid.NewString(), userID, connectionID, event.ID, providerEventID,
		event.Title, event.Start, event.End, string(models.SyncStatusSynced), now,
		now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert sync record: %w", err)
	}

	return s.Get(ctx, connectionID, event.ID)
}

// Get returns the sync record for one (connection, trade event) pair
func (s *Store) Get(ctx context.Context, connectionID, tradeEventID string) (*models.SyncRecord, error) {
	row := s.db.QueryRowContext(ctx, selectRecord+
		" WHERE connection_id = ? AND trade_event_id = ?", connectionID, tradeEventID)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	return record, err
}

// ListByConnection returns all sync records for one connection
func (s *Store) ListByConnection(ctx context.Context, connectionID string) ([]*models.SyncRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectRecord+
		" WHERE connection_id = ? ORDER BY trade_event_id", connectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync records: %w", err)
	}
	defer rows.Close()

	var recs []*models.SyncRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, record)
	}
	return recs, rows.Err()
}

const selectRecord = `SELECT id, user_id, connection_id, trade_event_id, provider_event_id,
	event_title, event_start, event_end, sync_status, last_synced_at, created_at, updated_at
	FROM calendar_sync_events`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.SyncRecord, error) {
	var record models.SyncRecord
	var status string
	var lastSynced sql.NullTime
	err := row.Scan(&record.ID, &record.UserID, &record.ConnectionID, &record.TradeEventID,
		&record.ProviderEventID, &record.EventTitle, &record.EventStart, &record.EventEnd,
		&status, &lastSynced, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan sync record: %w", err)
	}
	record.SyncStatus = models.SyncStatus(status)
	if lastSynced.Valid {
		record.LastSyncedAt = lastSynced.Time
	}
	return &record, nil
}
