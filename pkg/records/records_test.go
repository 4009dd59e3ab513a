package records

import (
	"context"
	"errors"
	"testing"

	"github.com/tradeboard/calendar-sync/internal/models"
	"github.com/tradeboard/calendar-sync/pkg/db"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := db.Init(database); err != nil {
		t.Fatalf("Failed to initialize schema: %v", err)
	}

	return New(database, nil)
}

func payload(id, title string) models.EventPayload {
	return models.EventPayload{
		ID:    id,
		Title: title,
		Start: "2024-01-16T09:00:00Z",
		End:   "2024-01-16T11:00:00Z",
	}
}

func TestUpsertInsert(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	record, err := store.Upsert(ctx, "user-1", "conn-1", payload("J1", "Kitchen Remodel"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if record.TradeEventID != "J1" {
		t.Errorf("Expected trade event id J1, got %q", record.TradeEventID)
	}
	if record.ProviderEventID == "" {
		t.Error("Expected minted provider event id")
	}
	if record.SyncStatus != models.SyncStatusSynced {
		t.Errorf("Expected status synced, got %q", record.SyncStatus)
	}
	if record.LastSyncedAt.IsZero() {
		t.Error("Expected last synced timestamp to be set")
	}
}

func TestUpsertIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first, err := store.Upsert(ctx, "user-1", "conn-1", payload("J1", "Kitchen Remodel"))
	if err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}

	second, err := store.Upsert(ctx, "user-1", "conn-1", payload("J1", "Kitchen Remodel v2"))
	if err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	// Still exactly one record for the pair.
	recs, err := store.ListByConnection(ctx, "conn-1")
	if err != nil {
		t.Fatalf("ListByConnection failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Expected exactly one record, got %d", len(recs))
	}

	if second.ProviderEventID != first.ProviderEventID {
		t.Errorf("Provider event id must never be reassigned: %q vs %q",
			first.ProviderEventID, second.ProviderEventID)
	}
	if second.ID != first.ID {
		t.Errorf("Expected the same row to be updated, got ids %q and %q", first.ID, second.ID)
	}
	if second.EventTitle != "Kitchen Remodel v2" {
		t.Errorf("Expected title refresh, got %q", second.EventTitle)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("Expected created_at untouched on update")
	}
}

func TestUpsertIsolatedPerConnection(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	a, err := store.Upsert(ctx, "user-1", "conn-1", payload("J1", "Kitchen Remodel"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	b, err := store.Upsert(ctx, "user-1", "conn-2", payload("J1", "Kitchen Remodel"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if a.ProviderEventID == b.ProviderEventID {
		t.Error("Expected distinct provider event ids per connection")
	}
}

func TestGetNotFound(t *testing.T) {
	store := testStore(t)

	if _, err := store.Get(context.Background(), "conn-1", "nope"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}
