package sqlite_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	sqlitestore "github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store/sqlite"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

func testScanEvent(id string, created time.Time) types.ScanEvent {
	return types.ScanEvent{
		ID:             id,
		OrganizationID: "org-1",
		LocationID:     "loc-1",
		AccessPointID:  "ap-1",
		UserID:         "1001",
		CardHash:       bytes.Repeat([]byte{0xab}, 32),
		Granted:        true,
		GrantType:      types.GrantUserScan,
		CreatedAt:      created,
		ExpiresAt:      created.Add(24 * time.Hour),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// InsertScanEvent
// ═══════════════════════════════════════════════════════════════════════════

func TestScanEventStore_InsertAndRead(t *testing.T) {
	conn := openTestDB(t)
	es := sqlitestore.NewScanEventStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	if err := es.InsertScanEvent(ctx, testScanEvent("ev-1", now)); err != nil {
		t.Fatalf("InsertScanEvent: %v", err)
	}

	evs, err := es.RecentScanEvents(ctx, "ap-1", 10)
	if err != nil {
		t.Fatalf("RecentScanEvents: %v", err)
	}
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	got := evs[0]
	if got.ID != "ev-1" || !got.Granted || got.GrantType != types.GrantUserScan || got.UserID != "1001" {
		t.Errorf("unexpected event %+v", got)
	}
	if !got.CreatedAt.Equal(now) || !got.ExpiresAt.Equal(now.Add(24*time.Hour)) {
		t.Errorf("timestamps: created=%v expires=%v", got.CreatedAt, got.ExpiresAt)
	}
	if len(got.CardHash) != 32 {
		t.Errorf("expected 32-byte card hash, got %d bytes", len(got.CardHash))
	}
}

func TestScanEventStore_NoCardsStoresNullHash(t *testing.T) {
	conn := openTestDB(t)
	es := sqlitestore.NewScanEventStore(conn, newTestWriter(t, conn))

	ev := testScanEvent("ev-1", time.Now().UTC())
	ev.CardHash = nil
	ev.UserID = ""
	if err := es.InsertScanEvent(context.Background(), ev); err != nil {
		t.Fatalf("InsertScanEvent: %v", err)
	}

	var nullHash, nullUser bool
	err := conn.QueryRowContext(context.Background(),
		`SELECT card_hash IS NULL, user_id IS NULL FROM scan_events WHERE scan_event_id = 'ev-1'`,
	).Scan(&nullHash, &nullUser)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !nullHash || !nullUser {
		t.Errorf("expected NULL card_hash and user_id, got %v %v", nullHash, nullUser)
	}
}

func TestScanEventStore_DuplicateID(t *testing.T) {
	conn := openTestDB(t)
	es := sqlitestore.NewScanEventStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	now := time.Now().UTC()
	if err := es.InsertScanEvent(ctx, testScanEvent("dup", now)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := es.InsertScanEvent(ctx, testScanEvent("dup", now))
	if !errors.Is(err, store.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// PruneExpired
// ═══════════════════════════════════════════════════════════════════════════

func TestScanEventStore_PruneExpired(t *testing.T) {
	conn := openTestDB(t)
	es := sqlitestore.NewScanEventStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	now := time.Now().UTC()
	if err := es.InsertScanEvent(ctx, testScanEvent("old", now.AddDate(0, 0, -40))); err != nil {
		t.Fatalf("insert old: %v", err)
	}
	if err := es.InsertScanEvent(ctx, testScanEvent("recent", now.Add(-time.Hour))); err != nil {
		t.Fatalf("insert recent: %v", err)
	}

	deleted, err := es.PruneExpired(ctx, now)
	if err != nil {
		t.Fatalf("PruneExpired: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned, got %d", deleted)
	}

	evs, err := es.RecentScanEvents(ctx, "ap-1", 10)
	if err != nil {
		t.Fatalf("RecentScanEvents: %v", err)
	}
	if len(evs) != 1 || evs[0].ID != "recent" {
		t.Errorf("expected only recent to survive, got %+v", evs)
	}
}
