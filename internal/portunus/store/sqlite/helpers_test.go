package sqlite_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/BrandonDHaskell/Portunus/gate/internal/db"
	sqlitestore "github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store/sqlite"
)

// openTestDB returns a migrated private in-memory database, closed when the
// test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(context.Background(), db.Config{InMemory: true})
	if err != nil {
		t.Fatalf("openTestDB: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn, closed when the test
// finishes (before the connection, since cleanups run last-in first-out).
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(w.Close)
	return w
}

type testStores struct {
	conn   *sql.DB
	dir    *sqlitestore.Directory
	events *sqlitestore.ScanEventStore
	stats  *sqlitestore.StatsStore
}

// newTestStores wires every sqlite store over one fresh database and writer.
func newTestStores(t *testing.T) testStores {
	t.Helper()

	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	return testStores{
		conn:   conn,
		dir:    sqlitestore.NewDirectory(conn, w),
		events: sqlitestore.NewScanEventStore(conn, w),
		stats:  sqlitestore.NewStatsStore(conn, w),
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
