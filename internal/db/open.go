package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultPath is used when Config.Path is empty.
const DefaultPath = "./data/portunus-gate.db"

type Config struct {
	Path string // e.g. "./data/portunus-gate.db"

	// InMemory opens a fresh private in-memory database and ignores Path.
	InMemory bool
}

// Pragmas are the per-connection settings applied to every database,
// including the in-memory ones used by tests:
// - foreign_keys ON
// - WAL for better concurrency
// - synchronous NORMAL for performance with good safety
// - busy_timeout to reduce SQLITE_BUSY under load
const Pragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"

// memorySeq names in-memory databases so each Open gets its own.
var memorySeq atomic.Int64

// Open connects to the configured database, creating it if needed, and
// applies pending migrations. The pool is capped at one connection.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn, err := dsnFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const pingTimeout = 3 * time.Second

func dsnFor(cfg Config) (string, error) {
	if cfg.InMemory {
		// Shared cache keeps the database alive while the pool reopens
		// its connection.
		return fmt.Sprintf("file:portunus_mem_%d?mode=memory&cache=shared&%s", memorySeq.Add(1), Pragmas), nil
	}

	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("mkdir db dir: %w", err)
	}
	return fmt.Sprintf("file:%s?%s", path, Pragmas), nil
}
