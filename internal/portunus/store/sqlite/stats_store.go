package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/gate/internal/db"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

type StatsStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

var _ store.StatsStore = (*StatsStore)(nil)

func NewStatsStore(db *sql.DB, writer *dbpkg.Worker) *StatsStore {
	return &StatsStore{db: db, writer: writer}
}

// IncrementScanCounters bumps the organization and global rows in a single
// transaction.
func (s *StatsStore) IncrementScanCounters(ctx context.Context, orgID string, granted bool) error {
	g, d := 0, 1
	if granted {
		g, d = 1, 0
	}
	now := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, scope := range []string{orgID, types.GlobalStatsScope} {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO scan_counters(scope, total, granted, denied, updated_at_ms)
VALUES (?, 1, ?, ?, ?)
ON CONFLICT(scope) DO UPDATE SET
  total = total + 1,
  granted = granted + excluded.granted,
  denied = denied + excluded.denied,
  updated_at_ms = excluded.updated_at_ms;
`, scope, g, d, now); err != nil {
				return fmt.Errorf("IncrementScanCounters %s: %w", scope, err)
			}
		}
		return nil
	})
}

// ScanCounters returns zero counters for a scope that has never been
// incremented.
func (s *StatsStore) ScanCounters(ctx context.Context, scope string) (types.ScanCounters, error) {
	var c types.ScanCounters
	err := s.db.QueryRowContext(ctx, `
SELECT total, granted, denied FROM scan_counters WHERE scope = ?;
`, scope).Scan(&c.Total, &c.Granted, &c.Denied)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ScanCounters{}, nil
	}
	if err != nil {
		return types.ScanCounters{}, fmt.Errorf("ScanCounters: %w", err)
	}
	return c, nil
}
