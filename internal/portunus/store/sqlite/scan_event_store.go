package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/gate/internal/db"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

type ScanEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

var _ store.ScanEventStore = (*ScanEventStore)(nil)

func NewScanEventStore(db *sql.DB, writer *dbpkg.Worker) *ScanEventStore {
	return &ScanEventStore{db: db, writer: writer}
}

// InsertScanEvent appends ev. A primary key conflict is reported as
// store.ErrDuplicateID so the caller can draw a new id.
func (s *ScanEventStore) InsertScanEvent(ctx context.Context, ev types.ScanEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	var cardHash any
	if len(ev.CardHash) == 32 {
		cardHash = ev.CardHash
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO scan_events(
  scan_event_id, organization_id, location_id, access_point_id, user_id,
  card_hash, granted, grant_type, created_at_ms, expires_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			ev.ID, ev.OrganizationID, ev.LocationID, ev.AccessPointID, nullIfEmpty(ev.UserID),
			cardHash, boolInt(ev.Granted), string(ev.GrantType),
			ev.CreatedAt.UTC().UnixMilli(), ev.ExpiresAt.UTC().UnixMilli(),
		)
		if isConstraintViolation(err) {
			return fmt.Errorf("InsertScanEvent %s: %w", ev.ID, store.ErrDuplicateID)
		}
		if err != nil {
			return fmt.Errorf("InsertScanEvent: %w", err)
		}
		return nil
	})
}

// PruneExpired deletes events whose expires_at_ms is at or before now.
// Returns the number of rows deleted.
//
// Uses the idx_scan_events_expiry index for an efficient range scan.
func (s *ScanEventStore) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	nowMs := now.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM scan_events
WHERE expires_at_ms <= ?;
`, nowMs)
		if err != nil {
			return fmt.Errorf("PruneExpired: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}

// RecentScanEvents returns up to limit events for an access point, newest
// first. The raw card numbers are never stored, only their digest.
func (s *ScanEventStore) RecentScanEvents(ctx context.Context, accessPointID string, limit int) ([]types.ScanEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT scan_event_id, organization_id, location_id, access_point_id, user_id,
       card_hash, granted, grant_type, created_at_ms, expires_at_ms
FROM scan_events
WHERE access_point_id = ?
ORDER BY created_at_ms DESC, scan_event_id
LIMIT ?;
`, accessPointID, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentScanEvents: %w", err)
	}
	defer rows.Close()

	var out []types.ScanEvent
	for rows.Next() {
		var (
			ev                  types.ScanEvent
			userID              sql.NullString
			granted             int
			grantType           string
			createdMs, expireMs int64
		)
		if err := rows.Scan(&ev.ID, &ev.OrganizationID, &ev.LocationID, &ev.AccessPointID, &userID,
			&ev.CardHash, &granted, &grantType, &createdMs, &expireMs); err != nil {
			return nil, fmt.Errorf("RecentScanEvents scan: %w", err)
		}
		ev.UserID = str(userID)
		ev.Granted = granted == 1
		ev.GrantType = types.GrantType(grantType)
		ev.CreatedAt = time.UnixMilli(createdMs).UTC()
		ev.ExpiresAt = time.UnixMilli(expireMs).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}
