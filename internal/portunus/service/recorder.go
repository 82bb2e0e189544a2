package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/zeebo/blake3"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// newScanEventID is the default id generator: a 21 character nanoid.
func newScanEventID() (string, error) {
	return gonanoid.New()
}

// hashCards digests the presented card numbers so the audit log can
// correlate repeat presentations without storing the numbers themselves.
func hashCards(cards []string) []byte {
	if len(cards) == 0 {
		return nil
	}
	sorted := dedupe(cards)
	sort.Strings(sorted)
	sum := blake3.Sum256([]byte(strings.Join(sorted, ",")))
	return sum[:]
}

// recordStats bumps the organization and platform counters. Errors are
// logged; the counters are analytics, not an authorization source.
func (s *AccessService) recordStats(ctx context.Context, orgID string, granted bool) {
	if s.stats == nil {
		return
	}
	if err := s.stats.IncrementScanCounters(ctx, orgID, granted); err != nil {
		s.metrics.RecordFailed("stats")
		s.logger.Error(
			"scan counter increment failed",
			slog.String("organization_id", orgID),
			slog.String("error", err.Error()),
		)
	}
}

// recordEvent inserts ev under a fresh random id, drawing a new id for as
// long as the store reports a collision. It returns the stored event, or
// ok=false if the write failed for any other reason.
func (s *AccessService) recordEvent(ctx context.Context, ev types.ScanEvent) (types.ScanEvent, bool) {
	if s.events == nil {
		return ev, false
	}

	for {
		id, err := s.newID()
		if err != nil {
			s.auditFailed(ev, err)
			return ev, false
		}
		ev.ID = id

		err = s.events.InsertScanEvent(ctx, ev)
		if err == nil {
			return ev, true
		}
		if !errors.Is(err, store.ErrDuplicateID) {
			s.auditFailed(ev, err)
			return ev, false
		}
		if ctx.Err() != nil {
			s.auditFailed(ev, ctx.Err())
			return ev, false
		}
		s.logger.Debug("scan event id collision, retrying", slog.String("id", id))
	}
}

func (s *AccessService) auditFailed(ev types.ScanEvent, err error) {
	s.metrics.RecordFailed("audit")
	s.logger.Error(
		"scan event insert failed",
		slog.String("access_point_id", ev.AccessPointID),
		slog.Bool("granted", ev.Granted),
		slog.String("error", err.Error()),
	)
}
