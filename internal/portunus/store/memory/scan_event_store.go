package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// ScanEventStore is an in-memory append-only log of scan events.
// It is intended for use in tests and dev environments.
type ScanEventStore struct {
	mu     sync.Mutex
	events []types.ScanEvent
	ids    map[string]struct{}
}

var _ store.ScanEventStore = (*ScanEventStore)(nil)

func NewScanEventStore() *ScanEventStore {
	return &ScanEventStore{ids: make(map[string]struct{})}
}

func (s *ScanEventStore) InsertScanEvent(_ context.Context, ev types.ScanEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[ev.ID]; dup {
		return store.ErrDuplicateID
	}
	s.ids[ev.ID] = struct{}{}
	s.events = append(s.events, ev)
	return nil
}

func (s *ScanEventStore) PruneExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var pruned int64
	for _, ev := range s.events {
		if !ev.ExpiresAt.IsZero() && !ev.ExpiresAt.After(now) {
			delete(s.ids, ev.ID)
			pruned++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	return pruned, nil
}

// Events returns a copy of all recorded events.  Test-only helper.
func (s *ScanEventStore) Events() []types.ScanEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ScanEvent, len(s.events))
	copy(out, s.events)
	return out
}
