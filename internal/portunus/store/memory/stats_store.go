package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

type StatsStore struct {
	mu       sync.Mutex
	counters map[string]types.ScanCounters
}

var _ store.StatsStore = (*StatsStore)(nil)

func NewStatsStore() *StatsStore {
	return &StatsStore{counters: make(map[string]types.ScanCounters)}
}

func (s *StatsStore) IncrementScanCounters(_ context.Context, orgID string, granted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, scope := range []string{orgID, types.GlobalStatsScope} {
		c := s.counters[scope]
		c.Total++
		if granted {
			c.Granted++
		} else {
			c.Denied++
		}
		s.counters[scope] = c
	}
	return nil
}

func (s *StatsStore) ScanCounters(_ context.Context, scope string) (types.ScanCounters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[scope], nil
}
