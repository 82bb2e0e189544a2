package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
)

// ScanEventPruner periodically deletes scan events whose expiry has passed.
// It runs as a background goroutine and is safe to stop via its context or
// the Stop method.
//
// A retention of 0 disables pruning entirely.
type ScanEventPruner struct {
	store     store.ScanEventStore
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// PrunerConfig holds the parameters for NewScanEventPruner.
type PrunerConfig struct {
	// Retention is how long scan events are kept. 0 means keep everything
	// (the pruner will not start).
	Retention time.Duration

	// Interval is how often the pruner runs. Defaults to 6h.
	Interval time.Duration
}

// NewScanEventPruner creates a pruner but does not start it.
// Call Start to begin the background loop.
func NewScanEventPruner(s store.ScanEventStore, cfg PrunerConfig, logger *slog.Logger) *ScanEventPruner {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	return &ScanEventPruner{
		store:     s,
		retention: cfg.Retention,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

// Start begins the background pruning loop. It runs an immediate prune on
// startup, then repeats on the configured interval. The loop exits when
// ctx is cancelled or Stop is called.
func (p *ScanEventPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info("scan event pruner disabled (retention=0)")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)

	go p.loop(ctx)

	p.logger.Info(
		"scan event pruner started",
		slog.Duration("retention", p.retention),
		slog.Duration("interval", p.interval),
	)
}

// Stop signals the pruner to exit and waits for it to finish.
func (p *ScanEventPruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *ScanEventPruner) loop(ctx context.Context) {
	defer close(p.done)

	// Run immediately on startup to clean up any backlog.
	p.PruneOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneOnce(ctx)
		}
	}
}

// PruneOnce deletes every event that has expired as of now.
func (p *ScanEventPruner) PruneOnce(ctx context.Context) int64 {
	now := p.now().UTC()
	deleted, err := p.store.PruneExpired(ctx, now)
	if err != nil {
		p.logger.Error("scan event prune failed", slog.String("error", err.Error()))
		return 0
	}
	if deleted > 0 {
		p.logger.Info(
			"scan event prune",
			slog.Int64("deleted", deleted),
			slog.Time("now", now),
		)
	}
	return deleted
}
