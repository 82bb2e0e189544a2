package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// ErrWorkerClosed is returned by Do once Close has been called.
var ErrWorkerClosed = errors.New("db writer closed")

// TxFn runs inside a transaction owned by the Worker. Returning an error
// rolls the transaction back.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// queueSize bounds how many writes may wait behind the one in progress.
const queueSize = 256

type write struct {
	ctx    context.Context
	fn     TxFn
	result chan error
}

// Worker serializes every write through one goroutine so concurrent scans
// never contend for the SQLite write lock. Reads go straight to the *sql.DB.
type Worker struct {
	db     *sql.DB
	writes chan write

	// mu guards closed against a Do racing Close; Do holds it shared while
	// it enqueues.
	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
}

func NewWorker(db *sql.DB) *Worker {
	w := &Worker{
		db:      db,
		writes:  make(chan write, queueSize),
		stopped: make(chan struct{}),
	}
	go w.run()
	return w
}

// Close finishes the writes already queued and stops the loop. It is safe
// to call more than once; later Do calls fail with ErrWorkerClosed.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.writes)
	}
	w.mu.Unlock()
	<-w.stopped
}

// Do queues fn and waits for its transaction to commit or roll back. If ctx
// ends while fn is queued or running, Do returns early; the transaction
// still completes and its result is dropped.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	wr := write{ctx: ctx, fn: fn, result: make(chan error, 1)}

	if err := w.enqueue(ctx, wr); err != nil {
		return err
	}

	select {
	case err := <-wr.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) enqueue(ctx context.Context, wr write) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrWorkerClosed
	}
	select {
	case w.writes <- wr:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) run() {
	defer close(w.stopped)

	for wr := range w.writes {
		wr.result <- w.apply(wr)
	}
}

func (w *Worker) apply(wr write) error {
	// Nobody is waiting for a write whose caller already gave up.
	if err := wr.ctx.Err(); err != nil {
		return err
	}

	tx, err := w.db.BeginTx(wr.ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := wr.fn(wr.ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
