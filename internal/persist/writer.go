package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rmtavares/splitbook/internal/book"
	"github.com/rmtavares/splitbook/internal/domain"
)

const saveTimeout = 5 * time.Second

// Writer subscribes to published snapshots and saves them fire-and-forget:
// mutation callers never wait on storage, and a failed save is reported, not
// propagated. Pending writes coalesce so the store always receives the
// latest ledger rather than a backlog of intermediates.
type Writer struct {
	store  SnapshotStore
	ch     chan domain.Ledger
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewWriter(store SnapshotStore) *Writer {
	return &Writer{
		store: store,
		ch:    make(chan domain.Ledger, 1),
	}
}

// Start launches the background save loop.
func (w *Writer) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for l := range w.ch {
			w.save(l)
		}
	}()
}

// LedgerChanged queues the snapshot's ledger for saving, replacing any write
// still pending. Implements book.Subscriber.
func (w *Writer) LedgerChanged(snap book.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	for {
		select {
		case w.ch <- snap.Ledger:
			return
		default:
			// Drop the stale pending write and retry with the newer one.
			select {
			case <-w.ch:
			default:
			}
		}
	}
}

// Shutdown flushes any pending write and stops the loop.
func (w *Writer) Shutdown() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Writer) save(l domain.Ledger) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := w.store.SaveLedger(ctx, l); err != nil {
		slog.Error("failed to persist ledger", "error", err)
	}
}
