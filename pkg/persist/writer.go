package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"nodedesk/pkg/settings"
)

// Saver is the write side of Adapter.
type Saver interface {
	Save(ctx context.Context, name string, st settings.State) error
}

// Writer persists settings states for one record name on a single goroutine.
// It holds at most one pending state: a newer Submit replaces an unwritten
// older one, so writes land in submission order and superseded states are
// skipped.
type Writer struct {
	saver   Saver
	name    string
	log     *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending *settings.State
	closed  bool

	signal   chan struct{}
	flushReq chan chan error
	quit     chan struct{}
	done     chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewWriter starts the writer goroutine. Close must be called to stop it.
func NewWriter(saver Saver, name string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Writer{
		saver:    saver,
		name:     name,
		log:      logger,
		timeout:  10 * time.Second,
		signal:   make(chan struct{}, 1),
		flushReq: make(chan chan error),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

// Submit queues st for writing and returns immediately. Submits after Close
// are dropped.
func (w *Writer) Submit(st settings.State) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.log.Warn("Persist: submit after close dropped", "name", w.name)
		return
	}
	w.pending = &st
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Flush blocks until every state submitted before the call has been written
// or ctx ends. It returns the error of the last failed write, if any.
func (w *Writer) Flush(ctx context.Context) error {
	ch := make(chan error, 1)
	select {
	case w.flushReq <- ch:
	case <-w.done:
		return w.closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes any pending state and stops the goroutine.
func (w *Writer) Close(ctx context.Context) error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		close(w.quit)
	})
	select {
	case <-w.done:
		return w.closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.signal:
			_ = w.drain()
		case ch := <-w.flushReq:
			ch <- w.drain()
		case <-w.quit:
			w.closeErr = w.drain()
			return
		}
	}
}

// drain writes pending states until none is left. A failed state is kept for
// the next attempt unless a newer one arrived meanwhile.
func (w *Writer) drain() error {
	for {
		w.mu.Lock()
		st := w.pending
		w.pending = nil
		w.mu.Unlock()
		if st == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err := w.saver.Save(ctx, w.name, *st)
		cancel()
		if err != nil {
			w.log.Error("Persist: failed to write record", "name", w.name, "error", err)
			w.mu.Lock()
			if w.pending == nil {
				w.pending = st
			}
			w.mu.Unlock()
			return err
		}
		w.log.Debug("Persist: record written", "name", w.name)
	}
}
