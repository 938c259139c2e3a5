package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBufferSize    = 1024
	defaultBatchSize     = 50
	defaultFlushInterval = 5 * time.Second
)

// Dispatcher is the fire-and-forget front of a Sink: Dispatch enqueues and
// returns immediately, a background worker batches and delivers.
type Dispatcher struct {
	sink          Sink
	log           *slog.Logger
	queue         chan Impression
	batchSize     int
	flushInterval time.Duration
	sendTimeout   time.Duration

	// mu guards closed and the enqueue-vs-close window: Close may only
	// close the queue once no Dispatch holds the read lock.
	mu     sync.RWMutex
	closed bool

	dropped atomic.Uint64
	wg      sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithBufferSize sets the queue capacity. Impressions beyond it are dropped.
func WithBufferSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Impression, n)
		}
	}
}

// WithBatchSize sets how many impressions are delivered per sink call.
func WithBatchSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// WithFlushInterval sets how long a partial batch may wait before delivery.
func WithFlushInterval(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.flushInterval = interval
		}
	}
}

// NewDispatcher creates a dispatcher and starts its worker. A nil logger
// discards diagnostics.
func NewDispatcher(sink Sink, log *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	d := &Dispatcher{
		sink:          sink,
		log:           log,
		queue:         make(chan Impression, defaultBufferSize),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		sendTimeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.wg.Add(1)
	go d.worker()
	return d
}

// Dispatch enqueues an impression without blocking. A zero ID and CreatedAt
// are filled in. Returns ErrDispatcherClosed after Close; a full buffer
// drops the impression silently apart from a logged counter.
func (d *Dispatcher) Dispatch(imp Impression) error {
	if imp.ID == uuid.Nil {
		imp.ID = uuid.New()
	}
	if imp.CreatedAt.IsZero() {
		imp.CreatedAt = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	// Non-blocking send under the read lock, so Close cannot close the
	// queue between the flag check and the enqueue.
	select {
	case d.queue <- imp:
		return nil
	default:
		n := d.dropped.Add(1)
		d.log.Warn("impression buffer full, dropping event",
			"event", imp.EventName, "dropped_total", n)
		return nil
	}
}

// Dropped returns the number of impressions discarded due to a full buffer.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close stops accepting impressions, flushes the queue and waits for the
// worker to finish or the context to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	batch := make([]Impression, 0, d.batchSize)
	ticker := time.NewTicker(d.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
		if err := d.sink.Send(ctx, batch); err != nil {
			d.log.Error("impression batch delivery failed", "error", err, "batch_size", len(batch))
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case imp, ok := <-d.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, imp)
			if len(batch) >= d.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
