package sender

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// PoolOption is a functional option for configuring a pool.
type PoolOption func(*poolOptions)

type poolOptions struct {
	size           int
	maxBatchEvents int
	maxBatchTime   time.Duration
	sendTimeout    time.Duration
	logger         *slog.Logger
}

// WithPoolSize sets the number of concurrent sender workers.
func WithPoolSize(n int) PoolOption {
	return func(o *poolOptions) {
		if n > 0 {
			o.size = n
		}
	}
}

// WithMaxBatchEvents sets the buffer size that triggers an immediate flush.
func WithMaxBatchEvents(n int) PoolOption {
	return func(o *poolOptions) {
		if n > 0 {
			o.maxBatchEvents = n
		}
	}
}

// WithMaxBatchTime sets how long a partial batch may wait before flushing.
func WithMaxBatchTime(d time.Duration) PoolOption {
	return func(o *poolOptions) {
		if d > 0 {
			o.maxBatchTime = d
		}
	}
}

// WithSendTimeout bounds a single transport call.
func WithSendTimeout(d time.Duration) PoolOption {
	return func(o *poolOptions) {
		if d > 0 {
			o.sendTimeout = d
		}
	}
}

// WithPoolLogger sets the logger shared by the pool and its workers.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(o *poolOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WorkerFlushError is one worker's failure in a blocking pool-wide flush.
// TimedOut distinguishes a worker that never answered before the deadline
// from one whose transport call failed.
type WorkerFlushError struct {
	WorkerIndex int
	WorkerID    uuid.UUID
	Err         error
	TimedOut    bool
}

// FlushReport aggregates the outcome of a blocking pool-wide flush. A mixed
// outcome is a report, not a crash: successful workers stay flushed even when
// others fail.
type FlushReport struct {
	Failures []WorkerFlushError
}

// OK reports whether every worker flushed successfully.
func (r FlushReport) OK() bool {
	return len(r.Failures) == 0
}

// Pool routes outbound events across a fixed set of buffering workers.
type Pool struct {
	workers []*worker
	reg     *registry
	rr      atomic.Uint32
	closed  atomic.Bool

	wg        sync.WaitGroup
	closeOnce sync.Once
	logger    *slog.Logger
}

// NewPool creates and starts a worker pool delivering batches through send.
func NewPool(send BatchFunc, opts ...PoolOption) (*Pool, error) {
	if send == nil {
		return nil, ErrNilBatchFunc
	}

	options := &poolOptions{
		size:           4,
		maxBatchEvents: 100,
		maxBatchTime:   5 * time.Second,
		sendTimeout:    10 * time.Second,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	reg := newRegistry(options.size)
	p := &Pool{
		workers: make([]*worker, options.size),
		reg:     reg,
		logger:  options.logger,
	}

	for i := range p.workers {
		w := newWorker(i, reg, send, options)
		p.workers[i] = w
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.run()
		}()
	}

	p.logger.Debug("sender pool started",
		slog.Int("workers", options.size),
		slog.Int("max_batch_events", options.maxBatchEvents),
		slog.Duration("max_batch_time", options.maxBatchTime))

	return p, nil
}

// Enqueue routes one event to a worker. An available worker is preferred;
// when every worker is busy the event queues behind one of them rather than
// being dropped.
func (p *Pool) Enqueue(ev any) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	idx, ok := p.reg.firstAvailable()
	if !ok {
		idx = int(p.rr.Add(1)) % len(p.workers)
	}
	return p.workers[idx].enqueue(ev)
}

// Flush signals every worker to flush on its own schedule and returns
// immediately.
func (p *Pool) Flush() {
	for _, w := range p.workers {
		w.requestFlush()
	}
}

// FlushBlocking flushes every worker in parallel and waits until all have
// responded or the context deadline passes. Workers that miss the deadline
// are recorded as timed out; the call itself always returns promptly after
// the deadline.
func (p *Pool) FlushBlocking(ctx context.Context) FlushReport {
	var (
		mu       sync.Mutex
		failures []WorkerFlushError
	)

	g := new(errgroup.Group)
	for _, w := range p.workers {
		w := w
		g.Go(func() error {
			if err := w.flushBlocking(ctx); err != nil {
				mu.Lock()
				failures = append(failures, WorkerFlushError{
					WorkerIndex: w.index,
					WorkerID:    w.id,
					Err:         err,
					TimedOut:    err == ErrFlushTimeout,
				})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(failures, func(i, j int) bool {
		return failures[i].WorkerIndex < failures[j].WorkerIndex
	})
	return FlushReport{Failures: failures}
}

// Close stops accepting new events, drains every worker's buffer through a
// final synchronous flush, and waits for the workers to exit. The context
// bounds the wait; on expiry some buffered events may be lost.
func (p *Pool) Close(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		for _, w := range p.workers {
			w.close()
		}

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			p.logger.Debug("sender pool stopped")
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	return err
}
