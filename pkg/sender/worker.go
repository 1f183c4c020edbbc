package sender

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// BatchFunc delivers one batch of events to the outbound transport. The pool
// treats a nil error as successful delivery of the whole batch.
type BatchFunc func(ctx context.Context, batch []any) error

// flushRequest asks a worker to flush its buffer now. A nil result channel
// makes the request fire-and-forget.
type flushRequest struct {
	result chan error
}

// worker is a single buffering unit. Its buffer is owned exclusively by the
// run goroutine; the only shared state is the availability entry it publishes
// in the pool registry.
type worker struct {
	id    uuid.UUID
	index int
	reg   *registry
	send  BatchFunc

	input    chan any
	flushReq chan flushRequest
	done     chan struct{}

	// closeMu orders enqueue against close: close waits for in-flight
	// enqueues, so every accepted event is in input before the run loop is
	// told to drain.
	closeMu sync.RWMutex
	closed  bool

	maxBatchEvents int
	maxBatchTime   time.Duration
	sendTimeout    time.Duration
	logger         *slog.Logger

	buf []any
}

func newWorker(index int, reg *registry, send BatchFunc, o *poolOptions) *worker {
	return &worker{
		id:             uuid.New(),
		index:          index,
		reg:            reg,
		send:           send,
		input:          make(chan any, 2*o.maxBatchEvents),
		flushReq:       make(chan flushRequest, 1),
		done:           make(chan struct{}),
		maxBatchEvents: o.maxBatchEvents,
		maxBatchTime:   o.maxBatchTime,
		sendTimeout:    o.sendTimeout,
		logger:         o.logger,
		buf:            make([]any, 0, o.maxBatchEvents),
	}
}

// enqueue hands one event to the worker. It blocks while the worker's input
// queue is full and fails once the worker is shutting down. An accepted
// event is guaranteed to be covered by the shutdown drain.
func (w *worker) enqueue(ev any) error {
	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	if w.closed {
		return ErrPoolClosed
	}
	w.input <- ev
	return nil
}

// requestFlush signals a flush without waiting for it. If a flush request is
// already pending the signal is dropped; the pending flush covers it.
func (w *worker) requestFlush() {
	select {
	case w.flushReq <- flushRequest{}:
	case <-w.done:
	default:
	}
}

// flushBlocking requests a flush and waits for its outcome or the caller's
// deadline, whichever comes first.
func (w *worker) flushBlocking(ctx context.Context) error {
	result := make(chan error, 1)
	select {
	case w.flushReq <- flushRequest{result: result}:
	case <-ctx.Done():
		return ErrFlushTimeout
	case <-w.done:
		return ErrPoolClosed
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ErrFlushTimeout
	case <-w.done:
		// The run loop may exit without answering a request that was still
		// queued; without this case a caller with no deadline would hang.
		return ErrPoolClosed
	}
}

func (w *worker) close() {
	w.closeMu.Lock()
	w.closed = true
	w.closeMu.Unlock()
	close(w.done)
}

// run is the worker's sequential processing loop. The batch timer is armed
// when the first event lands in an empty buffer, so an idle worker carries no
// ticking timer at all.
func (w *worker) run() {
	timer := time.NewTimer(w.maxBatchTime)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false

	disarm := func() {
		if armed && !timer.Stop() {
			// Drain the stale tick so it cannot trigger a duplicate flush.
			select {
			case <-timer.C:
			default:
			}
		}
		armed = false
	}

	for {
		select {
		case ev := <-w.input:
			w.buf = append(w.buf, ev)
			if len(w.buf) == 1 {
				timer.Reset(w.maxBatchTime)
				armed = true
			}
			if len(w.buf) >= w.maxBatchEvents {
				disarm()
				w.flush()
			}

		case <-timer.C:
			armed = false
			w.flush()

		case req := <-w.flushReq:
			disarm()
			err := w.flush()
			if req.result != nil {
				req.result <- err
			}

		case <-w.done:
			disarm()
			w.drain()
			w.flush()
			return
		}
	}
}

// drain moves every event still queued on the input channel into the buffer
// so the final flush delivers them.
func (w *worker) drain() {
	for {
		select {
		case ev := <-w.input:
			w.buf = append(w.buf, ev)
		default:
			return
		}
	}
}

// flush delivers the buffered batch. The worker publishes itself busy for
// the duration of the transport call and available again afterwards, so
// dispatch only routes new work here mid-flush when no idle worker exists.
// The buffer is cleared whether or not delivery succeeded: a failed batch is
// reported, not retried.
func (w *worker) flush() error {
	if len(w.buf) == 0 {
		return nil
	}

	w.reg.set(w.index, Busy)

	batch := w.buf
	ctx, cancel := context.WithTimeout(context.Background(), w.sendTimeout)
	err := w.send(ctx, batch)
	cancel()

	w.buf = make([]any, 0, w.maxBatchEvents)
	w.reg.set(w.index, Available)

	if err != nil {
		w.logger.Error("batch delivery failed",
			slog.String("worker_id", w.id.String()),
			slog.Int("events", len(batch)),
			slog.Any("error", err))
		return err
	}

	w.logger.Debug("batch delivered",
		slog.String("worker_id", w.id.String()),
		slog.Int("events", len(batch)))
	return nil
}
