// Package sender implements the concurrent event delivery pool of the
// Lumetric SDK.
//
// A Pool owns a fixed number of workers. Each worker buffers events in its
// own goroutine and flushes them to an injected transport function when the
// buffer reaches the batch size limit or a batch timer expires, whichever
// comes first. Workers publish their busy/available state into a shared
// registry so dispatch can route new events to an idle worker; when every
// worker is mid-flush the event is queued behind a busy one rather than
// dropped.
//
//	pool, err := sender.NewPool(transport.SendBatch,
//		sender.WithPoolSize(4),
//		sender.WithMaxBatchEvents(100),
//		sender.WithMaxBatchTime(5*time.Second),
//	)
//	...
//	pool.Enqueue(event)
//
// Flush comes in two shapes: Flush signals every worker to flush on its own
// schedule and returns immediately; FlushBlocking waits for every worker up
// to the caller's deadline and returns a per-worker report, distinguishing
// transport errors from timeouts. Close drains every buffer before the pool
// stops, so no event accepted before shutdown is silently dropped.
//
// Ordering is guaranteed within one worker's batches only; batches from
// different workers may reach the transport in any order. Events buffered in
// a worker that crashes are lost: delivery is at-most-once.
package sender
