package sender

import "errors"

// Predefined errors for the sender package.
var (
	// ErrPoolClosed is returned when enqueueing into a pool that has been
	// closed.
	ErrPoolClosed = errors.New("sender pool is closed")

	// ErrNilBatchFunc is returned when a pool is constructed without a
	// transport function.
	ErrNilBatchFunc = errors.New("batch function cannot be nil")

	// ErrFlushTimeout records a worker that did not acknowledge a blocking
	// flush before the caller's deadline.
	ErrFlushTimeout = errors.New("worker flush timed out")
)
