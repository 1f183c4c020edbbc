package sender_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumetric/lumetric-go/pkg/sender"
)

// captureTransport records every delivered batch.
type captureTransport struct {
	mu      sync.Mutex
	batches [][]any
	err     error
}

func (c *captureTransport) send(_ context.Context, batch []any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, batch)
	return c.err
}

func (c *captureTransport) batchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func (c *captureTransport) batch(i int) []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches[i]
}

func TestWorkerBatching(t *testing.T) {
	t.Parallel()

	t.Run("SizeThresholdFlushesExactBatchInOrder", func(t *testing.T) {
		t.Parallel()
		transport := &captureTransport{}
		pool, err := sender.NewPool(transport.send,
			sender.WithPoolSize(1),
			sender.WithMaxBatchEvents(2),
			sender.WithMaxBatchTime(time.Hour),
		)
		require.NoError(t, err)
		defer pool.Close(context.Background())

		require.NoError(t, pool.Enqueue("foo"))
		require.NoError(t, pool.Enqueue("bar"))

		require.Eventually(t, func() bool {
			return transport.batchCount() == 1
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, []any{"foo", "bar"}, transport.batch(0))

		// Reaching the threshold triggered exactly one flush, not one per
		// event.
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, 1, transport.batchCount())
	})

	t.Run("TimeThresholdFlushesPartialBatch", func(t *testing.T) {
		t.Parallel()
		transport := &captureTransport{}
		pool, err := sender.NewPool(transport.send,
			sender.WithPoolSize(1),
			sender.WithMaxBatchEvents(100),
			sender.WithMaxBatchTime(20*time.Millisecond),
		)
		require.NoError(t, err)
		defer pool.Close(context.Background())

		require.NoError(t, pool.Enqueue("only"))

		require.Eventually(t, func() bool {
			return transport.batchCount() == 1
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, []any{"only"}, transport.batch(0))
	})

	t.Run("ShutdownDrainsBuffer", func(t *testing.T) {
		t.Parallel()
		transport := &captureTransport{}
		pool, err := sender.NewPool(transport.send,
			sender.WithPoolSize(1),
			sender.WithMaxBatchEvents(100),
			sender.WithMaxBatchTime(time.Hour),
		)
		require.NoError(t, err)

		require.NoError(t, pool.Enqueue("a"))
		require.NoError(t, pool.Enqueue("b"))
		require.NoError(t, pool.Enqueue("c"))

		require.NoError(t, pool.Close(context.Background()))

		// All buffered events left in exactly one final flush, in order.
		require.Equal(t, 1, transport.batchCount())
		assert.Equal(t, []any{"a", "b", "c"}, transport.batch(0))
	})

	t.Run("CloseDeliversEveryAcceptedEvent", func(t *testing.T) {
		t.Parallel()
		transport := &captureTransport{}
		pool, err := sender.NewPool(transport.send,
			sender.WithPoolSize(1),
			sender.WithMaxBatchEvents(1000),
			sender.WithMaxBatchTime(time.Hour),
		)
		require.NoError(t, err)

		// Enqueue races Close; every event accepted with a nil error must
		// still be delivered by the shutdown drain.
		var accepted int
		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			for i := 0; ; i++ {
				if pool.Enqueue(i) != nil {
					return
				}
				accepted++
			}
		}()

		time.Sleep(10 * time.Millisecond)
		require.NoError(t, pool.Close(context.Background()))
		<-stopped

		var delivered int
		for i := 0; i < transport.batchCount(); i++ {
			delivered += len(transport.batch(i))
		}
		assert.Equal(t, accepted, delivered)
	})

	t.Run("FailedFlushDoesNotStopWorker", func(t *testing.T) {
		t.Parallel()
		transport := &captureTransport{err: assert.AnError}
		pool, err := sender.NewPool(transport.send,
			sender.WithPoolSize(1),
			sender.WithMaxBatchEvents(1),
			sender.WithMaxBatchTime(time.Hour),
		)
		require.NoError(t, err)
		defer pool.Close(context.Background())

		require.NoError(t, pool.Enqueue("first"))
		require.Eventually(t, func() bool {
			return transport.batchCount() == 1
		}, time.Second, 5*time.Millisecond)

		// The worker survives the failure and keeps delivering.
		require.NoError(t, pool.Enqueue("second"))
		require.Eventually(t, func() bool {
			return transport.batchCount() == 2
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, []any{"second"}, transport.batch(1))
	})
}
