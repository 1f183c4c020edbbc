package lumetric_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lumetric "github.com/lumetric/lumetric-go"
	"github.com/lumetric/lumetric-go/pkg/flags"
	"github.com/lumetric/lumetric-go/pkg/transport"
)

// fakeTransport implements transport.Transport in memory.
type fakeTransport struct {
	mu          sync.Mutex
	batches     [][]any
	definitions *flags.DefinitionsPayload
	remote      *transport.RemoteEvaluation
	remoteCalls int
	remoteErr   error
}

func (f *fakeTransport) FetchFlagDefinitions(_ context.Context) (*flags.DefinitionsPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.definitions == nil {
		return &flags.DefinitionsPayload{}, nil
	}
	return f.definitions, nil
}

func (f *fakeTransport) SendBatch(_ context.Context, batch []any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeTransport) EvaluateRemote(_ context.Context, _ transport.RemoteEvalRequest) (*transport.RemoteEvaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteCalls++
	if f.remoteErr != nil {
		return nil, f.remoteErr
	}
	if f.remote == nil {
		return &transport.RemoteEvaluation{Flags: map[string]transport.RemoteFlag{}}, nil
	}
	return f.remote, nil
}

// events flattens every delivered batch into a single slice.
func (f *fakeTransport) events() []lumetric.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var evs []lumetric.Event
	for _, batch := range f.batches {
		for _, item := range batch {
			if ev, ok := item.(lumetric.Event); ok {
				evs = append(evs, ev)
			}
		}
	}
	return evs
}

func (f *fakeTransport) eventCount() int {
	return len(f.events())
}

// newTestClient builds a client flushing on every event, backed by the fake.
func newTestClient(t *testing.T, cfg lumetric.Config, api *fakeTransport, opts ...lumetric.Option) *lumetric.Client {
	t.Helper()
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	if cfg.MaxBatchEvents == 0 {
		cfg.MaxBatchEvents = 1
	}
	if cfg.SenderPoolSize == 0 {
		cfg.SenderPoolSize = 1
	}

	client, err := lumetric.New(cfg, append([]lumetric.Option{lumetric.WithTransport(api)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })
	return client
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("RequiresAPIKey", func(t *testing.T) {
		t.Parallel()
		_, err := lumetric.New(lumetric.Config{})
		require.ErrorIs(t, err, lumetric.ErrMissingAPIKey)
	})

	t.Run("RejectsInvalidEndpoint", func(t *testing.T) {
		t.Parallel()
		_, err := lumetric.New(lumetric.Config{APIKey: "k", Endpoint: "not a url"})
		require.ErrorIs(t, err, transport.ErrInvalidEndpoint)
	})
}

func TestCapture(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("RequiresDistinctIDAndName", func(t *testing.T) {
		t.Parallel()
		api := &fakeTransport{}
		client := newTestClient(t, lumetric.Config{}, api)

		err := client.Capture(ctx, lumetric.Event{Name: "signed_up"})
		require.ErrorIs(t, err, lumetric.ErrMissingDistinctID)

		err = client.Capture(ctx, lumetric.Event{DistinctID: "user-1"})
		require.ErrorIs(t, err, lumetric.ErrMissingEventName)
	})

	t.Run("CompletesEnvelope", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		api := &fakeTransport{}
		client := newTestClient(t, lumetric.Config{}, api,
			lumetric.WithClock(func() time.Time { return now }),
		)

		require.NoError(t, client.Capture(ctx, lumetric.Event{
			DistinctID: "user-1",
			Name:       "signed_up",
			Properties: map[string]any{"plan": "pro"},
		}))

		require.Eventually(t, func() bool {
			return api.eventCount() == 1
		}, time.Second, 5*time.Millisecond)

		ev := api.events()[0]
		assert.Equal(t, "user-1", ev.DistinctID)
		assert.Equal(t, "signed_up", ev.Name)
		assert.Equal(t, now, ev.Timestamp)
		assert.NotEmpty(t, ev.UUID)
		assert.Equal(t, "pro", ev.Properties["plan"])
		assert.Equal(t, "lumetric-go", ev.Properties["$lib"])
		assert.Equal(t, lumetric.Version, ev.Properties["$lib_version"])
	})

	t.Run("AmbientPropertyPrecedence", func(t *testing.T) {
		t.Parallel()
		api := &fakeTransport{}
		client := newTestClient(t, lumetric.Config{}, api)

		client.RegisterProperties(lumetric.ScopeAll, map[string]any{"a": "all", "b": "all"})
		client.RegisterProperties("signed_up", map[string]any{"b": "scoped", "c": "scoped"})

		callCtx := lumetric.WithProperties(ctx, map[string]any{"c": "call", "d": "call"})
		require.NoError(t, client.Capture(callCtx, lumetric.Event{
			DistinctID: "user-1",
			Name:       "signed_up",
			Properties: map[string]any{"d": "event"},
		}))

		require.Eventually(t, func() bool {
			return api.eventCount() == 1
		}, time.Second, 5*time.Millisecond)

		// Each layer shallowly overrides the one below: all scope, event
		// scope, call scope, event properties.
		props := api.events()[0].Properties
		assert.Equal(t, "all", props["a"])
		assert.Equal(t, "scoped", props["b"])
		assert.Equal(t, "call", props["c"])
		assert.Equal(t, "event", props["d"])
	})

	t.Run("ScopedPropertiesOnlyApplyToTheirEvent", func(t *testing.T) {
		t.Parallel()
		api := &fakeTransport{}
		client := newTestClient(t, lumetric.Config{}, api)

		client.RegisterProperties("signed_up", map[string]any{"flow": "onboarding"})
		require.NoError(t, client.Capture(ctx, lumetric.Event{
			DistinctID: "user-1",
			Name:       "page_viewed",
		}))

		require.Eventually(t, func() bool {
			return api.eventCount() == 1
		}, time.Second, 5*time.Millisecond)
		assert.NotContains(t, api.events()[0].Properties, "flow")
	})

	t.Run("CaptureException", func(t *testing.T) {
		t.Parallel()
		api := &fakeTransport{}
		client := newTestClient(t, lumetric.Config{}, api)

		require.NoError(t, client.CaptureException(ctx, "user-1",
			errors.New("database on fire"), map[string]any{"job": "billing"}),
		)

		require.Eventually(t, func() bool {
			return api.eventCount() == 1
		}, time.Second, 5*time.Millisecond)

		ev := api.events()[0]
		assert.Equal(t, "$exception", ev.Name)
		assert.Equal(t, "database on fire", ev.Properties["$exception_message"])
		assert.Equal(t, "*errors.errorString", ev.Properties["$exception_type"])
		assert.Equal(t, "billing", ev.Properties["job"])
	})

	t.Run("NilErrorIsNoOp", func(t *testing.T) {
		t.Parallel()
		api := &fakeTransport{}
		client := newTestClient(t, lumetric.Config{}, api)

		require.NoError(t, client.CaptureException(ctx, "user-1", nil, nil))
		time.Sleep(20 * time.Millisecond)
		assert.Zero(t, api.eventCount())
	})
}

func TestClientShutdown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("CloseDrainsBufferedEvents", func(t *testing.T) {
		t.Parallel()
		api := &fakeTransport{}
		client := newTestClient(t, lumetric.Config{MaxBatchEvents: 100}, api)

		for n := 0; n < 3; n++ {
			require.NoError(t, client.Capture(ctx, lumetric.Event{
				DistinctID: "user-1",
				Name:       "queued",
			}))
		}
		require.NoError(t, client.Close(ctx))
		assert.Equal(t, 3, api.eventCount())
	})

	t.Run("CaptureAfterCloseFails", func(t *testing.T) {
		t.Parallel()
		api := &fakeTransport{}
		client := newTestClient(t, lumetric.Config{}, api)

		require.NoError(t, client.Close(ctx))
		err := client.Capture(ctx, lumetric.Event{DistinctID: "user-1", Name: "late"})
		require.ErrorIs(t, err, lumetric.ErrClientClosed)
	})

	t.Run("FlushBlockingReportsSuccess", func(t *testing.T) {
		t.Parallel()
		api := &fakeTransport{}
		client := newTestClient(t, lumetric.Config{MaxBatchEvents: 100}, api)

		require.NoError(t, client.Capture(ctx, lumetric.Event{
			DistinctID: "user-1",
			Name:       "pending",
		}))
		time.Sleep(20 * time.Millisecond)

		report := client.FlushBlocking(ctx)
		assert.True(t, report.OK())
		assert.Equal(t, 1, api.eventCount())
	})
}
