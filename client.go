package lumetric

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/lumetric/lumetric-go/pkg/flags"
	"github.com/lumetric/lumetric-go/pkg/logger"
	"github.com/lumetric/lumetric-go/pkg/sender"
	"github.com/lumetric/lumetric-go/pkg/transport"
)

// Version is the SDK version reported on every captured event.
const Version = "1.0.0"

const libraryName = "lumetric-go"

// flagCalledTTL bounds how long a (distinct id, flag, value) triple
// suppresses repeated $feature_flag_called events.
const flagCalledTTL = 10 * time.Minute

// Client is the Lumetric SDK entry point. It is safe for concurrent use;
// construct one per process and share it.
type Client struct {
	cfg       Config
	logger    *slog.Logger
	transport transport.Transport
	pool      *sender.Pool
	store     *flags.Store
	poller    *flags.Poller
	props     *PropertyStore
	flagCalls *gocache.Cache
	now       func() time.Time
	closed    atomic.Bool
}

// New creates a client. Local flag evaluation starts only when it is enabled
// in the config and a personal API key is present; otherwise flag checks go
// through remote evaluation and the rest of the client works normally.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &clientOptions{
		logger: logger.New(logger.WithComponent(libraryName)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(options)
	}

	api := options.transport
	if api == nil {
		transportOpts := []transport.Option{
			transport.WithPersonalAPIKey(cfg.PersonalAPIKey),
		}
		if options.httpClient != nil {
			transportOpts = append(transportOpts, transport.WithHTTPClient(options.httpClient))
		}
		httpTransport, err := transport.NewHTTPTransport(cfg.Endpoint, cfg.APIKey, transportOpts...)
		if err != nil {
			return nil, err
		}
		api = httpTransport
	}

	pool, err := sender.NewPool(api.SendBatch,
		sender.WithPoolSize(cfg.SenderPoolSize),
		sender.WithMaxBatchEvents(cfg.MaxBatchEvents),
		sender.WithMaxBatchTime(cfg.MaxBatchTime),
		sender.WithPoolLogger(options.logger),
	)
	if err != nil {
		return nil, err
	}

	store := flags.NewStore()
	pollerOpts := []flags.PollerOption{
		flags.WithPollInterval(cfg.FlagsPollInterval),
		flags.WithRequestTimeout(cfg.FlagsRequestTimeout),
		flags.WithPollerLogger(options.logger),
	}

	var poller *flags.Poller
	switch {
	case cfg.EnableLocalEvaluation && cfg.PersonalAPIKey != "":
		poller = flags.NewPoller(store, api, pollerOpts...)
	case cfg.EnableLocalEvaluation:
		// Config error scoped to this feature only: the client still works,
		// flag checks just always go remote.
		options.logger.Warn("local flag evaluation requested but no personal API key configured, disabling")
		poller = flags.NewDisabledPoller(store, pollerOpts...)
	default:
		poller = flags.NewDisabledPoller(store, pollerOpts...)
	}
	poller.Start()

	return &Client{
		cfg:       cfg,
		logger:    options.logger,
		transport: api,
		pool:      pool,
		store:     store,
		poller:    poller,
		props:     NewPropertyStore(),
		flagCalls: gocache.New(flagCalledTTL, 2*flagCalledTTL),
		now:       options.now,
	}, nil
}

// Capture queues one event for background delivery. The envelope is
// completed here: uuid and timestamp when absent, plus properties merged
// from three layers in increasing precedence: the client's registered
// ambient properties (the all scope overlaid by the event-name scope), the
// call-scoped properties carried by ctx, and the event's own properties.
func (c *Client) Capture(ctx context.Context, ev Event) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if ev.DistinctID == "" {
		return ErrMissingDistinctID
	}
	if ev.Name == "" {
		return ErrMissingEventName
	}

	if ev.UUID == "" {
		ev.UUID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = c.now()
	}

	merged := c.props.Resolve(ev.Name)
	for k, v := range PropertiesFromContext(ctx) {
		merged[k] = v
	}
	for k, v := range ev.Properties {
		merged[k] = v
	}
	merged["$lib"] = libraryName
	merged["$lib_version"] = Version
	ev.Properties = merged

	return c.pool.Enqueue(ev)
}

// CaptureException forwards an error report as an $exception event.
func (c *Client) CaptureException(ctx context.Context, distinctID string, err error, props map[string]any) error {
	if err == nil {
		return nil
	}

	merged := make(map[string]any, len(props)+2)
	for k, v := range props {
		merged[k] = v
	}
	merged["$exception_type"] = fmt.Sprintf("%T", err)
	merged["$exception_message"] = err.Error()

	return c.Capture(ctx, Event{
		DistinctID: distinctID,
		Name:       "$exception",
		Properties: merged,
	})
}

// RegisterProperties adds ambient properties under a scope. Use ScopeAll to
// attach them to every event, or an event name to attach them only to
// captures of that event.
func (c *Client) RegisterProperties(scope string, props map[string]any) {
	c.props.Register(scope, props)
}

// ReloadFeatureFlags asks the definition poller to refresh soon. Requests
// are coalesced with any poll already pending.
func (c *Client) ReloadFeatureFlags() {
	c.poller.ForceRefresh()
}

// Flush signals every sender worker to flush and returns immediately.
func (c *Client) Flush() {
	c.pool.Flush()
}

// FlushBlocking flushes every sender worker and waits for the outcome or the
// context deadline. The report lists per-worker failures; a partial failure
// is a report, not an error.
func (c *Client) FlushBlocking(ctx context.Context) sender.FlushReport {
	return c.pool.FlushBlocking(ctx)
}

// Close stops the poller, drains and delivers every buffered event, and
// releases the client. The context bounds the drain.
func (c *Client) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.poller.Close()
	return c.pool.Close(ctx)
}
