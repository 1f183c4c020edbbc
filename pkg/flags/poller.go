package flags

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Fetcher retrieves the full flag definition payload from the control plane.
// Implementations must honor the context deadline.
type Fetcher interface {
	FetchFlagDefinitions(ctx context.Context) (*DefinitionsPayload, error)
}

// statusCoder is implemented by transport errors that carry an HTTP status.
// Declared locally so the poller can classify fetch failures without
// depending on the transport package.
type statusCoder interface {
	HTTPStatus() int
}

// PollerOption is a functional option for configuring a poller.
type PollerOption func(*pollerOptions)

type pollerOptions struct {
	interval       time.Duration
	requestTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// WithPollInterval sets how often definitions are refreshed.
func WithPollInterval(d time.Duration) PollerOption {
	return func(o *pollerOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithRequestTimeout bounds a single definitions fetch.
func WithRequestTimeout(d time.Duration) PollerOption {
	return func(o *pollerOptions) {
		if d > 0 {
			o.requestTimeout = d
		}
	}
}

// WithPollerLogger sets the logger for the poller.
func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(o *pollerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source, used by tests to pin snapshot stamps.
func WithClock(now func() time.Time) PollerOption {
	return func(o *pollerOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// Poller periodically refreshes a Store from an external fetcher. A poller
// constructed with NewDisabledPoller never fetches and leaves the store
// permanently empty; flag checks then fall back to remote evaluation.
type Poller struct {
	store   *Store
	fetcher Fetcher
	enabled bool

	interval       time.Duration
	requestTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time

	force chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup

	startOnce sync.Once
	closeOnce sync.Once
}

// NewPoller creates an enabled poller that refreshes store from fetcher.
// Call Start to trigger the initial fetch and begin the refresh loop.
func NewPoller(store *Store, fetcher Fetcher, opts ...PollerOption) *Poller {
	options := &pollerOptions{
		interval:       30 * time.Second,
		requestTimeout: 10 * time.Second,
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Poller{
		store:          store,
		fetcher:        fetcher,
		enabled:        true,
		interval:       options.interval,
		requestTimeout: options.requestTimeout,
		logger:         options.logger,
		now:            options.now,
		force:          make(chan struct{}, 1),
		done:           make(chan struct{}),
	}
}

// NewDisabledPoller creates a poller that stays permanently idle. It exists
// so callers can hold a single poller handle whether or not local evaluation
// is configured.
func NewDisabledPoller(store *Store, opts ...PollerOption) *Poller {
	p := NewPoller(store, nil, opts...)
	p.enabled = false
	return p
}

// Enabled reports whether local evaluation is configured for this poller.
func (p *Poller) Enabled() bool {
	return p.enabled
}

// Start triggers an immediate fetch and begins the background refresh loop.
// Starting a disabled poller logs and does nothing. Start is idempotent.
func (p *Poller) Start() {
	p.startOnce.Do(func() {
		if !p.enabled {
			p.logger.Info("local feature flag evaluation is disabled, definitions will not be polled")
			return
		}
		p.wg.Add(1)
		go p.run()
	})
}

// ForceRefresh asks the poller to fetch definitions soon. Requests are
// coalesced: if a fetch is already pending, the call is a no-op rather than
// stacking duplicate fetches.
func (p *Poller) ForceRefresh() {
	if !p.enabled {
		return
	}
	select {
	case p.force <- struct{}{}:
	default:
	}
}

// CanEvaluateLocally reports whether the given flag can be decided from the
// cached definitions: local evaluation must be enabled and the current
// snapshot must contain the key.
func (p *Poller) CanEvaluateLocally(key string) bool {
	if !p.enabled {
		return false
	}
	_, ok := p.store.Flag(key)
	return ok
}

// Close stops the refresh loop and waits for an in-flight fetch to finish.
// Close is idempotent.
func (p *Poller) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

func (p *Poller) run() {
	defer p.wg.Done()

	p.poll()

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			p.poll()
			timer.Reset(p.interval)
		case <-p.force:
			// Superseded timer ticks are drained so a forced refresh does
			// not trigger a duplicate poll right after.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			p.poll()
			timer.Reset(p.interval)
		case <-p.done:
			return
		}
	}
}

// poll performs one bounded fetch. Every failure path leaves the previously
// committed snapshot untouched; the loop simply retries on the next tick.
func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), p.requestTimeout)
	defer cancel()

	payload, err := p.fetcher.FetchFlagDefinitions(ctx)
	if err != nil {
		var sc statusCoder
		switch {
		case errors.As(err, &sc) && sc.HTTPStatus() == http.StatusUnauthorized:
			p.logger.Error("flag definitions fetch rejected: personal API key is not authorized", "error", err)
		case errors.As(err, &sc) && sc.HTTPStatus() == http.StatusPaymentRequired:
			p.logger.Error("flag definitions fetch rejected: feature flag quota exceeded", "error", err)
		default:
			p.logger.Warn("flag definitions fetch failed, keeping previous snapshot", "error", err)
		}
		return
	}

	p.store.Replace(payload, p.now())
	p.logger.Debug("flag definitions refreshed", "flags", len(payload.Flags))
}
