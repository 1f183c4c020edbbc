package lumetric

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lumetric/lumetric-go/pkg/transport"
)

// Option is a functional option for configuring the client.
type Option func(*clientOptions)

type clientOptions struct {
	logger     *slog.Logger
	transport  transport.Transport
	httpClient *http.Client
	now        func() time.Time
}

// WithLogger sets the logger used by the client and its background workers.
// Host applications typically pass their own *slog.Logger here.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTransport replaces the HTTP transport entirely, for tests or custom
// wire protocols.
func WithTransport(t transport.Transport) Option {
	return func(o *clientOptions) {
		if t != nil {
			o.transport = t
		}
	}
}

// WithHTTPClient sets the HTTP client used by the default transport. Ignored
// when WithTransport is also given.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithClock overrides the time source used for event timestamps, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) {
		if now != nil {
			o.now = now
		}
	}
}
