package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lumetric/lumetric-go/pkg/flags"
)

// Transport is the capability interface consumed by the SDK core. The
// default implementation talks HTTP to the Lumetric API; tests substitute
// a double.
type Transport interface {
	// FetchFlagDefinitions retrieves the full flag ruleset for local
	// evaluation.
	FetchFlagDefinitions(ctx context.Context) (*flags.DefinitionsPayload, error)

	// SendBatch delivers one batch of captured events.
	SendBatch(ctx context.Context, batch []any) error

	// EvaluateRemote evaluates flags server-side for one subject.
	EvaluateRemote(ctx context.Context, req RemoteEvalRequest) (*RemoteEvaluation, error)
}

// RemoteEvalRequest is the subject payload posted to the remote evaluation
// endpoint.
type RemoteEvalRequest struct {
	APIKey           string                    `json:"api_key"`
	DistinctID       string                    `json:"distinct_id"`
	PersonProperties map[string]any            `json:"person_properties,omitempty"`
	Groups           map[string]string         `json:"groups,omitempty"`
	GroupProperties  map[string]map[string]any `json:"group_properties,omitempty"`
}

// RemoteFlag is one flag outcome in a remote evaluation response.
type RemoteFlag struct {
	Enabled bool   `json:"enabled"`
	Variant string `json:"variant,omitempty"`
}

// RemoteEvaluation is the body of a successful remote evaluation call,
// keyed by flag name.
type RemoteEvaluation struct {
	Flags map[string]RemoteFlag `json:"flags"`
}

// batchRequest is the wire shape of an event batch delivery.
type batchRequest struct {
	APIKey string `json:"api_key"`
	Batch  []any  `json:"batch"`
}

// Option is a functional option for configuring the HTTP transport.
type Option func(*HTTPTransport)

// WithPersonalAPIKey sets the elevated credential used for definitions
// fetches.
func WithPersonalAPIKey(key string) Option {
	return func(t *HTTPTransport) {
		t.personalAPIKey = key
	}
}

// WithHTTPClient sets a custom HTTP client, for proxies or testing.
func WithHTTPClient(client *http.Client) Option {
	return func(t *HTTPTransport) {
		if client != nil {
			t.client = client
		}
	}
}

// HTTPTransport is the default Transport implementation.
type HTTPTransport struct {
	endpoint       string
	apiKey         string
	personalAPIKey string
	client         *http.Client
}

// NewHTTPTransport creates a transport against the given API endpoint.
// Connection pooling is tuned for a long-lived SDK client reusing a handful
// of hosts.
func NewHTTPTransport(endpoint, apiKey string, opts ...Option) (*HTTPTransport, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	t := &HTTPTransport{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// FetchFlagDefinitions implements Transport.
func (t *HTTPTransport) FetchFlagDefinitions(ctx context.Context) (*flags.DefinitionsPayload, error) {
	if t.personalAPIKey == "" {
		return nil, ErrMissingPersonalAPIKey
	}

	reqURL := fmt.Sprintf("%s/api/v1/flags/definitions?token=%s", t.endpoint, url.QueryEscape(t.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create definitions request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.personalAPIKey)

	var payload flags.DefinitionsPayload
	if err := t.do(req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SendBatch implements Transport.
func (t *HTTPTransport) SendBatch(ctx context.Context, batch []any) error {
	req, err := t.newJSONRequest(ctx, "/api/v1/batch", batchRequest{
		APIKey: t.apiKey,
		Batch:  batch,
	})
	if err != nil {
		return err
	}
	return t.do(req, nil)
}

// EvaluateRemote implements Transport.
func (t *HTTPTransport) EvaluateRemote(ctx context.Context, evalReq RemoteEvalRequest) (*RemoteEvaluation, error) {
	evalReq.APIKey = t.apiKey
	req, err := t.newJSONRequest(ctx, "/api/v1/evaluate", evalReq)
	if err != nil {
		return nil, err
	}

	var result RemoteEvaluation
	if err := t.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (t *HTTPTransport) newJSONRequest(ctx context.Context, path string, body any) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do executes the request, maps non-2xx responses to *APIError, and decodes
// a successful body into out when out is non-nil.
func (t *HTTPTransport) do(req *http.Request, out any) error {
	req.Header.Set("User-Agent", "lumetric-go/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// 64KB cap prevents a misbehaving endpoint from exhausting memory.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: sanitizeBody(body)}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response body: %w", err)
		}
	}
	return nil
}

// sanitizeBody flattens and truncates a response body so it is safe to embed
// in error text and logs.
func sanitizeBody(body []byte) string {
	s := strings.ReplaceAll(string(body), "\n", " ")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
