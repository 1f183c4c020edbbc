// Package transport implements the outbound HTTP surface of the Lumetric
// SDK: fetching flag definitions from the control plane, delivering event
// batches, and remote flag evaluation for callers without local definitions.
//
// The core subsystems consume the Transport interface rather than the HTTP
// implementation, so tests inject doubles and never open sockets:
//
//	api := transport.NewHTTPTransport("https://app.lumetric.io", apiKey,
//		transport.WithPersonalAPIKey(personalKey),
//	)
//	payload, err := api.FetchFlagDefinitions(ctx)
//
// Non-2xx responses surface as *APIError carrying the HTTP status and a
// truncated response body, which lets callers distinguish auth failures from
// quota limits and transient server errors without parsing error strings.
package transport
