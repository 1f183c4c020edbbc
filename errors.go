package lumetric

import "errors"

// Predefined errors for the lumetric package.
var (
	// ErrMissingAPIKey indicates the client was constructed without a
	// project API key.
	ErrMissingAPIKey = errors.New("api key is required")

	// ErrMissingDistinctID indicates a capture or flag check without a
	// subject identity. It is never silently defaulted.
	ErrMissingDistinctID = errors.New("distinct id is required")

	// ErrMissingEventName indicates a capture without an event name.
	ErrMissingEventName = errors.New("event name is required")

	// ErrClientClosed indicates an operation on a closed client.
	ErrClientClosed = errors.New("client is closed")

	// ErrLocalEvaluationUnavailable indicates a flag check that required
	// local evaluation when it is disabled or the definitions have not been
	// fetched yet.
	ErrLocalEvaluationUnavailable = errors.New("local flag evaluation unavailable")
)
