package flags

import (
	"errors"
	"fmt"
)

// Predefined errors for the flags package.
var (
	// ErrFlagNotFound indicates that the requested feature flag is not present
	// in the current definition snapshot.
	ErrFlagNotFound = errors.New("feature flag not found")

	// ErrMissingDistinctID indicates that evaluation was attempted without a
	// subject identity.
	ErrMissingDistinctID = errors.New("distinct id is required for flag evaluation")
)

// EvalError reports a failure while evaluating a single flag definition.
// It is scoped to one flag so that an error in one definition never aborts
// evaluation of the others in a batch call.
type EvalError struct {
	FlagKey string
	Reason  string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluating flag %q: %s", e.FlagKey, e.Reason)
}
