package types

import (
	"errors"
	"fmt"
)

// Error is a categorized failure from the update or installation subsystems.
// The category drives exit-code mapping and retry policy; message formatting
// stays in the CLI layer.
type Error struct {
	Category Category
	Phase    Phase  // Transaction phase at failure time, if applicable
	State    string // What state the runtime directory is in, user-facing
	Err      error
}

// Error returns the underlying error message.
func (e *Error) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("%s failure during %s: %v", e.Category, e.Phase, e.Err)
	}
	return fmt.Sprintf("%s failure: %v", e.Category, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a categorized error wrapping err.
func NewError(category Category, err error) *Error {
	return &Error{Category: category, Err: err}
}

// NewPhaseError creates a categorized error tagged with the transaction
// phase that failed and the resulting runtime directory state.
func NewPhaseError(category Category, phase Phase, state string, err error) *Error {
	return &Error{Category: category, Phase: phase, State: state, Err: err}
}

// CategoryOf extracts the failure category from an error chain.
// Returns an empty Category if the chain carries no typed error.
func CategoryOf(err error) Category {
	var te *Error
	if errors.As(err, &te) {
		return te.Category
	}
	return ""
}
