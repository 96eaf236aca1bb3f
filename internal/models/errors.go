package models

import "fmt"

// ValidationError rejects an action before any store call is made. It is
// surfaced inline to the customer and never reaches the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a validation rejection for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// PartialBatchError reports a batch operation where some items failed while
// the rest were applied. Applied items are not rolled back and failed items
// are not retried.
type PartialBatchError struct {
	Op       string
	Failures map[string]error
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("%s: %d item(s) failed", e.Op, len(e.Failures))
}
