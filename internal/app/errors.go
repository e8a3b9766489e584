package app

import "fmt"

// Procedure failures fall into four classes. Validation stops a procedure
// before any external call; store and not-found failures come from the
// relational store; model failures come from the LLM service. The message is
// passed through to the caller, no partial data is.

// ValidationError reports malformed procedure input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// StoreError reports an insert, update, or query rejected by the store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// NotFoundError reports an operation targeting a nonexistent row.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ModelError reports a failed LLM call.
type ModelError struct {
	Err error
}

func (e *ModelError) Error() string { return fmt.Sprintf("model: %v", e.Err) }

func (e *ModelError) Unwrap() error { return e.Err }

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
