package runner

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

var (
	// ErrInvalidPlan is returned by Run when handed a nil plan
	ErrInvalidPlan = errors.New("invalid plan")

	// ErrNoImplementation fails a declaration registered without a body
	ErrNoImplementation = errors.New("declaration has no implementation")

	// ErrEndNotSupported fails a body that calls End outside callback mode
	ErrEndNotSupported = errors.New("End is only supported in callback mode")

	// ErrEndCalledTwice fails a callback-mode body that calls End more than once
	ErrEndCalledTwice = errors.New("End called more than once")

	// ErrUnknownEvent is returned when subscribing to an event the runner does not publish
	ErrUnknownEvent = errors.New("unknown event")
)

// BodyError is the failure detail of a hook or test whose body failed
type BodyError struct {
	Title string
	Type  types.Type
	Err   error
}

func (e *BodyError) Error() string {
	return fmt.Sprintf("%s %q failed: %v", e.Type, e.Title, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *BodyError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised by a body
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// InvariantError reports a programming error: a corrupted plan or an illegal
// phase transition. It is never produced by a failing hook or test.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("runner invariant violated: %s", e.Reason)
}

// IsInvariantError checks if the error is or wraps an InvariantError
func IsInvariantError(err error) bool {
	var target *InvariantError
	return err != nil && errors.As(err, &target)
}

// IsPanicError checks if the error is or wraps a PanicError
func IsPanicError(err error) bool {
	var target *PanicError
	return err != nil && errors.As(err, &target)
}
