// Package types contains shared types used across the op-harness collection and runner
package types

import (
	"context"
	"fmt"
)

// Type is the closed tag that classifies a declaration
type Type string

// String implements the Stringer interface for Type
func (t Type) String() string {
	return string(t)
}

// Type enum values
const (
	TypeTest       Type = "test"
	TypeBefore     Type = "before"
	TypeBeforeEach Type = "beforeEach"
	TypeAfter      Type = "after"
	TypeAfterEach  Type = "afterEach"
)

// IsHook returns true for the lifecycle types that bracket tests
func (t Type) IsHook() bool {
	switch t {
	case TypeBefore, TypeBeforeEach, TypeAfter, TypeAfterEach:
		return true
	}
	return false
}

// IsValid returns true if t is one of the known declaration types
func (t Type) IsValid() bool {
	return t == TypeTest || t.IsHook()
}

// ParseType converts a string into a Type, rejecting unknown values
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown declaration type %q", s)
	}
	return t, nil
}

// Metadata is the fixed-shape flag bundle attached to every declaration
type Metadata struct {
	Serial    bool // run in isolation, never overlapping another serial test
	Exclusive bool // "only": restrict the run to exclusive tests
	Skipped   bool
	Callback  bool // body completes through TB.End rather than by returning
}

// TB is the handle a body uses to report on its own execution
type TB interface {
	// Title returns the title of the running test or hook
	Title() string
	// Fail records a failure without stopping the body
	Fail(err error)
	// Failed reports whether a failure has been recorded so far
	Failed() bool
	// End completes a callback-mode body
	End()
	// Log writes a message to the run logger, tagged with the title
	Log(msg string, ctx ...any)
}

// Func is the executable body of a declaration. Returning a non-nil error
// or panicking fails the body.
type Func func(ctx context.Context, t TB) error

// Declaration is the unit submitted for registration
type Declaration struct {
	Title    string
	Type     Type // mandatory
	Metadata Metadata
	Fn       Func
}

// DisplayTitle returns the title used for reporting, falling back to a
// default when the declaration has none
func (d Declaration) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	if d.Type.IsHook() {
		return fmt.Sprintf("%s hook", d.Type)
	}
	return "[anonymous]"
}
