package registry

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

// ErrSealed is returned by Add once the registry has been built
var ErrSealed = errors.New("registry is sealed: declarations cannot be added after build")

// MissingTypeError is returned when a declaration carries no type
type MissingTypeError struct {
	Title string
}

func (e *MissingTypeError) Error() string {
	return "Test type must be specified"
}

// IllegalExclusiveHookError is returned when a hook declaration asks for
// exclusive execution
type IllegalExclusiveHookError struct {
	Type  types.Type
	Title string
}

func (e *IllegalExclusiveHookError) Error() string {
	return fmt.Sprintf("%q cannot be used with a %s test", "only", e.Type)
}

// UnknownTypeError is returned when a declaration carries a type outside the
// known set
type UnknownTypeError struct {
	Type  types.Type
	Title string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown test type %q", string(e.Type))
}

// IsMissingTypeError checks if the error is or wraps a MissingTypeError
func IsMissingTypeError(err error) bool {
	var target *MissingTypeError
	return err != nil && errors.As(err, &target)
}

// IsIllegalExclusiveHookError checks if the error is or wraps an IllegalExclusiveHookError
func IsIllegalExclusiveHookError(err error) bool {
	var target *IllegalExclusiveHookError
	return err != nil && errors.As(err, &target)
}

// IsValidationError checks if the error is any of the registration-time
// errors returned by Add
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var unknown *UnknownTypeError
	return IsMissingTypeError(err) ||
		IsIllegalExclusiveHookError(err) ||
		errors.As(err, &unknown) ||
		errors.Is(err, ErrSealed)
}
