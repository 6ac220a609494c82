package harness

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/infra/op-harness/registry"
	"github.com/ethereum-optimism/infra/op-harness/runner"
)

// Stage names the part of the harness lifecycle a RuntimeError came from
type Stage string

const (
	StageConfig       Stage = "config"
	StageManifest     Stage = "manifest"
	StageRegistration Stage = "registration"
	StageRun          Stage = "run"
)

// RuntimeError is an operational failure of the harness itself rather than
// of a hook or test. It maps to exit code 2.
type RuntimeError struct {
	Stage Stage
	Err   error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error in %s stage: %v", e.Stage, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError attributes err to stage. An err that already carries a
// RuntimeError is returned as is so the innermost stage wins.
func NewRuntimeError(stage Stage, err error) error {
	if IsRuntimeError(err) {
		return err
	}
	return &RuntimeError{Stage: stage, Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// RuntimeStage returns the stage of the RuntimeError carried by err, or ""
func RuntimeStage(err error) Stage {
	var runtimeErr *RuntimeError
	if errors.As(err, &runtimeErr) {
		return runtimeErr.Stage
	}
	return ""
}

// IsRegistrationError reports whether err is a rejected declaration
func IsRegistrationError(err error) bool {
	return registry.IsValidationError(err)
}

// IsPlanCorruption reports whether err comes from a runner invariant
// violation. These are bugs, never test failures.
func IsPlanCorruption(err error) bool {
	return errors.Is(err, runner.ErrInvalidPlan) || runner.IsInvariantError(err)
}

// TestFailureError is a completed run in which a hook or test failed. It maps
// to exit code 1.
type TestFailureError struct {
	Suite  string
	RunID  string
	Hooks  int
	Tests  int
	Report string
}

// NewTestFailureError summarises a failed run of suite
func NewTestFailureError(suite string, result *runner.RunResult) *TestFailureError {
	return &TestFailureError{
		Suite:  suite,
		RunID:  result.RunID,
		Hooks:  result.Hooks.Failed,
		Tests:  result.Tests.Failed,
		Report: result.String(),
	}
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: suite %q run %s: %d test(s) and %d hook(s) failed\n%s",
		e.Suite, e.RunID, e.Tests, e.Hooks, e.Report)
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}
