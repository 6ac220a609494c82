package types

import (
	"fmt"
	"time"
)

// TestStatus represents the possible states of an execution
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
	TestStatusSkip TestStatus = "skip"
)

// Outcome is the record of one hook or test execution
type Outcome struct {
	Title    string
	Type     Type
	Status   TestStatus
	Err      error
	Duration time.Duration
}

// Passed returns true unless the execution failed. Skipped executions pass.
func (o Outcome) Passed() bool {
	return o.Status != TestStatusFail
}

// String implements the Stringer interface for Outcome
func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s [%s]: %v", o.Title, o.Status, o.Err)
	}
	return fmt.Sprintf("%s [%s]", o.Title, o.Status)
}

// TestEvent is the payload published once per completed test
type TestEvent struct {
	Passed bool
	Result Outcome
}

// NewTestEvent creates the notification for a completed test outcome
func NewTestEvent(o Outcome) TestEvent {
	return TestEvent{Passed: o.Passed(), Result: o}
}

// FormatDuration renders a duration for reports: milliseconds below one
// second, otherwise truncated to the millisecond
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}
