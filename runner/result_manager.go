package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

// ResultStats tracks execution statistics
type ResultStats struct {
	Total     int
	Passed    int
	Failed    int
	Skipped   int
	StartTime time.Time
	EndTime   time.Time
}

// RunResult captures the complete outcome of a run. It is only valid once
// Run has returned.
type RunResult struct {
	RunID    string
	Passed   bool // true iff every hook and test outcome passed
	Status   types.TestStatus
	Tests    ResultStats
	Hooks    ResultStats
	Outcomes []types.Outcome // every hook and test outcome, in completion order
	Failures []types.Outcome // failed hooks and tests, in completion order
	Duration time.Duration
}

// ResultManager aggregates outcomes into a RunResult. Callers serialise
// access to a given result.
type ResultManager struct{}

// NewResultManager creates a new result manager
func NewResultManager() *ResultManager {
	return &ResultManager{}
}

// CreateEmptyResult creates a properly initialized empty result
func (rm *ResultManager) CreateEmptyResult(runID string, startTime time.Time) *RunResult {
	return &RunResult{
		RunID:  runID,
		Passed: true,
		Status: types.TestStatusSkip,
		Tests:  ResultStats{StartTime: startTime},
		Hooks:  ResultStats{StartTime: startTime},
	}
}

// AddOutcome folds a single hook or test outcome into the result
func (rm *ResultManager) AddOutcome(result *RunResult, outcome types.Outcome) {
	stats := &result.Tests
	if outcome.Type.IsHook() {
		stats = &result.Hooks
	}

	stats.Total++
	result.Outcomes = append(result.Outcomes, outcome)
	switch outcome.Status {
	case types.TestStatusPass:
		stats.Passed++
	case types.TestStatusFail:
		stats.Failed++
		result.Failures = append(result.Failures, outcome)
	case types.TestStatusSkip:
		stats.Skipped++
	}
}

// FinalizeResults applies final status determination and timing
func (rm *ResultManager) FinalizeResults(result *RunResult, startTime time.Time) {
	endTime := time.Now()
	result.Tests.EndTime = endTime
	result.Hooks.EndTime = endTime
	result.Duration = endTime.Sub(startTime)
	result.Passed = len(result.Failures) == 0
	result.Status = determineRunnerStatus(result)
}

func determineRunnerStatus(result *RunResult) types.TestStatus {
	anyFailed := result.Tests.Failed > 0 || result.Hooks.Failed > 0
	allSkipped := result.Tests.Total == result.Tests.Skipped && result.Hooks.Total == result.Hooks.Skipped
	return determineStatusFromFlags(allSkipped, anyFailed)
}

// determineStatusFromFlags is a helper that returns a status based on common flag logic
func determineStatusFromFlags(allSkipped, anyFailed bool) types.TestStatus {
	if anyFailed {
		return types.TestStatusFail
	}
	if allSkipped {
		return types.TestStatusSkip
	}
	return types.TestStatusPass
}

// String returns a human-readable summary of the run
func (r *RunResult) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Run %s (%s): %s\n", r.RunID, types.FormatDuration(r.Duration), r.Status))
	b.WriteString(fmt.Sprintf("Tests: %d total, %d passed, %d failed, %d skipped\n",
		r.Tests.Total, r.Tests.Passed, r.Tests.Failed, r.Tests.Skipped))
	b.WriteString(fmt.Sprintf("Hooks: %d total, %d passed, %d failed\n",
		r.Hooks.Total, r.Hooks.Passed, r.Hooks.Failed))

	for i, f := range r.Failures {
		prefix := "├──"
		if i == len(r.Failures)-1 {
			prefix = "└──"
		}
		b.WriteString(fmt.Sprintf("%s %v\n", prefix, f.Err))
	}
	return b.String()
}

