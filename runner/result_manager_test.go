package runner

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum-optimism/infra/op-harness/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultManager_CreateEmptyResult(t *testing.T) {
	rm := NewResultManager()
	start := time.Now()

	result := rm.CreateEmptyResult("run-1", start)
	assert.Equal(t, "run-1", result.RunID)
	assert.True(t, result.Passed)
	assert.Equal(t, types.TestStatusSkip, result.Status)
	assert.Equal(t, start, result.Tests.StartTime)
	assert.Equal(t, start, result.Hooks.StartTime)
	assert.Empty(t, result.Failures)
}

func TestResultManager_AddOutcome(t *testing.T) {
	rm := NewResultManager()
	result := rm.CreateEmptyResult("run-1", time.Now())

	rm.AddOutcome(result, types.Outcome{Title: "t1", Type: types.TypeTest, Status: types.TestStatusPass})
	rm.AddOutcome(result, types.Outcome{Title: "t2", Type: types.TypeTest, Status: types.TestStatusFail, Err: errors.New("boom")})
	rm.AddOutcome(result, types.Outcome{Title: "t3", Type: types.TypeTest, Status: types.TestStatusSkip})
	rm.AddOutcome(result, types.Outcome{Title: "setup", Type: types.TypeBefore, Status: types.TestStatusPass})
	rm.AddOutcome(result, types.Outcome{Title: "teardown", Type: types.TypeAfterEach, Status: types.TestStatusFail, Err: errors.New("leak")})

	assert.Equal(t, ResultStats{Total: 3, Passed: 1, Failed: 1, Skipped: 1, StartTime: result.Tests.StartTime}, result.Tests)
	assert.Equal(t, 2, result.Hooks.Total)
	assert.Equal(t, 1, result.Hooks.Failed)

	assert.Len(t, result.Outcomes, 5)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, "t2", result.Failures[0].Title)
	assert.Equal(t, "teardown", result.Failures[1].Title)
}

func TestResultManager_FinalizeResults(t *testing.T) {
	tests := []struct {
		name       string
		outcomes   []types.Outcome
		wantPassed bool
		wantStatus types.TestStatus
	}{
		{
			name:       "empty run",
			wantPassed: true,
			wantStatus: types.TestStatusSkip,
		},
		{
			name: "all skipped",
			outcomes: []types.Outcome{
				{Type: types.TypeTest, Status: types.TestStatusSkip},
			},
			wantPassed: true,
			wantStatus: types.TestStatusSkip,
		},
		{
			name: "pass",
			outcomes: []types.Outcome{
				{Type: types.TypeTest, Status: types.TestStatusPass},
				{Type: types.TypeTest, Status: types.TestStatusSkip},
			},
			wantPassed: true,
			wantStatus: types.TestStatusPass,
		},
		{
			name: "hook failure fails the run",
			outcomes: []types.Outcome{
				{Type: types.TypeTest, Status: types.TestStatusPass},
				{Type: types.TypeAfter, Status: types.TestStatusFail},
			},
			wantPassed: false,
			wantStatus: types.TestStatusFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := NewResultManager()
			start := time.Now()
			result := rm.CreateEmptyResult("run", start)
			for _, o := range tt.outcomes {
				rm.AddOutcome(result, o)
			}
			rm.FinalizeResults(result, start)

			assert.Equal(t, tt.wantPassed, result.Passed)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.False(t, result.Tests.EndTime.IsZero())
			assert.GreaterOrEqual(t, result.Duration, time.Duration(0))
		})
	}
}

func TestRunResult_String(t *testing.T) {
	result := &RunResult{
		RunID:    "abc",
		Status:   types.TestStatusFail,
		Tests:    ResultStats{Total: 2, Passed: 1, Failed: 1},
		Hooks:    ResultStats{Total: 1, Passed: 1},
		Duration: 250 * time.Millisecond,
		Failures: []types.Outcome{
			{Title: "t2", Type: types.TypeTest, Status: types.TestStatusFail,
				Err: &BodyError{Title: "t2", Type: types.TypeTest, Err: errors.New("boom")}},
		},
	}

	out := result.String()
	assert.Contains(t, out, "Run abc (250ms): fail")
	assert.Contains(t, out, "Tests: 2 total, 1 passed, 1 failed, 0 skipped")
	assert.Contains(t, out, `└── test "t2" failed: boom`)
}

