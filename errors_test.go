package harness

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-harness/registry"
	"github.com/ethereum-optimism/infra/op-harness/runner"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

func TestRuntimeError(t *testing.T) {
	err := NewRuntimeError(StageManifest, errors.New("manifest missing"))
	assert.True(t, IsRuntimeError(err))
	assert.False(t, IsTestFailureError(err))
	assert.EqualError(t, err, "runtime error in manifest stage: manifest missing")
	assert.Equal(t, StageManifest, RuntimeStage(err))

	// the innermost stage is kept when wrapping again
	outer := NewRuntimeError(StageConfig, fmt.Errorf("failed to create harness: %w", err))
	assert.Equal(t, StageManifest, RuntimeStage(outer))
	assert.Contains(t, outer.Error(), "failed to create harness")

	assert.False(t, IsRuntimeError(nil))
	assert.Equal(t, Stage(""), RuntimeStage(errors.New("plain")))
}

func TestRuntimeError_Classification(t *testing.T) {
	reg := registry.NewRegistry(registry.Config{Log: log.NewLogger(log.DiscardHandler())})
	addErr := reg.Add(types.Declaration{Title: "untyped"})
	err := NewRuntimeError(StageRegistration, addErr)
	assert.True(t, IsRegistrationError(err))
	assert.False(t, IsPlanCorruption(err))

	err = NewRuntimeError(StageRun, &runner.InvariantError{Reason: "illegal phase transition"})
	assert.True(t, IsPlanCorruption(err))
	assert.False(t, IsRegistrationError(err))
	assert.True(t, IsPlanCorruption(runner.ErrInvalidPlan))
}

func TestTestFailureError(t *testing.T) {
	result := &runner.RunResult{
		RunID:  "run-7",
		Status: types.TestStatusFail,
		Tests:  runner.ResultStats{Total: 3, Failed: 2},
		Hooks:  runner.ResultStats{Total: 1, Failed: 1},
	}
	err := NewTestFailureError("smoke", result)
	assert.True(t, IsTestFailureError(err))
	assert.False(t, IsRuntimeError(err))
	assert.Equal(t, "smoke", err.Suite)
	assert.Equal(t, 2, err.Tests)
	assert.Equal(t, 1, err.Hooks)
	assert.Contains(t, err.Error(), `suite "smoke" run run-7: 2 test(s) and 1 hook(s) failed`)
	assert.Contains(t, err.Error(), result.String())
}

func TestHarness_RunSuiteCorruptedPlan(t *testing.T) {
	cfg := newTestConfig(t, writeSuite(t, passingSuite))
	h := newTestHarness(t, cfg, func(error) {})

	mockSuite := new(MockSuiteRunner)
	mockSuite.On("Run", mock.Anything).Return(nil, &runner.InvariantError{Reason: "corrupted plan"})
	h.executor = NewDefaultTestExecutor(mockSuite, cfg.Log)

	err := h.runSuite(context.Background())
	require.Error(t, err)
	assert.Equal(t, StageRun, RuntimeStage(err))
	assert.True(t, IsPlanCorruption(err))
	assert.Nil(t, h.Result())
}
