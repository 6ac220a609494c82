package harness

import (
	"context"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-harness/runner"
)

// SuiteRunner runs a built suite. *Suite implements it.
type SuiteRunner interface {
	Run(ctx context.Context) (*runner.RunResult, error)
}

// TestExecutor is responsible for running tests.
type TestExecutor interface {
	RunTests(ctx context.Context) (*runner.RunResult, error)
}

// DefaultTestExecutor implements the TestExecutor interface.
type DefaultTestExecutor struct {
	suite  SuiteRunner
	logger log.Logger
}

// NewDefaultTestExecutor creates a new DefaultTestExecutor.
func NewDefaultTestExecutor(suite SuiteRunner, logger log.Logger) *DefaultTestExecutor {
	return &DefaultTestExecutor{
		suite:  suite,
		logger: logger,
	}
}

// RunTests runs the suite and returns the results.
func (e *DefaultTestExecutor) RunTests(ctx context.Context) (*runner.RunResult, error) {
	e.logger.Info("Running suite...")
	result, err := e.suite.Run(ctx)
	if err != nil {
		e.logger.Error("Error running suite", "error", err)
		return nil, err
	}
	e.logger.Info("Suite run completed", "run_id", result.RunID, "status", result.Status)
	return result, nil
}
