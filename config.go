package harness

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-harness/flags"
	"github.com/ethereum-optimism/infra/op-harness/runner"
	"github.com/ethereum/go-ethereum/log"
)

// Config holds the application configuration
type Config struct {
	SuiteFile              string        // Absolute path to the suite manifest
	Concurrency            int           // Number of concurrent tests in flight (1 = in order, runner.AutoConcurrency = auto-determine)
	FailFast               bool          // Skip tests not yet started once anything has failed
	DisableExclusiveFilter bool          // Run every test even when some are marked 'only'
	RunInterval            time.Duration // Interval between suite runs
	RunOnce                bool          // Indicates if the service should exit after one run
	ShowProgress           bool          // Whether to show periodic progress updates during execution
	ProgressInterval       time.Duration // Interval between progress updates when ShowProgress is 'true'
	LogDir                 string        // Directory to store run summaries; empty disables them
	MetricsAddr            string
	HealthzAddr            string
	Log                    log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	suiteFile := ctx.String(flags.Suite.Name)
	if suiteFile == "" {
		return nil, errors.New("suite manifest is required")
	}
	absSuiteFile, err := filepath.Abs(suiteFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for suite manifest '%s': %w", suiteFile, err)
	}

	concurrency := ctx.Int(flags.Concurrency.Name)
	if concurrency < runner.AutoConcurrency {
		return nil, fmt.Errorf("concurrency must be >= %d, got %d", runner.AutoConcurrency, concurrency)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	if runInterval < 0 {
		return nil, fmt.Errorf("run interval must be >= 0, got %s", runInterval)
	}
	runOnce := runInterval == 0

	logDir := ctx.String(flags.LogDir.Name)
	if logDir != "" {
		logDir, err = filepath.Abs(logDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
		}
	}

	return &Config{
		SuiteFile:              absSuiteFile,
		Concurrency:            concurrency,
		FailFast:               ctx.Bool(flags.FailFast.Name),
		DisableExclusiveFilter: ctx.Bool(flags.NoExclusiveFilter.Name),
		RunInterval:            runInterval,
		RunOnce:                runOnce,
		ShowProgress:           ctx.Bool(flags.ShowProgress.Name),
		ProgressInterval:       ctx.Duration(flags.ProgressInterval.Name),
		LogDir:                 logDir,
		MetricsAddr:            ctx.String(flags.MetricsAddr.Name),
		HealthzAddr:            ctx.String(flags.HealthzAddr.Name),
		Log:                    log,
	}, nil
}
