package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-harness/exitcodes"
	"github.com/ethereum-optimism/infra/op-harness/manifest"
	"github.com/ethereum-optimism/infra/op-harness/metrics"
	"github.com/ethereum-optimism/infra/op-harness/reporting"
	"github.com/ethereum-optimism/infra/op-harness/runner"
	"github.com/ethereum-optimism/infra/op-harness/service"
	"github.com/ethereum-optimism/infra/op-harness/types"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

// Harness implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &Harness{}

// Harness loads a suite manifest and runs it once or periodically.
type Harness struct {
	config   *Config
	version  string
	manifest *manifest.Manifest
	suite    *Suite

	executor  TestExecutor
	formatter ResultFormatter
	reporter  MetricsReporter
	scheduler TestScheduler
	sink      *reporting.SummarySink
	progress  *runner.ConsoleProgressIndicator
	service   *service.Service

	result atomic.Pointer[runner.RunResult]

	shutdownCallback func(error) // Callback to signal application shutdown
}

// RunStatus is the summary of the latest run served on /status
type RunStatus struct {
	Suite    string `json:"suite"`
	Version  string `json:"version"`
	RunID    string `json:"run_id"`
	Status   string `json:"status"`
	Passed   bool   `json:"passed"`
	Tests    int    `json:"tests"`
	Failed   int    `json:"failed"`
	Skipped  int    `json:"skipped"`
	Duration string `json:"duration"`
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*Harness, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating harness with config",
		"suite", config.SuiteFile,
		"concurrency", config.Concurrency,
		"failFast", config.FailFast,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce)

	m, err := manifest.Load(config.SuiteFile)
	if err != nil {
		return nil, NewRuntimeError(StageManifest, fmt.Errorf("failed to load suite manifest: %w", err))
	}

	h := &Harness{
		config:           config,
		version:          version,
		manifest:         m,
		formatter:        NewConsoleResultFormatter(config.Log, os.Stdout),
		reporter:         NewDefaultMetricsReporter(),
		scheduler:        NewRunScheduler(config.RunInterval, config.RunOnce, config.Log),
		shutdownCallback: shutdownCallback,
	}

	var progress runner.ProgressIndicator
	if config.ShowProgress {
		h.progress = runner.NewConsoleProgressIndicator(config.Log, config.ProgressInterval)
		progress = h.progress
	}

	collection := NewCollection(CollectionConfig{
		Log:                    config.Log,
		Concurrency:            config.Concurrency,
		FailFast:               config.FailFast,
		DisableExclusiveFilter: config.DisableExclusiveFilter,
		Progress:               progress,
	})
	if err := collection.AddAll(m.Declarations(config.Log)); err != nil {
		h.stopProgress()
		return nil, NewRuntimeError(StageRegistration, fmt.Errorf("failed to register suite %q: %w", m.Name, err))
	}

	if config.LogDir != "" {
		h.sink = reporting.NewSummarySink(config.LogDir, m.Name)
		if err := collection.On(runner.EventTest, h.sink.Consume); err != nil {
			h.stopProgress()
			return nil, fmt.Errorf("failed to subscribe summary sink: %w", err)
		}
	}

	h.suite = collection.Build()
	h.executor = NewDefaultTestExecutor(h.suite, config.Log)
	h.service = service.New(service.Config{
		HealthzAddr: config.HealthzAddr,
		MetricsAddr: config.MetricsAddr,
		Status:      h.status,
		Log:         config.Log,
	})
	config.Log.Info("harness.New: loaded suite", "suite", m.Name, "declarations", len(m.Entries))

	return h, nil
}

// Start runs the suite immediately and, outside run-once mode, keeps
// running it at the configured interval.
// Start implements the cliapp.Lifecycle interface.
func (h *Harness) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			h.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	if h.config.RunOnce {
		h.config.Log.Info("Starting op-harness in run-once mode", "suite", h.manifest.Name)
	} else {
		h.config.Log.Info("Starting op-harness in continuous mode", "suite", h.manifest.Name, "interval", h.config.RunInterval)
	}

	h.service.Start(ctx)
	h.scheduler.RegisterCallback(h.runSuite)
	if err := h.scheduler.Start(ctx); err != nil {
		h.config.Log.Error("Runtime error running suite", "error", err)
		return cli.Exit(err.Error(), exitcodes.RuntimeErr)
	}

	if !h.config.RunOnce {
		h.config.Log.Debug("op-harness started successfully")
		return nil
	}

	h.config.Log.Info("Suite completed, exiting (run-once mode)")
	if result := h.result.Load(); result != nil && result.Status == types.TestStatusFail {
		h.config.Log.Warn("Run-once suite completed with failures, returning exit code 1")
		return NewTestFailureError(h.manifest.Name, result)
	}

	// Only need to call this when we're in run-once mode and everything passed
	go func() {
		h.shutdownCallback(nil)
	}()
	return nil
}

// runSuite runs the suite and processes the results
func (h *Harness) runSuite(ctx context.Context) error {
	result, err := h.executor.RunTests(ctx)
	if err != nil {
		// This is a runtime error (not a test failure)
		metrics.RecordErrorDetails("run_suite", err)
		if IsPlanCorruption(err) {
			h.config.Log.Error("Runner rejected the suite plan", "suite", h.manifest.Name, "error", err)
		}
		return NewRuntimeError(StageRun, err)
	}
	h.result.Store(result)

	if err := h.formatter.FormatResults(h.manifest.Name, result); err != nil {
		h.config.Log.Warn("Failed to print results", "error", err)
	}
	h.reporter.ReportResults(h.manifest.Name, result)

	if h.sink != nil {
		path, err := h.sink.Complete(result)
		if err != nil {
			h.config.Log.Error("Failed to write run summary", "error", err)
			metrics.RecordErrorDetails("summary", err)
		} else {
			h.config.Log.Info("Wrote run summary", "path", path)
		}
	}

	h.config.Log.Info("Suite run completed", "run_id", result.RunID, "status", result.Status)
	return nil
}

// Stop stops the op-harness service.
// Stop implements the cliapp.Lifecycle interface.
func (h *Harness) Stop(ctx context.Context) error {
	h.config.Log.Info("Stopping op-harness")

	if err := h.scheduler.Stop(); err != nil {
		return err
	}
	if err := h.scheduler.WaitForShutdown(ctx); err != nil {
		h.config.Log.Warn("Scheduler did not shut down cleanly", "error", err)
	}
	h.stopProgress()
	h.service.Shutdown()

	h.config.Log.Info("op-harness stopped successfully")
	return nil
}

// Stopped returns true if the op-harness service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (h *Harness) Stopped() bool {
	return h.scheduler.Stopped()
}

// Result returns the latest run result, or nil before the first run completes
func (h *Harness) Result() *runner.RunResult {
	return h.result.Load()
}

func (h *Harness) stopProgress() {
	if h.progress != nil {
		h.progress.Stop()
	}
}

func (h *Harness) status() any {
	result := h.result.Load()
	if result == nil {
		return nil
	}
	return RunStatus{
		Suite:    h.manifest.Name,
		Version:  h.version,
		RunID:    result.RunID,
		Status:   string(result.Status),
		Passed:   result.Passed,
		Tests:    result.Tests.Total,
		Failed:   result.Tests.Failed + result.Hooks.Failed,
		Skipped:  result.Tests.Skipped,
		Duration: result.Duration.String(),
	}
}
