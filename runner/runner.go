package runner

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum-optimism/infra/op-harness/metrics"
	"github.com/ethereum-optimism/infra/op-harness/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Phase is a state of a single run
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBefore
	PhaseTests
	PhaseAfter
	PhaseCompleted
)

// String implements the Stringer interface for Phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBefore:
		return "before"
	case PhaseTests:
		return "tests"
	case PhaseAfter:
		return "after"
	case PhaseCompleted:
		return "completed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Config holds configuration for creating a new runner
type Config struct {
	Log log.Logger
	// Concurrency bounds the number of concurrent-group tests in flight.
	// 0 and 1 run the group one test at a time in registration order;
	// AutoConcurrency picks a value from the CPU count.
	Concurrency int
	// FailFast reports tests that have not started yet as skipped once any
	// outcome has failed. after hooks still run.
	FailFast bool
	// DisableExclusiveFilter runs every test even when the plan holds
	// exclusive ones. By default only exclusive tests run in that case.
	DisableExclusiveFilter bool
	Progress               ProgressIndicator
	// Events is shared with the caller so subscriptions can be made before
	// the runner exists. A fresh emitter is created when nil.
	Events *Emitter
}

// Runner executes plans. A Runner may execute any number of plans; each
// call to Run walks its own idle → before → tests → after → completed cycle.
type Runner struct {
	log                    log.Logger
	concurrency            int
	failFast               bool
	disableExclusiveFilter bool
	ui                     ProgressIndicator
	events                 *Emitter
	resultMgr              *ResultManager
	tracer                 trace.Tracer
}

// NewRunner creates a new runner instance
func NewRunner(cfg Config) *Runner {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Concurrency < AutoConcurrency {
		cfg.Log.Warn("Invalid concurrency requested, running tests in order", "concurrency", cfg.Concurrency)
		cfg.Concurrency = 1
	}
	if cfg.Concurrency > MaxReasonableConcurrency {
		cfg.Log.Warn("Very high concurrency requested", "concurrency", cfg.Concurrency,
			"recommendation", "Consider using lower values to avoid resource exhaustion")
	}
	if cfg.Progress == nil {
		cfg.Progress = NewNoOpProgressIndicator()
	}
	if cfg.Events == nil {
		cfg.Events = NewEmitter()
	}

	return &Runner{
		log:                    cfg.Log.New("component", "runner"),
		concurrency:            cfg.Concurrency,
		failFast:               cfg.FailFast,
		disableExclusiveFilter: cfg.DisableExclusiveFilter,
		ui:                     cfg.Progress,
		events:                 cfg.Events,
		resultMgr:              NewResultManager(),
		tracer:                 otel.Tracer(tracerName),
	}
}

// On subscribes handler to event. Only EventTest is published.
func (r *Runner) On(event string, handler Handler) error {
	return r.events.On(event, handler)
}

// Events returns the emitter the runner publishes on
func (r *Runner) Events() *Emitter {
	return r.events
}

// run holds the state of one execution of a plan
type run struct {
	*Runner
	plan   *types.Plan
	result *RunResult
	phase  Phase

	// failed is set once any outcome fails; read by FailFast
	failed atomic.Bool
	// mu serialises result updates
	mu sync.Mutex
	// emitMu keeps test outcomes and notifications in the same order
	emitMu sync.Mutex
}

// Run executes plan and returns the aggregated result once every phase has
// completed. Hook and test failures are reported through the result and the
// event stream; a non-nil error means the plan itself was unusable.
func (r *Runner) Run(ctx context.Context, plan *types.Plan) (*RunResult, error) {
	if err := validatePlan(plan); err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.New().String()
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("run %s", runID))
	defer span.End()

	st := &run{
		Runner: r,
		plan:   plan,
		result: r.resultMgr.CreateEmptyResult(runID, start),
	}

	r.log.Info("Starting run", "run_id", runID,
		"before", len(plan.Hooks.Before),
		"serial", len(plan.Tests.Serial),
		"concurrent", len(plan.Tests.Concurrent),
		"after", len(plan.Hooks.After),
		"hasExclusive", plan.HasExclusive)

	if err := st.advance(ctx, PhaseBefore, len(plan.Hooks.Before), func(ctx context.Context) {
		st.runHooks(ctx, plan.Hooks.Before)
	}); err != nil {
		return nil, err
	}
	if err := st.advance(ctx, PhaseTests, len(plan.Tests.Serial)+len(plan.Tests.Concurrent), st.runTests); err != nil {
		return nil, err
	}
	if err := st.advance(ctx, PhaseAfter, len(plan.Hooks.After), func(ctx context.Context) {
		st.runHooks(ctx, plan.Hooks.After)
	}); err != nil {
		return nil, err
	}
	if err := st.transition(PhaseCompleted); err != nil {
		return nil, err
	}

	r.resultMgr.FinalizeResults(st.result, start)
	r.log.Info("Run completed", "run_id", runID, "status", st.result.Status,
		"passed", st.result.Passed, "duration", st.result.Duration)
	return st.result, nil
}

// advance moves the run into phase and executes its body
func (st *run) advance(ctx context.Context, phase Phase, total int, body func(context.Context)) error {
	if err := st.transition(phase); err != nil {
		return err
	}

	ctx, span := st.tracer.Start(ctx, fmt.Sprintf("phase %s", phase))
	defer span.End()

	st.ui.StartPhase(phase, total)
	body(ctx)
	st.ui.CompletePhase(phase)
	return nil
}

// transition enforces that phases are entered strictly in order
func (st *run) transition(next Phase) error {
	if next != st.phase+1 {
		return &InvariantError{Reason: fmt.Sprintf("illegal phase transition %s -> %s", st.phase, next)}
	}
	st.log.Debug("Phase transition", "run_id", st.result.RunID, "from", st.phase, "to", next)
	st.phase = next
	return nil
}

// runHooks executes before or after hooks one at a time in registration order
func (st *run) runHooks(ctx context.Context, hooks []types.Declaration) {
	for _, hook := range hooks {
		if hook.Metadata.Skipped {
			continue
		}
		st.record(st.execute(ctx, hook, hook.DisplayTitle()))
	}
}

// runTests runs the serial group to completion, then the concurrent group
func (st *run) runTests(ctx context.Context) {
	for _, test := range st.plan.Tests.Serial {
		st.runTest(ctx, test)
	}
	st.runConcurrent(ctx, st.plan.Tests.Concurrent)
}

// runTest executes a test bracketed by its own beforeEach and afterEach hooks
// and publishes its outcome once the bracket has completed
func (st *run) runTest(ctx context.Context, test types.Declaration) {
	title := test.DisplayTitle()
	if reason := st.skipReason(test); reason != "" {
		st.log.Debug("Skipping test", "test", title, "reason", reason)
		st.complete(skipped(test, title))
		return
	}

	ctx, span := st.tracer.Start(ctx, fmt.Sprintf("test %s", title))
	defer span.End()

	st.ui.StartTest(title)
	metrics.IncTestsInFlight()
	defer metrics.DecTestsInFlight()

	st.runEachHooks(ctx, st.plan.Hooks.BeforeEach, title)
	outcome := st.execute(ctx, test, title)
	st.runEachHooks(ctx, st.plan.Hooks.AfterEach, title)

	st.complete(outcome)
}

func (st *run) runEachHooks(ctx context.Context, hooks []types.Declaration, testTitle string) {
	for _, hook := range hooks {
		if hook.Metadata.Skipped {
			continue
		}
		st.record(st.execute(ctx, hook, fmt.Sprintf(hookTitleFormat, hook.DisplayTitle(), testTitle)))
	}
}

// skipReason returns why a test is reported without running, or ""
func (st *run) skipReason(test types.Declaration) string {
	switch {
	case test.Metadata.Skipped:
		return "skipped"
	case st.plan.HasExclusive && !st.disableExclusiveFilter && !test.Metadata.Exclusive:
		return "not exclusive"
	case st.failFast && st.failed.Load():
		return "fail-fast"
	}
	return ""
}

// record folds a hook outcome into the result
func (st *run) record(outcome types.Outcome) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.add(outcome)
}

// complete folds a test outcome into the result and publishes it. Handlers
// run outside mu so hooks of other in-flight tests keep recording.
func (st *run) complete(outcome types.Outcome) {
	st.emitMu.Lock()
	defer st.emitMu.Unlock()

	st.record(outcome)
	st.ui.UpdateTest(outcome.Title, outcome.Status)
	for _, err := range st.events.emit(EventTest, types.NewTestEvent(outcome)) {
		st.log.Error("Test event handler failed", "run_id", st.result.RunID, "test", outcome.Title, "err", err)
	}
}

func (st *run) add(outcome types.Outcome) {
	if outcome.Status == types.TestStatusFail {
		st.failed.Store(true)
		st.log.Warn("Execution failed", "run_id", st.result.RunID, "type", outcome.Type,
			"title", outcome.Title, "error", outcome.Err)
	}
	st.resultMgr.AddOutcome(st.result, outcome)
}

// validatePlan rejects plans that could not have come from a registry
func validatePlan(plan *types.Plan) error {
	if plan == nil {
		return ErrInvalidPlan
	}

	buckets := []struct {
		name  string
		typ   types.Type
		decls []types.Declaration
	}{
		{"before", types.TypeBefore, plan.Hooks.Before},
		{"beforeEach", types.TypeBeforeEach, plan.Hooks.BeforeEach},
		{"after", types.TypeAfter, plan.Hooks.After},
		{"afterEach", types.TypeAfterEach, plan.Hooks.AfterEach},
		{"concurrent", types.TypeTest, plan.Tests.Concurrent},
		{"serial", types.TypeTest, plan.Tests.Serial},
	}

	hasExclusive := false
	for _, b := range buckets {
		for i, decl := range b.decls {
			if decl.Type != b.typ {
				return &InvariantError{Reason: fmt.Sprintf("%s[%d] %q has type %q", b.name, i, decl.Title, decl.Type)}
			}
			if decl.Type.IsHook() && decl.Metadata.Exclusive {
				return &InvariantError{Reason: fmt.Sprintf("%s[%d] %q is an exclusive hook", b.name, i, decl.Title)}
			}
			if decl.Type == types.TypeTest && decl.Metadata.Serial != (b.name == "serial") {
				return &InvariantError{Reason: fmt.Sprintf("%s[%d] %q is in the wrong test group", b.name, i, decl.Title)}
			}
			hasExclusive = hasExclusive || decl.Metadata.Exclusive
		}
	}
	if hasExclusive && !plan.HasExclusive {
		return &InvariantError{Reason: "plan holds exclusive tests but hasExclusive is unset"}
	}
	return nil
}

// determineConcurrency picks the pool size for n concurrent tests
func determineConcurrency(requested, n int) int {
	if n <= 0 {
		return 1
	}
	c := requested
	if c == AutoConcurrency {
		c = min(runtime.NumCPU(), MaxReasonableConcurrency)
	}
	return max(1, min(c, n))
}
