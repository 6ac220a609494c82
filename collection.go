// Package harness registers hooks and tests into a collection, runs the
// resulting suite and hosts the op-harness service lifecycle.
package harness

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-harness/registry"
	"github.com/ethereum-optimism/infra/op-harness/runner"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

// CollectionConfig holds configuration for creating a new collection
type CollectionConfig struct {
	Log log.Logger
	// Concurrency bounds concurrent tests in flight. The zero value runs them
	// in registration order; see runner.Config.
	Concurrency            int
	FailFast               bool
	DisableExclusiveFilter bool
	Progress               runner.ProgressIndicator
}

// Collection gathers declarations and builds them into a runnable Suite.
// Subscriptions made on the collection carry over to every suite it builds.
type Collection struct {
	log      log.Logger
	registry *registry.Registry
	events   *runner.Emitter
	cfg      CollectionConfig
}

// NewCollection creates an empty collection
func NewCollection(cfg CollectionConfig) *Collection {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	return &Collection{
		log:      cfg.Log,
		registry: registry.NewRegistry(registry.Config{Log: cfg.Log}),
		events:   runner.NewEmitter(),
		cfg:      cfg,
	}
}

// Add registers a single declaration
func (c *Collection) Add(decl types.Declaration) error {
	return c.registry.Add(decl)
}

// AddAll registers decls in order and stops at the first rejected one
func (c *Collection) AddAll(decls []types.Declaration) error {
	for i, decl := range decls {
		if err := c.registry.Add(decl); err != nil {
			return fmt.Errorf("declaration %d (%q): %w", i, decl.Title, err)
		}
	}
	return nil
}

// HasExclusive reports whether an exclusive test has been registered
func (c *Collection) HasExclusive() bool {
	return c.registry.HasExclusive()
}

// On subscribes handler to event. Only runner.EventTest is published.
func (c *Collection) On(event string, handler runner.Handler) error {
	return c.events.On(event, handler)
}

// Summary returns the titles registered so far
func (c *Collection) Summary() types.PlanSummary {
	return c.registry.Summary()
}

// Build seals the collection and returns a suite over its plan. Build may be
// called again; every suite shares the same subscriptions.
func (c *Collection) Build() *Suite {
	plan := c.registry.Build()
	c.log.Info("Built suite", "declarations", plan.Len(), "hasExclusive", plan.HasExclusive)

	return &Suite{
		plan: plan,
		runner: runner.NewRunner(runner.Config{
			Log:                    c.log,
			Concurrency:            c.cfg.Concurrency,
			FailFast:               c.cfg.FailFast,
			DisableExclusiveFilter: c.cfg.DisableExclusiveFilter,
			Progress:               c.cfg.Progress,
			Events:                 c.events,
		}),
	}
}

// Suite is a built collection ready to run
type Suite struct {
	plan   *types.Plan
	runner *runner.Runner
}

// Plan returns the plan the suite runs
func (s *Suite) Plan() *types.Plan {
	return s.plan
}

// On subscribes handler to event
func (s *Suite) On(event string, handler runner.Handler) error {
	return s.runner.On(event, handler)
}

// Run executes the suite once. Each call is an independent run.
func (s *Suite) Run(ctx context.Context) (*runner.RunResult, error) {
	return s.runner.Run(ctx, s.plan)
}
