package registry

import (
	"sync"

	"github.com/ethereum-optimism/infra/op-harness/types"
	"github.com/ethereum/go-ethereum/log"
)

// Registry accumulates declarations and classifies them into hook and test
// buckets. One registry serves one suite; it is sealed by Build.
type Registry struct {
	config Config

	before     []types.Declaration
	beforeEach []types.Declaration
	after      []types.Declaration
	afterEach  []types.Declaration
	concurrent []types.Declaration
	serial     []types.Declaration

	// hookBuckets maps each hook type onto the sequence it is appended to
	hookBuckets map[types.Type]*[]types.Declaration

	hasExclusive bool
	sealed       bool
	mu           sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log log.Logger
}

// NewRegistry creates a new, empty registry
func NewRegistry(cfg Config) *Registry {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	r := &Registry{config: cfg}
	r.hookBuckets = map[types.Type]*[]types.Declaration{
		types.TypeBefore:     &r.before,
		types.TypeBeforeEach: &r.beforeEach,
		types.TypeAfter:      &r.after,
		types.TypeAfterEach:  &r.afterEach,
	}
	return r
}

// Add validates a declaration and appends it to the bucket selected by its
// type and, for tests, by its serial flag. A rejected declaration leaves
// the registry unchanged.
func (r *Registry) Add(decl types.Declaration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validate(decl); err != nil {
		r.config.Log.Debug("Rejected declaration", "title", decl.Title, "type", decl.Type, "err", err)
		return err
	}

	bucket := r.bucketFor(decl)
	*bucket = append(*bucket, decl)
	r.hasExclusive = r.hasExclusive || decl.Metadata.Exclusive

	r.config.Log.Debug("Added declaration",
		"title", decl.Title,
		"type", decl.Type,
		"serial", decl.Metadata.Serial,
		"exclusive", decl.Metadata.Exclusive,
		"skipped", decl.Metadata.Skipped)
	return nil
}

func (r *Registry) validate(decl types.Declaration) error {
	if r.sealed {
		return ErrSealed
	}
	if decl.Type == "" {
		return &MissingTypeError{Title: decl.Title}
	}
	if !decl.Type.IsValid() {
		return &UnknownTypeError{Type: decl.Type, Title: decl.Title}
	}
	if decl.Type.IsHook() && decl.Metadata.Exclusive {
		return &IllegalExclusiveHookError{Type: decl.Type, Title: decl.Title}
	}
	return nil
}

// bucketFor must only be called with a validated declaration
func (r *Registry) bucketFor(decl types.Declaration) *[]types.Declaration {
	if bucket, ok := r.hookBuckets[decl.Type]; ok {
		return bucket
	}
	if decl.Metadata.Serial {
		return &r.serial
	}
	return &r.concurrent
}

// HasExclusive reports whether any added declaration requested exclusive
// execution. Once true it stays true.
func (r *Registry) HasExclusive() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasExclusive
}

// Sealed reports whether Build has been called
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Build seals the registry and returns an immutable plan of its contents.
// Repeated calls return equal plans that share no storage.
func (r *Registry) Build() *types.Plan {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sealed = true
	plan := r.snapshot()
	r.config.Log.Debug("Built plan",
		"declarations", plan.Len(),
		"concurrent", len(plan.Tests.Concurrent),
		"serial", len(plan.Tests.Serial),
		"hasExclusive", plan.HasExclusive)
	return plan
}

// Summary returns the title-only projection of the current contents without
// sealing the registry
func (r *Registry) Summary() types.PlanSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot().Summary()
}

func (r *Registry) snapshot() *types.Plan {
	return &types.Plan{
		Hooks: types.Hooks{
			Before:     clone(r.before),
			BeforeEach: clone(r.beforeEach),
			After:      clone(r.after),
			AfterEach:  clone(r.afterEach),
		},
		Tests: types.Tests{
			Concurrent: clone(r.concurrent),
			Serial:     clone(r.serial),
		},
		HasExclusive: r.hasExclusive,
	}
}

func clone(decls []types.Declaration) []types.Declaration {
	if len(decls) == 0 {
		return nil
	}
	out := make([]types.Declaration, len(decls))
	copy(out, decls)
	return out
}
