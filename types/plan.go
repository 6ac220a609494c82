package types

// Hooks holds the four lifecycle sequences, each in registration order
type Hooks struct {
	Before     []Declaration
	BeforeEach []Declaration
	After      []Declaration
	AfterEach  []Declaration
}

// Tests holds the two test sequences, each in registration order
type Tests struct {
	Concurrent []Declaration
	Serial     []Declaration
}

// Plan is the immutable snapshot handed from the registry to the runner.
// Build always hands out freshly allocated slices, so a Plan never aliases
// the registry's own storage.
type Plan struct {
	Hooks        Hooks
	Tests        Tests
	HasExclusive bool
}

// Len returns the number of declarations in the plan
func (p *Plan) Len() int {
	return len(p.Hooks.Before) + len(p.Hooks.BeforeEach) + len(p.Hooks.After) + len(p.Hooks.AfterEach) +
		len(p.Tests.Concurrent) + len(p.Tests.Serial)
}

// PlanSummary is a title-only projection of a Plan. Empty buckets are
// omitted when serialised.
type PlanSummary struct {
	Tests *TestTitles `yaml:"tests,omitempty" json:"tests,omitempty"`
	Hooks *HookTitles `yaml:"hooks,omitempty" json:"hooks,omitempty"`
}

// TestTitles lists test titles per bucket
type TestTitles struct {
	Concurrent []string `yaml:"concurrent,omitempty" json:"concurrent,omitempty"`
	Serial     []string `yaml:"serial,omitempty" json:"serial,omitempty"`
}

// HookTitles lists hook titles per bucket
type HookTitles struct {
	Before     []string `yaml:"before,omitempty" json:"before,omitempty"`
	BeforeEach []string `yaml:"beforeEach,omitempty" json:"beforeEach,omitempty"`
	After      []string `yaml:"after,omitempty" json:"after,omitempty"`
	AfterEach  []string `yaml:"afterEach,omitempty" json:"afterEach,omitempty"`
}

// Summary projects the plan onto its titles
func (p *Plan) Summary() PlanSummary {
	var s PlanSummary

	tests := TestTitles{
		Concurrent: titles(p.Tests.Concurrent),
		Serial:     titles(p.Tests.Serial),
	}
	if tests.Concurrent != nil || tests.Serial != nil {
		s.Tests = &tests
	}

	hooks := HookTitles{
		Before:     titles(p.Hooks.Before),
		BeforeEach: titles(p.Hooks.BeforeEach),
		After:      titles(p.Hooks.After),
		AfterEach:  titles(p.Hooks.AfterEach),
	}
	if hooks.Before != nil || hooks.BeforeEach != nil || hooks.After != nil || hooks.AfterEach != nil {
		s.Hooks = &hooks
	}

	return s
}

func titles(decls []Declaration) []string {
	if len(decls) == 0 {
		return nil
	}
	out := make([]string, len(decls))
	for i, d := range decls {
		out[i] = d.Title
	}
	return out
}
