// Package runner executes a built plan of hooks and tests.
//
// The main components are:
//   - Runner: Walks the run phases (before, tests, after) and enforces their order
//   - execution: The per-body handle passed to every hook and test, handling
//     panics, explicit completion and failure recording
//   - Emitter: Publishes one notification per completed test to subscribers
//   - ResultManager: Aggregates hook and test outcomes into a RunResult
//   - ProgressIndicator: Optional progress reporting for long runs
//
// Serial tests run one at a time in registration order, then concurrent tests
// run on a bounded pool. Every test is bracketed by its own beforeEach and
// afterEach hooks. Failures are recorded as outcomes and never stop the run.
package runner
