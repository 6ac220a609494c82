// Package exitcodes defines the exit codes used by op-harness.
package exitcodes

// A run-once invocation exits with:
//
// * Success (0): every hook and test passed or was skipped
// * TestFailure (1): at least one hook or test failed
// * RuntimeErr (2): the suite could not be loaded or run (bad flags, unreadable
// manifest, invalid declarations, panics outside test bodies)
const (
	Success     = 0
	TestFailure = 1
	RuntimeErr  = 2
)
