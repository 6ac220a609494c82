package runner

// Runner constants
const (
	// EventTest is the only event published by the runner, once per completed test
	EventTest = "test"

	// AutoConcurrency sizes the concurrent group from the CPU count
	AutoConcurrency = -1

	// MaxReasonableConcurrency caps auto-determined concurrency to avoid resource exhaustion
	MaxReasonableConcurrency = 32

	// hookTitleFormat names a beforeEach/afterEach execution after the test it brackets
	hookTitleFormat = "%s for %s"

	tracerName = "op-harness runner"
)
