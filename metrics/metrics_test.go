package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum-optimism/infra/op-harness/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestErrToLabel(t *testing.T) {
	assert.Equal(t, "nil", errToLabel(nil))
	assert.Equal(t, "connection_refused", errToLabel(errors.New("connection refused!")))
	assert.Equal(t, "dial_tcp_", errToLabel(errors.New("dial tcp: 127.0.0.1:80")))
}

func TestRecordOutcome(t *testing.T) {
	counter := outcomesTotal.WithLabelValues(KindHook, "beforeEach", "fail")
	start := testutil.ToFloat64(counter)

	RecordOutcome(types.Outcome{
		Title:    "beforeEach1 for test1",
		Type:     types.TypeBeforeEach,
		Status:   types.TestStatusFail,
		Duration: 10 * time.Millisecond,
	})
	assert.Equal(t, start+1, testutil.ToFloat64(counter))

	// invalid results are dropped
	RecordOutcome(types.Outcome{Title: "bogus", Type: types.TypeBeforeEach, Status: "unknown"})
	assert.Equal(t, start+1, testutil.ToFloat64(counter))
}

func TestRecordRun(t *testing.T) {
	RecordRun("metrics-suite", types.TestStatusFail, 3, 1, 2, 1500*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(runsTotal.WithLabelValues("metrics-suite", "fail")))
	assert.Equal(t, float64(3), testutil.ToFloat64(runTests.WithLabelValues("metrics-suite", "pass")))
	assert.Equal(t, float64(1), testutil.ToFloat64(runTests.WithLabelValues("metrics-suite", "fail")))
	assert.Equal(t, float64(2), testutil.ToFloat64(runTests.WithLabelValues("metrics-suite", "skip")))
	assert.Equal(t, 1.5, testutil.ToFloat64(runDuration.WithLabelValues("metrics-suite")))
}

func TestInFlight(t *testing.T) {
	start := testutil.ToFloat64(testsInFlight)
	IncTestsInFlight()
	IncTestsInFlight()
	assert.Equal(t, start+2, testutil.ToFloat64(testsInFlight))
	DecTestsInFlight()
	DecTestsInFlight()
	assert.Equal(t, start, testutil.ToFloat64(testsInFlight))
}
