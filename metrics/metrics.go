package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-harness/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "harness"

	KindTest = "test"
	KindHook = "hook"
)

var (
	Debug                bool = true
	validResults              = []types.TestStatus{types.TestStatusPass, types.TestStatusFail, types.TestStatusSkip}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "outcomes_total",
		Help:      "Count of hook and test executions by result",
	}, []string{
		"kind",
		"type",
		"result",
	})

	outcomeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "outcome_duration_seconds",
		Help:      "Duration of hook and test executions",
		Buckets:   prometheus.DefBuckets,
	}, []string{
		"kind",
	})

	testsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_in_flight",
		Help:      "Number of tests currently executing",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of completed runs by result",
	}, []string{
		"suite",
		"result",
	})

	runTests = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_tests",
		Help:      "Test counts of the most recent run",
	}, []string{
		"suite",
		"result",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of the most recent run",
	}, []string{
		"suite",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordOutcome counts a single hook or test execution
func RecordOutcome(outcome types.Outcome) {
	if !isValidResult(outcome.Status) {
		log.Error("RecordOutcome - invalid result", "result", outcome.Status)
		return
	}
	kind := KindTest
	if outcome.Type.IsHook() {
		kind = KindHook
	}
	if Debug {
		log.Debug("metric inc",
			"m", "outcomes_total",
			"kind", kind,
			"type", outcome.Type,
			"title", outcome.Title,
			"result", outcome.Status)
	}
	outcomesTotal.WithLabelValues(kind, outcome.Type.String(), string(outcome.Status)).Inc()
	outcomeDuration.WithLabelValues(kind).Observe(outcome.Duration.Seconds())
}

// IncTestsInFlight and DecTestsInFlight track the number of executing tests
func IncTestsInFlight() {
	testsInFlight.Inc()
}

func DecTestsInFlight() {
	testsInFlight.Dec()
}

// RecordRun records the aggregate of a completed run
func RecordRun(
	suite string,
	result types.TestStatus,
	passed int,
	failed int,
	skipped int,
	duration time.Duration,
) {
	runsTotal.WithLabelValues(suite, string(result)).Inc()
	runTests.WithLabelValues(suite, string(types.TestStatusPass)).Set(float64(passed))
	runTests.WithLabelValues(suite, string(types.TestStatusFail)).Set(float64(failed))
	runTests.WithLabelValues(suite, string(types.TestStatusSkip)).Set(float64(skipped))
	runDuration.WithLabelValues(suite).Set(duration.Seconds())
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}
