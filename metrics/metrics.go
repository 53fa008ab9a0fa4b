package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/op-hwval/types"
)

const (
	MetricsNamespace = "hwval"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testCasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "testcases_total",
		Help:      "Count of test case results",
	}, []string{
		"execution_type",
		"run_id",
		"testcase",
		"suite",
		"result",
	})

	testCaseDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "testcase_duration_seconds",
		Help:      "Duration of a single test case",
	}, []string{
		"execution_type",
		"run_id",
		"testcase",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Number of test cases per result in a run",
	}, []string{
		"execution_type",
		"run_id",
		"result",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of a test run",
	}, []string{
		"execution_type",
		"run_id",
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

// RecordTestCase records the result of a single test case
func RecordTestCase(executionType, runID, testCase, suite string, result types.TestStatus, duration time.Duration) {
	if !result.IsValid() {
		log.Error("RecordTestCase - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "testcases_total",
			"execution_type", executionType,
			"run_id", runID,
			"testcase", testCase,
			"suite", suite,
			"result", result)
	}
	testCasesTotal.WithLabelValues(executionType, runID, testCase, suite, string(result)).Inc()
	testCaseDuration.WithLabelValues(executionType, runID, testCase).Set(duration.Seconds())
}

// RecordRun records the aggregated results of a run
func RecordRun(executionType, runID string, summary types.ResultSummary, duration time.Duration) {
	runResults.WithLabelValues(executionType, runID, string(types.TestStatusPassed)).Set(float64(summary.Passed))
	runResults.WithLabelValues(executionType, runID, string(types.TestStatusFailed)).Set(float64(summary.Failed))
	runResults.WithLabelValues(executionType, runID, string(types.TestStatusError)).Set(float64(summary.Errored))
	runResults.WithLabelValues(executionType, runID, string(types.TestStatusInvalid)).Set(float64(summary.Invalid))
	runDuration.WithLabelValues(executionType, runID).Set(duration.Seconds())
}
