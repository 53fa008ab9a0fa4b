package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ethereum-optimism/infra/op-hwval/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "nil error", err: nil},
		{name: "simple error", err: errors.New("test error")},
		{name: "error with special chars", err: errors.New("test@error#123")},
		{name: "error with multiple spaces", err: errors.New("test   error")},
		{name: "error with multiple underscores", err: errors.New("test__error")},
	}

	validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			assert.Regexp(t, validLabelRegex, result)
		})
	}
}

func TestRecordErrorDetails(t *testing.T) {
	RecordErrorDetails("test", nil)
	RecordErrorDetails("test", errors.New("sample error"))
	assert.Equal(t, float64(1), testutil.ToFloat64(errorsTotal.WithLabelValues("test.sample_error")))
}

func TestRecordTestCase(t *testing.T) {
	RecordTestCase("Native", "run1", "PBA-TC-102", "bios", types.TestStatusPassed, 2*time.Second)
	RecordTestCase("Native", "run1", "PBA-TC-103", "bios", types.TestStatusFailed, time.Second)
	RecordTestCase("Native", "run1", "PBA-TC-104", "bios", types.TestStatus("bogus"), time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(testCasesTotal.WithLabelValues("Native", "run1", "PBA-TC-102", "bios", "passed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(testCaseDuration.WithLabelValues("Native", "run1", "PBA-TC-102")))
	assert.Equal(t, float64(0), testutil.ToFloat64(testCasesTotal.WithLabelValues("Native", "run1", "PBA-TC-104", "bios", "bogus")))
}

func TestRecordRun(t *testing.T) {
	RecordRun("Native", "run2", types.ResultSummary{Total: 4, Passed: 2, Failed: 1, Invalid: 1}, time.Minute)
	assert.Equal(t, float64(2), testutil.ToFloat64(runResults.WithLabelValues("Native", "run2", "passed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(runResults.WithLabelValues("Native", "run2", "invalid")))
	assert.Equal(t, float64(60), testutil.ToFloat64(runDuration.WithLabelValues("Native", "run2")))
}
