package hwval

import (
	"time"

	"github.com/ethereum-optimism/infra/op-hwval/metrics"
	"github.com/ethereum-optimism/infra/op-hwval/types"
)

// MetricsReporter is responsible for reporting metrics from a finished run.
type MetricsReporter interface {
	ReportResults(executionType, runID string, summary types.ResultSummary, duration time.Duration)
}

// DefaultMetricsReporter implements the MetricsReporter interface.
type DefaultMetricsReporter struct{}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter.
func NewDefaultMetricsReporter() *DefaultMetricsReporter {
	return &DefaultMetricsReporter{}
}

// ReportResults reports the run totals to metrics systems.
func (r *DefaultMetricsReporter) ReportResults(executionType, runID string, summary types.ResultSummary, duration time.Duration) {
	metrics.RecordRun(executionType, runID, summary, duration)
}
