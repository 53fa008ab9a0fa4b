package types

import "encoding/json"

// ResultSummary holds the per-status counts of a result document
type ResultSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Invalid int `json:"invalid"`
}

// Add counts a single record
func (s *ResultSummary) Add(status TestStatus) {
	s.Total++
	switch status {
	case TestStatusPassed:
		s.Passed++
	case TestStatusFailed:
		s.Failed++
	case TestStatusError:
		s.Errored++
	case TestStatusInvalid:
		s.Invalid++
	}
}

// ResultDocument is the JSON document persisted after a run and rendered to HTML
type ResultDocument struct {
	RunID         string             `json:"run_id"`
	Timestamp     string             `json:"timestamp"`
	ExecutionType string             `json:"execution_type"`
	ExternalData  json.RawMessage    `json:"external_data,omitempty"`
	Config        *RunConfigSnapshot `json:"config,omitempty"`
	Summary       ResultSummary      `json:"summary"`
	Results       []*SuiteResult     `json:"results"`
}

// AllTests returns every record in document order
func (d *ResultDocument) AllTests() []*TestResult {
	var all []*TestResult
	for _, suite := range d.Results {
		all = append(all, suite.Tests...)
	}
	return all
}
