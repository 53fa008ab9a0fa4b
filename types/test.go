package types

import (
	"fmt"
	"time"
)

// TestStatus represents the possible outcomes of a test case
type TestStatus string

const (
	TestStatusPassed  TestStatus = "passed"
	TestStatusFailed  TestStatus = "failed"
	TestStatusError   TestStatus = "error"
	TestStatusInvalid TestStatus = "invalid"
)

// String implements the Stringer interface for TestStatus
func (s TestStatus) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known statuses
func (s TestStatus) IsValid() bool {
	switch s {
	case TestStatusPassed, TestStatusFailed, TestStatusError, TestStatusInvalid:
		return true
	default:
		return false
	}
}

// StepReport captures the outcome of a single named step of a test case
type StepReport struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

// TestResult is the record written for every test case, executed or invalid
type TestResult struct {
	TestCase    string        `json:"testcase"`
	Description string        `json:"description"`
	Status      TestStatus    `json:"status"`
	Message     string        `json:"message,omitempty"`
	Invalid     bool          `json:"invalid,omitempty"`
	Suite       string        `json:"suite,omitempty"`
	Steps       []StepReport  `json:"steps,omitempty"`
	StartedAt   time.Time     `json:"started_at,omitzero"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// InvalidTest identifies a test case that could not be loaded
type InvalidTest struct {
	TestCase    string
	Description string
	Suite       string
	Reason      error
}

// Record converts the invalid test into the record appended to the result document
func (it InvalidTest) Record() *TestResult {
	msg := ""
	if it.Reason != nil {
		msg = it.Reason.Error()
	}
	return &TestResult{
		TestCase:    it.TestCase,
		Description: it.Description,
		Status:      TestStatusInvalid,
		Message:     msg,
		Invalid:     true,
		Suite:       it.Suite,
	}
}

// FailedStep returns the first step that did not pass, or nil
func (tr *TestResult) FailedStep() *StepReport {
	for i := range tr.Steps {
		if !tr.Steps[i].Passed {
			return &tr.Steps[i]
		}
	}
	return nil
}

// String returns a short one-line description of the result
func (tr *TestResult) String() string {
	if tr.Message == "" {
		return fmt.Sprintf("%s [%s]", tr.TestCase, tr.Status)
	}
	return fmt.Sprintf("%s [%s]: %s", tr.TestCase, tr.Status, tr.Message)
}
