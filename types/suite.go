package types

// SuiteResult is one entry of the result document's results list
type SuiteResult struct {
	Suite string        `json:"suite"`
	Tests []*TestResult `json:"tests"`
}
