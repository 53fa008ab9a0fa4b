// Package reporting assembles the result document of a run, persists it and
// renders it for humans.
package reporting

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-hwval/types"
)

// TimestampFormat is the layout of the run timestamp used in documents and report names
const TimestampFormat = "20060102_150405"

// Meta is the run level information carried by a result document
type Meta struct {
	RunID         string
	Timestamp     string
	ExecutionType string
	ExternalData  json.RawMessage
	Config        *types.RunConfigSnapshot
}

// Document accumulates the records of a run in memory. Suites keep the order
// in which they were first seen and records keep insertion order.
type Document struct {
	doc    *types.ResultDocument
	suites map[string]*types.SuiteResult
	ids    map[string]bool
	log    log.Logger
}

// NewDocument creates an empty document for a run
func NewDocument(meta Meta, logger log.Logger) *Document {
	if logger == nil {
		logger = log.NewLogger(log.DiscardHandler())
	}
	return &Document{
		doc: &types.ResultDocument{
			RunID:         meta.RunID,
			Timestamp:     meta.Timestamp,
			ExecutionType: meta.ExecutionType,
			ExternalData:  meta.ExternalData,
			Config:        meta.Config,
			Results:       []*types.SuiteResult{},
		},
		suites: make(map[string]*types.SuiteResult),
		ids:    make(map[string]bool),
		log:    logger,
	}
}

// AddRecords appends executed records
func (d *Document) AddRecords(records ...*types.TestResult) {
	for _, rec := range records {
		if rec == nil {
			continue
		}
		d.add(rec)
	}
}

// MergeInvalid appends one record per invalid test case. A test case whose
// identifier is already in the document keeps its existing record; such
// overlaps are logged and returned.
func (d *Document) MergeInvalid(invalid []types.InvalidTest) []string {
	var overlaps []string
	for _, it := range invalid {
		if d.Has(it.TestCase) {
			d.log.Warn("Invalid test case already has a record, keeping the existing one",
				"testcase", it.TestCase, "reason", it.Reason)
			overlaps = append(overlaps, it.TestCase)
			continue
		}
		d.add(it.Record())
	}
	return overlaps
}

func (d *Document) add(rec *types.TestResult) {
	suite, ok := d.suites[rec.Suite]
	if !ok {
		suite = &types.SuiteResult{Suite: rec.Suite, Tests: []*types.TestResult{}}
		d.suites[rec.Suite] = suite
		d.doc.Results = append(d.doc.Results, suite)
	}
	suite.Tests = append(suite.Tests, rec)
	d.ids[rec.TestCase] = true
	d.doc.Summary.Add(rec.Status)
}

// Has reports whether a record for testCase exists
func (d *Document) Has(testCase string) bool {
	return d.ids[testCase]
}

// Result returns the assembled result document
func (d *Document) Result() *types.ResultDocument {
	return d.doc
}
