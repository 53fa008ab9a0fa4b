package reporting

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-hwval/types"
)

func sampleMeta() Meta {
	return Meta{
		RunID:         "5b0f7c2e-run",
		Timestamp:     "20200218_101500",
		ExecutionType: "Native",
		ExternalData:  json.RawMessage(`{"ticket":"HW-42"}`),
	}
}

func TestDocumentOrdering(t *testing.T) {
	d := NewDocument(sampleMeta(), testlog.Logger(t, log.LevelInfo))
	d.AddRecords(
		&types.TestResult{TestCase: "TC-1", Suite: "bios", Status: types.TestStatusPassed},
		&types.TestResult{TestCase: "TC-2", Suite: "memory", Status: types.TestStatusFailed},
		nil,
		&types.TestResult{TestCase: "TC-3", Suite: "bios", Status: types.TestStatusError},
	)

	doc := d.Result()
	require.Len(t, doc.Results, 2)
	assert.Equal(t, "bios", doc.Results[0].Suite, "suites in first-seen order")
	assert.Equal(t, "memory", doc.Results[1].Suite)
	require.Len(t, doc.Results[0].Tests, 2)
	assert.Equal(t, "TC-1", doc.Results[0].Tests[0].TestCase)
	assert.Equal(t, "TC-3", doc.Results[0].Tests[1].TestCase)
	assert.Equal(t, types.ResultSummary{Total: 3, Passed: 1, Failed: 1, Errored: 1}, doc.Summary)
	assert.Equal(t, "Native", doc.ExecutionType)
	assert.JSONEq(t, `{"ticket":"HW-42"}`, string(doc.ExternalData))
}

func TestMergeInvalid(t *testing.T) {
	d := NewDocument(sampleMeta(), testlog.Logger(t, log.LevelInfo))
	d.AddRecords(&types.TestResult{TestCase: "TC-1", Suite: "bios", Status: types.TestStatusPassed})

	overlaps := d.MergeInvalid([]types.InvalidTest{
		{TestCase: "TC-2", Description: "broken", Suite: "bios", Reason: errors.New("unknown test case kind \"x\"")},
		{TestCase: "TC-1", Description: "dup", Suite: "bios", Reason: errors.New("dup")},
		{TestCase: "TC-3", Suite: "network", Reason: errors.New("parsing testcase.yaml")},
	})
	assert.Equal(t, []string{"TC-1"}, overlaps)

	all := d.Result().AllTests()
	require.Len(t, all, 3, "no duplicate record for an overlapping identifier")
	assert.Equal(t, "TC-1", all[0].TestCase)
	assert.Equal(t, types.TestStatusPassed, all[0].Status, "existing record wins")
	assert.False(t, all[0].Invalid)

	assert.Equal(t, "TC-2", all[1].TestCase)
	assert.True(t, all[1].Invalid)
	assert.Equal(t, types.TestStatusInvalid, all[1].Status)
	assert.Equal(t, "broken", all[1].Description)

	assert.Equal(t, "TC-3", all[2].TestCase)
	assert.Equal(t, "network", d.Result().Results[1].Suite)
	assert.Equal(t, types.ResultSummary{Total: 3, Passed: 1, Invalid: 2}, d.Result().Summary)
	assert.True(t, d.Has("TC-3"))
}

func TestMergeInvalidAppendsAfterExecuted(t *testing.T) {
	d := NewDocument(sampleMeta(), nil)
	d.AddRecords(
		&types.TestResult{TestCase: "TC-1", Suite: "bios", Status: types.TestStatusPassed},
		&types.TestResult{TestCase: "TC-3", Suite: "bios", Status: types.TestStatusFailed},
	)
	assert.Empty(t, d.MergeInvalid([]types.InvalidTest{{TestCase: "TC-2", Suite: "bios"}}))

	tests := d.Result().Results[0].Tests
	require.Len(t, tests, 3)
	assert.Equal(t, "TC-2", tests[2].TestCase)
}

func TestEmptyDocument(t *testing.T) {
	d := NewDocument(sampleMeta(), nil)
	assert.Empty(t, d.MergeInvalid(nil))

	data, err := json.Marshal(d.Result())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"results":[]`)
	assert.Contains(t, string(data), `"summary":{"total":0,"passed":0,"failed":0,"errored":0,"invalid":0}`)
}
