package reporting

import (
	"bytes"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-hwval/templates"
	"github.com/ethereum-optimism/infra/op-hwval/types"
)

// ResultsTable formats the document as a console table, one row per record
// grouped by suite, with the run totals in the footer. Records that did not
// pass name the first step that failed.
func ResultsTable(doc *types.ResultDocument, title string) string {
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle(title)

	t.AppendHeader(table.Row{"Suite", "Test case", "Description", "Duration", "Status", "Failed step", "Message"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Suite", AutoMerge: true},
		{Name: "Description", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Failed step", WidthMax: 30, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Message", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, suite := range doc.Results {
		for _, rec := range suite.Tests {
			duration := "-"
			if !rec.Invalid {
				duration = templates.FormatDuration(rec.Duration)
			}
			failedStep := ""
			if step := rec.FailedStep(); step != nil {
				failedStep = step.Name
			}
			t.AppendRow(table.Row{
				suite.Suite,
				rec.TestCase,
				rec.Description,
				duration,
				templates.StatusText(rec.Status),
				failedStep,
				rec.Message,
			})
		}
		t.AppendSeparator()
	}

	s := doc.Summary
	switch {
	case s.Failed > 0 || s.Errored > 0:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case s.Invalid > 0:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		s.Total,
		"",
		"",
		"",
		"",
		summaryText(s),
	})

	t.Render()
	return buf.String()
}

func summaryText(s types.ResultSummary) string {
	return fmt.Sprintf("%d passed, %d failed, %d error, %d invalid", s.Passed, s.Failed, s.Errored, s.Invalid)
}
