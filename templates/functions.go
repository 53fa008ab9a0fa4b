// Package templates holds the embedded HTML report template and the functions it uses.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/ethereum-optimism/infra/op-hwval/types"
)

const ReportTemplate = "report.html.tmpl"

//go:embed *.html.tmpl
var templateFS embed.FS

// GetTemplateFunc returns the centralized template functions used across the application
func GetTemplateFunc() template.FuncMap {
	return template.FuncMap{
		"formatDuration": FormatDuration,
		"getStatusClass": func(status types.TestStatus) string {
			return getStatusString(status)
		},
		"getStatusText": func(status types.TestStatus) string {
			return StatusText(status)
		},
		"stepMark": func(passed bool) string {
			if passed {
				return "PASS"
			}
			return "FAIL"
		},
		"add": func(a, b int) int {
			return a + b
		},
		"getOverallStatus": func(s types.ResultSummary) types.TestStatus {
			switch {
			case s.Errored > 0:
				return types.TestStatusError
			case s.Failed > 0:
				return types.TestStatusFailed
			case s.Invalid > 0:
				return types.TestStatusInvalid
			default:
				return types.TestStatusPassed
			}
		},
	}
}

// Report parses the embedded HTML report template
func Report() (*template.Template, error) {
	tmpl, err := template.New(ReportTemplate).Funcs(GetTemplateFunc()).ParseFS(templateFS, ReportTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ReportTemplate, err)
	}
	return tmpl, nil
}

// FormatDuration formats a duration for display
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}

// getStatusString returns a consistent lowercase status string
func getStatusString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPassed:
		return "pass"
	case types.TestStatusFailed:
		return "fail"
	case types.TestStatusError:
		return "error"
	case types.TestStatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// StatusText returns the upper case label of a status
func StatusText(status types.TestStatus) string {
	switch status {
	case types.TestStatusPassed:
		return "PASS"
	case types.TestStatusFailed:
		return "FAIL"
	case types.TestStatusError:
		return "ERROR"
	case types.TestStatusInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}
