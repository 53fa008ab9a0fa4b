package reporting

import "path/filepath"

const (
	reportBaseName = "report"
)

// ReportPaths returns where the JSON document and HTML report of a run are
// written: report.json and report.html, or report_<timestamp>.* when
// timestamped is set.
func ReportPaths(logDir, timestamp string, timestamped bool) (jsonPath, htmlPath string) {
	name := reportBaseName
	if timestamped && timestamp != "" {
		name += "_" + timestamp
	}
	return filepath.Join(logDir, name+".json"), filepath.Join(logDir, name+".html")
}
