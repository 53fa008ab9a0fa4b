// Package exitcodes defines the exit codes used by op-hwval.
package exitcodes

// A run that completes exits with Success even when test cases fail; the
// results are in the report. RuntimeErr means the run itself could not
// complete (missing test directory, unreadable configuration, report write
// failure, interruption) and no report was produced.
const (
	Success    = 0 // Run completed
	RuntimeErr = 1 // Fatal run error
)
