package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-hwval/types"
	"github.com/ethereum-optimism/infra/op-hwval/ui"
)

const (
	RunDirectoryPrefix = "testrun-" // Standardized prefix for run directories
	AllLogsFilename    = "all.log"
	SummaryFilename    = "summary.log"
	PassedDirName      = "passed"
	FailedDirName      = "failed"

	boxWidth = 75
)

// ResultSink is an interface for different ways of consuming test results
type ResultSink interface {
	// Consume processes a single test result
	Consume(result *types.TestResult) error
	// Complete is called when all results have been consumed
	Complete() error
}

// FileLogger owns the per-run log directory:
//
//	<baseDir>/testrun-<runID>/
//	  all.log          every record, in execution order
//	  summary.log      run summary
//	  <testcase>.log   structured log of a single test case
//	  <testcase>/      artifacts captured by the test case
//	  passed/ failed/  one result file per test case
//
// A test case id that runs more than once gets a "-<n>" suffix on its
// files from the second execution on.
type FileLogger struct {
	baseDir      string                // Base directory for logs
	logDir       string                // Directory of this run
	mu           sync.Mutex            // Protects asyncWriters and executions
	sinks        []ResultSink          // Collection of result consumers
	asyncWriters map[string]*AsyncFile // Map of async file writers
	executions   map[string]int        // Executions started per test case id
	runID        string                // Current run ID
}

// AsyncFile provides non-blocking file writing capabilities
type AsyncFile struct {
	file    *os.File
	queue   chan []byte
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewAsyncFile creates a new AsyncFile for non-blocking writes
func NewAsyncFile(path string) (*AsyncFile, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}

	af := &AsyncFile{
		file:  file,
		queue: make(chan []byte, 100),
	}
	af.wg.Add(1)
	go af.processQueue()
	return af, nil
}

// Write queues data to be written asynchronously
func (af *AsyncFile) Write(data []byte) error {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.stopped {
		return fmt.Errorf("async file is closed")
	}
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	af.queue <- dataCopy
	return nil
}

func (af *AsyncFile) processQueue() {
	defer af.wg.Done()
	for data := range af.queue {
		if _, err := af.file.Write(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing to file: %v\n", err)
		}
	}
}

// Close stops the async writer and closes the file
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if !af.stopped {
		af.stopped = true
		close(af.queue)
	}
	af.mu.Unlock()

	af.wg.Wait()
	return af.file.Close()
}

// NewFileLogger creates the run directory for runID under baseDir
func NewFileLogger(baseDir string, runID string) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	for _, dir := range []string{
		logDir,
		filepath.Join(logDir, PassedDirName),
		filepath.Join(logDir, FailedDirName),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	l := &FileLogger{
		baseDir:      baseDir,
		logDir:       logDir,
		asyncWriters: make(map[string]*AsyncFile),
		executions:   make(map[string]int),
		runID:        runID,
	}
	l.sinks = []ResultSink{
		&AllLogsFileSink{logger: l},
		&PerTestFileSink{logger: l},
	}
	return l, nil
}

func (l *FileLogger) getAsyncWriter(path string) (*AsyncFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if writer, exists := l.asyncWriters[path]; exists {
		return writer, nil
	}
	writer, err := NewAsyncFile(path)
	if err != nil {
		return nil, err
	}
	l.asyncWriters[path] = writer
	return writer, nil
}

func (l *FileLogger) closeAllWriters() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, writer := range l.asyncWriters {
		_ = writer.Close()
	}
	l.asyncWriters = make(map[string]*AsyncFile)
}

// GetRunID returns the current runID
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// GetBaseDir returns the directory of this run
func (l *FileLogger) GetBaseDir() string {
	return l.logDir
}

// GetAllLogsFile returns the path to the combined log file
func (l *FileLogger) GetAllLogsFile() string {
	return filepath.Join(l.logDir, AllLogsFilename)
}

// GetSummaryFile returns the path to the summary file
func (l *FileLogger) GetSummaryFile() string {
	return filepath.Join(l.logDir, SummaryFilename)
}

// StartTestCase begins a new execution of testCase and returns the file name
// stem its per-test files use until the next StartTestCase for the same id.
func (l *FileLogger) StartTestCase(testCase string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.executions[testCase]++
	return l.fileStemLocked(testCase)
}

func (l *FileLogger) fileStem(testCase string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fileStemLocked(testCase)
}

func (l *FileLogger) fileStemLocked(testCase string) string {
	stem := safeFilename(testCase)
	if n := l.executions[testCase]; n > 1 {
		stem = fmt.Sprintf("%s-%d", stem, n)
	}
	return stem
}

// TestCaseLogFile returns the path of the structured log of the latest
// execution of a test case
func (l *FileLogger) TestCaseLogFile(testCase string) string {
	return filepath.Join(l.logDir, l.fileStem(testCase)+".log")
}

// TestCaseDir creates and returns the artifact directory of the latest
// execution of a test case
func (l *FileLogger) TestCaseDir(testCase string) (string, error) {
	dir := filepath.Join(l.logDir, l.fileStem(testCase))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return dir, nil
}

// TestCaseLogger returns a logger writing to the test case's log file and,
// when parent is non-nil, to parent as well. The returned close function
// must be called once the test case is done.
func (l *FileLogger) TestCaseLogger(testCase string, level slog.Level, parent log.Logger) (log.Logger, func() error, error) {
	f, err := os.Create(l.TestCaseLogFile(testCase))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log file for %s: %w", testCase, err)
	}
	var h slog.Handler = log.NewTerminalHandlerWithLevel(f, level, false)
	if parent != nil {
		h = slog.NewMultiHandler(parent.Handler(), h)
	}
	return log.NewLogger(h), f.Close, nil
}

// LogTestResult processes a test result through all registered sinks
func (l *FileLogger) LogTestResult(result *types.TestResult) error {
	for _, sink := range l.sinks {
		if err := sink.Consume(result); err != nil {
			return fmt.Errorf("error in sink: %w", err)
		}
	}
	return nil
}

// LogSummary writes a summary of the test run to summary.log
func (l *FileLogger) LogSummary(summary string) error {
	writer, err := l.getAsyncWriter(l.GetSummaryFile())
	if err != nil {
		return err
	}
	return writer.Write([]byte(stripansi.Strip(summary)))
}

// Complete finalizes all sinks and closes all file writers
func (l *FileLogger) Complete() error {
	defer l.closeAllWriters()
	for _, sink := range l.sinks {
		if err := sink.Complete(); err != nil {
			return fmt.Errorf("error completing sink: %w", err)
		}
	}
	return nil
}

// safeFilename converts a string to a safe filename by replacing problematic characters
func safeFilename(s string) string {
	r := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	s = r.Replace(s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

// AllLogsFileSink writes all test results to a single "all.log" file
type AllLogsFileSink struct {
	logger *FileLogger
}

// Consume appends a test result to all.log
func (s *AllLogsFileSink) Consume(result *types.TestResult) error {
	writer, err := s.logger.getAsyncWriter(s.logger.GetAllLogsFile())
	if err != nil {
		return err
	}

	var content strings.Builder
	content.WriteString("\n")
	content.WriteString(ui.BuildBoxHeader("TEST: "+result.TestCase, boxWidth))
	content.WriteString(ui.BuildBoxLine("Status:   "+string(result.Status), boxWidth))
	content.WriteString(ui.BuildBoxLine("Name:     "+result.Description, boxWidth))
	content.WriteString(ui.BuildBoxLine("Suite:    "+result.Suite, boxWidth))
	content.WriteString(ui.BuildBoxLine("Duration: "+formatDuration(result.Duration), boxWidth))
	content.WriteString(ui.BuildBoxFooter(boxWidth))
	content.WriteString("\n")
	writeResultBody(&content, result)
	fmt.Fprintf(&content, "\n")

	return writer.Write([]byte(content.String()))
}

// Complete is a no-op for AllLogsFileSink
func (s *AllLogsFileSink) Complete() error {
	return nil
}

// PerTestFileSink writes one result file per test case into the passed or failed directory
type PerTestFileSink struct {
	logger *FileLogger
}

// Consume writes the result file of a single test case
func (s *PerTestFileSink) Consume(result *types.TestResult) error {
	dir := FailedDirName
	if result.Status == types.TestStatusPassed {
		dir = PassedDirName
	}
	path := filepath.Join(s.logger.logDir, dir, s.logger.fileStem(result.TestCase)+".txt")

	var content strings.Builder
	fmt.Fprintf(&content, "TEST: %s\n", result.TestCase)
	fmt.Fprintf(&content, "NAME: %s\n", result.Description)
	fmt.Fprintf(&content, "STATUS: %s\n", result.Status)
	fmt.Fprintf(&content, "DURATION: %s\n\n", formatDuration(result.Duration))
	writeResultBody(&content, result)

	if err := os.WriteFile(path, []byte(content.String()), 0644); err != nil {
		return fmt.Errorf("failed to write result file %s: %w", path, err)
	}
	return nil
}

// Complete is a no-op for PerTestFileSink
func (s *PerTestFileSink) Complete() error {
	return nil
}

func writeResultBody(b *strings.Builder, result *types.TestResult) {
	if len(result.Steps) > 0 {
		fmt.Fprintf(b, "STEPS:\n")
		fmt.Fprintf(b, "~~~~~~\n")
		nodes := make([]ui.TreeNode, 0, len(result.Steps))
		for _, step := range result.Steps {
			mark := "PASS"
			if !step.Passed {
				mark = "FAIL"
			}
			node := ui.TreeNode{Label: fmt.Sprintf("[%s] %s (%s)", mark, step.Name, formatDuration(step.Duration))}
			if step.Message != "" {
				node.Details = strings.Split(stripansi.Strip(step.Message), "\n")
			}
			nodes = append(nodes, node)
		}
		b.WriteString(ui.BuildTree(nodes))
		fmt.Fprintf(b, "\n")
	}
	if result.Message != "" {
		fmt.Fprintf(b, "MESSAGE:\n")
		fmt.Fprintf(b, "~~~~~~~~\n")
		fmt.Fprintf(b, "%s\n", stripansi.Strip(result.Message))
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}
