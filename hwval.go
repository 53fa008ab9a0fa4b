// Package hwval runs hardware validation test cases against a system under
// test and produces a JSON result document plus an HTML report.
package hwval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/op-hwval/config"
	"github.com/ethereum-optimism/infra/op-hwval/logging"
	"github.com/ethereum-optimism/infra/op-hwval/registry"
	"github.com/ethereum-optimism/infra/op-hwval/reporting"
	"github.com/ethereum-optimism/infra/op-hwval/runner"
	"github.com/ethereum-optimism/infra/op-hwval/service"
	"github.com/ethereum-optimism/infra/op-hwval/sut"
	"github.com/ethereum-optimism/infra/op-hwval/sut/racadm"
	"github.com/ethereum-optimism/infra/op-hwval/testcase"
	"github.com/ethereum-optimism/infra/op-hwval/types"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

// hwval implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &hwval{}

// hwval executes one validation run and writes its report.
type hwval struct {
	config  *Config
	version string

	catalog   *testcase.Catalog
	connector sut.Connector
	reporter  MetricsReporter
	service   *service.Service
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
	out       io.Writer

	running  atomic.Bool
	document *types.ResultDocument
	jsonPath string
	htmlPath string

	shutdownCallback func(error) // Callback to signal application shutdown
}

// Option customizes a run
type Option func(*hwval)

// WithCatalog replaces the built-in test case catalog
func WithCatalog(c *testcase.Catalog) Option {
	return func(h *hwval) { h.catalog = c }
}

// WithConnector replaces the SSH racadm connector
func WithConnector(c sut.Connector) Option {
	return func(h *hwval) { h.connector = c }
}

// WithReporter replaces the Prometheus run reporter
func WithReporter(r MetricsReporter) Option {
	return func(h *hwval) { h.reporter = r }
}

// WithService attaches background servers that are shut down on Stop
func WithService(s *service.Service) Option {
	return func(h *hwval) { h.service = s }
}

// WithSleep overrides the wait used by test cases
func WithSleep(f func(ctx context.Context, d time.Duration) error) Option {
	return func(h *hwval) { h.sleep = f }
}

// WithClock overrides the clock used for the run timestamp
func WithClock(now func() time.Time) Option {
	return func(h *hwval) { h.now = now }
}

// WithOutput sets where the console results table is printed
func WithOutput(w io.Writer) Option {
	return func(h *hwval) { h.out = w }
}

// New creates the run lifecycle. The run itself happens in Start.
func New(config *Config, version string, shutdownCallback func(error), opts ...Option) (*hwval, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		return nil, errors.New("config logger is required")
	}

	config.Log.Debug("Creating hwval with config",
		"testDir", config.TestDir,
		"configFile", config.ConfigFile,
		"logDir", config.LogDir,
		"executionType", config.ExecutionType,
		"reservedSuffix", config.ReservedSuffix)

	h := &hwval{
		config:   config,
		version:  version,
		catalog:  DefaultCatalog(),
		reporter: NewDefaultMetricsReporter(),
		now:      time.Now,
		out:      os.Stdout,
		connector: &racadm.Connector{
			Log:          config.Log,
			DialTimeout:  config.SSHDialTimeout,
			PollInterval: config.PollInterval,
		},
		shutdownCallback: shutdownCallback,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Start performs the run and then requests application shutdown.
// Start implements the cliapp.Lifecycle interface.
func (h *hwval) Start(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.config.Log.Error("Runtime error occurred", "error", r)
			h.running.Store(false)
			err = NewRuntimeError(fmt.Errorf("panic: %v", r))
		}
	}()

	h.running.Store(true)
	h.config.Log.Info("Starting op-hwval", "version", h.version)

	if err := h.run(ctx); err != nil {
		h.config.Log.Error("Runtime error running test cases", "error", err)
		h.running.Store(false)
		return NewRuntimeError(err)
	}

	h.config.Log.Info("Run completed, exiting")
	if h.shutdownCallback != nil {
		go h.shutdownCallback(nil)
	}
	return nil
}

// run discovers, executes and reports. Any error is fatal: nothing is merged
// or rendered after it.
func (h *hwval) run(ctx context.Context) error {
	cfg := h.config
	runID := uuid.New().String()
	timestamp := h.now().Format(reporting.TimestampFormat)

	fileLogger, err := logging.NewFileLogger(cfg.LogDir, runID)
	if err != nil {
		return fmt.Errorf("creating run log directory: %w", err)
	}
	defer func() {
		if err := fileLogger.Complete(); err != nil {
			cfg.Log.Error("Error completing run logs", "error", err)
		}
	}()

	reg, err := registry.NewRegistry(registry.Config{
		Log:            cfg.Log,
		TestDir:        cfg.TestDir,
		ReservedSuffix: cfg.ReservedSuffix,
	})
	if err != nil {
		return fmt.Errorf("discovering test cases: %w", err)
	}

	baseConfig, err := config.Load(cfg.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	progress := runner.NewNoOpProgressIndicator()
	if cfg.ShowProgress {
		progress = runner.NewConsoleProgressIndicator(cfg.Log, cfg.ProgressInterval)
	}

	testRunner, err := runner.NewTestRunner(runner.Config{
		TestCases:     reg.GetTestCases(),
		Catalog:       h.catalog,
		Connector:     h.connector,
		BaseConfig:    baseConfig,
		FileLogger:    fileLogger,
		Log:           cfg.Log,
		TestLogLevel:  cfg.TestLogLevel,
		ExecutionType: cfg.ExecutionType,
		Progress:      progress,
		Sleep:         h.sleep,
	})
	if err != nil {
		return fmt.Errorf("creating test runner: %w", err)
	}

	result, err := NewDefaultTestExecutor(testRunner, cfg.Log).RunTests(ctx)
	if err != nil {
		return err
	}

	doc := reporting.NewDocument(reporting.Meta{
		RunID:         runID,
		Timestamp:     timestamp,
		ExecutionType: cfg.ExecutionType,
		ExternalData:  cfg.ExternalData,
		Config:        cfg.Snapshot(),
	}, cfg.Log)
	doc.AddRecords(result.Records...)
	if overlaps := doc.MergeInvalid(result.Invalid); len(overlaps) > 0 {
		cfg.Log.Warn("Invalid test cases overlapping executed records were not merged", "testcases", overlaps)
	}

	jsonPath, htmlPath := reporting.ReportPaths(cfg.LogDir, timestamp, cfg.TimestampReport)
	if err := reporting.WriteDocument(jsonPath, doc.Result()); err != nil {
		return fmt.Errorf("writing result document: %w", err)
	}
	if err := reporting.RenderReport(jsonPath, htmlPath); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	h.document = doc.Result()
	h.jsonPath, h.htmlPath = jsonPath, htmlPath

	title := fmt.Sprintf("Hardware Validation Results (%s)", result.Duration.Round(time.Millisecond))
	table := reporting.ResultsTable(h.document, title)
	fmt.Fprintln(h.out, table)
	if err := fileLogger.LogSummary(table); err != nil {
		cfg.Log.Error("Error writing run summary", "error", err)
	}

	h.reporter.ReportResults(cfg.ExecutionType, runID, h.document.Summary, result.Duration)

	cfg.Log.Info("Report written",
		"run_id", runID,
		"json", jsonPath,
		"html", htmlPath,
		"logs", fileLogger.GetBaseDir(),
		"total", h.document.Summary.Total,
		"passed", h.document.Summary.Passed,
		"failed", h.document.Summary.Failed,
		"errored", h.document.Summary.Errored,
		"invalid", h.document.Summary.Invalid)
	return nil
}

// Stop shuts down the background servers.
// Stop implements the cliapp.Lifecycle interface.
func (h *hwval) Stop(ctx context.Context) error {
	h.config.Log.Info("Stopping op-hwval")
	if h.service != nil {
		h.service.Shutdown()
	}
	h.running.Store(false)
	return nil
}

// Stopped returns true if the run is not in progress.
// Stopped implements the cliapp.Lifecycle interface.
func (h *hwval) Stopped() bool {
	return !h.running.Load()
}

// Document returns the result document of the completed run, nil before
// completion or after a fatal error
func (h *hwval) Document() *types.ResultDocument {
	return h.document
}

// ReportPaths returns the JSON and HTML report paths of the completed run
func (h *hwval) ReportPaths() (jsonPath, htmlPath string) {
	return h.jsonPath, h.htmlPath
}
