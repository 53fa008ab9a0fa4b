package runner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-hwval/config"
	"github.com/ethereum-optimism/infra/op-hwval/logging"
	"github.com/ethereum-optimism/infra/op-hwval/metrics"
	"github.com/ethereum-optimism/infra/op-hwval/sut"
	"github.com/ethereum-optimism/infra/op-hwval/testcase"
	"github.com/ethereum-optimism/infra/op-hwval/types"
)

// Result captures the outcome of a complete run
type Result struct {
	RunID    string
	Records  []*types.TestResult // Executed test cases, in execution order
	Invalid  []types.InvalidTest // Test cases that could not be loaded
	Duration time.Duration
}

// Summary counts the executed and invalid test cases of the run
func (r *Result) Summary() types.ResultSummary {
	var s types.ResultSummary
	for _, rec := range r.Records {
		s.Add(rec.Status)
	}
	for range r.Invalid {
		s.Add(types.TestStatusInvalid)
	}
	return s
}

// TestRunner defines the interface for running hardware validation test cases
type TestRunner interface {
	RunAllTests(ctx context.Context) (*Result, error)
	RunTest(ctx context.Context, desc types.TestCaseDescriptor) (*types.TestResult, *types.InvalidTest)
}

// Config holds configuration for creating a new runner
type Config struct {
	TestCases     []types.TestCaseDescriptor
	Catalog       *testcase.Catalog
	Connector     sut.Connector
	BaseConfig    *config.Config      // Global INI configuration, overlaid by per-test files
	FileLogger    *logging.FileLogger // Per-run log directory, also provides the run ID
	Log           log.Logger
	TestLogLevel  slog.Level // Level of the per-test-case log files
	ExecutionType string
	Progress      ProgressIndicator
	// Sleep overrides the wait used by test cases. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

type runner struct {
	testCases     []types.TestCaseDescriptor
	catalog       *testcase.Catalog
	connector     sut.Connector
	baseConfig    *config.Config
	fileLogger    *logging.FileLogger
	log           log.Logger
	testLogLevel  slog.Level
	executionType string
	progress      ProgressIndicator
	sleep         func(ctx context.Context, d time.Duration) error
	tracer        trace.Tracer
}

// NewTestRunner creates a new test runner instance
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.Connector == nil {
		return nil, fmt.Errorf("connector is required")
	}
	if cfg.FileLogger == nil {
		return nil, fmt.Errorf("file logger is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.BaseConfig == nil {
		empty, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg.BaseConfig = empty
	}
	if cfg.Progress == nil {
		cfg.Progress = NewNoOpProgressIndicator()
	}

	cfg.Log.Debug("NewTestRunner()", "testCases", len(cfg.TestCases), "executionType", cfg.ExecutionType,
		"runID", cfg.FileLogger.GetRunID(), "kinds", cfg.Catalog.Kinds())

	return &runner{
		testCases:     cfg.TestCases,
		catalog:       cfg.Catalog,
		connector:     cfg.Connector,
		baseConfig:    cfg.BaseConfig,
		fileLogger:    cfg.FileLogger,
		log:           cfg.Log,
		testLogLevel:  cfg.TestLogLevel,
		executionType: cfg.ExecutionType,
		progress:      cfg.Progress,
		sleep:         cfg.Sleep,
		tracer:        otel.Tracer("test runner"),
	}, nil
}

// RunAllTests loads and executes every test case in order. An error means
// the run itself could not complete; the partial result is discarded.
func (r *runner) RunAllTests(ctx context.Context) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("run_id", r.fileLogger.GetRunID()),
		attribute.Int("testcases", len(r.testCases)),
	))
	defer span.End()

	start := time.Now()
	result := &Result{RunID: r.fileLogger.GetRunID()}
	r.log.Debug("Running all test cases", "run_id", result.RunID)

	r.progress.StartRun(len(r.testCases))
	defer r.progress.CompleteRun()

	for _, desc := range r.testCases {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "run aborted")
			return nil, fmt.Errorf("run aborted before %s: %w", desc.ID, err)
		}
		record, invalid := r.RunTest(ctx, desc)
		if invalid != nil {
			result.Invalid = append(result.Invalid, *invalid)
			continue
		}
		result.Records = append(result.Records, record)
	}
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "run aborted")
		return nil, fmt.Errorf("run aborted: %w", err)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// RunTest loads and executes a single test case. Exactly one of the return
// values is non-nil: the executed record, or the reason the test case is invalid.
func (r *runner) RunTest(ctx context.Context, desc types.TestCaseDescriptor) (*types.TestResult, *types.InvalidTest) {
	tc, cfg, err := r.load(desc)
	if err != nil {
		r.log.Warn("Invalid test case", "testcase", desc.ID, "dir", desc.Dir, "err", err)
		metrics.RecordTestCase(r.executionType, r.fileLogger.GetRunID(), desc.ID, desc.Suite, types.TestStatusInvalid, 0)
		r.progress.UpdateTest(desc.ID, types.TestStatusInvalid)
		return nil, &types.InvalidTest{
			TestCase:    desc.ID,
			Description: desc.GetName(),
			Suite:       desc.Suite,
			Reason:      err,
		}
	}

	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("testcase %s", desc.ID), trace.WithAttributes(
		attribute.String("kind", desc.Kind),
		attribute.String("suite", desc.Suite),
	))
	defer span.End()

	r.progress.StartTest(desc.ID)
	record := r.execute(ctx, desc, tc, cfg)
	r.progress.UpdateTest(desc.ID, record.Status)

	span.SetAttributes(attribute.String("status", record.Status.String()))
	if record.Status != types.TestStatusPassed {
		span.SetStatus(codes.Error, record.Message)
	}
	metrics.RecordTestCase(r.executionType, r.fileLogger.GetRunID(), desc.ID, desc.Suite, record.Status, record.Duration)
	if err := r.fileLogger.LogTestResult(record); err != nil {
		r.log.Error("Error logging test result", "testcase", desc.ID, "err", err)
	}
	return record, nil
}

// load instantiates the test case and resolves its configuration
func (r *runner) load(desc types.TestCaseDescriptor) (testcase.TestCase, *config.Config, error) {
	tc, err := r.catalog.Load(desc)
	if err != nil {
		return nil, nil, err
	}
	cfg := r.baseConfig
	if desc.Config != "" {
		cfg, err = r.baseConfig.Overlay(filepath.Join(desc.Dir, desc.Config))
		if err != nil {
			return nil, nil, fmt.Errorf("loading test case config: %w", err)
		}
	}
	return tc, cfg, nil
}

func (r *runner) execute(ctx context.Context, desc types.TestCaseDescriptor, tc testcase.TestCase, cfg *config.Config) *types.TestResult {
	record := &types.TestResult{
		TestCase:    desc.ID,
		Description: desc.GetName(),
		Suite:       desc.Suite,
		StartedAt:   time.Now(),
	}
	defer func() {
		record.Duration = time.Since(record.StartedAt)
	}()

	r.fileLogger.StartTestCase(desc.ID)
	testLog, closeLog, err := r.fileLogger.TestCaseLogger(desc.ID, r.testLogLevel, r.log)
	if err != nil {
		r.log.Warn("Falling back to the console logger", "testcase", desc.ID, "err", err)
		testLog, closeLog = r.log, func() error { return nil }
	}
	defer func() {
		if err := closeLog(); err != nil {
			r.log.Warn("Failed to close test case log", "testcase", desc.ID, "err", err)
		}
	}()
	testLog = testLog.New("testcase", desc.ID)

	logDir, err := r.fileLogger.TestCaseDir(desc.ID)
	if err != nil {
		record.Status = types.TestStatusError
		record.Message = err.Error()
		return record
	}

	env := &testcase.Env{
		Descriptor: desc,
		Config:     cfg,
		Connector:  r.connector,
		Log:        testLog,
		LogDir:     logDir,
		Sleep:      r.sleep,
	}

	testLog.Info("Starting test case", "name", desc.GetName(), "kind", desc.Kind, "configs", cfg.Sources())
	outcome, err := runTestCase(ctx, tc, env)
	record.Steps = outcome.Steps
	switch {
	case err != nil:
		record.Status = types.TestStatusError
		record.Message = err.Error()
	case !outcome.Passed():
		record.Status = types.TestStatusFailed
		record.Message = outcome.Message()
	default:
		record.Status = types.TestStatusPassed
		record.Message = outcome.Message()
	}
	testLog.Info("Test case finished", "status", record.Status, "message", record.Message)
	return record
}

// runTestCase runs tc, converting a panic into an error so one broken test
// case cannot take down the run
func runTestCase(ctx context.Context, tc testcase.TestCase, env *testcase.Env) (outcome testcase.Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			env.Log.Error("Panic in test case", "panic", rec, "stack", string(debug.Stack()))
			err = fmt.Errorf("runtime error: %v", rec)
		}
	}()
	return tc.Run(ctx, env)
}
