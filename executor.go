package hwval

import (
	"context"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-hwval/runner"
)

// TestExecutor is responsible for running tests.
type TestExecutor interface {
	RunTests(ctx context.Context) (*runner.Result, error)
}

// DefaultTestExecutor implements the TestExecutor interface.
type DefaultTestExecutor struct {
	runner runner.TestRunner
	logger log.Logger
}

// NewDefaultTestExecutor creates a new DefaultTestExecutor.
func NewDefaultTestExecutor(runner runner.TestRunner, logger log.Logger) *DefaultTestExecutor {
	return &DefaultTestExecutor{
		runner: runner,
		logger: logger,
	}
}

// RunTests runs all tests and returns the results.
func (e *DefaultTestExecutor) RunTests(ctx context.Context) (*runner.Result, error) {
	e.logger.Info("Running all test cases...")
	result, err := e.runner.RunAllTests(ctx)
	if err != nil {
		e.logger.Error("Error running test cases", "error", err)
		return nil, err
	}
	e.logger.Info("Test run completed", "run_id", result.RunID,
		"executed", len(result.Records), "invalid", len(result.Invalid), "duration", result.Duration)
	return result, nil
}
