// Package testcase provides the building blocks of hardware validation test
// cases: result-typed steps, the execution environment handed to a test case,
// and the catalog mapping descriptor kinds to implementations.
package testcase

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-hwval/config"
	"github.com/ethereum-optimism/infra/op-hwval/sut"
	"github.com/ethereum-optimism/infra/op-hwval/types"
)

// TestCase is a loaded, runnable test case module
type TestCase interface {
	// Run executes the test case's steps. Step failures are reported in the
	// Outcome; a returned error means the test case could not run at all.
	Run(ctx context.Context, env *Env) (Outcome, error)
}

// Env is everything a test case may use while running
type Env struct {
	Descriptor types.TestCaseDescriptor
	Config     *config.Config
	Connector  sut.Connector
	Log        log.Logger
	LogDir     string // Directory for artifacts captured by this test case
	Sleep      func(ctx context.Context, d time.Duration) error
}

// Wait sleeps for d using env.Sleep, honoring cancellation
func (e *Env) Wait(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

// Sleep blocks for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
