package testcase

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-hwval/types"
)

// StepOutcome is the result of a single step: success or failure, with a message
type StepOutcome struct {
	Passed  bool
	Message string
}

// Succeed returns a passing StepOutcome
func Succeed(msg string) StepOutcome {
	return StepOutcome{Passed: true, Message: msg}
}

// Fail returns a failing StepOutcome. A failing step halts the test case.
func Fail(msg string) StepOutcome {
	return StepOutcome{Passed: false, Message: msg}
}

// Step is a named unit of work within a test case
type Step struct {
	Name string
	Run  func(ctx context.Context) StepOutcome
}

// Outcome is the aggregated result of running a sequence of steps
type Outcome struct {
	Steps []types.StepReport
}

// Passed reports whether every executed step passed
func (o Outcome) Passed() bool {
	for _, s := range o.Steps {
		if !s.Passed {
			return false
		}
	}
	return true
}

// Message returns the message of the failing step, or of the last step on success
func (o Outcome) Message() string {
	for _, s := range o.Steps {
		if !s.Passed {
			return s.Message
		}
	}
	if len(o.Steps) == 0 {
		return ""
	}
	return o.Steps[len(o.Steps)-1].Message
}

// RunSteps executes steps in order and stops at the first failure. A
// cancelled context fails the step that was about to run.
func RunSteps(ctx context.Context, logger log.Logger, steps []Step) Outcome {
	var outcome Outcome
	for _, step := range steps {
		start := time.Now()
		var res StepOutcome
		if err := ctx.Err(); err != nil {
			res = Fail("aborted: " + err.Error())
		} else {
			res = step.Run(ctx)
		}
		outcome.Steps = append(outcome.Steps, types.StepReport{
			Name:     step.Name,
			Passed:   res.Passed,
			Message:  res.Message,
			Duration: time.Since(start),
		})
		if !res.Passed {
			logger.Error("Step failed", "step", step.Name, "message", res.Message)
			return outcome
		}
		logger.Info("Step passed", "step", step.Name, "message", res.Message)
	}
	return outcome
}
