// Package workflow sequences daemon calls and tree analysis into named,
// ordered automation steps. A run executes its steps on one goroutine; the
// first failing step halts the remainder and the accumulated report says
// which step failed and why. Fallback substitutions never fail a step, they
// mark its result as estimated.
package workflow

import (
	"context"
	"time"

	"github.com/axdrive/axdrive/pkg/rpc"
)

// Result is what a successful step hands back.
type Result struct {
	Data      map[string]any
	Estimated bool
}

// Step is one named unit of a workflow.
type Step struct {
	Name string
	Run  func(ctx context.Context) (Result, error)
}

// Runner executes step sequences. A runner may be reused across runs but
// only one run may be active at a time.
type Runner struct {
	logger rpc.Logger
	state  State
}

// NewRunner constructs an idle runner.
func NewRunner(logger rpc.Logger) *Runner {
	return &Runner{logger: logger, state: StateIdle}
}

// State returns the runner's current lifecycle state.
func (r *Runner) State() State { return r.state }

// Run executes steps in order and returns the accumulated report. A step
// error records the failure and halts the remaining sequence; there is no
// automatic retry and no partial-credit continuation.
func (r *Runner) Run(ctx context.Context, query string, steps []Step) *Report {
	report := &Report{
		RunID:     NewRunID(),
		Query:     query,
		State:     StateRunning,
		StartedAt: time.Now(),
		Steps:     make([]StepResult, 0, len(steps)),
	}
	r.state = StateRunning

	for _, step := range steps {
		if r.logger != nil {
			r.logger.Printf("run %s: step %s", report.RunID, step.Name)
		}
		result, err := step.Run(ctx)
		if err != nil {
			report.Steps = append(report.Steps, StepResult{
				StepName: step.Name,
				Error:    err.Error(),
			})
			report.FailedStep = step.Name
			report.State = StateFailed
			report.FinishedAt = time.Now()
			r.state = StateFailed
			if r.logger != nil {
				r.logger.Printf("run %s: step %s failed: %v", report.RunID, step.Name, err)
			}
			return report
		}
		report.Steps = append(report.Steps, StepResult{
			StepName:  step.Name,
			Succeeded: true,
			Estimated: result.Estimated,
			Extracted: result.Data,
		})
	}

	report.State = StateSucceeded
	report.FinishedAt = time.Now()
	r.state = StateSucceeded
	return report
}
