package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
)

// Task is one named link of a chain
type Task struct {
	Name models.StepName
	Run  func(ctx context.Context) error
}

// StepFailure attributes a chain failure to the step that produced it
type StepFailure struct {
	Step models.StepName
	Err  error
}

func (f *StepFailure) Error() string {
	return fmt.Sprintf("step %s failed: %v", f.Step, f.Err)
}

func (f *StepFailure) Unwrap() error {
	return f.Err
}

// Chain executes tasks strictly in order. A failing task stops the chain;
// later tasks stay pending and are never issued.
type Chain struct {
	tasks  []Task
	logger *lib.Logger
}

// NewChain creates a chain of the given tasks
func NewChain(logger *lib.Logger, tasks ...Task) *Chain {
	return &Chain{tasks: tasks, logger: logger}
}

// Names returns the step names in execution order
func (c *Chain) Names() []models.StepName {
	names := make([]models.StepName, len(c.tasks))
	for i, t := range c.tasks {
		names[i] = t.Name
	}
	return names
}

// Execute runs every task for session and returns the recorded run.
// On failure the returned error is a *StepFailure.
func (c *Chain) Execute(ctx context.Context, session models.SessionID) (models.ChainRun, error) {
	run := models.NewChainRun(uuid.New().String(), session, c.Names())

	for _, task := range c.tasks {
		step, found := models.GetStepByName(run, task.Name)
		if !found {
			return run, fmt.Errorf("step not found in run: %s", task.Name)
		}

		step = models.StartStep(step)
		run = models.ReplaceStep(run, step)
		lib.LogStepStart(c.logger, string(task.Name), session.String())
		start := time.Now()

		if err := ctx.Err(); err != nil {
			run = c.fail(run, step, err)
			return run, &StepFailure{Step: task.Name, Err: err}
		}

		if err := task.Run(ctx); err != nil {
			run = c.fail(run, step, err)
			return run, &StepFailure{Step: task.Name, Err: err}
		}

		run = models.ReplaceStep(run, models.CompleteStep(step))
		lib.LogStepComplete(c.logger, string(task.Name), session.String(), time.Since(start))
	}

	return run, nil
}

func (c *Chain) fail(run models.ChainRun, step models.ChainStep, err error) models.ChainRun {
	errType, status := classifyStepError(err)
	lib.LogStepFailed(c.logger, string(step.Name), run.SessionID.String(), err, errType == models.ErrorTypeTransient)
	return models.ReplaceStep(run, models.FailStep(step, errType, lib.ShortMessage(err), status))
}

// classifyStepError maps an error to a step error type and HTTP status
func classifyStepError(err error) (models.ErrorType, int) {
	reportErr := lib.ClassifyError(err)
	if reportErr == nil {
		return models.ErrorTypeNonTransient, 0
	}
	if reportErr.HTTPStatus > 0 {
		return lib.ClassifyHTTPError(reportErr.HTTPStatus), reportErr.HTTPStatus
	}
	if reportErr.IsRetryable {
		return models.ErrorTypeTransient, 0
	}
	return models.ErrorTypeNonTransient, 0
}
