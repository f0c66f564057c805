package models

import "time"

// StartStep creates a new ChainStep with in_progress status
// Pure function - returns new instance, does not mutate original
func StartStep(step ChainStep) ChainStep {
	now := time.Now()
	step.Status = StepStatusInProgress
	step.StartedAt = &now
	step.LastError = nil
	return step
}

// CompleteStep creates a new ChainStep with completed status
// Pure function - returns new instance
func CompleteStep(step ChainStep) ChainStep {
	now := time.Now()
	step.Status = StepStatusCompleted
	step.CompletedAt = &now
	return step
}

// FailStep creates a new ChainStep with failed status and error details
// Pure function - returns new instance
func FailStep(step ChainStep, errorType ErrorType, errorMsg string, httpStatus int) ChainStep {
	step.Status = StepStatusFailed
	step.LastError = &StepError{
		Type:       errorType,
		Message:    errorMsg,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
	return step
}

// InitializeSteps creates the pending step list for a chain
// Pure function - creates new step instances
func InitializeSteps(names []StepName) []ChainStep {
	steps := make([]ChainStep, len(names))
	for i, name := range names {
		steps[i] = ChainStep{
			Name:   name,
			Status: StepStatusPending,
		}
	}
	return steps
}

// NewChainRun creates a run with all steps pending
func NewChainRun(runID string, session SessionID, names []StepName) ChainRun {
	now := time.Now()
	return ChainRun{
		RunID:     runID,
		SessionID: session,
		Steps:     InitializeSteps(names),
		StartedAt: now,
		UpdatedAt: now,
	}
}

// ReplaceStep replaces a step in the run's step list
// Pure function - returns new run instance with updated steps
func ReplaceStep(run ChainRun, updated ChainStep) ChainRun {
	steps := make([]ChainStep, len(run.Steps))
	copy(steps, run.Steps)

	for i, step := range steps {
		if step.Name == updated.Name {
			steps[i] = updated
			break
		}
	}

	run.Steps = steps
	run.UpdatedAt = time.Now()
	return run
}

// GetStepByName finds a step by name in the run's step list
// Pure function - returns copy of step if found
func GetStepByName(run ChainRun, name StepName) (ChainStep, bool) {
	for _, step := range run.Steps {
		if step.Name == name {
			return step, true
		}
	}
	return ChainStep{}, false
}
