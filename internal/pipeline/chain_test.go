package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/pipeline"
)

func TestChain_RunsTasksInOrder(t *testing.T) {
	var order []models.StepName
	record := func(name models.StepName) pipeline.Task {
		return pipeline.Task{Name: name, Run: func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}}
	}

	chain := pipeline.NewChain(lib.NewLogger(lib.LogLevelError),
		record(models.StepAnalyzeLabs), record(models.StepGenerateReport))

	run, err := chain.Execute(context.Background(), "SESSION-1")
	require.NoError(t, err)

	assert.Equal(t, models.LabChainSteps, order)
	assert.True(t, run.Succeeded())
	assert.Equal(t, models.SessionID("SESSION-1"), run.SessionID)
	assert.NotEmpty(t, run.RunID)
	for _, step := range run.Steps {
		assert.NotNil(t, step.StartedAt)
		assert.NotNil(t, step.CompletedAt)
	}
}

func TestChain_StopsAtFailingStep(t *testing.T) {
	secondCalled := false
	chain := pipeline.NewChain(lib.NewLogger(lib.LogLevelError),
		pipeline.Task{Name: models.StepAnalyzeLabs, Run: func(ctx context.Context) error {
			return lib.ErrServiceUnavailable("analyze-labs", 503, errors.New("overloaded"))
		}},
		pipeline.Task{Name: models.StepGenerateReport, Run: func(ctx context.Context) error {
			secondCalled = true
			return nil
		}},
	)

	run, err := chain.Execute(context.Background(), "SESSION-1")

	var failure *pipeline.StepFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, models.StepAnalyzeLabs, failure.Step)
	assert.True(t, lib.IsCategory(err, lib.CategoryService))
	assert.False(t, secondCalled)
	assert.False(t, run.Succeeded())

	failed, ok := run.FailedStep()
	require.True(t, ok)
	assert.Equal(t, models.StepAnalyzeLabs, failed.Name)
	require.NotNil(t, failed.LastError)
	assert.Equal(t, models.ErrorTypeTransient, failed.LastError.Type)
	assert.Equal(t, 503, failed.LastError.HTTPStatus)

	pending, ok := models.GetStepByName(run, models.StepGenerateReport)
	require.True(t, ok)
	assert.Equal(t, models.StepStatusPending, pending.Status)
}

func TestChain_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	chain := pipeline.NewChain(lib.NewLogger(lib.LogLevelError),
		pipeline.Task{Name: models.StepAnalyzeLabs, Run: func(ctx context.Context) error {
			called = true
			return nil
		}},
	)

	_, err := chain.Execute(ctx, "SESSION-1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStepFailure_Error(t *testing.T) {
	cause := errors.New("boom")
	f := &pipeline.StepFailure{Step: models.StepGenerateReport, Err: cause}

	assert.Contains(t, f.Error(), "generate-report")
	assert.ErrorIs(t, f, cause)
}
