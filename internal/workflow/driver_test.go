package workflow_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/services"
	"github.com/trobanga/medreport/internal/workflow"
)

func TestDriver_RunEndToEnd(t *testing.T) {
	backend := newFakeBackend()
	wf, dir := newTestWorkflow(t, backend)
	d := workflow.NewDriver(wf, lib.NewLogger(lib.LogLevelError))

	var lastDone int64
	out, err := d.Run(context.Background(), workflow.RunInput{
		Patient:  validPatient(),
		Image:    chestImage(),
		Labs:     models.LabValueSet{"hemoglobin": "13.5", "wbc": ""},
		Decision: approve("Dr. Smith"),
		Download: true,
		Progress: func(done, total int64) { lastDone = done },
	})
	require.NoError(t, err)

	assert.Equal(t, models.SessionID("SESSION-ABC123"), out.Session)
	assert.Equal(t, "RPT-1", out.Chain.ReportID)
	require.NotNil(t, out.Draft)
	assert.Equal(t, "Chest X-Ray", out.Draft.ExaminationSummary)
	assert.Equal(t, models.FinalizedReportRef{ReportID: "RPT-1", SessionID: "SESSION-ABC123"}, out.Finalized)
	assert.Equal(t, filepath.Join(dir, "RPT-1.pdf"), out.ArtifactPath)
	assert.Equal(t, models.StageFinalized, out.Stage)
	assert.Equal(t, int64(len(backend.pdf)), lastDone)

	for _, op := range []string{
		services.OpAnalyzeImage, services.OpAnalyzeLabs, services.OpGenerateReport,
		services.OpFetchReport, services.OpApproveReport, services.OpDownloadReport,
	} {
		assert.Equal(t, 1, backend.calls[op], op)
	}
}

func TestDriver_RunStopsAtFirstFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.fetchErr = lib.ErrReportNotFound("SESSION-ABC123")
	wf, _ := newTestWorkflow(t, backend)
	d := workflow.NewDriver(wf, lib.NewLogger(lib.LogLevelError))

	out, err := d.Run(context.Background(), workflow.RunInput{
		Patient:  validPatient(),
		Image:    chestImage(),
		Decision: approve("Dr. Smith"),
		Download: true,
	})

	assert.True(t, lib.IsCategory(err, lib.CategoryAbsence))
	assert.Equal(t, models.StageReview, out.Stage)
	assert.Zero(t, backend.calls[services.OpApproveReport])
	assert.Empty(t, out.ArtifactPath)
}

func TestDriver_RunReportsSteps(t *testing.T) {
	backend := newFakeBackend()
	backend.fetchErr = lib.ErrReportNotFound("SESSION-ABC123")
	wf, _ := newTestWorkflow(t, backend)
	d := workflow.NewDriver(wf, lib.NewLogger(lib.LogLevelError))

	var started []string
	results := map[string]error{}
	_, err := d.Run(context.Background(), workflow.RunInput{
		Patient:  validPatient(),
		Image:    chestImage(),
		Decision: approve("Dr. Smith"),
		Download: true,
		Step: func(name string) func(error) {
			started = append(started, name)
			return func(err error) { results[name] = err }
		},
	})
	require.Error(t, err)

	assert.Equal(t, []string{workflow.StepIntake, workflow.StepLabs, workflow.StepLoadReport}, started)
	assert.NoError(t, results[workflow.StepIntake])
	assert.NoError(t, results[workflow.StepLabs])
	assert.ErrorIs(t, results[workflow.StepLoadReport], err)
}

func TestDriver_DelayHonorsContext(t *testing.T) {
	backend := newFakeBackend()
	logger := lib.NewLogger(lib.LogLevelError)
	cfg := testConfig()
	cfg.Delays.LabChainMs = int64(time.Hour / time.Millisecond)
	wf := workflow.New(cfg, backend, services.NewArtifactStore(t.TempDir(), logger), logger)
	d := workflow.NewDriver(wf, logger)

	_, err := d.SubmitIntake(context.Background(), validPatient(), chestImage())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = d.SubmitLabs(ctx, models.LabValueSet{})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, models.StageLabEntry, wf.Machine.Stage())
	assert.True(t, wf.Machine.NavEnabled(models.StageReview), "draft stays recorded; the user can open review")
}
