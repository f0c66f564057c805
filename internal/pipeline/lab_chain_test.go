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

type fakeLabBackend struct {
	labsResp   models.AnalyzeLabsResponse
	labsErr    error
	reportResp models.GenerateReportResponse
	reportErr  error

	sentLabs      map[string]float64
	labsCalls     int
	generateCalls int
}

func (f *fakeLabBackend) AnalyzeLabs(ctx context.Context, session models.SessionID, labs map[string]float64) (models.AnalyzeLabsResponse, error) {
	f.labsCalls++
	f.sentLabs = labs
	return f.labsResp, f.labsErr
}

func (f *fakeLabBackend) GenerateReport(ctx context.Context, session models.SessionID) (models.GenerateReportResponse, error) {
	f.generateCalls++
	return f.reportResp, f.reportErr
}

func okBackend() *fakeLabBackend {
	return &fakeLabBackend{
		labsResp:   models.AnalyzeLabsResponse{Status: models.StatusSuccess, AbnormalCount: 2, CriticalCount: 1},
		reportResp: models.GenerateReportResponse{Status: models.StatusSuccess, ReportID: "RPT-1"},
	}
}

func TestRunLabChain_Success(t *testing.T) {
	backend := okBackend()
	labs := models.LabValueSet{"hemoglobin": "13.5", "wbc": "", "glucose": "abc"}

	result, err := pipeline.RunLabChain(context.Background(), backend, "SESSION-ABC123", labs, lib.NewLogger(lib.LogLevelError))
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"hemoglobin": 13.5}, backend.sentLabs)
	assert.Equal(t, []string{"glucose"}, result.Dropped)
	assert.Equal(t, "RPT-1", result.ReportID)
	assert.Equal(t, 2, result.Abnormal)
	assert.Equal(t, 1, result.Critical)
	assert.True(t, result.Run.Succeeded())
	assert.Equal(t, "RPT-1", result.Run.ReportID)
	assert.Contains(t, result.Summary(), "2 abnormal, 1 critical")
}

func TestRunLabChain_EmptySetIsForwarded(t *testing.T) {
	backend := okBackend()
	backend.labsResp.AbnormalCount = 0
	backend.labsResp.CriticalCount = 0

	result, err := pipeline.RunLabChain(context.Background(), backend, "SESSION-1", models.LabValueSet{}, lib.NewLogger(lib.LogLevelError))
	require.NoError(t, err)

	assert.NotNil(t, backend.sentLabs)
	assert.Empty(t, backend.sentLabs)
	assert.Equal(t, "Report generated! Moving to review...", result.Summary())
}

func TestRunLabChain_MissingSession(t *testing.T) {
	backend := okBackend()

	_, err := pipeline.RunLabChain(context.Background(), backend, "", models.LabValueSet{"hemoglobin": "13"}, lib.NewLogger(lib.LogLevelError))

	assert.True(t, lib.IsCategory(err, lib.CategoryValidation))
	assert.Zero(t, backend.labsCalls)
}

func TestRunLabChain_AnalyzeFailureSkipsGenerate(t *testing.T) {
	backend := okBackend()
	backend.labsErr = lib.ErrNetworkUnreachable("http://backend", errors.New("connection refused"))

	result, err := pipeline.RunLabChain(context.Background(), backend, "SESSION-1", nil, lib.NewLogger(lib.LogLevelError))

	var failure *pipeline.StepFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, models.StepAnalyzeLabs, failure.Step)
	assert.Zero(t, backend.generateCalls)
	assert.Empty(t, result.ReportID)
}

func TestRunLabChain_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(b *fakeLabBackend)
		wantStep models.StepName
	}{
		{
			name:     "analyze-labs error status",
			mutate:   func(b *fakeLabBackend) { b.labsResp.Status = models.StatusError },
			wantStep: models.StepAnalyzeLabs,
		},
		{
			name: "generate-report error status",
			mutate: func(b *fakeLabBackend) {
				b.reportResp = models.GenerateReportResponse{Status: models.StatusError, Message: "template missing"}
			},
			wantStep: models.StepGenerateReport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := okBackend()
			tt.mutate(backend)

			result, err := pipeline.RunLabChain(context.Background(), backend, "SESSION-1", nil, lib.NewLogger(lib.LogLevelError))

			var failure *pipeline.StepFailure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tt.wantStep, failure.Step)
			assert.True(t, lib.IsCategory(err, lib.CategoryService))
			assert.False(t, result.Run.Succeeded())
		})
	}
}
