package workflow_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/services"
	"github.com/trobanga/medreport/internal/workflow"
)

// fakeBackend is an in-memory backend. Its defaults describe a demo run:
// session SESSION-ABC123, draft RPT-1, approval acknowledged.
type fakeBackend struct {
	imageResp   models.AnalyzeImageResponse
	imageErr    error
	labsResp    models.AnalyzeLabsResponse
	labsErr     error
	genResp     models.GenerateReportResponse
	genErr      error
	fetchResp   models.FetchReportResponse
	fetchErr    error
	approveResp models.ApproveReportResponse
	approveErr  error
	pdf         []byte
	downloadErr error

	calls       map[string]int
	lastImage   models.AnalyzeImageRequest
	lastLabs    map[string]float64
	lastApprove models.ApproveReportRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		imageResp: models.AnalyzeImageResponse{Status: models.StatusSuccess, SessionID: "SESSION-ABC123"},
		labsResp:  models.AnalyzeLabsResponse{Status: models.StatusSuccess},
		genResp:   models.GenerateReportResponse{Status: models.StatusSuccess, ReportID: "RPT-1"},
		fetchResp: models.FetchReportResponse{
			Status: models.StatusSuccess,
			Report: &models.ReportPayload{
				ReportID:           "RPT-1",
				Status:             models.StatusDraft,
				ExaminationSummary: "Chest X-Ray",
				ImagingFindings:    &models.SectionPayload{Status: models.SectionStatusCompleted, Findings: []string{"No acute findings"}},
				LaboratoryFindings: &models.SectionPayload{Status: models.SectionStatusPending},
			},
		},
		approveResp: models.ApproveReportResponse{Status: models.StatusApproved, ReportID: "RPT-1", SessionID: "SESSION-ABC123"},
		pdf:         []byte("%PDF-1.4 demo"),
		calls:       map[string]int{},
	}
}

func (f *fakeBackend) AnalyzeImage(ctx context.Context, req models.AnalyzeImageRequest) (models.AnalyzeImageResponse, error) {
	f.calls[services.OpAnalyzeImage]++
	f.lastImage = req
	return f.imageResp, f.imageErr
}

func (f *fakeBackend) AnalyzeLabs(ctx context.Context, session models.SessionID, labs map[string]float64) (models.AnalyzeLabsResponse, error) {
	f.calls[services.OpAnalyzeLabs]++
	f.lastLabs = labs
	return f.labsResp, f.labsErr
}

func (f *fakeBackend) GenerateReport(ctx context.Context, session models.SessionID) (models.GenerateReportResponse, error) {
	f.calls[services.OpGenerateReport]++
	return f.genResp, f.genErr
}

func (f *fakeBackend) FetchReport(ctx context.Context, session models.SessionID) (models.FetchReportResponse, error) {
	f.calls[services.OpFetchReport]++
	return f.fetchResp, f.fetchErr
}

func (f *fakeBackend) ApproveReport(ctx context.Context, req models.ApproveReportRequest) (models.ApproveReportResponse, error) {
	f.calls[services.OpApproveReport]++
	f.lastApprove = req
	return f.approveResp, f.approveErr
}

func (f *fakeBackend) DownloadReport(ctx context.Context, session models.SessionID, w io.Writer, progress func(done, total int64)) (services.DownloadMeta, error) {
	f.calls[services.OpDownloadReport]++
	if f.downloadErr != nil {
		return services.DownloadMeta{}, f.downloadErr
	}
	n, err := w.Write(f.pdf)
	if progress != nil {
		progress(int64(n), int64(len(f.pdf)))
	}
	return services.DownloadMeta{ContentType: "application/pdf", Bytes: int64(n)}, err
}

func testConfig() models.ProjectConfig {
	cfg := models.DefaultConfig()
	cfg.Delays = models.DelayConfig{}
	return cfg
}

func newTestWorkflow(t *testing.T, backend *fakeBackend) (*workflow.Workflow, string) {
	t.Helper()
	logger := lib.NewLogger(lib.LogLevelError)
	dir := t.TempDir()
	return workflow.New(testConfig(), backend, services.NewArtifactStore(dir, logger), logger), dir
}

func validPatient() models.PatientDescriptor {
	return models.PatientDescriptor{
		PatientID:   "PAT-2024-001",
		PatientName: "Jane Doe",
		Age:         "45",
		Gender:      models.GenderFemale,
		StudyDate:   "2024-03-01",
		ImageType:   models.ModalityXRay,
	}
}

func chestImage() models.ImageSelection {
	return models.ImageSelection{Path: "/home/user/chest.png", Name: "chest.png", Kind: "png"}
}

func approve(name string) models.ReviewDecision {
	return models.ReviewDecision{ReviewerName: name, Approved: true}
}

// toReview drives a fresh workflow into review with the report loaded
func toReview(t *testing.T, wf *workflow.Workflow) {
	t.Helper()
	d := workflow.NewDriver(wf, lib.NewLogger(lib.LogLevelError))
	ctx := context.Background()
	_, err := d.SubmitIntake(ctx, validPatient(), chestImage())
	require.NoError(t, err)
	_, err = d.SubmitLabs(ctx, models.LabValueSet{})
	require.NoError(t, err)
	_, err = d.LoadReport(ctx)
	require.NoError(t, err)
}
