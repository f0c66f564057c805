package workflow

import (
	"context"
	"time"

	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/pipeline"
	"github.com/trobanga/medreport/internal/services"
)

// IntakeBackend submits the patient descriptor and image reference
type IntakeBackend interface {
	AnalyzeImage(ctx context.Context, req models.AnalyzeImageRequest) (models.AnalyzeImageResponse, error)
}

// ReportSource loads the stored draft report of a session
type ReportSource interface {
	FetchReport(ctx context.Context, session models.SessionID) (models.FetchReportResponse, error)
}

// ApprovalBackend records a review decision
type ApprovalBackend interface {
	ApproveReport(ctx context.Context, req models.ApproveReportRequest) (models.ApproveReportResponse, error)
}

// Backend is every call the workflow issues.
// *services.BackendClient implements it.
type Backend interface {
	IntakeBackend
	pipeline.LabBackend
	ReportSource
	ApprovalBackend
	services.ReportDownloader
}

var _ Backend = (*services.BackendClient)(nil)

// Deferred is a stage advance scheduled after a cosmetic pause
type Deferred struct {
	Ticket Ticket
	To     models.Stage
	After  time.Duration
}
