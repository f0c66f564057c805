package pipeline

import (
	"context"
	"fmt"

	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/services"
)

// LabBackend is the part of the backend the lab chain calls
type LabBackend interface {
	AnalyzeLabs(ctx context.Context, session models.SessionID, labs map[string]float64) (models.AnalyzeLabsResponse, error)
	GenerateReport(ctx context.Context, session models.SessionID) (models.GenerateReportResponse, error)
}

// LabChainResult is the outcome of a successful analyze-labs → generate-report run
type LabChainResult struct {
	Run      models.ChainRun
	ReportID string
	Abnormal int
	Critical int
	Sent     map[string]float64
	Dropped  []string // Entries that were not numeric
}

// Summary returns the success message shown after the chain completes
func (r LabChainResult) Summary() string {
	msg := "Report generated! Moving to review..."
	if r.Abnormal > 0 || r.Critical > 0 {
		msg = fmt.Sprintf("%d abnormal, %d critical. %s", r.Abnormal, r.Critical, msg)
	}
	return msg
}

// RunLabChain submits the forwardable lab values for session and then
// generates the draft report. generate-report is issued only after
// analyze-labs acknowledged success.
func RunLabChain(ctx context.Context, backend LabBackend, session models.SessionID, labs models.LabValueSet, logger *lib.Logger) (LabChainResult, error) {
	if session.IsZero() {
		return LabChainResult{}, lib.ErrMissingSession("analyze lab values")
	}

	result := LabChainResult{
		Sent:    labs.Forwardable(),
		Dropped: labs.Dropped(),
	}
	if len(result.Dropped) > 0 {
		logger.Debug("Dropping non-numeric lab entries", "session_id", session, "fields", result.Dropped)
	}

	chain := NewChain(logger,
		Task{
			Name: models.StepAnalyzeLabs,
			Run: func(ctx context.Context) error {
				resp, err := backend.AnalyzeLabs(ctx, session, result.Sent)
				if err != nil {
					return err
				}
				if resp.Status != models.StatusSuccess {
					return lib.ErrServiceRejected(services.OpAnalyzeLabs, 0, resp.Message)
				}
				result.Abnormal = resp.AbnormalCount
				result.Critical = resp.CriticalCount
				return nil
			},
		},
		Task{
			Name: models.StepGenerateReport,
			Run: func(ctx context.Context) error {
				resp, err := backend.GenerateReport(ctx, session)
				if err != nil {
					return err
				}
				if resp.Status != models.StatusSuccess {
					return lib.ErrServiceRejected(services.OpGenerateReport, 0, resp.Message)
				}
				result.ReportID = resp.ReportID
				return nil
			},
		},
	)

	run, err := chain.Execute(ctx, session)
	run.ReportID = result.ReportID
	run.Abnormal = result.Abnormal
	run.Critical = result.Critical
	result.Run = run
	if err != nil {
		return result, err
	}
	return result, nil
}
