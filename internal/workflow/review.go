package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/services"
)

// DecisionCall is a validated approve or reject submission
type DecisionCall struct {
	Ticket   Ticket
	Decision models.ReviewDecision
	Request  models.ApproveReportRequest
}

// DecisionResult is the completion event of a DecisionCall
type DecisionResult struct {
	Ticket   Ticket
	Decision models.ReviewDecision
	Response models.ApproveReportResponse
	Err      error
}

// ReviewController submits the reviewer's decision on the loaded draft
type ReviewController struct {
	machine *Machine
	report  *Materializer
	backend ApprovalBackend
	delay   time.Duration
	logger  *lib.Logger

	busy     bool
	rejected bool
}

// NewReviewController creates a review controller. delay is the pause before
// the finalized stage opens.
func NewReviewController(machine *Machine, report *Materializer, backend ApprovalBackend, delay time.Duration, logger *lib.Logger) *ReviewController {
	return &ReviewController{machine: machine, report: report, backend: backend, delay: delay, logger: logger}
}

// Busy reports whether a decision is in flight
func (c *ReviewController) Busy() bool { return c.busy }

// Rejected reports whether the draft was rejected in this run
func (c *ReviewController) Rejected() bool { return c.rejected }

// Submit validates the decision locally. An empty reviewer name aborts
// before any request is issued.
func (c *ReviewController) Submit(decision models.ReviewDecision) (*DecisionCall, error) {
	if c.busy {
		return nil, lib.ErrBusy("Review submission")
	}
	if c.rejected {
		return nil, lib.ErrRejected()
	}
	if c.machine.Session().IsZero() {
		return nil, lib.ErrMissingSession("submit a review")
	}
	draft, ok := c.report.Draft()
	if !ok || c.machine.Stage() != models.StageReview {
		return nil, lib.ErrMissingReport()
	}
	if !decision.HasReviewer() {
		return nil, lib.ErrMissingReviewer()
	}
	if !c.machine.Finalized().IsZero() {
		return nil, lib.ErrBusy("Finalizing the report")
	}

	decision.ReviewerName = strings.TrimSpace(decision.ReviewerName)
	ticket := c.machine.Ticket()

	c.busy = true
	return &DecisionCall{
		Ticket:   ticket,
		Decision: decision,
		Request: models.ApproveReportRequest{
			SessionID:        ticket.Session.String(),
			ReportID:         draft.ReportID,
			Approved:         decision.Approved,
			ReviewerName:     decision.ReviewerName,
			ReviewerComments: decision.Comments,
		},
	}, nil
}

// Run issues approve-report. It does not touch workflow state.
func (c *ReviewController) Run(ctx context.Context, call *DecisionCall) DecisionResult {
	resp, err := c.backend.ApproveReport(ctx, call.Request)
	return DecisionResult{Ticket: call.Ticket, Decision: call.Decision, Response: resp, Err: err}
}

// Apply delivers the decision outcome.
// A rejection always ends in the rejected notice and never changes the stage.
// An approval finalizes only on an explicit "approved" acknowledgment, and the
// finalized reference is taken from that acknowledgment alone.
func (c *ReviewController) Apply(res DecisionResult) (*Deferred, error) {
	if !c.machine.IsCurrent(res.Ticket) {
		c.logger.Debug("Ignoring stale approve-report response", "epoch", res.Ticket.Epoch)
		return nil, lib.ErrStaleResponse
	}
	c.busy = false

	if !res.Decision.Approved {
		if res.Err != nil {
			c.logger.Warn("Rejection request failed", "session_id", res.Ticket.Session, "error", res.Err)
		}
		c.rejected = true
		c.logger.Info("Report rejected", "session_id", res.Ticket.Session)
		return nil, lib.ErrRejected()
	}

	err := res.Err
	if err == nil && res.Response.Status != models.StatusApproved {
		err = lib.ErrServiceRejected(services.OpApproveReport, 0, res.Response.Message)
	}
	if err == nil && (res.Response.ReportID == "" || res.Response.SessionID == "") {
		err = lib.ErrUnexpectedResponse(services.OpApproveReport, fmt.Errorf("acknowledgment has no report_id or session_id"))
	}
	if err != nil {
		lib.LogFailure(c.logger, services.OpApproveReport, err)
		return nil, err
	}

	ref := models.FinalizedReportRef{
		ReportID:  res.Response.ReportID,
		SessionID: models.SessionID(res.Response.SessionID),
	}
	if err := c.machine.RecordFinalized(res.Ticket, ref); err != nil {
		return nil, lib.ErrUnexpectedResponse(services.OpApproveReport, err)
	}

	return &Deferred{Ticket: res.Ticket, To: models.StageFinalized, After: c.delay}, nil
}

func (c *ReviewController) reset() {
	c.busy = false
	c.rejected = false
}
