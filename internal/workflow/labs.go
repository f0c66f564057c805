package workflow

import (
	"context"
	"time"

	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/pipeline"
	"github.com/trobanga/medreport/internal/services"
)

// LabCall is a validated lab submission
type LabCall struct {
	Ticket Ticket
	Labs   models.LabValueSet
}

// LabResult is the completion event of the lab chain
type LabResult struct {
	Ticket Ticket
	Chain  pipeline.LabChainResult
	Err    error
}

// LabController runs analyze-labs → generate-report for the current session
type LabController struct {
	machine *Machine
	backend pipeline.LabBackend
	delay   time.Duration
	logger  *lib.Logger
	busy    bool
}

// NewLabController creates a lab controller. delay is the pause before review opens.
func NewLabController(machine *Machine, backend pipeline.LabBackend, delay time.Duration, logger *lib.Logger) *LabController {
	return &LabController{machine: machine, backend: backend, delay: delay, logger: logger}
}

// Busy reports whether the chain is in flight
func (c *LabController) Busy() bool { return c.busy }

// Submit starts a lab submission. Every entry is optional; an empty set is valid.
func (c *LabController) Submit(labs models.LabValueSet) (*LabCall, error) {
	if c.busy {
		return nil, lib.ErrBusy("Lab analysis")
	}
	if c.machine.Session().IsZero() {
		return nil, lib.ErrMissingSession("analyze lab values")
	}
	if c.machine.Stage() != models.StageLabEntry || c.machine.DraftReportID() != "" {
		return nil, lib.WrapError(lib.CategoryState, "A report has already been generated for this session",
			lib.ErrTransitionNotAllowed, "Continue to review or reset the workflow")
	}

	copied := make(models.LabValueSet, len(labs))
	for k, v := range labs {
		copied[k] = v
	}

	c.busy = true
	return &LabCall{Ticket: c.machine.Ticket(), Labs: copied}, nil
}

// Run executes the chain. It does not touch workflow state.
func (c *LabController) Run(ctx context.Context, call *LabCall) LabResult {
	result, err := pipeline.RunLabChain(ctx, c.backend, call.Ticket.Session, call.Labs, c.logger)
	return LabResult{Ticket: call.Ticket, Chain: result, Err: err}
}

// Apply delivers the chain outcome. On success the draft identity is recorded
// and the returned Deferred opens review after the configured pause.
func (c *LabController) Apply(res LabResult) (*Deferred, error) {
	if !c.machine.IsCurrent(res.Ticket) {
		c.logger.Debug("Ignoring stale lab chain result", "epoch", res.Ticket.Epoch)
		return nil, lib.ErrStaleResponse
	}
	c.busy = false

	if res.Err != nil {
		lib.LogFailure(c.logger, "lab chain", res.Err)
		return nil, res.Err
	}

	if err := c.machine.RecordDraft(res.Ticket, res.Chain.ReportID); err != nil {
		return nil, lib.ErrUnexpectedResponse(services.OpGenerateReport, err)
	}

	return &Deferred{Ticket: res.Ticket, To: models.StageReview, After: c.delay}, nil
}

func (c *LabController) reset() { c.busy = false }
