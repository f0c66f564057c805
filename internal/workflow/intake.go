package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/services"
)

// IntakeCall is a validated analyze-image submission
type IntakeCall struct {
	Ticket  Ticket
	Request models.AnalyzeImageRequest
}

// IntakeResult is the completion event of an IntakeCall
type IntakeResult struct {
	Ticket   Ticket
	Response models.AnalyzeImageResponse
	Err      error
}

// IntakeController gates and submits the patient intake
type IntakeController struct {
	machine   *Machine
	backend   IntakeBackend
	imageRoot string
	logger    *lib.Logger
	busy      bool
}

// NewIntakeController creates an intake controller
func NewIntakeController(machine *Machine, backend IntakeBackend, imageRoot string, logger *lib.Logger) *IntakeController {
	return &IntakeController{machine: machine, backend: backend, imageRoot: imageRoot, logger: logger}
}

// Busy reports whether a submission is in flight
func (c *IntakeController) Busy() bool { return c.busy }

// Submit validates the form locally. No request is issued when a required
// field or the image is missing.
func (c *IntakeController) Submit(form models.PatientDescriptor, image models.ImageSelection) (*IntakeCall, error) {
	if c.busy {
		return nil, lib.ErrBusy("Image analysis")
	}
	if c.machine.Stage() != models.StageIntake || !c.machine.Session().IsZero() {
		return nil, lib.WrapError(lib.CategoryState, "A session is already active", lib.ErrTransitionNotAllowed,
			"Reset the workflow to start a new analysis")
	}
	if missing := form.MissingFields(); len(missing) > 0 {
		return nil, lib.ErrMissingFields(missing)
	}
	if err := models.ValidateAge(form.Age); err != nil {
		return nil, lib.WrapError(lib.CategoryValidation, "Please enter a valid age", err,
			"Age must be a whole number between 0 and 150")
	}
	if image.IsZero() {
		return nil, lib.ErrNoImageSelected()
	}

	form.PatientID = strings.TrimSpace(form.PatientID)
	form.PatientName = strings.TrimSpace(form.PatientName)
	form.Age = strings.TrimSpace(form.Age)

	name := image.Name
	if name == "" {
		name = image.Path
	}

	c.busy = true
	return &IntakeCall{
		Ticket: c.machine.Ticket(),
		Request: models.AnalyzeImageRequest{
			PatientDescriptor: form,
			ImagePath:         services.BackendImagePath(c.imageRoot, name),
		},
	}, nil
}

// Run issues the analyze-image request. It does not touch workflow state.
func (c *IntakeController) Run(ctx context.Context, call *IntakeCall) IntakeResult {
	resp, err := c.backend.AnalyzeImage(ctx, call.Request)
	return IntakeResult{Ticket: call.Ticket, Response: resp, Err: err}
}

// Apply delivers the completion event. On success the workflow enters lab entry.
// Any failure leaves the stage and identities unchanged and re-enables submission.
func (c *IntakeController) Apply(res IntakeResult) error {
	if !c.machine.IsCurrent(res.Ticket) {
		c.logger.Debug("Ignoring stale analyze-image response", "epoch", res.Ticket.Epoch)
		return lib.ErrStaleResponse
	}
	c.busy = false

	err := res.Err
	if err == nil && res.Response.Status != models.StatusSuccess {
		err = lib.ErrServiceRejected(services.OpAnalyzeImage, 0, res.Response.Message)
	}
	if err == nil && res.Response.SessionID == "" {
		err = lib.ErrUnexpectedResponse(services.OpAnalyzeImage, fmt.Errorf("response has no session_id"))
	}
	if err != nil {
		lib.LogFailure(c.logger, services.OpAnalyzeImage, err)
		return err
	}

	return c.machine.CompleteIntake(res.Ticket, models.SessionID(res.Response.SessionID))
}

func (c *IntakeController) reset() { c.busy = false }
