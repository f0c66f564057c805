package workflow

import (
	"context"
	"time"

	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/pipeline"
)

// Driver runs each workflow action to completion without a terminal UI.
// Every step goes through the same controllers as the interactive mode.
type Driver struct {
	wf     *Workflow
	logger *lib.Logger
}

// NewDriver creates a headless driver for wf
func NewDriver(wf *Workflow, logger *lib.Logger) *Driver {
	return &Driver{wf: wf, logger: logger}
}

// Workflow returns the driven workflow
func (d *Driver) Workflow() *Workflow { return d.wf }

// SubmitIntake analyzes the image and enters lab entry
func (d *Driver) SubmitIntake(ctx context.Context, form models.PatientDescriptor, image models.ImageSelection) (models.SessionID, error) {
	call, err := d.wf.Intake.Submit(form, image)
	if err != nil {
		return "", err
	}
	if err := d.wf.Intake.Apply(d.wf.Intake.Run(ctx, call)); err != nil {
		return "", err
	}
	return d.wf.Machine.Session(), nil
}

// SubmitLabs runs the lab chain and, after the pause, opens review
func (d *Driver) SubmitLabs(ctx context.Context, labs models.LabValueSet) (pipeline.LabChainResult, error) {
	call, err := d.wf.Labs.Submit(labs)
	if err != nil {
		return pipeline.LabChainResult{}, err
	}
	res := d.wf.Labs.Run(ctx, call)
	deferred, err := d.wf.Labs.Apply(res)
	if err != nil {
		return res.Chain, err
	}
	return res.Chain, d.complete(ctx, deferred)
}

// LoadReport materializes the draft report of the current session
func (d *Driver) LoadReport(ctx context.Context) (*models.DraftReport, error) {
	call, err := d.wf.Report.Begin()
	if err != nil {
		return nil, err
	}
	if call != nil {
		if err := d.wf.Report.Apply(d.wf.Report.Run(ctx, call)); err != nil {
			return nil, err
		}
	}
	draft, _ := d.wf.Report.Draft()
	return draft, nil
}

// Decide submits the review decision. On approval it waits for the pause and
// enters the finalized stage.
func (d *Driver) Decide(ctx context.Context, decision models.ReviewDecision) (models.FinalizedReportRef, error) {
	call, err := d.wf.Review.Submit(decision)
	if err != nil {
		return models.FinalizedReportRef{}, err
	}
	deferred, err := d.wf.Review.Apply(d.wf.Review.Run(ctx, call))
	if err != nil {
		return models.FinalizedReportRef{}, err
	}
	if err := d.complete(ctx, deferred); err != nil {
		return models.FinalizedReportRef{}, err
	}
	return d.wf.Machine.Finalized(), nil
}

// Download saves the finalized artifact and returns its path
func (d *Driver) Download(ctx context.Context, progress func(done, total int64)) (string, error) {
	call, err := d.wf.Download.Begin()
	if err != nil {
		return "", err
	}
	return d.wf.Download.Apply(d.wf.Download.Run(ctx, call, progress))
}

// Step names reported by Run
const (
	StepIntake     = "Analyzing image"
	StepLabs       = "Analyzing labs and generating report"
	StepLoadReport = "Loading draft report"
	StepDecide     = "Submitting review decision"
	StepDownload   = "Downloading report"
)

// RunInput is everything a one-shot headless run needs
type RunInput struct {
	Patient  models.PatientDescriptor
	Image    models.ImageSelection
	Labs     models.LabValueSet
	Decision models.ReviewDecision
	Download bool
	Progress func(done, total int64)
	// Step, when set, is called as each step starts. The returned func
	// receives the step's result.
	Step func(name string) func(error)
}

// RunOutcome summarizes a one-shot run
type RunOutcome struct {
	Session      models.SessionID
	Chain        pipeline.LabChainResult
	Draft        *models.DraftReport
	Finalized    models.FinalizedReportRef
	ArtifactPath string
	Stage        models.Stage
}

// Run drives intake through download in order. It stops at the first failure,
// returning what was reached so far.
func (d *Driver) Run(ctx context.Context, in RunInput) (out RunOutcome, err error) {
	defer func() { out.Stage = d.wf.Machine.Stage() }()

	step := func(name string, fn func() error) error {
		if in.Step == nil {
			return fn()
		}
		done := in.Step(name)
		err := fn()
		done(err)
		return err
	}

	if err = step(StepIntake, func() (err error) {
		out.Session, err = d.SubmitIntake(ctx, in.Patient, in.Image)
		return err
	}); err != nil {
		return out, err
	}
	if err = step(StepLabs, func() (err error) {
		out.Chain, err = d.SubmitLabs(ctx, in.Labs)
		return err
	}); err != nil {
		return out, err
	}
	if err = step(StepLoadReport, func() (err error) {
		out.Draft, err = d.LoadReport(ctx)
		return err
	}); err != nil {
		return out, err
	}
	if err = step(StepDecide, func() (err error) {
		out.Finalized, err = d.Decide(ctx, in.Decision)
		return err
	}); err != nil {
		return out, err
	}
	if in.Download {
		if err = step(StepDownload, func() (err error) {
			out.ArtifactPath, err = d.Download(ctx, in.Progress)
			return err
		}); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (d *Driver) complete(ctx context.Context, deferred *Deferred) error {
	if deferred == nil {
		return nil
	}
	if err := wait(ctx, deferred.After); err != nil {
		return err
	}
	return d.wf.Complete(deferred)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
