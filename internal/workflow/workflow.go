package workflow

import (
	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/services"
)

// Workflow wires the state machine to its controllers.
// Views receive it explicitly; nothing here is global.
type Workflow struct {
	Machine  *Machine
	Intake   *IntakeController
	Labs     *LabController
	Report   *Materializer
	Review   *ReviewController
	Download *DownloadController
}

// New builds a workflow against backend, saving artifacts into store
func New(cfg models.ProjectConfig, backend Backend, store *services.ArtifactStore, logger *lib.Logger) *Workflow {
	machine := NewMachine(logger)
	report := NewMaterializer(machine, backend, logger)

	wf := &Workflow{
		Machine:  machine,
		Intake:   NewIntakeController(machine, backend, cfg.Backend.ImageRoot, logger),
		Labs:     NewLabController(machine, backend, cfg.Delays.LabChain(), logger),
		Report:   report,
		Review:   NewReviewController(machine, report, backend, cfg.Delays.Approval(), logger),
		Download: NewDownloadController(machine, backend, store, logger),
	}

	machine.OnTransition(wf.onTransition)
	return wf
}

func (wf *Workflow) onTransition(t Transition) {
	if t.From == models.StageReview && t.To != models.StageReview {
		wf.Report.Discard()
	}
	if t.Reset {
		wf.Report.Discard()
		wf.Intake.reset()
		wf.Labs.reset()
		wf.Review.reset()
		wf.Download.reset()
	}
}

// Busy reports whether any request is in flight
func (wf *Workflow) Busy() bool {
	return wf.Intake.Busy() || wf.Labs.Busy() || wf.Report.State() == LoadLoading ||
		wf.Review.Busy() || wf.Download.Busy()
}

// Complete performs a deferred stage advance
func (wf *Workflow) Complete(d *Deferred) error {
	if d == nil {
		return nil
	}
	return wf.Machine.Advance(d.Ticket, d.To)
}
