package workflow

import (
	"fmt"

	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
)

// Ticket binds an in-flight request to the workflow run that issued it.
// A response whose ticket no longer matches is stale and must be ignored.
type Ticket struct {
	Epoch   uint64
	Session models.SessionID
}

// Transition describes a stage change
type Transition struct {
	From  models.Stage
	To    models.Stage
	Reset bool
}

// Machine owns the active stage and the identities that gate each stage.
// It is driven from a single goroutine (the UI event loop or the headless driver).
type Machine struct {
	stage     models.Stage
	session   models.SessionID
	draftID   string
	finalized models.FinalizedReportRef
	epoch     uint64

	listeners []func(Transition)
	logger    *lib.Logger
}

// NewMachine creates a machine at the intake stage
func NewMachine(logger *lib.Logger) *Machine {
	return &Machine{stage: models.StageIntake, logger: logger}
}

// Stage returns the stage currently shown
func (m *Machine) Stage() models.Stage { return m.stage }

// Session returns the session minted by analyze-image, or the zero value
func (m *Machine) Session() models.SessionID { return m.session }

// DraftReportID returns the report id from generate-report
func (m *Machine) DraftReportID() string { return m.draftID }

// Finalized returns the approved report reference
func (m *Machine) Finalized() models.FinalizedReportRef { return m.finalized }

// Epoch counts resets
func (m *Machine) Epoch() uint64 { return m.epoch }

// OnTransition registers a listener called after every stage change
func (m *Machine) OnTransition(fn func(Transition)) {
	m.listeners = append(m.listeners, fn)
}

// Ticket returns the ticket for a request issued now
func (m *Machine) Ticket() Ticket {
	return Ticket{Epoch: m.epoch, Session: m.session}
}

// IsCurrent reports whether t still refers to the current run
func (m *Machine) IsCurrent(t Ticket) bool {
	return t.Epoch == m.epoch && t.Session == m.session
}

// Identities returns which stage prerequisites currently exist
func (m *Machine) Identities() lib.IdentitySet {
	return lib.IdentitySet{
		Session:   !m.session.IsZero(),
		Draft:     m.draftID != "",
		Finalized: !m.finalized.IsZero(),
	}
}

// NavEnabled reports whether the navigation control for stage is enabled.
// Intake is always reachable through reset.
func (m *Machine) NavEnabled(stage models.Stage) bool {
	ok, _ := lib.CanEnterStage(stage, m.Identities())
	return ok
}

// CompleteIntake records the session minted by analyze-image and enters lab entry
func (m *Machine) CompleteIntake(t Ticket, session models.SessionID) error {
	if !m.IsCurrent(t) {
		return lib.ErrStaleResponse
	}
	if m.stage != models.StageIntake || !m.session.IsZero() {
		return m.notAllowed(models.StageLabEntry)
	}
	if session.IsZero() {
		return fmt.Errorf("%w: empty session", lib.ErrTransitionNotAllowed)
	}
	m.session = session
	return m.moveTo(models.StageLabEntry)
}

// RecordDraft stores the identity of the generated draft report.
// Review becomes reachable; the stage itself does not change.
func (m *Machine) RecordDraft(t Ticket, reportID string) error {
	if !m.IsCurrent(t) {
		return lib.ErrStaleResponse
	}
	if m.stage != models.StageLabEntry || m.session.IsZero() {
		return m.notAllowed(models.StageReview)
	}
	if reportID == "" {
		return fmt.Errorf("%w: empty report id", lib.ErrTransitionNotAllowed)
	}
	m.draftID = reportID
	m.logger.Debug("Draft recorded", "session_id", m.session, "report_id", reportID)
	return nil
}

// RecordFinalized stores the reference taken from an approval acknowledgment
func (m *Machine) RecordFinalized(t Ticket, ref models.FinalizedReportRef) error {
	if !m.IsCurrent(t) {
		return lib.ErrStaleResponse
	}
	if m.stage != models.StageReview || !m.finalized.IsZero() {
		return m.notAllowed(models.StageFinalized)
	}
	if ref.IsZero() || ref.SessionID != m.session {
		return fmt.Errorf("%w: acknowledgment does not match session %s", lib.ErrTransitionNotAllowed, m.session)
	}
	m.finalized = ref
	m.logger.Info("Report finalized", "session_id", m.session, "report_id", ref.ReportID)
	return nil
}

// Advance moves one stage forward once the target's identity exists
func (m *Machine) Advance(t Ticket, to models.Stage) error {
	if !m.IsCurrent(t) {
		return lib.ErrStaleResponse
	}
	if m.stage == to {
		return nil
	}
	if to == models.StageIntake || !m.stage.CanTransitionTo(to) || !m.NavEnabled(to) {
		return m.notAllowed(to)
	}
	return m.moveTo(to)
}

// Navigate handles a user click on a stage control.
// Intake resets the workflow; other stages only open forward and only when enabled.
func (m *Machine) Navigate(to models.Stage) error {
	if to == models.StageIntake {
		m.Reset()
		return nil
	}
	if to == m.stage {
		return nil
	}
	if !m.NavEnabled(to) || to.Index() < m.stage.Index() {
		return m.notAllowed(to)
	}
	return m.moveTo(to)
}

// Reset clears every identity and returns to intake.
// Requests still in flight become stale.
func (m *Machine) Reset() {
	from := m.stage
	m.epoch++
	m.session = ""
	m.draftID = ""
	m.finalized = models.FinalizedReportRef{}
	m.stage = models.StageIntake

	m.logger.Info("Workflow reset", "from", from, "epoch", m.epoch)
	m.notify(Transition{From: from, To: models.StageIntake, Reset: true})
}

func (m *Machine) moveTo(to models.Stage) error {
	from := m.stage
	m.stage = to
	lib.LogTransition(m.logger, string(from), string(to), m.session.String())
	m.notify(Transition{From: from, To: to})
	return nil
}

func (m *Machine) notify(t Transition) {
	for _, fn := range m.listeners {
		fn(t)
	}
}

func (m *Machine) notAllowed(to models.Stage) error {
	return fmt.Errorf("%w: %s -> %s", lib.ErrTransitionNotAllowed, m.stage, to)
}
