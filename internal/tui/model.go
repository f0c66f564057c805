package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/trobanga/medreport/internal/labref"
	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/pipeline"
	"github.com/trobanga/medreport/internal/services"
	"github.com/trobanga/medreport/internal/ui"
	"github.com/trobanga/medreport/internal/workflow"
)

const draftBanner = "⚠️ AI-GENERATED DRAFT - FOR REVIEW ONLY - NOT A MEDICAL DIAGNOSIS"

// ─── async messages ──────────────────────────────────────────────────────────

type intakeDoneMsg struct{ res workflow.IntakeResult }

type labsDoneMsg struct{ res workflow.LabResult }

type reportLoadedMsg struct{ res workflow.FetchResult }

type decisionDoneMsg struct{ res workflow.DecisionResult }

type downloadProgressMsg struct {
	done, total int64
	updates     <-chan tea.Msg
}

type downloadDoneMsg struct{ res workflow.DownloadResult }

type advanceMsg struct{ deferred *workflow.Deferred }

// ─── model ───────────────────────────────────────────────────────────────────

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

// Options configures the interactive model
type Options struct {
	Config models.ProjectConfig
	Ranges *labref.Table
	Logger *lib.Logger
	Now    func() time.Time
}

// Model is the root Bubble Tea model. Stage, identities and busy flags live in
// the workflow; the model only holds form values and rendering state.
type Model struct {
	ctx    context.Context
	wf     *workflow.Workflow
	ranges *labref.Table
	panel  []string
	logger *lib.Logger
	now    func() time.Time

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	report   viewport.Model
	download progress.Model

	form      *huh.Form
	imagePath string
	image     *services.ImageInfo
	patient   models.PatientDescriptor
	labs      []string
	review    reviewValues
	chain     *pipeline.LabChainResult
	received  float64

	shownStage models.Stage
	shownEpoch uint64
	status     string
	kind       statusKind
	width      int
	height     int
}

// New creates the model for wf. Blocking calls run under ctx.
func New(ctx context.Context, wf *workflow.Workflow, opts Options) *Model {
	if opts.Ranges == nil {
		opts.Ranges = labref.Default()
	}
	if opts.Logger == nil {
		opts.Logger = lib.DefaultLogger
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	panel := opts.Config.LabPanel
	if len(panel) == 0 {
		panel = models.DefaultLabPanel
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ui.Blue)

	vp := viewport.New(80, 16)
	vp.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
	}

	m := &Model{
		ctx:      ctx,
		wf:       wf,
		ranges:   opts.Ranges,
		panel:    panel,
		logger:   opts.Logger,
		now:      opts.Now,
		keys:     defaultKeys(),
		help:     help.New(),
		spinner:  sp,
		report:   vp,
		download: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
	m.clearInputs()
	return m
}

// Run starts the interactive program and blocks until the user quits
func Run(ctx context.Context, wf *workflow.Workflow, opts Options) error {
	p := tea.NewProgram(New(ctx, wf, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return m.sync()
}

// ─── update ──────────────────────────────────────────────────────────────────

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.report.Width = max(msg.Width-4, 20)
		m.report.Height = max(msg.Height/2, 8)
		if m.form != nil {
			m.form = m.form.WithWidth(max(msg.Width-4, 20))
		}

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case spinner.TickMsg:
		if !m.wf.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case intakeDoneMsg:
		if err := m.wf.Intake.Apply(msg.res); err != nil {
			cmds = append(cmds, m.failAndReopen(err))
		} else {
			m.setStatus(statusOK, fmt.Sprintf("Image analyzed. Session %s", msg.res.Response.SessionID))
		}

	case labsDoneMsg:
		deferred, err := m.wf.Labs.Apply(msg.res)
		if err != nil {
			cmds = append(cmds, m.failAndReopen(err))
			break
		}
		chain := msg.res.Chain
		m.chain = &chain
		m.setStatus(statusOK, chain.Summary())
		cmds = append(cmds, schedule(deferred))

	case reportLoadedMsg:
		if err := m.wf.Report.Apply(msg.res); err != nil {
			m.fail(err)
			break
		}
		cmds = append(cmds, m.showReport())

	case decisionDoneMsg:
		deferred, err := m.wf.Review.Apply(msg.res)
		switch {
		case err == nil:
			m.form = nil
			m.setStatus(statusOK, "Report approved! Finalizing...")
			cmds = append(cmds, schedule(deferred))
		case m.wf.Review.Rejected():
			m.form = nil
			m.setStatus(statusWarn, "Report rejected. Start a new report to continue.")
		default:
			cmds = append(cmds, m.failAndReopen(err))
		}

	case downloadProgressMsg:
		if msg.total > 0 {
			m.received = float64(msg.done) / float64(msg.total)
		}
		return m, waitFor(msg.updates)

	case downloadDoneMsg:
		path, err := m.wf.Download.Apply(msg.res)
		if err != nil {
			m.fail(err)
			break
		}
		m.received = 1
		m.setStatus(statusOK, "Report saved to "+path)

	case advanceMsg:
		if err := m.wf.Complete(msg.deferred); err != nil {
			m.fail(err)
		}
	}

	cmds = append(cmds, m.sync())

	if m.form != nil {
		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f
		}
		cmds = append(cmds, cmd)
		switch m.form.State {
		case huh.StateCompleted:
			cmds = append(cmds, m.formCompleted())
		case huh.StateAborted:
			cmds = append(cmds, m.rebuildForm())
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	stage := m.wf.Machine.Stage()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keys.Intake), key.Matches(msg, m.keys.Reset):
		m.wf.Machine.Reset()
		return m.sync(), true

	case key.Matches(msg, m.keys.Labs):
		return m.navigate(models.StageLabEntry), true
	case key.Matches(msg, m.keys.Review):
		return m.navigate(models.StageReview), true
	case key.Matches(msg, m.keys.Final):
		return m.navigate(models.StageFinalized), true

	case key.Matches(msg, m.keys.Download) && stage == models.StageFinalized:
		return m.startDownload(), true

	case key.Matches(msg, m.keys.Retry) && stage == models.StageReview:
		return m.loadReport(), true

	case key.Matches(msg, m.keys.Scroll) && stage == models.StageReview:
		var cmd tea.Cmd
		m.report, cmd = m.report.Update(msg)
		return cmd, true
	}
	return nil, false
}

func (m *Model) navigate(to models.Stage) tea.Cmd {
	if to == m.wf.Machine.Stage() {
		return nil
	}
	if err := m.wf.Machine.Navigate(to); err != nil {
		if m.wf.Machine.NavEnabled(to) {
			m.setStatus(statusWarn, fmt.Sprintf("%s is behind you. Press ctrl+n to start a new report.", to.Title()))
		} else {
			m.setStatus(statusWarn, fmt.Sprintf("%s is not available yet: it needs %s. Complete the previous steps first.",
				to.Title(), describeIdentity(lib.GetStagePrerequisite(to))))
		}
		return nil
	}
	return m.sync()
}

func describeIdentity(id lib.Identity) string {
	switch id {
	case lib.IdentitySession:
		return "an analyzed image"
	case lib.IdentityDraft:
		return "a generated draft report"
	case lib.IdentityFinalized:
		return "an approved report"
	default:
		return "nothing"
	}
}

// sync rebuilds the stage view after the machine moved or was reset
func (m *Model) sync() tea.Cmd {
	stage, epoch := m.wf.Machine.Stage(), m.wf.Machine.Epoch()
	if stage == m.shownStage && epoch == m.shownEpoch {
		return nil
	}
	if epoch != m.shownEpoch {
		m.clearInputs()
	}
	m.shownStage, m.shownEpoch = stage, epoch
	m.logger.Debug("Showing stage", "stage", stage, "epoch", epoch)

	switch stage {
	case models.StageReview:
		m.form = nil
		return m.loadReport()
	case models.StageFinalized:
		m.form = nil
		return nil
	default:
		return m.rebuildForm()
	}
}

func (m *Model) clearInputs() {
	m.form = nil
	m.imagePath = ""
	m.image = nil
	m.patient = models.DefaultPatientDescriptor(m.now())
	m.labs = make([]string, len(m.panel))
	m.review = reviewValues{Approve: true}
	m.chain = nil
	m.received = 0
	m.setStatus(statusInfo, "")
}

// rebuildForm recreates the form of the current stage, keeping entered values
func (m *Model) rebuildForm() tea.Cmd {
	switch m.wf.Machine.Stage() {
	case models.StageIntake:
		if m.image == nil {
			m.form = newImageForm(&m.imagePath)
		} else {
			m.form = newPatientForm(&m.patient)
		}
	case models.StageLabEntry:
		m.form = newLabForm(m.panel, m.labs, m.ranges)
	case models.StageReview:
		if _, ok := m.wf.Report.Draft(); !ok || m.wf.Review.Rejected() {
			m.form = nil
			return nil
		}
		m.form = newReviewForm(&m.review)
	default:
		m.form = nil
		return nil
	}
	if m.width > 0 {
		m.form = m.form.WithWidth(max(m.width-4, 20))
	}
	return m.form.Init()
}

func (m *Model) formCompleted() tea.Cmd {
	switch m.wf.Machine.Stage() {
	case models.StageIntake:
		if m.image == nil {
			return m.chooseImage()
		}
		return m.submitPatient()
	case models.StageLabEntry:
		return m.submitLabs()
	case models.StageReview:
		return m.submitDecision()
	}
	return nil
}

// ─── actions ─────────────────────────────────────────────────────────────────

// chooseImage inspects the selected file and prefills the patient form from a
// DICOM header
func (m *Model) chooseImage() tea.Cmd {
	info, err := services.InspectImage(strings.TrimSpace(m.imagePath))
	if err != nil {
		m.fail(err)
		return m.rebuildForm()
	}
	m.image = &info
	m.patient = services.MergePrefill(m.patient, info.Prefill)
	if info.Prefill != nil {
		m.setStatus(statusInfo, "Patient fields prefilled from the DICOM header")
	} else {
		m.setStatus(statusInfo, "")
	}
	return m.rebuildForm()
}

func (m *Model) submitPatient() tea.Cmd {
	var image models.ImageSelection
	if m.image != nil {
		image = m.image.Selection
	}
	call, err := m.wf.Intake.Submit(m.patient, image)
	if err != nil {
		m.fail(err)
		return m.rebuildForm()
	}
	m.form = nil
	m.setStatus(statusInfo, "")
	wf, ctx := m.wf, m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return intakeDoneMsg{res: wf.Intake.Run(ctx, call)}
	})
}

func (m *Model) submitLabs() tea.Cmd {
	labs := make(models.LabValueSet, len(m.panel))
	for i, key := range m.panel {
		labs[key] = m.labs[i]
	}
	call, err := m.wf.Labs.Submit(labs)
	if err != nil {
		m.fail(err)
		return m.rebuildForm()
	}
	m.form = nil
	m.setStatus(statusInfo, "")
	wf, ctx := m.wf, m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return labsDoneMsg{res: wf.Labs.Run(ctx, call)}
	})
}

func (m *Model) loadReport() tea.Cmd {
	call, err := m.wf.Report.Begin()
	if err != nil {
		m.fail(err)
		return nil
	}
	if call == nil {
		return m.showReport()
	}
	wf, ctx := m.wf, m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return reportLoadedMsg{res: wf.Report.Run(ctx, call)}
	})
}

func (m *Model) showReport() tea.Cmd {
	draft, ok := m.wf.Report.Draft()
	if !ok {
		return nil
	}
	m.report.SetContent(ui.RenderReport(*draft))
	m.report.GotoTop()
	return m.rebuildForm()
}

func (m *Model) submitDecision() tea.Cmd {
	call, err := m.wf.Review.Submit(m.review.decision())
	if err != nil {
		m.fail(err)
		return m.rebuildForm()
	}
	m.form = nil
	m.setStatus(statusInfo, "")
	wf, ctx := m.wf, m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return decisionDoneMsg{res: wf.Review.Run(ctx, call)}
	})
}

// startDownload streams progress through a channel until the result arrives
func (m *Model) startDownload() tea.Cmd {
	call, err := m.wf.Download.Begin()
	if err != nil {
		m.fail(err)
		return nil
	}
	m.received = 0
	m.setStatus(statusInfo, "")

	updates := make(chan tea.Msg, 16)
	wf, ctx := m.wf, m.ctx
	go func() {
		res := wf.Download.Run(ctx, call, func(done, total int64) {
			select {
			case updates <- downloadProgressMsg{done: done, total: total, updates: updates}:
			default:
			}
		})
		updates <- downloadDoneMsg{res: res}
		close(updates)
	}()
	return tea.Batch(m.spinner.Tick, waitFor(updates))
}

func waitFor(updates <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return nil
		}
		return msg
	}
}

func schedule(d *workflow.Deferred) tea.Cmd {
	if d == nil {
		return nil
	}
	if d.After <= 0 {
		return func() tea.Msg { return advanceMsg{deferred: d} }
	}
	return tea.Tick(d.After, func(time.Time) tea.Msg { return advanceMsg{deferred: d} })
}

func (m *Model) fail(err error) {
	if errors.Is(err, lib.ErrStaleResponse) {
		return
	}
	switch {
	case lib.IsCategory(err, lib.CategoryAbsence), lib.IsCategory(err, lib.CategoryValidation):
		m.setStatus(statusWarn, lib.ShortMessage(err))
	default:
		m.setStatus(statusError, lib.ShortMessage(err))
	}
}

// failAndReopen reports a failed request and reopens the form that sent it.
// Entered values are kept.
func (m *Model) failAndReopen(err error) tea.Cmd {
	if errors.Is(err, lib.ErrStaleResponse) {
		return nil
	}
	m.fail(err)
	return m.rebuildForm()
}

func (m *Model) setStatus(kind statusKind, text string) {
	m.kind = kind
	m.status = text
}

// ─── view ────────────────────────────────────────────────────────────────────

// View implements tea.Model
func (m *Model) View() string {
	sections := []string{
		ui.Header.Render("MedReport · Medical Diagnostic Report Authoring"),
		m.navBar(),
		"",
		m.stageView(),
	}
	if m.status != "" {
		sections = append(sections, "", m.statusLine())
	}
	sections = append(sections, "", m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) navBar() string {
	current := m.wf.Machine.Stage()
	steps := make([]string, len(models.Stages))
	for i, stage := range models.Stages {
		label := fmt.Sprintf("%d %s", i+1, stage.Title())
		switch {
		case stage == current:
			steps[i] = ui.StepActive.Render(label)
		case stage.Index() < current.Index():
			steps[i] = ui.StepDone.Render("✓ " + label)
		case m.wf.Machine.NavEnabled(stage):
			steps[i] = ui.Label.Render(label)
		default:
			steps[i] = ui.StepLocked.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, steps...)
}

func (m *Model) stageView() string {
	switch m.wf.Machine.Stage() {
	case models.StageIntake:
		return m.intakeView()
	case models.StageLabEntry:
		return m.labsView()
	case models.StageReview:
		return m.reviewView()
	case models.StageFinalized:
		return m.finalView()
	}
	return ""
}

func (m *Model) busyLine(text string) string {
	return m.spinner.View() + " " + text
}

func (m *Model) intakeView() string {
	var b strings.Builder
	b.WriteString(ui.Title.Render("Upload & Patient Info") + "\n")
	if m.image != nil {
		sel := m.image.Selection
		b.WriteString(ui.Muted.Render(fmt.Sprintf("Image: %s (%s %dx%d)", sel.Name, sel.Kind, sel.Width, sel.Height)) + "\n")
	}
	b.WriteString("\n")
	if m.wf.Intake.Busy() {
		b.WriteString(m.busyLine("Analyzing image..."))
	} else if m.form != nil {
		b.WriteString(m.form.View())
	}
	return b.String()
}

func (m *Model) labsView() string {
	var b strings.Builder
	b.WriteString(ui.Title.Render("Lab Values") + "\n")
	b.WriteString(ui.Muted.Render("Session: "+m.wf.Machine.Session().String()) + "\n\n")
	switch {
	case m.wf.Labs.Busy():
		b.WriteString(m.busyLine("Analyzing labs and generating report..."))
	case m.chain != nil:
		b.WriteString(m.busyLine("Moving to review..."))
	case m.form != nil:
		b.WriteString(m.form.View())
	}
	return b.String()
}

func (m *Model) reviewView() string {
	var b strings.Builder
	b.WriteString(ui.Title.Render("Review Report") + "\n")

	switch m.wf.Report.State() {
	case workflow.LoadLoading, workflow.LoadUnloaded:
		b.WriteString(m.busyLine("Loading report..."))
		return b.String()
	case workflow.LoadNotFound:
		b.WriteString(ui.Warning.Render("Report not found. Please complete previous steps first.") + "\n")
		b.WriteString(ui.Muted.Render("Press ctrl+r to try again."))
		return b.String()
	case workflow.LoadFailed:
		b.WriteString(ui.Failure.Render("Error loading report: "+lib.ShortMessage(m.wf.Report.Err())) + "\n")
		b.WriteString(ui.Muted.Render("Press ctrl+r to try again."))
		return b.String()
	}

	b.WriteString(ui.Warning.Render(draftBanner) + "\n")
	b.WriteString(ui.Pane.Render(m.report.View()) + "\n")
	if draft, ok := m.wf.Report.Draft(); ok {
		if critical := draft.CriticalFindings(); len(critical) > 0 {
			b.WriteString(ui.Critical.Render(fmt.Sprintf("%d critical finding(s) need attention", len(critical))) + "\n")
		}
	}
	b.WriteString("\n")
	switch {
	case m.wf.Review.Busy():
		b.WriteString(m.busyLine("Submitting decision..."))
	case m.wf.Review.Rejected():
		b.WriteString(ui.Failure.Render("✗ Report rejected") + "\n")
		b.WriteString(ui.Muted.Render("Press ctrl+n to start a new report."))
	case m.form != nil:
		b.WriteString(m.form.View())
	}
	return b.String()
}

func (m *Model) finalView() string {
	var b strings.Builder
	ref := m.wf.Machine.Finalized()
	b.WriteString(ui.Title.Render("Download") + "\n")
	b.WriteString(ui.Success.Render("✓ Report approved and finalized") + "\n")
	b.WriteString(fmt.Sprintf("Report ID: %s\nSession:   %s\n\n", ref.ReportID, ref.SessionID))

	switch {
	case m.wf.Download.Busy():
		b.WriteString(m.busyLine("Downloading PDF...") + "\n")
		b.WriteString(m.download.ViewAs(m.received))
	case m.wf.Download.LastPath() != "":
		b.WriteString(m.download.ViewAs(1) + "\n")
		b.WriteString(ui.Muted.Render("Press d to download again or ctrl+n to start a new report."))
	default:
		b.WriteString(ui.Muted.Render("Press d to download the PDF."))
	}
	return b.String()
}

func (m *Model) statusLine() string {
	switch m.kind {
	case statusOK:
		return ui.Success.Render(m.status)
	case statusWarn:
		return ui.Warning.Render(m.status)
	case statusError:
		return ui.Failure.Render(m.status)
	default:
		return ui.Muted.Render(m.status)
	}
}
