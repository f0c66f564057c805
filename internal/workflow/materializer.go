package workflow

import (
	"context"

	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/services"
)

// LoadState is the materializer's view of the draft report
type LoadState int

const (
	LoadUnloaded LoadState = iota
	LoadLoading
	LoadLoaded
	LoadNotFound // expected: generation has not completed
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadUnloaded:
		return "unloaded"
	case LoadLoading:
		return "loading"
	case LoadLoaded:
		return "loaded"
	case LoadNotFound:
		return "not_found"
	case LoadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchCall is a pending fetch-report request
type FetchCall struct {
	Ticket Ticket
}

// FetchResult is the completion event of a FetchCall
type FetchResult struct {
	Ticket   Ticket
	Response models.FetchReportResponse
	Err      error
}

// Materializer fetches the draft report once per review visit and holds it
// until the workflow leaves review
type Materializer struct {
	machine *Machine
	source  ReportSource
	logger  *lib.Logger

	state   LoadState
	draft   *models.DraftReport
	pdfPath string
	err     error
}

// NewMaterializer creates a materializer
func NewMaterializer(machine *Machine, source ReportSource, logger *lib.Logger) *Materializer {
	return &Materializer{machine: machine, source: source, logger: logger}
}

// State returns the load state of the current review visit
func (m *Materializer) State() LoadState { return m.state }

// Err returns the failure of the last fetch (absence included)
func (m *Materializer) Err() error { return m.err }

// Draft returns the cached report
func (m *Materializer) Draft() (*models.DraftReport, bool) {
	return m.draft, m.draft != nil
}

// PDFPath returns the backend's artifact path hint, if it sent one
func (m *Materializer) PDFPath() string { return m.pdfPath }

// Begin starts a fetch. A loaded report is served from cache and yields no call;
// a missing or failed fetch may be retried by the user.
func (m *Materializer) Begin() (*FetchCall, error) {
	switch m.state {
	case LoadLoaded:
		return nil, nil
	case LoadLoading:
		return nil, lib.ErrBusy("Loading the report")
	}
	if m.machine.Session().IsZero() {
		return nil, lib.ErrMissingSession("load the report")
	}
	m.state = LoadLoading
	m.err = nil
	return &FetchCall{Ticket: m.machine.Ticket()}, nil
}

// Run issues fetch-report. It does not touch workflow state.
func (m *Materializer) Run(ctx context.Context, call *FetchCall) FetchResult {
	resp, err := m.source.FetchReport(ctx, call.Ticket.Session)
	return FetchResult{Ticket: call.Ticket, Response: resp, Err: err}
}

// Apply stores the fetched report. Absence is reported with a CategoryAbsence error.
func (m *Materializer) Apply(res FetchResult) error {
	if !m.machine.IsCurrent(res.Ticket) || m.state != LoadLoading {
		m.logger.Debug("Ignoring stale fetch-report response", "epoch", res.Ticket.Epoch)
		return lib.ErrStaleResponse
	}

	if res.Err == nil && res.Response.Report == nil {
		res.Err = lib.ErrReportNotFound(res.Ticket.Session.String())
	}
	if res.Err != nil {
		m.err = res.Err
		if lib.IsCategory(res.Err, lib.CategoryAbsence) {
			m.state = LoadNotFound
		} else {
			m.state = LoadFailed
		}
		lib.LogFailure(m.logger, services.OpFetchReport, res.Err)
		return res.Err
	}

	draft := res.Response.Report.ToDraftReport()
	m.draft = &draft
	m.pdfPath = res.Response.PDFPath
	m.state = LoadLoaded
	m.logger.Info("Report loaded", "session_id", res.Ticket.Session, "report_id", draft.ReportID, "status", draft.Status)
	return nil
}

// Discard drops the cached report; the next review visit fetches afresh
func (m *Materializer) Discard() {
	m.state = LoadUnloaded
	m.draft = nil
	m.pdfPath = ""
	m.err = nil
}
