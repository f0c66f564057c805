package workflow

import (
	"context"

	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/services"
)

// DownloadCall is a pending artifact download
type DownloadCall struct {
	Ticket   Ticket
	ReportID string
}

// DownloadResult is the completion event of a DownloadCall
type DownloadResult struct {
	Ticket Ticket
	Path   string
	Err    error
}

// DownloadController fetches the finalized PDF and saves it locally
type DownloadController struct {
	machine *Machine
	client  services.ReportDownloader
	store   *services.ArtifactStore
	logger  *lib.Logger

	busy     bool
	lastPath string
}

// NewDownloadController creates a download controller saving into store
func NewDownloadController(machine *Machine, client services.ReportDownloader, store *services.ArtifactStore, logger *lib.Logger) *DownloadController {
	return &DownloadController{machine: machine, client: client, store: store, logger: logger}
}

// Busy reports whether a download is in flight
func (c *DownloadController) Busy() bool { return c.busy }

// LastPath returns where the most recent download was saved
func (c *DownloadController) LastPath() string { return c.lastPath }

// Begin starts a download. A missing session is a local usage error.
func (c *DownloadController) Begin() (*DownloadCall, error) {
	if c.busy {
		return nil, lib.ErrBusy("Download")
	}
	if c.machine.Session().IsZero() {
		return nil, lib.ErrMissingSession("download the report")
	}
	c.busy = true
	return &DownloadCall{Ticket: c.machine.Ticket(), ReportID: c.machine.Finalized().ReportID}, nil
}

// Run downloads and saves the artifact. progress may be nil.
func (c *DownloadController) Run(ctx context.Context, call *DownloadCall, progress func(done, total int64)) DownloadResult {
	path, err := services.DownloadToStore(ctx, c.client, c.store, call.Ticket.Session, call.ReportID, progress, c.logger)
	return DownloadResult{Ticket: call.Ticket, Path: path, Err: err}
}

// Apply delivers the download outcome and re-enables the control.
// Failures arrive classified: not found, timeout, or a generic failure.
func (c *DownloadController) Apply(res DownloadResult) (string, error) {
	if !c.machine.IsCurrent(res.Ticket) {
		c.logger.Debug("Ignoring stale download result", "epoch", res.Ticket.Epoch, "path", res.Path)
		return "", lib.ErrStaleResponse
	}
	c.busy = false

	if res.Err != nil {
		lib.LogFailure(c.logger, services.OpDownloadReport, res.Err)
		return "", res.Err
	}
	c.lastPath = res.Path
	return res.Path, nil
}

func (c *DownloadController) reset() {
	c.busy = false
	c.lastPath = ""
}
