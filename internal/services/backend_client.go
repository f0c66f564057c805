package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
)

// Backend endpoint paths
const (
	PathAnalyzeImage   = "/medical/analyze-image"
	PathAnalyzeLabs    = "/medical/analyze-labs"
	PathGenerateReport = "/medical/generate-report"
	PathApproveReport  = "/medical/approve-report"
	PathReport         = "/medical/report/"
)

// Operation names used in messages and logs
const (
	OpAnalyzeImage   = "analyze-image"
	OpAnalyzeLabs    = "analyze-labs"
	OpGenerateReport = "generate-report"
	OpFetchReport    = "fetch-report"
	OpApproveReport  = "approve-report"
	OpDownloadReport = "download-report"
)

const maxJSONBody = 4 << 20

// BackendClient talks to the report backend over HTTP.
// Only fetch-report is retried; every other call is issued once.
type BackendClient struct {
	baseURL         string
	calls           *HTTPClient
	reads           *HTTPClient
	downloads       *HTTPClient
	downloadTimeout time.Duration
	logger          *lib.Logger
}

// NewBackendClient creates a client from configuration
func NewBackendClient(cfg models.ProjectConfig, logger *lib.Logger) *BackendClient {
	return &BackendClient{
		baseURL:         strings.TrimRight(cfg.Backend.BaseURL, "/"),
		calls:           NewHTTPClient(cfg.Backend.RequestTimeout(), lib.NoRetry, logger),
		reads:           NewHTTPClient(cfg.Backend.RequestTimeout(), lib.NewRetryConfigFromModel(cfg.Retry), logger),
		downloads:       NewHTTPClient(0, lib.NoRetry, logger),
		downloadTimeout: cfg.Download.Timeout(),
		logger:          logger,
	}
}

// BaseURL returns the backend root URL
func (c *BackendClient) BaseURL() string {
	return c.baseURL
}

// AnalyzeImage submits patient metadata and the image reference
func (c *BackendClient) AnalyzeImage(ctx context.Context, req models.AnalyzeImageRequest) (models.AnalyzeImageResponse, error) {
	var out models.AnalyzeImageResponse
	err := c.postJSON(ctx, OpAnalyzeImage, PathAnalyzeImage, req, &out)
	return out, err
}

// AnalyzeLabs submits numeric lab values for a session
func (c *BackendClient) AnalyzeLabs(ctx context.Context, session models.SessionID, labs map[string]float64) (models.AnalyzeLabsResponse, error) {
	if labs == nil {
		labs = map[string]float64{}
	}
	var out models.AnalyzeLabsResponse
	err := c.postJSON(ctx, OpAnalyzeLabs, PathAnalyzeLabs, models.AnalyzeLabsRequest{
		SessionID: string(session),
		LabData:   labs,
	}, &out)
	return out, err
}

// GenerateReport asks the backend to draft the report for a session
func (c *BackendClient) GenerateReport(ctx context.Context, session models.SessionID) (models.GenerateReportResponse, error) {
	var out models.GenerateReportResponse
	err := c.postJSON(ctx, OpGenerateReport, PathGenerateReport, models.GenerateReportRequest{
		SessionID: string(session),
	}, &out)
	return out, err
}

// ApproveReport submits a review decision
func (c *BackendClient) ApproveReport(ctx context.Context, req models.ApproveReportRequest) (models.ApproveReportResponse, error) {
	var out models.ApproveReportResponse
	err := c.postJSON(ctx, OpApproveReport, PathApproveReport, req, &out)
	return out, err
}

// FetchReport loads the stored report for a session.
// A 404 or an empty report yields a CategoryAbsence error.
func (c *BackendClient) FetchReport(ctx context.Context, session models.SessionID) (models.FetchReportResponse, error) {
	var out models.FetchReportResponse

	endpoint := c.reportURL(session)
	resp, err := c.reads.Get(ctx, endpoint)
	if err != nil {
		return out, c.transportError(endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
	if err != nil {
		return out, c.transportError(endpoint, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return out, lib.ErrReportNotFound(string(session))
	}
	if resp.StatusCode >= 400 {
		return out, statusError(OpFetchReport, resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, &out); err != nil {
		return out, lib.ErrUnexpectedResponse(OpFetchReport, err)
	}
	if out.Report == nil || out.Status == models.StatusNotFound {
		return out, lib.ErrReportNotFound(string(session))
	}

	return out, nil
}

// DownloadMeta describes a completed download
type DownloadMeta struct {
	FileName    string // Server-suggested file name, may be empty
	ContentType string
	Bytes       int64
}

// DownloadReport streams the approved report document into w.
// progress, when set, receives bytes so far and the expected total (-1 if unknown).
func (c *BackendClient) DownloadReport(ctx context.Context, session models.SessionID, w io.Writer, progress func(done, total int64)) (DownloadMeta, error) {
	var meta DownloadMeta

	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	endpoint := c.reportURL(session) + "/download"
	resp, err := c.downloads.Get(ctx, endpoint)
	if err != nil {
		return meta, downloadError(0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
		detail := downloadErrorDetail(data)
		if resp.StatusCode == http.StatusNotFound {
			return meta, lib.ErrArtifactNotFound(string(session), detail)
		}
		if detail == "" {
			detail = resp.Status
		}
		return meta, lib.ErrDownloadFailed(resp.StatusCode, errors.New(detail))
	}

	meta.ContentType = resp.Header.Get("Content-Type")
	meta.FileName = fileNameFromDisposition(resp.Header.Get("Content-Disposition"))
	if mt, _, err := mime.ParseMediaType(meta.ContentType); err == nil && mt != "application/pdf" {
		c.logger.Warn("Unexpected download content type", "content_type", mt, "session_id", session)
	}

	total := resp.ContentLength
	reader := &ProgressReader{Reader: resp.Body}
	if progress != nil {
		progress(0, total)
		reader.Callback = func(n int64) { progress(n, total) }
	}

	meta.Bytes, err = io.Copy(w, reader)
	if err != nil {
		return meta, downloadError(resp.StatusCode, err)
	}

	c.logger.Info("Report downloaded", "session_id", session, "bytes", meta.Bytes)
	return meta, nil
}

func (c *BackendClient) reportURL(session models.SessionID) string {
	return c.baseURL + PathReport + url.PathEscape(string(session))
}

func (c *BackendClient) postJSON(ctx context.Context, operation, endpointPath string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", operation, err)
	}

	endpoint := c.baseURL + endpointPath
	resp, err := c.calls.PostJSON(ctx, endpoint, body)
	if err != nil {
		return c.transportError(endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
	if err != nil {
		return c.transportError(endpoint, err)
	}

	if resp.StatusCode >= 400 {
		return statusError(operation, resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return lib.ErrUnexpectedResponse(operation, err)
	}
	return nil
}

func (c *BackendClient) transportError(endpoint string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if lib.IsTimeout(err) {
		return lib.ErrNetworkTimeout(endpoint, err)
	}
	return lib.ErrNetworkUnreachable(c.baseURL, err)
}

// statusError maps a non-2xx response to a service error
func statusError(operation string, status int, body []byte) error {
	message := errorMessage(body)
	if lib.ClassifyHTTPError(status) == models.ErrorTypeTransient {
		var cause error
		if message != "" {
			cause = errors.New(message)
		}
		return lib.ErrServiceUnavailable(operation, status, cause)
	}
	return lib.ErrServiceRejected(operation, status, message)
}

func errorMessage(body []byte) string {
	var e models.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func downloadErrorDetail(body []byte) string {
	var e models.DownloadErrorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		return e.Message
	}
	return ""
}

func downloadError(status int, err error) error {
	if lib.IsTimeout(err) {
		return lib.ErrDownloadTimeout(err)
	}
	return lib.ErrDownloadFailed(status, err)
}

func fileNameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return SanitizeFileName(params["filename"])
}

// SanitizeFileName reduces a suggested name to a safe base name, or "" if nothing usable remains
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." || strings.HasPrefix(name, ".") {
		return ""
	}
	return name
}
