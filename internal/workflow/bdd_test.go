package workflow_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cucumber/godog"
	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/services"
	"github.com/trobanga/medreport/internal/workflow"
)

// reportServer is an HTTP stand-in for the report backend
type reportServer struct {
	mu        sync.Mutex
	session   string
	reportID  string
	pdf       bool
	requests  map[string]int
	imagePath string
	labData   string
}

func (s *reportServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	reply := func(status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	switch {
	case r.URL.Path == services.PathAnalyzeImage:
		s.requests[services.OpAnalyzeImage]++
		var req models.AnalyzeImageRequest
		_ = json.Unmarshal(body, &req)
		s.imagePath = req.ImagePath
		reply(200, models.AnalyzeImageResponse{Status: models.StatusSuccess, SessionID: s.session})

	case r.URL.Path == services.PathAnalyzeLabs:
		s.requests[services.OpAnalyzeLabs]++
		var req struct {
			LabData json.RawMessage `json:"lab_data"`
		}
		_ = json.Unmarshal(body, &req)
		s.labData = string(req.LabData)
		reply(200, models.AnalyzeLabsResponse{Status: models.StatusSuccess})

	case r.URL.Path == services.PathGenerateReport:
		s.requests[services.OpGenerateReport]++
		reply(200, models.GenerateReportResponse{Status: models.StatusSuccess, ReportID: s.reportID})

	case r.URL.Path == services.PathApproveReport:
		s.requests[services.OpApproveReport]++
		var req models.ApproveReportRequest
		_ = json.Unmarshal(body, &req)
		status := models.StatusApproved
		if !req.Approved {
			status = models.StatusRejected
		}
		reply(200, models.ApproveReportResponse{Status: status, SessionID: req.SessionID, ReportID: req.ReportID})

	case r.URL.Path == services.PathReport+s.session+"/download":
		s.requests[services.OpDownloadReport]++
		if !s.pdf {
			reply(404, models.DownloadErrorResponse{Status: models.StatusError, Message: "PDF not found", FileAvailable: false})
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 report"))

	case r.URL.Path == services.PathReport+s.session:
		s.requests[services.OpFetchReport]++
		reply(200, models.FetchReportResponse{Status: models.StatusSuccess, Report: &models.ReportPayload{
			ReportID: s.reportID,
			Status:   models.StatusDraft,
		}})

	default:
		reply(404, models.ErrorResponse{Status: models.StatusError, Message: "unknown route"})
	}
}

type scenario struct {
	server  *reportServer
	http    *httptest.Server
	outDir  string
	driver  *workflow.Driver
	wf      *workflow.Workflow
	lastErr error
}

func (sc *scenario) setup() error {
	dir, err := os.MkdirTemp("", "medreport-bdd-*")
	if err != nil {
		return err
	}
	sc.outDir = dir
	sc.server = &reportServer{pdf: true, requests: map[string]int{}}
	sc.http = httptest.NewServer(sc.server)

	logger := lib.NewLogger(lib.LogLevelError)
	cfg := models.DefaultConfig()
	cfg.Backend.BaseURL = sc.http.URL
	cfg.Delays = models.DelayConfig{}
	cfg.Retry = models.RetryConfig{MaxAttempts: 1, InitialBackoffMs: 1, MaxBackoffMs: 1}

	client := services.NewBackendClient(cfg, logger)
	sc.wf = workflow.New(cfg, client, services.NewArtifactStore(dir, logger), logger)
	sc.driver = workflow.NewDriver(sc.wf, logger)
	return nil
}

func (sc *scenario) teardown() {
	if sc.http != nil {
		sc.http.Close()
	}
	if sc.outDir != "" {
		_ = os.RemoveAll(sc.outDir)
	}
}

func (sc *scenario) backendIssues(session, report string) error {
	sc.server.session = session
	sc.server.reportID = report
	return nil
}

func (sc *scenario) backendHasNoPDF() error {
	sc.server.pdf = false
	return nil
}

func (sc *scenario) submitPatient(id, name string, age int, gender, image string) error {
	form := models.PatientDescriptor{
		PatientID:   id,
		PatientName: name,
		Age:         fmt.Sprint(age),
		Gender:      gender,
		StudyDate:   "2024-03-01",
		ImageType:   models.ModalityXRay,
	}
	_, sc.lastErr = sc.driver.SubmitIntake(context.Background(), form, models.ImageSelection{Path: "/data/" + image, Name: image})
	return nil
}

func (sc *scenario) intakeComplete() error {
	return sc.must(sc.submitPatient("PAT-2024-001", "Jane Doe", 45, models.GenderFemale, "chest.png"))
}

func (sc *scenario) underReview() error {
	if err := sc.intakeComplete(); err != nil {
		return err
	}
	if _, err := sc.driver.SubmitLabs(context.Background(), models.LabValueSet{}); err != nil {
		return err
	}
	_, err := sc.driver.LoadReport(context.Background())
	return err
}

func (sc *scenario) finalized() error {
	if err := sc.underReview(); err != nil {
		return err
	}
	_, err := sc.driver.Decide(context.Background(), models.ReviewDecision{ReviewerName: "Dr. Smith", Approved: true})
	return err
}

func (sc *scenario) submitLabs(table *godog.Table) error {
	labs := models.LabValueSet{}
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		value := ""
		if len(row.Cells) > 1 {
			value = row.Cells[1].Value
		}
		labs[row.Cells[0].Value] = value
	}
	_, sc.lastErr = sc.driver.SubmitLabs(context.Background(), labs)
	return nil
}

func (sc *scenario) decide(reviewer string, approved bool) error {
	_, sc.lastErr = sc.driver.Decide(context.Background(), models.ReviewDecision{ReviewerName: reviewer, Approved: approved})
	return nil
}

func (sc *scenario) approves(reviewer string) error { return sc.decide(reviewer, true) }
func (sc *scenario) rejects(reviewer string) error  { return sc.decide(reviewer, false) }

func (sc *scenario) reset() error {
	sc.wf.Machine.Reset()
	return nil
}

func (sc *scenario) download() error {
	_, sc.lastErr = sc.driver.Download(context.Background(), nil)
	return nil
}

func (sc *scenario) stageIs(stage string) error {
	if got := sc.wf.Machine.Stage(); got != models.Stage(stage) {
		return fmt.Errorf("expected stage %s, got %s (last error: %v)", stage, got, sc.lastErr)
	}
	return nil
}

func (sc *scenario) sessionIs(session string) error {
	if got := sc.wf.Machine.Session(); got != models.SessionID(session) {
		return fmt.Errorf("expected session %s, got %q", session, got)
	}
	return nil
}

func (sc *scenario) receivedImagePath(path string) error {
	if sc.server.imagePath != path {
		return fmt.Errorf("expected image path %s, got %q", path, sc.server.imagePath)
	}
	return nil
}

func (sc *scenario) receivedLabData(data string) error {
	if sc.server.labData != data {
		return fmt.Errorf("expected lab data %s, got %s", data, sc.server.labData)
	}
	return nil
}

func (sc *scenario) receivedNoRequest(op string) error {
	if n := sc.server.requests[op]; n != 0 {
		return fmt.Errorf("expected no %s request, got %d", op, n)
	}
	return nil
}

func (sc *scenario) noticeContains(text string) error {
	if sc.lastErr == nil {
		return fmt.Errorf("expected a notice containing %q, got none", text)
	}
	if msg := lib.ClassifyError(sc.lastErr).UserMessage(); !strings.Contains(msg, text) {
		return fmt.Errorf("expected notice to contain %q, got %q", text, msg)
	}
	return nil
}

func (sc *scenario) finalizedIs(report, session string) error {
	want := models.FinalizedReportRef{ReportID: report, SessionID: models.SessionID(session)}
	if got := sc.wf.Machine.Finalized(); got != want {
		return fmt.Errorf("expected finalized %+v, got %+v", want, got)
	}
	return nil
}

func (sc *scenario) noIdentityRemains() error {
	m := sc.wf.Machine
	if !m.Session().IsZero() || m.DraftReportID() != "" || !m.Finalized().IsZero() {
		return fmt.Errorf("identities survived reset: session=%q draft=%q finalized=%+v", m.Session(), m.DraftReportID(), m.Finalized())
	}
	for _, stage := range models.Stages[1:] {
		if m.NavEnabled(stage) {
			return fmt.Errorf("stage %s is still reachable", stage)
		}
	}
	return nil
}

func (sc *scenario) downloadRetryable() error {
	if sc.wf.Download.Busy() {
		return fmt.Errorf("download control is still disabled")
	}
	call, err := sc.wf.Download.Begin()
	if err != nil {
		return fmt.Errorf("retry refused: %w", err)
	}
	_, _ = sc.wf.Download.Apply(sc.wf.Download.Run(context.Background(), call, nil))
	return nil
}

func (sc *scenario) fileSaved(name string) error {
	if sc.lastErr != nil {
		return sc.lastErr
	}
	data, err := os.ReadFile(filepath.Join(sc.outDir, name))
	if err != nil {
		return err
	}
	if !strings.HasPrefix(string(data), "%PDF") {
		return fmt.Errorf("saved file is not a PDF: %q", data)
	}
	return nil
}

func (sc *scenario) must(err error) error {
	if err != nil {
		return err
	}
	return sc.lastErr
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	sc := &scenario{}

	ctx.Before(func(c context.Context, s *godog.Scenario) (context.Context, error) {
		*sc = scenario{}
		return c, sc.setup()
	})
	ctx.After(func(c context.Context, s *godog.Scenario, err error) (context.Context, error) {
		sc.teardown()
		return c, nil
	})

	ctx.Step(`^a report backend issuing session "([^"]*)" and report "([^"]*)"$`, sc.backendIssues)
	ctx.Step(`^the backend has no PDF for the session$`, sc.backendHasNoPDF)
	ctx.Step(`^I submit patient "([^"]*)" named "([^"]*)" aged (\d+) gender "([^"]*)" with image "([^"]*)"$`, sc.submitPatient)
	ctx.Step(`^the intake is complete$`, sc.intakeComplete)
	ctx.Step(`^the report is under review$`, sc.underReview)
	ctx.Step(`^the report is finalized$`, sc.finalized)
	ctx.Step(`^I submit lab values:$`, sc.submitLabs)
	ctx.Step(`^reviewer "([^"]*)" approves the report$`, sc.approves)
	ctx.Step(`^reviewer "([^"]*)" rejects the report$`, sc.rejects)
	ctx.Step(`^I reset the workflow$`, sc.reset)
	ctx.Step(`^I download the report$`, sc.download)
	ctx.Step(`^the stage is "([^"]*)"$`, sc.stageIs)
	ctx.Step(`^the session is "([^"]*)"$`, sc.sessionIs)
	ctx.Step(`^the backend received image path "([^"]*)"$`, sc.receivedImagePath)
	ctx.Step(`^the backend received lab data (.+)$`, sc.receivedLabData)
	ctx.Step(`^the backend received no "([^"]*)" request$`, sc.receivedNoRequest)
	ctx.Step(`^the notice contains "([^"]*)"$`, sc.noticeContains)
	ctx.Step(`^the finalized report is "([^"]*)" for session "([^"]*)"$`, sc.finalizedIs)
	ctx.Step(`^no identity remains$`, sc.noIdentityRemains)
	ctx.Step(`^the download can be retried$`, sc.downloadRetryable)
	ctx.Step(`^the file "([^"]*)" is saved$`, sc.fileSaved)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
