package services

import (
	"context"
	"io"

	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
)

// ReportDownloader streams an approved report document
type ReportDownloader interface {
	DownloadReport(ctx context.Context, session models.SessionID, w io.Writer, progress func(done, total int64)) (DownloadMeta, error)
}

// ArtifactFileName is the default saved name of a report document
func ArtifactFileName(reportID string, session models.SessionID) string {
	if name := SanitizeFileName(reportID); name != "" {
		return name + ".pdf"
	}
	if name := SanitizeFileName(string(session)); name != "" {
		return name + ".pdf"
	}
	return "report.pdf"
}

// DownloadToStore downloads the report for session and saves it through store.
// Returns the saved path. A missing session is rejected before any request.
func DownloadToStore(ctx context.Context, client ReportDownloader, store *ArtifactStore, session models.SessionID, reportID string, progress func(done, total int64), logger *lib.Logger) (string, error) {
	if session.IsZero() {
		return "", lib.ErrMissingSession("download the report")
	}

	logger.Info("Downloading report", "session_id", session, "destination", store.Dir())

	return store.Save(ctx, ArtifactFileName(reportID, session), func(ctx context.Context, w io.Writer) (string, error) {
		meta, err := client.DownloadReport(ctx, session, w, progress)
		if err != nil {
			return "", err
		}
		return meta.FileName, nil
	})
}
