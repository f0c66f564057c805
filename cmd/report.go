package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/services"
	"github.com/trobanga/medreport/internal/ui"
)

var (
	reportOutputDir  string
	reportID         string
	reportNoProgress bool
	inspectLines     int
)

// reportCmd represents the report command group
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Work with stored reports",
	Long: `Work with reports stored by the backend.

Available subcommands:
  show     - Print the stored report of a session
  download - Save the approved PDF of a session
  inspect  - Summarize a downloaded PDF`,
}

var reportShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print the stored report of a session",
	Long: `Fetch the report stored for a session and print it.

Critical laboratory findings are highlighted and an urgent review banner is
shown when the backend flags the report.

Example:
  medreport report show SESSION-ABC123`,
	Args: cobra.ExactArgs(1),
	RunE: runReportShow,
}

var reportDownloadCmd = &cobra.Command{
	Use:   "download <session-id>",
	Short: "Save the approved PDF of a session",
	Long: `Download the approved report document of a session.

The file is saved as <report-id>.pdf (or <session-id>.pdf without --report-id)
unless the backend suggests a name.

Examples:
  medreport report download SESSION-ABC123 --report-id RPT-1
  medreport report download SESSION-ABC123 -o ~/reports`,
	Args: cobra.ExactArgs(1),
	RunE: runReportDownload,
}

var reportInspectCmd = &cobra.Command{
	Use:   "inspect <file.pdf>",
	Short: "Summarize a downloaded PDF",
	Long: `Print page count, size and the first lines of text of a saved report.

Example:
  medreport report inspect RPT-1.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runReportInspect,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportDownloadCmd)
	reportCmd.AddCommand(reportInspectCmd)

	reportDownloadCmd.Flags().StringVarP(&reportOutputDir, "output-dir", "o", "", "directory for the downloaded report (default: download.output_dir)")
	reportDownloadCmd.Flags().StringVar(&reportID, "report-id", "", "report id used to name the saved file")
	reportDownloadCmd.Flags().BoolVar(&reportNoProgress, "no-progress", false, "disable the progress bar")
	reportInspectCmd.Flags().IntVarP(&inspectLines, "lines", "n", 20, "number of text lines to print")
}

func runReportShow(cmd *cobra.Command, args []string) error {
	session := models.SessionID(strings.TrimSpace(args[0]))
	if session.IsZero() {
		return lib.ErrMissingSession("show a report")
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := services.NewBackendClient(*config, logger)
	resp, err := client.FetchReport(ctx, session)
	if err != nil {
		return err
	}
	if resp.Report == nil {
		return lib.ErrReportNotFound(session.String())
	}

	fmt.Println(ui.RenderReport(resp.Report.ToDraftReport()))
	if resp.PDFPath != "" {
		fmt.Printf("PDF: %s\n", resp.PDFPath)
	}
	return nil
}

func runReportDownload(cmd *cobra.Command, args []string) error {
	session := models.SessionID(strings.TrimSpace(args[0]))

	config, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	outputDir := reportOutputDir
	if outputDir == "" {
		outputDir = config.Download.OutputDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var bar *ui.ProgressBar
	var progress func(done, total int64)
	if !reportNoProgress {
		progress = func(done, total int64) {
			if bar == nil {
				bar = ui.NewProgressBar(total, "Downloading report")
			}
			bar.Update(done, total)
		}
	}

	client := services.NewBackendClient(*config, logger)
	store := services.NewArtifactStore(outputDir, logger)
	path, err := services.DownloadToStore(ctx, client, store, session, reportID, progress, logger)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}

	fmt.Printf("✓ Saved to %s\n", path)
	return nil
}

func runReportInspect(cmd *cobra.Command, args []string) error {
	info, err := services.InspectPDF(args[0], inspectLines)
	if err != nil {
		return err
	}

	fmt.Printf("File:  %s\n", info.Path)
	fmt.Printf("Size:  %s\n", formatBytes(info.Size))
	fmt.Printf("Pages: %d\n", info.Pages)
	if len(info.Excerpt) > 0 {
		fmt.Println()
		for _, line := range info.Excerpt {
			fmt.Printf("  %s\n", line)
		}
	}
	return nil
}

func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
	)

	if bytes >= MB {
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	} else if bytes >= KB {
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	}
	return fmt.Sprintf("%d B", bytes)
}
