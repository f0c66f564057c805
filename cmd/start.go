package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/trobanga/medreport/internal/labref"
	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/tui"
)

var (
	startOutputDir string
	startLogFile   string
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the interactive report workflow",
	Long: `Open the terminal workflow: upload & patient info, lab values,
review and download.

Navigation:
  f1 / ctrl+n  start a new report (clears the current one)
  f2-f4        jump to a later step once it is unlocked
  d            download the approved PDF
  ctrl+c       quit

The terminal is taken over while the workflow runs, so logs go to
--log-file or are discarded.

Examples:
  medreport start
  medreport start --output-dir ~/reports --log-file medreport.log`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().StringVarP(&startOutputDir, "output-dir", "o", "", "directory for downloaded reports (default: download.output_dir)")
	startCmd.Flags().StringVar(&startLogFile, "log-file", "", "write logs to this file")
}

func runStart(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	var logOut io.Writer = io.Discard
	if startLogFile != "" {
		f, err := os.OpenFile(startLogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}
	logLevel := lib.LogLevelInfo
	if verbose {
		logLevel = lib.LogLevelDebug
	}
	logger := lib.NewLoggerTo(logOut, logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	wf, _ := newWorkflow(config, startOutputDir, logger)
	logger.Info("Starting interactive workflow", "backend", config.Backend.BaseURL)

	return tui.Run(ctx, wf, tui.Options{
		Config: *config,
		Ranges: labref.Default(),
		Logger: logger,
	})
}
