/*
Copyright © 2025 MedReport Contributors

MedReport is a CLI for authoring AI-assisted medical diagnostic reports.
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/services"
	"github.com/trobanga/medreport/internal/workflow"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "medreport",
	Short: "MedReport - guided diagnostic report authoring",
	Long: `MedReport walks a clinician through authoring a diagnostic report
against the report backend:

  1. Upload & Patient Info - select an image and describe the patient
  2. Lab Values            - enter lab results; the backend analyzes them and drafts a report
  3. Review Report         - read the draft and approve or reject it
  4. Download              - save the approved report as PDF

Reports are drafts produced by an AI service and must be reviewed by a
qualified clinician before use.

Example:
  medreport start
  medreport run --image chest.dcm --patient-id PAT-001 --name "Jane Doe" --age 45 \
      --lab potassium=6.8 --reviewer "Dr. Smith" --approve
  medreport report show SESSION-ABC123`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprint(os.Stderr, userMessage(err))
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./medreport.yaml, ~/.config/medreport/medreport.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	// Add version template
	rootCmd.SetVersionTemplate("MedReport version {{.Version}}\n")
}

func newLogger() *lib.Logger {
	logLevel := lib.LogLevelInfo
	if verbose {
		logLevel = lib.LogLevelDebug
	}
	return lib.NewLogger(logLevel)
}

func loadConfig() (*models.ProjectConfig, error) {
	config, err := services.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return config, nil
}

// newWorkflow builds a workflow against the configured backend
func newWorkflow(config *models.ProjectConfig, outputDir string, logger *lib.Logger) (*workflow.Workflow, *services.BackendClient) {
	if outputDir == "" {
		outputDir = config.Download.OutputDir
	}
	client := services.NewBackendClient(*config, logger)
	store := services.NewArtifactStore(outputDir, logger)
	return workflow.New(*config, client, store, logger), client
}

// userMessage renders classified errors with guidance
func userMessage(err error) string {
	var reportErr *lib.ReportError
	if errors.As(err, &reportErr) {
		return reportErr.UserMessage()
	}
	return fmt.Sprintf("Error: %v\n", err)
}
