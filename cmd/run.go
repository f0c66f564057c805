package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/services"
	"github.com/trobanga/medreport/internal/ui"
	"github.com/trobanga/medreport/internal/workflow"
)

var (
	runImage      string
	runPatient    models.PatientDescriptor
	runLabs       map[string]string
	runReviewer   string
	runComments   string
	runReject     bool
	runNoDownload bool
	runOutputDir  string
	runNoProgress bool
	runShowReport bool
)

// runCmd represents the headless run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole workflow without the terminal UI",
	Long: `Run intake, lab analysis, review and download in one go.

Each step goes through the same checks as the interactive workflow and the
run stops at the first failure. Patient fields missing from the flags are
prefilled from the DICOM header when the image is a DICOM file.

Examples:
  # Approve and download
  medreport run --image chest.dcm --reviewer "Dr. Smith" \
      --lab hemoglobin=13.5 --lab potassium=6.8

  # Raster image, explicit patient data, reject the draft
  medreport run --image chest.png --patient-id PAT-2024-001 --name "Jane Doe" \
      --age 45 --gender Female --reviewer "Dr. Smith" --reject`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringVarP(&runImage, "image", "i", "", "diagnostic image (DICOM, PNG, JPEG, BMP, TIFF, WebP)")
	f.StringVar(&runPatient.PatientID, "patient-id", "", "patient identifier")
	f.StringVar(&runPatient.PatientName, "name", "", "patient name")
	f.StringVar(&runPatient.Age, "age", "", "patient age in years")
	f.StringVar(&runPatient.Gender, "gender", "", "Male, Female or Other (default Male)")
	f.StringVar(&runPatient.StudyDate, "study-date", "", "study date YYYY-MM-DD (default today)")
	f.StringVar(&runPatient.ImageType, "image-type", "", "X-Ray, CT or MRI (default X-Ray)")
	f.StringToStringVar(&runLabs, "lab", nil, "lab value as analyte=value, repeatable")
	f.StringVar(&runReviewer, "reviewer", "", "reviewer name recorded with the decision")
	f.StringVar(&runComments, "comments", "", "review comments")
	f.BoolVar(&runReject, "reject", false, "reject the draft instead of approving it")
	f.BoolVar(&runNoDownload, "no-download", false, "skip downloading the approved PDF")
	f.StringVarP(&runOutputDir, "output-dir", "o", "", "directory for the downloaded report (default: download.output_dir)")
	f.BoolVar(&runNoProgress, "no-progress", false, "disable step and download progress output")
	f.BoolVar(&runShowReport, "show-report", true, "print the draft report before the decision outcome")

	_ = runCmd.MarkFlagRequired("image")
}

func runRun(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	info, err := services.InspectImage(runImage)
	if err != nil {
		return err
	}
	form := services.MergePrefill(models.DefaultPatientDescriptor(time.Now()), info.Prefill)
	form = services.MergePrefill(form, &runPatient)

	labs := make(models.LabValueSet, len(runLabs))
	for k, v := range runLabs {
		labs[k] = v
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	wf, client := newWorkflow(config, runOutputDir, logger)
	driver := workflow.NewDriver(wf, logger)

	fmt.Printf("Backend: %s\n", client.BaseURL())
	fmt.Printf("Image:   %s (%s %dx%d)\n\n", info.Selection.Name, info.Selection.Kind, info.Selection.Width, info.Selection.Height)

	var bar *ui.ProgressBar
	in := workflow.RunInput{
		Patient:  form,
		Image:    info.Selection,
		Labs:     labs,
		Decision: models.ReviewDecision{ReviewerName: runReviewer, Comments: runComments, Approved: !runReject},
		Download: !runNoDownload,
	}
	if !runNoProgress {
		in.Step = func(name string) func(error) {
			s := ui.NewSpinner(name, os.Stderr)
			s.Start()
			return func(err error) { s.Stop(err == nil) }
		}
		in.Progress = func(done, total int64) {
			if bar == nil {
				bar = ui.NewProgressBar(total, "Downloading report")
			}
			bar.Update(done, total)
		}
	}

	out, err := driver.Run(ctx, in)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	printOutcome(out)
	return err
}

func printOutcome(out workflow.RunOutcome) {
	if !out.Session.IsZero() {
		fmt.Printf("✓ Image analyzed (session %s)\n", out.Session)
	}
	if out.Chain.ReportID != "" {
		fmt.Printf("✓ %s\n", out.Chain.Summary())
	}
	if len(out.Chain.Run.Steps) > 0 {
		for _, step := range out.Chain.Run.Steps {
			fmt.Printf("  %s %-16s %s\n", stepSymbol(step.Status), step.Name, step.Status)
		}
		if len(out.Chain.Dropped) > 0 {
			fmt.Printf("  Skipped non-numeric values: %v\n", out.Chain.Dropped)
		}
	}
	if out.Draft != nil && runShowReport {
		fmt.Println()
		fmt.Println(ui.RenderReport(*out.Draft))
	}
	if !out.Finalized.IsZero() {
		fmt.Printf("✓ Report %s approved\n", out.Finalized.ReportID)
	}
	if out.ArtifactPath != "" {
		fmt.Printf("✓ Saved to %s\n", out.ArtifactPath)
	}
	fmt.Printf("Stage: %s\n", out.Stage.Title())
}

func stepSymbol(status models.StepStatus) string {
	switch status {
	case models.StepStatusCompleted:
		return "✓"
	case models.StepStatusInProgress:
		return "→"
	case models.StepStatusFailed:
		return "✗"
	default:
		return " "
	}
}
