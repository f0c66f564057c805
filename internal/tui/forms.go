package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/trobanga/medreport/internal/labref"
	"github.com/trobanga/medreport/internal/models"
)

// reviewValues backs the decision form
type reviewValues struct {
	Reviewer string
	Comments string
	Approve  bool
}

func (v reviewValues) decision() models.ReviewDecision {
	return models.ReviewDecision{ReviewerName: v.Reviewer, Comments: v.Comments, Approved: v.Approve}
}

func newImageForm(path *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("image").
				Title("Diagnostic Image").
				Description("Path to a DICOM, PNG, JPEG, BMP, TIFF or WebP file").
				Placeholder("/path/to/chest-xray.dcm").
				Value(path).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("please select an image file")
					}
					return nil
				}),
		),
	).WithShowHelp(false).WithShowErrors(true)
}

func newPatientForm(p *models.PatientDescriptor) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("patient_id").
				Title("Patient ID").
				Placeholder("PAT-2024-001").
				Value(&p.PatientID),

			huh.NewInput().
				Key("patient_name").
				Title("Patient Name").
				Value(&p.PatientName),

			huh.NewInput().
				Key("age").
				Title("Age").
				Value(&p.Age).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					return models.ValidateAge(s)
				}),

			huh.NewSelect[string]().
				Key("gender").
				Title("Gender").
				Options(huh.NewOptions(models.Genders...)...).
				Value(&p.Gender),

			huh.NewInput().
				Key("study_date").
				Title("Study Date").
				Description("Format: YYYY-MM-DD").
				Value(&p.StudyDate).
				Validate(validateStudyDate),

			huh.NewSelect[string]().
				Key("image_type").
				Title("Image Type").
				Options(huh.NewOptions(models.Modalities...)...).
				Value(&p.ImageType),
		).Title("Patient Information"),
	).WithShowHelp(false).WithShowErrors(true)
}

func validateStudyDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := time.Parse(models.StudyDateLayout, s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}

// newLabForm binds one input per panel analyte to values[i].
// Inputs are free text; unparseable entries are dropped on submit.
func newLabForm(panel []string, values []string, ranges *labref.Table) *huh.Form {
	fields := make([]huh.Field, 0, len(panel))
	for i, key := range panel {
		fields = append(fields, huh.NewInput().
			Key(key).
			Title(ranges.Label(key)).
			Description(ranges.Hint(key)).
			Value(&values[i]))
	}
	return huh.NewForm(
		huh.NewGroup(fields...).
			Title("Laboratory Values").
			Description("Leave a value blank to skip it"),
	).WithShowHelp(false).WithShowErrors(true)
}

func newReviewForm(v *reviewValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("reviewer").
				Title("Reviewer Name").
				Placeholder("Dr. Smith").
				Value(&v.Reviewer),

			huh.NewText().
				Key("comments").
				Title("Comments").
				Lines(3).
				Value(&v.Comments),

			huh.NewConfirm().
				Key("decision").
				Title("Decision").
				Affirmative("Approve").
				Negative("Reject").
				Value(&v.Approve),
		),
	).WithShowHelp(false).WithShowErrors(true)
}
