package ui

import (
	"fmt"
	"strings"

	"github.com/trobanga/medreport/internal/models"
)

// Line is one rendered finding or note
type Line struct {
	Text     string
	Critical bool
}

// RenderedSection is a titled block of lines
type RenderedSection struct {
	Title string
	Lines []Line
}

// VisibleSections returns the report sections that should be shown.
// Pending sections are omitted entirely; empty lists produce no section.
func VisibleSections(r models.DraftReport) []RenderedSection {
	var out []RenderedSection

	patient := []Line{
		{Text: "Patient ID: " + r.Patient.PatientID},
		{Text: "Name: " + r.Patient.PatientName},
		{Text: fmt.Sprintf("Age / Gender: %s / %s", r.Patient.Age, r.Patient.Gender)},
	}
	if r.Patient.StudyDate != "" {
		patient = append(patient, Line{Text: "Study Date: " + r.Patient.StudyDate})
	}
	out = append(out, RenderedSection{Title: "Patient Information", Lines: patient})

	if r.ExaminationSummary != "" {
		out = append(out, RenderedSection{Title: "Examination Summary", Lines: []Line{{Text: r.ExaminationSummary}}})
	}
	if findings, ok := completedFindings(r.Imaging); ok {
		out = append(out, RenderedSection{Title: "Imaging Findings", Lines: plainLines(findings)})
	}
	if findings, ok := completedFindings(r.Laboratory.Section); ok {
		lines := make([]Line, len(findings))
		for i, f := range findings {
			lines[i] = Line{Text: f, Critical: models.IsCritical(f)}
		}
		out = append(out, RenderedSection{Title: "Laboratory Findings", Lines: lines})
	}
	if len(r.InterpretiveNotes) > 0 {
		out = append(out, RenderedSection{Title: "Interpretive Notes", Lines: plainLines(r.InterpretiveNotes)})
	}
	if len(r.Recommendations) > 0 {
		out = append(out, RenderedSection{Title: "Recommendations", Lines: plainLines(r.Recommendations)})
	}
	if len(r.Disclaimer) > 0 {
		out = append(out, RenderedSection{Title: "Disclaimer", Lines: plainLines(r.Disclaimer)})
	}
	return out
}

func completedFindings(s models.Section) ([]string, bool) {
	switch v := s.(type) {
	case models.CompletedSection:
		return v.Findings, true
	case models.PendingSection, nil:
		return nil, false
	default:
		panic(fmt.Sprintf("unknown section type %T", s))
	}
}

func plainLines(texts []string) []Line {
	lines := make([]Line, len(texts))
	for i, t := range texts {
		lines[i] = Line{Text: t}
	}
	return lines
}

// RenderReport formats a draft report for the terminal.
// Critical laboratory findings are emphasized.
func RenderReport(r models.DraftReport) string {
	var sb strings.Builder

	sb.WriteString(Title.Render("Medical Diagnostic Report " + r.ReportID))
	meta := []string{strings.ToUpper(string(r.Status))}
	if r.GeneratedDate != "" {
		meta = append(meta, "generated "+r.GeneratedDate)
	}
	if r.Version != "" {
		meta = append(meta, "v"+r.Version)
	}
	sb.WriteString("  " + Muted.Render(strings.Join(meta, " · ")) + "\n")

	if r.RequiresUrgentReview {
		sb.WriteString(Urgent.Render("⚠️  URGENT REVIEW REQUIRED") + "\n")
	}

	for _, section := range VisibleSections(r) {
		sb.WriteString("\n" + Label.Render(section.Title) + "\n")
		for _, line := range section.Lines {
			if line.Critical {
				sb.WriteString("  • " + Critical.Render(line.Text) + "\n")
				continue
			}
			sb.WriteString("  • " + line.Text + "\n")
		}
	}
	return sb.String()
}
