package models

import "strings"

// Critical markers that flag a finding line for emphasis
const (
	CriticalEmoji = "⚠️"
	CriticalWord  = "CRITICAL"
)

// IsCritical reports whether a finding line carries a critical marker
func IsCritical(line string) bool {
	return strings.Contains(line, CriticalEmoji) || strings.Contains(line, CriticalWord)
}

// Section is a report section that is either still pending or completed.
// The set of implementations is closed: PendingSection and CompletedSection.
type Section interface {
	isSection()
}

// PendingSection is a section whose analysis has not finished
type PendingSection struct{}

// CompletedSection carries the finished findings of a section
type CompletedSection struct {
	Findings []string
}

func (PendingSection) isSection()   {}
func (CompletedSection) isSection() {}

// IsCompleted reports whether s is a completed section
func IsCompleted(s Section) bool {
	_, ok := s.(CompletedSection)
	return ok
}

// ReportStatus is the lifecycle status of a stored report
type ReportStatus string

const (
	ReportStatusDraft    ReportStatus = "draft"
	ReportStatusApproved ReportStatus = "approved"
)

// LabSection is the laboratory findings section plus its counters
type LabSection struct {
	Section
	AbnormalCount int
	CriticalCount int
}

// DraftReport is the partially populated report shown during review
type DraftReport struct {
	ReportID             string
	Status               ReportStatus
	GeneratedDate        string
	Version              string
	Patient              PatientDescriptor
	ExaminationSummary   string
	Imaging              Section
	Laboratory           LabSection
	InterpretiveNotes    []string
	Recommendations      []string
	Disclaimer           []string
	RequiresUrgentReview bool
}

// CriticalFindings returns the laboratory findings that carry a critical marker
func (r DraftReport) CriticalFindings() []string {
	done, ok := r.Laboratory.Section.(CompletedSection)
	if !ok {
		return nil
	}
	var out []string
	for _, line := range done.Findings {
		if IsCritical(line) {
			out = append(out, line)
		}
	}
	return out
}
