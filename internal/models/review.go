package models

import "strings"

// ReviewDecision is the reviewer's verdict on a draft report
type ReviewDecision struct {
	ReviewerName string
	Comments     string
	Approved     bool
}

// HasReviewer reports whether a reviewer name was supplied
func (d ReviewDecision) HasReviewer() bool {
	return strings.TrimSpace(d.ReviewerName) != ""
}

// FinalizedReportRef identifies an approved report.
// It is built only from an "approved" acknowledgment and never changes.
type FinalizedReportRef struct {
	ReportID  string
	SessionID SessionID
}

// IsZero reports whether no report has been finalized
func (r FinalizedReportRef) IsZero() bool {
	return r.ReportID == ""
}
