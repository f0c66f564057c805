package models

import (
	"bytes"
	"encoding/json"
)

// Backend status values
const (
	StatusSuccess  = "success"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusNotFound = "not_found"
	StatusDraft    = "draft"
	StatusError    = "error"
)

// Section status values used in report payloads
const (
	SectionStatusPending   = "pending"
	SectionStatusCompleted = "completed"
)

// AnalyzeImageRequest is the body of POST /medical/analyze-image
type AnalyzeImageRequest struct {
	PatientDescriptor
	ImagePath string `json:"image_path"`
}

// AnalyzeImageResponse is the body returned by analyze-image
type AnalyzeImageResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	PatientID string `json:"patient_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// AnalyzeLabsRequest is the body of POST /medical/analyze-labs
type AnalyzeLabsRequest struct {
	SessionID string             `json:"session_id"`
	LabData   map[string]float64 `json:"lab_data"`
}

// AnalyzeLabsResponse is the body returned by analyze-labs
type AnalyzeLabsResponse struct {
	Status        string `json:"status"`
	SessionID     string `json:"session_id,omitempty"`
	Message       string `json:"message,omitempty"`
	AbnormalCount int    `json:"abnormal_count"`
	CriticalCount int    `json:"critical_count"`
}

// GenerateReportRequest is the body of POST /medical/generate-report
type GenerateReportRequest struct {
	SessionID string `json:"session_id"`
}

// GenerateReportResponse is the body returned by generate-report
type GenerateReportResponse struct {
	Status           string `json:"status"`
	SessionID        string `json:"session_id,omitempty"`
	ReportID         string `json:"report_id"`
	Message          string `json:"message,omitempty"`
	RequiresApproval bool   `json:"requires_approval,omitempty"`
}

// FetchReportResponse is the body returned by GET /medical/report/{session_id}
type FetchReportResponse struct {
	Status    string         `json:"status"`
	SessionID string         `json:"session_id,omitempty"`
	Report    *ReportPayload `json:"report"`
	PDFPath   string         `json:"pdf_path,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// ApproveReportRequest is the body of POST /medical/approve-report
type ApproveReportRequest struct {
	SessionID        string `json:"session_id"`
	ReportID         string `json:"report_id"`
	Approved         bool   `json:"approved"`
	ReviewerName     string `json:"reviewer_name"`
	ReviewerComments string `json:"reviewer_comments,omitempty"`
}

// ApproveReportResponse is the body returned by approve-report
type ApproveReportResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	ReportID  string `json:"report_id"`
	PDFPath   string `json:"pdf_path,omitempty"`
	Message   string `json:"message,omitempty"`
}

// DownloadErrorResponse is the JSON body sent with a failed download
type DownloadErrorResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	FileAvailable bool   `json:"file_available"`
}

// ErrorResponse is the generic failure body of the backend
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// FlexString decodes a JSON string or number into a string
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// PatientPayload is the patient snapshot embedded in a report
type PatientPayload struct {
	PatientID   string     `json:"patient_id"`
	PatientName string     `json:"patient_name"`
	Age         FlexString `json:"age"`
	Gender      string     `json:"gender"`
	StudyDate   string     `json:"study_date"`
}

// SectionPayload is the wire form of a findings section
type SectionPayload struct {
	Status        string   `json:"status"`
	Findings      []string `json:"findings"`
	AbnormalCount int      `json:"abnormal_count,omitempty"`
	CriticalCount int      `json:"critical_count,omitempty"`
}

// ToSection converts the wire section into the tagged variant.
// Anything other than "completed" is treated as pending.
func (s *SectionPayload) ToSection() Section {
	if s == nil || s.Status != SectionStatusCompleted {
		return PendingSection{}
	}
	return CompletedSection{Findings: append([]string(nil), s.Findings...)}
}

// ReportMetadata carries report flags
type ReportMetadata struct {
	HasImaging           bool `json:"has_imaging"`
	HasLabs              bool `json:"has_labs"`
	RequiresUrgentReview bool `json:"requires_urgent_review"`
}

// ReportPayload is the wire form of a draft or approved report
type ReportPayload struct {
	ReportID           string          `json:"report_id"`
	GeneratedDate      string          `json:"generated_date"`
	ReportVersion      FlexString      `json:"report_version"`
	Status             string          `json:"status"`
	PatientInformation PatientPayload  `json:"patient_information"`
	ExaminationSummary string          `json:"examination_summary"`
	ImagingFindings    *SectionPayload `json:"imaging_findings"`
	LaboratoryFindings *SectionPayload `json:"laboratory_findings"`
	InterpretiveNotes  []string        `json:"interpretive_notes"`
	Recommendations    []string        `json:"recommendations"`
	Disclaimer         []string        `json:"disclaimer"`
	Metadata           ReportMetadata  `json:"metadata"`
}

// ToDraftReport converts the wire report into the domain model
func (p ReportPayload) ToDraftReport() DraftReport {
	lab := LabSection{Section: p.LaboratoryFindings.ToSection()}
	if p.LaboratoryFindings != nil {
		lab.AbnormalCount = p.LaboratoryFindings.AbnormalCount
		lab.CriticalCount = p.LaboratoryFindings.CriticalCount
	}
	status := ReportStatus(p.Status)
	if status == "" {
		status = ReportStatusDraft
	}
	return DraftReport{
		ReportID:      p.ReportID,
		Status:        status,
		GeneratedDate: p.GeneratedDate,
		Version:       string(p.ReportVersion),
		Patient: PatientDescriptor{
			PatientID:   p.PatientInformation.PatientID,
			PatientName: p.PatientInformation.PatientName,
			Age:         string(p.PatientInformation.Age),
			Gender:      p.PatientInformation.Gender,
			StudyDate:   p.PatientInformation.StudyDate,
		},
		ExaminationSummary:   p.ExaminationSummary,
		Imaging:              p.ImagingFindings.ToSection(),
		Laboratory:           lab,
		InterpretiveNotes:    p.InterpretiveNotes,
		Recommendations:      p.Recommendations,
		Disclaimer:           p.Disclaimer,
		RequiresUrgentReview: p.Metadata.RequiresUrgentReview,
	}
}
