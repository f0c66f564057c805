package models

import (
	"fmt"
	"time"
)

// ChainStep represents one named task of the lab-to-report chain
type ChainStep struct {
	Name        StepName   `json:"name"`
	Status      StepStatus `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	LastError   *StepError `json:"last_error,omitempty"`
}

// StepName identifies a chain task
type StepName string

const (
	StepAnalyzeLabs    StepName = "analyze-labs"
	StepGenerateReport StepName = "generate-report"
)

// LabChainSteps is the fixed order of the lab-to-report chain
var LabChainSteps = []StepName{StepAnalyzeLabs, StepGenerateReport}

// StepStatus defines the execution state of a chain step
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

// StepError captures error details for a failed step
type StepError struct {
	Type       ErrorType `json:"type"` // "transient" | "non_transient"
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Error implements the error interface
func (e *StepError) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("HTTP %d: %s", e.HTTPStatus, e.Message)
	}
	return e.Message
}

// ErrorType classifies errors for retry strategy
type ErrorType string

const (
	ErrorTypeTransient    ErrorType = "transient"     // Network, 5xx, timeout
	ErrorTypeNonTransient ErrorType = "non_transient" // 4xx, validation, malformed
)

// CanTransitionTo checks if step status transition is valid
// Valid transitions:
//
//	pending -> in_progress
//	in_progress -> completed | failed
//	failed -> in_progress (user retries the chain)
func (s StepStatus) CanTransitionTo(next StepStatus) bool {
	switch s {
	case StepStatusPending:
		return next == StepStatusInProgress
	case StepStatusInProgress:
		return next == StepStatusCompleted || next == StepStatusFailed
	case StepStatusFailed:
		return next == StepStatusInProgress
	case StepStatusCompleted:
		return false
	default:
		return false
	}
}

// IsTransientHTTPStatus classifies HTTP status codes for retry logic
func IsTransientHTTPStatus(status int) bool {
	if status >= 500 && status < 600 {
		return true
	}
	// 408 Request Timeout, 429 Too Many Requests
	if status == 408 || status == 429 {
		return true
	}
	return false
}

// ChainRun records one execution of the lab-to-report chain
type ChainRun struct {
	RunID     string      `json:"run_id"`
	SessionID SessionID   `json:"session_id"`
	Steps     []ChainStep `json:"steps"`
	ReportID  string      `json:"report_id,omitempty"`
	Abnormal  int         `json:"abnormal_count"`
	Critical  int         `json:"critical_count"`
	StartedAt time.Time   `json:"started_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Succeeded reports whether every step of the run completed
func (r ChainRun) Succeeded() bool {
	if len(r.Steps) == 0 {
		return false
	}
	for _, s := range r.Steps {
		if s.Status != StepStatusCompleted {
			return false
		}
	}
	return true
}

// FailedStep returns the first failed step, if any
func (r ChainRun) FailedStep() (ChainStep, bool) {
	for _, s := range r.Steps {
		if s.Status == StepStatusFailed {
			return s, true
		}
	}
	return ChainStep{}, false
}
