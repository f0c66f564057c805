package lib

import (
	"errors"
	"fmt"
	"strings"
)

// ReportError represents a user-friendly error with context and guidance
type ReportError struct {
	Category    ErrorCategory
	Message     string   // Short description of what went wrong
	Cause       error    // Underlying error
	Guidance    []string // What the user can do about it
	HTTPStatus  int      // HTTP status code if applicable
	IsRetryable bool     // Can the user retry the same action?
}

// ErrorCategory classifies errors for better UX
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation" // Blocked locally before any request
	CategoryAbsence       ErrorCategory = "absence"    // Expected condition, guidance only
	CategoryNetwork       ErrorCategory = "network"
	CategoryService       ErrorCategory = "service"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryState         ErrorCategory = "state"
	CategoryFileSystem    ErrorCategory = "filesystem"
)

// Sentinel errors for workflow guards
var (
	ErrStaleResponse        = errors.New("response belongs to a superseded workflow run")
	ErrTransitionNotAllowed = errors.New("stage transition not allowed")
)

// Error implements the error interface
func (e *ReportError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] ", strings.ToUpper(string(e.Category))))
	sb.WriteString(e.Message)

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if e.HTTPStatus > 0 {
		sb.WriteString(fmt.Sprintf(" (HTTP %d)", e.HTTPStatus))
	}

	return sb.String()
}

// UserMessage returns a formatted message suitable for displaying to end users
func (e *ReportError) UserMessage() string {
	var sb strings.Builder

	switch e.Category {
	case CategoryValidation:
		sb.WriteString("⚠️  ")
	case CategoryAbsence:
		sb.WriteString("ℹ️  ")
	default:
		sb.WriteString("❌ Error: ")
	}
	sb.WriteString(e.Message)
	sb.WriteString("\n")

	if len(e.Guidance) > 0 {
		sb.WriteString("\n💡 What to do:\n")
		for i, guide := range e.Guidance {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, guide))
		}
	}

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("\nTechnical details: %v\n", e.Cause))
	}

	if e.IsRetryable {
		sb.WriteString("\n🔄 You can retry this action.\n")
	}

	return sb.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility
func (e *ReportError) Unwrap() error {
	return e.Cause
}

// Validation Errors

// ErrMissingFields creates an error for blank required intake fields
func ErrMissingFields(fields []string) *ReportError {
	return &ReportError{
		Category: CategoryValidation,
		Message:  fmt.Sprintf("Please fill in all required fields: %s", strings.Join(fields, ", ")),
		Guidance: []string{"Patient ID, name, age and gender are required"},
	}
}

// ErrNoImageSelected creates an error for a missing image selection
func ErrNoImageSelected() *ReportError {
	return &ReportError{
		Category: CategoryValidation,
		Message:  "Please select an image to upload",
		Guidance: []string{"Choose a DICOM, PNG, JPEG, BMP, TIFF or WebP file"},
	}
}

// ErrMissingSession creates an error for actions that need a session
func ErrMissingSession(action string) *ReportError {
	return &ReportError{
		Category: CategoryValidation,
		Message:  fmt.Sprintf("No active session: cannot %s", action),
		Guidance: []string{"Complete the patient intake step first"},
	}
}

// ErrMissingReviewer creates an error for an empty reviewer name
func ErrMissingReviewer() *ReportError {
	return &ReportError{
		Category: CategoryValidation,
		Message:  "Please enter reviewer name",
	}
}

// ErrMissingReport creates an error for review actions without a report
func ErrMissingReport() *ReportError {
	return &ReportError{
		Category: CategoryValidation,
		Message:  "No report loaded for review",
		Guidance: []string{"Wait for the report to load or complete the lab step first"},
	}
}

// ErrBusy creates an error for an action that is already in flight
func ErrBusy(action string) *ReportError {
	return &ReportError{
		Category: CategoryState,
		Message:  fmt.Sprintf("%s is already in progress", action),
	}
}

// ErrRejected creates the terminal notice shown after a rejection
func ErrRejected() *ReportError {
	return &ReportError{
		Category: CategoryState,
		Message:  "Report rejected. Please start a new analysis.",
		Guidance: []string{"Use reset to begin a new workflow"},
	}
}

// Absence Errors

// ErrReportNotFound creates an error for a report that has not been generated
func ErrReportNotFound(sessionID string) *ReportError {
	return &ReportError{
		Category: CategoryAbsence,
		Message:  "Report not found. Please complete previous steps first.",
		Guidance: []string{
			fmt.Sprintf("No report exists yet for session %s", sessionID),
			"Submit lab values to generate the draft report",
		},
		HTTPStatus: 404,
	}
}

// ErrArtifactNotFound creates an error for a PDF that is missing or not yet approved
func ErrArtifactNotFound(sessionID string, detail string) *ReportError {
	e := &ReportError{
		Category: CategoryAbsence,
		Message:  "PDF not found or report not yet approved.",
		Guidance: []string{
			"Approve the report before downloading",
			fmt.Sprintf("Check that session %s is correct", sessionID),
		},
		HTTPStatus:  404,
		IsRetryable: true,
	}
	if detail != "" {
		e.Cause = errors.New(detail)
	}
	return e
}

// Network Errors

// ErrNetworkUnreachable creates an error for network connectivity issues
func ErrNetworkUnreachable(url string, cause error) *ReportError {
	return &ReportError{
		Category: CategoryNetwork,
		Message:  fmt.Sprintf("Cannot reach backend at %s", url),
		Cause:    cause,
		Guidance: []string{
			"Check that the backend is running",
			fmt.Sprintf("Verify the URL is correct: %s", url),
			"Check your network connection",
		},
		IsRetryable: true,
	}
}

// ErrNetworkTimeout creates an error for request timeouts
func ErrNetworkTimeout(url string, cause error) *ReportError {
	return &ReportError{
		Category: CategoryNetwork,
		Message:  fmt.Sprintf("Request to %s timed out", url),
		Cause:    cause,
		Guidance: []string{
			"The backend may be overloaded or slow to respond",
			"Wait a moment and try again",
		},
		IsRetryable: true,
	}
}

// ErrDownloadTimeout creates an error for a download that exceeded its deadline
func ErrDownloadTimeout(cause error) *ReportError {
	return &ReportError{
		Category:    CategoryNetwork,
		Message:     "Download timeout. Please try again.",
		Cause:       cause,
		Guidance:    []string{"Retry the download", "Increase download.timeout_seconds for slow links"},
		IsRetryable: true,
	}
}

// ErrDownloadFailed creates an error for any other download failure
func ErrDownloadFailed(statusCode int, cause error) *ReportError {
	return &ReportError{
		Category:    CategoryService,
		Message:     "Failed to download PDF. Please try again or contact support.",
		Cause:       cause,
		HTTPStatus:  statusCode,
		Guidance:    []string{"Retry the download", "Contact support if the problem persists"},
		IsRetryable: true,
	}
}

// Service Errors

// ErrServiceUnavailable creates an error for 5xx backend errors
func ErrServiceUnavailable(operation string, statusCode int, cause error) *ReportError {
	return &ReportError{
		Category:   CategoryService,
		Message:    fmt.Sprintf("%s failed: backend is temporarily unavailable", operation),
		Cause:      cause,
		HTTPStatus: statusCode,
		Guidance: []string{
			"Wait a moment and try again",
			"Check the backend logs for errors",
		},
		IsRetryable: true,
	}
}

// ErrServiceRejected creates an error for 4xx responses and non-success statuses
func ErrServiceRejected(operation string, statusCode int, message string) *ReportError {
	if message == "" {
		message = "request was not accepted"
	}
	return &ReportError{
		Category:   CategoryService,
		Message:    fmt.Sprintf("%s failed: %s", operation, message),
		HTTPStatus: statusCode,
		Guidance: []string{
			"Check the submitted data",
			"Try again or start a new analysis",
		},
		IsRetryable: true,
	}
}

// ErrUnexpectedResponse creates an error for a malformed backend reply
func ErrUnexpectedResponse(operation string, cause error) *ReportError {
	return &ReportError{
		Category:    CategoryService,
		Message:     fmt.Sprintf("%s failed: unexpected response from backend", operation),
		Cause:       cause,
		IsRetryable: true,
	}
}

// Configuration Errors

// ErrInvalidConfig creates an error for configuration validation failures
func ErrInvalidConfig(field string, reason string) *ReportError {
	return &ReportError{
		Category: CategoryConfiguration,
		Message:  fmt.Sprintf("Invalid configuration: %s", reason),
		Guidance: []string{
			fmt.Sprintf("Check the '%s' field in your config file", field),
			"Compare with config/medreport.example.yaml for correct format",
		},
	}
}

// Filesystem Errors

// ErrFileNotFound creates an error for missing files
func ErrFileNotFound(path string) *ReportError {
	return &ReportError{
		Category: CategoryFileSystem,
		Message:  fmt.Sprintf("File not found: %s", path),
		Guidance: []string{
			"Check that the path is correct",
			"Verify you have permission to access it",
		},
	}
}

// ErrUnsupportedImage creates an error for files that are not a readable image
func ErrUnsupportedImage(path string, cause error) *ReportError {
	return &ReportError{
		Category: CategoryValidation,
		Message:  fmt.Sprintf("Not a supported image: %s", path),
		Cause:    cause,
		Guidance: []string{"Choose a DICOM, PNG, JPEG, BMP, TIFF or WebP file"},
	}
}

// ErrArtifactWrite creates an error for a failed local save
func ErrArtifactWrite(path string, cause error) *ReportError {
	return &ReportError{
		Category: CategoryFileSystem,
		Message:  fmt.Sprintf("Could not save file to %s", path),
		Cause:    cause,
		Guidance: []string{
			"Check the output directory exists and is writable",
			"Free up disk space",
		},
		IsRetryable: true,
	}
}

// Helper Functions

// WrapError wraps a standard error with ReportError context
func WrapError(category ErrorCategory, message string, cause error, guidance ...string) *ReportError {
	return &ReportError{
		Category:    category,
		Message:     message,
		Cause:       cause,
		Guidance:    guidance,
		IsRetryable: IsNetworkError(cause),
	}
}

// ClassifyError examines an error and returns appropriate user guidance
func ClassifyError(err error) *ReportError {
	if err == nil {
		return nil
	}

	var reportErr *ReportError
	if errors.As(err, &reportErr) {
		return reportErr
	}

	if IsTimeout(err) {
		return &ReportError{
			Category:    CategoryNetwork,
			Message:     "Request timed out",
			Cause:       err,
			Guidance:    []string{"Wait a moment and try again"},
			IsRetryable: true,
		}
	}

	if IsNetworkError(err) {
		return &ReportError{
			Category:    CategoryNetwork,
			Message:     "Network connectivity issue",
			Cause:       err,
			Guidance:    []string{"Check network connection", "Verify the backend is running"},
			IsRetryable: true,
		}
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "permission denied") || strings.Contains(errMsg, "no space left") {
		return &ReportError{
			Category: CategoryFileSystem,
			Message:  "Could not write to disk",
			Cause:    err,
			Guidance: []string{"Check file/directory permissions", "Free up disk space"},
		}
	}

	return &ReportError{
		Category: CategoryService,
		Message:  "An error occurred",
		Cause:    err,
		Guidance: []string{"Check the technical details below", "See logs for more information"},
	}
}

// IsCategory reports whether err classifies into the given category
func IsCategory(err error, category ErrorCategory) bool {
	var reportErr *ReportError
	if !errors.As(err, &reportErr) {
		return false
	}
	return reportErr.Category == category
}

// ShortMessage returns the one-line message of err for inline display
func ShortMessage(err error) string {
	if err == nil {
		return ""
	}
	return ClassifyError(err).Message
}
