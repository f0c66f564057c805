package lib

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// LogLevel defines the severity of log messages
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// Logger provides structured logging for the application
type Logger struct {
	level  LogLevel
	logger *log.Logger
}

// NewLogger creates a new logger writing to stderr
func NewLogger(level LogLevel) *Logger {
	return NewLoggerTo(os.Stderr, level)
}

// NewLoggerTo creates a logger writing to w.
// The terminal UI passes a log file or io.Discard.
func NewLoggerTo(w io.Writer, level LogLevel) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(w, "", log.LstdFlags),
	}
}

// DefaultLogger returns a logger with INFO level
var DefaultLogger = NewLogger(LogLevelInfo)

// Debug logs a debug message
func (l *Logger) Debug(message string, fields ...interface{}) {
	if l.level <= LogLevelDebug {
		l.log("DEBUG", message, fields...)
	}
}

// Info logs an informational message
func (l *Logger) Info(message string, fields ...interface{}) {
	if l.level <= LogLevelInfo {
		l.log("INFO", message, fields...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields ...interface{}) {
	if l.level <= LogLevelWarn {
		l.log("WARN", message, fields...)
	}
}

// Error logs an error message
func (l *Logger) Error(message string, fields ...interface{}) {
	if l.level <= LogLevelError {
		l.log("ERROR", message, fields...)
	}
}

// log formats and writes a log message with optional key/value fields
func (l *Logger) log(level string, message string, fields ...interface{}) {
	var fieldsStr string
	if len(fields) > 0 {
		fieldsStr = " | " + formatFields(fields)
	}
	l.logger.Printf("[%s] %s%s", level, sanitize(message), fieldsStr)
}

func formatFields(fields []interface{}) string {
	parts := make([]string, 0, len(fields)/2+1)
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			parts = append(parts, fmt.Sprintf("%v=%v", fields[i], fields[i+1]))
		} else {
			parts = append(parts, fmt.Sprintf("%v", fields[i]))
		}
	}
	return sanitize(strings.Join(parts, " "))
}

// sanitize strips line breaks to prevent log spoofing
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", "")
}

// LogRetry logs retry attempts
func LogRetry(logger *Logger, operation string, attempt int, maxAttempts int, err error) {
	logger.Warn(
		fmt.Sprintf("Retry attempt %d/%d for: %s", attempt+1, maxAttempts, operation),
		"error", err,
	)
}

// LogTransition logs a workflow stage change
func LogTransition(logger *Logger, from string, to string, sessionID string) {
	logger.Info(
		"Stage transition",
		"from", from,
		"to", to,
		"session_id", sessionID,
	)
}

// LogStepStart logs the start of a chain step
func LogStepStart(logger *Logger, stepName string, sessionID string) {
	logger.Info(
		"Step started",
		"step", stepName,
		"session_id", sessionID,
	)
}

// LogStepComplete logs the completion of a chain step
func LogStepComplete(logger *Logger, stepName string, sessionID string, duration time.Duration) {
	logger.Info(
		"Step completed",
		"step", stepName,
		"session_id", sessionID,
		"duration", duration,
	)
}

// LogStepFailed logs a failed chain step
func LogStepFailed(logger *Logger, stepName string, sessionID string, err error, retryable bool) {
	logger.Error(
		"Step failed",
		"step", stepName,
		"session_id", sessionID,
		"error", err,
		"retryable", retryable,
	)
}

// LogFailure logs an async failure at the level its category deserves.
// Local validation and expected absence are not faults.
func LogFailure(logger *Logger, operation string, err error) {
	classified := ClassifyError(err)
	if classified == nil {
		return
	}
	switch classified.Category {
	case CategoryValidation, CategoryAbsence, CategoryState:
		logger.Info(operation+" blocked", "reason", classified.Message)
	default:
		logger.Error(operation+" failed", "error", err)
	}
}

// LogServiceCall logs HTTP service calls
func LogServiceCall(logger *Logger, service string, endpoint string, method string) {
	logger.Debug(
		"Service call",
		"service", service,
		"endpoint", endpoint,
		"method", method,
	)
}

// LogServiceResponse logs HTTP service responses
func LogServiceResponse(logger *Logger, service string, statusCode int, duration time.Duration) {
	if statusCode >= 400 {
		logger.Warn(
			"Service response",
			"service", service,
			"status", statusCode,
			"duration", duration,
		)
	} else {
		logger.Debug(
			"Service response",
			"service", service,
			"status", statusCode,
			"duration", duration,
		)
	}
}

// ParseLogLevel converts a string to LogLevel
func ParseLogLevel(levelStr string) LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}
