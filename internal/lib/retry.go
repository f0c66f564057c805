package lib

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"github.com/trobanga/medreport/internal/models"
)

// CalculateBackoff computes exponential backoff duration
// Formula: min(initialBackoff * 2^attempt, maxBackoff)
func CalculateBackoff(attempt int, initialBackoffMs int64, maxBackoffMs int64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	backoffMs := float64(initialBackoffMs) * math.Pow(2, float64(attempt))

	if backoffMs > float64(maxBackoffMs) {
		backoffMs = float64(maxBackoffMs)
	}

	return time.Duration(backoffMs) * time.Millisecond
}

// ClassifyHTTPError determines if an HTTP error is transient or non-transient
func ClassifyHTTPError(statusCode int) models.ErrorType {
	if models.IsTransientHTTPStatus(statusCode) {
		return models.ErrorTypeTransient
	}
	return models.ErrorTypeNonTransient
}

// RetryConfig holds retry strategy parameters
type RetryConfig struct {
	MaxAttempts      int
	InitialBackoffMs int64
	MaxBackoffMs     int64
}

// NoRetry performs a single attempt
var NoRetry = RetryConfig{MaxAttempts: 1}

// NewRetryConfigFromModel creates RetryConfig from models.RetryConfig
func NewRetryConfigFromModel(config models.RetryConfig) RetryConfig {
	return RetryConfig{
		MaxAttempts:      config.MaxAttempts,
		InitialBackoffMs: config.InitialBackoffMs,
		MaxBackoffMs:     config.MaxBackoffMs,
	}
}

// RetryableOperation represents an operation that can be retried
type RetryableOperation func() error

// ExecuteWithRetry executes an operation with exponential backoff retry logic.
// It returns nil on success and otherwise the last error. shouldRetry is only
// consulted when another attempt remains.
func ExecuteWithRetry(ctx context.Context, operation RetryableOperation, config RetryConfig, shouldRetry func(error) bool) error {
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == attempts-1 || !shouldRetry(err) {
			break
		}

		backoff := CalculateBackoff(attempt, config.InitialBackoffMs, config.MaxBackoffMs)
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", lastErr)
		case <-time.After(backoff):
		}
	}

	return lastErr
}

// IsTimeout reports whether err is a deadline or net timeout
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsNetworkError checks if an error is likely a network-related issue
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if IsTimeout(err) {
		return true
	}

	errMsg := strings.ToLower(err.Error())

	networkErrors := []string{
		"connection refused",
		"connection reset",
		"no such host",
		"timeout",
		"temporary failure",
		"network is unreachable",
		"deadline exceeded",
		"eof",
	}

	for _, pattern := range networkErrors {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}
