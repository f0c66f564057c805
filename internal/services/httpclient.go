package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
)

// RequestIDHeader carries a per-call correlation id
const RequestIDHeader = "X-Request-ID"

// HTTPClient wraps the standard http.Client with retry logic and configuration
type HTTPClient struct {
	client      *http.Client
	retryConfig lib.RetryConfig
	logger      *lib.Logger
}

// NewHTTPClient creates an HTTP client with timeout and retry configuration.
// A zero timeout leaves the deadline to the request context.
func NewHTTPClient(timeout time.Duration, retryConfig lib.RetryConfig, logger *lib.Logger) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		retryConfig: retryConfig,
		logger:      logger,
	}
}

// Get performs an HTTP GET request with retry logic
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.Do(req)
}

// PostJSON performs an HTTP POST request with JSON content type
func (c *HTTPClient) PostJSON(ctx context.Context, url string, jsonBody []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.Do(req)
}

// Do executes an HTTP request, retrying transient failures when the
// client was configured with more than one attempt. Non-2xx responses are
// returned to the caller so it can read error details.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}

	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to buffer request body: %w", err)
		}
	}

	attempts := max(c.retryConfig.MaxAttempts, 1)
	attempt := 0
	var resp *http.Response

	err := lib.ExecuteWithRetry(req.Context(), func() error {
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
		final := attempt == attempts-1
		attempt++

		lib.LogServiceCall(c.logger, req.URL.Host, req.URL.Path, req.Method)
		startTime := time.Now()
		r, err := c.client.Do(req)
		if err != nil {
			return err
		}
		lib.LogServiceResponse(c.logger, req.URL.Host, r.StatusCode, time.Since(startTime))

		if final || lib.ClassifyHTTPError(r.StatusCode) != models.ErrorTypeTransient {
			resp = r
			return nil
		}
		_ = r.Body.Close()
		return &transientStatusError{StatusCode: r.StatusCode, Status: r.Status}
	}, c.retryConfig, func(err error) bool {
		var status *transientStatusError
		retry := errors.As(err, &status) || (lib.IsNetworkError(err) && req.Context().Err() == nil)
		if retry {
			lib.LogRetry(c.logger, req.URL.Path, attempt-1, attempts, err)
		}
		return retry
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// transientStatusError marks a retryable HTTP status seen before the last attempt
type transientStatusError struct {
	StatusCode int
	Status     string
}

func (e *transientStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// ProgressReader wraps an io.Reader and calls a callback with bytes read
type ProgressReader struct {
	Reader   io.Reader
	Callback func(int64)
	total    int64
}

func (r *ProgressReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	r.total += int64(n)
	if r.Callback != nil && n > 0 {
		r.Callback(r.total)
	}
	return n, err
}
