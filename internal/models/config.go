package models

import (
	"fmt"
	"net/url"
	"time"
)

// ProjectConfig is the top-level configuration for medreport
type ProjectConfig struct {
	Backend  BackendConfig  `yaml:"backend" json:"backend"`
	Download DownloadConfig `yaml:"download" json:"download"`
	Retry    RetryConfig    `yaml:"retry" json:"retry"`
	Delays   DelayConfig    `yaml:"delays" json:"delays"`
	LabPanel []string       `yaml:"lab_panel" json:"lab_panel"`
}

// BackendConfig contains connection details for the report backend
type BackendConfig struct {
	BaseURL               string `yaml:"base_url" json:"base_url"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds" json:"request_timeout_seconds"`
	ImageRoot             string `yaml:"image_root" json:"image_root"` // Shared directory the backend reads images from
}

// DownloadConfig controls artifact downloads
type DownloadConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	OutputDir      string `yaml:"output_dir" json:"output_dir"`
}

// RetryConfig controls retry behavior for idempotent reads
type RetryConfig struct {
	MaxAttempts      int   `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoffMs int64 `yaml:"initial_backoff_ms" json:"initial_backoff_ms"`
	MaxBackoffMs     int64 `yaml:"max_backoff_ms" json:"max_backoff_ms"`
}

// DelayConfig holds the cosmetic pauses before a visible stage advance
type DelayConfig struct {
	LabChainMs int64 `yaml:"lab_chain_ms" json:"lab_chain_ms"`
	ApprovalMs int64 `yaml:"approval_ms" json:"approval_ms"`
}

// LabChain returns the delay after a successful lab chain
func (d DelayConfig) LabChain() time.Duration {
	return time.Duration(d.LabChainMs) * time.Millisecond
}

// Approval returns the delay after a successful approval
func (d DelayConfig) Approval() time.Duration {
	return time.Duration(d.ApprovalMs) * time.Millisecond
}

// RequestTimeout returns the per-call timeout
func (c BackendConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the download timeout
func (c DownloadConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DefaultLabPanel is the analyte list offered by the lab form
var DefaultLabPanel = []string{"hemoglobin", "wbc", "glucose", "creatinine", "sodium", "potassium"}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() ProjectConfig {
	return ProjectConfig{
		Backend: BackendConfig{
			BaseURL:               "http://localhost:3000",
			RequestTimeoutSeconds: 60,
			ImageRoot:             "/tmp/medical_images",
		},
		Download: DownloadConfig{
			TimeoutSeconds: 30,
			OutputDir:      ".",
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			InitialBackoffMs: 500,
			MaxBackoffMs:     5000,
		},
		Delays: DelayConfig{
			LabChainMs: 1000,
			ApprovalMs: 1000,
		},
		LabPanel: append([]string(nil), DefaultLabPanel...),
	}
}

// Validate checks if the configuration has all required fields and valid values
func (c *ProjectConfig) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid backend.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.base_url must be http(s), got %q", c.Backend.BaseURL)
	}
	if c.Backend.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("backend.request_timeout_seconds must be > 0, got %d", c.Backend.RequestTimeoutSeconds)
	}
	if c.Download.TimeoutSeconds <= 0 {
		return fmt.Errorf("download.timeout_seconds must be > 0, got %d", c.Download.TimeoutSeconds)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.MaxBackoffMs < c.Retry.InitialBackoffMs {
		return fmt.Errorf("retry.max_backoff_ms (%d) must be >= retry.initial_backoff_ms (%d)",
			c.Retry.MaxBackoffMs, c.Retry.InitialBackoffMs)
	}
	if c.Delays.LabChainMs < 0 || c.Delays.ApprovalMs < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if len(c.LabPanel) == 0 {
		return fmt.Errorf("lab_panel must list at least one analyte")
	}
	return nil
}
