package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
)

// EnvPrefix is the prefix of environment overrides, e.g. MEDREPORT_BACKEND_BASE_URL
const EnvPrefix = "MEDREPORT"

// LoadConfig loads configuration from file, environment and defaults
// Priority order (highest to lowest):
//  1. Values set on v by CLI flag bindings
//  2. Environment variables
//  3. Configuration file
//  4. Default values
func LoadConfig(configFile string) (*models.ProjectConfig, error) {
	return LoadConfigWith(viper.New(), configFile)
}

// LoadConfigWith loads configuration into the given viper instance
func LoadConfigWith(v *viper.Viper, configFile string) (*models.ProjectConfig, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("medreport")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/medreport")
		v.AddConfigPath("/etc/medreport")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Built field by field; Unmarshal has issues with nested structs in some versions
	config := models.ProjectConfig{
		Backend: models.BackendConfig{
			BaseURL:               v.GetString("backend.base_url"),
			RequestTimeoutSeconds: v.GetInt("backend.request_timeout_seconds"),
			ImageRoot:             v.GetString("backend.image_root"),
		},
		Download: models.DownloadConfig{
			TimeoutSeconds: v.GetInt("download.timeout_seconds"),
			OutputDir:      v.GetString("download.output_dir"),
		},
		Retry: models.RetryConfig{
			MaxAttempts:      v.GetInt("retry.max_attempts"),
			InitialBackoffMs: v.GetInt64("retry.initial_backoff_ms"),
			MaxBackoffMs:     v.GetInt64("retry.max_backoff_ms"),
		},
		Delays: models.DelayConfig{
			LabChainMs: v.GetInt64("delays.lab_chain_ms"),
			ApprovalMs: v.GetInt64("delays.approval_ms"),
		},
		LabPanel: normalizePanel(v.GetStringSlice("lab_panel")),
	}

	if err := config.Validate(); err != nil {
		return nil, lib.ErrInvalidConfig(fieldOf(err), err.Error())
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := models.DefaultConfig()
	v.SetDefault("backend.base_url", d.Backend.BaseURL)
	v.SetDefault("backend.request_timeout_seconds", d.Backend.RequestTimeoutSeconds)
	v.SetDefault("backend.image_root", d.Backend.ImageRoot)
	v.SetDefault("download.timeout_seconds", d.Download.TimeoutSeconds)
	v.SetDefault("download.output_dir", d.Download.OutputDir)
	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.initial_backoff_ms", d.Retry.InitialBackoffMs)
	v.SetDefault("retry.max_backoff_ms", d.Retry.MaxBackoffMs)
	v.SetDefault("delays.lab_chain_ms", d.Delays.LabChainMs)
	v.SetDefault("delays.approval_ms", d.Delays.ApprovalMs)
	v.SetDefault("lab_panel", d.LabPanel)
}

// normalizePanel accepts both YAML lists and comma-separated env values
func normalizePanel(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// fieldOf extracts the config key a validation message starts with
func fieldOf(err error) string {
	msg := strings.TrimPrefix(err.Error(), "invalid ")
	if i := strings.IndexAny(msg, " :"); i > 0 {
		return msg[:i]
	}
	return msg
}
