package services_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/services"
)

func TestLoadConfig_FromFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "medreport.yaml")
	content := `
backend:
  base_url: "http://reports.local:3000"
  request_timeout_seconds: 20
  image_root: /srv/images
download:
  timeout_seconds: 45
  output_dir: /tmp/out
retry:
  max_attempts: 4
  initial_backoff_ms: 200
  max_backoff_ms: 2000
delays:
  lab_chain_ms: 0
  approval_ms: 250
lab_panel:
  - hemoglobin
  - ldl
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg, err := services.LoadConfig(configFile)
	require.NoError(t, err)

	assert.Equal(t, "http://reports.local:3000", cfg.Backend.BaseURL)
	assert.Equal(t, 20, cfg.Backend.RequestTimeoutSeconds)
	assert.Equal(t, "/srv/images", cfg.Backend.ImageRoot)
	assert.Equal(t, 45, cfg.Download.TimeoutSeconds)
	assert.Equal(t, "/tmp/out", cfg.Download.OutputDir)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	assert.Equal(t, int64(0), cfg.Delays.LabChainMs)
	assert.Equal(t, int64(250), cfg.Delays.ApprovalMs)
	assert.Equal(t, []string{"hemoglobin", "ldl"}, cfg.LabPanel)
}

func TestLoadConfig_DefaultsWhenFileHasOnlyBackend(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "medreport.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("backend:\n  base_url: http://x:1\n"), 0644))

	cfg, err := services.LoadConfig(configFile)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Backend.RequestTimeoutSeconds)
	assert.Equal(t, "/tmp/medical_images", cfg.Backend.ImageRoot)
	assert.Equal(t, int64(1000), cfg.Delays.LabChainMs)
	assert.Equal(t, []string{"hemoglobin", "wbc", "glucose", "creatinine", "sodium", "potassium"}, cfg.LabPanel)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "medreport.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("backend:\n  base_url: http://file:1\n"), 0644))

	t.Setenv("MEDREPORT_BACKEND_BASE_URL", "http://env:2")
	t.Setenv("MEDREPORT_LAB_PANEL", "glucose,sodium")

	cfg, err := services.LoadConfigWith(viper.New(), configFile)
	require.NoError(t, err)

	assert.Equal(t, "http://env:2", cfg.Backend.BaseURL)
	assert.Equal(t, []string{"glucose", "sodium"}, cfg.LabPanel)
}

func TestLoadConfig_Invalid(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "medreport.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("backend:\n  base_url: ftp://nope\n"), 0644))

	_, err := services.LoadConfig(configFile)
	require.Error(t, err)
	assert.True(t, lib.IsCategory(err, lib.CategoryConfiguration))
	assert.Contains(t, err.Error(), "backend.base_url")
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := services.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
