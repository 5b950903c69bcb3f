package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(dir string) *Config {
	return &Config{
		WorkingDirectory: dir,
		Transport:        "http",
		Port:             8080,
		MaxFileSizeMB:    10,
		MaxAnchorLength:  2000,
		MaxSuggestions:   5,
		LockTimeoutSec:   10,
		ReviewMode:       ReviewModeManual,
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10, cfg.MaxFileSizeMB)
	assert.Equal(t, 2000, cfg.MaxAnchorLength)
	assert.Equal(t, 5, cfg.MaxSuggestions)
	assert.Equal(t, 10, cfg.LockTimeoutSec)
	assert.Equal(t, ReviewModeManual, cfg.ReviewMode)
	assert.Empty(t, cfg.WorkingDirectory, "working directory has no default")
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "server.yaml")
	body := "transport: stdio\nport: 9000\nreview_mode: watch\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, ReviewModeWatch, cfg.ReviewMode)
	assert.Equal(t, 10, cfg.MaxFileSizeMB, "unset keys keep their defaults")
}

func TestLoadEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FRS_WORKING_DIRECTORY", dir)
	t.Setenv("FRS_TRANSPORT", "stdio")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.WorkingDirectory)
	assert.Equal(t, "stdio", cfg.Transport)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateOK(t *testing.T) {
	dir := t.TempDir()
	cfg := validConfig(dir)
	require.NoError(t, cfg.Validate())
	assert.True(t, filepath.IsAbs(cfg.WorkingDirectory))
}

func TestValidateErrors(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0o644))

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing working directory", func(c *Config) { c.WorkingDirectory = "" }, "working directory is required"},
		{"nonexistent working directory", func(c *Config) { c.WorkingDirectory = filepath.Join(dir, "nope") }, "does not exist"},
		{"working directory is a file", func(c *Config) { c.WorkingDirectory = filePath }, "not a directory"},
		{"bad transport", func(c *Config) { c.Transport = "grpc" }, "transport"},
		{"privileged port", func(c *Config) { c.Port = 80 }, "port"},
		{"port too high", func(c *Config) { c.Port = 70000 }, "port"},
		{"file size too large", func(c *Config) { c.MaxFileSizeMB = 500 }, "max file size"},
		{"zero anchor length", func(c *Config) { c.MaxAnchorLength = 0 }, "anchor length"},
		{"too many suggestions", func(c *Config) { c.MaxSuggestions = 50 }, "suggestions"},
		{"zero lock timeout", func(c *Config) { c.LockTimeoutSec = 0 }, "lock timeout"},
		{"bad review mode", func(c *Config) { c.ReviewMode = "auto" }, "review mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(dir)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
