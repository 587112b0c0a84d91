package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.Backend.StreamPath != "/agentic/stream" {
		t.Fatalf("Backend.StreamPath = %q, want %q", cfg.Backend.StreamPath, "/agentic/stream")
	}
	if cfg.Backend.Retry.MaxRetries != 3 {
		t.Fatalf("Backend.Retry.MaxRetries = %d, want %d", cfg.Backend.Retry.MaxRetries, 3)
	}
	if cfg.Backend.Retry.BaseDelay != "300ms" {
		t.Fatalf("Backend.Retry.BaseDelay = %q, want %q", cfg.Backend.Retry.BaseDelay, "300ms")
	}
	if cfg.Backend.Retry.MaxDelay != "5s" {
		t.Fatalf("Backend.Retry.MaxDelay = %q, want %q", cfg.Backend.Retry.MaxDelay, "5s")
	}
	if cfg.TUI.Theme != "dark" {
		t.Fatalf("TUI.Theme = %q, want %q", cfg.TUI.Theme, "dark")
	}
	if !cfg.TUI.ShowEvidence {
		t.Fatalf("TUI.ShowEvidence = false, want true")
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}
}

func TestLoadFromFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[backend]
base_url = "https://file.example"
stream_path = "/file/stream"
tenant = "file-tenant"

[backend.retry]
max_retries = 9
base_delay = "900ms"
max_delay = "9s"

[log]
level = "debug"
file = "/tmp/file.log"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("ARC_BACKEND_BASE_URL", "https://env.example")
	t.Setenv("ARC_TENANT", "env-tenant")
	t.Setenv("ARC_BACKEND_RETRY_MAX_RETRIES", "4")
	t.Setenv("ARC_BACKEND_RETRY_BASE_DELAY", "400ms")
	t.Setenv("ARC_BACKEND_RETRY_MAX_DELAY", "4s")
	t.Setenv("ARC_LOG_LEVEL", "trace")

	cfg, err := Load(LoadOptions{Path: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.BaseURL != "https://env.example" {
		t.Fatalf("BaseURL = %q, want %q", cfg.Backend.BaseURL, "https://env.example")
	}
	if cfg.Backend.StreamPath != "/file/stream" {
		t.Fatalf("StreamPath = %q, want %q", cfg.Backend.StreamPath, "/file/stream")
	}
	if cfg.Backend.Tenant != "env-tenant" {
		t.Fatalf("Tenant = %q, want %q", cfg.Backend.Tenant, "env-tenant")
	}
	if cfg.Backend.Retry.MaxRetries != 4 {
		t.Fatalf("Retry.MaxRetries = %d, want %d", cfg.Backend.Retry.MaxRetries, 4)
	}
	if cfg.Backend.Retry.BaseDelay != "400ms" {
		t.Fatalf("Retry.BaseDelay = %q, want %q", cfg.Backend.Retry.BaseDelay, "400ms")
	}
	if cfg.Backend.Retry.MaxDelay != "4s" {
		t.Fatalf("Retry.MaxDelay = %q, want %q", cfg.Backend.Retry.MaxDelay, "4s")
	}
	if cfg.Log.Level != "trace" {
		t.Fatalf("Log.Level = %q, want %q", cfg.Log.Level, "trace")
	}
	if cfg.Log.File != "/tmp/file.log" {
		t.Fatalf("Log.File = %q, want %q", cfg.Log.File, "/tmp/file.log")
	}
}

func TestLoadRequiresBaseURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[tui]\ntheme = \"light\"\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("ARC_BACKEND_BASE_URL", "")

	_, err := Load(LoadOptions{Path: path})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() error = %v, want ErrInvalidConfig", err)
	}
}

func TestBackendSettingsParsesRetryDurations(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Backend.BaseURL = "https://api.example"
	cfg.Backend.Tenant = "acme"
	cfg.Backend.Retry.MaxRetries = 6
	cfg.Backend.Retry.BaseDelay = "650ms"
	cfg.Backend.Retry.MaxDelay = "7s"

	settings, err := cfg.BackendSettings()
	if err != nil {
		t.Fatalf("BackendSettings() error = %v", err)
	}

	if settings.BaseURL != "https://api.example" {
		t.Fatalf("BaseURL = %q, want %q", settings.BaseURL, "https://api.example")
	}
	if settings.Tenant != "acme" {
		t.Fatalf("Tenant = %q, want %q", settings.Tenant, "acme")
	}
	if settings.Retry.MaxRetries != 6 {
		t.Fatalf("Retry.MaxRetries = %d, want %d", settings.Retry.MaxRetries, 6)
	}
	if settings.Retry.BaseDelay != 650*time.Millisecond {
		t.Fatalf("Retry.BaseDelay = %s, want %s", settings.Retry.BaseDelay, 650*time.Millisecond)
	}
	if settings.Retry.MaxDelay != 7*time.Second {
		t.Fatalf("Retry.MaxDelay = %s, want %s", settings.Retry.MaxDelay, 7*time.Second)
	}
}

func TestBackendSettingsRejectsInvalidDuration(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Backend.Retry.BaseDelay = "bad-duration"
	_, err := cfg.BackendSettings()
	if err == nil {
		t.Fatalf("expected error for invalid retry base delay")
	}
}
