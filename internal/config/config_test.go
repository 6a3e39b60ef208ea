package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadReadsFileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  url: https://platform.example.com
  token: tok-123
  timeout: 45s
course: crs-7
output:
  format: YAML
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.URL != "https://platform.example.com" {
		t.Fatalf("expected server url, got %q", cfg.Server.URL)
	}
	if cfg.Server.Token != "tok-123" {
		t.Fatalf("expected token, got %q", cfg.Server.Token)
	}
	if cfg.Server.Timeout != 45*time.Second {
		t.Fatalf("expected 45s timeout, got %v", cfg.Server.Timeout)
	}
	if cfg.Course != "crs-7" {
		t.Fatalf("expected course id, got %q", cfg.Course)
	}
	if cfg.Output.Format != "yaml" {
		t.Fatalf("expected lowercased format, got %q", cfg.Output.Format)
	}
	// Untouched keys fall back to defaults.
	if cfg.Server.MaxRetries != 4 {
		t.Fatalf("expected default retries, got %d", cfg.Server.MaxRetries)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("expected default log level, got %q", cfg.Log.Level)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  url: https://from-file.example.com
`)
	t.Setenv("CHALK_SERVER_URL", "https://from-env.example.com")
	t.Setenv("CHALK_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.URL != "https://from-env.example.com" {
		t.Fatalf("expected env to win, got %q", cfg.Server.URL)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected env log level, got %q", cfg.Log.Level)
	}
}

func TestLoadMissingDefaultConfigIsFine(t *testing.T) {
	t.Setenv("CHALK_CONFIG_DIR", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load without config file: %v", err)
	}
	if cfg.Output.Format != "json" {
		t.Fatalf("expected default format, got %q", cfg.Output.Format)
	}
	if cfg.StatePath == "" {
		t.Fatalf("expected a default state path")
	}
}

func TestLoadMissingExplicitConfigFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}
