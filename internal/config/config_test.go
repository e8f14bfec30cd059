package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "optiscope.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"RELAY_HOST", "RELAY_PORT", "THETADATA_URL", "YAHOO_URL", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 4000
thetadata:
  base_url: "http://theta:25510"
  timeout: 5s
  rate_per_sec: 20
  burst: 4
yahoo:
  base_url: "https://query2.finance.yahoo.com"
  timeout: 1m
options:
  max_concurrent: 16
logging:
  level: "debug"
  format: "text"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Server --
	if cfg.Server.Addr() != "127.0.0.1:4000" {
		t.Errorf("Server.Addr() = %q, want %q", cfg.Server.Addr(), "127.0.0.1:4000")
	}

	// -- ThetaData --
	if cfg.ThetaData.BaseURL != "http://theta:25510" {
		t.Errorf("ThetaData.BaseURL = %q", cfg.ThetaData.BaseURL)
	}
	if cfg.ThetaData.Timeout != 5*time.Second {
		t.Errorf("ThetaData.Timeout = %v, want %v", cfg.ThetaData.Timeout, 5*time.Second)
	}
	if cfg.ThetaData.RatePerSec != 20 || cfg.ThetaData.Burst != 4 {
		t.Errorf("ThetaData rate = %v/%d, want 20/4", cfg.ThetaData.RatePerSec, cfg.ThetaData.Burst)
	}

	// -- Yahoo --
	if cfg.Yahoo.Timeout != time.Minute {
		t.Errorf("Yahoo.Timeout = %v, want %v", cfg.Yahoo.Timeout, time.Minute)
	}
	if cfg.Yahoo.UserAgent != DefaultUserAgent {
		t.Errorf("Yahoo.UserAgent = %q, want default", cfg.Yahoo.UserAgent)
	}

	// -- Options / Logging --
	if cfg.Options.MaxConcurrent != 16 {
		t.Errorf("Options.MaxConcurrent = %d, want 16", cfg.Options.MaxConcurrent)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.yaml")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q) returned error: %v", path, err)
		}
		if cfg.Server.Port != 3001 {
			t.Errorf("Server.Port = %d, want 3001", cfg.Server.Port)
		}
		if cfg.ThetaData.BaseURL != "http://localhost:25510" {
			t.Errorf("ThetaData.BaseURL = %q", cfg.ThetaData.BaseURL)
		}
		if cfg.Yahoo.BaseURL != "https://query1.finance.yahoo.com" {
			t.Errorf("Yahoo.BaseURL = %q", cfg.Yahoo.BaseURL)
		}
		if cfg.ThetaData.Timeout != 30*time.Second || cfg.Options.MaxConcurrent != 8 {
			t.Errorf("defaults = %+v", cfg)
		}
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "logging:\n  level: warn\n"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 4000
thetadata:
  base_url: "http://yaml:25510"
logging:
  level: "info"
`)
	clearEnv(t)
	t.Setenv("RELAY_PORT", "5000")
	t.Setenv("THETADATA_URL", "http://env:25510")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000 (env override)", cfg.Server.Port)
	}
	if cfg.ThetaData.BaseURL != "http://env:25510" {
		t.Errorf("ThetaData.BaseURL = %q, want env override", cfg.ThetaData.BaseURL)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q (from YAML)", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want env override", cfg.Logging.Format)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{"bad yaml", "server: [", nil},
		{"bad port", "server:\n  port: 70000\n", nil},
		{"bad concurrency", "options:\n  max_concurrent: 0\n", nil},
		{"bad env port", "", map[string]string{"RELAY_PORT": "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(writeConfig(t, tt.yaml)); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("YAHOO_URL=http://dotenv\nLOG_LEVEL=error\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOG_LEVEL", "debug")
	os.Unsetenv("YAHOO_URL")
	t.Cleanup(func() { os.Unsetenv("YAHOO_URL") })

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error: %v", err)
	}
	if got := os.Getenv("YAHOO_URL"); got != "http://dotenv" {
		t.Errorf("YAHOO_URL = %q, want value from .env", got)
	}
	if got := os.Getenv("LOG_LEVEL"); got != "debug" {
		t.Errorf("LOG_LEVEL = %q, want existing value to win", got)
	}

	if err := LoadEnvFile(filepath.Join(t.TempDir(), "none.env")); err != nil {
		t.Errorf("LoadEnvFile(missing) error: %v", err)
	}
}
