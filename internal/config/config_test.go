// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, duration parsing and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

database:
  path: "./test.db"

auth:
  jwt_secret: "super-secret"

nats:
  url: "nats://localhost:4222"
  subject: "charla.chat"
  timeout: "5s"

bot:
  low_confidence_threshold: 0.5
  max_low_conf_streak: 3

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Auth.JWTSecret != "super-secret" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "super-secret")
	}
	if cfg.NATS.Timeout != 5*time.Second {
		t.Errorf("NATS.Timeout = %v, want %v", cfg.NATS.Timeout, 5*time.Second)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("CHARLA_TEST_SECRET", "from-env")

	configPath := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "${CHARLA_TEST_SECRET}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "from-env")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() should fail for missing file")
	}
}

func TestLoad_MissingHTTPAddr(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "./test.db"
`)
	if _, err := Load(configPath); err == nil {
		t.Error("Load() should fail without server.http_addr")
	}
}

func TestLoad_NATSSubjectRequired(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
nats:
  url: "nats://localhost:4222"
`)
	if _, err := Load(configPath); err == nil {
		t.Error("Load() should fail when nats.url is set without nats.subject")
	}
}

func TestLoad_BadTimeout(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
nats:
  url: "nats://localhost:4222"
  subject: "charla.chat"
  timeout: "not-a-duration"
`)
	if _, err := Load(configPath); err == nil {
		t.Error("Load() should fail for an unparseable timeout")
	}
}

func TestRouterConfig_Defaults(t *testing.T) {
	cfg := &Config{}
	rc := cfg.RouterConfig()

	if rc.LowConfidenceThreshold != 0.45 {
		t.Errorf("LowConfidenceThreshold = %v, want 0.45", rc.LowConfidenceThreshold)
	}
	if rc.MaxLowConfStreak != 2 || rc.MaxUnresolvedStreak != 2 || rc.MisunderstandLimit != 2 {
		t.Errorf("streak limits = %+v, want 2/2/2", rc)
	}
}

func TestRouterConfig_Overrides(t *testing.T) {
	cfg := &Config{Bot: BotConfig{LowConfidenceThreshold: 0.6, MaxLowConfStreak: 4}}
	rc := cfg.RouterConfig()

	if rc.LowConfidenceThreshold != 0.6 {
		t.Errorf("LowConfidenceThreshold = %v, want 0.6", rc.LowConfidenceThreshold)
	}
	if rc.MaxLowConfStreak != 4 {
		t.Errorf("MaxLowConfStreak = %d, want 4", rc.MaxLowConfStreak)
	}
	// Unset fields keep their defaults
	if rc.MisunderstandLimit != 2 {
		t.Errorf("MisunderstandLimit = %d, want 2", rc.MisunderstandLimit)
	}
}
