package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stabled.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "admin:\n  bearer_token: secret\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":7080" {
		t.Fatalf("unexpected listen address: %q", cfg.ListenAddress)
	}
	if cfg.DatabasePath != "/var/data/stabled.sqlite" {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath)
	}
	if cfg.Audit.Retention.Duration != 30*24*time.Hour {
		t.Fatalf("unexpected retention: %s", cfg.Audit.Retention.Duration)
	}
	if cfg.Audit.Interval.Duration != time.Hour {
		t.Fatalf("unexpected sweep interval: %s", cfg.Audit.Interval.Duration)
	}
}

func TestLoadParsesDurations(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"listen: \":9090\"",
		"admin:",
		"  bearer_token: secret",
		"audit:",
		"  retention: 72h",
		"  sweep_interval: 10m",
	}, "\n"))
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":9090" {
		t.Fatalf("unexpected listen address: %q", cfg.ListenAddress)
	}
	if cfg.Audit.Retention.Duration != 72*time.Hour {
		t.Fatalf("unexpected retention: %s", cfg.Audit.Retention.Duration)
	}
	if cfg.Audit.Interval.Duration != 10*time.Minute {
		t.Fatalf("unexpected sweep interval: %s", cfg.Audit.Interval.Duration)
	}
}

func TestLoadRequiresBearerToken(t *testing.T) {
	path := writeConfig(t, "listen: \":9090\"\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected missing bearer token to fail")
	}
}

func TestLoadRejectsShortRetention(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"admin:",
		"  bearer_token: secret",
		"audit:",
		"  retention: 30m",
	}, "\n"))
	if _, err := Load(path); err == nil {
		t.Fatalf("expected short retention to fail")
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"admin:",
		"  bearer_token: secret",
		"audit:",
		"  retention: soon",
	}, "\n"))
	if _, err := Load(path); err == nil {
		t.Fatalf("expected malformed duration to fail")
	}
}
