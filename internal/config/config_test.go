package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
history:
  backend: redis
defaults:
  negativeMarking: true
  negativeMarkValue: -1
  passingPercentage: 50
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.History.Backend != BackendRedis || cfg.History.Cap != 50 {
		t.Fatalf("unexpected history config %+v", cfg.History)
	}
	if !cfg.Defaults.NegativeMarking || cfg.Defaults.NegativeMarkValue != -1 || cfg.Defaults.PassingPercentage != 50 {
		t.Fatalf("unexpected defaults %+v", cfg.Defaults)
	}
	// Fields absent from the file keep their defaults.
	if !cfg.Defaults.AllowSkip || cfg.Timer.Tick != "1s" {
		t.Fatalf("expected untouched defaults, got %+v / %q", cfg.Defaults, cfg.Timer.Tick)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.History.Backend != BackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.History.Backend)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for bad input, got %v", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
}
