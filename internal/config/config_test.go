package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsToUnsetFields(t *testing.T) {
	path := writeConfig(t, `
scan:
  concurrency: 8
monitor:
  interval: 5s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scan.Concurrency != 8 {
		t.Fatalf("concurrency not taken from file: %d", cfg.Scan.Concurrency)
	}
	if cfg.Monitor.Interval != 5*time.Second {
		t.Fatalf("interval not taken from file: %s", cfg.Monitor.Interval)
	}
	if cfg.Scan.HostTimeout != time.Second {
		t.Fatalf("host timeout default missing: %s", cfg.Scan.HostTimeout)
	}
	if cfg.Monitor.Capacity != 100 {
		t.Fatalf("capacity default missing: %d", cfg.Monitor.Capacity)
	}
	if cfg.Queue.Capacity != 1024 {
		t.Fatalf("queue capacity default missing: %d", cfg.Queue.Capacity)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log level default missing: %q", cfg.Log.Level)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "scan: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadMissingFileIsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadFromEnvUsesNamedFile(t *testing.T) {
	path := writeConfig(t, "scan:\n  host_ceiling: 512\n")
	t.Setenv("ITASSISTANT_CONFIG", path)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Scan.HostCeiling != 512 {
		t.Fatalf("ceiling not taken from env-named file: %d", cfg.Scan.HostCeiling)
	}
}

func TestLoadFromEnvMissingNamedFileIsError(t *testing.T) {
	t.Setenv("ITASSISTANT_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected error when the named file is missing")
	}
}

func TestLoadFromEnvFallsBackToDefaults(t *testing.T) {
	t.Setenv("ITASSISTANT_CONFIG", "")
	dir := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv without default file: %v", err)
	}
	if cfg.Scan.Concurrency != 32 {
		t.Fatalf("expected built-in defaults, got concurrency %d", cfg.Scan.Concurrency)
	}
}
