package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != DefaultPort || cfg.History.Type != "memory" || !cfg.Watch {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverridesFields(t *testing.T) {
	path := writeConfig(t, `
port: 8080
degraded: true
history:
  type: sqlite
  path: /tmp/h.db
audit:
  path: /tmp/receipts.jsonl
alerts:
  - url: http://example.invalid/hook
    format: slack
    events: [block]
events:
  brokers: [localhost:9092]
  topic: decisions
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8080 || !cfg.Degraded {
		t.Errorf("unexpected port/degraded %+v", cfg)
	}
	if cfg.History.Type != "sqlite" || cfg.History.Path != "/tmp/h.db" {
		t.Errorf("unexpected history %+v", cfg.History)
	}
	if cfg.Audit.Path != "/tmp/receipts.jsonl" {
		t.Errorf("unexpected audit %+v", cfg.Audit)
	}
	if len(cfg.Alerts) != 1 || cfg.Alerts[0].Format != "slack" {
		t.Errorf("unexpected alerts %+v", cfg.Alerts)
	}
	if !cfg.Events.Enabled() {
		t.Error("events should be enabled")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("unset fields keep defaults, got level %q", cfg.Log.Level)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"yaml":    "port: [",
		"port":    "port: 70000",
		"history": "history: {type: mongo}",
		"ttl":     "review: {ttl: soon}",
		"alert":   "alerts: [{format: slack}]",
		"events":  "events: {brokers: [a:1]}",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReviewTTL(t *testing.T) {
	d, err := ReviewConfig{TTL: "90m"}.TTLDuration()
	if err != nil || d != 90*time.Minute {
		t.Errorf("got %v, %v", d, err)
	}
	d, err = ReviewConfig{}.TTLDuration()
	if err != nil || d != 0 {
		t.Errorf("empty ttl: got %v, %v", d, err)
	}
}

func TestDefaultConfigYAMLParses(t *testing.T) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(DefaultConfigYAML()), cfg); err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("template does not validate: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("template port %d", cfg.Port)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := ExpandHome("~/x/y"); got != filepath.Join(home, "x", "y") {
		t.Errorf("got %q", got)
	}
	if got := ExpandHome("/abs"); got != "/abs" {
		t.Errorf("got %q", got)
	}
}
