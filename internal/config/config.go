// Package config loads the agentgate service configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/agentgate/internal/alert"
	"github.com/ppiankov/agentgate/internal/events"
	"github.com/ppiankov/agentgate/internal/history"
)

// DefaultPort is the gRPC listen port when none is configured.
const DefaultPort = 9777

// Config is the top-level service configuration.
type Config struct {
	Port     int            `yaml:"port"`
	Log      LogConfig      `yaml:"log"`
	Policy   string         `yaml:"policy"`
	Registry string         `yaml:"registry"`
	Tables   string         `yaml:"tables"`
	Degraded bool           `yaml:"degraded"`
	Watch    bool           `yaml:"watch"`
	History  history.Config `yaml:"history"`
	Audit    AuditConfig    `yaml:"audit"`
	Review   ReviewConfig   `yaml:"review"`
	Alerts   []alert.Config `yaml:"alerts"`
	Events   events.Config  `yaml:"events"`
}

type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// AuditConfig locates the receipt log. An empty path disables receipts.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// ReviewConfig locates the review queue.
type ReviewConfig struct {
	Dir string `yaml:"dir"`
	TTL string `yaml:"ttl"`
}

// TTLDuration parses TTL; empty means no expiry.
func (r ReviewConfig) TTLDuration() (time.Duration, error) {
	if r.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid review ttl %q: %w", r.TTL, err)
	}
	return d, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Port:    DefaultPort,
		Log:     LogConfig{Format: "text", Level: "info"},
		Watch:   true,
		History: history.Config{Type: "memory"},
		Review:  ReviewConfig{TTL: "24h"},
	}
}

// DefaultPath returns ~/.agentgate/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".agentgate", "config.yaml")
}

// Load reads the config at path (DefaultPath when empty) over Default.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks fields that would otherwise fail late at startup.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch c.History.Type {
	case "", "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown history type %q", c.History.Type)
	}
	if _, err := c.Review.TTLDuration(); err != nil {
		return err
	}
	for i, a := range c.Alerts {
		if a.URL == "" {
			return fmt.Errorf("alerts[%d]: url is required", i)
		}
	}
	if c.Events.Enabled() && c.Events.Topic == "" {
		return fmt.Errorf("events: topic is required when brokers are set")
	}
	return nil
}

// DefaultConfigYAML is the commented template written by `agentgate init`.
func DefaultConfigYAML() string {
	return `# agentgate service configuration

port: 9777

log:
  format: text   # text | json
  level: info    # debug | info | warn | error

# Empty paths fall back to ~/.agentgate/{policies,agents,tables}.yaml
policy: ""
registry: ""
tables: ""

# Start with every call blocked until an operator clears degraded mode.
degraded: false

# Reload policy, registry and tables when their files change.
watch: true

history:
  type: memory   # memory | sqlite | redis
  # path: ~/.agentgate/history.db
  # redis_addr: localhost:6379
  # redis_db: 0
  # ttl: 24h

audit:
  path: ~/.agentgate/receipts.jsonl

review:
  # dir: ~/.agentgate/pending
  ttl: 24h

alerts: []
#  - url: https://hooks.slack.com/services/XXX
#    format: slack
#    events: [block, degraded]

events:
  brokers: []
  # topic: agentgate.decisions
`
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
