package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk rule file.
type Config struct {
	// DisableDefaults drops the built-in base rules entirely.
	DisableDefaults bool     `yaml:"disable_defaults"`
	Policies        []Policy `yaml:"policies"`
}

// Effective returns the policy set the file describes: the defaults with
// file policies merged over them by id, or the file policies alone.
func (c *Config) Effective() []Policy {
	if c == nil {
		return DefaultPolicies()
	}
	if c.DisableDefaults {
		return c.Policies
	}
	return Merge(DefaultPolicies(), c.Policies)
}

func defaultPath() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, ".agentgate", "policies.yaml"), true
}

func emptyHash() string {
	h := sha256.Sum256(nil)
	return "sha256:" + hex.EncodeToString(h[:])
}

// LoadConfig loads the rule file.
// Empty path falls back to ~/.agentgate/policies.yaml.
// Missing file returns an empty config (defaults only). Invalid YAML returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := LoadConfigWithHash(path)
	return cfg, err
}

// LoadConfigWithHash loads the rule file and returns the SHA-256 of its raw
// bytes. When no file exists the hash is that of empty input.
func LoadConfigWithHash(path string) (*Config, string, error) {
	if path == "" {
		p, ok := defaultPath()
		if !ok {
			return &Config{}, emptyHash(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, emptyHash(), nil
		}
		return nil, "", fmt.Errorf("failed to read policy config: %w", err)
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse policy config: %w", err)
	}
	return cfg, hash, nil
}

// DefaultConfigYAML returns a commented YAML string for agentgate init.
func DefaultConfigYAML() string {
	return `# agentgate policy file
# Generated by: agentgate init
#
# Policies listed here are merged over the built-in rules by id:
# reuse an id to override a built-in rule, or pick a new id to add one.
# Set disable_defaults: true to start from an empty rule set.
#
# Fields:
#   id:        unique among active policies
#   severity:  0-100, scaled by the caller's trust multiplier
#   action:    allow | review | block (unknown values are treated as block)
#   status:    active | draft | archived (only active rules are evaluated)
#   version:   >= 1
#   match:     tools, tool_prefix, pattern (regex over the flattened call),
#              arg + arg_pattern / arg_not_pattern / min_items,
#              all, any, not
disable_defaults: false

policies:
  # Downgrade the built-in external HTTP review to a lower severity.
  - id: external-http-review
    desc: HTTP request to a non-local host
    severity: 30
    action: review
    status: active
    version: 2
    match:
      all:
        - tools: [http_request, http_get, http_post, fetch_url, web_request]
        - arg: url
          arg_pattern: '(?i)^https?://'
        - arg: url
          arg_not_pattern: '(?i)^https?://(localhost|127\.0\.0\.1|\[::1\]|::1)(:\d+)?(/|$)'

  # Block production database access from agents.
  - id: prod-db-block
    desc: production database connection
    severity: 85
    action: block
    status: draft
    version: 1
    match:
      pattern: '(?i)prod(uction)?[-_.]db'
`
}
