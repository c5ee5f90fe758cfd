package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Agent is the registered identity of one agent.
type Agent struct {
	Capabilities []string `yaml:"capabilities" json:"capabilities"`
	Owner        string   `yaml:"owner" json:"owner"`
	Fingerprint  string   `yaml:"fingerprint" json:"fingerprint"`
	TrustLevel   string   `yaml:"trust_level" json:"trust_level"`
}

// HasCapability returns true if the agent declares the capability or "*".
func (a *Agent) HasCapability(c string) bool {
	for _, have := range a.Capabilities {
		if have == "*" || strings.EqualFold(have, c) {
			return true
		}
	}
	return false
}

// RegistryFile is the on-disk layout of the agent registry.
type RegistryFile struct {
	Agents map[string]*Agent `yaml:"agents"`
}

// Registry maps agent IDs to their registered identity. Read-only after load.
type Registry struct {
	agents map[string]*Agent
}

// NewRegistry creates a Registry from an agents map.
func NewRegistry(agents map[string]*Agent) *Registry {
	if agents == nil {
		agents = make(map[string]*Agent)
	}
	return &Registry{agents: agents}
}

// DefaultRegistry returns the built-in registry used when no file exists.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]*Agent{
		"ops-assistant": {
			Capabilities: []string{"http_request", "file_read", "messaging_send"},
			Owner:        "platform-team",
			Fingerprint:  "fp-7c1e9a",
			TrustLevel:   "internal",
		},
	})
}

// Lookup returns the agent for the given ID, or nil if not found.
func (r *Registry) Lookup(agentID string) *Agent {
	if r == nil {
		return nil
	}
	return r.agents[agentID]
}

// IsRegistered returns true if the agent ID exists in the registry.
func (r *Registry) IsRegistered(agentID string) bool {
	return r.Lookup(agentID) != nil
}

// IDs returns the registered agent IDs in sorted order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadRegistry loads the agent registry from a YAML file.
// Empty path falls back to ~/.agentgate/agents.yaml.
// Missing file returns the default registry. Invalid YAML returns an error.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultRegistry(), nil
		}
		path = filepath.Join(home, ".agentgate", "agents.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRegistry(), nil
		}
		return nil, fmt.Errorf("failed to read agent registry: %w", err)
	}

	var f RegistryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse agent registry: %w", err)
	}
	for id, a := range f.Agents {
		if a == nil {
			return nil, fmt.Errorf("agent %q: empty entry", id)
		}
	}
	return NewRegistry(f.Agents), nil
}
