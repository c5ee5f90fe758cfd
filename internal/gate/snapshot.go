package gate

import (
	"github.com/ppiankov/agentgate/internal/identity"
	"github.com/ppiankov/agentgate/internal/policy"
)

// Snapshot is one immutable generation of resident configuration.
// Reloads build a new Snapshot and swap it in whole.
type Snapshot struct {
	Engine     *policy.Engine
	Registry   *identity.Registry
	Tables     *Tables
	PolicyHash string

	patterns *patterns
}

// NewSnapshot compiles the given configuration. Nil arguments fall back to
// the built-in defaults.
func NewSnapshot(policies []policy.Policy, reg *identity.Registry, tables *Tables, policyHash string) *Snapshot {
	if policies == nil {
		policies = policy.DefaultPolicies()
	}
	if reg == nil {
		reg = identity.DefaultRegistry()
	}
	if tables == nil {
		tables = DefaultTables()
	}
	return &Snapshot{
		Engine:     policy.NewEngine(policies),
		Registry:   reg,
		Tables:     tables,
		PolicyHash: policyHash,
		patterns:   compileTables(tables),
	}
}

// DefaultSnapshot returns a snapshot of all built-in configuration.
func DefaultSnapshot() *Snapshot {
	return NewSnapshot(nil, nil, nil, "")
}
