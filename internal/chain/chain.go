// Package chain detects multi-step attack shapes in a caller's recent history.
package chain

import (
	"fmt"
	"strings"

	"github.com/ppiankov/agentgate/internal/model"
)

// Category is a coarse classification of a history entry.
type Category string

const (
	HTTP       Category = "http"
	Messaging  Category = "messaging"
	Read       Category = "read"
	Write      Category = "write"
	Execute    Category = "execute"
	Credential Category = "credential"
)

// Kind selects which predicate a Rule uses.
type Kind string

const (
	// KindSequence matches when Steps occur in order within the last Window entries.
	KindSequence Kind = "sequence"
	// KindCount matches when at least MinCount entries anywhere carry PolicyContains.
	KindCount Kind = "count"
)

// Rule is one chain definition. Rules are data, evaluated in table order.
type Rule struct {
	Pattern        string     `yaml:"pattern"`
	Desc           string     `yaml:"desc"`
	Kind           Kind       `yaml:"kind"`
	Window         int        `yaml:"window,omitempty"`
	Steps          []Category `yaml:"steps,omitempty"`
	PolicyContains string     `yaml:"policy_contains,omitempty"`
	MinCount       int        `yaml:"min_count,omitempty"`
	Boost          int        `yaml:"boost"`
}

// Classifier maps tool names (by substring) and fired policies to categories.
type Classifier struct {
	ToolHints   map[Category][]string `yaml:"tool_hints"`
	PolicyHints map[Category][]string `yaml:"policy_hints,omitempty"`
}

// Config is the full chain analyzer configuration.
type Config struct {
	Rules      []Rule     `yaml:"rules"`
	Classifier Classifier `yaml:"classifier"`
}

// DefaultConfig returns the stock chain table.
func DefaultConfig() Config {
	return Config{
		Rules: []Rule{
			{
				Pattern: "browse-then-exfil",
				Desc:    "external HTTP call followed by outbound messaging",
				Kind:    KindSequence,
				Window:  5,
				Steps:   []Category{HTTP, Messaging},
				Boost:   35,
			},
			{
				Pattern: "read-write-execute",
				Desc:    "read, write, then execute in sequence",
				Kind:    KindSequence,
				Window:  6,
				Steps:   []Category{Read, Write, Execute},
				Boost:   40,
			},
			{
				Pattern:        "repeated-scope-violation",
				Desc:           "two or more scope violations in session",
				Kind:           KindCount,
				PolicyContains: "scope-violation",
				MinCount:       2,
				Boost:          45,
			},
			{
				Pattern: "credential-then-http",
				Desc:    "credential access followed by HTTP call",
				Kind:    KindSequence,
				Window:  4,
				Steps:   []Category{Credential, HTTP},
				Boost:   50,
			},
		},
		Classifier: Classifier{
			ToolHints: map[Category][]string{
				HTTP:       {"http", "fetch", "browse", "curl", "web_request", "url"},
				Messaging:  {"messag", "email", "mail", "slack", "sms", "send", "notify"},
				Read:       {"read", "open_file", "download", "get_file", "cat_file"},
				Write:      {"write", "save", "upload", "put_file", "create_file"},
				Execute:    {"exec", "shell", "run_code", "run_script", "eval"},
				Credential: {"secret", "credential", "password", "vault", "keychain"},
			},
			PolicyHints: map[Category][]string{
				Credential: {"credential"},
			},
		},
	}
}

// Is reports whether entry e belongs to category c.
func (cl Classifier) Is(e model.HistoryEntry, c Category) bool {
	tool := strings.ToLower(e.Tool)
	for _, h := range cl.ToolHints[c] {
		if h != "" && strings.Contains(tool, h) {
			return true
		}
	}
	policy := strings.ToLower(e.Policy)
	for _, h := range cl.PolicyHints[c] {
		if h != "" && strings.Contains(policy, h) {
			return true
		}
	}
	return false
}

// Analyze returns the first rule in cfg that matches history, or an
// untriggered alert.
func Analyze(cfg Config, history []model.HistoryEntry) model.ChainAlert {
	for _, r := range cfg.Rules {
		if r.matches(cfg.Classifier, history) {
			return model.ChainAlert{
				Triggered: true,
				Pattern:   r.Pattern,
				Desc:      r.Desc,
				Boost:     r.Boost,
			}
		}
	}
	return model.ChainAlert{}
}

func (r Rule) matches(cl Classifier, history []model.HistoryEntry) bool {
	switch r.Kind {
	case KindSequence:
		return sequence(cl, tail(history, r.Window), r.Steps)
	case KindCount:
		if r.PolicyContains == "" || r.MinCount <= 0 {
			return false
		}
		n := 0
		for _, e := range history {
			if strings.Contains(e.Policy, r.PolicyContains) {
				n++
			}
		}
		return n >= r.MinCount
	default:
		return false
	}
}

// sequence reports whether steps occur in order in entries, each on a
// distinct entry.
func sequence(cl Classifier, entries []model.HistoryEntry, steps []Category) bool {
	if len(steps) == 0 {
		return false
	}
	i := 0
	for _, e := range entries {
		if cl.Is(e, steps[i]) {
			i++
			if i == len(steps) {
				return true
			}
		}
	}
	return false
}

func tail(h []model.HistoryEntry, n int) []model.HistoryEntry {
	if n <= 0 || len(h) <= n {
		return h
	}
	return h[len(h)-n:]
}

// Validate checks a chain config for structural errors.
func Validate(cfg Config) error {
	seen := make(map[string]bool)
	for i, r := range cfg.Rules {
		if r.Pattern == "" {
			return fmt.Errorf("chain rule %d: pattern is required", i)
		}
		if seen[r.Pattern] {
			return fmt.Errorf("chain rule %q: duplicate pattern", r.Pattern)
		}
		seen[r.Pattern] = true
		switch r.Kind {
		case KindSequence:
			if len(r.Steps) == 0 {
				return fmt.Errorf("chain rule %q: sequence needs steps", r.Pattern)
			}
		case KindCount:
			if r.PolicyContains == "" || r.MinCount <= 0 {
				return fmt.Errorf("chain rule %q: count needs policy_contains and min_count", r.Pattern)
			}
		default:
			return fmt.Errorf("chain rule %q: unknown kind %q", r.Pattern, r.Kind)
		}
		if r.Boost < 0 || r.Boost > 100 {
			return fmt.Errorf("chain rule %q: boost %d out of range", r.Pattern, r.Boost)
		}
	}
	return nil
}
