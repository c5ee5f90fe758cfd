package model

import (
	"strings"
	"time"
)

// MaxHistory is the number of most recent calls kept per agent.
const MaxHistory = 50

// Verdict is the enforcement outcome of one evaluation.
type Verdict string

const (
	Allow  Verdict = "allow"
	Review Verdict = "review"
	Block  Verdict = "block"
)

// Rank maps a verdict to a comparable integer for monotonic escalation.
// Unknown verdicts rank as block.
func (v Verdict) Rank() int {
	switch v {
	case Allow:
		return 0
	case Review:
		return 1
	default:
		return 2
	}
}

// Escalate returns the more restrictive of a and b. It never downgrades.
func Escalate(a, b Verdict) Verdict {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ParseVerdict maps a string to a Verdict. Fail-closed: unknown → Block.
func ParseVerdict(s string) Verdict {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow":
		return Allow
	case "review":
		return Review
	default:
		return Block
	}
}

// Outcome is the per-layer result recorded in a trace step.
type Outcome string

const (
	OutcomePass   Outcome = "pass"
	OutcomeReview Outcome = "review"
	OutcomeBlock  Outcome = "block"
)

// OutcomeFor converts a verdict to a trace outcome.
func OutcomeFor(v Verdict) Outcome {
	switch v {
	case Allow:
		return OutcomePass
	case Review:
		return OutcomeReview
	default:
		return OutcomeBlock
	}
}

// Context is the calling-side metadata attached to an action.
type Context struct {
	AgentID      string           `json:"agent_id,omitempty"`
	AgentToken   string           `json:"agent_token,omitempty"`
	TrustLevel   string           `json:"trust_level,omitempty"`
	AllowedTools []string         `json:"allowed_tools,omitempty"`
	SessionID    string           `json:"session_id,omitempty"`
	Extra        map[string]Value `json:"extra,omitempty"`
}

// ContextFromMap creates a Context from a raw map with defensive coercion.
// Keys that are not part of the known contract land in Extra.
func ContextFromMap(m map[string]any) Context {
	var c Context
	for k, raw := range m {
		switch k {
		case "agent_id":
			c.AgentID, _ = raw.(string)
		case "agent_token":
			c.AgentToken, _ = raw.(string)
		case "trust_level":
			c.TrustLevel, _ = raw.(string)
		case "session_id":
			c.SessionID, _ = raw.(string)
		case "allowed_tools":
			for _, it := range FromAny(raw).Items() {
				if s, ok := it.Str(); ok {
					c.AllowedTools = append(c.AllowedTools, s)
				}
			}
		default:
			if c.Extra == nil {
				c.Extra = make(map[string]Value)
			}
			c.Extra[k] = FromAny(raw)
		}
	}
	return c
}

// HistoryKey returns the key under which this caller's history is kept:
// the agent id, else the session id, else "anonymous".
func (c Context) HistoryKey() string {
	if c.AgentID != "" {
		return c.AgentID
	}
	if c.SessionID != "" {
		return c.SessionID
	}
	return "anonymous"
}

// ActionRequest is one proposed tool call. It is not mutated by evaluation.
type ActionRequest struct {
	Tool    string  `json:"tool"`
	Args    Args    `json:"args,omitempty"`
	Context Context `json:"context"`
}

// HistoryEntry records one prior call by the same agent.
type HistoryEntry struct {
	Tool      string    `json:"tool"`
	Policy    string    `json:"policy"`
	Decision  Verdict   `json:"decision,omitempty"`
	Risk      int       `json:"risk,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CapHistory returns at most the MaxHistory most recent entries.
func CapHistory(h []HistoryEntry) []HistoryEntry {
	if len(h) <= MaxHistory {
		return h
	}
	return h[len(h)-MaxHistory:]
}

// TraceStep is one executed layer of an evaluation.
type TraceStep struct {
	Layer     int      `json:"layer"`
	Key       string   `json:"key"`
	Outcome   Outcome  `json:"outcome"`
	Risk      int      `json:"risk"`
	Matched   []string `json:"matched,omitempty"`
	Detail    string   `json:"detail"`
	ElapsedMs float64  `json:"elapsed_ms"`
}

// ChainAlert reports a detected multi-step attack pattern.
type ChainAlert struct {
	Triggered bool   `json:"triggered"`
	Pattern   string `json:"pattern,omitempty"`
	Desc      string `json:"desc,omitempty"`
	Boost     int    `json:"boost,omitempty"`
}

// PIIHit counts occurrences of one PII type. Raw values are never kept.
type PIIHit struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Identity is the identity-verification outcome attached to a decision.
type Identity struct {
	Verified  bool   `json:"verified"`
	Reason    string `json:"reason,omitempty"`
	RiskBoost int    `json:"risk_boost"`
}

// Decision is the sole output of one action evaluation.
type Decision struct {
	Decision      Verdict     `json:"decision"`
	Risk          int         `json:"risk"`
	Policy        string      `json:"policy"`
	Trace         []TraceStep `json:"trace"`
	Explanation   string      `json:"explanation"`
	ChainAlert    *ChainAlert `json:"chain_alert,omitempty"`
	TrustTier     string      `json:"trust_tier"`
	PIIHits       []PIIHit    `json:"pii_hits,omitempty"`
	ConfidenceGap bool        `json:"confidence_gap"`
	Identity      Identity    `json:"identity"`
}

// Blocked reports whether the decision is a block.
func (d Decision) Blocked() bool { return d.Decision == Block }

// OutputContext carries what the output validator may know about the call
// that produced the text.
type OutputContext struct {
	AgentID   string `json:"agent_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	PriorRisk int    `json:"prior_risk,omitempty"`
}

// OutputFlag is one signal raised against generated text.
type OutputFlag struct {
	ID       string `json:"id"`
	Desc     string `json:"desc"`
	Severity int    `json:"severity"`
}

// OutputDecision is the result of validating generated text.
type OutputDecision struct {
	Decision    Verdict      `json:"decision"`
	Risk        int          `json:"risk"`
	Flags       []OutputFlag `json:"flags,omitempty"`
	Trace       []TraceStep  `json:"trace"`
	Explanation string       `json:"explanation"`
}

// ClampRisk bounds r to [0,100].
func ClampRisk(r int) int {
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}
