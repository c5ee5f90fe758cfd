// Package policy holds the named, versioned rule set and the engine that
// evaluates it against a single call.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/agentgate/internal/model"
)

// Status gates participation. Only active policies are evaluated.
type Status string

const (
	StatusActive   Status = "active"
	StatusDraft    Status = "draft"
	StatusArchived Status = "archived"
)

// Policy is one named rule.
type Policy struct {
	ID       string      `yaml:"id" json:"id"`
	Desc     string      `yaml:"desc,omitempty" json:"desc,omitempty"`
	Severity int         `yaml:"severity" json:"severity"`
	Action   string      `yaml:"action" json:"action"`
	Status   Status      `yaml:"status,omitempty" json:"status,omitempty"`
	Version  int         `yaml:"version,omitempty" json:"version,omitempty"`
	Match    MatcherSpec `yaml:"match" json:"match"`
}

// Active reports whether the policy participates in evaluation.
// An unset status counts as active.
func (p Policy) Active() bool {
	return p.Status == "" || p.Status == StatusActive
}

// Verdict returns the policy action. Unknown actions are block.
func (p Policy) Verdict() model.Verdict {
	return model.ParseVerdict(p.Action)
}

// Rule is a policy with its matcher compiled.
type Rule struct {
	Policy
	matcher Matcher
}

// Matches runs the compiled matcher.
func (r Rule) Matches(in Input) bool {
	return r.matcher != nil && r.matcher.Match(in)
}

// Compile compiles the active policies in order. A policy whose spec has
// any invalid regular expression never matches.
func Compile(ps []Policy) []Rule {
	rules := make([]Rule, 0, len(ps))
	for _, p := range ps {
		if !p.Active() {
			continue
		}
		m, errs := p.Match.Compile()
		if len(errs) > 0 {
			m = Never{}
		}
		rules = append(rules, Rule{Policy: p, matcher: m})
	}
	return rules
}

// ActiveOnly returns the active policies of ps in order.
func ActiveOnly(ps []Policy) []Policy {
	var out []Policy
	for _, p := range ps {
		if p.Active() {
			out = append(out, p)
		}
	}
	return out
}

// Merge combines base and extra policies. An extra policy whose id equals a
// base policy id replaces it in place whatever its status; others are
// appended in order. A rule file uses this to park a default as draft.
func Merge(base, extra []Policy) []Policy {
	if len(extra) == 0 {
		return base
	}
	out := make([]Policy, len(base), len(base)+len(extra))
	copy(out, base)
	index := make(map[string]int, len(out))
	for i, p := range out {
		index[p.ID] = i
	}
	for _, p := range extra {
		if i, ok := index[p.ID]; ok {
			out[i] = p
			continue
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	return out
}

// ErrDuplicateID marks two active policies sharing one id.
var ErrDuplicateID = errors.New("duplicate active id")

// Validate returns every structural problem found in ps.
func Validate(ps []Policy) []error {
	var errs []error
	seen := make(map[string]bool)
	for i, p := range ps {
		where := fmt.Sprintf("policy %d", i)
		if p.ID != "" {
			where = fmt.Sprintf("policy %q", p.ID)
		}
		if strings.TrimSpace(p.ID) == "" {
			errs = append(errs, fmt.Errorf("%s: id is required", where))
		} else if p.Active() {
			if seen[p.ID] {
				errs = append(errs, fmt.Errorf("%s: %w", where, ErrDuplicateID))
			}
			seen[p.ID] = true
		}
		if p.Severity < 0 || p.Severity > 100 {
			errs = append(errs, fmt.Errorf("%s: severity %d out of range [0,100]", where, p.Severity))
		}
		switch strings.ToLower(p.Action) {
		case "allow", "review", "block":
		default:
			errs = append(errs, fmt.Errorf("%s: unknown action %q", where, p.Action))
		}
		switch p.Status {
		case "", StatusActive, StatusDraft, StatusArchived:
		default:
			errs = append(errs, fmt.Errorf("%s: unknown status %q", where, p.Status))
		}
		if p.Version < 0 {
			errs = append(errs, fmt.Errorf("%s: version must be >= 1", where))
		}
		if p.Match.Empty() {
			errs = append(errs, fmt.Errorf("%s: empty matcher never fires", where))
		}
		_, merrs := p.Match.Compile()
		for _, e := range merrs {
			errs = append(errs, fmt.Errorf("%s: %w", where, e))
		}
	}
	return errs
}

// DefaultPolicies returns the built-in base rule set.
func DefaultPolicies() []Policy {
	return []Policy{
		{
			ID:       "shell-dangerous",
			Desc:     "destructive shell command",
			Severity: 90,
			Action:   "block",
			Status:   StatusActive,
			Version:  1,
			Match: MatcherSpec{
				Pattern: `(?i)(\brm\s+-[a-z]*r[a-z]*f|\brm\s+-[a-z]*f[a-z]*r|\bdd\s+if=|\bmkfs(\.\w+)?\s|>\s*/dev/sd[a-z]|\bchmod\s+-R\s+777\s+/|\bshred\s+)`,
			},
		},
		{
			ID:       "db-destructive",
			Desc:     "destructive database statement",
			Severity: 85,
			Action:   "block",
			Status:   StatusActive,
			Version:  1,
			Match: MatcherSpec{
				Pattern: `(?i)\b(drop\s+(table|database|schema)|truncate\s+table|delete\s+from\s+\w+\s*(;|$|where\s+1\s*=\s*1))`,
			},
		},
		{
			ID:       "credential-access",
			Desc:     "access to credential material",
			Severity: 75,
			Action:   "review",
			Status:   StatusActive,
			Version:  1,
			Match: MatcherSpec{
				Pattern: `(?i)(/etc/shadow|\.ssh/id_|\.aws/credentials|\.env\b|api[_-]?key|secret[_-]?key|private[_-]?key|\bpassword\b)`,
			},
		},
		{
			ID:       "privilege-escalation",
			Desc:     "privilege escalation attempt",
			Severity: 80,
			Action:   "review",
			Status:   StatusActive,
			Version:  1,
			Match: MatcherSpec{
				Pattern: `(?i)(\bsudo\s|\bsu\s+-|\bchmod\s+[ugo]*\+s\b|\bchmod\s+4[0-7]{3}\b|\bsetuid\b|\bchown\s+root\b|\bvisudo\b)`,
			},
		},
		{
			ID:       "external-http-review",
			Desc:     "HTTP request to a non-local host",
			Severity: 40,
			Action:   "review",
			Status:   StatusActive,
			Version:  1,
			Match: MatcherSpec{
				All: []MatcherSpec{
					{Tools: []string{"http_request", "http_get", "http_post", "fetch_url", "web_request"}},
					{Arg: "url", ArgPattern: `(?i)^https?://`},
					{Arg: "url", ArgNotPattern: `(?i)^https?://(localhost|127\.0\.0\.1|\[::1\]|::1)(:\d+)?(/|$)`},
				},
			},
		},
		{
			ID:       "bulk-messaging",
			Desc:     "message fan-out to ten or more recipients",
			Severity: 60,
			Action:   "review",
			Status:   StatusActive,
			Version:  1,
			Match: MatcherSpec{
				Any: []MatcherSpec{
					{Arg: "recipients", MinItems: 10},
					{Arg: "to", MinItems: 10},
				},
			},
		},
		{
			ID:       "payment-review",
			Desc:     "money movement",
			Severity: 70,
			Action:   "review",
			Status:   StatusActive,
			Version:  1,
			Match: MatcherSpec{
				Any: []MatcherSpec{
					{ToolPrefix: "payment"},
					{Tools: []string{"transfer_funds", "send_payment", "charge_card", "refund", "wire_transfer"}},
				},
			},
		},
		{
			ID:       "surge-operation",
			Desc:     "surge-class bulk operation",
			Severity: 65,
			Action:   "review",
			Status:   StatusActive,
			Version:  1,
			Match:    MatcherSpec{ToolPrefix: "surge_"},
		},
		{
			ID:       "data-export-review",
			Desc:     "bulk data export (draft)",
			Severity: 50,
			Action:   "review",
			Status:   StatusDraft,
			Version:  1,
			Match:    MatcherSpec{Tools: []string{"export_table", "dump_database"}},
		},
		{
			ID:       "legacy-ftp-block",
			Desc:     "plain FTP transfer (retired)",
			Severity: 60,
			Action:   "block",
			Status:   StatusArchived,
			Version:  2,
			Match:    MatcherSpec{Pattern: `(?i)\bftp://`},
		},
	}
}
