package policy

import (
	"fmt"

	"github.com/ppiankov/agentgate/internal/model"
	"github.com/ppiankov/agentgate/internal/trust"
)

// Result is the outcome of running the active rule set.
type Result struct {
	Decision     model.Verdict
	Risk         int
	Matched      []string
	Explanations []string
}

// Engine evaluates a compiled base rule set plus per-call extras.
// It is immutable after construction and safe for concurrent use.
type Engine struct {
	base     []Policy
	compiled []Rule
}

// NewEngine compiles base once.
func NewEngine(base []Policy) *Engine {
	return &Engine{base: base, compiled: Compile(base)}
}

// Policies returns the base policies (including inactive ones).
func (e *Engine) Policies() []Policy {
	return e.base
}

// Rules returns the rules that run with the given per-call extras. Inactive
// extras are dropped before merging so they cannot replace a base rule.
func (e *Engine) Rules(extra []Policy) []Rule {
	extra = ActiveOnly(extra)
	if len(extra) == 0 {
		return e.compiled
	}
	return Compile(Merge(e.base, extra))
}

// Evaluate runs every active rule against in. Each match records its id,
// folds its tier-scaled severity into the risk via max and escalates the
// decision. Escalation never downgrades.
func (e *Engine) Evaluate(in Input, extra []Policy, tier trust.Tier) Result {
	res := Result{Decision: model.Allow}
	for _, r := range e.Rules(extra) {
		if !r.Matches(in) {
			continue
		}
		scaled := tier.Scale(r.Severity)
		res.Matched = append(res.Matched, r.ID)
		if scaled > res.Risk {
			res.Risk = scaled
		}
		v := r.Verdict()
		res.Decision = model.Escalate(res.Decision, v)
		desc := r.Desc
		if desc == "" {
			desc = r.ID
		}
		res.Explanations = append(res.Explanations,
			fmt.Sprintf("%s (%s, severity %d→%d)", desc, v, r.Severity, scaled))
	}
	return res
}
