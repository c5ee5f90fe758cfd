// Package gate runs the action-governance pipeline and the output validator
// over resident configuration.
package gate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ppiankov/agentgate/internal/chain"
	"github.com/ppiankov/agentgate/internal/identity"
	"github.com/ppiankov/agentgate/internal/model"
	"github.com/ppiankov/agentgate/internal/policy"
	"github.com/ppiankov/agentgate/internal/ratelimit"
	"github.com/ppiankov/agentgate/internal/scan"
	"github.com/ppiankov/agentgate/internal/trust"
)

// Policy identifiers emitted by the pipeline itself.
const (
	PolicyDegraded          = "degraded-mode"
	PolicyIdentityMismatch  = "identity-mismatch"
	PolicyIdentitySpoofing  = "identity-spoofing"
	PolicyKillSwitch        = "kill-switch"
	PolicyInjection         = "injection-firewall"
	PolicyEncodedCredential = "encoded-credential"
	PolicyScopeViolation    = "scope-violation"
	PolicyNone              = "none"
)

// Heuristic floors used by layer 5.
const (
	floorHighRiskTool   = 40
	floorSurgeTool      = 70
	floorMediumRiskTool = 20
	floorFanOutLarge    = 80
	floorFanOutSmall    = 60
	floorKeywordsMany   = 80
	floorKeywordsSome   = 60

	fanOutLarge       = 50
	fanOutSmall       = 10
	keywordsMany      = 3
	chainEscalateAt   = 80
	confidenceGapAt   = 55
	riskInjection     = 95
	riskEncodedCred   = 90
	riskScope         = 90
	trustGateSeverity = 85
)

// Degraded reports the process-wide degraded-mode state.
type Degraded interface {
	Active() bool
}

// Config configures an Evaluator.
type Config struct {
	// Degraded is consulted on every call. Nil means never degraded.
	Degraded Degraded
	// Now is the wall clock for velocity windows. Nil means time.Now.
	Now func() time.Time
}

// Evaluator runs both pipelines. It is safe for concurrent use; Swap
// replaces the configuration snapshot atomically.
type Evaluator struct {
	snap     atomic.Pointer[Snapshot]
	degraded Degraded
	now      func() time.Time
}

// NewEvaluator creates an evaluator over snap (nil → defaults).
func NewEvaluator(snap *Snapshot, cfg Config) *Evaluator {
	if snap == nil {
		snap = DefaultSnapshot()
	}
	e := &Evaluator{degraded: cfg.Degraded, now: cfg.Now}
	if e.now == nil {
		e.now = time.Now
	}
	e.snap.Store(snap)
	return e
}

// Snapshot returns the configuration currently in effect.
func (e *Evaluator) Snapshot() *Snapshot {
	return e.snap.Load()
}

// Swap installs a new snapshot and returns the previous one.
func (e *Evaluator) Swap(snap *Snapshot) *Snapshot {
	return e.snap.Swap(snap)
}

// Evaluate decides one proposed action. history is the caller's prior calls
// in chronological order; it is read, never modified.
func (e *Evaluator) Evaluate(req model.ActionRequest, extra []policy.Policy, killSwitch bool, history []model.HistoryEntry) model.Decision {
	snap := e.snap.Load()
	p := snap.patterns
	tier := trust.Resolve(req.Context.TrustLevel)
	rec := newRecorder()
	d := model.Decision{TrustTier: tier.Name}

	block := func(layer int, key string, risk int, policyID, detail string) model.Decision {
		risk = model.ClampRisk(risk)
		rec.step(layer, key, model.OutcomeBlock, risk, []string{policyID}, detail)
		rec.explain("%s", detail)
		d.Decision = model.Block
		d.Risk = risk
		d.Policy = policyID
		d.Trace = rec.trace
		d.Explanation = rec.explanation(detail)
		return d
	}

	// Pre-layer: degraded mode.
	if e.degraded != nil && e.degraded.Active() {
		return block(0, "degraded-mode", 100, PolicyDegraded, "degraded mode active: all actions blocked")
	}

	// Pre-layer: identity.
	floor := tier.Floor
	id := identity.Verify(snap.Registry, req.Context.AgentID, req.Context.AgentToken)
	d.Identity = model.Identity{Verified: id.Verified, Reason: id.Reason, RiskBoost: id.RiskBoost}
	if !id.Verified {
		if id.RiskBoost >= identity.BoostMismatch {
			policyID := PolicyIdentityMismatch
			if id.RiskBoost >= identity.BoostSpoofing {
				policyID = PolicyIdentitySpoofing
			}
			return block(0, "identity", floor+id.RiskBoost, policyID, "identity check failed: "+id.Reason)
		}
		floor += id.RiskBoost
		rec.explain("identity unverified: %s (risk floor +%d)", id.Reason, id.RiskBoost)
	}

	history = model.CapHistory(history)

	// Layer 1: kill switch, then velocity.
	if killSwitch {
		return block(1, "kill-switch", 100, PolicyKillSwitch, "kill switch active")
	}
	if v := ratelimit.Check(p.tables.Velocity, req.Tool, history, e.now()); v.Triggered {
		risk := floor + int(math.Round(float64(v.Boost)*tier.Multiplier))
		return block(1, "velocity", risk, v.PolicyID(), "velocity limit: "+v.Detail)
	}
	rec.step(1, "kill-switch+velocity", model.OutcomePass, 0, nil, "kill switch off; velocity within limits")

	// Layer 2: injection firewall.
	flat := scan.Flatten(req)
	d.PIIHits = scan.PII(flat)
	if hits := p.injection.Match(flat); len(hits) > 0 {
		return block(2, "injection-firewall", riskInjection, PolicyInjection,
			fmt.Sprintf("injection phrase detected: %s", strings.Join(hits, ", ")))
	}
	sweep := p.sweeper.Value(req.Args.Value())
	if len(sweep.Injection) > 0 {
		return block(2, "injection-firewall", riskInjection, PolicyInjection,
			fmt.Sprintf("base64-encoded injection detected: %s", strings.Join(sweep.Injection, ", ")))
	}
	if len(sweep.Credential) > 0 {
		return block(2, "injection-firewall", riskEncodedCred, PolicyEncodedCredential,
			fmt.Sprintf("base64-encoded credential detected: %s", strings.Join(sweep.Credential, ", ")))
	}
	rec.step(2, "injection-firewall", model.OutcomePass, 0, nil,
		fmt.Sprintf("no injection phrases; %d base64 payloads decoded", sweep.Decoded))

	// Layer 3: scope, then trust-tier gating.
	if allowed := req.Context.AllowedTools; len(allowed) > 0 && !contains(allowed, req.Tool) {
		return block(3, "scope", riskScope, PolicyScopeViolation,
			fmt.Sprintf("tool %q not in allowed_tools [%s]", req.Tool, strings.Join(allowed, ", ")))
	}
	if tier.Distrusted() && p.highRisk[strings.ToLower(req.Tool)] {
		return block(3, "scope", tier.Scale(trustGateSeverity), "trust-tier-"+tier.Name,
			fmt.Sprintf("tool %q not permitted at %s trust", req.Tool, tier.Name))
	}
	rec.step(3, "scope", model.OutcomePass, 0, nil, "tool in scope for "+tier.Name+" trust")

	// Layer 4: policy engine. It never returns early: a block here is
	// final, but the heuristic below may still raise its risk.
	pres := snap.Engine.Evaluate(policy.Input{Tool: req.Tool, Args: req.Args, Flat: flat}, extra, tier)
	rec.expls = append(rec.expls, pres.Explanations...)
	decision := pres.Decision
	risk := pres.Risk

	heuristic, signals := p.heuristic(req, flat)
	alert := chain.Analyze(p.tables.Chains, history)
	d.ChainAlert = &alert
	if alert.Triggered {
		heuristic = model.ClampRisk(heuristic + alert.Boost)
		signals = append(signals, fmt.Sprintf("chain %s +%d", alert.Pattern, alert.Boost))
		rec.explain("attack chain %s: %s", alert.Pattern, alert.Desc)
	}
	hdetail := "heuristic " + strconv.Itoa(heuristic)
	if len(signals) > 0 {
		hdetail += ": " + strings.Join(signals, ", ")
	}

	if decision == model.Block {
		// The block outcome closes the trace at layer 4.
		if heuristic > risk {
			risk = heuristic
		}
		rec.step(4, "policy", model.OutcomeBlock, model.ClampRisk(risk), pres.Matched, policyDetail(pres)+"; "+hdetail)
	} else {
		rec.step(4, "policy", model.OutcomeFor(decision), pres.Risk, pres.Matched, policyDetail(pres))

		// Layer 5: chain escalation, risk replacement, confidence gap.
		chainEscalated := false
		if alert.Triggered && heuristic >= chainEscalateAt {
			decision = model.Escalate(decision, model.Review)
			chainEscalated = true
		}
		if heuristic >= risk {
			risk = heuristic
		}
		if heuristic >= confidenceGapAt && len(pres.Matched) == 0 {
			d.ConfidenceGap = true
			decision = model.Escalate(decision, model.Review)
			rec.explain("confidence gap: heuristic risk %d with no matching policy", heuristic)
		}

		outcome := model.OutcomePass
		if d.ConfidenceGap || chainEscalated {
			outcome = model.OutcomeReview
		}
		var matched []string
		if alert.Triggered {
			matched = []string{alert.Pattern}
		}
		rec.step(5, "heuristic", outcome, heuristic, matched, hdetail)
	}

	d.Decision = decision
	d.Risk = model.ClampRisk(risk)
	d.Policy = PolicyNone
	if len(pres.Matched) > 0 {
		d.Policy = strings.Join(pres.Matched, ",")
	}
	d.Trace = rec.trace
	fallback := "no risk signals"
	if decision != model.Allow {
		fallback = fmt.Sprintf("%s at risk %d", decision, d.Risk)
	}
	d.Explanation = rec.explanation(fallback)
	return d
}

// heuristic computes the layer-5 score and the signals behind it.
func (p *patterns) heuristic(req model.ActionRequest, flat string) (int, []string) {
	score := 0
	var signals []string
	raise := func(floor int, signal string) {
		signals = append(signals, signal)
		if floor > score {
			score = floor
		}
	}

	tool := strings.ToLower(req.Tool)
	switch {
	case p.highRisk[tool]:
		raise(floorHighRiskTool, "high-risk tool")
	case p.tables.SurgePrefix != "" && strings.HasPrefix(tool, strings.ToLower(p.tables.SurgePrefix)):
		raise(floorSurgeTool, "surge tool")
	case p.mediumRisk[tool]:
		raise(floorMediumRiskTool, "medium-risk tool")
	}

	recipients := 0
	for _, k := range p.tables.RecipientKeys {
		if v, ok := req.Args[k]; ok {
			recipients += policy.ItemCount(v)
		}
	}
	switch {
	case recipients >= fanOutLarge:
		raise(floorFanOutLarge, fmt.Sprintf("%d recipients", recipients))
	case recipients >= fanOutSmall:
		raise(floorFanOutSmall, fmt.Sprintf("%d recipients", recipients))
	}

	kw := p.sensitive.Match(flat)
	switch {
	case len(kw) >= keywordsMany:
		raise(floorKeywordsMany, "sensitive keywords: "+strings.Join(kw, ", "))
	case len(kw) > 0:
		raise(floorKeywordsSome, "sensitive keywords: "+strings.Join(kw, ", "))
	}
	return score, signals
}

func policyDetail(r policy.Result) string {
	if len(r.Matched) == 0 {
		return "no policy matched"
	}
	return fmt.Sprintf("%d matched: %s", len(r.Matched), strings.Join(r.Matched, ", "))
}

func contains(list []string, s string) bool {
	for _, it := range list {
		if it == s {
			return true
		}
	}
	return false
}
