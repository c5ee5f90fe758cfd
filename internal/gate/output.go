package gate

import (
	"fmt"
	"strings"

	"github.com/ppiankov/agentgate/internal/model"
	"github.com/ppiankov/agentgate/internal/scan"
)

// Output flag identifiers raised by the fixed validator steps.
const (
	FlagHighRiskPII      = "high-risk-pii"
	FlagEncodedInjection = "encoded-injection"
	FlagTerseAffirmative = "terse-affirmative"

	riskOutputPII       = 88
	riskOutputInjection = 92
	terseWordLimit      = 5
)

// EvaluateOutput screens generated text. Steps short-circuit on block and
// each executed step records one trace entry.
func (e *Evaluator) EvaluateOutput(text string, octx model.OutputContext) model.OutputDecision {
	p := e.snap.Load().patterns
	rec := newRecorder()
	out := model.OutputDecision{Decision: model.Allow}

	finish := func() model.OutputDecision {
		out.Risk = model.ClampRisk(out.Risk)
		out.Trace = rec.trace
		fallback := "output clean"
		if out.Decision != model.Allow {
			fallback = fmt.Sprintf("%s at risk %d", out.Decision, out.Risk)
		}
		out.Explanation = rec.explanation(fallback)
		return out
	}
	flag := func(id, desc string, severity int) {
		out.Flags = append(out.Flags, model.OutputFlag{ID: id, Desc: desc, Severity: severity})
		if severity > out.Risk {
			out.Risk = severity
		}
	}

	// Step 1: dangerous-output signatures.
	var sigHits []string
	sigRisk := 0
	for _, s := range p.signatures {
		if s.re == nil || !s.re.MatchString(text) {
			continue
		}
		sigHits = append(sigHits, s.ID)
		flag(s.ID, s.Desc, s.Severity)
		if s.Severity > sigRisk {
			sigRisk = s.Severity
		}
		out.Decision = model.Escalate(out.Decision, model.ParseVerdict(s.Action))
		rec.explain("%s (%s)", s.Desc, strings.ToLower(s.Action))
	}
	rec.step(1, "signatures", outcomeOf(out.Decision, len(sigHits) > 0), sigRisk, sigHits,
		fmt.Sprintf("%d of %d signatures matched", len(sigHits), len(p.signatures)))
	if out.Decision == model.Block {
		return finish()
	}

	// Step 2: high-risk PII.
	hits := scan.PII(text)
	var highRisk []string
	for _, h := range hits {
		if scan.IsHighRiskPII(h.Type) {
			highRisk = append(highRisk, h.Type)
		}
	}
	if len(highRisk) > 0 {
		flag(FlagHighRiskPII, "high-risk PII in output: "+strings.Join(highRisk, ", "), riskOutputPII)
		out.Decision = model.Block
		rec.explain("high-risk PII in output: %s", strings.Join(highRisk, ", "))
		rec.step(2, "pii", model.OutcomeBlock, riskOutputPII, highRisk, piiDetail(hits))
		return finish()
	}
	rec.step(2, "pii", model.OutcomePass, 0, nil, piiDetail(hits))

	// Step 3: base64 sweep.
	sweep := p.sweeper.Text(text)
	if len(sweep.Injection) > 0 {
		flag(FlagEncodedInjection, "base64-encoded injection in output", riskOutputInjection)
		out.Decision = model.Block
		rec.explain("base64-encoded injection in output: %s", strings.Join(sweep.Injection, ", "))
		rec.step(3, "base64", model.OutcomeBlock, riskOutputInjection, sweep.Injection,
			fmt.Sprintf("%d payloads decoded", sweep.Decoded))
		return finish()
	}
	rec.step(3, "base64", model.OutcomePass, 0, nil, fmt.Sprintf("%d payloads decoded", sweep.Decoded))

	// Step 4: terse affirmative with accumulated risk.
	accumulated := out.Risk
	if octx.PriorRisk > accumulated {
		accumulated = octx.PriorRisk
	}
	words := len(strings.Fields(text))
	terse := words > 0 && words < terseWordLimit && p.affirmative != nil && p.affirmative.MatchString(text)
	if terse && accumulated > 0 && out.Decision == model.Allow {
		out.Decision = model.Review
		flag(FlagTerseAffirmative, "terse affirmative following risky context", accumulated)
		rec.explain("terse affirmative %q with accumulated risk %d", strings.TrimSpace(text), accumulated)
		rec.step(4, "terse-affirmative", model.OutcomeReview, accumulated, []string{FlagTerseAffirmative},
			fmt.Sprintf("%d words, accumulated risk %d", words, accumulated))
		return finish()
	}
	rec.step(4, "terse-affirmative", outcomeOf(out.Decision, false), 0, nil, fmt.Sprintf("%d words", words))
	return finish()
}

// outcomeOf maps the running decision to a step outcome. A step that did not
// itself fire reports pass even when an earlier step raised review.
func outcomeOf(v model.Verdict, fired bool) model.Outcome {
	if !fired {
		return model.OutcomePass
	}
	return model.OutcomeFor(v)
}

func piiDetail(hits []model.PIIHit) string {
	if len(hits) == 0 {
		return "no PII"
	}
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("%s×%d", h.Type, h.Count)
	}
	return strings.Join(parts, ", ")
}
