package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/agentgate/internal/alert"
	"github.com/ppiankov/agentgate/internal/approval"
	"github.com/ppiankov/agentgate/internal/audit"
	"github.com/ppiankov/agentgate/internal/gate"
	"github.com/ppiankov/agentgate/internal/model"
	"github.com/ppiankov/agentgate/internal/policy"
	"github.com/ppiankov/agentgate/internal/trust"
)

// PolicyHistoryUnavailable is reported when the caller's history could not
// be loaded. Velocity and chain checks cannot run without it, so the call
// fails closed.
const PolicyHistoryUnavailable = "history-unavailable"

// EvalInput is one proposed tool call.
type EvalInput struct {
	Tool    string
	Args    model.Args
	Context model.Context
	// Policies are caller-supplied extras merged over the resident set.
	Policies []policy.Policy
	// KillSwitch forces a block in addition to the operator switches.
	KillSwitch bool
}

// Receipt is the recorded outcome of one evaluation.
type Receipt struct {
	ID         string    `json:"receipt_id"`
	Timestamp  time.Time `json:"timestamp"`
	AgentID    string    `json:"agent_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	Tool       string    `json:"tool"`
	PolicyHash string    `json:"policy_hash"`
	model.Decision
}

// Verdict returns the receipt's decision.
func (r *Receipt) Verdict() model.Verdict { return r.Decision.Decision }

// Evaluate loads the caller's history, runs the pipeline, and records the
// outcome. The returned error is non-nil only when ctx is done; every other
// failure is logged and reflected in the decision.
func (s *Service) Evaluate(ctx context.Context, in EvalInput) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := model.ActionRequest{Tool: in.Tool, Args: in.Args, Context: in.Context}
	key := in.Context.HistoryKey()
	snap := s.eval.Snapshot()

	r := &Receipt{
		ID:         uuid.NewString(),
		Timestamp:  s.now().UTC(),
		AgentID:    in.Context.AgentID,
		SessionID:  in.Context.SessionID,
		Tool:       in.Tool,
		PolicyHash: snap.PolicyHash,
	}

	hist, err := s.history.Recent(ctx, key)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		s.log.Error("history unavailable, failing closed", "key", key, "error", err)
		r.Decision = historyUnavailable(in.Context, err)
	} else {
		kill := in.KillSwitch || s.kill.Active(in.Context.AgentID)
		r.Decision = s.eval.Evaluate(req, in.Policies, kill, model.CapHistory(hist))
	}

	s.record(ctx, key, r)
	return r, nil
}

func historyUnavailable(c model.Context, err error) model.Decision {
	return model.Decision{
		Decision: model.Block,
		Risk:     100,
		Policy:   PolicyHistoryUnavailable,
		Trace: []model.TraceStep{{
			Layer:   0,
			Key:     "history",
			Outcome: model.OutcomeBlock,
			Risk:    100,
			Matched: []string{PolicyHistoryUnavailable},
			Detail:  fmt.Sprintf("history load failed: %v", err),
		}},
		Explanation: "call history unavailable; blocking until it recovers",
		TrustTier:   trust.Resolve(c.TrustLevel).Name,
	}
}

// record runs the after-decision side effects. History is appended only
// after evaluation has returned.
func (s *Service) record(ctx context.Context, key string, r *Receipt) {
	entry := model.HistoryEntry{
		Tool:      r.Tool,
		Policy:    r.Policy,
		Decision:  r.Verdict(),
		Risk:      r.Risk,
		Timestamp: r.Timestamp,
	}
	if err := s.history.Append(ctx, key, entry); err != nil {
		s.log.Error("history append failed", "key", key, "receipt_id", r.ID, "error", err)
	}

	if s.audit != nil {
		err := s.audit.Record(audit.Entry{
			Timestamp:  r.Timestamp.Format(audit.TimestampFormat),
			Kind:       audit.KindAction,
			ReceiptID:  r.ID,
			AgentID:    r.AgentID,
			SessionID:  r.SessionID,
			Tool:       r.Tool,
			Decision:   string(r.Verdict()),
			Risk:       r.Risk,
			Policy:     r.Policy,
			TrustTier:  r.TrustTier,
			PolicyHash: r.PolicyHash,
		})
		if err != nil {
			s.log.Error("audit write failed", "receipt_id", r.ID, "error", err)
		}
	}

	if r.Verdict() == model.Review && s.reviews != nil {
		err := s.reviews.Enqueue(approval.Item{
			ID:          r.ID,
			AgentID:     r.AgentID,
			SessionID:   r.SessionID,
			Tool:        r.Tool,
			Policy:      r.Policy,
			Risk:        r.Risk,
			Explanation: r.Explanation,
		})
		if err != nil {
			s.log.Error("review enqueue failed", "receipt_id", r.ID, "error", err)
		}
	}

	kind := alert.KindAction
	if r.Policy == gate.PolicyDegraded {
		kind = alert.KindDegraded
	}
	s.alerts.Dispatch(alert.Event{
		Timestamp:   r.Timestamp.Format(audit.TimestampFormat),
		Kind:        kind,
		ReceiptID:   r.ID,
		AgentID:     r.AgentID,
		SessionID:   r.SessionID,
		Tool:        r.Tool,
		Decision:    string(r.Verdict()),
		Risk:        r.Risk,
		Policy:      r.Policy,
		Explanation: r.Explanation,
	})

	if err := s.events.Publish(ctx, key, r); err != nil {
		s.log.Warn("decision event not published", "receipt_id", r.ID, "error", err)
	}

	level := s.log.Debug
	if r.Verdict() != model.Allow {
		level = s.log.Info
	}
	level("decision",
		"receipt_id", r.ID,
		"agent_id", r.AgentID,
		"tool", r.Tool,
		"decision", r.Verdict(),
		"risk", r.Risk,
		"policy", r.Policy)
}
