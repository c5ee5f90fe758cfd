package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/agentgate/internal/alert"
	"github.com/ppiankov/agentgate/internal/audit"
	"github.com/ppiankov/agentgate/internal/model"
)

// OutputInput is generated text to screen, optionally paired with the
// action that produced it.
type OutputInput struct {
	Text    string
	Context model.OutputContext
	// ActionReceiptID links the screening to an earlier action receipt.
	ActionReceiptID string
	// ActionDecision is the paired action's decision, when known.
	ActionDecision model.Verdict
}

// OutputReceipt is the recorded outcome of one output screening.
type OutputReceipt struct {
	ID              string    `json:"receipt_id"`
	ActionReceiptID string    `json:"action_receipt_id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	// Skipped is set when the paired action was blocked and the text was
	// never screened.
	Skipped bool `json:"skipped,omitempty"`
	model.OutputDecision
}

// ValidateOutput screens in.Text. Text from a blocked action is not
// screened; it is reported blocked with the action's risk.
func (s *Service) ValidateOutput(ctx context.Context, in OutputInput) (*OutputReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := &OutputReceipt{
		ID:              uuid.NewString(),
		ActionReceiptID: in.ActionReceiptID,
		Timestamp:       s.now().UTC(),
	}
	if in.ActionDecision == model.Block {
		r.Skipped = true
		r.OutputDecision = model.OutputDecision{
			Decision:    model.Block,
			Risk:        model.ClampRisk(in.Context.PriorRisk),
			Explanation: "paired action was blocked; output not screened",
		}
		return r, nil
	}

	r.OutputDecision = s.eval.EvaluateOutput(in.Text, in.Context)

	flags := make([]string, len(r.Flags))
	for i, f := range r.Flags {
		flags[i] = f.ID
	}
	if s.audit != nil {
		err := s.audit.Record(audit.Entry{
			Timestamp:  r.Timestamp.Format(audit.TimestampFormat),
			Kind:       audit.KindOutput,
			ReceiptID:  r.ID,
			AgentID:    in.Context.AgentID,
			SessionID:  in.Context.SessionID,
			Decision:   string(r.Decision),
			Risk:       r.Risk,
			Flags:      flags,
			PolicyHash: s.eval.Snapshot().PolicyHash,
		})
		if err != nil {
			s.log.Error("audit write failed", "receipt_id", r.ID, "error", err)
		}
	}

	if r.Decision != model.Allow {
		s.alerts.Dispatch(alert.Event{
			Timestamp:   r.Timestamp.Format(audit.TimestampFormat),
			Kind:        alert.KindOutput,
			ReceiptID:   r.ID,
			AgentID:     in.Context.AgentID,
			SessionID:   in.Context.SessionID,
			Decision:    string(r.Decision),
			Risk:        r.Risk,
			Explanation: r.Explanation,
		})
		s.log.Info("output flagged", "receipt_id", r.ID, "decision", r.Decision, "risk", r.Risk, "flags", flags)
	}

	key := in.Context.AgentID
	if key == "" {
		key = in.Context.SessionID
	}
	if err := s.events.Publish(ctx, key, r); err != nil {
		s.log.Warn("output event not published", "receipt_id", r.ID, "error", err)
	}
	return r, nil
}
