package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/agentgate/internal/model"
	"github.com/ppiankov/agentgate/internal/service"
)

// --- Input/Output types ---

// EvaluateInput defines parameters for the agentgate_evaluate tool.
type EvaluateInput struct {
	Tool       string         `json:"tool" jsonschema:"name of the tool the agent wants to call"`
	Args       map[string]any `json:"args,omitempty" jsonschema:"tool call arguments"`
	Context    map[string]any `json:"context,omitempty" jsonschema:"caller metadata: agent_id, agent_token, trust_level, allowed_tools, session_id"`
	KillSwitch bool           `json:"kill_switch,omitempty" jsonschema:"force a block for this call"`
}

// EvaluateOutput contains the decision for one call.
type EvaluateOutput struct {
	ReceiptID   string            `json:"receipt_id"`
	Decision    string            `json:"decision"`
	Risk        int               `json:"risk"`
	Policy      string            `json:"policy"`
	Explanation string            `json:"explanation"`
	TrustTier   string            `json:"trust_tier"`
	Verified    bool              `json:"verified"`
	ChainAlert  string            `json:"chain_alert,omitempty"`
	Trace       []model.TraceStep `json:"trace"`
}

// ValidateOutputInput defines parameters for the agentgate_validate_output tool.
type ValidateOutputInput struct {
	Text            string `json:"text" jsonschema:"generated text to screen"`
	AgentID         string `json:"agent_id,omitempty" jsonschema:"agent that produced the text"`
	SessionID       string `json:"session_id,omitempty" jsonschema:"session the text belongs to"`
	PriorRisk       int    `json:"prior_risk,omitempty" jsonschema:"risk of the action that produced the text"`
	ActionReceiptID string `json:"action_receipt_id,omitempty" jsonschema:"receipt id of the producing action"`
	ActionDecision  string `json:"action_decision,omitempty" jsonschema:"decision of the producing action (allow/review/block)"`
}

// ValidateOutputOutput contains the screening result.
type ValidateOutputOutput struct {
	ReceiptID   string             `json:"receipt_id"`
	Decision    string             `json:"decision"`
	Risk        int                `json:"risk"`
	Flags       []model.OutputFlag `json:"flags,omitempty"`
	Explanation string             `json:"explanation"`
	Skipped     bool               `json:"skipped,omitempty"`
}

// PendingInput is empty: no parameters needed.
type PendingInput struct{}

// PendingOutput lists all held calls.
type PendingOutput struct {
	Items []PendingItem `json:"items"`
}

// PendingItem describes a single held call.
type PendingItem struct {
	ID          string `json:"id"`
	AgentID     string `json:"agent_id,omitempty"`
	Tool        string `json:"tool"`
	Policy      string `json:"policy"`
	Risk        int    `json:"risk"`
	Explanation string `json:"explanation,omitempty"`
	CreatedAt   string `json:"created_at"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

// ReviewInput defines parameters for the agentgate_review tool.
type ReviewInput struct {
	ID      string `json:"id" jsonschema:"receipt id of the held call"`
	Approve bool   `json:"approve" jsonschema:"true to approve, false to deny"`
	Note    string `json:"note,omitempty" jsonschema:"reason recorded with the decision"`
}

// ReviewOutput confirms the resolution.
type ReviewOutput struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Reviewer string `json:"reviewer"`
}

// --- Handlers ---

func (s *Server) handleEvaluate(ctx context.Context, req *mcpsdk.CallToolRequest, input EvaluateInput) (*mcpsdk.CallToolResult, EvaluateOutput, error) {
	if input.Tool == "" {
		return nil, EvaluateOutput{}, fmt.Errorf("tool is required")
	}

	c := model.ContextFromMap(input.Context)
	if c.AgentID == "" {
		c.AgentID = s.agentID
	}

	r, err := s.svc.Evaluate(ctx, service.EvalInput{
		Tool:       input.Tool,
		Args:       model.ArgsFromMap(input.Args),
		Context:    c,
		KillSwitch: input.KillSwitch,
	})
	if err != nil {
		return nil, EvaluateOutput{}, err
	}

	out := EvaluateOutput{
		ReceiptID:   r.ID,
		Decision:    string(r.Verdict()),
		Risk:        r.Risk,
		Policy:      r.Policy,
		Explanation: r.Explanation,
		TrustTier:   r.TrustTier,
		Verified:    r.Identity.Verified,
		Trace:       r.Trace,
	}
	if r.ChainAlert != nil && r.ChainAlert.Triggered {
		out.ChainAlert = r.ChainAlert.Pattern
	}
	if r.Verdict() != model.Allow {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleValidateOutput(ctx context.Context, req *mcpsdk.CallToolRequest, input ValidateOutputInput) (*mcpsdk.CallToolResult, ValidateOutputOutput, error) {
	in := service.OutputInput{
		Text: input.Text,
		Context: model.OutputContext{
			AgentID:   input.AgentID,
			SessionID: input.SessionID,
			PriorRisk: input.PriorRisk,
		},
		ActionReceiptID: input.ActionReceiptID,
	}
	if in.Context.AgentID == "" {
		in.Context.AgentID = s.agentID
	}
	if input.ActionDecision != "" {
		in.ActionDecision = model.ParseVerdict(input.ActionDecision)
	}

	r, err := s.svc.ValidateOutput(ctx, in)
	if err != nil {
		return nil, ValidateOutputOutput{}, err
	}

	out := ValidateOutputOutput{
		ReceiptID:   r.ID,
		Decision:    string(r.Decision),
		Risk:        r.Risk,
		Flags:       r.Flags,
		Explanation: r.Explanation,
		Skipped:     r.Skipped,
	}
	if r.Decision == model.Block {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handlePending(ctx context.Context, req *mcpsdk.CallToolRequest, input PendingInput) (*mcpsdk.CallToolResult, PendingOutput, error) {
	list, err := s.svc.Pending()
	if err != nil {
		return nil, PendingOutput{}, err
	}

	items := make([]PendingItem, len(list))
	for i, it := range list {
		items[i] = PendingItem{
			ID:          it.ID,
			AgentID:     it.AgentID,
			Tool:        it.Tool,
			Policy:      it.Policy,
			Risk:        it.Risk,
			Explanation: it.Explanation,
			CreatedAt:   it.CreatedAt.Format(time.RFC3339),
		}
		if it.ExpiresAt != nil {
			items[i].ExpiresAt = it.ExpiresAt.Format(time.RFC3339)
		}
	}
	return nil, PendingOutput{Items: items}, nil
}

func (s *Server) handleReview(ctx context.Context, req *mcpsdk.CallToolRequest, input ReviewInput) (*mcpsdk.CallToolResult, ReviewOutput, error) {
	if input.ID == "" {
		return nil, ReviewOutput{}, fmt.Errorf("id is required")
	}
	it, err := s.svc.Resolve(input.ID, input.Approve, s.reviewer, input.Note)
	if err != nil {
		return nil, ReviewOutput{}, err
	}
	s.log.Info("review resolved over mcp", "receipt_id", it.ID, "status", it.Status)
	return nil, ReviewOutput{
		ID:       it.ID,
		Status:   string(it.Status),
		Reviewer: it.Reviewer,
	}, nil
}
