package agentgatev1

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ppiankov/agentgate/internal/approval"
	"github.com/ppiankov/agentgate/internal/model"
	"github.com/ppiankov/agentgate/internal/policy"
)

// EvaluateRequest proposes one tool call. The response is a receipt.
type EvaluateRequest struct {
	Tool       string          `json:"tool"`
	Args       map[string]any  `json:"args,omitempty"`
	Context    map[string]any  `json:"context,omitempty"`
	Policies   []policy.Policy `json:"policies,omitempty"`
	KillSwitch bool            `json:"kill_switch,omitempty"`
}

// ValidateOutputRequest submits generated text for screening.
type ValidateOutputRequest struct {
	Text            string              `json:"text"`
	Context         model.OutputContext `json:"context"`
	ActionReceiptID string              `json:"action_receipt_id,omitempty"`
	// ActionDecision is allow, review or block in any case.
	ActionDecision string `json:"action_decision,omitempty"`
}

// SetDegradedRequest toggles degraded mode.
type SetDegradedRequest struct {
	On bool `json:"on"`
}

// SetKillSwitchRequest toggles a kill switch; an empty agent id is global.
type SetKillSwitchRequest struct {
	AgentID string `json:"agent_id,omitempty"`
	On      bool   `json:"on"`
}

// ResolveRequest approves or denies a pending review item.
type ResolveRequest struct {
	ID       string `json:"id"`
	Approve  bool   `json:"approve"`
	Reviewer string `json:"reviewer,omitempty"`
	Note     string `json:"note,omitempty"`
}

// PendingResponse lists review items awaiting a decision.
type PendingResponse struct {
	Items []approval.Item `json:"items"`
}

// Ack acknowledges a control-plane change.
type Ack struct {
	OK       bool `json:"ok"`
	Previous bool `json:"previous"`
}

// Encode converts any JSON-marshalable value to a Struct.
func Encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encode: message must be a JSON object: %w", err)
	}
	return structpb.NewStruct(m)
}

// Decode fills v from a Struct.
func Decode(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
