package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	gatev1 "github.com/ppiankov/agentgate/api/agentgate/v1"
	"github.com/ppiankov/agentgate/internal/approval"
	"github.com/ppiankov/agentgate/internal/model"
	"github.com/ppiankov/agentgate/internal/service"
)

// PolicyUnreachable is reported when the gate server could not be asked.
const PolicyUnreachable = "failclosed-unreachable"

// DefaultTimeout bounds each RPC.
const DefaultTimeout = 5 * time.Second

// Client connects to an agentgate gRPC server.
type Client struct {
	conn    *grpc.ClientConn
	client  gatev1.GateServiceClient
	timeout time.Duration
}

// New creates a gRPC client connected to the given address.
// Fail-closed: if the server cannot be reached, Evaluate returns Block.
func New(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gate server: %w", err)
	}
	return &Client{
		conn:    conn,
		client:  gatev1.NewGateServiceClient(conn),
		timeout: DefaultTimeout,
	}, nil
}

// SetTimeout changes the per-call deadline.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	in, err := gatev1.Encode(req)
	if err != nil {
		return err
	}
	out, err := c.client.Call(ctx, method, in)
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return gatev1.Decode(out, resp)
}

// Evaluate asks the remote gate to judge one tool call.
// Fail-closed: any RPC or decode error yields a block receipt, not an error.
func (c *Client) Evaluate(ctx context.Context, in service.EvalInput) (*service.Receipt, error) {
	req := gatev1.EvaluateRequest{
		Tool:       in.Tool,
		Args:       argsMap(in.Args),
		Context:    contextMap(in.Context),
		Policies:   in.Policies,
		KillSwitch: in.KillSwitch,
	}
	var r service.Receipt
	if err := c.call(ctx, gatev1.MethodEvaluate, req, &r); err != nil {
		return unreachable(in, err), nil
	}
	return &r, nil
}

// ValidateOutput asks the remote gate to screen generated text.
// Fail-closed like Evaluate.
func (c *Client) ValidateOutput(ctx context.Context, in service.OutputInput) (*service.OutputReceipt, error) {
	req := gatev1.ValidateOutputRequest{
		Text:            in.Text,
		Context:         in.Context,
		ActionReceiptID: in.ActionReceiptID,
		ActionDecision:  string(in.ActionDecision),
	}
	var r service.OutputReceipt
	if err := c.call(ctx, gatev1.MethodValidateOutput, req, &r); err != nil {
		return &service.OutputReceipt{
			ID:              uuid.NewString(),
			ActionReceiptID: in.ActionReceiptID,
			Timestamp:       time.Now().UTC(),
			OutputDecision: model.OutputDecision{
				Decision:    model.Block,
				Risk:        100,
				Trace:       []model.TraceStep{failStep(err)},
				Explanation: fmt.Sprintf("gate server unreachable: %v", err),
			},
		}, nil
	}
	return &r, nil
}

// SetDegraded toggles degraded mode and returns the previous state.
func (c *Client) SetDegraded(ctx context.Context, on bool) (bool, error) {
	var ack gatev1.Ack
	if err := c.call(ctx, gatev1.MethodSetDegraded, gatev1.SetDegradedRequest{On: on}, &ack); err != nil {
		return false, err
	}
	return ack.Previous, nil
}

// SetKillSwitch toggles the kill switch for agentID, or globally when empty.
func (c *Client) SetKillSwitch(ctx context.Context, agentID string, on bool) error {
	return c.call(ctx, gatev1.MethodSetKillSwitch, gatev1.SetKillSwitchRequest{AgentID: agentID, On: on}, nil)
}

// ListPending returns review items awaiting a decision.
func (c *Client) ListPending(ctx context.Context) ([]approval.Item, error) {
	var resp gatev1.PendingResponse
	if err := c.call(ctx, gatev1.MethodListPending, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Resolve approves or denies a review item.
func (c *Client) Resolve(ctx context.Context, id string, approve bool, reviewer, note string) (*approval.Item, error) {
	var it approval.Item
	req := gatev1.ResolveRequest{ID: id, Approve: approve, Reviewer: reviewer, Note: note}
	if err := c.call(ctx, gatev1.MethodResolve, req, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// Status reports the remote control-plane state.
func (c *Client) Status(ctx context.Context) (service.Status, error) {
	var st service.Status
	err := c.call(ctx, gatev1.MethodStatus, struct{}{}, &st)
	return st, err
}

// Reload asks the server to re-read its configuration files.
func (c *Client) Reload(ctx context.Context) (service.Status, error) {
	var st service.Status
	err := c.call(ctx, gatev1.MethodReload, struct{}{}, &st)
	return st, err
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func unreachable(in service.EvalInput, err error) *service.Receipt {
	return &service.Receipt{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		AgentID:   in.Context.AgentID,
		SessionID: in.Context.SessionID,
		Tool:      in.Tool,
		Decision: model.Decision{
			Decision:    model.Block,
			Risk:        100,
			Policy:      PolicyUnreachable,
			Trace:       []model.TraceStep{failStep(err)},
			Explanation: fmt.Sprintf("gate server unreachable: %v", err),
			TrustTier:   "untrusted",
		},
	}
}

func failStep(err error) model.TraceStep {
	return model.TraceStep{
		Layer:   0,
		Key:     PolicyUnreachable,
		Outcome: model.OutcomeBlock,
		Risk:    100,
		Detail:  err.Error(),
	}
}

func argsMap(a model.Args) map[string]any {
	if len(a) == 0 {
		return nil
	}
	m := make(map[string]any, len(a))
	for k, v := range a {
		m[k] = v.ToAny()
	}
	return m
}

// contextMap is the inverse of model.ContextFromMap.
func contextMap(c model.Context) map[string]any {
	m := make(map[string]any, len(c.Extra)+5)
	for k, v := range c.Extra {
		m[k] = v.ToAny()
	}
	if c.AgentID != "" {
		m["agent_id"] = c.AgentID
	}
	if c.AgentToken != "" {
		m["agent_token"] = c.AgentToken
	}
	if c.TrustLevel != "" {
		m["trust_level"] = c.TrustLevel
	}
	if c.SessionID != "" {
		m["session_id"] = c.SessionID
	}
	if len(c.AllowedTools) > 0 {
		tools := make([]any, len(c.AllowedTools))
		for i, t := range c.AllowedTools {
			tools[i] = t
		}
		m["allowed_tools"] = tools
	}
	return m
}
