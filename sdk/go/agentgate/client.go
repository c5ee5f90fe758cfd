package agentgate

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ppiankov/agentgate/internal/approval"
	"github.com/ppiankov/agentgate/internal/audit"
	"github.com/ppiankov/agentgate/internal/client"
	"github.com/ppiankov/agentgate/internal/model"
	"github.com/ppiankov/agentgate/internal/service"
)

// gate is satisfied by the in-process service and the remote client.
type gate interface {
	Evaluate(ctx context.Context, in service.EvalInput) (*service.Receipt, error)
	ValidateOutput(ctx context.Context, in service.OutputInput) (*service.OutputReceipt, error)
	Close() error
}

// Client guards tool calls. Safe for concurrent use.
type Client struct {
	cfg  clientConfig
	gate gate
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	var cfg clientConfig
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.remote != "" {
		rc, err := client.New(cfg.remote)
		if err != nil {
			return nil, fmt.Errorf("agentgate: %w", err)
		}
		rc.SetTimeout(cfg.timeout)
		return &Client{cfg: cfg, gate: rc}, nil
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sopts := service.Options{
		Paths: service.Paths{
			Policy:   cfg.policyPath,
			Registry: cfg.registryPath,
			Tables:   cfg.tablesPath,
		},
		Logger: logger,
	}
	if cfg.auditPath != "" {
		log, err := audit.Open(cfg.auditPath)
		if err != nil {
			return nil, fmt.Errorf("agentgate: %w", err)
		}
		sopts.Audit = log
	}
	if cfg.reviewDir != "" {
		store, err := approval.NewStore(cfg.reviewDir, 0)
		if err != nil {
			return nil, fmt.Errorf("agentgate: failed to create review queue: %w", err)
		}
		sopts.Reviews = store
	}

	svc, err := service.New(sopts)
	if err != nil {
		if sopts.Audit != nil {
			sopts.Audit.Close()
		}
		return nil, fmt.Errorf("agentgate: %w", err)
	}
	return &Client{cfg: cfg, gate: svc}, nil
}

// Check evaluates a call without executing anything. The decision is still
// recorded.
func (c *Client) Check(ctx context.Context, call Call) (*Receipt, error) {
	return c.check(ctx, call, wrapConfig{})
}

func (c *Client) check(ctx context.Context, call Call, w wrapConfig) (*Receipt, error) {
	return c.gate.Evaluate(ctx, service.EvalInput{
		Tool: call.Tool,
		Args: model.ArgsFromMap(call.Args),
		Context: model.Context{
			AgentID:      c.cfg.agentID,
			AgentToken:   c.cfg.agentToken,
			SessionID:    c.cfg.sessionID,
			TrustLevel:   w.trustLevel,
			AllowedTools: w.allowedTools,
		},
	})
}

// Screen validates text produced by the call behind receipt. A nil receipt
// screens the text on its own.
func (c *Client) Screen(ctx context.Context, text string, receipt *Receipt) (*OutputReceipt, error) {
	in := service.OutputInput{
		Text: text,
		Context: model.OutputContext{
			AgentID:   c.cfg.agentID,
			SessionID: c.cfg.sessionID,
		},
	}
	if receipt != nil {
		in.ActionReceiptID = receipt.ID
		in.ActionDecision = receipt.Verdict()
		in.Context.PriorRisk = receipt.Risk
	}
	return c.gate.ValidateOutput(ctx, in)
}

// Close releases the pipeline or the server connection.
func (c *Client) Close() error {
	return c.gate.Close()
}
