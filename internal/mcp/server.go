package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/agentgate/internal/service"
)

// Config holds MCP server configuration.
type Config struct {
	// AgentID is attached to calls that carry no agent_id of their own.
	AgentID string
	// Reviewer is recorded on reviews resolved through this server.
	Reviewer string
	Version  string
	Logger   *slog.Logger
}

// Server exposes the gate to MCP clients over stdio.
type Server struct {
	mcpServer *mcpsdk.Server
	svc       *service.Service
	agentID   string
	reviewer  string
	log       *slog.Logger
}

// New creates an MCP server backed by svc.
func New(cfg Config, svc *service.Service) *Server {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Reviewer == "" {
		cfg.Reviewer = "mcp"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		svc:      svc,
		agentID:  cfg.AgentID,
		reviewer: cfg.Reviewer,
		log:      cfg.Logger,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "agentgate",
			Version: cfg.Version,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close releases the underlying service.
func (s *Server) Close() error {
	return s.svc.Close()
}

// registerTools adds all agentgate tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "agentgate_evaluate",
		Description: "Ask the gate whether a proposed tool call may run. Returns allow, review or block with a risk score and the layer trace. Blocked and held calls return an error result.",
	}, s.handleEvaluate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "agentgate_validate_output",
		Description: "Screen generated text for leaked secrets, PII, dangerous commands and exfiltration links before it is shown or executed.",
	}, s.handleValidateOutput)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "agentgate_pending",
		Description: "List tool calls held for human review.",
	}, s.handlePending)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "agentgate_review",
		Description: "Approve or deny a tool call held for review, by receipt id.",
	}, s.handleReview)
}
