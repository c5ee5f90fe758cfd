package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	gatemcp "github.com/ppiankov/agentgate/internal/mcp"
)

var (
	mcpAgentID  string
	mcpReviewer string
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpAgentID, "agent", "", "Agent id applied to calls that carry none")
	mcpCmd.Flags().StringVar(&mcpReviewer, "reviewer", "mcp", "Reviewer name recorded on reviews resolved over MCP")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long: "Runs agentgate as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes agentgate_evaluate, agentgate_validate_output, agentgate_pending\n" +
		"and agentgate_review.",
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := buildService(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	srv := gatemcp.New(gatemcp.Config{
		AgentID:  mcpAgentID,
		Reviewer: mcpReviewer,
		Version:  version,
		Logger:   log,
	}, svc)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down MCP server")
		cancel()
	}()

	log.Info("agentgate MCP server running on stdio")
	return srv.Run(ctx)
}
