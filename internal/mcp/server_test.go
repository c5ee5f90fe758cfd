package mcp

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/agentgate/internal/approval"
	"github.com/ppiankov/agentgate/internal/logging"
	"github.com/ppiankov/agentgate/internal/service"
)

var verified = map[string]any{"agent_id": "ops-assistant", "agent_token": "ops-assistant:fp-7c1e9a"}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	dir := t.TempDir()
	reviews, err := approval.NewStore(filepath.Join(dir, "pending"), 0)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := service.New(service.Options{
		Paths: service.Paths{
			Policy:   filepath.Join(dir, "policies.yaml"),
			Registry: filepath.Join(dir, "agents.yaml"),
			Tables:   filepath.Join(dir, "tables.yaml"),
		},
		Reviews: reviews,
		Logger:  logging.Discard(),
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	cfg.Logger = logging.Discard()
	s := New(cfg, svc)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEvaluateAllowed(t *testing.T) {
	s := newTestServer(t, Config{})
	result, out, err := s.handleEvaluate(context.Background(), &mcpsdk.CallToolRequest{}, EvaluateInput{
		Tool:    "get_weather",
		Args:    map[string]any{"city": "Oslo"},
		Context: verified,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatal("expected success, got error result")
	}
	if out.Decision != "allow" || !out.Verified || out.ReceiptID == "" {
		t.Fatalf("unexpected output %+v", out)
	}
	if len(out.Trace) == 0 {
		t.Error("expected trace steps")
	}
}

func TestEvaluateBlocked(t *testing.T) {
	s := newTestServer(t, Config{})
	result, out, err := s.handleEvaluate(context.Background(), &mcpsdk.CallToolRequest{}, EvaluateInput{
		Tool: "shell",
		Args: map[string]any{"cmd": "rm -rf / && dd if=/dev/zero of=/dev/sda"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected IsError result for blocked call")
	}
	if out.Decision != "block" || out.Risk != 90 {
		t.Fatalf("expected block/90, got %s/%d", out.Decision, out.Risk)
	}
}

func TestEvaluateRequiresTool(t *testing.T) {
	s := newTestServer(t, Config{})
	if _, _, err := s.handleEvaluate(context.Background(), &mcpsdk.CallToolRequest{}, EvaluateInput{}); err == nil {
		t.Error("expected error for missing tool")
	}
}

func TestDefaultAgentID(t *testing.T) {
	s := newTestServer(t, Config{AgentID: "ops-assistant"})
	_, out, err := s.handleEvaluate(context.Background(), &mcpsdk.CallToolRequest{}, EvaluateInput{
		Tool:    "get_weather",
		Context: map[string]any{"agent_token": "ops-assistant:fp-7c1e9a"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Verified {
		t.Errorf("configured agent id should be applied, got %+v", out)
	}
}

func TestReviewFlow(t *testing.T) {
	s := newTestServer(t, Config{Reviewer: "oncall"})
	ctx := context.Background()

	result, held, err := s.handleEvaluate(ctx, &mcpsdk.CallToolRequest{}, EvaluateInput{
		Tool:    "http_request",
		Args:    map[string]any{"url": "https://example.com/data"},
		Context: verified,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result == nil || !result.IsError || held.Decision != "review" {
		t.Fatalf("expected held call, got %+v", held)
	}

	_, pending, err := s.handlePending(ctx, &mcpsdk.CallToolRequest{}, PendingInput{})
	if err != nil {
		t.Fatal(err)
	}
	if len(pending.Items) != 1 || pending.Items[0].ID != held.ReceiptID {
		t.Fatalf("expected one pending item, got %+v", pending.Items)
	}

	_, out, err := s.handleReview(ctx, &mcpsdk.CallToolRequest{}, ReviewInput{ID: held.ReceiptID, Approve: true, Note: "ok"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != "approved" || out.Reviewer != "oncall" {
		t.Errorf("unexpected review output %+v", out)
	}

	if _, _, err := s.handleReview(ctx, &mcpsdk.CallToolRequest{}, ReviewInput{ID: held.ReceiptID}); err == nil {
		t.Error("second resolution should fail")
	}
	if _, _, err := s.handleReview(ctx, &mcpsdk.CallToolRequest{}, ReviewInput{}); err == nil {
		t.Error("missing id should fail")
	}
}

func TestValidateOutputTool(t *testing.T) {
	s := newTestServer(t, Config{})
	ctx := context.Background()

	result, out, err := s.handleValidateOutput(ctx, &mcpsdk.CallToolRequest{}, ValidateOutputInput{
		Text: "Sure, run this: rm -rf / --no-preserve-root",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result == nil || !result.IsError || out.Decision != "block" {
		t.Fatalf("expected blocked output, got %+v", out)
	}
	if len(out.Flags) == 0 {
		t.Error("expected flags")
	}

	_, clean, err := s.handleValidateOutput(ctx, &mcpsdk.CallToolRequest{}, ValidateOutputInput{
		Text: "The weather in Oslo is mild today with light rain.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if clean.Decision != "allow" {
		t.Errorf("expected allow, got %s: %s", clean.Decision, clean.Explanation)
	}
}

func TestValidateOutputAfterBlockedAction(t *testing.T) {
	s := newTestServer(t, Config{})
	_, out, err := s.handleValidateOutput(context.Background(), &mcpsdk.CallToolRequest{}, ValidateOutputInput{
		Text:           "anything",
		PriorRisk:      95,
		ActionDecision: "BLOCK",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Skipped || out.Risk != 95 {
		t.Errorf("expected skipped screening at prior risk, got %+v", out)
	}
	if !strings.Contains(out.Explanation, "blocked") {
		t.Errorf("unexpected explanation %q", out.Explanation)
	}
}
