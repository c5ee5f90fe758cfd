package alert

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func init() {
	retryDelay = 10 * time.Millisecond
}

func countingServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &n
}

func TestDispatchMatchesDecision(t *testing.T) {
	srv, n := countingServer(t, http.StatusOK)
	d := NewDispatcher([]Config{{URL: srv.URL, Events: []string{"block"}}}, nil)

	d.Dispatch(Event{Kind: KindAction, Decision: "block", Tool: "shell", Risk: 90})
	d.Wait()

	if n.Load() != 1 {
		t.Errorf("expected 1 call, got %d", n.Load())
	}
}

func TestDispatchSkipsNonMatching(t *testing.T) {
	srv, n := countingServer(t, http.StatusOK)
	d := NewDispatcher([]Config{{URL: srv.URL, Events: []string{"block"}}}, nil)

	d.Dispatch(Event{Kind: KindAction, Decision: "allow", Tool: "get_weather"})
	d.Wait()

	if n.Load() != 0 {
		t.Errorf("expected 0 calls, got %d", n.Load())
	}
}

func TestDispatchMatchesKind(t *testing.T) {
	srv, n := countingServer(t, http.StatusOK)
	d := NewDispatcher([]Config{{URL: srv.URL, Events: []string{KindDegraded}}}, nil)

	d.Dispatch(Event{Kind: KindDegraded, Decision: "block", Risk: 100, Policy: "degraded-mode"})
	d.Wait()

	if n.Load() != 1 {
		t.Errorf("expected 1 call for degraded kind, got %d", n.Load())
	}
}

func TestDispatchMultipleWebhooks(t *testing.T) {
	srv1, n1 := countingServer(t, http.StatusOK)
	srv2, n2 := countingServer(t, http.StatusOK)
	d := NewDispatcher([]Config{
		{URL: srv1.URL, Events: []string{"block"}},
		{URL: srv2.URL, Events: []string{"block", "review"}},
	}, nil)

	d.Dispatch(Event{Decision: "review"})
	d.Dispatch(Event{Decision: "block"})
	d.Wait()

	if n1.Load() != 1 || n2.Load() != 2 {
		t.Errorf("expected 1 and 2 calls, got %d and %d", n1.Load(), n2.Load())
	}
}

func TestNilDispatcher(t *testing.T) {
	if d := NewDispatcher(nil, nil); d != nil {
		t.Fatal("expected nil dispatcher for empty config")
	}
	var d *Dispatcher
	d.Dispatch(Event{Decision: "block"})
	d.Wait()
}

func TestRetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := Send(context.Background(), Config{URL: srv.URL}, Event{Decision: "block"}); err != nil {
		t.Errorf("expected success after retries, got %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestGiveUpAfterMaxAttempts(t *testing.T) {
	srv, n := countingServer(t, http.StatusInternalServerError)
	if err := Send(context.Background(), Config{URL: srv.URL}, Event{Decision: "block"}); err == nil {
		t.Error("expected error after persistent 5xx")
	}
	if n.Load() != maxAttempts {
		t.Errorf("expected %d attempts, got %d", maxAttempts, n.Load())
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	srv, n := countingServer(t, http.StatusBadRequest)
	if err := Send(context.Background(), Config{URL: srv.URL}, Event{Decision: "block"}); err == nil {
		t.Error("expected error on 400")
	}
	if n.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", n.Load())
	}
}

func TestHeadersForwarded(t *testing.T) {
	var got string
	var body Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := Config{URL: srv.URL, Headers: map[string]string{"Authorization": "Bearer t0k"}}
	if err := Send(context.Background(), cfg, Event{ReceiptID: "r-1", Decision: "review"}); err != nil {
		t.Fatal(err)
	}
	if got != "Bearer t0k" {
		t.Errorf("expected auth header, got %q", got)
	}
	if body.ReceiptID != "r-1" {
		t.Errorf("expected generic JSON body, got %+v", body)
	}
}

func TestFormatSlack(t *testing.T) {
	data, err := FormatPayload("slack", Event{Decision: "block", Tool: "shell", Risk: 95, Policy: "injection-firewall"})
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("slack payload is not JSON: %v", err)
	}
	blocks, ok := parsed["blocks"].([]any)
	if !ok || len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %v", parsed["blocks"])
	}
	header := blocks[0].(map[string]any)
	text := header["text"].(map[string]any)
	if text["text"] != "agentgate: block" {
		t.Errorf("unexpected header %v", text["text"])
	}
	fields := blocks[1].(map[string]any)["fields"].([]any)
	if len(fields) != 4 {
		t.Errorf("expected 4 fields, got %d", len(fields))
	}
}

func TestFormatPagerDutySeverity(t *testing.T) {
	tests := []struct {
		risk int
		want string
	}{
		{100, "critical"},
		{75, "error"},
		{45, "warning"},
		{10, "info"},
	}
	for _, tt := range tests {
		data, err := FormatPayload("pagerduty", Event{Decision: "block", Risk: tt.risk})
		if err != nil {
			t.Fatal(err)
		}
		var parsed map[string]any
		json.Unmarshal(data, &parsed)
		payload := parsed["payload"].(map[string]any)
		if payload["severity"] != tt.want {
			t.Errorf("risk %d: expected %s, got %v", tt.risk, tt.want, payload["severity"])
		}
		if payload["source"] != "agentgate" {
			t.Errorf("unexpected source %v", payload["source"])
		}
	}
}
