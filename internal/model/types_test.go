package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEscalateNeverDowngrades(t *testing.T) {
	verdicts := []Verdict{Allow, Review, Block}
	for _, a := range verdicts {
		for _, b := range verdicts {
			got := Escalate(a, b)
			if got.Rank() < a.Rank() || got.Rank() < b.Rank() {
				t.Errorf("Escalate(%s, %s) = %s downgrades", a, b, got)
			}
		}
	}
}

func TestParseVerdictFailsClosed(t *testing.T) {
	tests := map[string]Verdict{
		"allow":   Allow,
		" Review": Review,
		"BLOCK":   Block,
		"deny":    Block,
		"":        Block,
	}
	for in, want := range tests {
		if got := ParseVerdict(in); got != want {
			t.Errorf("ParseVerdict(%q) = %s, want %s", in, got, want)
		}
	}
	if Verdict("bogus").Rank() != Block.Rank() {
		t.Error("unknown verdict must rank as block")
	}
}

func TestContextFromMap(t *testing.T) {
	c := ContextFromMap(map[string]any{
		"agent_id":      "ops-assistant",
		"agent_token":   "ops-assistant:fp",
		"trust_level":   "external",
		"session_id":    "s-1",
		"allowed_tools": []any{"http_request", 7, "shell"},
		"purpose":       "billing",
		"trace":         42,
	})

	if c.AgentID != "ops-assistant" || c.AgentToken != "ops-assistant:fp" || c.TrustLevel != "external" || c.SessionID != "s-1" {
		t.Errorf("known keys not mapped: %+v", c)
	}
	if len(c.AllowedTools) != 2 || c.AllowedTools[1] != "shell" {
		t.Errorf("expected non-string tools dropped, got %v", c.AllowedTools)
	}
	if s, ok := c.Extra["purpose"].Str(); !ok || s != "billing" {
		t.Errorf("expected purpose in extra, got %+v", c.Extra)
	}
	if n, ok := c.Extra["trace"].Num(); !ok || n != 42 {
		t.Errorf("expected numeric extra, got %+v", c.Extra["trace"])
	}
}

func TestContextFromMapWrongTypes(t *testing.T) {
	c := ContextFromMap(map[string]any{"agent_id": 12, "allowed_tools": "shell"})
	if c.AgentID != "" {
		t.Errorf("non-string agent_id must be ignored, got %q", c.AgentID)
	}
	if len(c.AllowedTools) != 0 {
		t.Errorf("non-list allowed_tools must be ignored, got %v", c.AllowedTools)
	}
}

func TestHistoryKey(t *testing.T) {
	if k := (Context{AgentID: "a", SessionID: "s"}).HistoryKey(); k != "a" {
		t.Errorf("expected agent id, got %s", k)
	}
	if k := (Context{SessionID: "s"}).HistoryKey(); k != "s" {
		t.Errorf("expected session id, got %s", k)
	}
	if k := (Context{}).HistoryKey(); k != "anonymous" {
		t.Errorf("expected anonymous, got %s", k)
	}
}

func TestCapHistory(t *testing.T) {
	h := make([]HistoryEntry, MaxHistory+5)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range h {
		h[i] = HistoryEntry{Tool: "t", Timestamp: base.Add(time.Duration(i) * time.Second)}
	}
	got := CapHistory(h)
	if len(got) != MaxHistory {
		t.Fatalf("expected %d entries, got %d", MaxHistory, len(got))
	}
	if !got[0].Timestamp.Equal(h[5].Timestamp) {
		t.Error("expected the oldest entries to be dropped")
	}
	if short := CapHistory(h[:3]); len(short) != 3 {
		t.Errorf("short history must be unchanged, got %d", len(short))
	}
}

func TestClampRisk(t *testing.T) {
	for in, want := range map[int]int{-5: 0, 0: 0, 55: 55, 100: 100, 140: 100} {
		if got := ClampRisk(in); got != want {
			t.Errorf("ClampRisk(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestOutcomeFor(t *testing.T) {
	if OutcomeFor(Allow) != OutcomePass || OutcomeFor(Review) != OutcomeReview || OutcomeFor(Block) != OutcomeBlock {
		t.Error("unexpected outcome mapping")
	}
}

func TestArgsText(t *testing.T) {
	args := ArgsFromMap(map[string]any{
		"url":   "https://example.com",
		"to":    []any{"a@x.com", "b@x.com"},
		"count": 3,
		"opts":  map[string]any{"dry": true},
	})
	want := "count=3 opts={dry=true} to=[a@x.com b@x.com] url=https://example.com"
	if got := args.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
	if args["to"].Len() != 2 {
		t.Errorf("expected list of 2, got %d", args["to"].Len())
	}
}

func TestValueWalkVisitsNestedStrings(t *testing.T) {
	v := FromAny(map[string]any{
		"b": []any{"x", map[string]any{"c": "y"}},
		"a": "z",
		"n": 1.5,
	})
	var seen []string
	v.Walk(func(s string) { seen = append(seen, s) })
	if len(seen) != 3 || seen[0] != "z" || seen[1] != "x" || seen[2] != "y" {
		t.Errorf("unexpected walk order %v", seen)
	}
}

func TestValueJSON(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`{"k":[1,"two",null,false]}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.Kind() != KindMap {
		t.Fatalf("expected map, got %s", v.Kind())
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"k":[1,"two",null,false]}` {
		t.Errorf("unexpected encoding %s", out)
	}
}
