package audit

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatTimeline(t *testing.T) {
	res, err := Replay(writeReplayLog(t), Filter{SessionID: "s-1"})
	if err != nil {
		t.Fatal(err)
	}
	out := FormatTimeline(res)

	for _, want := range []string{
		"Receipts 2026-01-15 14:00:00 .. 14:00:08 UTC",
		"BLOCK",
		"<output>",
		"Summary: 1 allow, 1 review, 2 block | Max risk: 100",
		"Top policy: shell-dangerous (2)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestFormatTimelineEmpty(t *testing.T) {
	if out := FormatTimeline(&ReplayResult{}); out != "No receipts found.\n" {
		t.Errorf("unexpected empty output %q", out)
	}
}

func TestFormatSummaryZero(t *testing.T) {
	if got := FormatSummary(Summary{}); got != "Summary: 0 receipts | Max risk: 0\n" {
		t.Errorf("unexpected %q", got)
	}
}

func TestFormatJSON(t *testing.T) {
	res, err := Replay(writeReplayLog(t), Filter{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := FormatJSON(res)
	if err != nil {
		t.Fatal(err)
	}
	var back ReplayResult
	if err := json.Unmarshal([]byte(out), &back); err != nil {
		t.Fatal(err)
	}
	if back.Summary.Total != 5 || len(back.Entries) != 5 {
		t.Errorf("unexpected decoded result %+v", back.Summary)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefghij", 8); got != "abcde..." {
		t.Errorf("got %q", got)
	}
	if got := truncate("abc", 8); got != "abc" {
		t.Errorf("got %q", got)
	}
}
