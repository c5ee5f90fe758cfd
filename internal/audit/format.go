package audit

import (
	"encoding/json"
	"fmt"
	"strings"
)

const rule = "------------------------------------------------------------------------"

// FormatTimeline renders a replay as a text table followed by a summary line.
func FormatTimeline(r *ReplayResult) string {
	if len(r.Entries) == 0 {
		return "No receipts found.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Receipts %s .. %s UTC\n", clock(r.Summary.FirstTimestamp, true), clock(r.Summary.LastTimestamp, false))
	b.WriteString(rule + "\n")
	for _, e := range r.Entries {
		tool := e.Tool
		if e.Kind == KindOutput {
			tool = "<output>"
		}
		fmt.Fprintf(&b, "%-9s %-7s %3d  %-16s %-18s %s\n",
			clock(e.Timestamp, false),
			strings.ToUpper(e.Decision),
			e.Risk,
			truncate(e.AgentID, 16),
			truncate(tool, 18),
			truncate(e.Policy, 40))
	}
	b.WriteString(rule + "\n")
	b.WriteString(FormatSummary(r.Summary))
	return b.String()
}

// FormatSummary renders counts on one line, omitting zero buckets.
func FormatSummary(s Summary) string {
	var parts []string
	for _, c := range []struct {
		n    int
		name string
	}{{s.AllowCount, "allow"}, {s.ReviewCount, "review"}, {s.BlockCount, "block"}} {
		if c.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c.n, c.name))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "0 receipts")
	}
	line := fmt.Sprintf("Summary: %s | Max risk: %d", strings.Join(parts, ", "), s.MaxRisk)
	if len(s.TopPolicies) > 0 {
		line += fmt.Sprintf(" | Top policy: %s (%d)", s.TopPolicies[0].Policy, s.TopPolicies[0].Count)
	}
	return line + "\n"
}

// FormatJSON renders a replay as indented JSON.
func FormatJSON(r *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func clock(ts string, withDate bool) string {
	t := Entry{Timestamp: ts}.Time()
	if t.IsZero() {
		return ts
	}
	if withDate {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format("15:04:05")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
