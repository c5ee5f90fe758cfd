package scenario

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders run results as a gate check report. Passing files get
// one line; each failing case lists the verdict pair, the risk and the
// layer that decided it, followed by the gate's explanation.
func FormatText(results []*RunResult) string {
	var b strings.Builder

	cases, passed, failedFiles := 0, 0, 0
	for _, r := range results {
		cases += r.Total
		passed += r.Passed

		mark := "ok  "
		if r.Failed > 0 {
			mark = "FAIL"
			failedFiles++
		}
		fmt.Fprintf(&b, "%s %s  %d/%d", mark, r.Name, r.Passed, r.Total)
		if r.File != "" && r.File != r.Name {
			fmt.Fprintf(&b, "  (%s)", r.File)
		}
		b.WriteString("\n")

		for _, c := range r.Cases {
			if c.Passed {
				continue
			}
			fmt.Fprintf(&b, "     #%-3d %-16s want %-6s got %-6s risk %3d", c.Index, c.Tool, c.Expected, c.Actual, c.Risk)
			if c.Layer != "" {
				fmt.Fprintf(&b, "  at %s", c.Layer)
			}
			if c.Policy != "" {
				fmt.Fprintf(&b, "  [%s]", c.Policy)
			}
			b.WriteString("\n")
			if c.Reason != "" {
				fmt.Fprintf(&b, "          %s\n", c.Reason)
			}
		}
	}

	fmt.Fprintf(&b, "\n%d/%d cases held", passed, cases)
	if failedFiles > 0 {
		fmt.Fprintf(&b, "; %d of %d scenario files failed", failedFiles, len(results))
	}
	b.WriteString("\n")
	return b.String()
}

// FormatJSON renders run results as JSON.
func FormatJSON(results []*RunResult) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	return string(data), nil
}
