package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/agentgate/internal/approval"
	"github.com/ppiankov/agentgate/internal/model"
	"github.com/ppiankov/agentgate/internal/service"
)

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(out))
	return nil
}

func formatTrace(w io.Writer, trace []model.TraceStep) {
	for _, st := range trace {
		matched := ""
		if len(st.Matched) > 0 {
			matched = " [" + strings.Join(st.Matched, ", ") + "]"
		}
		fmt.Fprintf(w, "  L%d %-12s %-7s %3d  %s%s\n", st.Layer, st.Key, st.Outcome, st.Risk, st.Detail, matched)
	}
}

func formatReceipt(w io.Writer, r *service.Receipt) {
	fmt.Fprintf(w, "Decision: %s  Risk: %d  Policy: %s\n", strings.ToUpper(string(r.Verdict())), r.Risk, r.Policy)
	fmt.Fprintf(w, "Receipt:  %s\n", r.ID)
	fmt.Fprintf(w, "Tool:     %s\n", r.Tool)
	ident := "unverified"
	if r.Identity.Verified {
		ident = "verified"
	} else if r.Identity.Reason != "" {
		ident = "unverified: " + r.Identity.Reason
	}
	fmt.Fprintf(w, "Trust:    %s (%s)\n", r.TrustTier, ident)
	if r.ChainAlert != nil && r.ChainAlert.Triggered {
		fmt.Fprintf(w, "Chain:    %s (+%d) %s\n", r.ChainAlert.Pattern, r.ChainAlert.Boost, r.ChainAlert.Desc)
	}
	if len(r.PIIHits) > 0 {
		hits := make([]string, len(r.PIIHits))
		for i, h := range r.PIIHits {
			hits[i] = fmt.Sprintf("%s x%d", h.Type, h.Count)
		}
		fmt.Fprintf(w, "PII:      %s\n", strings.Join(hits, ", "))
	}
	if r.ConfidenceGap {
		fmt.Fprintln(w, "Note:     confidence gap (terse approval of a risky call)")
	}
	fmt.Fprintln(w, "Trace:")
	formatTrace(w, r.Trace)
	fmt.Fprintf(w, "\n%s\n", r.Explanation)
}

func formatOutputReceipt(w io.Writer, r *service.OutputReceipt) {
	fmt.Fprintf(w, "Decision: %s  Risk: %d\n", strings.ToUpper(string(r.Decision)), r.Risk)
	fmt.Fprintf(w, "Receipt:  %s\n", r.ID)
	if r.Skipped {
		fmt.Fprintln(w, "Skipped:  paired action was blocked")
	}
	for _, f := range r.Flags {
		fmt.Fprintf(w, "  %-24s %3d  %s\n", f.ID, f.Severity, f.Desc)
	}
	if len(r.Trace) > 0 {
		fmt.Fprintln(w, "Trace:")
		formatTrace(w, r.Trace)
	}
	fmt.Fprintf(w, "\n%s\n", r.Explanation)
}

func formatPending(w io.Writer, items []approval.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No pending reviews.")
		return
	}
	fmt.Fprintf(w, "%-36s %-16s %-18s %-24s %4s  %s\n", "ID", "AGENT", "TOOL", "POLICY", "RISK", "CREATED")
	for _, it := range items {
		fmt.Fprintf(w, "%-36s %-16s %-18s %-24s %4d  %s\n",
			it.ID,
			truncate(orDash(it.AgentID), 16),
			truncate(it.Tool, 18),
			truncate(it.Policy, 24),
			it.Risk,
			it.CreatedAt.Local().Format("15:04:05"),
		)
	}
}

// exitCodeFor maps a verdict to the process exit status.
func exitCodeFor(v model.Verdict) error {
	switch v {
	case model.Allow:
		return nil
	case model.Review:
		return &exitError{code: 2}
	default:
		return &exitError{code: 3}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
