package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentgate/internal/audit"
	"github.com/ppiankov/agentgate/internal/config"
)

var (
	summaryAgent   string
	summarySession string
	summaryKind    string
	summaryFrom    string
	summaryTo      string
	summaryFormat  string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditSummaryCmd)
	auditSummaryCmd.Flags().StringVar(&summaryAgent, "agent", "", "Only receipts for this agent")
	auditSummaryCmd.Flags().StringVar(&summarySession, "session", "", "Only receipts for this session")
	auditSummaryCmd.Flags().StringVar(&summaryKind, "kind", "", "Only receipts of this kind (action|output)")
	auditSummaryCmd.Flags().StringVar(&summaryFrom, "from", "", "Start time filter (RFC3339)")
	auditSummaryCmd.Flags().StringVar(&summaryTo, "to", "", "End time filter (RFC3339)")
	auditSummaryCmd.Flags().StringVarP(&summaryFormat, "format", "f", "text", "Output format (text|json)")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Receipt log operations",
	Long:  "Commands for verifying and inspecting the hash-chained receipt log.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify hash chain integrity of a receipt log",
	Long: "Walks the JSONL receipt log and validates that every entry's prev_hash\n" +
		"matches the SHA-256 of the previous line. Exits 0 if valid, 1 if tampered.\n" +
		"Defaults to the log named in the config.",
	Args: cobra.MaximumNArgs(1),
	RunE: runAuditVerify,
}

var auditSummaryCmd = &cobra.Command{
	Use:   "summary [path]",
	Short: "Show a decision timeline and totals",
	Long:  "Reads the receipt log, applies the filters, and renders a timeline with\ndecision counts, the highest risk and the most frequent policies.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditSummary,
}

func auditPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Audit.Path == "" {
		return "", fmt.Errorf("no receipt log configured; pass a path")
	}
	return config.ExpandHome(cfg.Audit.Path), nil
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	path, err := auditPath(args)
	if err != nil {
		return err
	}
	result := audit.Verify(path)
	if result.Valid {
		fmt.Fprintf(cmd.OutOrStdout(), "OK: %d entries verified (head %s)\n", result.Lines, result.Head)
		return nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	return &exitError{code: 1}
}

func runAuditSummary(cmd *cobra.Command, args []string) error {
	path, err := auditPath(args)
	if err != nil {
		return err
	}

	filter := audit.Filter{
		AgentID:   summaryAgent,
		SessionID: summarySession,
		Kind:      audit.Kind(summaryKind),
	}
	if summaryFrom != "" {
		from, err := time.Parse(time.RFC3339, summaryFrom)
		if err != nil {
			return fmt.Errorf("invalid --from time %q: %w", summaryFrom, err)
		}
		filter.From = from
	}
	if summaryTo != "" {
		to, err := time.Parse(time.RFC3339, summaryTo)
		if err != nil {
			return fmt.Errorf("invalid --to time %q: %w", summaryTo, err)
		}
		filter.To = to
	}

	result, err := audit.Replay(path, filter)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch summaryFormat {
	case "json":
		out, err := audit.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
	default:
		fmt.Fprint(w, audit.FormatTimeline(result))
	}
	return nil
}
