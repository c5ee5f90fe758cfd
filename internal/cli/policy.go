package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentgate/internal/policy"
	"github.com/ppiankov/agentgate/internal/policydiff"
	"github.com/ppiankov/agentgate/internal/service"
)

var (
	lintPolicy   string
	lintRegistry string
	lintTables   string
	diffFormat   string
)

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyLintCmd)
	policyCmd.AddCommand(policyDiffCmd)
	policyDiffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text", "Output format (text|json)")
	policyLintCmd.Flags().StringVar(&lintPolicy, "policy", "", "Policy file (overrides config)")
	policyLintCmd.Flags().StringVar(&lintRegistry, "registry", "", "Agent registry file (overrides config)")
	policyLintCmd.Flags().StringVar(&lintTables, "tables", "", "Detection tables file (overrides config)")
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Policy file operations",
}

var policyLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Load and validate policies, registry and tables",
	Long: "Loads the same files the server would and reports every problem found.\n" +
		"Exits 1 when any file fails to load or any warning is raised.",
	Args: cobra.NoArgs,
	RunE: runPolicyLint,
}

var policyDiffCmd = &cobra.Command{
	Use:   "diff <old.yaml> <new.yaml>",
	Short: "Compare two policy files and show changes",
	Long: "Loads two policy files and compares their effective policy sets by id:\n" +
		"policies added or removed, and changed actions, severities and statuses.",
	Args: cobra.ExactArgs(2),
	RunE: runPolicyDiff,
}

func runPolicyDiff(cmd *cobra.Command, args []string) error {
	var cfgs [2]*policy.Config
	for i, path := range args {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("policy file: %w", err)
		}
		cfg, err := policy.LoadConfig(path)
		if err != nil {
			return err
		}
		cfgs[i] = cfg
	}

	result := policydiff.Diff(cfgs[0], cfgs[1])
	result.OldPath = args[0]
	result.NewPath = args[1]

	w := cmd.OutOrStdout()
	switch diffFormat {
	case "json":
		out, err := policydiff.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
	default:
		fmt.Fprint(w, policydiff.FormatText(result))
	}
	return nil
}

func runPolicyLint(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	paths := servicePaths(cfg)
	if lintPolicy != "" {
		paths.Policy = lintPolicy
	}
	if lintRegistry != "" {
		paths.Registry = lintRegistry
	}
	if lintTables != "" {
		paths.Tables = lintTables
	}

	snap, warnings, err := service.LoadSnapshot(paths)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "FAILED: %v\n", err)
		return &exitError{code: 1}
	}
	for _, w := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", w)
	}
	if len(warnings) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "FAILED: %d warning(s)\n", len(warnings))
		return &exitError{code: 1}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "OK: %d policies, %d agents, policy hash %s\n",
		len(snap.Engine.Policies()), len(snap.Registry.IDs()), orDash(snap.PolicyHash))
	return nil
}
