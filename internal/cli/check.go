package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentgate/internal/scenario"
)

var (
	checkScenario string
	checkPolicy   string
	checkRegistry string
	checkTables   string
	checkFormat   string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkScenario, "scenario", "", "Glob pattern for scenario YAML files (required)")
	checkCmd.Flags().StringVar(&checkPolicy, "policy", "", "Policy file (overrides config)")
	checkCmd.Flags().StringVar(&checkRegistry, "registry", "", "Agent registry file (overrides config)")
	checkCmd.Flags().StringVar(&checkTables, "tables", "", "Detection tables file (overrides config)")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
	_ = checkCmd.MarkFlagRequired("scenario")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run decision assertions from scenario files",
	Long: "Loads scenario YAML files matching a glob pattern, evaluates each\n" +
		"case through a private gate, and reports pass/fail. Nothing is written\n" +
		"to history, the receipt log or the review queue.\n\n" +
		"Exit code 0 if all cases pass, 1 if any fail.\n" +
		"Use in CI to gate deployments on policy correctness.",
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	matches, err := filepath.Glob(checkScenario)
	if err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no scenario files match pattern: %s", checkScenario)
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	paths := servicePaths(cfg)
	if checkPolicy != "" {
		paths.Policy = checkPolicy
	}
	if checkRegistry != "" {
		paths.Registry = checkRegistry
	}
	if checkTables != "" {
		paths.Tables = checkTables
	}

	var results []*scenario.RunResult
	for _, path := range matches {
		r, err := scenario.LoadAndRun(path, paths)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		results = append(results, r)
	}

	w := cmd.OutOrStdout()
	switch checkFormat {
	case "json":
		out, err := scenario.FormatJSON(results)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
	default:
		fmt.Fprint(w, scenario.FormatText(results))
	}

	for _, r := range results {
		if r.Failed > 0 {
			return &exitError{code: 1}
		}
	}
	return nil
}
