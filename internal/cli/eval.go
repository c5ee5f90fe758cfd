package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentgate/internal/model"
	"github.com/ppiankov/agentgate/internal/service"
)

var (
	evalArgs       string
	evalContext    string
	evalAgent      string
	evalToken      string
	evalSession    string
	evalKillSwitch bool
	evalRemote     string
	evalUseRemote  bool
	evalFormat     string
)

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringVar(&evalArgs, "args", "", "Tool arguments as a JSON object")
	evalCmd.Flags().StringVar(&evalContext, "context", "", "Caller context as a JSON object")
	evalCmd.Flags().StringVar(&evalAgent, "agent", "", "Agent id (overrides --context)")
	evalCmd.Flags().StringVar(&evalToken, "token", "", "Agent token (overrides --context)")
	evalCmd.Flags().StringVar(&evalSession, "session", "", "Session id (overrides --context)")
	evalCmd.Flags().BoolVar(&evalKillSwitch, "kill-switch", false, "Force a kill-switch block")
	evalCmd.Flags().BoolVar(&evalUseRemote, "remote", false, "Ask the running gate server instead of evaluating in-process")
	evalCmd.Flags().StringVar(&evalRemote, "addr", "", "Gate server address (default localhost:<port>)")
	evalCmd.Flags().StringVarP(&evalFormat, "format", "f", "text", "Output format (text|json)")
}

var evalCmd = &cobra.Command{
	Use:   "eval <tool>",
	Short: "Evaluate one tool call",
	Long: "Runs a proposed tool call through the decision pipeline and prints the\n" +
		"decision, risk, policy and trace. The decision is receipted like any other.\n\n" +
		"Exit code 0 on allow, 2 on review, 3 on block.",
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func decodeObject(flag, raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("--%s must be a JSON object: %w", flag, err)
	}
	return m, nil
}

func runEval(cmd *cobra.Command, args []string) error {
	rawArgs, err := decodeObject("args", evalArgs)
	if err != nil {
		return err
	}
	rawCtx, err := decodeObject("context", evalContext)
	if err != nil {
		return err
	}
	c := model.ContextFromMap(rawCtx)
	if evalAgent != "" {
		c.AgentID = evalAgent
	}
	if evalToken != "" {
		c.AgentToken = evalToken
	}
	if evalSession != "" {
		c.SessionID = evalSession
	}

	in := service.EvalInput{
		Tool:       args[0],
		Args:       model.ArgsFromMap(rawArgs),
		Context:    c,
		KillSwitch: evalKillSwitch,
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	var r *service.Receipt
	if evalUseRemote {
		rc, err := dialRemote(evalRemote, cfg)
		if err != nil {
			return err
		}
		defer rc.Close()
		r, err = rc.Evaluate(context.Background(), in)
		if err != nil {
			return err
		}
	} else {
		svc, err := buildService(cfg, log)
		if err != nil {
			return err
		}
		defer svc.Close()
		r, err = svc.Evaluate(context.Background(), in)
		if err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	switch evalFormat {
	case "json":
		if err := printJSON(w, r); err != nil {
			return err
		}
	default:
		formatReceipt(w, r)
	}
	return exitCodeFor(r.Verdict())
}
