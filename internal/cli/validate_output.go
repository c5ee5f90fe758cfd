package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentgate/internal/model"
	"github.com/ppiankov/agentgate/internal/service"
)

var (
	voAgent     string
	voSession   string
	voPriorRisk int
	voReceipt   string
	voAction    string
	voUseRemote bool
	voRemote    string
	voFormat    string
)

func init() {
	rootCmd.AddCommand(validateOutputCmd)
	validateOutputCmd.Flags().StringVar(&voAgent, "agent", "", "Agent that produced the text")
	validateOutputCmd.Flags().StringVar(&voSession, "session", "", "Session id")
	validateOutputCmd.Flags().IntVar(&voPriorRisk, "prior-risk", 0, "Risk of the action that produced the text")
	validateOutputCmd.Flags().StringVar(&voReceipt, "receipt", "", "Receipt id of the producing action")
	validateOutputCmd.Flags().StringVar(&voAction, "action-decision", "", "Decision of the producing action (allow|review|block)")
	validateOutputCmd.Flags().BoolVar(&voUseRemote, "remote", false, "Ask the running gate server instead of screening in-process")
	validateOutputCmd.Flags().StringVar(&voRemote, "addr", "", "Gate server address (default localhost:<port>)")
	validateOutputCmd.Flags().StringVarP(&voFormat, "format", "f", "text", "Output format (text|json)")
}

var validateOutputCmd = &cobra.Command{
	Use:   "validate-output [file|-]",
	Short: "Screen generated text",
	Long: "Screens text for leaked secrets, PII, dangerous commands and exfiltration\n" +
		"links. Reads the named file, or stdin when the argument is \"-\" or absent.\n\n" +
		"Exit code 0 on allow, 2 on review, 3 on block.",
	Args: cobra.MaximumNArgs(1),
	RunE: runValidateOutput,
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 16<<20))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}

func runValidateOutput(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	in := service.OutputInput{
		Text: text,
		Context: model.OutputContext{
			AgentID:   voAgent,
			SessionID: voSession,
			PriorRisk: voPriorRisk,
		},
		ActionReceiptID: voReceipt,
	}
	if voAction != "" {
		in.ActionDecision = model.ParseVerdict(voAction)
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	var r *service.OutputReceipt
	if voUseRemote {
		rc, err := dialRemote(voRemote, cfg)
		if err != nil {
			return err
		}
		defer rc.Close()
		r, err = rc.ValidateOutput(context.Background(), in)
		if err != nil {
			return err
		}
	} else {
		svc, err := buildService(cfg, log)
		if err != nil {
			return err
		}
		defer svc.Close()
		r, err = svc.ValidateOutput(context.Background(), in)
		if err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	switch voFormat {
	case "json":
		if err := printJSON(w, r); err != nil {
			return err
		}
	default:
		formatOutputReceipt(w, r)
	}
	return exitCodeFor(r.Decision)
}
