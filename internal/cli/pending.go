package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentgate/internal/approval"
)

var (
	pendingUseRemote bool
	pendingRemote    string
	pendingFormat    string
	pendingClear     bool
)

func init() {
	rootCmd.AddCommand(pendingCmd)
	pendingCmd.Flags().BoolVar(&pendingUseRemote, "remote", false, "Ask the running gate server")
	pendingCmd.Flags().StringVar(&pendingRemote, "addr", "", "Gate server address (default localhost:<port>)")
	pendingCmd.Flags().BoolVar(&pendingClear, "clear", false, "Remove every item from the local queue")
	pendingCmd.Flags().StringVarP(&pendingFormat, "format", "f", "text", "Output format (text|json)")
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List tool calls held for review",
	Long:  "Shows calls the gate held for human review, oldest first.",
	RunE:  runPending,
}

func runPending(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	var items []approval.Item
	if pendingUseRemote {
		rc, err := dialRemote(pendingRemote, cfg)
		if err != nil {
			return err
		}
		defer rc.Close()
		if items, err = rc.ListPending(context.Background()); err != nil {
			return err
		}
	} else {
		store, err := openReviews(cfg)
		if err != nil {
			return err
		}
		if pendingClear {
			if err := store.Cleanup(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Review queue cleared.")
			return nil
		}
		if items, err = store.List(approval.StatusPending); err != nil {
			return err
		}
	}

	if pendingFormat == "json" {
		if items == nil {
			items = []approval.Item{}
		}
		return printJSON(cmd.OutOrStdout(), items)
	}
	formatPending(cmd.OutOrStdout(), items)
	return nil
}
