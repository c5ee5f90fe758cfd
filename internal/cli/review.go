package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentgate/internal/approval"
)

var (
	reviewNote      string
	reviewer        string
	reviewUseRemote bool
	reviewRemote    string
)

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.AddCommand(reviewApproveCmd)
	reviewCmd.AddCommand(reviewDenyCmd)
	reviewCmd.PersistentFlags().StringVar(&reviewNote, "note", "", "Reason recorded with the decision")
	reviewCmd.PersistentFlags().StringVar(&reviewer, "reviewer", "", "Reviewer name (default $USER)")
	reviewCmd.PersistentFlags().BoolVar(&reviewUseRemote, "remote", false, "Resolve through the running gate server")
	reviewCmd.PersistentFlags().StringVar(&reviewRemote, "addr", "", "Gate server address (default localhost:<port>)")
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Resolve calls held for review",
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a held call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReview(cmd, args[0], true)
	},
}

var reviewDenyCmd = &cobra.Command{
	Use:   "deny <id>",
	Short: "Deny a held call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReview(cmd, args[0], false)
	},
}

func runReview(cmd *cobra.Command, id string, approve bool) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	who := reviewer
	if who == "" {
		who = os.Getenv("USER")
	}

	var it *approval.Item
	if reviewUseRemote {
		rc, err := dialRemote(reviewRemote, cfg)
		if err != nil {
			return err
		}
		defer rc.Close()
		it, err = rc.Resolve(context.Background(), id, approve, who, reviewNote)
		if err != nil {
			return err
		}
	} else {
		store, err := openReviews(cfg)
		if err != nil {
			return err
		}
		if approve {
			it, err = store.Approve(id, who, reviewNote)
		} else {
			it, err = store.Deny(id, who, reviewNote)
		}
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (tool %s, policy %s)\n", it.Status, it.ID, it.Tool, it.Policy)
	return nil
}
