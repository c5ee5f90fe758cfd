package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	controlRemote string
	killAgent     string
)

func init() {
	rootCmd.AddCommand(statusCmd, degradedCmd, killSwitchCmd)
	for _, c := range []*cobra.Command{statusCmd, degradedCmd, killSwitchCmd} {
		c.Flags().StringVar(&controlRemote, "addr", "", "Gate server address (default localhost:<port>)")
	}
	killSwitchCmd.Flags().StringVar(&killAgent, "agent", "", "Limit the switch to one agent (default global)")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running server's control-plane state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		rc, err := dialRemote(controlRemote, cfg)
		if err != nil {
			return err
		}
		defer rc.Close()
		st, err := rc.Status(context.Background())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), st)
	},
}

var degradedCmd = &cobra.Command{
	Use:       "degraded on|off",
	Short:     "Block every call until cleared",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		rc, err := dialRemote(controlRemote, cfg)
		if err != nil {
			return err
		}
		defer rc.Close()
		prev, err := rc.SetDegraded(context.Background(), args[0] == "on")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "degraded mode %s (was %s)\n", args[0], onOff(prev))
		return nil
	},
}

var killSwitchCmd = &cobra.Command{
	Use:       "kill-switch on|off",
	Short:     "Block every call, globally or for one agent",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		rc, err := dialRemote(controlRemote, cfg)
		if err != nil {
			return err
		}
		defer rc.Close()
		if err := rc.SetKillSwitch(context.Background(), killAgent, args[0] == "on"); err != nil {
			return err
		}
		scope := "global"
		if killAgent != "" {
			scope = "agent " + killAgent
		}
		fmt.Fprintf(cmd.OutOrStdout(), "kill switch %s (%s)\n", args[0], scope)
		return nil
	},
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
