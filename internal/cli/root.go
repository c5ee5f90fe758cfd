package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentgate/internal/alert"
	"github.com/ppiankov/agentgate/internal/approval"
	"github.com/ppiankov/agentgate/internal/audit"
	"github.com/ppiankov/agentgate/internal/config"
	"github.com/ppiankov/agentgate/internal/control"
	"github.com/ppiankov/agentgate/internal/events"
	"github.com/ppiankov/agentgate/internal/history"
	"github.com/ppiankov/agentgate/internal/logging"
	"github.com/ppiankov/agentgate/internal/service"
)

var (
	configPath string
	logFormat  string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "agentgate",
	Short: "Runtime security gate for AI agent tool calls",
	Long: "Judges every tool call an agent proposes (allow, review or block) with a\n" +
		"risk score and a layer-by-layer trace, and screens generated output before\n" +
		"it reaches a user or a shell. Deterministic, local, fail-closed.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.agentgate/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format override (text|json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug|info|warn|error)")
}

// exitError carries a non-zero exit status without an error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(config.ExpandHome(configPath))
	if err != nil {
		return nil, nil, err
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, logging.New(cfg.Log.Format, cfg.Log.Level), nil
}

func servicePaths(cfg *config.Config) service.Paths {
	return service.Paths{
		Policy:   config.ExpandHome(cfg.Policy),
		Registry: config.ExpandHome(cfg.Registry),
		Tables:   config.ExpandHome(cfg.Tables),
	}
}

func openReviews(cfg *config.Config) (*approval.Store, error) {
	dir := config.ExpandHome(cfg.Review.Dir)
	if dir == "" {
		dir = approval.DefaultDir()
	}
	ttl, err := cfg.Review.TTLDuration()
	if err != nil {
		return nil, err
	}
	store, err := approval.NewStore(dir, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to open review queue: %w", err)
	}
	return store, nil
}

// buildService wires every backend the config names.
func buildService(cfg *config.Config, log *slog.Logger) (*service.Service, error) {
	hcfg := cfg.History
	hcfg.Path = config.ExpandHome(hcfg.Path)
	hist, err := history.NewStore(hcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}

	var auditLog *audit.Log
	if cfg.Audit.Path != "" {
		auditLog, err = audit.Open(config.ExpandHome(cfg.Audit.Path))
		if err != nil {
			hist.Close()
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}

	reviews, err := openReviews(cfg)
	if err != nil {
		hist.Close()
		if auditLog != nil {
			auditLog.Close()
		}
		return nil, err
	}
	if n, err := reviews.Prune(); err != nil {
		log.Warn("review queue prune failed", "error", err)
	} else if n > 0 {
		log.Debug("pruned resolved reviews", "count", n)
	}

	pub, err := events.New(cfg.Events)
	if err != nil {
		hist.Close()
		if auditLog != nil {
			auditLog.Close()
		}
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}

	degraded := &control.Flag{}
	degraded.Set(cfg.Degraded)

	svc, err := service.New(service.Options{
		Paths:    servicePaths(cfg),
		History:  hist,
		Audit:    auditLog,
		Reviews:  reviews,
		Alerts:   alert.NewDispatcher(cfg.Alerts, log),
		Events:   pub,
		Degraded: degraded,
		Logger:   log,
	})
	if err != nil {
		hist.Close()
		pub.Close()
		if auditLog != nil {
			auditLog.Close()
		}
		return nil, err
	}
	return svc, nil
}
