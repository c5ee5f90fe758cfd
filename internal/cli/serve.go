package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentgate/internal/config"
	"github.com/ppiankov/agentgate/internal/server"
	"github.com/ppiankov/agentgate/internal/service"
)

var (
	servePort     int
	serveDegraded bool
	serveNoWatch  bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "gRPC listen port (default from config, 9777)")
	serveCmd.Flags().BoolVar(&serveDegraded, "degraded", false, "Start in degraded mode (every call blocked)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Disable hot-reload of policy, registry and tables")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC gate server",
	Long: "Runs agentgate as a central decision server over gRPC.\n" +
		"Agents connect as clients; an unreachable server means every call is blocked.\n" +
		"Policy, agent registry and tables are hot-reloaded when their files change.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if serveDegraded {
		cfg.Degraded = true
	}

	svc, err := buildService(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	srv := server.New(server.Config{Port: cfg.Port, Logger: log}, svc)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Watch && !serveNoWatch {
		reloader, err := server.NewReloader(svc, watchPaths(svc.Paths()), log)
		if err != nil {
			log.Warn("hot-reload disabled", "error", err)
		} else {
			go reloader.Run(ctx)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info("shutting down gate server")
		cancel()
		srv.GracefulStop()
	}()

	st := svc.Status()
	log.Info("agentgate starting",
		"port", cfg.Port,
		"policies", st.Policies,
		"agents", st.Agents,
		"policy_hash", st.PolicyHash,
		"degraded", st.Degraded,
		"history", cfg.History.Type,
		"audit", cfg.Audit.Path,
	)
	return srv.Serve()
}

// watchPaths resolves empty paths to the default files under the config
// directory so their creation is noticed too.
func watchPaths(p service.Paths) []string {
	dir := filepath.Dir(config.DefaultPath())
	or := func(path, name string) string {
		if path != "" {
			return path
		}
		return filepath.Join(dir, name)
	}
	return []string{
		or(p.Policy, "policies.yaml"),
		or(p.Registry, "agents.yaml"),
		or(p.Tables, "tables.yaml"),
	}
}
