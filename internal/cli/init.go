package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/agentgate/internal/config"
	"github.com/ppiankov/agentgate/internal/gate"
	"github.com/ppiankov/agentgate/internal/identity"
	"github.com/ppiankov/agentgate/internal/policy"
)

var (
	initMode  string
	initForce bool
)

func init() {
	initCmd.Flags().StringVar(&initMode, "mode", "user", "Config location: user (~/.agentgate) or system (/etc/agentgate)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write default configuration files",
	Long: `Creates the config directory with editable copies of the built-in defaults:
config.yaml, policies.yaml, agents.yaml and tables.yaml.

User mode (default):  writes to ~/.agentgate/
System mode:          writes to /etc/agentgate/ (requires root)`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := initConfigDir()
	if err != nil {
		return err
	}

	agents, err := defaultAgentsYAML()
	if err != nil {
		return fmt.Errorf("generate default registry: %w", err)
	}
	tables, err := defaultTablesYAML()
	if err != nil {
		return fmt.Errorf("generate default tables: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{"config.yaml", config.DefaultConfigYAML()},
		{"policies.yaml", policy.DefaultConfigYAML()},
		{"agents.yaml", agents},
		{"tables.yaml", tables},
	}

	var created []string
	for _, f := range files {
		path := filepath.Join(configDir, f.name)
		wrote, err := writeIfMissing(path, f.content)
		if err != nil {
			return err
		}
		if wrote {
			created = append(created, path)
		}
	}

	w := cmd.OutOrStdout()

	fmt.Fprintln(w, "agentgate init complete.")
	fmt.Fprintln(w)
	if len(created) > 0 {
		fmt.Fprintln(w, "Created:")
		for _, path := range created {
			fmt.Fprintf(w, "  %s\n", path)
		}
	} else {
		fmt.Fprintln(w, "All files already exist (use --force to overwrite).")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check the files:")
	fmt.Fprintln(w, "  agentgate policy lint")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Start the gate:")
	fmt.Fprintln(w, "  agentgate serve")
	return nil
}

// initConfigDir returns the configuration directory based on mode.
func initConfigDir() (string, error) {
	switch initMode {
	case "system":
		return "/etc/agentgate", nil
	case "user", "":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(home, ".agentgate"), nil
	default:
		return "", fmt.Errorf("unknown mode %q: use 'user' or 'system'", initMode)
	}
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// defaultAgentsYAML renders the built-in registry as an editable file.
func defaultAgentsYAML() (string, error) {
	reg := identity.DefaultRegistry()
	f := identity.RegistryFile{Agents: make(map[string]*identity.Agent)}
	for _, id := range reg.IDs() {
		f.Agents[id] = reg.Lookup(id)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return "", err
	}
	header := "# agentgate agent registry.\n" +
		"# Callers present agent_token \"<agent_id>:<fingerprint>\"; a match marks\n" +
		"# the call verified and grants the listed capabilities.\n" +
		"# trust_level: trusted | internal | external | untrusted\n\n"
	return header + string(data), nil
}

// defaultTablesYAML renders the built-in detection tables as an editable file.
func defaultTablesYAML() (string, error) {
	data, err := yaml.Marshal(gate.DefaultTables())
	if err != nil {
		return "", err
	}
	header := "# agentgate detection tables.\n" +
		"# Each list present here replaces the built-in list of the same name.\n" +
		"# Patterns are Go regular expressions; phrases match case-insensitively.\n\n"
	return header + string(data), nil
}
