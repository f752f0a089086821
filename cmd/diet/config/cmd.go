// Package configcmd implements the `diet config` command group.
package configcmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-ports/dietvault/cmd/diet/shared"
	"github.com/go-ports/dietvault/internal/config"
)

const configTemplate = `# dietvault configuration

# HTTP API served by "diet serve".
server:
  addr: 127.0.0.1:8080
  # jwt_secret: change-me       # or set DIET_JWT_SECRET; random per run when unset
  token_ttl: 24h

# Carb mode for a fresh session.
defaults:
  mode: high-carb               # high-carb | low-carb

# Default range of "diet trend".
trend:
  window_days: 7
`

// Command implements `diet config`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the config command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "config",
		Short: "Show or manage configuration",
		RunE:  c.runShow,
	}
	c.cmd.AddCommand(
		newConfigInit(ctx),
		newSetHome(),
		newClearHome(),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) runShow(cmd *cobra.Command, _ []string) error {
	home, source := config.ResolveDietHome()
	if c.ctx.DietHome != "" {
		home = c.ctx.DietHome
		source = "flag"
	}
	if err := config.LoadEnv(home); err != nil {
		return err
	}
	cfg, err := config.Load(filepath.Join(home, "config.yaml"))
	if err != nil {
		return err
	}
	data := map[string]any{
		"server": map[string]any{
			"addr":       cfg.Server.Addr,
			"jwt_secret": redact(cfg.Server.JWTSecret),
			"token_ttl":  cfg.Server.TokenTTL.String(),
		},
		"defaults": map[string]any{
			"mode": string(cfg.Defaults.Mode),
		},
		"trend": map[string]any{
			"window_days": cfg.Trend.WindowDays,
		},
		"diet_home":        home,
		"diet_home_source": source,
	}
	b, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(b))
	return nil
}

// ---------------------------------------------------------------------------
// config init
// ---------------------------------------------------------------------------

func newConfigInit(ctx *shared.Context) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a starter config.yaml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			home := ctx.Home()
			cfgPath := filepath.Join(home, "config.yaml")
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				fmt.Fprintf(out, "Config already exists at %s\n", cfgPath)
				fmt.Fprintln(out, "Use --force to overwrite.")
				return nil
			}
			if err := os.MkdirAll(home, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(cfgPath, []byte(configTemplate), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created %s\n", cfgPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")
	return cmd
}

// ---------------------------------------------------------------------------
// config set-home / clear-home
// ---------------------------------------------------------------------------

func newSetHome() *cobra.Command {
	return &cobra.Command{
		Use:   "set-home <path>",
		Short: "Persist diet home location (used when DIET_HOME is unset)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := config.SetPersistedDietHome(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(resolved, 0o755); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Persisted diet home: %s\n", resolved)
			fmt.Fprintln(out, "Override anytime with DIET_HOME or --home.")
			return nil
		},
	}
}

func newClearHome() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-home",
		Short: "Remove persisted diet home location from global config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			changed, err := config.ClearPersistedDietHome()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if changed {
				fmt.Fprintln(out, "Cleared persisted diet home setting.")
			} else {
				fmt.Fprintln(out, "No persisted diet home setting was found.")
			}
			return nil
		},
	}
}

func redact(secret string) string {
	if secret != "" {
		return "<redacted>"
	}
	return ""
}
