// Package rootcmd wires the root cobra.Command for the diet CLI binary.
package rootcmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	calibratecmd "github.com/go-ports/dietvault/cmd/diet/calibrate"
	configcmd "github.com/go-ports/dietvault/cmd/diet/config"
	datecmd "github.com/go-ports/dietvault/cmd/diet/date"
	foodscmd "github.com/go-ports/dietvault/cmd/diet/foods"
	initcmd "github.com/go-ports/dietvault/cmd/diet/init"
	logincmd "github.com/go-ports/dietvault/cmd/diet/login"
	logoutcmd "github.com/go-ports/dietvault/cmd/diet/logout"
	mcpcmd "github.com/go-ports/dietvault/cmd/diet/mcp"
	plancmd "github.com/go-ports/dietvault/cmd/diet/plan"
	registercmd "github.com/go-ports/dietvault/cmd/diet/register"
	servecmd "github.com/go-ports/dietvault/cmd/diet/serve"
	setupcmd "github.com/go-ports/dietvault/cmd/diet/setup"
	"github.com/go-ports/dietvault/cmd/diet/shared"
	todaycmd "github.com/go-ports/dietvault/cmd/diet/today"
	traycmd "github.com/go-ports/dietvault/cmd/diet/tray"
	trendcmd "github.com/go-ports/dietvault/cmd/diet/trend"
	uninstallcmd "github.com/go-ports/dietvault/cmd/diet/uninstall"
	"github.com/go-ports/dietvault/internal/buildinfo"
)

// New creates and returns the root cobra.Command for the diet CLI.
func New() *cobra.Command {
	ctx := &shared.Context{}

	root := &cobra.Command{
		Use:           "diet",
		Short:         "dietvault: daily calorie targets and a food tray",
		Version:       buildinfo.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if ctx.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
		RunE: func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	root.PersistentFlags().StringVar(
		&ctx.DietHome, "home", "",
		"Override diet home directory (default: $DIET_HOME env → persisted config → ~/.dietvault)",
	)
	root.PersistentFlags().BoolVarP(&ctx.Verbose, "verbose", "v", os.Getenv("DIET_VERBOSE") != "", "Log debug output to stderr")

	root.AddCommand(
		initcmd.New(ctx).Cmd(),
		registercmd.New(ctx).Cmd(),
		logincmd.New(ctx).Cmd(),
		logoutcmd.New(ctx).Cmd(),
		plancmd.New(ctx).Cmd(),
		calibratecmd.New(ctx).Cmd(),
		datecmd.New(ctx).Cmd(),
		todaycmd.New(ctx).Cmd(),
		traycmd.New(ctx).Cmd(),
		foodscmd.New(ctx).Cmd(),
		trendcmd.New(ctx).Cmd(),
		configcmd.New(ctx).Cmd(),
		setupcmd.New(ctx).Cmd(),
		uninstallcmd.New(ctx).Cmd(),
		mcpcmd.New(ctx).Cmd(),
		servecmd.New(ctx).Cmd(),
	)

	return root
}
