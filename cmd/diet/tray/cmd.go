// Package traycmd implements the `diet tray` command group.
package traycmd

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/go-ports/dietvault/cmd/diet/shared"
	"github.com/go-ports/dietvault/internal/markdown"
	"github.com/go-ports/dietvault/internal/nutrition"
	"github.com/go-ports/dietvault/internal/service"
	"github.com/go-ports/dietvault/internal/session"
)

// Command implements `diet tray`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the tray command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "tray",
		Short: "Stage foods and log them as one meal",
		RunE:  c.runList,
	}
	c.cmd.AddCommand(
		newAdd(ctx),
		&cobra.Command{
			Use:   "list",
			Short: "Show staged items and their totals",
			RunE:  c.runList,
		},
		newClear(ctx),
		newCommit(ctx),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) runList(cmd *cobra.Command, _ []string) error {
	return c.ctx.Run(func(_ *service.Service, sess *session.Session) error {
		if !sess.LoggedIn() {
			return service.ErrNotLoggedIn
		}
		out := cmd.OutOrStdout()
		tr := sess.Tray()
		if tr.Len() == 0 {
			fmt.Fprintln(out, "Tray is empty.")
			return nil
		}
		for i, it := range tr.Items() {
			fmt.Fprintf(out, "%d. %s\n", i+1, markdown.RenderItem(it))
		}
		t := tr.Totals()
		fmt.Fprintf(out, "Total: %d kcal (P%.1f C%.1f F%.1f)\n", t.Calories, t.Protein, t.Carbs, t.Fat)
		return nil
	})
}

// ---------------------------------------------------------------------------
// tray add
// ---------------------------------------------------------------------------

func newAdd(ctx *shared.Context) *cobra.Command {
	var name string
	var calories int
	var protein, carbs, fat float64
	cmd := &cobra.Command{
		Use:   "add [food [grams]]",
		Short: "Stage a food from the table, or a custom item with --calories",
		Example: "  diet tray add rice 150\n" +
			"  diet tray add --name \"Protein bar\" --calories 210 --protein 20",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			custom := cmd.Flags().Changed("calories")
			if len(args) == 0 && !custom {
				return fmt.Errorf("give a food key (see `diet foods`) or --calories")
			}
			if len(args) > 0 && custom {
				return fmt.Errorf("use either a food key or --calories, not both")
			}
			grams := nutrition.DefaultGrams
			if len(args) == 2 {
				g, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("grams must be a whole number: %q", args[1])
				}
				grams = g
			}
			return ctx.Run(func(svc *service.Service, sess *session.Session) error {
				var err error
				if custom {
					_, err = svc.AddCustomFood(sess, name, calories, protein, carbs, fat)
				} else {
					_, err = svc.AddFood(sess, args[0], grams)
				}
				if err != nil {
					return err
				}
				items := sess.Tray().Items()
				t := sess.Tray().Totals()
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s. Tray: %d item(s), %d kcal\n",
					markdown.RenderItem(items[len(items)-1]), len(items), t.Calories)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "Custom item name")
	f.IntVar(&calories, "calories", 0, "Custom item calories")
	f.Float64Var(&protein, "protein", 0, "Custom item protein (g)")
	f.Float64Var(&carbs, "carbs", 0, "Custom item carbohydrate (g)")
	f.Float64Var(&fat, "fat", 0, "Custom item fat (g)")
	return cmd
}

// ---------------------------------------------------------------------------
// tray clear
// ---------------------------------------------------------------------------

func newClear(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Discard every staged item",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.Run(func(svc *service.Service, sess *session.Session) error {
				if err := svc.ClearTray(sess); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Tray cleared.")
				return nil
			})
		},
	}
}

// ---------------------------------------------------------------------------
// tray commit
// ---------------------------------------------------------------------------

func newCommit(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "commit",
		Short: "Log the tray as one meal for the viewed day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, sess, err := ctx.Open()
			if err != nil {
				return err
			}
			defer svc.Close()

			e, err := svc.Commit(cmd.Context(), sess, func() error {
				return svc.SaveSession(sess)
			})
			if err != nil {
				// The session file may already hold the emptied tray; put the
				// restored items back on disk.
				if serr := svc.SaveSession(sess); serr != nil {
					slog.Warn("tray commit: restore session", "err", serr)
				}
				return shared.Hint(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %d kcal on %s at %s. Deficit %d kcal.\n",
				e.Intake, e.Day, e.Clock, e.Deficit)
			return nil
		},
	}
}
