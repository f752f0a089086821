// Package calibratecmd implements the `diet calibrate` command.
package calibratecmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/dietvault/cmd/diet/shared"
	"github.com/go-ports/dietvault/internal/models"
	"github.com/go-ports/dietvault/internal/service"
	"github.com/go-ports/dietvault/internal/session"
)

// Command implements `diet calibrate`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	weight   float64
	exercise int
	mode     string
	date     string
}

// New creates the calibrate command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "calibrate",
		Short: "Record the day's weight, exercise and carb mode",
		Long: "Record the viewed day's weight, exercise calories and carb mode. " +
			"Running it again on the same day updates that day's record.",
		RunE: c.run,
	}

	f := c.cmd.Flags()
	f.Float64Var(&c.weight, "weight", 0, "Weight in kg (required)")
	f.IntVar(&c.exercise, "exercise", 0, "Exercise calories burned")
	f.StringVar(&c.mode, "mode", "", "high-carb or low-carb (default: current mode)")
	f.StringVar(&c.date, "date", "", "Day to calibrate, YYYY-MM-DD (default: viewed day)")
	_ = c.cmd.MarkFlagRequired("weight")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	var mode models.CarbMode
	if c.mode != "" {
		m, err := models.ParseCarbMode(c.mode)
		if err != nil {
			return err
		}
		mode = m
	}
	return c.ctx.Run(func(svc *service.Service, sess *session.Session) error {
		e, err := svc.Calibrate(cmd.Context(), sess, service.CalibrateInput{
			Weight:   c.weight,
			Exercise: c.exercise,
			Mode:     mode,
			Day:      c.date,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Calibrated %s: %.1f kg, %s, target %d kcal\n",
			e.Day, e.Weight, e.Mode, e.Target)
		return nil
	})
}
