// Package plancmd implements the `diet plan` command group.
package plancmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/dietvault/cmd/diet/shared"
	"github.com/go-ports/dietvault/internal/models"
	"github.com/go-ports/dietvault/internal/nutrition"
	"github.com/go-ports/dietvault/internal/service"
	"github.com/go-ports/dietvault/internal/session"
)

// Command implements `diet plan`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	height   float64
	weight   float64
	age      int
	gender   string
	activity string
	deficit  int
}

// New creates the plan command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "plan",
		Short: "Set up the body profile the daily target is computed from",
		RunE:  c.run,
	}

	f := c.cmd.Flags()
	f.Float64Var(&c.height, "height", 0, "Height in cm (100-220, required)")
	f.Float64Var(&c.weight, "weight", 0, "Weight in kg (30-200, required)")
	f.IntVar(&c.age, "age", 0, "Age in years (10-100, required)")
	f.StringVar(&c.gender, "gender", "", "male or female (required)")
	f.StringVar(&c.activity, "activity", "light", "sedentary, light, moderate, heavy, athlete or a factor such as 1.375")
	f.IntVar(&c.deficit, "deficit", 15, "Calorie deficit percentage (0-30)")

	_ = c.cmd.MarkFlagRequired("height")
	_ = c.cmd.MarkFlagRequired("weight")
	_ = c.cmd.MarkFlagRequired("age")
	_ = c.cmd.MarkFlagRequired("gender")

	c.cmd.AddCommand(newReset(ctx))
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	gender, err := models.ParseGender(c.gender)
	if err != nil {
		return err
	}
	activity, err := nutrition.ParseActivity(c.activity)
	if err != nil {
		return err
	}
	in := service.ProfileInput{
		Height:   c.height,
		Weight:   c.weight,
		Age:      c.age,
		Gender:   gender,
		Activity: activity,
		Deficit:  c.deficit,
	}
	return c.ctx.Run(func(svc *service.Service, sess *session.Session) error {
		if _, err := svc.SetupProfile(cmd.Context(), sess, in); err != nil {
			return err
		}
		d, err := svc.Dashboard(cmd.Context(), sess)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(),
			"Plan saved. BMR %.0f kcal, TDEE %.0f kcal, daily target %d kcal (P%.0f C%.0f F%.0f g).\n",
			d.BMR, d.TDEE, d.Target.Calories, d.Target.Protein, d.Target.Carbs, d.Target.Fat)
		return nil
	})
}

func newReset(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the plan and return to onboarding",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.Run(func(svc *service.Service, sess *session.Session) error {
				if err := svc.ResetPlan(cmd.Context(), sess); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Plan cleared. Run `diet plan` to set a new one.")
				return nil
			})
		},
	}
}
