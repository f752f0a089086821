// Package todaycmd implements the `diet today` command.
package todaycmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/dietvault/cmd/diet/shared"
	"github.com/go-ports/dietvault/internal/markdown"
	"github.com/go-ports/dietvault/internal/service"
	"github.com/go-ports/dietvault/internal/session"
)

// Command implements `diet today`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the today command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:     "today",
		Aliases: []string{"dashboard"},
		Short:   "Show the viewed day's target, intake and macro progress",
		RunE:    c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	return c.ctx.Run(func(svc *service.Service, sess *session.Session) error {
		d, err := svc.Dashboard(cmd.Context(), sess)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), markdown.RenderDashboard(d))
		return nil
	})
}
