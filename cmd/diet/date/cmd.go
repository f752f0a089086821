// Package datecmd implements the `diet date` command.
package datecmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/dietvault/cmd/diet/shared"
	"github.com/go-ports/dietvault/internal/service"
	"github.com/go-ports/dietvault/internal/session"
)

// Command implements `diet date`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the date command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "date <YYYY-MM-DD|today>",
		Short: "Switch the viewed day",
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	return c.ctx.Run(func(svc *service.Service, sess *session.Session) error {
		if err := svc.SetViewDate(sess, args[0]); err != nil {
			return err
		}
		if sess.ViewDate == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Viewing today.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Viewing %s.\n", sess.ViewDate)
		return nil
	})
}
