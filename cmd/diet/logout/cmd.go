// Package logoutcmd implements the `diet logout` command.
package logoutcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/dietvault/cmd/diet/shared"
	"github.com/go-ports/dietvault/internal/service"
	"github.com/go-ports/dietvault/internal/session"
)

// Command implements `diet logout`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the logout command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "logout",
		Short: "Log out and discard the tray",
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	return c.ctx.Run(func(svc *service.Service, sess *session.Session) error {
		if !sess.LoggedIn() {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			return nil
		}
		if n := sess.Tray().Len(); n > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Discarded %d uncommitted tray item(s).\n", n)
		}
		svc.Logout(sess)
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	})
}
