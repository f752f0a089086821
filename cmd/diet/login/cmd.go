// Package logincmd implements the `diet login` command.
package logincmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/dietvault/cmd/diet/shared"
	"github.com/go-ports/dietvault/internal/service"
	"github.com/go-ports/dietvault/internal/session"
)

// Command implements `diet login`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	password string
}

// New creates the login command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "login <username>",
		Short: "Log in; starts a fresh tray",
		Long:  "Log in as username. The password is read from stdin unless --password is given.",
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}
	c.cmd.Flags().StringVar(&c.password, "password", "", "Account password")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	password, err := shared.ReadPassword(c.password, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	return c.ctx.Run(func(svc *service.Service, sess *session.Session) error {
		u, err := svc.Login(cmd.Context(), sess, args[0], password)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Logged in as %s\n", u.Username)
		if u.NeedsOnboarding() {
			fmt.Fprintln(out, "No plan yet. Set one up with `diet plan`.")
		}
		return nil
	})
}
