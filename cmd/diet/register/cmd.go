// Package registercmd implements the `diet register` command.
package registercmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/dietvault/cmd/diet/shared"
	"github.com/go-ports/dietvault/internal/service"
)

// Command implements `diet register`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	password string
}

// New creates the register command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account",
		Long:  "Create an account. The password is read from stdin unless --password is given.",
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
	svc, err := service.New(c.ctx.Home())
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Register(cmd.Context(), args[0], password); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s. Log in with `diet login %s`.\n", args[0], args[0])
	return nil
}
