// Package initcmd implements the `diet init` command.
package initcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/dietvault/cmd/diet/shared"
	"github.com/go-ports/dietvault/internal/service"
)

// Command implements `diet init`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the init command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "init",
		Short: "Create the diet home and its database",
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	svc, err := service.New(c.ctx.Home())
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer svc.Close()
	fmt.Fprintf(cmd.OutOrStdout(), "Diet home initialized at %s\n", svc.DietHome)
	return nil
}
