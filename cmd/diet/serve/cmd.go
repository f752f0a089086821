// Package servecmd implements the `diet serve` command.
package servecmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/go-ports/dietvault/cmd/diet/shared"
	"github.com/go-ports/dietvault/internal/httpapi"
	"github.com/go-ports/dietvault/internal/service"
)

// Command implements `diet serve`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	addr string
}

// New creates the serve command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON HTTP API",
		RunE:  c.run,
	}
	c.cmd.Flags().StringVar(&c.addr, "addr", "", "Listen address (default: server.addr from config)")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	svc, err := service.New(c.ctx.Home())
	if err != nil {
		return err
	}
	defer svc.Close()

	addr := c.addr
	if addr == "" {
		addr = svc.Config.Server.Addr
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on http://%s\n", addr)
	slog.Debug("serve", "home", svc.DietHome, "addr", addr)
	return httpapi.New(svc).ListenAndServe(cmd.Context(), addr)
}
