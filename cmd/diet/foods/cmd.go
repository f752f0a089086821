// Package foodscmd implements the `diet foods` command.
package foodscmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/go-ports/dietvault/cmd/diet/shared"
	"github.com/go-ports/dietvault/internal/search"
)

// Command implements `diet foods`.
type Command struct {
	ctx   *shared.Context
	cmd   *cobra.Command
	limit int
}

// New creates the foods command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "foods [query]",
		Short: "List the food table (values per 100 g)",
		Long:  "List the food table. With a query, show only matching foods, best match first.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.run,
	}
	c.cmd.Flags().IntVarP(&c.limit, "limit", "n", 0, "Maximum results (0 for all)")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	var query string
	if len(args) == 1 {
		query = args[0]
	}
	hits := search.Foods(query, c.limit)
	if len(hits) == 0 {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "No foods match %q.\n", query)
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tFOOD\tKCAL\tPROTEIN\tCARBS\tFAT")
	for _, r := range hits {
		f := r.Food
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%.1f\t%.1f\t%.1f\n", f.Key, f.Label, f.Calories, f.Protein, f.Carbs, f.Fat)
	}
	return w.Flush()
}
