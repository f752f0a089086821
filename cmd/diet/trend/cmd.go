// Package trendcmd implements the `diet trend` command.
package trendcmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/go-ports/dietvault/cmd/diet/shared"
	"github.com/go-ports/dietvault/internal/markdown"
	"github.com/go-ports/dietvault/internal/service"
	"github.com/go-ports/dietvault/internal/session"
)

// Command implements `diet trend`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	from   string
	to     string
	format string
	out    string
}

// New creates the trend command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "trend",
		Short: "Show daily intake, deficit and weight over a day range",
		Long: "Show one row per logged day. Without --from/--to the range is the " +
			"configured window (default 7 days) ending at the latest logged day.",
		RunE: c.run,
	}
	f := c.cmd.Flags()
	f.StringVar(&c.from, "from", "", "First day, YYYY-MM-DD")
	f.StringVar(&c.to, "to", "", "Last day, YYYY-MM-DD")
	f.StringVar(&c.format, "format", "text", "Output format: text or markdown")
	f.StringVar(&c.out, "out", "", "Also write a markdown report to this file")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	if c.format != "text" && c.format != "markdown" {
		return fmt.Errorf("unknown format %q: want text or markdown", c.format)
	}
	return c.ctx.Run(func(svc *service.Service, sess *session.Session) error {
		report, err := svc.Trend(cmd.Context(), sess, c.from, c.to)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch {
		case !report.HasData:
			fmt.Fprintln(out, "No logs yet. Calibrate or commit a tray first.")
		case c.format == "markdown":
			fmt.Fprint(out, markdown.RenderTrendTable(report.Days))
		default:
			if err := writeText(cmd, report); err != nil {
				return err
			}
		}
		if c.out != "" {
			if err := markdown.WriteTrendReport(c.out, report.Username, report.Range, report.Days); err != nil {
				return err
			}
			fmt.Fprintf(out, "Report written to %s\n", c.out)
		}
		return nil
	})
}

func writeText(cmd *cobra.Command, report *service.TrendReport) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s → %s\n", report.Range.From, report.Range.To)
	if len(report.Days) == 0 {
		fmt.Fprintln(out, "No data in this range.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tINTAKE\tDEFICIT\tWEIGHT\tMODE")
	for _, d := range report.Days {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1f\t%s %s\n", d.Day, d.Intake, d.Deficit, d.Weight, markdown.ModeMarker(d.Mode), d.Mode)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out, markdown.ModeLegend)
	return nil
}
