package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"ValuationBands/internal/notifier"
)

// reportCmd holds the flags for the 'report' subcommand.
type reportCmd struct {
	ratios string
	pretty bool

	stdout, stderr io.Writer
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "print the valuation report of one or more symbols" }
func (*reportCmd) Usage() string {
	return `valuation report [-ratios pe,pb] [-pretty] SYMBOL...

  Compares each symbol's current multiples against their own history.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ratios, "ratios", "", "Comma separated ratios (pe, pb, ps, pocf). Defaults to the configured ratios.")
	f.BoolVar(&c.pretty, "pretty", false, "Render the report as formatted markdown")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	stdout, stderr := c.stdout, c.stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	if f.NArg() == 0 {
		fmt.Fprintln(stderr, "Error: at least one symbol is required")
		return subcommands.ExitUsageError
	}

	_, pipeline, logger, err := setup(c.ratios, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer logger.Sync()

	failed := 0
	for i, arg := range f.Args() {
		symbol := strings.ToUpper(arg)
		report, err := pipeline.Run(ctx, symbol)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %s: %v\n", symbol, err)
			failed++
			continue
		}
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		if !c.pretty {
			fmt.Fprint(stdout, notifier.FormatReport(report))
			continue
		}
		out, err := notifier.RenderTerminal(notifier.FormatMarkdown(report), 100)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			failed++
			continue
		}
		fmt.Fprint(stdout, out)
	}

	if failed == f.NArg() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
