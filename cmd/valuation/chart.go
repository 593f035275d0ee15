package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"ValuationBands/internal/chart"
	"ValuationBands/internal/model"
)

// chartCmd holds the flags for the 'chart' subcommand.
type chartCmd struct {
	ratios string
	mode   string
	out    string
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "draw the historical valuation bands of a symbol as PDF" }
func (*chartCmd) Usage() string {
	return `valuation chart [-ratios pe,pb] [-mode ratio|price] [-out FILE] SYMBOL

  Writes one page per ratio with the mean and ±1/±2 standard deviation bands.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ratios, "ratios", "", "Comma separated ratios (pe, pb, ps, pocf). Defaults to the configured ratios.")
	f.StringVar(&c.mode, "mode", "", "Band space, ratio or price. Defaults to valuation.band_mode.")
	f.StringVar(&c.out, "out", "", "Output file (defaults to SYMBOL_bands.pdf)")
}

func (c *chartCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one symbol is required")
		return subcommands.ExitUsageError
	}
	symbol := strings.ToUpper(f.Arg(0))

	cfg, pipeline, logger, err := setup(c.ratios, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer logger.Sync()

	modeName := c.mode
	if modeName == "" {
		modeName = cfg.Valuation.BandMode
	}
	mode, err := chart.ParseMode(modeName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	report, err := pipeline.Run(ctx, symbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", symbol, err)
		return subcommands.ExitFailure
	}

	out := c.out
	if out == "" {
		out = symbol + "_bands.pdf"
	}
	if err := writeChart(out, chart.NewRenderer(logger), report, mode); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	logger.Info("chart written", zap.String("symbol", symbol), zap.String("file", out))
	return subcommands.ExitSuccess
}

// writeChart renders into path. The file is removed when rendering or closing fails.
func writeChart(path string, r *chart.Renderer, report *model.ValuationReport, mode chart.Mode) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(path)
		}
	}()

	if err := r.Render(file, report, mode); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
