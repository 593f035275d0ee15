package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"ValuationBands/internal/model"
)

func num(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func pct(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}

func omittedKinds(r *model.ValuationReport) []model.RatioKind {
	out := make([]model.RatioKind, 0, len(r.Omitted))
	for k := range r.Omitted {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FormatReport formats a report as one "key: value" line per field.
func FormatReport(r *model.ValuationReport) string {
	var b strings.Builder
	line := func(key, value string) {
		b.WriteString(fmt.Sprintf("%s: %s\n", key, value))
	}

	line("symbol", r.Symbol)
	line("as_of", r.AsOf.Format("2006-01-02"))
	line("current_price", num(r.CurrentPrice))
	for _, k := range r.Kinds() {
		res := r.Ratios[k]
		code := k.Code()
		line("current_"+k.Metric(), num(res.CurrentFundamental))
		line("current_"+code, num(res.CurrentRatio))
		line("historical_"+code+"_mean", num(res.Summary.Mean))
		line("historical_"+code+"_std", num(res.Summary.StdDev))
		line(code+"_zscore", num(res.ZScore))
		line(code+"_percentile", pct(res.Percentile))
		line(code+"_status", string(res.Status))
		line(code+"_fair_value_low", num(res.FairValueLow))
		line(code+"_fair_value_high", num(res.FairValueHigh))
	}
	for _, k := range omittedKinds(r) {
		line(k.Code()+"_omitted", r.Omitted[k])
	}
	if r.AverageZ.Valid {
		line("average_zscore", num(r.AverageZ.Float64))
	} else {
		line("average_zscore", "n/a")
	}
	line("valuation_status", string(r.Status))
	return b.String()
}

// FormatMarkdown formats a report as markdown tables.
func FormatMarkdown(r *model.ValuationReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s valuation\n\n", r.Symbol))
	b.WriteString(fmt.Sprintf("As of **%s**, price **%s**, status **%s**", r.AsOf.Format("2006-01-02"), num(r.CurrentPrice), r.Status))
	if r.AverageZ.Valid {
		b.WriteString(fmt.Sprintf(" (average z %s)", num(r.AverageZ.Float64)))
	}
	b.WriteString("\n\n")

	if len(r.Ratios) > 0 {
		b.WriteString("| Ratio | Current | Mean | Std | Z | Percentile | Status |\n")
		b.WriteString("|---|---:|---:|---:|---:|---:|---|\n")
		for _, k := range r.Kinds() {
			res := r.Ratios[k]
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s%% | %s |\n",
				k.Label(), num(res.CurrentRatio), num(res.Summary.Mean), num(res.Summary.StdDev),
				num(res.ZScore), pct(res.Percentile), res.Status))
		}

		b.WriteString("\n## Fair value\n\n")
		b.WriteString("| Ratio | Low | Mid | High | Above low |\n")
		b.WriteString("|---|---:|---:|---:|---:|\n")
		for _, k := range r.Kinds() {
			res := r.Ratios[k]
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s%% |\n",
				k.Label(), num(res.FairValueLow), num(res.FairValueMid), num(res.FairValueHigh), pct(res.DistanceFromLow)))
		}
	}

	if len(r.Omitted) > 0 {
		b.WriteString("\n## Omitted\n\n")
		for _, k := range omittedKinds(r) {
			b.WriteString(fmt.Sprintf("- %s: %s\n", k.Label(), r.Omitted[k]))
		}
	}
	return b.String()
}

// RenderTerminal renders markdown for a terminal.
func RenderTerminal(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

// FormatAlert formats the Telegram HTML message for a price at or below a fair value low.
func FormatAlert(r *model.ValuationReport, res *model.RatioResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔔 <b>%s</b> below %s fair value | %s\n\n", html.EscapeString(r.Symbol), res.Kind.Label(), r.AsOf.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Price: %s\n", num(r.CurrentPrice)))
	b.WriteString(fmt.Sprintf("Fair value: %s ~ %s (mid %s)\n", num(res.FairValueLow), num(res.FairValueHigh), num(res.FairValueMid)))
	b.WriteString(fmt.Sprintf("%s: %s (mean %s, z %s)\n", res.Kind.Label(), num(res.CurrentRatio), num(res.Summary.Mean), num(res.ZScore)))
	b.WriteString(fmt.Sprintf("Percentile: %s%%\n", pct(res.Percentile)))
	b.WriteString(fmt.Sprintf("Status: %s", r.Status))
	return b.String()
}

// FormatTelegramReport is the HTML variant of FormatReport for chat replies.
// Free text from providers is escaped.
func FormatTelegramReport(r *model.ValuationReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s\n\n", html.EscapeString(r.Symbol), r.AsOf.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Price: %s\n", num(r.CurrentPrice)))
	for _, k := range r.Kinds() {
		res := r.Ratios[k]
		b.WriteString(fmt.Sprintf("\n<b>%s</b> %s (mean %s, std %s)\n", k.Label(), num(res.CurrentRatio), num(res.Summary.Mean), num(res.Summary.StdDev)))
		b.WriteString(fmt.Sprintf("  z %s | pct %s%% | %s\n", num(res.ZScore), pct(res.Percentile), res.Status))
		b.WriteString(fmt.Sprintf("  fair value %s ~ %s\n", num(res.FairValueLow), num(res.FairValueHigh)))
	}
	for _, k := range omittedKinds(r) {
		b.WriteString(fmt.Sprintf("\n%s omitted: %s\n", k.Label(), html.EscapeString(r.Omitted[k])))
	}
	b.WriteString(fmt.Sprintf("\n💡 <b>%s</b>", r.Status))
	return b.String()
}
