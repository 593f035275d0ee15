package chart

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"ValuationBands/internal/calculator"
	"ValuationBands/internal/model"
)

// Mode selects the space the bands are drawn in.
type Mode string

const (
	// ModeRatio plots the ratio against flat bands.
	ModeRatio Mode = "ratio"
	// ModePrice plots the close against bands scaled by the day's fundamental.
	ModePrice Mode = "price"
)

// ParseMode accepts "ratio" or "price".
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeRatio, ModePrice:
		return m, nil
	}
	return "", fmt.Errorf("unknown chart mode %q (want ratio or price)", s)
}

type rgb struct{ r, g, b int }

// Band colours from +2σ down to −2σ.
var bandColors = [5]rgb{
	{220, 40, 40},
	{240, 150, 30},
	{40, 160, 60},
	{40, 90, 220},
	{140, 60, 180},
}

var bandNames = [5]string{"+2 SD", "+1 SD", "Mean", "-1 SD", "-2 SD"}

var (
	lineColor  = rgb{20, 20, 20}
	outerShade = rgb{235, 240, 248}
	innerShade = rgb{210, 222, 240}
)

// Page geometry in mm on landscape A4.
const (
	plotX = 22.0
	plotY = 28.0
	plotW = 250.0
	plotH = 150.0
)

// Renderer writes valuation band charts as PDF.
type Renderer struct {
	Logger *zap.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{Logger: logger}
}

// Render writes one page per computed ratio of the report.
func (r *Renderer) Render(w io.Writer, report *model.ValuationReport, mode Mode) error {
	kinds := report.Kinds()
	if len(kinds) == 0 {
		return fmt.Errorf("%s: nothing to plot: %w", report.Symbol, model.ErrInsufficientData)
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(report.Symbol+" valuation bands", false)
	pdf.SetAutoPageBreak(false, 0)

	for _, kind := range kinds {
		res := report.Ratios[kind]
		p := newPage(res, report.Prices, mode)
		p.draw(pdf, fmt.Sprintf("%s Historical %s", report.Symbol, kind.Label()))
		r.Logger.Debug("chart page drawn",
			zap.String("symbol", report.Symbol), zap.String("ratio", kind.Label()),
			zap.String("mode", string(mode)), zap.Int("points", len(p.main)))
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

type page struct {
	mainLabel string
	main      model.DateSeries
	bands     calculator.BandSeries
	summary   model.DistributionSummary
	mode      Mode

	start, end time.Time
	lo, hi     float64
}

func newPage(res *model.RatioResult, prices model.DateSeries, mode Mode) *page {
	p := &page{summary: res.Summary, mode: mode}
	if mode == ModePrice && len(prices) > 0 {
		p.mainLabel = "Price"
		p.main = prices
		p.bands = calculator.PriceBands(res.Fundamental, res.Summary.Bands)
	} else {
		p.mainLabel = res.Kind.Label()
		p.main = res.Ratios
		p.bands = calculator.RatioBands(res.Ratios, res.Summary.Bands)
	}
	p.bounds()
	return p
}

func (p *page) bounds() {
	p.lo, p.hi = math.Inf(1), math.Inf(-1)
	lines := p.bands.Lines()
	series := append([]model.DateSeries{p.main}, lines[:]...)
	for _, s := range series {
		for _, obs := range s {
			if !obs.Value.Valid {
				continue
			}
			if p.start.IsZero() || obs.Date.Before(p.start) {
				p.start = obs.Date
			}
			if obs.Date.After(p.end) {
				p.end = obs.Date
			}
			p.lo = math.Min(p.lo, obs.Value.Float64)
			p.hi = math.Max(p.hi, obs.Value.Float64)
		}
	}
	if math.IsInf(p.lo, 0) {
		p.lo, p.hi = 0, 1
	}
	if p.hi == p.lo {
		p.lo, p.hi = p.lo-1, p.hi+1
	}
	pad := (p.hi - p.lo) * 0.05
	p.lo, p.hi = p.lo-pad, p.hi+pad
}

func (p *page) x(t time.Time) float64 {
	span := p.end.Sub(p.start)
	if span <= 0 {
		return plotX + plotW/2
	}
	return plotX + plotW*float64(t.Sub(p.start))/float64(span)
}

func (p *page) y(v float64) float64 {
	return plotY + plotH*(p.hi-v)/(p.hi-p.lo)
}

func (p *page) draw(pdf *fpdf.Fpdf, title string) {
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.Text(plotX, 16, title)
	pdf.SetFont("Helvetica", "", 8)
	pdf.Text(plotX, 22, fmt.Sprintf("mean %.2f, std %.2f, n=%d, %s space",
		p.summary.Mean, p.summary.StdDev, p.summary.Count, p.mode))

	p.shade(pdf, p.bands.Plus2, p.bands.Minus2, outerShade)
	p.shade(pdf, p.bands.Plus1, p.bands.Minus1, innerShade)

	pdf.SetLineWidth(0.3)
	pdf.SetDashPattern([]float64{2, 1.5}, 0)
	for i, line := range p.bands.Lines() {
		c := bandColors[i]
		pdf.SetDrawColor(c.r, c.g, c.b)
		p.polyline(pdf, line)
	}
	pdf.SetDashPattern([]float64{}, 0)

	pdf.SetLineWidth(0.5)
	pdf.SetDrawColor(lineColor.r, lineColor.g, lineColor.b)
	p.polyline(pdf, p.main)

	p.axes(pdf)
	p.legend(pdf)
}

// runs returns the [start, end) index ranges of consecutive valid observations.
func runs(s model.DateSeries) [][2]int {
	var out [][2]int
	start := -1
	for i, obs := range s {
		switch {
		case obs.Value.Valid && start < 0:
			start = i
		case !obs.Value.Valid && start >= 0:
			out = append(out, [2]int{start, i})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, [2]int{start, len(s)})
	}
	return out
}

func (p *page) point(obs model.Observation) fpdf.PointType {
	return fpdf.PointType{X: p.x(obs.Date), Y: p.y(obs.Value.Float64)}
}

// polyline draws s, leaving a gap wherever a value is missing.
func (p *page) polyline(pdf *fpdf.Fpdf, s model.DateSeries) {
	for _, run := range runs(s) {
		for i := run[0] + 1; i < run[1]; i++ {
			a, b := p.point(s[i-1]), p.point(s[i])
			pdf.Line(a.X, a.Y, b.X, b.Y)
		}
	}
}

// shade fills the area between upper and lower on days where both are present.
func (p *page) shade(pdf *fpdf.Fpdf, upper, lower model.DateSeries, c rgb) {
	if len(upper) != len(lower) {
		return
	}
	both := make(model.DateSeries, len(upper))
	for i := range upper {
		both[i] = upper[i]
		both[i].Value.Valid = upper[i].Value.Valid && lower[i].Value.Valid
	}

	pdf.SetFillColor(c.r, c.g, c.b)
	for _, run := range runs(both) {
		if run[1]-run[0] < 2 {
			continue
		}
		pts := make([]fpdf.PointType, 0, 2*(run[1]-run[0]))
		for i := run[0]; i < run[1]; i++ {
			pts = append(pts, p.point(upper[i]))
		}
		for i := run[1] - 1; i >= run[0]; i-- {
			pts = append(pts, p.point(lower[i]))
		}
		pdf.Polygon(pts, "F")
	}
}

func (p *page) axes(pdf *fpdf.Fpdf) {
	pdf.SetLineWidth(0.2)
	pdf.SetDrawColor(120, 120, 120)
	pdf.Rect(plotX, plotY, plotW, plotH, "D")

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(60, 60, 60)
	pdf.Text(4, p.y(p.hi)+3, fmt.Sprintf("%.2f", p.hi))
	pdf.Text(4, p.y(p.lo), fmt.Sprintf("%.2f", p.lo))

	if p.start.IsZero() {
		return
	}
	for year := p.start.Year() + 1; year <= p.end.Year(); year++ {
		tx := p.x(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC))
		pdf.Line(tx, plotY+plotH, tx, plotY+plotH+1.5)
		pdf.Text(tx-3.5, plotY+plotH+5, fmt.Sprint(year))
	}
	pdf.Text(plotX, plotY+plotH+10, p.start.Format("2006-01-02"))
	pdf.Text(plotX+plotW-16, plotY+plotH+10, p.end.Format("2006-01-02"))
}

func (p *page) legend(pdf *fpdf.Fpdf) {
	x := plotX + plotW - 45
	y := 10.0
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(0, 0, 0)

	entry := func(c rgb, dashed bool, label string) {
		pdf.SetDrawColor(c.r, c.g, c.b)
		if dashed {
			pdf.SetDashPattern([]float64{2, 1.5}, 0)
		}
		pdf.Line(x, y, x+8, y)
		pdf.SetDashPattern([]float64{}, 0)
		pdf.Text(x+10, y+1, label)
		y += 3
	}

	entry(lineColor, false, p.mainLabel)
	levels := p.summary.Bands.Levels()
	for i := range bandColors {
		label := fmt.Sprintf("%s (%.2f)", bandNames[i], levels[i])
		if p.mode == ModePrice {
			label = fmt.Sprintf("%s (%.2f x fundamental)", bandNames[i], levels[i])
		}
		entry(bandColors[i], true, label)
	}
}
