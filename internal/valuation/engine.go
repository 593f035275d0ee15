package valuation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"go.uber.org/zap"

	"ValuationBands/internal/calculator"
	"ValuationBands/internal/model"
)

// DefaultTTMWindowMonths is how far back from the current month TTM figures apply.
const DefaultTTMWindowMonths = 3

// Engine turns prices and fundamentals into a ValuationReport.
type Engine struct {
	Stats           calculator.Stats
	Logger          *zap.Logger
	TTMWindowMonths int
	Now             func() time.Time
}

// NewEngine creates an Engine with sample statistics and the wall clock.
func NewEngine(logger *zap.Logger, ttmWindowMonths int) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Stats:           calculator.SampleStats{},
		Logger:          logger,
		TTMWindowMonths: ttmWindowMonths,
		Now:             time.Now,
	}
}

// Evaluate computes every requested ratio for one symbol. A ratio without
// valid observations is omitted with its reason; the report itself only fails
// when prices are absent or not strictly increasing by date.
func (e *Engine) Evaluate(symbol string, prices model.DateSeries, records []model.FundamentalRecord, kinds []model.RatioKind) (*model.ValuationReport, error) {
	if err := prices.Validate(); err != nil {
		return nil, fmt.Errorf("%s: prices: %w", symbol, err)
	}
	last, ok := prices.LatestValid()
	if !ok {
		return nil, fmt.Errorf("%s: no prices: %w", symbol, model.ErrProviderUnavailable)
	}

	report := &model.ValuationReport{
		RunID:        uuid.NewString(),
		Symbol:       symbol,
		AsOf:         last.Date,
		CurrentPrice: last.Value.Float64,
		Prices:       prices,
		Ratios:       make(map[model.RatioKind]*model.RatioResult, len(kinds)),
		Omitted:      make(map[model.RatioKind]string),
	}
	log := e.Logger.With(zap.String("symbol", symbol), zap.String("run_id", report.RunID))

	set := model.NewFundamentalSet(records)
	if set.Replaced > 0 {
		log.Warn("duplicate fundamental records replaced", zap.Int("count", set.Replaced))
	}
	cutoff := calculator.TTMCutoff(e.now(), e.TTMWindowMonths)

	for _, kind := range kinds {
		res, err := e.EvaluateRatio(kind, prices, set, cutoff)
		if err != nil {
			log.Warn("ratio omitted", zap.String("ratio", kind.Label()), zap.Error(err))
			report.Omitted[kind] = err.Error()
			continue
		}
		res.DistanceFromLow = distance(report.CurrentPrice, res.FairValueLow)
		report.Ratios[kind] = res
		if res.Summary.Degenerate {
			log.Info("degenerate distribution, z-score set to 0",
				zap.String("ratio", kind.Label()), zap.Int("count", res.Summary.Count))
		}
	}

	if avg, verdict, ok := combine(report.Ratios); ok {
		report.AverageZ = null.FloatFrom(avg)
		report.Status = verdict
	} else {
		report.Status = model.InsufficientData
	}

	log.Info("valuation computed",
		zap.Int("ratios", len(report.Ratios)),
		zap.Int("omitted", len(report.Omitted)),
		zap.String("status", string(report.Status)))
	return report, nil
}

// EvaluateRatio runs alignment, ratio, statistics and scoring for one kind.
func (e *Engine) EvaluateRatio(kind model.RatioKind, prices model.DateSeries, set model.FundamentalSet, cutoff time.Time) (*model.RatioResult, error) {
	aligned := calculator.Align(prices, set, kind.Metric(), cutoff)
	ratios, err := calculator.Ratio(prices, aligned)
	if err != nil {
		return nil, err
	}
	summary, err := calculator.Summarize(e.Stats, ratios)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind.Label(), err)
	}
	i := ratios.LatestValidIndex()
	if i < 0 {
		return nil, fmt.Errorf("%s: %w", kind.Label(), model.ErrInsufficientData)
	}
	current, fundamental := ratios[i], aligned[i]

	z := calculator.ZScore(current.Value.Float64, summary.Mean, summary.StdDev)
	res := &model.RatioResult{
		Kind:               kind,
		Ratios:             ratios,
		Fundamental:        aligned,
		Summary:            summary,
		CurrentDate:        current.Date,
		CurrentRatio:       current.Value.Float64,
		CurrentFundamental: fundamental.Value.Float64,
		ZScore:             z,
		Percentile:         e.Stats.PercentileRank(ratios.Values(), current.Value.Float64),
		Status:             mapVerdict(z),
	}
	fair := summary.Bands.Scale(res.CurrentFundamental)
	res.FairValueLow, res.FairValueMid, res.FairValueHigh = fair.Minus1, fair.Mean, fair.Plus1
	return res, nil
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func distance(price, low float64) float64 {
	if price <= 0 {
		return 0
	}
	return (price - low) / price * 100
}

