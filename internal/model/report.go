package model

import (
	"errors"
	"time"

	"github.com/guregu/null/v6"
)

var (
	// ErrProviderUnavailable means a fetch failed or returned nothing; the run for that symbol stops.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrInsufficientData means a ratio had no valid observations; the ratio is omitted.
	ErrInsufficientData = errors.New("insufficient data")
)

// Verdict is the categorical valuation status.
type Verdict string

const (
	SignificantlyOvervalued  Verdict = "significantly overvalued"
	Overvalued               Verdict = "overvalued"
	FairlyValued             Verdict = "fairly valued"
	Undervalued              Verdict = "undervalued"
	SignificantlyUndervalued Verdict = "significantly undervalued"
	InsufficientData         Verdict = "insufficient data"
)

// Bands are the mean ± 1σ and ± 2σ reference levels.
type Bands struct {
	Minus2 float64
	Minus1 float64
	Mean   float64
	Plus1  float64
	Plus2  float64
}

// Scale multiplies every band by f, moving ratio-space bands into price space.
func (b Bands) Scale(f float64) Bands {
	return Bands{Minus2: b.Minus2 * f, Minus1: b.Minus1 * f, Mean: b.Mean * f, Plus1: b.Plus1 * f, Plus2: b.Plus2 * f}
}

// Levels returns the bands from +2σ down to −2σ.
func (b Bands) Levels() [5]float64 {
	return [5]float64{b.Plus2, b.Plus1, b.Mean, b.Minus1, b.Minus2}
}

// DistributionSummary describes the historical ratio distribution.
type DistributionSummary struct {
	Count  int
	Mean   float64
	StdDev float64
	Bands  Bands
	// Degenerate is set when StdDev is zero (single sample or identical values).
	Degenerate bool
}

// RatioResult is everything computed for one ratio kind.
type RatioResult struct {
	Kind        RatioKind
	Ratios      DateSeries // price / fundamental
	Fundamental DateSeries // aligned fundamental
	Summary     DistributionSummary

	CurrentDate        time.Time
	CurrentRatio       float64
	CurrentFundamental float64
	ZScore             float64
	Percentile         float64
	Status             Verdict

	// Fair value range: price-space ±1σ bands at the current fundamental.
	FairValueLow    float64
	FairValueMid    float64
	FairValueHigh   float64
	DistanceFromLow float64 // percent of current price above FairValueLow
}

// ValuationReport combines every ratio computed for one symbol.
type ValuationReport struct {
	RunID        string
	Symbol       string
	AsOf         time.Time
	CurrentPrice float64
	Prices       DateSeries
	Ratios       map[RatioKind]*RatioResult
	Omitted      map[RatioKind]string
	AverageZ     null.Float
	Status       Verdict
}

// Kinds returns the computed kinds in canonical order.
func (r *ValuationReport) Kinds() []RatioKind {
	out := make([]RatioKind, 0, len(r.Ratios))
	for _, k := range AllRatioKinds {
		if _, ok := r.Ratios[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
