package calculator

import (
	"github.com/guregu/null/v6"

	"ValuationBands/internal/model"
)

// NewBands builds mean ± 1σ and ± 2σ levels.
func NewBands(mean, std float64) model.Bands {
	return model.Bands{
		Minus2: mean - 2*std,
		Minus1: mean - std,
		Mean:   mean,
		Plus1:  mean + std,
		Plus2:  mean + 2*std,
	}
}

// BandSeries is one band level per day. Days with a missing fundamental are
// missing in price space.
type BandSeries struct {
	Minus2 model.DateSeries
	Minus1 model.DateSeries
	Mean   model.DateSeries
	Plus1  model.DateSeries
	Plus2  model.DateSeries
}

// Lines returns the series from +2σ down to −2σ.
func (b BandSeries) Lines() [5]model.DateSeries {
	return [5]model.DateSeries{b.Plus2, b.Plus1, b.Mean, b.Minus1, b.Minus2}
}

// RatioBands repeats the constant ratio-space bands on every day of dates.
func RatioBands(dates model.DateSeries, bands model.Bands) BandSeries {
	return bandSeries(dates, func(obs model.Observation) (model.Bands, bool) { return bands, true })
}

// PriceBands multiplies each band by the day's fundamental so the bands
// follow the fundamental instead of staying flat.
func PriceBands(fundamental model.DateSeries, bands model.Bands) BandSeries {
	return bandSeries(fundamental, func(obs model.Observation) (model.Bands, bool) {
		if !obs.Value.Valid || obs.Value.Float64 <= 0 {
			return model.Bands{}, false
		}
		return bands.Scale(obs.Value.Float64), true
	})
}

func bandSeries(src model.DateSeries, at func(model.Observation) (model.Bands, bool)) BandSeries {
	out := BandSeries{
		Minus2: make(model.DateSeries, len(src)),
		Minus1: make(model.DateSeries, len(src)),
		Mean:   make(model.DateSeries, len(src)),
		Plus1:  make(model.DateSeries, len(src)),
		Plus2:  make(model.DateSeries, len(src)),
	}
	for i, obs := range src {
		b, ok := at(obs)
		set := func(s model.DateSeries, v float64) {
			s[i] = model.Observation{Date: obs.Date}
			if ok {
				s[i].Value = null.FloatFrom(v)
			}
		}
		set(out.Minus2, b.Minus2)
		set(out.Minus1, b.Minus1)
		set(out.Mean, b.Mean)
		set(out.Plus1, b.Plus1)
		set(out.Plus2, b.Plus2)
	}
	return out
}
