package calculator

import (
	"time"

	"github.com/guregu/null/v6"

	"ValuationBands/internal/model"
)

// TTMCutoff returns the first day of the month windowMonths before now's month.
// Days on or after it use the TTM figure. A window <= 0 disables substitution
// and yields the zero time.
func TTMCutoff(now time.Time, windowMonths int) time.Time {
	if windowMonths <= 0 {
		return time.Time{}
	}
	y, m, _ := now.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -windowMonths, 0)
}

// Align broadcasts the annual value of metric onto every day of prices whose
// calendar year matches a fiscal year. Years without a record stay missing.
// When the set holds a TTM value for metric, days on or after cutoff take it
// instead of the annual figure.
func Align(prices model.DateSeries, set model.FundamentalSet, metric string, cutoff time.Time) model.DateSeries {
	byYear := set.ByYear(metric)

	var ttm null.Float
	if set.TTM != nil && !cutoff.IsZero() {
		if v, ok := set.TTM.Metric(metric); ok {
			ttm = null.FloatFrom(v)
		}
	}

	out := make(model.DateSeries, len(prices))
	for i, p := range prices {
		obs := model.Observation{Date: p.Date}
		if v, ok := byYear[p.Date.Year()]; ok {
			obs.Value = null.FloatFrom(v)
		}
		if ttm.Valid && !p.Date.Before(cutoff) {
			obs.Value = ttm
		}
		out[i] = obs
	}
	return out
}
