package calculator

import (
	"errors"

	"github.com/guregu/null/v6"

	"ValuationBands/internal/model"
)

// Ratio divides prices by the aligned fundamental day by day. A day is missing
// when either side is missing or the fundamental is not positive.
func Ratio(prices, fundamental model.DateSeries) (model.DateSeries, error) {
	if len(prices) != len(fundamental) {
		return nil, errors.New("price and fundamental series differ in length")
	}
	out := make(model.DateSeries, len(prices))
	for i, p := range prices {
		f := fundamental[i]
		if !p.Date.Equal(f.Date) {
			return nil, errors.New("price and fundamental series are not date aligned")
		}
		obs := model.Observation{Date: p.Date}
		if p.Value.Valid && f.Value.Valid && f.Value.Float64 > 0 {
			obs.Value = null.FloatFrom(p.Value.Float64 / f.Value.Float64)
		}
		out[i] = obs
	}
	return out, nil
}
