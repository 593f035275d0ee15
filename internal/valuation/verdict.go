package valuation

import "ValuationBands/internal/model"

// Verdicts maps z-score thresholds to a status, checked top to bottom.
// A z-score matches the first row whose test passes.
var Verdicts = []struct {
	Match   func(z float64) bool
	Verdict model.Verdict
}{
	{func(z float64) bool { return z > 2 }, model.SignificantlyOvervalued},
	{func(z float64) bool { return z > 1 }, model.Overvalued},
	{func(z float64) bool { return z < -2 }, model.SignificantlyUndervalued},
	{func(z float64) bool { return z < -1 }, model.Undervalued},
}

// mapVerdict maps a z-score to its categorical status.
func mapVerdict(z float64) model.Verdict {
	for _, v := range Verdicts {
		if v.Match(z) {
			return v.Verdict
		}
	}
	return model.FairlyValued
}

// combine averages the z-scores of every computed ratio.
func combine(results map[model.RatioKind]*model.RatioResult) (float64, model.Verdict, bool) {
	if len(results) == 0 {
		return 0, model.InsufficientData, false
	}
	sum := 0.0
	for _, r := range results {
		sum += r.ZScore
	}
	avg := sum / float64(len(results))
	return avg, mapVerdict(avg), true
}
