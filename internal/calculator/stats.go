package calculator

import (
	"math"
	"sort"

	"ValuationBands/internal/model"
)

// Stats is the statistics utility the scoring stage depends on.
type Stats interface {
	Mean(sample []float64) float64
	StdDev(sample []float64) float64
	PercentileRank(sample []float64, x float64) float64
}

// SampleStats computes sample statistics with Bessel's correction.
type SampleStats struct{}

var _ Stats = SampleStats{}

// Mean returns the arithmetic mean, 0 for an empty sample.
func (SampleStats) Mean(sample []float64) float64 {
	if len(sample) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range sample {
		sum += v
	}
	return sum / float64(len(sample))
}

// StdDev returns the sample standard deviation (n-1). It is exactly 0 for
// fewer than two values or when every value is identical.
func (s SampleStats) StdDev(sample []float64) float64 {
	n := len(sample)
	if n < 2 || allEqual(sample) {
		return 0
	}
	mean := s.Mean(sample)
	ss := 0.0
	for _, v := range sample {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// PercentileRank returns 100 * (count of sample values <= x) / len(sample).
func (SampleStats) PercentileRank(sample []float64, x float64) float64 {
	if len(sample) == 0 {
		return 0
	}
	sorted := append([]float64(nil), sample...)
	sort.Float64s(sorted)
	below := sort.Search(len(sorted), func(i int) bool { return sorted[i] > x })
	return 100 * float64(below) / float64(len(sorted))
}

func allEqual(sample []float64) bool {
	for _, v := range sample[1:] {
		if v != sample[0] {
			return false
		}
	}
	return true
}

// ZScore standardizes x; a zero standard deviation yields 0.
func ZScore(x, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (x - mean) / std
}

// Summarize computes the distribution of the non-missing values of a ratio series.
func Summarize(st Stats, ratios model.DateSeries) (model.DistributionSummary, error) {
	values := ratios.Values()
	if len(values) == 0 {
		return model.DistributionSummary{}, model.ErrInsufficientData
	}
	mean := st.Mean(values)
	std := st.StdDev(values)
	return model.DistributionSummary{
		Count:      len(values),
		Mean:       mean,
		StdDev:     std,
		Bands:      NewBands(mean, std),
		Degenerate: std == 0,
	}, nil
}
