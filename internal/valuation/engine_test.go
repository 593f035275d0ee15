package valuation

import (
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ValuationBands/internal/calculator"
	"ValuationBands/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type pt = struct {
	d time.Time
	v float64
}

func prices(points ...pt) model.DateSeries {
	obs := make([]model.Observation, len(points))
	for i, p := range points {
		obs[i] = model.Observation{Date: p.d, Value: null.FloatFrom(p.v)}
	}
	return model.NewDateSeries(obs)
}

func eps(values map[int]float64) []model.FundamentalRecord {
	out := make([]model.FundamentalRecord, 0, len(values))
	for y, v := range values {
		out = append(out, model.FundamentalRecord{FiscalYear: y, Metrics: map[string]float64{"eps": v}})
	}
	return out
}

func testEngine(now time.Time) *Engine {
	e := NewEngine(zap.NewNop(), DefaultTTMWindowMonths)
	e.Now = func() time.Time { return now }
	return e
}

func TestEvaluate_FlatRatioIsFairlyValued(t *testing.T) {
	e := testEngine(day(2021, 12, 31))
	p := prices(pt{day(2020, 6, 1), 20}, pt{day(2021, 6, 1), 40})

	report, err := e.Evaluate("TEST", p, eps(map[int]float64{2020: 2.0, 2021: 4.0}), []model.RatioKind{model.Earnings})
	require.NoError(t, err)
	require.Contains(t, report.Ratios, model.Earnings)

	r := report.Ratios[model.Earnings]
	assert.Equal(t, 10.0, r.Summary.Mean)
	assert.Equal(t, 0.0, r.Summary.StdDev)
	assert.True(t, r.Summary.Degenerate)
	assert.Equal(t, 0.0, r.ZScore)
	assert.Equal(t, 100.0, r.Percentile)
	assert.Equal(t, model.FairlyValued, r.Status)
	assert.Equal(t, model.FairlyValued, report.Status)
	assert.Equal(t, null.FloatFrom(0), report.AverageZ)
	assert.NotEmpty(t, report.RunID)
}

func TestEvaluate_OvervaluedAtTop(t *testing.T) {
	e := testEngine(day(2020, 12, 31))
	p := prices(
		pt{day(2016, 6, 1), 5},
		pt{day(2017, 6, 1), 10},
		pt{day(2018, 6, 1), 15},
		pt{day(2019, 6, 1), 20},
		pt{day(2020, 6, 1), 25},
	)
	recs := eps(map[int]float64{2016: 1, 2017: 1, 2018: 1, 2019: 1, 2020: 1})

	report, err := e.Evaluate("TEST", p, recs, []model.RatioKind{model.Earnings})
	require.NoError(t, err)
	r := report.Ratios[model.Earnings]
	assert.Equal(t, 15.0, r.Summary.Mean)
	assert.InDelta(t, 7.906, r.Summary.StdDev, 0.001)
	assert.InDelta(t, 1.265, r.ZScore, 0.001)
	assert.Equal(t, 100.0, r.Percentile)
	assert.Equal(t, model.Overvalued, r.Status)
	assert.Equal(t, model.Overvalued, report.Status)

	assert.InDelta(t, 15-7.906, r.FairValueLow, 0.001)
	assert.InDelta(t, 15.0, r.FairValueMid, 1e-9)
	assert.InDelta(t, 15+7.906, r.FairValueHigh, 0.001)
	assert.InDelta(t, (25-r.FairValueLow)/25*100, r.DistanceFromLow, 1e-9)
}

func TestEvaluate_MissingCurrentYear(t *testing.T) {
	e := testEngine(day(2022, 6, 30))
	p := prices(pt{day(2020, 6, 1), 20}, pt{day(2021, 6, 1), 40}, pt{day(2022, 6, 1), 90})

	report, err := e.Evaluate("TEST", p, eps(map[int]float64{2020: 2.0, 2021: 4.0}), []model.RatioKind{model.Earnings})
	require.NoError(t, err)
	r := report.Ratios[model.Earnings]
	assert.False(t, r.Ratios[2].Value.Valid, "2022 ratio must be missing")
	assert.Equal(t, 2, r.Summary.Count, "missing day excluded from the statistics")
	assert.Equal(t, day(2021, 6, 1), r.CurrentDate)
	assert.Equal(t, 10.0, r.CurrentRatio)
	assert.Equal(t, 90.0, report.CurrentPrice)
	assert.Equal(t, day(2022, 6, 1), report.AsOf)
}

func TestEvaluate_OmitsRatioWithoutData(t *testing.T) {
	e := testEngine(day(2021, 12, 31))
	p := prices(pt{day(2020, 6, 1), 20}, pt{day(2021, 6, 1), 40})

	report, err := e.Evaluate("TEST", p, eps(map[int]float64{2020: 2.0, 2021: 4.0}),
		[]model.RatioKind{model.Earnings, model.Book})
	require.NoError(t, err)
	assert.Contains(t, report.Ratios, model.Earnings)
	assert.NotContains(t, report.Ratios, model.Book)
	assert.Contains(t, report.Omitted[model.Book], "insufficient data")
	assert.Equal(t, []model.RatioKind{model.Earnings}, report.Kinds())
}

func TestEvaluate_NoValidRatioIsInsufficientData(t *testing.T) {
	e := testEngine(day(2021, 12, 31))
	p := prices(pt{day(2020, 6, 1), 20})

	report, err := e.Evaluate("TEST", p, nil, []model.RatioKind{model.Earnings, model.Sales})
	require.NoError(t, err)
	assert.Empty(t, report.Ratios)
	assert.False(t, report.AverageZ.Valid)
	assert.Equal(t, model.InsufficientData, report.Status)
}

func TestEvaluate_NoPrices(t *testing.T) {
	e := testEngine(day(2021, 12, 31))
	_, err := e.Evaluate("TEST", nil, nil, []model.RatioKind{model.Earnings})
	assert.ErrorIs(t, err, model.ErrProviderUnavailable)
}

func TestEvaluate_RejectsUnsortedPrices(t *testing.T) {
	e := testEngine(day(2021, 12, 31))
	unsorted := model.DateSeries{
		{Date: day(2021, 6, 1), Value: null.FloatFrom(40)},
		{Date: day(2020, 6, 1), Value: null.FloatFrom(20)},
	}
	_, err := e.Evaluate("TEST", unsorted, eps(map[int]float64{2020: 2.0, 2021: 4.0}), []model.RatioKind{model.Earnings})
	assert.ErrorContains(t, err, "not strictly increasing")
}

func TestEvaluateRatio_CurrentFundamentalMatchesCurrentDay(t *testing.T) {
	e := testEngine(day(2022, 6, 30))
	p := prices(pt{day(2020, 6, 1), 20}, pt{day(2021, 6, 1), 40}, pt{day(2022, 6, 1), 90})
	set := model.NewFundamentalSet(eps(map[int]float64{2020: 2.0, 2021: 4.0}))

	r, err := e.EvaluateRatio(model.Earnings, p, set, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, day(2021, 6, 1), r.CurrentDate)
	assert.Equal(t, 4.0, r.CurrentFundamental)
	assert.InDelta(t, 40.0, r.FairValueMid, 1e-9)
}

func TestEvaluate_AveragesZScores(t *testing.T) {
	e := testEngine(day(2020, 12, 31))
	p := prices(
		pt{day(2016, 6, 1), 5},
		pt{day(2017, 6, 1), 10},
		pt{day(2018, 6, 1), 15},
		pt{day(2019, 6, 1), 20},
		pt{day(2020, 6, 1), 25},
	)
	recs := []model.FundamentalRecord{
		{FiscalYear: 2016, Metrics: map[string]float64{"eps": 1, "sps": 1}},
		{FiscalYear: 2017, Metrics: map[string]float64{"eps": 1, "sps": 1}},
		{FiscalYear: 2018, Metrics: map[string]float64{"eps": 1, "sps": 1}},
		{FiscalYear: 2019, Metrics: map[string]float64{"eps": 1, "sps": 1}},
		{FiscalYear: 2020, Metrics: map[string]float64{"eps": 1, "sps": 5}},
	}
	report, err := e.Evaluate("TEST", p, recs, []model.RatioKind{model.Earnings, model.Sales})
	require.NoError(t, err)
	require.Len(t, report.Ratios, 2)

	want := (report.Ratios[model.Earnings].ZScore + report.Ratios[model.Sales].ZScore) / 2
	assert.InDelta(t, want, report.AverageZ.Float64, 1e-12)
	assert.Equal(t, mapVerdict(want), report.Status)
}

func TestEvaluate_TTMReplacesRecentDays(t *testing.T) {
	e := testEngine(day(2021, 6, 15))
	p := prices(pt{day(2021, 1, 4), 20}, pt{day(2021, 6, 14), 30})
	recs := []model.FundamentalRecord{
		{FiscalYear: 2021, Metrics: map[string]float64{"eps": 2}},
		{FiscalYear: 2021, Metrics: map[string]float64{"eps": 3}, IsTTM: true},
	}
	report, err := e.Evaluate("TEST", p, recs, []model.RatioKind{model.Earnings})
	require.NoError(t, err)
	r := report.Ratios[model.Earnings]
	assert.Equal(t, 10.0, r.Ratios[0].Value.Float64)
	assert.Equal(t, 10.0, r.Ratios[1].Value.Float64)
	assert.Equal(t, 3.0, r.CurrentFundamental)
}

type fixedPercentile struct{ calculator.SampleStats }

func (fixedPercentile) PercentileRank([]float64, float64) float64 { return 42 }

func TestEvaluate_UsesInjectedStats(t *testing.T) {
	e := testEngine(day(2021, 12, 31))
	e.Stats = fixedPercentile{}
	p := prices(pt{day(2020, 6, 1), 20}, pt{day(2021, 6, 1), 40})

	report, err := e.Evaluate("TEST", p, eps(map[int]float64{2020: 2, 2021: 4}), []model.RatioKind{model.Earnings})
	require.NoError(t, err)
	assert.Equal(t, 42.0, report.Ratios[model.Earnings].Percentile)
}

func TestMapVerdict_AllBoundaries(t *testing.T) {
	tests := []struct {
		z    float64
		want model.Verdict
	}{
		{3.0, model.SignificantlyOvervalued},
		{2.0001, model.SignificantlyOvervalued},
		{2.0, model.Overvalued},
		{1.265, model.Overvalued},
		{1.0, model.FairlyValued},
		{0.0, model.FairlyValued},
		{-1.0, model.FairlyValued},
		{-1.0001, model.Undervalued},
		{-2.0, model.Undervalued},
		{-2.0001, model.SignificantlyUndervalued},
		{-5.0, model.SignificantlyUndervalued},
	}
	for _, tt := range tests {
		if got := mapVerdict(tt.z); got != tt.want {
			t.Errorf("z %.4f: expected %q, got %q", tt.z, tt.want, got)
		}
	}
}
