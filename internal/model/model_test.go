package model

import (
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDateSeries_SortsAndDedups(t *testing.T) {
	loc := time.FixedZone("HKT", 8*3600)
	s := NewDateSeries([]Observation{
		{Date: time.Date(2021, 1, 5, 16, 0, 0, 0, loc), Value: null.FloatFrom(3)},
		{Date: time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), Value: null.FloatFrom(1)},
		{Date: time.Date(2021, 1, 5, 9, 30, 0, 0, loc), Value: null.FloatFrom(2)},
	})
	require.Len(t, s, 2)
	require.NoError(t, s.Validate())
	assert.Equal(t, time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), s[0].Date)
	assert.Equal(t, 2.0, s[1].Value.Float64, "last duplicate wins")

	obs, ok := s.At(time.Date(2021, 1, 5, 23, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 2.0, obs.Value.Float64)
	_, ok = s.At(time.Date(2021, 1, 6, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestDateSeries_ValidateRejectsDuplicates(t *testing.T) {
	d := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	s := DateSeries{{Date: d}, {Date: d}}
	assert.Error(t, s.Validate())
}

func TestDateSeries_LatestValid(t *testing.T) {
	s := DateSeries{
		{Date: time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), Value: null.FloatFrom(7)},
		{Date: time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC)},
	}
	last, ok := s.Latest()
	require.True(t, ok)
	assert.False(t, last.Value.Valid)

	valid, ok := s.LatestValid()
	require.True(t, ok)
	assert.Equal(t, 7.0, valid.Value.Float64)
	assert.Equal(t, []float64{7}, s.Values())

	_, ok = DateSeries{}.LatestValid()
	assert.False(t, ok)
	assert.Equal(t, 0, s.LatestValidIndex())
	assert.Equal(t, -1, DateSeries{}.LatestValidIndex())
}

func TestParseRatioKind(t *testing.T) {
	tests := []struct {
		in   string
		want RatioKind
	}{
		{"pe", Earnings},
		{"P/E", Earnings},
		{"eps", Earnings},
		{" PB ", Book},
		{"sps", Sales},
		{"p/ocf", CashFlow},
	}
	for _, tt := range tests {
		got, err := ParseRatioKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseRatioKind("ev/ebitda")
	assert.Error(t, err)

	kinds, err := ParseRatioKinds([]string{"pe", "eps", "", "ps"})
	require.NoError(t, err)
	assert.Equal(t, []RatioKind{Earnings, Sales}, kinds)
	assert.Equal(t, []string{"eps", "sps"}, Metrics(kinds))
}

func TestFundamentalSet_OneRecordPerSlot(t *testing.T) {
	set := NewFundamentalSet([]FundamentalRecord{
		{FiscalYear: 2020, Metrics: map[string]float64{"eps": 1}},
		{FiscalYear: 2021, Metrics: map[string]float64{"eps": 2, "bvps": 9}},
		{FiscalYear: 2020, Metrics: map[string]float64{"eps": 1.5}},
		{FiscalYear: 2021, Metrics: map[string]float64{"eps": 3}, IsTTM: true},
		{FiscalYear: 2021, Metrics: map[string]float64{"eps": 4}, IsTTM: true},
	})
	assert.Equal(t, 2, set.Replaced)
	assert.Equal(t, []int{2020, 2021}, set.Years())
	assert.Equal(t, map[int]float64{2020: 1.5, 2021: 2}, set.ByYear("eps"))
	assert.Equal(t, map[int]float64{2021: 9}, set.ByYear("bvps"))
	require.NotNil(t, set.TTM)
	assert.Equal(t, 4.0, set.TTM.Metrics["eps"])
	assert.Len(t, set.Records(), 3)
}

func TestBands_Scale(t *testing.T) {
	b := Bands{Minus2: 1, Minus1: 2, Mean: 3, Plus1: 4, Plus2: 5}
	assert.Equal(t, [5]float64{10, 8, 6, 4, 2}, b.Scale(2).Levels())
}
