package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// Observation is a single dated value. An invalid Value means missing.
type Observation struct {
	Date  time.Time
	Value null.Float
}

// DateSeries is an ordered run of daily observations, one per trading day.
type DateSeries []Observation

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDateSeries sorts obs by date and drops duplicate dates, keeping the last one seen.
func NewDateSeries(obs []Observation) DateSeries {
	byDay := make(map[time.Time]int, len(obs))
	out := make(DateSeries, 0, len(obs))
	for _, o := range obs {
		o.Date = Day(o.Date)
		if i, ok := byDay[o.Date]; ok {
			out[i] = o
			continue
		}
		byDay[o.Date] = len(out)
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Validate checks that dates are strictly increasing.
func (s DateSeries) Validate() error {
	for i := 1; i < len(s); i++ {
		if !s[i].Date.After(s[i-1].Date) {
			return fmt.Errorf("series not strictly increasing at %s", s[i].Date.Format(time.DateOnly))
		}
	}
	return nil
}

// Values returns the non-missing values in date order.
func (s DateSeries) Values() []float64 {
	out := make([]float64, 0, len(s))
	for _, o := range s {
		if o.Value.Valid {
			out = append(out, o.Value.Float64)
		}
	}
	return out
}

// Latest returns the last observation, valid or not.
func (s DateSeries) Latest() (Observation, bool) {
	if len(s) == 0 {
		return Observation{}, false
	}
	return s[len(s)-1], true
}

// LatestValid returns the last non-missing observation.
func (s DateSeries) LatestValid() (Observation, bool) {
	if i := s.LatestValidIndex(); i >= 0 {
		return s[i], true
	}
	return Observation{}, false
}

// LatestValidIndex returns the index of the last non-missing observation, or -1.
func (s DateSeries) LatestValidIndex() int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Value.Valid {
			return i
		}
	}
	return -1
}

// At returns the observation on the given day.
func (s DateSeries) At(day time.Time) (Observation, bool) {
	day = Day(day)
	i := sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(day) })
	if i < len(s) && s[i].Date.Equal(day) {
		return s[i], true
	}
	return Observation{}, false
}
