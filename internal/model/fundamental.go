package model

import "sort"

// FundamentalRecord holds per-share metric values for one fiscal year, or the
// trailing-twelve-month figures when IsTTM is set.
type FundamentalRecord struct {
	FiscalYear int
	Metrics    map[string]float64
	IsTTM      bool
}

// Metric returns the named value when present.
func (r FundamentalRecord) Metric(name string) (float64, bool) {
	v, ok := r.Metrics[name]
	return v, ok
}

// FundamentalSet is the deduplicated view of a symbol's records: at most one
// annual record per fiscal year and at most one TTM record.
type FundamentalSet struct {
	Annual map[int]FundamentalRecord
	TTM    *FundamentalRecord
	// Replaced counts records that overwrote an earlier one for the same slot.
	Replaced int
}

// NewFundamentalSet indexes records; later records win over earlier duplicates.
func NewFundamentalSet(records []FundamentalRecord) FundamentalSet {
	set := FundamentalSet{Annual: make(map[int]FundamentalRecord, len(records))}
	for _, r := range records {
		if r.IsTTM {
			if set.TTM != nil {
				set.Replaced++
			}
			rec := r
			set.TTM = &rec
			continue
		}
		if _, ok := set.Annual[r.FiscalYear]; ok {
			set.Replaced++
		}
		set.Annual[r.FiscalYear] = r
	}
	return set
}

// Years returns the fiscal years with an annual record, ascending.
func (s FundamentalSet) Years() []int {
	years := make([]int, 0, len(s.Annual))
	for y := range s.Annual {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// ByYear returns year -> value for one metric, skipping years that lack it.
func (s FundamentalSet) ByYear(metric string) map[int]float64 {
	out := make(map[int]float64, len(s.Annual))
	for y, r := range s.Annual {
		if v, ok := r.Metric(metric); ok {
			out[y] = v
		}
	}
	return out
}

// Records flattens the set back into a slice, annual years ascending then TTM.
func (s FundamentalSet) Records() []FundamentalRecord {
	out := make([]FundamentalRecord, 0, len(s.Annual)+1)
	for _, y := range s.Years() {
		out = append(out, s.Annual[y])
	}
	if s.TTM != nil {
		out = append(out, *s.TTM)
	}
	return out
}
