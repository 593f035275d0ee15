package model

import (
	"fmt"
	"strings"
)

// RatioKind identifies a valuation multiple.
type RatioKind int

const (
	Earnings RatioKind = iota // P/E
	Book                      // P/B
	Sales                     // P/S
	CashFlow                  // P/OCF
)

// AllRatioKinds lists every supported kind in report order.
var AllRatioKinds = []RatioKind{Earnings, Book, Sales, CashFlow}

var ratioKindInfo = map[RatioKind]struct {
	label, metric, code string
}{
	Earnings: {"P/E", "eps", "pe"},
	Book:     {"P/B", "bvps", "pb"},
	Sales:    {"P/S", "sps", "ps"},
	CashFlow: {"P/OCF", "ocfps", "pocf"},
}

// Label is the display name, e.g. "P/E".
func (k RatioKind) Label() string { return ratioKindInfo[k].label }

// Metric is the per-share fundamental the price is divided by.
func (k RatioKind) Metric() string { return ratioKindInfo[k].metric }

// Code is the short identifier used in flags, config and report keys.
func (k RatioKind) Code() string { return ratioKindInfo[k].code }

func (k RatioKind) String() string {
	if _, ok := ratioKindInfo[k]; !ok {
		return fmt.Sprintf("RatioKind(%d)", int(k))
	}
	return k.Label()
}

// ParseRatioKind accepts a code ("pe"), a label ("P/E") or a metric ("eps").
func ParseRatioKind(s string) (RatioKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range AllRatioKinds {
		info := ratioKindInfo[k]
		if s == info.code || s == strings.ToLower(info.label) || s == info.metric {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown ratio kind %q", s)
}

// ParseRatioKinds parses a list, dropping duplicates and keeping order.
func ParseRatioKinds(items []string) ([]RatioKind, error) {
	seen := make(map[RatioKind]bool, len(items))
	kinds := make([]RatioKind, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it) == "" {
			continue
		}
		k, err := ParseRatioKind(it)
		if err != nil {
			return nil, err
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// Metrics returns the fundamental metric names the kinds need.
func Metrics(kinds []RatioKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = k.Metric()
	}
	return out
}
