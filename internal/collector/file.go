package collector

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ValuationBands/internal/model"
)

// FileFundamentals serves per-year metrics maintained by hand in a YAML file:
//
//	symbols:
//	  GOOG:
//	    annual:
//	      2016: {eps: 1.39}
//	      2017: {eps: 0.90}
//	    ttm: {eps: 9.93}
type FileFundamentals struct {
	Symbols map[string]fileSymbol `yaml:"symbols"`
	Now     func() time.Time      `yaml:"-"`
}

type fileSymbol struct {
	Annual map[int]map[string]float64 `yaml:"annual"`
	TTM    map[string]float64         `yaml:"ttm"`
}

// LoadFileFundamentals reads and parses a fundamentals file.
func LoadFileFundamentals(path string) (*FileFundamentals, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fundamentals file: %w", err)
	}
	return ParseFileFundamentals(data)
}

// ParseFileFundamentals parses fundamentals YAML. Symbols are matched case-insensitively.
func ParseFileFundamentals(data []byte) (*FileFundamentals, error) {
	var raw FileFundamentals
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse fundamentals file: %w", err)
	}
	f := &FileFundamentals{Symbols: make(map[string]fileSymbol, len(raw.Symbols)), Now: time.Now}
	for sym, v := range raw.Symbols {
		f.Symbols[strings.ToUpper(sym)] = v
	}
	return f, nil
}

func (f *FileFundamentals) Name() string { return "file" }

func pick(values map[string]float64, metrics []string) map[string]float64 {
	out := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		if v, ok := values[m]; ok {
			out[m] = v
		}
	}
	return out
}

func (f *FileFundamentals) FetchAnnualMetrics(_ context.Context, symbol string, metrics []string, minYear int) ([]model.FundamentalRecord, error) {
	entry, ok := f.Symbols[strings.ToUpper(symbol)]
	if !ok {
		return nil, nil
	}
	var records []model.FundamentalRecord
	for year, values := range entry.Annual {
		if year < minYear {
			continue
		}
		if m := pick(values, metrics); len(m) > 0 {
			records = append(records, model.FundamentalRecord{FiscalYear: year, Metrics: m})
		}
	}
	return model.NewFundamentalSet(records).Records(), nil
}

func (f *FileFundamentals) FetchTTMMetrics(_ context.Context, symbol string, metrics []string) (*model.FundamentalRecord, error) {
	entry, ok := f.Symbols[strings.ToUpper(symbol)]
	if !ok || len(entry.TTM) == 0 {
		return nil, nil
	}
	m := pick(entry.TTM, metrics)
	if len(m) == 0 {
		return nil, nil
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	return &model.FundamentalRecord{FiscalYear: now().Year(), Metrics: m, IsTTM: true}, nil
}
