package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	"go.uber.org/zap"

	"ValuationBands/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price  float64
	Closes model.DateSeries
	Err    error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyCloses(_ context.Context, _ string, start, end time.Time) (model.DateSeries, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Closes != nil {
		return m.Closes, nil
	}
	return generateMockCloses(m.Price, start, end), nil
}

// generateMockCloses walks weekdays from start to end with a slow drift around basePrice.
func generateMockCloses(basePrice float64, start, end time.Time) model.DateSeries {
	var obs []model.Observation
	i := 0
	for d := model.Day(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		obs = append(obs, model.Observation{Date: d, Value: null.FloatFrom(basePrice * (1 + float64(i%250-125)*0.001))})
		i++
	}
	return model.NewDateSeries(obs)
}

// MockFundamentals serves fixed records.
type MockFundamentals struct {
	Annual []model.FundamentalRecord
	TTM    *model.FundamentalRecord
	Err    error
	TTMErr error
}

func (m *MockFundamentals) Name() string { return "mock" }

func (m *MockFundamentals) FetchAnnualMetrics(_ context.Context, _ string, _ []string, minYear int) ([]model.FundamentalRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []model.FundamentalRecord
	for _, r := range m.Annual {
		if r.FiscalYear >= minYear {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockFundamentals) FetchTTMMetrics(context.Context, string, []string) (*model.FundamentalRecord, error) {
	return m.TTM, m.TTMErr
}

// Dataset is the raw provider output for one symbol.
type Dataset struct {
	Symbol  string
	Prices  model.DateSeries
	Records []model.FundamentalRecord
}

// Collector orchestrates the fetch stage.
type Collector struct {
	Prices        PriceFetcher
	Fundamentals  FundamentalsFetcher
	LookbackYears int
	Logger        *zap.Logger
	Now           func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(prices PriceFetcher, fundamentals FundamentalsFetcher, lookbackYears int, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		Prices:        prices,
		Fundamentals:  fundamentals,
		LookbackYears: lookbackYears,
		Logger:        logger,
		Now:           time.Now,
	}
}

// Collect fetches prices and fundamentals for the metrics the kinds need.
// Any price failure, an empty price payload or a symbol with no annual
// fundamentals yields ErrProviderUnavailable. A TTM failure only logs.
func (c *Collector) Collect(ctx context.Context, symbol string, kinds []model.RatioKind) (*Dataset, error) {
	log := c.Logger.With(zap.String("symbol", symbol))
	end := c.Now()
	start := end.AddDate(-c.LookbackYears, 0, 0)
	metrics := model.Metrics(kinds)

	prices, err := c.Prices.FetchDailyCloses(ctx, symbol, start, end)
	if err != nil {
		log.Error("price fetch failed", zap.String("provider", c.Prices.Name()), zap.Error(err))
		return nil, fmt.Errorf("%s prices from %s: %w: %v", symbol, c.Prices.Name(), model.ErrProviderUnavailable, err)
	}
	if len(prices.Values()) == 0 {
		log.Error("price fetch returned no data", zap.String("provider", c.Prices.Name()))
		return nil, fmt.Errorf("%s prices from %s: %w: empty result", symbol, c.Prices.Name(), model.ErrProviderUnavailable)
	}

	records, err := c.Fundamentals.FetchAnnualMetrics(ctx, symbol, metrics, start.Year())
	if err != nil {
		log.Error("fundamentals fetch failed", zap.String("provider", c.Fundamentals.Name()), zap.Error(err))
		return nil, fmt.Errorf("%s fundamentals from %s: %w: %v", symbol, c.Fundamentals.Name(), model.ErrProviderUnavailable, err)
	}
	if len(records) == 0 {
		log.Error("fundamentals fetch returned no data", zap.String("provider", c.Fundamentals.Name()))
		return nil, fmt.Errorf("%s fundamentals from %s: %w: empty result", symbol, c.Fundamentals.Name(), model.ErrProviderUnavailable)
	}

	ttm, err := c.Fundamentals.FetchTTMMetrics(ctx, symbol, metrics)
	if err != nil {
		log.Warn("ttm fetch failed, using annual figures only", zap.Error(err))
	} else if ttm != nil {
		records = append(records, *ttm)
	}

	log.Info("data collected",
		zap.Int("prices", len(prices)),
		zap.Int("records", len(records)),
		zap.Bool("ttm", ttm != nil))
	return &Dataset{Symbol: symbol, Prices: prices, Records: records}, nil
}
