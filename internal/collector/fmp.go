package collector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"ValuationBands/internal/model"
)

const (
	// DefaultFMPBaseURL is the Financial Modeling Prep API host.
	DefaultFMPBaseURL = "https://financialmodelingprep.com"
	// DefaultPageLimit is the number of annual records requested per page.
	DefaultPageLimit = 10
	// DefaultMaxPages caps pagination.
	DefaultMaxPages = 2
)

// fmpFields maps our metric names to the key-metrics per-share fields.
var fmpFields = map[string]string{
	"eps":   "netIncomePerShare",
	"bvps":  "bookValuePerShare",
	"sps":   "revenuePerShare",
	"ocfps": "operatingCashFlowPerShare",
}

// FMPFetcher implements FundamentalsFetcher using Financial Modeling Prep key metrics.
type FMPFetcher struct {
	httpBase
	BaseURL   string
	APIKey    string
	PageLimit int
	MaxPages  int
	Now       func() time.Time
}

// NewFMPFetcher creates a fetcher; pageLimit and maxPages fall back to defaults when <= 0.
func NewFMPFetcher(baseURL, apiKey string, pageLimit, maxPages int, opts HTTPOptions) *FMPFetcher {
	if baseURL == "" {
		baseURL = DefaultFMPBaseURL
	}
	if pageLimit <= 0 {
		pageLimit = DefaultPageLimit
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &FMPFetcher{
		httpBase:  newHTTPBase(opts),
		BaseURL:   strings.TrimRight(baseURL, "/"),
		APIKey:    apiKey,
		PageLimit: pageLimit,
		MaxPages:  maxPages,
		Now:       time.Now,
	}
}

func (f *FMPFetcher) Name() string { return "fmp" }

// fmpMetrics is one row of the key-metrics endpoints; fields are decoded
// loosely so both annual and TTM rows fit.
type fmpMetrics map[string]interface{}

func (m fmpMetrics) str(key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func (m fmpMetrics) fiscalYear() (int, bool) {
	if y, err := strconv.Atoi(m.str("calendarYear")); err == nil {
		return y, true
	}
	if y, ok := m["calendarYear"].(float64); ok {
		return int(y), true
	}
	if t, err := time.Parse(time.DateOnly, m.str("date")); err == nil {
		return t.Year(), true
	}
	return 0, false
}

func (m fmpMetrics) extract(metrics []string, suffix string) map[string]float64 {
	out := make(map[string]float64, len(metrics))
	for _, name := range metrics {
		field, ok := fmpFields[name]
		if !ok {
			continue
		}
		if v, ok := m[field+suffix].(float64); ok {
			out[name] = v
		}
	}
	return out
}

// FetchAnnualMetrics pages through annual key metrics until an empty page or MaxPages.
// A failure after the first page keeps what was already fetched.
func (f *FMPFetcher) FetchAnnualMetrics(ctx context.Context, symbol string, metrics []string, minYear int) ([]model.FundamentalRecord, error) {
	if f.APIKey == "" {
		return nil, errors.New("fmp: api key is required")
	}
	var records []model.FundamentalRecord
	for page := 0; page < f.MaxPages; page++ {
		params := url.Values{}
		params.Set("period", "annual")
		params.Set("page", strconv.Itoa(page))
		params.Set("limit", strconv.Itoa(f.PageLimit))
		params.Set("apikey", f.APIKey)
		endpoint := fmt.Sprintf("%s/api/v3/key-metrics/%s?%s", f.BaseURL, url.PathEscape(symbol), params.Encode())

		var rows []fmpMetrics
		if err := f.getJSON(ctx, endpoint, nil, &rows); err != nil {
			if page == 0 {
				return nil, fmt.Errorf("fmp: %w", err)
			}
			f.Logger.Warn("fmp page failed, keeping earlier pages",
				zap.String("symbol", symbol), zap.Int("page", page+1), zap.Error(err))
			break
		}
		if len(rows) == 0 {
			f.Logger.Debug("fmp empty page", zap.String("symbol", symbol), zap.Int("page", page+1))
			break
		}
		for _, row := range rows {
			year, ok := row.fiscalYear()
			if !ok || year < minYear {
				continue
			}
			values := row.extract(metrics, "")
			if len(values) == 0 {
				continue
			}
			records = append(records, model.FundamentalRecord{FiscalYear: year, Metrics: values})
		}
		f.Logger.Info("fmp page fetched",
			zap.String("symbol", symbol), zap.Int("page", page+1), zap.Int("rows", len(rows)))
	}
	return records, nil
}

// FetchTTMMetrics returns the trailing-twelve-month key metrics, nil when FMP has none.
func (f *FMPFetcher) FetchTTMMetrics(ctx context.Context, symbol string, metrics []string) (*model.FundamentalRecord, error) {
	if f.APIKey == "" {
		return nil, errors.New("fmp: api key is required")
	}
	endpoint := fmt.Sprintf("%s/api/v3/key-metrics-ttm/%s?apikey=%s",
		f.BaseURL, url.PathEscape(symbol), url.QueryEscape(f.APIKey))

	var rows []fmpMetrics
	if err := f.getJSON(ctx, endpoint, nil, &rows); err != nil {
		return nil, fmt.Errorf("fmp ttm: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	values := rows[0].extract(metrics, "TTM")
	if len(values) == 0 {
		return nil, nil
	}
	return &model.FundamentalRecord{FiscalYear: f.Now().Year(), Metrics: values, IsTTM: true}, nil
}
