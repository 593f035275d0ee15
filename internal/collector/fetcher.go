package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ValuationBands/internal/model"
)

// PriceFetcher supplies daily closes.
type PriceFetcher interface {
	FetchDailyCloses(ctx context.Context, symbol string, start, end time.Time) (model.DateSeries, error)
	Name() string
}

// FundamentalsFetcher supplies per-share fundamentals.
type FundamentalsFetcher interface {
	// FetchAnnualMetrics returns one record per fiscal year >= minYear.
	FetchAnnualMetrics(ctx context.Context, symbol string, metrics []string, minYear int) ([]model.FundamentalRecord, error)
	// FetchTTMMetrics returns the most recent trailing-twelve-month record, or nil.
	FetchTTMMetrics(ctx context.Context, symbol string, metrics []string) (*model.FundamentalRecord, error)
	Name() string
}

// DefaultTimeout bounds a single provider request.
const DefaultTimeout = 10 * time.Second

// APIError is a non-200 provider response.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d, body: %s", e.Endpoint, e.StatusCode, e.Message)
}

// HTTPOptions configures the shared provider transport.
type HTTPOptions struct {
	Timeout   time.Duration
	ProxyURL  string
	RateLimit int // requests per second, <= 0 for unlimited
	Logger    *zap.Logger
}

// httpBase is embedded by every HTTP fetcher.
type httpBase struct {
	Client  *http.Client
	Limiter *rate.Limiter
	Logger  *zap.Logger
}

func newHTTPBase(opts HTTPOptions) httpBase {
	transport := &http.Transport{}
	if opts.ProxyURL != "" {
		if u, err := url.Parse(opts.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateLimit)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return httpBase{
		Client:  &http.Client{Timeout: timeout, Transport: transport},
		Limiter: limiter,
		Logger:  logger,
	}
}

// getJSON performs a rate-limited GET and decodes the JSON body into out.
func (b *httpBase) getJSON(ctx context.Context, endpoint string, header http.Header, out interface{}) error {
	if err := b.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	b.Logger.Debug("provider request",
		zap.String("host", req.URL.Host),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)))
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Endpoint: req.URL.Path, Message: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
