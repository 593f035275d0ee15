package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ValuationBands/internal/model"
)

func sampleReport() *model.ValuationReport {
	asOf := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	pe := &model.RatioResult{
		Kind: model.Earnings,
		Summary: model.DistributionSummary{
			Count: 5, Mean: 15, StdDev: 7.905694150420948,
			Bands: model.Bands{Minus2: -0.81, Minus1: 7.09, Mean: 15, Plus1: 22.91, Plus2: 30.81},
		},
		CurrentDate:        asOf,
		CurrentRatio:       25,
		CurrentFundamental: 4,
		ZScore:             1.2649110640673518,
		Percentile:         100,
		Status:             model.Overvalued,
		FairValueLow:       28.38,
		FairValueMid:       60,
		FairValueHigh:      91.62,
		DistanceFromLow:    71.62,
	}
	return &model.ValuationReport{
		RunID:        "run",
		Symbol:       "GOOG",
		AsOf:         asOf,
		CurrentPrice: 100,
		Ratios:       map[model.RatioKind]*model.RatioResult{model.Earnings: pe},
		Omitted:      map[model.RatioKind]string{model.Book: "P/B: insufficient data"},
		AverageZ:     null.FloatFrom(1.2649110640673518),
		Status:       model.Overvalued,
	}
}

func TestFormatReport(t *testing.T) {
	out := FormatReport(sampleReport())
	for _, want := range []string{
		"symbol: GOOG\n",
		"current_price: 100.00\n",
		"current_eps: 4.00\n",
		"current_pe: 25.00\n",
		"historical_pe_mean: 15.00\n",
		"historical_pe_std: 7.91\n",
		"pe_zscore: 1.26\n",
		"pe_percentile: 100.0\n",
		"pe_status: overvalued\n",
		"pb_omitted: P/B: insufficient data\n",
		"average_zscore: 1.26\n",
		"valuation_status: overvalued\n",
	} {
		assert.Contains(t, out, want)
	}
}

func TestFormatReport_NoRatios(t *testing.T) {
	r := sampleReport()
	r.Ratios = map[model.RatioKind]*model.RatioResult{}
	r.AverageZ = null.Float{}
	r.Status = model.InsufficientData

	out := FormatReport(r)
	assert.Contains(t, out, "average_zscore: n/a\n")
	assert.Contains(t, out, "valuation_status: insufficient data\n")
	assert.NotContains(t, out, "pe_zscore")
}

func TestFormatMarkdown(t *testing.T) {
	md := FormatMarkdown(sampleReport())
	assert.True(t, strings.HasPrefix(md, "# GOOG valuation"))
	assert.Contains(t, md, "| P/E | 25.00 | 15.00 | 7.91 | 1.26 | 100.0% | overvalued |")
	assert.Contains(t, md, "| P/E | 28.38 | 60.00 | 91.62 | 71.6% |")
	assert.Contains(t, md, "- P/B: P/B: insufficient data")

	out, err := RenderTerminal(md, 100)
	require.NoError(t, err)
	assert.Contains(t, out, "GOOG")
}

func TestFormatAlert(t *testing.T) {
	r := sampleReport()
	msg := FormatAlert(r, r.Ratios[model.Earnings])
	assert.Contains(t, msg, "<b>GOOG</b> below P/E fair value")
	assert.Contains(t, msg, "Fair value: 28.38 ~ 91.62 (mid 60.00)")

	assert.Contains(t, FormatTelegramReport(r), "P/B omitted")
}

type telegramStub struct {
	mu       sync.Mutex
	fails    int
	sent     []map[string]string
	updates  []telegramUpdate
	received chan struct{}
}

func (s *telegramStub) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if s.fails > 0 {
				s.fails--
				http.Error(w, "boom", http.StatusBadGateway)
				return
			}
			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			s.sent = append(s.sent, payload)
			if s.received != nil {
				close(s.received)
				s.received = nil
			}
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			updates := s.updates
			s.updates = nil
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": updates})
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestNotifier(url string) *TelegramNotifier {
	tn := NewTelegramNotifier("token", "42", "", zap.NewNop())
	tn.BaseURL = url
	tn.Backoff = time.Millisecond
	return tn
}

func TestSend(t *testing.T) {
	stub := &telegramStub{}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).Send("<b>hi</b>"))
	require.Len(t, stub.sent, 1)
	assert.Equal(t, "42", stub.sent[0]["chat_id"])
	assert.Equal(t, "HTML", stub.sent[0]["parse_mode"])
}

func TestSendWithRetry(t *testing.T) {
	stub := &telegramStub{fails: 2}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).SendWithRetry(context.Background(), "hi", 3))
	assert.Len(t, stub.sent, 1)

	stub.fails = 5
	err := newTestNotifier(srv.URL).SendWithRetry(context.Background(), "hi", 1)
	assert.ErrorContains(t, err, "all 2 retries exhausted")
}

func TestStartPolling(t *testing.T) {
	received := make(chan struct{})
	stub := &telegramStub{received: received}
	stub.updates = []telegramUpdate{
		{UpdateID: 7},
		{UpdateID: 8, Message: &struct {
			Text string `json:"text"`
		}{Text: " /watchlist "}},
	}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got string
	done := make(chan struct{})
	go func() {
		newTestNotifier(srv.URL).StartPolling(ctx, func(cmd string) string {
			got = cmd
			return "GOOG"
		})
		close(done)
	}()

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("reply not sent")
	}
	cancel()
	<-done

	assert.Equal(t, "/watchlist", got)
	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, "GOOG", stub.sent[0]["text"])
}

func TestStartPolling_BacksOffWhenNotOK(t *testing.T) {
	var mu sync.Mutex
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	tn := newTestNotifier(srv.URL)
	tn.Backoff = 10 * time.Millisecond // 50ms between failed polls

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	tn.StartPolling(ctx, func(string) string { return "" })

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, requests, 1)
	assert.LessOrEqual(t, requests, 10)
}

func TestTelegramText_EscapesFreeText(t *testing.T) {
	r := sampleReport()
	r.Symbol = "A<B"
	r.Omitted[model.Book] = "fmp: status 502, body: <html><body>Bad Gateway</body></html>"

	msg := FormatTelegramReport(r)
	assert.Contains(t, msg, "<b>A&lt;B</b>")
	assert.Contains(t, msg, "body: &lt;html&gt;&lt;body&gt;Bad Gateway")
	assert.NotContains(t, msg, "<html>")

	assert.Contains(t, FormatAlert(r, r.Ratios[model.Earnings]), "<b>A&lt;B</b> below P/E")
}
