package scheduler

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ValuationBands/internal/model"
	"ValuationBands/internal/notifier"
)

// Evaluator produces a report for one symbol.
type Evaluator interface {
	Run(ctx context.Context, symbol string) (*model.ValuationReport, error)
}

// Scheduler re-evaluates the watchlist on a cron schedule and alerts when a
// price falls to a fair value low.
type Scheduler struct {
	Cron     *cron.Cron
	Pipeline Evaluator
	Notifier notifier.Notifier
	Symbols  []string
	Logger   *zap.Logger
	Ctx      context.Context
	Now      func() time.Time

	mu      sync.Mutex
	alerted map[string]string // symbol -> day of last alert
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, pipeline Evaluator, n notifier.Notifier, symbols []string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	upper := make([]string, len(symbols))
	for i, s := range symbols {
		upper[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Pipeline: pipeline,
		Notifier: n,
		Symbols:  upper,
		Logger:   logger,
		Ctx:      ctx,
		Now:      time.Now,
		alerted:  make(map[string]string),
	}
}

// Register adds the watch task under the given cron spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.watchTask); err != nil {
		return fmt.Errorf("register watch task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started", zap.Strings("symbols", s.Symbols))
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

// RunNow executes the watch task immediately.
func (s *Scheduler) RunNow() {
	s.watchTask()
}

func (s *Scheduler) watchTask() {
	s.Logger.Info("running watch task", zap.Int("symbols", len(s.Symbols)))
	for _, symbol := range s.Symbols {
		if s.Ctx.Err() != nil {
			return
		}
		report, err := s.Pipeline.Run(s.Ctx, symbol)
		if err != nil {
			s.Logger.Warn("watch evaluation failed", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		s.checkAlert(report)
	}
}

// belowFairValue returns the ratios whose fair value low is at or above the current price.
func belowFairValue(r *model.ValuationReport) []*model.RatioResult {
	var hits []*model.RatioResult
	for _, k := range r.Kinds() {
		res := r.Ratios[k]
		if res.FairValueLow > 0 && r.CurrentPrice <= res.FairValueLow {
			hits = append(hits, res)
		}
	}
	return hits
}

func (s *Scheduler) checkAlert(r *model.ValuationReport) {
	hits := belowFairValue(r)
	if len(hits) == 0 {
		return
	}
	today := s.Now().Format("2006-01-02")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alerted[r.Symbol] == today {
		s.Logger.Debug("alert already sent today", zap.String("symbol", r.Symbol))
		return
	}

	msgs := make([]string, 0, len(hits))
	for _, res := range hits {
		msgs = append(msgs, notifier.FormatAlert(r, res))
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, strings.Join(msgs, "\n\n"), 3); err != nil {
		s.Logger.Error("send alert", zap.String("symbol", r.Symbol), zap.Error(err))
		return
	}
	s.alerted[r.Symbol] = today
	s.Logger.Info("fair value alert sent", zap.String("symbol", r.Symbol), zap.Int("ratios", len(hits)))
}

const helpText = "Available commands:\n• /report SYMBOL\n• /watchlist"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch strings.ToLower(fields[0]) {
	case "/report":
		if len(fields) < 2 {
			return "Usage: /report SYMBOL"
		}
		symbol := strings.ToUpper(fields[1])
		report, err := s.Pipeline.Run(s.Ctx, symbol)
		if err != nil {
			s.Logger.Warn("report command failed", zap.String("symbol", symbol), zap.Error(err))
			return fmt.Sprintf("❌ %s: %s", html.EscapeString(symbol), html.EscapeString(err.Error()))
		}
		return notifier.FormatTelegramReport(report)
	case "/watchlist":
		if len(s.Symbols) == 0 {
			return "Watchlist is empty"
		}
		return "👀 <b>Watchlist</b>\n" + html.EscapeString(strings.Join(s.Symbols, "\n"))
	default:
		return helpText
	}
}
