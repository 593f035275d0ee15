package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"ValuationBands/internal/notifier"
	"ValuationBands/internal/scheduler"
)

// watchCmd holds the flags for the 'watch' subcommand.
type watchCmd struct {
	now bool
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "re-evaluate the watchlist on a schedule and alert via Telegram" }
func (*watchCmd) Usage() string {
	return `valuation watch [-now]

  Runs until interrupted. Sends an alert when a watched price falls to the
  low end of its fair value range, and answers /report and /watchlist.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.now, "now", os.Getenv("RUN_ON_START") == "true", "Run the watch task once at start (env RUN_ON_START)")
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, pipeline, logger, err := setup("", false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer logger.Sync()
	if err := cfg.ValidateWatch(); err != nil {
		logger.Error("watch config", zap.Error(err))
		return subcommands.ExitFailure
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Providers.Proxy, logger)
	sched := scheduler.NewScheduler(ctx, pipeline, tn, cfg.Watch.Symbols, logger)
	if err := sched.Register(cfg.Watch.Cron); err != nil {
		logger.Error("register cron task", zap.Error(err))
		return subcommands.ExitFailure
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	logger.Info("telegram polling started")

	if c.now {
		go sched.RunNow()
	}

	logger.Info("watching", zap.String("cron", cfg.Watch.Cron), zap.Strings("symbols", sched.Symbols))
	<-ctx.Done()
	logger.Info("shutdown signal received, stopping")
	return subcommands.ExitSuccess
}
