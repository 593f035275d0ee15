package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"ValuationBands/internal/collector"
	"ValuationBands/internal/config"
	"ValuationBands/internal/logging"
	"ValuationBands/internal/model"
	"ValuationBands/internal/valuation"
)

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

var configPath = flag.String("config", defaultConfigPath(), "Path to the YAML config file (env CONFIG_PATH)")

// loadConfig loads and validates the config named by -config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseKinds reads a comma separated ratio list, falling back to the configured ratios.
func parseKinds(flagValue string, cfg *config.Config) ([]model.RatioKind, error) {
	items := cfg.Valuation.Ratios
	if flagValue != "" {
		items = strings.Split(flagValue, ",")
	}
	kinds, err := model.ParseRatioKinds(items)
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("no ratio selected")
	}
	return kinds, nil
}

// buildPipeline wires the configured providers, collector and engine.
func buildPipeline(cfg *config.Config, kinds []model.RatioKind, logger *zap.Logger) (*valuation.Pipeline, error) {
	opts := collector.HTTPOptions{
		Timeout:   cfg.Providers.RequestTimeout,
		ProxyURL:  cfg.Providers.Proxy,
		RateLimit: cfg.Limit(),
		Logger:    logger,
	}

	var prices collector.PriceFetcher
	switch cfg.Providers.Price {
	case "mock":
		prices = &collector.MockFetcher{Price: 100}
	default:
		prices = collector.NewYahooFetcher(cfg.Providers.YahooBaseURL, opts)
	}

	var fundamentals collector.FundamentalsFetcher
	switch cfg.Providers.Fundamentals {
	case "file":
		f, err := collector.LoadFileFundamentals(cfg.Providers.FundamentalsFile)
		if err != nil {
			return nil, err
		}
		fundamentals = f
	default:
		fundamentals = collector.NewFMPFetcher(cfg.Providers.FMPBaseURL, cfg.Providers.FMPAPIKey,
			cfg.Providers.PageLimit, cfg.Providers.MaxPages, opts)
	}
	logger.Debug("providers selected",
		zap.String("price", prices.Name()), zap.String("fundamentals", fundamentals.Name()))

	return &valuation.Pipeline{
		Collector: collector.NewCollector(prices, fundamentals, cfg.Valuation.LookbackYears, logger),
		Engine:    valuation.NewEngine(logger, cfg.TTMWindow()),
		Kinds:     kinds,
	}, nil
}

// setup is the common prologue of every command.
func setup(ratios string, development bool) (*config.Config, *valuation.Pipeline, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, development || cfg.Log.Development)
	if err != nil {
		return nil, nil, nil, err
	}
	kinds, err := parseKinds(ratios, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := buildPipeline(cfg, kinds, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, p, logger, nil
}
