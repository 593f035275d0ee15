package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"ValuationBands/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Providers struct {
		Price            string        `yaml:"price" validate:"oneof=yahoo mock"`
		Fundamentals     string        `yaml:"fundamentals" validate:"oneof=fmp file"`
		FMPAPIKey        string        `yaml:"fmp_api_key" validate:"required_if=Fundamentals fmp"`
		FMPBaseURL       string        `yaml:"fmp_base_url" validate:"omitempty,url"`
		YahooBaseURL     string        `yaml:"yahoo_base_url" validate:"omitempty,url"`
		FundamentalsFile string        `yaml:"fundamentals_file" validate:"required_if=Fundamentals file"`
		RequestTimeout   time.Duration `yaml:"request_timeout" validate:"gt=0"`
		RateLimit        *int          `yaml:"rate_limit" validate:"required,gte=0"`
		PageLimit        int           `yaml:"page_limit" validate:"gt=0"`
		MaxPages         int           `yaml:"max_pages" validate:"gt=0"`
		Proxy            string        `yaml:"proxy" validate:"omitempty,url"`
	} `yaml:"providers"`
	Valuation struct {
		Ratios          []string `yaml:"ratios" validate:"min=1"`
		LookbackYears   int      `yaml:"lookback_years" validate:"gt=0"`
		TTMWindowMonths *int     `yaml:"ttm_window_months" validate:"required,gte=0"`
		BandMode        string   `yaml:"band_mode" validate:"oneof=ratio price"`
	} `yaml:"valuation"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Watch struct {
		Cron    string   `yaml:"cron"`
		Symbols []string `yaml:"symbols"`
	} `yaml:"watch"`
	Log struct {
		Level       string `yaml:"level" validate:"oneof=debug info warn error"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error; defaults fill the gaps.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("FMP_API_KEY"); v != "" {
		cfg.Providers.FMPAPIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Providers.Proxy = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("VALUATION_RATIOS"); v != "" {
		cfg.Valuation.Ratios = strings.Split(v, ",")
	}
	if v := os.Getenv("TTM_WINDOW_MONTHS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Valuation.TTMWindowMonths = &n
		}
	}
	if v := os.Getenv("CRON_WATCH"); v != "" {
		cfg.Watch.Cron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	p := &cfg.Providers
	if p.Price == "" {
		p.Price = "yahoo"
	}
	if p.Fundamentals == "" {
		p.Fundamentals = "fmp"
	}
	if p.FundamentalsFile == "" && p.Fundamentals == "file" {
		p.FundamentalsFile = "configs/fundamentals.yaml"
	}
	if p.RequestTimeout == 0 {
		p.RequestTimeout = 10 * time.Second
	}
	if p.RateLimit == nil {
		n := 5
		p.RateLimit = &n
	}
	if p.PageLimit == 0 {
		p.PageLimit = 10
	}
	if p.MaxPages == 0 {
		p.MaxPages = 2
	}

	v := &cfg.Valuation
	for i, r := range v.Ratios {
		v.Ratios[i] = strings.ToLower(strings.TrimSpace(r))
	}
	if len(v.Ratios) == 0 {
		v.Ratios = []string{"pe"}
	}
	if v.LookbackYears == 0 {
		v.LookbackYears = 10
	}
	if v.TTMWindowMonths == nil {
		n := 3
		v.TTMWindowMonths = &n
	}
	if v.BandMode == "" {
		v.BandMode = "price"
	}

	if cfg.Watch.Cron == "" {
		cfg.Watch.Cron = "0 0 22 * * 1-5"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Limit is the provider request rate per second; 0 means unlimited.
func (c *Config) Limit() int {
	if c.Providers.RateLimit == nil {
		return 0
	}
	return *c.Providers.RateLimit
}

// TTMWindow is the TTM substitution window in months; 0 disables substitution.
func (c *Config) TTMWindow() int {
	if c.Valuation.TTMWindowMonths == nil {
		return 0
	}
	return *c.Valuation.TTMWindowMonths
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that all required fields are set and every ratio is known.
func (c *Config) Validate() error {
	var msgs []string
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("invalid config: %w", err)
		}
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}
	if _, err := model.ParseRatioKinds(c.Valuation.Ratios); err != nil {
		msgs = append(msgs, fmt.Sprintf("Config.Valuation.Ratios: %v", err))
	}
	if len(msgs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// ValidateWatch checks the extra settings watch mode needs.
func (c *Config) ValidateWatch() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if len(c.Watch.Symbols) == 0 {
		return fmt.Errorf("watch.symbols must not be empty")
	}
	return nil
}
