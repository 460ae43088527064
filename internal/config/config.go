package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"StockSentinel/internal/clock"
	"StockSentinel/internal/model"
)

const (
	ModeWatchlist = "watchlist"
	ModeUniverse  = "universe"
)

// Config holds all application configuration.
type Config struct {
	Mode      string   `yaml:"mode" default:"watchlist" validate:"oneof=watchlist universe"`
	Watchlist []string `yaml:"watchlist" default:"[\"sh600519\",\"sz000858\",\"sh600030\",\"sz000776\",\"sh600570\"]"`

	DataSource struct {
		Provider       string `yaml:"provider" default:"eastmoney" validate:"oneof=eastmoney yahoo mock"`
		BaseURL        string `yaml:"base_url" validate:"omitempty,url"`
		ListURL        string `yaml:"list_url" validate:"omitempty,url"`
		Adjust         string `yaml:"adjust" default:"qfq" validate:"oneof=none qfq hfq"`
		StartDate      string `yaml:"start_date" default:"19910101"`
		TimeoutSeconds int    `yaml:"timeout_seconds" default:"30" validate:"gt=0"`
	} `yaml:"data_source"`

	KDJ struct {
		N          int     `yaml:"n" default:"9" validate:"gt=0"`
		M          int     `yaml:"m" default:"3" validate:"gt=0"`
		Oversold   float64 `yaml:"oversold" default:"20"`
		Overbought float64 `yaml:"overbought" default:"80"`
	} `yaml:"kdj"`

	Store struct {
		Backend    string `yaml:"backend" default:"csv" validate:"oneof=csv sqlite redis memory"`
		Dir        string `yaml:"dir" default:"data/stock_data"`
		SQLitePath string `yaml:"sqlite_path" default:"data/stock_sentinel.db"`
		SkipCached bool   `yaml:"skip_cached"`
		Redis      struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db" validate:"gte=0"`
			Prefix   string `yaml:"prefix" default:"stocksentinel"`
		} `yaml:"redis"`
	} `yaml:"store"`

	Schedule struct {
		DailyCron string `yaml:"daily_cron" default:"0 30 15 * * 1-5"`
	} `yaml:"schedule"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	} `yaml:"log"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`

	Quiet      bool   `yaml:"quiet"`
	RunOnce    bool   `yaml:"run_once"`
	RunOnStart bool   `yaml:"run_on_start"`
	Proxy      string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Keys absent from the file keep their defaults; a missing file means all defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("STOCK_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Watchlist = splitList(v)
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("STORE_DIR"); v != "" {
		c.Store.Dir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Store.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		c.Schedule.DailyCron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	for name, dst := range map[string]*bool{"RUN_ONCE": &c.RunOnce, "RUN_ON_START": &c.RunOnStart} {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = b
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var validate = validator.New()

// Validate checks field constraints and the cross-field rules struct tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config %s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config: %w", err)
	}
	if c.Mode == ModeWatchlist {
		if len(c.Watchlist) == 0 {
			return fmt.Errorf("watchlist is required in %s mode", ModeWatchlist)
		}
		if _, err := c.Tickers(); err != nil {
			return err
		}
	}
	if _, err := clock.ParseDate(c.DataSource.StartDate); err != nil {
		return fmt.Errorf("data_source.start_date: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// Tickers parses the watchlist entries. An entry may carry a name after a colon: "sh600519:贵州茅台".
func (c *Config) Tickers() ([]model.Ticker, error) {
	out := make([]model.Ticker, 0, len(c.Watchlist))
	for _, entry := range c.Watchlist {
		sym, name, _ := strings.Cut(entry, ":")
		t, err := model.ParseSymbol(sym)
		if err != nil {
			return nil, fmt.Errorf("watchlist: %w", err)
		}
		t.Name = strings.TrimSpace(name)
		out = append(out, t)
	}
	return out, nil
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Daemon reports whether the process should keep running on a schedule.
func (c *Config) Daemon() bool {
	return !c.RunOnce && strings.TrimSpace(c.Schedule.DailyCron) != ""
}
