package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"grid_go/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultConfigPath is used when GRID_CONFIG is not set.
	DefaultConfigPath = "configs/config.yaml"
)

// Price providers
const (
	ProviderBitget   = "bitget"
	ProviderBitgetWS = "bitget_ws"
	ProviderUpbit    = "upbit"
	ProviderMexc     = "mexc"
)

// Counter store drivers
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// Config holds every setting of the grid bot.
// LoadConfig fills defaults, reads the yaml file, then applies environment overrides.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Pair               string          `yaml:"pair"`
		Capital            decimal.Decimal `yaml:"capital"`              // Quote notional per entry
		GridPercentage     decimal.Decimal `yaml:"grid_percentage"`      // Fraction (0.0009 = 0.09%)
		StopLossPercentage decimal.Decimal `yaml:"stop_loss_percentage"` // Percent (1 = 1%)
		EntryMargin        decimal.Decimal `yaml:"entry_margin"`         // Absolute price units
		PollIntervalMS     int             `yaml:"poll_interval_ms"`
	} `yaml:"trading"`

	API struct {
		Provider   string `yaml:"provider"`
		TimeoutSec int    `yaml:"timeout_sec"`
		Bitget     struct {
			RestURL       string `yaml:"rest_url"`
			WSURL         string `yaml:"ws_url"`
			StaleAfterSec int    `yaml:"stale_after_sec"`
		} `yaml:"bitget"`
		Upbit struct {
			RestURL string `yaml:"rest_url"`
		} `yaml:"upbit"`
		Mexc struct {
			RestURL    string `yaml:"rest_url"`
			RetryCount int    `yaml:"retry_count"`
		} `yaml:"mexc"`
	} `yaml:"api"`

	Storage struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`

	Debug struct {
		PprofAddr string `yaml:"pprof_addr"` // Empty disables pprof
	} `yaml:"debug"`
}

// DefaultConfig reproduces the original demo bot: XRP/USDT, 10 USDT, 0.09% grid, 1% stop, 3s poll.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "grid_go"
	cfg.App.Version = "dev"

	cfg.Trading.Pair = "XRP/USDT"
	cfg.Trading.Capital = decimal.NewFromInt(10)
	cfg.Trading.GridPercentage = decimal.RequireFromString("0.0009")
	cfg.Trading.StopLossPercentage = decimal.NewFromInt(1)
	cfg.Trading.EntryMargin = decimal.NewFromInt(30)
	cfg.Trading.PollIntervalMS = 3000

	cfg.API.Provider = ProviderBitget
	cfg.API.TimeoutSec = 10
	cfg.API.Bitget.RestURL = "https://api.bitget.com"
	cfg.API.Bitget.WSURL = "wss://ws.bitget.com/v2/ws/public"
	cfg.API.Bitget.StaleAfterSec = 30
	cfg.API.Upbit.RestURL = "https://api.upbit.com"
	cfg.API.Mexc.RestURL = "https://api.mexc.com"
	cfg.API.Mexc.RetryCount = 2

	cfg.Storage.Driver = DriverFile
	cfg.Storage.Path = "data"

	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return &cfg
}

// ResolveConfigPath returns GRID_CONFIG or the default path.
func ResolveConfigPath() string {
	if p := os.Getenv("GRID_CONFIG"); p != "" {
		return p
	}
	return DefaultConfigPath
}

// LoadConfig reads and parses the config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if _, err := domain.ParsePair(c.Trading.Pair); err != nil {
		return &domain.ConfigError{Field: "trading.pair", Err: err}
	}
	if c.Trading.PollIntervalMS <= 0 {
		return &domain.ConfigError{Field: "trading.poll_interval_ms", Err: errors.New("must be positive")}
	}

	switch c.API.Provider {
	case ProviderBitget, ProviderUpbit, ProviderMexc:
	case ProviderBitgetWS:
		if !hasPrefix(c.API.Bitget.WSURL, "ws://") && !hasPrefix(c.API.Bitget.WSURL, "wss://") {
			return &domain.ConfigError{Field: "api.bitget.ws_url", Err: fmt.Errorf("invalid WS URL: %q", c.API.Bitget.WSURL)}
		}
	default:
		return &domain.ConfigError{Field: "api.provider", Err: fmt.Errorf("unknown provider %q", c.API.Provider)}
	}

	switch c.Storage.Driver {
	case DriverFile, DriverSQLite, DriverBadger:
		if c.Storage.Path == "" {
			return &domain.ConfigError{Field: "storage.path", Err: errors.New("required")}
		}
	case DriverMemory:
	default:
		return &domain.ConfigError{Field: "storage.driver", Err: fmt.Errorf("unknown driver %q", c.Storage.Driver)}
	}

	return nil
}

// PollInterval is the fixed inter-tick delay.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Trading.PollIntervalMS) * time.Millisecond
}

// Timeout is the per-request HTTP timeout.
func (c *Config) Timeout() time.Duration {
	if c.API.TimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.API.TimeoutSec) * time.Second
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv applies GRID_* environment variables over file values.
func overrideWithEnv(cfg *Config) error {
	if v := os.Getenv("GRID_PAIR"); v != "" {
		cfg.Trading.Pair = v
	}
	if v := os.Getenv("GRID_CAPITAL"); v != "" {
		capital, err := decimal.NewFromString(v)
		if err != nil {
			return &domain.ConfigError{Field: "GRID_CAPITAL", Err: err}
		}
		cfg.Trading.Capital = capital
	}
	if v := os.Getenv("GRID_PROVIDER"); v != "" {
		cfg.API.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("GRID_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("GRID_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	return nil
}
