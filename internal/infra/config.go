package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"exchange_sim/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the simulator.
// Values loaded by LoadConfig can be overridden through EXSIM_* environment variables.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Simulator struct {
		LatencyUS     int64           `yaml:"latency_us"`     // Submission-to-book delay
		OrderCapacity int             `yaml:"order_capacity"` // Pre-allocated book orders
		LevelCapacity int             `yaml:"level_capacity"` // Pre-allocated price levels
		TickSize      decimal.Decimal `yaml:"tick_size"`      // Decimal value of one price tick
		InboxSize     int             `yaml:"inbox_size"`
	} `yaml:"simulator"`

	Feed struct {
		Path      string `yaml:"path"`
		Delimiter string `yaml:"delimiter"` // "|" or "SOH"
	} `yaml:"feed"`

	Strategy struct {
		Enabled     bool   `yaml:"enabled"`
		Symbol      string `yaml:"symbol"`
		ShortPeriod int    `yaml:"short_period"`
		LongPeriod  int    `yaml:"long_period"`
		Qty         uint32 `yaml:"qty"`
		ClOrdIDBase uint64 `yaml:"clordid_base"` // First clOrdId used for strategy orders
	} `yaml:"strategy"`

	Storage struct {
		Path      string `yaml:"path"` // Empty disables the journal
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`

	Debug struct {
		PprofAddr string `yaml:"pprof_addr"` // Empty disables pprof
	} `yaml:"debug"`
}

// Latency returns the simulated submission-to-book delay.
func (c *Config) Latency() time.Duration {
	return time.Duration(c.Simulator.LatencyUS) * time.Microsecond
}

// FeedDelimiter returns the byte separating tag=value pairs in the feed.
func (c *Config) FeedDelimiter() byte {
	switch c.Feed.Delimiter {
	case "SOH", "\x01":
		return 0x01
	case "":
		return '|'
	default:
		return c.Feed.Delimiter[0]
	}
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrConfigNotFound)
		}
		return nil, err
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML content, applies defaults and env overrides, and validates.
func ParseConfig(data []byte) (*Config, error) {
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

// DefaultConfig returns the configuration used when a key is absent.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "exchange-sim"
	cfg.Simulator.LatencyUS = 250
	cfg.Simulator.OrderCapacity = 4096
	cfg.Simulator.LevelCapacity = 1024
	cfg.Simulator.TickSize = decimal.New(1, -2) // 0.01
	cfg.Simulator.InboxSize = 1024
	cfg.Feed.Delimiter = "|"
	cfg.Strategy.ShortPeriod = 3
	cfg.Strategy.LongPeriod = 5
	cfg.Strategy.Qty = 100
	cfg.Strategy.ClOrdIDBase = 1 << 32
	cfg.Storage.BatchSize = 256
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return cfg
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Simulator.LatencyUS < 0 {
		return &domain.ConfigError{Field: "simulator.latency_us", Err: errors.New("must not be negative")}
	}
	if c.Simulator.OrderCapacity <= 0 {
		return &domain.ConfigError{Field: "simulator.order_capacity", Err: errors.New("must be positive")}
	}
	if c.Simulator.LevelCapacity <= 0 {
		return &domain.ConfigError{Field: "simulator.level_capacity", Err: errors.New("must be positive")}
	}
	if !c.Simulator.TickSize.IsPositive() {
		return &domain.ConfigError{Field: "simulator.tick_size", Err: errors.New("must be positive")}
	}
	if c.Simulator.InboxSize <= 0 {
		return &domain.ConfigError{Field: "simulator.inbox_size", Err: errors.New("must be positive")}
	}

	if c.Strategy.Enabled {
		if c.Strategy.Symbol == "" {
			return &domain.ConfigError{Field: "strategy.symbol", Err: domain.ErrInvalidSymbol}
		}
		if c.Strategy.ShortPeriod <= 0 || c.Strategy.ShortPeriod >= c.Strategy.LongPeriod {
			return &domain.ConfigError{Field: "strategy.short_period", Err: errors.New("must be positive and below long_period")}
		}
		if c.Strategy.Qty == 0 {
			return &domain.ConfigError{Field: "strategy.qty", Err: errors.New("must be positive")}
		}
	}

	if c.Storage.Path != "" && c.Storage.BatchSize <= 0 {
		return &domain.ConfigError{Field: "storage.batch_size", Err: errors.New("must be positive")}
	}

	return nil
}

// overrideWithEnv overwrites settings when the matching environment variable is set.
func overrideWithEnv(cfg *Config) error {
	if path := os.Getenv("EXSIM_FEED_PATH"); path != "" {
		cfg.Feed.Path = path
	}
	if path := os.Getenv("EXSIM_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if level := os.Getenv("EXSIM_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if v := os.Getenv("EXSIM_LATENCY_US"); v != "" {
		us, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &domain.ConfigError{Field: "EXSIM_LATENCY_US", Err: err}
		}
		cfg.Simulator.LatencyUS = us
	}
	return nil
}
