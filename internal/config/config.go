package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Hyper   HyperConfig   `mapstructure:"hyper"`
	Exec    ExecConfig    `mapstructure:"exec"`
	Price   PriceConfig   `mapstructure:"price"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type HyperConfig struct {
	APIURL       string        `mapstructure:"api_url"`
	WSURL        string        `mapstructure:"ws_url"`
	ExecAgentURL string        `mapstructure:"exec_agent_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type ExecConfig struct {
	AllowedSymbols []string `mapstructure:"allowed_symbols"`
	AllowedVenues  []string `mapstructure:"allowed_venues"`
	PrimaryVenue   string   `mapstructure:"primary_venue"`

	MinLeverage    float64 `mapstructure:"min_leverage"`
	MaxLeverage    float64 `mapstructure:"max_leverage"`
	MinNotionalUSD float64 `mapstructure:"min_notional_usd"`
	MaxNotionalUSD float64 `mapstructure:"max_notional_usd"`

	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`

	EnableLive             bool `mapstructure:"enable_live"`
	ApplyDryRunToPositions bool `mapstructure:"apply_dry_run_to_positions"`
	ApplyLiveToPositions   bool `mapstructure:"apply_live_to_positions"`
	ReduceOnlyFallback     bool `mapstructure:"reduce_only_fallback"`
}

type PriceConfig struct {
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	RetryCount    int           `mapstructure:"retry_count"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
	Timeout       time.Duration `mapstructure:"timeout"`
	EnableWS      bool          `mapstructure:"enable_ws"`
	MockGoldPrice float64       `mapstructure:"mock_gold_price"`
}

type LedgerConfig struct {
	Backend string `mapstructure:"backend"` // "file" or "pebble"
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	// Local .env is optional; viper picks the values up from the process
	// environment afterwards.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/execd")
	}

	v.SetEnvPrefix("VAULTCRAFT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override with environment variables if set
	overrideFromEnv(&config)

	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func overrideFromEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if url := os.Getenv("VAULTCRAFT_EXEC_AGENT_URL"); url != "" {
		config.Hyper.ExecAgentURL = url
	}
	if url := os.Getenv("VAULTCRAFT_HYPER_API_URL"); url != "" {
		config.Hyper.APIURL = url
	}
	if url := os.Getenv("VAULTCRAFT_HYPER_WS_URL"); url != "" {
		config.Hyper.WSURL = url
	}
	if live := os.Getenv("VAULTCRAFT_ENABLE_LIVE"); live != "" {
		config.Exec.EnableLive = live == "true" || live == "1"
	}
	if path := os.Getenv("VAULTCRAFT_LEDGER_PATH"); path != "" {
		config.Ledger.Path = path
	}
}

func Validate(cfg *Config) error {
	if cfg.Exec.MinLeverage <= 0 || cfg.Exec.MaxLeverage < cfg.Exec.MinLeverage {
		return fmt.Errorf("invalid leverage bounds [%v, %v]", cfg.Exec.MinLeverage, cfg.Exec.MaxLeverage)
	}
	if cfg.Exec.MaxNotionalUSD > 0 && cfg.Exec.MinNotionalUSD > cfg.Exec.MaxNotionalUSD {
		return fmt.Errorf("min notional %v exceeds max notional %v", cfg.Exec.MinNotionalUSD, cfg.Exec.MaxNotionalUSD)
	}
	if cfg.Exec.RetryAttempts < 0 {
		return fmt.Errorf("exec.retry_attempts must be >= 0")
	}
	if cfg.Price.RetryCount < 0 {
		return fmt.Errorf("price.retry_count must be >= 0")
	}
	switch cfg.Ledger.Backend {
	case "file", "pebble":
	default:
		return fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)

	// Hyper endpoint defaults (testnet)
	v.SetDefault("hyper.api_url", "https://api.hyperliquid-testnet.xyz")
	v.SetDefault("hyper.ws_url", "wss://api.hyperliquid-testnet.xyz/ws")
	v.SetDefault("hyper.exec_agent_url", "")
	v.SetDefault("hyper.timeout", 10*time.Second)

	// Execution defaults
	v.SetDefault("exec.allowed_symbols", []string{"ETH", "BTC"})
	v.SetDefault("exec.allowed_venues", []string{"hyper", "mock_gold"})
	v.SetDefault("exec.primary_venue", "hyper")
	v.SetDefault("exec.min_leverage", 1.0)
	v.SetDefault("exec.max_leverage", 5.0)
	v.SetDefault("exec.min_notional_usd", 0.0)
	v.SetDefault("exec.max_notional_usd", 100_000.0)
	v.SetDefault("exec.retry_attempts", 2)
	v.SetDefault("exec.retry_backoff", 500*time.Millisecond)
	v.SetDefault("exec.enable_live", false)
	v.SetDefault("exec.apply_dry_run_to_positions", true)
	v.SetDefault("exec.apply_live_to_positions", true)
	v.SetDefault("exec.reduce_only_fallback", true)

	// Price routing defaults
	v.SetDefault("price.cache_ttl", 5*time.Second)
	v.SetDefault("price.retry_count", 2)
	v.SetDefault("price.retry_backoff", 200*time.Millisecond)
	v.SetDefault("price.timeout", 5*time.Second)
	v.SetDefault("price.enable_ws", false)
	v.SetDefault("price.mock_gold_price", 2400.0)

	// Ledger defaults
	v.SetDefault("ledger.backend", "file")
	v.SetDefault("ledger.path", "./data/positions.json")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
