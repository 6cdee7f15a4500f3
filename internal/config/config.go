// Package config loads the application configuration from file and
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Solana     SolanaConfig     `mapstructure:"solana"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Analyzer   AnalyzerConfig   `mapstructure:"analyzer"`
	Executor   ExecutorConfig   `mapstructure:"executor"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// SolanaConfig holds RPC collaborator configuration.
type SolanaConfig struct {
	RPCURL           string        `mapstructure:"rpc_url"`
	WSURL            string        `mapstructure:"ws_url"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	ThrottleInterval time.Duration `mapstructure:"throttle_interval"`
}

// AggregatorConfig holds DEX aggregator configuration.
type AggregatorConfig struct {
	QuoteURL         string        `mapstructure:"quote_url"`
	SwapURL          string        `mapstructure:"swap_url"`
	SlippageBps      int           `mapstructure:"slippage_bps"`
	ThrottleInterval time.Duration `mapstructure:"throttle_interval"`
}

// MonitorConfig holds monitor loop configuration.
type MonitorConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	PurchaseAmount float64       `mapstructure:"purchase_amount"`
	UseWebsocket   bool          `mapstructure:"use_websocket"`
	Programs       []string      `mapstructure:"programs"`
}

// AnalyzerConfig holds verdict thresholds.
type AnalyzerConfig struct {
	HolderMin        uint    `mapstructure:"holder_min"`
	ConcentrationMax float64 `mapstructure:"concentration_max"`
	VolumeMin        float64 `mapstructure:"volume_min"`
}

// ExecutorConfig holds purchase retry configuration.
type ExecutorConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	AttemptDelay time.Duration `mapstructure:"attempt_delay"`
}

// StorageConfig selects and configures the persistence backends.
type StorageConfig struct {
	// Backend is "memory" or "postgres".
	Backend       string `mapstructure:"backend"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
}

// MetricsConfig holds the metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads configuration from an optional file and environment
// variables. An empty path loads defaults + environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("RUGWATCHER")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.ws_url", "wss://api.mainnet-beta.solana.com")
	v.SetDefault("solana.request_timeout", "30s")
	v.SetDefault("solana.throttle_interval", "200ms")

	v.SetDefault("aggregator.quote_url", "https://api.jup.ag/swap/v1/quote")
	v.SetDefault("aggregator.swap_url", "https://api.jup.ag/swap/v1/swap")
	v.SetDefault("aggregator.slippage_bps", 100)
	v.SetDefault("aggregator.throttle_interval", "250ms")

	v.SetDefault("monitor.interval", "10s")
	v.SetDefault("monitor.purchase_amount", 0.1)
	v.SetDefault("monitor.use_websocket", false)

	v.SetDefault("analyzer.holder_min", 100)
	v.SetDefault("analyzer.concentration_max", 20.0)
	v.SetDefault("analyzer.volume_min", 2000.0)

	v.SetDefault("executor.max_attempts", 3)
	v.SetDefault("executor.attempt_delay", "2s")

	v.SetDefault("storage.backend", "memory")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	if c.Solana.RPCURL == "" {
		return fmt.Errorf("solana.rpc_url is required")
	}
	if c.Solana.ThrottleInterval <= 0 {
		return fmt.Errorf("solana.throttle_interval must be positive")
	}
	if c.Aggregator.QuoteURL == "" || c.Aggregator.SwapURL == "" {
		return fmt.Errorf("aggregator.quote_url and aggregator.swap_url are required")
	}
	if c.Aggregator.SlippageBps < 1 || c.Aggregator.SlippageBps > 10000 {
		return fmt.Errorf("aggregator.slippage_bps must be between 1 and 10000")
	}
	if c.Monitor.Interval < time.Second {
		return fmt.Errorf("monitor.interval must be at least 1 second")
	}
	if c.Monitor.PurchaseAmount <= 0 {
		return fmt.Errorf("monitor.purchase_amount must be positive")
	}
	if c.Monitor.UseWebsocket && c.Solana.WSURL == "" {
		return fmt.Errorf("solana.ws_url is required when monitor.use_websocket is set")
	}
	if c.Analyzer.HolderMin == 0 {
		return fmt.Errorf("analyzer.holder_min must be positive")
	}
	if c.Analyzer.ConcentrationMax <= 0 || c.Analyzer.ConcentrationMax > 100 {
		return fmt.Errorf("analyzer.concentration_max must be in (0, 100]")
	}
	if c.Analyzer.VolumeMin < 0 {
		return fmt.Errorf("analyzer.volume_min must not be negative")
	}
	if c.Executor.MaxAttempts < 1 {
		return fmt.Errorf("executor.max_attempts must be at least 1")
	}

	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend must be memory or postgres")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}

	return nil
}
