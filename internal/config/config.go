// Package config loads application configuration from file and environment
// and owns global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Market    MarketConfig    `yaml:"market" mapstructure:"market"`
	Roster    RosterConfig    `yaml:"roster" mapstructure:"roster"`
	Screen    ScreenConfig    `yaml:"screen" mapstructure:"screen"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP listeners. Port serves the analytics
// API; ReportsPort serves the drafting API.
type ServerConfig struct {
	Port            int  `yaml:"port" mapstructure:"port"`
	ReportsPort     int  `yaml:"reports_port" mapstructure:"reports_port"`
	TimeoutSecs     int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	DebugErrors     bool `yaml:"debug_errors" mapstructure:"debug_errors"`
	ShutdownSecs    int  `yaml:"shutdown_secs" mapstructure:"shutdown_secs"`
	MaxRequestBytes int  `yaml:"max_request_bytes" mapstructure:"max_request_bytes"`
}

// AuthConfig configures signup/login and token issuing.
type AuthConfig struct {
	Secret       string `yaml:"secret" mapstructure:"secret"`
	TokenTTLMins int    `yaml:"token_ttl_mins" mapstructure:"token_ttl_mins"`
}

// AnthropicConfig holds Anthropic API settings for report drafting.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst   int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// MarketConfig configures live quote lookups.
type MarketConfig struct {
	TickerSuffix string `yaml:"ticker_suffix" mapstructure:"ticker_suffix"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// RosterConfig points at the listed-company roster workbook.
type RosterConfig struct {
	Path  string `yaml:"path" mapstructure:"path"`
	Sheet string `yaml:"sheet" mapstructure:"sheet"`
}

// ScreenConfig holds default screening thresholds. Query parameters
// override these per request.
type ScreenConfig struct {
	ROEMin         float64 `yaml:"roe_min" mapstructure:"roe_min"`
	DebtMax        float64 `yaml:"debt_max" mapstructure:"debt_max"`
	EquityRatioMin float64 `yaml:"equity_ratio_min" mapstructure:"equity_ratio_min"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ESG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.reports_port", 8081)
	v.SetDefault("server.timeout_secs", 30)
	v.SetDefault("server.shutdown_secs", 10)
	v.SetDefault("server.max_request_bytes", 1<<20)
	v.SetDefault("auth.token_ttl_mins", 60)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.rate_per_sec", 0.5)
	v.SetDefault("anthropic.rate_burst", 2)
	v.SetDefault("anthropic.timeout_secs", 120)
	v.SetDefault("market.ticker_suffix", ".KS")
	v.SetDefault("market.timeout_secs", 15)
	v.SetDefault("roster.path", "data/listed_companies.xlsx")
	v.SetDefault("roster.sheet", "")
	v.SetDefault("screen.roe_min", 5.0)
	v.SetDefault("screen.debt_max", 200.0)
	v.SetDefault("screen.equity_ratio_min", 30.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger builds the global zap logger from config.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
