// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBSCAN_* environment variables.
type Config struct {
	Feeds    FeedsConfig          `toml:"feeds"`
	Scanner  ScannerConfig        `toml:"scanner"`
	Venues   map[string]VenueFees `toml:"venues"`
	Postgres PostgresConfig       `toml:"postgres"`
	Redis    RedisConfig          `toml:"redis"`
	S3       S3Config             `toml:"s3"`
	Server   ServerConfig         `toml:"server"`
	Notify   NotifyConfig         `toml:"notify"`
	Mode     string               `toml:"mode"`
	LogLevel string               `toml:"log_level"`
}

// FeedsConfig holds the per-venue API endpoints the aggregator polls.
type FeedsConfig struct {
	MinswapURL    string `toml:"minswap_url"`
	SundaeswapURL string `toml:"sundaeswap_url"`
	MuesliswapURL string `toml:"muesliswap_url"`
	WingridersURL string `toml:"wingriders_url"`
	CoinGeckoURL  string `toml:"coingecko_url"`

	// TickerWSURL is an optional websocket ticker stream that keeps the
	// price cache warm between scan cycles.
	TickerWSURL string `toml:"ticker_ws_url"`

	RequestTimeout duration `toml:"request_timeout"`
}

// ScannerConfig holds the detection and ranking thresholds. The values mirror
// the production heuristics; change them only with a backtest in hand.
type ScannerConfig struct {
	ScanInterval duration `toml:"scan_interval"`
	Cooldown     duration `toml:"cooldown"`

	// KnownSymbols lists the base assets the normalizer accepts.
	KnownSymbols []string `toml:"known_symbols"`
	// ReferenceVenues are price sources used for display only and excluded
	// from detection (pure fiat aggregators).
	ReferenceVenues []string `toml:"reference_venues"`

	MinPriceGap     float64 `toml:"min_price_gap"`      // noise floor on |p_a - p_b|
	MinRawProfitPct float64 `toml:"min_raw_profit_pct"` // below: not worth fees
	MaxRawProfitPct float64 `toml:"max_raw_profit_pct"` // above: likely bad data
	MaxTradeVolume  float64 `toml:"max_trade_volume"`   // absolute sizing cap

	MinNetProfitPct float64 `toml:"min_net_profit_pct"`
	MinVolume       float64 `toml:"min_volume"`
	MaxSlippageRisk float64 `toml:"max_slippage_risk"`
	MinNetProfit    float64 `toml:"min_net_profit"`
	ExecutionFloor  float64 `toml:"execution_floor"` // net profit bar for execution-ready
	TopN            int     `toml:"top_n"`
	ExpirySeconds   int     `toml:"expiry_seconds"`
	DefaultFeeRate  float64 `toml:"default_fee_rate"` // flat rate for unknown venues

	PruneOlderThan duration `toml:"prune_older_than"`
	ArchiveToS3    bool     `toml:"archive_to_s3"`
}

// VenueFees is the static fee schedule for one known venue.
type VenueFees struct {
	TradingFee    float64 `toml:"trading_fee"`
	WithdrawalFee float64 `toml:"withdrawal_fee"`
	NetworkFee    float64 `toml:"network_fee"`
	MinimumTrade  float64 `toml:"minimum_trade"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"pool_size"`
	MaxRetries   int    `toml:"max_retries"`
	TLSEnabled   bool   `toml:"tls_enabled"`
	StreamMaxLen int    `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters for scan archives.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "45s", "2m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Feeds: FeedsConfig{
			MinswapURL:     "https://monorepo-mainnet-prod.minswap.org/graphql",
			SundaeswapURL:  "https://stats.sundaeswap.finance/graphql",
			MuesliswapURL:  "https://api.muesliswap.com/list",
			WingridersURL:  "https://api.mainnet.wingriders.com/markets",
			CoinGeckoURL:   "https://api.coingecko.com/api/v3",
			RequestTimeout: duration{15 * time.Second},
		},
		Scanner: ScannerConfig{
			ScanInterval:    duration{60 * time.Second},
			Cooldown:        duration{45 * time.Second},
			KnownSymbols:    []string{"ADA", "MIN", "SUNDAE", "WRT", "MILK", "DJED", "IUSD", "HOSKY"},
			ReferenceVenues: []string{"coingecko"},
			MinPriceGap:     0.001,
			MinRawProfitPct: 0.5,
			MaxRawProfitPct: 15,
			MaxTradeVolume:  500,
			MinNetProfitPct: 0.8,
			MinVolume:       50,
			MaxSlippageRisk: 4,
			MinNetProfit:    2,
			ExecutionFloor:  5,
			TopN:            12,
			ExpirySeconds:   120,
			DefaultFeeRate:  0.004,
			PruneOlderThan:  duration{time.Hour},
		},
		Venues: map[string]VenueFees{
			"minswap":    {TradingFee: 0.003, WithdrawalFee: 0.0005, NetworkFee: 0.17, MinimumTrade: 10},
			"sundaeswap": {TradingFee: 0.003, WithdrawalFee: 0.0005, NetworkFee: 0.17, MinimumTrade: 10},
			"muesliswap": {TradingFee: 0.0035, WithdrawalFee: 0.0005, NetworkFee: 0.17, MinimumTrade: 5},
			"wingriders": {TradingFee: 0.0035, WithdrawalFee: 0.0005, NetworkFee: 0.17, MinimumTrade: 5},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbscan",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DB:           0,
			PoolSize:     20,
			MaxRetries:   3,
			StreamMaxLen: 10000,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arbscan-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"scan":  true,
	"serve": true,
	"full":  true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for inconsistencies and returns a single
// error aggregating everything that is wrong.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, serve, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Scanner.Cooldown.Duration <= 0 {
		errs = append(errs, "scanner: cooldown must be positive")
	}
	if c.Scanner.ScanInterval.Duration < c.Scanner.Cooldown.Duration {
		errs = append(errs, fmt.Sprintf("scanner: scan_interval %s must not be shorter than cooldown %s",
			c.Scanner.ScanInterval, c.Scanner.Cooldown))
	}
	if c.Scanner.MinRawProfitPct >= c.Scanner.MaxRawProfitPct {
		errs = append(errs, "scanner: min_raw_profit_pct must be below max_raw_profit_pct")
	}
	if c.Scanner.TopN <= 0 {
		errs = append(errs, "scanner: top_n must be positive")
	}
	if c.Scanner.DefaultFeeRate < 0 {
		errs = append(errs, "scanner: default_fee_rate must not be negative")
	}

	for name, fees := range c.Venues {
		if fees.TradingFee < 0 || fees.WithdrawalFee < 0 || fees.NetworkFee < 0 {
			errs = append(errs, fmt.Sprintf("venues.%s: fees must not be negative", name))
		}
	}

	needsPostgres := c.Mode == "scan" || c.Mode == "serve" || c.Mode == "full"
	if needsPostgres && c.Postgres.DSN == "" && c.Postgres.Host == "" {
		errs = append(errs, "postgres: either dsn or host must be set for mode "+c.Mode)
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}

	if c.Scanner.ArchiveToS3 && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must be set when scanner.archive_to_s3 is enabled")
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port %d out of range", c.Server.Port))
	}

	// Notify — token and chat id must come together.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// FeeTable converts the [venues] section into the map consumed by the engine,
// with venue names lowercased for case-insensitive lookup.
func (c *Config) FeeTable() map[string]VenueFees {
	table := make(map[string]VenueFees, len(c.Venues))
	for name, fees := range c.Venues {
		table[strings.ToLower(name)] = fees
	}
	return table
}
