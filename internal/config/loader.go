package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBSCAN_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBSCAN_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Feeds ──
	setStr(&cfg.Feeds.MinswapURL, "ARBSCAN_FEEDS_MINSWAP_URL")
	setStr(&cfg.Feeds.SundaeswapURL, "ARBSCAN_FEEDS_SUNDAESWAP_URL")
	setStr(&cfg.Feeds.MuesliswapURL, "ARBSCAN_FEEDS_MUESLISWAP_URL")
	setStr(&cfg.Feeds.WingridersURL, "ARBSCAN_FEEDS_WINGRIDERS_URL")
	setStr(&cfg.Feeds.CoinGeckoURL, "ARBSCAN_FEEDS_COINGECKO_URL")
	setStr(&cfg.Feeds.TickerWSURL, "ARBSCAN_FEEDS_TICKER_WS_URL")
	setDuration(&cfg.Feeds.RequestTimeout, "ARBSCAN_FEEDS_REQUEST_TIMEOUT")

	// ── Scanner ──
	setDuration(&cfg.Scanner.ScanInterval, "ARBSCAN_SCANNER_SCAN_INTERVAL")
	setDuration(&cfg.Scanner.Cooldown, "ARBSCAN_SCANNER_COOLDOWN")
	setStringSlice(&cfg.Scanner.KnownSymbols, "ARBSCAN_SCANNER_KNOWN_SYMBOLS")
	setStringSlice(&cfg.Scanner.ReferenceVenues, "ARBSCAN_SCANNER_REFERENCE_VENUES")
	setFloat64(&cfg.Scanner.MinRawProfitPct, "ARBSCAN_SCANNER_MIN_RAW_PROFIT_PCT")
	setFloat64(&cfg.Scanner.MaxRawProfitPct, "ARBSCAN_SCANNER_MAX_RAW_PROFIT_PCT")
	setFloat64(&cfg.Scanner.MinNetProfitPct, "ARBSCAN_SCANNER_MIN_NET_PROFIT_PCT")
	setFloat64(&cfg.Scanner.MinNetProfit, "ARBSCAN_SCANNER_MIN_NET_PROFIT")
	setFloat64(&cfg.Scanner.MaxSlippageRisk, "ARBSCAN_SCANNER_MAX_SLIPPAGE_RISK")
	setInt(&cfg.Scanner.TopN, "ARBSCAN_SCANNER_TOP_N")
	setBool(&cfg.Scanner.ArchiveToS3, "ARBSCAN_SCANNER_ARCHIVE_TO_S3")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ARBSCAN_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARBSCAN_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBSCAN_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBSCAN_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBSCAN_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBSCAN_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBSCAN_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARBSCAN_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARBSCAN_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARBSCAN_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ARBSCAN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBSCAN_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBSCAN_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBSCAN_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBSCAN_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBSCAN_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.StreamMaxLen, "ARBSCAN_REDIS_STREAM_MAX_LEN")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "ARBSCAN_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARBSCAN_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARBSCAN_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARBSCAN_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARBSCAN_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ARBSCAN_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ARBSCAN_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ARBSCAN_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARBSCAN_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ARBSCAN_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ARBSCAN_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARBSCAN_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBSCAN_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBSCAN_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARBSCAN_NOTIFY_EVENTS")

	// ── Root ──
	setStr(&cfg.Mode, "ARBSCAN_MODE")
	setStr(&cfg.LogLevel, "ARBSCAN_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
