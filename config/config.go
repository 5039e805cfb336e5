package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// validIntervals are the kline intervals the market-data API accepts.
var validIntervals = map[string]bool{
	"1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true, "3d": true, "1w": true, "1M": true,
}

// Config holds all application configuration loaded from environment
// variables. It is constructed once at startup and passed down explicitly;
// there is no process-wide mutable state.
type Config struct {
	// Market data
	BinanceHost string
	Interval    string
	KlineLimit  int
	MinHistory  int

	// Fetch hardening
	FetchRetries   int
	RetryBaseDelay time.Duration
	RetryJitter    time.Duration
	HTTPTimeout    time.Duration

	// Universe
	Symbols       string // comma-separated static override; empty enables discovery
	RefreshCycles int    // re-resolve every N cycles; 0 disables

	// Scheduling
	SymbolPacing time.Duration
	CycleSleep   time.Duration
	Workers      int
	RateLimitRPS float64

	// Rule
	RulePolicy     string
	ScoreThreshold int
	PricePrecision int

	// Alerting
	DedupTTL         time.Duration
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	GatewayAddr   string
	MetricsAddr   string
	LogLevel      string
}

// Load reads configuration from the environment (and a .env file if one
// exists) with sensible defaults, then validates it.
func Load() (*Config, error) {
	// Best-effort: a missing .env file is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		BinanceHost: getEnv("BINANCE_HOST", "https://fapi.binance.com"),
		Interval:    getEnv("INTERVAL", "15m"),
		KlineLimit:  getEnvInt("KLINE_LIMIT", 100),
		MinHistory:  getEnvInt("MIN_HISTORY", 52),

		FetchRetries:   getEnvInt("FETCH_RETRIES", 3),
		RetryBaseDelay: getEnvDuration("RETRY_BASE_DELAY", 5*time.Second),
		RetryJitter:    getEnvDuration("RETRY_JITTER", 2*time.Second),
		HTTPTimeout:    getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		Symbols:       getEnv("SYMBOLS", ""),
		RefreshCycles: getEnvInt("UNIVERSE_REFRESH_CYCLES", 0),

		SymbolPacing: getEnvDuration("SYMBOL_PACING", 29*time.Second),
		CycleSleep:   getEnvDuration("CYCLE_SLEEP", time.Minute),
		Workers:      getEnvInt("WORKERS", 1),
		RateLimitRPS: getEnvFloat("RATE_LIMIT_RPS", 5),

		RulePolicy:     getEnv("RULE_POLICY", "conjunction"),
		ScoreThreshold: getEnvInt("SCORE_THRESHOLD", 4),
		PricePrecision: getEnvInt("PRICE_PRECISION", 5),

		DedupTTL:         getEnvDuration("DEDUP_TTL", 30*time.Minute),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", ""),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects configurations that make the pipeline meaningless. These
// are the only fatal error conditions in the system.
func (c *Config) validate() error {
	if strings.TrimSpace(c.BinanceHost) == "" {
		return fmt.Errorf("config: BINANCE_HOST must not be empty")
	}
	if !validIntervals[c.Interval] {
		return fmt.Errorf("config: invalid INTERVAL %q", c.Interval)
	}
	if c.KlineLimit <= 0 || c.KlineLimit > 1000 {
		return fmt.Errorf("config: KLINE_LIMIT %d out of range (1-1000)", c.KlineLimit)
	}
	if c.MinHistory > c.KlineLimit {
		return fmt.Errorf("config: MIN_HISTORY %d exceeds KLINE_LIMIT %d", c.MinHistory, c.KlineLimit)
	}
	if c.FetchRetries < 1 {
		return fmt.Errorf("config: FETCH_RETRIES must be at least 1")
	}
	return nil
}

// SymbolList parses the static symbol override. Empty means "discover".
func (c *Config) SymbolList() []string {
	if strings.TrimSpace(c.Symbols) == "" {
		return nil
	}
	parts := strings.Split(c.Symbols, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using default %g", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}
