// Package configs provides application configuration loaded from environment variables.
// All configuration is externalized via environment variables for 12-factor app compliance.
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	// Symbols is the list of canonical symbols tracked by the pipeline.
	Symbols []string

	// DBDSN is the ClickHouse connection string.
	DBDSN string

	// ServerPort is the HTTP/WebSocket listen port.
	ServerPort string

	// Feed contains upstream feed connection settings.
	Feed FeedConfig

	// Market contains trading-session window settings.
	Market MarketConfig

	// Chain contains option-chain fetch and analytics settings.
	Chain ChainConfig

	// Journal contains Kafka settings for the raw tick journal.
	Journal JournalConfig

	// Ingester contains settings for the Kafka-to-ClickHouse tick ingester.
	Ingester IngesterConfig
}

// FeedConfig holds upstream websocket feed settings.
type FeedConfig struct {
	// URL is the provider websocket endpoint.
	URL string

	// AuthToken is sent as the Authorization header on dial.
	AuthToken string

	// ReconnectDelaySeconds is the fixed delay before a reconnect attempt.
	ReconnectDelaySeconds int
}

// MarketConfig holds the trading-session window.
type MarketConfig struct {
	// StartTime is the session open, "HH:MM" local to Timezone.
	StartTime string

	// EndTime is the session close, "HH:MM" local to Timezone.
	EndTime string

	// Timezone is an IANA zone name, e.g. "Asia/Kolkata".
	Timezone string

	// SnapshotIntervalMinutes is the market snapshot cadence.
	SnapshotIntervalMinutes int
}

// ChainConfig holds option-chain scheduler and analytics settings.
type ChainConfig struct {
	// FetchIntervalMinutes is the scheduled fetch cadence per symbol.
	FetchIntervalMinutes int

	// StrikeDepth is how many strikes either side of ATM to analyze.
	StrikeDepth int

	// FetchOutsideHours allows scheduled fetches while the session is closed.
	FetchOutsideHours bool

	// APIKey selects live vs synthetic chain data. Empty means synthetic.
	APIKey string

	// APIBaseURL is the upstream option-chain REST endpoint.
	APIBaseURL string

	// SpotAPIURL, when set, sources spot prices over HTTP instead of the
	// in-process price store. Useful when the analytics engine runs apart
	// from the feed daemon.
	SpotAPIURL string

	// SpotFallback maps symbol to the default spot price used when the
	// live price lookup fails.
	SpotFallback map[string]float64

	// RetentionDays is how long option-chain snapshots are kept.
	RetentionDays int
}

// JournalConfig holds Kafka producer settings for tick archival.
type JournalConfig struct {
	// Enabled turns the tick journal side channel on.
	Enabled bool

	// Broker is the Kafka broker address (e.g., "localhost:9092").
	Broker string

	// Topic is the Kafka topic for raw ticks.
	Topic string

	// GroupID is the consumer group ID for the ingester.
	GroupID string
}

// IngesterConfig holds settings for batch processing.
type IngesterConfig struct {
	// BatchSize is the maximum number of ticks to accumulate before flushing.
	BatchSize int

	// BatchTimeoutSeconds is the maximum seconds to wait before flushing.
	BatchTimeoutSeconds int
}

// getDatabaseDSN constructs the ClickHouse DSN from environment variables.
func getDatabaseDSN() string {
	dbUser := getEnv("CLICKHOUSE_USER", "default")
	dbPassword := getEnv("CLICKHOUSE_PASSWORD", "")
	dbHost := getEnv("CLICKHOUSE_HOST", "localhost")
	dbPort := getEnv("CLICKHOUSE_TCP_PORT", "9000")
	dbName := getEnv("CLICKHOUSE_DB", "pulse")

	return fmt.Sprintf(
		"clickhouse://%s:%s@%s:%s/%s?dial_timeout=10s&read_timeout=20s",
		dbUser, dbPassword, dbHost, dbPort, dbName,
	)
}

// getSpotFallbacks parses SPOT_FALLBACKS, a comma-separated list of
// SYMBOL=PRICE pairs, e.g. "NIFTY=21500,BANKNIFTY=46000".
func getSpotFallbacks() map[string]float64 {
	out := map[string]float64{
		"NIFTY":     21500,
		"BANKNIFTY": 46000,
	}

	raw := getEnv("SPOT_FALLBACKS", "")
	if raw == "" {
		return out
	}

	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		price, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			continue
		}
		out[strings.TrimSpace(parts[0])] = price
	}
	return out
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
// Call this once at application startup.
func AppLoad() *AppConfig {
	_ = godotenv.Load() // Ignore error - .env is optional

	symbols := strings.Split(getEnv("SYMBOLS", "NIFTY,BANKNIFTY"), ",")
	for i := range symbols {
		symbols[i] = strings.TrimSpace(symbols[i])
	}

	return &AppConfig{
		Symbols:    symbols,
		DBDSN:      getDatabaseDSN(),
		ServerPort: getEnv("SERVER_PORT", "8081"),
		Feed: FeedConfig{
			URL:                   getEnv("FEED_WS_URL", "wss://socket.fyers.in/realtime"),
			AuthToken:             getEnv("FEED_AUTH_TOKEN", ""),
			ReconnectDelaySeconds: getEnvInt("FEED_RECONNECT_DELAY_SECONDS", 5),
		},
		Market: MarketConfig{
			StartTime:               getEnv("MARKET_START_TIME", "09:15"),
			EndTime:                 getEnv("MARKET_END_TIME", "15:30"),
			Timezone:                getEnv("MARKET_TIMEZONE", "Asia/Kolkata"),
			SnapshotIntervalMinutes: getEnvInt("SNAPSHOT_INTERVAL_MINUTES", 3),
		},
		Chain: ChainConfig{
			FetchIntervalMinutes: getEnvInt("CHAIN_FETCH_INTERVAL_MINUTES", 3),
			StrikeDepth:          getEnvInt("CHAIN_STRIKE_DEPTH", 2),
			FetchOutsideHours:    getEnvBool("CHAIN_FETCH_OUTSIDE_HOURS", true),
			APIKey:               getEnv("CHAIN_API_KEY", ""),
			APIBaseURL:           getEnv("CHAIN_API_BASE_URL", "https://api.fyers.in/data-rest/v2"),
			SpotAPIURL:           getEnv("CHAIN_SPOT_API_URL", ""),
			SpotFallback:         getSpotFallbacks(),
			RetentionDays:        getEnvInt("CHAIN_RETENTION_DAYS", 7),
		},
		Journal: JournalConfig{
			Enabled: getEnvBool("JOURNAL_ENABLED", false),
			Broker:  getEnv("KAFKA_BROKER", "localhost:9092"),
			Topic:   getEnv("KAFKA_TICK_TOPIC", "pulse_ticks"),
			GroupID: getEnv("KAFKA_TICK_GROUP_ID", "pulse-tick-ingester"),
		},
		Ingester: IngesterConfig{
			BatchSize:           getEnvInt("BATCH_SIZE", 200),
			BatchTimeoutSeconds: getEnvInt("BATCH_TIMEOUT_SECONDS", 5),
		},
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvBool returns the environment variable as bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
