// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port string

	// Ledger source selection: RPCURL wins over DatabaseURL.
	RPCURL      string
	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration
	HeadTTL     time.Duration

	// ContractAddress emits MarketActionTx. Empty disables fetching.
	ContractAddress string
	WindowDays      int
	BlockInterval   time.Duration
	TokenDecimals   int32
	FetchTimeout    time.Duration
}

// Load reads .env (if present) and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded, using environment", "err", err)
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		RPCURL:          os.Getenv("RPC_URL"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		CacheTTL:        getDuration("CACHE_TTL", 30*time.Second),
		HeadTTL:         getDuration("HEAD_TTL", 2*time.Second),
		ContractAddress: os.Getenv("PREDICTION_MARKET_ADDRESS"),
		WindowDays:      getInt("WINDOW_DAYS", 30),
		BlockInterval:   getDuration("BLOCK_INTERVAL", 2*time.Second),
		TokenDecimals:   int32(getInt("TOKEN_DECIMALS", 6)),
		FetchTimeout:    getDuration("FETCH_TIMEOUT", 20*time.Second),
	}
}

// Window returns the look-back horizon.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		slog.Warn("invalid integer, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", v, "default", fallback.String())
		return fallback
	}
	return d
}
