package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. Values come from environment
// variables so main stays lean and deployments stay twelve-factor.
type Config struct {
	Addr string

	// PostgresDSN selects the durable store. Empty means in-memory stores,
	// which is the default for local development and unit-style runs.
	PostgresDSN string

	// RedisURL enables the progress read cache. Empty disables caching.
	RedisURL string

	// KafkaBrokers enables event publishing. Empty disables it.
	KafkaBrokers []string
	KafkaTopic   string

	// TokenSigningKey signs participant session tokens.
	TokenSigningKey string
	TokenTTL        time.Duration

	// OperatorKeyHash is the bcrypt hash of the operator API key. Requests
	// presenting the matching key get the operator capability.
	OperatorKeyHash string

	// ProgressCacheTTL bounds staleness of cached progress reads.
	ProgressCacheTTL time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:             envOr("QUORUM_ADDR", ":8080"),
		PostgresDSN:      os.Getenv("QUORUM_POSTGRES_DSN"),
		RedisURL:         os.Getenv("QUORUM_REDIS_URL"),
		KafkaTopic:       envOr("QUORUM_KAFKA_TOPIC", "quorum.events"),
		TokenSigningKey:  envOr("QUORUM_TOKEN_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenTTL:         envDurationOr("QUORUM_TOKEN_TTL", 12*time.Hour),
		OperatorKeyHash:  os.Getenv("QUORUM_OPERATOR_KEY_HASH"),
		ProgressCacheTTL: envDurationOr("QUORUM_PROGRESS_CACHE_TTL", 30*time.Second),
	}
	if brokers := os.Getenv("QUORUM_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitCSV(brokers)
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
