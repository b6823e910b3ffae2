// Package config loads process configuration from the environment so main
// stays lean. All values have local-development defaults; production deploys
// override via env.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the service needs at startup.
type Config struct {
	Addr     string
	LogLevel string

	PostgresDSN string

	// RedisURL enables the non-authoritative bulk idempotency fast path.
	// Empty disables it; correctness never depends on Redis.
	RedisURL string

	// KafkaBrokers enables the Kafka audit sink. Empty falls back to the log
	// sink.
	KafkaBrokers []string
	AuditTopic   string

	// OrgAPICodes maps caller-presented API codes to owning organisation ids.
	OrgAPICodes map[string]string

	// TrackingBaseURL is the identifier-issuing service. BatchSize bounds
	// concurrent /next calls during bulk creation.
	TrackingBaseURL   string
	TrackingBatchSize int

	// BasicAuthUser / BasicAuthHash guard the mutation endpoints. The hash is
	// a bcrypt hash of the shared credential.
	BasicAuthUser string
	BasicAuthHash string

	TxTimeout time.Duration

	// Retry tuning for transient storage faults.
	BackoffInitialDelay time.Duration
	BackoffMaxDelay     time.Duration
	BackoffMaxAttempts  int
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:              envOr("WASTETRACK_ADDR", ":3001"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		RedisURL:          os.Getenv("REDIS_URL"),
		AuditTopic:        envOr("AUDIT_TOPIC", "waste-movements.audit"),
		TrackingBaseURL:   os.Getenv("TRACKING_BASE_URL"),
		TrackingBatchSize: envIntOr("TRACKING_BATCH_SIZE", 10),
		BasicAuthUser:     os.Getenv("BASIC_AUTH_USER"),
		BasicAuthHash:     os.Getenv("BASIC_AUTH_HASH"),
		TxTimeout:         envDurationOr("TX_TIMEOUT", 5*time.Second),

		BackoffInitialDelay: envDurationOr("BACKOFF_INITIAL_DELAY", 500*time.Millisecond),
		BackoffMaxDelay:     envDurationOr("BACKOFF_MAX_DELAY", 8*time.Second),
		BackoffMaxAttempts:  envIntOr("BACKOFF_MAX_ATTEMPTS", 8),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	codes, err := ParseOrgAPICodes(os.Getenv("ORG_API_CODES"))
	if err != nil {
		return Config{}, err
	}
	cfg.OrgAPICodes = codes

	return cfg, nil
}

// ParseOrgAPICodes decodes the deployed mapping format: a base64-encoded
// "apiCode=orgId,apiCode=orgId" list. An empty value yields an empty map; the
// validator rejects resolution against an empty table at call time.
func ParseOrgAPICodes(encoded string) (map[string]string, error) {
	codes := make(map[string]string)
	if encoded == "" {
		return codes, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode ORG_API_CODES: %w", err)
	}
	for _, pair := range strings.Split(string(decoded), ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		apiCode, orgID, found := strings.Cut(pair, "=")
		if !found || apiCode == "" || orgID == "" {
			return nil, fmt.Errorf("malformed ORG_API_CODES entry %q", pair)
		}
		codes[apiCode] = orgID
	}
	return codes, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
