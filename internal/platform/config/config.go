package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration. Values come from the
// environment so main stays lean; anything unset falls back to a development
// default.
type Config struct {
	Addr string

	// PostgresDSN selects the durable stores. Empty means in-memory stores
	// (development and unit tests only).
	PostgresDSN string

	// RedisURL enables the fast-path nullifier guard. Empty disables it; the
	// storage transaction remains the authority either way.
	RedisURL string

	// KafkaBrokers enables audit event fan-out when non-empty.
	KafkaBrokers []string
	AuditTopic   string

	// TokenSigningKey signs attendance QR tokens.
	TokenSigningKey string

	// AdminToken gates verification and revocation endpoints.
	AdminToken string

	// ProofTTL is the attendance proof validity window.
	ProofTTL time.Duration

	// ProofMode selects the proof backend ("local" is the only built-in).
	ProofMode string
}

// DefaultProofTTL is the issuance-to-expiry window for attendance proofs.
const DefaultProofTTL = 5 * time.Minute

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:            getenv("PRAMAAN_ADDR", ":8080"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		RedisURL:        os.Getenv("REDIS_URL"),
		AuditTopic:      getenv("AUDIT_TOPIC", "pramaan.audit"),
		TokenSigningKey: os.Getenv("TOKEN_SIGNING_KEY"),
		AdminToken:      os.Getenv("ADMIN_TOKEN"),
		ProofTTL:        DefaultProofTTL,
		ProofMode:       getenv("PROOF_MODE", "local"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if ttl := os.Getenv("PROOF_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			cfg.ProofTTL = d
		}
	}
	if cfg.TokenSigningKey == "" {
		// Development default - must be overridden in production.
		cfg.TokenSigningKey = "dev-secret-key-change-in-production"
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
