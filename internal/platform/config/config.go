package config

import (
	"fmt"
	"os"
	"strings"
)

// Config captures process-level configuration. It is loaded once at startup
// and read-only afterwards.
type Config struct {
	Addr string

	// PostgresURL is the DSN for both the audit store and the records store.
	PostgresURL string

	// EncryptionSecret feeds the codec's key derivation. Its absence is a
	// fatal startup error, never a request-time one.
	EncryptionSecret string
	HashSalt         string

	JWTSigningKey string

	// RedisURL enables the escalation notifier when set.
	RedisURL string

	// KafkaBrokers enables the audit mirror when set.
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv builds the config from environment variables so main stays lean.
// Only the encryption material is mandatory.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:             getenv("CARELOCK_ADDR", ":8080"),
		PostgresURL:      os.Getenv("CARELOCK_POSTGRES_URL"),
		EncryptionSecret: os.Getenv("CARELOCK_ENCRYPTION_SECRET"),
		HashSalt:         os.Getenv("CARELOCK_HASH_SALT"),
		JWTSigningKey:    getenv("CARELOCK_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		RedisURL:         os.Getenv("CARELOCK_REDIS_URL"),
		KafkaTopic:       os.Getenv("CARELOCK_KAFKA_TOPIC"),
	}
	if brokers := os.Getenv("CARELOCK_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if cfg.EncryptionSecret == "" {
		return Config{}, fmt.Errorf("CARELOCK_ENCRYPTION_SECRET is required")
	}
	if cfg.HashSalt == "" {
		return Config{}, fmt.Errorf("CARELOCK_HASH_SALT is required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
