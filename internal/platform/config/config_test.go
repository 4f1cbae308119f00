package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("CARELOCK_ADDR", ":9090")
	t.Setenv("CARELOCK_ENCRYPTION_SECRET", "secret")
	t.Setenv("CARELOCK_HASH_SALT", "salt")
	t.Setenv("CARELOCK_KAFKA_BROKERS", "broker-1:9092,broker-2:9092")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "secret", cfg.EncryptionSecret)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("CARELOCK_ADDR", "")
	t.Setenv("CARELOCK_ENCRYPTION_SECRET", "secret")
	t.Setenv("CARELOCK_HASH_SALT", "salt")
	t.Setenv("CARELOCK_KAFKA_BROKERS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Nil(t, cfg.KafkaBrokers)
}

func TestFromEnvRequiresEncryptionMaterial(t *testing.T) {
	t.Setenv("CARELOCK_ENCRYPTION_SECRET", "")
	t.Setenv("CARELOCK_HASH_SALT", "salt")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("CARELOCK_ENCRYPTION_SECRET", "secret")
	t.Setenv("CARELOCK_HASH_SALT", "")
	_, err = FromEnv()
	assert.Error(t, err)
}
