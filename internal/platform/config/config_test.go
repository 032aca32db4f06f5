package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := fromLookup(env(nil))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := fromLookup(env(map[string]string{
		"PETCHAIN_ADDR":              ":9090",
		"PETCHAIN_REDIS_URL":         "redis://localhost:6379/0",
		"PETCHAIN_KAFKA_BROKERS":     "a:9092, b:9092,,",
		"PETCHAIN_VERDICT_CACHE_TTL": "90s",
		"PETCHAIN_MAX_BATCH_SIZE":    "25",
		"PETCHAIN_LOG_FORMAT":        "  text ",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Second, cfg.Contract.VerdictCacheTTL)
	assert.Equal(t, 25, cfg.Contract.MaxBatchSize)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestFromLookup_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"PETCHAIN_MAX_BATCH_SIZE":    "zero",
		"PETCHAIN_OUTBOX_BATCH_SIZE": "0",
		"PETCHAIN_VERDICT_CACHE_TTL": "soon",
		"PETCHAIN_OUTBOX_INTERVAL":   "-1s",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			_, err := fromLookup(env(map[string]string{key: value}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestFromLookup_ZeroDurations(t *testing.T) {
	t.Run("zero outbox interval is rejected", func(t *testing.T) {
		_, err := fromLookup(env(map[string]string{"PETCHAIN_OUTBOX_INTERVAL": "0"}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PETCHAIN_OUTBOX_INTERVAL")
	})

	t.Run("zero cache ttl keeps verdicts forever", func(t *testing.T) {
		cfg, err := fromLookup(env(map[string]string{"PETCHAIN_VERDICT_CACHE_TTL": "0s"}))
		require.NoError(t, err)
		assert.Zero(t, cfg.Contract.VerdictCacheTTL)
	})
}

func TestFromLookup_MemoryAuditCapacity(t *testing.T) {
	cfg, err := fromLookup(env(map[string]string{"PETCHAIN_MEMORY_AUDIT_CAPACITY": "500"}))
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Database.MemoryAuditCapacity)

	_, err = fromLookup(env(map[string]string{"PETCHAIN_MEMORY_AUDIT_CAPACITY": "0"}))
	assert.Error(t, err)
}
