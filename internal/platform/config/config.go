package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr      string
	LogLevel  string
	LogFormat string

	Redis    RedisConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Contract ContractConfig
}

// RedisConfig configures the verdict cache backend. An empty URL selects the
// in-memory cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig configures the audit outbox. An empty URL selects the
// in-memory audit store, bounded to MemoryAuditCapacity events, and disables
// the relay.
type DatabaseConfig struct {
	URL                 string
	MaxOpenConns        int
	MemoryAuditCapacity int
}

// KafkaConfig configures the outbox relay. No brokers disables the relay.
type KafkaConfig struct {
	Brokers        []string
	Topic          string
	ClientID       string
	OutboxInterval time.Duration
	BatchSize      int
}

// ContractConfig tunes the verification service.
type ContractConfig struct {
	VerdictCacheTTL  time.Duration
	MaxBatchSize     int
	BatchConcurrency int
}

// Defaults returns the configuration used when no environment is set.
func Defaults() Server {
	return Server{
		Addr:      ":8080",
		LogLevel:  "info",
		LogFormat: "json",
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Database: DatabaseConfig{MaxOpenConns: 10, MemoryAuditCapacity: 10_000},
		Kafka: KafkaConfig{
			Topic:          "petchain.verdicts",
			ClientID:       "petchain",
			OutboxInterval: 2 * time.Second,
			BatchSize:      100,
		},
		Contract: ContractConfig{
			VerdictCacheTTL:  10 * time.Minute,
			MaxBatchSize:     100,
			BatchConcurrency: 8,
		},
	}
}

// FromEnv builds a Server config from PETCHAIN_* environment variables so
// main stays lean. Malformed numbers and durations are startup errors.
func FromEnv() (Server, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Server, error) {
	cfg := Defaults()
	p := parser{lookup: lookup}

	p.str("PETCHAIN_ADDR", &cfg.Addr)
	p.str("PETCHAIN_LOG_LEVEL", &cfg.LogLevel)
	p.str("PETCHAIN_LOG_FORMAT", &cfg.LogFormat)

	p.str("PETCHAIN_REDIS_URL", &cfg.Redis.URL)
	p.positiveInt("PETCHAIN_REDIS_POOL_SIZE", &cfg.Redis.PoolSize)
	p.positiveInt("PETCHAIN_REDIS_MIN_IDLE_CONNS", &cfg.Redis.MinIdleConns)
	p.duration("PETCHAIN_REDIS_DIAL_TIMEOUT", &cfg.Redis.DialTimeout)
	p.duration("PETCHAIN_REDIS_READ_TIMEOUT", &cfg.Redis.ReadTimeout)
	p.duration("PETCHAIN_REDIS_WRITE_TIMEOUT", &cfg.Redis.WriteTimeout)

	p.str("PETCHAIN_DATABASE_URL", &cfg.Database.URL)
	p.positiveInt("PETCHAIN_DATABASE_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	p.positiveInt("PETCHAIN_MEMORY_AUDIT_CAPACITY", &cfg.Database.MemoryAuditCapacity)

	p.list("PETCHAIN_KAFKA_BROKERS", &cfg.Kafka.Brokers)
	p.str("PETCHAIN_KAFKA_TOPIC", &cfg.Kafka.Topic)
	p.str("PETCHAIN_KAFKA_CLIENT_ID", &cfg.Kafka.ClientID)
	p.positiveDuration("PETCHAIN_OUTBOX_INTERVAL", &cfg.Kafka.OutboxInterval)
	p.positiveInt("PETCHAIN_OUTBOX_BATCH_SIZE", &cfg.Kafka.BatchSize)

	p.duration("PETCHAIN_VERDICT_CACHE_TTL", &cfg.Contract.VerdictCacheTTL)
	p.positiveInt("PETCHAIN_MAX_BATCH_SIZE", &cfg.Contract.MaxBatchSize)
	p.positiveInt("PETCHAIN_BATCH_CONCURRENCY", &cfg.Contract.BatchConcurrency)

	if p.err != nil {
		return Server{}, p.err
	}
	return cfg, nil
}

// parser keeps the first error so FromEnv reads as a flat list.
type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) get(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) list(key string, dst *[]string) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func (p *parser) positiveInt(key string, dst *int) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		p.err = fmt.Errorf("%s: expected a positive integer, got %q", key, v)
		return
	}
	*dst = n
}

func (p *parser) duration(key string, dst *time.Duration) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		p.err = fmt.Errorf("%s: expected a non-negative duration, got %q", key, v)
		return
	}
	*dst = d
}

func (p *parser) positiveDuration(key string, dst *time.Duration) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.err = fmt.Errorf("%s: expected a positive duration, got %q", key, v)
		return
	}
	*dst = d
}
