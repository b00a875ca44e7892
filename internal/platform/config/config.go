// Package config loads service configuration from environment variables so
// main stays lean.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the server needs at startup. Empty PostgresDSN,
// RedisURL, or KafkaBrokers degrade to in-memory equivalents, which keeps
// local development dependency-free.
type Config struct {
	Addr        string `env:"MOSOLO_ADDR" envDefault:":8080"`
	PostgresDSN string `env:"MOSOLO_POSTGRES_DSN"`
	RedisURL    string `env:"MOSOLO_REDIS_URL"`

	KafkaBrokers    []string `env:"MOSOLO_KAFKA_BROKERS" envSeparator:","`
	KafkaAuditTopic string   `env:"MOSOLO_KAFKA_AUDIT_TOPIC" envDefault:"mosolo.eligibility.evaluations"`

	// Eligibility engine tuning.
	EvaluateTimeout      time.Duration `env:"MOSOLO_EVALUATE_TIMEOUT" envDefault:"10s"`
	AutoActivateDefault  bool          `env:"MOSOLO_AUTO_ACTIVATE" envDefault:"true"`
	NotifyCooldown       time.Duration `env:"MOSOLO_NOTIFY_COOLDOWN" envDefault:"6h"`
	ProgressMilestone    float64       `env:"MOSOLO_PROGRESS_MILESTONE" envDefault:"25"`
	BatchChunkSize       int           `env:"MOSOLO_BATCH_CHUNK_SIZE" envDefault:"200"`
	BatchWorkers         int           `env:"MOSOLO_BATCH_WORKERS" envDefault:"8"`
	OutboxRelayInterval  time.Duration `env:"MOSOLO_OUTBOX_RELAY_INTERVAL" envDefault:"2s"`
	OutboxRelayBatchSize int           `env:"MOSOLO_OUTBOX_RELAY_BATCH" envDefault:"100"`

	Redis RedisConfig `envPrefix:"MOSOLO_REDIS_"`
}

// RedisConfig tunes the shared Redis client.
type RedisConfig struct {
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// FromEnv parses the full configuration from the process environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ProgressMilestone <= 0 || cfg.ProgressMilestone > 100 {
		return Config{}, fmt.Errorf("progress milestone must be in (0,100], got %v", cfg.ProgressMilestone)
	}
	if cfg.BatchChunkSize <= 0 || cfg.BatchWorkers <= 0 {
		return Config{}, fmt.Errorf("batch chunk size and workers must be positive")
	}
	return cfg, nil
}
