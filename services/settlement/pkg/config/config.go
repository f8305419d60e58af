package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/muhammadchandra19/settlement/pkg/postgresql"
	"github.com/muhammadchandra19/settlement/pkg/redis"
)

// Storage selects the backing store of the engine.
type Storage string

const (
	// StoragePostgres keeps orders, trades and the ledger in PostgreSQL.
	StoragePostgres Storage = "postgres"
	// StorageMemory keeps everything in process. Used for local runs.
	StorageMemory Storage = "memory"
)

// Config represents the settlement engine configuration.
type Config struct {
	App        AppConfig         `envPrefix:"APP_"`
	Postgres   postgresql.Config `envPrefix:"POSTGRES_"`
	Redis      redis.Config      `envPrefix:"REDIS_"`
	OrderKafka OrderKafkaConfig  `envPrefix:"ORDER_KAFKA_"`
	EventKafka EventKafkaConfig  `envPrefix:"EVENT_KAFKA_"`
	Dispatch   DispatchConfig    `envPrefix:"DISPATCH_"`
}

// AppConfig represents the application configuration.
type AppConfig struct {
	Name            string   `env:"NAME" envDefault:"settlement"`
	Environment     string   `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel        string   `env:"LOG_LEVEL" envDefault:"info"`
	HealthPort      int      `env:"HEALTH_PORT" envDefault:"8081"`
	Storage         Storage  `env:"STORAGE" envDefault:"postgres"`
	MarketRemainder string   `env:"MARKET_REMAINDER" envDefault:"cancel"`
	QuotableAssets  []string `env:"QUOTABLE_ASSETS" envSeparator:"," envDefault:"JPY"`
	RedisEnabled    bool     `env:"REDIS_ENABLED" envDefault:"true"`
}

// OrderKafkaConfig is the topic commands are read from.
type OrderKafkaConfig struct {
	Brokers []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic   string   `env:"TOPIC" envDefault:"settlement-commands"`
	GroupID string   `env:"GROUP_ID" envDefault:"settlement"`
}

// EventKafkaConfig is the topic settlement events are written to.
type EventKafkaConfig struct {
	Enabled      bool          `env:"ENABLED" envDefault:"true"`
	Brokers      []string      `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic        string        `env:"TOPIC" envDefault:"settlement-events"`
	BatchTimeout time.Duration `env:"BATCH_TIMEOUT" envDefault:"10ms"`
}

// DispatchConfig tunes the post-commit event dispatcher.
type DispatchConfig struct {
	QueueSize      int           `env:"QUEUE_SIZE" envDefault:"1024"`
	HandlerTimeout time.Duration `env:"HANDLER_TIMEOUT" envDefault:"5s"`
}

// Validate checks settings that env tags cannot express.
func (c *Config) Validate() error {
	switch c.App.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q", c.App.Storage)
	}
	switch c.App.MarketRemainder {
	case "cancel", "keep":
	default:
		return fmt.Errorf("unknown market remainder policy %q", c.App.MarketRemainder)
	}
	if len(c.App.QuotableAssets) == 0 {
		return fmt.Errorf("at least one quotable asset is required")
	}
	if c.Dispatch.QueueSize <= 0 {
		return fmt.Errorf("dispatch queue size must be positive")
	}
	return nil
}

// Load loads the configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad loads the configuration and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
