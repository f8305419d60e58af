package redis

import "time"

// Mode represents the mode of the Redis client.
type Mode string

const (
	// Standalone Mode is for a single Redis instance.
	Standalone Mode = "standalone"
	// Cluster Mode is for a Redis cluster setup.
	Cluster Mode = "cluster"
)

// Config holds the configuration for the Redis client.
type Config struct {
	Mode     Mode   `env:"MODE" envDefault:"standalone"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`

	Addrs []string `env:"ADDRS" envSeparator:"," envDefault:"localhost:6379"`

	ConnectTimeout  time.Duration `env:"CONNECT_TIMEOUT" envDefault:"5s"`
	MaxRetries      int           `env:"MAX_RETRIES" envDefault:"3"`
	MinRetryBackoff time.Duration `env:"MIN_RETRY_BACKOFF" envDefault:"100ms"`
	MaxRetryBackoff time.Duration `env:"MAX_RETRY_BACKOFF" envDefault:"2s"`
	PoolSize        int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns    int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"10m"`
	PoolTimeout     time.Duration `env:"POOL_TIMEOUT" envDefault:"4s"`
	PrefixKey       string        `env:"PREFIX_KEY" envDefault:"settlement:"`
}

// DefaultConfig returns a default configuration for the Redis client.
func DefaultConfig() *Config {
	return &Config{
		Mode:            Standalone,
		Addrs:           []string{"localhost:6379"},
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 2 * time.Second,
		PoolSize:        10,
		MinIdleConns:    2,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
		PoolTimeout:     4 * time.Second,
		PrefixKey:       "settlement:",
	}
}

// Key prefixes name with the configured key prefix.
func (c *Config) Key(name string) string {
	return c.PrefixKey + name
}

// Validate checks the settings Connect depends on.
func (c *Config) Validate() error {
	switch {
	case len(c.Addrs) == 0:
		return errConfig("Redis addresses are empty")
	case c.Mode != Standalone && c.Mode != Cluster:
		return errConfig("Invalid Redis mode")
	case c.ConnectTimeout <= 0:
		return errConfig("Invalid Redis connect timeout")
	case c.PoolSize <= 0:
		return errConfig("Invalid Redis pool size")
	case c.MinIdleConns < 0 || c.MaxIdleConns < 0:
		return errConfig("Invalid Redis idle connections")
	case c.ConnMaxLifetime <= 0 || c.ConnMaxIdleTime <= 0:
		return errConfig("Invalid Redis connection lifetime")
	case c.PoolTimeout <= 0:
		return errConfig("Invalid Redis pool timeout")
	case c.MaxRetries < 0 || c.MinRetryBackoff < 0 || c.MaxRetryBackoff < 0:
		return errConfig("Invalid Redis retry settings")
	}
	return nil
}
