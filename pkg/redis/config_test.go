package redis

import (
	"context"
	"testing"
	"time"

	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "default config", mutate: func(c *Config) {}},
		{name: "no addresses", mutate: func(c *Config) { c.Addrs = nil }, wantErr: true},
		{name: "unknown mode", mutate: func(c *Config) { c.Mode = "sentinel" }, wantErr: true},
		{name: "zero pool", mutate: func(c *Config) { c.PoolSize = 0 }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.MaxRetries = -1 }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.ConnectTimeout = 0 }, wantErr: true},
		{name: "cluster", mutate: func(c *Config) { c.Mode = Cluster; c.Addrs = []string{"a:1", "b:2"} }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr {
				assert.True(t, errors.HasCode(err, errors.RedisConfigError))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_Key(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "settlement:balances:u1", cfg.Key("balances:u1"))
}

func TestClient_ConnectRejectsInvalidConfig(t *testing.T) {
	c := NewClient(logger.NewNop(), &Config{Mode: Standalone, ConnectTimeout: time.Second})

	err := c.Connect(context.Background())
	assert.True(t, errors.HasCode(err, errors.RedisConfigError))

	assert.True(t, errors.HasCode(NewClient(logger.NewNop(), nil).Connect(context.Background()), errors.RedisConfigError))
}
