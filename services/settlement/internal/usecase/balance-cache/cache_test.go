package balancecache

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	"github.com/muhammadchandra19/settlement/pkg/redis"
	redis_mock "github.com/muhammadchandra19/settlement/pkg/redis/mock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Get(t *testing.T) {
	ctx := context.Background()
	config := redis.DefaultConfig()

	testCases := []struct {
		name     string
		value    string
		err      error
		expected string
		found    bool
		wantErr  bool
	}{
		{name: "hit", value: "12.5", expected: "12.5", found: true},
		{name: "miss", value: "", expected: "0"},
		{name: "unreadable value", value: "not-a-number", expected: "0"},
		{name: "redis error", err: stderrors.New("connection refused"), expected: "0", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			client := redis_mock.NewMockClient(ctrl)
			client.EXPECT().HGet(ctx, "settlement:balances:alice", "BTC").Return(tc.value, tc.err)

			cache := NewCache(client, config, logger.NewNop())
			balance, found, err := cache.Get(ctx, "alice", "BTC")
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.found, found)
			assert.Equal(t, tc.expected, balance.String())
		})
	}
}

func TestCache_Set(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the decimal string", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		client := redis_mock.NewMockClient(ctrl)
		client.EXPECT().
			HSet(ctx, "settlement:balances:alice", map[string]any{"JPY": "-30.25"}).
			Return(int64(1), nil)

		cache := NewCache(client, redis.DefaultConfig(), logger.NewNop())
		require.NoError(t, cache.Set(ctx, "alice", "JPY", decimal.RequireFromString("-30.25")))
	})

	t.Run("custom prefix", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		config := redis.DefaultConfig()
		config.PrefixKey = "test:"
		client := redis_mock.NewMockClient(ctrl)
		client.EXPECT().HSet(ctx, "test:balances:bob", gomock.Any()).Return(int64(0), nil)

		cache := NewCache(client, config, logger.NewNop())
		require.NoError(t, cache.Set(ctx, "bob", "BTC", decimal.NewFromInt(1)))
	})

	t.Run("redis error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		client := redis_mock.NewMockClient(ctrl)
		client.EXPECT().HSet(ctx, gomock.Any(), gomock.Any()).Return(int64(0), stderrors.New("timeout"))

		cache := NewCache(client, redis.DefaultConfig(), logger.NewNop())
		assert.Error(t, cache.Set(ctx, "alice", "JPY", decimal.NewFromInt(1)))
	})
}
