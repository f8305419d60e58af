package balancecache

import (
	"context"

	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	"github.com/muhammadchandra19/settlement/pkg/redis"
	ledgerv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/ledger/v1"
	"github.com/shopspring/decimal"
)

// Cache keeps one Redis hash per user, keyed by asset.
type Cache struct {
	redisclient redis.Client
	config      *redis.Config
	logger      logger.Interface
}

var _ ledgerv1.BalanceCache = (*Cache)(nil)

// NewCache creates a balance cache on top of redisclient.
func NewCache(redisclient redis.Client, config *redis.Config, logger logger.Interface) *Cache {
	return &Cache{
		redisclient: redisclient,
		config:      config,
		logger:      logger,
	}
}

func (c *Cache) key(userID string) string {
	return c.config.Key("balances:" + userID)
}

// Get returns the cached balance of userID in assetID.
func (c *Cache) Get(ctx context.Context, userID, assetID string) (decimal.Decimal, bool, error) {
	data, err := c.redisclient.HGet(ctx, c.key(userID), assetID)
	if err != nil {
		return decimal.Zero, false, errors.NewTracer("balance_cache_get_error").Wrap(err)
	}
	if data == "" {
		return decimal.Zero, false, nil
	}

	balance, err := decimal.NewFromString(data)
	if err != nil {
		// a corrupt entry is treated as a miss and overwritten by the caller
		c.logger.WarnContext(ctx, "Discarding unreadable cached balance",
			logger.Field{Key: "userID", Value: userID},
			logger.Field{Key: "assetID", Value: assetID},
			logger.Field{Key: "value", Value: data},
		)
		return decimal.Zero, false, nil
	}
	return balance, true, nil
}

// Set stores balance as its decimal string.
func (c *Cache) Set(ctx context.Context, userID, assetID string, balance decimal.Decimal) error {
	_, err := c.redisclient.HSet(ctx, c.key(userID), map[string]any{assetID: balance.String()})
	if err != nil {
		c.logger.ErrorContext(ctx, err,
			logger.Field{Key: "userID", Value: userID},
			logger.Field{Key: "assetID", Value: assetID},
		)
		return errors.NewTracer("balance_cache_set_error").Wrap(err)
	}

	c.logger.DebugContext(ctx, "Balance cached",
		logger.Field{Key: "userID", Value: userID},
		logger.Field{Key: "assetID", Value: assetID},
		logger.Field{Key: "balance", Value: balance.String()},
	)
	return nil
}
