package main

import (
	"math/rand"
	"testing"

	orderreaderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order-reader/v1"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerator(seed int64) *generator {
	return &generator{
		rng:         rand.New(rand.NewSource(seed)),
		base:        "BTC",
		quote:       "JPY",
		users:       []string{userID(1), userID(2), userID(3)},
		basePrice:   decimal.NewFromInt(1000),
		priceSpread: decimal.NewFromInt(100),
	}
}

func TestGenerator_Deposits(t *testing.T) {
	cmds := newGenerator(1).deposits(decimal.NewFromInt(10), decimal.NewFromInt(5000))
	require.Len(t, cmds, 6)
	for _, cmd := range cmds {
		assert.Equal(t, orderreaderv1.CommandAdjust, cmd.Type)
		assert.Equal(t, cmd.Adjustment.UserID, cmd.Key())
		assert.NotEmpty(t, cmd.Adjustment.ReferenceID)
	}
}

func TestGenerator_Orders(t *testing.T) {
	cmds := newGenerator(42).orders(500)
	require.Len(t, cmds, 500)

	for _, cmd := range cmds {
		req := cmd.Order
		require.NotNil(t, req)
		assert.Equal(t, "BTC/JPY", cmd.Key())

		switch {
		case req.Kind == orderv1.KindMarket && req.Side == orderv1.SideBuy:
			assert.True(t, req.Total.IsPositive())
			assert.True(t, req.Quantity.IsZero())
		case req.Kind == orderv1.KindMarket:
			assert.True(t, req.Quantity.IsPositive())
			assert.True(t, req.Rate.IsZero())
		default:
			assert.True(t, req.Quantity.IsPositive())
			assert.True(t, req.Rate.IsPositive())
			if req.Side == orderv1.SideBuy {
				assert.True(t, req.Rate.LessThanOrEqual(decimal.NewFromInt(1000)))
			} else {
				assert.True(t, req.Rate.GreaterThanOrEqual(decimal.NewFromInt(1000)))
			}
		}
	}

	again := newGenerator(42).orders(500)
	assert.Equal(t, cmds[17].Order.Quantity.String(), again[17].Order.Quantity.String(), "same seed, same stream")
}
