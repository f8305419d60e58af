package ledgerv1

import (
	"testing"
	"time"

	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeAdjustments(t *testing.T) {
	buy := &orderv1.Order{ID: "b1", UserID: "alice", BaseAssetID: "BTC", QuoteAssetID: "JPY"}
	sell := &orderv1.Order{ID: "s1", UserID: "bob", BaseAssetID: "BTC", QuoteAssetID: "JPY"}
	trade := orderv1.NewTrade(buy, sell, decimal.NewFromInt(3), decimal.NewFromInt(10), decimal.NewFromInt(30), time.Now())

	adjustments := TradeAdjustments(trade)
	require.Len(t, adjustments, 4)

	sums := map[string]decimal.Decimal{}
	for _, a := range adjustments {
		assert.Equal(t, SourceTrade, a.Source)
		assert.Equal(t, trade.ID, a.ReferenceID)
		sums[a.AssetID] = sums[a.AssetID].Add(a.Amount)
	}
	assert.True(t, sums["BTC"].IsZero())
	assert.True(t, sums["JPY"].IsZero())

	assert.Equal(t, "alice", adjustments[0].UserID)
	assert.Equal(t, "3", adjustments[0].Amount.String())
	assert.Equal(t, "bob", adjustments[1].UserID)
	assert.Equal(t, "30", adjustments[1].Amount.String())
	assert.Equal(t, "-3", adjustments[2].Amount.String())
	assert.Equal(t, "-30", adjustments[3].Amount.String())
}

func TestSource_Valid(t *testing.T) {
	assert.True(t, SourceDeposit.Valid())
	assert.True(t, SourceWithdrawal.Valid())
	assert.True(t, SourceTrade.Valid())
	assert.False(t, Source("airdrop").Valid())
}
