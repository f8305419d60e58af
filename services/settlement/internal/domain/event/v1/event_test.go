package eventv1

import (
	"testing"
	"time"

	ledgerv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/ledger/v1"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_Accounts(t *testing.T) {
	order := &orderv1.Order{ID: "o1", UserID: "alice", BaseAssetID: "BTC", QuoteAssetID: "JPY", Side: orderv1.SideBuy, Kind: orderv1.KindLimit}
	e := NewOrderEvent(OrderCreated, order, time.Now())

	assert.Equal(t, "BTC/JPY", e.Key())
	assert.Equal(t, orderv1.StateOpen, e.State)
	assert.Equal(t, []Account{{UserID: "alice", AssetID: "BTC"}, {UserID: "alice", AssetID: "JPY"}}, e.Accounts())

	trade := &orderv1.Trade{ID: "t1", BuyerID: "alice", SellerID: "bob", BaseAssetID: "BTC", QuoteAssetID: "JPY"}
	te := NewTradeEvent(trade)
	assert.Equal(t, []string{"alice", "bob"}, te.UserIDs())
	assert.Len(t, te.Accounts(), 4)

	self := &orderv1.Trade{ID: "t2", BuyerID: "alice", SellerID: "alice", BaseAssetID: "BTC", QuoteAssetID: "JPY"}
	assert.Len(t, NewTradeEvent(self).Accounts(), 2)

	adj := ledgerv1.NewAdjustment("carol", "JPY", decimal.NewFromInt(5), ledgerv1.SourceDeposit, "dep-1", time.Now())
	ae := NewAdjustmentEvent(adj)
	assert.Equal(t, "carol", ae.Key())
	assert.Equal(t, []Account{{UserID: "carol", AssetID: "JPY"}}, ae.Accounts())
}

func TestEvent_OrderSnapshotIsDetached(t *testing.T) {
	order := &orderv1.Order{ID: "o1", UserID: "alice", Quantity: decimal.NewFromInt(1)}
	e := NewOrderEvent(OrderUpdated, order, time.Now())

	order.QuantityFilled = decimal.NewFromInt(1)
	assert.True(t, e.Order.QuantityFilled.IsZero())
}

func TestEvent_Bytes(t *testing.T) {
	trade := &orderv1.Trade{ID: "t1", Amount: decimal.RequireFromString("0.5"), Rate: decimal.NewFromInt(10)}
	data, err := ToBytes(NewTradeEvent(trade))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"amount":"0.5"`)

	decoded, err := FromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, TradeExecuted, decoded.Type)
	assert.True(t, decoded.Trade.Amount.Equal(trade.Amount))
}
