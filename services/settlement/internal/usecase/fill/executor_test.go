package fill

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	mockLogger "github.com/muhammadchandra19/settlement/pkg/logger/mock"
	mockLedger "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/ledger/v1/mock"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	mockOrder "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1/mock"
	mockTx "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/transaction/v1/mock"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	executor *Executor
}

func newFixture(t *testing.T) *fixture {
	store := memory.NewStore()
	return &fixture{
		ctx:      context.Background(),
		store:    store,
		executor: NewExecutor(store.Orders(), store.Trades(), store.Ledger(), store, logger.NewNop()),
	}
}

func (f *fixture) place(t *testing.T, userID string, side orderv1.Side, kind orderv1.Kind, quantity, rate, total string) *orderv1.Order {
	o := orderv1.NewOrder(orderv1.PlaceOrderRequest{
		UserID:       userID,
		BaseAssetID:  "BTC",
		QuoteAssetID: "JPY",
		Side:         side,
		Kind:         kind,
		Quantity:     dec(quantity),
		Rate:         dec(rate),
		Total:        dec(total),
	}, time.Now())
	require.NoError(t, f.store.Orders().Create(f.ctx, o))
	return o
}

func (f *fixture) balance(t *testing.T, userID, assetID string) string {
	b, err := f.store.Ledger().Balance(f.ctx, userID, assetID)
	require.NoError(t, err)
	return b.String()
}

func TestExecutor_PartialFill(t *testing.T) {
	f := newFixture(t)
	resting := f.place(t, "seller", orderv1.SideSell, orderv1.KindLimit, "3", "10", "0")
	incoming := f.place(t, "buyer", orderv1.SideBuy, orderv1.KindLimit, "5", "10", "0")

	result, err := f.executor.Fill(f.ctx, incoming, resting)
	require.NoError(t, err)

	trade := result.Trade
	assert.Equal(t, incoming.ID, trade.BuyOrderID)
	assert.Equal(t, resting.ID, trade.SellOrderID)
	assert.Equal(t, "3", trade.Amount.String())
	assert.Equal(t, "10", trade.Rate.String())
	assert.Equal(t, "30", trade.QuoteAmount.String())

	assert.Equal(t, orderv1.StatePartiallyFilled, incoming.State())
	assert.Equal(t, "3", incoming.QuantityFilled.String())
	assert.Equal(t, orderv1.StateFilled, resting.State())

	stored, err := f.store.Orders().Get(f.ctx, resting.ID)
	require.NoError(t, err)
	assert.Equal(t, orderv1.StateFilled, stored.State())

	require.Len(t, result.Adjustments, 4)
	assert.Equal(t, "3", f.balance(t, "buyer", "BTC"))
	assert.Equal(t, "-30", f.balance(t, "buyer", "JPY"))
	assert.Equal(t, "-3", f.balance(t, "seller", "BTC"))
	assert.Equal(t, "30", f.balance(t, "seller", "JPY"))

	trades, err := f.store.Trades().ListByOrder(f.ctx, incoming.ID)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestExecutor_RateResolution(t *testing.T) {
	f := newFixture(t)

	resting := f.place(t, "seller", orderv1.SideSell, orderv1.KindLimit, "1", "9", "0")
	incoming := f.place(t, "buyer", orderv1.SideBuy, orderv1.KindLimit, "1", "10", "0")
	result, err := f.executor.Fill(f.ctx, incoming, resting)
	require.NoError(t, err)
	assert.Equal(t, "10", result.Trade.Rate.String(), "incoming limit rate wins")

	resting = f.place(t, "buyer", orderv1.SideBuy, orderv1.KindLimit, "1", "12", "0")
	market := f.place(t, "seller", orderv1.SideSell, orderv1.KindMarket, "1", "0", "0")
	result, err = f.executor.Fill(f.ctx, market, resting)
	require.NoError(t, err)
	assert.Equal(t, "12", result.Trade.Rate.String(), "market order takes the resting rate")
	assert.Equal(t, resting.ID, result.Trade.BuyOrderID)
	assert.Equal(t, market.ID, result.Trade.SellOrderID)
}

func TestExecutor_BuyMarketSpendsExactBudget(t *testing.T) {
	f := newFixture(t)
	incoming := f.place(t, "buyer", orderv1.SideBuy, orderv1.KindMarket, "0", "0", "100")
	first := f.place(t, "s1", orderv1.SideSell, orderv1.KindLimit, "3", "30", "0")
	second := f.place(t, "s2", orderv1.SideSell, orderv1.KindLimit, "5", "3", "0")

	result, err := f.executor.Fill(f.ctx, incoming, first)
	require.NoError(t, err)
	assert.Equal(t, "3", result.Trade.Amount.String())
	assert.Equal(t, "90", incoming.TotalUsed.String())
	assert.True(t, incoming.IsOpen())

	result, err = f.executor.Fill(f.ctx, incoming, second)
	require.NoError(t, err)
	assert.Equal(t, "3.333333333333333333", result.Trade.Amount.String())
	assert.Equal(t, "10", result.Trade.QuoteAmount.String())
	assert.Equal(t, "100", incoming.TotalUsed.String())
	assert.Equal(t, orderv1.StateFilled, incoming.State())
	assert.Equal(t, orderv1.StatePartiallyFilled, second.State())

	assert.Equal(t, "-100", f.balance(t, "buyer", "JPY"))
	assert.Equal(t, "10", f.balance(t, "s2", "JPY"))
}

func TestExecutor_NonPositiveQuantityIsInvariantViolation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := memory.NewStore()
	log := mockLogger.NewMockInterface(ctrl)
	log.EXPECT().ErrorContext(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(1)
	executor := NewExecutor(store.Orders(), store.Trades(), store.Ledger(), store, log)

	incoming := &orderv1.Order{ID: "in", UserID: "buyer", BaseAssetID: "BTC", QuoteAssetID: "JPY", Side: orderv1.SideBuy, Kind: orderv1.KindLimit, Quantity: dec("1"), Rate: dec("10")}
	resting := &orderv1.Order{ID: "rest", UserID: "seller", BaseAssetID: "BTC", QuoteAssetID: "JPY", Side: orderv1.SideSell, Kind: orderv1.KindLimit, Quantity: dec("1"), QuantityFilled: dec("1"), Rate: dec("10")}

	result, err := executor.Fill(context.Background(), incoming, resting)
	assert.Nil(t, result)
	assert.True(t, errors.HasCode(err, errors.InvariantViolation))
	_, traced := err.(errors.StackTracer)
	assert.True(t, traced)
	assert.True(t, incoming.QuantityFilled.IsZero())
}

func TestExecutor_PersistenceFailureLeavesOrdersUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orders := mockOrder.NewMockOrderStore(ctrl)
	trades := mockOrder.NewMockTradeStore(ctrl)
	ledger := mockLedger.NewMockLedgerStore(ctrl)
	tx := mockTx.NewMockTransactor(ctrl)
	log := mockLogger.NewMockInterface(ctrl)

	tx.EXPECT().WithinTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		})
	orders.EXPECT().UpdateFill(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	trades.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	ledger.EXPECT().Append(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.Persistence("failed to append adjustments", stderrors.New("disk full")))
	log.EXPECT().ErrorContext(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any())

	executor := NewExecutor(orders, trades, ledger, tx, log)
	incoming := &orderv1.Order{ID: "in", UserID: "buyer", BaseAssetID: "BTC", QuoteAssetID: "JPY", Side: orderv1.SideBuy, Kind: orderv1.KindLimit, Quantity: dec("5"), Rate: dec("10")}
	resting := &orderv1.Order{ID: "rest", UserID: "seller", BaseAssetID: "BTC", QuoteAssetID: "JPY", Side: orderv1.SideSell, Kind: orderv1.KindLimit, Quantity: dec("3"), Rate: dec("10")}

	_, err := executor.Fill(context.Background(), incoming, resting)
	assert.True(t, errors.HasCode(err, errors.PersistenceFailure))
	assert.True(t, incoming.QuantityFilled.IsZero())
	assert.True(t, resting.QuantityFilled.IsZero())
	assert.Nil(t, resting.FilledAt)
}

func TestExecutor_StaleRestingOrder(t *testing.T) {
	f := newFixture(t)
	resting := f.place(t, "seller", orderv1.SideSell, orderv1.KindLimit, "3", "10", "0")
	incoming := f.place(t, "buyer", orderv1.SideBuy, orderv1.KindLimit, "5", "10", "0")

	_, err := f.store.Orders().Cancel(f.ctx, resting.ID, time.Now())
	require.NoError(t, err)

	_, err = f.executor.Fill(f.ctx, incoming, resting)
	require.Error(t, err)

	id, stale := StaleOrderID(err)
	assert.True(t, stale)
	assert.Equal(t, resting.ID, id)

	stored, err := f.store.Orders().Get(f.ctx, incoming.ID)
	require.NoError(t, err)
	assert.True(t, stored.QuantityFilled.IsZero(), "incoming update rolled back")
	assert.Equal(t, "0", f.balance(t, "buyer", "BTC"))
}

func TestStaleOrderID(t *testing.T) {
	_, stale := StaleOrderID(stderrors.New("other"))
	assert.False(t, stale)

	id, stale := StaleOrderID(errors.TracerFromError(errors.NotOpen("o1")))
	assert.True(t, stale)
	assert.Equal(t, "o1", id)
}
