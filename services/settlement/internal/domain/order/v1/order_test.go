package orderv1

import (
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func limit(side Side, quantity, rate string) *Order {
	return NewOrder(PlaceOrderRequest{
		UserID:       "u1",
		BaseAssetID:  "BTC",
		QuoteAssetID: "JPY",
		Side:         side,
		Kind:         KindLimit,
		Quantity:     dec(quantity),
		Rate:         dec(rate),
	}, time.Now())
}

func TestOrder_State(t *testing.T) {
	now := time.Now()

	o := limit(SideBuy, "5", "10")
	assert.Equal(t, StateOpen, o.State())
	assert.True(t, o.IsOpen())

	o.ApplyFill(dec("3"), dec("30"), now)
	assert.Equal(t, StatePartiallyFilled, o.State())
	assert.Nil(t, o.FilledAt)

	o.ApplyFill(dec("2"), dec("20"), now.Add(time.Second))
	assert.Equal(t, StateFilled, o.State())
	require.NotNil(t, o.FilledAt)
	assert.True(t, o.FilledAt.Equal(now.Add(time.Second)))
	assert.False(t, o.IsOpen())

	assert.False(t, o.Cancel(now), "filled order cannot be cancelled")
	assert.Nil(t, o.CancelledAt)
}

func TestOrder_FilledAtIsSetOnce(t *testing.T) {
	now := time.Now()
	o := limit(SideSell, "1", "10")

	o.ApplyFill(dec("1"), dec("10"), now)
	first := *o.FilledAt

	o.ApplyFill(decimal.Zero, decimal.Zero, now.Add(time.Hour))
	assert.True(t, o.FilledAt.Equal(first))
}

func TestOrder_Cancel(t *testing.T) {
	now := time.Now()
	o := limit(SideSell, "1", "10")

	assert.True(t, o.Cancel(now))
	assert.Equal(t, StateCancelled, o.State())

	assert.False(t, o.Cancel(now.Add(time.Minute)))
	assert.True(t, o.CancelledAt.Equal(now))
}

func TestOrder_UnfilledQuantity(t *testing.T) {
	testCases := []struct {
		name     string
		order    *Order
		rate     string
		expected string
	}{
		{
			name:     "limit order",
			order:    &Order{Side: SideBuy, Kind: KindLimit, Quantity: dec("5"), QuantityFilled: dec("2")},
			rate:     "10",
			expected: "3",
		},
		{
			name:     "sell market order",
			order:    &Order{Side: SideSell, Kind: KindMarket, Quantity: dec("4")},
			rate:     "10",
			expected: "4",
		},
		{
			name:     "buy market order converts the remaining budget",
			order:    &Order{Side: SideBuy, Kind: KindMarket, Total: dec("100"), TotalUsed: dec("40")},
			rate:     "20",
			expected: "3",
		},
		{
			name:     "buy market order truncates instead of rounding up",
			order:    &Order{Side: SideBuy, Kind: KindMarket, Total: dec("10")},
			rate:     "3",
			expected: "3.333333333333333333",
		},
		{
			name:     "buy market order at zero rate",
			order:    &Order{Side: SideBuy, Kind: KindMarket, Total: dec("10")},
			rate:     "0",
			expected: "0",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.order.UnfilledQuantity(dec(tc.rate))
			assert.True(t, dec(tc.expected).Equal(got), "got %s", got)
		})
	}
}

func TestOrder_RequiredBalanceAndReserved(t *testing.T) {
	testCases := []struct {
		name       string
		order      *Order
		spendAsset string
		required   string
		reserved   string
	}{
		{
			name:       "buy limit spends quantity times rate of quote",
			order:      &Order{BaseAssetID: "BTC", QuoteAssetID: "JPY", Side: SideBuy, Kind: KindLimit, Quantity: dec("5"), Rate: dec("30"), QuantityFilled: dec("1")},
			spendAsset: "JPY",
			required:   "150",
			reserved:   "120",
		},
		{
			name:       "buy market spends its total",
			order:      &Order{BaseAssetID: "BTC", QuoteAssetID: "JPY", Side: SideBuy, Kind: KindMarket, Total: dec("100"), TotalUsed: dec("25")},
			spendAsset: "JPY",
			required:   "100",
			reserved:   "75",
		},
		{
			name:       "sell spends base quantity",
			order:      &Order{BaseAssetID: "BTC", QuoteAssetID: "JPY", Side: SideSell, Kind: KindLimit, Quantity: dec("2"), Rate: dec("10"), QuantityFilled: dec("0.5")},
			spendAsset: "BTC",
			required:   "2",
			reserved:   "1.5",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.spendAsset, tc.order.SpendAsset())
			assert.True(t, dec(tc.required).Equal(tc.order.RequiredBalance()))
			assert.True(t, dec(tc.reserved).Equal(tc.order.Reserved()))
		})
	}

	closed := limit(SideBuy, "1", "10")
	closed.Cancel(time.Now())
	assert.True(t, closed.Reserved().IsZero())
}

func TestOrder_PercentFilled(t *testing.T) {
	o := limit(SideBuy, "3", "10")
	o.QuantityFilled = dec("1")
	assert.Equal(t, "33.33", o.PercentFilled().String())

	m := &Order{Side: SideBuy, Kind: KindMarket, Total: dec("200"), TotalUsed: dec("50")}
	assert.Equal(t, "25", m.PercentFilled().String())

	assert.True(t, (&Order{Side: SideSell, Kind: KindLimit}).PercentFilled().IsZero())
}

func TestOrder_CloneIsIndependent(t *testing.T) {
	o := limit(SideBuy, "1", "1")
	o.ApplyFill(dec("1"), dec("1"), time.Now())

	c := o.Clone()
	*c.FilledAt = c.FilledAt.Add(time.Hour)
	c.QuantityFilled = decimal.Zero

	assert.False(t, o.FilledAt.Equal(*c.FilledAt))
	assert.True(t, o.QuantityFilled.Equal(dec("1")))
}

func TestCanMatch(t *testing.T) {
	sell := limit(SideSell, "1", "10")
	buyMarket := &Order{ID: "bm", BaseAssetID: "BTC", QuoteAssetID: "JPY", Side: SideBuy, Kind: KindMarket, Total: dec("10")}
	sellMarket := &Order{ID: "sm", BaseAssetID: "BTC", QuoteAssetID: "JPY", Side: SideSell, Kind: KindMarket, Quantity: dec("1")}
	otherPair := &Order{ID: "op", BaseAssetID: "ETH", QuoteAssetID: "JPY", Side: SideBuy, Kind: KindLimit, Quantity: dec("1"), Rate: dec("20")}
	cancelled := limit(SideBuy, "1", "20")
	cancelled.Cancel(time.Now())

	testCases := []struct {
		name     string
		incoming *Order
		resting  *Order
		expected bool
	}{
		{"buy limit at a higher rate", limit(SideBuy, "1", "11"), sell, true},
		{"buy limit at the same rate", limit(SideBuy, "1", "10"), sell, true},
		{"buy limit below the ask", limit(SideBuy, "1", "9"), sell, false},
		{"sell limit below the bid", limit(SideSell, "1", "9"), limit(SideBuy, "1", "10"), true},
		{"sell limit above the bid", limit(SideSell, "1", "11"), limit(SideBuy, "1", "10"), false},
		{"same side", limit(SideSell, "1", "10"), sell, false},
		{"limit takes a resting market order", limit(SideSell, "1", "999"), buyMarket, true},
		{"market takes a resting limit order", buyMarket, sell, true},
		{"market does not take a market order", buyMarket, sellMarket, false},
		{"other pair", limit(SideSell, "1", "1"), otherPair, false},
		{"closed resting order", limit(SideSell, "1", "1"), cancelled, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CanMatch(tc.incoming, tc.resting))
		})
	}
}

func TestHasPriority(t *testing.T) {
	base := time.Now()
	mk := func(id, rate string, offset time.Duration) *Order {
		return &Order{ID: id, Side: SideSell, Kind: KindLimit, Rate: dec(rate), CreatedAt: base.Add(offset)}
	}

	asks := []*Order{mk("a", "10", 0), mk("b", "9", time.Second), mk("c", "11", 0), mk("d", "9", 0), mk("e", "9", 0)}
	sort.SliceStable(asks, func(i, j int) bool { return HasPriority(SideBuy, asks[i], asks[j]) })

	ids := make([]string, 0, len(asks))
	for _, o := range asks {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"d", "e", "b", "a", "c"}, ids)

	bids := []*Order{mk("x", "10", 0), mk("y", "9", 0), mk("z", "11", 0)}
	for _, o := range bids {
		o.Side = SideBuy
	}
	market := &Order{ID: "m", Side: SideBuy, Kind: KindMarket, CreatedAt: base.Add(time.Hour)}
	bids = append(bids, market)
	sort.SliceStable(bids, func(i, j int) bool { return HasPriority(SideSell, bids[i], bids[j]) })
	assert.Equal(t, "m", bids[0].ID)
	assert.Equal(t, "z", bids[1].ID)
	assert.Equal(t, "y", bids[3].ID)
}

func TestExecutionRate(t *testing.T) {
	sell := limit(SideSell, "1", "9")
	assert.True(t, dec("10").Equal(ExecutionRate(limit(SideBuy, "1", "10"), sell)))

	market := &Order{Side: SideBuy, Kind: KindMarket, Total: dec("10")}
	assert.True(t, dec("9").Equal(ExecutionRate(market, sell)))
}
