package orderv1

import "github.com/shopspring/decimal"

// CanMatch reports whether resting is a candidate for incoming: same pair,
// opposite side, still open, compatible kind and inside the incoming limit.
// A market order only takes limit orders; a limit order takes both.
func CanMatch(incoming, resting *Order) bool {
	if incoming.ID == resting.ID || !resting.IsOpen() {
		return false
	}
	if incoming.BaseAssetID != resting.BaseAssetID || incoming.QuoteAssetID != resting.QuoteAssetID {
		return false
	}
	if resting.Side != incoming.Side.Opposite() {
		return false
	}
	if incoming.IsMarket() {
		return resting.IsLimit()
	}
	if resting.IsMarket() {
		return true
	}
	if incoming.IsSell() {
		return resting.Rate.GreaterThanOrEqual(incoming.Rate)
	}
	return resting.Rate.LessThanOrEqual(incoming.Rate)
}

// HasPriority reports whether a is taken before b by an incoming order of
// side. Market orders accept any rate and come first, then the best rate
// (highest buy, lowest sell), then the earliest order, then the lowest id.
func HasPriority(side Side, a, b *Order) bool {
	if a.IsMarket() != b.IsMarket() {
		return a.IsMarket()
	}
	if !a.IsMarket() && !a.Rate.Equal(b.Rate) {
		if side == SideSell {
			return a.Rate.GreaterThan(b.Rate)
		}
		return a.Rate.LessThan(b.Rate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// ExecutionRate returns the rate a fill between incoming and resting uses:
// the incoming limit rate, or the resting rate for an incoming market order.
func ExecutionRate(incoming, resting *Order) decimal.Decimal {
	if incoming.IsLimit() {
		return incoming.Rate
	}
	return resting.Rate
}
