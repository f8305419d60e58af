package orderv1

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// QuantityPrecision is the number of decimal places kept when a quote budget
// is converted into a base quantity.
const QuantityPrecision int32 = 18

// Side represents the side of an order.
type Side string

const (
	// SideBuy represents a buy order.
	SideBuy Side = "buy"
	// SideSell represents a sell order.
	SideSell Side = "sell"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite returns the counter side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Kind represents the type of order.
type Kind string

const (
	// KindLimit represents a limit order.
	KindLimit Kind = "limit"
	// KindMarket represents a market order.
	KindMarket Kind = "market"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindLimit || k == KindMarket
}

// State is derived from the fill and cancel fields of an order.
type State string

const (
	// StateOpen is an order without any fill.
	StateOpen State = "open"
	// StatePartiallyFilled is an open order with at least one fill.
	StatePartiallyFilled State = "partially_filled"
	// StateFilled is a closed order whose fill predicate holds.
	StateFilled State = "filled"
	// StateCancelled is a closed order that was cancelled while open.
	StateCancelled State = "cancelled"
)

// Order represents a request to exchange base asset against quote asset.
type Order struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userID"`
	BaseAssetID    string          `json:"baseAssetID"`
	QuoteAssetID   string          `json:"quoteAssetID"`
	Side           Side            `json:"side"`
	Kind           Kind            `json:"kind"`
	Quantity       decimal.Decimal `json:"quantity"`
	Rate           decimal.Decimal `json:"rate"`
	Total          decimal.Decimal `json:"total"`
	QuantityFilled decimal.Decimal `json:"quantityFilled"`
	TotalUsed      decimal.Decimal `json:"totalUsed"`
	CreatedAt      time.Time       `json:"createdAt"`
	FilledAt       *time.Time      `json:"filledAt,omitempty"`
	CancelledAt    *time.Time      `json:"cancelledAt,omitempty"`
}

// PlaceOrderRequest carries the caller supplied fields of a new order.
type PlaceOrderRequest struct {
	UserID       string          `json:"userID"`
	BaseAssetID  string          `json:"baseAssetID"`
	QuoteAssetID string          `json:"quoteAssetID"`
	Side         Side            `json:"side"`
	Kind         Kind            `json:"kind"`
	Quantity     decimal.Decimal `json:"quantity"`
	Rate         decimal.Decimal `json:"rate"`
	Total        decimal.Decimal `json:"total"`
}

// NewOrder creates an unfilled order from req.
func NewOrder(req PlaceOrderRequest, now time.Time) *Order {
	return &Order{
		ID:           ulid.Make().String(),
		UserID:       req.UserID,
		BaseAssetID:  req.BaseAssetID,
		QuoteAssetID: req.QuoteAssetID,
		Side:         req.Side,
		Kind:         req.Kind,
		Quantity:     req.Quantity,
		Rate:         req.Rate,
		Total:        req.Total,
		CreatedAt:    now,
	}
}

// Pair returns the asset pair key, e.g. BTC/JPY.
func (o *Order) Pair() string {
	return PairKey(o.BaseAssetID, o.QuoteAssetID)
}

// PairKey builds the key that serializes matching for one asset pair.
func PairKey(baseAssetID, quoteAssetID string) string {
	return baseAssetID + "/" + quoteAssetID
}

// IsBuy checks if the order is a buy order.
func (o *Order) IsBuy() bool {
	return o.Side == SideBuy
}

// IsSell checks if the order is a sell order.
func (o *Order) IsSell() bool {
	return o.Side == SideSell
}

// IsMarket checks if the order is a market order.
func (o *Order) IsMarket() bool {
	return o.Kind == KindMarket
}

// IsLimit checks if the order is a limit order.
func (o *Order) IsLimit() bool {
	return o.Kind == KindLimit
}

// IsBuyMarket checks if the order spends a quote budget instead of a quantity.
func (o *Order) IsBuyMarket() bool {
	return o.IsBuy() && o.IsMarket()
}

// IsFilled evaluates the fill predicate.
func (o *Order) IsFilled() bool {
	if o.IsBuyMarket() {
		return o.TotalUsed.GreaterThanOrEqual(o.Total)
	}
	return o.QuantityFilled.GreaterThanOrEqual(o.Quantity)
}

// IsOpen checks if the order can still take fills.
func (o *Order) IsOpen() bool {
	return o.CancelledAt == nil && o.FilledAt == nil
}

// State returns the lifecycle state of the order.
func (o *Order) State() State {
	switch {
	case o.CancelledAt != nil:
		return StateCancelled
	case o.FilledAt != nil:
		return StateFilled
	case o.QuantityFilled.IsPositive() || o.TotalUsed.IsPositive():
		return StatePartiallyFilled
	default:
		return StateOpen
	}
}

// UnfilledQuantity returns the base quantity still to fill at rate. For a
// buy market order it is the remaining budget converted at rate, truncated
// so that the converted quantity never costs more than the budget.
func (o *Order) UnfilledQuantity(rate decimal.Decimal) decimal.Decimal {
	if o.IsBuyMarket() {
		if !rate.IsPositive() {
			return decimal.Zero
		}
		quantity, _ := o.RemainingBudget().QuoRem(rate, QuantityPrecision)
		return quantity
	}
	return o.Quantity.Sub(o.QuantityFilled)
}

// RemainingBudget returns the unspent quote total of a buy market order.
func (o *Order) RemainingBudget() decimal.Decimal {
	return o.Total.Sub(o.TotalUsed)
}

// SpendAsset returns the asset the order pays with.
func (o *Order) SpendAsset() string {
	if o.IsBuy() {
		return o.QuoteAssetID
	}
	return o.BaseAssetID
}

// RequiredBalance returns the amount of SpendAsset needed to admit the order.
func (o *Order) RequiredBalance() decimal.Decimal {
	switch {
	case o.IsBuyMarket():
		return o.Total
	case o.IsBuy():
		return o.Quantity.Mul(o.Rate)
	default:
		return o.Quantity
	}
}

// Reserved returns the amount of SpendAsset still held by the order. Closed
// orders reserve nothing.
func (o *Order) Reserved() decimal.Decimal {
	if !o.IsOpen() {
		return decimal.Zero
	}
	switch {
	case o.IsBuyMarket():
		return o.RemainingBudget()
	case o.IsBuy():
		return o.Quantity.Sub(o.QuantityFilled).Mul(o.Rate)
	default:
		return o.Quantity.Sub(o.QuantityFilled)
	}
}

// PercentFilled returns the filled share of the order, 0 to 100.
func (o *Order) PercentFilled() decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if o.IsBuyMarket() {
		if !o.Total.IsPositive() {
			return decimal.Zero
		}
		return o.TotalUsed.Div(o.Total).Mul(hundred).Round(2)
	}
	if !o.Quantity.IsPositive() {
		return decimal.Zero
	}
	return o.QuantityFilled.Div(o.Quantity).Mul(hundred).Round(2)
}

// ApplyFill records a fill of quantity that moved quoteAmount. FilledAt is
// stamped the first time the fill predicate holds.
func (o *Order) ApplyFill(quantity, quoteAmount decimal.Decimal, at time.Time) {
	o.QuantityFilled = o.QuantityFilled.Add(quantity)
	o.TotalUsed = o.TotalUsed.Add(quoteAmount)
	if o.FilledAt == nil && o.IsFilled() {
		filledAt := at
		o.FilledAt = &filledAt
	}
}

// Cancel closes an open order. It reports false and leaves the order
// untouched when the order is already filled or cancelled.
func (o *Order) Cancel(at time.Time) bool {
	if !o.IsOpen() {
		return false
	}
	cancelledAt := at
	o.CancelledAt = &cancelledAt
	return true
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	c := *o
	if o.FilledAt != nil {
		t := *o.FilledAt
		c.FilledAt = &t
	}
	if o.CancelledAt != nil {
		t := *o.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}
