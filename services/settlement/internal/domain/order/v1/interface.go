package orderv1

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ListFilter selects a user's open or closed orders.
type ListFilter string

const (
	// ListOpen selects orders that can still take fills.
	ListOpen ListFilter = "open"
	// ListClosed selects filled and cancelled orders.
	ListClosed ListFilter = "closed"
	// ListAll selects every order of the user.
	ListAll ListFilter = "all"
)

// UserOrdersQuery is the query of OrderStore.ListByUser.
type UserOrdersQuery struct {
	UserID string
	Filter ListFilter
	Limit  int
	Offset int
}

// FillUpdate is a compare-and-swap update of an order's fill progress. It
// only applies while the stored order is open and still carries the
// Previous values.
type FillUpdate struct {
	OrderID                string
	PreviousQuantityFilled decimal.Decimal
	PreviousTotalUsed      decimal.Decimal
	QuantityFilled         decimal.Decimal
	TotalUsed              decimal.Decimal
	FilledAt               *time.Time
}

// NewFillUpdate builds the update that moves before to after.
func NewFillUpdate(before, after *Order) FillUpdate {
	return FillUpdate{
		OrderID:                after.ID,
		PreviousQuantityFilled: before.QuantityFilled,
		PreviousTotalUsed:      before.TotalUsed,
		QuantityFilled:         after.QuantityFilled,
		TotalUsed:              after.TotalUsed,
		FilledAt:               after.FilledAt,
	}
}

// OrderStore persists orders.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=orderv1_mock
type OrderStore interface {
	// Create stores a new order.
	Create(ctx context.Context, order *Order) error
	// Get returns the order with id or an order_not_found error.
	Get(ctx context.Context, id string) (*Order, error)
	// ListCandidates returns the open orders incoming can match, in priority order.
	ListCandidates(ctx context.Context, incoming *Order) ([]*Order, error)
	// ListOpenBySpendAsset returns the user's open orders paying with assetID.
	ListOpenBySpendAsset(ctx context.Context, userID, assetID string) ([]*Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, query UserOrdersQuery) ([]*Order, error)
	// UpdateFill applies update or fails with order_not_open when the
	// stored order was closed or changed since it was read.
	UpdateFill(ctx context.Context, update FillUpdate) error
	// Cancel closes the order if it is still open and reports whether it did.
	Cancel(ctx context.Context, id string, at time.Time) (bool, error)
}

// TradeStore persists trades.
type TradeStore interface {
	// Create stores a trade.
	Create(ctx context.Context, trade *Trade) error
	// ListByOrder returns the trades an order took part in, oldest first.
	ListByOrder(ctx context.Context, orderID string) ([]*Trade, error)
}
