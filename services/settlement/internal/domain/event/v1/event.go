package eventv1

import (
	"encoding/json"
	"time"

	ledgerv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/ledger/v1"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	"github.com/oklog/ulid/v2"
)

// Type represents the kind of domain event.
type Type string

const (
	// OrderCreated is emitted once an order is admitted.
	OrderCreated Type = "order.created"
	// OrderUpdated is emitted after a fill changed an order.
	OrderUpdated Type = "order.updated"
	// OrderCancelled is emitted after an order was cancelled.
	OrderCancelled Type = "order.cancelled"
	// TradeExecuted is emitted for every committed fill.
	TradeExecuted Type = "trade.executed"
	// BalanceAdjusted is emitted for deposits and withdrawals.
	BalanceAdjusted Type = "balance.adjusted"
)

// Event is a settlement fact published after its transaction committed.
type Event struct {
	ID         string                      `json:"id"`
	Type       Type                        `json:"type"`
	OccurredAt time.Time                   `json:"occurredAt"`
	State      orderv1.State               `json:"state,omitempty"`
	Order      *orderv1.Order              `json:"order,omitempty"`
	Trade      *orderv1.Trade              `json:"trade,omitempty"`
	Adjustment *ledgerv1.BalanceAdjustment `json:"adjustment,omitempty"`
}

// Account is one user's balance in one asset.
type Account struct {
	UserID  string
	AssetID string
}

// NewOrderEvent snapshots order into an event of type t.
func NewOrderEvent(t Type, order *orderv1.Order, at time.Time) Event {
	return Event{
		ID:         ulid.Make().String(),
		Type:       t,
		OccurredAt: at,
		State:      order.State(),
		Order:      order.Clone(),
	}
}

// NewTradeEvent wraps a committed trade.
func NewTradeEvent(trade *orderv1.Trade) Event {
	return Event{
		ID:         ulid.Make().String(),
		Type:       TradeExecuted,
		OccurredAt: trade.CreatedAt,
		Trade:      trade,
	}
}

// NewAdjustmentEvent wraps a deposit or withdrawal.
func NewAdjustmentEvent(adjustment *ledgerv1.BalanceAdjustment) Event {
	return Event{
		ID:         ulid.Make().String(),
		Type:       BalanceAdjusted,
		OccurredAt: adjustment.CreatedAt,
		Adjustment: adjustment,
	}
}

// Key groups events of one pair, or of one user for balance events.
func (e Event) Key() string {
	switch {
	case e.Order != nil:
		return e.Order.Pair()
	case e.Trade != nil:
		return e.Trade.Pair()
	case e.Adjustment != nil:
		return e.Adjustment.UserID
	}
	return ""
}

// UserIDs returns the users the event concerns.
func (e Event) UserIDs() []string {
	switch {
	case e.Order != nil:
		return []string{e.Order.UserID}
	case e.Trade != nil:
		if e.Trade.BuyerID == e.Trade.SellerID {
			return []string{e.Trade.BuyerID}
		}
		return []string{e.Trade.BuyerID, e.Trade.SellerID}
	case e.Adjustment != nil:
		return []string{e.Adjustment.UserID}
	}
	return nil
}

// Accounts returns the balances the event may have changed. Order events
// touch both assets of the pair so that reservations are reflected.
func (e Event) Accounts() []Account {
	switch {
	case e.Order != nil:
		return []Account{
			{UserID: e.Order.UserID, AssetID: e.Order.BaseAssetID},
			{UserID: e.Order.UserID, AssetID: e.Order.QuoteAssetID},
		}
	case e.Trade != nil:
		accounts := make([]Account, 0, 4)
		for _, userID := range e.UserIDs() {
			accounts = append(accounts,
				Account{UserID: userID, AssetID: e.Trade.BaseAssetID},
				Account{UserID: userID, AssetID: e.Trade.QuoteAssetID},
			)
		}
		return accounts
	case e.Adjustment != nil:
		return []Account{{UserID: e.Adjustment.UserID, AssetID: e.Adjustment.AssetID}}
	}
	return nil
}

// ToBytes encodes the event as JSON.
func ToBytes(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// FromBytes decodes a JSON event.
func FromBytes(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}
