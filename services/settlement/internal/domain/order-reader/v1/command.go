package orderreaderv1

import (
	"encoding/json"

	ledgerv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/ledger/v1"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
)

// CommandType represents what a command asks the engine to do.
type CommandType string

const (
	// CommandPlace submits a new order.
	CommandPlace CommandType = "place"
	// CommandCancel cancels an open order.
	CommandCancel CommandType = "cancel"
	// CommandAdjust records a deposit or withdrawal.
	CommandAdjust CommandType = "adjust"
)

// Command is one message of the intake topic.
type Command struct {
	Type       CommandType                `json:"type"`
	RequestID  string                     `json:"requestID,omitempty"`
	Order      *orderv1.PlaceOrderRequest `json:"order,omitempty"`
	OrderID    string                     `json:"orderID,omitempty"`
	Adjustment *ledgerv1.AdjustRequest    `json:"adjustment,omitempty"`
	Offset     int64                      `json:"-"`
}

// Key returns the partition key of the command: the pair for orders, the
// user otherwise.
func (c Command) Key() string {
	switch {
	case c.Order != nil:
		return orderv1.PairKey(c.Order.BaseAssetID, c.Order.QuoteAssetID)
	case c.Adjustment != nil:
		return c.Adjustment.UserID
	}
	return c.OrderID
}

// ToBytes encodes the command as JSON.
func ToBytes(c Command) ([]byte, error) {
	return json.Marshal(c)
}

// FromBytes decodes a JSON command.
func FromBytes(data []byte) (Command, error) {
	var c Command
	err := json.Unmarshal(data, &c)
	return c, err
}
