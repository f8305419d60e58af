package orderv1

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Trade is the immutable record of a single fill.
type Trade struct {
	ID           string          `json:"id"`
	BuyOrderID   string          `json:"buyOrderID"`
	SellOrderID  string          `json:"sellOrderID"`
	BuyerID      string          `json:"buyerID"`
	SellerID     string          `json:"sellerID"`
	BaseAssetID  string          `json:"baseAssetID"`
	QuoteAssetID string          `json:"quoteAssetID"`
	Amount       decimal.Decimal `json:"amount"`
	Rate         decimal.Decimal `json:"rate"`
	QuoteAmount  decimal.Decimal `json:"quoteAmount"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// NewTrade creates the trade between buy and sell for amount at rate.
// quoteAmount is what the buyer pays and the seller receives.
func NewTrade(buy, sell *Order, amount, rate, quoteAmount decimal.Decimal, at time.Time) *Trade {
	return &Trade{
		ID:           ulid.Make().String(),
		BuyOrderID:   buy.ID,
		SellOrderID:  sell.ID,
		BuyerID:      buy.UserID,
		SellerID:     sell.UserID,
		BaseAssetID:  buy.BaseAssetID,
		QuoteAssetID: buy.QuoteAssetID,
		Amount:       amount,
		Rate:         rate,
		QuoteAmount:  quoteAmount,
		CreatedAt:    at,
	}
}

// Pair returns the asset pair key of the trade.
func (t *Trade) Pair() string {
	return PairKey(t.BaseAssetID, t.QuoteAssetID)
}
