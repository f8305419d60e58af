package ledgerv1

import (
	"time"

	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Source names what caused a balance adjustment.
type Source string

const (
	// SourceTrade is one leg of a fill.
	SourceTrade Source = "trade"
	// SourceDeposit credits funds received from outside the exchange.
	SourceDeposit Source = "deposit"
	// SourceWithdrawal debits funds sent outside the exchange.
	SourceWithdrawal Source = "withdrawal"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceTrade, SourceDeposit, SourceWithdrawal:
		return true
	}
	return false
}

// BalanceAdjustment is an immutable signed movement of one asset for one user.
type BalanceAdjustment struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userID"`
	AssetID     string          `json:"assetID"`
	Amount      decimal.Decimal `json:"amount"`
	Source      Source          `json:"source"`
	ReferenceID string          `json:"referenceID"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// NewAdjustment creates an adjustment of amount for the given source.
func NewAdjustment(userID, assetID string, amount decimal.Decimal, source Source, referenceID string, at time.Time) *BalanceAdjustment {
	return &BalanceAdjustment{
		ID:          ulid.Make().String(),
		UserID:      userID,
		AssetID:     assetID,
		Amount:      amount,
		Source:      source,
		ReferenceID: referenceID,
		CreatedAt:   at,
	}
}

// TradeAdjustments returns the four legs of trade: buyer receives base,
// seller receives quote, seller gives base, buyer gives quote. Per asset the
// legs sum to zero.
func TradeAdjustments(trade *orderv1.Trade) []*BalanceAdjustment {
	return []*BalanceAdjustment{
		NewAdjustment(trade.BuyerID, trade.BaseAssetID, trade.Amount, SourceTrade, trade.ID, trade.CreatedAt),
		NewAdjustment(trade.SellerID, trade.QuoteAssetID, trade.QuoteAmount, SourceTrade, trade.ID, trade.CreatedAt),
		NewAdjustment(trade.SellerID, trade.BaseAssetID, trade.Amount.Neg(), SourceTrade, trade.ID, trade.CreatedAt),
		NewAdjustment(trade.BuyerID, trade.QuoteAssetID, trade.QuoteAmount.Neg(), SourceTrade, trade.ID, trade.CreatedAt),
	}
}

// AccountKey builds the key that serializes balance checks of one user in one asset.
func AccountKey(userID, assetID string) string {
	return "account:" + userID + ":" + assetID
}

// AdjustRequest asks for a deposit or withdrawal. Amount is positive; the
// source decides the sign of the stored adjustment.
type AdjustRequest struct {
	UserID      string          `json:"userID"`
	AssetID     string          `json:"assetID"`
	Amount      decimal.Decimal `json:"amount"`
	Source      Source          `json:"source"`
	ReferenceID string          `json:"referenceID"`
}
