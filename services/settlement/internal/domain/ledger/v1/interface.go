package ledgerv1

import (
	"context"

	"github.com/shopspring/decimal"
)

// LedgerStore persists balance adjustments. Balances are always derived
// from the adjustments, never stored.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=ledgerv1_mock
type LedgerStore interface {
	// Append stores adjustments.
	Append(ctx context.Context, adjustments ...*BalanceAdjustment) error
	// Balance returns the sum of the user's adjustments in assetID.
	Balance(ctx context.Context, userID, assetID string) (decimal.Decimal, error)
	// ListByReference returns the adjustments recorded for one trade, deposit or withdrawal.
	ListByReference(ctx context.Context, source Source, referenceID string) ([]*BalanceAdjustment, error)
}

// BalanceProvider answers how much of an asset a user can still commit.
type BalanceProvider interface {
	// AvailableBalance is the ledger balance minus what the user's open orders reserve.
	AvailableBalance(ctx context.Context, userID, assetID string) (decimal.Decimal, error)
}

// BalanceCache keeps a denormalised copy of balances. It is never authoritative.
type BalanceCache interface {
	// Get returns the cached balance and whether it was present.
	Get(ctx context.Context, userID, assetID string) (decimal.Decimal, bool, error)
	// Set stores balance for the user and asset.
	Set(ctx context.Context, userID, assetID string, balance decimal.Decimal) error
}
