package transactionv1

import "context"

// Transactor runs a group of store writes atomically. Stores pick the
// transaction up from the context passed to fn.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=transactionv1_mock
type Transactor interface {
	// WithinTransaction commits when fn returns nil and rolls back otherwise.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// LockAccount serializes balance checks of one user in one asset until
	// the surrounding transaction ends. ctx must come from WithinTransaction.
	LockAccount(ctx context.Context, userID, assetID string) error
}
