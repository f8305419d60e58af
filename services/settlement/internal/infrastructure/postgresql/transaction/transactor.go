package transaction

import (
	"context"

	"github.com/muhammadchandra19/settlement/pkg/postgresql"
	ledgerv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/ledger/v1"
	transactionv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/transaction/v1"
)

type transactor struct {
	db postgresql.PostgreSQLClient
}

// NewTransactor creates a Transactor on top of the PostgreSQL client. Stores
// built on the same client join the transaction through the context.
func NewTransactor(db postgresql.PostgreSQLClient) transactionv1.Transactor {
	return &transactor{db: db}
}

// WithinTransaction runs fn in a transaction. A ctx that already carries one
// is reused so nested calls commit together.
func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := postgresql.GetTx(ctx); ok {
		return fn(ctx)
	}
	return postgresql.WithTx(ctx, t.db, fn)
}

// LockAccount takes a transaction scoped advisory lock on the account, so
// balance checks of other processes wait for this transaction to end.
func (t *transactor) LockAccount(ctx context.Context, userID, assetID string) error {
	return postgresql.AdvisoryXactLock(ctx, t.db, ledgerv1.AccountKey(userID, assetID))
}
