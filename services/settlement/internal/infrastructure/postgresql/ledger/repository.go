package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	"github.com/muhammadchandra19/settlement/pkg/postgresql"
	ledgerv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/ledger/v1"
	"github.com/shopspring/decimal"
)

const insertPrefix = `INSERT INTO balance_adjustments (id, user_id, asset_id, amount, source, reference_id, created_at) VALUES `

const balanceQuery = `SELECT COALESCE(SUM(amount), 0)::text FROM balance_adjustments WHERE user_id = $1 AND asset_id = $2`

const listByReferenceQuery = `SELECT id, user_id, asset_id, amount::text, source, reference_id, created_at FROM balance_adjustments WHERE source = $1 AND reference_id = $2 ORDER BY created_at ASC, id ASC`

const insertColumns = 7

type repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

// NewRepository creates a LedgerStore backed by PostgreSQL.
func NewRepository(db postgresql.PostgreSQLClient, logger logger.Interface) ledgerv1.LedgerStore {
	return &repository{
		db:     db,
		logger: logger,
	}
}

// buildInsert returns one multi-row INSERT for adjustments.
func buildInsert(adjustments []*ledgerv1.BalanceAdjustment) (string, []any) {
	var query strings.Builder
	query.WriteString(insertPrefix)

	args := make([]any, 0, len(adjustments)*insertColumns)
	for i, a := range adjustments {
		if i > 0 {
			query.WriteString(", ")
		}
		n := i * insertColumns
		query.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6, n+7))
		args = append(args, a.ID, a.UserID, a.AssetID, a.Amount.String(), string(a.Source), a.ReferenceID, a.CreatedAt)
	}
	return query.String(), args
}

// Append stores adjustments in one statement.
func (r *repository) Append(ctx context.Context, adjustments ...*ledgerv1.BalanceAdjustment) error {
	if len(adjustments) == 0 {
		return nil
	}

	query, args := buildInsert(adjustments)
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return errors.Persistence("failed to append balance adjustments", err)
	}

	r.logger.DebugContext(ctx, "Appended balance adjustments",
		logger.Field{Key: "count", Value: len(adjustments)},
		logger.Field{Key: "commandTag", Value: cmd.String()},
	)
	return nil
}

// Balance sums the user's adjustments in assetID.
func (r *repository) Balance(ctx context.Context, userID, assetID string) (decimal.Decimal, error) {
	var sum string
	if err := r.db.QueryRow(ctx, balanceQuery, userID, assetID).Scan(&sum); err != nil {
		return decimal.Zero, errors.Persistence("failed to sum balance", err)
	}

	balance, err := decimal.NewFromString(sum)
	if err != nil {
		return decimal.Zero, errors.Persistence("failed to decode balance", err)
	}
	return balance, nil
}

// ListByReference returns the adjustments recorded under one reference.
func (r *repository) ListByReference(ctx context.Context, source ledgerv1.Source, referenceID string) ([]*ledgerv1.BalanceAdjustment, error) {
	rows, err := r.db.Query(ctx, listByReferenceQuery, string(source), referenceID)
	if err != nil {
		return nil, errors.Persistence("failed to list balance adjustments", err)
	}
	defer rows.Close()

	adjustments := make([]*ledgerv1.BalanceAdjustment, 0)
	for rows.Next() {
		var (
			a              ledgerv1.BalanceAdjustment
			amount, source string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.AssetID, &amount, &source, &a.ReferenceID, &a.CreatedAt); err != nil {
			return nil, errors.Persistence("failed to scan balance adjustment", err)
		}
		if a.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, errors.Persistence("failed to decode balance adjustment "+a.ID, err)
		}
		a.Source = ledgerv1.Source(source)
		adjustments = append(adjustments, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Persistence("failed to list balance adjustments", err)
	}
	return adjustments, nil
}
