package trade

import (
	"context"

	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	"github.com/muhammadchandra19/settlement/pkg/postgresql"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	"github.com/shopspring/decimal"
)

const insertQuery = `INSERT INTO trades (id, buy_order_id, sell_order_id, buyer_id, seller_id, base_asset_id, quote_asset_id, amount, rate, quote_amount, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const listByOrderQuery = `SELECT id, buy_order_id, sell_order_id, buyer_id, seller_id, base_asset_id, quote_asset_id, amount::text, rate::text, quote_amount::text, created_at FROM trades WHERE buy_order_id = $1 OR sell_order_id = $1 ORDER BY created_at ASC, id ASC`

type repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

// NewRepository creates a TradeStore backed by PostgreSQL.
func NewRepository(db postgresql.PostgreSQLClient, logger logger.Interface) orderv1.TradeStore {
	return &repository{
		db:     db,
		logger: logger,
	}
}

// Create stores a trade.
func (r *repository) Create(ctx context.Context, trade *orderv1.Trade) error {
	cmd, err := r.db.Exec(ctx, insertQuery,
		trade.ID,
		trade.BuyOrderID,
		trade.SellOrderID,
		trade.BuyerID,
		trade.SellerID,
		trade.BaseAssetID,
		trade.QuoteAssetID,
		trade.Amount.String(),
		trade.Rate.String(),
		trade.QuoteAmount.String(),
		trade.CreatedAt,
	)
	if err != nil {
		return errors.Persistence("failed to insert trade", err)
	}

	r.logger.DebugContext(ctx, "Inserted trade",
		logger.Field{Key: "tradeID", Value: trade.ID},
		logger.Field{Key: "commandTag", Value: cmd.String()},
	)
	return nil
}

// ListByOrder returns the trades the order took part in, oldest first.
func (r *repository) ListByOrder(ctx context.Context, orderID string) ([]*orderv1.Trade, error) {
	rows, err := r.db.Query(ctx, listByOrderQuery, orderID)
	if err != nil {
		return nil, errors.Persistence("failed to list trades", err)
	}
	defer rows.Close()

	trades := make([]*orderv1.Trade, 0)
	for rows.Next() {
		var (
			t                         orderv1.Trade
			amount, rate, quoteAmount string
		)
		if err := rows.Scan(
			&t.ID,
			&t.BuyOrderID,
			&t.SellOrderID,
			&t.BuyerID,
			&t.SellerID,
			&t.BaseAssetID,
			&t.QuoteAssetID,
			&amount,
			&rate,
			&quoteAmount,
			&t.CreatedAt,
		); err != nil {
			return nil, errors.Persistence("failed to scan trade", err)
		}

		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, errors.Persistence("failed to decode trade "+t.ID, err)
		}
		if t.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, errors.Persistence("failed to decode trade "+t.ID, err)
		}
		if t.QuoteAmount, err = decimal.NewFromString(quoteAmount); err != nil {
			return nil, errors.Persistence("failed to decode trade "+t.ID, err)
		}
		trades = append(trades, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Persistence("failed to list trades", err)
	}
	return trades, nil
}
