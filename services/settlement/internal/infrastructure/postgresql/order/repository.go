package order

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	"github.com/muhammadchandra19/settlement/pkg/postgresql"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
)

const insertQuery = `INSERT INTO orders (id, user_id, base_asset_id, quote_asset_id, side, kind, quantity, rate, total, quantity_filled, total_used, created_at, filled_at, cancelled_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const cancelQuery = `UPDATE orders SET cancelled_at = $1 WHERE id = $2 AND filled_at IS NULL AND cancelled_at IS NULL`

const existsQuery = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

// open restricts a query to orders that can still take fills.
const open = "filled_at IS NULL AND cancelled_at IS NULL"

type repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

// NewRepository creates an OrderStore backed by PostgreSQL.
func NewRepository(db postgresql.PostgreSQLClient, logger logger.Interface) orderv1.OrderStore {
	return &repository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new order.
func (r *repository) Create(ctx context.Context, order *orderv1.Order) error {
	cmd, err := r.db.Exec(ctx, insertQuery,
		order.ID,
		order.UserID,
		order.BaseAssetID,
		order.QuoteAssetID,
		string(order.Side),
		string(order.Kind),
		order.Quantity.String(),
		order.Rate.String(),
		order.Total.String(),
		order.QuantityFilled.String(),
		order.TotalUsed.String(),
		order.CreatedAt,
		order.FilledAt,
		order.CancelledAt,
	)
	if err != nil {
		return errors.Persistence("failed to insert order", err)
	}

	r.logger.DebugContext(ctx, "Inserted order",
		logger.Field{Key: "orderID", Value: order.ID},
		logger.Field{Key: "commandTag", Value: cmd.String()},
	)
	return nil
}

// Get returns the order with id.
func (r *repository) Get(ctx context.Context, id string) (*orderv1.Order, error) {
	query, args := postgresql.NewQueryBuilder().
		Select(selectColumns...).
		From("orders").
		Where("id = ?", id).
		Build()

	var o row
	if err := r.db.QueryRow(ctx, query, args...).Scan(o.dest()...); err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound(id)
		}
		return nil, errors.Persistence("failed to get order", err)
	}
	return o.toOrder()
}

// ListCandidates returns the open orders of the opposite side that incoming
// can fill against: market orders first, then best rate, then oldest.
// Market orders lead on both sides on purpose. Their stored rate is 0, so
// sorting by rate alone would rank a market sell first but a market buy
// last. The explicit kind key keeps both sides consistent with
// orderv1.HasPriority.
func (r *repository) ListCandidates(ctx context.Context, incoming *orderv1.Order) ([]*orderv1.Order, error) {
	qb := postgresql.NewQueryBuilder().
		Select(selectColumns...).
		From("orders").
		Where("base_asset_id = ?", incoming.BaseAssetID).
		Where("quote_asset_id = ?", incoming.QuoteAssetID).
		Where("side = ?", string(incoming.Side.Opposite())).
		Where("id <> ?", incoming.ID).
		Where(open)

	switch {
	case incoming.IsMarket():
		qb.Where("kind = ?", string(orderv1.KindLimit))
	case incoming.IsSell():
		qb.Where("(kind = ? OR rate >= ?::numeric)", string(orderv1.KindMarket), incoming.Rate.String())
	default:
		qb.Where("(kind = ? OR rate <= ?::numeric)", string(orderv1.KindMarket), incoming.Rate.String())
	}

	query, args := qb.
		OrderByRaw("CASE WHEN kind = 'market' THEN 0 ELSE 1 END").
		OrderBy("rate", incoming.IsSell()).
		OrderBy("created_at").
		OrderBy("id").
		Build()

	return r.list(ctx, "failed to list candidates", query, args...)
}

// ListOpenBySpendAsset returns the user's open orders that pay with assetID:
// buys quoted in it and sells of it.
func (r *repository) ListOpenBySpendAsset(ctx context.Context, userID, assetID string) ([]*orderv1.Order, error) {
	query, args := postgresql.NewQueryBuilder().
		Select(selectColumns...).
		From("orders").
		Where("user_id = ?", userID).
		Where(open).
		Where("((side = 'buy' AND quote_asset_id = ?) OR (side = 'sell' AND base_asset_id = ?))", assetID, assetID).
		Build()

	return r.list(ctx, "failed to list open orders", query, args...)
}

// ListByUser returns the user's orders, newest first.
func (r *repository) ListByUser(ctx context.Context, query orderv1.UserOrdersQuery) ([]*orderv1.Order, error) {
	qb := postgresql.NewQueryBuilder().
		Select(selectColumns...).
		From("orders").
		Where("user_id = ?", query.UserID)

	switch query.Filter {
	case orderv1.ListOpen:
		qb.Where(open)
	case orderv1.ListClosed:
		qb.Where("(filled_at IS NOT NULL OR cancelled_at IS NOT NULL)")
	}

	qb.OrderBy("created_at", true).OrderBy("id", true)
	if query.Limit > 0 {
		qb.Limit(query.Limit)
	}
	if query.Offset > 0 {
		qb.Offset(query.Offset)
	}

	sql, args := qb.Build()
	return r.list(ctx, "failed to list user orders", sql, args...)
}

// UpdateFill writes the new fill progress only if the row is open and still
// holds the previous progress.
func (r *repository) UpdateFill(ctx context.Context, update orderv1.FillUpdate) error {
	query, args := postgresql.NewUpdateBuilder().
		Table("orders").
		Set("quantity_filled", update.QuantityFilled.String()).
		Set("total_used", update.TotalUsed.String()).
		Set("filled_at", update.FilledAt).
		Where("id = ?", update.OrderID).
		Where(open).
		Where("quantity_filled = ?::numeric", update.PreviousQuantityFilled.String()).
		Where("total_used = ?::numeric", update.PreviousTotalUsed.String()).
		Build()

	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return errors.Persistence("failed to update order fill", err)
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}

	exists, err := r.exists(ctx, update.OrderID)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NotFound(update.OrderID)
	}
	return errors.NotOpen(update.OrderID)
}

// Cancel sets cancelled_at on an open order.
func (r *repository) Cancel(ctx context.Context, id string, at time.Time) (bool, error) {
	cmd, err := r.db.Exec(ctx, cancelQuery, at, id)
	if err != nil {
		return false, errors.Persistence("failed to cancel order", err)
	}
	if cmd.RowsAffected() == 1 {
		return true, nil
	}

	exists, err := r.exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, errors.NotFound(id)
	}
	return false, nil
}

func (r *repository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, existsQuery, id).Scan(&exists); err != nil {
		return false, errors.Persistence("failed to check order", err)
	}
	return exists, nil
}

func (r *repository) list(ctx context.Context, message, query string, args ...any) ([]*orderv1.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Persistence(message, err)
	}
	defer rows.Close()

	orders := make([]*orderv1.Order, 0)
	for rows.Next() {
		var o row
		if err := rows.Scan(o.dest()...); err != nil {
			return nil, errors.Persistence(message, err)
		}
		order, err := o.toOrder()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Persistence(message, err)
	}
	return orders, nil
}
