package order

import (
	"time"

	"github.com/muhammadchandra19/settlement/pkg/errors"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	"github.com/shopspring/decimal"
)

// selectColumns reads numerics as text so they round-trip exactly.
var selectColumns = []string{
	"id",
	"user_id",
	"base_asset_id",
	"quote_asset_id",
	"side",
	"kind",
	"quantity::text",
	"rate::text",
	"total::text",
	"quantity_filled::text",
	"total_used::text",
	"created_at",
	"filled_at",
	"cancelled_at",
}

// row is an orders row as scanned from PostgreSQL.
type row struct {
	ID             string
	UserID         string
	BaseAssetID    string
	QuoteAssetID   string
	Side           string
	Kind           string
	Quantity       string
	Rate           string
	Total          string
	QuantityFilled string
	TotalUsed      string
	CreatedAt      time.Time
	FilledAt       *time.Time
	CancelledAt    *time.Time
}

func (r *row) dest() []any {
	return []any{
		&r.ID,
		&r.UserID,
		&r.BaseAssetID,
		&r.QuoteAssetID,
		&r.Side,
		&r.Kind,
		&r.Quantity,
		&r.Rate,
		&r.Total,
		&r.QuantityFilled,
		&r.TotalUsed,
		&r.CreatedAt,
		&r.FilledAt,
		&r.CancelledAt,
	}
}

func (r *row) toOrder() (*orderv1.Order, error) {
	values := make([]decimal.Decimal, 5)
	for i, s := range []string{r.Quantity, r.Rate, r.Total, r.QuantityFilled, r.TotalUsed} {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, errors.Persistence("failed to decode order "+r.ID, err)
		}
		values[i] = d
	}

	return &orderv1.Order{
		ID:             r.ID,
		UserID:         r.UserID,
		BaseAssetID:    r.BaseAssetID,
		QuoteAssetID:   r.QuoteAssetID,
		Side:           orderv1.Side(r.Side),
		Kind:           orderv1.Kind(r.Kind),
		Quantity:       values[0],
		Rate:           values[1],
		Total:          values[2],
		QuantityFilled: values[3],
		TotalUsed:      values[4],
		CreatedAt:      r.CreatedAt,
		FilledAt:       r.FilledAt,
		CancelledAt:    r.CancelledAt,
	}, nil
}
