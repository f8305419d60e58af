package order

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	mockLogger "github.com/muhammadchandra19/settlement/pkg/logger/mock"
	mockPg "github.com/muhammadchandra19/settlement/pkg/postgresql/mock"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *bool:
			*d = v.(bool)
		case *time.Time:
			*d = v.(time.Time)
		case **time.Time:
			*d, _ = v.(*time.Time)
		}
	}
	return nil
}

func TestOrder_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	order := &orderv1.Order{
		ID:           "o1",
		UserID:       "u1",
		BaseAssetID:  "BTC",
		QuoteAssetID: "JPY",
		Side:         orderv1.SideBuy,
		Kind:         orderv1.KindLimit,
		Quantity:     decimal.RequireFromString("1.5"),
		Rate:         decimal.NewFromInt(100),
		CreatedAt:    now,
	}

	testCases := []struct {
		name     string
		mockFn   func(pg *mockPg.MockPostgreSQLClient, log *mockLogger.MockInterface)
		assertFn func(t *testing.T, err error)
	}{
		{
			name: "success",
			mockFn: func(pg *mockPg.MockPostgreSQLClient, log *mockLogger.MockInterface) {
				pg.EXPECT().
					Exec(ctx, insertQuery,
						"o1", "u1", "BTC", "JPY", "buy", "limit",
						"1.5", "100", "0", "0", "0",
						now, (*time.Time)(nil), (*time.Time)(nil),
					).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

				log.EXPECT().DebugContext(ctx, "Inserted order",
					logger.Field{Key: "orderID", Value: "o1"},
					logger.Field{Key: "commandTag", Value: "INSERT 0 1"},
				)
			},
			assertFn: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "error",
			mockFn: func(pg *mockPg.MockPostgreSQLClient, log *mockLogger.MockInterface) {
				pg.EXPECT().
					Exec(ctx, insertQuery, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
						gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(pgconn.CommandTag{}, stderrors.New("duplicate key"))
			},
			assertFn: func(t *testing.T, err error) {
				assert.True(t, errors.HasCode(err, errors.PersistenceFailure))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			pg := mockPg.NewMockPostgreSQLClient(ctrl)
			log := mockLogger.NewMockInterface(ctrl)
			tc.mockFn(pg, log)

			err := NewRepository(pg, log).Create(ctx, order)
			tc.assertFn(t, err)
		})
	}
}

func TestOrder_Get(t *testing.T) {
	ctx := context.Background()
	query := "SELECT id, user_id, base_asset_id, quote_asset_id, side, kind, quantity::text, rate::text, total::text, quantity_filled::text, total_used::text, created_at, filled_at, cancelled_at FROM orders WHERE id = $1"
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		pg := mockPg.NewMockPostgreSQLClient(ctrl)
		pg.EXPECT().QueryRow(ctx, query, "o1").Return(fakeRow{values: []any{
			"o1", "u1", "BTC", "JPY", "sell", "limit",
			"2.000000000000000000", "10.5", "0", "0.5", "0",
			now, (*time.Time)(nil), (*time.Time)(nil),
		}})

		order, err := NewRepository(pg, logger.NewNop()).Get(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, orderv1.SideSell, order.Side)
		assert.True(t, order.Quantity.Equal(decimal.NewFromInt(2)))
		assert.Equal(t, "0.5", order.QuantityFilled.String())
		assert.Equal(t, orderv1.StatePartiallyFilled, order.State())
	})

	t.Run("not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		pg := mockPg.NewMockPostgreSQLClient(ctrl)
		pg.EXPECT().QueryRow(ctx, query, "missing").Return(fakeRow{err: pgx.ErrNoRows})

		_, err := NewRepository(pg, logger.NewNop()).Get(ctx, "missing")
		assert.True(t, errors.HasCode(err, errors.OrderNotFound))
	})

	t.Run("bad numeric", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		pg := mockPg.NewMockPostgreSQLClient(ctrl)
		pg.EXPECT().QueryRow(ctx, query, "o1").Return(fakeRow{values: []any{
			"o1", "u1", "BTC", "JPY", "sell", "limit",
			"NaN", "10", "0", "0", "0",
			now, (*time.Time)(nil), (*time.Time)(nil),
		}})

		_, err := NewRepository(pg, logger.NewNop()).Get(ctx, "o1")
		assert.True(t, errors.HasCode(err, errors.PersistenceFailure))
	})
}

func TestOrder_ListCandidates(t *testing.T) {
	ctx := context.Background()
	base := "SELECT id, user_id, base_asset_id, quote_asset_id, side, kind, quantity::text, rate::text, total::text, quantity_filled::text, total_used::text, created_at, filled_at, cancelled_at FROM orders WHERE base_asset_id = $1 AND quote_asset_id = $2 AND side = $3 AND id <> $4 AND filled_at IS NULL AND cancelled_at IS NULL AND "

	testCases := []struct {
		name     string
		incoming *orderv1.Order
		query    string
		args     []any
	}{
		{
			name:     "limit sell takes higher buys",
			incoming: &orderv1.Order{ID: "in", BaseAssetID: "BTC", QuoteAssetID: "JPY", Side: orderv1.SideSell, Kind: orderv1.KindLimit, Rate: decimal.NewFromInt(10)},
			query:    base + "(kind = $5 OR rate >= $6::numeric) ORDER BY CASE WHEN kind = 'market' THEN 0 ELSE 1 END, rate DESC, created_at ASC, id ASC",
			args:     []any{"BTC", "JPY", "buy", "in", "market", "10"},
		},
		{
			name:     "limit buy takes lower sells",
			incoming: &orderv1.Order{ID: "in", BaseAssetID: "BTC", QuoteAssetID: "JPY", Side: orderv1.SideBuy, Kind: orderv1.KindLimit, Rate: decimal.NewFromInt(10)},
			query:    base + "(kind = $5 OR rate <= $6::numeric) ORDER BY CASE WHEN kind = 'market' THEN 0 ELSE 1 END, rate ASC, created_at ASC, id ASC",
			args:     []any{"BTC", "JPY", "sell", "in", "market", "10"},
		},
		{
			name:     "market order only takes limit orders",
			incoming: &orderv1.Order{ID: "in", BaseAssetID: "BTC", QuoteAssetID: "JPY", Side: orderv1.SideBuy, Kind: orderv1.KindMarket},
			query:    base + "kind = $5 ORDER BY CASE WHEN kind = 'market' THEN 0 ELSE 1 END, rate ASC, created_at ASC, id ASC",
			args:     []any{"BTC", "JPY", "sell", "in", "limit"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			pg := mockPg.NewMockPostgreSQLClient(ctrl)
			rows := mockPg.NewMockRowsInterface(ctrl)
			rows.EXPECT().Next().Return(false)
			rows.EXPECT().Err().Return(nil)
			rows.EXPECT().Close()
			pg.EXPECT().Query(ctx, tc.query, tc.args...).Return(rows, nil)

			orders, err := NewRepository(pg, logger.NewNop()).ListCandidates(ctx, tc.incoming)
			require.NoError(t, err)
			assert.Empty(t, orders)
		})
	}
}

func TestOrder_UpdateFill(t *testing.T) {
	ctx := context.Background()
	query := "UPDATE orders SET quantity_filled = $1, total_used = $2, filled_at = $3 WHERE id = $4 AND filled_at IS NULL AND cancelled_at IS NULL AND quantity_filled = $5::numeric AND total_used = $6::numeric"
	update := orderv1.FillUpdate{
		OrderID:                "o1",
		PreviousQuantityFilled: decimal.Zero,
		PreviousTotalUsed:      decimal.Zero,
		QuantityFilled:         decimal.NewFromInt(3),
		TotalUsed:              decimal.Zero,
	}

	testCases := []struct {
		name     string
		mockFn   func(pg *mockPg.MockPostgreSQLClient)
		assertFn func(t *testing.T, err error)
	}{
		{
			name: "applied",
			mockFn: func(pg *mockPg.MockPostgreSQLClient) {
				pg.EXPECT().Exec(ctx, query, "3", "0", (*time.Time)(nil), "o1", "0", "0").
					Return(pgconn.NewCommandTag("UPDATE 1"), nil)
			},
			assertFn: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "stale",
			mockFn: func(pg *mockPg.MockPostgreSQLClient) {
				pg.EXPECT().Exec(ctx, query, "3", "0", (*time.Time)(nil), "o1", "0", "0").
					Return(pgconn.NewCommandTag("UPDATE 0"), nil)
				pg.EXPECT().QueryRow(ctx, existsQuery, "o1").Return(fakeRow{values: []any{true}})
			},
			assertFn: func(t *testing.T, err error) {
				assert.True(t, errors.HasCode(err, errors.OrderNotOpen))
			},
		},
		{
			name: "missing",
			mockFn: func(pg *mockPg.MockPostgreSQLClient) {
				pg.EXPECT().Exec(ctx, query, "3", "0", (*time.Time)(nil), "o1", "0", "0").
					Return(pgconn.NewCommandTag("UPDATE 0"), nil)
				pg.EXPECT().QueryRow(ctx, existsQuery, "o1").Return(fakeRow{values: []any{false}})
			},
			assertFn: func(t *testing.T, err error) {
				assert.True(t, errors.HasCode(err, errors.OrderNotFound))
			},
		},
		{
			name: "database error",
			mockFn: func(pg *mockPg.MockPostgreSQLClient) {
				pg.EXPECT().Exec(ctx, query, "3", "0", (*time.Time)(nil), "o1", "0", "0").
					Return(pgconn.CommandTag{}, stderrors.New("connection reset"))
			},
			assertFn: func(t *testing.T, err error) {
				assert.True(t, errors.HasCode(err, errors.PersistenceFailure))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			pg := mockPg.NewMockPostgreSQLClient(ctrl)
			tc.mockFn(pg)

			tc.assertFn(t, NewRepository(pg, logger.NewNop()).UpdateFill(ctx, update))
		})
	}
}

func TestOrder_Cancel(t *testing.T) {
	ctx := context.Background()
	at := time.Now()

	testCases := []struct {
		name      string
		tag       string
		exists    *bool
		cancelled bool
		code      errors.ErrorCode
	}{
		{name: "open order", tag: "UPDATE 1", cancelled: true},
		{name: "already closed", tag: "UPDATE 0", exists: boolPtr(true)},
		{name: "missing", tag: "UPDATE 0", exists: boolPtr(false), code: errors.OrderNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			pg := mockPg.NewMockPostgreSQLClient(ctrl)
			pg.EXPECT().Exec(ctx, cancelQuery, at, "o1").Return(pgconn.NewCommandTag(tc.tag), nil)
			if tc.exists != nil {
				pg.EXPECT().QueryRow(ctx, existsQuery, "o1").Return(fakeRow{values: []any{*tc.exists}})
			}

			cancelled, err := NewRepository(pg, logger.NewNop()).Cancel(ctx, "o1", at)
			assert.Equal(t, tc.cancelled, cancelled)
			if tc.code != "" {
				assert.True(t, errors.HasCode(err, tc.code))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func boolPtr(b bool) *bool {
	return &b
}
