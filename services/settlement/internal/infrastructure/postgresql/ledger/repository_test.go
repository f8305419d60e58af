package ledger

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	mockLogger "github.com/muhammadchandra19/settlement/pkg/logger/mock"
	mockPg "github.com/muhammadchandra19/settlement/pkg/postgresql/mock"
	ledgerv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/ledger/v1"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sumRow struct {
	sum string
	err error
}

func (r sumRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.sum
	return nil
}

func TestBuildInsert(t *testing.T) {
	now := time.Now()
	adjustments := []*ledgerv1.BalanceAdjustment{
		{ID: "a1", UserID: "u1", AssetID: "BTC", Amount: decimal.NewFromInt(1), Source: ledgerv1.SourceTrade, ReferenceID: "t1", CreatedAt: now},
		{ID: "a2", UserID: "u2", AssetID: "BTC", Amount: decimal.NewFromInt(-1), Source: ledgerv1.SourceTrade, ReferenceID: "t1", CreatedAt: now},
	}

	query, args := buildInsert(adjustments)
	assert.Equal(t, insertPrefix+"($1, $2, $3, $4, $5, $6, $7), ($8, $9, $10, $11, $12, $13, $14)", query)
	assert.Equal(t, []any{
		"a1", "u1", "BTC", "1", "trade", "t1", now,
		"a2", "u2", "BTC", "-1", "trade", "t1", now,
	}, args)
}

func TestLedger_Append(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	adjustment := &ledgerv1.BalanceAdjustment{ID: "a1", UserID: "u1", AssetID: "JPY", Amount: decimal.NewFromInt(100), Source: ledgerv1.SourceDeposit, ReferenceID: "d1", CreatedAt: now}
	query, args := buildInsert([]*ledgerv1.BalanceAdjustment{adjustment})

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		pg := mockPg.NewMockPostgreSQLClient(ctrl)
		log := mockLogger.NewMockInterface(ctrl)
		pg.EXPECT().Exec(ctx, query, args...).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
		log.EXPECT().DebugContext(ctx, "Appended balance adjustments",
			logger.Field{Key: "count", Value: 1},
			logger.Field{Key: "commandTag", Value: "INSERT 0 1"},
		)

		assert.NoError(t, NewRepository(pg, log).Append(ctx, adjustment))
	})

	t.Run("nothing to append", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		pg := mockPg.NewMockPostgreSQLClient(ctrl)
		assert.NoError(t, NewRepository(pg, logger.NewNop()).Append(ctx))
	})

	t.Run("error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		pg := mockPg.NewMockPostgreSQLClient(ctrl)
		pg.EXPECT().Exec(ctx, query, args...).Return(pgconn.CommandTag{}, stderrors.New("unique violation"))

		err := NewRepository(pg, logger.NewNop()).Append(ctx, adjustment)
		assert.True(t, errors.HasCode(err, errors.PersistenceFailure))
	})
}

func TestLedger_Balance(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name     string
		row      sumRow
		expected string
		wantErr  bool
	}{
		{name: "sum", row: sumRow{sum: "12.500000000000000000"}, expected: "12.5"},
		{name: "no adjustments", row: sumRow{sum: "0"}, expected: "0"},
		{name: "query error", row: sumRow{err: stderrors.New("timeout")}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			pg := mockPg.NewMockPostgreSQLClient(ctrl)
			pg.EXPECT().QueryRow(ctx, balanceQuery, "u1", "BTC").Return(tc.row)

			balance, err := NewRepository(pg, logger.NewNop()).Balance(ctx, "u1", "BTC")
			if tc.wantErr {
				assert.True(t, errors.HasCode(err, errors.PersistenceFailure))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, balance.String())
		})
	}
}
