package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/keylock"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	"github.com/muhammadchandra19/settlement/pkg/migration"
	"github.com/muhammadchandra19/settlement/pkg/postgresql"
	assetv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/asset/v1"
	eventv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/event/v1"
	ledgerv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/ledger/v1"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	transactionv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/transaction/v1"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/infrastructure/postgresql/asset"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/infrastructure/postgresql/ledger"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/infrastructure/postgresql/migrations"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/infrastructure/postgresql/order"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/infrastructure/postgresql/trade"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/infrastructure/postgresql/transaction"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/usecase/fill"
	ledgerUsecase "github.com/muhammadchandra19/settlement/services/settlement/internal/usecase/ledger"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/usecase/matching"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/usecase/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, ...eventv1.Event) {}

type RepositoryTestSuite struct {
	suite.Suite
	ctx        context.Context
	helper     *postgresql.TestHelper
	orders     orderv1.OrderStore
	trades     orderv1.TradeStore
	ledger     ledgerv1.LedgerStore
	assets     *asset.Repository
	transactor transactionv1.Transactor
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupSuite() {
	s.ctx = context.Background()

	log := logger.NewNop()
	s.helper = postgresql.NewTestHelperWithSetup(s.T(), func(ctx context.Context, client postgresql.PostgreSQLClient) error {
		runner := migration.NewRunner(client, migrations.FS, log, migration.Config{})
		if err := runner.EnsureMigrationTable(ctx); err != nil {
			return err
		}
		return runner.MigrateUp(ctx, 0)
	})

	client := s.helper.GetClient()
	s.orders = order.NewRepository(client, log)
	s.trades = trade.NewRepository(client, log)
	s.ledger = ledger.NewRepository(client, log)
	s.assets = asset.NewRepository(client, log)
	s.transactor = transaction.NewTransactor(client)
}

func (s *RepositoryTestSuite) SetupTest() {
	s.helper.CleanupTables()
}

func (s *RepositoryTestSuite) newOrder(userID string, side orderv1.Side, kind orderv1.Kind, quantity, rate string, at time.Time) *orderv1.Order {
	o := orderv1.NewOrder(orderv1.PlaceOrderRequest{
		UserID:       userID,
		BaseAssetID:  "BTC",
		QuoteAssetID: "JPY",
		Side:         side,
		Kind:         kind,
		Quantity:     decimal.RequireFromString(quantity),
		Rate:         decimal.RequireFromString(rate),
	}, at)
	s.Require().NoError(s.orders.Create(s.ctx, o))
	return o
}

func (s *RepositoryTestSuite) TestOrderRoundTrip() {
	created := s.newOrder("u1", orderv1.SideBuy, orderv1.KindLimit, "0.123456789012345678", "4500000.5", time.Now().UTC().Truncate(time.Microsecond))

	stored, err := s.orders.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.Quantity.String(), stored.Quantity.String())
	s.Equal(created.Rate.String(), stored.Rate.String())
	s.True(created.CreatedAt.Equal(stored.CreatedAt))
	s.Equal(orderv1.StateOpen, stored.State())

	_, err = s.orders.Get(s.ctx, "missing")
	s.True(errors.HasCode(err, errors.OrderNotFound))
}

func (s *RepositoryTestSuite) TestCandidatesPriority() {
	t0 := time.Now().UTC().Truncate(time.Millisecond)
	worse := s.newOrder("s1", orderv1.SideSell, orderv1.KindLimit, "1", "11", t0)
	later := s.newOrder("s2", orderv1.SideSell, orderv1.KindLimit, "1", "10", t0.Add(time.Second))
	best := s.newOrder("s3", orderv1.SideSell, orderv1.KindLimit, "1", "10", t0)
	market := s.newOrder("s4", orderv1.SideSell, orderv1.KindMarket, "1", "0", t0.Add(2*time.Second))
	s.newOrder("s5", orderv1.SideSell, orderv1.KindLimit, "1", "12", t0)

	incoming := &orderv1.Order{ID: "incoming", BaseAssetID: "BTC", QuoteAssetID: "JPY", Side: orderv1.SideBuy, Kind: orderv1.KindLimit, Rate: decimal.NewFromInt(11)}
	candidates, err := s.orders.ListCandidates(s.ctx, incoming)
	s.Require().NoError(err)

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	s.Equal([]string{market.ID, best.ID, later.ID, worse.ID}, ids)

	incoming.Kind = orderv1.KindMarket
	candidates, err = s.orders.ListCandidates(s.ctx, incoming)
	s.Require().NoError(err)
	s.Len(candidates, 4, "market orders skip other market orders but ignore rates")
}

func (s *RepositoryTestSuite) TestCandidatesPriorityMarketLeadsBothSides() {
	t0 := time.Now().UTC().Truncate(time.Millisecond)
	low := s.newOrder("b1", orderv1.SideBuy, orderv1.KindLimit, "1", "10", t0)
	high := s.newOrder("b2", orderv1.SideBuy, orderv1.KindLimit, "1", "12", t0)
	market := s.newOrder("b3", orderv1.SideBuy, orderv1.KindMarket, "1", "0", t0.Add(time.Second))

	incoming := &orderv1.Order{ID: "incoming", BaseAssetID: "BTC", QuoteAssetID: "JPY", Side: orderv1.SideSell, Kind: orderv1.KindLimit, Rate: decimal.NewFromInt(9)}
	candidates, err := s.orders.ListCandidates(s.ctx, incoming)
	s.Require().NoError(err)

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	s.Equal([]string{market.ID, high.ID, low.ID}, ids)
}

func (s *RepositoryTestSuite) TestUpdateFillIsConditional() {
	o := s.newOrder("u1", orderv1.SideSell, orderv1.KindLimit, "2", "10", time.Now())

	after := o.Clone()
	after.ApplyFill(decimal.NewFromInt(1), decimal.NewFromInt(10), time.Now())
	s.Require().NoError(s.orders.UpdateFill(s.ctx, orderv1.NewFillUpdate(o, after)))

	err := s.orders.UpdateFill(s.ctx, orderv1.NewFillUpdate(o, after))
	s.True(errors.HasCode(err, errors.OrderNotOpen), "a second writer with the same snapshot loses")

	cancelled, err := s.orders.Cancel(s.ctx, o.ID, time.Now())
	s.Require().NoError(err)
	s.True(cancelled)

	cancelled, err = s.orders.Cancel(s.ctx, o.ID, time.Now())
	s.Require().NoError(err)
	s.False(cancelled)

	next := after.Clone()
	next.ApplyFill(decimal.NewFromInt(1), decimal.NewFromInt(10), time.Now())
	err = s.orders.UpdateFill(s.ctx, orderv1.NewFillUpdate(after, next))
	s.True(errors.HasCode(err, errors.OrderNotOpen))

	stored, err := s.orders.Get(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(orderv1.StateCancelled, stored.State())
	s.Equal("1", stored.QuantityFilled.String())
}

func (s *RepositoryTestSuite) TestListByUserAndSpendAsset() {
	t0 := time.Now().UTC().Truncate(time.Millisecond)
	buy := s.newOrder("u1", orderv1.SideBuy, orderv1.KindLimit, "1", "10", t0)
	sell := s.newOrder("u1", orderv1.SideSell, orderv1.KindLimit, "1", "10", t0.Add(time.Second))
	closed := s.newOrder("u1", orderv1.SideBuy, orderv1.KindLimit, "1", "10", t0.Add(2*time.Second))
	_, err := s.orders.Cancel(s.ctx, closed.ID, time.Now())
	s.Require().NoError(err)

	all, err := s.orders.ListByUser(s.ctx, orderv1.UserOrdersQuery{UserID: "u1", Filter: orderv1.ListAll})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(closed.ID, all[0].ID, "newest first")

	page, err := s.orders.ListByUser(s.ctx, orderv1.UserOrdersQuery{UserID: "u1", Filter: orderv1.ListOpen, Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal(buy.ID, page[0].ID)

	jpy, err := s.orders.ListOpenBySpendAsset(s.ctx, "u1", "JPY")
	s.Require().NoError(err)
	s.Require().Len(jpy, 1)
	s.Equal(buy.ID, jpy[0].ID)

	btc, err := s.orders.ListOpenBySpendAsset(s.ctx, "u1", "BTC")
	s.Require().NoError(err)
	s.Require().Len(btc, 1)
	s.Equal(sell.ID, btc[0].ID)
}

func (s *RepositoryTestSuite) TestTransactionRollsBack() {
	adjustment := ledgerv1.NewAdjustment("u1", "JPY", decimal.NewFromInt(100), ledgerv1.SourceDeposit, "d1", time.Now())

	err := s.transactor.WithinTransaction(s.ctx, func(ctx context.Context) error {
		s.Require().NoError(s.transactor.LockAccount(ctx, "u1", "JPY"))
		s.Require().NoError(s.ledger.Append(ctx, adjustment))
		return errors.Invariant("abort", nil)
	})
	s.Error(err)

	balance, err := s.ledger.Balance(s.ctx, "u1", "JPY")
	s.Require().NoError(err)
	s.True(balance.IsZero())

	s.Require().NoError(s.transactor.WithinTransaction(s.ctx, func(ctx context.Context) error {
		return s.ledger.Append(ctx, adjustment)
	}))
	found, err := s.ledger.ListByReference(s.ctx, ledgerv1.SourceDeposit, "d1")
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("100", found[0].Amount.String())

	duplicate := ledgerv1.NewAdjustment("u1", "JPY", decimal.NewFromInt(100), ledgerv1.SourceDeposit, "d1", time.Now())
	s.Error(s.ledger.Append(s.ctx, duplicate), "transfer references are unique")
}

func (s *RepositoryTestSuite) TestAssetRegistry() {
	now := time.Now()
	s.Require().NoError(s.assets.Upsert(s.ctx, &assetv1.Asset{ID: "JPY", Name: "Japanese Yen", Quotable: true}))
	s.Require().NoError(s.assets.Upsert(s.ctx, &assetv1.Asset{ID: "BTC", Name: "Bitcoin"}))
	s.Require().NoError(s.assets.Upsert(s.ctx, &assetv1.Asset{ID: "OLD", Name: "Delisted", Quotable: true, DelistedAt: &now}))

	for id, expected := range map[string]bool{"JPY": true, "BTC": false, "OLD": false, "NONE": false} {
		quotable, err := s.assets.IsQuotable(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(expected, quotable, id)
	}

	assets, err := s.assets.List(s.ctx)
	s.Require().NoError(err)
	s.Len(assets, 3)
}

func (s *RepositoryTestSuite) TestMatchingFlow() {
	client := s.helper.GetClient()
	log := logger.NewNop()
	locks := keylock.New()
	s.Require().NoError(s.assets.Upsert(s.ctx, &assetv1.Asset{ID: "JPY", Name: "Japanese Yen", Quotable: true}))

	ledgers := ledgerUsecase.NewUsecase(s.ledger, s.orders, s.transactor, nil, locks, nopDispatcher{}, log)
	engine := matching.NewUsecase(
		s.orders,
		s.trades,
		s.transactor,
		ledgers,
		validator.NewValidator(s.assets),
		fill.NewExecutor(s.orders, s.trades, ledger.NewRepository(client, log), s.transactor, log),
		locks,
		nopDispatcher{},
		log,
		nil,
	)

	deposit := func(userID, assetID, amount string) {
		_, err := ledgers.Adjust(s.ctx, ledgerv1.AdjustRequest{
			UserID: userID, AssetID: assetID, Amount: decimal.RequireFromString(amount),
			Source: ledgerv1.SourceDeposit, ReferenceID: userID + assetID,
		})
		s.Require().NoError(err)
	}
	deposit("seller", "BTC", "3")
	deposit("buyer", "JPY", "50")

	_, err := engine.Submit(s.ctx, orderv1.PlaceOrderRequest{
		UserID: "seller", BaseAssetID: "BTC", QuoteAssetID: "JPY",
		Side: orderv1.SideSell, Kind: orderv1.KindLimit, Quantity: decimal.NewFromInt(3), Rate: decimal.NewFromInt(10),
	})
	s.Require().NoError(err)

	result, err := engine.Submit(s.ctx, orderv1.PlaceOrderRequest{
		UserID: "buyer", BaseAssetID: "BTC", QuoteAssetID: "JPY",
		Side: orderv1.SideBuy, Kind: orderv1.KindLimit, Quantity: decimal.NewFromInt(5), Rate: decimal.NewFromInt(10),
	})
	s.Require().NoError(err)
	s.Require().Len(result.Trades, 1)
	s.Equal(orderv1.StatePartiallyFilled, result.Order.State())

	expected := []struct{ user, asset, amount string }{
		{"buyer", "BTC", "3"},
		{"buyer", "JPY", "20"},
		{"seller", "BTC", "0"},
		{"seller", "JPY", "30"},
	}
	for _, e := range expected {
		balance, err := ledgers.Balance(s.ctx, e.user, e.asset)
		s.Require().NoError(err)
		s.Equal(e.amount, balance.String(), e.user+" "+e.asset)
	}

	_, err = engine.Submit(s.ctx, orderv1.PlaceOrderRequest{
		UserID: "buyer", BaseAssetID: "BTC", QuoteAssetID: "JPY",
		Side: orderv1.SideBuy, Kind: orderv1.KindLimit, Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(10),
	})
	s.True(errors.HasCode(err, errors.InsufficientBalance), "20 JPY stay reserved by the open remainder")

	trades, err := engine.OrderTrades(s.ctx, result.Order.ID)
	s.Require().NoError(err)
	s.Len(trades, 1)
}
