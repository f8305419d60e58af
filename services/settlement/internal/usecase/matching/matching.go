package matching

import (
	"context"
	"time"

	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/keylock"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	"github.com/muhammadchandra19/settlement/pkg/util"
	eventv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/event/v1"
	ledgerv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/ledger/v1"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	transactionv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/transaction/v1"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/usecase/fill"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/usecase/validator"
)

// SubmitResult is the admitted order and the trades its matching produced.
type SubmitResult struct {
	Order  *orderv1.Order
	Trades []*orderv1.Trade
}

// Usecase admits orders and matches them against the resting orders of
// their pair. Admission and matching of one pair are serialized.
type Usecase struct {
	orders     orderv1.OrderStore
	trades     orderv1.TradeStore
	transactor transactionv1.Transactor
	balances   ledgerv1.BalanceProvider
	validator  *validator.Validator
	executor   *fill.Executor
	locks      *keylock.Locker
	dispatcher eventv1.Dispatcher
	logger     logger.Interface
	options    *Options
	now        func() time.Time
}

// NewUsecase creates a new matching usecase.
func NewUsecase(
	orders orderv1.OrderStore,
	trades orderv1.TradeStore,
	transactor transactionv1.Transactor,
	balances ledgerv1.BalanceProvider,
	validator *validator.Validator,
	executor *fill.Executor,
	locks *keylock.Locker,
	dispatcher eventv1.Dispatcher,
	logger logger.Interface,
	options *Options,
) *Usecase {
	if options == nil {
		options = DefaultOptions()
	}
	return &Usecase{
		orders:     orders,
		trades:     trades,
		transactor: transactor,
		balances:   balances,
		validator:  validator,
		executor:   executor,
		locks:      locks,
		dispatcher: dispatcher,
		logger:     logger,
		options:    options,
		now:        time.Now,
	}
}

// Submit validates and admits a new order, then matches it. A rejected
// order returns a validation error and leaves no trace. When matching fails
// after admission the result still carries the order and the trades that
// were committed before the failure.
func (u *Usecase) Submit(ctx context.Context, req orderv1.PlaceOrderRequest) (*SubmitResult, error) {
	order := orderv1.NewOrder(req, u.now())

	if err := u.validator.ValidateStatic(ctx, order); err != nil {
		u.logger.InfoContext(ctx, "Order rejected",
			logger.Field{Key: "userID", Value: order.UserID},
			logger.Field{Key: "reason", Value: err.Error()},
		)
		return nil, err
	}

	unlock, err := u.locks.Lock(ctx, order.Pair())
	if err != nil {
		return nil, err
	}

	if err := u.admit(ctx, order); err != nil {
		unlock()
		if errors.IsValidation(err) {
			u.logger.InfoContext(ctx, "Order rejected",
				logger.Field{Key: "userID", Value: order.UserID},
				logger.Field{Key: "reason", Value: err.Error()},
			)
		}
		return nil, err
	}

	events := []eventv1.Event{eventv1.NewOrderEvent(eventv1.OrderCreated, order, order.CreatedAt)}
	trades, matchEvents, err := u.process(ctx, order)
	unlock()

	u.dispatch(ctx, append(events, matchEvents...))
	u.logTrades(ctx, order, trades)

	return &SubmitResult{Order: order, Trades: trades}, err
}

// admit checks the balance and stores the order while the account of its
// spend asset is locked, so two submissions never pass the check against
// the same funds.
func (u *Usecase) admit(ctx context.Context, order *orderv1.Order) error {
	unlock, err := u.locks.Lock(ctx, ledgerv1.AccountKey(order.UserID, order.SpendAsset()))
	if err != nil {
		return err
	}
	defer unlock()

	return u.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := u.transactor.LockAccount(ctx, order.UserID, order.SpendAsset()); err != nil {
			return errors.Persistence("failed to lock account", err)
		}

		available, err := u.balances.AvailableBalance(ctx, order.UserID, order.SpendAsset())
		if err != nil {
			return err
		}
		if err := validator.CheckBalance(order, available); err != nil {
			return err
		}
		return u.orders.Create(ctx, order)
	})
}

// Process matches an admitted order against its pair. It is safe to call
// concurrently with submissions of the same pair.
func (u *Usecase) Process(ctx context.Context, incoming *orderv1.Order) ([]*orderv1.Trade, error) {
	unlock, err := u.locks.Lock(ctx, incoming.Pair())
	if err != nil {
		return nil, err
	}
	trades, events, err := u.process(ctx, incoming)
	unlock()

	u.dispatch(ctx, events)
	u.logTrades(ctx, incoming, trades)
	return trades, err
}

// process matches incoming and then applies the market remainder policy.
// The policy also runs when matching failed part way, so a market order is
// never left resting on an error. The pair lock must be held.
func (u *Usecase) process(ctx context.Context, incoming *orderv1.Order) ([]*orderv1.Trade, []eventv1.Event, error) {
	trades, events, err := u.match(ctx, incoming)

	if incoming.IsMarket() && incoming.IsOpen() && u.options.MarketRemainder == RemainderCancel {
		event, cancelErr := u.cancelRemainder(util.Detach(ctx), incoming)
		switch {
		case cancelErr == nil:
			if event != nil {
				events = append(events, *event)
			}
		case err == nil:
			err = cancelErr
		default:
			u.logger.ErrorContext(ctx, cancelErr,
				logger.Field{Key: "action", Value: "cancel_market_remainder"},
				logger.Field{Key: "orderID", Value: incoming.ID},
			)
		}
	}

	return trades, events, err
}

// match walks the candidates once in priority order and fills incoming
// until it closes.
func (u *Usecase) match(ctx context.Context, incoming *orderv1.Order) ([]*orderv1.Trade, []eventv1.Event, error) {
	trades := make([]*orderv1.Trade, 0)
	events := make([]eventv1.Event, 0)

	candidates, err := u.orders.ListCandidates(ctx, incoming)
	if err != nil {
		return trades, events, err
	}

	for _, resting := range candidates {
		if !incoming.IsOpen() {
			break
		}

		// a buy market budget worth less than one quantity unit buys nothing
		rate := orderv1.ExecutionRate(incoming, resting)
		if rate.IsPositive() && !incoming.UnfilledQuantity(rate).IsPositive() {
			u.logger.DebugContext(ctx, "Order budget exhausted",
				logger.Field{Key: "orderID", Value: incoming.ID},
				logger.Field{Key: "remainingBudget", Value: incoming.RemainingBudget().String()},
			)
			break
		}
		if rate.IsPositive() && !resting.UnfilledQuantity(rate).IsPositive() {
			continue
		}

		result, err := u.executor.Fill(ctx, incoming, resting)
		if err != nil {
			staleID, stale := fill.StaleOrderID(err)
			if stale && staleID == resting.ID {
				u.logger.DebugContext(ctx, "Skipping closed candidate",
					logger.Field{Key: "orderID", Value: resting.ID},
				)
				continue
			}
			if stale && staleID == incoming.ID {
				if fresh, getErr := u.orders.Get(ctx, incoming.ID); getErr == nil {
					*incoming = *fresh
				}
				u.logger.InfoContext(ctx, "Order closed while matching",
					logger.Field{Key: "orderID", Value: incoming.ID},
					logger.Field{Key: "state", Value: incoming.State()},
				)
				return trades, events, nil
			}
			return trades, events, err
		}

		trades = append(trades, result.Trade)
		events = append(events,
			eventv1.NewTradeEvent(result.Trade),
			eventv1.NewOrderEvent(eventv1.OrderUpdated, incoming, result.Trade.CreatedAt),
			eventv1.NewOrderEvent(eventv1.OrderUpdated, resting, result.Trade.CreatedAt),
		)
	}

	return trades, events, nil
}

// cancelRemainder closes what is left of a market order. The returned event
// is nil when the order was already closed in storage.
func (u *Usecase) cancelRemainder(ctx context.Context, incoming *orderv1.Order) (*eventv1.Event, error) {
	now := u.now()
	cancelled, err := u.orders.Cancel(ctx, incoming.ID, now)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return nil, nil
	}
	incoming.Cancel(now)
	event := eventv1.NewOrderEvent(eventv1.OrderCancelled, incoming, now)
	return &event, nil
}

// Matching returns the open orders incoming can fill against, best first.
func (u *Usecase) Matching(ctx context.Context, incoming *orderv1.Order) ([]*orderv1.Order, error) {
	return u.orders.ListCandidates(ctx, incoming)
}

// Cancel closes an open order. Cancelling a filled or cancelled order is a
// no-op and returns the order unchanged. Fills already made stay.
func (u *Usecase) Cancel(ctx context.Context, orderID string) (*orderv1.Order, error) {
	now := u.now()
	cancelled, err := u.orders.Cancel(ctx, orderID, now)
	if err != nil {
		return nil, err
	}

	order, err := u.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if cancelled {
		u.logger.InfoContext(ctx, "Order cancelled",
			logger.Field{Key: "orderID", Value: order.ID},
			logger.Field{Key: "pair", Value: order.Pair()},
			logger.Field{Key: "percentFilled", Value: order.PercentFilled().String()},
		)
		u.dispatch(ctx, []eventv1.Event{eventv1.NewOrderEvent(eventv1.OrderCancelled, order, now)})
	}
	return order, nil
}

// ListUserOrders returns a user's open, closed or all orders, newest first.
func (u *Usecase) ListUserOrders(ctx context.Context, query orderv1.UserOrdersQuery) ([]*orderv1.Order, error) {
	if query.Filter == "" {
		query.Filter = orderv1.ListAll
	}
	if query.Limit <= 0 {
		query.Limit = u.options.ListLimit
	}
	return u.orders.ListByUser(ctx, query)
}

// OrderTrades returns the trades an order took part in.
func (u *Usecase) OrderTrades(ctx context.Context, orderID string) ([]*orderv1.Trade, error) {
	return u.trades.ListByOrder(ctx, orderID)
}

func (u *Usecase) dispatch(ctx context.Context, events []eventv1.Event) {
	if len(events) == 0 {
		return
	}
	u.dispatcher.Dispatch(util.Detach(ctx), events...)
}

func (u *Usecase) logTrades(ctx context.Context, order *orderv1.Order, trades []*orderv1.Trade) {
	if len(trades) == 0 {
		return
	}

	u.logger.InfoContext(ctx, "Trades executed",
		logger.Field{Key: "orderID", Value: order.ID},
		logger.Field{Key: "pair", Value: order.Pair()},
		logger.Field{Key: "tradeCount", Value: len(trades)},
		logger.Field{Key: "state", Value: order.State()},
	)

	for i, trade := range trades {
		u.logger.DebugContext(ctx, "Trade executed",
			logger.Field{Key: "tradeIndex", Value: i + 1},
			logger.Field{Key: "tradeID", Value: trade.ID},
			logger.Field{Key: "rate", Value: trade.Rate.String()},
			logger.Field{Key: "amount", Value: trade.Amount.String()},
			logger.Field{Key: "buyOrderID", Value: trade.BuyOrderID},
			logger.Field{Key: "sellOrderID", Value: trade.SellOrderID},
		)
	}
}
