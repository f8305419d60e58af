package fill

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	ledgerv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/ledger/v1"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	transactionv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/transaction/v1"
	"github.com/shopspring/decimal"
)

// Result is what one committed fill produced.
type Result struct {
	Trade       *orderv1.Trade
	Adjustments []*ledgerv1.BalanceAdjustment
}

// Executor executes single fills between two compatible orders.
type Executor struct {
	orders     orderv1.OrderStore
	trades     orderv1.TradeStore
	ledger     ledgerv1.LedgerStore
	transactor transactionv1.Transactor
	logger     logger.Interface
	now        func() time.Time
}

// NewExecutor creates a new fill executor.
func NewExecutor(
	orders orderv1.OrderStore,
	trades orderv1.TradeStore,
	ledger ledgerv1.LedgerStore,
	transactor transactionv1.Transactor,
	logger logger.Interface,
) *Executor {
	return &Executor{
		orders:     orders,
		trades:     trades,
		ledger:     ledger,
		transactor: transactor,
		logger:     logger,
		now:        time.Now,
	}
}

// Fill exchanges the largest quantity both orders can take at the execution
// rate. Both order updates, the trade and its four ledger legs are written in
// one transaction; incoming and resting are only updated once it committed.
func (e *Executor) Fill(ctx context.Context, incoming, resting *orderv1.Order) (*Result, error) {
	rate := orderv1.ExecutionRate(incoming, resting)
	if !rate.IsPositive() {
		return nil, e.invariant(ctx, "fill rate must be greater than 0", incoming, resting)
	}

	quantity := decimal.Min(incoming.UnfilledQuantity(rate), resting.UnfilledQuantity(rate))
	if !quantity.IsPositive() {
		return nil, e.invariant(ctx, "fill quantity must be greater than 0", incoming, resting)
	}

	buy, sell := incoming, resting
	if incoming.IsSell() {
		buy, sell = resting, incoming
	}

	// A buy market order whose budget bounds the fill spends exactly what is
	// left, so truncation dust never keeps it open.
	quoteAmount := quantity.Mul(rate)
	if buy.IsBuyMarket() && quantity.Equal(buy.UnfilledQuantity(rate)) {
		quoteAmount = buy.RemainingBudget()
	}

	at := e.now()
	nextBuy, nextSell := buy.Clone(), sell.Clone()
	nextBuy.ApplyFill(quantity, quoteAmount, at)
	nextSell.ApplyFill(quantity, quoteAmount, at)

	trade := orderv1.NewTrade(nextBuy, nextSell, quantity, rate, quoteAmount, at)
	adjustments := ledgerv1.TradeAdjustments(trade)

	err := e.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := e.orders.UpdateFill(ctx, orderv1.NewFillUpdate(buy, nextBuy)); err != nil {
			return err
		}
		if err := e.orders.UpdateFill(ctx, orderv1.NewFillUpdate(sell, nextSell)); err != nil {
			return err
		}
		if err := e.trades.Create(ctx, trade); err != nil {
			return err
		}
		return e.ledger.Append(ctx, adjustments...)
	})
	if err != nil {
		if _, stale := StaleOrderID(err); !stale {
			e.logger.ErrorContext(ctx, err,
				logger.Field{Key: "action", Value: "fill"},
				logger.Field{Key: "buyOrderID", Value: buy.ID},
				logger.Field{Key: "sellOrderID", Value: sell.ID},
			)
		}
		return nil, err
	}

	*buy = *nextBuy
	*sell = *nextSell

	e.logger.DebugContext(ctx, "Fill committed",
		logger.Field{Key: "tradeID", Value: trade.ID},
		logger.Field{Key: "pair", Value: trade.Pair()},
		logger.Field{Key: "amount", Value: trade.Amount.String()},
		logger.Field{Key: "rate", Value: trade.Rate.String()},
	)

	return &Result{Trade: trade, Adjustments: adjustments}, nil
}

func (e *Executor) invariant(ctx context.Context, message string, incoming, resting *orderv1.Order) error {
	err := errors.Invariant(message, []*orderv1.Order{incoming, resting})
	e.logger.ErrorContext(ctx, err,
		logger.Field{Key: "incomingOrderID", Value: incoming.ID},
		logger.Field{Key: "restingOrderID", Value: resting.ID},
	)
	return err
}

// StaleOrderID reports the order whose compare-and-swap update failed
// because it was closed or changed concurrently.
func StaleOrderID(err error) (string, bool) {
	var details *errors.ErrorDetails
	for cur := err; cur != nil; cur = stderrors.Unwrap(cur) {
		if d, ok := cur.(*errors.ErrorDetails); ok && d.Code == string(errors.OrderNotOpen) {
			details = d
			break
		}
	}
	if details == nil {
		return "", false
	}
	id, _ := details.Object.(string)
	return id, true
}
