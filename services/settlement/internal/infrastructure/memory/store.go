package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/muhammadchandra19/settlement/pkg/errors"
	ledgerv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/ledger/v1"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	"github.com/shopspring/decimal"
)

type journalKey struct{}

// journal collects undo steps of one transaction.
type journal struct {
	undo []func()
}

// Store keeps orders, trades and balance adjustments in memory. Writes made
// inside WithinTransaction are undone when the transaction fails. Other
// transactions may observe them before that happens.
type Store struct {
	mu          sync.RWMutex
	orders      map[string]*orderv1.Order
	trades      []*orderv1.Trade
	adjustments []*ledgerv1.BalanceAdjustment
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{orders: make(map[string]*orderv1.Order)}
}

// WithinTransaction runs fn and reverts its writes when it fails. Nested
// calls join the outer transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// LockAccount only checks that ctx carries a transaction. Accounts are
// serialized in process by the caller.
func (s *Store) LockAccount(ctx context.Context, userID, assetID string) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); !ok {
		return fmt.Errorf("account lock %s requires a transaction", ledgerv1.AccountKey(userID, assetID))
	}
	return nil
}

// record must be called with s.mu held.
func record(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

// Orders exposes the store as an OrderStore.
func (s *Store) Orders() orderv1.OrderStore {
	return orderStore{s}
}

// Trades exposes the store as a TradeStore.
func (s *Store) Trades() orderv1.TradeStore {
	return tradeStore{s}
}

// Ledger exposes the store as a LedgerStore.
func (s *Store) Ledger() ledgerv1.LedgerStore {
	return ledgerStore{s}
}

type orderStore struct{ s *Store }

func (o orderStore) Create(ctx context.Context, order *orderv1.Order) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	if _, ok := o.s.orders[order.ID]; ok {
		return errors.Persistence("failed to create order", fmt.Errorf("duplicate order id %s", order.ID))
	}
	o.s.orders[order.ID] = order.Clone()
	record(ctx, func() { delete(o.s.orders, order.ID) })
	return nil
}

func (o orderStore) Get(_ context.Context, id string) (*orderv1.Order, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	order, ok := o.s.orders[id]
	if !ok {
		return nil, errors.NotFound(id)
	}
	return order.Clone(), nil
}

func (o orderStore) ListCandidates(_ context.Context, incoming *orderv1.Order) ([]*orderv1.Order, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	candidates := make([]*orderv1.Order, 0)
	for _, resting := range o.s.orders {
		if orderv1.CanMatch(incoming, resting) {
			candidates = append(candidates, resting.Clone())
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return orderv1.HasPriority(incoming.Side, candidates[i], candidates[j])
	})
	return candidates, nil
}

func (o orderStore) ListOpenBySpendAsset(_ context.Context, userID, assetID string) ([]*orderv1.Order, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	orders := make([]*orderv1.Order, 0)
	for _, order := range o.s.orders {
		if order.UserID == userID && order.IsOpen() && order.SpendAsset() == assetID {
			orders = append(orders, order.Clone())
		}
	}
	return orders, nil
}

func (o orderStore) ListByUser(_ context.Context, query orderv1.UserOrdersQuery) ([]*orderv1.Order, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	orders := make([]*orderv1.Order, 0)
	for _, order := range o.s.orders {
		if order.UserID != query.UserID {
			continue
		}
		switch query.Filter {
		case orderv1.ListOpen:
			if !order.IsOpen() {
				continue
			}
		case orderv1.ListClosed:
			if order.IsOpen() {
				continue
			}
		}
		orders = append(orders, order.Clone())
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})

	if query.Offset > 0 {
		if query.Offset >= len(orders) {
			return []*orderv1.Order{}, nil
		}
		orders = orders[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(orders) {
		orders = orders[:query.Limit]
	}
	return orders, nil
}

func (o orderStore) UpdateFill(ctx context.Context, update orderv1.FillUpdate) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	order, ok := o.s.orders[update.OrderID]
	if !ok {
		return errors.NotFound(update.OrderID)
	}
	if !order.IsOpen() ||
		!order.QuantityFilled.Equal(update.PreviousQuantityFilled) ||
		!order.TotalUsed.Equal(update.PreviousTotalUsed) {
		return errors.NotOpen(update.OrderID)
	}

	previous := order.Clone()
	order.QuantityFilled = update.QuantityFilled
	order.TotalUsed = update.TotalUsed
	if update.FilledAt != nil {
		filledAt := *update.FilledAt
		order.FilledAt = &filledAt
	}
	record(ctx, func() { o.s.orders[previous.ID] = previous })
	return nil
}

func (o orderStore) Cancel(ctx context.Context, id string, at time.Time) (bool, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	order, ok := o.s.orders[id]
	if !ok {
		return false, errors.NotFound(id)
	}

	previous := order.Clone()
	if !order.Cancel(at) {
		return false, nil
	}
	record(ctx, func() { o.s.orders[previous.ID] = previous })
	return true, nil
}

type tradeStore struct{ s *Store }

func (t tradeStore) Create(ctx context.Context, trade *orderv1.Trade) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	stored := *trade
	t.s.trades = append(t.s.trades, &stored)
	record(ctx, func() {
		for i, tr := range t.s.trades {
			if tr.ID == trade.ID {
				t.s.trades = append(t.s.trades[:i], t.s.trades[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (t tradeStore) ListByOrder(_ context.Context, orderID string) ([]*orderv1.Trade, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	trades := make([]*orderv1.Trade, 0)
	for _, tr := range t.s.trades {
		if tr.BuyOrderID == orderID || tr.SellOrderID == orderID {
			c := *tr
			trades = append(trades, &c)
		}
	}
	return trades, nil
}

type ledgerStore struct{ s *Store }

func (l ledgerStore) Append(ctx context.Context, adjustments ...*ledgerv1.BalanceAdjustment) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	ids := make(map[string]bool, len(adjustments))
	for _, a := range adjustments {
		stored := *a
		l.s.adjustments = append(l.s.adjustments, &stored)
		ids[a.ID] = true
	}
	record(ctx, func() {
		kept := l.s.adjustments[:0]
		for _, a := range l.s.adjustments {
			if !ids[a.ID] {
				kept = append(kept, a)
			}
		}
		l.s.adjustments = kept
	})
	return nil
}

func (l ledgerStore) Balance(_ context.Context, userID, assetID string) (decimal.Decimal, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	balance := decimal.Zero
	for _, a := range l.s.adjustments {
		if a.UserID == userID && a.AssetID == assetID {
			balance = balance.Add(a.Amount)
		}
	}
	return balance, nil
}

func (l ledgerStore) ListByReference(_ context.Context, source ledgerv1.Source, referenceID string) ([]*ledgerv1.BalanceAdjustment, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	adjustments := make([]*ledgerv1.BalanceAdjustment, 0)
	for _, a := range l.s.adjustments {
		if a.Source == source && a.ReferenceID == referenceID {
			c := *a
			adjustments = append(adjustments, &c)
		}
	}
	return adjustments, nil
}
