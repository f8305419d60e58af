package dispatch

import (
	"context"
	stderrors "errors"

	eventv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/event/v1"
)

// BalanceRefresher recomputes the cached balance of one account.
type BalanceRefresher interface {
	RefreshCache(ctx context.Context, userID, assetID string) error
}

// Publish forwards every batch to publisher.
func Publish(publisher eventv1.Publisher) Handler {
	return HandlerFunc(func(ctx context.Context, events []eventv1.Event) error {
		return publisher.Publish(ctx, events...)
	})
}

// RefreshBalances refreshes each account touched by a batch once.
func RefreshBalances(refresher BalanceRefresher) Handler {
	return HandlerFunc(func(ctx context.Context, events []eventv1.Event) error {
		seen := make(map[eventv1.Account]bool)
		var errs []error
		for _, e := range events {
			for _, account := range e.Accounts() {
				if seen[account] {
					continue
				}
				seen[account] = true
				if err := refresher.RefreshCache(ctx, account.UserID, account.AssetID); err != nil {
					errs = append(errs, err)
				}
			}
		}
		return stderrors.Join(errs...)
	})
}
