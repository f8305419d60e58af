package ledger

import (
	"context"
	"time"

	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/keylock"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	eventv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/event/v1"
	ledgerv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/ledger/v1"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	transactionv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/transaction/v1"
	"github.com/shopspring/decimal"
)

// Usecase derives balances from the ledger and records non-trade adjustments.
type Usecase struct {
	ledger     ledgerv1.LedgerStore
	orders     orderv1.OrderStore
	transactor transactionv1.Transactor
	cache      ledgerv1.BalanceCache
	locks      *keylock.Locker
	dispatcher eventv1.Dispatcher
	logger     logger.Interface
	now        func() time.Time
}

// NewUsecase creates a new ledger usecase. cache may be nil.
func NewUsecase(
	ledger ledgerv1.LedgerStore,
	orders orderv1.OrderStore,
	transactor transactionv1.Transactor,
	cache ledgerv1.BalanceCache,
	locks *keylock.Locker,
	dispatcher eventv1.Dispatcher,
	logger logger.Interface,
) *Usecase {
	return &Usecase{
		ledger:     ledger,
		orders:     orders,
		transactor: transactor,
		cache:      cache,
		locks:      locks,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Balance returns the sum of the user's adjustments in assetID.
func (u *Usecase) Balance(ctx context.Context, userID, assetID string) (decimal.Decimal, error) {
	return u.ledger.Balance(ctx, userID, assetID)
}

// AvailableBalance returns the balance minus what the user's open orders
// paying with assetID still reserve.
func (u *Usecase) AvailableBalance(ctx context.Context, userID, assetID string) (decimal.Decimal, error) {
	balance, err := u.ledger.Balance(ctx, userID, assetID)
	if err != nil {
		return decimal.Zero, err
	}

	open, err := u.orders.ListOpenBySpendAsset(ctx, userID, assetID)
	if err != nil {
		return decimal.Zero, err
	}

	for _, order := range open {
		balance = balance.Sub(order.Reserved())
	}
	return balance, nil
}

// CachedBalance serves the balance from the cache and fills it on a miss.
// Cache failures fall back to the ledger.
func (u *Usecase) CachedBalance(ctx context.Context, userID, assetID string) (decimal.Decimal, error) {
	if u.cache == nil {
		return u.Balance(ctx, userID, assetID)
	}

	balance, ok, err := u.cache.Get(ctx, userID, assetID)
	if err != nil {
		u.logger.WarnContext(ctx, "Balance cache read failed",
			logger.Field{Key: "userID", Value: userID},
			logger.Field{Key: "assetID", Value: assetID},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
	if ok {
		return balance, nil
	}

	balance, err = u.Balance(ctx, userID, assetID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := u.cache.Set(ctx, userID, assetID, balance); err != nil {
		u.logger.WarnContext(ctx, "Balance cache write failed",
			logger.Field{Key: "userID", Value: userID},
			logger.Field{Key: "assetID", Value: assetID},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
	return balance, nil
}

// RefreshCache recomputes the cached balance of one account.
func (u *Usecase) RefreshCache(ctx context.Context, userID, assetID string) error {
	if u.cache == nil {
		return nil
	}
	balance, err := u.Balance(ctx, userID, assetID)
	if err != nil {
		return err
	}
	return u.cache.Set(ctx, userID, assetID, balance)
}

// Adjust records a deposit or a withdrawal. Withdrawals are checked against
// the available balance under the same account lock order admission uses.
func (u *Usecase) Adjust(ctx context.Context, req ledgerv1.AdjustRequest) (*ledgerv1.BalanceAdjustment, error) {
	if err := validateAdjust(req); err != nil {
		return nil, err
	}

	amount := req.Amount
	if req.Source == ledgerv1.SourceWithdrawal {
		amount = amount.Neg()
	}
	adjustment := ledgerv1.NewAdjustment(req.UserID, req.AssetID, amount, req.Source, req.ReferenceID, u.now())

	unlock, err := u.locks.Lock(ctx, ledgerv1.AccountKey(req.UserID, req.AssetID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	duplicate := false
	err = u.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := u.transactor.LockAccount(ctx, req.UserID, req.AssetID); err != nil {
			return errors.Persistence("failed to lock account", err)
		}

		existing, err := u.ledger.ListByReference(ctx, req.Source, req.ReferenceID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			adjustment, duplicate = existing[0], true
			return nil
		}

		if req.Source == ledgerv1.SourceWithdrawal {
			available, err := u.AvailableBalance(ctx, req.UserID, req.AssetID)
			if err != nil {
				return err
			}
			if req.Amount.GreaterThan(available) {
				return errors.NewErrorDetailsWithObject(
					"insufficient "+req.AssetID+" balance: required "+req.Amount.String()+", available "+available.String(),
					string(errors.InsufficientBalance),
					req.AssetID,
					req,
				)
			}
		}
		return u.ledger.Append(ctx, adjustment)
	})
	if err != nil {
		return nil, err
	}
	if duplicate {
		u.logger.InfoContext(ctx, "Adjustment already recorded",
			logger.Field{Key: "adjustmentID", Value: adjustment.ID},
			logger.Field{Key: "referenceID", Value: adjustment.ReferenceID},
		)
		return adjustment, nil
	}

	u.logger.InfoContext(ctx, "Balance adjusted",
		logger.Field{Key: "adjustmentID", Value: adjustment.ID},
		logger.Field{Key: "userID", Value: adjustment.UserID},
		logger.Field{Key: "assetID", Value: adjustment.AssetID},
		logger.Field{Key: "amount", Value: adjustment.Amount.String()},
		logger.Field{Key: "source", Value: adjustment.Source},
	)

	u.dispatcher.Dispatch(ctx, eventv1.NewAdjustmentEvent(adjustment))
	return adjustment, nil
}

func validateAdjust(req ledgerv1.AdjustRequest) error {
	if req.Source != ledgerv1.SourceDeposit && req.Source != ledgerv1.SourceWithdrawal {
		return errors.NewErrorDetailsWithObject(
			"adjustment source must be deposit or withdrawal",
			string(errors.UnknownAdjustmentSource),
			"source",
			req,
		)
	}

	result := errors.NewBaseError()
	if req.UserID == "" {
		result.AddErrorDetails(errors.NewErrorDetails("user is required", string(errors.OrderValidationError), "user_id"))
	}
	if req.AssetID == "" {
		result.AddErrorDetails(errors.NewErrorDetails("asset is required", string(errors.OrderValidationError), "asset_id"))
	}
	if req.ReferenceID == "" {
		result.AddErrorDetails(errors.NewErrorDetails("reference is required", string(errors.OrderValidationError), "reference_id"))
	}
	if !req.Amount.IsPositive() {
		result.AddErrorDetails(errors.NewErrorDetails("amount must be greater than 0", string(errors.OrderValidationError), "amount"))
	}
	if result.HasDetails() {
		return result
	}
	return nil
}
