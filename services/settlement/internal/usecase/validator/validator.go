package validator

import (
	"context"

	"github.com/muhammadchandra19/settlement/pkg/errors"
	assetv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/asset/v1"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	"github.com/shopspring/decimal"
)

// Validator performs the admission checks of new orders.
type Validator struct {
	registry assetv1.Registry
}

// NewValidator creates a validator backed by the quotable asset registry.
func NewValidator(registry assetv1.Registry) *Validator {
	return &Validator{registry: registry}
}

func invalid(message, field string, order *orderv1.Order) *errors.ErrorDetails {
	return errors.NewErrorDetailsWithObject(message, string(errors.OrderValidationError), field, order)
}

// ValidateStatic runs the checks that do not depend on balances. All failing
// fields are reported together in one BaseError.
func (v *Validator) ValidateStatic(ctx context.Context, order *orderv1.Order) error {
	result := errors.NewBaseError()

	if order.UserID == "" {
		result.AddErrorDetails(invalid("user is required", "user_id", order))
	}
	if !order.Kind.Valid() {
		result.AddErrorDetails(invalid("kind must be limit or market", "kind", order))
	}
	if !order.Side.Valid() {
		result.AddErrorDetails(invalid("side must be buy or sell", "side", order))
	}
	if order.BaseAssetID == "" {
		result.AddErrorDetails(invalid("base asset is required", "base_asset_id", order))
	}
	if order.QuoteAssetID == "" {
		result.AddErrorDetails(invalid("quote asset is required", "quote_asset_id", order))
	}
	if order.BaseAssetID != "" && order.BaseAssetID == order.QuoteAssetID {
		result.AddErrorDetails(invalid("base asset must differ from quote asset", "base_asset_id", order))
	}

	if !order.IsMarket() && !order.Rate.IsPositive() {
		result.AddErrorDetails(invalid("rate must be greater than 0", "rate", order))
	}
	if order.IsBuyMarket() {
		if !order.Total.IsPositive() {
			result.AddErrorDetails(invalid("total must be greater than 0", "total", order))
		}
	} else if !order.Quantity.IsPositive() {
		result.AddErrorDetails(invalid("quantity must be greater than 0", "quantity", order))
	}

	if order.QuoteAssetID != "" {
		quotable, err := v.registry.IsQuotable(ctx, order.QuoteAssetID)
		if err != nil {
			return err
		}
		if !quotable {
			result.AddErrorDetails(invalid("quote asset is not quotable", "quote_asset_id", order))
		}
	}

	if result.HasDetails() {
		return result
	}
	return nil
}

// CheckBalance fails with insufficient_balance when the order needs more of
// its spend asset than available.
func CheckBalance(order *orderv1.Order, available decimal.Decimal) error {
	required := order.RequiredBalance()
	if required.GreaterThan(available) {
		return errors.NewErrorDetailsWithObject(
			"insufficient "+order.SpendAsset()+" balance: required "+required.String()+", available "+available.String(),
			string(errors.InsufficientBalance),
			order.SpendAsset(),
			order,
		)
	}
	return nil
}

// Validate runs the static checks and then the balance check against available.
func (v *Validator) Validate(ctx context.Context, order *orderv1.Order, available decimal.Decimal) error {
	if err := v.ValidateStatic(ctx, order); err != nil {
		return err
	}
	return CheckBalance(order, available)
}
