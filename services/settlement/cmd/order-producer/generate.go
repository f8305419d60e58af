package main

import (
	"fmt"
	"math/rand"

	ledgerv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/ledger/v1"
	orderreaderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order-reader/v1"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	"github.com/shopspring/decimal"
)

// generator produces a deterministic stream of settlement commands for one pair.
type generator struct {
	rng         *rand.Rand
	base        string
	quote       string
	users       []string
	basePrice   decimal.Decimal
	priceSpread decimal.Decimal
}

func userID(i int) string {
	return fmt.Sprintf("user-%03d", i)
}

// deposits funds every user in both assets so that most orders are admitted.
func (g *generator) deposits(baseAmount, quoteAmount decimal.Decimal) []orderreaderv1.Command {
	cmds := make([]orderreaderv1.Command, 0, 2*len(g.users))
	for _, user := range g.users {
		for _, funding := range []struct {
			assetID string
			amount  decimal.Decimal
		}{{g.base, baseAmount}, {g.quote, quoteAmount}} {
			cmds = append(cmds, orderreaderv1.Command{
				Type:      orderreaderv1.CommandAdjust,
				RequestID: fmt.Sprintf("seed-%s-%s", user, funding.assetID),
				Adjustment: &ledgerv1.AdjustRequest{
					UserID:      user,
					AssetID:     funding.assetID,
					Amount:      funding.amount,
					Source:      ledgerv1.SourceDeposit,
					ReferenceID: fmt.Sprintf("seed-%s-%s", user, funding.assetID),
				},
			})
		}
	}
	return cmds
}

// orders creates count orders: 70% limit, 30% market, half of them buys.
// Limit buys are priced below the base price and sells above it, so the
// book fills up and market orders find liquidity.
func (g *generator) orders(count int) []orderreaderv1.Command {
	cmds := make([]orderreaderv1.Command, 0, count)
	for i := 0; i < count; i++ {
		req := &orderv1.PlaceOrderRequest{
			UserID:       g.users[g.rng.Intn(len(g.users))],
			BaseAssetID:  g.base,
			QuoteAssetID: g.quote,
			Side:         orderv1.SideSell,
			Kind:         orderv1.KindLimit,
		}
		if g.rng.Float64() < 0.5 {
			req.Side = orderv1.SideBuy
		}
		if g.rng.Float64() < 0.3 {
			req.Kind = orderv1.KindMarket
		}

		// between 0.001 and 10, three decimal places
		quantity := decimal.NewFromInt(int64(1 + g.rng.Intn(10000))).Shift(-3)

		switch {
		case req.Kind == orderv1.KindMarket && req.Side == orderv1.SideBuy:
			req.Total = quantity.Mul(g.basePrice).Round(1)
		case req.Kind == orderv1.KindMarket:
			req.Quantity = quantity
		default:
			offset := g.priceSpread.Mul(decimal.NewFromFloat(g.rng.Float64() * 0.8))
			rate := g.basePrice.Add(offset)
			if req.Side == orderv1.SideBuy {
				rate = g.basePrice.Sub(offset)
			}
			rate = rate.Round(1)
			if !rate.IsPositive() {
				rate = g.basePrice
			}
			req.Quantity = quantity
			req.Rate = rate
		}

		cmds = append(cmds, orderreaderv1.Command{
			Type:      orderreaderv1.CommandPlace,
			RequestID: fmt.Sprintf("order-%d", i+1),
			Order:     req,
		})
	}
	return cmds
}
