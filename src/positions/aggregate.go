// Package positions derives net positions from a ledger snapshot.
//
// Every function here is a pure reduction over the orders it is given: the
// result does not depend on the order of the input, so snapshots delivered
// out of order or twice aggregate to the same view.
package positions

import (
	"sort"

	"neotrade/src/model"

	"github.com/shopspring/decimal"
)

// Aggregate reduces orders into the net position of every non-flat symbol.
// Flat symbols (net quantity zero) are left out of the result.
func Aggregate(orders []model.Order) map[string]model.Position {
	acc := accumulate(orders)

	out := make(map[string]model.Position, len(acc))
	for symbol, p := range acc {
		if p.IsFlat() {
			continue
		}
		avg := averageCost(p)
		p.AverageCost = &avg
		out[symbol] = p
	}
	return out
}

// NetQuantity returns the signed lot count for one symbol, zero when flat or unknown.
func NetQuantity(orders []model.Order, symbol string) int64 {
	var net int64
	for _, o := range orders {
		if o.Symbol == symbol {
			net += o.SignedQuantity()
		}
	}
	return net
}

// Holdings is the portfolio view: non-flat positions sorted by symbol, marked
// to the given last prices when one is known for the symbol.
func Holdings(orders []model.Order, lastPrices map[string]decimal.Decimal) []model.Position {
	agg := Aggregate(orders)

	out := make([]model.Position, 0, len(agg))
	for symbol, p := range agg {
		if last, ok := lastPrices[symbol]; ok {
			lp := last
			pnl := last.Sub(*p.AverageCost).Mul(decimal.NewFromInt(p.NetQuantity))
			p.LastPrice = &lp
			p.UnrealizedPnL = &pnl
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func accumulate(orders []model.Order) map[string]model.Position {
	acc := make(map[string]model.Position)
	for _, o := range orders {
		p, ok := acc[o.Symbol]
		if !ok {
			p = model.Position{Symbol: o.Symbol, SignedCost: decimal.Zero}
		}
		qty := o.SignedQuantity()
		p.NetQuantity += qty
		p.SignedCost = p.SignedCost.Add(o.Price.Mul(decimal.NewFromInt(qty)))
		p.OrderCount++
		acc[o.Symbol] = p
	}
	return acc
}

// averageCost divides by the signed net quantity so shorts carry a positive cost.
// Callers guarantee the position is not flat.
func averageCost(p model.Position) decimal.Decimal {
	return p.SignedCost.Div(decimal.NewFromInt(p.NetQuantity))
}
