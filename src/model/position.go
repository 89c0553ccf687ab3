package model

import "github.com/shopspring/decimal"

// Position is the net exposure of one instrument, derived from the ledger.
// It is never persisted.
type Position struct {
	Symbol      string `json:"symbol"`
	NetQuantity int64  `json:"net_quantity"`
	// SignedCost is the running sum of direction * quantity * price.
	SignedCost decimal.Decimal `json:"-"`
	// AverageCost is nil while the position is flat.
	AverageCost   *decimal.Decimal `json:"average_cost,omitempty"`
	LastPrice     *decimal.Decimal `json:"last_price,omitempty"`
	UnrealizedPnL *decimal.Decimal `json:"unrealized_pnl,omitempty"`
	OrderCount    int              `json:"order_count"`
}

func (p Position) IsFlat() bool { return p.NetQuantity == 0 }
