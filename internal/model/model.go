// Package model defines the core domain types shared across the portfolio
// engine. All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

// Supported trade sides.
const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether s is a known trade side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// LedgerEntry is a record of a single buy or sell trade. Owner is pinned at
// creation and never reassigned, even if an update payload carries a
// different one. TotalAmount is derived (quantity × price + commission) and
// recomputed server-side on every save; client-supplied values are ignored.
type LedgerEntry struct {
	ID          string          `json:"id" db:"id"`
	Owner       string          `json:"owner" db:"owner"`
	Symbol      string          `json:"symbol" db:"symbol"`
	CompanyName string          `json:"company_name" db:"company_name"`
	Side        Side            `json:"side" db:"side"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Commission  decimal.Decimal `json:"commission" db:"commission"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	Notes       string          `json:"notes,omitempty" db:"notes"`
	OccurredAt  time.Time       `json:"occurred_at" db:"occurred_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Recalculate refreshes the derived TotalAmount field. Invoked on every
// create and update; never optional.
func (e *LedgerEntry) Recalculate() {
	e.TotalAmount = e.Quantity.Mul(e.Price).Add(e.Commission)
}

// Position is a user's current holding in one symbol: quantity held at a
// weighted average cost, marked against the last known market price. There
// is exactly one Position per (owner, symbol) pair; a position whose
// quantity reaches zero is deleted, never kept around empty.
type Position struct {
	ID          string          `json:"id" db:"id"`
	Owner       string          `json:"owner" db:"owner"`
	Symbol      string          `json:"symbol" db:"symbol"`
	CompanyName string          `json:"company_name" db:"company_name"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost" db:"average_cost"`
	MarketPrice decimal.Decimal `json:"market_price" db:"market_price"`

	// Derived fields, recomputed by accounting.RecomputeDerived after
	// every mutation.
	MarketValue      decimal.Decimal     `json:"market_value" db:"market_value"`
	CostBasis        decimal.Decimal     `json:"cost_basis" db:"cost_basis"`
	UnrealizedPnL    decimal.Decimal     `json:"unrealized_pnl" db:"unrealized_pnl"`
	UnrealizedPnLPct decimal.NullDecimal `json:"unrealized_pnl_pct" db:"unrealized_pnl_pct"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PortfolioSummary holds the aggregate totals across all of a user's
// positions.
type PortfolioSummary struct {
	Owner           string          `json:"owner"`
	TotalValue      decimal.Decimal `json:"total_value"`
	TotalProfitLoss decimal.Decimal `json:"total_profit_loss"`
}
