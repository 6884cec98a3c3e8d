// Package accounting implements the position accounting engine: the rules
// that fold a stream of BUY/SELL ledger entries into a running per-symbol
// position using weighted-average-cost accounting.
//
// Every function here is pure — positions go in, positions come out, no I/O.
// The surrounding service is responsible for serializing the
// read-compute-write cycle per (owner, symbol) and for persisting results.
//
// All monetary values use shopspring/decimal — never float64 for money.
// Multiplication, addition and subtraction are exact; the two divisions that
// can be non-terminating round half up (average cost to 2 places, the P&L
// ratio to 4 places before the ×100 scale).
package accounting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fintrade/portfolio-engine/internal/model"
)

// Rounding scales for the non-terminating divisions.
const (
	costScale int32 = 2
	pctScale  int32 = 4
)

var hundred = decimal.NewFromInt(100)

// ApplyAcquisition applies a BUY to the given position, or creates one if
// existing is nil. The returned position is a new value; the input is not
// mutated.
//
// On a first buy, the acquisition price is both the average cost and the
// market price. On subsequent buys, the average cost becomes the
// quantity-weighted mean of the old basis and the new lot, and the market
// price is refreshed to the trade price (the latest trade doubles as the
// freshest quote — there is no independent price feed).
func ApplyAcquisition(existing *model.Position, owner, symbol, companyName string, quantity, price decimal.Decimal) (*model.Position, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: acquisition quantity must be positive", model.ErrValidation)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: acquisition price must be positive", model.ErrValidation)
	}

	if existing == nil {
		next := &model.Position{
			Owner:       owner,
			Symbol:      symbol,
			CompanyName: companyName,
			Quantity:    quantity,
			AverageCost: price,
			MarketPrice: price,
		}
		RecomputeDerived(next)
		return next, nil
	}

	next := *existing
	newQuantity := existing.Quantity.Add(quantity)
	newCostBasis := existing.Quantity.Mul(existing.AverageCost).Add(quantity.Mul(price))

	next.Quantity = newQuantity
	next.AverageCost = newCostBasis.DivRound(newQuantity, costScale)
	next.MarketPrice = price
	RecomputeDerived(&next)
	return &next, nil
}

// ApplyDisposal applies a SELL to the given position. The second return
// value is the deletion signal: when the disposal quantity meets or exceeds
// the held quantity the position must be deleted, not kept at zero or
// negative quantity. Over-selling is treated the same as exact liquidation —
// it is not an error at this layer.
//
// A partial disposal never changes the average cost or market price of the
// surviving shares; only quantity and the derived fields move.
func ApplyDisposal(existing *model.Position, quantity decimal.Decimal) (*model.Position, bool, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, false, fmt.Errorf("%w: disposal quantity must be positive", model.ErrValidation)
	}
	if existing == nil {
		return nil, false, fmt.Errorf("%w: no position to sell", model.ErrNotFound)
	}

	newQuantity := existing.Quantity.Sub(quantity)
	if newQuantity.LessThanOrEqual(decimal.Zero) {
		return nil, true, nil
	}

	next := *existing
	next.Quantity = newQuantity
	RecomputeDerived(&next)
	return &next, false, nil
}

// RefreshMarketPrice updates the position's market quote and recomputes the
// derived fields. Returns a new value; the input is not mutated.
func RefreshMarketPrice(existing *model.Position, price decimal.Decimal) (*model.Position, error) {
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: market price must be positive", model.ErrValidation)
	}
	next := *existing
	next.MarketPrice = price
	RecomputeDerived(&next)
	return &next, nil
}

// RecomputeDerived sets the derived valuation fields from quantity, average
// cost and market price:
//
//	marketValue = quantity × marketPrice
//	costBasis   = quantity × averageCost
//	pnl         = marketValue − costBasis
//	pnl%        = (pnl ÷ costBasis rounded to 4) × 100, null when costBasis = 0
//
// Idempotent. Must run after every mutation of the three inputs.
func RecomputeDerived(p *model.Position) {
	p.MarketValue = p.Quantity.Mul(p.MarketPrice)
	p.CostBasis = p.Quantity.Mul(p.AverageCost)
	p.UnrealizedPnL = p.MarketValue.Sub(p.CostBasis)

	if p.CostBasis.IsPositive() {
		pct := p.UnrealizedPnL.DivRound(p.CostBasis, pctScale).Mul(hundred)
		p.UnrealizedPnLPct = decimal.NullDecimal{Decimal: pct, Valid: true}
	} else {
		p.UnrealizedPnLPct = decimal.NullDecimal{}
	}
}
