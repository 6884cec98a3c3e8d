// Package portfolio provides pure reductions over a user's positions:
// total market value and total unrealized P&L. No mutation, no engine
// involvement — these fold whatever the read side returns.
package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/fintrade/portfolio-engine/internal/model"
)

// TotalValue sums market value across positions. Empty slice → 0.
// Decimal addition is exact, so the result is independent of ordering.
func TotalValue(positions []model.Position) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.MarketValue)
	}
	return total
}

// TotalUnrealizedPnL sums unrealized P&L across positions. Empty slice → 0.
func TotalUnrealizedPnL(positions []model.Position) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.UnrealizedPnL)
	}
	return total
}

// Summarize folds both totals into a summary for one owner.
func Summarize(owner string, positions []model.Position) model.PortfolioSummary {
	return model.PortfolioSummary{
		Owner:           owner,
		TotalValue:      TotalValue(positions),
		TotalProfitLoss: TotalUnrealizedPnL(positions),
	}
}
