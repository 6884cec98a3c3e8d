package portfolio_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fintrade/portfolio-engine/internal/accounting"
	"github.com/fintrade/portfolio-engine/internal/model"
	"github.com/fintrade/portfolio-engine/internal/portfolio"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func position(symbol string, qty, avgCost, mktPrice float64) model.Position {
	p := model.Position{
		Owner:       "user1",
		Symbol:      symbol,
		Quantity:    d(qty),
		AverageCost: d(avgCost),
		MarketPrice: d(mktPrice),
	}
	accounting.RecomputeDerived(&p)
	return p
}

func reversed(positions []model.Position) []model.Position {
	out := make([]model.Position, len(positions))
	for i, p := range positions {
		out[len(positions)-1-i] = p
	}
	return out
}

func TestTotals_Empty(t *testing.T) {
	if v := portfolio.TotalValue(nil); !v.IsZero() {
		t.Errorf("expected zero total value for empty list, got %s", v)
	}
	if v := portfolio.TotalUnrealizedPnL(nil); !v.IsZero() {
		t.Errorf("expected zero total P&L for empty list, got %s", v)
	}
}

func TestTotals_Sums(t *testing.T) {
	positions := []model.Position{
		position("AAPL", 10, 100, 120),  // value 1200, pnl +200
		position("MSFT", 5, 300, 280),   // value 1400, pnl -100
		position("VTI", 2, 50.25, 50.25), // value 100.50, pnl 0
	}

	if v := portfolio.TotalValue(positions); !v.Equal(d(2700.50)) {
		t.Errorf("expected total value=2700.50, got %s", v)
	}
	if v := portfolio.TotalUnrealizedPnL(positions); !v.Equal(d(100)) {
		t.Errorf("expected total P&L=100, got %s", v)
	}
}

func TestTotals_OrderIndependent(t *testing.T) {
	positions := []model.Position{
		position("AAPL", 10, 100.01, 119.99),
		position("MSFT", 5, 299.99, 280.01),
		position("TSLA", 0.37, 812.12, 790.40),
	}

	if !portfolio.TotalValue(positions).Equal(portfolio.TotalValue(reversed(positions))) {
		t.Error("total value depends on position ordering")
	}
	if !portfolio.TotalUnrealizedPnL(positions).Equal(portfolio.TotalUnrealizedPnL(reversed(positions))) {
		t.Error("total P&L depends on position ordering")
	}
}

func TestSummarize(t *testing.T) {
	positions := []model.Position{
		position("AAPL", 10, 100, 120),
	}

	summary := portfolio.Summarize("user1", positions)
	if summary.Owner != "user1" {
		t.Errorf("expected owner=user1, got %s", summary.Owner)
	}
	if !summary.TotalValue.Equal(d(1200)) {
		t.Errorf("expected total value=1200, got %s", summary.TotalValue)
	}
	if !summary.TotalProfitLoss.Equal(d(200)) {
		t.Errorf("expected total P&L=200, got %s", summary.TotalProfitLoss)
	}
}
