package model_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fintrade/portfolio-engine/internal/model"
)

func validEntry() model.LedgerEntry {
	return model.LedgerEntry{
		Owner:       "user1",
		Symbol:      "AAPL",
		CompanyName: "Apple",
		Side:        model.SideBuy,
		Quantity:    decimal.NewFromInt(10),
		Price:       decimal.NewFromInt(100),
		Commission:  decimal.NewFromFloat(1.50),
	}
}

func TestLedgerEntryValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*model.LedgerEntry)
		wantErr bool
	}{
		{"valid", func(e *model.LedgerEntry) {}, false},
		{"zero commission", func(e *model.LedgerEntry) { e.Commission = decimal.Zero }, false},
		{"dotted symbol", func(e *model.LedgerEntry) { e.Symbol = "BRK.B" }, false},
		{"empty symbol", func(e *model.LedgerEntry) { e.Symbol = "" }, true},
		{"oversize symbol", func(e *model.LedgerEntry) { e.Symbol = "TOOLONGSYMBOL" }, true},
		{"symbol with spaces", func(e *model.LedgerEntry) { e.Symbol = "AA PL" }, true},
		{"empty company name", func(e *model.LedgerEntry) { e.CompanyName = "" }, true},
		{"oversize company name", func(e *model.LedgerEntry) { e.CompanyName = strings.Repeat("x", 101) }, true},
		{"invalid side", func(e *model.LedgerEntry) { e.Side = "HOLD" }, true},
		{"zero quantity", func(e *model.LedgerEntry) { e.Quantity = decimal.Zero }, true},
		{"negative quantity", func(e *model.LedgerEntry) { e.Quantity = decimal.NewFromInt(-1) }, true},
		{"zero price", func(e *model.LedgerEntry) { e.Price = decimal.Zero }, true},
		{"negative commission", func(e *model.LedgerEntry) { e.Commission = decimal.NewFromInt(-1) }, true},
		{"oversize notes", func(e *model.LedgerEntry) { e.Notes = strings.Repeat("n", 501) }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := validEntry()
			tc.mutate(&e)
			err := e.Validate()
			if tc.wantErr && !errors.Is(err, model.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLedgerEntryRecalculate(t *testing.T) {
	e := validEntry()
	e.TotalAmount = decimal.NewFromInt(999999) // client-supplied, must be ignored
	e.Recalculate()

	// 10 × 100 + 1.50
	if !e.TotalAmount.Equal(decimal.NewFromFloat(1001.50)) {
		t.Errorf("expected total amount=1001.50, got %s", e.TotalAmount)
	}
}

func TestPositionValidate(t *testing.T) {
	p := model.Position{
		Owner:       "user1",
		Symbol:      "AAPL",
		CompanyName: "Apple",
		Quantity:    decimal.NewFromInt(10),
		AverageCost: decimal.NewFromInt(100),
		MarketPrice: decimal.NewFromInt(110),
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Zero quantity is legal on the entity itself; the engine deletes such
	// positions rather than saving them.
	p.Quantity = decimal.Zero
	if err := p.Validate(); err != nil {
		t.Errorf("zero quantity should validate, got %v", err)
	}

	p.Quantity = decimal.NewFromInt(-1)
	if err := p.Validate(); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error for negative quantity, got %v", err)
	}
}

func TestSideValid(t *testing.T) {
	if !model.SideBuy.Valid() || !model.SideSell.Valid() {
		t.Error("BUY and SELL must be valid sides")
	}
	if model.Side("buy").Valid() {
		t.Error("side matching is case-sensitive")
	}
	if model.Side("").Valid() {
		t.Error("empty side must be invalid")
	}
}
