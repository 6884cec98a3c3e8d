package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fintrade/portfolio-engine/internal/model"
	"github.com/fintrade/portfolio-engine/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func newPosition(owner, symbol string) *model.Position {
	return &model.Position{
		Owner:       owner,
		Symbol:      symbol,
		CompanyName: symbol + " Inc",
		Quantity:    d(10),
		AverageCost: d(100),
		MarketPrice: d(100),
	}
}

func newEntry(owner, symbol string, side model.Side, occurredAt time.Time) *model.LedgerEntry {
	return &model.LedgerEntry{
		Owner:       owner,
		Symbol:      symbol,
		CompanyName: symbol + " Inc",
		Side:        side,
		Quantity:    d(10),
		Price:       d(100),
		OccurredAt:  occurredAt,
	}
}

func TestSavePosition_AssignsIDAndTimestamps(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	saved, err := ms.SavePosition(ctx, newPosition("user1", "AAPL"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID == "" {
		t.Error("expected an assigned ID")
	}
	if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
		t.Error("expected assigned timestamps")
	}
}

func TestSavePosition_UniquePerOwnerSymbol(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	if _, err := ms.SavePosition(ctx, newPosition("user1", "AAPL")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same owner, same symbol: conflict.
	if _, err := ms.SavePosition(ctx, newPosition("user1", "AAPL")); !errors.Is(err, model.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}

	// Different owner, same symbol: fine.
	if _, err := ms.SavePosition(ctx, newPosition("user2", "AAPL")); err != nil {
		t.Errorf("unexpected error for different owner: %v", err)
	}
}

func TestSavePosition_UpdateKeepsCreatedAt(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	saved, err := ms.SavePosition(ctx, newPosition("user1", "AAPL"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved.Quantity = d(20)
	updated, err := ms.SavePosition(ctx, saved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.CreatedAt.Equal(saved.CreatedAt) {
		t.Error("update must not change createdAt")
	}
	if !updated.Quantity.Equal(d(20)) {
		t.Errorf("expected quantity=20, got %s", updated.Quantity)
	}
}

func TestGetPosition_NotFound(t *testing.T) {
	ms := store.NewMemoryStore()

	if _, err := ms.GetPosition(context.Background(), "user1", "AAPL"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := ms.GetPositionByID(context.Background(), "nope"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := ms.DeletePosition(context.Background(), "nope"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListPositions_SymbolAscending(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	for _, symbol := range []string{"MSFT", "AAPL", "VTI"} {
		if _, err := ms.SavePosition(ctx, newPosition("user1", symbol)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// Another owner's position must not leak in.
	if _, err := ms.SavePosition(ctx, newPosition("user2", "GOOG")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	positions, err := ms.ListPositions(ctx, "user1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(positions))
	}
	want := []string{"AAPL", "MSFT", "VTI"}
	for i, symbol := range want {
		if positions[i].Symbol != symbol {
			t.Errorf("position %d: expected %s, got %s", i, symbol, positions[i].Symbol)
		}
	}
}

func TestSearchPositions_CaseInsensitiveSubstring(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	for _, symbol := range []string{"AAPL", "MSFT", "AAL"} {
		if _, err := ms.SavePosition(ctx, newPosition("user1", symbol)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	positions, err := ms.SearchPositions(ctx, "user1", "aa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(positions))
	}
	if positions[0].Symbol != "AAL" || positions[1].Symbol != "AAPL" {
		t.Errorf("unexpected matches: %s, %s", positions[0].Symbol, positions[1].Symbol)
	}
}

func TestListLedgerEntries_MostRecentFirstAndFilters(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	seed := []struct {
		symbol string
		side   model.Side
		at     time.Time
	}{
		{"AAPL", model.SideBuy, base},
		{"MSFT", model.SideBuy, base.Add(1 * time.Hour)},
		{"AAPL", model.SideSell, base.Add(2 * time.Hour)},
		{"VTI", model.SideBuy, base.Add(3 * time.Hour)},
	}
	for _, s := range seed {
		if _, err := ms.SaveLedgerEntry(ctx, newEntry("user1", s.symbol, s.side, s.at)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := ms.SaveLedgerEntry(ctx, newEntry("user2", "AAPL", model.SideBuy, base)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Unfiltered: most recent first, only this owner's entries.
	entries, err := ms.ListLedgerEntries(ctx, "user1", store.LedgerFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].OccurredAt.After(entries[i-1].OccurredAt) {
			t.Error("entries not in most-recent-first order")
		}
	}

	// Symbol substring, case-insensitive.
	entries, _ = ms.ListLedgerEntries(ctx, "user1", store.LedgerFilter{Symbol: "aapl"})
	if len(entries) != 2 {
		t.Errorf("expected 2 AAPL entries, got %d", len(entries))
	}

	// Side filter.
	entries, _ = ms.ListLedgerEntries(ctx, "user1", store.LedgerFilter{Side: model.SideSell})
	if len(entries) != 1 || entries[0].Symbol != "AAPL" {
		t.Errorf("expected the single SELL entry, got %d", len(entries))
	}

	// Time range (inclusive bounds).
	from := base.Add(1 * time.Hour)
	to := base.Add(2 * time.Hour)
	entries, _ = ms.ListLedgerEntries(ctx, "user1", store.LedgerFilter{From: &from, To: &to})
	if len(entries) != 2 {
		t.Errorf("expected 2 entries in range, got %d", len(entries))
	}

	// Recent-N is a prefix of the most-recent-first ordering.
	entries, _ = ms.ListLedgerEntries(ctx, "user1", store.LedgerFilter{Limit: 2})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Symbol != "VTI" {
		t.Errorf("expected most recent entry first, got %s", entries[0].Symbol)
	}
}

func TestSaveLedgerEntry_DefaultsOccurredAt(t *testing.T) {
	ms := store.NewMemoryStore()

	e := newEntry("user1", "AAPL", model.SideBuy, time.Time{})
	saved, err := ms.SaveLedgerEntry(context.Background(), e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.OccurredAt.IsZero() {
		t.Error("occurredAt should default to creation time")
	}
	if !saved.OccurredAt.Equal(saved.CreatedAt) {
		t.Errorf("expected occurredAt=createdAt, got %s vs %s", saved.OccurredAt, saved.CreatedAt)
	}
}

func TestDeleteLedgerEntry(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	saved, err := ms.SaveLedgerEntry(ctx, newEntry("user1", "AAPL", model.SideBuy, time.Now()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ms.DeleteLedgerEntry(ctx, saved.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ms.GetLedgerEntry(ctx, saved.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}
