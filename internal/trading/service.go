// Package trading provides the HTTP handlers and request orchestration for
// recording trades, maintaining the ledger, and querying positions and
// portfolio totals.
//
// All monetary values use shopspring/decimal — never float64 for money.
package trading

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fintrade/portfolio-engine/internal/accounting"
	"github.com/fintrade/portfolio-engine/internal/auth"
	"github.com/fintrade/portfolio-engine/internal/metrics"
	"github.com/fintrade/portfolio-engine/internal/model"
	"github.com/fintrade/portfolio-engine/internal/store"
)

// Service handles ledger and portfolio operations. A keyed mutex serializes
// the position read-compute-write cycle per (owner, symbol); trades on
// different keys proceed independently. The store's uniqueness constraint on
// (owner, symbol) is the backstop for anything that slips past the lock.
type Service struct {
	store store.Store
	locks *keyMutex
	wsHub *WSHub // optional WebSocket hub for position broadcasts
}

// NewService creates a new trading service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, hub *WSHub) *Service {
	return &Service{
		store: st,
		locks: newKeyMutex(),
		wsHub: hub,
	}
}

// Routes mounts all trading endpoints on the given router.
func (s *Service) Routes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", s.CreateTransaction)
		r.Get("/", s.ListTransactions)
		r.Get("/{entryID}", s.GetTransaction)
		r.Put("/{entryID}", s.UpdateTransaction)
		r.Delete("/{entryID}", s.DeleteTransaction)
	})
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", s.ListPortfolio)
		r.Get("/search", s.SearchPortfolio)
		r.Get("/summary", s.GetSummary)
		r.Put("/{positionID}", s.UpdatePosition)
		r.Delete("/{positionID}", s.DeletePosition)
	})
}

// --- Request/Response types ---

// TransactionRequest is the JSON body for creating or updating a ledger
// entry. Owner and total amount are server-managed; values supplied for
// them are ignored.
type TransactionRequest struct {
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"company_name"`
	Side        model.Side      `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Commission  decimal.Decimal `json:"commission"`
	Notes       string          `json:"notes"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// TradeResponse is returned from POST /transactions: the recorded entry and
// the resulting position (nil when the sell liquidated it).
type TradeResponse struct {
	Entry      *model.LedgerEntry `json:"entry"`
	Position   *model.Position    `json:"position,omitempty"`
	Liquidated bool               `json:"liquidated"`
}

// --- Transaction handlers ---

// CreateTransaction handles POST /api/v1/transactions.
// Records the ledger entry and applies it to the owner's position in one
// serialized unit of work.
func (s *Service) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	owner := auth.Owner(ctx)

	entry := &model.LedgerEntry{
		Owner:       owner,
		Symbol:      req.Symbol,
		CompanyName: req.CompanyName,
		Side:        req.Side,
		Quantity:    req.Quantity,
		Price:       req.Price,
		Commission:  req.Commission,
		Notes:       req.Notes,
		OccurredAt:  req.OccurredAt,
	}
	entry.Recalculate()
	if err := entry.Validate(); err != nil {
		respondError(w, err)
		return
	}

	// Serialize the read-compute-write cycle for this position.
	unlock := s.locks.Lock(owner + "/" + entry.Symbol)
	defer unlock()

	existing, err := s.store.GetPosition(ctx, owner, entry.Symbol)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			writeError(w, "failed to load position", http.StatusInternalServerError)
			return
		}
		existing = nil
	}

	var (
		next       *model.Position
		liquidated bool
	)
	switch entry.Side {
	case model.SideBuy:
		next, err = accounting.ApplyAcquisition(existing, owner, entry.Symbol, entry.CompanyName,
			entry.Quantity, entry.Price)
	case model.SideSell:
		next, liquidated, err = accounting.ApplyDisposal(existing, entry.Quantity)
	}
	if err != nil {
		respondError(w, err)
		return
	}

	// Ledger first: if the entry cannot be recorded the position is left
	// untouched. A position write failing after the ledger write leaves an
	// orphaned entry, which is logged for manual compensation; there is no
	// cross-table transaction spanning both stores.
	saved, err := s.store.SaveLedgerEntry(ctx, entry)
	if err != nil {
		writeError(w, "failed to record trade", http.StatusInternalServerError)
		return
	}

	if liquidated {
		if err := s.store.DeletePosition(ctx, existing.ID); err != nil {
			slog.Error("position delete failed after ledger write",
				"entry_id", saved.ID, "position_id", existing.ID, "err", err)
			writeError(w, "failed to delete position", http.StatusInternalServerError)
			return
		}
		metrics.PositionsLiquidated.Inc()
	} else {
		if next, err = s.store.SavePosition(ctx, next); err != nil {
			slog.Error("position save failed after ledger write",
				"entry_id", saved.ID, "err", err)
			respondError(w, err)
			return
		}
	}

	side := string(saved.Side)
	metrics.TradesTotal.WithLabelValues(side).Inc()
	metrics.TradeLatency.WithLabelValues(side).Observe(time.Since(start).Seconds())

	slog.Info("trade recorded",
		"entry_id", saved.ID,
		"owner", owner,
		"symbol", saved.Symbol,
		"side", side,
		"qty", saved.Quantity.String(),
		"price", saved.Price.String(),
		"liquidated", liquidated,
	)

	if s.wsHub != nil {
		msg := WSMessage{
			Type:     "trade_recorded",
			Owner:    owner,
			Symbol:   saved.Symbol,
			Side:     side,
			Quantity: saved.Quantity.String(),
			Price:    saved.Price.String(),
		}
		if next != nil {
			msg.MarketValue = next.MarketValue.String()
		}
		s.wsHub.Broadcast(msg)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(TradeResponse{
		Entry:      saved,
		Position:   next,
		Liquidated: liquidated,
	})
}

// ListTransactions handles GET /api/v1/transactions.
// Query parameters: symbol (substring), side, from, to (RFC 3339), limit.
func (s *Service) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLedgerFilter(r)
	if err != nil {
		respondError(w, err)
		return
	}

	entries, err := s.store.ListLedgerEntries(r.Context(), auth.Owner(r.Context()), filter)
	if err != nil {
		writeError(w, "failed to list transactions", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// GetTransaction handles GET /api/v1/transactions/{entryID}.
func (s *Service) GetTransaction(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.ownedEntry(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// UpdateTransaction handles PUT /api/v1/transactions/{entryID}.
// The owner is pinned server-side: whatever the payload carries, the entry
// keeps the owner it was created with. The total amount is recomputed.
func (s *Service) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.ownedEntry(w, r)
	if !ok {
		return
	}

	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	entry.Symbol = req.Symbol
	entry.CompanyName = req.CompanyName
	entry.Side = req.Side
	entry.Quantity = req.Quantity
	entry.Price = req.Price
	entry.Commission = req.Commission
	entry.Notes = req.Notes
	if !req.OccurredAt.IsZero() {
		entry.OccurredAt = req.OccurredAt
	}
	entry.Recalculate()
	if err := entry.Validate(); err != nil {
		respondError(w, err)
		return
	}

	saved, err := s.store.SaveLedgerEntry(r.Context(), entry)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(saved)
}

// DeleteTransaction handles DELETE /api/v1/transactions/{entryID}.
func (s *Service) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.ownedEntry(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteLedgerEntry(r.Context(), entry.ID); err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "transaction deleted"})
}

// ownedEntry loads the entry from the URL and verifies it belongs to the
// caller. A mismatch reads the same as a missing entry — 404, never 403.
func (s *Service) ownedEntry(w http.ResponseWriter, r *http.Request) (*model.LedgerEntry, bool) {
	entry, err := s.store.GetLedgerEntry(r.Context(), chi.URLParam(r, "entryID"))
	if err != nil {
		respondError(w, err)
		return nil, false
	}
	if entry.Owner != auth.Owner(r.Context()) {
		writeError(w, "transaction not found", http.StatusNotFound)
		return nil, false
	}
	return entry, true
}

// parseLedgerFilter builds a store.LedgerFilter from query parameters.
func parseLedgerFilter(r *http.Request) (store.LedgerFilter, error) {
	q := r.URL.Query()
	filter := store.LedgerFilter{Symbol: q.Get("symbol")}

	if side := q.Get("side"); side != "" {
		filter.Side = model.Side(side)
		if !filter.Side.Valid() {
			return filter, errInvalidParam("side")
		}
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, errInvalidParam("from")
		}
		filter.From = &t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, errInvalidParam("to")
		}
		filter.To = &t
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := parsePositiveInt(limit)
		if err != nil {
			return filter, errInvalidParam("limit")
		}
		filter.Limit = n
	}
	return filter, nil
}

// --- Error helpers ---

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// respondError maps taxonomy errors onto HTTP statuses: validation 400,
// not found 404, conflict 409, everything else 500.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrConflict):
		writeError(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("request failed", "err", err)
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}
