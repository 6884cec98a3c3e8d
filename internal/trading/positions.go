package trading

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fintrade/portfolio-engine/internal/accounting"
	"github.com/fintrade/portfolio-engine/internal/auth"
	"github.com/fintrade/portfolio-engine/internal/model"
	"github.com/fintrade/portfolio-engine/internal/portfolio"
)

// PositionRequest is the JSON body for correcting a position. Owner and the
// derived valuation fields are server-managed and recomputed on save.
type PositionRequest struct {
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"company_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost"`
	MarketPrice decimal.Decimal `json:"market_price"`
}

// ListPortfolio handles GET /api/v1/portfolio.
func (s *Service) ListPortfolio(w http.ResponseWriter, r *http.Request) {
	positions, err := s.store.ListPositions(r.Context(), auth.Owner(r.Context()))
	if err != nil {
		writeError(w, "failed to list positions", http.StatusInternalServerError)
		return
	}
	if positions == nil {
		positions = []model.Position{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(positions)
}

// SearchPortfolio handles GET /api/v1/portfolio/search?symbol=<substring>.
func (s *Service) SearchPortfolio(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	positions, err := s.store.SearchPositions(r.Context(), auth.Owner(r.Context()), symbol)
	if err != nil {
		writeError(w, "failed to search positions", http.StatusInternalServerError)
		return
	}
	if positions == nil {
		positions = []model.Position{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(positions)
}

// GetSummary handles GET /api/v1/portfolio/summary.
// Returns the aggregate market value and unrealized P&L across all of the
// caller's positions.
func (s *Service) GetSummary(w http.ResponseWriter, r *http.Request) {
	owner := auth.Owner(r.Context())
	positions, err := s.store.ListPositions(r.Context(), owner)
	if err != nil {
		writeError(w, "failed to load positions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(portfolio.Summarize(owner, positions))
}

// UpdatePosition handles PUT /api/v1/portfolio/{positionID}.
// Corrections to the stored fields; owner stays pinned and the derived
// valuation fields are recomputed server-side regardless of the payload.
func (s *Service) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.ownedPosition(w, r)
	if !ok {
		return
	}

	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// A correction cannot zero out a position: quantity ≤ 0 means the
	// position must be deleted, which only a SELL (or DELETE) may do.
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		respondError(w, fmt.Errorf("%w: quantity must be positive; record a SELL or delete the position to close it", model.ErrValidation))
		return
	}

	next := *existing
	next.Symbol = req.Symbol
	next.CompanyName = req.CompanyName
	next.Quantity = req.Quantity
	next.AverageCost = req.AverageCost
	next.MarketPrice = req.MarketPrice
	if err := next.Validate(); err != nil {
		respondError(w, err)
		return
	}
	accounting.RecomputeDerived(&next)

	// Lock the current key, and the new one too when the correction renames
	// the symbol, so the write is serialized against trades on both. Sorted
	// acquisition order keeps two opposing renames from deadlocking.
	lockKeys := []string{existing.Owner + "/" + existing.Symbol}
	if next.Symbol != existing.Symbol {
		lockKeys = append(lockKeys, next.Owner+"/"+next.Symbol)
		sort.Strings(lockKeys)
	}
	for _, key := range lockKeys {
		unlock := s.locks.Lock(key)
		defer unlock()
	}

	saved, err := s.store.SavePosition(r.Context(), &next)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(saved)
}

// DeletePosition handles DELETE /api/v1/portfolio/{positionID}.
// The position must belong to the caller; anything else reads as 404.
func (s *Service) DeletePosition(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.ownedPosition(w, r)
	if !ok {
		return
	}

	if err := s.store.DeletePosition(r.Context(), existing.ID); err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "position deleted"})
}

// ownedPosition loads the position from the URL and verifies it belongs to
// the caller. A mismatch reads the same as a missing position.
func (s *Service) ownedPosition(w http.ResponseWriter, r *http.Request) (*model.Position, bool) {
	p, err := s.store.GetPositionByID(r.Context(), chi.URLParam(r, "positionID"))
	if err != nil {
		respondError(w, err)
		return nil, false
	}
	if p.Owner != auth.Owner(r.Context()) {
		writeError(w, "position not found", http.StatusNotFound)
		return nil, false
	}
	return p, true
}

// --- Small parsing helpers ---

func errInvalidParam(name string) error {
	return fmt.Errorf("%w: invalid %s parameter", model.ErrValidation, name)
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("not a positive integer: %q", s)
	}
	return n, nil
}
