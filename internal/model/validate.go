package model

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// Error taxonomy. Every error surfaced by the engine, the store, or the
// handlers wraps one of these sentinels so callers can map them with
// errors.Is. Ownership mismatches are reported as ErrNotFound, never as a
// distinct "forbidden", to avoid leaking existence across owners.
var (
	ErrValidation = errors.New("model: validation failed")
	ErrNotFound   = errors.New("model: not found")
	ErrConflict   = errors.New("model: conflict")
)

// Field limits, matching the persisted column sizes.
const (
	MaxSymbolLen      = 10
	MaxCompanyNameLen = 100
	MaxNotesLen       = 500
)

// symbolRegex matches exchange-style tickers: letters, digits, dot and dash.
// Case is preserved, not normalized.
var symbolRegex = regexp.MustCompile(`^[A-Za-z0-9.\-]{1,10}$`)

// ValidateSymbol checks a ticker symbol (non-empty, ≤10 chars).
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if !symbolRegex.MatchString(symbol) {
		return fmt.Errorf("%w: invalid symbol %q", ErrValidation, symbol)
	}
	return nil
}

// ValidateCompanyName checks a company name (non-empty, ≤100 chars).
func ValidateCompanyName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: company name is required", ErrValidation)
	}
	if len(name) > MaxCompanyNameLen {
		return fmt.Errorf("%w: company name exceeds %d characters", ErrValidation, MaxCompanyNameLen)
	}
	return nil
}

// Validate checks the client-supplied fields of a ledger entry. Derived and
// system-managed fields (TotalAmount, timestamps, ID) are not inspected.
func (e *LedgerEntry) Validate() error {
	if err := ValidateSymbol(e.Symbol); err != nil {
		return err
	}
	if err := ValidateCompanyName(e.CompanyName); err != nil {
		return err
	}
	if !e.Side.Valid() {
		return fmt.Errorf("%w: side must be BUY or SELL, got %q", ErrValidation, e.Side)
	}
	if e.Quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if e.Price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	if e.Commission.IsNegative() {
		return fmt.Errorf("%w: commission must not be negative", ErrValidation)
	}
	if len(e.Notes) > MaxNotesLen {
		return fmt.Errorf("%w: notes exceed %d characters", ErrValidation, MaxNotesLen)
	}
	return nil
}

// Validate checks the client-editable fields of a position.
func (p *Position) Validate() error {
	if err := ValidateSymbol(p.Symbol); err != nil {
		return err
	}
	if err := ValidateCompanyName(p.CompanyName); err != nil {
		return err
	}
	if p.Quantity.IsNegative() {
		return fmt.Errorf("%w: quantity must not be negative", ErrValidation)
	}
	if p.AverageCost.IsNegative() {
		return fmt.Errorf("%w: average cost must not be negative", ErrValidation)
	}
	if p.MarketPrice.IsNegative() {
		return fmt.Errorf("%w: market price must not be negative", ErrValidation)
	}
	return nil
}
