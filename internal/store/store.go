// Package store defines the persistence interface for the portfolio engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"time"

	"github.com/fintrade/portfolio-engine/internal/model"
)

// LedgerFilter narrows a ledger listing. Zero values mean "no filter".
type LedgerFilter struct {
	// Symbol filters by case-insensitive substring match.
	Symbol string
	// Side filters by trade direction.
	Side model.Side
	// From/To bound the occurred-at timestamp (inclusive).
	From *time.Time
	To   *time.Time
	// Limit caps the number of entries returned; the "recent N" view is a
	// prefix of the most-recent-first ordering, not a separate query.
	Limit int
}

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
//
// Every position write is atomic per row, which is what makes the engine's
// single-snapshot read-compute-write cycle safe once the caller serializes
// access per (owner, symbol). The one-position-per-(owner, symbol)
// uniqueness invariant is enforced here as a hard constraint: violating
// inserts fail with model.ErrConflict. Missing rows surface model.ErrNotFound.
type Store interface {
	// --- Positions ---

	// SavePosition inserts (empty ID: assigns an ID and timestamps) or
	// updates a position.
	SavePosition(ctx context.Context, p *model.Position) (*model.Position, error)

	// GetPosition retrieves one position by its (owner, symbol) key.
	GetPosition(ctx context.Context, owner, symbol string) (*model.Position, error)

	// GetPositionByID retrieves one position by ID, regardless of owner.
	// Ownership checks belong to the caller.
	GetPositionByID(ctx context.Context, id string) (*model.Position, error)

	// ListPositions returns all of one owner's positions, symbol ascending.
	ListPositions(ctx context.Context, owner string) ([]model.Position, error)

	// SearchPositions returns the owner's positions whose symbol contains
	// the given substring, case-insensitively, symbol ascending.
	SearchPositions(ctx context.Context, owner, symbol string) ([]model.Position, error)

	// DeletePosition removes a position by ID.
	DeletePosition(ctx context.Context, id string) error

	// --- Ledger ---

	// SaveLedgerEntry inserts (empty ID) or updates a ledger entry.
	SaveLedgerEntry(ctx context.Context, e *model.LedgerEntry) (*model.LedgerEntry, error)

	// GetLedgerEntry retrieves one entry by ID.
	GetLedgerEntry(ctx context.Context, id string) (*model.LedgerEntry, error)

	// ListLedgerEntries returns one owner's entries, most recent first.
	ListLedgerEntries(ctx context.Context, owner string, filter LedgerFilter) ([]model.LedgerEntry, error)

	// DeleteLedgerEntry removes an entry by ID.
	DeleteLedgerEntry(ctx context.Context, id string) error
}
