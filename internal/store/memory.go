package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fintrade/portfolio-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	positions map[string]*model.Position // keyed by ID
	ledger    map[string]*model.LedgerEntry
	now       func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		positions: make(map[string]*model.Position),
		ledger:    make(map[string]*model.LedgerEntry),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) SavePosition(_ context.Context, p *model.Position) (*model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *p
	if saved.ID == "" {
		for _, existing := range s.positions {
			if existing.Owner == saved.Owner && existing.Symbol == saved.Symbol {
				return nil, fmt.Errorf("%w: position for %s/%s already exists",
					model.ErrConflict, saved.Owner, saved.Symbol)
			}
		}
		saved.ID = uuid.New().String()
		saved.CreatedAt = s.now()
		saved.UpdatedAt = saved.CreatedAt
	} else {
		current, ok := s.positions[saved.ID]
		if !ok {
			return nil, fmt.Errorf("%w: position %s", model.ErrNotFound, saved.ID)
		}
		for _, existing := range s.positions {
			if existing.ID != saved.ID && existing.Owner == saved.Owner && existing.Symbol == saved.Symbol {
				return nil, fmt.Errorf("%w: position for %s/%s already exists",
					model.ErrConflict, saved.Owner, saved.Symbol)
			}
		}
		saved.CreatedAt = current.CreatedAt
		saved.UpdatedAt = s.now()
	}

	// Store a copy to avoid external mutation.
	copy := saved
	s.positions[saved.ID] = &copy
	return &saved, nil
}

func (s *MemoryStore) GetPosition(_ context.Context, owner, symbol string) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.positions {
		if p.Owner == owner && p.Symbol == symbol {
			copy := *p
			return &copy, nil
		}
	}
	return nil, fmt.Errorf("%w: position %s/%s", model.ErrNotFound, owner, symbol)
}

func (s *MemoryStore) GetPositionByID(_ context.Context, id string) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[id]
	if !ok {
		return nil, fmt.Errorf("%w: position %s", model.ErrNotFound, id)
	}
	copy := *p
	return &copy, nil
}

func (s *MemoryStore) ListPositions(_ context.Context, owner string) ([]model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var positions []model.Position
	for _, p := range s.positions {
		if p.Owner == owner {
			positions = append(positions, *p)
		}
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})
	return positions, nil
}

func (s *MemoryStore) SearchPositions(_ context.Context, owner, symbol string) ([]model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(symbol)
	var positions []model.Position
	for _, p := range s.positions {
		if p.Owner == owner && strings.Contains(strings.ToLower(p.Symbol), needle) {
			positions = append(positions, *p)
		}
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})
	return positions, nil
}

func (s *MemoryStore) DeletePosition(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[id]; !ok {
		return fmt.Errorf("%w: position %s", model.ErrNotFound, id)
	}
	delete(s.positions, id)
	return nil
}

func (s *MemoryStore) SaveLedgerEntry(_ context.Context, e *model.LedgerEntry) (*model.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *e
	if saved.ID == "" {
		saved.ID = uuid.New().String()
		saved.CreatedAt = s.now()
		saved.UpdatedAt = saved.CreatedAt
		if saved.OccurredAt.IsZero() {
			saved.OccurredAt = saved.CreatedAt
		}
	} else {
		current, ok := s.ledger[saved.ID]
		if !ok {
			return nil, fmt.Errorf("%w: ledger entry %s", model.ErrNotFound, saved.ID)
		}
		saved.CreatedAt = current.CreatedAt
		saved.UpdatedAt = s.now()
	}

	copy := saved
	s.ledger[saved.ID] = &copy
	return &saved, nil
}

func (s *MemoryStore) GetLedgerEntry(_ context.Context, id string) (*model.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.ledger[id]
	if !ok {
		return nil, fmt.Errorf("%w: ledger entry %s", model.ErrNotFound, id)
	}
	copy := *e
	return &copy, nil
}

func (s *MemoryStore) ListLedgerEntries(_ context.Context, owner string, filter LedgerFilter) ([]model.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(filter.Symbol)
	var entries []model.LedgerEntry
	for _, e := range s.ledger {
		if e.Owner != owner {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(e.Symbol), needle) {
			continue
		}
		if filter.Side != "" && e.Side != filter.Side {
			continue
		}
		if filter.From != nil && e.OccurredAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.OccurredAt.After(*filter.To) {
			continue
		}
		entries = append(entries, *e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].OccurredAt.After(entries[j].OccurredAt)
	})
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

func (s *MemoryStore) DeleteLedgerEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ledger[id]; !ok {
		return fmt.Errorf("%w: ledger entry %s", model.ErrNotFound, id)
	}
	delete(s.ledger, id)
	return nil
}
