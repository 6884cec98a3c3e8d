package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fintrade/portfolio-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
//
// Only per-owner position reads are cached — the ledger is read rarely
// enough (and filtered too variably) to be worth caching.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) SavePosition(ctx context.Context, p *model.Position) (*model.Position, error) {
	// An update may rename the symbol; the old key has to go too or reads
	// keep serving the pre-rename snapshot until the TTL expires.
	var staleKey string
	if p.ID != "" {
		if current, err := s.primary.GetPositionByID(ctx, p.ID); err == nil && current.Symbol != p.Symbol {
			staleKey = positionKey(current.Owner, current.Symbol)
		}
	}

	saved, err := s.primary.SavePosition(ctx, p)
	if err != nil {
		return nil, err
	}
	if staleKey != "" {
		s.rdb.Del(ctx, staleKey)
	}
	s.invalidateOwner(ctx, saved.Owner)
	s.cachePosition(ctx, saved)
	return saved, nil
}

func (s *CachedStore) DeletePosition(ctx context.Context, id string) error {
	// Look up the owner first so the list cache can be invalidated.
	p, err := s.primary.GetPositionByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.primary.DeletePosition(ctx, id); err != nil {
		return err
	}
	s.invalidateOwner(ctx, p.Owner)
	s.rdb.Del(ctx, positionKey(p.Owner, p.Symbol))
	return nil
}

func (s *CachedStore) SaveLedgerEntry(ctx context.Context, e *model.LedgerEntry) (*model.LedgerEntry, error) {
	return s.primary.SaveLedgerEntry(ctx, e)
}

func (s *CachedStore) DeleteLedgerEntry(ctx context.Context, id string) error {
	return s.primary.DeleteLedgerEntry(ctx, id)
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetPosition(ctx context.Context, owner, symbol string) (*model.Position, error) {
	data, err := s.rdb.Get(ctx, positionKey(owner, symbol)).Bytes()
	if err == nil {
		var p model.Position
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	// Cache miss: read from primary.
	p, err := s.primary.GetPosition(ctx, owner, symbol)
	if err != nil {
		return nil, err
	}

	s.cachePosition(ctx, p)
	return p, nil
}

func (s *CachedStore) ListPositions(ctx context.Context, owner string) ([]model.Position, error) {
	data, err := s.rdb.Get(ctx, positionsKey(owner)).Bytes()
	if err == nil {
		var positions []model.Position
		if json.Unmarshal(data, &positions) == nil {
			return positions, nil
		}
	}

	// Cache miss.
	positions, err := s.primary.ListPositions(ctx, owner)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(positions); err == nil {
		s.rdb.Set(ctx, positionsKey(owner), data, s.ttl)
	}
	return positions, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) GetPositionByID(ctx context.Context, id string) (*model.Position, error) {
	return s.primary.GetPositionByID(ctx, id)
}

func (s *CachedStore) SearchPositions(ctx context.Context, owner, symbol string) ([]model.Position, error) {
	return s.primary.SearchPositions(ctx, owner, symbol)
}

func (s *CachedStore) GetLedgerEntry(ctx context.Context, id string) (*model.LedgerEntry, error) {
	return s.primary.GetLedgerEntry(ctx, id)
}

func (s *CachedStore) ListLedgerEntries(ctx context.Context, owner string, filter LedgerFilter) ([]model.LedgerEntry, error) {
	return s.primary.ListLedgerEntries(ctx, owner, filter)
}

// --- Cache helpers ---

func (s *CachedStore) cachePosition(ctx context.Context, p *model.Position) {
	if data, err := json.Marshal(p); err == nil {
		s.rdb.Set(ctx, positionKey(p.Owner, p.Symbol), data, s.ttl)
	}
}

func (s *CachedStore) invalidateOwner(ctx context.Context, owner string) {
	s.rdb.Del(ctx, positionsKey(owner))
}

func positionKey(owner, symbol string) string { return fmt.Sprintf("position:%s:%s", owner, symbol) }
func positionsKey(owner string) string        { return fmt.Sprintf("positions:%s", owner) }
