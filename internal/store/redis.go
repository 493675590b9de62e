package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/tradelog/journal-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis
// read-through cache. Writes go to the primary store and invalidate the
// affected user's cached reads; reads check Redis first then fall back
// to the primary.
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

func (s *CachedStore) CreateAccount(ctx context.Context, a *model.Account) error {
	if err := s.primary.CreateAccount(ctx, a); err != nil {
		return err
	}
	s.cacheAccount(ctx, a)
	return nil
}

func (s *CachedStore) InsertTrade(ctx context.Context, t *model.Trade) error {
	if err := s.primary.InsertTrade(ctx, t); err != nil {
		return err
	}
	s.rdb.Del(ctx, tradesKey(t.UserID), closedTradesKey(t.UserID))
	return nil
}

func (s *CachedStore) InsertGridStrategy(ctx context.Context, g *model.GridStrategy) error {
	if err := s.primary.InsertGridStrategy(ctx, g); err != nil {
		return err
	}
	s.rdb.Del(ctx, closedGridsKey(g.UserID))
	return nil
}

func (s *CachedStore) InsertHolding(ctx context.Context, h *model.Holding) error {
	// Holdings flip between active and sold; no list is cached, so the
	// write passes straight through.
	return s.primary.InsertHolding(ctx, h)
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetAccount(ctx context.Context, userID string) (*model.Account, error) {
	data, err := s.rdb.Get(ctx, accountKey(userID)).Bytes()
	if err == nil {
		var a model.Account
		if json.Unmarshal(data, &a) == nil {
			return &a, nil
		}
	}

	// Cache miss: read from primary.
	a, err := s.primary.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.cacheAccount(ctx, a)
	return a, nil
}

func (s *CachedStore) ListTrades(ctx context.Context, userID string) ([]model.Trade, error) {
	data, err := s.rdb.Get(ctx, tradesKey(userID)).Bytes()
	if err == nil {
		var trades []model.Trade
		if json.Unmarshal(data, &trades) == nil {
			return trades, nil
		}
	}

	trades, err := s.primary.ListTrades(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(trades); err == nil {
		s.rdb.Set(ctx, tradesKey(userID), data, s.ttl)
	}
	return trades, nil
}

func (s *CachedStore) ListClosedTrades(ctx context.Context, userID string) ([]model.Trade, error) {
	data, err := s.rdb.Get(ctx, closedTradesKey(userID)).Bytes()
	if err == nil {
		var trades []model.Trade
		if json.Unmarshal(data, &trades) == nil {
			return trades, nil
		}
	}

	trades, err := s.primary.ListClosedTrades(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(trades); err == nil {
		s.rdb.Set(ctx, closedTradesKey(userID), data, s.ttl)
	}
	return trades, nil
}

func (s *CachedStore) ListClosedGridStrategies(ctx context.Context, userID string) ([]model.GridStrategy, error) {
	data, err := s.rdb.Get(ctx, closedGridsKey(userID)).Bytes()
	if err == nil {
		var grids []model.GridStrategy
		if json.Unmarshal(data, &grids) == nil {
			return grids, nil
		}
	}

	grids, err := s.primary.ListClosedGridStrategies(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(grids); err == nil {
		s.rdb.Set(ctx, closedGridsKey(userID), data, s.ttl)
	}
	return grids, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) GetOpenGridInvestments(ctx context.Context, userID string) (map[string]decimal.Decimal, error) {
	return s.primary.GetOpenGridInvestments(ctx, userID)
}

func (s *CachedStore) ListSoldHoldings(ctx context.Context, userID string) ([]model.Holding, error) {
	return s.primary.ListSoldHoldings(ctx, userID)
}

func (s *CachedStore) ListActiveHoldings(ctx context.Context, userID string) ([]model.Holding, error) {
	return s.primary.ListActiveHoldings(ctx, userID)
}

// --- Cache helpers ---

func (s *CachedStore) cacheAccount(ctx context.Context, a *model.Account) {
	if data, err := json.Marshal(a); err == nil {
		s.rdb.Set(ctx, accountKey(a.UserID), data, s.ttl)
	}
}

func accountKey(uid string) string      { return fmt.Sprintf("account:%s", uid) }
func tradesKey(uid string) string       { return fmt.Sprintf("trades:%s", uid) }
func closedTradesKey(uid string) string { return fmt.Sprintf("trades:closed:%s", uid) }
func closedGridsKey(uid string) string  { return fmt.Sprintf("grids:closed:%s", uid) }
