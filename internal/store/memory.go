package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tradelog/journal-engine/internal/model"
)

// MemoryStore implements Store with in-memory slices. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account // keyed by user ID
	trades   []model.Trade
	grids    []model.GridStrategy
	holdings []model.Holding
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*model.Account),
	}
}

func (s *MemoryStore) CreateAccount(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.UserID]; exists {
		return fmt.Errorf("account for user %s already exists", a.UserID)
	}

	// Store a copy to avoid external mutation.
	copy := *a
	s.accounts[a.UserID] = &copy
	return nil
}

func (s *MemoryStore) GetAccount(_ context.Context, userID string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[userID]
	if !ok {
		return nil, fmt.Errorf("account for user %s: %w", userID, ErrNotFound)
	}
	copy := *a
	return &copy, nil
}

func (s *MemoryStore) InsertTrade(_ context.Context, t *model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = append(s.trades, *t)
	return nil
}

func (s *MemoryStore) ListTrades(_ context.Context, userID string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Trade
	for _, t := range s.trades {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (s *MemoryStore) ListClosedTrades(_ context.Context, userID string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Trade
	for _, t := range s.trades {
		if t.UserID == userID && t.Status == model.StatusClosed {
			result = append(result, t)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ClosedAt.Before(result[j].ClosedAt)
	})
	return result, nil
}

func (s *MemoryStore) InsertGridStrategy(_ context.Context, g *model.GridStrategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.grids = append(s.grids, *g)
	return nil
}

func (s *MemoryStore) ListClosedGridStrategies(_ context.Context, userID string) ([]model.GridStrategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.GridStrategy
	for _, g := range s.grids {
		if g.UserID == userID && g.Status == model.StatusClosed {
			result = append(result, g)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].UpdatedAt.Before(result[j].UpdatedAt)
	})
	return result, nil
}

func (s *MemoryStore) GetOpenGridInvestments(_ context.Context, userID string) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	investments := make(map[string]decimal.Decimal)
	for _, g := range s.grids {
		if g.UserID == userID && g.Status == model.StatusOpen {
			investments[g.Symbol] = investments[g.Symbol].Add(g.Investment)
		}
	}
	return investments, nil
}

func (s *MemoryStore) InsertHolding(_ context.Context, h *model.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.holdings = append(s.holdings, *h)
	return nil
}

func (s *MemoryStore) ListSoldHoldings(_ context.Context, userID string) ([]model.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Holding
	for _, h := range s.holdings {
		if h.UserID == userID && h.Sold {
			result = append(result, h)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].UpdatedAt.Before(result[j].UpdatedAt)
	})
	return result, nil
}

func (s *MemoryStore) ListActiveHoldings(_ context.Context, userID string) ([]model.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Holding
	for _, h := range s.holdings {
		if h.UserID == userID && !h.Sold {
			result = append(result, h)
		}
	}
	return result, nil
}
