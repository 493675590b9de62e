// Package pricefeed supplies current market prices by symbol. The
// engine itself never fetches prices; the feed only backfills a default
// entry price when a grid-risk request names a symbol without one, and
// serves the price lookup endpoint.
package pricefeed

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when no price is known for a symbol.
var ErrUnavailable = errors.New("pricefeed: price unavailable")

// Source supplies the current price for a symbol.
type Source interface {
	CurrentPrice(ctx context.Context, sym string) (decimal.Decimal, error)
}

// StaticSource is an in-memory Source fed by explicit updates. Used in
// tests and as the default when no upstream feed is configured.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewStaticSource creates an empty static price source.
func NewStaticSource() *StaticSource {
	return &StaticSource{
		prices: make(map[string]decimal.Decimal),
	}
}

// SetPrice records the current price for a symbol.
func (s *StaticSource) SetPrice(sym string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[sym] = price
}

func (s *StaticSource) CurrentPrice(_ context.Context, sym string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.prices[sym]
	if !ok {
		return decimal.Zero, ErrUnavailable
	}
	return price, nil
}
