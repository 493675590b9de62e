// Package exposure enforces limits on open grid-strategy investment.
//
// A journal user running ten grids on BTCUSDT, BTCUSDC, and BTCBUSD is
// concentrated in one asset however many symbols the capital is spread
// across. This package caps committed investment per symbol and per
// base asset, grouping symbols through their parsed base.
package exposure

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/tradelog/journal-engine/internal/symbol"
)

var (
	// ErrPerSymbolLimitExceeded is returned when a new grid would push
	// a single symbol's open investment beyond the per-symbol maximum.
	ErrPerSymbolLimitExceeded = errors.New("exposure: per-symbol investment limit exceeded")

	// ErrBaseAssetLimitExceeded is returned when a new grid would push
	// the aggregate open investment across all symbols sharing a base
	// asset beyond the per-base maximum.
	ErrBaseAssetLimitExceeded = errors.New("exposure: base-asset investment limit exceeded")
)

// Limiter enforces open-investment limits with base-asset grouping.
type Limiter struct {
	// MaxPerSymbol is the maximum open grid investment in any single
	// pair symbol.
	MaxPerSymbol decimal.Decimal

	// MaxPerBase is the maximum aggregate open grid investment across
	// all symbols sharing one base asset.
	MaxPerBase decimal.Decimal
}

// NewLimiter creates a limiter with the given per-symbol and per-base
// investment limits.
func NewLimiter(maxPerSymbol, maxPerBase decimal.Decimal) *Limiter {
	return &Limiter{
		MaxPerSymbol: maxPerSymbol,
		MaxPerBase:   maxPerBase,
	}
}

// CheckLimit validates whether committing `investment` to a new grid on
// targetSymbol respects both limits, given the user's current open
// investment per symbol. Returns nil when within limits.
func (l *Limiter) CheckLimit(
	targetSymbol string,
	investment decimal.Decimal,
	openInvestments map[string]decimal.Decimal,
) error {
	newInSymbol := openInvestments[targetSymbol].Add(investment)
	if newInSymbol.GreaterThan(l.MaxPerSymbol) {
		return ErrPerSymbolLimitExceeded
	}

	targetBase := symbol.BaseAsset(targetSymbol)
	totalInBase := newInSymbol

	for sym, inv := range openInvestments {
		if sym == targetSymbol {
			continue // already counted via newInSymbol above
		}
		if symbol.BaseAsset(sym) == targetBase {
			totalInBase = totalInBase.Add(inv)
		}
	}

	if totalInBase.GreaterThan(l.MaxPerBase) {
		return ErrBaseAssetLimitExceeded
	}

	return nil
}
