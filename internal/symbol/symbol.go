// Package symbol handles trading-pair symbol parsing and validation.
// Journal records and price lookups key on exchange-style concatenated
// pairs (BTCUSDT, ETHUSDC); the base asset extracted here also drives
// exposure grouping.
package symbol

import (
	"errors"
	"fmt"
	"regexp"
)

// pairRegex matches {BASE}{QUOTE}: an uppercase alphanumeric base of
// 2-10 characters followed by a known quote currency. The base is
// non-greedy so BTCBUSD splits as BTC/BUSD, not BTCB/USD.
// Example: BTCUSDT → base BTC, quote USDT.
var pairRegex = regexp.MustCompile(`^([A-Z0-9]{2,10}?)(USDT|USDC|BUSD|USD)$`)

var ErrInvalidSymbol = errors.New("symbol: invalid pair symbol")

// Pair is a parsed trading-pair symbol.
type Pair struct {
	Symbol string `json:"symbol"`
	Base   string `json:"base"`
	Quote  string `json:"quote"`
}

// Parse parses and validates a concatenated pair symbol.
// Format: {BASE}{QUOTE}, e.g. BTCUSDT.
func Parse(sym string) (*Pair, error) {
	matches := pairRegex.FindStringSubmatch(sym)
	if matches == nil {
		return nil, fmt.Errorf("%w: %s (expected {BASE}{QUOTE}, e.g. BTCUSDT)",
			ErrInvalidSymbol, sym)
	}

	return &Pair{
		Symbol: sym,
		Base:   matches[1],
		Quote:  matches[2],
	}, nil
}

// BaseAsset returns the base asset of a pair symbol, or the symbol
// itself when it does not parse as a pair (bare assets like "BTC" held
// in the spot journal).
func BaseAsset(sym string) string {
	p, err := Parse(sym)
	if err != nil {
		return sym
	}
	return p.Base
}

// Valid reports whether sym is a well-formed pair symbol.
func Valid(sym string) bool {
	_, err := Parse(sym)
	return err == nil
}
