package symbol

import (
	"errors"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		sym   string
		base  string
		quote string
	}{
		{"BTCUSDT", "BTC", "USDT"},
		{"ETHUSDC", "ETH", "USDC"},
		{"BTCBUSD", "BTC", "BUSD"},
		{"SOLUSD", "SOL", "USD"},
		{"1000PEPEUSDT", "1000PEPE", "USDT"},
	}

	for _, tt := range tests {
		t.Run(tt.sym, func(t *testing.T) {
			p, err := Parse(tt.sym)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Base != tt.base || p.Quote != tt.quote {
				t.Errorf("parsed %s/%s, want %s/%s", p.Base, p.Quote, tt.base, tt.quote)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"BTC",         // no quote currency
		"btcusdt",     // lowercase
		"BTC-USDT",    // separator not allowed
		"USDT",        // quote with no base
		"XUSDT" + "X", // trailing garbage
	}

	for _, sym := range tests {
		if _, err := Parse(sym); !errors.Is(err, ErrInvalidSymbol) {
			t.Errorf("Parse(%q): expected ErrInvalidSymbol, got %v", sym, err)
		}
	}
}

func TestBaseAsset(t *testing.T) {
	if got := BaseAsset("BTCUSDT"); got != "BTC" {
		t.Errorf("BaseAsset(BTCUSDT) = %s, want BTC", got)
	}
	// Bare spot assets fall through unchanged.
	if got := BaseAsset("BTC"); got != "BTC" {
		t.Errorf("BaseAsset(BTC) = %s, want BTC", got)
	}
}

func TestValid(t *testing.T) {
	if !Valid("ETHUSDT") {
		t.Error("ETHUSDT should be valid")
	}
	if Valid("not a symbol") {
		t.Error("garbage should be invalid")
	}
}
