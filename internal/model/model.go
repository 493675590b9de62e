// Package model defines the core domain types shared across the journal
// engine. All monetary values use shopspring/decimal — never float64 for
// money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record statuses.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Event types in the unified P&L stream.
const (
	EventTrade   = "trade"
	EventGrid    = "grid"
	EventHolding = "holding"
)

// Account holds the journal owner's starting capital. The analytics
// aggregator folds P&L events on top of InitialBalance.
type Account struct {
	ID             string          `json:"id" db:"id"`
	UserID         string          `json:"user_id" db:"user_id"`
	InitialBalance decimal.Decimal `json:"initial_balance" db:"initial_balance"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Trade is a single journaled trade. NetPnL is the realized result after
// fees; it is meaningful only once Status is "closed". ParentID links
// scale-in/scale-out child fills to their parent trade and is empty for
// top-level trades.
type Trade struct {
	ID       string          `json:"id" db:"id"`
	UserID   string          `json:"user_id" db:"user_id"`
	Symbol   string          `json:"symbol" db:"symbol"`
	NetPnL   decimal.Decimal `json:"net_pnl" db:"net_pnl"`
	Status   string          `json:"status" db:"status"`
	ParentID string          `json:"parent_id,omitempty" db:"parent_id"`
	ClosedAt time.Time       `json:"closed_at" db:"closed_at"`
}

// GridStrategy is a journaled grid-trading strategy run. Investment is
// the capital committed to the grid; TotalProfit accumulates over its
// lifetime and is settled when Status becomes "closed".
type GridStrategy struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"user_id" db:"user_id"`
	Symbol      string          `json:"symbol" db:"symbol"`
	Investment  decimal.Decimal `json:"investment" db:"investment"`
	TotalProfit decimal.Decimal `json:"total_profit" db:"total_profit"`
	Status      string          `json:"status" db:"status"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Holding is a spot holding. While Sold is false it contributes to the
// active-holdings valuation; once sold it contributes a realized P&L
// event of (ExitPrice - AvgEntryPrice) * Quantity.
type Holding struct {
	ID            string          `json:"id" db:"id"`
	UserID        string          `json:"user_id" db:"user_id"`
	Asset         string          `json:"asset" db:"asset"`
	Quantity      decimal.Decimal `json:"quantity" db:"quantity"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price" db:"avg_entry_price"`
	ExitPrice     decimal.Decimal `json:"exit_price" db:"exit_price"`
	Sold          bool            `json:"sold" db:"sold"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// PnLEvent is one settled result in the unified chronological stream.
// The stream is the disjoint union of closed trades, closed grids, and
// sold holdings mapped to this common shape.
type PnLEvent struct {
	Type   string          `json:"type"` // "trade", "grid", or "holding"
	Symbol string          `json:"symbol"`
	PnL    decimal.Decimal `json:"pnl"`
	Date   time.Time       `json:"date"`
}

// EquityPoint is one point on the equity curve. The first point carries
// the synthetic "Start" label at the account's initial balance.
type EquityPoint struct {
	Label   string          `json:"label"`
	Balance decimal.Decimal `json:"balance"`
	PnL     decimal.Decimal `json:"pnl"`
}

// AssetPerformance aggregates settled results for one symbol.
type AssetPerformance struct {
	Symbol  string          `json:"symbol"`
	PnL     decimal.Decimal `json:"pnl"`
	Trades  int             `json:"trades"`
	Wins    int             `json:"wins"`
	WinRate decimal.Decimal `json:"win_rate"` // percent
}

// DayPerformance is accumulated P&L for one weekday (Sun..Sat).
type DayPerformance struct {
	Day string          `json:"day"`
	PnL decimal.Decimal `json:"pnl"`
}
