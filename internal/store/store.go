// Package store defines the persistence interface for the journal
// engine. Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/tradelog/journal-engine/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
// Account lookups surface it to the analytics layer, which renders a
// "no data" result rather than an error.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. PostgreSQL is the source of
// truth; Redis provides a read-through cache layer.
type Store interface {
	// --- Accounts ---

	// CreateAccount persists a new journal account.
	CreateAccount(ctx context.Context, account *model.Account) error

	// GetAccount retrieves the account for a user. Returns ErrNotFound
	// when the user has no account.
	GetAccount(ctx context.Context, userID string) (*model.Account, error)

	// --- Trades ---

	// InsertTrade appends a journaled trade.
	InsertTrade(ctx context.Context, trade *model.Trade) error

	// ListTrades returns every trade for a user, open and closed, in
	// insertion order.
	ListTrades(ctx context.Context, userID string) ([]model.Trade, error)

	// ListClosedTrades returns closed trades for a user ordered by
	// close date ascending.
	ListClosedTrades(ctx context.Context, userID string) ([]model.Trade, error)

	// --- Grid strategies ---

	// InsertGridStrategy appends a journaled grid strategy.
	InsertGridStrategy(ctx context.Context, grid *model.GridStrategy) error

	// ListClosedGridStrategies returns closed grids for a user ordered
	// by update date ascending.
	ListClosedGridStrategies(ctx context.Context, userID string) ([]model.GridStrategy, error)

	// GetOpenGridInvestments returns the aggregate open-grid investment
	// per symbol for a user.
	GetOpenGridInvestments(ctx context.Context, userID string) (map[string]decimal.Decimal, error)

	// --- Holdings ---

	// InsertHolding appends a journaled holding.
	InsertHolding(ctx context.Context, holding *model.Holding) error

	// ListSoldHoldings returns sold holdings for a user ordered by
	// update date ascending.
	ListSoldHoldings(ctx context.Context, userID string) ([]model.Holding, error)

	// ListActiveHoldings returns holdings not yet sold.
	ListActiveHoldings(ctx context.Context, userID string) ([]model.Holding, error)
}
