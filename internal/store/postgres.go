package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tradelog/journal-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of
// truth. All monetary values are stored as NUMERIC for exact decimal
// precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateAccount(ctx context.Context, a *model.Account) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, user_id, initial_balance, created_at)
		 VALUES ($1, $2, $3::NUMERIC, $4)`,
		a.ID, a.UserID, a.InitialBalance.String(), a.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetAccount(ctx context.Context, userID string) (*model.Account, error) {
	var a model.Account
	var balance string

	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, initial_balance::TEXT, created_at
		 FROM accounts WHERE user_id = $1`, userID).
		Scan(&a.ID, &a.UserID, &balance, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("account for user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account for user %s: %w", userID, err)
	}

	a.InitialBalance, _ = decimal.NewFromString(balance)
	return &a, nil
}

func (s *PostgresStore) InsertTrade(ctx context.Context, t *model.Trade) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trades (id, user_id, symbol, net_pnl, status, parent_id, closed_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5, $6, $7)`,
		t.ID, t.UserID, t.Symbol, t.NetPnL.String(), t.Status, t.ParentID, t.ClosedAt,
	)
	return err
}

func (s *PostgresStore) ListTrades(ctx context.Context, userID string) ([]model.Trade, error) {
	return s.queryTrades(ctx,
		`SELECT id, user_id, symbol, net_pnl::TEXT, status, parent_id, closed_at
		 FROM trades WHERE user_id = $1 ORDER BY closed_at`, userID)
}

func (s *PostgresStore) ListClosedTrades(ctx context.Context, userID string) ([]model.Trade, error) {
	return s.queryTrades(ctx,
		`SELECT id, user_id, symbol, net_pnl::TEXT, status, parent_id, closed_at
		 FROM trades WHERE user_id = $1 AND status = 'closed' ORDER BY closed_at`, userID)
}

func (s *PostgresStore) queryTrades(ctx context.Context, sql, userID string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var pnl string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &pnl,
			&t.Status, &t.ParentID, &t.ClosedAt); err != nil {
			return nil, err
		}
		t.NetPnL, _ = decimal.NewFromString(pnl)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *PostgresStore) InsertGridStrategy(ctx context.Context, g *model.GridStrategy) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO grid_strategies (id, user_id, symbol, investment, total_profit, status, updated_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, $6, $7)`,
		g.ID, g.UserID, g.Symbol, g.Investment.String(), g.TotalProfit.String(),
		g.Status, g.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) ListClosedGridStrategies(ctx context.Context, userID string) ([]model.GridStrategy, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, symbol, investment::TEXT, total_profit::TEXT, status, updated_at
		 FROM grid_strategies WHERE user_id = $1 AND status = 'closed'
		 ORDER BY updated_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grids []model.GridStrategy
	for rows.Next() {
		var g model.GridStrategy
		var investment, profit string
		if err := rows.Scan(&g.ID, &g.UserID, &g.Symbol, &investment, &profit,
			&g.Status, &g.UpdatedAt); err != nil {
			return nil, err
		}
		g.Investment, _ = decimal.NewFromString(investment)
		g.TotalProfit, _ = decimal.NewFromString(profit)
		grids = append(grids, g)
	}
	return grids, rows.Err()
}

func (s *PostgresStore) GetOpenGridInvestments(ctx context.Context, userID string) (map[string]decimal.Decimal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT symbol, COALESCE(SUM(investment), 0)::TEXT
		 FROM grid_strategies
		 WHERE user_id = $1 AND status = 'open'
		 GROUP BY symbol`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	investments := make(map[string]decimal.Decimal)
	for rows.Next() {
		var sym, invStr string
		if err := rows.Scan(&sym, &invStr); err != nil {
			return nil, err
		}
		inv, _ := decimal.NewFromString(invStr)
		investments[sym] = inv
	}
	return investments, rows.Err()
}

func (s *PostgresStore) InsertHolding(ctx context.Context, h *model.Holding) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO holdings (id, user_id, asset, quantity, avg_entry_price, exit_price, sold, updated_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7, $8)`,
		h.ID, h.UserID, h.Asset, h.Quantity.String(),
		h.AvgEntryPrice.String(), h.ExitPrice.String(), h.Sold, h.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) ListSoldHoldings(ctx context.Context, userID string) ([]model.Holding, error) {
	return s.queryHoldings(ctx,
		`SELECT id, user_id, asset, quantity::TEXT, avg_entry_price::TEXT, exit_price::TEXT, sold, updated_at
		 FROM holdings WHERE user_id = $1 AND sold ORDER BY updated_at`, userID)
}

func (s *PostgresStore) ListActiveHoldings(ctx context.Context, userID string) ([]model.Holding, error) {
	return s.queryHoldings(ctx,
		`SELECT id, user_id, asset, quantity::TEXT, avg_entry_price::TEXT, exit_price::TEXT, sold, updated_at
		 FROM holdings WHERE user_id = $1 AND NOT sold ORDER BY updated_at`, userID)
}

func (s *PostgresStore) queryHoldings(ctx context.Context, sql, userID string) ([]model.Holding, error) {
	rows, err := s.pool.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []model.Holding
	for rows.Next() {
		var h model.Holding
		var qty, entry, exit string
		if err := rows.Scan(&h.ID, &h.UserID, &h.Asset, &qty, &entry, &exit,
			&h.Sold, &h.UpdatedAt); err != nil {
			return nil, err
		}
		h.Quantity, _ = decimal.NewFromString(qty)
		h.AvgEntryPrice, _ = decimal.NewFromString(entry)
		h.ExitPrice, _ = decimal.NewFromString(exit)
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}
