// Package service provides the HTTP handlers and business logic for
// recording journal entries, running the grid risk calculator, and
// serving portfolio analytics.
//
// All monetary values use shopspring/decimal — never float64 for money.
package service

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradelog/journal-engine/internal/analytics"
	"github.com/tradelog/journal-engine/internal/exposure"
	"github.com/tradelog/journal-engine/internal/gridrisk"
	"github.com/tradelog/journal-engine/internal/metrics"
	"github.com/tradelog/journal-engine/internal/model"
	"github.com/tradelog/journal-engine/internal/pricefeed"
	"github.com/tradelog/journal-engine/internal/store"
	"github.com/tradelog/journal-engine/internal/symbol"
)

// Service handles journal operations. The calculation cores are pure;
// the service owns record persistence, validation, and broadcasting.
type Service struct {
	store   store.Store
	limiter *exposure.Limiter
	prices  pricefeed.Source
	wsHub   *WSHub // optional WebSocket hub for real-time broadcasts
	now     func() time.Time
}

// NewService creates a new journal service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, limiter *exposure.Limiter, prices pricefeed.Source, hub *WSHub) *Service {
	return &Service{
		store:   st,
		limiter: limiter,
		prices:  prices,
		wsHub:   hub,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// --- Request/Response types ---

// CreateAccountRequest is the JSON body for account creation.
type CreateAccountRequest struct {
	UserID         string          `json:"user_id"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// TradeRequest is the JSON body for POST /trades.
type TradeRequest struct {
	UserID   string          `json:"user_id"`
	Symbol   string          `json:"symbol"`
	NetPnL   decimal.Decimal `json:"net_pnl"`
	Status   string          `json:"status"`
	ParentID string          `json:"parent_id,omitempty"`
	ClosedAt time.Time       `json:"closed_at,omitempty"`
}

// GridStrategyRequest is the JSON body for POST /grids.
type GridStrategyRequest struct {
	UserID      string          `json:"user_id"`
	Symbol      string          `json:"symbol"`
	Investment  decimal.Decimal `json:"investment"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	Status      string          `json:"status"`
	UpdatedAt   time.Time       `json:"updated_at,omitempty"`
}

// HoldingRequest is the JSON body for POST /holdings.
type HoldingRequest struct {
	UserID        string          `json:"user_id"`
	Asset         string          `json:"asset"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	ExitPrice     decimal.Decimal `json:"exit_price"`
	Sold          bool            `json:"sold"`
	UpdatedAt     time.Time       `json:"updated_at,omitempty"`
}

// GridRiskRequest is the JSON body for POST /grid-risk. It keeps the
// flat wire shape journals already send (auto flag plus optional
// overlapping fields) and maps it onto the calculator's tagged reserve
// plan, which is where the "which optional field wins" rule lives.
type GridRiskRequest struct {
	Symbol                string           `json:"symbol,omitempty"`
	LowerPrice            decimal.Decimal  `json:"lower_price"`
	UpperPrice            decimal.Decimal  `json:"upper_price"`
	GridCount             int64            `json:"grid_count"`
	Investment            decimal.Decimal  `json:"investment"`
	Leverage              decimal.Decimal  `json:"leverage"`
	MaintenanceMarginRate decimal.Decimal  `json:"maintenance_margin_rate"`
	AutoReserveMargin     bool             `json:"auto_reserve_margin"`
	ManualReservedMargin  *decimal.Decimal `json:"manual_reserved_margin,omitempty"`
	AvailableBalance      *decimal.Decimal `json:"available_balance,omitempty"`
	PositionSide          string           `json:"position_side"`
	EntryPrice            decimal.Decimal  `json:"entry_price,omitempty"`
}

// --- HTTP Handlers ---

// CreateAccount handles POST /api/v1/accounts
func (s *Service) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.InitialBalance.IsNegative() {
		writeError(w, "initial_balance must not be negative", http.StatusBadRequest)
		return
	}

	account := &model.Account{
		ID:             uuid.New().String(),
		UserID:         req.UserID,
		InitialBalance: req.InitialBalance,
		CreatedAt:      s.now(),
	}

	if err := s.store.CreateAccount(r.Context(), account); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	slog.Info("account created",
		"id", account.ID,
		"user", req.UserID,
		"initial_balance", req.InitialBalance.String(),
	)

	writeJSON(w, http.StatusCreated, account)
}

// RecordTrade handles POST /api/v1/trades
func (s *Service) RecordTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if !symbol.Valid(req.Symbol) {
		writeError(w, "symbol must be a pair like BTCUSDT", http.StatusBadRequest)
		return
	}
	if req.Status != model.StatusOpen && req.Status != model.StatusClosed {
		writeError(w, "status must be open or closed", http.StatusBadRequest)
		return
	}

	closedAt := req.ClosedAt
	if closedAt.IsZero() && req.Status == model.StatusClosed {
		closedAt = s.now()
	}

	trade := &model.Trade{
		ID:       uuid.New().String(),
		UserID:   req.UserID,
		Symbol:   req.Symbol,
		NetPnL:   req.NetPnL,
		Status:   req.Status,
		ParentID: req.ParentID,
		ClosedAt: closedAt,
	}

	if err := s.store.InsertTrade(r.Context(), trade); err != nil {
		writeError(w, "failed to record trade", http.StatusInternalServerError)
		return
	}
	metrics.RecordsInserted.WithLabelValues("trade").Inc()

	slog.Info("trade recorded",
		"id", trade.ID,
		"user", req.UserID,
		"symbol", req.Symbol,
		"net_pnl", req.NetPnL.String(),
		"status", req.Status,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:   "trade_recorded",
			UserID: req.UserID,
			Symbol: req.Symbol,
			PnL:    req.NetPnL.String(),
			Status: req.Status,
		})
	}

	writeJSON(w, http.StatusCreated, trade)
}

// RecordGridStrategy handles POST /api/v1/grids
// Open grids are checked against the exposure limiter before they are
// accepted.
func (s *Service) RecordGridStrategy(w http.ResponseWriter, r *http.Request) {
	var req GridStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if !symbol.Valid(req.Symbol) {
		writeError(w, "symbol must be a pair like BTCUSDT", http.StatusBadRequest)
		return
	}
	if req.Status != model.StatusOpen && req.Status != model.StatusClosed {
		writeError(w, "status must be open or closed", http.StatusBadRequest)
		return
	}
	if req.Investment.LessThanOrEqual(decimal.Zero) {
		writeError(w, "investment must be positive", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	if req.Status == model.StatusOpen && s.limiter != nil {
		open, err := s.store.GetOpenGridInvestments(ctx, req.UserID)
		if err != nil {
			writeError(w, "failed to check exposure limits", http.StatusInternalServerError)
			return
		}
		if err := s.limiter.CheckLimit(req.Symbol, req.Investment, open); err != nil {
			metrics.ExposureLimitRejections.Inc()
			writeError(w, err.Error(), http.StatusConflict)
			return
		}
	}

	updatedAt := req.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}

	grid := &model.GridStrategy{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		Symbol:      req.Symbol,
		Investment:  req.Investment,
		TotalProfit: req.TotalProfit,
		Status:      req.Status,
		UpdatedAt:   updatedAt,
	}

	if err := s.store.InsertGridStrategy(ctx, grid); err != nil {
		writeError(w, "failed to record grid strategy", http.StatusInternalServerError)
		return
	}
	metrics.RecordsInserted.WithLabelValues("grid").Inc()

	slog.Info("grid strategy recorded",
		"id", grid.ID,
		"user", req.UserID,
		"symbol", req.Symbol,
		"investment", req.Investment.String(),
		"status", req.Status,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:   "grid_recorded",
			UserID: req.UserID,
			Symbol: req.Symbol,
			PnL:    req.TotalProfit.String(),
			Status: req.Status,
		})
	}

	writeJSON(w, http.StatusCreated, grid)
}

// RecordHolding handles POST /api/v1/holdings
func (s *Service) RecordHolding(w http.ResponseWriter, r *http.Request) {
	var req HoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.Asset == "" {
		writeError(w, "asset is required", http.StatusBadRequest)
		return
	}
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		writeError(w, "quantity must be positive", http.StatusBadRequest)
		return
	}

	updatedAt := req.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}

	holding := &model.Holding{
		ID:            uuid.New().String(),
		UserID:        req.UserID,
		Asset:         req.Asset,
		Quantity:      req.Quantity,
		AvgEntryPrice: req.AvgEntryPrice,
		ExitPrice:     req.ExitPrice,
		Sold:          req.Sold,
		UpdatedAt:     updatedAt,
	}

	if err := s.store.InsertHolding(r.Context(), holding); err != nil {
		writeError(w, "failed to record holding", http.StatusInternalServerError)
		return
	}
	metrics.RecordsInserted.WithLabelValues("holding").Inc()

	slog.Info("holding recorded",
		"id", holding.ID,
		"user", req.UserID,
		"asset", req.Asset,
		"quantity", req.Quantity.String(),
		"sold", req.Sold,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:   "holding_recorded",
			UserID: req.UserID,
			Symbol: req.Asset,
		})
	}

	writeJSON(w, http.StatusCreated, holding)
}

// ComputeGridRisk handles POST /api/v1/grid-risk
// Runs the pure calculator; nothing is persisted.
func (s *Service) ComputeGridRisk(w http.ResponseWriter, r *http.Request) {
	var req GridRiskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	entry := req.EntryPrice
	if entry.IsZero() && req.Symbol != "" && s.prices != nil {
		// Fall back to the live price; if the feed has nothing the
		// calculator defaults to the geometric mean of the bounds.
		if price, err := s.prices.CurrentPrice(r.Context(), req.Symbol); err == nil {
			entry = price
		}
	}

	in := gridrisk.Inputs{
		LowerPrice:            req.LowerPrice,
		UpperPrice:            req.UpperPrice,
		GridCount:             req.GridCount,
		Investment:            req.Investment,
		Leverage:              req.Leverage,
		MaintenanceMarginRate: req.MaintenanceMarginRate,
		Reserve:               reservePlanFromRequest(req),
		Side:                  req.PositionSide,
		EntryPrice:            entry,
	}

	result, err := gridrisk.Compute(in)
	if err != nil {
		switch {
		case errors.Is(err, gridrisk.ErrInvalidInput):
			metrics.GridRiskCalculations.WithLabelValues("invalid_input").Inc()
			writeError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, gridrisk.ErrInsufficientMargin):
			metrics.GridRiskCalculations.WithLabelValues("insufficient_margin").Inc()
			writeError(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, gridrisk.ErrMarginExceedsInvestment):
			metrics.GridRiskCalculations.WithLabelValues("margin_exceeds_investment").Inc()
			writeError(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			writeError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	metrics.GridRiskCalculations.WithLabelValues("ok").Inc()

	writeJSON(w, http.StatusOK, result)
}

// GetAnalytics handles GET /api/v1/analytics/{userID}
// An unresolved account renders JSON null with 200: the dashboard must
// render gracefully with nothing to show.
func (s *Service) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ctx := r.Context()
	start := time.Now()

	account, err := s.store.GetAccount(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, "failed to load account", http.StatusInternalServerError)
		return
	}

	in := analytics.Input{
		Account: account,
		Now:     s.now(),
	}

	if account != nil {
		if in.ClosedTrades, err = s.store.ListClosedTrades(ctx, userID); err != nil {
			writeError(w, "failed to load trades", http.StatusInternalServerError)
			return
		}
		if in.AllTrades, err = s.store.ListTrades(ctx, userID); err != nil {
			writeError(w, "failed to load trades", http.StatusInternalServerError)
			return
		}
		if in.ClosedGrids, err = s.store.ListClosedGridStrategies(ctx, userID); err != nil {
			writeError(w, "failed to load grid strategies", http.StatusInternalServerError)
			return
		}
		if in.SoldHoldings, err = s.store.ListSoldHoldings(ctx, userID); err != nil {
			writeError(w, "failed to load holdings", http.StatusInternalServerError)
			return
		}
		if in.ActiveHoldings, err = s.store.ListActiveHoldings(ctx, userID); err != nil {
			writeError(w, "failed to load holdings", http.StatusInternalServerError)
			return
		}
	}

	result := analytics.Compute(in)

	metrics.AnalyticsLatency.Observe(time.Since(start).Seconds())
	if result != nil {
		metrics.EventsAggregated.Observe(float64(result.Summary.TotalEvents))
	}

	writeJSON(w, http.StatusOK, result)
}

// GetPrice handles GET /api/v1/price/{symbol}
func (s *Service) GetPrice(w http.ResponseWriter, r *http.Request) {
	sym := chi.URLParam(r, "symbol")
	if !symbol.Valid(sym) {
		writeError(w, "symbol must be a pair like BTCUSDT", http.StatusBadRequest)
		return
	}

	price, err := s.prices.CurrentPrice(r.Context(), sym)
	if err != nil {
		writeError(w, "price unavailable for "+sym, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"price": price})
}

// reservePlanFromRequest resolves the wire shape's overlapping optional
// fields into a single tagged plan: auto wins; then a manual amount;
// then a balance to scale; else unfunded.
func reservePlanFromRequest(req GridRiskRequest) gridrisk.ReservePlan {
	switch {
	case req.AutoReserveMargin:
		return gridrisk.AutoReserve()
	case req.ManualReservedMargin != nil:
		return gridrisk.ManualReserve(*req.ManualReservedMargin)
	case req.AvailableBalance != nil:
		return gridrisk.ManualFromBalance(*req.AvailableBalance)
	default:
		return gridrisk.ManualUnfunded()
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
