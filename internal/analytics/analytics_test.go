package analytics

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradelog/journal-engine/internal/model"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// now is the fixed clock for every test; a Friday.
var now = time.Date(2025, 6, 6, 12, 0, 0, 0, time.UTC)

func account(balance float64) *model.Account {
	return &model.Account{
		ID:             "acct-1",
		UserID:         "user1",
		InitialBalance: d(balance),
	}
}

func trade(symbol string, pnl float64, closedAt time.Time) model.Trade {
	return model.Trade{
		Symbol:   symbol,
		NetPnL:   d(pnl),
		Status:   model.StatusClosed,
		ClosedAt: closedAt,
	}
}

func grid(symbol string, profit float64, updatedAt time.Time) model.GridStrategy {
	return model.GridStrategy{
		Symbol:      symbol,
		TotalProfit: d(profit),
		Status:      model.StatusClosed,
		UpdatedAt:   updatedAt,
	}
}

func soldHolding(asset string, entry, exit, qty float64, updatedAt time.Time) model.Holding {
	return model.Holding{
		Asset:         asset,
		AvgEntryPrice: d(entry),
		ExitPrice:     d(exit),
		Quantity:      d(qty),
		Sold:          true,
		UpdatedAt:     updatedAt,
	}
}

// --- No-data and empty-input tests ---

func TestCompute_NilAccount(t *testing.T) {
	res := Compute(Input{Now: now})
	if res != nil {
		t.Errorf("expected nil result for unresolved account, got %+v", res)
	}
}

func TestCompute_EmptyEventStream(t *testing.T) {
	res := Compute(Input{Account: account(5000), Now: now})
	if res == nil {
		t.Fatal("existing account with no events should still produce a result")
	}

	s := res.Summary
	if s.TotalPnL != "0.00" {
		t.Errorf("expected total pnl 0.00, got %s", s.TotalPnL)
	}
	if s.WinRate != "0.0" {
		t.Errorf("expected win rate 0.0, got %s", s.WinRate)
	}
	if s.ProfitFactor != "0.00" {
		t.Errorf("expected profit factor 0.00, got %s", s.ProfitFactor)
	}
	if s.MaxDrawdown != "0.0" {
		t.Errorf("expected max drawdown 0.0, got %s", s.MaxDrawdown)
	}
	if s.ElapsedDays != 0 {
		t.Errorf("expected 0 elapsed days, got %d", s.ElapsedDays)
	}

	if len(res.EquityCurve) != 1 {
		t.Fatalf("expected equity curve with only the Start point, got %d points", len(res.EquityCurve))
	}
	if res.EquityCurve[0].Label != "Start" || !res.EquityCurve[0].Balance.Equal(d(5000)) {
		t.Errorf("unexpected start point: %+v", res.EquityCurve[0])
	}
}

// --- Event stream construction ---

func TestCompute_EventStreamOrderAndTieBreaks(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	in := Input{
		Account: account(1000),
		ClosedTrades: []model.Trade{
			trade("ETHUSDT", 5, day),
			trade("BTCUSDT", -3, day.Add(-48*time.Hour)),
		},
		ClosedGrids:  []model.GridStrategy{grid("BTCUSDT", 7, day)},
		SoldHoldings: []model.Holding{soldHolding("SOL", 100, 110, 2, day)},
		Now:          now,
	}

	res := Compute(in)
	if len(res.Events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(res.Events))
	}

	// Earliest first; same-date ties keep trades before grids before
	// holdings in their original source order.
	gotTypes := []string{res.Events[0].Type, res.Events[1].Type, res.Events[2].Type, res.Events[3].Type}
	wantTypes := []string{model.EventTrade, model.EventTrade, model.EventGrid, model.EventHolding}
	if !reflect.DeepEqual(gotTypes, wantTypes) {
		t.Errorf("event order %v, want %v", gotTypes, wantTypes)
	}
	if res.Events[0].Symbol != "BTCUSDT" {
		t.Errorf("earliest event should be the older trade, got %s", res.Events[0].Symbol)
	}

	// Holding pnl = (110 - 100) * 2 = 20.
	if !res.Events[3].PnL.Equal(d(20)) {
		t.Errorf("expected holding pnl 20, got %s", res.Events[3].PnL)
	}
}

func TestCompute_HoldingWithMissingPricesContributesEntryTerm(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	// No exit price recorded: pnl = (0 - 50) * 2 = -100.
	in := Input{
		Account:      account(1000),
		SoldHoldings: []model.Holding{soldHolding("DOT", 50, 0, 2, day)},
		Now:          now,
	}
	res := Compute(in)
	if !res.Events[0].PnL.Equal(d(-100)) {
		t.Errorf("expected pnl -100 with zero exit price, got %s", res.Events[0].PnL)
	}
}

// --- Statistics ---

func TestCompute_WinnersLosersAndZeroPnL(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	in := Input{
		Account: account(1000),
		ClosedTrades: []model.Trade{
			trade("BTCUSDT", 100, day),
			trade("BTCUSDT", -40, day.Add(time.Hour)),
			trade("ETHUSDT", 0, day.Add(2*time.Hour)), // counts toward totals only
			trade("ETHUSDT", 60, day.Add(3*time.Hour)),
		},
		Now: now,
	}
	res := Compute(in)
	s := res.Summary

	if s.TotalEvents != 4 || s.Winners != 2 || s.Losers != 1 {
		t.Errorf("expected 4 events / 2 winners / 1 loser, got %d/%d/%d",
			s.TotalEvents, s.Winners, s.Losers)
	}
	if s.GrossProfit != "160.00" || s.GrossLoss != "40.00" {
		t.Errorf("expected gross 160.00/40.00, got %s/%s", s.GrossProfit, s.GrossLoss)
	}
	if s.TotalPnL != "120.00" {
		t.Errorf("expected total pnl 120.00, got %s", s.TotalPnL)
	}
	if s.WinRate != "50.0" { // 2 of 4
		t.Errorf("expected win rate 50.0, got %s", s.WinRate)
	}
	if s.ProfitFactor != "4.00" { // 160 / 40
		t.Errorf("expected profit factor 4.00, got %s", s.ProfitFactor)
	}
	if s.AvgWin != "80.00" || s.AvgLoss != "40.00" {
		t.Errorf("expected avg win/loss 80.00/40.00, got %s/%s", s.AvgWin, s.AvgLoss)
	}
}

func TestCompute_ProfitFactorSentinel(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	in := Input{
		Account:      account(1000),
		ClosedTrades: []model.Trade{trade("BTCUSDT", 100, day)},
		Now:          now,
	}
	res := Compute(in)
	if res.Summary.ProfitFactor != "99.00" {
		t.Errorf("expected sentinel profit factor 99.00 with no losses, got %s",
			res.Summary.ProfitFactor)
	}
}

// --- Equity curve and drawdown ---

func TestCompute_EquityCurveIdentities(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	in := Input{
		Account: account(1000),
		ClosedTrades: []model.Trade{
			trade("BTCUSDT", 200, day),
			trade("BTCUSDT", -150, day.Add(time.Hour)),
			trade("ETHUSDT", 50, day.Add(2*time.Hour)),
		},
		Now: now,
	}
	res := Compute(in)

	if len(res.EquityCurve) != 4 {
		t.Fatalf("expected 4 curve points, got %d", len(res.EquityCurve))
	}

	// sum(curve[i].pnl for i>0) == totalPnL
	sum := decimal.Zero
	for _, p := range res.EquityCurve[1:] {
		sum = sum.Add(p.PnL)
	}
	if !sum.Equal(d(100)) {
		t.Errorf("curve pnl sum %s, want 100", sum)
	}

	// last balance == initial + totalPnL
	last := res.EquityCurve[len(res.EquityCurve)-1]
	if !last.Balance.Equal(d(1100)) {
		t.Errorf("final balance %s, want 1100", last.Balance)
	}
}

func TestCompute_MaxDrawdown(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	// 1000 → 1200 → 900: drawdown = (1200-900)/1200 = 25%.
	in := Input{
		Account: account(1000),
		ClosedTrades: []model.Trade{
			trade("BTCUSDT", 200, day),
			trade("BTCUSDT", -300, day.Add(time.Hour)),
			trade("BTCUSDT", 500, day.Add(2*time.Hour)), // recovery must not lower it
		},
		Now: now,
	}
	res := Compute(in)
	if res.Summary.MaxDrawdown != "25.0" {
		t.Errorf("expected max drawdown 25.0, got %s", res.Summary.MaxDrawdown)
	}
}

// --- Rolling windows ---

func TestCompute_RollingWindows(t *testing.T) {
	in := Input{
		Account: account(1000),
		ClosedTrades: []model.Trade{
			trade("BTCUSDT", 500, now.Add(-60*24*time.Hour)), // outside both windows
			trade("BTCUSDT", 90, now.Add(-10*24*time.Hour)),  // monthly only
			trade("BTCUSDT", 30, now.Add(-2*time.Hour)),      // monthly and daily
		},
		Now: now,
	}
	res := Compute(in)
	s := res.Summary

	if s.MonthlyPnL != "120.00" {
		t.Errorf("expected monthly pnl 120.00, got %s", s.MonthlyPnL)
	}
	if s.DailyPnL != "30.00" {
		t.Errorf("expected daily pnl 30.00, got %s", s.DailyPnL)
	}
	// monthlyReturn = 120 / (1000 + 500) = 8%.
	if s.MonthlyReturn != "8.0" {
		t.Errorf("expected monthly return 8.0, got %s", s.MonthlyReturn)
	}
}

func TestCompute_MonthlyReturnZeroWhenPriorBalanceNonPositive(t *testing.T) {
	in := Input{
		Account: account(100),
		ClosedTrades: []model.Trade{
			trade("BTCUSDT", -200, now.Add(-60*24*time.Hour)), // prior balance -100
			trade("BTCUSDT", 50, now.Add(-time.Hour)),
		},
		Now: now,
	}
	res := Compute(in)
	if res.Summary.MonthlyReturn != "0.0" {
		t.Errorf("expected monthly return 0.0 with non-positive prior balance, got %s",
			res.Summary.MonthlyReturn)
	}
}

// --- Breakdowns ---

func TestCompute_WeekdayBuckets(t *testing.T) {
	sunday := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	wednesday := time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)
	in := Input{
		Account: account(1000),
		ClosedTrades: []model.Trade{
			trade("BTCUSDT", 10, sunday),
			trade("BTCUSDT", 20, wednesday),
			trade("ETHUSDT", -5, wednesday),
		},
		Now: now,
	}
	res := Compute(in)

	if len(res.Weekdays) != 7 {
		t.Fatalf("expected 7 weekday buckets, got %d", len(res.Weekdays))
	}
	if res.Weekdays[0].Day != "Sun" || res.Weekdays[6].Day != "Sat" {
		t.Errorf("buckets must run Sun..Sat, got %s..%s",
			res.Weekdays[0].Day, res.Weekdays[6].Day)
	}
	if !res.Weekdays[0].PnL.Equal(d(10)) {
		t.Errorf("Sunday bucket %s, want 10", res.Weekdays[0].PnL)
	}
	if !res.Weekdays[3].PnL.Equal(d(15)) {
		t.Errorf("Wednesday bucket %s, want 15", res.Weekdays[3].PnL)
	}
	if !res.Weekdays[6].PnL.IsZero() {
		t.Errorf("Saturday bucket should be zero, got %s", res.Weekdays[6].PnL)
	}
}

func TestCompute_AssetBreakdownSortedByPnL(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	in := Input{
		Account: account(1000),
		ClosedTrades: []model.Trade{
			trade("BTCUSDT", 50, day),
			trade("ETHUSDT", 120, day),
			trade("BTCUSDT", -10, day),
			trade("SOLUSDT", -30, day),
		},
		Now: now,
	}
	res := Compute(in)

	if len(res.Assets) != 3 {
		t.Fatalf("expected 3 assets, got %d", len(res.Assets))
	}
	if res.Assets[0].Symbol != "ETHUSDT" || res.Assets[1].Symbol != "BTCUSDT" || res.Assets[2].Symbol != "SOLUSDT" {
		t.Errorf("assets not sorted by descending pnl: %v", res.Assets)
	}

	btc := res.Assets[1]
	if btc.Trades != 2 || btc.Wins != 1 {
		t.Errorf("expected BTCUSDT 2 trades / 1 win, got %d/%d", btc.Trades, btc.Wins)
	}
	if !btc.WinRate.Equal(d(50)) {
		t.Errorf("expected BTCUSDT win rate 50, got %s", btc.WinRate)
	}
}

// --- Supplementary counts ---

func TestCompute_ActivityCountsUseFullTradeSet(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	open := model.Trade{Symbol: "BTCUSDT", Status: model.StatusOpen}
	child := model.Trade{Symbol: "BTCUSDT", Status: model.StatusClosed, ParentID: "p1", ClosedAt: day}
	closed := trade("BTCUSDT", 10, day)

	in := Input{
		Account:      account(1000),
		ClosedTrades: []model.Trade{closed},
		AllTrades:    []model.Trade{open, child, closed},
		Now:          now,
	}
	res := Compute(in)

	if res.Summary.TotalTrades != 3 {
		t.Errorf("total trades from full set: got %d, want 3", res.Summary.TotalTrades)
	}
	if res.Summary.ParentTrades != 2 {
		t.Errorf("parent trades (no parent id): got %d, want 2", res.Summary.ParentTrades)
	}
	if res.Summary.TotalEvents != 1 {
		t.Errorf("pnl events come from closed trades only: got %d", res.Summary.TotalEvents)
	}
}

func TestCompute_ActiveHoldingsValuation(t *testing.T) {
	in := Input{
		Account: account(1000),
		ActiveHoldings: []model.Holding{
			{Asset: "BTC", Quantity: d(0.5), AvgEntryPrice: d(60000)},
			{Asset: "ETH", Quantity: d(2), AvgEntryPrice: d(3000)},
			{Asset: "BTC", Quantity: d(0.1), AvgEntryPrice: d(50000)},
		},
		Now: now,
	}
	res := Compute(in)

	// 0.5*60000 + 2*3000 + 0.1*50000 = 41000, across 2 distinct assets.
	if res.Summary.ActiveHoldingsValue != "41000.00" {
		t.Errorf("expected active value 41000.00, got %s", res.Summary.ActiveHoldingsValue)
	}
	if res.Summary.ActiveAssets != 2 {
		t.Errorf("expected 2 distinct active assets, got %d", res.Summary.ActiveAssets)
	}
}

func TestCompute_ElapsedDays(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		trades []model.Trade
		want   int
	}{
		{"no events", nil, 0},
		{"single event", []model.Trade{trade("BTCUSDT", 1, day)}, 1},
		{"same day", []model.Trade{trade("BTCUSDT", 1, day), trade("BTCUSDT", 2, day.Add(3*time.Hour))}, 1},
		{"partial day rounds up", []model.Trade{trade("BTCUSDT", 1, day), trade("BTCUSDT", 2, day.Add(36*time.Hour))}, 2},
		{"exact span", []model.Trade{trade("BTCUSDT", 1, day), trade("BTCUSDT", 2, day.Add(10*24*time.Hour))}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Compute(Input{Account: account(1000), ClosedTrades: tt.trades, Now: now})
			if res.Summary.ElapsedDays != tt.want {
				t.Errorf("elapsed days %d, want %d", res.Summary.ElapsedDays, tt.want)
			}
		})
	}
}

// --- Per-type subtotals ---

func TestCompute_PerTypeSubtotals(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	in := Input{
		Account:      account(1000),
		ClosedTrades: []model.Trade{trade("BTCUSDT", 40, day)},
		ClosedGrids:  []model.GridStrategy{grid("ETHUSDT", 25, day)},
		SoldHoldings: []model.Holding{soldHolding("SOL", 10, 15, 4, day)}, // +20
		Now:          now,
	}
	res := Compute(in)
	s := res.Summary

	if s.TradePnL != "40.00" || s.GridPnL != "25.00" || s.HoldingPnL != "20.00" {
		t.Errorf("per-type subtotals %s/%s/%s, want 40.00/25.00/20.00",
			s.TradePnL, s.GridPnL, s.HoldingPnL)
	}
}

// --- Determinism ---

func TestCompute_Idempotent(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	in := Input{
		Account: account(1000),
		ClosedTrades: []model.Trade{
			trade("BTCUSDT", 100, day),
			trade("ETHUSDT", -30, day.Add(time.Hour)),
		},
		ClosedGrids: []model.GridStrategy{grid("BTCUSDT", 12, day)},
		Now:         now,
	}

	first := Compute(in)
	second := Compute(in)

	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs with identical Now should yield identical results")
	}
}
