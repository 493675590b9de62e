// Package analytics folds a user's closed trades, closed grid
// strategies, and sold holdings into a unified equity curve, drawdown
// series, and performance breakdowns.
//
// Compute is pure: "now" is an explicit input (the trailing 30-day and
// 24-hour windows depend on it) and identical inputs always yield
// identical output. All monetary values use shopspring/decimal — never
// float64 for money. Summary figures are formatted to fixed decimal
// strings only at the very end; intermediate math keeps full precision
// so rounding error never compounds across the fold.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradelog/journal-engine/internal/model"
)

var (
	hundred = decimal.NewFromInt(100)

	// profitFactorCap stands in for "undefined but positive" when there
	// are wins and no losses. Preserved from the reference behavior;
	// a modeling choice, not a principled figure.
	profitFactorCap = decimal.NewFromInt(99)
)

var weekdayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Input carries everything the aggregator consumes. ClosedTrades,
// ClosedGrids, and SoldHoldings feed the P&L statistics; AllTrades
// feeds the activity counts (total and parent trades — deliberately a
// wider set than the settled-performance one); ActiveHoldings feeds the
// open-position valuation.
type Input struct {
	Account        *model.Account
	ClosedTrades   []model.Trade
	AllTrades      []model.Trade
	ClosedGrids    []model.GridStrategy
	SoldHoldings   []model.Holding
	ActiveHoldings []model.Holding

	// Now anchors the trailing 30-day and 24-hour windows.
	Now time.Time
}

// Summary holds the headline statistics. Monetary fields are fixed
// 2-decimal strings, percentage fields fixed 1-decimal strings.
type Summary struct {
	TotalTrades  int `json:"total_trades"`
	ParentTrades int `json:"parent_trades"`
	TotalEvents  int `json:"total_events"`
	Winners      int `json:"winners"`
	Losers       int `json:"losers"`

	WinRate      string `json:"win_rate"`      // percent
	ProfitFactor string `json:"profit_factor"`
	TotalPnL     string `json:"total_pnl"`
	GrossProfit  string `json:"gross_profit"`
	GrossLoss    string `json:"gross_loss"`
	AvgWin       string `json:"avg_win"`
	AvgLoss      string `json:"avg_loss"`
	MaxDrawdown  string `json:"max_drawdown"` // percent

	MonthlyPnL    string `json:"monthly_pnl"`
	DailyPnL      string `json:"daily_pnl"`
	MonthlyReturn string `json:"monthly_return"` // percent

	TradePnL   string `json:"trade_pnl"`
	GridPnL    string `json:"grid_pnl"`
	HoldingPnL string `json:"holding_pnl"`

	ActiveHoldingsValue string `json:"active_holdings_value"`
	ActiveAssets        int    `json:"active_assets"`
	ElapsedDays         int    `json:"elapsed_days"`
}

// Result is the full analytics payload.
type Result struct {
	Summary     Summary                  `json:"summary"`
	EquityCurve []model.EquityPoint      `json:"equity_curve"`
	Assets      []model.AssetPerformance `json:"assets"`
	Weekdays    []model.DayPerformance   `json:"weekdays"`
	Events      []model.PnLEvent         `json:"events"`
}

// Compute aggregates the journal records into an AnalyticsResult.
// Returns nil when the account cannot be resolved — a recoverable "no
// data" condition, not an error.
func Compute(in Input) *Result {
	if in.Account == nil {
		return nil
	}

	events := buildEventStream(in)

	// Partition into winners and losers; zero-pnl events count toward
	// totals but neither bucket.
	var winners, losers int
	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	for _, e := range events {
		switch {
		case e.PnL.IsPositive():
			winners++
			grossProfit = grossProfit.Add(e.PnL)
		case e.PnL.IsNegative():
			losers++
			grossLoss = grossLoss.Add(e.PnL.Abs())
		}
	}
	totalPnL := grossProfit.Sub(grossLoss)

	winRate := decimal.Zero
	if len(events) > 0 {
		winRate = decimal.NewFromInt(int64(winners)).
			Div(decimal.NewFromInt(int64(len(events)))).Mul(hundred)
	}

	profitFactor := decimal.Zero
	switch {
	case grossLoss.IsPositive():
		profitFactor = grossProfit.Div(grossLoss)
	case grossProfit.IsPositive():
		profitFactor = profitFactorCap
	}

	avgWin := decimal.Zero
	if winners > 0 {
		avgWin = grossProfit.Div(decimal.NewFromInt(int64(winners)))
	}
	avgLoss := decimal.Zero
	if losers > 0 {
		avgLoss = grossLoss.Div(decimal.NewFromInt(int64(losers)))
	}

	// Equity curve with running-maximum drawdown tracking.
	curve := make([]model.EquityPoint, 0, len(events)+1)
	curve = append(curve, model.EquityPoint{
		Label:   "Start",
		Balance: in.Account.InitialBalance,
		PnL:     decimal.Zero,
	})

	balance := in.Account.InitialBalance
	maxBalance := in.Account.InitialBalance
	maxDrawdown := decimal.Zero
	for _, e := range events {
		balance = balance.Add(e.PnL)
		if balance.GreaterThan(maxBalance) {
			maxBalance = balance
		}
		if maxBalance.IsPositive() {
			dd := maxBalance.Sub(balance).Div(maxBalance).Mul(hundred)
			if dd.GreaterThan(maxDrawdown) {
				maxDrawdown = dd
			}
		}
		curve = append(curve, model.EquityPoint{
			Label:   e.Date.Format("Jan 2"),
			Balance: balance,
			PnL:     e.PnL,
		})
	}

	// Trailing windows relative to the injected clock.
	monthCutoff := in.Now.Add(-30 * 24 * time.Hour)
	dayCutoff := in.Now.Add(-24 * time.Hour)
	monthlyPnL := decimal.Zero
	dailyPnL := decimal.Zero
	preWindowBalance := in.Account.InitialBalance
	for _, e := range events {
		if e.Date.After(monthCutoff) {
			monthlyPnL = monthlyPnL.Add(e.PnL)
		} else {
			preWindowBalance = preWindowBalance.Add(e.PnL)
		}
		if e.Date.After(dayCutoff) {
			dailyPnL = dailyPnL.Add(e.PnL)
		}
	}
	monthlyReturn := decimal.Zero
	if preWindowBalance.IsPositive() {
		monthlyReturn = monthlyPnL.Div(preWindowBalance).Mul(hundred)
	}

	// Day-of-week buckets, fixed Sun..Sat order.
	weekdays := make([]model.DayPerformance, 7)
	for i := range weekdays {
		weekdays[i] = model.DayPerformance{Day: weekdayNames[i], PnL: decimal.Zero}
	}
	for _, e := range events {
		idx := int(e.Date.Weekday())
		weekdays[idx].PnL = weekdays[idx].PnL.Add(e.PnL)
	}

	assets := assetBreakdown(events)

	// Per-type subtotals.
	tradePnL := decimal.Zero
	gridPnL := decimal.Zero
	holdingPnL := decimal.Zero
	for _, e := range events {
		switch e.Type {
		case model.EventTrade:
			tradePnL = tradePnL.Add(e.PnL)
		case model.EventGrid:
			gridPnL = gridPnL.Add(e.PnL)
		case model.EventHolding:
			holdingPnL = holdingPnL.Add(e.PnL)
		}
	}

	// Activity counts come from the full trade set, not just closed
	// trades: settled performance and raw activity are distinct.
	parentTrades := 0
	for _, t := range in.AllTrades {
		if t.ParentID == "" {
			parentTrades++
		}
	}

	activeValue := decimal.Zero
	activeAssets := make(map[string]struct{})
	for _, h := range in.ActiveHoldings {
		activeValue = activeValue.Add(h.Quantity.Mul(h.AvgEntryPrice))
		activeAssets[h.Asset] = struct{}{}
	}

	return &Result{
		Summary: Summary{
			TotalTrades:  len(in.AllTrades),
			ParentTrades: parentTrades,
			TotalEvents:  len(events),
			Winners:      winners,
			Losers:       losers,

			WinRate:      winRate.StringFixed(1),
			ProfitFactor: profitFactor.StringFixed(2),
			TotalPnL:     totalPnL.StringFixed(2),
			GrossProfit:  grossProfit.StringFixed(2),
			GrossLoss:    grossLoss.StringFixed(2),
			AvgWin:       avgWin.StringFixed(2),
			AvgLoss:      avgLoss.StringFixed(2),
			MaxDrawdown:  maxDrawdown.StringFixed(1),

			MonthlyPnL:    monthlyPnL.StringFixed(2),
			DailyPnL:      dailyPnL.StringFixed(2),
			MonthlyReturn: monthlyReturn.StringFixed(1),

			TradePnL:   tradePnL.StringFixed(2),
			GridPnL:    gridPnL.StringFixed(2),
			HoldingPnL: holdingPnL.StringFixed(2),

			ActiveHoldingsValue: activeValue.StringFixed(2),
			ActiveAssets:        len(activeAssets),
			ElapsedDays:         elapsedDays(events),
		},
		EquityCurve: curve,
		Assets:      assets,
		Weekdays:    weekdays,
		Events:      events,
	}
}

// buildEventStream maps the three record sets to the common event shape
// and sorts ascending by date. The sort is stable and sources are
// appended trades→grids→holdings, so ties preserve that order and each
// source's original order.
func buildEventStream(in Input) []model.PnLEvent {
	events := make([]model.PnLEvent, 0,
		len(in.ClosedTrades)+len(in.ClosedGrids)+len(in.SoldHoldings))

	for _, t := range in.ClosedTrades {
		events = append(events, model.PnLEvent{
			Type:   model.EventTrade,
			Symbol: t.Symbol,
			PnL:    t.NetPnL,
			Date:   t.ClosedAt,
		})
	}
	for _, g := range in.ClosedGrids {
		events = append(events, model.PnLEvent{
			Type:   model.EventGrid,
			Symbol: g.Symbol,
			PnL:    g.TotalProfit,
			Date:   g.UpdatedAt,
		})
	}
	for _, h := range in.SoldHoldings {
		// Missing exit or entry prices are zero values and contribute
		// zero to the product's respective term.
		pnl := h.ExitPrice.Sub(h.AvgEntryPrice).Mul(h.Quantity)
		events = append(events, model.PnLEvent{
			Type:   model.EventHolding,
			Symbol: h.Asset,
			PnL:    pnl,
			Date:   h.UpdatedAt,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events
}

// assetBreakdown groups events by symbol and sorts by descending net
// P&L.
func assetBreakdown(events []model.PnLEvent) []model.AssetPerformance {
	bysym := make(map[string]*model.AssetPerformance)
	order := make([]string, 0)

	for _, e := range events {
		ap, ok := bysym[e.Symbol]
		if !ok {
			ap = &model.AssetPerformance{Symbol: e.Symbol}
			bysym[e.Symbol] = ap
			order = append(order, e.Symbol)
		}
		ap.PnL = ap.PnL.Add(e.PnL)
		ap.Trades++
		if e.PnL.IsPositive() {
			ap.Wins++
		}
	}

	assets := make([]model.AssetPerformance, 0, len(order))
	for _, sym := range order {
		ap := bysym[sym]
		if ap.Trades > 0 {
			ap.WinRate = decimal.NewFromInt(int64(ap.Wins)).
				Div(decimal.NewFromInt(int64(ap.Trades))).Mul(hundred)
		}
		assets = append(assets, *ap)
	}

	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].PnL.GreaterThan(assets[j].PnL)
	})
	return assets
}

// elapsedDays is the inclusive day span of the event stream, rounded
// up to whole days, with a floor of one day when any event exists.
func elapsedDays(events []model.PnLEvent) int {
	if len(events) == 0 {
		return 0
	}
	first := events[0].Date
	last := events[len(events)-1].Date
	days := int(math.Ceil(last.Sub(first).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days
}
