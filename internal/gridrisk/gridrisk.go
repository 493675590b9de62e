// Package gridrisk computes position sizing, margin reservation, and
// liquidation thresholds for futures grid-trading strategies.
//
// The calculator is a pure function over its inputs:
//   - Position size and grid step follow directly from the grid bounds,
//     grid count, investment, and leverage.
//   - The reserve rate scales with grid density, leverage, and range
//     width as independent risk contributors, clamped to [0.10, 0.35].
//   - Liquidation prices use a one-sided approximation, not a full
//     cross-margin model.
//
// All monetary values use shopspring/decimal — never float64 for money.
// The one transcendental step (square root for the geometric-mean entry
// price) goes through float64 and is immediately converted back.
package gridrisk

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidInput is returned when inputs are malformed (zero grid
	// count, zero leverage, non-positive or inverted price bounds).
	// Rejected before any computation runs so NaN/Infinity never
	// propagates into a result.
	ErrInvalidInput = errors.New("gridrisk: invalid input")

	// ErrInsufficientMargin is returned when the usable margin cannot
	// cover the maintenance margin.
	ErrInsufficientMargin = errors.New("gridrisk: usable margin does not cover maintenance margin")

	// ErrMarginExceedsInvestment is returned when the reserved margin
	// drove the usable margin negative.
	ErrMarginExceedsInvestment = errors.New("gridrisk: reserved margin exceeds investment")
)

// Position sides.
const (
	SideLong    = "LONG"
	SideShort   = "SHORT"
	SideNeutral = "NEUTRAL" // compute both liquidation prices
)

// Reserve rate bounds and coefficients.
var (
	minReserveRate  = decimal.NewFromFloat(0.10)
	maxReserveRate  = decimal.NewFromFloat(0.35)
	baseReserveRate = decimal.NewFromFloat(0.08)
	gridRateDivisor = decimal.NewFromInt(600)
	levRateDivisor  = decimal.NewFromInt(25)
	widthRateWeight = decimal.NewFromFloat(0.5)
)

type reserveFunding int

const (
	fundAuto reserveFunding = iota // reserve drawn from the investment itself
	fundManualAmount               // fixed amount from an external balance
	fundManualBalance              // rate-scaled slice of an external balance
	fundManualUnfunded             // no reserve at all
)

// ReservePlan selects how the reserve margin is funded. Construct one
// with AutoReserve, ManualReserve, ManualFromBalance, or ManualUnfunded;
// the zero value behaves like AutoReserve.
type ReservePlan struct {
	funding reserveFunding
	amount  decimal.Decimal
	balance decimal.Decimal
}

// AutoReserve draws the reserve from the investment itself:
// reservedMargin = investment * reserveRate, and the usable margin
// shrinks accordingly.
func AutoReserve() ReservePlan {
	return ReservePlan{funding: fundAuto}
}

// ManualReserve sets aside a fixed amount, used verbatim. The amount is
// charged against the investment when checking margin sufficiency.
func ManualReserve(amount decimal.Decimal) ReservePlan {
	return ReservePlan{funding: fundManualAmount, amount: amount}
}

// ManualFromBalance reserves min(available * reserveRate, available)
// from an external balance.
func ManualFromBalance(available decimal.Decimal) ReservePlan {
	return ReservePlan{funding: fundManualBalance, balance: available}
}

// ManualUnfunded reserves nothing; the investment stays fully usable.
func ManualUnfunded() ReservePlan {
	return ReservePlan{funding: fundManualUnfunded}
}

// Inputs are the grid parameters supplied by the caller.
type Inputs struct {
	LowerPrice decimal.Decimal
	UpperPrice decimal.Decimal
	GridCount  int64
	Investment decimal.Decimal
	Leverage   decimal.Decimal

	// MaintenanceMarginRate must be in [0, 1).
	MaintenanceMarginRate decimal.Decimal

	Reserve ReservePlan
	Side    string

	// EntryPrice defaults to the geometric mean of the bounds when zero.
	EntryPrice decimal.Decimal
}

// Result is the computed risk profile. It has no persisted identity and
// is produced fresh per invocation, owned solely by the caller.
type Result struct {
	EntryPrice        decimal.Decimal  `json:"entry_price"`
	GridStep          decimal.Decimal  `json:"grid_step"`
	PositionSize      decimal.Decimal  `json:"position_size"`
	MaintenanceMargin decimal.Decimal  `json:"maintenance_margin"`
	ReservedMargin    decimal.Decimal  `json:"reserved_margin"`
	UsableMargin      decimal.Decimal  `json:"usable_margin"`
	ReserveRate       decimal.Decimal  `json:"reserve_rate"`
	LongLiquidation   *decimal.Decimal `json:"long_liquidation,omitempty"`
	ShortLiquidation  *decimal.Decimal `json:"short_liquidation,omitempty"`
	Warnings          []string         `json:"warnings"`
}

// Compute derives the full risk profile from grid parameters.
// Deterministic, no side effects.
func Compute(in Inputs) (*Result, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	one := decimal.NewFromInt(1)

	// Entry price: provided, else geometric mean sqrt(lower * upper).
	entry := in.EntryPrice
	if entry.IsZero() {
		product := in.LowerPrice.Mul(in.UpperPrice)
		root := math.Sqrt(product.InexactFloat64())
		if math.IsInf(root, 0) || math.IsNaN(root) {
			return nil, fmt.Errorf("%w: price bounds too large for entry-price derivation", ErrInvalidInput)
		}
		entry = decimal.NewFromFloat(root)
	}

	width := in.UpperPrice.Sub(in.LowerPrice)
	gridCount := decimal.NewFromInt(in.GridCount)
	gridStep := width.Div(gridCount)
	positionSize := in.Investment.Mul(in.Leverage)

	// reserveRate = 0.08 + grids/600 + leverage/25 + (width/entry) * 0.5,
	// clamped to [0.10, 0.35].
	reserveRate := baseReserveRate.
		Add(gridCount.Div(gridRateDivisor)).
		Add(in.Leverage.Div(levRateDivisor)).
		Add(width.Div(entry).Mul(widthRateWeight))
	if reserveRate.LessThan(minReserveRate) {
		reserveRate = minReserveRate
	}
	if reserveRate.GreaterThan(maxReserveRate) {
		reserveRate = maxReserveRate
	}

	var reservedMargin, usableMargin decimal.Decimal
	switch in.Reserve.funding {
	case fundAuto:
		reservedMargin = in.Investment.Mul(reserveRate)
		usableMargin = in.Investment.Sub(reservedMargin)
	case fundManualAmount:
		// A fixed amount is used verbatim and charged against the
		// investment; an oversized reserve drives usable margin
		// negative and fails validation below.
		reservedMargin = in.Reserve.amount
		usableMargin = in.Investment.Sub(reservedMargin)
	case fundManualBalance:
		reservedMargin = in.Reserve.balance.Mul(reserveRate)
		if reservedMargin.GreaterThan(in.Reserve.balance) {
			reservedMargin = in.Reserve.balance
		}
		usableMargin = in.Investment
	case fundManualUnfunded:
		reservedMargin = decimal.Zero
		usableMargin = in.Investment
	}

	maintenanceMargin := positionSize.Mul(in.MaintenanceMarginRate)

	// One-sided liquidation approximation:
	//   LONG:  entry * (1 - 1/leverage + mmr)
	//   SHORT: entry * (1 + 1/leverage - mmr)
	invLeverage := one.Div(in.Leverage)
	var longLiq, shortLiq *decimal.Decimal
	if in.Side == SideLong || in.Side == SideNeutral {
		v := entry.Mul(one.Sub(invLeverage).Add(in.MaintenanceMarginRate))
		longLiq = &v
	}
	if in.Side == SideShort || in.Side == SideNeutral {
		v := entry.Mul(one.Add(invLeverage).Sub(in.MaintenanceMarginRate))
		shortLiq = &v
	}

	// Validate after computing everything, before warnings.
	if usableMargin.IsNegative() {
		return nil, ErrMarginExceedsInvestment
	}
	if usableMargin.LessThanOrEqual(maintenanceMargin) {
		return nil, ErrInsufficientMargin
	}

	// Range-intrusion warnings: a liquidation threshold inside the
	// active grid range is a capital-risk signal the caller must
	// surface to the user.
	warnings := []string{}
	if longLiq != nil && longLiq.GreaterThanOrEqual(in.LowerPrice) {
		warnings = append(warnings, fmt.Sprintf(
			"long liquidation price %s is inside the grid range (>= lower bound %s)",
			longLiq.StringFixed(2), in.LowerPrice.StringFixed(2)))
	}
	if shortLiq != nil && shortLiq.LessThanOrEqual(in.UpperPrice) {
		warnings = append(warnings, fmt.Sprintf(
			"short liquidation price %s is inside the grid range (<= upper bound %s)",
			shortLiq.StringFixed(2), in.UpperPrice.StringFixed(2)))
	}

	return &Result{
		EntryPrice:        entry,
		GridStep:          gridStep,
		PositionSize:      positionSize,
		MaintenanceMargin: maintenanceMargin,
		ReservedMargin:    reservedMargin,
		UsableMargin:      usableMargin,
		ReserveRate:       reserveRate,
		LongLiquidation:   longLiq,
		ShortLiquidation:  shortLiq,
		Warnings:          warnings,
	}, nil
}

func validate(in Inputs) error {
	if in.LowerPrice.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: lower price must be positive", ErrInvalidInput)
	}
	if in.UpperPrice.LessThanOrEqual(in.LowerPrice) {
		return fmt.Errorf("%w: upper price must exceed lower price", ErrInvalidInput)
	}
	if in.GridCount <= 0 {
		return fmt.Errorf("%w: grid count must be positive", ErrInvalidInput)
	}
	if in.Investment.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: investment must be positive", ErrInvalidInput)
	}
	if in.Leverage.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: leverage must be positive", ErrInvalidInput)
	}
	one := decimal.NewFromInt(1)
	if in.MaintenanceMarginRate.IsNegative() || in.MaintenanceMarginRate.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: maintenance margin rate must be in [0, 1)", ErrInvalidInput)
	}
	if in.EntryPrice.IsNegative() {
		return fmt.Errorf("%w: entry price must not be negative", ErrInvalidInput)
	}
	switch in.Side {
	case SideLong, SideShort, SideNeutral:
	default:
		return fmt.Errorf("%w: side must be LONG, SHORT, or NEUTRAL", ErrInvalidInput)
	}
	return nil
}
