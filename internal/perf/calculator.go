// Package perf derives shift performance figures from shift boundaries.
//
// Clock times are encoded by digit concatenation (7:30 becomes 7.30), so the
// figures are deliberately not true elapsed hours. One hour of break is
// always deducted.
package perf

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	ten     = decimal.NewFromInt(10)
	one     = decimal.NewFromInt(1)
	five    = decimal.NewFromInt(5)
)

// BreakHours is subtracted from every encoded shift span.
var BreakHours = one

type Input struct {
	StartedAt     *time.Time
	EndedAt       *time.Time
	HourlyRate    int
	ProducedUnits int
}

type Derived struct {
	HoursWorked   decimal.Decimal
	ExpectedUnits decimal.Decimal
	SurplusUnits  decimal.Decimal
	SurplusHours  decimal.Decimal
}

// EncodeClock returns hour + minute/100 of t in its own location.
func EncodeClock(t time.Time) decimal.Decimal {
	return decimal.NewFromInt(int64(t.Hour())).Add(decimal.NewFromInt(int64(t.Minute())).Div(hundred))
}

// RoundExpected rounds up when the first decimal digit is 5 or more, and
// truncates otherwise: 245.5 -> 246, 245.49 -> 245.
func RoundExpected(raw decimal.Decimal) decimal.Decimal {
	floor := raw.Floor()
	frac := raw.Sub(floor)
	tenth := frac.Mul(ten).Floor()
	if tenth.GreaterThanOrEqual(five) && frac.IsPositive() {
		return floor.Add(one)
	}
	return floor
}

// Compute returns nil when either boundary is missing.
func Compute(in Input) *Derived {
	if in.StartedAt == nil || in.EndedAt == nil {
		return nil
	}

	raw := EncodeClock(*in.EndedAt).Sub(EncodeClock(*in.StartedAt)).Sub(BreakHours)
	if raw.IsNegative() {
		raw = decimal.Zero
	}
	hours := raw.RoundBank(2)

	rate := decimal.NewFromInt(int64(in.HourlyRate))
	expected := RoundExpected(rate.Mul(hours))

	surplus := decimal.NewFromInt(int64(in.ProducedUnits)).Sub(expected).RoundBank(2)

	surplusHours := decimal.Zero
	if in.HourlyRate > 0 {
		surplusHours = surplus.Div(rate).RoundBank(2)
	}

	return &Derived{
		HoursWorked:   hours,
		ExpectedUnits: expected,
		SurplusUnits:  surplus,
		SurplusHours:  surplusHours,
	}
}

// Floats converts the derived figures for storage.
func (d *Derived) Floats() (hours, expected, surplus, surplusHours *float64) {
	if d == nil {
		return nil, nil, nil, nil
	}
	f := func(v decimal.Decimal) *float64 {
		x := v.InexactFloat64()
		return &x
	}
	return f(d.HoursWorked), f(d.ExpectedUnits), f(d.SurplusUnits), f(d.SurplusHours)
}
