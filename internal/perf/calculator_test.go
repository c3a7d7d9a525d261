package perf

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func at(h, m int) *time.Time {
	t := time.Date(2026, 3, 14, h, m, 0, 0, time.UTC)
	return &t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeReferenceShift(t *testing.T) {
	d := Compute(Input{StartedAt: at(7, 0), EndedAt: at(20, 30), HourlyRate: 20, ProducedUnits: 260})
	if d == nil {
		t.Fatal("Compute returned nil")
	}

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"hours", d.HoursWorked, "12.3"},
		{"expected", d.ExpectedUnits, "246"},
		{"surplus", d.SurplusUnits, "14"},
		{"surplus hours", d.SurplusHours, "0.7"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
}

func TestComputeMissingBoundary(t *testing.T) {
	if d := Compute(Input{StartedAt: at(7, 0), HourlyRate: 20}); d != nil {
		t.Errorf("missing end: got %+v, want nil", d)
	}
	if d := Compute(Input{EndedAt: at(7, 0), HourlyRate: 20}); d != nil {
		t.Errorf("missing start: got %+v, want nil", d)
	}
}

func TestComputeClampsShortShift(t *testing.T) {
	d := Compute(Input{StartedAt: at(7, 0), EndedAt: at(7, 30), HourlyRate: 20, ProducedUnits: 3})
	if !d.HoursWorked.IsZero() {
		t.Errorf("hours = %s, want 0", d.HoursWorked)
	}
	if !d.ExpectedUnits.IsZero() {
		t.Errorf("expected = %s, want 0", d.ExpectedUnits)
	}
	if !d.SurplusUnits.Equal(dec("3")) {
		t.Errorf("surplus = %s, want 3", d.SurplusUnits)
	}
}

func TestComputeZeroRate(t *testing.T) {
	d := Compute(Input{StartedAt: at(6, 0), EndedAt: at(10, 0), HourlyRate: 0, ProducedUnits: 9})
	if !d.ExpectedUnits.IsZero() {
		t.Errorf("expected = %s, want 0", d.ExpectedUnits)
	}
	if !d.SurplusHours.IsZero() {
		t.Errorf("surplus hours = %s, want 0", d.SurplusHours)
	}
	if !d.SurplusUnits.Equal(dec("9")) {
		t.Errorf("surplus = %s, want 9", d.SurplusUnits)
	}
}

func TestComputeNegativeSurplus(t *testing.T) {
	// 8:00 -> 12:00 is 3 hours after the break, 60 expected at rate 20.
	d := Compute(Input{StartedAt: at(8, 0), EndedAt: at(12, 0), HourlyRate: 20, ProducedUnits: 50})
	if !d.ExpectedUnits.Equal(dec("60")) {
		t.Errorf("expected = %s, want 60", d.ExpectedUnits)
	}
	if !d.SurplusUnits.Equal(dec("-10")) {
		t.Errorf("surplus = %s, want -10", d.SurplusUnits)
	}
	if !d.SurplusHours.Equal(dec("-0.5")) {
		t.Errorf("surplus hours = %s, want -0.5", d.SurplusHours)
	}
}

func TestRoundExpected(t *testing.T) {
	cases := map[string]string{
		"245.5":  "246",
		"245.49": "245",
		"245.0":  "245",
		"245.99": "246",
		"0.5":    "1",
		"0.45":   "0",
		"12":     "12",
	}
	for in, want := range cases {
		if got := RoundExpected(dec(in)); !got.Equal(dec(want)) {
			t.Errorf("RoundExpected(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestEncodeClockConcatenatesDigits(t *testing.T) {
	if got := EncodeClock(*at(7, 45)); !got.Equal(dec("7.45")) {
		t.Errorf("EncodeClock(7:45) = %s, want 7.45", got)
	}
	if got := EncodeClock(*at(20, 5)); !got.Equal(dec("20.05")) {
		t.Errorf("EncodeClock(20:05) = %s, want 20.05", got)
	}
}

func TestComputeEncodedSpanIsNotElapsedTime(t *testing.T) {
	// 7:45 -> 9:15 encodes to 9.15 - 7.45 - 1 = 0.70 although 1.5h elapsed.
	d := Compute(Input{StartedAt: at(7, 45), EndedAt: at(9, 15), HourlyRate: 10})
	if !d.HoursWorked.Equal(dec("0.7")) {
		t.Errorf("hours = %s, want 0.7", d.HoursWorked)
	}
	if !d.ExpectedUnits.Equal(dec("7")) {
		t.Errorf("expected = %s, want 7", d.ExpectedUnits)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	in := Input{StartedAt: at(6, 17), EndedAt: at(18, 52), HourlyRate: 23, ProducedUnits: 301}
	a, b := Compute(in), Compute(in)
	if !a.HoursWorked.Equal(b.HoursWorked) || !a.ExpectedUnits.Equal(b.ExpectedUnits) ||
		!a.SurplusUnits.Equal(b.SurplusUnits) || !a.SurplusHours.Equal(b.SurplusHours) {
		t.Errorf("Compute not deterministic: %+v vs %+v", a, b)
	}
}

func TestFloats(t *testing.T) {
	d := Compute(Input{StartedAt: at(7, 0), EndedAt: at(20, 30), HourlyRate: 20, ProducedUnits: 260})
	h, e, s, sh := d.Floats()
	if *h != 12.3 || *e != 246 || *s != 14 || *sh != 0.7 {
		t.Errorf("Floats = %v %v %v %v", *h, *e, *s, *sh)
	}

	var nilDerived *Derived
	if h, _, _, _ := nilDerived.Floats(); h != nil {
		t.Error("nil Derived should give nil floats")
	}
}
