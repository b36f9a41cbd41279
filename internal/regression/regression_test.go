package regression

import (
	"math"
	"testing"
	"time"
)

var base = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

// day returns base + n days.
func day(n int) time.Time {
	return base.AddDate(0, 0, n)
}

func pts(values ...float64) []Point {
	points := make([]Point, 0, len(values))
	for i, v := range values {
		points = append(points, Point{Date: day(i), Value: v})
	}
	return points
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// --- Fit tests ---

func TestFit_PerfectlyLinearDecline(t *testing.T) {
	// stock = 100, 90, 80, 70 on days 0-3
	r := Fit(pts(100, 90, 80, 70), base)
	if r == nil {
		t.Fatal("expected a fit, got nil")
	}
	if !closeTo(r.Slope, -10) {
		t.Errorf("expected slope -10, got %f", r.Slope)
	}
	if !closeTo(r.Intercept, 100) {
		t.Errorf("expected intercept 100, got %f", r.Intercept)
	}
	if !closeTo(r.RSquared, 1.0) {
		t.Errorf("expected rSquared 1.0, got %f", r.RSquared)
	}
	if !r.Reference.Equal(base) {
		t.Errorf("result should carry the reference date, got %v", r.Reference)
	}
}

func TestFit_ConstantSeries(t *testing.T) {
	// All y identical: slope 0 and, by convention, rSquared 0 — not 1.
	r := Fit(pts(5, 5, 5), base)
	if r == nil {
		t.Fatal("expected a fit, got nil")
	}
	if !closeTo(r.Slope, 0) {
		t.Errorf("expected slope 0, got %f", r.Slope)
	}
	if r.RSquared != 0 {
		t.Errorf("constant series must have rSquared 0, got %f", r.RSquared)
	}
}

func TestFit_TooFewPoints(t *testing.T) {
	if r := Fit(nil, base); r != nil {
		t.Errorf("expected nil for empty input, got %+v", r)
	}
	if r := Fit(pts(42), base); r != nil {
		t.Errorf("expected nil for a single point, got %+v", r)
	}
}

func TestFit_ZeroXVariance(t *testing.T) {
	// Two observations on the same day: the OLS denominator is zero and
	// the fit must be refused, not computed as NaN/Inf.
	points := []Point{
		{Date: day(0).Add(9 * time.Hour), Value: 10},
		{Date: day(0).Add(17 * time.Hour), Value: 20},
	}
	if r := Fit(points, base); r != nil {
		t.Errorf("expected nil for zero x-variance, got %+v", r)
	}
}

func TestFit_NoisySeriesRSquaredInRange(t *testing.T) {
	r := Fit(pts(10, 14, 11, 17, 16, 21), base)
	if r == nil {
		t.Fatal("expected a fit, got nil")
	}
	if r.Slope <= 0 {
		t.Errorf("series trends upward, expected positive slope, got %f", r.Slope)
	}
	if r.RSquared <= 0 || r.RSquared >= 1 {
		t.Errorf("expected rSquared in (0,1) for noisy data, got %f", r.RSquared)
	}
	if math.IsNaN(r.Slope) || math.IsNaN(r.Intercept) || math.IsNaN(r.RSquared) {
		t.Error("fit produced NaN")
	}
}

func TestFit_NegativeXOffsets(t *testing.T) {
	// Reference after the observations: x values are negative, the line
	// is the same.
	points := []Point{
		{Date: day(0), Value: 100},
		{Date: day(1), Value: 90},
		{Date: day(2), Value: 80},
	}
	r := Fit(points, day(2))
	if r == nil {
		t.Fatal("expected a fit, got nil")
	}
	if !closeTo(r.Slope, -10) {
		t.Errorf("expected slope -10, got %f", r.Slope)
	}
	if !closeTo(r.Intercept, 80) {
		t.Errorf("expected intercept 80 at the shifted origin, got %f", r.Intercept)
	}
}

// --- DaysBetween tests ---

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want int
	}{
		{"same instant", base, 0},
		{"three days later", day(3), 3},
		{"two days earlier", day(-2), -2},
		{"partial day truncates", base.Add(36 * time.Hour), 1},
		{"negative partial day truncates toward zero", base.Add(-36 * time.Hour), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysBetween(base, tt.t); got != tt.want {
				t.Errorf("DaysBetween = %d, want %d", got, tt.want)
			}
		})
	}
}

// --- Depletion estimation tests ---

func TestEstimateDepletion_DecliningStock(t *testing.T) {
	// stock 10, 5, 0 on days 0,1,2 → slope -5, intercept 10 → zero at day 2.
	r := Fit(pts(10, 5, 0), base)
	if r == nil {
		t.Fatal("expected a fit, got nil")
	}
	if !closeTo(r.Slope, -5) || !closeTo(r.Intercept, 10) {
		t.Fatalf("unexpected fit: slope=%f intercept=%f", r.Slope, r.Intercept)
	}

	depletion := EstimateDepletion(r)
	if depletion == nil {
		t.Fatal("expected a depletion date, got nil")
	}
	if !depletion.Equal(day(2)) {
		t.Errorf("expected depletion on %v, got %v", day(2), depletion)
	}
}

func TestEstimateDepletion_RoundsUpPartialDays(t *testing.T) {
	// Zero crossing at x = 10/3 ≈ 3.33 → reported as day 4.
	r := &Result{Slope: -3, Intercept: 10, Reference: base}
	depletion := EstimateDepletion(r)
	if depletion == nil {
		t.Fatal("expected a depletion date, got nil")
	}
	if !depletion.Equal(day(4)) {
		t.Errorf("expected depletion on %v, got %v", day(4), depletion)
	}
}

func TestEstimateDepletion_NonDecliningSlope(t *testing.T) {
	for _, slope := range []float64{0, 0.5, 12} {
		r := &Result{Slope: slope, Intercept: 10, Reference: base}
		if d := EstimateDepletion(r); d != nil {
			t.Errorf("slope %f should yield no depletion date, got %v", slope, d)
		}
	}
}

func TestEstimateDepletion_AlreadyCrossedZero(t *testing.T) {
	// Negative intercept with negative slope: the model crossed zero
	// before the reference date, so no future date is projected.
	r := &Result{Slope: -5, Intercept: -10, Reference: base}
	if d := EstimateDepletion(r); d != nil {
		t.Errorf("expected nil for a pre-reference zero crossing, got %v", d)
	}
}

func TestEstimateDepletion_NilFit(t *testing.T) {
	if d := EstimateDepletion(nil); d != nil {
		t.Errorf("expected nil for nil fit, got %v", d)
	}
}
