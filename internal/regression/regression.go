// Package regression implements ordinary least squares fitting over daily
// time series and depletion-date projection from fitted lines.
//
// The engine is deliberately small: it fits a straight line to
// (day-offset, value) points and, for declining stock trends, projects the
// date at which the modeled quantity crosses zero. It does no smoothing,
// no de-noising, and no forecasting beyond linear extrapolation.
//
// All functions are pure and referentially transparent. Degenerate inputs
// (fewer than two points, zero x-variance) yield a nil result rather than
// a numeric fault — NaN and Inf never escape this package.
package regression

import (
	"math"
	"time"
)

// Point is one observation: a timestamp and the value measured on it.
type Point struct {
	Date  time.Time
	Value float64
}

// Result is a fitted line y = Slope*x + Intercept, where x counts whole
// days from Reference. Reference is carried for downstream date arithmetic.
type Result struct {
	Slope     float64
	Intercept float64
	RSquared  float64
	Reference time.Time
}

// DaysBetween returns the whole number of days from ref to t, signed and
// truncated toward zero.
func DaysBetween(ref, t time.Time) int {
	return int(t.Sub(ref).Hours() / 24)
}

// Fit computes an ordinary least squares line over the given points with
// reference as the time origin (x = 0).
//
// Returns nil when fewer than two points are supplied, or when all x
// values coincide (zero x-variance would divide by zero).
//
// RSquared is 1 − ssResidual/ssTotal. When ssTotal is zero (all y values
// identical) RSquared is defined as 0, not 1 — a constant series carries
// no explanatory power. This convention is load-bearing for callers.
func Fit(points []Point, reference time.Time) *Result {
	n := len(points)
	if n < 2 {
		return nil
	}

	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for _, p := range points {
		x := float64(DaysBetween(reference, p.Date))
		y := p.Value

		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
		sumY2 += y * y
	}

	fn := float64(n)
	denom := fn*sumX2 - sumX*sumX
	if denom == 0 {
		// All points on the same day: a line is undefined.
		return nil
	}

	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	yMean := sumY / fn
	ssTotal := sumY2 - fn*yMean*yMean

	var ssResidual float64
	for _, p := range points {
		x := float64(DaysBetween(reference, p.Date))
		residual := p.Value - (slope*x + intercept)
		ssResidual += residual * residual
	}

	rSquared := 0.0
	if ssTotal != 0 {
		rSquared = 1 - ssResidual/ssTotal
	}

	return &Result{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  rSquared,
		Reference: reference,
	}
}

// EstimateDepletion projects the date at which a declining fitted line
// reaches zero: Reference + ceil(-Intercept/Slope) days.
//
// Returns nil for non-declining trends (Slope >= 0) and for lines whose
// zero crossing already precedes the reference date — an already-depleted
// model does not get a future date.
func EstimateDepletion(r *Result) *time.Time {
	if r == nil || r.Slope >= 0 {
		return nil
	}

	daysToZero := -r.Intercept / r.Slope
	if daysToZero < 0 {
		return nil
	}

	depletion := r.Reference.AddDate(0, 0, int(math.Ceil(daysToZero)))
	return &depletion
}
