package series

import (
	"time"

	"github.com/ecmsp/statistics-service/internal/regression"
)

// StockTrend fits one line over the trailing window [asOf − trendDays, asOf]
// of the stock series, independent of segmentation, and attaches a depletion
// estimate. asOf is a calendar date (start of day). Returns nil when the
// window holds fewer than two points.
func StockTrend(points []StockPoint, trendDays int, asOf time.Time) *Segment {
	if trendDays <= 0 {
		return nil
	}
	windowPoints := make([]regression.Point, 0, len(points))
	windowStart := Day(asOf).AddDate(0, 0, -trendDays)
	for _, p := range points {
		if !p.Date.Before(windowStart) && !p.Date.After(asOf) {
			windowPoints = append(windowPoints, regression.Point{
				Date:  p.Date,
				Value: float64(p.Level),
			})
		}
	}
	return fitWindow(windowPoints, windowStart, EndOfDay(asOf), true)
}

// SalesTrend fits one line over the trailing window of daily sale
// quantities. No depletion estimate is attached — the fitted quantity
// models demand, not stock.
func SalesTrend(daily []DailyAggregate, trendDays int, asOf time.Time) *Segment {
	if trendDays <= 0 {
		return nil
	}
	windowPoints := make([]regression.Point, 0, len(daily))
	windowStart := Day(asOf).AddDate(0, 0, -trendDays)
	for _, agg := range daily {
		if !agg.Date.Before(windowStart) && !agg.Date.After(asOf) {
			windowPoints = append(windowPoints, regression.Point{
				Date:  agg.Date,
				Value: float64(agg.Quantity),
			})
		}
	}
	return fitWindow(windowPoints, windowStart, EndOfDay(asOf), false)
}

func fitWindow(points []regression.Point, windowStart, windowEnd time.Time, withDepletion bool) *Segment {
	fit := regression.Fit(points, windowStart)
	if fit == nil {
		return nil
	}
	seg := &Segment{
		ValidFrom: windowStart,
		ValidTo:   windowEnd,
		Slope:     fit.Slope,
		Intercept: fit.Intercept,
		RSquared:  fit.RSquared,
	}
	if withDepletion {
		seg.EstimatedDepletion = regression.EstimateDepletion(fit)
	}
	return seg
}
