package series

import (
	"sort"
	"time"

	"github.com/ecmsp/statistics-service/internal/model"
	"github.com/ecmsp/statistics-service/internal/regression"
)

// Segment is a fitted line over one sub-interval of a query range.
// [ValidFrom, ValidTo) is half-open except the final segment in a range,
// whose ValidTo is the end-of-day close of the range.
type Segment struct {
	ValidFrom          time.Time
	ValidTo            time.Time
	Slope              float64
	Intercept          float64
	RSquared           float64
	EstimatedDepletion *time.Time
}

// SalesSegments partitions the daily sales series at stock-out breakpoints
// and fits one line per regime.
//
// A breakpoint is a date whose authoritative stock reading is exactly zero
// while the previous reading was positive. Boundaries run from start-of-day
// of the earliest sale date to end-of-day of the latest. Segments with
// fewer than two data points contribute nothing.
func SalesSegments(daily []DailyAggregate, sales []model.SaleEvent) []Segment {
	if len(daily) == 0 {
		return nil
	}

	breakpoints := stockOutDates(sales)

	boundaries := make([]time.Time, 0, len(breakpoints)+2)
	boundaries = append(boundaries, daily[0].Date)
	boundaries = append(boundaries, breakpoints...)
	boundaries = append(boundaries, EndOfDay(daily[len(daily)-1].Date))

	var segments []Segment
	for i := 0; i < len(boundaries)-1; i++ {
		start, end := boundaries[i], boundaries[i+1]

		var points []regression.Point
		for _, agg := range daily {
			if !agg.Date.Before(start) && agg.Date.Before(end) {
				points = append(points, regression.Point{
					Date:  agg.Date,
					Value: float64(agg.Quantity),
				})
			}
		}

		if fit := regression.Fit(points, start); fit != nil {
			segments = append(segments, Segment{
				ValidFrom: start,
				ValidTo:   end,
				Slope:     fit.Slope,
				Intercept: fit.Intercept,
				RSquared:  fit.RSquared,
			})
		}
	}
	return segments
}

// stockOutDates scans the ordered authoritative-reading subsequence pairwise
// and returns the start-of-day dates where a reading transitions from
// positive to exactly zero.
func stockOutDates(sales []model.SaleEvent) []time.Time {
	ordered := make([]model.SaleEvent, len(sales))
	copy(ordered, sales)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OccurredAt.Before(ordered[j].OccurredAt)
	})

	readingByDate := make(map[time.Time]int)
	var dates []time.Time
	for _, sale := range ordered {
		if sale.StockRemaining == nil {
			continue
		}
		date := Day(sale.OccurredAt)
		if _, seen := readingByDate[date]; !seen {
			dates = append(dates, date)
		}
		// Last reading of the day wins.
		readingByDate[date] = *sale.StockRemaining
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var stockOuts []time.Time
	for i := 1; i < len(dates); i++ {
		prev := readingByDate[dates[i-1]]
		cur := readingByDate[dates[i]]
		if prev > 0 && cur == 0 {
			stockOuts = append(stockOuts, dates[i])
		}
	}
	return stockOuts
}

// StockSegments partitions the stock series at every delivery timestamp and
// fits one line per regime, attaching a depletion estimate to each fit.
//
// Boundaries run [from, delivery₁, delivery₂, …, to]; duplicate delivery
// timestamps are retained and simply produce segments that the <2-point
// rule drops.
func StockSegments(points []StockPoint, deliveries []model.DeliveryEvent, from, to time.Time) []Segment {
	deliveryTimes := make([]time.Time, 0, len(deliveries))
	for _, d := range deliveries {
		deliveryTimes = append(deliveryTimes, d.DeliveredAt)
	}
	sort.Slice(deliveryTimes, func(i, j int) bool {
		return deliveryTimes[i].Before(deliveryTimes[j])
	})

	boundaries := make([]time.Time, 0, len(deliveryTimes)+2)
	boundaries = append(boundaries, from)
	boundaries = append(boundaries, deliveryTimes...)
	boundaries = append(boundaries, to)

	var segments []Segment
	for i := 0; i < len(boundaries)-1; i++ {
		start, end := boundaries[i], boundaries[i+1]

		var segPoints []regression.Point
		for _, p := range points {
			if !p.Date.Before(start) && p.Date.Before(end) {
				segPoints = append(segPoints, regression.Point{
					Date:  p.Date,
					Value: float64(p.Level),
				})
			}
		}

		if fit := regression.Fit(segPoints, start); fit != nil {
			segments = append(segments, Segment{
				ValidFrom:          start,
				ValidTo:            end,
				Slope:              fit.Slope,
				Intercept:          fit.Intercept,
				RSquared:           fit.RSquared,
				EstimatedDepletion: regression.EstimateDepletion(fit),
			})
		}
	}
	return segments
}
