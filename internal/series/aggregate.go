// Package series turns unordered sale and delivery events into daily time
// series and partitions those series into linear regimes.
//
// The pipeline is: events → daily points (AggregateDaily, ReconstructStock)
// → regime segments (SalesSegments, StockSegments) → fitted lines via the
// regression package. Everything here operates on immutable snapshots and
// recomputes from scratch per call — no derived state is cached.
package series

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecmsp/statistics-service/internal/model"
)

// DailyAggregate is one calendar day's sales total: summed quantity and
// revenue (Σ unitPrice × quantity) over that day's sales.
type DailyAggregate struct {
	Date     time.Time
	Quantity int
	Revenue  decimal.Decimal
}

// Day truncates t to midnight UTC of its calendar date. Event timestamps
// are normalized to UTC at the ingestion boundary; deriving the date in UTC
// here keeps one key per calendar day even when a caller passes timestamps
// in mixed locations.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last representable instant of t's calendar date.
func EndOfDay(t time.Time) time.Time {
	return Day(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// AggregateDaily collapses sales into one DailyAggregate per calendar date
// with at least one sale, ordered by ascending date.
func AggregateDaily(sales []model.SaleEvent) []DailyAggregate {
	byDate := make(map[time.Time]DailyAggregate)
	for _, sale := range sales {
		date := Day(sale.OccurredAt)
		agg := byDate[date]
		agg.Date = date
		agg.Quantity += sale.Quantity
		agg.Revenue = agg.Revenue.Add(sale.Revenue())
		byDate[date] = agg
	}

	daily := make([]DailyAggregate, 0, len(byDate))
	for _, agg := range byDate {
		daily = append(daily, agg)
	}
	sort.Slice(daily, func(i, j int) bool {
		return daily[i].Date.Before(daily[j].Date)
	})
	return daily
}
