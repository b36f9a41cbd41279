package series

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecmsp/statistics-service/internal/model"
)

func TestAggregateDaily_GroupsByCalendarDate(t *testing.T) {
	sales := []model.SaleEvent{
		sale(at(0, 9), 2, 10.00, nil),
		sale(at(0, 18), 3, 10.00, nil),
		sale(at(2, 12), 1, 25.50, nil),
	}

	daily := AggregateDaily(sales)

	if len(daily) != 2 {
		t.Fatalf("expected 2 aggregates, got %d", len(daily))
	}
	if !daily[0].Date.Equal(day(0)) || daily[0].Quantity != 5 {
		t.Errorf("day 0: expected qty 5 on %v, got %+v", day(0), daily[0])
	}
	if !daily[0].Revenue.Equal(decimal.NewFromFloat(50.00)) {
		t.Errorf("day 0: expected revenue 50, got %s", daily[0].Revenue)
	}
	if !daily[1].Date.Equal(day(2)) || daily[1].Quantity != 1 {
		t.Errorf("day 2: expected qty 1 on %v, got %+v", day(2), daily[1])
	}
	if !daily[1].Revenue.Equal(decimal.NewFromFloat(25.50)) {
		t.Errorf("day 2: expected revenue 25.50, got %s", daily[1].Revenue)
	}
}

func TestAggregateDaily_OrderedRegardlessOfInput(t *testing.T) {
	sales := []model.SaleEvent{
		sale(at(5, 10), 1, 1, nil),
		sale(at(1, 10), 1, 1, nil),
		sale(at(3, 10), 1, 1, nil),
	}

	daily := AggregateDaily(sales)

	if len(daily) != 3 {
		t.Fatalf("expected 3 aggregates, got %d", len(daily))
	}
	for i := 1; i < len(daily); i++ {
		if !daily[i-1].Date.Before(daily[i].Date) {
			t.Errorf("aggregates out of order: %v before %v", daily[i-1].Date, daily[i].Date)
		}
	}
}

func TestAggregateDaily_QuantityConserved(t *testing.T) {
	// Σ dataPoints.quantity == Σ sales.quantity for any input.
	sales := []model.SaleEvent{
		sale(at(0, 1), 4, 2, nil),
		sale(at(0, 2), 6, 2, nil),
		sale(at(1, 3), 1, 2, nil),
		sale(at(4, 4), 9, 2, nil),
		sale(at(4, 5), 10, 2, nil),
	}

	var want int
	for _, s := range sales {
		want += s.Quantity
	}

	var got int
	for _, agg := range AggregateDaily(sales) {
		got += agg.Quantity
	}

	if got != want {
		t.Errorf("aggregated quantity %d, want %d", got, want)
	}
}

func TestAggregateDaily_MixedTimezonesShareOneDate(t *testing.T) {
	cest := time.FixedZone("CEST", 2*60*60)
	sales := []model.SaleEvent{
		sale(time.Date(2025, 6, 1, 9, 0, 0, 0, cest), 2, 10, nil),
		sale(time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC), 3, 10, nil),
	}

	daily := AggregateDaily(sales)

	if len(daily) != 1 {
		t.Fatalf("expected one aggregate for one calendar day, got %d", len(daily))
	}
	if daily[0].Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", daily[0].Quantity)
	}
}

func TestAggregateDaily_Empty(t *testing.T) {
	if daily := AggregateDaily(nil); len(daily) != 0 {
		t.Errorf("expected no aggregates for empty input, got %d", len(daily))
	}
}
