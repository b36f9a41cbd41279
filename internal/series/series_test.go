package series

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecmsp/statistics-service/internal/model"
)

// Shared fixtures for the series tests.

var base = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// day returns base + n days at midnight.
func day(n int) time.Time {
	return base.AddDate(0, 0, n)
}

// at returns base + n days + h hours.
func at(n, h int) time.Time {
	return day(n).Add(time.Duration(h) * time.Hour)
}

func intp(v int) *int {
	return &v
}

// sale builds a sale event of qty units at the given price, occurring at ts.
// stock is the optional authoritative reading.
func sale(ts time.Time, qty int, price float64, stock *int) model.SaleEvent {
	return model.SaleEvent{
		ID:             uuid.New(),
		VariantID:      uuid.Nil,
		ProductID:      uuid.Nil,
		ProductName:    "test product",
		UnitPrice:      decimal.NewFromFloat(price),
		Quantity:       qty,
		StockRemaining: stock,
		OccurredAt:     ts,
	}
}

func delivery(ts time.Time, qty int) model.DeliveryEvent {
	return model.DeliveryEvent{
		ID:                uuid.New(),
		VariantID:         uuid.Nil,
		DeliveredQuantity: qty,
		DeliveredAt:       ts,
	}
}
