// Package model defines the core domain types shared across the statistics
// service. All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleEvent is an immutable record of a variant sale.
// Once ingested, these are never modified or deleted.
//
// StockRemaining, when non-nil, is an authoritative stock reading taken
// immediately after this sale. A nil StockRemaining means only the signed
// quantity delta is known; zero is a valid, distinct reading.
type SaleEvent struct {
	ID             uuid.UUID           `json:"id" db:"id"`
	VariantID      uuid.UUID           `json:"variant_id" db:"variant_id"`
	ProductID      uuid.UUID           `json:"product_id" db:"product_id"`
	ProductName    string              `json:"product_name" db:"product_name"`
	UnitPrice      decimal.Decimal     `json:"unit_price" db:"unit_price"`
	Quantity       int                 `json:"quantity" db:"quantity"`
	Margin         decimal.NullDecimal `json:"margin" db:"margin"`
	StockRemaining *int                `json:"stock_remaining" db:"stock_remaining"`
	OccurredAt     time.Time           `json:"occurred_at" db:"occurred_at"`
}

// Revenue returns unitPrice × quantity for this sale.
func (s SaleEvent) Revenue() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

// DeliveryEvent is an immutable record of a stock delivery. Always a pure
// positive delta; deliveries never carry an authoritative stock reading.
type DeliveryEvent struct {
	ID                uuid.UUID `json:"id" db:"id"`
	VariantID         uuid.UUID `json:"variant_id" db:"variant_id"`
	DeliveredQuantity int       `json:"delivered_quantity" db:"delivered_quantity"`
	DeliveredAt       time.Time `json:"delivered_at" db:"delivered_at"`
}

// VariantInfo summarizes one variant that has statistical data.
// Used for catalog/autocomplete listings in the analytics frontend.
type VariantInfo struct {
	VariantID    uuid.UUID  `json:"variant_id"`
	ProductID    uuid.UUID  `json:"product_id"`
	ProductName  string     `json:"product_name"`
	HasSalesData bool       `json:"has_sales_data"`
	HasStockData bool       `json:"has_stock_data"`
	LastSaleDate *time.Time `json:"last_sale_date"`
	CurrentStock *int       `json:"current_stock"`
}
