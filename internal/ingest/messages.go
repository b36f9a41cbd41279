// Package ingest consumes variant sale and delivery events from Redis
// Streams and records them through the statistics service.
//
// Delivery is at least once; the store's event-ID uniqueness constraint
// makes persistence effective-once. The policy is best effort: malformed
// payloads and store failures are logged and dropped, with no retry and
// no dead-letter path.
package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecmsp/statistics-service/internal/model"
)

// variantSoldMessage is the wire shape of a variant-sold event as published
// by the product service.
type variantSoldMessage struct {
	EventID        string           `json:"eventId"`
	VariantID      string           `json:"variantId"`
	ProductID      string           `json:"productId"`
	ProductName    string           `json:"productName"`
	SoldAt         decimal.Decimal  `json:"soldAt"` // unit price
	QuantitySold   int              `json:"quantitySold"`
	Margin         *decimal.Decimal `json:"margin"`
	StockRemaining *int             `json:"stockRemaining"`
}

// variantStockUpdatedMessage is the wire shape of a delivery event.
type variantStockUpdatedMessage struct {
	EventID           string `json:"eventId"`
	VariantID         string `json:"variantId"`
	DeliveredQuantity int    `json:"deliveredQuantity"`
	DeliveredAt       string `json:"deliveredAt"`
}

// timestampLayouts accepted for deliveredAt: RFC 3339 and the bare
// ISO local date-time the upstream producer emits.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

// toSaleEvent validates the message and converts it to a domain event.
// The sale is timestamped at ingestion time: the producer's sold event
// carries no timestamp of its own.
func (m variantSoldMessage) toSaleEvent(now time.Time) (*model.SaleEvent, error) {
	eventID, err := uuid.Parse(m.EventID)
	if err != nil {
		return nil, fmt.Errorf("invalid eventId %q: %w", m.EventID, err)
	}
	variantID, err := uuid.Parse(m.VariantID)
	if err != nil {
		return nil, fmt.Errorf("invalid variantId %q: %w", m.VariantID, err)
	}
	productID, err := uuid.Parse(m.ProductID)
	if err != nil {
		return nil, fmt.Errorf("invalid productId %q: %w", m.ProductID, err)
	}
	if m.QuantitySold <= 0 {
		return nil, errors.New("quantitySold must be positive")
	}
	if m.StockRemaining != nil && *m.StockRemaining < 0 {
		return nil, errors.New("stockRemaining must not be negative")
	}

	sale := &model.SaleEvent{
		ID:             eventID,
		VariantID:      variantID,
		ProductID:      productID,
		ProductName:    m.ProductName,
		UnitPrice:      m.SoldAt,
		Quantity:       m.QuantitySold,
		StockRemaining: m.StockRemaining,
		OccurredAt:     now.UTC(),
	}
	if m.Margin != nil {
		sale.Margin = decimal.NewNullDecimal(*m.Margin)
	}
	return sale, nil
}

// toDeliveryEvent validates the message and converts it to a domain event.
func (m variantStockUpdatedMessage) toDeliveryEvent() (*model.DeliveryEvent, error) {
	eventID, err := uuid.Parse(m.EventID)
	if err != nil {
		return nil, fmt.Errorf("invalid eventId %q: %w", m.EventID, err)
	}
	variantID, err := uuid.Parse(m.VariantID)
	if err != nil {
		return nil, fmt.Errorf("invalid variantId %q: %w", m.VariantID, err)
	}
	if m.DeliveredQuantity <= 0 {
		return nil, errors.New("deliveredQuantity must be positive")
	}
	deliveredAt, err := parseTimestamp(m.DeliveredAt)
	if err != nil {
		return nil, err
	}

	return &model.DeliveryEvent{
		ID:                eventID,
		VariantID:         variantID,
		DeliveredQuantity: m.DeliveredQuantity,
		DeliveredAt:       deliveredAt.UTC(),
	}, nil
}
