// Package store defines the persistence interface for the statistics
// service. Implementations include PostgreSQL (source of truth), Redis
// (read-through cache for the variant catalog), and in-memory (for testing).
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ecmsp/statistics-service/internal/model"
)

// ErrDuplicateEvent is returned when an insert collides with an already
// persisted event ID. Producers deliver at least once; the uniqueness
// constraint makes persistence effective-once, and callers treat this
// error as a successful no-op.
var ErrDuplicateEvent = errors.New("store: duplicate event id")

// Store is the persistence interface. Events are append-only: sales and
// deliveries are inserted once and never updated or deleted.
type Store interface {
	// InsertSale appends an immutable sale event.
	// Returns ErrDuplicateEvent if the event ID already exists.
	InsertSale(ctx context.Context, sale *model.SaleEvent) error

	// InsertDelivery appends an immutable delivery event.
	// Returns ErrDuplicateEvent if the event ID already exists.
	InsertDelivery(ctx context.Context, delivery *model.DeliveryEvent) error

	// SalesInRange returns a variant's sales with occurred_at in
	// [from, to], ordered by ascending timestamp.
	SalesInRange(ctx context.Context, variantID uuid.UUID, from, to time.Time) ([]model.SaleEvent, error)

	// DeliveriesInRange returns a variant's deliveries with delivered_at
	// in [from, to], ordered by ascending timestamp.
	DeliveriesInRange(ctx context.Context, variantID uuid.UUID, from, to time.Time) ([]model.DeliveryEvent, error)

	// ListVariants returns every variant with statistical data, sorted by
	// product name: last sale date, latest authoritative stock reading,
	// and whether delivery data exists.
	ListVariants(ctx context.Context) ([]model.VariantInfo, error)
}

func sortVariantsByName(variants []model.VariantInfo) {
	sort.Slice(variants, func(i, j int) bool {
		return variants[i].ProductName < variants[j].ProductName
	})
}
