package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ecmsp/statistics-service/internal/model"
)

const variantCatalogKey = "statistics:variants"

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for the variant catalog listing. Event inserts go to the primary
// store and invalidate the catalog; range reads always pass through —
// derived analytics are recomputed per query and never cached.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Writes (write to primary, invalidate catalog) ---

func (s *CachedStore) InsertSale(ctx context.Context, sale *model.SaleEvent) error {
	if err := s.primary.InsertSale(ctx, sale); err != nil {
		return err
	}
	s.rdb.Del(ctx, variantCatalogKey)
	return nil
}

func (s *CachedStore) InsertDelivery(ctx context.Context, delivery *model.DeliveryEvent) error {
	if err := s.primary.InsertDelivery(ctx, delivery); err != nil {
		return err
	}
	s.rdb.Del(ctx, variantCatalogKey)
	return nil
}

// --- Read-through (catalog only) ---

func (s *CachedStore) ListVariants(ctx context.Context) ([]model.VariantInfo, error) {
	data, err := s.rdb.Get(ctx, variantCatalogKey).Bytes()
	if err == nil {
		var variants []model.VariantInfo
		if json.Unmarshal(data, &variants) == nil {
			return variants, nil
		}
	}

	// Cache miss: read from primary.
	variants, err := s.primary.ListVariants(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(variants); err == nil {
		s.rdb.Set(ctx, variantCatalogKey, data, s.ttl)
	}
	return variants, nil
}

// --- Passthrough (never cached) ---

func (s *CachedStore) SalesInRange(ctx context.Context, variantID uuid.UUID, from, to time.Time) ([]model.SaleEvent, error) {
	return s.primary.SalesInRange(ctx, variantID, from, to)
}

func (s *CachedStore) DeliveriesInRange(ctx context.Context, variantID uuid.UUID, from, to time.Time) ([]model.DeliveryEvent, error) {
	return s.primary.DeliveriesInRange(ctx, variantID, from, to)
}
