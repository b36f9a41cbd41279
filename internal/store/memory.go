package store

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ecmsp/statistics-service/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu         sync.RWMutex
	sales      map[uuid.UUID]model.SaleEvent
	deliveries map[uuid.UUID]model.DeliveryEvent
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sales:      make(map[uuid.UUID]model.SaleEvent),
		deliveries: make(map[uuid.UUID]model.DeliveryEvent),
	}
}

func (s *MemoryStore) InsertSale(_ context.Context, sale *model.SaleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[sale.ID]; exists {
		return ErrDuplicateEvent
	}
	s.sales[sale.ID] = *sale
	return nil
}

func (s *MemoryStore) InsertDelivery(_ context.Context, delivery *model.DeliveryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.deliveries[delivery.ID]; exists {
		return ErrDuplicateEvent
	}
	s.deliveries[delivery.ID] = *delivery
	return nil
}

func (s *MemoryStore) SalesInRange(_ context.Context, variantID uuid.UUID, from, to time.Time) ([]model.SaleEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.SaleEvent
	for _, sale := range s.sales {
		if sale.VariantID != variantID {
			continue
		}
		if sale.OccurredAt.Before(from) || sale.OccurredAt.After(to) {
			continue
		}
		result = append(result, sale)
	}
	// Event ID as secondary key: map iteration order must not leak into
	// same-timestamp ordering.
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return bytes.Compare(result[i].ID[:], result[j].ID[:]) < 0
		}
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})
	return result, nil
}

func (s *MemoryStore) DeliveriesInRange(_ context.Context, variantID uuid.UUID, from, to time.Time) ([]model.DeliveryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.DeliveryEvent
	for _, delivery := range s.deliveries {
		if delivery.VariantID != variantID {
			continue
		}
		if delivery.DeliveredAt.Before(from) || delivery.DeliveredAt.After(to) {
			continue
		}
		result = append(result, delivery)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].DeliveredAt.Equal(result[j].DeliveredAt) {
			return bytes.Compare(result[i].ID[:], result[j].ID[:]) < 0
		}
		return result[i].DeliveredAt.Before(result[j].DeliveredAt)
	})
	return result, nil
}

// ListVariants aggregates sale events into one VariantInfo per variant,
// keeping the most recent sale's date and stock reading.
func (s *MemoryStore) ListVariants(_ context.Context) ([]model.VariantInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[uuid.UUID]model.SaleEvent)
	for _, sale := range s.sales {
		cur, seen := latest[sale.VariantID]
		if !seen || sale.OccurredAt.After(cur.OccurredAt) {
			latest[sale.VariantID] = sale
		}
	}

	hasDeliveries := make(map[uuid.UUID]bool)
	for _, delivery := range s.deliveries {
		hasDeliveries[delivery.VariantID] = true
	}

	variants := make([]model.VariantInfo, 0, len(latest))
	for variantID, sale := range latest {
		lastSale := sale.OccurredAt
		variants = append(variants, model.VariantInfo{
			VariantID:    variantID,
			ProductID:    sale.ProductID,
			ProductName:  sale.ProductName,
			HasSalesData: true,
			HasStockData: hasDeliveries[variantID],
			LastSaleDate: &lastSale,
			CurrentStock: sale.StockRemaining,
		})
	}
	sortVariantsByName(variants)
	return variants, nil
}
