package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ecmsp/statistics-service/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Monetary values are stored as NUMERIC for exact decimal precision.
// Event IDs are primary keys; inserts use ON CONFLICT DO NOTHING so that
// redelivered events surface as ErrDuplicateEvent instead of failing.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InsertSale(ctx context.Context, sale *model.SaleEvent) error {
	var margin *string
	if sale.Margin.Valid {
		m := sale.Margin.Decimal.String()
		margin = &m
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO sales (id, variant_id, product_id, product_name, unit_price, quantity, margin, stock_remaining, occurred_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6, $7::NUMERIC, $8, $9)
		 ON CONFLICT (id) DO NOTHING`,
		sale.ID.String(), sale.VariantID.String(), sale.ProductID.String(),
		sale.ProductName, sale.UnitPrice.String(), sale.Quantity,
		margin, sale.StockRemaining, sale.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert sale %s: %w", sale.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateEvent
	}
	return nil
}

func (s *PostgresStore) InsertDelivery(ctx context.Context, delivery *model.DeliveryEvent) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO deliveries (id, variant_id, delivered_quantity, delivered_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		delivery.ID.String(), delivery.VariantID.String(),
		delivery.DeliveredQuantity, delivery.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery %s: %w", delivery.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateEvent
	}
	return nil
}

func (s *PostgresStore) SalesInRange(ctx context.Context, variantID uuid.UUID, from, to time.Time) ([]model.SaleEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::TEXT, variant_id::TEXT, product_id::TEXT, product_name,
		        unit_price::TEXT, quantity, margin::TEXT, stock_remaining, occurred_at
		 FROM sales
		 WHERE variant_id = $1 AND occurred_at BETWEEN $2 AND $3
		 ORDER BY occurred_at, id`,
		variantID.String(), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []model.SaleEvent
	for rows.Next() {
		var sale model.SaleEvent
		var id, variant, product, price string
		var margin *string

		if err := rows.Scan(&id, &variant, &product, &sale.ProductName,
			&price, &sale.Quantity, &margin, &sale.StockRemaining, &sale.OccurredAt); err != nil {
			return nil, err
		}

		sale.ID, _ = uuid.Parse(id)
		sale.VariantID, _ = uuid.Parse(variant)
		sale.ProductID, _ = uuid.Parse(product)
		sale.UnitPrice, _ = decimal.NewFromString(price)
		if margin != nil {
			m, _ := decimal.NewFromString(*margin)
			sale.Margin = decimal.NewNullDecimal(m)
		}

		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (s *PostgresStore) DeliveriesInRange(ctx context.Context, variantID uuid.UUID, from, to time.Time) ([]model.DeliveryEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::TEXT, variant_id::TEXT, delivered_quantity, delivered_at
		 FROM deliveries
		 WHERE variant_id = $1 AND delivered_at BETWEEN $2 AND $3
		 ORDER BY delivered_at, id`,
		variantID.String(), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []model.DeliveryEvent
	for rows.Next() {
		var delivery model.DeliveryEvent
		var id, variant string

		if err := rows.Scan(&id, &variant, &delivery.DeliveredQuantity, &delivery.DeliveredAt); err != nil {
			return nil, err
		}

		delivery.ID, _ = uuid.Parse(id)
		delivery.VariantID, _ = uuid.Parse(variant)

		deliveries = append(deliveries, delivery)
	}
	return deliveries, rows.Err()
}

func (s *PostgresStore) ListVariants(ctx context.Context) ([]model.VariantInfo, error) {
	// Most recent sale per variant carries the display name, the last
	// sale date, and the latest authoritative stock reading.
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT ON (variant_id)
		        variant_id::TEXT, product_id::TEXT, product_name, occurred_at, stock_remaining
		 FROM sales
		 ORDER BY variant_id, occurred_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []model.VariantInfo
	for rows.Next() {
		var info model.VariantInfo
		var variant, product string
		var lastSale time.Time

		if err := rows.Scan(&variant, &product, &info.ProductName, &lastSale, &info.CurrentStock); err != nil {
			return nil, err
		}

		info.VariantID, _ = uuid.Parse(variant)
		info.ProductID, _ = uuid.Parse(product)
		info.HasSalesData = true
		info.LastSaleDate = &lastSale

		variants = append(variants, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stockRows, err := s.pool.Query(ctx,
		`SELECT DISTINCT variant_id::TEXT FROM deliveries`)
	if err != nil {
		return nil, err
	}
	defer stockRows.Close()

	hasDeliveries := make(map[uuid.UUID]bool)
	for stockRows.Next() {
		var variant string
		if err := stockRows.Scan(&variant); err != nil {
			return nil, err
		}
		id, _ := uuid.Parse(variant)
		hasDeliveries[id] = true
	}
	if err := stockRows.Err(); err != nil {
		return nil, err
	}

	for i := range variants {
		variants[i].HasStockData = hasDeliveries[variants[i].VariantID]
	}

	// Postgres DISTINCT ON ordering is by variant; the catalog sorts by name.
	sortVariantsByName(variants)
	return variants, nil
}
