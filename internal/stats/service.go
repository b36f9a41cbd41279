// Package stats provides the HTTP handlers and query orchestration for
// variant sales and stock-level analytics: daily aggregation, stock
// reconstruction, per-regime regression lines, and trailing trend fits.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecmsp/statistics-service/internal/metrics"
	"github.com/ecmsp/statistics-service/internal/model"
	"github.com/ecmsp/statistics-service/internal/series"
	"github.com/ecmsp/statistics-service/internal/store"
)

// DefaultTrendDays is the trailing trend window applied when a query does
// not specify one.
const DefaultTrendDays = 30

const dateLayout = "2006-01-02"

// Service answers the two analytical queries and records inbound events.
// Queries operate on immutable event snapshots and recompute every derived
// value per call, so concurrent queries need no synchronization.
type Service struct {
	store store.Store
	hub   *Hub // optional WebSocket hub for live event broadcasts
}

// NewService creates a new statistics service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, hub *Hub) *Service {
	return &Service{store: st, hub: hub}
}

// --- Response types ---

// SalesDataPoint is one day of aggregated sales.
type SalesDataPoint struct {
	Date         time.Time       `json:"date"`
	Quantity     int             `json:"quantity"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// StockDataPoint is one day's reconstructed stock level.
type StockDataPoint struct {
	Date       time.Time `json:"date"`
	StockLevel int       `json:"stock_level"`
}

// RegressionLine is a fitted line over one validity interval.
type RegressionLine struct {
	Slope                  float64    `json:"slope"`
	Intercept              float64    `json:"intercept"`
	RSquared               float64    `json:"r_squared"`
	ValidFrom              time.Time  `json:"valid_from"`
	ValidTo                time.Time  `json:"valid_to"`
	EstimatedDepletionDate *time.Time `json:"estimated_depletion_date,omitempty"`
}

// SalesOverTimeResponse is the sales-over-time query result.
type SalesOverTimeResponse struct {
	VariantID       uuid.UUID        `json:"variant_id"`
	ProductName     string           `json:"product_name,omitempty"`
	DataPoints      []SalesDataPoint `json:"data_points"`
	RegressionLines []RegressionLine `json:"regression_lines"`
	TrendLine       *RegressionLine  `json:"trend_line,omitempty"`
}

// StockOverTimeResponse is the stock-over-time query result.
type StockOverTimeResponse struct {
	VariantID       uuid.UUID        `json:"variant_id"`
	ProductName     string           `json:"product_name,omitempty"`
	DataPoints      []StockDataPoint `json:"data_points"`
	RegressionLines []RegressionLine `json:"regression_lines"`
	TrendLine       *RegressionLine  `json:"trend_line,omitempty"`
}

// --- Query orchestration ---

// SalesOverTime aggregates a variant's sales per day over [from, to],
// fits one regression line per stock-out-bounded regime, and fits a
// trailing quantity trend over the final trendDays window.
func (s *Service) SalesOverTime(ctx context.Context, variantID uuid.UUID, from, to time.Time, trendDays int) (*SalesOverTimeResponse, error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues("sales").Observe(time.Since(start).Seconds())
	}()
	metrics.QueriesTotal.WithLabelValues("sales").Inc()

	sales, err := s.store.SalesInRange(ctx, variantID, series.Day(from), series.EndOfDay(to))
	if err != nil {
		return nil, err
	}

	daily := series.AggregateDaily(sales)
	segments := series.SalesSegments(daily, sales)
	trend := series.SalesTrend(daily, trendDays, series.Day(to))

	metrics.RegressionSegments.WithLabelValues("sales").Observe(float64(len(segments)))

	resp := &SalesOverTimeResponse{
		VariantID:       variantID,
		DataPoints:      make([]SalesDataPoint, 0, len(daily)),
		RegressionLines: toRegressionLines(segments),
		TrendLine:       toRegressionLine(trend),
	}
	if len(sales) > 0 {
		resp.ProductName = sales[0].ProductName
	}
	for _, agg := range daily {
		resp.DataPoints = append(resp.DataPoints, SalesDataPoint{
			Date:         agg.Date,
			Quantity:     agg.Quantity,
			TotalRevenue: agg.Revenue,
		})
	}
	return resp, nil
}

// StockOverTime reconstructs a variant's daily stock levels over [from, to],
// fits one regression line per delivery-bounded regime with depletion
// estimates, and fits a trailing stock trend over the final trendDays window.
func (s *Service) StockOverTime(ctx context.Context, variantID uuid.UUID, from, to time.Time, trendDays int) (*StockOverTimeResponse, error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues("stock").Observe(time.Since(start).Seconds())
	}()
	metrics.QueriesTotal.WithLabelValues("stock").Inc()

	fromDT, toDT := series.Day(from), series.EndOfDay(to)

	sales, err := s.store.SalesInRange(ctx, variantID, fromDT, toDT)
	if err != nil {
		return nil, err
	}
	deliveries, err := s.store.DeliveriesInRange(ctx, variantID, fromDT, toDT)
	if err != nil {
		return nil, err
	}

	points := series.ReconstructStock(sales, deliveries)
	segments := series.StockSegments(points, deliveries, fromDT, toDT)
	trend := series.StockTrend(points, trendDays, series.Day(to))

	metrics.RegressionSegments.WithLabelValues("stock").Observe(float64(len(segments)))

	resp := &StockOverTimeResponse{
		VariantID:       variantID,
		DataPoints:      make([]StockDataPoint, 0, len(points)),
		RegressionLines: toRegressionLines(segments),
		TrendLine:       toRegressionLine(trend),
	}
	if len(sales) > 0 {
		resp.ProductName = sales[0].ProductName
	}
	for _, p := range points {
		resp.DataPoints = append(resp.DataPoints, StockDataPoint{
			Date:       p.Date,
			StockLevel: p.Level,
		})
	}
	return resp, nil
}

// Variants lists every variant with statistical data.
func (s *Service) Variants(ctx context.Context) ([]model.VariantInfo, error) {
	return s.store.ListVariants(ctx)
}

// --- Event recording ---

// RecordSale persists a sale event and broadcasts it to connected clients.
// Returns store.ErrDuplicateEvent unchanged; callers decide whether a
// redelivery is a no-op or a fault.
func (s *Service) RecordSale(ctx context.Context, sale *model.SaleEvent) error {
	if err := s.store.InsertSale(ctx, sale); err != nil {
		return err
	}

	metrics.EventsIngested.WithLabelValues("sale").Inc()
	slog.Info("sale recorded",
		"event_id", sale.ID,
		"variant", sale.VariantID,
		"quantity", sale.Quantity,
		"unit_price", sale.UnitPrice.String(),
	)

	if s.hub != nil {
		s.hub.Broadcast(EventMessage{
			Type:           "sale_recorded",
			VariantID:      sale.VariantID.String(),
			ProductName:    sale.ProductName,
			Quantity:       sale.Quantity,
			StockRemaining: sale.StockRemaining,
		})
	}
	return nil
}

// RecordDelivery persists a delivery event and broadcasts it.
func (s *Service) RecordDelivery(ctx context.Context, delivery *model.DeliveryEvent) error {
	if err := s.store.InsertDelivery(ctx, delivery); err != nil {
		return err
	}

	metrics.EventsIngested.WithLabelValues("delivery").Inc()
	slog.Info("delivery recorded",
		"event_id", delivery.ID,
		"variant", delivery.VariantID,
		"quantity", delivery.DeliveredQuantity,
	)

	if s.hub != nil {
		s.hub.Broadcast(EventMessage{
			Type:      "delivery_recorded",
			VariantID: delivery.VariantID.String(),
			Quantity:  delivery.DeliveredQuantity,
		})
	}
	return nil
}

// --- HTTP Handlers ---

// ListVariants handles GET /api/v1/variants
func (s *Service) ListVariants(w http.ResponseWriter, r *http.Request) {
	variants, err := s.Variants(r.Context())
	if err != nil {
		writeError(w, "failed to list variants", http.StatusInternalServerError)
		return
	}
	if variants == nil {
		variants = []model.VariantInfo{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(variants)
}

// GetSalesOverTime handles GET /api/v1/variants/{variantID}/sales
func (s *Service) GetSalesOverTime(w http.ResponseWriter, r *http.Request) {
	variantID, from, to, trendDays, err := parseQueryParams(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.SalesOverTime(r.Context(), variantID, from, to, trendDays)
	if err != nil {
		writeError(w, "failed to compute sales statistics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetStockOverTime handles GET /api/v1/variants/{variantID}/stock
func (s *Service) GetStockOverTime(w http.ResponseWriter, r *http.Request) {
	variantID, from, to, trendDays, err := parseQueryParams(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.StockOverTime(r.Context(), variantID, from, to, trendDays)
	if err != nil {
		writeError(w, "failed to compute stock statistics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// PostSale handles POST /api/v1/events/sale — the direct ingestion surface
// mirroring the stream consumer. A duplicate event ID is a successful no-op.
func (s *Service) PostSale(w http.ResponseWriter, r *http.Request) {
	var sale model.SaleEvent
	if err := json.NewDecoder(r.Body).Decode(&sale); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if sale.VariantID == uuid.Nil {
		writeError(w, "variant_id is required", http.StatusBadRequest)
		return
	}
	if sale.Quantity <= 0 {
		writeError(w, "quantity must be positive", http.StatusBadRequest)
		return
	}
	if sale.StockRemaining != nil && *sale.StockRemaining < 0 {
		writeError(w, "stock_remaining must not be negative", http.StatusBadRequest)
		return
	}
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	if sale.OccurredAt.IsZero() {
		sale.OccurredAt = time.Now()
	}
	// Timestamps are kept in UTC so calendar-date derivation is uniform.
	sale.OccurredAt = sale.OccurredAt.UTC()

	status := http.StatusCreated
	if err := s.RecordSale(r.Context(), &sale); err != nil {
		if !errors.Is(err, store.ErrDuplicateEvent) {
			writeError(w, "failed to record sale", http.StatusInternalServerError)
			return
		}
		status = http.StatusOK // already persisted
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"id": sale.ID.String()})
}

// PostDelivery handles POST /api/v1/events/delivery.
func (s *Service) PostDelivery(w http.ResponseWriter, r *http.Request) {
	var delivery model.DeliveryEvent
	if err := json.NewDecoder(r.Body).Decode(&delivery); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if delivery.VariantID == uuid.Nil {
		writeError(w, "variant_id is required", http.StatusBadRequest)
		return
	}
	if delivery.DeliveredQuantity <= 0 {
		writeError(w, "delivered_quantity must be positive", http.StatusBadRequest)
		return
	}
	if delivery.ID == uuid.Nil {
		delivery.ID = uuid.New()
	}
	if delivery.DeliveredAt.IsZero() {
		delivery.DeliveredAt = time.Now()
	}
	delivery.DeliveredAt = delivery.DeliveredAt.UTC()

	status := http.StatusCreated
	if err := s.RecordDelivery(r.Context(), &delivery); err != nil {
		if !errors.Is(err, store.ErrDuplicateEvent) {
			writeError(w, "failed to record delivery", http.StatusInternalServerError)
			return
		}
		status = http.StatusOK
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"id": delivery.ID.String()})
}

// parseQueryParams validates the variant ID path parameter and the
// from/to/trend_days query parameters shared by both analytical endpoints.
func parseQueryParams(r *http.Request) (uuid.UUID, time.Time, time.Time, int, error) {
	var zero time.Time

	variantID, err := uuid.Parse(chi.URLParam(r, "variantID"))
	if err != nil {
		return uuid.Nil, zero, zero, 0, errors.New("invalid variant id")
	}

	from, err := time.Parse(dateLayout, r.URL.Query().Get("from"))
	if err != nil {
		return uuid.Nil, zero, zero, 0, errors.New("invalid or missing from date (expected YYYY-MM-DD)")
	}
	to, err := time.Parse(dateLayout, r.URL.Query().Get("to"))
	if err != nil {
		return uuid.Nil, zero, zero, 0, errors.New("invalid or missing to date (expected YYYY-MM-DD)")
	}

	trendDays := DefaultTrendDays
	if raw := r.URL.Query().Get("trend_days"); raw != "" {
		trendDays, err = strconv.Atoi(raw)
		if err != nil || trendDays <= 0 {
			return uuid.Nil, zero, zero, 0, errors.New("trend_days must be a positive integer")
		}
	}

	return variantID, from, to, trendDays, nil
}

func toRegressionLines(segments []series.Segment) []RegressionLine {
	lines := make([]RegressionLine, 0, len(segments))
	for i := range segments {
		lines = append(lines, *toRegressionLine(&segments[i]))
	}
	return lines
}

func toRegressionLine(seg *series.Segment) *RegressionLine {
	if seg == nil {
		return nil
	}
	return &RegressionLine{
		Slope:                  seg.Slope,
		Intercept:              seg.Intercept,
		RSquared:               seg.RSquared,
		ValidFrom:              seg.ValidFrom,
		ValidTo:                seg.ValidTo,
		EstimatedDepletionDate: seg.EstimatedDepletion,
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
