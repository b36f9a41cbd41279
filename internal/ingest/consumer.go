package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ecmsp/statistics-service/internal/metrics"
	"github.com/ecmsp/statistics-service/internal/stats"
	"github.com/ecmsp/statistics-service/internal/store"
)

// Default stream and consumer-group names; overridable via Config.
const (
	DefaultSaleStream     = "events:variant-sold"
	DefaultDeliveryStream = "events:variant-stock-updated"
	DefaultGroup          = "statistics-service"
)

// payloadField is the stream entry field holding the JSON event body.
const payloadField = "payload"

// Config selects the streams and consumer group to read from.
type Config struct {
	SaleStream     string
	DeliveryStream string
	Group          string
	Consumer       string
}

func (c Config) withDefaults() Config {
	if c.SaleStream == "" {
		c.SaleStream = DefaultSaleStream
	}
	if c.DeliveryStream == "" {
		c.DeliveryStream = DefaultDeliveryStream
	}
	if c.Group == "" {
		c.Group = DefaultGroup
	}
	if c.Consumer == "" {
		c.Consumer = "consumer-1"
	}
	return c
}

// Consumer reads sale and delivery events from two Redis Streams with a
// consumer group and records them through the statistics service.
type Consumer struct {
	rdb *redis.Client
	svc *stats.Service
	cfg Config
}

// NewConsumer creates a stream consumer.
func NewConsumer(rdb *redis.Client, svc *stats.Service, cfg Config) *Consumer {
	return &Consumer{rdb: rdb, svc: svc, cfg: cfg.withDefaults()}
}

// Run consumes both streams until ctx is cancelled. Every message is acked
// exactly once, whether it was persisted, absorbed as a duplicate, or
// dropped as malformed — there is no redelivery path inside this service.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureGroups(ctx); err != nil {
		return err
	}

	streams := []string{c.cfg.SaleStream, c.cfg.DeliveryStream, ">", ">"}
	slog.Info("ingest consumer started",
		"sale_stream", c.cfg.SaleStream,
		"delivery_stream", c.cfg.DeliveryStream,
		"group", c.cfg.Group,
	)

	for {
		res, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			Streams:  streams,
			Count:    64,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			if errors.Is(err, redis.Nil) {
				continue // block timeout, nothing to read
			}
			slog.Error("stream read failed", "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				c.handle(ctx, stream.Stream, msg)
				c.rdb.XAck(ctx, stream.Stream, c.cfg.Group, msg.ID)
			}
		}
	}
}

// ensureGroups creates the consumer groups, tolerating pre-existing ones.
func (c *Consumer) ensureGroups(ctx context.Context) error {
	for _, stream := range []string{c.cfg.SaleStream, c.cfg.DeliveryStream} {
		err := c.rdb.XGroupCreateMkStream(ctx, stream, c.cfg.Group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return err
		}
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, stream string, msg redis.XMessage) {
	payload, ok := msg.Values[payloadField].(string)
	if !ok {
		slog.Warn("dropping stream entry without payload", "stream", stream, "id", msg.ID)
		metrics.EventsDropped.WithLabelValues(eventType(stream, c.cfg), "malformed").Inc()
		return
	}

	switch stream {
	case c.cfg.SaleStream:
		c.handleSale(ctx, msg.ID, payload)
	case c.cfg.DeliveryStream:
		c.handleDelivery(ctx, msg.ID, payload)
	}
}

func (c *Consumer) handleSale(ctx context.Context, msgID, payload string) {
	var m variantSoldMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		slog.Warn("dropping malformed variant-sold event", "id", msgID, "err", err)
		metrics.EventsDropped.WithLabelValues("sale", "malformed").Inc()
		return
	}

	sale, err := m.toSaleEvent(time.Now())
	if err != nil {
		slog.Warn("dropping invalid variant-sold event", "id", msgID, "err", err)
		metrics.EventsDropped.WithLabelValues("sale", "malformed").Inc()
		return
	}

	switch err := c.svc.RecordSale(ctx, sale); {
	case err == nil:
	case errors.Is(err, store.ErrDuplicateEvent):
		// Redelivery: the event is already persisted, treat as success.
		slog.Info("duplicate sale event dropped", "event_id", sale.ID)
		metrics.DuplicateEvents.WithLabelValues("sale").Inc()
	default:
		slog.Error("dropping sale event after store failure", "event_id", sale.ID, "err", err)
		metrics.EventsDropped.WithLabelValues("sale", "store_error").Inc()
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, msgID, payload string) {
	var m variantStockUpdatedMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		slog.Warn("dropping malformed delivery event", "id", msgID, "err", err)
		metrics.EventsDropped.WithLabelValues("delivery", "malformed").Inc()
		return
	}

	delivery, err := m.toDeliveryEvent()
	if err != nil {
		slog.Warn("dropping invalid delivery event", "id", msgID, "err", err)
		metrics.EventsDropped.WithLabelValues("delivery", "malformed").Inc()
		return
	}

	switch err := c.svc.RecordDelivery(ctx, delivery); {
	case err == nil:
	case errors.Is(err, store.ErrDuplicateEvent):
		slog.Info("duplicate delivery event dropped", "event_id", delivery.ID)
		metrics.DuplicateEvents.WithLabelValues("delivery").Inc()
	default:
		slog.Error("dropping delivery event after store failure", "event_id", delivery.ID, "err", err)
		metrics.EventsDropped.WithLabelValues("delivery", "store_error").Inc()
	}
}

func eventType(stream string, cfg Config) string {
	if stream == cfg.DeliveryStream {
		return "delivery"
	}
	return "sale"
}
