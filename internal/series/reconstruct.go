package series

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ecmsp/statistics-service/internal/model"
)

// StockPoint is the stock level as of the last event processed on Date.
type StockPoint struct {
	Date  time.Time
	Level int
}

// stockEvent is a sale or delivery normalized to a signed delta.
// reading is non-nil only for sales that carry an authoritative stock level.
type stockEvent struct {
	at      time.Time
	delta   int
	reading *int
	// kind orders same-timestamp events: deliveries replay before sales.
	kind int
	// id is the final tie-break so replay order never depends on input order.
	id uuid.UUID
}

const (
	kindDelivery = 0
	kindSale     = 1
)

// ReconstructStock replays sales and deliveries in chronological order and
// returns one stock reading per calendar date touched by any event, ordered
// by ascending date.
//
// Replay rules:
//   - Events sort by timestamp; at equal timestamps deliveries apply before
//     sales, so a same-instant restock is visible to the sale that follows,
//     and events of the same kind order by event ID.
//   - The first event seeds the running level: its authoritative reading if
//     present, otherwise its signed delta is taken as the absolute level.
//   - Every later event adds its delta. Authoritative readings on later
//     sales do not reset the accumulator; only the first event seeds it.
//   - The last event of a day determines that day's StockPoint.
func ReconstructStock(sales []model.SaleEvent, deliveries []model.DeliveryEvent) []StockPoint {
	events := make([]stockEvent, 0, len(sales)+len(deliveries))
	for _, sale := range sales {
		events = append(events, stockEvent{
			at:      sale.OccurredAt,
			delta:   -sale.Quantity,
			reading: sale.StockRemaining,
			kind:    kindSale,
			id:      sale.ID,
		})
	}
	for _, delivery := range deliveries {
		events = append(events, stockEvent{
			at:    delivery.DeliveredAt,
			delta: delivery.DeliveredQuantity,
			kind:  kindDelivery,
			id:    delivery.ID,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].at.Equal(events[j].at) {
			if events[i].kind != events[j].kind {
				return events[i].kind < events[j].kind
			}
			return bytes.Compare(events[i].id[:], events[j].id[:]) < 0
		}
		return events[i].at.Before(events[j].at)
	})

	levelByDate := make(map[time.Time]int)
	var level int
	seeded := false

	for _, ev := range events {
		switch {
		case !seeded && ev.reading != nil:
			level = *ev.reading
			seeded = true
		case !seeded:
			level = ev.delta
			seeded = true
		default:
			level += ev.delta
		}
		levelByDate[Day(ev.at)] = level
	}

	points := make([]StockPoint, 0, len(levelByDate))
	for date, lvl := range levelByDate {
		points = append(points, StockPoint{Date: date, Level: lvl})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}
