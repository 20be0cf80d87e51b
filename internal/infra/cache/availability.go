// Package cache keeps short-lived per-resource snapshots of active reservations in Redis.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/timeslot"
	"lounge-booking/internal/pkg/config"
	"lounge-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// AvailabilityCache decorates ReservationReads. Each resource's Booked/InUse set is
// cached whole and filtered per request; commits invalidate the touched resources
// and the TTL bounds staleness for anything missed.
type AvailabilityCache struct {
	shared.ReservationReads
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewAvailabilityCache(inner shared.ReservationReads, rdb redis.Cmdable, cfg config.Config) *AvailabilityCache {
	ttl := cfg.Booking.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &AvailabilityCache{
		ReservationReads: inner,
		rdb:              rdb,
		prefix:           cfg.Redis.Prefix,
		ttl:              ttl,
	}
}

func (c *AvailabilityCache) key(id uuid.UUID) string {
	return c.prefix + ":availability:" + id.String()
}

// ListActive serves from Redis where possible. Any Redis failure falls back to the store.
func (c *AvailabilityCache) ListActive(ctx context.Context, resourceIDs []uuid.UUID, w timeslot.Window) (map[uuid.UUID][]*reservation.Reservation, error) {
	if len(resourceIDs) == 0 {
		return map[uuid.UUID][]*reservation.Reservation{}, nil
	}

	keys := make([]string, len(resourceIDs))
	for i, id := range resourceIDs {
		keys[i] = c.key(id)
	}
	cached, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		slog.Warn("Availability cache read failed, using store", slog.String("error", err.Error()))
		return c.ReservationReads.ListActive(ctx, resourceIDs, w)
	}

	all := make(map[uuid.UUID][]*reservation.Reservation, len(resourceIDs))
	var missing []uuid.UUID
	for i, id := range resourceIDs {
		raw, ok := cached[i].(string)
		if !ok {
			missing = append(missing, id)
			continue
		}
		list, err := decodeSnapshot([]byte(raw))
		if err != nil {
			missing = append(missing, id)
			continue
		}
		all[id] = list
	}

	if len(missing) > 0 {
		loaded, err := c.load(ctx, missing)
		if err != nil {
			return nil, err
		}
		for id, list := range loaded {
			all[id] = list
		}
	}

	out := make(map[uuid.UUID][]*reservation.Reservation, len(resourceIDs))
	for _, id := range resourceIDs {
		out[id] = relevantTo(all[id], w)
	}
	return out, nil
}

// relevantTo narrows a cached active set to what a read over w would return from the store.
func relevantTo(list []*reservation.Reservation, w timeslot.Window) []*reservation.Reservation {
	var out []*reservation.Reservation
	for _, res := range list {
		if res.RelevantTo(w) {
			out = append(out, res)
		}
	}
	return out
}

// load reads the full active set of each resource and writes it back in one pipeline.
func (c *AvailabilityCache) load(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]*reservation.Reservation, error) {
	loaded := make(map[uuid.UUID][]*reservation.Reservation, len(ids))
	for _, id := range ids {
		list, err := c.ReservationReads.ListForResource(ctx, id, reservation.ActiveStatuses())
		if err != nil {
			return nil, err
		}
		loaded[id] = list
	}

	pipe := c.rdb.Pipeline()
	for id, list := range loaded {
		payload, err := encodeSnapshot(list)
		if err != nil {
			continue
		}
		pipe.Set(ctx, c.key(id), payload, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("Availability cache write failed", slog.String("error", err.Error()))
	}
	return loaded, nil
}

// Invalidate drops the snapshots of resources a commit touched.
func (c *AvailabilityCache) Invalidate(ctx context.Context, resourceIDs []uuid.UUID) error {
	if len(resourceIDs) == 0 {
		return nil
	}
	keys := make([]string, len(resourceIDs))
	for i, id := range resourceIDs {
		keys[i] = c.key(id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}

type assignmentSnapshot struct {
	ResourceID uuid.UUID `json:"resourceId"`
	Occupancy  int       `json:"occupancy"`
}

type reservationSnapshot struct {
	ID              uuid.UUID            `json:"id"`
	CustomerName    string               `json:"customerName"`
	CustomerContact string               `json:"customerContact"`
	CustomerNotes   string               `json:"customerNotes,omitempty"`
	Start           time.Time            `json:"start"`
	DurationMinutes int                  `json:"durationMinutes"`
	Assignments     []assignmentSnapshot `json:"assignments"`
	Status          reservation.Status   `json:"status"`
	PaymentRef      string               `json:"paymentRef,omitempty"`
	ActualStart     *time.Time           `json:"actualStart,omitempty"`
	ActualEnd       *time.Time           `json:"actualEnd,omitempty"`
	CancelledAt     *time.Time           `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

func encodeSnapshot(list []*reservation.Reservation) ([]byte, error) {
	out := make([]reservationSnapshot, len(list))
	for i, res := range list {
		assignments := make([]assignmentSnapshot, 0, len(res.Assignments()))
		for _, a := range res.Assignments() {
			assignments = append(assignments, assignmentSnapshot{ResourceID: a.ResourceID(), Occupancy: a.Occupancy()})
		}
		out[i] = reservationSnapshot{
			ID:              res.ID(),
			CustomerName:    res.Customer().Name(),
			CustomerContact: res.Customer().Contact(),
			CustomerNotes:   res.Customer().Notes(),
			Start:           res.Window().Start(),
			DurationMinutes: res.Window().DurationMinutes(),
			Assignments:     assignments,
			Status:          res.Status(),
			PaymentRef:      res.PaymentRef().String(),
			ActualStart:     res.ActualStart(),
			ActualEnd:       res.ActualEnd(),
			CancelledAt:     res.CancelledAt(),
			CreatedAt:       res.CreatedAt(),
			UpdatedAt:       res.UpdatedAt(),
		}
	}
	return json.Marshal(out)
}

func decodeSnapshot(payload []byte) ([]*reservation.Reservation, error) {
	var snaps []reservationSnapshot
	if err := json.Unmarshal(payload, &snaps); err != nil {
		return nil, err
	}
	out := make([]*reservation.Reservation, 0, len(snaps))
	for _, s := range snaps {
		customer, err := reservation.NewCustomer(s.CustomerName, s.CustomerContact, s.CustomerNotes)
		if err != nil {
			return nil, err
		}
		window, err := timeslot.NewWindow(s.Start, s.DurationMinutes)
		if err != nil {
			return nil, err
		}
		assignments := make([]reservation.Assignment, 0, len(s.Assignments))
		for _, a := range s.Assignments {
			assignment, err := reservation.NewAssignment(a.ResourceID, a.Occupancy)
			if err != nil {
				return nil, err
			}
			assignments = append(assignments, assignment)
		}
		ref, err := reservation.NewPaymentRef(s.PaymentRef)
		if err != nil {
			return nil, err
		}
		out = append(out, reservation.ReconstructReservation(
			s.ID, customer, window, assignments, s.Status, ref,
			s.ActualStart, s.ActualEnd, s.CancelledAt, s.CreatedAt, s.UpdatedAt,
		))
	}
	return out, nil
}
