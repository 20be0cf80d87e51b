package shared

import (
	"time"

	"lounge-booking/internal/domain/reservation"

	"github.com/google/uuid"
)

type IdempotencyRecord struct {
	Key           uuid.UUID
	RequestHash   string
	ReservationID uuid.UUID
	CreatedAt     time.Time
}

type EventKind string

const (
	EventCreated   EventKind = "reservation.created"
	EventStarted   EventKind = "reservation.started"
	EventEnded     EventKind = "reservation.ended"
	EventCancelled EventKind = "reservation.cancelled"
	EventExtended  EventKind = "reservation.extended"
)

// ReservationEvent is the post-commit notification payload.
type ReservationEvent struct {
	Kind          EventKind   `json:"kind"`
	ReservationID uuid.UUID   `json:"reservationId"`
	ResourceIDs   []uuid.UUID `json:"resourceIds"`
	Status        string      `json:"status"`
	Start         time.Time   `json:"start"`
	End           time.Time   `json:"end"`
	CustomerName  string      `json:"customerName"`
	OccurredAt    time.Time   `json:"occurredAt"`
}

func NewReservationEvent(kind EventKind, res *reservation.Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		Kind:          kind,
		ReservationID: res.ID(),
		ResourceIDs:   res.ResourceIDs(),
		Status:        res.Status().String(),
		Start:         res.Window().Start(),
		End:           res.Window().End(),
		CustomerName:  res.Customer().Name(),
		OccurredAt:    at.UTC(),
	}
}
