package commands

import (
	"time"

	"lounge-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

type CustomerInput struct {
	Name    string
	Contact string
	Notes   string
}

type AssignmentInput struct {
	ResourceID uuid.UUID
	Occupancy  int
}

// CreateBookingInput accepts Start in any zone; it is canonicalized before anything is stored.
type CreateBookingInput struct {
	Start           time.Time
	DurationMinutes int
	Customer        CustomerInput
	Assignments     []AssignmentInput
	PaymentRef      string
	IdempotencyKey  *uuid.UUID
}

type CreateBookingResult struct {
	Reservation *queries.ReservationView
	IsReplayed  bool
}
