package request

import (
	"strings"
	"time"

	"lounge-booking/internal/pkg/patch"
	"lounge-booking/internal/usecase/commands"

	"github.com/google/uuid"
)

type CustomerRequest struct {
	Name    string  `json:"name" binding:"required,max=100"`
	Contact string  `json:"contact" binding:"required"`
	Notes   *string `json:"notes,omitempty" binding:"omitempty,max=500"`
}

type AssignmentRequest struct {
	ResourceID uuid.UUID `json:"resourceId" binding:"required"`
	Occupancy  int       `json:"occupancy" binding:"required,min=1"`
}

// CreateReservationRequest carries the start in any zone; the engine stores it in UTC.
type CreateReservationRequest struct {
	StartTime       time.Time           `json:"startTime" binding:"required"`
	DurationMinutes int                 `json:"durationMinutes"`
	Customer        CustomerRequest     `json:"customer" binding:"required"`
	Resources       []AssignmentRequest `json:"resources" binding:"required,min=1,dive"`
	PaymentRef      string              `json:"paymentRef,omitempty" binding:"max=128"`
}

func (r CreateReservationRequest) ToInput(idempotencyKey *uuid.UUID) commands.CreateBookingInput {
	assignments := make([]commands.AssignmentInput, len(r.Resources))
	for i, a := range r.Resources {
		assignments[i] = commands.AssignmentInput{ResourceID: a.ResourceID, Occupancy: a.Occupancy}
	}
	return commands.CreateBookingInput{
		Start:           r.StartTime,
		DurationMinutes: r.DurationMinutes,
		Customer: commands.CustomerInput{
			Name:    strings.TrimSpace(r.Customer.Name),
			Contact: strings.TrimSpace(r.Customer.Contact),
			Notes:   strings.TrimSpace(patch.Coalesce(r.Customer.Notes, "")),
		},
		Assignments:    assignments,
		PaymentRef:     strings.TrimSpace(r.PaymentRef),
		IdempotencyKey: idempotencyKey,
	}
}

// EndRequest may be empty; a missing actualEnd ends the session now.
type EndRequest struct {
	ActualEnd *time.Time `json:"actualEnd,omitempty"`
}

type ExtendRequest struct {
	AdditionalMinutes int `json:"additionalMinutes"`
}
