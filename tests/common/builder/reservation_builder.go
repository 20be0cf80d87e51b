//go:build unit || e2e

package builder

import (
	"time"

	domreservation "lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/timeslot"
	reqdto "lounge-booking/internal/handler/dto/request"
	"lounge-booking/internal/usecase/commands"
	"lounge-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

type AssignmentSpec struct {
	ResourceID uuid.UUID
	Occupancy  int
}

type ReservationBuilder struct {
	ID              uuid.UUID
	CustomerName    string
	CustomerContact string
	CustomerNotes   string
	Start           time.Time
	DurationMinutes int
	Assignments     []AssignmentSpec
	Status          domreservation.Status
	PaymentRef      string
	ActualStart     *time.Time
	ActualEnd       *time.Time
	CancelledAt     *time.Time
	CreatedAt       time.Time
}

func NewReservationBuilder() *ReservationBuilder {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return &ReservationBuilder{
		ID:              uuid.New(),
		CustomerName:    "Alice",
		CustomerContact: "alice@example.com",
		Start:           start,
		DurationMinutes: 60,
		Assignments:     []AssignmentSpec{{ResourceID: uuid.New(), Occupancy: 2}},
		Status:          domreservation.StatusBooked,
		PaymentRef:      "pay_test_001",
		CreatedAt:       start.Add(-24 * time.Hour),
	}
}

func (r *ReservationBuilder) With(mutate func(*ReservationBuilder)) *ReservationBuilder {
	mutate(r)
	return r
}

// Build methods
func (r *ReservationBuilder) BuildDomain() (*domreservation.Reservation, error) {
	customer, err := domreservation.NewCustomer(r.CustomerName, r.CustomerContact, r.CustomerNotes)
	if err != nil {
		return nil, err
	}
	window, err := timeslot.NewWindow(r.Start, r.DurationMinutes)
	if err != nil {
		return nil, err
	}
	assignments := make([]domreservation.Assignment, 0, len(r.Assignments))
	for _, a := range r.Assignments {
		as, err := domreservation.NewAssignment(a.ResourceID, a.Occupancy)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, as)
	}
	ref, err := domreservation.NewPaymentRef(r.PaymentRef)
	if err != nil {
		return nil, err
	}
	res, err := domreservation.NewReservation(r.ID, customer, window, assignments, ref, r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if r.Status == domreservation.StatusBooked && r.ActualStart == nil && r.CancelledAt == nil {
		return res, nil
	}
	return domreservation.ReconstructReservation(
		res.ID(), res.Customer(), res.Window(), res.Assignments(), r.Status, res.PaymentRef(),
		r.ActualStart, r.ActualEnd, r.CancelledAt, res.CreatedAt(), res.UpdatedAt(),
	), nil
}

func (r *ReservationBuilder) MustBuild() *domreservation.Reservation {
	res, err := r.BuildDomain()
	if err != nil {
		panic(err)
	}
	return res
}

func (r *ReservationBuilder) BuildCreateInput() commands.CreateBookingInput {
	assignments := make([]commands.AssignmentInput, len(r.Assignments))
	for i, a := range r.Assignments {
		assignments[i] = commands.AssignmentInput{ResourceID: a.ResourceID, Occupancy: a.Occupancy}
	}
	return commands.CreateBookingInput{
		Start:           r.Start,
		DurationMinutes: r.DurationMinutes,
		Customer: commands.CustomerInput{
			Name:    r.CustomerName,
			Contact: r.CustomerContact,
			Notes:   r.CustomerNotes,
		},
		Assignments: assignments,
		PaymentRef:  r.PaymentRef,
	}
}

func (r *ReservationBuilder) BuildCreateRequestDTO() reqdto.CreateReservationRequest {
	resources := make([]reqdto.AssignmentRequest, len(r.Assignments))
	for i, a := range r.Assignments {
		resources[i] = reqdto.AssignmentRequest{ResourceID: a.ResourceID, Occupancy: a.Occupancy}
	}
	var notes *string
	if r.CustomerNotes != "" {
		notes = &r.CustomerNotes
	}
	return reqdto.CreateReservationRequest{
		StartTime:       r.Start,
		DurationMinutes: r.DurationMinutes,
		Customer: reqdto.CustomerRequest{
			Name:    r.CustomerName,
			Contact: r.CustomerContact,
			Notes:   notes,
		},
		Resources:  resources,
		PaymentRef: r.PaymentRef,
	}
}

func (r *ReservationBuilder) BuildView() *queries.ReservationView {
	return queries.NewReservationView(r.MustBuild())
}

// Fluent builder methods
func (r *ReservationBuilder) WithID(id uuid.UUID) *ReservationBuilder {
	r.ID = id
	return r
}

func (r *ReservationBuilder) WithCustomer(name, contact string) *ReservationBuilder {
	r.CustomerName = name
	r.CustomerContact = contact
	return r
}

func (r *ReservationBuilder) WithWindow(start time.Time, minutes int) *ReservationBuilder {
	r.Start = start
	r.DurationMinutes = minutes
	return r
}

func (r *ReservationBuilder) WithResources(ids ...uuid.UUID) *ReservationBuilder {
	r.Assignments = make([]AssignmentSpec, len(ids))
	for i, id := range ids {
		r.Assignments[i] = AssignmentSpec{ResourceID: id, Occupancy: 1}
	}
	return r
}

func (r *ReservationBuilder) WithAssignments(specs ...AssignmentSpec) *ReservationBuilder {
	r.Assignments = specs
	return r
}

func (r *ReservationBuilder) WithStatus(status domreservation.Status) *ReservationBuilder {
	r.Status = status
	return r
}

func (r *ReservationBuilder) AsInUse(actualStart time.Time) *ReservationBuilder {
	r.Status = domreservation.StatusInUse
	r.ActualStart = &actualStart
	return r
}

func (r *ReservationBuilder) AsCompleted(actualStart, actualEnd time.Time) *ReservationBuilder {
	r.Status = domreservation.StatusCompleted
	r.ActualStart = &actualStart
	r.ActualEnd = &actualEnd
	return r
}

func (r *ReservationBuilder) AsCancelled(at time.Time) *ReservationBuilder {
	r.Status = domreservation.StatusCancelled
	r.CancelledAt = &at
	return r
}
