package queries

import (
	"time"

	"lounge-booking/internal/domain/availability"
	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/resource"
	"lounge-booking/internal/domain/timeslot"

	"github.com/google/uuid"
)

type AssignmentView struct {
	ResourceID uuid.UUID `json:"resourceId"`
	Occupancy  int       `json:"occupancy"`
}

// ReservationView is the read model returned by both commands and queries.
// Instants are UTC; StartLocal and EndLocal are filled by Localize.
type ReservationView struct {
	ID              uuid.UUID        `json:"id"`
	CustomerName    string           `json:"customerName"`
	CustomerContact string           `json:"customerContact"`
	CustomerNotes   string           `json:"customerNotes,omitempty"`
	Start           time.Time        `json:"start"`
	End             time.Time        `json:"end"`
	DurationMinutes int              `json:"durationMinutes"`
	Slot            string           `json:"slot"`
	StartLocal      string           `json:"startLocal,omitempty"`
	EndLocal        string           `json:"endLocal,omitempty"`
	Status          string           `json:"status"`
	Assignments     []AssignmentView `json:"assignments"`
	PaymentRef      string           `json:"paymentRef,omitempty"`
	ActualStart     *time.Time       `json:"actualStart,omitempty"`
	ActualEnd       *time.Time       `json:"actualEnd,omitempty"`
	CancelledAt     *time.Time       `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

func NewReservationView(res *reservation.Reservation) *ReservationView {
	if res == nil {
		return nil
	}
	w := res.Window()
	return &ReservationView{
		ID:              res.ID(),
		CustomerName:    res.Customer().Name(),
		CustomerContact: res.Customer().Contact(),
		CustomerNotes:   res.Customer().Notes(),
		Start:           w.Start(),
		End:             w.End(),
		DurationMinutes: w.DurationMinutes(),
		Slot:            w.ToTstzrange(),
		Status:          res.Status().String(),
		Assignments:     newAssignmentViews(res.Assignments()),
		PaymentRef:      res.PaymentRef().String(),
		ActualStart:     res.ActualStart(),
		ActualEnd:       res.ActualEnd(),
		CancelledAt:     res.CancelledAt(),
		CreatedAt:       res.CreatedAt(),
		UpdatedAt:       res.UpdatedAt(),
	}
}

const localLayout = "2006-01-02 15:04"

// Localize renders the window in the lounge's display zone.
func (v *ReservationView) Localize(loc *time.Location) *ReservationView {
	if v == nil {
		return nil
	}
	v.StartLocal = timeslot.ToLocal(v.Start, loc).Format(localLayout)
	v.EndLocal = timeslot.ToLocal(v.End, loc).Format(localLayout)
	return v
}

func newAssignmentViews(in []reservation.Assignment) []AssignmentView {
	out := make([]AssignmentView, len(in))
	for i, a := range in {
		out[i] = AssignmentView{ResourceID: a.ResourceID(), Occupancy: a.Occupancy()}
	}
	return out
}

type ResourceView struct {
	ID          uuid.UUID `json:"id"`
	Category    string    `json:"category"`
	Serial      string    `json:"serial"`
	Maintenance bool      `json:"maintenance"`
}

func NewResourceView(r *resource.Resource) *ResourceView {
	return &ResourceView{
		ID:          r.ID(),
		Category:    r.Category().String(),
		Serial:      r.Serial(),
		Maintenance: r.UnderMaintenance(),
	}
}

// AvailabilityView is the resolved status of one resource at At.
type AvailabilityView struct {
	ResourceID uuid.UUID        `json:"resourceId"`
	Category   string           `json:"category"`
	Serial     string           `json:"serial"`
	Status     string           `json:"status"`
	At         time.Time        `json:"at"`
	Current    *ReservationView `json:"current,omitempty"`
	Next       *ReservationView `json:"next,omitempty"`
	NextPhase  string           `json:"nextPhase,omitempty"`
}

func newAvailabilityView(r *resource.Resource, result availability.Result, at time.Time, loc *time.Location) *AvailabilityView {
	return &AvailabilityView{
		ResourceID: r.ID(),
		Category:   r.Category().String(),
		Serial:     r.Serial(),
		Status:     result.Status.String(),
		At:         at,
		Current:    NewReservationView(result.Current).Localize(loc),
		Next:       NewReservationView(result.Next).Localize(loc),
		NextPhase:  string(result.NextPhase),
	}
}

// UsageView is the billing input handed to the pricing collaborator.
type UsageView struct {
	ReservationID   uuid.UUID        `json:"reservationId"`
	Status          string           `json:"status"`
	Assignments     []AssignmentView `json:"assignments"`
	ScheduledStart  time.Time        `json:"scheduledStart"`
	ScheduledEnd    time.Time        `json:"scheduledEnd"`
	BillableStart   time.Time        `json:"billableStart"`
	BillableEnd     *time.Time       `json:"billableEnd,omitempty"`
	BillableMinutes int              `json:"billableMinutes"`
	PlayerMinutes   int              `json:"playerMinutes"`
	Final           bool             `json:"final"`
}

func newUsageView(u reservation.Usage) *UsageView {
	return &UsageView{
		ReservationID:   u.ReservationID,
		Status:          u.Status.String(),
		Assignments:     newAssignmentViews(u.Assignments),
		ScheduledStart:  u.ScheduledStart,
		ScheduledEnd:    u.ScheduledEnd,
		BillableStart:   u.BillableStart,
		BillableEnd:     u.BillableEnd,
		BillableMinutes: u.BillableMinutes,
		PlayerMinutes:   u.PlayerMinutes(),
		Final:           u.Final,
	}
}
