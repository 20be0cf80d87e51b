package response

import (
	"time"

	"lounge-booking/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type AssignmentResponse struct {
	ResourceID uuid.UUID `json:"resourceId"`
	Occupancy  int       `json:"occupancy"`
}

type ReservationResponse struct {
	ID              uuid.UUID            `json:"id"`
	CustomerName    string               `json:"customerName"`
	CustomerContact string               `json:"customerContact"`
	CustomerNotes   string               `json:"customerNotes,omitempty"`
	Start           time.Time            `json:"start"`
	End             time.Time            `json:"end"`
	DurationMinutes int                  `json:"durationMinutes"`
	Slot            string               `json:"slot"`
	StartLocal      string               `json:"startLocal,omitempty"`
	EndLocal        string               `json:"endLocal,omitempty"`
	Status          string               `json:"status"`
	Assignments     []AssignmentResponse `json:"assignments"`
	PaymentRef      string               `json:"paymentRef,omitempty"`
	ActualStart     *time.Time           `json:"actualStart,omitempty"`
	ActualEnd       *time.Time           `json:"actualEnd,omitempty"`
	CancelledAt     *time.Time           `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

type UsageResponse struct {
	ReservationID   uuid.UUID            `json:"reservationId"`
	Status          string               `json:"status"`
	Assignments     []AssignmentResponse `json:"assignments"`
	ScheduledStart  time.Time            `json:"scheduledStart"`
	ScheduledEnd    time.Time            `json:"scheduledEnd"`
	BillableStart   time.Time            `json:"billableStart"`
	BillableEnd     *time.Time           `json:"billableEnd,omitempty"`
	BillableMinutes int                  `json:"billableMinutes"`
	PlayerMinutes   int                  `json:"playerMinutes"`
	Final           bool                 `json:"final"`
}

func FromReservationView(v *queries.ReservationView) (*ReservationResponse, error) {
	if v == nil {
		return nil, nil
	}
	var out ReservationResponse
	if err := copier.CopyWithOption(&out, v, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

func FromReservationViews(views []*queries.ReservationView) ([]*ReservationResponse, error) {
	out := make([]*ReservationResponse, 0, len(views))
	for _, v := range views {
		r, err := FromReservationView(v)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func FromUsageView(v *queries.UsageView) (*UsageResponse, error) {
	var out UsageResponse
	if err := copier.CopyWithOption(&out, v, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}
	return &out, nil
}
