package response

import (
	"time"

	"lounge-booking/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type ResourceResponse struct {
	ID          uuid.UUID `json:"id"`
	Category    string    `json:"category"`
	Serial      string    `json:"serial"`
	Maintenance bool      `json:"maintenance"`
}

type AvailabilityResponse struct {
	ResourceID uuid.UUID            `json:"resourceId"`
	Category   string               `json:"category"`
	Serial     string               `json:"serial"`
	Status     string               `json:"status"`
	At         time.Time            `json:"at"`
	Current    *ReservationResponse `json:"current,omitempty"`
	Next       *ReservationResponse `json:"next,omitempty"`
	NextPhase  string               `json:"nextPhase,omitempty"`
}

func FromResourceViews(views []*queries.ResourceView) ([]*ResourceResponse, error) {
	out := make([]*ResourceResponse, 0, len(views))
	if err := copier.Copy(&out, views); err != nil {
		return nil, err
	}
	return out, nil
}

func FromAvailabilityViews(views []*queries.AvailabilityView) ([]*AvailabilityResponse, error) {
	out := make([]*AvailabilityResponse, len(views))
	for i, v := range views {
		item := &AvailabilityResponse{}
		if err := copier.Copy(item, v); err != nil {
			return nil, err
		}
		// nested reservations go through the same mapping as the reservation endpoints
		current, err := FromReservationView(v.Current)
		if err != nil {
			return nil, err
		}
		next, err := FromReservationView(v.Next)
		if err != nil {
			return nil, err
		}
		item.Current, item.Next = current, next
		out[i] = item
	}
	return out, nil
}
