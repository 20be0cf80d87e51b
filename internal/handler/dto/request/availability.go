package request

import (
	"strings"
	"time"

	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

// AvailabilityQuery accepts resourceId repeated or comma separated.
type AvailabilityQuery struct {
	ResourceIDs []string  `form:"resourceId"`
	From        time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To          time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	At          time.Time `form:"at" time_format:"2006-01-02T15:04:05Z07:00"`
}

func (q AvailabilityQuery) ToRequest() (queries.AvailabilityRequest, error) {
	var ids []uuid.UUID
	for _, raw := range q.ResourceIDs {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return queries.AvailabilityRequest{}, err
			}
			ids = append(ids, id)
		}
	}
	return queries.AvailabilityRequest{
		ResourceIDs: ids,
		From:        q.From,
		To:          q.To,
		At:          q.At,
	}, nil
}

type ReservationListQuery struct {
	Status []string `form:"status"`
}

// Statuses returns nil when no filter was given.
func (q ReservationListQuery) Statuses() ([]reservation.Status, error) {
	var out []reservation.Status
	for _, raw := range q.Status {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			s, err := reservation.ParseStatus(part)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
	return out, nil
}
