package reservation

import (
	"time"

	"github.com/google/uuid"
)

// Usage is what a pricing collaborator needs to bill a session. The engine
// computes no amounts itself.
type Usage struct {
	ReservationID   uuid.UUID
	Status          Status
	Assignments     []Assignment
	ScheduledStart  time.Time
	ScheduledEnd    time.Time
	BillableStart   time.Time
	BillableEnd     *time.Time
	BillableMinutes int
	Final           bool
}

// Usage measures from the actual start when the session was started, else from
// the scheduled start. Minutes are only counted once the session has ended.
func (r *Reservation) Usage() Usage {
	u := Usage{
		ReservationID:  r.id,
		Status:         r.status,
		Assignments:    r.Assignments(),
		ScheduledStart: r.window.Start(),
		ScheduledEnd:   r.window.End(),
		BillableStart:  r.window.Start(),
		Final:          r.status.IsTerminal(),
	}
	if r.actualStart != nil {
		u.BillableStart = *r.actualStart
	}
	if r.actualEnd != nil {
		end := *r.actualEnd
		u.BillableEnd = &end
		u.BillableMinutes = int(end.Sub(u.BillableStart) / time.Minute)
	}
	return u
}

// PlayerMinutes weights billable minutes by occupancy across all assigned resources.
func (u Usage) PlayerMinutes() int {
	total := 0
	for _, a := range u.Assignments {
		total += a.Occupancy() * u.BillableMinutes
	}
	return total
}
