// Package availability derives a resource's live status from its reservations.
// Everything here is pure: callers supply the reservation set and the clock reading.
package availability

import (
	"time"

	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/timeslot"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusBooked      Status = "booked"
	StatusInUse       Status = "in_use"
	StatusMaintenance Status = "maintenance"
)

func (s Status) String() string {
	return string(s)
}

type Input struct {
	ResourceID   uuid.UUID
	Maintenance  bool
	Reservations []*reservation.Reservation
}

type Result struct {
	ResourceID uuid.UUID
	Status     Status
	Current    *reservation.Reservation
	Next       *reservation.Reservation
	// NextPhase is PhaseUpcoming whenever Next is set; kept for display callers.
	NextPhase timeslot.Phase
}

// Resolve considers only Booked and InUse reservations that hold in.ResourceID.
// Maintenance wins over any reservation. Otherwise the current reservation decides
// between InUse and Booked: a live session that started by now, even one running
// early or past its scheduled end, takes precedence over a window containing now.
func Resolve(in Input, now time.Time) Result {
	now = timeslot.ToCanonical(now)
	res := Result{ResourceID: in.ResourceID, Status: StatusAvailable}

	var held []*reservation.Reservation
	for _, r := range in.Reservations {
		if r == nil || !r.IsActive() || !r.HoldsResource(in.ResourceID) {
			continue
		}
		held = append(held, r)
		if !occupies(r, now) {
			continue
		}
		if res.Current == nil || precedes(r, res.Current, now) {
			res.Current = r
		}
	}

	for _, r := range held {
		if r == res.Current || startedBy(r, now) || r.Window().Start().Before(now) {
			continue
		}
		if res.Next == nil || earlier(r, res.Next) {
			res.Next = r
		}
	}

	if res.Next != nil {
		res.NextPhase = timeslot.Classify(res.Next.Window(), now)
	}

	switch {
	case in.Maintenance:
		res.Status = StatusMaintenance
	case res.Current != nil && res.Current.Status() == reservation.StatusInUse:
		res.Status = StatusInUse
	case res.Current != nil:
		res.Status = StatusBooked
	}
	return res
}

// startedBy reports a live session whose actual start is not after now.
func startedBy(r *reservation.Reservation, now time.Time) bool {
	if !r.IsLive() {
		return false
	}
	started := r.ActualStart()
	return started != nil && !started.After(now)
}

func occupies(r *reservation.Reservation, now time.Time) bool {
	return startedBy(r, now) || r.Window().Contains(now)
}

// precedes picks the current reservation among those occupying now.
func precedes(a, b *reservation.Reservation, now time.Time) bool {
	if al, bl := startedBy(a, now), startedBy(b, now); al != bl {
		return al
	}
	return earlier(a, b)
}

// ResolveBatch resolves every input independently against the same now.
func ResolveBatch(inputs []Input, now time.Time) []Result {
	out := make([]Result, len(inputs))
	for i, in := range inputs {
		out[i] = Resolve(in, now)
	}
	return out
}

// earlier orders by window start, then by id.
func earlier(a, b *reservation.Reservation) bool {
	as, bs := a.Window().Start(), b.Window().Start()
	if !as.Equal(bs) {
		return as.Before(bs)
	}
	return reservation.CompareIDs(a.ID(), b.ID()) < 0
}
