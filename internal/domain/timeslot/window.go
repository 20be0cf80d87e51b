// Package timeslot holds the time rules every other component relies on:
// canonical UTC instants, half-open booking windows and window phases.
package timeslot

import (
	"fmt"
	"math"
	"time"

	"lounge-booking/internal/pkg/errs"
)

var (
	ErrInvalidDuration = errs.New("duration must be a positive number of minutes")
	ErrInvalidWindow   = errs.New("window end must be after its start")
)

// Phase of a window relative to a reference instant.
type Phase string

const (
	PhaseUpcoming  Phase = "upcoming"
	PhaseOngoing   Phase = "ongoing"
	PhaseCompleted Phase = "completed"
)

// ToCanonical normalizes an instant to UTC. It is idempotent.
func ToCanonical(t time.Time) time.Time {
	return t.UTC()
}

// ToLocal is the display-side inverse of ToCanonical.
func ToLocal(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t.UTC()
	}
	return t.In(loc)
}

// MaxDurationMinutes is the longest duration a time.Duration can still represent.
const MaxDurationMinutes = math.MaxInt64 / int64(time.Minute)

// ComputeEnd returns start + durationMinutes in canonical form.
func ComputeEnd(start time.Time, durationMinutes int) (time.Time, error) {
	if durationMinutes <= 0 || int64(durationMinutes) > MaxDurationMinutes {
		return time.Time{}, ErrInvalidDuration
	}
	start = ToCanonical(start)
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	if !end.After(start) {
		return time.Time{}, ErrInvalidDuration
	}
	return end, nil
}

// Window is the half-open interval [start, end) of a booking.
type Window struct {
	start time.Time
	end   time.Time
}

// NewWindow derives the end from start and duration so the two can never disagree.
func NewWindow(start time.Time, durationMinutes int) (Window, error) {
	end, err := ComputeEnd(start, durationMinutes)
	if err != nil {
		return Window{}, err
	}
	return Window{start: ToCanonical(start), end: end}, nil
}

// Unbounded ends an open-ended read window. It lies past any start RFC3339 can express.
var Unbounded = time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)

// NewQueryWindow builds an arbitrary read window, e.g. an availability range.
func NewQueryWindow(start, end time.Time) (Window, error) {
	if !end.After(start) {
		return Window{}, ErrInvalidWindow
	}
	return Window{start: ToCanonical(start), end: ToCanonical(end)}, nil
}

func (w Window) Start() time.Time { return w.start }
func (w Window) End() time.Time   { return w.end }
func (w Window) IsZero() bool     { return w.start.IsZero() && w.end.IsZero() }

func (w Window) Duration() time.Duration {
	return w.end.Sub(w.start)
}

func (w Window) DurationMinutes() int {
	return int(w.Duration() / time.Minute)
}

// Overlaps reports whether the two windows share any instant. Touching windows do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.start.Before(other.end) && w.end.After(other.start)
}

// Contains is start-inclusive and end-exclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.start) && t.Before(w.end)
}

// Extend keeps the start and pushes the end by additionalMinutes.
func (w Window) Extend(additionalMinutes int) (Window, error) {
	current := w.DurationMinutes()
	if additionalMinutes <= 0 || int64(additionalMinutes) > MaxDurationMinutes-int64(current) {
		return Window{}, ErrInvalidDuration
	}
	return NewWindow(w.start, current+additionalMinutes)
}

func (w Window) ToTstzrange() string {
	return fmt.Sprintf("[%s,%s)", w.start.Format(time.RFC3339), w.end.Format(time.RFC3339))
}

func (w Window) String() string {
	return w.ToTstzrange()
}

// Classify places now against the window: end itself already counts as completed.
func Classify(w Window, now time.Time) Phase {
	switch {
	case now.Before(w.start):
		return PhaseUpcoming
	case now.Before(w.end):
		return PhaseOngoing
	default:
		return PhaseCompleted
	}
}
