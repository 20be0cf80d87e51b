package reservation

import (
	"slices"
	"time"

	"lounge-booking/internal/domain/timeslot"

	"github.com/google/uuid"
)

// Reservation is the booking aggregate. Its window end is always start + duration,
// and status changes only through Start, End, Cancel and Extend.
type Reservation struct {
	id          uuid.UUID
	customer    Customer
	window      timeslot.Window
	assignments []Assignment
	status      Status
	paymentRef  PaymentRef
	actualStart *time.Time
	actualEnd   *time.Time
	cancelledAt *time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

func NewReservation(
	id uuid.UUID,
	customer Customer,
	window timeslot.Window,
	assignments []Assignment,
	paymentRef PaymentRef,
	now time.Time,
) (*Reservation, error) {
	if customer.Name() == "" {
		return nil, ErrEmptyCustomerName
	}
	if window.IsZero() {
		return nil, timeslot.ErrInvalidDuration
	}
	normalized, err := normalizeAssignments(assignments)
	if err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	now = timeslot.ToCanonical(now)

	return &Reservation{
		id:          id,
		customer:    customer,
		window:      window,
		assignments: normalized,
		status:      StatusBooked,
		paymentRef:  paymentRef,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

func ReconstructReservation(
	id uuid.UUID,
	customer Customer,
	window timeslot.Window,
	assignments []Assignment,
	status Status,
	paymentRef PaymentRef,
	actualStart, actualEnd, cancelledAt *time.Time,
	createdAt, updatedAt time.Time,
) *Reservation {
	sorted := slices.Clone(assignments)
	slices.SortFunc(sorted, func(a, b Assignment) int {
		return CompareIDs(a.resourceID, b.resourceID)
	})
	return &Reservation{
		id:          id,
		customer:    customer,
		window:      window,
		assignments: sorted,
		status:      status,
		paymentRef:  paymentRef,
		actualStart: actualStart,
		actualEnd:   actualEnd,
		cancelledAt: cancelledAt,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// Start moves a Booked reservation to InUse. The scheduled window is left untouched.
func (r *Reservation) Start(now time.Time) error {
	next, err := r.status.Next(TransitionStart)
	if err != nil {
		return err
	}
	at := timeslot.ToCanonical(now)
	r.status = next
	r.actualStart = &at
	r.updatedAt = at
	return nil
}

// End completes an InUse reservation at actualEnd, which may differ from the scheduled end.
func (r *Reservation) End(actualEnd time.Time) error {
	next, err := r.status.Next(TransitionEnd)
	if err != nil {
		return err
	}
	at := timeslot.ToCanonical(actualEnd)
	if r.actualStart != nil && at.Before(*r.actualStart) {
		return ErrActualEndBeforeStart
	}
	r.status = next
	r.actualEnd = &at
	r.updatedAt = at
	return nil
}

func (r *Reservation) Cancel(now time.Time) error {
	next, err := r.status.Next(TransitionCancel)
	if err != nil {
		return err
	}
	at := timeslot.ToCanonical(now)
	r.status = next
	r.cancelledAt = &at
	r.updatedAt = at
	return nil
}

// Extend lengthens an InUse reservation. The caller must have the new window
// validated against other reservations before persisting it.
func (r *Reservation) Extend(additionalMinutes int, now time.Time) (timeslot.Window, error) {
	if additionalMinutes <= 0 {
		return timeslot.Window{}, timeslot.ErrInvalidDuration
	}
	if !r.status.CanTransitionTo(TransitionExtend) {
		return timeslot.Window{}, &IllegalTransitionError{Current: r.status, Requested: TransitionExtend}
	}
	extended, err := r.window.Extend(additionalMinutes)
	if err != nil {
		return timeslot.Window{}, err
	}
	r.window = extended
	r.updatedAt = timeslot.ToCanonical(now)
	return extended, nil
}

// HoldsResource reports whether id is one of the assigned resources.
func (r *Reservation) HoldsResource(id uuid.UUID) bool {
	for _, a := range r.assignments {
		if a.resourceID == id {
			return true
		}
	}
	return false
}

// IsLive reports an InUse session that has started and not ended. A live session
// occupies its resources whatever its scheduled window says.
func (r *Reservation) IsLive() bool {
	return r.status == StatusInUse && r.actualStart != nil && r.actualEnd == nil
}

// RelevantTo reports whether an active reservation matters to a read over w:
// it overlaps w, or it is live.
func (r *Reservation) RelevantTo(w timeslot.Window) bool {
	return r.IsActive() && (r.IsLive() || r.window.Overlaps(w))
}

// ResourceIDs are returned in lock order.
func (r *Reservation) ResourceIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(r.assignments))
	for i, a := range r.assignments {
		ids[i] = a.resourceID
	}
	return ids
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (r *Reservation) Clone() *Reservation {
	c := *r
	c.assignments = slices.Clone(r.assignments)
	c.actualStart = cloneTime(r.actualStart)
	c.actualEnd = cloneTime(r.actualEnd)
	c.cancelledAt = cloneTime(r.cancelledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (r *Reservation) ID() uuid.UUID             { return r.id }
func (r *Reservation) Customer() Customer        { return r.customer }
func (r *Reservation) Window() timeslot.Window   { return r.window }
func (r *Reservation) Assignments() []Assignment { return slices.Clone(r.assignments) }
func (r *Reservation) Status() Status            { return r.status }
func (r *Reservation) PaymentRef() PaymentRef    { return r.paymentRef }
func (r *Reservation) ActualStart() *time.Time   { return cloneTime(r.actualStart) }
func (r *Reservation) ActualEnd() *time.Time     { return cloneTime(r.actualEnd) }
func (r *Reservation) CancelledAt() *time.Time   { return cloneTime(r.cancelledAt) }
func (r *Reservation) CreatedAt() time.Time      { return r.createdAt }
func (r *Reservation) UpdatedAt() time.Time      { return r.updatedAt }
func (r *Reservation) IsActive() bool            { return r.status.IsActive() }
