package shared

import (
	"context"
	"time"

	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/resource"
	"lounge-booking/internal/domain/timeslot"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within runs fn in one write transaction. Any error rolls back every write made through tx.
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Reads serves the query side outside of a transaction.
	Reads() ReservationReads
	Catalog() CatalogReader
}

type Tx interface {
	// LockResources serializes writers per resource. ids must be sorted with reservation.SortedUniqueIDs;
	// locks are held until the unit of work ends and re-locking an id within the same unit is a no-op.
	LockResources(ctx context.Context, ids []uuid.UUID) error
	Reservations() ReservationRepository
	Idempotency() IdempotencyRepository
}

type ReservationRepository interface {
	// QueryOverlapping lists reservations on resourceID in one of statuses whose window overlaps w, ordered by start.
	QueryOverlapping(ctx context.Context, resourceID uuid.UUID, w timeslot.Window, statuses []reservation.Status) ([]*reservation.Reservation, error)
	Create(ctx context.Context, res *reservation.Reservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error)
	// UpdateStatus applies t only if the stored status still equals from; otherwise it returns
	// an *reservation.IllegalTransitionError carrying the stored status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from reservation.Status, t reservation.Transition, at time.Time) error
	UpdateWindow(ctx context.Context, res *reservation.Reservation) error
	ListForResource(ctx context.Context, resourceID uuid.UUID, statuses []reservation.Status) ([]*reservation.Reservation, error)
}

type IdempotencyRepository interface {
	// Find returns nil without error when the key is unknown.
	Find(ctx context.Context, key uuid.UUID) (*IdempotencyRecord, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ReservationReads interface {
	FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error)
	ListForResource(ctx context.Context, resourceID uuid.UUID, statuses []reservation.Status) ([]*reservation.Reservation, error)
	// ListActive groups Booked and InUse reservations overlapping w, plus live InUse sessions
	// outside it, by each requested resource they hold.
	ListActive(ctx context.Context, resourceIDs []uuid.UUID, w timeslot.Window) (map[uuid.UUID][]*reservation.Reservation, error)
}

type CatalogReader interface {
	List(ctx context.Context) ([]*resource.Resource, error)
	// FindByIDs returns the known resources only; callers decide whether a missing id is an error.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*resource.Resource, error)
}

// SnapshotInvalidator drops cached availability for resources touched by a commit.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, resourceIDs []uuid.UUID) error
}

type Notifier interface {
	Notify(ctx context.Context, event ReservationEvent) error
}

type NopInvalidator struct{}

func (NopInvalidator) Invalidate(context.Context, []uuid.UUID) error { return nil }
