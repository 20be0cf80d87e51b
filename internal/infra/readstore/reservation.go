package readstore

import (
	"context"

	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/timeslot"
	"lounge-booking/internal/infra/db"
	"lounge-booking/internal/infra/repository"

	"github.com/google/uuid"
)

// ReservationReadStore serves lock-free reads straight from the pool.
type ReservationReadStore struct {
	db db.DBTX
}

func NewReservationReadStore(dbtx db.DBTX) *ReservationReadStore {
	return &ReservationReadStore{db: dbtx}
}

func (r *ReservationReadStore) FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	return repository.FindReservation(ctx, r.db, id)
}

func (r *ReservationReadStore) ListForResource(ctx context.Context, resourceID uuid.UUID, statuses []reservation.Status) ([]*reservation.Reservation, error) {
	return repository.ListForResource(ctx, r.db, resourceID, statuses)
}

func (r *ReservationReadStore) ListActive(ctx context.Context, resourceIDs []uuid.UUID, w timeslot.Window) (map[uuid.UUID][]*reservation.Reservation, error) {
	return repository.ListActive(ctx, r.db, resourceIDs, w)
}
