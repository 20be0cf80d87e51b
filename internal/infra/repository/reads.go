package repository

import (
	"context"

	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/timeslot"
	"lounge-booking/internal/infra/db"
	"lounge-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
)

// The helpers below are shared with the readstore package, which runs the
// same queries on the pool without row locks.

func FindReservation(ctx context.Context, dbtx db.DBTX, id uuid.UUID) (*reservation.Reservation, error) {
	return findReservation(ctx, dbtx, `
		SELECT `+reservationColumns+`
		FROM reservations r
		WHERE r.id = $1`, id)
}

func ListForResource(ctx context.Context, dbtx db.DBTX, resourceID uuid.UUID, statuses []reservation.Status) ([]*reservation.Reservation, error) {
	return listForResource(ctx, dbtx, resourceID, statuses)
}

// ListActive groups active reservations overlapping w, plus live sessions, by each of resourceIDs they hold.
func ListActive(ctx context.Context, dbtx db.DBTX, resourceIDs []uuid.UUID, w timeslot.Window) (map[uuid.UUID][]*reservation.Reservation, error) {
	out := make(map[uuid.UUID][]*reservation.Reservation, len(resourceIDs))
	if len(resourceIDs) == 0 {
		return out, nil
	}
	rows, byID, err := queryReservations(ctx, dbtx, true, `
		SELECT rr.resource_id, `+reservationColumns+`
		FROM reservation_resources rr
		JOIN reservations r ON r.id = rr.reservation_id
		WHERE rr.resource_id = ANY($1::text[]::uuid[])
		  AND rr.active
		  AND (rr.slot && tstzrange($2::timestamptz, $3::timestamptz, '[)')
		       OR (r.status = 'in_use' AND r.actual_start IS NOT NULL AND r.actual_end IS NULL))
		ORDER BY r.start_at, r.id`,
		pgconv.UUIDsToText(resourceIDs), w.Start(), w.End())
	if err != nil {
		return nil, err
	}
	for _, kr := range rows {
		out[kr.key] = append(out[kr.key], byID[kr.row.ID])
	}
	return out, nil
}
