package repository

import (
	"context"
	"time"

	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/timeslot"
	"lounge-booking/internal/infra"
	"lounge-booking/internal/infra/db"
	"lounge-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
)

// ReservationRepository is the transactional side of the reservation store.
type ReservationRepository struct {
	db db.DBTX
}

func NewReservationRepository(dbtx db.DBTX) *ReservationRepository {
	return &ReservationRepository{db: dbtx}
}

func (r *ReservationRepository) QueryOverlapping(ctx context.Context, resourceID uuid.UUID, w timeslot.Window, statuses []reservation.Status) ([]*reservation.Reservation, error) {
	return listReservations(ctx, r.db, `
		SELECT `+reservationColumns+`
		FROM reservations r
		JOIN reservation_resources rr ON rr.reservation_id = r.id
		WHERE rr.resource_id = $1
		  AND rr.slot && tstzrange($2::timestamptz, $3::timestamptz, '[)')
		  AND r.status = ANY($4::text[])
		ORDER BY r.start_at, r.id`,
		resourceID, w.Start(), w.End(), statusArgs(statuses))
}

func (r *ReservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	notes := res.Customer().Notes()
	w := res.Window()
	_, err := r.db.Exec(ctx, `
		INSERT INTO reservations (
			id, customer_name, customer_contact, customer_notes,
			start_at, end_at, duration_min, status, payment_ref, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		res.ID(), res.Customer().Name(), res.Customer().Contact(), pgconv.StringPtrToPgtype(&notes),
		w.Start(), w.End(), w.DurationMinutes(), res.Status().String(), res.PaymentRef().String(),
		res.CreatedAt(), res.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create reservation", err)
	}

	for _, a := range res.Assignments() {
		_, err := r.db.Exec(ctx, `
			INSERT INTO reservation_resources (reservation_id, resource_id, occupancy, slot, active)
			VALUES ($1, $2, $3, tstzrange($4::timestamptz, $5::timestamptz, '[)'), $6)`,
			res.ID(), a.ResourceID(), a.Occupancy(), w.Start(), w.End(), res.IsActive(),
		)
		if err != nil {
			return infra.WrapRepoErr("failed to assign resource to reservation", err)
		}
	}
	return nil
}

// FindByID locks the row for the rest of the transaction.
func (r *ReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	return findReservation(ctx, r.db, `
		SELECT `+reservationColumns+`
		FROM reservations r
		WHERE r.id = $1
		FOR UPDATE`, id)
}

func (r *ReservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from reservation.Status, t reservation.Transition, at time.Time) error {
	to, err := from.Next(t)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE reservations SET
			status       = $3::text,
			actual_start = CASE WHEN $3::text = 'in_use'    THEN $4::timestamptz ELSE actual_start END,
			actual_end   = CASE WHEN $3::text = 'completed' THEN $4::timestamptz ELSE actual_end END,
			cancelled_at = CASE WHEN $3::text = 'cancelled' THEN $4::timestamptz ELSE cancelled_at END,
			updated_at   = $4::timestamptz
		WHERE id = $1 AND status = $2`,
		id, from.String(), to.String(), at.UTC(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update reservation status", err)
	}
	if tag.RowsAffected() == 0 {
		return r.staleStatus(ctx, id, t)
	}

	if _, err := r.db.Exec(ctx, `
		UPDATE reservation_resources SET active = $2 WHERE reservation_id = $1`,
		id, to.IsActive(),
	); err != nil {
		return infra.WrapRepoErr("failed to update reservation resources", err)
	}
	return nil
}

// staleStatus explains a compare-and-set miss.
func (r *ReservationRepository) staleStatus(ctx context.Context, id uuid.UUID, t reservation.Transition) error {
	var current string
	if err := r.db.QueryRow(ctx, `SELECT status FROM reservations WHERE id = $1`, id).Scan(&current); err != nil {
		if pgconv.IsNoRows(err) {
			return infra.WrapRepoErr("reservation not found", err, infra.KindNotFound)
		}
		return infra.WrapRepoErr("failed to read reservation status", err)
	}
	return &reservation.IllegalTransitionError{Current: reservation.Status(current), Requested: t}
}

func (r *ReservationRepository) UpdateWindow(ctx context.Context, res *reservation.Reservation) error {
	w := res.Window()
	tag, err := r.db.Exec(ctx, `
		UPDATE reservations SET end_at = $2, duration_min = $3, updated_at = $4
		WHERE id = $1 AND status = 'in_use'`,
		res.ID(), w.End(), w.DurationMinutes(), res.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update reservation window", err)
	}
	if tag.RowsAffected() == 0 {
		return r.staleStatus(ctx, res.ID(), reservation.TransitionExtend)
	}

	if _, err := r.db.Exec(ctx, `
		UPDATE reservation_resources SET slot = tstzrange($2::timestamptz, $3::timestamptz, '[)')
		WHERE reservation_id = $1`,
		res.ID(), w.Start(), w.End(),
	); err != nil {
		return infra.WrapRepoErr("failed to update reservation slot", err)
	}
	return nil
}

func (r *ReservationRepository) ListForResource(ctx context.Context, resourceID uuid.UUID, statuses []reservation.Status) ([]*reservation.Reservation, error) {
	return listForResource(ctx, r.db, resourceID, statuses)
}

func listForResource(ctx context.Context, dbtx db.DBTX, resourceID uuid.UUID, statuses []reservation.Status) ([]*reservation.Reservation, error) {
	return listReservations(ctx, dbtx, `
		SELECT `+reservationColumns+`
		FROM reservations r
		JOIN reservation_resources rr ON rr.reservation_id = r.id
		WHERE rr.resource_id = $1
		  AND r.status = ANY($2::text[])
		ORDER BY r.start_at, r.id`,
		resourceID, statusArgs(statuses))
}
