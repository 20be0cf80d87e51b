package commands

import (
	"context"

	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/timeslot"
	"lounge-booking/internal/infra"
	"lounge-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

// ConflictValidator is the only path through which a reservation window is
// created or widened. Both operations lock every affected resource in id order,
// check for overlapping active reservations and write inside the caller's unit of work.
type ConflictValidator struct{}

func NewConflictValidator() *ConflictValidator {
	return &ConflictValidator{}
}

// Admit persists a new reservation or returns *reservation.ResourceUnavailableError.
func (v *ConflictValidator) Admit(ctx context.Context, tx shared.Tx, res *reservation.Reservation) error {
	ids := res.ResourceIDs()
	if err := tx.LockResources(ctx, ids); err != nil {
		return err
	}
	if err := v.firstConflict(ctx, tx, res.ID(), res.Window(), ids); err != nil {
		return err
	}
	if err := tx.Reservations().Create(ctx, res); err != nil {
		if infra.IsKind(err, infra.KindConflict) {
			return storeConflict(ids)
		}
		return err
	}
	return nil
}

// AdmitExtension persists res's widened window or returns *reservation.ExtensionConflictError.
func (v *ConflictValidator) AdmitExtension(ctx context.Context, tx shared.Tx, res *reservation.Reservation) error {
	ids := res.ResourceIDs()
	if err := tx.LockResources(ctx, ids); err != nil {
		return err
	}
	if err := v.firstConflict(ctx, tx, res.ID(), res.Window(), ids); err != nil {
		return asExtensionConflict(res.ID(), err)
	}
	if err := tx.Reservations().UpdateWindow(ctx, res); err != nil {
		if infra.IsKind(err, infra.KindConflict) {
			return asExtensionConflict(res.ID(), storeConflict(ids))
		}
		return err
	}
	return nil
}

// firstConflict walks resources in lock order and reports the earliest overlap on the first clashing one.
func (v *ConflictValidator) firstConflict(ctx context.Context, tx shared.Tx, self uuid.UUID, w timeslot.Window, ids []uuid.UUID) error {
	for _, id := range ids {
		existing, err := tx.Reservations().QueryOverlapping(ctx, id, w, reservation.ActiveStatuses())
		if err != nil {
			return err
		}
		for _, other := range existing {
			if other.ID() == self {
				continue
			}
			return &reservation.ResourceUnavailableError{ResourceID: id, ConflictingReservationID: other.ID()}
		}
	}
	return nil
}

// storeConflict covers a clash only the store constraint saw; the holder is unknown.
func storeConflict(ids []uuid.UUID) *reservation.ResourceUnavailableError {
	e := &reservation.ResourceUnavailableError{}
	if len(ids) == 1 {
		e.ResourceID = ids[0]
	}
	return e
}

func asExtensionConflict(reservationID uuid.UUID, err error) error {
	unavailable, ok := err.(*reservation.ResourceUnavailableError)
	if !ok {
		return err
	}
	return &reservation.ExtensionConflictError{
		ReservationID:            reservationID,
		ResourceID:               unavailable.ResourceID,
		ConflictingReservationID: unavailable.ConflictingReservationID,
	}
}
