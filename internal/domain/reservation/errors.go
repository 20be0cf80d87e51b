package reservation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidStatus        = errors.New("invalid reservation status")
	ErrEmptyCustomerName    = errors.New("customer name cannot be empty")
	ErrCustomerNameTooLong  = errors.New("customer name is too long (max 100 characters)")
	ErrEmptyCustomerContact = errors.New("customer contact cannot be empty")
	ErrCustomerNotesTooLong = errors.New("customer notes are too long (max 500 characters)")
	ErrNoAssignments        = errors.New("reservation must hold at least one resource")
	ErrInvalidOccupancy     = errors.New("occupancy must be at least 1")
	ErrDuplicateAssignment  = errors.New("resource assigned more than once")
	ErrNilResource          = errors.New("assigned resource id cannot be nil")
	ErrPaymentRefTooLong    = errors.New("payment reference is too long (max 128 characters)")
	ErrActualEndBeforeStart = errors.New("actual end cannot precede actual start")
	ErrIllegalTransition    = errors.New("illegal reservation transition")
	ErrResourceUnavailable  = errors.New("resource unavailable for the requested window")
	ErrExtensionConflict    = errors.New("extension conflicts with another reservation")
)

// IllegalTransitionError reports the status found and the transition that was refused.
type IllegalTransitionError struct {
	Current   Status
	Requested Transition
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s reservation", e.Requested, e.Current)
}

func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// ResourceUnavailableError names the first conflicting resource and the reservation holding it.
// ConflictingReservationID is uuid.Nil when only the store constraint could detect the clash.
type ResourceUnavailableError struct {
	ResourceID               uuid.UUID
	ConflictingReservationID uuid.UUID
}

func (e *ResourceUnavailableError) Error() string {
	if e.ConflictingReservationID == uuid.Nil {
		return fmt.Sprintf("resource %s is unavailable for the requested window", e.ResourceID)
	}
	return fmt.Sprintf("resource %s is held by reservation %s for the requested window", e.ResourceID, e.ConflictingReservationID)
}

func (e *ResourceUnavailableError) Is(target error) bool {
	return target == ErrResourceUnavailable
}

type ExtensionConflictError struct {
	ReservationID            uuid.UUID
	ResourceID               uuid.UUID
	ConflictingReservationID uuid.UUID
}

func (e *ExtensionConflictError) Error() string {
	return fmt.Sprintf("extending reservation %s collides on resource %s with reservation %s",
		e.ReservationID, e.ResourceID, e.ConflictingReservationID)
}

func (e *ExtensionConflictError) Is(target error) bool {
	return target == ErrExtensionConflict
}
