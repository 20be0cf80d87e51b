package api

import (
	"errors"
	"log/slog"
	"net/http"

	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/timeslot"
	"lounge-booking/internal/handler/httperr"
	"lounge-booking/internal/handler/middleware"
	"lounge-booking/internal/pkg/errs"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// retryAfterSeconds is advertised on 503 so terminals back off before resubmitting.
const retryAfterSeconds = "1"

type ConflictDetail struct {
	ReservationID            *uuid.UUID `json:"reservationId,omitempty"`
	ResourceID               uuid.UUID  `json:"resourceId"`
	ConflictingReservationID *uuid.UUID `json:"conflictingReservationId"`
}

type TransitionDetail struct {
	CurrentStatus       string `json:"currentStatus"`
	RequestedTransition string `json:"requestedTransition"`
}

var validationErrors = []error{
	timeslot.ErrInvalidDuration,
	timeslot.ErrInvalidWindow,
	reservation.ErrEmptyCustomerName,
	reservation.ErrCustomerNameTooLong,
	reservation.ErrEmptyCustomerContact,
	reservation.ErrCustomerNotesTooLong,
	reservation.ErrNoAssignments,
	reservation.ErrInvalidOccupancy,
	reservation.ErrDuplicateAssignment,
	reservation.ErrNilResource,
	reservation.ErrPaymentRefTooLong,
	reservation.ErrActualEndBeforeStart,
	reservation.ErrInvalidStatus,
}

// abortWithUseCaseError maps command and query errors onto the public error body.
func abortWithUseCaseError(c *gin.Context, err error) {
	var (
		unavailable *reservation.ResourceUnavailableError
		extension   *reservation.ExtensionConflictError
		transition  *reservation.IllegalTransitionError
	)
	switch {
	case errors.As(err, &unavailable):
		httperr.AbortWithError(c, http.StatusConflict, err, "Resource unavailable for the requested window", ConflictDetail{
			ResourceID:               unavailable.ResourceID,
			ConflictingReservationID: optionalID(unavailable.ConflictingReservationID),
		})
	case errors.As(err, &extension):
		httperr.AbortWithError(c, http.StatusConflict, err, "Extension conflicts with another reservation", ConflictDetail{
			ReservationID:            optionalID(extension.ReservationID),
			ResourceID:               extension.ResourceID,
			ConflictingReservationID: optionalID(extension.ConflictingReservationID),
		})
	case errors.As(err, &transition):
		httperr.AbortWithError(c, http.StatusUnprocessableEntity, err, "Illegal reservation transition", TransitionDetail{
			CurrentStatus:       transition.Current.String(),
			RequestedTransition: transition.Requested.String(),
		})
	case errors.Is(err, errs.ErrReservationNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Reservation not found", nil)
	case errors.Is(err, errs.ErrResourceNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Resource not found", nil)
	case errors.Is(err, errs.ErrIdempotencyKeyReused):
		httperr.AbortWithError(c, http.StatusConflict, err, "Idempotency key was used with a different request", nil)
	case errors.Is(err, errs.ErrIdempotencyInProgress):
		httperr.AbortWithError(c, http.StatusConflict, err, "Reservation request is currently being processed", nil)
	case errors.Is(err, errs.ErrStoreUnavailable):
		c.Header("Retry-After", retryAfterSeconds)
		httperr.AbortWithError(c, http.StatusServiceUnavailable, err, "Reservation store unavailable, retry later", nil)
	case errors.Is(err, errs.ErrRejectedByStore):
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Reservation rejected as invalid", nil)
	case isValidationError(err):
		httperr.AbortWithError(c, http.StatusBadRequest, err, err.Error(), nil)
	default:
		slog.Error("unhandled use case error",
			"error", err,
			"request_id", middleware.RequestID(c),
			"stack", errs.ExtractStackLines(err, 5))
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
	}
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func parseID(c *gin.Context, param, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, msg, nil)
		return uuid.Nil, false
	}
	return id, true
}
