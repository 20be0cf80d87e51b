package errs

import "errors"

// Sentinel errors shared by the command and query layers
var (
	// Catalog errors
	ErrResourceNotFound = errors.New("resource not found")

	// Reservation errors
	ErrReservationNotFound = errors.New("reservation not found")

	// Idempotency errors
	ErrIdempotencyKeyReused  = errors.New("idempotency key reused with a different request")
	ErrIdempotencyInProgress = errors.New("idempotency in progress")

	// ErrRejectedByStore is a row the store refused as invalid; retrying cannot help.
	ErrRejectedByStore = errors.New("reservation rejected by store constraints")

	// ErrStoreUnavailable is retryable by the caller; the engine never retries it itself.
	ErrStoreUnavailable = errors.New("reservation store unavailable")
)
