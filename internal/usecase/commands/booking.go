package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"slices"
	"time"

	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/timeslot"
	"lounge-booking/internal/infra"
	"lounge-booking/internal/pkg/clock"
	"lounge-booking/internal/pkg/config"
	"lounge-booking/internal/pkg/errs"
	"lounge-booking/internal/usecase/queries"
	"lounge-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

//go:generate mockgen -source=booking.go -destination=../../../tests/mock/commands/booking_mock.go -package=commandsmock

type BookingCommands interface {
	Create(ctx context.Context, in CreateBookingInput) (*CreateBookingResult, error)
	Start(ctx context.Context, id uuid.UUID) (*queries.ReservationView, error)
	// End completes a session; a nil actualEnd means now.
	End(ctx context.Context, id uuid.UUID, actualEnd *time.Time) (*queries.ReservationView, error)
	Cancel(ctx context.Context, id uuid.UUID) (*queries.ReservationView, error)
	Extend(ctx context.Context, id uuid.UUID, additionalMinutes int) (*queries.ReservationView, error)
}

type bookingCommandsImpl struct {
	uow         shared.UnitOfWork
	validator   *ConflictValidator
	notifier    shared.Notifier
	invalidator shared.SnapshotInvalidator
	clock       clock.Clock
	timeout     time.Duration
}

func NewBookingCommands(
	uow shared.UnitOfWork,
	validator *ConflictValidator,
	notifier shared.Notifier,
	invalidator shared.SnapshotInvalidator,
	clk clock.Clock,
	cfg config.Config,
) BookingCommands {
	if invalidator == nil {
		invalidator = shared.NopInvalidator{}
	}
	return &bookingCommandsImpl{
		uow:         uow,
		validator:   validator,
		notifier:    notifier,
		invalidator: invalidator,
		clock:       clk,
		timeout:     cfg.Booking.StoreTimeout,
	}
}

func (b *bookingCommandsImpl) Create(ctx context.Context, in CreateBookingInput) (*CreateBookingResult, error) {
	now := b.clock.Now()
	res, err := newReservationFromInput(in, now)
	if err != nil {
		return nil, err
	}

	ctx, cancel := b.bounded(ctx)
	defer cancel()

	if err := b.ensureResources(ctx, res.ResourceIDs()); err != nil {
		return nil, err
	}

	hash := requestHash(in)
	var replayed *reservation.Reservation
	err = b.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		// Take the locks before the key lookup so a concurrent retry of the
		// same request replays instead of conflicting with its twin.
		if err := tx.LockResources(ctx, res.ResourceIDs()); err != nil {
			return err
		}
		if in.IdempotencyKey != nil {
			rec, err := tx.Idempotency().Find(ctx, *in.IdempotencyKey)
			if err != nil {
				return err
			}
			if rec != nil {
				if rec.RequestHash != hash {
					return errs.ErrIdempotencyKeyReused
				}
				original, err := tx.Reservations().FindByID(ctx, rec.ReservationID)
				if err != nil {
					return err
				}
				replayed = original
				return nil
			}
		}

		if err := b.validator.Admit(ctx, tx, res); err != nil {
			return err
		}

		if in.IdempotencyKey != nil {
			return tx.Idempotency().Save(ctx, shared.IdempotencyRecord{
				Key:           *in.IdempotencyKey,
				RequestHash:   hash,
				ReservationID: res.ID(),
				CreatedAt:     now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, func() error { return storeConflict(res.ResourceIDs()) })
	}

	if replayed != nil {
		return &CreateBookingResult{Reservation: queries.NewReservationView(replayed), IsReplayed: true}, nil
	}

	b.afterCommit(ctx, shared.EventCreated, res)
	return &CreateBookingResult{Reservation: queries.NewReservationView(res)}, nil
}

func (b *bookingCommandsImpl) Start(ctx context.Context, id uuid.UUID) (*queries.ReservationView, error) {
	return b.transition(ctx, id, reservation.TransitionStart, b.clock.Now(), shared.EventStarted)
}

func (b *bookingCommandsImpl) End(ctx context.Context, id uuid.UUID, actualEnd *time.Time) (*queries.ReservationView, error) {
	at := b.clock.Now()
	if actualEnd != nil {
		at = *actualEnd
	}
	return b.transition(ctx, id, reservation.TransitionEnd, at, shared.EventEnded)
}

func (b *bookingCommandsImpl) Cancel(ctx context.Context, id uuid.UUID) (*queries.ReservationView, error) {
	return b.transition(ctx, id, reservation.TransitionCancel, b.clock.Now(), shared.EventCancelled)
}

func (b *bookingCommandsImpl) Extend(ctx context.Context, id uuid.UUID, additionalMinutes int) (*queries.ReservationView, error) {
	if additionalMinutes <= 0 {
		return nil, timeslot.ErrInvalidDuration
	}
	now := b.clock.Now()

	ctx, cancel := b.bounded(ctx)
	defer cancel()

	res, err := shared.RunInTx(ctx, b.uow, func(ctx context.Context, tx shared.Tx) (*reservation.Reservation, error) {
		current, err := b.loadLocked(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if _, err := current.Extend(additionalMinutes, now); err != nil {
			return nil, err
		}
		if err := b.validator.AdmitExtension(ctx, tx, current); err != nil {
			return nil, err
		}
		return current, nil
	})
	if err != nil {
		return nil, translate(err, func() error {
			return &reservation.ExtensionConflictError{ReservationID: id}
		})
	}

	b.afterCommit(ctx, shared.EventExtended, res)
	return queries.NewReservationView(res), nil
}

// transition applies a status change with compare-and-set on the status it was read in.
func (b *bookingCommandsImpl) transition(
	ctx context.Context,
	id uuid.UUID,
	t reservation.Transition,
	at time.Time,
	kind shared.EventKind,
) (*queries.ReservationView, error) {
	ctx, cancel := b.bounded(ctx)
	defer cancel()

	res, err := shared.RunInTx(ctx, b.uow, func(ctx context.Context, tx shared.Tx) (*reservation.Reservation, error) {
		current, err := b.loadLocked(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		from := current.Status()
		if err := applyTransition(current, t, at); err != nil {
			return nil, err
		}
		if err := tx.Reservations().UpdateStatus(ctx, id, from, t, at); err != nil {
			return nil, err
		}
		return current, nil
	})
	if err != nil {
		return nil, translate(err, nil)
	}

	b.afterCommit(ctx, kind, res)
	return queries.NewReservationView(res), nil
}

// loadLocked reads the reservation, locks its resources, then re-reads it so the
// status seen is the one the locks protect.
func (b *bookingCommandsImpl) loadLocked(ctx context.Context, tx shared.Tx, id uuid.UUID) (*reservation.Reservation, error) {
	res, err := tx.Reservations().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.LockResources(ctx, res.ResourceIDs()); err != nil {
		return nil, err
	}
	return tx.Reservations().FindByID(ctx, id)
}

func applyTransition(res *reservation.Reservation, t reservation.Transition, at time.Time) error {
	switch t {
	case reservation.TransitionStart:
		return res.Start(at)
	case reservation.TransitionEnd:
		return res.End(at)
	case reservation.TransitionCancel:
		return res.Cancel(at)
	default:
		return &reservation.IllegalTransitionError{Current: res.Status(), Requested: t}
	}
}

func (b *bookingCommandsImpl) ensureResources(ctx context.Context, ids []uuid.UUID) error {
	found, err := b.uow.Catalog().FindByIDs(ctx, ids)
	if err != nil {
		return translate(err, nil)
	}
	known := make(map[uuid.UUID]struct{}, len(found))
	for _, r := range found {
		known[r.ID()] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return errs.Wrapf(errs.ErrResourceNotFound, "resource %s", id)
		}
	}
	return nil
}

func (b *bookingCommandsImpl) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

// afterCommit informs collaborators of a committed change. Failures are logged only;
// the reservation is already durable.
func (b *bookingCommandsImpl) afterCommit(ctx context.Context, kind shared.EventKind, res *reservation.Reservation) {
	ctx = context.WithoutCancel(ctx)

	if err := b.invalidator.Invalidate(ctx, res.ResourceIDs()); err != nil {
		slog.Warn("Failed to invalidate availability snapshot",
			slog.String("reservation_id", res.ID().String()),
			slog.String("error", err.Error()))
	}
	if b.notifier == nil {
		return
	}
	if err := b.notifier.Notify(ctx, shared.NewReservationEvent(kind, res, b.clock.Now())); err != nil {
		slog.Warn("Failed to notify reservation event",
			slog.String("kind", string(kind)),
			slog.String("reservation_id", res.ID().String()),
			slog.String("error", err.Error()))
	}
}

// translate maps store failures onto the errors callers act on. onConflict builds
// the error for an overlap only the store detected; nil leaves it as is.
func translate(err error, onConflict func() error) error {
	switch {
	case err == nil:
		return nil
	case infra.IsKind(err, infra.KindConflict) && onConflict != nil:
		return onConflict()
	case infra.IsKind(err, infra.KindNotFound):
		return errs.Mark(err, errs.ErrReservationNotFound)
	case infra.IsKind(err, infra.KindForeignKeyViolated):
		return errs.Mark(err, errs.ErrResourceNotFound)
	case infra.IsKind(err, infra.KindDuplicateKey):
		return errs.Mark(err, errs.ErrIdempotencyInProgress)
	case infra.IsKind(err, infra.KindCheckViolated):
		return errs.Mark(err, errs.ErrRejectedByStore)
	case infra.IsUnavailable(err):
		return errs.Mark(err, errs.ErrStoreUnavailable)
	default:
		return err
	}
}

func newReservationFromInput(in CreateBookingInput, now time.Time) (*reservation.Reservation, error) {
	window, err := timeslot.NewWindow(in.Start, in.DurationMinutes)
	if err != nil {
		return nil, err
	}
	customer, err := reservation.NewCustomer(in.Customer.Name, in.Customer.Contact, in.Customer.Notes)
	if err != nil {
		return nil, err
	}
	assignments := make([]reservation.Assignment, 0, len(in.Assignments))
	for _, a := range in.Assignments {
		assignment, err := reservation.NewAssignment(a.ResourceID, a.Occupancy)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	paymentRef, err := reservation.NewPaymentRef(in.PaymentRef)
	if err != nil {
		return nil, err
	}
	return reservation.NewReservation(uuid.Nil, customer, window, assignments, paymentRef, now)
}

type hashedAssignment struct {
	ResourceID string `json:"resource_id"`
	Occupancy  int    `json:"occupancy"`
}

type hashedRequest struct {
	Start           string             `json:"start"`
	DurationMinutes int                `json:"duration_minutes"`
	Customer        CustomerInput      `json:"customer"`
	Assignments     []hashedAssignment `json:"assignments"`
	PaymentRef      string             `json:"payment_ref"`
}

// requestHash fingerprints the request independent of the caller's zone and assignment order.
func requestHash(in CreateBookingInput) string {
	assignments := make([]hashedAssignment, len(in.Assignments))
	for i, a := range in.Assignments {
		assignments[i] = hashedAssignment{ResourceID: a.ResourceID.String(), Occupancy: a.Occupancy}
	}
	slices.SortFunc(assignments, func(a, b hashedAssignment) int {
		if a.ResourceID < b.ResourceID {
			return -1
		}
		if a.ResourceID > b.ResourceID {
			return 1
		}
		return 0
	})

	payload, _ := json.Marshal(hashedRequest{
		Start:           timeslot.ToCanonical(in.Start).Format(time.RFC3339Nano),
		DurationMinutes: in.DurationMinutes,
		Customer:        in.Customer,
		Assignments:     assignments,
		PaymentRef:      in.PaymentRef,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
