package queries

import (
	"context"
	"time"

	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/infra"
	"lounge-booking/internal/pkg/config"
	"lounge-booking/internal/pkg/errs"
	"lounge-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

//go:generate mockgen -destination=../../../tests/mock/queries/queries_mock.go -package=queriesmock lounge-booking/internal/usecase/queries ReservationQueries,AvailabilityQueries,CatalogQueries

type ReservationQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*ReservationView, error)
	// ListForResource returns the resource's reservations by start; empty statuses means all.
	ListForResource(ctx context.Context, resourceID uuid.UUID, statuses []reservation.Status) ([]*ReservationView, error)
	Usage(ctx context.Context, id uuid.UUID) (*UsageView, error)
}

type reservationQueriesImpl struct {
	reads   shared.ReservationReads
	catalog shared.CatalogReader
	loc     *time.Location
	timeout time.Duration
}

func NewReservationQueries(reads shared.ReservationReads, catalog shared.CatalogReader, cfg config.Config) ReservationQueries {
	return &reservationQueriesImpl{
		reads:   reads,
		catalog: catalog,
		loc:     cfg.Booking.DisplayLocation(),
		timeout: cfg.Booking.StoreTimeout,
	}
}

func (q *reservationQueriesImpl) GetByID(ctx context.Context, id uuid.UUID) (*ReservationView, error) {
	ctx, cancel := bounded(ctx, q.timeout)
	defer cancel()

	res, err := q.reads.FindByID(ctx, id)
	if err != nil {
		return nil, readErr(err)
	}
	return NewReservationView(res).Localize(q.loc), nil
}

func (q *reservationQueriesImpl) ListForResource(ctx context.Context, resourceID uuid.UUID, statuses []reservation.Status) ([]*ReservationView, error) {
	ctx, cancel := bounded(ctx, q.timeout)
	defer cancel()

	if _, err := findResources(ctx, q.catalog, []uuid.UUID{resourceID}); err != nil {
		return nil, err
	}
	list, err := q.reads.ListForResource(ctx, resourceID, statuses)
	if err != nil {
		return nil, readErr(err)
	}
	views := make([]*ReservationView, len(list))
	for i, res := range list {
		views[i] = NewReservationView(res).Localize(q.loc)
	}
	return views, nil
}

func (q *reservationQueriesImpl) Usage(ctx context.Context, id uuid.UUID) (*UsageView, error) {
	ctx, cancel := bounded(ctx, q.timeout)
	defer cancel()

	res, err := q.reads.FindByID(ctx, id)
	if err != nil {
		return nil, readErr(err)
	}
	return newUsageView(res.Usage()), nil
}

func bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// readErr never lets a failed read look like an empty result.
func readErr(err error) error {
	if infra.IsKind(err, infra.KindNotFound) {
		return errs.Mark(err, errs.ErrReservationNotFound)
	}
	return errs.Mark(err, errs.ErrStoreUnavailable)
}
