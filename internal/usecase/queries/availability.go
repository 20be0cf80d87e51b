package queries

import (
	"context"
	"time"

	"lounge-booking/internal/domain/availability"
	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/resource"
	"lounge-booking/internal/domain/timeslot"
	"lounge-booking/internal/pkg/clock"
	"lounge-booking/internal/pkg/config"
	"lounge-booking/internal/pkg/errs"
	"lounge-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

// AvailabilityRequest selects resources and the instant to resolve them at.
// A zero At falls back to the clock. From and To only bound the range when both are set.
type AvailabilityRequest struct {
	ResourceIDs []uuid.UUID // empty means the whole catalog
	From        time.Time
	To          time.Time
	At          time.Time
}

type AvailabilityQueries interface {
	ForResources(ctx context.Context, req AvailabilityRequest) ([]*AvailabilityView, error)
}

type availabilityQueriesImpl struct {
	catalog shared.CatalogReader
	reads   shared.ReservationReads
	clock   clock.Clock
	loc     *time.Location
	timeout time.Duration
}

func NewAvailabilityQueries(catalog shared.CatalogReader, reads shared.ReservationReads, clk clock.Clock, cfg config.Config) AvailabilityQueries {
	return &availabilityQueriesImpl{
		catalog: catalog,
		reads:   reads,
		clock:   clk,
		loc:     cfg.Booking.DisplayLocation(),
		timeout: cfg.Booking.StoreTimeout,
	}
}

func (q *availabilityQueriesImpl) ForResources(ctx context.Context, req AvailabilityRequest) ([]*AvailabilityView, error) {
	at := req.At
	if at.IsZero() {
		at = q.clock.Now()
	}
	at = timeslot.ToCanonical(at)

	window, err := q.readWindow(req.From, req.To, at)
	if err != nil {
		return nil, err
	}

	ctx, cancel := bounded(ctx, q.timeout)
	defer cancel()

	resources, err := q.resources(ctx, req.ResourceIDs)
	if err != nil {
		return nil, err
	}
	if len(resources) == 0 {
		return []*AvailabilityView{}, nil
	}

	ids := make([]uuid.UUID, len(resources))
	for i, r := range resources {
		ids[i] = r.ID()
	}
	active, err := q.reads.ListActive(ctx, ids, window)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrStoreUnavailable)
	}

	inputs := make([]availability.Input, len(resources))
	for i, r := range resources {
		inputs[i] = availability.Input{
			ResourceID:   r.ID(),
			Maintenance:  r.UnderMaintenance(),
			Reservations: active[r.ID()],
		}
	}
	results := availability.ResolveBatch(inputs, at)

	views := make([]*AvailabilityView, len(results))
	for i, result := range results {
		views[i] = newAvailabilityView(resources[i], result, at, q.loc)
	}
	return views, nil
}

// readWindow spans the requested range and everything from at onwards, so the
// current reservation and the next one are visible wherever the range lies.
func (q *availabilityQueriesImpl) readWindow(from, to, at time.Time) (timeslot.Window, error) {
	start := at
	if !from.IsZero() && !to.IsZero() {
		requested, err := timeslot.NewQueryWindow(from, to)
		if err != nil {
			return timeslot.Window{}, err
		}
		if requested.Start().Before(start) {
			start = requested.Start()
		}
	} else if !from.IsZero() && from.Before(start) {
		start = timeslot.ToCanonical(from)
	}
	return timeslot.NewQueryWindow(start, timeslot.Unbounded)
}

func (q *availabilityQueriesImpl) resources(ctx context.Context, ids []uuid.UUID) ([]*resource.Resource, error) {
	if len(ids) == 0 {
		list, err := q.catalog.List(ctx)
		if err != nil {
			return nil, errs.Mark(err, errs.ErrStoreUnavailable)
		}
		return list, nil
	}
	return findResources(ctx, q.catalog, reservation.SortedUniqueIDs(ids))
}
