package queries

import (
	"context"
	"time"

	"lounge-booking/internal/domain/resource"
	"lounge-booking/internal/pkg/config"
	"lounge-booking/internal/pkg/errs"
	"lounge-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type CatalogQueries interface {
	List(ctx context.Context) ([]*ResourceView, error)
}

type catalogQueriesImpl struct {
	catalog shared.CatalogReader
	timeout time.Duration
}

func NewCatalogQueries(catalog shared.CatalogReader, cfg config.Config) CatalogQueries {
	return &catalogQueriesImpl{catalog: catalog, timeout: cfg.Booking.StoreTimeout}
}

func (q *catalogQueriesImpl) List(ctx context.Context) ([]*ResourceView, error) {
	ctx, cancel := bounded(ctx, q.timeout)
	defer cancel()

	list, err := q.catalog.List(ctx)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrStoreUnavailable)
	}
	views := make([]*ResourceView, len(list))
	for i, r := range list {
		views[i] = NewResourceView(r)
	}
	return views, nil
}

// findResources resolves ids in request order, failing on the first unknown one.
func findResources(ctx context.Context, catalog shared.CatalogReader, ids []uuid.UUID) ([]*resource.Resource, error) {
	found, err := catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrStoreUnavailable)
	}
	byID := make(map[uuid.UUID]*resource.Resource, len(found))
	for _, r := range found {
		byID[r.ID()] = r
	}
	out := make([]*resource.Resource, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			return nil, errs.Wrapf(errs.ErrResourceNotFound, "resource %s", id)
		}
		out = append(out, r)
	}
	return out, nil
}
