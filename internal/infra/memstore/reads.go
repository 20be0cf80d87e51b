package memstore

import (
	"cmp"
	"context"
	"slices"

	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/resource"
	"lounge-booking/internal/domain/timeslot"
	"lounge-booking/internal/infra"

	"github.com/google/uuid"
)

type reads struct {
	s *Store
}

func (r *reads) FindByID(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	res, ok := r.s.reservations[id]
	if !ok {
		return nil, infra.WrapRepoErr("reservation not found", nil, infra.KindNotFound)
	}
	return res.Clone(), nil
}

func (r *reads) ListForResource(_ context.Context, resourceID uuid.UUID, statuses []reservation.Status) ([]*reservation.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*reservation.Reservation{}
	for _, res := range r.s.reservations {
		if res.HoldsResource(resourceID) && statusIn(res.Status(), statuses) {
			out = append(out, res.Clone())
		}
	}
	sortByStart(out)
	return out, nil
}

func (r *reads) ListActive(_ context.Context, resourceIDs []uuid.UUID, w timeslot.Window) (map[uuid.UUID][]*reservation.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[uuid.UUID][]*reservation.Reservation, len(resourceIDs))
	for _, res := range r.s.reservations {
		if !res.RelevantTo(w) {
			continue
		}
		for _, id := range resourceIDs {
			if res.HoldsResource(id) {
				out[id] = append(out[id], res.Clone())
			}
		}
	}
	for id := range out {
		sortByStart(out[id])
	}
	return out, nil
}

type catalog struct {
	s *Store
}

func (c *catalog) List(_ context.Context) ([]*resource.Resource, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	out := make([]*resource.Resource, 0, len(c.s.resources))
	for _, r := range c.s.resources {
		out = append(out, r)
	}
	sortResources(out)
	return out, nil
}

func (c *catalog) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*resource.Resource, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	out := []*resource.Resource{}
	for _, id := range reservation.SortedUniqueIDs(ids) {
		if r, ok := c.s.resources[id]; ok {
			out = append(out, r)
		}
	}
	sortResources(out)
	return out, nil
}

func sortResources(list []*resource.Resource) {
	slices.SortFunc(list, func(a, b *resource.Resource) int {
		return cmp.Or(cmp.Compare(a.Category(), b.Category()), cmp.Compare(a.Serial(), b.Serial()))
	})
}
