// Package memstore is an in-process implementation of the reservation store ports.
// It backs the unit tests and STORE_DRIVER=memory deployments.
package memstore

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/resource"
	"lounge-booking/internal/infra"
	"lounge-booking/internal/pkg/errs"
	"lounge-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type Store struct {
	mu           sync.RWMutex
	resources    map[uuid.UUID]*resource.Resource
	reservations map[uuid.UUID]*reservation.Reservation
	idempotency  map[uuid.UUID]shared.IdempotencyRecord

	locks          *keyedLocks
	resourceLocks  bool
	failNextCommit atomic.Bool
}

type Option func(*Store)

// WithoutResourceLocks turns LockResources into a no-op, leaving the commit-time
// overlap check as the only guard. Used to exercise the store-conflict path.
func WithoutResourceLocks() Option {
	return func(s *Store) { s.resourceLocks = false }
}

func New(opts ...Option) *Store {
	s := &Store{
		resources:     make(map[uuid.UUID]*resource.Resource),
		reservations:  make(map[uuid.UUID]*reservation.Reservation),
		idempotency:   make(map[uuid.UUID]shared.IdempotencyRecord),
		locks:         newKeyedLocks(),
		resourceLocks: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) AddResource(res ...*resource.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range res {
		s.resources[r.ID()] = r
	}
}

// SetMaintenance flips the externally owned maintenance flag.
func (s *Store) SetMaintenance(id uuid.UUID, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[id]
	if !ok {
		return infra.WrapRepoErr("resource not found", nil, infra.KindNotFound)
	}
	s.resources[id] = resource.ReconstructResource(r.ID(), r.Category(), r.Serial(), on, r.CreatedAt(), r.UpdatedAt())
	return nil
}

// FailNextCommit makes the next commit fail as a store I/O error.
func (s *Store) FailNextCommit() {
	s.failNextCommit.Store(true)
}

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	tx := newTx(s)
	defer tx.releaseLocks()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "unit of work expired before commit")
	}
	return s.commit(tx)
}

func (s *Store) Reads() shared.ReservationReads {
	return &reads{s: s}
}

func (s *Store) Catalog() shared.CatalogReader {
	return &catalog{s: s}
}

// commit re-validates every buffered write against the committed state and
// applies all of them, or none.
func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNextCommit.CompareAndSwap(true, false) {
		return infra.WrapRepoErr("failed to commit transaction", errs.New("injected commit failure"))
	}

	final := func(id uuid.UUID) (*reservation.Reservation, bool) {
		if p, ok := tx.writes[id]; ok {
			return p.res, true
		}
		r, ok := s.reservations[id]
		return r, ok
	}

	for _, id := range tx.order {
		p := tx.writes[id]
		committed, exists := s.reservations[id]
		switch {
		case p.created && exists:
			return infra.WrapRepoErr("reservation already exists", nil, infra.KindDuplicateKey)
		case !p.created && !exists:
			return infra.WrapRepoErr("reservation not found", nil, infra.KindNotFound)
		case !p.created && committed.Status() != p.base:
			return &reservation.IllegalTransitionError{Current: committed.Status(), Requested: p.transition}
		}
		if !p.res.IsActive() {
			continue
		}
		for _, other := range s.reservations {
			if other.ID() == id {
				continue
			}
			latest, _ := final(other.ID())
			if conflicts(p.res, latest) {
				return infra.WrapRepoErr("reservation slot overlaps an active reservation", nil, infra.KindConflict)
			}
		}
	}
	for key := range tx.keys {
		if _, ok := s.idempotency[key]; ok {
			return infra.WrapRepoErr("idempotency key already exists", nil, infra.KindDuplicateKey)
		}
	}

	for _, id := range tx.order {
		s.reservations[id] = tx.writes[id].res
	}
	for key, rec := range tx.keys {
		s.idempotency[key] = rec
	}
	return nil
}

// conflicts reports whether two distinct active reservations share a resource and overlap.
func conflicts(a, b *reservation.Reservation) bool {
	if a == nil || b == nil || a.ID() == b.ID() || !a.IsActive() || !b.IsActive() {
		return false
	}
	if !a.Window().Overlaps(b.Window()) {
		return false
	}
	for _, id := range a.ResourceIDs() {
		if b.HoldsResource(id) {
			return true
		}
	}
	return false
}

func sortByStart(list []*reservation.Reservation) {
	slices.SortFunc(list, func(a, b *reservation.Reservation) int {
		if c := a.Window().Start().Compare(b.Window().Start()); c != 0 {
			return c
		}
		return reservation.CompareIDs(a.ID(), b.ID())
	})
}

func statusIn(s reservation.Status, statuses []reservation.Status) bool {
	return len(statuses) == 0 || slices.Contains(statuses, s)
}
