package memstore

import (
	"context"
	"time"

	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/timeslot"
	"lounge-booking/internal/infra"
	"lounge-booking/internal/pkg/errs"
	"lounge-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

// pendingWrite is a buffered change to one reservation.
type pendingWrite struct {
	res        *reservation.Reservation
	created    bool
	base       reservation.Status // committed status the change was derived from
	transition reservation.Transition
}

type memTx struct {
	s      *Store
	held   []uuid.UUID
	writes map[uuid.UUID]*pendingWrite
	order  []uuid.UUID
	keys   map[uuid.UUID]shared.IdempotencyRecord
}

func newTx(s *Store) *memTx {
	return &memTx{
		s:      s,
		writes: make(map[uuid.UUID]*pendingWrite),
		keys:   make(map[uuid.UUID]shared.IdempotencyRecord),
	}
}

func (t *memTx) LockResources(ctx context.Context, ids []uuid.UUID) error {
	if !t.s.resourceLocks {
		return nil
	}
	for _, id := range reservation.SortedUniqueIDs(ids) {
		if t.holds(id) {
			continue
		}
		if err := t.s.locks.acquire(ctx, id); err != nil {
			return errs.Wrapf(err, "failed to lock resource %s", id)
		}
		t.held = append(t.held, id)
	}
	return nil
}

func (t *memTx) holds(id uuid.UUID) bool {
	for _, h := range t.held {
		if h == id {
			return true
		}
	}
	return false
}

func (t *memTx) releaseLocks() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.s.locks.release(t.held[i])
	}
	t.held = nil
}

func (t *memTx) Reservations() shared.ReservationRepository {
	return &txReservations{tx: t}
}

func (t *memTx) Idempotency() shared.IdempotencyRepository {
	return &txIdempotency{tx: t}
}

// view merges buffered writes over the committed state. Callers get clones.
func (t *memTx) view(id uuid.UUID) (*reservation.Reservation, bool) {
	if p, ok := t.writes[id]; ok {
		return p.res.Clone(), true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	r, ok := t.s.reservations[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

func (t *memTx) all() []*reservation.Reservation {
	t.s.mu.RLock()
	out := make([]*reservation.Reservation, 0, len(t.s.reservations)+len(t.writes))
	for id, r := range t.s.reservations {
		if _, ok := t.writes[id]; !ok {
			out = append(out, r.Clone())
		}
	}
	t.s.mu.RUnlock()
	for _, p := range t.writes {
		out = append(out, p.res.Clone())
	}
	return out
}

func (t *memTx) stage(res *reservation.Reservation, created bool, base reservation.Status, tr reservation.Transition) {
	if p, ok := t.writes[res.ID()]; ok {
		p.res = res.Clone()
		p.transition = tr
		return
	}
	t.writes[res.ID()] = &pendingWrite{res: res.Clone(), created: created, base: base, transition: tr}
	t.order = append(t.order, res.ID())
}

type txReservations struct {
	tx *memTx
}

func (r *txReservations) QueryOverlapping(_ context.Context, resourceID uuid.UUID, w timeslot.Window, statuses []reservation.Status) ([]*reservation.Reservation, error) {
	var out []*reservation.Reservation
	for _, res := range r.tx.all() {
		if res.HoldsResource(resourceID) && statusIn(res.Status(), statuses) && res.Window().Overlaps(w) {
			out = append(out, res)
		}
	}
	sortByStart(out)
	return out, nil
}

func (r *txReservations) Create(_ context.Context, res *reservation.Reservation) error {
	if _, exists := r.tx.view(res.ID()); exists {
		return infra.WrapRepoErr("reservation already exists", nil, infra.KindDuplicateKey)
	}
	r.tx.s.mu.RLock()
	for _, id := range res.ResourceIDs() {
		if _, ok := r.tx.s.resources[id]; !ok {
			r.tx.s.mu.RUnlock()
			return infra.WrapRepoErr("reservation references an unknown resource", nil, infra.KindForeignKeyViolated)
		}
	}
	r.tx.s.mu.RUnlock()
	for _, other := range r.tx.all() {
		if conflicts(res, other) {
			return infra.WrapRepoErr("reservation slot overlaps an active reservation", nil, infra.KindConflict)
		}
	}
	r.tx.stage(res, true, "", "")
	return nil
}

func (r *txReservations) FindByID(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	res, ok := r.tx.view(id)
	if !ok {
		return nil, infra.WrapRepoErr("reservation not found", nil, infra.KindNotFound)
	}
	return res, nil
}

func (r *txReservations) UpdateStatus(_ context.Context, id uuid.UUID, from reservation.Status, t reservation.Transition, at time.Time) error {
	cur, ok := r.tx.view(id)
	if !ok {
		return infra.WrapRepoErr("reservation not found", nil, infra.KindNotFound)
	}
	if cur.Status() != from {
		return &reservation.IllegalTransitionError{Current: cur.Status(), Requested: t}
	}

	var err error
	switch t {
	case reservation.TransitionStart:
		err = cur.Start(at)
	case reservation.TransitionEnd:
		err = cur.End(at)
	case reservation.TransitionCancel:
		err = cur.Cancel(at)
	default:
		_, err = from.Next(t)
	}
	if err != nil {
		return err
	}
	r.tx.stage(cur, false, from, t)
	return nil
}

func (r *txReservations) UpdateWindow(_ context.Context, res *reservation.Reservation) error {
	cur, ok := r.tx.view(res.ID())
	if !ok {
		return infra.WrapRepoErr("reservation not found", nil, infra.KindNotFound)
	}
	if cur.Status() != reservation.StatusInUse {
		return &reservation.IllegalTransitionError{Current: cur.Status(), Requested: reservation.TransitionExtend}
	}
	for _, other := range r.tx.all() {
		if conflicts(res, other) {
			return infra.WrapRepoErr("reservation slot overlaps an active reservation", nil, infra.KindConflict)
		}
	}
	r.tx.stage(res, false, cur.Status(), reservation.TransitionExtend)
	return nil
}

func (r *txReservations) ListForResource(_ context.Context, resourceID uuid.UUID, statuses []reservation.Status) ([]*reservation.Reservation, error) {
	var out []*reservation.Reservation
	for _, res := range r.tx.all() {
		if res.HoldsResource(resourceID) && statusIn(res.Status(), statuses) {
			out = append(out, res)
		}
	}
	sortByStart(out)
	return out, nil
}

type txIdempotency struct {
	tx *memTx
}

func (r *txIdempotency) Find(ctx context.Context, key uuid.UUID) (*shared.IdempotencyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to find idempotency key", err)
	}
	if rec, ok := r.tx.keys[key]; ok {
		return &rec, nil
	}
	r.tx.s.mu.RLock()
	defer r.tx.s.mu.RUnlock()
	rec, ok := r.tx.s.idempotency[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *txIdempotency) Save(ctx context.Context, rec shared.IdempotencyRecord) error {
	existing, err := r.Find(ctx, rec.Key)
	if err != nil {
		return err
	}
	if existing != nil {
		return infra.WrapRepoErr("idempotency key already exists", nil, infra.KindDuplicateKey)
	}
	r.tx.keys[rec.Key] = rec
	return nil
}
