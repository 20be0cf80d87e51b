//go:build unit

package commands_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lounge-booking/internal/domain/availability"
	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/timeslot"
	"lounge-booking/internal/infra/memstore"
	"lounge-booking/internal/pkg/clock"
	"lounge-booking/internal/pkg/config"
	"lounge-booking/internal/pkg/errs"
	"lounge-booking/internal/usecase/commands"
	"lounge-booking/internal/usecase/queries"
	"lounge-booking/internal/usecase/shared"
	"lounge-booking/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test fixture
// =============================================================================

// spyUoW counts store access and can run a hook between the unit's work and its commit.
type spyUoW struct {
	shared.UnitOfWork
	calls        atomic.Int32
	beforeCommit func()
}

func (s *spyUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.calls.Add(1)
	return s.UnitOfWork.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if hook := s.beforeCommit; hook != nil {
			s.beforeCommit = nil
			hook()
		}
		return nil
	})
}

func (s *spyUoW) Catalog() shared.CatalogReader {
	s.calls.Add(1)
	return s.UnitOfWork.Catalog()
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []shared.ReservationEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event shared.ReservationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) kinds() []shared.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]shared.EventKind, len(n.events))
	for i, e := range n.events {
		out[i] = e.Kind
	}
	return out
}

type failingInvalidator struct{}

func (failingInvalidator) Invalidate(context.Context, []uuid.UUID) error {
	return errors.New("redis: connection refused")
}

type fixture struct {
	store    *memstore.Store
	uow      *spyUoW
	clock    *clock.MockClock
	notifier *recordingNotifier
	cfg      config.Config
	cmds     commands.BookingCommands
}

func newFixture(t *testing.T, opts ...memstore.Option) *fixture {
	t.Helper()
	f := &fixture{
		store:    memstore.New(opts...),
		clock:    clock.NewMockClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)),
		notifier: &recordingNotifier{},
		cfg:      config.NewTestConfig(),
	}
	f.uow = &spyUoW{UnitOfWork: f.store}
	f.rebuild(nil)
	return f
}

func (f *fixture) rebuild(invalidator shared.SnapshotInvalidator) {
	f.cmds = commands.NewBookingCommands(f.uow, commands.NewConflictValidator(), f.notifier, invalidator, f.clock, f.cfg)
}

func (f *fixture) addResources(t *testing.T, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, n)
	for i := range ids {
		r := builder.NewResourceBuilder().MustBuild()
		f.store.AddResource(r)
		ids[i] = r.ID()
	}
	return ids
}

func (f *fixture) availability() queries.AvailabilityQueries {
	return queries.NewAvailabilityQueries(f.store.Catalog(), f.store.Reads(), f.clock, f.cfg)
}

func (f *fixture) active(t *testing.T, resourceID uuid.UUID) []*reservation.Reservation {
	t.Helper()
	list, err := f.store.Reads().ListForResource(context.Background(), resourceID, reservation.ActiveStatuses())
	require.NoError(t, err)
	return list
}

func at(hour, minute int) time.Time {
	return time.Date(2025, 6, 1, hour, minute, 0, 0, time.UTC)
}

func booking(start time.Time, minutes int, customer string, resourceIDs ...uuid.UUID) commands.CreateBookingInput {
	return builder.NewReservationBuilder().
		WithCustomer(customer, customer+"@example.com").
		WithWindow(start, minutes).
		WithResources(resourceIDs...).
		BuildCreateInput()
}

// =============================================================================
// End-to-end lifecycle scenario
// =============================================================================

func TestBookingCommands_AliceAndBobScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.addResources(t, 1)[0]

	alice, err := f.cmds.Create(ctx, booking(at(10, 0), 60, "Alice", r))
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusBooked.String(), alice.Reservation.Status)
	assert.False(t, alice.IsReplayed)
	assert.Equal(t, at(11, 0), alice.Reservation.End)

	_, err = f.cmds.Create(ctx, booking(at(10, 30), 60, "Bob", r))
	var unavailable *reservation.ResourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, r, unavailable.ResourceID)
	assert.Equal(t, alice.Reservation.ID, unavailable.ConflictingReservationID)

	f.clock.Set(at(10, 0))
	started, err := f.cmds.Start(ctx, alice.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusInUse.String(), started.Status)

	views, err := f.availability().ForResources(ctx, queries.AvailabilityRequest{ResourceIDs: []uuid.UUID{r}, At: at(10, 15)})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, availability.StatusInUse.String(), views[0].Status)
	require.NotNil(t, views[0].Current)
	assert.Equal(t, alice.Reservation.ID, views[0].Current.ID)
	assert.Nil(t, views[0].Next)

	actualEnd := at(11, 5)
	ended, err := f.cmds.End(ctx, alice.Reservation.ID, &actualEnd)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCompleted.String(), ended.Status)
	require.NotNil(t, ended.ActualEnd)
	assert.Equal(t, actualEnd, *ended.ActualEnd)

	views, err = f.availability().ForResources(ctx, queries.AvailabilityRequest{ResourceIDs: []uuid.UUID{r}, At: at(11, 10)})
	require.NoError(t, err)
	assert.Equal(t, availability.StatusAvailable.String(), views[0].Status)
	assert.Nil(t, views[0].Current)
	assert.Nil(t, views[0].Next)

	assert.Equal(t, []shared.EventKind{shared.EventCreated, shared.EventStarted, shared.EventEnded}, f.notifier.kinds())
}

// =============================================================================
// Create Tests
// =============================================================================

func TestBookingCommands_Create_HalfOpenBoundary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.addResources(t, 1)[0]

	_, err := f.cmds.Create(ctx, booking(at(11, 0), 60, "Existing", r))
	require.NoError(t, err)

	testCases := []struct {
		name        string
		start       time.Time
		expectError error
	}{
		{name: "success: window ending at the existing start", start: at(10, 0)},
		{name: "error: window overlapping the existing start", start: at(10, 30), expectError: reservation.ErrResourceUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.cmds.Create(ctx, booking(tc.start, 60, "Carol", r))
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBookingCommands_Create_ConcurrentProposalsNeverDoubleBook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.addResources(t, 1)[0]

	const proposals = 24
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for i := range proposals {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := at(10, 0).Add(time.Duration(i%6) * 20 * time.Minute)
			_, err := f.cmds.Create(ctx, booking(start, 45, "Walk-in", r))
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, reservation.ErrResourceUnavailable):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	active := f.active(t, r)
	assert.Equal(t, int(succeeded.Load()), len(active))
	assert.Equal(t, int32(proposals), succeeded.Load()+rejected.Load())
	for i := range active {
		for j := i + 1; j < len(active); j++ {
			assert.False(t, active[i].Window().Overlaps(active[j].Window()),
				"%s overlaps %s", active[i].Window(), active[j].Window())
		}
	}
}

func TestBookingCommands_Create_MultiResourceIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ids := f.addResources(t, 2)
	x, y := ids[0], ids[1]

	blocker, err := f.cmds.Create(ctx, booking(at(10, 0), 60, "Blocker", y))
	require.NoError(t, err)

	_, err = f.cmds.Create(ctx, booking(at(10, 30), 60, "Group", x, y))
	var unavailable *reservation.ResourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, y, unavailable.ResourceID)
	assert.Equal(t, blocker.Reservation.ID, unavailable.ConflictingReservationID)

	assert.Empty(t, f.active(t, x), "free resource must not keep a partial reservation")
	assert.Len(t, f.active(t, y), 1)
}

func TestBookingCommands_Create_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.addResources(t, 1)[0]

	testCases := []struct {
		name        string
		mutate      func(*commands.CreateBookingInput)
		expectError error
	}{
		{
			name:        "error: zero duration",
			mutate:      func(in *commands.CreateBookingInput) { in.DurationMinutes = 0 },
			expectError: timeslot.ErrInvalidDuration,
		},
		{
			name:        "error: negative duration",
			mutate:      func(in *commands.CreateBookingInput) { in.DurationMinutes = -30 },
			expectError: timeslot.ErrInvalidDuration,
		},
		{
			name:        "error: duration beyond what a time span can hold",
			mutate:      func(in *commands.CreateBookingInput) { in.DurationMinutes = int(timeslot.MaxDurationMinutes) + 1 },
			expectError: timeslot.ErrInvalidDuration,
		},
		{
			name:        "error: no resources",
			mutate:      func(in *commands.CreateBookingInput) { in.Assignments = nil },
			expectError: reservation.ErrNoAssignments,
		},
		{
			name:        "error: empty customer name",
			mutate:      func(in *commands.CreateBookingInput) { in.Customer.Name = "" },
			expectError: reservation.ErrEmptyCustomerName,
		},
		{
			name: "error: zero occupancy",
			mutate: func(in *commands.CreateBookingInput) {
				in.Assignments = []commands.AssignmentInput{{ResourceID: r, Occupancy: 0}}
			},
			expectError: reservation.ErrInvalidOccupancy,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := booking(at(10, 0), 60, "Dave", r)
			tc.mutate(&in)
			before := f.uow.calls.Load()

			_, err := f.cmds.Create(ctx, in)

			assert.ErrorIs(t, err, tc.expectError)
			assert.Equal(t, before, f.uow.calls.Load(), "rejected input must not reach the store")
		})
	}
}

func TestBookingCommands_Create_OversizedDurationCannotWrapPastExisting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.addResources(t, 1)[0]

	alice, err := f.cmds.Create(ctx, booking(at(10, 0), 60, "Alice", r))
	require.NoError(t, err)

	_, err = f.cmds.Create(ctx, booking(at(9, 0), int(timeslot.MaxDurationMinutes)+1, "Bob", r))
	assert.ErrorIs(t, err, timeslot.ErrInvalidDuration)

	_, err = f.cmds.Create(ctx, booking(at(9, 0), int(timeslot.MaxDurationMinutes), "Bob", r))
	var unavailable *reservation.ResourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, alice.Reservation.ID, unavailable.ConflictingReservationID)

	active := f.active(t, r)
	require.Len(t, active, 1)
	assert.Equal(t, alice.Reservation.ID, active[0].ID())
	assert.True(t, active[0].Window().End().After(active[0].Window().Start()))
}

func TestBookingCommands_Create_UnknownResource(t *testing.T) {
	f := newFixture(t)

	_, err := f.cmds.Create(context.Background(), booking(at(10, 0), 60, "Eve", uuid.New()))

	assert.ErrorIs(t, err, errs.ErrResourceNotFound)
}

func TestBookingCommands_Create_CanonicalizesStart(t *testing.T) {
	f := newFixture(t)
	r := f.addResources(t, 1)[0]
	tokyo := time.FixedZone("JST", 9*60*60)

	result, err := f.cmds.Create(context.Background(), booking(time.Date(2025, 6, 1, 19, 0, 0, 0, tokyo), 90, "Frank", r))

	require.NoError(t, err)
	assert.Equal(t, time.UTC, result.Reservation.Start.Location())
	assert.Equal(t, at(10, 0), result.Reservation.Start)
	assert.Equal(t, at(11, 30), result.Reservation.End)
}

func TestBookingCommands_Create_StoreConflictAtCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memstore.WithoutResourceLocks())
	r := f.addResources(t, 1)[0]

	f.uow.beforeCommit = func() {
		_, err := commands.NewBookingCommands(f.store, commands.NewConflictValidator(), nil, nil, f.clock, f.cfg).
			Create(ctx, booking(at(10, 30), 60, "Racer", r))
		require.NoError(t, err)
	}

	_, err := f.cmds.Create(ctx, booking(at(10, 0), 60, "Loser", r))

	var unavailable *reservation.ResourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, r, unavailable.ResourceID)
	assert.Equal(t, uuid.Nil, unavailable.ConflictingReservationID)
	assert.Len(t, f.active(t, r), 1)
}

// =============================================================================
// Idempotency Tests
// =============================================================================

func TestBookingCommands_Create_Idempotency(t *testing.T) {
	ctx := context.Background()

	t.Run("success: replay returns the original reservation", func(t *testing.T) {
		f := newFixture(t)
		r := f.addResources(t, 1)[0]
		key := uuid.New()
		in := booking(at(10, 0), 60, "Grace", r)
		in.IdempotencyKey = &key

		first, err := f.cmds.Create(ctx, in)
		require.NoError(t, err)
		second, err := f.cmds.Create(ctx, in)
		require.NoError(t, err)

		assert.False(t, first.IsReplayed)
		assert.True(t, second.IsReplayed)
		assert.Equal(t, first.Reservation.ID, second.Reservation.ID)
		assert.Len(t, f.active(t, r), 1)
		assert.Equal(t, []shared.EventKind{shared.EventCreated}, f.notifier.kinds())
	})

	t.Run("error: same key with a different payload", func(t *testing.T) {
		f := newFixture(t)
		r := f.addResources(t, 1)[0]
		key := uuid.New()
		in := booking(at(10, 0), 60, "Heidi", r)
		in.IdempotencyKey = &key
		_, err := f.cmds.Create(ctx, in)
		require.NoError(t, err)

		in.DurationMinutes = 90
		_, err = f.cmds.Create(ctx, in)

		assert.ErrorIs(t, err, errs.ErrIdempotencyKeyReused)
	})

	t.Run("success: concurrent retries create exactly one reservation", func(t *testing.T) {
		f := newFixture(t)
		r := f.addResources(t, 1)[0]
		key := uuid.New()
		in := booking(at(10, 0), 60, "Ivan", r)
		in.IdempotencyKey = &key

		const retries = 8
		results := make([]*commands.CreateBookingResult, retries)
		var wg sync.WaitGroup
		for i := range retries {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := f.cmds.Create(ctx, in)
				assert.NoError(t, err)
				results[i] = res
			}()
		}
		wg.Wait()

		created := 0
		for _, res := range results {
			require.NotNil(t, res)
			assert.Equal(t, results[0].Reservation.ID, res.Reservation.ID)
			if !res.IsReplayed {
				created++
			}
		}
		assert.Equal(t, 1, created)
		assert.Len(t, f.active(t, r), 1)
	})
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestBookingCommands_LifecycleMonotonicity(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name    string
		prepare func(f *fixture, id uuid.UUID)
		act     func(f *fixture, id uuid.UUID) error
		current reservation.Status
	}{
		{
			name:    "error: end a booked reservation",
			prepare: func(*fixture, uuid.UUID) {},
			act: func(f *fixture, id uuid.UUID) error {
				_, err := f.cmds.End(ctx, id, nil)
				return err
			},
			current: reservation.StatusBooked,
		},
		{
			name: "error: start a completed reservation",
			prepare: func(f *fixture, id uuid.UUID) {
				_, _ = f.cmds.Start(ctx, id)
				_, _ = f.cmds.End(ctx, id, nil)
			},
			act: func(f *fixture, id uuid.UUID) error {
				_, err := f.cmds.Start(ctx, id)
				return err
			},
			current: reservation.StatusCompleted,
		},
		{
			name: "error: start a cancelled reservation",
			prepare: func(f *fixture, id uuid.UUID) {
				_, _ = f.cmds.Cancel(ctx, id)
			},
			act: func(f *fixture, id uuid.UUID) error {
				_, err := f.cmds.Start(ctx, id)
				return err
			},
			current: reservation.StatusCancelled,
		},
		{
			name: "error: cancel a completed reservation",
			prepare: func(f *fixture, id uuid.UUID) {
				_, _ = f.cmds.Start(ctx, id)
				_, _ = f.cmds.End(ctx, id, nil)
			},
			act: func(f *fixture, id uuid.UUID) error {
				_, err := f.cmds.Cancel(ctx, id)
				return err
			},
			current: reservation.StatusCompleted,
		},
		{
			name:    "error: extend a booked reservation",
			prepare: func(*fixture, uuid.UUID) {},
			act: func(f *fixture, id uuid.UUID) error {
				_, err := f.cmds.Extend(ctx, id, 30)
				return err
			},
			current: reservation.StatusBooked,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			r := f.addResources(t, 1)[0]
			created, err := f.cmds.Create(ctx, booking(at(10, 0), 60, "Judy", r))
			require.NoError(t, err)
			f.clock.Set(at(10, 0))
			tc.prepare(f, created.Reservation.ID)

			err = tc.act(f, created.Reservation.ID)

			var illegal *reservation.IllegalTransitionError
			require.ErrorAs(t, err, &illegal)
			assert.ErrorIs(t, err, reservation.ErrIllegalTransition)
			assert.Equal(t, tc.current, illegal.Current)
		})
	}
}

func TestBookingCommands_CancelReleasesTheSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.addResources(t, 1)[0]

	first, err := f.cmds.Create(ctx, booking(at(10, 0), 60, "Ken", r))
	require.NoError(t, err)
	cancelled, err := f.cmds.Cancel(ctx, first.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCancelled.String(), cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	_, err = f.cmds.Create(ctx, booking(at(10, 0), 60, "Leo", r))
	assert.NoError(t, err)
}

func TestBookingCommands_End_BeforeActualStart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.addResources(t, 1)[0]
	created, err := f.cmds.Create(ctx, booking(at(10, 0), 60, "Mallory", r))
	require.NoError(t, err)
	f.clock.Set(at(10, 5))
	_, err = f.cmds.Start(ctx, created.Reservation.ID)
	require.NoError(t, err)

	early := at(10, 0)
	_, err = f.cmds.End(ctx, created.Reservation.ID, &early)

	assert.ErrorIs(t, err, reservation.ErrActualEndBeforeStart)
}

func TestBookingCommands_UnknownReservation(t *testing.T) {
	f := newFixture(t)

	_, err := f.cmds.Start(context.Background(), uuid.New())

	assert.ErrorIs(t, err, errs.ErrReservationNotFound)
}

// =============================================================================
// Extend Tests
// =============================================================================

func TestBookingCommands_Extend(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, uuid.UUID, uuid.UUID) {
		f := newFixture(t)
		r := f.addResources(t, 1)[0]
		a, err := f.cmds.Create(ctx, booking(at(10, 0), 60, "A", r))
		require.NoError(t, err)
		b, err := f.cmds.Create(ctx, booking(at(11, 0), 60, "B", r))
		require.NoError(t, err)
		f.clock.Set(at(10, 0))
		_, err = f.cmds.Start(ctx, a.Reservation.ID)
		require.NoError(t, err)
		return f, a.Reservation.ID, b.Reservation.ID
	}

	t.Run("error: extension into the next reservation", func(t *testing.T) {
		f, a, b := setup(t)

		_, err := f.cmds.Extend(ctx, a, 30)

		var conflict *reservation.ExtensionConflictError
		require.ErrorAs(t, err, &conflict)
		assert.ErrorIs(t, err, reservation.ErrExtensionConflict)
		assert.Equal(t, a, conflict.ReservationID)
		assert.Equal(t, b, conflict.ConflictingReservationID)

		current, err := f.store.Reads().FindByID(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, at(11, 0), current.Window().End(), "rejected extension must not widen the window")
	})

	t.Run("error: non-positive extension", func(t *testing.T) {
		f, a, _ := setup(t)
		before := f.uow.calls.Load()

		_, err := f.cmds.Extend(ctx, a, 0)

		assert.ErrorIs(t, err, timeslot.ErrInvalidDuration)
		assert.Equal(t, before, f.uow.calls.Load())
	})

	t.Run("error: extension that would overflow the window", func(t *testing.T) {
		f, a, _ := setup(t)

		_, err := f.cmds.Extend(ctx, a, int(timeslot.MaxDurationMinutes))

		assert.ErrorIs(t, err, timeslot.ErrInvalidDuration)
		current, err := f.store.Reads().FindByID(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, at(11, 0), current.Window().End())
	})

	t.Run("success: extension when the resource stays free", func(t *testing.T) {
		f, a, b := setup(t)
		_, err := f.cmds.Cancel(ctx, b)
		require.NoError(t, err)

		extended, err := f.cmds.Extend(ctx, a, 30)

		require.NoError(t, err)
		assert.Equal(t, at(11, 30), extended.End)
		assert.Equal(t, 90, extended.DurationMinutes)
		assert.Equal(t, reservation.StatusInUse.String(), extended.Status)
		assert.Contains(t, f.notifier.kinds(), shared.EventExtended)
	})
}

// =============================================================================
// Store failure Tests
// =============================================================================

func TestBookingCommands_StoreUnavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("error: lock wait exceeds the store timeout", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.Booking.StoreTimeout = 50 * time.Millisecond
		f.rebuild(nil)
		r := f.addResources(t, 1)[0]

		held := make(chan struct{})
		release := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = f.store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
				if err := tx.LockResources(ctx, []uuid.UUID{r}); err != nil {
					return err
				}
				close(held)
				<-release
				return errors.New("abandon")
			})
		}()
		<-held

		_, err := f.cmds.Create(ctx, booking(at(10, 0), 60, "Niaj", r))
		close(release)
		<-done

		assert.ErrorIs(t, err, errs.ErrStoreUnavailable)
		assert.Empty(t, f.active(t, r))
	})

	t.Run("error: commit failure leaves nothing behind", func(t *testing.T) {
		f := newFixture(t)
		r := f.addResources(t, 1)[0]
		f.store.FailNextCommit()

		_, err := f.cmds.Create(ctx, booking(at(10, 0), 60, "Olivia", r))

		assert.ErrorIs(t, err, errs.ErrStoreUnavailable)
		assert.Empty(t, f.active(t, r))
		assert.Empty(t, f.notifier.kinds())
	})
}

func TestBookingCommands_CollaboratorFailuresDoNotRollBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.err = errors.New("broker: channel closed")
	f.rebuild(failingInvalidator{})
	r := f.addResources(t, 1)[0]

	result, err := f.cmds.Create(ctx, booking(at(10, 0), 60, "Peggy", r))

	require.NoError(t, err)
	assert.Len(t, f.active(t, r), 1)
	assert.Equal(t, result.Reservation.ID, f.active(t, r)[0].ID())
	assert.Equal(t, []shared.EventKind{shared.EventCreated}, f.notifier.kinds())
}
