package repository

import (
	"context"

	"lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/timeslot"
	"lounge-booking/internal/infra"
	"lounge-booking/internal/infra/db"
	"lounge-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const reservationColumns = `r.id, r.customer_name, r.customer_contact, r.customer_notes,
	r.start_at, r.duration_min, r.status, r.payment_ref,
	r.actual_start, r.actual_end, r.cancelled_at, r.created_at, r.updated_at`

type reservationRow struct {
	ID              uuid.UUID
	CustomerName    string
	CustomerContact string
	CustomerNotes   pgtype.Text
	StartAt         pgtype.Timestamptz
	DurationMin     int32
	Status          string
	PaymentRef      string
	ActualStart     pgtype.Timestamptz
	ActualEnd       pgtype.Timestamptz
	CancelledAt     pgtype.Timestamptz
	CreatedAt       pgtype.Timestamptz
	UpdatedAt       pgtype.Timestamptz
}

func (r *reservationRow) dest() []any {
	return []any{
		&r.ID, &r.CustomerName, &r.CustomerContact, &r.CustomerNotes,
		&r.StartAt, &r.DurationMin, &r.Status, &r.PaymentRef,
		&r.ActualStart, &r.ActualEnd, &r.CancelledAt, &r.CreatedAt, &r.UpdatedAt,
	}
}

// toDomain rebuilds the aggregate. Stored rows already satisfy the domain rules,
// so only the window is re-derived through the constructor.
func (r *reservationRow) toDomain(assignments []reservation.Assignment) (*reservation.Reservation, error) {
	window, err := timeslot.NewWindow(r.StartAt.Time, int(r.DurationMin))
	if err != nil {
		return nil, infra.WrapRepoErr("stored reservation has an invalid window", err)
	}
	status, err := reservation.ParseStatus(r.Status)
	if err != nil {
		return nil, infra.WrapRepoErr("stored reservation has an invalid status", err)
	}
	notes := ""
	if p := pgconv.StringPtrFromPgtype(r.CustomerNotes); p != nil {
		notes = *p
	}
	customer, err := reservation.NewCustomer(r.CustomerName, r.CustomerContact, notes)
	if err != nil {
		return nil, infra.WrapRepoErr("stored reservation has an invalid customer", err)
	}

	return reservation.ReconstructReservation(
		r.ID,
		customer,
		window,
		assignments,
		status,
		reservation.PaymentRef(r.PaymentRef),
		pgconv.TimePtrFromPgtype(r.ActualStart),
		pgconv.TimePtrFromPgtype(r.ActualEnd),
		pgconv.TimePtrFromPgtype(r.CancelledAt),
		r.CreatedAt.Time.UTC(),
		r.UpdatedAt.Time.UTC(),
	), nil
}

// keyedRow is a reservation row prefixed by the resource it was matched on.
type keyedRow struct {
	key uuid.UUID
	row reservationRow
}

// queryReservations runs sql (selecting reservationColumns, optionally prefixed by
// a resource id when keyed is true) and attaches assignments in a second round trip.
func queryReservations(ctx context.Context, dbtx db.DBTX, keyed bool, sql string, args ...any) ([]keyedRow, map[uuid.UUID]*reservation.Reservation, error) {
	rows, err := dbtx.Query(ctx, sql, args...)
	if err != nil {
		return nil, nil, infra.WrapRepoErr("failed to query reservations", err)
	}
	defer rows.Close()

	var out []keyedRow
	for rows.Next() {
		var kr keyedRow
		dest := kr.row.dest()
		if keyed {
			dest = append([]any{&kr.key}, dest...)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, infra.WrapRepoErr("failed to scan reservation", err)
		}
		out = append(out, kr)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, infra.WrapRepoErr("failed to iterate reservations", err)
	}
	rows.Close()

	ids := make([]uuid.UUID, 0, len(out))
	seen := make(map[uuid.UUID]bool, len(out))
	for _, kr := range out {
		if !seen[kr.row.ID] {
			seen[kr.row.ID] = true
			ids = append(ids, kr.row.ID)
		}
	}
	assignments, err := loadAssignments(ctx, dbtx, ids)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[uuid.UUID]*reservation.Reservation, len(ids))
	for i := range out {
		id := out[i].row.ID
		if _, ok := byID[id]; ok {
			continue
		}
		res, err := out[i].row.toDomain(assignments[id])
		if err != nil {
			return nil, nil, err
		}
		byID[id] = res
	}
	return out, byID, nil
}

func listReservations(ctx context.Context, dbtx db.DBTX, sql string, args ...any) ([]*reservation.Reservation, error) {
	rows, byID, err := queryReservations(ctx, dbtx, false, sql, args...)
	if err != nil {
		return nil, err
	}
	out := make([]*reservation.Reservation, 0, len(rows))
	for _, kr := range rows {
		out = append(out, byID[kr.row.ID])
	}
	return out, nil
}

func findReservation(ctx context.Context, dbtx db.DBTX, sql string, id uuid.UUID) (*reservation.Reservation, error) {
	var row reservationRow
	if err := dbtx.QueryRow(ctx, sql, id).Scan(row.dest()...); err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("reservation not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find reservation by ID", err)
	}
	assignments, err := loadAssignments(ctx, dbtx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	return row.toDomain(assignments[id])
}

func loadAssignments(ctx context.Context, dbtx db.DBTX, ids []uuid.UUID) (map[uuid.UUID][]reservation.Assignment, error) {
	out := make(map[uuid.UUID][]reservation.Assignment, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := dbtx.Query(ctx, `
		SELECT reservation_id, resource_id, occupancy
		FROM reservation_resources
		WHERE reservation_id = ANY($1::text[]::uuid[])`, pgconv.UUIDsToText(ids))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to load reservation resources", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			reservationID, resourceID uuid.UUID
			occupancy                 int32
		)
		if err := rows.Scan(&reservationID, &resourceID, &occupancy); err != nil {
			return nil, infra.WrapRepoErr("failed to scan reservation resource", err)
		}
		a, err := reservation.NewAssignment(resourceID, int(occupancy))
		if err != nil {
			return nil, infra.WrapRepoErr("stored assignment is invalid", err)
		}
		out[reservationID] = append(out[reservationID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate reservation resources", err)
	}
	return out, nil
}

func statusArgs(statuses []reservation.Status) []string {
	if len(statuses) == 0 {
		statuses = []reservation.Status{
			reservation.StatusBooked, reservation.StatusInUse,
			reservation.StatusCompleted, reservation.StatusCancelled,
		}
	}
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.String()
	}
	return out
}
