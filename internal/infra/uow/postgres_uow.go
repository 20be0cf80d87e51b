package uow

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"lounge-booking/internal/infra"
	"lounge-booking/internal/infra/readstore"
	"lounge-booking/internal/infra/repository"
	"lounge-booking/internal/pkg/errs"
	"lounge-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgErrCodeSerializationFailure = "40001"
	pgErrCodeDeadlockDetected     = "40P01"
)

var (
	errTransactionBegin   = errs.New("failed to begin transaction")
	errTransactionCommit  = errs.New("failed to commit transaction")
	errMaxRetriesExceeded = errs.New("transaction failed after max retries")
)

type PostgresUoW struct {
	pool    *pgxpool.Pool
	reads   *readstore.ReservationReadStore
	catalog *readstore.ResourceReadStore
}

func NewPostgresUoW(pool *pgxpool.Pool) shared.UnitOfWork {
	return &PostgresUoW{
		pool:    pool,
		reads:   readstore.NewReservationReadStore(pool),
		catalog: readstore.NewResourceReadStore(pool),
	}
}

// ReadCommitted is enough: writers on the same resource are serialized by advisory
// locks and the slot exclusion constraint rejects anything that slips past them.
func (u *PostgresUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return u.runInTxWithOptions(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (u *PostgresUoW) Reads() shared.ReservationReads {
	return u.reads
}

func (u *PostgresUoW) Catalog() shared.CatalogReader {
	return u.catalog
}

// Avoids defer accumulation in retry loops to prevent connection leaks
func (u *PostgresUoW) runInTxWithOptions(ctx context.Context, options pgx.TxOptions, fn func(ctx context.Context, tx shared.Tx) error) error {
	const maxRetries = 3
	base := 50 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		pgxTx, err := u.pool.BeginTx(ctx, options)
		if err != nil {
			return infra.WrapRepoErr("failed to begin transaction", errs.Mark(err, errTransactionBegin))
		}

		tx := &pgTx{dbtx: pgxTx}

		err = fn(ctx, tx)
		if err == nil {
			if err = pgxTx.Commit(ctx); err == nil {
				return nil
			}
			err = commitErr(err)
		}

		// Rollback must not inherit a cancelled ctx or the connection goes back dirty.
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		if rollbackErr := pgxTx.Rollback(rbCtx); rollbackErr != nil {
			if !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				slog.Warn("rollback failed", "attempt", attempt+1, "error", rollbackErr.Error())
			}
		}
		cancel()

		if !shouldRetry(err, attempt, maxRetries) {
			if attempt == maxRetries && isRetryableError(err) {
				slog.Error("transaction failed after max retries",
					"attempts", attempt+1,
					"error", err.Error())
				return infra.WrapRepoErr("transaction failed after max retries", errs.Mark(err, errMaxRetriesExceeded))
			}
			return err
		}

		waitTime := calculateBackoff(attempt, base)

		slog.Warn("retrying transaction due to retryable error",
			"attempt", attempt+1,
			"wait_ms", waitTime.Milliseconds(),
			"error", err.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}

	return errMaxRetriesExceeded
}

// commitErr keeps deferred constraint failures classifiable by the caller.
func commitErr(err error) error {
	if isRetryableError(err) {
		return err
	}
	return infra.WrapRepoErr("failed to commit transaction", errs.Mark(err, errTransactionCommit))
}

func shouldRetry(err error, attempt, maxRetries int) bool {
	return isRetryableError(err) && attempt < maxRetries
}

func calculateBackoff(attempt int, base time.Duration) time.Duration {
	waitTime := time.Duration(1<<attempt) * base
	jitter := cryptoRandInt63n(int64(waitTime / 5))
	return waitTime + time.Duration(jitter)
}

func cryptoRandInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	uval := binary.BigEndian.Uint64(buf[:]) & 0x7FFFFFFFFFFFFFFF
	// #nosec G115 -- Intentionally safe conversion after masking
	return int64(uval) % n
}

func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case pgErrCodeSerializationFailure, pgErrCodeDeadlockDetected:
		return true
	default:
		return false
	}
}

type pgTx struct {
	dbtx pgx.Tx

	// Lazy-initialized repositories
	reservationRepo shared.ReservationRepository
	idempotencyRepo shared.IdempotencyRepository
}

// LockResources takes one transaction-scoped advisory lock per resource, in the given order.
// Postgres advisory locks are re-entrant within a session, so repeated ids are harmless.
func (t *pgTx) LockResources(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if _, err := t.dbtx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, id.String()); err != nil {
			if isRetryableError(err) {
				return err
			}
			return infra.WrapRepoErr("failed to lock resource", err)
		}
	}
	return nil
}

func (t *pgTx) Reservations() shared.ReservationRepository {
	if t.reservationRepo == nil {
		t.reservationRepo = repository.NewReservationRepository(t.dbtx)
	}
	return t.reservationRepo
}

func (t *pgTx) Idempotency() shared.IdempotencyRepository {
	if t.idempotencyRepo == nil {
		t.idempotencyRepo = repository.NewIdempotencyRepository(t.dbtx)
	}
	return t.idempotencyRepo
}
