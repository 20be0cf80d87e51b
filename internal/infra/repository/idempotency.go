package repository

import (
	"context"

	"lounge-booking/internal/infra"
	"lounge-booking/internal/infra/db"
	"lounge-booking/internal/pkg/pgconv"
	"lounge-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type IdempotencyRepository struct {
	db db.DBTX
}

func NewIdempotencyRepository(dbtx db.DBTX) *IdempotencyRepository {
	return &IdempotencyRepository{db: dbtx}
}

func (r *IdempotencyRepository) Find(ctx context.Context, key uuid.UUID) (*shared.IdempotencyRecord, error) {
	var (
		rec       shared.IdempotencyRecord
		createdAt pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, `
		SELECT key, request_hash, reservation_id, created_at
		FROM idempotency_keys
		WHERE key = $1`, key,
	).Scan(&rec.Key, &rec.RequestHash, &rec.ReservationID, &createdAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, nil
		}
		return nil, infra.WrapRepoErr("failed to find idempotency key", err)
	}
	rec.CreatedAt = createdAt.Time.UTC()
	return &rec, nil
}

func (r *IdempotencyRepository) Save(ctx context.Context, rec shared.IdempotencyRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO idempotency_keys (key, request_hash, reservation_id, created_at)
		VALUES ($1, $2, $3, $4)`,
		rec.Key, rec.RequestHash, rec.ReservationID, rec.CreatedAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to save idempotency key", err)
	}
	return nil
}
