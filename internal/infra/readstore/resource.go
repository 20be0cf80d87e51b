package readstore

import (
	"context"

	"lounge-booking/internal/domain/resource"
	"lounge-booking/internal/infra"
	"lounge-booking/internal/infra/db"
	"lounge-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const resourceColumns = `id, category, serial, maintenance, created_at, updated_at`

type ResourceReadStore struct {
	db db.DBTX
}

func NewResourceReadStore(dbtx db.DBTX) *ResourceReadStore {
	return &ResourceReadStore{db: dbtx}
}

func (r *ResourceReadStore) List(ctx context.Context) ([]*resource.Resource, error) {
	rows, err := r.db.Query(ctx, `SELECT `+resourceColumns+` FROM resources ORDER BY category, serial`)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list resources", err)
	}
	return scanResources(rows)
}

func (r *ResourceReadStore) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*resource.Resource, error) {
	if len(ids) == 0 {
		return []*resource.Resource{}, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+resourceColumns+`
		FROM resources
		WHERE id = ANY($1::text[]::uuid[])
		ORDER BY category, serial`, pgconv.UUIDsToText(ids))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find resources by ID", err)
	}
	return scanResources(rows)
}

func scanResources(rows pgx.Rows) ([]*resource.Resource, error) {
	defer rows.Close()

	out := []*resource.Resource{}
	for rows.Next() {
		var (
			id                   uuid.UUID
			category, serial     string
			maintenance          bool
			createdAt, updatedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &category, &serial, &maintenance, &createdAt, &updatedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan resource", err)
		}
		c, err := resource.ParseCategory(category)
		if err != nil {
			return nil, infra.WrapRepoErr("stored resource has an invalid category", err)
		}
		out = append(out, resource.ReconstructResource(id, c, serial, maintenance, createdAt.Time.UTC(), updatedAt.Time.UTC()))
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate resources", err)
	}
	return out, nil
}
