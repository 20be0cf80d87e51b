//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func CreateTestResource(t *testing.T, db DBLike, category, serial string) uuid.UUID {
	t.Helper()

	resourceID := uuid.New()
	ctx := context.Background()

	tag, err := db.Exec(ctx, "INSERT INTO resources (id, category, serial) VALUES ($1, $2, $3) ON CONFLICT (serial) DO NOTHING",
		resourceID, category, serial)
	require.NoError(t, err)

	if tag.RowsAffected() == 0 {
		_ = db.QueryRow(ctx, "SELECT id FROM resources WHERE serial = $1", serial).Scan(&resourceID)
	}

	return resourceID
}

func ResourceIDBySerial(t *testing.T, db DBLike, serial string) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := db.QueryRow(context.Background(), "SELECT id FROM resources WHERE serial = $1", serial).Scan(&id)
	require.NoError(t, err, "resource %s not seeded", serial)
	return id
}

func SetMaintenance(t *testing.T, db DBLike, resourceID uuid.UUID, on bool) {
	t.Helper()

	_, err := db.Exec(context.Background(), "UPDATE resources SET maintenance = $2, updated_at = now() WHERE id = $1", resourceID, on)
	require.NoError(t, err)
}

// inserts the lounge floor layout needed by tests
func SeedReferenceData(pool *pgxpool.Pool) error {
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO resources (category, serial) VALUES
		    ('console_station',  'PS-01'),
		    ('console_station',  'PS-02'),
		    ('pc_station_left',  'PC-L01'),
		    ('pc_station_left',  'PC-L02'),
		    ('pc_station_right', 'PC-R01'),
		    ('pc_station_right', 'PC-R02')
		ON CONFLICT (serial) DO NOTHING;
	`)
	if err != nil {
		return err
	}

	return nil
}

// bookingTables lists every table a test can write, children first.
var bookingTables = []string{
	"idempotency_keys",
	"reservation_resources",
	"reservations",
	"resources",
}

// ResetDB empties the booking tables and reseeds the floor layout. schema_migrations is kept.
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, "TRUNCATE "+strings.Join(bookingTables, ", ")+" CASCADE"); err != nil {
		return fmt.Errorf("failed to truncate booking tables: %w", err)
	}
	return SeedReferenceData(pool)
}
