package db

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Migration struct {
	Name string
	SQL  string
}

// MigrationStatus pairs a migration file with when it was applied; AppliedAt is nil while pending.
type MigrationStatus struct {
	Name      string
	AppliedAt *time.Time
}

const createSchemaMigrations = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// LoadMigrations reads every *.sql file at the root of fsys in name order.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	var out []Migration
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		content, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", e.Name(), err)
		}
		if strings.TrimSpace(string(content)) == "" {
			continue
		}
		out = append(out, Migration{Name: e.Name(), SQL: string(content)})
	}
	slices.SortFunc(out, func(a, b Migration) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// ApplyMigrations runs each pending migration in its own transaction and returns the names applied.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) ([]string, error) {
	if _, err := pool.Exec(ctx, createSchemaMigrations); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, m := range migrations {
		if _, ok := applied[m.Name]; ok {
			continue
		}
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, m.Name)
			return err
		})
		if err != nil {
			return done, fmt.Errorf("failed to apply migration %s: %w", m.Name, err)
		}
		slog.Info("Migration applied", slog.String("file", m.Name))
		done = append(done, m.Name)
	}
	return done, nil
}

// MigrationStatuses reports every known migration, applied or not, in name order.
func MigrationStatuses(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) ([]MigrationStatus, error) {
	if _, err := pool.Exec(ctx, createSchemaMigrations); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return nil, err
	}
	return mergeStatuses(migrations, applied), nil
}

func appliedMigrations(ctx context.Context, pool *pgxpool.Pool) (map[string]time.Time, error) {
	rows, err := pool.Query(ctx, `SELECT name, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var (
			name string
			at   time.Time
		)
		if err := rows.Scan(&name, &at); err != nil {
			return nil, fmt.Errorf("failed to scan schema_migrations: %w", err)
		}
		applied[name] = at
	}
	return applied, rows.Err()
}

// mergeStatuses also lists applied names whose files are gone, so drift is visible.
func mergeStatuses(migrations []Migration, applied map[string]time.Time) []MigrationStatus {
	seen := make(map[string]struct{}, len(migrations))
	out := make([]MigrationStatus, 0, len(migrations)+len(applied))
	for _, m := range migrations {
		seen[m.Name] = struct{}{}
		st := MigrationStatus{Name: m.Name}
		if at, ok := applied[m.Name]; ok {
			st.AppliedAt = &at
		}
		out = append(out, st)
	}
	for name, at := range applied {
		if _, ok := seen[name]; !ok {
			out = append(out, MigrationStatus{Name: name, AppliedAt: &at})
		}
	}
	slices.SortFunc(out, func(a, b MigrationStatus) int { return strings.Compare(a.Name, b.Name) })
	return out
}
