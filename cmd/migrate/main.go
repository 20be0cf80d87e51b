package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"lounge-booking/internal/handler/middleware"
	"lounge-booking/internal/infra/db"
	"lounge-booking/internal/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var migrationsDir string

var rootCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Apply and inspect lounge-booking database migrations",
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "migrations", "directory holding *.sql migrations")
	rootCmd.AddCommand(upCmd())
	rootCmd.AddCommand(statusCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, migrations []db.Migration) error {
				applied, err := db.ApplyMigrations(ctx, pool, migrations)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
					return nil
				}
				for _, name := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
				}
				return nil
			})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, migrations []db.Migration) error {
				statuses, err := db.MigrationStatuses(ctx, pool, migrations)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "MIGRATION\tAPPLIED AT")
				for _, st := range statuses {
					at := "pending"
					if st.AppliedAt != nil {
						at = st.AppliedAt.Format(time.RFC3339)
					}
					fmt.Fprintf(w, "%s\t%s\n", st.Name, at)
				}
				return w.Flush()
			})
		},
	}
}

func withPool(ctx context.Context, fn func(ctx context.Context, pool *pgxpool.Pool, migrations []db.Migration) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	middleware.NewLogger(cfg.Log)

	migrations, err := db.LoadMigrations(os.DirFS(migrationsDir))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	pool, cleanup, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer cleanup()

	return fn(ctx, pool, migrations)
}
