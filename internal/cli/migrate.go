package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"chess-quiz-service/internal/config"
	"chess-quiz-service/internal/infra/memory"
	"chess-quiz-service/internal/infra/postgres"
	pgmigrations "chess-quiz-service/internal/infra/postgres/migrations"
	"chess-quiz-service/internal/logging"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// NewMigrateCmd applies database migrations and seeds the question catalog.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and seed questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath)
		},
	}
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	db := openBunDB(cfg.Postgres.URL)
	defer db.Close()
	return migrateAndSeed(ctx, db, logger)
}

func openBunDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func migrateAndSeed(ctx context.Context, db *bun.DB, logger *slog.Logger) error {
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if group.IsZero() {
		logger.InfoContext(ctx, "no new migrations")
	} else {
		logger.InfoContext(ctx, "migrations applied", slog.String("group", group.String()))
	}

	seeded, err := postgres.SeedQuestions(ctx, db, memory.SeedQuestions())
	if err != nil {
		return err
	}
	if seeded > 0 {
		logger.InfoContext(ctx, "questions seeded", slog.Int("count", seeded))
	}
	return nil
}
