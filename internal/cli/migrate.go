package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"studyhub/internal/config"
	"studyhub/internal/domain"
	pgstore "studyhub/internal/infra/postgres"
	pgmigrations "studyhub/internal/infra/postgres/migrations"
)

// NewMigrateCmd applies database migrations and optionally seeds the local quiz bank.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seedPath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg, log); err != nil {
				return err
			}
			if seedPath == "" {
				return nil
			}
			return seedQuizzes(cmd.Context(), cfg, seedPath, log)
		},
	}
	cmd.Flags().StringVar(&seedPath, "seed", "", "JSON file with an array of quizzes to upsert")
	return cmd
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Info("database schema up to date")
		return nil
	}
	log.Info("migrations applied", "group", group.String())
	return nil
}

func seedQuizzes(ctx context.Context, cfg config.Config, path string, log *slog.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var quizzes []domain.Quiz
	if err := json.Unmarshal(raw, &quizzes); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	bank := pgstore.NewQuizLoader(pool)
	for _, q := range quizzes {
		if err := bank.SaveQuiz(ctx, q); err != nil {
			return err
		}
		log.Info("quiz seeded", "quiz_id", q.ID, "questions", len(q.Questions))
	}
	return nil
}
