package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/klbrun/klbapi/config"
	"github.com/klbrun/klbapi/models"
)

// Setup opens a PostgreSQL connection using the provided config.
func Setup(cfg *config.Config) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.PostgresDSN())))
	db := bun.NewDB(sqldb, pgdialect.New())

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(context.Background()); err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	return db
}

// CreateTables creates all tables in dependency order.
func CreateTables(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.Club)(nil),
		(*models.Team)(nil),
		(*models.Runner)(nil),
		(*models.Person)(nil),
		(*models.Event)(nil),
		(*models.Race)(nil),
		(*models.Result)(nil),
		(*models.AgeGroup)(nil),
		(*models.Participant)(nil),
		(*models.ScoredResult)(nil),
		(*models.ScoreChange)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}

	// scored_results_no_dupes backs the engine's scoring-integrity invariant:
	// one scored result per participant per (event, start time).
	constraints := []string{
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'teams_no_dupes') THEN ALTER TABLE teams ADD CONSTRAINT teams_no_dupes UNIQUE (club_id, year); END IF; END $$`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'races_no_dupes') THEN ALTER TABLE races ADD CONSTRAINT races_no_dupes UNIQUE (event_id, start_time, length, distance_type); END IF; END $$`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'participants_no_dupes') THEN ALTER TABLE participants ADD CONSTRAINT participants_no_dupes UNIQUE (person_id, year); END IF; END $$`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'scored_results_no_dupes') THEN ALTER TABLE scored_results ADD CONSTRAINT scored_results_no_dupes UNIQUE (participant_id, event_id, start_time); END IF; END $$`,
	}
	for _, stmt := range constraints {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Printf("constraint: %v", err)
		}
	}

	return nil
}
