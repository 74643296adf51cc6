// cmd/migrate/main.go
// Migrates the legacy MySQL results database into the local PostgreSQL
// database: runners, events, races and raw results. Scored results are
// not migrated — they are rebuilt by cmd/recompute afterwards.
//
// Usage:
//
//	MYSQL_DSN="user:pass@tcp(host:3306)/klbData?parseTime=true" \
//	DB_PASS="pgpass" \
//	go run ./cmd/migrate
package main

import (
	"context"
	"database/sql"
	"log"

	_ "github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"

	"github.com/klbrun/klbapi/config"
	bundb "github.com/klbrun/klbapi/db"
	"github.com/klbrun/klbapi/models"
)

const batchSize = 500

func main() {
	ctx := context.Background()

	cfg := config.Load()

	// --- MySQL ---
	if cfg.MySQLDSN == "" {
		log.Fatal("MYSQL_DSN required, e.g.: user:pass@tcp(host:3306)/klbData?parseTime=true")
	}
	myDB, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("open mysql: %v", err)
	}
	defer myDB.Close()
	myDB.SetMaxOpenConns(4)
	if err := myDB.PingContext(ctx); err != nil {
		log.Fatalf("ping mysql: %v", err)
	}
	log.Println("connected to MySQL")

	// --- PostgreSQL ---
	pgDB := bundb.Setup(cfg)
	defer pgDB.Close()
	log.Println("connected to PostgreSQL")

	// Create tables (idempotent)
	if err := bundb.CreateTables(ctx, pgDB); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	// Disable FK enforcement so we can load in bulk without strict ordering
	if _, err := pgDB.ExecContext(ctx, "SET session_replication_role = 'replica'"); err != nil {
		log.Fatalf("disable FK: %v", err)
	}
	defer func() {
		if _, err := pgDB.ExecContext(ctx, "SET session_replication_role = 'origin'"); err != nil {
			log.Printf("re-enable FK: %v", err)
		}
	}()

	steps := []struct {
		name string
		fn   func() (int, error)
	}{
		{"runners", func() (int, error) { return migrateRunners(ctx, myDB, pgDB) }},
		{"events", func() (int, error) { return migrateEvents(ctx, myDB, pgDB) }},
		{"races", func() (int, error) { return migrateRaces(ctx, myDB, pgDB) }},
		{"results", func() (int, error) { return migrateResults(ctx, myDB, pgDB) }},
	}
	for _, step := range steps {
		n, err := step.fn()
		if err != nil {
			log.Fatalf("migrate %s: %v", step.name, err)
		}
		log.Printf("migrated %d %s", n, step.name)
	}
}

func migrateRunners(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	rows, err := myDB.QueryContext(ctx,
		`SELECT id, lname, fname, birthyear, gender, user_id FROM runner`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var batch []*models.Runner
	total := 0
	for rows.Next() {
		r := new(models.Runner)
		var gender int
		if err := rows.Scan(&r.RunnerID, &r.LastName, &r.FirstName, &r.BirthYear, &gender, &r.UserID); err != nil {
			return total, err
		}
		r.Gender = legacyGender(gender)
		batch = append(batch, r)
		if len(batch) == batchSize {
			if err := flush(ctx, pgDB, &batch); err != nil {
				return total, err
			}
			total += batchSize
		}
	}
	if err := rows.Err(); err != nil {
		return total, err
	}
	total += len(batch)
	return total, flush(ctx, pgDB, &batch)
}

func migrateEvents(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	rows, err := myDB.QueryContext(ctx,
		`SELECT id, name, city, DATE_FORMAT(start_date, '%Y-%m-%d'), url_site FROM event`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var batch []*models.Event
	total := 0
	for rows.Next() {
		e := new(models.Event)
		if err := rows.Scan(&e.EventID, &e.Name, &e.City, &e.Date, &e.URL); err != nil {
			return total, err
		}
		batch = append(batch, e)
		if len(batch) == batchSize {
			if err := flush(ctx, pgDB, &batch); err != nil {
				return total, err
			}
			total += batchSize
		}
	}
	if err := rows.Err(); err != nil {
		return total, err
	}
	total += len(batch)
	return total, flush(ctx, pgDB, &batch)
}

func migrateRaces(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	rows, err := myDB.QueryContext(ctx,
		`SELECT id, event_id, TIME_FORMAT(start_time, '%H:%i'), distance_type,
		        length, real_length, itra_score, YEAR(event_date)
		 FROM race`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var batch []*models.Race
	total := 0
	for rows.Next() {
		rc := new(models.Race)
		var distType int
		if err := rows.Scan(&rc.RaceID, &rc.EventID, &rc.StartTime, &distType,
			&rc.Length, &rc.RealLength, &rc.ItraScore, &rc.Year); err != nil {
			return total, err
		}
		rc.DistanceType = models.FixedDistance
		if distType == 1 {
			rc.DistanceType = models.FixedTime
		}
		batch = append(batch, rc)
		if len(batch) == batchSize {
			if err := flush(ctx, pgDB, &batch); err != nil {
				return total, err
			}
			total += batchSize
		}
	}
	if err := rows.Err(); err != nil {
		return total, err
	}
	total += len(batch)
	return total, flush(ctx, pgDB, &batch)
}

func migrateResults(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	rows, err := myDB.QueryContext(ctx,
		`SELECT id, race_id, runner_id, user_id, lname, fname, status,
		        result_cs, distance_m, is_official
		 FROM result`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var batch []*models.Result
	total := 0
	for rows.Next() {
		r := new(models.Result)
		var status int
		if err := rows.Scan(&r.ResultID, &r.RaceID, &r.RunnerID, &r.UserID,
			&r.LastName, &r.FirstName, &status, &r.TimeCs, &r.DistanceM, &r.Official); err != nil {
			return total, err
		}
		r.Status = legacyStatus(status)
		batch = append(batch, r)
		if len(batch) == batchSize {
			if err := flush(ctx, pgDB, &batch); err != nil {
				return total, err
			}
			total += batchSize
		}
	}
	if err := rows.Err(); err != nil {
		return total, err
	}
	total += len(batch)
	return total, flush(ctx, pgDB, &batch)
}

// flush bulk-inserts the batch and resets it. Conflicts are skipped so
// reruns are idempotent.
func flush[T any](ctx context.Context, pgDB *bun.DB, batch *[]*T) error {
	if len(*batch) == 0 {
		return nil
	}
	_, err := pgDB.NewInsert().Model(batch).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	*batch = (*batch)[:0]
	return err
}

func legacyGender(g int) models.Gender {
	if g == 2 {
		return models.Female
	}
	return models.Male
}

func legacyStatus(s int) models.ResultStatus {
	switch s {
	case 2:
		return models.StatusDNF
	case 3:
		return models.StatusDSQ
	default:
		return models.StatusFinished
	}
}
