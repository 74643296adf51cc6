// cmd/recompute/main.go
// Runs a full-year or targeted recomputation from the command line.
// Full-year runs work on closed years too; they are the administrative
// correction path.
//
// Usage:
//
//	go run ./cmd/recompute -year 2024
//	go run ./cmd/recompute -year 2024 -persons 17,203,555
package main

import (
	"context"
	"flag"
	"log"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/klbrun/klbapi/config"
	bundb "github.com/klbrun/klbapi/db"
	"github.com/klbrun/klbapi/engine"
	applog "github.com/klbrun/klbapi/logger"
	"github.com/klbrun/klbapi/report"
	"github.com/klbrun/klbapi/scoring"
)

func main() {
	year := flag.Int("year", 0, "competition year (required)")
	persons := flag.String("persons", "", "comma-separated person ids for a targeted run")
	flag.Parse()

	if *year == 0 {
		log.Fatal("-year is required")
	}

	cfg := config.Load()
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		log.Fatal("logger:", err)
	}
	defer func() { _ = logger.Sync() }()

	db := bundb.Setup(cfg)
	defer db.Close()

	calc := scoring.NewCalc(scoring.Default(), scoring.DefaultCurves())
	sender := report.FromConfig(cfg, logger)
	eng := engine.New(db, logger, calc, sender, cfg.ReportTo, *year)

	ctx := context.Background()
	if *persons == "" {
		if err := eng.RecomputeYear(ctx, *year); err != nil {
			logger.Fatal("full recompute failed", zap.Int("year", *year), zap.Error(err))
		}
		return
	}

	ids, err := parseIDs(*persons)
	if err != nil {
		log.Fatal("parse -persons:", err)
	}
	if err := eng.RecomputeForPersons(ctx, *year, ids); err != nil {
		logger.Fatal("targeted recompute failed",
			zap.Int("year", *year),
			zap.Ints("persons", ids),
			zap.Error(err),
		)
	}
}

func parseIDs(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
