package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/klbrun/klbapi/models"
)

// RecomputeYear rebuilds one competition year from scratch: every
// participant, then every team once, then both ranking passes. This is
// the administrative path — it works on closed years too. Single
// threaded; interrupting it leaves processed rows correct and ranking
// stale until rerun.
func (e *Engine) RecomputeYear(ctx context.Context, year int) error {
	e.log.Info("full recompute started", zap.Int("year", year))

	// Every best flag for the year is re-derived below; clearing first
	// keeps an interrupted run from mixing old and new selections.
	if _, err := e.db.NewRaw(
		`UPDATE scored_results sr SET is_in_best = false, is_in_best_bonus = false
		 FROM participants pt
		 WHERE sr.participant_id = pt.participant_id AND pt.year = ?`, year,
	).Exec(ctx); err != nil {
		return fmt.Errorf("clear best flags for %d: %w", year, err)
	}

	var parts []*models.Participant
	if err := e.db.NewSelect().Model(&parts).
		Where("pt.year = ?", year).
		OrderExpr("pt.participant_id ASC").
		Scan(ctx); err != nil {
		return fmt.Errorf("load participants for %d: %w", year, err)
	}
	for _, p := range parts {
		if err := e.recomputeParticipant(ctx, p, false, "full recompute", "recompute_year"); err != nil {
			return err
		}
	}

	var teamIDs []int
	if err := e.db.NewSelect().Model((*models.Team)(nil)).
		Column("team_id").
		Where("year = ?", year).
		OrderExpr("team_id ASC").
		Scan(ctx, &teamIDs); err != nil {
		return fmt.Errorf("load teams for %d: %w", year, err)
	}
	for _, id := range teamIDs {
		if err := e.RecomputeTeam(ctx, id); err != nil {
			return err
		}
	}

	if err := e.RankTeams(ctx, year); err != nil {
		return err
	}
	if err := e.RankParticipants(ctx, year); err != nil {
		return err
	}

	e.log.Info("full recompute finished",
		zap.Int("year", year),
		zap.Int("participants", len(parts)),
		zap.Int("teams", len(teamIDs)),
	)
	return nil
}

// RecomputeForPersons is the targeted path used after a mutation (new,
// corrected or deleted result, runner merge, age or gender fix, team
// transfer): only the touched persons' participants and their teams are
// recomputed, and only the overall team ranking is refreshed. Category
// places go stale until the next full pass; accepted, not a bug.
func (e *Engine) RecomputeForPersons(ctx context.Context, year int, personIDs []int) error {
	if len(personIDs) == 0 {
		return nil
	}

	var parts []*models.Participant
	if err := e.db.NewSelect().Model(&parts).
		Where("pt.year = ?", year).
		Where("pt.person_id IN (?)", bun.In(personIDs)).
		OrderExpr("pt.participant_id ASC").
		Scan(ctx); err != nil {
		return fmt.Errorf("load participants for persons: %w", err)
	}

	touched := map[int]struct{}{}
	for _, p := range parts {
		if err := e.recomputeParticipant(ctx, p, false, "targeted recompute", "recompute_persons"); err != nil {
			return err
		}
		if p.TeamID != nil {
			touched[*p.TeamID] = struct{}{}
		}
	}

	teamIDs := make([]int, 0, len(touched))
	for id := range touched {
		teamIDs = append(teamIDs, id)
	}
	sort.Ints(teamIDs)
	for _, id := range teamIDs {
		if err := e.RecomputeTeam(ctx, id); err != nil {
			return err
		}
	}

	return e.rankTeamsOverall(ctx, year)
}
