package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/klbrun/klbapi/models"
)

// selectTeamBest marks the participants counting toward the team's clean
// score. Pools of n or fewer are all in; larger pools take the top n by
// clean score (score_sum − bonus_sum) descending, ties broken by start
// count descending, stable beyond that.
func selectTeamBest(parts []*models.Participant, n int) {
	if len(parts) <= n {
		for _, p := range parts {
			p.IsInBest = true
		}
		return
	}
	for _, p := range parts {
		p.IsInBest = false
	}
	ranked := make([]*models.Participant, len(parts))
	copy(ranked, parts)
	sort.SliceStable(ranked, func(i, j int) bool {
		ci := ranked[i].ScoreSum.Sub(ranked[i].BonusSum)
		cj := ranked[j].ScoreSum.Sub(ranked[j].BonusSum)
		if !ci.Equal(cj) {
			return ci.GreaterThan(cj)
		}
		return ranked[i].NStarts > ranked[j].NStarts
	})
	for i := 0; i < n; i++ {
		ranked[i].IsInBest = true
	}
}

// teamTotals sums a marked membership: every member's bonus counts, only
// in-best members contribute their clean score.
func teamTotals(parts []*models.Participant) (score, bonus decimal.Decimal, started int) {
	score, bonus = decimal.Zero, decimal.Zero
	for _, p := range parts {
		bonus = bonus.Add(p.BonusSum)
		if p.IsInBest {
			score = score.Add(p.ScoreSum.Sub(p.BonusSum))
		}
		if p.NStarts > 0 {
			started++
		}
	}
	return score.Add(bonus), bonus, started
}

// RecomputeTeam rebuilds one team's aggregate score and membership
// counts from its current participants.
func (e *Engine) RecomputeTeam(ctx context.Context, teamID int) error {
	team := new(models.Team)
	if err := e.db.NewSelect().Model(team).
		Where("t.team_id = ?", teamID).
		Scan(ctx); err != nil {
		return fmt.Errorf("load team %d: %w", teamID, err)
	}

	var parts []*models.Participant
	if err := e.db.NewSelect().Model(&parts).
		Where("pt.team_id = ?", teamID).
		Where("pt.removed_at IS NULL").
		OrderExpr("pt.participant_id ASC").
		Scan(ctx); err != nil {
		return fmt.Errorf("load team %d members: %w", teamID, err)
	}

	n, err := e.calc.Rules.NRunnersForTeamCleanScore(team.Year)
	if err != nil {
		return err
	}
	selectTeamBest(parts, n)
	score, bonus, started := teamTotals(parts)

	// Re-read the stored score immediately before producing the audit
	// delta; the in-memory value may be stale under concurrent
	// recomputation.
	var prev decimal.Decimal
	if err := e.db.NewSelect().Model((*models.Team)(nil)).
		Column("score").
		Where("team_id = ?", teamID).
		Scan(ctx, &prev); err != nil {
		return fmt.Errorf("re-read team %d score: %w", teamID, err)
	}
	delta := score.Sub(prev)

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin team update: %w", err)
	}
	defer tx.Rollback()
	for _, p := range parts {
		if _, err := tx.NewUpdate().Model(p).
			Column("is_in_best").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("update best flag for participant %d: %w", p.ParticipantID, err)
		}
	}
	team.Score = score
	team.BonusSum = bonus
	team.NMembers = len(parts)
	team.NStarted = started
	if _, err := tx.NewUpdate().Model(team).
		Column("score", "bonus_sum", "n_members", "n_started").
		WherePK().
		Exec(ctx); err != nil {
		return fmt.Errorf("save team %d: %w", teamID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit team update: %w", err)
	}

	if !delta.IsZero() {
		e.recordScoreChange(ctx, team.Year, &teamID, nil, nil, delta, "team recompute", "engine")
	}
	return nil
}
