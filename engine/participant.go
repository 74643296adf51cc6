package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/klbrun/klbapi/models"
)

// markBest clears and re-marks the best-N flags over a participant's
// scored-result pool. Both selections are drawn independently from the
// full pool; ties keep insertion order (stable sort), so the selection is
// idempotent across recomputations.
func markBest(pool []*models.ScoredResult, nScore, nBonus int) {
	for _, sr := range pool {
		sr.IsInBest = false
		sr.IsInBestBonus = false
	}

	byScore := make([]*models.ScoredResult, len(pool))
	copy(byScore, pool)
	sort.SliceStable(byScore, func(i, j int) bool {
		return byScore[i].Score.GreaterThan(byScore[j].Score)
	})
	for i := 0; i < len(byScore) && i < nScore; i++ {
		byScore[i].IsInBest = true
	}

	byBonus := make([]*models.ScoredResult, len(pool))
	copy(byBonus, pool)
	sort.SliceStable(byBonus, func(i, j int) bool {
		return byBonus[i].Bonus.GreaterThan(byBonus[j].Bonus)
	})
	for i := 0; i < len(byBonus) && i < nBonus; i++ {
		byBonus[i].IsInBestBonus = true
	}
}

// totals is the aggregate of one participant's marked pool.
type totals struct {
	ScoreSum decimal.Decimal
	BonusSum decimal.Decimal
	NStarts  int
}

// computeTotals sums the marked pool under the per-year bonus cap:
// bonus_sum = min(Σ bonus over best-bonus, cap); score_sum = bonus_sum +
// Σ score over best.
func computeTotals(pool []*models.ScoredResult, maxBonusPerYear decimal.Decimal) totals {
	bonus := decimal.Zero
	score := decimal.Zero
	for _, sr := range pool {
		if sr.IsInBestBonus {
			bonus = bonus.Add(sr.Bonus)
		}
		if sr.IsInBest {
			score = score.Add(sr.Score)
		}
	}
	if bonus.GreaterThan(maxBonusPerYear) {
		bonus = maxBonusPerYear
	}
	return totals{
		ScoreSum: bonus.Add(score),
		BonusSum: bonus,
		NStarts:  len(pool),
	}
}

// RecomputeParticipant recomputes one participant's totals and refreshes
// the owning team. Only the active competition year may be mutated this
// way; closed years go through RecomputeYear administratively.
func (e *Engine) RecomputeParticipant(ctx context.Context, participantID int) error {
	p := new(models.Participant)
	if err := e.db.NewSelect().Model(p).
		Where("pt.participant_id = ?", participantID).
		Scan(ctx); err != nil {
		return fmt.Errorf("load participant %d: %w", participantID, err)
	}
	if p.Year != e.activeYear {
		return fmt.Errorf("%w (year %d)", ErrInactiveYear, p.Year)
	}
	return e.recomputeParticipant(ctx, p, true, "participant recompute", "engine")
}

// recomputeParticipant applies the best-N selection and totals to one
// participant. updateTeam also refreshes the owning team; the full-year
// pass skips that and recomputes every team once afterwards.
func (e *Engine) recomputeParticipant(ctx context.Context, p *models.Participant, updateTeam bool, reason, actor string) error {
	var pool []*models.ScoredResult
	if err := e.db.NewSelect().Model(&pool).
		Where("sr.participant_id = ?", p.ParticipantID).
		OrderExpr("sr.scored_result_id ASC").
		Scan(ctx); err != nil {
		return fmt.Errorf("load scored results for participant %d: %w", p.ParticipantID, err)
	}

	nScore, err := e.calc.Rules.NResultsForCleanScore(p.Year)
	if err != nil {
		return err
	}
	nBonus, err := e.calc.Rules.NResultsForBonusScore(p.Year)
	if err != nil {
		return err
	}
	maxBonus, err := e.calc.Rules.MaxBonusPerYear(p.Year)
	if err != nil {
		return err
	}

	markBest(pool, nScore, nBonus)
	tot := computeTotals(pool, maxBonus)
	delta := tot.ScoreSum.Sub(p.ScoreSum)

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin flag update: %w", err)
	}
	defer tx.Rollback()
	for _, sr := range pool {
		if _, err := tx.NewUpdate().Model(sr).
			Column("is_in_best", "is_in_best_bonus").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("update flags for scored result %d: %w", sr.ScoredResultID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit flag update: %w", err)
	}

	p.ScoreSum = tot.ScoreSum
	p.BonusSum = tot.BonusSum
	p.NStarts = tot.NStarts
	if _, err := e.db.NewUpdate().Model(p).
		Column("score_sum", "bonus_sum", "n_starts").
		WherePK().
		Exec(ctx); err != nil {
		// Benign save races at this leaf are tolerated; the next
		// recomputation converges to the same totals.
		e.log.Warn("participant save conflict",
			zap.Int("participant_id", p.ParticipantID),
			zap.Error(err),
		)
	}

	if !delta.IsZero() {
		e.recordScoreChange(ctx, p.Year, nil, &p.ParticipantID, nil, delta, reason, actor)
	}

	if updateTeam && p.TeamID != nil {
		if err := e.RecomputeTeam(ctx, *p.TeamID); err != nil {
			return err
		}
	}
	return nil
}
