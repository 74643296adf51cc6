package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/klbrun/klbapi/models"
	"github.com/klbrun/klbapi/scoring"
)

// bindTolerance is how far a candidate result's recorded value may
// drift from the scored result's. For fixed-distance races both sides
// carry centiseconds (results are second-precision); for fixed-time
// races both carry distance covered in meters.
const bindTolerance = 100

// Unresolved describes one scored result the binder could not attach,
// keyed for the manual review queue.
type Unresolved struct {
	ScoredResultID int    `json:"scoredResultID"`
	RaceID         int    `json:"raceID"`
	Reason         string `json:"reason"`
	// CandidateResultIDs is filled for ambiguous matches.
	CandidateResultIDs []int `json:"candidateResultIDs,omitempty"`
}

// BindRaceResults attaches official finished results of one race to the
// race's unresolved scored results. No-match and ambiguous cases are
// returned for manual handling, never raised.
func (e *Engine) BindRaceResults(ctx context.Context, raceID int) (bound int, unresolved []Unresolved, err error) {
	race := new(models.Race)
	if err := e.db.NewSelect().Model(race).
		Where("rc.race_id = ?", raceID).
		Scan(ctx); err != nil {
		return 0, nil, fmt.Errorf("load race %d: %w", raceID, err)
	}
	fixedTime := race.DistanceType == models.FixedTime

	var pending []*models.ScoredResult
	if err := e.db.NewSelect().Model(&pending).
		Relation("Participant").
		Relation("Participant.Person").
		Relation("Participant.Person.Runner").
		Where("sr.race_id = ?", raceID).
		Where("sr.result_id IS NULL").
		OrderExpr("sr.scored_result_id ASC").
		Scan(ctx); err != nil {
		return 0, nil, fmt.Errorf("load unresolved scored results for race %d: %w", raceID, err)
	}
	if len(pending) == 0 {
		return 0, nil, nil
	}

	var results []*models.Result
	if err := e.db.NewSelect().Model(&results).
		Where("r.race_id = ?", raceID).
		Where("r.status = ?", models.StatusFinished).
		Where("r.official").
		OrderExpr("r.result_id ASC").
		Scan(ctx); err != nil {
		return 0, nil, fmt.Errorf("load results for race %d: %w", raceID, err)
	}

	// Results already claimed by some scored result are off the table.
	claimed := map[int]int{}
	var existing []*models.ScoredResult
	if err := e.db.NewSelect().Model(&existing).
		Column("sr.scored_result_id", "sr.result_id").
		Where("sr.race_id = ?", raceID).
		Where("sr.result_id IS NOT NULL").
		Scan(ctx); err != nil {
		return 0, nil, fmt.Errorf("load claimed results for race %d: %w", raceID, err)
	}
	for _, sr := range existing {
		claimed[*sr.ResultID] = sr.ScoredResultID
	}

	for _, sr := range pending {
		candidates := matchCandidates(sr, results, claimed, fixedTime)
		switch len(candidates) {
		case 0:
			unresolved = append(unresolved, Unresolved{
				ScoredResultID: sr.ScoredResultID,
				RaceID:         raceID,
				Reason:         "no matching result",
			})
		case 1:
			if err := e.commitBind(ctx, sr, candidates[0]); err != nil {
				if errors.Is(err, ErrDuplicateScoredResult) {
					unresolved = append(unresolved, Unresolved{
						ScoredResultID: sr.ScoredResultID,
						RaceID:         raceID,
						Reason:         "duplicate scored result",
					})
					continue
				}
				return bound, unresolved, err
			}
			claimed[candidates[0].ResultID] = sr.ScoredResultID
			bound++
		default:
			ids := make([]int, len(candidates))
			for i, c := range candidates {
				ids[i] = c.ResultID
			}
			unresolved = append(unresolved, Unresolved{
				ScoredResultID:     sr.ScoredResultID,
				RaceID:             raceID,
				Reason:             "ambiguous match",
				CandidateResultIDs: ids,
			})
		}
	}
	return bound, unresolved, nil
}

// matchCandidates filters a race's results down to the plausible matches
// for one scored result: runner identity first, name equality (including
// the common swapped-order variant) second, always within the recorded
// value tolerance, never against a result claimed elsewhere or carrying
// a different runner. For fixed-time races the recorded value is the
// distance covered, which the result carries in DistanceM.
func matchCandidates(sr *models.ScoredResult, results []*models.Result, claimed map[int]int, fixedTime bool) []*models.Result {
	person := sr.Participant.Person
	var byRunner, byName []*models.Result
	for _, r := range results {
		if owner, ok := claimed[r.ResultID]; ok && owner != sr.ScoredResultID {
			continue
		}
		recorded := r.TimeCs
		if fixedTime {
			recorded = int64(r.DistanceM)
		}
		if absInt64(recorded-sr.TimeCs) > bindTolerance {
			continue
		}
		if r.RunnerID != nil && person.RunnerID != nil {
			if *r.RunnerID == *person.RunnerID {
				byRunner = append(byRunner, r)
			}
			// A result tied to a different runner never matches by name.
			continue
		}
		if namesMatch(r.LastName, r.FirstName, person.LastName, person.FirstName) {
			byName = append(byName, r)
		}
	}
	// Runner identity outranks name equality; names are only consulted
	// when no identity match exists.
	if len(byRunner) > 0 {
		return byRunner
	}
	return byName
}

func namesMatch(lastA, firstA, lastB, firstB string) bool {
	la, fa := foldName(lastA), foldName(firstA)
	lb, fb := foldName(lastB), foldName(firstB)
	if la == lb && fa == fb {
		return true
	}
	// Protocols routinely swap given and family name.
	return la == fb && fa == lb
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// commitBind writes one successful match: the runner and user links
// propagate onto the result, the scored result records the attachment.
// The uniqueness invariant is re-validated inside the transaction —
// cross-person collisions on the same time must not slip a second
// scored result past the check.
func (e *Engine) commitBind(ctx context.Context, sr *models.ScoredResult, r *models.Result) error {
	dup, err := e.hasDuplicate(ctx, sr.ParticipantID, sr.EventID, sr.StartTime, sr.ScoredResultID)
	if err != nil {
		return err
	}
	if dup {
		e.reportFatal(ctx, "duplicate scored result",
			fmt.Sprintf("participant %d already scored for event %d start %s (scored result %d)",
				sr.ParticipantID, sr.EventID, sr.StartTime, sr.ScoredResultID))
		return ErrDuplicateScoredResult
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bind: %w", err)
	}
	defer tx.Rollback()

	person := sr.Participant.Person
	resultCols := []string{}
	if r.RunnerID == nil && person.RunnerID != nil {
		r.RunnerID = person.RunnerID
		resultCols = append(resultCols, "runner_id")
	}
	if r.UserID == nil && person.Runner != nil && person.Runner.UserID != nil {
		r.UserID = person.Runner.UserID
		resultCols = append(resultCols, "user_id")
	}
	if len(resultCols) > 0 {
		if _, err := tx.NewUpdate().Model(r).
			Column(resultCols...).
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("update result %d links: %w", r.ResultID, err)
		}
	}

	sr.ResultID = &r.ResultID
	if _, err := tx.NewUpdate().Model(sr).
		Column("result_id").
		WherePK().
		Exec(ctx); err != nil {
		return fmt.Errorf("attach result %d to scored result %d: %w", r.ResultID, sr.ScoredResultID, err)
	}
	return tx.Commit()
}

// BindResultToParticipant creates a scored result from an official
// timing result by explicit admin action and recomputes the participant.
// Returns (nil, nil) when the race falls outside the participant's
// eligibility window — excluded from scoring, not an error.
func (e *Engine) BindResultToParticipant(ctx context.Context, resultID, participantID int, actor string) (*models.ScoredResult, error) {
	r := new(models.Result)
	if err := e.db.NewSelect().Model(r).
		Relation("Race").
		Relation("Race.Event").
		Where("r.result_id = ?", resultID).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load result %d: %w", resultID, err)
	}
	p := new(models.Participant)
	if err := e.db.NewSelect().Model(p).
		Relation("Person").
		Where("pt.participant_id = ?", participantID).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load participant %d: %w", participantID, err)
	}
	if p.Year != e.activeYear {
		return nil, fmt.Errorf("%w (year %d)", ErrInactiveYear, p.Year)
	}
	if r.Status != models.StatusFinished {
		return nil, fmt.Errorf("result %d is not a finish (%s)", resultID, r.Status)
	}

	race := r.Race
	start, end := e.calc.Rules.MatchYearRange(p.Year)
	if race.Year < start || race.Year > end {
		e.log.Info("race outside competition year range",
			zapRaceParticipant(race.RaceID, participantID)...)
		return nil, nil
	}
	if !withinWindow(race.Event.Date, p.RegisteredAt, p.RemovedAt) {
		e.log.Info("race outside participant eligibility window",
			zapRaceParticipant(race.RaceID, participantID)...)
		return nil, nil
	}

	length := race.EffectiveLength()
	elapsed := r.TimeCs
	if race.DistanceType == models.FixedTime {
		length = r.DistanceM
		elapsed = int64(race.Length) * 100
	}
	out, err := e.calc.Compute(scoring.Input{
		Year:      p.Year,
		BirthYear: p.Person.BirthYear,
		Gender:    p.Person.Gender,
		LengthM:   length,
		ElapsedCs: elapsed,
		ItraScore: race.ItraScore,
	})
	if err != nil {
		return nil, fmt.Errorf("score result %d: %w", resultID, err)
	}

	sr := &models.ScoredResult{
		ParticipantID: participantID,
		RaceID:        race.RaceID,
		ResultID:      &resultID,
		EventID:       race.EventID,
		StartTime:     race.StartTime,
		TimeCs:        elapsed,
		AgeEquivCs:    out.AgeEquivCs,
		Score:         out.Score,
		Bonus:         out.Bonus,
	}
	if race.DistanceType == models.FixedTime {
		sr.TimeCs = int64(r.DistanceM)
	}

	dup, err := e.hasDuplicate(ctx, participantID, race.EventID, race.StartTime, 0)
	if err != nil {
		return nil, err
	}
	if dup {
		e.reportFatal(ctx, "duplicate scored result",
			fmt.Sprintf("participant %d already scored for event %d start %s",
				participantID, race.EventID, race.StartTime))
		return nil, ErrDuplicateScoredResult
	}
	if _, err := e.db.NewInsert().Model(sr).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			e.reportFatal(ctx, "duplicate scored result",
				fmt.Sprintf("participant %d already scored for event %d start %s (constraint)",
					participantID, race.EventID, race.StartTime))
			return nil, ErrDuplicateScoredResult
		}
		return nil, fmt.Errorf("insert scored result: %w", err)
	}

	e.recordScoreChange(ctx, p.Year, nil, &participantID, &race.RaceID, out.Score, "result bound", actor)
	if err := e.recomputeParticipant(ctx, p, true, "result bound", actor); err != nil {
		return nil, err
	}
	return sr, nil
}

// DeleteScoredResult removes a scored result (result unlinked, error
// found, participant dropped) and recomputes the participant — exactly
// undoing the prior contribution.
func (e *Engine) DeleteScoredResult(ctx context.Context, scoredResultID int, actor string) error {
	sr := new(models.ScoredResult)
	if err := e.db.NewSelect().Model(sr).
		Where("sr.scored_result_id = ?", scoredResultID).
		Scan(ctx); err != nil {
		return fmt.Errorf("load scored result %d: %w", scoredResultID, err)
	}
	p := new(models.Participant)
	if err := e.db.NewSelect().Model(p).
		Where("pt.participant_id = ?", sr.ParticipantID).
		Scan(ctx); err != nil {
		return fmt.Errorf("load participant %d: %w", sr.ParticipantID, err)
	}
	if p.Year != e.activeYear {
		return fmt.Errorf("%w (year %d)", ErrInactiveYear, p.Year)
	}

	if _, err := e.db.NewDelete().Model(sr).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("delete scored result %d: %w", scoredResultID, err)
	}
	e.recordScoreChange(ctx, p.Year, nil, &p.ParticipantID, &sr.RaceID, sr.Score.Neg(), "result removed", actor)
	return e.recomputeParticipant(ctx, p, true, "result removed", actor)
}

func (e *Engine) hasDuplicate(ctx context.Context, participantID, eventID int, startTime string, excludeID int) (bool, error) {
	var rows []*models.ScoredResult
	err := e.db.NewSelect().Model(&rows).
		Column("sr.scored_result_id", "sr.participant_id", "sr.event_id", "sr.start_time").
		Where("participant_id = ?", participantID).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	for _, sr := range rows {
		if scoreKeyCollision(sr, participantID, eventID, startTime, excludeID) {
			return true, nil
		}
	}
	return false, nil
}

// scoreKeyCollision reports whether an existing scored result already
// claims the (participant, event, start) key a new one would take. One
// scored result per key is the scoring-integrity rule; the
// scored_results_no_dupes constraint enforces the same key in Postgres.
func scoreKeyCollision(existing *models.ScoredResult, participantID, eventID int, startTime string, excludeID int) bool {
	if existing.ScoredResultID == excludeID {
		return false
	}
	return existing.ParticipantID == participantID &&
		existing.EventID == eventID &&
		existing.StartTime == startTime
}

const uniqueViolationCode = "23505"

// sqlstateErr is the piece of pgdriver.Error the duplicate check needs.
// The concrete type keeps its error fields unexported, so the check
// matches any error exposing the same SQLSTATE accessor.
type sqlstateErr interface {
	Field(byte) string
}

func isUniqueViolation(err error) bool {
	var pgErr sqlstateErr
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolationCode
}

// withinWindow checks a race date against the participant's registration
// window. Dates are ISO "YYYY-MM-DD" strings, so string order is date order.
func withinWindow(raceDate, registeredAt string, removedAt *string) bool {
	if raceDate < registeredAt {
		return false
	}
	if removedAt != nil && raceDate > *removedAt {
		return false
	}
	return true
}
