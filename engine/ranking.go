package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/klbrun/klbapi/models"
)

// placeCounter assigns dense competition-ranking places within one
// partition: equal keys share a place, the next distinct key receives
// the count of entries processed so far.
type placeCounter struct {
	n         int
	lastKey   decimal.Decimal
	lastPlace int
	started   bool
}

func (pc *placeCounter) next(key decimal.Decimal) int {
	pc.n++
	if !pc.started || !key.Equal(pc.lastKey) {
		pc.lastPlace = pc.n
		pc.lastKey = key
		pc.started = true
	}
	return pc.lastPlace
}

// RankTeams assigns team places for the year into the overall, small,
// medium and secondary partitions in a single ordered pass.
func (e *Engine) RankTeams(ctx context.Context, year int) error {
	lock := e.yearLock(year)
	lock.Lock()
	defer lock.Unlock()
	return e.rankTeams(ctx, year, true)
}

// rankTeamsOverall refreshes only the overall partition. Used by the
// targeted updater; category places are left to the next full pass.
func (e *Engine) rankTeamsOverall(ctx context.Context, year int) error {
	lock := e.yearLock(year)
	lock.Lock()
	defer lock.Unlock()
	return e.rankTeams(ctx, year, false)
}

func (e *Engine) rankTeams(ctx context.Context, year int, categories bool) error {
	var teams []*models.Team
	if err := e.db.NewSelect().Model(&teams).
		Where("t.year = ?", year).
		Where("t.n_members > 0").
		OrderExpr("t.score DESC, t.name ASC").
		Scan(ctx); err != nil {
		return fmt.Errorf("load teams for %d: %w", year, err)
	}

	smallLimit, err := e.calc.Rules.SmallTeamLimit(year)
	if err != nil {
		return err
	}
	mediumLimit, err := e.calc.Rules.MediumTeamLimit(year)
	if err != nil {
		return err
	}

	var overall, small, medium, secondary placeCounter
	for _, t := range teams {
		p := overall.next(t.Score)
		t.PlaceOverall = &p
		if !categories {
			continue
		}
		t.PlaceSmall, t.PlaceMedium, t.PlaceSecondary = nil, nil, nil
		switch {
		case t.NMembers <= smallLimit:
			sp := small.next(t.Score)
			t.PlaceSmall = &sp
		case t.NMembers <= mediumLimit:
			mp := medium.next(t.Score)
			t.PlaceMedium = &mp
		}
		if !t.IsPrimary {
			scp := secondary.next(t.Score)
			t.PlaceSecondary = &scp
		}
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin team ranking: %w", err)
	}
	defer tx.Rollback()

	cols := []string{"place_overall"}
	if categories {
		cols = append(cols, "place_small", "place_medium", "place_secondary")
		// Teams that dropped out of the ranked set lose their places.
		if _, err := tx.NewUpdate().Model((*models.Team)(nil)).
			Set("place_overall = NULL, place_small = NULL, place_medium = NULL, place_secondary = NULL").
			Where("year = ? AND n_members = 0", year).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear empty-team places: %w", err)
		}
	}
	for _, t := range teams {
		if _, err := tx.NewUpdate().Model(t).
			Column(cols...).
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("save places for team %d: %w", t.TeamID, err)
		}
	}
	return tx.Commit()
}

// RankParticipants assigns individual places for the year into the
// overall, per-gender and per-age-group partitions concurrently, each
// partition with its own counter. Only participants with a positive
// score are ranked.
func (e *Engine) RankParticipants(ctx context.Context, year int) error {
	lock := e.yearLock(year)
	lock.Lock()
	defer lock.Unlock()

	var parts []*models.Participant
	if err := e.db.NewSelect().Model(&parts).
		Relation("Person").
		Where("pt.year = ?", year).
		Where("pt.score_sum > 0").
		OrderExpr("pt.score_sum DESC, pt.participant_id ASC").
		Scan(ctx); err != nil {
		return fmt.Errorf("load participants for %d: %w", year, err)
	}

	var groups []*models.AgeGroup
	if err := e.db.NewSelect().Model(&groups).
		Where("ag.year = ?", year).
		OrderExpr("ag.age_group_id ASC").
		Scan(ctx); err != nil {
		return fmt.Errorf("load age groups for %d: %w", year, err)
	}

	var overall placeCounter
	byGender := map[models.Gender]*placeCounter{}
	byGroup := map[int]*placeCounter{}

	for _, p := range parts {
		op := overall.next(p.ScoreSum)
		p.PlaceOverall = &op

		g := p.Person.Gender
		gc, ok := byGender[g]
		if !ok {
			gc = &placeCounter{}
			byGender[g] = gc
		}
		gp := gc.next(p.ScoreSum)
		p.PlaceGender = &gp

		p.PlaceGroup, p.AgeGroupID = nil, nil
		if grp := ageGroupFor(groups, g, p.Person.BirthYear); grp != nil {
			agc, ok := byGroup[grp.AgeGroupID]
			if !ok {
				agc = &placeCounter{}
				byGroup[grp.AgeGroupID] = agc
			}
			ap := agc.next(p.ScoreSum)
			p.PlaceGroup = &ap
			p.AgeGroupID = &grp.AgeGroupID
		}
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin participant ranking: %w", err)
	}
	defer tx.Rollback()

	// Zero-score participants are unranked.
	if _, err := tx.NewUpdate().Model((*models.Participant)(nil)).
		Set("place_overall = NULL, place_gender = NULL, place_group = NULL").
		Where("year = ? AND score_sum <= 0", year).
		Exec(ctx); err != nil {
		return fmt.Errorf("clear unranked places: %w", err)
	}
	for _, p := range parts {
		if _, err := tx.NewUpdate().Model(p).
			Column("place_overall", "place_gender", "place_group", "age_group_id").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("save places for participant %d: %w", p.ParticipantID, err)
		}
	}
	return tx.Commit()
}

func ageGroupFor(groups []*models.AgeGroup, gender models.Gender, birthYear int) *models.AgeGroup {
	for _, g := range groups {
		if g.Gender == gender && g.Contains(birthYear) {
			return g
		}
	}
	return nil
}
