package models

import (
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Participant is one person's entry for one competition year. Totals and
// places are derived fields owned by the scoring engine.
type Participant struct {
	bun.BaseModel `bun:"table:participants,alias:pt"`

	ParticipantID int    `bun:"participant_id,pk,autoincrement" json:"participantID"`
	PersonID      int    `bun:"person_id,notnull,unique:participants_no_dupes" json:"personID"`
	Year          int    `bun:"year,notnull,unique:participants_no_dupes" json:"year"`
	TeamID        *int   `bun:"team_id" json:"teamID,omitempty"`
	RegisteredAt  string `bun:"registered_at,notnull,type:date" json:"registeredAt"`
	// RemovedAt closes the eligibility window when the person drops out of
	// the competition mid-year; races after it do not score.
	RemovedAt *string `bun:"removed_at,type:date" json:"removedAt,omitempty"`

	ScoreSum decimal.Decimal `bun:"score_sum,notnull,type:numeric(12,3),default:0" json:"scoreSum"`
	BonusSum decimal.Decimal `bun:"bonus_sum,notnull,type:numeric(12,3),default:0" json:"bonusSum"`
	NStarts  int             `bun:"n_starts,notnull,default:0" json:"nStarts"`
	// IsInBest marks membership in the team's best-N selection by clean score.
	IsInBest bool `bun:"is_in_best,notnull,default:false" json:"isInBest"`

	PlaceOverall *int `bun:"place_overall" json:"placeOverall,omitempty"`
	PlaceGender  *int `bun:"place_gender" json:"placeGender,omitempty"`
	PlaceGroup   *int `bun:"place_group" json:"placeGroup,omitempty"`
	AgeGroupID   *int `bun:"age_group_id" json:"ageGroupID,omitempty"`

	Person *Person `bun:"rel:belongs-to,join:person_id=person_id" json:"-"`
	Team   *Team   `bun:"rel:belongs-to,join:team_id=team_id" json:"-"`
}

// ScoredResult links a timing Result to a Participant and carries the
// computed scores. At most one per (participant, event, start time) —
// enforced by the scored_results_no_dupes constraint and re-checked in
// code before every insert.
type ScoredResult struct {
	bun.BaseModel `bun:"table:scored_results,alias:sr"`

	ScoredResultID int  `bun:"scored_result_id,pk,autoincrement" json:"scoredResultID"`
	ParticipantID  int  `bun:"participant_id,notnull,unique:scored_results_no_dupes" json:"participantID"`
	RaceID         int  `bun:"race_id,notnull" json:"raceID"`
	ResultID       *int `bun:"result_id" json:"resultID,omitempty"`
	// EventID and StartTime are denormalized from the race for the
	// uniqueness constraint and for binder queries.
	EventID   int    `bun:"event_id,notnull,unique:scored_results_no_dupes" json:"eventID"`
	StartTime string `bun:"start_time,notnull,unique:scored_results_no_dupes" json:"startTime"`

	// TimeCs is elapsed centiseconds for fixed-distance races and distance
	// covered in meters for fixed-time races, as recorded.
	TimeCs      int64           `bun:"time_cs,notnull" json:"timeCs"`
	AgeEquivCs  int64           `bun:"age_equiv_cs,notnull,default:0" json:"ageEquivCs"`
	Score       decimal.Decimal `bun:"score,notnull,type:numeric(12,3),default:0" json:"score"`
	Bonus       decimal.Decimal `bun:"bonus,notnull,type:numeric(12,3),default:0" json:"bonus"`
	IsInBest      bool `bun:"is_in_best,notnull,default:false" json:"isInBest"`
	IsInBestBonus bool `bun:"is_in_best_bonus,notnull,default:false" json:"isInBestBonus"`

	Participant *Participant `bun:"rel:belongs-to,join:participant_id=participant_id" json:"-"`
	Race        *Race        `bun:"rel:belongs-to,join:race_id=race_id" json:"-"`
	Result      *Result      `bun:"rel:belongs-to,join:result_id=result_id" json:"-"`
}
