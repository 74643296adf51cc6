package models

import (
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Club is the parent organisation a team represents.
type Club struct {
	bun.BaseModel `bun:"table:clubs,alias:cl"`

	ClubID int    `bun:"club_id,pk,autoincrement" json:"clubID"`
	Name   string `bun:"name,notnull,unique" json:"name"`
	City   string `bun:"city,notnull" json:"city"`
}

// Team is one club's entry for one competition year. Score and place
// fields are derived; they are overwritten in full by recomputation and
// are never edited directly.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	TeamID   int    `bun:"team_id,pk,autoincrement" json:"teamID"`
	ClubID   int    `bun:"club_id,notnull,unique:teams_no_dupes" json:"clubID"`
	Year     int    `bun:"year,notnull,unique:teams_no_dupes" json:"year"`
	Name     string `bun:"name,notnull" json:"name"`
	// IsPrimary is false for "second squad" teams whose name derives from a
	// parent club; those get the separate secondary sub-ranking.
	IsPrimary bool `bun:"is_primary,notnull,default:true" json:"isPrimary"`

	Score    decimal.Decimal `bun:"score,notnull,type:numeric(12,3),default:0" json:"score"`
	BonusSum decimal.Decimal `bun:"bonus_sum,notnull,type:numeric(12,3),default:0" json:"bonusSum"`
	NMembers int             `bun:"n_members,notnull,default:0" json:"nMembers"`
	NStarted int             `bun:"n_started,notnull,default:0" json:"nStarted"`

	PlaceOverall   *int `bun:"place_overall" json:"placeOverall,omitempty"`
	PlaceSmall     *int `bun:"place_small" json:"placeSmall,omitempty"`
	PlaceMedium    *int `bun:"place_medium" json:"placeMedium,omitempty"`
	PlaceSecondary *int `bun:"place_secondary" json:"placeSecondary,omitempty"`

	Club *Club `bun:"rel:belongs-to,join:club_id=club_id" json:"-"`
}
