package models

import "github.com/uptrace/bun"

// Gender partitions reference curves, age groups and individual rankings.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// Runner is an identity in the results database. A runner may be claimed
// by a site user; results carry the runner link when known.
type Runner struct {
	bun.BaseModel `bun:"table:runners,alias:rn"`

	RunnerID  int    `bun:"runner_id,pk,autoincrement" json:"runnerID"`
	LastName  string `bun:"last_name,notnull" json:"lastName"`
	FirstName string `bun:"first_name,notnull" json:"firstName"`
	BirthYear int    `bun:"birth_year,notnull" json:"birthYear"`
	Gender    Gender `bun:"gender,notnull" json:"gender"`
	UserID    *int   `bun:"user_id" json:"userID,omitempty"`
}

// Person is a competition-eligible identity. Birth year and gender must
// agree with the linked runner's; that agreement is enforced at the edit
// surface, the engine assumes it.
type Person struct {
	bun.BaseModel `bun:"table:persons,alias:p"`

	PersonID  int    `bun:"person_id,pk,autoincrement" json:"personID"`
	LastName  string `bun:"last_name,notnull" json:"lastName"`
	FirstName string `bun:"first_name,notnull" json:"firstName"`
	BirthYear int    `bun:"birth_year,notnull" json:"birthYear"`
	Gender    Gender `bun:"gender,notnull" json:"gender"`
	RunnerID  *int   `bun:"runner_id" json:"runnerID,omitempty"`

	Runner *Runner `bun:"rel:belongs-to,join:runner_id=runner_id" json:"-"`
}
