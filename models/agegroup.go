package models

import "github.com/uptrace/bun"

// AgeGroup partitions individual ranking by birth-year range within one
// competition year and gender.
type AgeGroup struct {
	bun.BaseModel `bun:"table:age_groups,alias:ag"`

	AgeGroupID   int    `bun:"age_group_id,pk,autoincrement" json:"ageGroupID"`
	Year         int    `bun:"year,notnull" json:"year"`
	Gender       Gender `bun:"gender,notnull" json:"gender"`
	BirthYearMin int    `bun:"birth_year_min,notnull" json:"birthYearMin"`
	BirthYearMax int    `bun:"birth_year_max,notnull" json:"birthYearMax"`
	Name         string `bun:"name,notnull" json:"name"`
}

// Contains reports whether a birth year falls in the group's range.
func (g *AgeGroup) Contains(birthYear int) bool {
	return birthYear >= g.BirthYearMin && birthYear <= g.BirthYearMax
}
