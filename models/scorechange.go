package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// ScoreChange is an append-only audit record of a score delta. Reporting
// collaborators read these rows to build human-readable change digests;
// the engine only ever inserts.
type ScoreChange struct {
	bun.BaseModel `bun:"table:score_changes,alias:sc"`

	ID            uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	Year          int             `bun:"year,notnull" json:"year"`
	TeamID        *int            `bun:"team_id" json:"teamID,omitempty"`
	ParticipantID *int            `bun:"participant_id" json:"participantID,omitempty"`
	RaceID        *int            `bun:"race_id" json:"raceID,omitempty"`
	Delta         decimal.Decimal `bun:"delta,notnull,type:numeric(12,3)" json:"delta"`
	Reason        string          `bun:"reason,notnull" json:"reason"`
	Actor         string          `bun:"actor,notnull" json:"actor"`
	CreatedAt     time.Time       `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}
