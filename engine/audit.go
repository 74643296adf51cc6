package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/klbrun/klbapi/models"
)

// recordScoreChange appends one audit row. Audit failures are logged but
// never abort the scoring operation that produced them.
func (e *Engine) recordScoreChange(ctx context.Context, year int, teamID, participantID, raceID *int, delta decimal.Decimal, reason, actor string) {
	sc := &models.ScoreChange{
		ID:            uuid.New(),
		Year:          year,
		TeamID:        teamID,
		ParticipantID: participantID,
		RaceID:        raceID,
		Delta:         delta,
		Reason:        reason,
		Actor:         actor,
	}
	if _, err := e.db.NewInsert().Model(sc).Exec(ctx); err != nil {
		e.log.Error("audit insert failed",
			zap.String("reason", reason),
			zap.String("delta", delta.String()),
			zap.Error(err),
		)
	}
}

// reportFatal surfaces a scoring-integrity defect to the operator.
// Competition scores are consequential; a log line alone is not enough.
func (e *Engine) reportFatal(ctx context.Context, subject, body string) {
	e.log.Error(subject, zap.String("detail", body))
	if err := e.sender.Send(ctx, e.reportTo, "klbmatch: "+subject, body); err != nil {
		e.log.Error("operator report delivery failed", zap.Error(err))
	}
}

func zapRaceParticipant(raceID, participantID int) []zap.Field {
	return []zap.Field{
		zap.Int("race_id", raceID),
		zap.Int("participant_id", participantID),
	}
}
