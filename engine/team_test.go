package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/klbrun/klbapi/models"
)

func member(id int, scoreSum, bonusSum string, nStarts int) *models.Participant {
	return &models.Participant{
		ParticipantID: id,
		ScoreSum:      d(scoreSum),
		BonusSum:      d(bonusSum),
		NStarts:       nStarts,
	}
}

func TestSelectTeamBest(t *testing.T) {
	t.Run("Small Team Is All In", func(t *testing.T) {
		parts := []*models.Participant{
			member(1, "10", "2", 3),
			member(2, "8", "1", 2),
		}
		selectTeamBest(parts, 15)
		for _, p := range parts {
			assert.True(t, p.IsInBest)
		}
	})

	t.Run("Large Team Takes Top N By Clean Score", func(t *testing.T) {
		parts := []*models.Participant{
			member(1, "12", "2", 3),  // clean 10
			member(2, "30", "20", 8), // clean 10
			member(3, "25", "1", 4),  // clean 24
			member(4, "9", "2", 1),   // clean 7
		}
		selectTeamBest(parts, 2)
		// clean 24 first, then the 10/10 tie broken by starts (8 > 3).
		assert.False(t, parts[0].IsInBest)
		assert.True(t, parts[1].IsInBest)
		assert.True(t, parts[2].IsInBest)
		assert.False(t, parts[3].IsInBest)
	})
}

func TestTeamTotalsCapInvariant(t *testing.T) {
	parts := []*models.Participant{
		member(1, "12", "2", 3),
		member(2, "30", "20", 8),
		member(3, "25", "1", 4),
		member(4, "9", "2", 0),
	}
	selectTeamBest(parts, 2)
	score, bonus, started := teamTotals(parts)

	// team.score == Σ bonus over all + Σ (score−bonus) over in-best.
	want := d("0")
	for _, p := range parts {
		want = want.Add(p.BonusSum)
	}
	for _, p := range parts {
		if p.IsInBest {
			want = want.Add(p.ScoreSum.Sub(p.BonusSum))
		}
	}
	assert.True(t, score.Equal(want), "%s != %s", score, want)
	assert.True(t, bonus.Equal(d("25")))
	assert.Equal(t, 3, started)
}

func TestTeamTotalsRecomputeIdempotent(t *testing.T) {
	parts := []*models.Participant{
		member(1, "12", "2", 3),
		member(2, "12", "2", 3),
		member(3, "25", "1", 4),
	}
	selectTeamBest(parts, 2)
	s1, b1, _ := teamTotals(parts)
	selectTeamBest(parts, 2)
	s2, b2, _ := teamTotals(parts)
	assert.True(t, s1.Equal(s2))
	assert.True(t, b1.Equal(b2))
}
