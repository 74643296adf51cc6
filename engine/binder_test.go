package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klbrun/klbapi/models"
)

func intp(v int) *int { return &v }

func TestNamesMatch(t *testing.T) {
	assert.True(t, namesMatch("Ivanov", "Petr", "Ivanov", "Petr"))
	assert.True(t, namesMatch("ivanov", " Petr ", "IVANOV", "petr"))
	// Swapped-order variant is common in uploaded protocols.
	assert.True(t, namesMatch("Petr", "Ivanov", "Ivanov", "Petr"))
	assert.False(t, namesMatch("Ivanov", "Petr", "Ivanov", "Pavel"))
}

func TestWithinWindow(t *testing.T) {
	assert.True(t, withinWindow("2024-05-01", "2024-01-15", nil))
	assert.False(t, withinWindow("2024-01-01", "2024-01-15", nil))

	removed := "2024-06-30"
	assert.True(t, withinWindow("2024-06-30", "2024-01-15", &removed))
	assert.False(t, withinWindow("2024-07-01", "2024-01-15", &removed))
}

func binderSR(id int, timeCs int64, person *models.Person) *models.ScoredResult {
	return &models.ScoredResult{
		ScoredResultID: id,
		TimeCs:         timeCs,
		Participant:    &models.Participant{Person: person},
	}
}

func binderResult(id int, timeCs int64, last, first string, runnerID *int) *models.Result {
	return &models.Result{
		ResultID:  id,
		TimeCs:    timeCs,
		LastName:  last,
		FirstName: first,
		RunnerID:  runnerID,
		Status:    models.StatusFinished,
	}
}

func TestMatchCandidates(t *testing.T) {
	person := &models.Person{
		LastName: "Ivanov", FirstName: "Petr",
		RunnerID: intp(7),
	}

	t.Run("Runner Identity Wins", func(t *testing.T) {
		sr := binderSR(1, 300000, person)
		results := []*models.Result{
			binderResult(10, 300000, "Someone", "Else", intp(7)),
			binderResult(11, 300000, "Ivanov", "Petr", nil),
		}
		got := matchCandidates(sr, results, map[int]int{}, false)
		// Identity outranks name equality: only the runner match survives.
		assert.Len(t, got, 1)
		assert.Equal(t, 10, got[0].ResultID)
	})

	t.Run("Different Runner Rejected Despite Name", func(t *testing.T) {
		sr := binderSR(1, 300000, person)
		results := []*models.Result{
			binderResult(10, 300000, "Ivanov", "Petr", intp(99)),
		}
		got := matchCandidates(sr, results, map[int]int{}, false)
		assert.Empty(t, got)
	})

	t.Run("Time Tolerance", func(t *testing.T) {
		sr := binderSR(1, 300000, person)
		results := []*models.Result{
			binderResult(10, 300100, "Ivanov", "Petr", nil), // exactly at tolerance
			binderResult(11, 300101, "Ivanov", "Petr", nil), // past it
		}
		got := matchCandidates(sr, results, map[int]int{}, false)
		assert.Len(t, got, 1)
		assert.Equal(t, 10, got[0].ResultID)
	})

	t.Run("Claimed Result Skipped", func(t *testing.T) {
		sr := binderSR(1, 300000, person)
		results := []*models.Result{
			binderResult(10, 300000, "Ivanov", "Petr", nil),
		}
		got := matchCandidates(sr, results, map[int]int{10: 42}, false)
		assert.Empty(t, got)
	})

	t.Run("Swapped Name Order Matches", func(t *testing.T) {
		sr := binderSR(1, 300000, person)
		results := []*models.Result{
			binderResult(10, 299950, "Petr", "Ivanov", nil),
		}
		got := matchCandidates(sr, results, map[int]int{}, false)
		assert.Len(t, got, 1)
	})

	t.Run("Fixed Time Race Compares Distance", func(t *testing.T) {
		// For a fixed-time race the scored result records distance
		// covered in meters; the official result carries it in
		// DistanceM and leaves TimeCs at zero.
		sr := binderSR(1, 220000, person)
		r := binderResult(10, 0, "Ivanov", "Petr", nil)
		r.DistanceM = 220000
		results := []*models.Result{r}

		got := matchCandidates(sr, results, map[int]int{}, true)
		assert.Len(t, got, 1)
		assert.Equal(t, 10, got[0].ResultID)
	})

	t.Run("Fixed Time Distance Tolerance", func(t *testing.T) {
		sr := binderSR(1, 220000, person)
		near := binderResult(10, 0, "Ivanov", "Petr", nil)
		near.DistanceM = 220100 // exactly at tolerance
		far := binderResult(11, 0, "Petr", "Ivanov", nil)
		far.DistanceM = 220101 // past it
		results := []*models.Result{near, far}

		got := matchCandidates(sr, results, map[int]int{}, true)
		assert.Len(t, got, 1)
		assert.Equal(t, 10, got[0].ResultID)
	})
}

func scoredFor(id, participantID, eventID int, start string) *models.ScoredResult {
	return &models.ScoredResult{
		ScoredResultID: id,
		ParticipantID:  participantID,
		EventID:        eventID,
		StartTime:      start,
	}
}

func TestScoreKeyCollision(t *testing.T) {
	existing := scoredFor(5, 1, 30, "2024-06-01T09:00:00")

	t.Run("Same Key Collides", func(t *testing.T) {
		assert.True(t, scoreKeyCollision(existing, 1, 30, "2024-06-01T09:00:00", 0))
	})

	t.Run("Different Start Does Not", func(t *testing.T) {
		// Two races of the same event at different start times are
		// both scoreable.
		assert.False(t, scoreKeyCollision(existing, 1, 30, "2024-06-01T12:00:00", 0))
	})

	t.Run("Different Event Does Not", func(t *testing.T) {
		assert.False(t, scoreKeyCollision(existing, 1, 31, "2024-06-01T09:00:00", 0))
	})

	t.Run("Own Row Excluded", func(t *testing.T) {
		// Re-validation during bind must not trip over the row
		// being bound.
		assert.False(t, scoreKeyCollision(existing, 1, 30, "2024-06-01T09:00:00", 5))
	})
}

func TestDuplicateRejectionKeepsTotals(t *testing.T) {
	// A second scored result for the same (participant, event, start)
	// is rejected before insertion, so the pool the totals are computed
	// from never changes.
	pool := []*models.ScoredResult{
		scoredFor(1, 7, 30, "2024-06-01T09:00:00"),
		scoredFor(2, 7, 31, "2024-07-14T10:00:00"),
	}
	pool[0].Score, pool[0].Bonus = d("12.5"), d("0.5")
	pool[1].Score, pool[1].Bonus = d("9"), d("0.5")
	markBest(pool, 4, 20)
	before := computeTotals(pool, d("20"))

	attempt := scoredFor(0, 7, 30, "2024-06-01T09:00:00")
	rejected := false
	for _, sr := range pool {
		if scoreKeyCollision(sr, attempt.ParticipantID, attempt.EventID, attempt.StartTime, 0) {
			rejected = true
		}
	}
	require.True(t, rejected)

	after := computeTotals(pool, d("20"))
	assert.True(t, before.ScoreSum.Equal(after.ScoreSum))
	assert.True(t, before.BonusSum.Equal(after.BonusSum))
	assert.Equal(t, before.NStarts, after.NStarts)
}

type sqlstateStub struct {
	code string
}

func (e sqlstateStub) Error() string { return "SQLSTATE " + e.code }

func (e sqlstateStub) Field(k byte) string {
	if k == 'C' {
		return e.code
	}
	return ""
}

func TestIsUniqueViolation(t *testing.T) {
	t.Run("Unique Violation Code", func(t *testing.T) {
		assert.True(t, isUniqueViolation(sqlstateStub{code: "23505"}))
	})

	t.Run("Wrapped", func(t *testing.T) {
		err := fmt.Errorf("insert scored result: %w", sqlstateStub{code: "23505"})
		assert.True(t, isUniqueViolation(err))
	})

	t.Run("Other Constraint Class", func(t *testing.T) {
		assert.False(t, isUniqueViolation(sqlstateStub{code: "23503"}))
	})

	t.Run("Plain Error", func(t *testing.T) {
		assert.False(t, isUniqueViolation(errors.New("connection reset")))
	})
}
