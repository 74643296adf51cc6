package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompetitionRanking(t *testing.T) {
	t.Run("Distinct Keys Are Dense", func(t *testing.T) {
		var pc placeCounter
		places := []int{}
		for _, s := range []string{"50", "40", "30", "20"} {
			places = append(places, pc.next(d(s)))
		}
		assert.Equal(t, []int{1, 2, 3, 4}, places)
	})

	t.Run("Ties Share The Lower Place", func(t *testing.T) {
		var pc placeCounter
		places := []int{}
		// 1, 1, 3 — the "count processed" form, not 1, 1, 2.
		for _, s := range []string{"50", "50", "30"} {
			places = append(places, pc.next(d(s)))
		}
		assert.Equal(t, []int{1, 1, 3}, places)
	})

	t.Run("Long Tie Run", func(t *testing.T) {
		var pc placeCounter
		places := []int{}
		for _, s := range []string{"9", "9", "9", "9", "5", "5", "1"} {
			places = append(places, pc.next(d(s)))
		}
		assert.Equal(t, []int{1, 1, 1, 1, 5, 5, 7}, places)
	})

	t.Run("Multiset Of Places Has No Gaps Beyond Ties", func(t *testing.T) {
		var pc placeCounter
		keys := []string{"10", "10", "8", "8", "8", "7", "2", "2"}
		places := []int{}
		for _, s := range keys {
			places = append(places, pc.next(d(s)))
		}
		// Each distinct place p with multiplicity m covers positions
		// p..p+m-1; walked in order they must tile 1..len(keys).
		covered := 0
		for i := 0; i < len(places); {
			p := places[i]
			assert.Equal(t, covered+1, p, "gap before place %d", p)
			j := i
			for j < len(places) && places[j] == p {
				j++
			}
			covered += j - i
			i = j
		}
		assert.Equal(t, len(keys), covered)
	})
}

func TestPlaceCounterIndependentPartitions(t *testing.T) {
	// Overall and per-partition counters run concurrently over one pass.
	var overall, women placeCounter
	type row struct {
		key    string
		female bool
	}
	rows := []row{
		{"50", false},
		{"45", true},
		{"45", false},
		{"40", true},
	}
	wantOverall := []int{1, 2, 2, 4}
	wantWomen := []int{1, 2}
	gotOverall := []int{}
	gotWomen := []int{}
	for _, r := range rows {
		gotOverall = append(gotOverall, overall.next(d(r.key)))
		if r.female {
			gotWomen = append(gotWomen, women.next(d(r.key)))
		}
	}
	assert.Equal(t, wantOverall, gotOverall)
	assert.Equal(t, wantWomen, gotWomen)
}
