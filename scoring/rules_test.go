package scoring

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesThresholdLookup(t *testing.T) {
	r := Default()

	t.Run("Value At Exact Threshold", func(t *testing.T) {
		n, err := r.NResultsForCleanScore(2022)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("Value Between Thresholds", func(t *testing.T) {
		n, err := r.NResultsForCleanScore(2019)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("Value Past Last Threshold", func(t *testing.T) {
		n, err := r.NResultsForCleanScore(2024)
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		maxBonus, err := r.MaxBonusPerYear(2024)
		require.NoError(t, err)
		assert.True(t, maxBonus.Equal(decimal.NewFromInt(20)))
	})

	t.Run("Year Before Earliest Is An Error", func(t *testing.T) {
		_, err := r.NResultsForCleanScore(2015)
		require.ErrorIs(t, err, ErrCalibrationGap)
	})
}

func TestMatchYearRange(t *testing.T) {
	r := Default()

	start, end := r.MatchYearRange(2020)
	assert.Equal(t, 2020, start)
	assert.Equal(t, 2021, end)

	// Every other season is a single calendar year.
	for _, y := range []int{2017, 2019, 2021, 2023} {
		start, end = r.MatchYearRange(y)
		assert.Equal(t, y, start)
		assert.Equal(t, y, end)
	}
}

func TestScoringBand(t *testing.T) {
	r := Default()

	minLen, err := r.MinLengthForScore(2024)
	require.NoError(t, err)
	assert.Equal(t, 9500, minLen)

	maxLen, err := r.MaxLengthForScore(2024)
	require.NoError(t, err)
	assert.Equal(t, 300000, maxLen)
}
