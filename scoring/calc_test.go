package scoring

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klbrun/klbapi/models"
)

func newTestCalc() *Calc {
	return NewCalc(Default(), DefaultCurves())
}

func itra(v int) *int { return &v }

func TestComputeDeterminism(t *testing.T) {
	c := newTestCalc()

	inputs := []Input{
		{Year: 2024, BirthYear: 1990, Gender: models.Male, LengthM: 10000, ElapsedCs: 300000},
		{Year: 2021, BirthYear: 1975, Gender: models.Female, LengthM: 42195, ElapsedCs: 1250000},
		{Year: 2018, BirthYear: 1960, Gender: models.Male, LengthM: 21098, ElapsedCs: 650057},
		{Year: 2022, BirthYear: 1995, Gender: models.Female, LengthM: 160000, ElapsedCs: 7200000, ItraScore: itra(80)},
	}
	for _, in := range inputs {
		a, err := c.Compute(in)
		require.NoError(t, err)
		b, err := c.Compute(in)
		require.NoError(t, err)

		assert.Equal(t, a.AgeEquivCs, b.AgeEquivCs)
		assert.True(t, a.Score.Equal(b.Score), "score %s vs %s", a.Score, b.Score)
		assert.True(t, a.Bonus.Equal(b.Bonus))
	}
}

func TestBonusMonotonicity(t *testing.T) {
	c := newTestCalc()

	prev := decimal.NewFromInt(-1)
	maxBonus, err := c.Rules.MaxBonusPerRace(2024)
	require.NoError(t, err)

	for _, length := range []int{3000, 4000, 5000, 10000, 42195, 100000, 200000, 240000, 300000} {
		out, err := c.Compute(Input{
			Year: 2024, BirthYear: 1990, Gender: models.Male,
			LengthM: length, ElapsedCs: int64(length) * 40,
		})
		require.NoError(t, err)
		assert.True(t, out.Bonus.GreaterThanOrEqual(prev), "bonus shrank at %d m", length)
		assert.True(t, out.Bonus.LessThanOrEqual(maxBonus))
		prev = out.Bonus
	}

	// Saturation: past the cap the bonus stops growing.
	long, err := c.Compute(Input{Year: 2024, BirthYear: 1990, Gender: models.Male, LengthM: 250000, ElapsedCs: 9000000})
	require.NoError(t, err)
	longer, err := c.Compute(Input{Year: 2024, BirthYear: 1990, Gender: models.Male, LengthM: 290000, ElapsedCs: 10000000})
	require.NoError(t, err)
	assert.True(t, long.Bonus.Equal(maxBonus))
	assert.True(t, longer.Bonus.Equal(maxBonus))
}

func TestBonusBelowMinimumLength(t *testing.T) {
	c := newTestCalc()

	out, err := c.Compute(Input{Year: 2024, BirthYear: 1990, Gender: models.Male, LengthM: 3000, ElapsedCs: 60000})
	require.NoError(t, err)
	assert.True(t, out.Bonus.IsZero())
}

func TestOutOfBandZeroing(t *testing.T) {
	c := newTestCalc()

	t.Run("Short Race Keeps Raw Time And Bonus", func(t *testing.T) {
		// 5 km is under the 9.5 km scoring minimum.
		out, err := c.Compute(Input{Year: 2024, BirthYear: 1990, Gender: models.Male, LengthM: 5000, ElapsedCs: 90000})
		require.NoError(t, err)
		assert.True(t, out.Score.IsZero())
		assert.Equal(t, int64(90000), out.AgeEquivCs)
		assert.True(t, out.Bonus.Equal(decimal.RequireFromString("0.25")), "got %s", out.Bonus)
	})

	t.Run("External Rating Survives Zeroing", func(t *testing.T) {
		out, err := c.Compute(Input{
			Year: 2024, BirthYear: 1990, Gender: models.Male,
			LengthM: 5000, ElapsedCs: 90000, ItraScore: itra(100),
		})
		require.NoError(t, err)
		assert.True(t, out.Score.Equal(decimal.NewFromInt(50)), "got %s", out.Score)
	})

	t.Run("External Rating Ignored Before Cutoff Year", func(t *testing.T) {
		out, err := c.Compute(Input{
			Year: 2020, BirthYear: 1990, Gender: models.Male,
			LengthM: 5000, ElapsedCs: 90000, ItraScore: itra(100),
		})
		require.NoError(t, err)
		assert.True(t, out.Score.IsZero())
	})
}

func TestLegacyWholeSecondRounding(t *testing.T) {
	c := newTestCalc()

	base := Input{Year: 2018, BirthYear: 1990, Gender: models.Male, LengthM: 10000, ElapsedCs: 300001}
	rounded := base
	rounded.ElapsedCs = 300100

	a, err := c.Compute(base)
	require.NoError(t, err)
	b, err := c.Compute(rounded)
	require.NoError(t, err)
	assert.Equal(t, a.AgeEquivCs, b.AgeEquivCs, "pre-2019 times should round up to whole seconds")
	assert.True(t, a.Score.Equal(b.Score))

	// From 2019 on the centiseconds count.
	modern := Input{Year: 2019, BirthYear: 1991, Gender: models.Male, LengthM: 10000, ElapsedCs: 300001}
	modernRounded := modern
	modernRounded.ElapsedCs = 300100
	a, err = c.Compute(modern)
	require.NoError(t, err)
	b, err = c.Compute(modernRounded)
	require.NoError(t, err)
	assert.NotEqual(t, a.AgeEquivCs, b.AgeEquivCs)
}

func TestNewGenerationScoreAtReferenceTime(t *testing.T) {
	c := newTestCalc()

	// A baseline-age runner exactly on the world-class marathon curve.
	out, err := c.Compute(Input{
		Year: 2022, BirthYear: 1994, Gender: models.Male,
		LengthM: 42195, ElapsedCs: 726900,
	})
	require.NoError(t, err)
	want := math.Pow(3, 2+fK-fE)
	assert.InDelta(t, want, out.Score.InexactFloat64(), 1e-3)
}

func TestOldGenerationThresholds(t *testing.T) {
	c := newTestCalc()

	t.Run("Master Threshold Scores Nine", func(t *testing.T) {
		out, err := c.Compute(Input{
			Year: 2021, BirthYear: 1993, Gender: models.Male,
			LengthM: 42195, ElapsedCs: 911300,
		})
		require.NoError(t, err)
		assert.InDelta(t, 9.0, out.Score.InexactFloat64(), 1e-3)
	})

	t.Run("Third Class Threshold Scores Three", func(t *testing.T) {
		out, err := c.Compute(Input{
			Year: 2021, BirthYear: 1993, Gender: models.Male,
			LengthM: 42195, ElapsedCs: 1421600,
		})
		require.NoError(t, err)
		assert.InDelta(t, 3.0, out.Score.InexactFloat64(), 1e-3)
	})
}

func TestFutureYearClampsToLatestCalibration(t *testing.T) {
	c := newTestCalc()

	// Same baseline age, same performance: a 2025 race must score against
	// the 2022 curves.
	future, err := c.Compute(Input{Year: 2025, BirthYear: 1997, Gender: models.Male, LengthM: 10000, ElapsedCs: 250000})
	require.NoError(t, err)
	latest, err := c.Compute(Input{Year: 2022, BirthYear: 1994, Gender: models.Male, LengthM: 10000, ElapsedCs: 250000})
	require.NoError(t, err)

	assert.True(t, future.Score.Equal(latest.Score), "%s vs %s", future.Score, latest.Score)
}

func TestUncalibratedYearFails(t *testing.T) {
	c := newTestCalc()

	_, err := c.Compute(Input{Year: 2015, BirthYear: 1990, Gender: models.Male, LengthM: 10000, ElapsedCs: 300000})
	require.ErrorIs(t, err, ErrCalibrationGap)
}

func TestFixedTimeRaceScores(t *testing.T) {
	c := newTestCalc()

	// 24-hour race: length is distance covered, elapsed is the fixed day.
	out, err := c.Compute(Input{
		Year: 2022, BirthYear: 1985, Gender: models.Male,
		LengthM: 220000, ElapsedCs: 24 * 3600 * 100,
	})
	require.NoError(t, err)
	assert.True(t, out.Score.GreaterThan(decimal.Zero))
	// Bonus saturates for a 220 km effort.
	maxBonus, err := c.Rules.MaxBonusPerRace(2022)
	require.NoError(t, err)
	assert.True(t, out.Bonus.Equal(maxBonus))
}
