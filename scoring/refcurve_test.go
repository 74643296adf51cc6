package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klbrun/klbapi/models"
)

func TestAgeCoefficientBaseline(t *testing.T) {
	s := DefaultCurves()

	// The 20–30 band is the calibration baseline for every distance.
	for _, age := range []int{20, 24, 27, 30} {
		for _, dist := range []int{5000, 10000, 42195} {
			c, err := s.AgeCoefficient(2022, models.Male, age, dist)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, c, 1e-9, "age %d dist %d", age, dist)
		}
	}
}

func TestAgeCoefficientInterpolation(t *testing.T) {
	s := DefaultCurves()

	t.Run("Older Runners Get Smaller Coefficients", func(t *testing.T) {
		prev := 1.1
		for _, age := range []int{30, 40, 50, 60, 70, 80, 90} {
			c, err := s.AgeCoefficient(2022, models.Male, age, 10000)
			require.NoError(t, err)
			assert.Less(t, c, prev, "age %d", age)
			prev = c
		}
	})

	t.Run("Between Grid Rows", func(t *testing.T) {
		c40, err := s.AgeCoefficient(2022, models.Female, 40, 10000)
		require.NoError(t, err)
		c45, err := s.AgeCoefficient(2022, models.Female, 45, 10000)
		require.NoError(t, err)
		c42, err := s.AgeCoefficient(2022, models.Female, 42, 10000)
		require.NoError(t, err)
		assert.Greater(t, c42, c45)
		assert.Less(t, c42, c40)
	})

	t.Run("Clamps Outside Grid", func(t *testing.T) {
		c95, err := s.AgeCoefficient(2022, models.Male, 95, 10000)
		require.NoError(t, err)
		c90, err := s.AgeCoefficient(2022, models.Male, 90, 10000)
		require.NoError(t, err)
		assert.Equal(t, c90, c95)
	})
}

func TestReferenceTime(t *testing.T) {
	s := DefaultCurves()

	t.Run("Known Point", func(t *testing.T) {
		cs, err := s.ReferenceTime(2022, models.Male, DistMarathon)
		require.NoError(t, err)
		assert.Equal(t, int64(726900), cs)
	})

	t.Run("24 Hour Canonical Is A Fixed Duration", func(t *testing.T) {
		cs, err := s.ReferenceTime(2022, models.Female, Dist24H)
		require.NoError(t, err)
		assert.Equal(t, int64(24*3600*100), cs)
	})

	t.Run("Missing Year Fails Loudly", func(t *testing.T) {
		_, err := s.ReferenceTime(2031, models.Male, Dist5K)
		require.ErrorIs(t, err, ErrCalibrationGap)

		_, err = s.AgeCoefficient(2031, models.Male, 40, 10000)
		require.ErrorIs(t, err, ErrCalibrationGap)
	})
}

func TestLatestCalibratedYear(t *testing.T) {
	assert.Equal(t, 2022, DefaultCurves().LatestCalibratedYear())
}

func TestBracketSelection(t *testing.T) {
	cases := []struct {
		length int
		want   [3]Canonical
	}{
		{5000, [3]Canonical{Dist5K, Dist10K, DistHalf}},
		{10000, [3]Canonical{Dist5K, Dist10K, DistHalf}},
		{21098, [3]Canonical{Dist10K, DistHalf, DistMarathon}},
		{42195, [3]Canonical{Dist10K, DistHalf, DistMarathon}},
		{80000, [3]Canonical{DistHalf, DistMarathon, Dist100K}},
		{160000, [3]Canonical{DistMarathon, Dist100K, Dist24H}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, bracketFor(tc.length), "length %d", tc.length)
	}
}
