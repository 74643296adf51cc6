// Package scoring implements the KLBMatch score normalization core: the
// per-year rule tables, the reference curve store and the pure score
// calculator. Nothing in this package touches the database.
package scoring

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrCalibrationGap is returned when a rule table or reference curve has
// no row for the requested year. Callers must treat it as fatal: a
// silently substituted bracket would corrupt scores invisibly.
var ErrCalibrationGap = errors.New("scoring: no calibration for year")

// threshold is one step of an ordered (from-year, value) rule table.
type threshold[T any] struct {
	FromYear int
	Value    T
}

// thresholds resolves a value by "greatest FromYear <= year". Rows must
// be ordered ascending by FromYear.
type thresholds[T any] []threshold[T]

func (ts thresholds[T]) at(year int) (T, error) {
	var zero T
	if len(ts) == 0 || year < ts[0].FromYear {
		return zero, fmt.Errorf("%w %d", ErrCalibrationGap, year)
	}
	v := ts[0].Value
	for _, t := range ts[1:] {
		if year < t.FromYear {
			break
		}
		v = t.Value
	}
	return v, nil
}

// Rules carries every per-year competition parameter as an explicit
// threshold table. A Rules value is injected into the calculator and the
// engine; there is no ambient current-year state.
type Rules struct {
	minLengthForBonus  thresholds[int]
	bonusDenominator   thresholds[int]
	maxBonusPerRace    thresholds[decimal.Decimal]
	maxBonusPerYear    thresholds[decimal.Decimal]
	minLengthForScore  thresholds[int]
	maxLengthForScore  thresholds[int]
	nResultsClean      thresholds[int]
	nResultsBonus      thresholds[int]
	nRunnersTeamClean  thresholds[int]
	smallTeamLimit     thresholds[int]
	mediumTeamLimit    thresholds[int]

	// yearRanges maps a competition year to the calendar-year span its
	// races are drawn from. Only the 2020 season spans two years; this is
	// configuration data, not a pattern to extend.
	yearRanges map[int][2]int
}

// Default returns the calibrated production rule set, valid from 2017.
func Default() *Rules {
	d := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	return &Rules{
		minLengthForBonus: thresholds[int]{{2017, 4800}, {2020, 4000}},
		bonusDenominator:  thresholds[int]{{2017, 20000}},
		maxBonusPerRace:   thresholds[decimal.Decimal]{{2017, d("12")}},
		maxBonusPerYear:   thresholds[decimal.Decimal]{{2017, d("18")}, {2020, d("20")}},
		minLengthForScore: thresholds[int]{{2017, 9500}},
		maxLengthForScore: thresholds[int]{{2017, 300000}},
		nResultsClean:     thresholds[int]{{2017, 3}, {2022, 4}},
		nResultsBonus:     thresholds[int]{{2017, 20}},
		nRunnersTeamClean: thresholds[int]{{2017, 15}, {2022, 18}},
		smallTeamLimit:    thresholds[int]{{2017, 10}},
		mediumTeamLimit:   thresholds[int]{{2017, 25}},
		yearRanges: map[int][2]int{
			2020: {2020, 2021},
		},
	}
}

// MinLengthForBonus is the shortest race length in meters that earns any bonus.
func (r *Rules) MinLengthForBonus(year int) (int, error) { return r.minLengthForBonus.at(year) }

// BonusDenominator divides race length in meters to produce the raw bonus.
func (r *Rules) BonusDenominator(year int) (int, error) { return r.bonusDenominator.at(year) }

// MaxBonusPerRace caps the bonus earned by a single race.
func (r *Rules) MaxBonusPerRace(year int) (decimal.Decimal, error) {
	return r.maxBonusPerRace.at(year)
}

// MaxBonusPerYear caps a participant's summed bonus for the year.
func (r *Rules) MaxBonusPerYear(year int) (decimal.Decimal, error) {
	return r.maxBonusPerYear.at(year)
}

// MinLengthForScore and MaxLengthForScore bound the scoring-distance
// band; races outside it earn bonus only.
func (r *Rules) MinLengthForScore(year int) (int, error) { return r.minLengthForScore.at(year) }

func (r *Rules) MaxLengthForScore(year int) (int, error) { return r.maxLengthForScore.at(year) }

// NResultsForCleanScore is the best-N pool size for the sport score.
func (r *Rules) NResultsForCleanScore(year int) (int, error) { return r.nResultsClean.at(year) }

// NResultsForBonusScore is the best-N pool size for the bonus score.
func (r *Rules) NResultsForBonusScore(year int) (int, error) { return r.nResultsBonus.at(year) }

// NRunnersForTeamCleanScore is how many participants count toward a
// team's clean score.
func (r *Rules) NRunnersForTeamCleanScore(year int) (int, error) {
	return r.nRunnersTeamClean.at(year)
}

// SmallTeamLimit and MediumTeamLimit bound the size-category partitions
// used by team ranking.
func (r *Rules) SmallTeamLimit(year int) (int, error) { return r.smallTeamLimit.at(year) }

func (r *Rules) MediumTeamLimit(year int) (int, error) { return r.mediumTeamLimit.at(year) }

// MatchYearRange returns the calendar-year span [start, end] the given
// competition year draws races from.
func (r *Rules) MatchYearRange(year int) (start, end int) {
	if rng, ok := r.yearRanges[year]; ok {
		return rng[0], rng[1]
	}
	return year, year
}
