package scoring

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/klbrun/klbapi/models"
)

const (
	// newFormulaFromYear switches the sport-score formula generation.
	newFormulaFromYear = 2022
	// legacyRoundBeforeYear: earlier years round the raw time up to whole
	// seconds before age normalization. Kept for historical-year
	// reproducibility.
	legacyRoundBeforeYear = 2019
	// itraFromYear is the first year external trail ratings blend into the
	// sport score.
	itraFromYear = 2021

	// New-generation formula constants: score = 3^(2 + fK − fE·(t/ref)).
	fK = 3.33
	fE = 3.0
)

// scorePrecision quantizes scores to the smallest tracked unit (0.001).
const scorePrecision = 3

// Input describes one performance to score. For fixed-time races LengthM
// is the distance covered and ElapsedCs the fixed duration.
type Input struct {
	Year      int
	BirthYear int
	Gender    models.Gender
	LengthM   int
	ElapsedCs int64
	// ItraScore is the external trail rating, when present.
	ItraScore *int
}

// Output is the scored performance. Deterministic: identical inputs
// always produce bit-identical outputs.
type Output struct {
	AgeEquivCs int64
	Score      decimal.Decimal
	Bonus      decimal.Decimal
}

// Calc is the pure score calculator. It owns no state beyond the
// injected rule tables and curve store.
type Calc struct {
	Rules  *Rules
	Curves *CurveStore
}

// NewCalc wires a calculator from rule tables and reference curves.
func NewCalc(rules *Rules, curves *CurveStore) *Calc {
	return &Calc{Rules: rules, Curves: curves}
}

// Compute normalizes one performance into (age-equivalent time, sport
// score, bonus score).
func (c *Calc) Compute(in Input) (Output, error) {
	bonus, err := c.bonus(in.Year, in.LengthM)
	if err != nil {
		return Output{}, err
	}

	minLen, err := c.Rules.MinLengthForScore(in.Year)
	if err != nil {
		return Output{}, err
	}
	maxLen, err := c.Rules.MaxLengthForScore(in.Year)
	if err != nil {
		return Output{}, err
	}

	// Out of the scoring-distance band the raw time is kept for
	// bookkeeping and the curve score is zero; the external rating
	// contribution is added regardless.
	if in.LengthM < minLen || in.LengthM > maxLen {
		return Output{
			AgeEquivCs: in.ElapsedCs,
			Score:      c.itraPart(in).Round(scorePrecision),
			Bonus:      bonus,
		}, nil
	}

	ageEquiv, err := c.ageEquivalent(in)
	if err != nil {
		return Output{}, err
	}

	// Years past the latest calibration are scored against the latest
	// curves. Approximation pending new calibration data.
	curveYear := in.Year
	if curveYear > c.Curves.LatestCalibratedYear() {
		curveYear = c.Curves.LatestCalibratedYear()
	}

	var score float64
	if in.Year >= newFormulaFromYear {
		score, err = c.newGenScore(curveYear, in.Gender, in.LengthM, ageEquiv)
	} else {
		score, err = c.oldGenScore(curveYear, in.Gender, in.LengthM, ageEquiv)
	}
	if err != nil {
		return Output{}, err
	}

	total := decimal.NewFromFloat(score).Add(c.itraPart(in)).Round(scorePrecision)
	return Output{AgeEquivCs: ageEquiv, Score: total, Bonus: bonus}, nil
}

func (c *Calc) bonus(year, lengthM int) (decimal.Decimal, error) {
	minLen, err := c.Rules.MinLengthForBonus(year)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if lengthM < minLen {
		return decimal.Zero.Round(scorePrecision), nil
	}
	den, err := c.Rules.BonusDenominator(year)
	if err != nil {
		return decimal.Decimal{}, err
	}
	maxBonus, err := c.Rules.MaxBonusPerRace(year)
	if err != nil {
		return decimal.Decimal{}, err
	}
	b := decimal.NewFromInt(int64(lengthM)).
		DivRound(decimal.NewFromInt(int64(den)), scorePrecision)
	if b.GreaterThan(maxBonus) {
		b = maxBonus
	}
	return b.Round(scorePrecision), nil
}

func (c *Calc) ageEquivalent(in Input) (int64, error) {
	t := in.ElapsedCs
	if in.Year < legacyRoundBeforeYear {
		// Round up to whole seconds, as the original tables assumed.
		t = ((t + 99) / 100) * 100
	}

	age := in.Year - in.BirthYear
	curveYear := in.Year
	if curveYear > c.Curves.LatestCalibratedYear() {
		curveYear = c.Curves.LatestCalibratedYear()
	}
	coef, err := c.Curves.AgeCoefficient(curveYear, in.Gender, age, in.LengthM)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(float64(t) * coef)), nil
}

// newGenScore applies the 2022+ formula against the world-class curve.
func (c *Calc) newGenScore(year int, gender models.Gender, lengthM int, ageEquivCs int64) (float64, error) {
	cal, err := c.Curves.calibration(year, gender)
	if err != nil {
		return 0, err
	}
	ref := fitQuadratic(cal.World, lengthM)
	if ref <= 0 {
		return 0, fmt.Errorf("scoring: non-positive reference time for length %d", lengthM)
	}
	return math.Pow(3, 2+fK-fE*(float64(ageEquivCs)/ref)), nil
}

// oldGenScore applies the pre-2022 formula against the master and
// third-class threshold curves.
func (c *Calc) oldGenScore(year int, gender models.Gender, lengthM int, ageEquivCs int64) (float64, error) {
	cal, err := c.Curves.calibration(year, gender)
	if err != nil {
		return 0, err
	}
	if cal.Master == nil || cal.Third == nil {
		return 0, fmt.Errorf("%w %d (no master/third-class thresholds)", ErrCalibrationGap, year)
	}
	master := fitQuadratic(*cal.Master, lengthM)
	third := fitQuadratic(*cal.Third, lengthM)
	if third <= master {
		return 0, fmt.Errorf("scoring: degenerate threshold pair for length %d year %d", lengthM, year)
	}
	return math.Pow(3, 2+(master-float64(ageEquivCs))/(third-master)), nil
}

func (c *Calc) itraPart(in Input) decimal.Decimal {
	if in.ItraScore == nil || in.Year < itraFromYear {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(*in.ItraScore)).DivRound(decimal.NewFromInt(2), scorePrecision)
}

// fitQuadratic fits f(x) = a·x² + b·x + c through the three canonical
// points bracketing lengthM and evaluates f at lengthM. Closed form, no
// iteration.
func fitQuadratic(r refTimes, lengthM int) float64 {
	br := bracketFor(lengthM)
	x1, t1 := point(r, br[0])
	x2, t2 := point(r, br[1])
	x3, t3 := point(r, br[2])
	y1, y2, y3 := float64(t1), float64(t2), float64(t3)

	a := ((y3-y1)/(x3-x1) - (y2-y1)/(x2-x1)) / (x3 - x2)
	b := (y2-y1)/(x2-x1) - a*(x1+x2)
	cc := y1 - a*x1*x1 - b*x1

	x := float64(lengthM)
	return a*x*x + b*x + cc
}
