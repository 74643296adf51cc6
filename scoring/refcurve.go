package scoring

import (
	"fmt"

	"github.com/klbrun/klbapi/models"
)

// Canonical identifies one of the reference distances the world-class
// curves are calibrated at.
type Canonical int

const (
	Dist5K Canonical = iota
	Dist10K
	DistHalf
	DistMarathon
	Dist100K
	Dist24H
)

const (
	meters5K       = 5000
	meters10K      = 10000
	metersHalf     = 21098
	metersMarathon = 42195
	meters100K     = 100000

	// cs24Hours is the elapsed time of the 24-hour reference point.
	cs24Hours int64 = 24 * 3600 * 100
)

// refTimes is one calibrated curve: elapsed centiseconds at the five
// fixed-distance canonical points plus the 24-hour reference expressed as
// distance covered in meters.
type refTimes struct {
	T5K, T10K, THalf, TMarathon, T100K int64
	D24H                               int
}

// calibration is the full curve set for one (year, gender). Master and
// Third are only present for old-formula-generation years (<= 2021).
type calibration struct {
	World         refTimes
	Master, Third *refTimes
}

// CurveStore provides age coefficients and reference times per
// (year, gender). Pure lookup and interpolation; fails loudly on any
// year it has no calibration for.
type CurveStore struct {
	byYear map[int]map[models.Gender]calibration
	ages   map[models.Gender]ageGrid
	latest int
}

// LatestCalibratedYear is the newest year the store has curves for.
// Callers clamp future years to it before lookups.
func (s *CurveStore) LatestCalibratedYear() int { return s.latest }

func (s *CurveStore) calibration(year int, gender models.Gender) (calibration, error) {
	g, ok := s.byYear[year]
	if !ok {
		return calibration{}, fmt.Errorf("%w %d", ErrCalibrationGap, year)
	}
	c, ok := g[gender]
	if !ok {
		return calibration{}, fmt.Errorf("%w %d (%s)", ErrCalibrationGap, year, gender)
	}
	return c, nil
}

// ReferenceTime returns the world-class elapsed time in centiseconds at
// the given canonical distance. The 24-hour canonical always returns
// 8,640,000 cs; its calibrated value is the distance, see point.
func (s *CurveStore) ReferenceTime(year int, gender models.Gender, c Canonical) (int64, error) {
	cal, err := s.calibration(year, gender)
	if err != nil {
		return 0, err
	}
	_, t := point(cal.World, c)
	return t, nil
}

// point returns a canonical reference as an (meters, centiseconds) pair.
func point(r refTimes, c Canonical) (float64, int64) {
	switch c {
	case Dist5K:
		return meters5K, r.T5K
	case Dist10K:
		return meters10K, r.T10K
	case DistHalf:
		return metersHalf, r.THalf
	case DistMarathon:
		return metersMarathon, r.TMarathon
	case Dist100K:
		return meters100K, r.T100K
	default:
		return float64(r.D24H), cs24Hours
	}
}

// bracketFor picks the canonical triple surrounding a race length.
func bracketFor(lengthM int) [3]Canonical {
	switch {
	case lengthM <= meters10K:
		return [3]Canonical{Dist5K, Dist10K, DistHalf}
	case lengthM <= metersMarathon:
		return [3]Canonical{Dist10K, DistHalf, DistMarathon}
	case lengthM <= meters100K:
		return [3]Canonical{DistHalf, DistMarathon, Dist100K}
	default:
		return [3]Canonical{DistMarathon, Dist100K, Dist24H}
	}
}

// AgeCoefficient returns the multiplier that converts an elapsed time
// into its 20–30-years-old equivalent, by bilinear interpolation over the
// calibrated age × distance grid.
func (s *CurveStore) AgeCoefficient(year int, gender models.Gender, age, lengthM int) (float64, error) {
	if _, ok := s.byYear[year]; !ok {
		return 0, fmt.Errorf("%w %d", ErrCalibrationGap, year)
	}
	grid, ok := s.ages[gender]
	if !ok {
		return 0, fmt.Errorf("%w %d (%s)", ErrCalibrationGap, year, gender)
	}
	return grid.coefficient(age, lengthM), nil
}

// ageGrid is a coefficient matrix over fixed age rows and distance
// columns. Rows 20 and 30 pin the baseline band at 1.0.
type ageGrid struct {
	ages  []int
	dists []int
	coef  [][]float64
}

func (g ageGrid) coefficient(age, lengthM int) float64 {
	ai, af := gridPos(g.ages, age)
	di, df := gridPos(g.dists, lengthM)
	c00 := g.coef[ai][di]
	c01 := g.coef[ai][di+1]
	c10 := g.coef[ai+1][di]
	c11 := g.coef[ai+1][di+1]
	top := c00 + (c01-c00)*df
	bot := c10 + (c11-c10)*df
	return top + (bot-top)*af
}

// gridPos locates v between axis[i] and axis[i+1] and returns the
// interpolation fraction, clamping outside the axis.
func gridPos(axis []int, v int) (int, float64) {
	if v <= axis[0] {
		return 0, 0
	}
	last := len(axis) - 1
	if v >= axis[last] {
		return last - 1, 1
	}
	for i := 0; i < last; i++ {
		if v < axis[i+1] {
			return i, float64(v-axis[i]) / float64(axis[i+1]-axis[i])
		}
	}
	return last - 1, 1
}

// DefaultCurves returns the production calibration, years 2017–2022.
func DefaultCurves() *CurveStore {
	world := map[int]map[models.Gender]refTimes{
		2017: {
			models.Male:   {78600, 161500, 353800, 735500, 2225000, 288400},
			models.Female: {86400, 178800, 384600, 816000, 2390000, 250000},
		},
		2018: {
			models.Male:   {78200, 161000, 352000, 734000, 2220000, 290000},
			models.Female: {86000, 178000, 383000, 813500, 2385000, 252500},
		},
		2019: {
			models.Male:   {77800, 160000, 350000, 731500, 2215000, 295000},
			models.Female: {85600, 177200, 381500, 811000, 2378000, 256000},
		},
		2020: {
			models.Male:   {77600, 159500, 348000, 730000, 2210000, 300100},
			models.Female: {85300, 176500, 380000, 809000, 2370000, 260000},
		},
		2021: {
			models.Male:   {77300, 158900, 346000, 729000, 2200000, 303500},
			models.Female: {85000, 176000, 378500, 807000, 2365000, 264000},
		},
		2022: {
			models.Male:   {76900, 158400, 345100, 726900, 2193500, 309399},
			models.Female: {84600, 175400, 377200, 804400, 2359100, 270116},
		},
	}

	// Master / third-class thresholds drive the pre-2022 score formula.
	master := map[int]map[models.Gender]refTimes{
		2017: {
			models.Male:   {98300, 201900, 442300, 919400, 2781000, 231000},
			models.Female: {108000, 223500, 480800, 1020000, 2988000, 200000},
		},
		2018: {
			models.Male:   {97800, 201300, 440000, 917500, 2775000, 232000},
			models.Female: {107500, 222500, 478800, 1016900, 2981000, 202000},
		},
		2019: {
			models.Male:   {97300, 200000, 437500, 914400, 2769000, 236000},
			models.Female: {107000, 221500, 476900, 1013800, 2973000, 205000},
		},
		2020: {
			models.Male:   {97000, 199400, 435000, 912500, 2763000, 240100},
			models.Female: {106600, 220600, 475000, 1011300, 2963000, 208000},
		},
		2021: {
			models.Male:   {96600, 198600, 432500, 911300, 2750000, 242800},
			models.Female: {106300, 220000, 473100, 1008800, 2956000, 211200},
		},
	}
	third := map[int]map[models.Gender]refTimes{
		2017: {
			models.Male:   {153300, 314900, 689900, 1434200, 4339000, 148100},
			models.Female: {168500, 348700, 750000, 1591200, 4661000, 128200},
		},
		2018: {
			models.Male:   {152500, 314000, 686400, 1431300, 4329000, 148800},
			models.Female: {167700, 347100, 746900, 1586300, 4651000, 129500},
		},
		2019: {
			models.Male:   {151700, 312000, 682500, 1426400, 4319000, 151300},
			models.Female: {166900, 345500, 743900, 1581500, 4637000, 131500},
		},
		2020: {
			models.Male:   {151300, 311000, 678600, 1423500, 4310000, 153900},
			models.Female: {166300, 344200, 741000, 1577600, 4622000, 133300},
		},
		2021: {
			models.Male:   {150700, 309900, 674700, 1421600, 4290000, 155700},
			models.Female: {165800, 343200, 738100, 1573700, 4612000, 135400},
		},
	}

	byYear := make(map[int]map[models.Gender]calibration, len(world))
	latest := 0
	for year, genders := range world {
		byYear[year] = make(map[models.Gender]calibration, len(genders))
		for g, w := range genders {
			cal := calibration{World: w}
			if m, ok := master[year]; ok {
				mv := m[g]
				tv := third[year][g]
				cal.Master, cal.Third = &mv, &tv
			}
			byYear[year][g] = cal
		}
		if year > latest {
			latest = year
		}
	}

	return &CurveStore{
		byYear: byYear,
		latest: latest,
		ages: map[models.Gender]ageGrid{
			models.Male: {
				ages:  gridAges,
				dists: gridDists,
				coef: [][]float64{
					{0.880, 0.872, 0.860, 0.845, 0.820},
					{0.952, 0.946, 0.938, 0.926, 0.905},
					{1.000, 1.000, 1.000, 1.000, 1.000},
					{1.000, 1.000, 1.000, 1.000, 1.000},
					{0.978, 0.976, 0.973, 0.969, 0.962},
					{0.946, 0.943, 0.939, 0.933, 0.923},
					{0.911, 0.907, 0.902, 0.895, 0.883},
					{0.874, 0.870, 0.864, 0.856, 0.842},
					{0.835, 0.830, 0.823, 0.814, 0.799},
					{0.794, 0.788, 0.781, 0.771, 0.754},
					{0.750, 0.744, 0.736, 0.725, 0.707},
					{0.703, 0.696, 0.687, 0.676, 0.656},
					{0.650, 0.642, 0.633, 0.621, 0.600},
					{0.589, 0.581, 0.571, 0.558, 0.536},
					{0.516, 0.507, 0.497, 0.484, 0.461},
					{0.430, 0.421, 0.410, 0.397, 0.374},
				},
			},
			models.Female: {
				ages:  gridAges,
				dists: gridDists,
				coef: [][]float64{
					{0.872, 0.864, 0.851, 0.836, 0.810},
					{0.947, 0.940, 0.931, 0.918, 0.896},
					{1.000, 1.000, 1.000, 1.000, 1.000},
					{1.000, 1.000, 1.000, 1.000, 1.000},
					{0.975, 0.972, 0.969, 0.964, 0.956},
					{0.941, 0.937, 0.932, 0.925, 0.914},
					{0.903, 0.898, 0.892, 0.884, 0.870},
					{0.862, 0.857, 0.850, 0.841, 0.825},
					{0.819, 0.813, 0.805, 0.795, 0.778},
					{0.773, 0.766, 0.758, 0.747, 0.728},
					{0.724, 0.717, 0.708, 0.696, 0.676},
					{0.672, 0.664, 0.654, 0.642, 0.620},
					{0.613, 0.605, 0.595, 0.582, 0.559},
					{0.545, 0.536, 0.526, 0.512, 0.489},
					{0.466, 0.457, 0.446, 0.432, 0.409},
					{0.375, 0.366, 0.355, 0.341, 0.318},
				},
			},
		},
	}
}

var (
	gridAges  = []int{10, 15, 20, 30, 35, 40, 45, 50, 55, 60, 65, 70, 75, 80, 85, 90}
	gridDists = []int{meters5K, meters10K, metersHalf, metersMarathon, meters100K}
)
