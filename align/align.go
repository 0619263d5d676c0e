// Package align implements the identification-driven RT alignment
// core (§4.5, C5), ported near line-for-line from
// MapAlignmentAlgorithmIdentification.cpp's computeMedians_ and
// computeTransformations_.
package align

import (
	"math"
	"sort"

	"github.com/pslpcore/pslp/diag"
	"github.com/pslpcore/pslp/numeric"
)

// Molecule is the opaque string key identifying a molecule for
// alignment (§3's IDMolecule): a modified peptide sequence, optionally
// annotated with an adduct as "name+[adduct]".
type Molecule string

// Observation is one RT observation of a molecule in a single run,
// with an optional confidence score.
type Observation struct {
	Molecule Molecule
	RT       float64
	Score    float64
	HasScore bool
}

// ScoreDirection records whether a higher or lower Observation.Score
// is preferred.
type ScoreDirection uint8

const (
	HigherScoreBetter ScoreDirection = iota
	LowerScoreBetter
)

func (d ScoreDirection) better(a, b float64) bool {
	if d == LowerScoreBetter {
		return a < b
	}
	return a > b
}

// ModelKind tags a Transform's interpolation model.
type ModelKind uint8

const (
	ModelIdentity ModelKind = iota
	ModelLinear
	ModelPiecewiseLinear
)

// ControlPoint is one (x,y,weight) point of a Transform, sorted by x.
type ControlPoint struct {
	X, Y, Weight float64
}

// Transform maps a run's local RT to the common reference RT.
// Identity has no points and returns its input unchanged.
type Transform struct {
	Model  ModelKind
	Points []ControlPoint // sorted by X
}

// Apply maps rt through the transform: identity returns rt unchanged;
// piecewise-linear interpolates between bracketing control points and
// extrapolates monotonically (using the slope of the nearest segment)
// beyond the endpoints.
func (t Transform) Apply(rt float64) float64 {
	if t.Model == ModelIdentity || len(t.Points) == 0 {
		return rt
	}
	pts := t.Points
	if len(pts) == 1 {
		return rt + (pts[0].Y - pts[0].X)
	}
	if rt <= pts[0].X {
		slope := (pts[1].Y - pts[0].Y) / (pts[1].X - pts[0].X)
		return pts[0].Y + slope*(rt-pts[0].X)
	}
	last := len(pts) - 1
	if rt >= pts[last].X {
		slope := (pts[last].Y - pts[last-1].Y) / (pts[last].X - pts[last-1].X)
		return pts[last].Y + slope*(rt-pts[last].X)
	}
	i := sort.Search(len(pts), func(i int) bool { return pts[i].X >= rt })
	lo, hi := pts[i-1], pts[i]
	f := (rt - lo.X) / (hi.X - lo.X)
	return lo.Y + f*(hi.Y-lo.Y)
}

// Config parameters the alignment (§4.5 steps 5-7).
type Config struct {
	// MinRunOccur is the minimum number of runs (including a supplied
	// reference, if any) a molecule must occur in to be used.
	MinRunOccur int
	// MaxRTShift is either an absolute seconds value if >1, or a
	// fraction of the reference RT range if <=1. Zero disables the
	// filter (treated as +Inf).
	MaxRTShift float64
	// Reference, if non-nil, is used directly as the reference RT
	// table instead of computing one from the median of per-run
	// medians (§4.5 step 5, "caller supplied a reference run").
	Reference map[Molecule]float64
	Direction ScoreDirection
}

// Result is the per-run alignment outcome.
type Result struct {
	Transforms []Transform
	// NumDataPoints[i] is the number of control points kept for run i,
	// after outlier filtering.
	NumDataPoints []int
	// Outliers[i] is the number of points rejected in run i for
	// exceeding MaxRTShift.
	Outliers []int
}

// BuildTransforms runs the eight-step alignment algorithm described in
// spec.md §4.5 over N runs' observations, returning one Transform per
// run. Degenerate inputs degrade to identity transforms rather than
// failing; warnings go to logger.
func BuildTransforms(runs [][]Observation, cfg Config, logger diag.Logger) Result {
	if logger == nil {
		logger = diag.Discard
	}
	n := len(runs)

	minRunOccur := cfg.MinRunOccur
	runsIncludingRef := n
	if cfg.Reference != nil {
		runsIncludingRef++
	}
	if minRunOccur > runsIncludingRef {
		logger.Warnf("min_run_occur (%d) exceeds the number of runs incl. reference (%d); using %d",
			minRunOccur, runsIncludingRef, runsIncludingRef)
		minRunOccur = runsIncludingRef
	}
	if minRunOccur < 1 {
		minRunOccur = 1
	}

	// Step 1+2: per run, best-scoring (or first) observation per
	// molecule, collected into a molecule -> []RT list.
	perRunLists := make([]map[Molecule][]float64, n)
	for i, obs := range runs {
		perRunLists[i] = bestPerMolecule(obs, cfg.Direction)
	}

	// Step 3: per-run medians.
	medianPerRun := make([]map[Molecule]float64, n)
	for i, lst := range perRunLists {
		medianPerRun[i] = computeMedians(lst)
	}

	// Step 4: invert to molecule -> []per-run medians.
	medianPerSeq := make(map[Molecule][]float64)
	for _, mp := range medianPerRun {
		for _, mol := range sortedKeys(mp) {
			medianPerSeq[mol] = append(medianPerSeq[mol], mp[mol])
		}
	}

	// Step 5: reference choice.
	var reference map[Molecule]float64
	if cfg.Reference != nil {
		reference = make(map[Molecule]float64)
		for _, mol := range sortedKeysF(cfg.Reference) {
			if len(medianPerSeq[mol])+1 >= minRunOccur {
				reference[mol] = cfg.Reference[mol]
			}
		}
	} else {
		reference = make(map[Molecule]float64)
		for _, mol := range sortedKeysS(medianPerSeq) {
			meds := medianPerSeq[mol]
			if len(meds) >= minRunOccur {
				m, err := numeric.Median(meds, false)
				if err == nil {
					reference[mol] = m
				}
			}
		}
	}
	if len(reference) == 0 {
		logger.Warnf("reference RT table is empty after filtering")
	}

	// Step 6: resolve max_shift.
	maxShift := cfg.MaxRTShift
	if maxShift <= 1 {
		rtMin, rtMax := math.Inf(1), math.Inf(-1)
		for _, rt := range reference {
			if rt < rtMin {
				rtMin = rt
			}
			if rt > rtMax {
				rtMax = rt
			}
		}
		rtRange := rtMax - rtMin
		if math.IsInf(rtRange, 0) {
			rtRange = 0
		}
		maxShift *= rtRange
	}
	if maxShift == 0 {
		maxShift = math.MaxFloat64
	}

	// Step 7+8: build per-run transforms.
	res := Result{
		Transforms:    make([]Transform, n),
		NumDataPoints: make([]int, n),
		Outliers:      make([]int, n),
	}
	for i := 0; i < n; i++ {
		if len(reference) == 0 {
			res.Transforms[i] = Transform{Model: ModelIdentity}
			continue
		}
		var points []ControlPoint
		outliers := 0
		for _, mol := range sortedKeys(medianPerRun[i]) {
			localRT := medianPerRun[i][mol]
			refRT, ok := reference[mol]
			if !ok {
				continue
			}
			if math.Abs(localRT-refRT) <= maxShift {
				points = append(points, ControlPoint{X: localRT, Y: refRT, Weight: 1})
			} else {
				outliers++
			}
		}
		res.Outliers[i] = outliers
		res.NumDataPoints[i] = len(points)
		if len(points) == 0 {
			res.Transforms[i] = Transform{Model: ModelIdentity}
			continue
		}
		sort.Slice(points, func(a, b int) bool { return points[a].X < points[b].X })
		res.Transforms[i] = Transform{Model: ModelPiecewiseLinear, Points: points}
	}
	return res
}

// bestPerMolecule keeps one observation per molecule in this run
// (§4.5 step 1): the best-scoring one under direction, or the first
// one when no observation of that molecule carries a score. It
// returns the result as SeqToList, molecule -> []RT (§4.5 step 2).
func bestPerMolecule(obs []Observation, direction ScoreDirection) map[Molecule][]float64 {
	best := make(map[Molecule]Observation)
	for _, o := range obs {
		cur, seen := best[o.Molecule]
		if !seen || (o.HasScore && (!cur.HasScore || direction.better(o.Score, cur.Score))) {
			best[o.Molecule] = o
		}
	}
	out := make(map[Molecule][]float64, len(best))
	for mol, o := range best {
		out[mol] = []float64{o.RT}
	}
	return out
}

func computeMedians(lists map[Molecule][]float64) map[Molecule]float64 {
	out := make(map[Molecule]float64, len(lists))
	for _, mol := range sortedKeys(lists) {
		m, err := numeric.Median(lists[mol], false)
		if err == nil {
			out[mol] = m
		}
	}
	return out
}

// sortedKeys returns the molecule keys of m in lexicographic order,
// resolving the Open Question on median-tie determinism: every
// map-order-sensitive step in this package drains its map in sorted
// key order first.
func sortedKeys[V any](m map[Molecule]V) []Molecule {
	keys := make([]Molecule, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedKeysF(m map[Molecule]float64) []Molecule { return sortedKeys(m) }
func sortedKeysS(m map[Molecule][]float64) []Molecule { return sortedKeys(m) }
