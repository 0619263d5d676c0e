// Package numeric provides the exactly-specified numeric primitives
// shared by every other component: ppm-tolerant mass comparison,
// ranked medians and quantiles, rank replacement, and a bilinear
// interpolator using the same clamp-to-edge convention as the 2-D
// rasteriser in package raster.
package numeric

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pslpcore/pslp/perr"
)

// PPMEqual reports whether a and b are within tolPPM parts per
// million of a, the reference mass. The comparison is intentionally
// asymmetric in its use of a as the reference: callers that need a
// symmetric test must check PPMEqual(a, b, tol) && PPMEqual(b, a, tol),
// which is exactly what Store.FindNear in package fragment does.
func PPMEqual(a, b, tolPPM float64) bool {
	return math.Abs(a-b) <= math.Abs(a)*tolPPM*1e-6
}

// Median returns the median of seq. If sorted is false, a sorted copy
// of seq is made first; seq itself is never mutated. For an
// even-length seq, the median is the mean of the two central elements.
func Median(seq []float64, sorted bool) (float64, error) {
	if len(seq) == 0 {
		return 0, perr.Wrap(perr.InvalidRange, "median of empty sequence")
	}
	s := seq
	if !sorted {
		s = sortedCopy(seq)
	}
	n := len(s)
	if n%2 == 1 {
		return s[n/2], nil
	}
	return (s[n/2-1] + s[n/2]) / 2, nil
}

// Quantile returns the q-th percentile (q in (0,100]) of seq, using
// index round(q*n/100) clamped to [1,n] into the 1-based sorted
// sequence.
func Quantile(seq []float64, q float64, sorted bool) (float64, error) {
	if len(seq) == 0 {
		return 0, perr.Wrap(perr.InvalidRange, "quantile of empty sequence")
	}
	if q <= 0 || q > 100 {
		return 0, perr.Wrapf(perr.InvalidValue, "quantile %g outside (0,100]", q)
	}
	s := seq
	if !sorted {
		s = sortedCopy(seq)
	}
	n := len(s)
	idx := int(math.Round(q * float64(n) / 100))
	if idx < 1 {
		idx = 1
	}
	if idx > n {
		idx = n
	}
	return s[idx-1], nil
}

// ComputeRank replaces each value in seq by its ascending-order rank
// (1-based). Tied values (within 1e-7*|v|) receive the mean of their
// rank range. Applying ComputeRank twice to its own output is
// idempotent: the second call is a no-op because ranks are already in
// strictly-increasing (or tied-equal) order.
func ComputeRank(seq []float64) ([]float64, error) {
	if len(seq) == 0 {
		return nil, perr.Wrap(perr.InvalidRange, "rank of empty sequence")
	}
	type indexed struct {
		v   float64
		idx int
	}
	items := make([]indexed, len(seq))
	for i, v := range seq {
		items[i] = indexed{v: v, idx: i}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].v < items[j].v })

	ranks := make([]float64, len(seq))
	i := 0
	for i < len(items) {
		j := i + 1
		for j < len(items) && withinTol(items[j].v, items[i].v) {
			j++
		}
		// items[i:j] are tied; assign the mean of ranks (i+1)..(j)
		meanRank := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			ranks[items[k].idx] = meanRank
		}
		i = j
	}
	return ranks, nil
}

func withinTol(a, b float64) bool {
	return math.Abs(a-b) <= 1e-7*math.Abs(b)
}

func sortedCopy(seq []float64) []float64 {
	s := make([]float64, len(seq))
	copy(s, seq)
	sort.Float64s(s)
	return s
}

// Grid is a rectangular (rows x cols) array of float64 samples indexed
// [row][col], where row corresponds to the y axis and col to x.
type Grid struct {
	Rows, Cols int
	// X and Y give the coordinate of each column/row: X has len==Cols,
	// Y has len==Rows, both strictly ascending.
	X, Y []float64
	// Values holds Rows*Cols samples in row-major order.
	Values []float64
}

func (g *Grid) at(row, col int) float64 {
	return g.Values[row*g.Cols+col]
}

// BilinearInterp performs separable bilinear interpolation of g at
// (x, y), clamping x and y to the grid's edges when they fall outside
// [X[0],X[last]] x [Y[0],Y[last]] (clamp-to-edge extrapolation, the
// same edge convention package raster's AddValue uses).
func BilinearInterp(g *Grid, x, y float64) (float64, error) {
	if g.Rows == 0 || g.Cols == 0 || len(g.X) != g.Cols || len(g.Y) != g.Rows {
		return 0, perr.Wrap(perr.InvalidRange, "bilinear interpolation over empty grid")
	}
	col0, col1, fx := clampLocate(g.X, x)
	row0, row1, fy := clampLocate(g.Y, y)

	v00 := g.at(row0, col0)
	v01 := g.at(row0, col1)
	v10 := g.at(row1, col0)
	v11 := g.at(row1, col1)

	top := v00*(1-fx) + v01*fx
	bottom := v10*(1-fx) + v11*fx
	return top*(1-fy) + bottom*fy, nil
}

// clampLocate finds the bracketing indices i0<=i1 in the ascending
// axis such that v lies in [axis[i0], axis[i1]], clamping to the edges
// when v is outside the axis range, and returns the fractional
// position f in [0,1] between them (f is 0 when i0==i1).
func clampLocate(axis []float64, v float64) (i0, i1 int, f float64) {
	n := len(axis)
	if v <= axis[0] {
		return 0, 0, 0
	}
	if v >= axis[n-1] {
		return n - 1, n - 1, 0
	}
	i1 = sort.SearchFloat64s(axis, v)
	if axis[i1] == v {
		return i1, i1, 0
	}
	i0 = i1 - 1
	f = (v - axis[i0]) / (axis[i1] - axis[i0])
	return i0, i1, f
}

// Correlation returns the Pearson correlation coefficient between x
// and y. No other package in this module calls it.
func Correlation(x, y []float64) (float64, error) {
	if len(x) == 0 || len(x) != len(y) {
		return 0, perr.Wrap(perr.InvalidRange, "correlation requires equal-length, non-empty inputs")
	}
	return stat.Correlation(x, y, nil), nil
}
