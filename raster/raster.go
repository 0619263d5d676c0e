// Package raster rasterises an MS1 peak stream onto a 2-D grid with
// bilinear splatting, then maps intensities to colour (§4.11, C11).
// The numerical mapping is the contract this package guarantees; how a
// caller encodes the resulting Grid as an image is out of scope.
package raster

import (
	"math"

	"github.com/pslpcore/pslp/perr"
)

// Grid is a Rows x Cols accumulator spanning [MinX,MaxX] x [MinY,MaxY],
// built by repeated AddValue bilinear splats. Unlike numeric.Grid
// (which samples a pre-filled array), Grid here starts at zero and is
// written to, sharing only the clamp-to-edge axis-bracket convention
// numeric.BilinearInterp uses for its read-side counterpart.
type Grid struct {
	Rows, Cols           int
	MinX, MaxX           float64
	MinY, MaxY           float64
	Values               []float64
}

// NewGrid allocates a zeroed Rows x Cols grid over the given domain.
// Swap (minX,maxX) with (minY,maxY) by the caller to transpose the
// rt/mz axis assignment, per §4.11's "or transposed" note.
func NewGrid(rows, cols int, minX, maxX, minY, maxY float64) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, perr.Wrap(perr.InvalidValue, "raster grid requires positive rows and cols")
	}
	return &Grid{
		Rows: rows, Cols: cols,
		MinX: minX, MaxX: maxX,
		MinY: minY, MaxY: maxY,
		Values: make([]float64, rows*cols),
	}, nil
}

func (g *Grid) at(row, col int) float64    { return g.Values[row*g.Cols+col] }
func (g *Grid) addAt(row, col int, v float64) { g.Values[row*g.Cols+col] += v }

// AddValue splats intensity at (x, y) onto the four surrounding cells
// using separable bilinear weights, clamping to the grid edges when
// (x, y) falls outside the domain.
func (g *Grid) AddValue(x, y, intensity float64) {
	col0, col1, fx := clampLocate(g.Cols, g.MinX, g.MaxX, x)
	row0, row1, fy := clampLocate(g.Rows, g.MinY, g.MaxY, y)

	g.addAt(row0, col0, intensity*(1-fx)*(1-fy))
	g.addAt(row0, col1, intensity*fx*(1-fy))
	g.addAt(row1, col0, intensity*(1-fx)*fy)
	g.addAt(row1, col1, intensity*fx*fy)
}

// clampLocate brackets v within n linearly spaced samples over
// [lo, hi], clamping outside values to the nearest edge cell (f=0),
// matching numeric.clampLocate's edge convention.
func clampLocate(n int, lo, hi, v float64) (i0, i1 int, f float64) {
	if n == 1 || hi == lo {
		return 0, 0, 0
	}
	step := (hi - lo) / float64(n-1)
	pos := (v - lo) / step
	if pos <= 0 {
		return 0, 0, 0
	}
	if pos >= float64(n-1) {
		return n - 1, n - 1, 0
	}
	i0 = int(math.Floor(pos))
	i1 = i0 + 1
	f = pos - float64(i0)
	return i0, i1, f
}

// Max returns the largest accumulated value in g.
func (g *Grid) Max() float64 {
	m := 0.0
	for _, v := range g.Values {
		if v > m {
			m = v
		}
	}
	return m
}

// Transform is an intensity-to-scalar remapping applied before
// colour-gradient lookup.
type Transform uint8

const (
	Raw Transform = iota
	Percentage
	Snapped
	Log
)

// snapTarget is the value the grid's maximum is rescaled to under
// Snapped, matching original_source/src/topp/ImageCreator.cpp's
// 24-bit intensity ceiling.
const snapTarget = 1 << 24

// Apply maps every value in g.Values through t, returning a new slice
// the same shape as g.Values (g itself is left unmodified).
func (g *Grid) Apply(t Transform) []float64 {
	out := make([]float64, len(g.Values))
	switch t {
	case Raw:
		copy(out, g.Values)
	case Percentage:
		max := g.Max()
		for i, v := range g.Values {
			if max > 0 {
				out[i] = 100 * v / max
			}
		}
	case Snapped:
		max := g.Max()
		for i, v := range g.Values {
			if max > 0 {
				out[i] = v * snapTarget / max
			}
		}
	case Log:
		for i, v := range g.Values {
			out[i] = math.Log1p(v)
		}
	}
	return out
}

// GradientStop is one (value, colour) anchor of a piecewise-linear
// colour gradient.
type GradientStop struct {
	Value   float64
	R, G, B uint8
}

// Gradient maps a scalar intensity to an RGB colour by piecewise-linear
// interpolation between Stops, which must be sorted ascending by
// Value. Whether Stops spans a raw or log-transformed domain is the
// caller's choice — per §4.11, either the intensities are
// log-transformed before lookup, or the gradient's own stops are
// log-calibrated; this type only implements the lookup, not the
// policy choice.
type Gradient struct {
	Stops []GradientStop
}

// Color returns the interpolated colour for v, clamping to the first
// or last stop when v falls outside the gradient's domain.
func (g *Gradient) Color(v float64) (r, gc, b uint8) {
	stops := g.Stops
	if len(stops) == 0 {
		return 0, 0, 0
	}
	if v <= stops[0].Value {
		return stops[0].R, stops[0].G, stops[0].B
	}
	last := stops[len(stops)-1]
	if v >= last.Value {
		return last.R, last.G, last.B
	}
	for i := 1; i < len(stops); i++ {
		if v > stops[i].Value {
			continue
		}
		lo, hi := stops[i-1], stops[i]
		f := (v - lo.Value) / (hi.Value - lo.Value)
		return lerp(lo.R, hi.R, f), lerp(lo.G, hi.G, f), lerp(lo.B, hi.B, f)
	}
	return last.R, last.G, last.B
}

func lerp(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*f))
}
