package raster

import (
	"math"
	"testing"
)

func TestAddValueExactGridPointAddsWholeIntensityToOneCell(t *testing.T) {
	g, err := NewGrid(3, 3, 0, 2, 0, 2)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	g.AddValue(1, 1, 10) // exact grid point (col 1, row 1)
	if g.at(1, 1) != 10 {
		t.Fatalf("expected cell (1,1) to receive full intensity, got %v", g.at(1, 1))
	}
	total := 0.0
	for _, v := range g.Values {
		total += v
	}
	if total != 10 {
		t.Fatalf("expected total mass conserved at 10, got %v", total)
	}
}

func TestAddValueSplitsAcrossFourNeighbours(t *testing.T) {
	g, _ := NewGrid(2, 2, 0, 1, 0, 1)
	g.AddValue(0.5, 0.5, 8) // midpoint: every cell gets 1/4
	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			if math.Abs(g.at(row, col)-2) > 1e-9 {
				t.Fatalf("cell (%d,%d) = %v, want 2", row, col, g.at(row, col))
			}
		}
	}
}

func TestAddValueClampsOutOfRangeToEdge(t *testing.T) {
	g, _ := NewGrid(2, 2, 0, 1, 0, 1)
	g.AddValue(-5, -5, 10)
	if g.at(0, 0) != 10 {
		t.Fatalf("expected out-of-range point clamped to (0,0), got %v", g.at(0, 0))
	}
}

func TestApplyPercentageScalesMaxTo100(t *testing.T) {
	g, _ := NewGrid(1, 2, 0, 1, 0, 0)
	g.Values[0] = 50
	g.Values[1] = 200
	out := g.Apply(Percentage)
	if out[1] != 100 {
		t.Fatalf("expected max scaled to 100, got %v", out[1])
	}
	if out[0] != 25 {
		t.Fatalf("expected proportional scaling, got %v", out[0])
	}
}

func TestApplySnappedScalesMaxTo2Pow24(t *testing.T) {
	g, _ := NewGrid(1, 1, 0, 0, 0, 0)
	g.Values[0] = 1000
	out := g.Apply(Snapped)
	if out[0] != snapTarget {
		t.Fatalf("expected single max cell snapped to 2^24, got %v", out[0])
	}
}

func TestApplyLogIsMonotonic(t *testing.T) {
	g, _ := NewGrid(1, 3, 0, 2, 0, 0)
	g.Values[0], g.Values[1], g.Values[2] = 0, 10, 1000
	out := g.Apply(Log)
	if !(out[0] < out[1] && out[1] < out[2]) {
		t.Fatalf("expected log transform to preserve ordering, got %v", out)
	}
}

func TestGradientInterpolatesBetweenStops(t *testing.T) {
	grad := &Gradient{Stops: []GradientStop{
		{Value: 0, R: 0, G: 0, B: 0},
		{Value: 100, R: 255, G: 255, B: 255},
	}}
	r, g, b := grad.Color(50)
	if r != 128 || g != 128 || b != 128 {
		t.Fatalf("expected midpoint colour ~(128,128,128), got (%d,%d,%d)", r, g, b)
	}
}

func TestGradientClampsOutsideDomain(t *testing.T) {
	grad := &Gradient{Stops: []GradientStop{
		{Value: 10, R: 1, G: 2, B: 3},
		{Value: 20, R: 4, G: 5, B: 6},
	}}
	r, g, b := grad.Color(-5)
	if r != 1 || g != 2 || b != 3 {
		t.Fatalf("expected clamp to first stop, got (%d,%d,%d)", r, g, b)
	}
	r, g, b = grad.Color(500)
	if r != 4 || g != 5 || b != 6 {
		t.Fatalf("expected clamp to last stop, got (%d,%d,%d)", r, g, b)
	}
}
