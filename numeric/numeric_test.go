package numeric

import (
	"errors"
	"math"
	"testing"

	"github.com/pslpcore/pslp/perr"
)

func TestPPMEqualAsymmetric(t *testing.T) {
	// 1 ppm @ 1000 Da = 1 mDa.
	if !PPMEqual(1000.0, 1000.0009, 1) {
		t.Fatal("expected 0.9 mDa delta to be within 1 ppm of 1000 Da")
	}
	if PPMEqual(1000.0, 1000.0011, 1) {
		t.Fatal("expected 1.1 mDa delta to exceed 1 ppm of 1000 Da")
	}
	// Pin the asymmetry: using the smaller mass as reference tightens
	// the absolute window, so a pair that passes with b as reference
	// need not pass with a as reference. At 1e5 ppm (10%) the 11 Da gap
	// is inside 10% of 111 (11.1) but outside 10% of 100 (10).
	a, b := 100.0, 111.0
	if !PPMEqual(b, a, 1e5) {
		t.Fatal("expected pass when using the larger mass as reference")
	}
	if PPMEqual(a, b, 1e5) {
		t.Fatal("expected failure when using the smaller mass as reference")
	}
}

func TestMedianOddEven(t *testing.T) {
	m, err := Median([]float64{3, 1, 2}, false)
	if err != nil || m != 2 {
		t.Fatalf("median([3,1,2]) = %v, %v; want 2, nil", m, err)
	}
	m, err = Median([]float64{1, 2, 3, 4}, false)
	if err != nil || m != 2.5 {
		t.Fatalf("median([1,2,3,4]) = %v, %v; want 2.5, nil", m, err)
	}
}

func TestMedianEmpty(t *testing.T) {
	_, err := Median(nil, false)
	if !errors.Is(err, perr.InvalidRange) {
		t.Fatalf("expected InvalidRange, got %v", err)
	}
}

func TestQuantileDomain(t *testing.T) {
	_, err := Quantile([]float64{1, 2, 3}, 0, false)
	if !errors.Is(err, perr.InvalidValue) {
		t.Fatalf("expected InvalidValue for q=0, got %v", err)
	}
	_, err = Quantile([]float64{1, 2, 3}, 101, false)
	if !errors.Is(err, perr.InvalidValue) {
		t.Fatalf("expected InvalidValue for q=101, got %v", err)
	}
	q, err := Quantile([]float64{10, 20, 30, 40, 50}, 100, false)
	if err != nil || q != 50 {
		t.Fatalf("quantile(100) = %v, %v; want 50, nil", q, err)
	}
}

func TestComputeRankIdempotent(t *testing.T) {
	seq := []float64{5, 1, 1, 3}
	r1, err := ComputeRank(seq)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := ComputeRank(r1)
	if err != nil {
		t.Fatal(err)
	}
	for i := range r1 {
		if math.Abs(r1[i]-r2[i]) > 1e-9 {
			t.Fatalf("rank not idempotent at %d: %v vs %v", i, r1, r2)
		}
	}
	// Tied values (the two 1s) share the mean of ranks 1 and 2.
	if r1[1] != 1.5 || r1[2] != 1.5 {
		t.Fatalf("expected tied rank 1.5 for duplicate minimum, got %v", r1)
	}
}

func TestBilinearInterpIdentityAtNode(t *testing.T) {
	g := &Grid{
		Rows: 2, Cols: 2,
		X:      []float64{0, 1},
		Y:      []float64{0, 1},
		Values: []float64{0, 0, 0, 1}, // unit mass at (row=1,col=1) == (y=1,x=1)
	}
	v, err := BilinearInterp(g, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(v-1) > 1e-9 {
		t.Fatalf("expected 1 at grid node, got %v", v)
	}
	v, err = BilinearInterp(g, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(v) > 1e-9 {
		t.Fatalf("expected 0 at opposite node, got %v", v)
	}
}

func TestBilinearInterpClampToEdge(t *testing.T) {
	g := &Grid{
		Rows: 2, Cols: 2,
		X:      []float64{0, 1},
		Y:      []float64{0, 1},
		Values: []float64{2, 2, 2, 2},
	}
	v, err := BilinearInterp(g, -5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Fatalf("expected clamp-to-edge to return constant 2, got %v", v)
	}
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{2, 4, 6, 8}
	c, err := Correlation(x, y)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(c-1) > 1e-9 {
		t.Fatalf("expected perfect correlation, got %v", c)
	}
}
