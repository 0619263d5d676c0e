package consensus

import (
	"math"
	"testing"

	"github.com/pslpcore/pslp/fragment"
)

func wf(mz, intensity, rt float64) WeightedFragment {
	return WeightedFragment{
		Ion:         fragment.Ion{MZ: mz, Intensity: intensity},
		PrecursorMZ: 500,
		RT:          rt,
		RTStart:     rt - 1,
		RTEnd:       rt + 1,
		Charge:      2,
		ApexScan:    10,
		StartScan:   5,
		EndScan:     15,
	}
}

func TestAddFragmentWeightedMean(t *testing.T) {
	s := New(10)
	s.AddFragment(wf(100, 1, 10))
	s.AddFragment(wf(200, 3, 20))
	// weighted mean RT = (1*10 + 3*20)/4 = 17.5
	if math.Abs(s.RT-17.5) > 1e-9 {
		t.Fatalf("expected weighted mean RT 17.5, got %v", s.RT)
	}
}

func TestRTWithinBoundsInvariant(t *testing.T) {
	s := New(10)
	s.AddFragment(wf(100, 1, 10))
	s.AddFragment(wf(200, 1, 12))
	s.AddFragment(wf(300, 1, 11))
	if s.RT < s.RTStart-1e-9 || s.RT > s.RTEnd+1e-9 {
		t.Fatalf("RT %v must lie within [%v,%v] given the aggregate construction", s.RT, s.RTStart, s.RTEnd)
	}
}

func TestRemoveOutliersSingleFragmentNoOp(t *testing.T) {
	s := New(10)
	s.AddFragment(wf(100, 1, 10))
	if err := s.RemoveOutliers(); err != nil {
		t.Fatalf("expected no-op on single fragment, got %v", err)
	}
	if len(s.Fragments()) != 1 {
		t.Fatalf("expected fragment retained, got %d", len(s.Fragments()))
	}
}

func TestRemoveOutliersOnEmptyIsError(t *testing.T) {
	s := New(10)
	if err := s.RemoveOutliers(); err == nil {
		t.Fatal("expected an error removing outliers from an empty spectrum")
	}
}

func TestRemoveOutliersDropsExtremeRT(t *testing.T) {
	s := New(10)
	s.AddFragment(wf(100, 5, 10))
	s.AddFragment(wf(101, 5, 10.2))
	s.AddFragment(wf(102, 5, 10.1))
	s.AddFragment(wf(103, 5, 10.3))
	s.AddFragment(wf(104, 5, 500)) // gross outlier
	if err := s.RemoveOutliers(); err != nil {
		t.Fatal(err)
	}
	for _, f := range s.Fragments() {
		if f.RT > 100 {
			t.Fatalf("expected the gross outlier to be removed, still present: %+v", f)
		}
	}
}

func TestFindFragmentDelegatesToStore(t *testing.T) {
	s := New(10)
	s.AddFragment(wf(500.0, 1, 10))
	_, ok := s.FindFragment(500.0001)
	if !ok {
		t.Fatal("expected delegated lookup to find the near fragment")
	}
}
