package fragment

import "testing"

func TestFindNearTieBreakByInsertionOrder(t *testing.T) {
	s := NewStore(10)
	s.Insert(Ion{MZ: 500.0001, Intensity: 1})
	s.Insert(Ion{MZ: 499.9999, Intensity: 2})

	got, ok := s.FindNear(500.0, 10)
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Intensity != 1 {
		t.Fatalf("expected the first-inserted equally-near fragment to win ties, got intensity %v", got.Intensity)
	}
}

func TestFindNearRespectsAsymmetricTolerance(t *testing.T) {
	s := NewStore(1)
	// 1 ppm @ 2000 Da = 2 mDa; insert a fragment 1.5 mDa away.
	s.Insert(Ion{MZ: 2000.0015, Intensity: 1})
	if _, ok := s.FindNear(2000.0, 1); !ok {
		t.Fatal("expected match within 1 ppm of the larger reference mass")
	}
	if _, ok := s.FindNear(2000.004, 1); ok {
		t.Fatal("expected no match once the delta exceeds tolerance in both directions")
	}
}

func TestLenAndRemoveIsotopeLossWindow(t *testing.T) {
	s := NewStore(10)
	s.Insert(Ion{MZ: 495, Intensity: 1})
	s.Insert(Ion{MZ: 498, Intensity: 1})
	s.Insert(Ion{MZ: 501, Intensity: 1})
	if s.Len() != 3 {
		t.Fatalf("expected len 3, got %d", s.Len())
	}
	s.RemoveIsotopeLossWindow(500, 10)
	if s.Len() != 1 {
		t.Fatalf("expected len 1 after removing [490,500), got %d", s.Len())
	}
	remaining := s.All()
	if len(remaining) != 1 || remaining[0].MZ != 501 {
		t.Fatalf("expected only the 501 fragment to remain, got %v", remaining)
	}
}
