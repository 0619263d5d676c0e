package tagger

import (
	"testing"

	"github.com/pslpcore/pslp/residue"
)

func TestEnumerateTagsFindsSimpleLadder(t *testing.T) {
	cat := residue.NewCatalogue()
	gMass, _ := cat.ResidueMass('G')
	aMass, _ := cat.ResidueMass('A')
	peaks := []float64{100, 100 + gMass, 100 + gMass + aMass}
	tags := EnumerateTags(peaks, 1, 2, 1, 1, 20, cat)
	found := false
	for _, tag := range tags {
		if tag == "GA" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected tag GA among %v", tags)
	}
}

func TestEnumerateTagsRespectsLengthBounds(t *testing.T) {
	cat := residue.NewCatalogue()
	gMass, _ := cat.ResidueMass('G')
	peaks := []float64{100, 100 + gMass}
	tags := EnumerateTags(peaks, 2, 3, 1, 1, 20, cat)
	if len(tags) != 0 {
		t.Fatalf("expected no tags shorter than minLen, got %v", tags)
	}
}

func TestSuffixArrayLCPIdentityOnRepeatedSequence(t *testing.T) {
	sa := NewSuffixArray("BANANA")
	if len(sa.sa) != 6 {
		t.Fatalf("expected 6 suffixes, got %d", len(sa.sa))
	}
	if sa.lcp[0] != 0 {
		t.Fatalf("expected lcp[0] == 0, got %d", sa.lcp[0])
	}
}

func TestFindByMassEmitsTrypticCandidate(t *testing.T) {
	cat := residue.NewCatalogue()
	kMass, _ := cat.ResidueMass('K')
	aMass, _ := cat.ResidueMass('A')
	seq := "KAA"
	sa := NewSuffixArray(seq)
	cands := sa.FindByMass([]float64{kMass}, 20, cat, true, nil)
	sawK := false
	for _, c := range cands {
		if c.Seq == "K" {
			sawK = true
		}
	}
	if !sawK {
		t.Fatalf("expected candidate K among %+v", cands)
	}
	_ = aMass
}

func TestTrypticBoundaryRejectsNonCleavageSite(t *testing.T) {
	if !trypticBoundaryOK("KAAA", 1) {
		t.Fatal("expected K-not-before-P to satisfy the tryptic rule")
	}
	if trypticBoundaryOK("KPAA", 1) {
		t.Fatal("expected K-before-P to violate the tryptic rule")
	}
	if !trypticBoundaryOK("AAAA", 0) {
		t.Fatal("expected sequence start to always satisfy the tryptic rule")
	}
}

func TestTagFilterRestrictsCandidates(t *testing.T) {
	cat := residue.NewCatalogue()
	kMass, _ := cat.ResidueMass('K')
	sa := NewSuffixArray("KAA")
	cands := sa.FindByMass([]float64{kMass}, 20, cat, false, []string{"Z"})
	if len(cands) != 0 {
		t.Fatalf("expected tag filter with no match to exclude all candidates, got %+v", cands)
	}
}
