// Package fragment implements the indexable, ppm-tolerant m/z->fragment
// multimap (§4.2, C2). The in-memory index is a left-leaning red-black
// tree ordered by m/z (github.com/biogo/store/llrb), generalising the
// ordered-key pattern the teacher uses on disk for BLAST hits
// (internal/store) to an in-memory, mass-ordered structure.
package fragment

import (
	"github.com/biogo/store/llrb"

	"github.com/pslpcore/pslp/idmodel"
)

// Ion is a single fragment peak carrying LC evidence back to its
// parent feature.
type Ion struct {
	MZ             float64
	Intensity      float64
	ApexScan       uint32
	Charge         int8
	ParentFeature  idmodel.FeatureID

	seq int // insertion order, used to break find-near ties
}

// node adapts Ion to llrb.Comparable, ordering first by m/z and then
// by insertion order so that equal-mass fragments keep a stable,
// deterministic order in the tree.
type node struct {
	Ion
}

func (n node) Compare(c llrb.Comparable) int {
	o := c.(node)
	switch {
	case n.MZ < o.MZ:
		return -1
	case n.MZ > o.MZ:
		return 1
	case n.seq < o.seq:
		return -1
	case n.seq > o.seq:
		return 1
	default:
		return 0
	}
}

// Store is an ordered multimap of FragmentIon keyed by m/z, with a
// ppm lookup tolerance carried by the store, not by individual keys.
type Store struct {
	tree    *llrb.Tree
	tolPPM  float64
	nextSeq int
	count   int
}

// NewStore returns an empty Store with the given ppm lookup tolerance,
// used by FindNear.
func NewStore(tolPPM float64) *Store {
	return &Store{tree: &llrb.Tree{}, tolPPM: tolPPM}
}

// Insert adds frag to the store in O(log n), preserving multimap
// ordering by m/z then insertion order.
func (s *Store) Insert(frag Ion) {
	frag.seq = s.nextSeq
	s.nextSeq++
	s.tree.Insert(node{frag})
	s.count++
}

// Len reports the number of fragments currently stored.
func (s *Store) Len() int { return s.count }

// All returns every fragment in ascending m/z order.
func (s *Store) All() []Ion {
	out := make([]Ion, 0, s.count)
	s.tree.Do(func(c llrb.Comparable) (done bool) {
		out = append(out, c.(node).Ion)
		return false
	})
	return out
}

// FindNear returns the fragment minimising |f.mz-mz| among fragments
// that are mutually ppm-equal to mz (both PPMEqual(f.mz,mz,tol) and
// PPMEqual(mz,f.mz,tol) must hold, since the tolerance is asymmetric).
// Ties are broken by lower insertion order.
func (s *Store) FindNear(mz, tolPPM float64) (Ion, bool) {
	if tolPPM <= 0 {
		tolPPM = s.tolPPM
	}
	var best Ion
	found := false
	s.tree.Do(func(c llrb.Comparable) (done bool) {
		ion := c.(node).Ion
		if ppmEqual(ion.MZ, mz, tolPPM) && ppmEqual(mz, ion.MZ, tolPPM) {
			if !found || absDiff(ion.MZ, mz) < absDiff(best.MZ, mz) ||
				(absDiff(ion.MZ, mz) == absDiff(best.MZ, mz) && ion.seq < best.seq) {
				best = ion
				found = true
			}
		}
		return false
	})
	return best, found
}

func ppmEqual(a, b, tolPPM float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	ref := a
	if ref < 0 {
		ref = -ref
	}
	return d <= ref*tolPPM*1e-6
}

func absDiff(a, b float64) float64 {
	d := a - b
	if d < 0 {
		return -d
	}
	return d
}

// RemoveIsotopeLossWindow removes every fragment in
// [precursorMZ-width, precursorMZ). It is an optional operator,
// disabled by default in every caller in this module, exposed here
// only as a hook for callers that want it.
func (s *Store) RemoveIsotopeLossWindow(precursorMZ, width float64) {
	lo := precursorMZ - width
	var doomed []node
	s.tree.Do(func(c llrb.Comparable) (done bool) {
		ion := c.(node).Ion
		if ion.MZ >= lo && ion.MZ < precursorMZ {
			doomed = append(doomed, node{ion})
		}
		return false
	})
	for _, n := range doomed {
		s.tree.Delete(n)
		s.count--
	}
}
