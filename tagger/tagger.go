// Package tagger implements peptide-tag enumeration over a spectrum's
// peak ladder (§4.6) and the companion enhanced suffix array used to
// search a protein database for tag-consistent tryptic candidates,
// grounded on SuffixArraySeqan.h's DFS-with-running-mass contract.
package tagger

import (
	"sort"
	"strings"

	"github.com/pslpcore/pslp/numeric"
	"github.com/pslpcore/pslp/residue"
)

// EnumerateTags walks every pair of peaks in peaks (assumed sorted
// ascending) whose m/z difference matches a residue mass (scaled by
// charge) within tolPPM, for every charge in [minCharge, maxCharge],
// emitting a tag string each time a walk's length falls in
// [minLen, maxLen]. Duplicate tags count with multiplicity: every
// successful walk is reported, even if another walk yields the same
// string.
func EnumerateTags(peaks []float64, minLen, maxLen, minCharge, maxCharge int, tolPPM float64, cat *residue.Catalogue) []string {
	if minLen < 1 || maxLen < minLen || len(peaks) == 0 {
		return nil
	}
	residues := cat.Residues()
	var tags []string
	for charge := minCharge; charge <= maxCharge; charge++ {
		if charge < 1 {
			continue
		}
		for i := range peaks {
			walkTag(peaks, i, charge, "", tolPPM, minLen, maxLen, residues, cat, &tags)
		}
	}
	return tags
}

func walkTag(peaks []float64, i, charge int, path string, tolPPM float64, minLen, maxLen int, residues []byte, cat *residue.Catalogue, out *[]string) {
	if len(path) >= minLen && len(path) <= maxLen {
		*out = append(*out, path)
	}
	if len(path) >= maxLen {
		return
	}
	for j := i + 1; j < len(peaks); j++ {
		delta := (peaks[j] - peaks[i]) * float64(charge)
		for _, r := range residues {
			opts, ok := cat.MassOptions(r)
			if !ok {
				continue
			}
			for _, m := range opts {
				if numeric.PPMEqual(m, delta, tolPPM) {
					walkTag(peaks, j, charge, path+string(r), tolPPM, minLen, maxLen, residues, cat, out)
				}
			}
		}
	}
}

// SuffixArray is an enhanced suffix array over a protein (or
// concatenated-protein) sequence: the sorted suffix offsets plus their
// LCP array (Kasai's algorithm) and a "next smaller LCP" skip table.
// FindByMass does not consult the skip table; its DFS prunes a subtree
// by not descending once the running mass exceeds the largest target.
//
// No library in the example pack offers a generalised suffix array
// contract, and the standard library's index/suffixarray does not
// expose the underlying sorted offset array needed to derive LCP
// intervals, so the sort and Kasai pass are hand-rolled here (see
// DESIGN.md).
type SuffixArray struct {
	seq  string
	sa   []int32 // suffix start offsets, sorted lexicographically
	lcp  []int32 // lcp[i] = len(LCP(suffix(sa[i-1]), suffix(sa[i]))); lcp[0] = 0
	skip []int32 // skip[i] = next j>i with lcp[j] < lcp[i], or len(sa) if none
}

// NewSuffixArray builds the enhanced suffix array over seq.
func NewSuffixArray(seq string) *SuffixArray {
	n := len(seq)
	sa := make([]int32, n)
	for i := range sa {
		sa[i] = int32(i)
	}
	sort.Slice(sa, func(a, b int) bool {
		return seq[sa[a]:] < seq[sa[b]:]
	})

	rank := make([]int32, n)
	for i, s := range sa {
		rank[s] = int32(i)
	}
	lcp := make([]int32, n)
	h := 0
	for i := 0; i < n; i++ {
		if rank[i] == 0 {
			h = 0
			continue
		}
		j := int(sa[rank[i]-1])
		for i+h < n && j+h < n && seq[i+h] == seq[j+h] {
			h++
		}
		lcp[rank[i]] = int32(h)
		if h > 0 {
			h--
		}
	}

	skip := make([]int32, n)
	var stack []int
	for i := 0; i < n; i++ {
		for len(stack) > 0 && lcp[stack[len(stack)-1]] >= lcp[i] {
			skip[stack[len(stack)-1]] = int32(i)
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, i)
	}
	for _, i := range stack {
		skip[i] = int32(n)
	}

	return &SuffixArray{seq: seq, sa: sa, lcp: lcp, skip: skip}
}

// childIntervals splits the lcp-interval [lo,hi] (all suffixes sharing
// a common prefix of length depth) into its child groups, one per
// distinct next character, using the classic child-table rule:
// boundaries fall exactly where lcp[i] == depth.
func (s *SuffixArray) childIntervals(lo, hi, depth int) [][2]int {
	var children [][2]int
	start := lo
	for i := lo + 1; i <= hi; i++ {
		if int(s.lcp[i]) == depth {
			children = append(children, [2]int{start, i - 1})
			start = i
		}
	}
	children = append(children, [2]int{start, hi})
	return children
}

// Candidate is one tag-consistent substring found by FindByMass.
type Candidate struct {
	Seq   string
	Start int // offset of the first occurrence found in the source sequence
	Mass  float64
}

// FindByMass performs the §4.6 DFS mass-ladder walk: for every target
// mass, every node (distinct substring) of the suffix tree whose
// accumulated residue mass lands within tolPPM of that target is
// emitted as a Candidate, subject to the tryptic digestion rule when
// tryptic is true (the residue preceding the candidate, if any, must
// be a Tryptic cleavage site per the catalogue's residue alphabet) and
// the optional tagFilter substrings (a candidate must contain at
// least one as a substring; an empty tagFilter disables the check).
func (s *SuffixArray) FindByMass(targets []float64, tolPPM float64, cat *residue.Catalogue, tryptic bool, tagFilter []string) []Candidate {
	if len(targets) == 0 || len(s.sa) == 0 {
		return nil
	}
	maxTarget := targets[0]
	for _, t := range targets {
		if t > maxTarget {
			maxTarget = t
		}
	}
	var out []Candidate
	s.dfs(0, len(s.sa)-1, 0, 0, targets, tolPPM, maxTarget, cat, tryptic, tagFilter, &out)
	return out
}

func (s *SuffixArray) dfs(lo, hi, depth int, mass float64, targets []float64, tolPPM, maxTarget float64, cat *residue.Catalogue, tryptic bool, tagFilter []string, out *[]Candidate) {
	if depth > 0 {
		ch := s.seq[int(s.sa[lo])+depth-1]
		opts, ok := cat.MassOptions(ch)
		if !ok {
			return
		}
		// Every occurrence of this node shares the same running mass
		// regardless of which mass option was used to arrive here;
		// branch over the options rather than threading state through
		// a single accumulator.
		for _, delta := range opts {
			m := mass + delta
			if m > maxTarget*(1+tolPPM/1e6)+1e-6 {
				continue
			}
			for _, target := range targets {
				if numeric.PPMEqual(target, m, tolPPM) {
					start := int(s.sa[lo])
					cand := s.seq[start : start+depth]
					if tryptic && !trypticBoundaryOK(s.seq, start) {
						continue
					}
					if len(tagFilter) > 0 && !containsAny(cand, tagFilter) {
						continue
					}
					*out = append(*out, Candidate{Seq: cand, Start: start, Mass: m})
				}
			}
			s.descend(lo, hi, depth, m, targets, tolPPM, maxTarget, cat, tryptic, tagFilter, out)
		}
		return
	}
	s.descend(lo, hi, depth, mass, targets, tolPPM, maxTarget, cat, tryptic, tagFilter, out)
}

func (s *SuffixArray) descend(lo, hi, depth int, mass float64, targets []float64, tolPPM, maxTarget float64, cat *residue.Catalogue, tryptic bool, tagFilter []string, out *[]Candidate) {
	if lo == hi {
		if int(s.sa[lo])+depth < len(s.seq) {
			s.dfs(lo, hi, depth+1, mass, targets, tolPPM, maxTarget, cat, tryptic, tagFilter, out)
		}
		return
	}
	for _, c := range s.childIntervals(lo, hi, depth) {
		s.dfs(c[0], c[1], depth+1, mass, targets, tolPPM, maxTarget, cat, tryptic, tagFilter, out)
	}
}

// trypticBoundaryOK reports whether the residue immediately preceding
// position start in seq (or the absence of one, at the sequence
// start) satisfies the Tryptic digesting rule: K or R not followed by
// P (§GLOSSARY).
func trypticBoundaryOK(seq string, start int) bool {
	if start == 0 {
		return true
	}
	prev := seq[start-1]
	if prev != 'K' && prev != 'R' {
		return false
	}
	if start < len(seq) && seq[start] == 'P' {
		return false
	}
	return true
}

func containsAny(s string, tags []string) bool {
	for _, t := range tags {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
