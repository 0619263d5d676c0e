// Package decoy implements the MRM/peptide decoy generator (§4.7, C7):
// Reverse, PseudoReverse and Shuffle, grounded directly on
// DecoyDatabase.cpp and the test vectors in MRMDecoy_test.C.
package decoy

import (
	"math/rand/v2"
	"strings"

	"github.com/pslpcore/pslp/residue"
)

// Mod is a modification instance attached to a specific 0-based
// position in a peptide sequence.
type Mod struct {
	Location int
	Name     string
	DeltaDa  float64
}

// Reverse emits seq's residues in reverse order; a modification at
// location k moves to len(seq)-1-k, matching
// MRMDecoy::reversePeptide (verified against MRMDecoy_test.C:
// "TESTPEPTIDE" -> "EDITPEPTSET", location 2 -> 8).
func Reverse(seq string, mods []Mod) (string, []Mod) {
	n := len(seq)
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		buf[i] = seq[n-1-i]
	}
	out := make([]Mod, len(mods))
	for i, m := range mods {
		out[i] = Mod{Location: n - 1 - m.Location, Name: m.Name, DeltaDa: m.DeltaDa}
	}
	return string(buf), out
}

// PseudoReverse keeps the C-terminal (last) residue fixed in its
// position and reverses everything before it; a modification at the
// fixed terminal location is unaffected, all others move to
// (n-2)-location. Matches MRMDecoy::pseudoreversePeptide (verified
// against MRMDecoy_test.C: "TESTPEPTIDE" -> "DITPEPTSETE", location
// 2 -> 7).
func PseudoReverse(seq string, mods []Mod) (string, []Mod) {
	n := len(seq)
	if n == 0 {
		return seq, nil
	}
	prefix := seq[:n-1]
	buf := make([]byte, n)
	for i := 0; i < len(prefix); i++ {
		buf[i] = prefix[len(prefix)-1-i]
	}
	buf[n-1] = seq[n-1]
	out := make([]Mod, len(mods))
	for i, m := range mods {
		if m.Location == n-1 {
			out[i] = m
			continue
		}
		out[i] = Mod{Location: (n - 2) - m.Location, Name: m.Name, DeltaDa: m.DeltaDa}
	}
	return string(buf), out
}

// AASequenceIdentity is the fraction of positions at which a and b
// carry the same residue, divided by len(a). Matches
// MRMDecoy::AASequenceIdentity (verified: identity("TESTPEPTIDE",
// "EDITPEPTSET") ≈ 0.454545).
func AASequenceIdentity(a, b string) float64 {
	n := len(a)
	if n == 0 {
		return 0
	}
	matches := 0
	for i := 0; i < n && i < len(b); i++ {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(n)
}

// ShuffleConfig parameters the §4.7 shuffle strategy.
type ShuffleConfig struct {
	IdentityThreshold float64
	MaxAttempts       int
	// NonShufflePattern, if non-nil, marks positions (true = fixed)
	// that must never be shuffled or mutated, e.g. to preserve a
	// protease cleavage site.
	NonShufflePattern []bool
}

// Shuffle performs Fisher-Yates shuffles of seq's non-fixed positions
// using rng, computing AASequenceIdentity against seq after each
// attempt; it accepts the first shuffle at or below
// cfg.IdentityThreshold, retrying up to cfg.MaxAttempts times. On
// exhaustion it mutates one non-fixed residue in place (using cat's
// residue alphabet) and accepts that result unconditionally, matching
// §4.7's described fallback.
func Shuffle(seq string, mods []Mod, rng *rand.Rand, cfg ShuffleConfig, cat *residue.Catalogue) (string, []Mod) {
	n := len(seq)
	positions := freePositions(n, cfg.NonShufflePattern)
	if len(positions) < 2 {
		return seq, mods
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var candidate string
	var candidateMods []Mod
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate, candidateMods = shuffleOnce(seq, mods, positions, rng)
		if AASequenceIdentity(seq, candidate) <= cfg.IdentityThreshold {
			return candidate, candidateMods
		}
	}
	return mutateOneResidue(candidate, candidateMods, positions, rng, cat)
}

func freePositions(n int, fixed []bool) []int {
	var out []int
	for i := 0; i < n; i++ {
		if i < len(fixed) && fixed[i] {
			continue
		}
		out = append(out, i)
	}
	return out
}

func shuffleOnce(seq string, mods []Mod, positions []int, rng *rand.Rand) (string, []Mod) {
	perm := append([]int(nil), positions...)
	rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

	buf := []byte(seq)
	for k, pos := range positions {
		buf[pos] = seq[perm[k]]
	}

	out := make([]Mod, len(mods))
	for i, m := range mods {
		newLoc := m.Location
		for k, src := range perm {
			if src == m.Location {
				newLoc = positions[k]
				break
			}
		}
		out[i] = Mod{Location: newLoc, Name: m.Name, DeltaDa: m.DeltaDa}
	}
	return string(buf), out
}

func mutateOneResidue(seq string, mods []Mod, positions []int, rng *rand.Rand, cat *residue.Catalogue) (string, []Mod) {
	if len(positions) == 0 || cat == nil {
		return seq, mods
	}
	residues := cat.Residues()
	if len(residues) < 2 {
		return seq, mods
	}
	buf := []byte(seq)
	idx := positions[rng.IntN(len(positions))]
	cur := buf[idx]
	for {
		cand := residues[rng.IntN(len(residues))]
		if cand != cur {
			buf[idx] = cand
			break
		}
	}
	return string(buf), mods
}

// ReverseSegment reverses seg, optionally holding its N-terminal and/or
// C-terminal residue fixed in place (§4.7's peptide-level concatenated
// decoy construction).
func ReverseSegment(seg string, keepNTerm, keepCTerm bool) string {
	if len(seg) == 0 {
		return seg
	}
	var prefix, suffix string
	inner := seg
	if keepNTerm {
		prefix, inner = inner[:1], inner[1:]
	}
	if keepCTerm && len(inner) > 0 {
		suffix, inner = inner[len(inner)-1:], inner[:len(inner)-1]
	}
	buf := make([]byte, len(inner))
	for i := 0; i < len(inner); i++ {
		buf[i] = inner[len(inner)-1-i]
	}
	return prefix + string(buf) + suffix
}

// ReverseDigestedConcat builds a decoy for an already-digested peptide
// (one string per missed-cleavage sub-peptide) by reversing each
// sub-peptide independently (subject to the terminal-fixing knobs) and
// concatenating the results in their original order.
func ReverseDigestedConcat(subpeptides []string, keepNTerm, keepCTerm bool) string {
	var b strings.Builder
	for _, s := range subpeptides {
		b.WriteString(ReverseSegment(s, keepNTerm, keepCTerm))
	}
	return b.String()
}
