// Package digest implements the protease-digestion collaborator
// described in spec.md §6 and the missed-cleavage expansion it
// implies. Package iel's WindowsFromFASTA takes its digestion step as
// a plain func(string) []string value, so any caller-supplied
// digestion function is an equally valid substitute for this package;
// packages pslp and tagger do not digest.
package digest

import (
	"strings"
	"sync"
)

// Rule decides whether position i (the residue index immediately
// before the candidate cleavage site) is a cleavage site in seq.
type Rule func(seq string, i int) bool

// Tryptic is the standard trypsin cleavage rule (§GLOSSARY: Tryptic
// site): cleave after K or R unless the following residue is P.
func Tryptic(seq string, i int) bool {
	if i < 0 || i >= len(seq) {
		return false
	}
	c := seq[i]
	if c != 'K' && c != 'R' {
		return false
	}
	if i+1 < len(seq) && seq[i+1] == 'P' {
		return false
	}
	return true
}

// Func is the §6 external-collaborator shape every caller digests
// through: sequence in, subsequences out.
type Func func(sequence string, missedCleavages, minLen, maxLen int) []string

// New returns a Func for the given cleavage rule, with 0-based
// missed-cleavage expansion and an inclusive [minLen, maxLen] length
// filter (maxLen<=0 means unbounded).
func New(rule Rule) Func {
	return func(sequence string, missedCleavages, minLen, maxLen int) []string {
		return digest(sequence, rule, missedCleavages, minLen, maxLen)
	}
}

// Peptides digests sequence with the standard tryptic rule. It is the
// default Func used wherever the spec leaves the protease unspecified.
var Peptides = New(Tryptic)

func digest(seq string, rule Rule, missed, minLen, maxLen int) []string {
	if seq == "" {
		return nil
	}
	var sites []int
	for i := range seq {
		if rule(seq, i) {
			sites = append(sites, i+1)
		}
	}
	bounds := make([]int, 0, len(sites)+2)
	bounds = append(bounds, 0)
	bounds = append(bounds, sites...)
	if bounds[len(bounds)-1] != len(seq) {
		bounds = append(bounds, len(seq))
	}

	var out []string
	for start := 0; start < len(bounds)-1; start++ {
		for skip := 0; skip <= missed && start+skip+1 < len(bounds); skip++ {
			end := bounds[start+skip+1]
			sub := seq[bounds[start]:end]
			if len(sub) < minLen {
				continue
			}
			if maxLen > 0 && len(sub) > maxLen {
				continue
			}
			out = append(out, sub)
		}
	}
	return out
}

// ParallelDigestProteins digests every sequence in seqs concurrently,
// one goroutine per input, and merges results back in input order —
// the same shared-nothing fan-out/ordered-merge shape used by
// §5's other data-parallel stages.
func ParallelDigestProteins(seqs []string, fn Func, missedCleavages, minLen, maxLen int) [][]string {
	out := make([][]string, len(seqs))
	var wg sync.WaitGroup
	wg.Add(len(seqs))
	for i, s := range seqs {
		go func(i int, s string) {
			defer wg.Done()
			out[i] = fn(s, missedCleavages, minLen, maxLen)
		}(i, s)
	}
	wg.Wait()
	return out
}

// Join re-concatenates subpeptides with no separator, matching the
// original sequence's residue order — useful when callers need to
// confirm digestion coverage.
func Join(subs []string) string { return strings.Join(subs, "") }
