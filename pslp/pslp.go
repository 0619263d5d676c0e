// Package pslp builds and iteratively solves the precursor-selection
// ILP (§4.8, C8): which (feature, scan, charge) combinations an
// instrument should select for fragmentation. It is the core that the
// other components feed into and the `lp` driver underlies.
package pslp

import (
	"fmt"
	"math"
	"sort"

	"github.com/pslpcore/pslp/idmodel"
	"github.com/pslpcore/pslp/lp"
	"github.com/pslpcore/pslp/perr"
)

// IndexTriple identifies one (feature, scan, charge) decision
// variable, matching PSLPFormulation.h's IndexTriple struct shape.
type IndexTriple struct {
	Feature idmodel.FeatureID
	Scan    int
	Charge  int8
}

// VariableID is the arena index of one binary x_{f,s,z} variable; it
// is numerically identical to the underlying lp.ColID, kept as a
// distinct named type so callers never confuse a PSLP variable handle
// with a raw LP column.
type VariableID int32

// ProteinID is the arena index of one protein accession in the
// combined formulation's coverage term, avoiding the cyclic
// feature<->protein reference the accession string itself would
// create (§9's arena design note).
type ProteinID int32

// IntensityLookup returns the raw intensity at (scan, mzIdx), the raw
// ingredient the XIC kernel integrates over a feature's mass-range
// scans (§4.8.4).
type IntensityLookup func(scan, mzIdx int) float64

// XICWeights integrates f's mass-range scans into a per-scan weight,
// normalising so the per-feature maximum is 1 when normalize is true.
// Scans with zero summed intensity keep a zero weight; Build creates no
// variable for them.
func XICWeights(f idmodel.Feature, intensity IntensityLookup, normalize bool) map[int]float64 {
	weights := make(map[int]float64, len(f.MassRange))
	for _, mr := range f.MassRange {
		var sum float64
		for j := mr.MZLoIdx; j <= mr.MZHiIdx; j++ {
			sum += intensity(mr.Scan, j)
		}
		weights[mr.Scan] += sum
	}
	if !normalize {
		return weights
	}
	max := 0.0
	for _, w := range weights {
		if w > max {
			max = w
		}
	}
	if max <= 0 {
		return weights
	}
	for s, w := range weights {
		weights[s] = w / max
	}
	return weights
}

// Config parameterises Build's feasibility filter and §4.8.3's
// capacity constraints.
type Config struct {
	Charges          []int8
	PerFeatureCap    float64 // K: max acquisitions per feature
	RTBinCapacity    float64 // B: max MS2 spectra per RT bin
	InclusionListCap float64 // L: max total selected variables
	NormalizeXIC     bool
}

// Model is the mutable PSLP ILP: an lp.Model underneath plus the
// (feature,scan,charge)<->column and protein<->column/row arenas
// needed to interpret and iteratively tighten it.
type Model struct {
	lp  *lp.Model
	cfg Config

	byTriple    map[IndexTriple]VariableID
	featureVars map[idmodel.FeatureID][]lp.ColID
	featureRow  map[idmodel.FeatureID]lp.RowID
	scanRow     map[int]lp.RowID
	inclusionRow lp.RowID

	proteins     []idmodel.ProteinAccession
	proteinIndex map[idmodel.ProteinAccession]ProteinID
	proteinVar   map[ProteinID]lp.ColID
	proteinRow   map[ProteinID]lp.RowID

	stepRow    lp.RowID
	hasStepRow bool
}

func chargeAllowed(f idmodel.Feature, z int8) bool {
	for _, c := range f.Charges {
		if c == z {
			return true
		}
	}
	return false
}

// Build constructs the feature-only formulation (§4.8.1/§4.8.2 with
// λ=0): one binary variable per (feature, scan, charge) tuple that
// survives the feasibility filter (z allowed for f, XIC weight > 0),
// weighted by XIC_weight·rt_probability·score_prior, subject to the
// per-feature cap, RT-bin capacity, and inclusion-list size rows.
// Feature and charge iteration order is the order feats and
// cfg.Charges are given in, so variable_id assignment is deterministic
// (§5).
func Build(feats []idmodel.Feature, intensity IntensityLookup, rtProbability func(idmodel.Feature) float64, scorePrior func(idmodel.Feature, int8) float64, cfg Config) (*Model, error) {
	if len(feats) == 0 {
		return nil, perr.Wrap(perr.EmptyModel, "pslp: no features supplied")
	}
	m := &Model{
		lp:          lp.NewModel(),
		cfg:         cfg,
		byTriple:    make(map[IndexTriple]VariableID),
		featureVars: make(map[idmodel.FeatureID][]lp.ColID),
		featureRow:  make(map[idmodel.FeatureID]lp.RowID),
		scanRow:     make(map[int]lp.RowID),
	}
	m.lp.SetSense(lp.Max)

	scanVars := make(map[int][]lp.ColID)
	for _, f := range feats {
		weights := XICWeights(f, intensity, cfg.NormalizeXIC)
		scans := sortedIntKeys(weights)
		rtP := rtProbability(f)
		for _, s := range scans {
			xic := weights[s]
			if xic <= 0 {
				continue
			}
			for _, z := range cfg.Charges {
				if !chargeAllowed(f, z) {
					continue
				}
				w := xic * rtP * scorePrior(f, z)
				col := m.lp.AddColumn(fmt.Sprintf("x_f%d_s%d_z%d", f.ID, s, z), 0, 1, w, lp.Binary)
				triple := IndexTriple{Feature: f.ID, Scan: s, Charge: z}
				m.byTriple[triple] = VariableID(col)
				m.featureVars[f.ID] = append(m.featureVars[f.ID], col)
				scanVars[s] = append(scanVars[s], col)
			}
		}
	}
	if len(m.byTriple) == 0 {
		return nil, perr.Wrap(perr.EmptyModel, "pslp: no (feature,scan,charge) tuple survived the feasibility filter")
	}

	for _, f := range feats {
		cols := m.featureVars[f.ID]
		if len(cols) == 0 {
			continue
		}
		rid, err := m.lp.AddRow(fmt.Sprintf("cap_f%d", f.ID), uniformCoeffs(cols, 1), math.Inf(-1), cfg.PerFeatureCap, lp.LE)
		if err != nil {
			return nil, err
		}
		m.featureRow[f.ID] = rid
	}

	for _, s := range sortedScanVarKeys(scanVars) {
		rid, err := m.lp.AddRow(fmt.Sprintf("bin_s%d", s), uniformCoeffs(scanVars[s], 1), math.Inf(-1), cfg.RTBinCapacity, lp.LE)
		if err != nil {
			return nil, err
		}
		m.scanRow[s] = rid
	}

	allCols := make(map[lp.ColID]float64, len(m.byTriple))
	for _, v := range m.byTriple {
		allCols[lp.ColID(v)] = 1
	}
	rid, err := m.lp.AddRow("inclusion_cap", allCols, math.Inf(-1), cfg.InclusionListCap, lp.LE)
	if err != nil {
		return nil, err
	}
	m.inclusionRow = rid

	return m, nil
}

// ProteinInput is one candidate protein accession in the combined
// formulation, with its prior coverage weight c_a.
type ProteinInput struct {
	Accession      idmodel.ProteinAccession
	CoverageWeight float64
}

// QFunc returns the prior probability q_{f,a} that the variable
// identified by t belongs to protein accession a, or false if t
// carries no evidence for a.
type QFunc func(t IndexTriple, protein idmodel.ProteinAccession) (float64, bool)

// AddProteinCoverage extends a feature-only Build into the combined
// formulation (§4.8.1/§4.8.3.4): one continuous p_a in [0,1] per
// protein with objective contribution λ·c_a, and a saturating coverage
// row p_a <= Σ q_{f,a}·x_{f,s,z}. Must be called before any Solve.
func (m *Model) AddProteinCoverage(proteins []ProteinInput, lambda float64, q QFunc) error {
	if len(m.byTriple) == 0 {
		return perr.Wrap(perr.EmptyModel, "pslp: cannot add protein coverage to an empty model")
	}
	m.proteins = make([]idmodel.ProteinAccession, 0, len(proteins))
	m.proteinIndex = make(map[idmodel.ProteinAccession]ProteinID, len(proteins))
	m.proteinVar = make(map[ProteinID]lp.ColID, len(proteins))
	m.proteinRow = make(map[ProteinID]lp.RowID, len(proteins))

	triples := make([]IndexTriple, 0, len(m.byTriple))
	for t := range m.byTriple {
		triples = append(triples, t)
	}
	sort.Slice(triples, func(i, j int) bool {
		a, b := triples[i], triples[j]
		if a.Feature != b.Feature {
			return a.Feature < b.Feature
		}
		if a.Scan != b.Scan {
			return a.Scan < b.Scan
		}
		return a.Charge < b.Charge
	})

	for _, p := range proteins {
		pid := ProteinID(len(m.proteins))
		m.proteins = append(m.proteins, p.Accession)
		m.proteinIndex[p.Accession] = pid

		col := m.lp.AddColumn(fmt.Sprintf("p_%s", p.Accession), 0, 1, lambda*p.CoverageWeight, lp.Continuous)
		m.proteinVar[pid] = col

		coeffs := map[lp.ColID]float64{col: -1}
		for _, t := range triples {
			qv, ok := q(t, p.Accession)
			if !ok || qv == 0 {
				continue
			}
			coeffs[lp.ColID(m.byTriple[t])] += qv
		}
		rid, err := m.lp.AddRow(fmt.Sprintf("cov_%s", p.Accession), coeffs, 0, math.Inf(1), lp.GE)
		if err != nil {
			return err
		}
		m.proteinRow[pid] = rid
	}
	return nil
}

// FixIncluded couples an already-accepted inclusion-list variable to
// 1 (§4.8.3.6): x >= 1 and x <= 1.
func (m *Model) FixIncluded(t IndexTriple) error {
	vid, ok := m.byTriple[t]
	if !ok {
		return perr.Wrapf(perr.IndexOutOfRange, "pslp: %+v is not a variable in this model", t)
	}
	return m.lp.SetBoundsCol(lp.ColID(vid), 1, 1)
}

// Solve runs backend over the underlying LP/MIP once (non-sequential
// mode). Infeasible/Undefined are returned as part of Status(), never
// as an error (§4.8.6).
func (m *Model) Solve(backend lp.Backend) error { return m.lp.Solve(backend) }

// Status returns the most recent solve's solver-independent status.
func (m *Model) Status() lp.Status { return m.lp.Status() }

// Value returns variable t's value from the most recent solve.
func (m *Model) Value(t IndexTriple) (float64, error) {
	vid, ok := m.byTriple[t]
	if !ok {
		return 0, perr.Wrapf(perr.IndexOutOfRange, "pslp: %+v is not a variable in this model", t)
	}
	return m.lp.Value(lp.ColID(vid))
}

// ObjectiveValue returns the most recent solve's objective value.
func (m *Model) ObjectiveValue() float64 { return m.lp.ObjectiveValue() }

// StepResult is one sequential-iteration round's outcome (§4.8.5).
type StepResult struct {
	NewlySolved []IndexTriple
	Status      lp.Status
}

// SolveSequential implements the sequential/iterative scheduling mode
// (§4.8.5): repeatedly solve, record variables newly set to 1, fix
// them (so later rounds never unselect them), re-bound the step row so
// the next round admits at most stepSize variables beyond those already
// fixed, optionally widen the RT-bin window via widenRTBin, and
// re-solve. Iteration stops when a round solves no new variable or the
// inclusion-list cap is reached.
func (m *Model) SolveSequential(backend lp.Backend, stepSize int, widenRTBin func(round int)) ([]StepResult, error) {
	if !m.hasStepRow {
		allCols := make(map[lp.ColID]float64, len(m.byTriple))
		for _, v := range m.byTriple {
			allCols[lp.ColID(v)] = 1
		}
		rid, err := m.lp.AddRow("step", allCols, math.Inf(-1), float64(stepSize), lp.LE)
		if err != nil {
			return nil, err
		}
		m.stepRow = rid
		m.hasStepRow = true
	}

	solved := make(map[IndexTriple]bool)
	var results []StepResult
	for round := 0; len(solved) < int(m.cfg.InclusionListCap); round++ {
		// Fixed variables from earlier rounds stay in the step row, so
		// its bound is what is already fixed plus one round's stepSize.
		if err := m.lp.SetBoundsRow(m.stepRow, math.Inf(-1), float64(len(solved)+stepSize)); err != nil {
			return results, err
		}
		if widenRTBin != nil {
			widenRTBin(round)
		}
		if err := m.lp.Solve(backend); err != nil {
			return results, err
		}
		status := m.lp.Status()

		var newly []IndexTriple
		for _, t := range sortedTriples(m.byTriple) {
			if solved[t] {
				continue
			}
			vid := m.byTriple[t]
			val, err := m.lp.Value(lp.ColID(vid))
			if err != nil {
				return results, err
			}
			if val > 0.5 {
				solved[t] = true
				newly = append(newly, t)
				if err := m.lp.SetBoundsCol(lp.ColID(vid), 1, 1); err != nil {
					return results, err
				}
			}
		}
		results = append(results, StepResult{NewlySolved: newly, Status: status})
		if len(newly) == 0 {
			break
		}
	}
	return results, nil
}

func sortedTriples(m map[IndexTriple]VariableID) []IndexTriple {
	out := make([]IndexTriple, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Feature != b.Feature {
			return a.Feature < b.Feature
		}
		if a.Scan != b.Scan {
			return a.Scan < b.Scan
		}
		return a.Charge < b.Charge
	})
	return out
}

func sortedIntKeys(m map[int]float64) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func sortedScanVarKeys(m map[int][]lp.ColID) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func uniformCoeffs(cols []lp.ColID, c float64) map[lp.ColID]float64 {
	out := make(map[lp.ColID]float64, len(cols))
	for _, col := range cols {
		out[col] = c
	}
	return out
}
