package pslp

import (
	"errors"
	"testing"

	"github.com/pslpcore/pslp/idmodel"
	"github.com/pslpcore/pslp/lp"
	"github.com/pslpcore/pslp/perr"
)

func unitIntensity(scan, mzIdx int) float64 { return 1 }

func flatPrior(idmodel.Feature, int8) float64 { return 1 }
func flatRTProb(idmodel.Feature) float64      { return 1 }

func TestBuildOnEmptyFeaturesReturnsEmptyModel(t *testing.T) {
	_, err := Build(nil, unitIntensity, flatRTProb, flatPrior, Config{Charges: []int8{2}})
	if !errors.Is(err, perr.EmptyModel) {
		t.Fatalf("expected EmptyModel, got %v", err)
	}
}

func TestBuildFiltersChargesNotAllowedByFeature(t *testing.T) {
	feats := []idmodel.Feature{
		{
			ID:      1,
			Charges: []int8{2},
			MassRange: []idmodel.MassRangeScan{
				{Scan: 10, MZLoIdx: 0, MZHiIdx: 0},
			},
		},
	}
	cfg := Config{Charges: []int8{1, 2}, PerFeatureCap: 1, RTBinCapacity: 10, InclusionListCap: 10}
	m, err := Build(feats, unitIntensity, flatRTProb, flatPrior, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := m.byTriple[IndexTriple{Feature: 1, Scan: 10, Charge: 1}]; ok {
		t.Fatalf("charge 1 should have been filtered out (feature only allows charge 2)")
	}
	if _, ok := m.byTriple[IndexTriple{Feature: 1, Scan: 10, Charge: 2}]; !ok {
		t.Fatalf("expected a variable for the allowed charge 2")
	}
}

func TestPerFeatureCapLimitsSelection(t *testing.T) {
	feats := []idmodel.Feature{
		{
			ID:      1,
			Charges: []int8{2},
			MassRange: []idmodel.MassRangeScan{
				{Scan: 10, MZLoIdx: 0, MZHiIdx: 0},
				{Scan: 11, MZLoIdx: 0, MZHiIdx: 0},
			},
		},
	}
	cfg := Config{Charges: []int8{2}, PerFeatureCap: 1, RTBinCapacity: 10, InclusionListCap: 10}
	m, err := Build(feats, unitIntensity, flatRTProb, flatPrior, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := m.Solve(&lp.GonumBackend{}); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	total := 0.0
	for _, scan := range []int{10, 11} {
		v, err := m.Value(IndexTriple{Feature: 1, Scan: scan, Charge: 2})
		if err != nil {
			t.Fatalf("Value: %v", err)
		}
		total += v
	}
	if total > 1.0001 {
		t.Fatalf("per-feature cap violated: total selected across scans = %v", total)
	}
}

func TestRTBinCapacityLimitsConcurrentScans(t *testing.T) {
	feats := []idmodel.Feature{
		{ID: 1, Charges: []int8{2}, MassRange: []idmodel.MassRangeScan{{Scan: 5, MZLoIdx: 0, MZHiIdx: 0}}},
		{ID: 2, Charges: []int8{2}, MassRange: []idmodel.MassRangeScan{{Scan: 5, MZLoIdx: 0, MZHiIdx: 0}}},
		{ID: 3, Charges: []int8{2}, MassRange: []idmodel.MassRangeScan{{Scan: 5, MZLoIdx: 0, MZHiIdx: 0}}},
	}
	cfg := Config{Charges: []int8{2}, PerFeatureCap: 1, RTBinCapacity: 1, InclusionListCap: 10}
	m, err := Build(feats, unitIntensity, flatRTProb, flatPrior, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := m.Solve(&lp.GonumBackend{}); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	total := 0.0
	for _, f := range feats {
		v, _ := m.Value(IndexTriple{Feature: f.ID, Scan: 5, Charge: 2})
		total += v
	}
	if total > 1.0001 {
		t.Fatalf("RT-bin capacity violated: total selected in scan 5 = %v", total)
	}
}

func TestInclusionListCapBindsAcrossFeatures(t *testing.T) {
	var feats []idmodel.Feature
	for i := idmodel.FeatureID(1); i <= 5; i++ {
		feats = append(feats, idmodel.Feature{
			ID:      i,
			Charges: []int8{2},
			MassRange: []idmodel.MassRangeScan{
				{Scan: int(i), MZLoIdx: 0, MZHiIdx: 0},
			},
		})
	}
	cfg := Config{Charges: []int8{2}, PerFeatureCap: 1, RTBinCapacity: 10, InclusionListCap: 2}
	m, err := Build(feats, unitIntensity, flatRTProb, flatPrior, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := m.Solve(&lp.GonumBackend{}); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	total := 0.0
	for _, f := range feats {
		v, _ := m.Value(IndexTriple{Feature: f.ID, Scan: int(f.ID), Charge: 2})
		total += v
	}
	if total > 2.0001 {
		t.Fatalf("inclusion-list cap violated: total selected = %v", total)
	}
}

func TestFixIncludedForcesVariableToOne(t *testing.T) {
	feats := []idmodel.Feature{
		{ID: 1, Charges: []int8{2}, MassRange: []idmodel.MassRangeScan{{Scan: 1, MZLoIdx: 0, MZHiIdx: 0}}},
	}
	cfg := Config{Charges: []int8{2}, PerFeatureCap: 1, RTBinCapacity: 10, InclusionListCap: 10}
	m, err := Build(feats, unitIntensity, flatRTProb, flatPrior, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	triple := IndexTriple{Feature: 1, Scan: 1, Charge: 2}
	if err := m.FixIncluded(triple); err != nil {
		t.Fatalf("FixIncluded: %v", err)
	}
	if err := m.Solve(&lp.GonumBackend{}); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	v, err := m.Value(triple)
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v < 0.999 {
		t.Fatalf("expected fixed variable to solve to 1, got %v", v)
	}
}

func TestSequentialSolveTerminatesAndRespectsStepSize(t *testing.T) {
	var feats []idmodel.Feature
	for i := idmodel.FeatureID(1); i <= 4; i++ {
		feats = append(feats, idmodel.Feature{
			ID:      i,
			Charges: []int8{2},
			MassRange: []idmodel.MassRangeScan{
				{Scan: int(i), MZLoIdx: 0, MZHiIdx: 0},
			},
		})
	}
	cfg := Config{Charges: []int8{2}, PerFeatureCap: 1, RTBinCapacity: 10, InclusionListCap: 4}
	m, err := Build(feats, unitIntensity, flatRTProb, flatPrior, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	results, err := m.SolveSequential(lp.GreedyBackend{}, 1, nil)
	if err != nil {
		t.Fatalf("SolveSequential: %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("expected at least one round")
	}
	totalSolved := 0
	for _, r := range results {
		if len(r.NewlySolved) > 1 {
			t.Fatalf("step size 1 violated: round solved %d variables", len(r.NewlySolved))
		}
		totalSolved += len(r.NewlySolved)
	}
	if totalSolved > 4 {
		t.Fatalf("expected at most 4 variables solved total (inclusion cap), got %d", totalSolved)
	}
}

func TestAddProteinCoverageOnEmptyModelFails(t *testing.T) {
	m := &Model{lp: lp.NewModel(), byTriple: map[IndexTriple]VariableID{}}
	err := m.AddProteinCoverage(nil, 1, func(IndexTriple, idmodel.ProteinAccession) (float64, bool) { return 0, false })
	if !errors.Is(err, perr.EmptyModel) {
		t.Fatalf("expected EmptyModel, got %v", err)
	}
}

func TestAddProteinCoverageBuildsSaturatingRow(t *testing.T) {
	feats := []idmodel.Feature{
		{ID: 1, Charges: []int8{2}, MassRange: []idmodel.MassRangeScan{{Scan: 1, MZLoIdx: 0, MZHiIdx: 0}}},
		{ID: 2, Charges: []int8{2}, MassRange: []idmodel.MassRangeScan{{Scan: 2, MZLoIdx: 0, MZHiIdx: 0}}},
	}
	cfg := Config{Charges: []int8{2}, PerFeatureCap: 1, RTBinCapacity: 10, InclusionListCap: 10}
	m, err := Build(feats, unitIntensity, flatRTProb, flatPrior, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	proteins := []ProteinInput{{Accession: "P1", CoverageWeight: 1}}
	q := func(t IndexTriple, protein idmodel.ProteinAccession) (float64, bool) {
		if t.Feature == 1 {
			return 0.5, true
		}
		return 0, false
	}
	if err := m.AddProteinCoverage(proteins, 2, q); err != nil {
		t.Fatalf("AddProteinCoverage: %v", err)
	}
	if err := m.Solve(&lp.GonumBackend{}); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	// p_a should not exceed q*x for the only feature contributing evidence.
	v1, _ := m.Value(IndexTriple{Feature: 1, Scan: 1, Charge: 2})
	pVal, err := m.lp.Value(m.proteinVar[m.proteinIndex["P1"]])
	if err != nil {
		t.Fatalf("protein Value: %v", err)
	}
	if pVal > 0.5*v1+1e-6 {
		t.Fatalf("protein coverage row violated: p=%v, 0.5*x=%v", pVal, 0.5*v1)
	}
}
