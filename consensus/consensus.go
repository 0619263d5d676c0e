// Package consensus implements the MS2 consensus spectrum (§4.4, C4):
// a fragment-intensity-weighted average precursor with Dixon-style
// outlier removal in the RT dimension, grounded on
// MS2ConsensusSpectrum.cpp's aggregate-recompute-on-every-insert
// contract.
package consensus

import (
	"math"
	"sort"

	"github.com/pslpcore/pslp/fragment"
	"github.com/pslpcore/pslp/idmodel"
	"github.com/pslpcore/pslp/perr"
)

// WeightedFragment is a fragment ion plus the precursor-level scalars
// it contributes to the aggregate (MS2ConsensusSpectrum.cpp treats
// each fragment as carrying its own view of the precursor's RT/charge/
// scan bounds; those are averaged the same way intensities are).
type WeightedFragment struct {
	fragment.Ion
	PrecursorMZ float64
	RT          float64
	RTStart     float64
	RTEnd       float64
	Charge      float64
	ApexScan    float64
	StartScan   float64
	EndScan     float64
}

// Spectrum is the MS2 consensus spectrum: every scalar aggregate is
// the intensity-weighted mean over the current Fragments, recomputed
// after every AddFragment and after every RemoveOutliers call.
type Spectrum struct {
	PrecursorMZ float64
	RT          float64
	RTStart     float64
	RTEnd       float64
	Charge      int
	ApexScan    int
	StartScan   int
	EndScan     int

	store      *fragment.Store
	weighted   []WeightedFragment
	tolPPM     float64
}

// New returns an empty consensus spectrum that looks up fragments with
// tolPPM ppm tolerance.
func New(tolPPM float64) *Spectrum {
	return &Spectrum{store: fragment.NewStore(tolPPM), tolPPM: tolPPM}
}

// AddFragment inserts f into the consensus, then recomputes every
// aggregate scalar as the intensity-weighted mean over the resulting
// fragment set (§4.4 step 2).
func (s *Spectrum) AddFragment(f WeightedFragment) {
	s.store.Insert(f.Ion)
	s.weighted = append(s.weighted, f)
	s.recompute()
}

func (s *Spectrum) recompute() {
	if len(s.weighted) == 0 {
		return
	}
	var w, mz, rt, rtStart, rtEnd, charge, apex, start, end float64
	for _, f := range s.weighted {
		wi := f.Intensity
		w += wi
		mz += wi * f.PrecursorMZ
		rt += wi * f.RT
		rtStart += wi * f.RTStart
		rtEnd += wi * f.RTEnd
		charge += wi * f.Charge
		apex += wi * f.ApexScan
		start += wi * f.StartScan
		end += wi * f.EndScan
	}
	if w == 0 {
		return
	}
	s.PrecursorMZ = mz / w
	s.RT = rt / w
	s.RTStart = rtStart / w
	s.RTEnd = rtEnd / w
	s.Charge = int(charge / w)
	s.ApexScan = int(apex / w)
	s.StartScan = int(start / w)
	s.EndScan = int(end / w)
}

// FindFragment delegates to the store's ppm-tolerant lookup.
func (s *Spectrum) FindFragment(mz float64) (fragment.Ion, bool) {
	return s.store.FindNear(mz, s.tolPPM)
}

// Fragments returns every weighted fragment currently aggregated.
func (s *Spectrum) Fragments() []WeightedFragment { return s.weighted }

// RemoveOutliers applies Dixon-style iterative outlier rejection on
// the RT dimension at the fixed significance level the tabulated
// critical values in dixonCritical05 support (alpha=0.05), removing
// flagged fragments and rerunning the aggregation. It is a no-op on a
// single-fragment spectrum and an error on an empty one.
func (s *Spectrum) RemoveOutliers() error {
	if len(s.weighted) == 0 {
		return perr.Wrap(perr.InvalidRange, "remove outliers on empty consensus spectrum")
	}
	if len(s.weighted) == 1 {
		return nil
	}
	for {
		idx, ok := dixonOutlierIndex(s.weighted)
		if !ok {
			break
		}
		s.weighted = append(s.weighted[:idx], s.weighted[idx+1:]...)
		if len(s.weighted) <= 2 {
			// Dixon's test is undefined below 3 points; stop rejecting.
			break
		}
	}
	s.rebuildStore()
	s.recompute()
	return nil
}

func (s *Spectrum) rebuildStore() {
	s.store = fragment.NewStore(s.tolPPM)
	for _, f := range s.weighted {
		s.store.Insert(f.Ion)
	}
}

// dixonCritical05 holds the Dixon Q-test critical values at alpha=0.05
// for sample sizes 3..30, the classic table used by
// StatisticFunctions.h-style outlier rejection. dixonQCritical uses
// 0.28 for sizes above 30, and the value of the nearest smaller
// tabulated size for untabulated sizes in between.
var dixonCritical05 = map[int]float64{
	3: 0.970, 4: 0.829, 5: 0.710, 6: 0.625, 7: 0.568, 8: 0.526,
	9: 0.493, 10: 0.466, 12: 0.426, 14: 0.399, 16: 0.380, 18: 0.365,
	20: 0.352, 25: 0.327, 30: 0.310,
}

func dixonQCritical(n int) float64 {
	if v, ok := dixonCritical05[n]; ok {
		return v
	}
	if n > 30 {
		return 0.28
	}
	// Use the value of the nearest tabulated size below n.
	best := 0.970
	for size, q := range dixonCritical05 {
		if size <= n && q < best {
			best = q
		}
	}
	return best
}

// dixonOutlierIndex applies a single pass of Dixon's Q test to the RT
// values of frags, returning the index (into frags) of the most
// extreme value if it is rejected at the dixonCritical05 significance
// level.
func dixonOutlierIndex(frags []WeightedFragment) (int, bool) {
	n := len(frags)
	if n < 3 {
		return 0, false
	}
	type rtIdx struct {
		rt  float64
		idx int
	}
	sorted := make([]rtIdx, n)
	for i, f := range frags {
		sorted[i] = rtIdx{rt: f.RT, idx: i}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].rt < sorted[j].rt })

	rng := sorted[n-1].rt - sorted[0].rt
	if rng == 0 {
		return 0, false
	}

	qLow := math.Abs(sorted[1].rt-sorted[0].rt) / rng
	qHigh := math.Abs(sorted[n-1].rt-sorted[n-2].rt) / rng
	qCrit := dixonQCritical(n)

	switch {
	case qHigh >= qLow && qHigh > qCrit:
		return sorted[n-1].idx, true
	case qLow > qCrit:
		return sorted[0].idx, true
	default:
		return 0, false
	}
}

// Sim computes the elution-shape similarity between s and other: a
// weighted sum of absolute RT-endpoint differences (start/apex/end).
// Smaller values mean more similar shapes. The apex term uses the
// midpoint of RTStart and RTEnd. Package pslp does not call Sim.
func (s *Spectrum) Sim(other *Spectrum) float64 {
	const wStart, wApex, wEnd = 1.0, 2.0, 1.0
	apexSelf := (s.RTStart + s.RTEnd) / 2
	apexOther := (other.RTStart + other.RTEnd) / 2
	return wStart*math.Abs(s.RTStart-other.RTStart) +
		wApex*math.Abs(apexSelf-apexOther) +
		wEnd*math.Abs(s.RTEnd-other.RTEnd)
}

// FromFeature seeds an empty consensus spectrum's precursor m/z, RT
// and charge from an upstream Feature, useful before the first
// AddFragment call. Scan and RT bounds are left at zero.
func FromFeature(f idmodel.Feature, tolPPM float64) *Spectrum {
	s := New(tolPPM)
	s.PrecursorMZ = f.MZ
	s.RT = f.RT
	s.Charge = int(f.Charge)
	return s
}
