// Package lcprofile implements the per-feature LC elution profile
// (§4.3, C3): a list of elution signals, apex tracking, and peak-area
// accumulation. It does not compute weighted-mean elution parameters,
// and package consensus does not use it.
package lcprofile

import "sort"

// MS1Signal is one observed (scan, rt, intensity) sample of a
// feature's elution.
type MS1Signal struct {
	ScanID    int
	RT        float64
	Intensity float64
}

// Profile is the per-feature list of elution signals, grouped into
// the feature's own elution window ("elution") and signals observed
// outside it ("outside") but still attributed to the same feature
// (e.g. shoulder scans kept for diagnostic purposes).
//
// Invariant: once at least one elution signal has been added,
// Apex.Intensity > 0 and PeakArea > 0. Apex.Intensity starts at -1 to
// mark "uninitialised" per §3.
type Profile struct {
	Apex     MS1Signal
	elution  []MS1Signal // kept sorted by ScanID
	outside  []MS1Signal // kept sorted by ScanID
	PeakArea float64
}

// New returns an empty Profile with Apex.Intensity < 0, marking it
// uninitialised.
func New() *Profile {
	return &Profile{Apex: MS1Signal{Intensity: -1}}
}

// AddElution records a signal as part of the feature's own elution
// window, updates the apex if it is the new maximum, and recomputes
// PeakArea as the trapezoid-free sum Σ intensity·Δrt used by §3
// (rectangular integration over the per-scan intensity, consistent
// with the XIC kernel's own summation convention in package pslp).
func (p *Profile) AddElution(sig MS1Signal) {
	p.insertSorted(&p.elution, sig)
	if sig.Intensity > p.Apex.Intensity {
		p.Apex = sig
	}
	p.recomputePeakArea()
}

// AddOutside records a signal observed outside the feature's elution
// window. It never affects Apex or PeakArea.
func (p *Profile) AddOutside(sig MS1Signal) {
	p.insertSorted(&p.outside, sig)
}

// Elution returns the elution-window signals in ascending scan order.
func (p *Profile) Elution() []MS1Signal { return p.elution }

// Outside returns the outside-window signals in ascending scan order.
func (p *Profile) Outside() []MS1Signal { return p.outside }

func (p *Profile) insertSorted(dst *[]MS1Signal, sig MS1Signal) {
	s := *dst
	i := sort.Search(len(s), func(i int) bool { return s[i].ScanID >= sig.ScanID })
	s = append(s, MS1Signal{})
	copy(s[i+1:], s[i:])
	s[i] = sig
	*dst = s
}

func (p *Profile) recomputePeakArea() {
	if len(p.elution) < 2 {
		if len(p.elution) == 1 {
			// A single scan has no neighbouring Δrt to integrate over;
			// treat it as a unit-width rectangle so PeakArea > 0 holds
			// per the package invariant, consistent with AddElution's
			// rectangular-integration convention.
			p.PeakArea = p.elution[0].Intensity
		}
		return
	}
	var area float64
	for i := 1; i < len(p.elution); i++ {
		dRT := p.elution[i].RT - p.elution[i-1].RT
		area += p.elution[i].Intensity * dRT
	}
	p.PeakArea = area
}

// ShiftRT adds delta to every recorded signal's RT and to Apex.RT.
// Intensities are never mutated by a time-axis shift.
func (p *Profile) ShiftRT(delta float64) {
	p.Apex.RT += delta
	for i := range p.elution {
		p.elution[i].RT += delta
	}
	for i := range p.outside {
		p.outside[i].RT += delta
	}
}
