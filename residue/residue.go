// Package residue holds the process-wide immutable amino-acid residue
// and modification mass tables. A Catalogue is built once with
// NewCatalogue and passed by shared ownership into every component
// constructor that needs residue chemistry (tagger, decoy, iel);
// nothing in this package is a package-level singleton, per the
// "explicit registries" design note.
package residue

import "github.com/biogo/biogo/alphabet"

// Monoisotopic residue masses (Da) for the twenty standard amino
// acids, keyed by single-letter code from biogo's Protein alphabet.
var standardMonoisotopic = map[byte]float64{
	'G': 57.02146, 'A': 71.03711, 'S': 87.03203, 'P': 97.05276,
	'V': 99.06841, 'T': 101.04768, 'C': 103.00919, 'L': 113.08406,
	'I': 113.08406, 'N': 114.04293, 'D': 115.02694, 'Q': 128.05858,
	'K': 128.09496, 'E': 129.04259, 'M': 131.04049, 'H': 137.05891,
	'F': 147.06841, 'R': 156.10111, 'Y': 163.06333, 'W': 186.07931,
}

// Water is the monoisotopic mass (Da) of the H2O added for a peptide's
// free N- and C-termini.
const Water = 18.010565

// Proton is the monoisotopic mass (Da) of a proton, used to convert a
// neutral monoisotopic mass to an m/z at a given charge.
const Proton = 1.007276

// Modification is a named mass delta applied to a specific residue.
type Modification struct {
	Name    string
	Residue byte // '\x00' files the mod under residue code 0, which no residue lookup here returns
	DeltaDa float64
	Fixed   bool // fixed mods apply to every occurrence; variable mods branch
}

// Catalogue is the immutable residue+modification table. The zero
// value is not usable; construct with NewCatalogue.
type Catalogue struct {
	residueMass map[byte]float64
	alphabet    alphabet.Alphabet
	fixed       map[byte][]Modification
	variable    map[byte][]Modification
	byName      map[string]Modification
}

// NewCatalogue builds a Catalogue seeded with the twenty standard
// monoisotopic residue masses plus any supplied modifications. The
// returned Catalogue is never mutated after construction.
func NewCatalogue(mods ...Modification) *Catalogue {
	c := &Catalogue{
		residueMass: make(map[byte]float64, len(standardMonoisotopic)),
		alphabet:    alphabet.Protein,
		fixed:       make(map[byte][]Modification),
		variable:    make(map[byte][]Modification),
		byName:      make(map[string]Modification, len(mods)),
	}
	for r, m := range standardMonoisotopic {
		c.residueMass[r] = m
	}
	for _, m := range mods {
		c.byName[m.Name] = m
		if m.Fixed {
			c.fixed[m.Residue] = append(c.fixed[m.Residue], m)
		} else {
			c.variable[m.Residue] = append(c.variable[m.Residue], m)
		}
	}
	return c
}

// ResidueMass returns the monoisotopic mass of a single residue code
// and whether it is known to the catalogue.
func (c *Catalogue) ResidueMass(residue byte) (float64, bool) {
	m, ok := c.residueMass[residue]
	return m, ok
}

// FixedMods returns the fixed modifications registered for residue.
// Modifications registered with Residue == 0 are returned only for
// residue 0; they are not applied to other residues or to peptide
// termini by MassOptions or PeptideMonoMass.
func (c *Catalogue) FixedMods(residue byte) []Modification {
	return c.fixed[residue]
}

// VariableMods returns the variable modifications that may apply to
// residue; each multiplies the number of possible tag walks.
func (c *Catalogue) VariableMods(residue byte) []Modification {
	return c.variable[residue]
}

// Residues returns every residue code known to the catalogue, in no
// particular order.
func (c *Catalogue) Residues() []byte {
	out := make([]byte, 0, len(c.residueMass))
	for r := range c.residueMass {
		out = append(out, r)
	}
	return out
}

// MassOptions returns every mass a single occurrence of residue can
// contribute: the base mass with any fixed modification already
// folded in, plus one alternative per variable modification (§4.6:
// "variable modifications multiply possible walks"). It reports
// (nil, false) for an unknown residue.
func (c *Catalogue) MassOptions(residue byte) ([]float64, bool) {
	base, ok := c.ResidueMass(residue)
	if !ok {
		return nil, false
	}
	for _, m := range c.FixedMods(residue) {
		base += m.DeltaDa
	}
	opts := []float64{base}
	for _, m := range c.VariableMods(residue) {
		opts = append(opts, base+m.DeltaDa)
	}
	return opts, true
}

// ModByName looks up a modification by its catalogue key.
func (c *Catalogue) ModByName(name string) (Modification, bool) {
	m, ok := c.byName[name]
	return m, ok
}

// PeptideMonoMass returns the monoisotopic neutral mass of seq,
// including N/C-terminal water and any fixed modifications registered
// in the catalogue, or false if seq contains an unknown residue.
func (c *Catalogue) PeptideMonoMass(seq string) (float64, bool) {
	mass := Water
	for i := 0; i < len(seq); i++ {
		r := seq[i]
		rm, ok := c.ResidueMass(r)
		if !ok {
			return 0, false
		}
		mass += rm
		for _, m := range c.FixedMods(r) {
			mass += m.DeltaDa
		}
	}
	return mass, true
}

// MZForCharge converts a neutral monoisotopic mass to an m/z at the
// given (positive) charge.
func MZForCharge(neutralMass float64, charge int) float64 {
	z := float64(charge)
	return (neutralMass + z*Proton) / z
}
