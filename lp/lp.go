// Package lp implements the solver-independent LP/MIP driver (§4.9,
// C9): a Model of columns and rows, two interchangeable back-ends, and
// LP/MPS text round-tripping. Grounded on §4.9's thin-abstraction
// contract; row deletion is tombstoning, never renumbering, per §4.8.4
// and §9's IndexTriple-stability requirement.
package lp

import (
	"sort"

	"github.com/pslpcore/pslp/perr"
)

// ColID and RowID are positional indices into Model.cols/rows. They
// stay valid across DeleteRow (tombstoning never renumbers).
type ColID int32
type RowID int32

// ColKind distinguishes continuous decision variables from the
// integer and binary variables PSLP's constraints are built from.
type ColKind uint8

const (
	Continuous ColKind = iota
	Integer
	Binary
)

// RowKind is the inequality/equality sense of a row's bound.
type RowKind uint8

const (
	LE RowKind = iota
	GE
	EQ
	Range
)

// Sense is the optimisation direction.
type Sense uint8

const (
	Min Sense = iota
	Max
)

// Status is the solver-independent outcome of a solve, returned as a
// value (§4.8.6: infeasibility and timeouts are never errors).
type Status uint8

const (
	Undefined Status = iota
	Feasible
	Optimal
	Infeasible
	Unbounded
)

func (s Status) String() string {
	switch s {
	case Feasible:
		return "Feasible"
	case Optimal:
		return "Optimal"
	case Infeasible:
		return "Infeasible"
	case Unbounded:
		return "Unbounded"
	default:
		return "Undefined"
	}
}

// Column is one decision variable.
type Column struct {
	Name    string
	LB, UB  float64
	Obj     float64
	Kind    ColKind
	deleted bool
}

type entry struct {
	Col   ColID
	Coeff float64
}

// Row is one linear constraint.
type Row struct {
	Name    string
	entries []entry
	LB, UB  float64
	Kind    RowKind
	deleted bool
}

// Model is the mutable LP/MIP problem the back-ends solve.
type Model struct {
	cols []Column
	rows []Row
	sense Sense

	solution []float64
	objVal   float64
	status   Status
}

// NewModel returns an empty model with sense Min.
func NewModel() *Model { return &Model{} }

// AddColumn appends a new column and returns its stable ColID.
func (m *Model) AddColumn(name string, lb, ub, obj float64, kind ColKind) ColID {
	if kind == Binary {
		lb, ub = 0, 1
	}
	m.cols = append(m.cols, Column{Name: name, LB: lb, UB: ub, Obj: obj, Kind: kind})
	return ColID(len(m.cols) - 1)
}

// AddRow appends a new row over the given (col, coeff) pairs and
// returns its stable RowID.
func (m *Model) AddRow(name string, coeffs map[ColID]float64, lb, ub float64, kind RowKind) (RowID, error) {
	entries := make([]entry, 0, len(coeffs))
	for col, c := range coeffs {
		if int(col) < 0 || int(col) >= len(m.cols) {
			return 0, perr.Wrapf(perr.IndexOutOfRange, "column %d out of range", col)
		}
		entries = append(entries, entry{Col: col, Coeff: c})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Col < entries[j].Col })
	m.rows = append(m.rows, Row{Name: name, entries: entries, LB: lb, UB: ub, Kind: kind})
	return RowID(len(m.rows) - 1), nil
}

// SetBoundsCol updates an existing column's bounds.
func (m *Model) SetBoundsCol(id ColID, lb, ub float64) error {
	if !m.validCol(id) {
		return perr.Wrapf(perr.IndexOutOfRange, "column %d out of range", id)
	}
	m.cols[id].LB, m.cols[id].UB = lb, ub
	return nil
}

// SetBoundsRow updates an existing row's bounds.
func (m *Model) SetBoundsRow(id RowID, lb, ub float64) error {
	if !m.validRow(id) {
		return perr.Wrapf(perr.IndexOutOfRange, "row %d out of range", id)
	}
	m.rows[id].LB, m.rows[id].UB = lb, ub
	return nil
}

// SetObjective sets column id's objective coefficient.
func (m *Model) SetObjective(id ColID, c float64) error {
	if !m.validCol(id) {
		return perr.Wrapf(perr.IndexOutOfRange, "column %d out of range", id)
	}
	m.cols[id].Obj = c
	return nil
}

// SetSense sets the optimisation direction.
func (m *Model) SetSense(s Sense) { m.sense = s }

// Sense returns the optimisation direction.
func (m *Model) Sense() Sense { return m.sense }

// DeleteRow tombstones row id: its entries stop contributing to
// solves, but no RowID or ColID in the model shifts.
func (m *Model) DeleteRow(id RowID) error {
	if !m.validRow(id) {
		return perr.Wrapf(perr.IndexOutOfRange, "row %d out of range", id)
	}
	m.rows[id].deleted = true
	return nil
}

// DeleteColumn tombstones column id (fixes it at zero in every row
// that references it); it is never renumbered either.
func (m *Model) DeleteColumn(id ColID) error {
	if !m.validCol(id) {
		return perr.Wrapf(perr.IndexOutOfRange, "column %d out of range", id)
	}
	m.cols[id].deleted = true
	m.cols[id].LB, m.cols[id].UB = 0, 0
	return nil
}

// NonZeroColsOfRow returns the column ids with a non-zero coefficient
// in row id, in ascending column order.
func (m *Model) NonZeroColsOfRow(id RowID) ([]ColID, error) {
	if !m.validRow(id) {
		return nil, perr.Wrapf(perr.IndexOutOfRange, "row %d out of range", id)
	}
	out := make([]ColID, 0, len(m.rows[id].entries))
	for _, e := range m.rows[id].entries {
		if e.Coeff != 0 {
			out = append(out, e.Col)
		}
	}
	return out, nil
}

// Value returns column id's value from the most recent solve.
func (m *Model) Value(id ColID) (float64, error) {
	if !m.validCol(id) {
		return 0, perr.Wrapf(perr.IndexOutOfRange, "column %d out of range", id)
	}
	if int(id) >= len(m.solution) {
		return 0, nil
	}
	return m.solution[id], nil
}

// ObjectiveValue returns the objective value of the most recent solve.
func (m *Model) ObjectiveValue() float64 { return m.objVal }

// Status returns the status of the most recent solve.
func (m *Model) Status() Status { return m.status }

// NumColumns and NumRows report the model's (including tombstoned)
// column and row counts, matching the never-renumber contract.
func (m *Model) NumColumns() int { return len(m.cols) }
func (m *Model) NumRows() int    { return len(m.rows) }

func (m *Model) validCol(id ColID) bool { return int(id) >= 0 && int(id) < len(m.cols) }
func (m *Model) validRow(id RowID) bool { return int(id) >= 0 && int(id) < len(m.rows) }

// Backend solves a Model's current (non-tombstoned) rows/columns.
type Backend interface {
	Solve(m *Model) (Status, []float64, float64, error)
}

// Solve runs backend over m and records status/solution/objective on
// the model, matching the §4.8.6 failure model: EmptyModel is
// returned as an error only when the model has no usable columns;
// every other outcome, including Infeasible/Undefined, is recorded as
// a Status rather than an error.
func (m *Model) Solve(backend Backend) error {
	if m.activeColumnCount() == 0 {
		return perr.Wrap(perr.EmptyModel, "solve called with zero active columns")
	}
	status, x, obj, err := backend.Solve(m)
	if err != nil {
		return err
	}
	m.status = status
	if status == Optimal || status == Feasible {
		m.solution = x
		m.objVal = obj
	}
	return nil
}

func (m *Model) activeColumnCount() int {
	n := 0
	for _, c := range m.cols {
		if !c.deleted {
			n++
		}
	}
	return n
}
