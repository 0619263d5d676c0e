package lp

import "sort"

// GreedyBackend is the fast, incomplete back-end used by PSLP's
// sequential/iterative mode (§4.8.5), where repeated re-solves must
// be cheap. It processes columns in one sorted pass (by
// sense-adjusted reduced weight) and admits a column to 1 only while
// every row it touches still has remaining capacity, following the
// teacher's own preference for a single sorted-stream pass over
// re-deriving structure (cmd/ins/fragment.go's merge). It always
// reports Feasible, never Optimal.
type GreedyBackend struct{}

func (GreedyBackend) Solve(m *Model) (Status, []float64, float64, error) {
	n := len(m.cols)
	order := make([]int, 0, n)
	for i, c := range m.cols {
		if !c.deleted {
			order = append(order, i)
		}
	}
	sort.Slice(order, func(a, b int) bool {
		wa, wb := m.cols[order[a]].Obj, m.cols[order[b]].Obj
		if m.sense == Max {
			return wa > wb
		}
		return wa < wb
	})

	x := make([]float64, n)
	for i, c := range m.cols {
		x[i] = c.LB
	}

	remaining := make([]float64, len(m.rows))
	for ri, r := range m.rows {
		if r.deleted {
			remaining[ri] = r.UB
			continue
		}
		switch r.Kind {
		case LE, EQ, Range:
			remaining[ri] = r.UB
		case GE:
			remaining[ri] = 1e18 // unbounded above; GE rows never block greedy admission
		}
	}

	rowsByCol := make([][]int, n)
	for ri, r := range m.rows {
		if r.deleted {
			continue
		}
		for _, e := range r.entries {
			rowsByCol[e.Col] = append(rowsByCol[e.Col], ri)
		}
	}

	// Columns already fixed to a non-zero value (SolveSequential's
	// SetBoundsCol(id, 1, 1) between rounds) still consume row capacity
	// and still contribute to the objective, even though the admission
	// loop below skips them (ub<=LB). Account for them up front so a
	// later round never admits a column past the capacity a prior
	// round's fixed selection already used.
	var obj float64
	for i, c := range m.cols {
		if c.deleted || c.LB <= 0 || c.UB != c.LB {
			continue
		}
		obj += c.Obj * c.LB
		for _, ri := range rowsByCol[i] {
			r := m.rows[ri]
			remaining[ri] -= coeffOf(r, ColID(i)) * c.LB
		}
	}

	for _, ci := range order {
		col := m.cols[ci]
		ub := col.UB
		if ub <= col.LB {
			continue
		}
		fits := true
		for _, ri := range rowsByCol[ci] {
			r := m.rows[ri]
			coeff := coeffOf(r, ColID(ci))
			if coeff > 0 && remaining[ri]-coeff < -1e-9 {
				fits = false
				break
			}
		}
		if !fits {
			continue
		}
		x[ci] = ub
		obj += col.Obj * ub
		for _, ri := range rowsByCol[ci] {
			r := m.rows[ri]
			remaining[ri] -= coeffOf(r, ColID(ci)) * ub
		}
	}

	return Feasible, x, obj, nil
}

func coeffOf(r Row, col ColID) float64 {
	for _, e := range r.entries {
		if e.Col == col {
			return e.Coeff
		}
	}
	return 0
}
