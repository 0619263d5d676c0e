package lp

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// GonumBackend is the production LP/MIP back-end: it relaxes every
// Integer/Binary column to continuous, solves the relaxation with
// gonum's revised-simplex implementation, and layers a depth-first
// branch-and-bound search on top for integrality. PSLP's variables
// are all binary, so the search space per sub-problem is small; depth
// is still capped defensively.
type GonumBackend struct {
	// Tol is the feasibility tolerance passed to gonum's Simplex.
	// Zero means the package default (1e-10) is used.
	Tol float64
	// MaxDepth bounds the branch-and-bound recursion; a relaxed,
	// possibly-fractional solution is accepted as Feasible once the
	// cap is hit rather than searching indefinitely. Zero means 64.
	MaxDepth int
}

const defaultSimplexTol = 1e-10
const defaultMaxBBDepth = 64

type bounds map[int][2]float64

func (g *GonumBackend) Solve(m *Model) (Status, []float64, float64, error) {
	maxDepth := g.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxBBDepth
	}
	status, x, obj := g.branchAndBound(m, bounds{}, 0, maxDepth)
	return status, x, obj, nil
}

func (g *GonumBackend) branchAndBound(m *Model, bnds bounds, depth, maxDepth int) (Status, []float64, float64) {
	status, y, obj, err := g.solveRelaxation(m, bnds)
	if err != nil || (status != Optimal && status != Feasible) {
		return status, nil, 0
	}

	idx, bestFrac := -1, 1e-6
	for i, c := range m.cols {
		if c.deleted || c.Kind == Continuous {
			continue
		}
		frac := y[i] - math.Floor(y[i])
		dist := math.Min(frac, 1-frac)
		if dist > bestFrac {
			bestFrac, idx = dist, i
		}
	}
	if idx == -1 {
		return Optimal, y, obj
	}
	if depth >= maxDepth {
		return Feasible, y, obj
	}

	floorVal := math.Floor(y[idx])
	lb, ub := m.cols[idx].LB, m.cols[idx].UB
	if b, ok := bnds[idx]; ok {
		lb, ub = b[0], b[1]
	}

	down := cloneBounds(bnds)
	down[idx] = [2]float64{lb, floorVal}
	s1, x1, o1 := g.branchAndBound(m, down, depth+1, maxDepth)

	up := cloneBounds(bnds)
	up[idx] = [2]float64{floorVal + 1, ub}
	s2, x2, o2 := g.branchAndBound(m, up, depth+1, maxDepth)

	return pickBest(m.sense, s1, x1, o1, s2, x2, o2)
}

func cloneBounds(b bounds) bounds {
	out := make(bounds, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	return out
}

func pickBest(sense Sense, s1 Status, x1 []float64, o1 float64, s2 Status, x2 []float64, o2 float64) (Status, []float64, float64) {
	ok1 := s1 == Optimal || s1 == Feasible
	ok2 := s2 == Optimal || s2 == Feasible
	switch {
	case !ok1 && !ok2:
		return Infeasible, nil, 0
	case ok1 && !ok2:
		return s1, x1, o1
	case !ok1 && ok2:
		return s2, x2, o2
	}
	better := o1 >= o2
	if sense == Min {
		better = o1 <= o2
	}
	if better {
		return s1, x1, o1
	}
	return s2, x2, o2
}

// solveRelaxation solves the continuous relaxation of m with bnds
// overriding the affected columns' bounds, returning column values
// (indexed by ColID, original columns only — slacks are stripped)
// and the true objective value (sense-adjusted, shift-corrected).
func (g *GonumBackend) solveRelaxation(m *Model, bnds bounds) (Status, []float64, float64, error) {
	n := len(m.cols)
	shift := make([]float64, n)
	effUB := make([]float64, n)
	for i, c := range m.cols {
		lb, ub := c.LB, c.UB
		if b, ok := bnds[i]; ok {
			lb, ub = b[0], b[1]
		}
		if lb < 0 {
			lb = 0 // negative lower bounds are clamped to zero; PSLP columns are never negative
		}
		shift[i] = lb
		effUB[i] = ub
	}

	type sparseRow map[int]float64
	var sparse []sparseRow
	var rhs []float64
	totalVars := n
	addSlack := func() int {
		v := totalVars
		totalVars++
		return v
	}
	addEquality := func(row sparseRow, b float64) {
		if b < 0 {
			negated := make(sparseRow, len(row))
			for k, v := range row {
				negated[k] = -v
			}
			row, b = negated, -b
		}
		sparse = append(sparse, row)
		rhs = append(rhs, b)
	}

	for i := 0; i < n; i++ {
		if math.IsInf(effUB[i], 1) {
			continue
		}
		s := addSlack()
		addEquality(sparseRow{i: 1, s: 1}, effUB[i]-shift[i])
	}

	for _, r := range m.rows {
		if r.deleted {
			continue
		}
		offset := 0.0
		row := make(sparseRow, len(r.entries))
		for _, e := range r.entries {
			row[int(e.Col)] += e.Coeff
			offset += e.Coeff * shift[e.Col]
		}
		switch r.Kind {
		case LE:
			s := addSlack()
			row[s] = 1
			addEquality(row, r.UB-offset)
		case GE:
			s := addSlack()
			row[s] = -1
			addEquality(row, r.LB-offset)
		case EQ:
			addEquality(row, r.LB-offset)
		case Range:
			s := addSlack()
			row[s] = 1
			addEquality(row, r.UB-offset)
			span := r.UB - r.LB
			s2 := addSlack()
			addEquality(sparseRow{s: 1, s2: 1}, span)
		}
	}

	c := make([]float64, totalVars)
	objConst := 0.0
	for i, col := range m.cols {
		coeff := col.Obj
		if m.sense == Max {
			coeff = -coeff
		}
		c[i] = coeff
		objConst += col.Obj * shift[i]
	}

	A := mat.NewDense(len(sparse), totalVars, nil)
	for ri, row := range sparse {
		for ci, v := range row {
			A.Set(ri, ci, v)
		}
	}

	tol := g.Tol
	if tol <= 0 {
		tol = defaultSimplexTol
	}
	optF, y, err := lp.Simplex(c, A, rhs, tol, nil)
	if err != nil {
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "infeasible"):
			return Infeasible, nil, 0, nil
		case strings.Contains(msg, "unbounded"):
			return Unbounded, nil, 0, nil
		default:
			return Undefined, nil, 0, nil
		}
	}

	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = y[i] + shift[i]
	}
	cDotY := optF
	if m.sense == Max {
		cDotY = -optF
	}
	return Optimal, x, cDotY + objConst, nil
}
