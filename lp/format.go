package lp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pslpcore/pslp/perr"
)

// Format selects the LP/MPS text representation for Read/Write.
type Format uint8

const (
	LPFormat Format = iota
	MPSFormat
)

// Write serialises m to w in the given text format.
func Write(w io.Writer, m *Model, format Format) error {
	switch format {
	case LPFormat:
		return writeLP(w, m)
	case MPSFormat:
		return writeMPS(w, m)
	default:
		return perr.Wrap(perr.InvalidValue, "unknown lp format")
	}
}

// Read parses an LP/MPS model from r, in the given text format.
func Read(r io.Reader, format Format) (*Model, error) {
	switch format {
	case LPFormat:
		return readLP(r)
	case MPSFormat:
		return readMPS(r)
	default:
		return nil, perr.Wrap(perr.InvalidValue, "unknown lp format")
	}
}

func rowKindSymbol(k RowKind) string {
	switch k {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "="
	default:
		return "<="
	}
}

func writeLP(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)
	if m.sense == Max {
		fmt.Fprintln(bw, "Maximize")
	} else {
		fmt.Fprintln(bw, "Minimize")
	}
	fmt.Fprint(bw, " obj:")
	for i, c := range m.cols {
		if c.deleted || c.Obj == 0 {
			continue
		}
		fmt.Fprintf(bw, " %+g x%d", c.Obj, i)
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "Subject To")
	for ri, r := range m.rows {
		if r.deleted {
			continue
		}
		fmt.Fprintf(bw, " r%d:", ri)
		for _, e := range r.entries {
			fmt.Fprintf(bw, " %+g x%d", e.Coeff, e.Col)
		}
		if r.Kind == Range {
			fmt.Fprintf(bw, " >= %g\n", r.LB)
			fmt.Fprintf(bw, " r%d_hi:", ri)
			for _, e := range r.entries {
				fmt.Fprintf(bw, " %+g x%d", e.Coeff, e.Col)
			}
			fmt.Fprintf(bw, " <= %g\n", r.UB)
			continue
		}
		bound := r.UB
		if r.Kind == GE {
			bound = r.LB
		}
		fmt.Fprintf(bw, " %s %g\n", rowKindSymbol(r.Kind), bound)
	}

	fmt.Fprintln(bw, "Bounds")
	var binaries, integers []int
	for i, c := range m.cols {
		if c.deleted {
			continue
		}
		switch c.Kind {
		case Binary:
			binaries = append(binaries, i)
		case Integer:
			integers = append(integers, i)
		}
		fmt.Fprintf(bw, " %g <= x%d <= %g\n", c.LB, i, c.UB)
	}
	if len(binaries) > 0 {
		fmt.Fprintln(bw, "Binaries")
		for _, i := range binaries {
			fmt.Fprintf(bw, " x%d\n", i)
		}
	}
	if len(integers) > 0 {
		fmt.Fprintln(bw, "Generals")
		for _, i := range integers {
			fmt.Fprintf(bw, " x%d\n", i)
		}
	}
	fmt.Fprintln(bw, "End")
	return bw.Flush()
}

// readLP parses the restricted LP dialect writeLP emits: one
// objective line, one inequality per constraint row (Range rows
// appear as a split "_hi" pair, which readLP recombines), a Bounds
// block, and optional Binaries/Generals column-kind blocks.
func readLP(r io.Reader) (*Model, error) {
	m := NewModel()
	colIndex := make(map[string]ColID)
	ensureCol := func(name string) ColID {
		if id, ok := colIndex[name]; ok {
			return id
		}
		id := m.AddColumn(name, 0, posInf, 0, Continuous)
		colIndex[name] = id
		return id
	}

	sc := bufio.NewScanner(r)
	section := ""
	rowLB := make(map[string]float64)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case lower == "minimize":
			m.SetSense(Min)
			section = ""
			continue
		case lower == "maximize":
			m.SetSense(Max)
			section = ""
			continue
		case lower == "subject to":
			section = "rows"
			continue
		case lower == "bounds":
			section = "bounds"
			continue
		case lower == "binaries":
			section = "binaries"
			continue
		case lower == "generals":
			section = "generals"
			continue
		case lower == "end":
			section = ""
			continue
		}

		switch section {
		case "":
			if strings.HasPrefix(line, "obj:") {
				parseObjective(line[len("obj:"):], m, ensureCol)
			}
		case "rows":
			if err := parseRow(line, m, ensureCol, rowLB); err != nil {
				return nil, err
			}
		case "bounds":
			parseBoundsLine(line, m, ensureCol)
		case "binaries":
			name := strings.TrimSpace(line)
			if id, ok := colIndex[name]; ok {
				m.cols[id].Kind = Binary
				m.cols[id].LB, m.cols[id].UB = 0, 1
			}
		case "generals":
			name := strings.TrimSpace(line)
			if id, ok := colIndex[name]; ok {
				m.cols[id].Kind = Integer
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, perr.Wrapf(perr.IO, "reading lp format: %v", err)
	}
	return m, nil
}

const posInf = 1e308

func parseObjective(rest string, m *Model, ensureCol func(string) ColID) {
	for _, term := range splitTerms(rest) {
		coeff, name := term.coeff, term.name
		id := ensureCol(name)
		m.cols[id].Obj = coeff
	}
}

func parseRow(line string, m *Model, ensureCol func(string) ColID, rowLB map[string]float64) error {
	nameSplit := strings.SplitN(line, ":", 2)
	if len(nameSplit) != 2 {
		return perr.Wrapf(perr.ParseError, "malformed constraint row: %q", line)
	}
	rowName := strings.TrimSpace(nameSplit[0])
	body := nameSplit[1]

	var kind RowKind
	var opIdx int
	switch {
	case strings.Contains(body, "<="):
		kind, opIdx = LE, strings.Index(body, "<=")
	case strings.Contains(body, ">="):
		kind, opIdx = GE, strings.Index(body, ">=")
	case strings.Contains(body, "="):
		kind, opIdx = EQ, strings.Index(body, "=")
	default:
		return perr.Wrapf(perr.ParseError, "constraint row missing relational operator: %q", line)
	}
	lhs, rhsStr := body[:opIdx], strings.TrimSpace(body[opIdx+2:])
	if kind == EQ {
		rhsStr = strings.TrimSpace(body[opIdx+1:])
	}
	rhs, err := strconv.ParseFloat(rhsStr, 64)
	if err != nil {
		return perr.Wrapf(perr.ParseError, "constraint rhs %q: %v", rhsStr, err)
	}
	coeffs := make(map[ColID]float64)
	for _, term := range splitTerms(lhs) {
		coeffs[ensureCol(term.name)] = term.coeff
	}

	if strings.HasSuffix(rowName, "_hi") {
		base := strings.TrimSuffix(rowName, "_hi")
		for ri, r := range m.rows {
			if r.Name == base {
				m.rows[ri].UB = rhs
				m.rows[ri].Kind = Range
				return nil
			}
		}
	}

	lb, ub := rhs, rhs
	switch kind {
	case LE:
		lb = negInf
	case GE:
		ub = posInf
	}
	_, err = m.AddRow(rowName, coeffs, lb, ub, kind)
	return err
}

const negInf = -1e308

type term struct {
	coeff float64
	name  string
}

func splitTerms(s string) []term {
	fields := strings.Fields(s)
	var terms []term
	i := 0
	for i < len(fields) {
		f := fields[i]
		coeffStr, nameStr := "1", ""
		if strings.HasPrefix(f, "x") {
			nameStr = f
			i++
		} else {
			coeffStr = f
			if i+1 < len(fields) {
				nameStr = fields[i+1]
				i += 2
			} else {
				i++
			}
		}
		coeff, err := strconv.ParseFloat(strings.TrimPrefix(coeffStr, "+"), 64)
		if err != nil {
			coeff = 1
		}
		if nameStr != "" {
			terms = append(terms, term{coeff: coeff, name: nameStr})
		}
	}
	return terms
}

func parseBoundsLine(line string, m *Model, ensureCol func(string) ColID) {
	fields := strings.Fields(line)
	if len(fields) != 5 || fields[1] != "<=" || fields[3] != "<=" {
		return
	}
	lb, err1 := strconv.ParseFloat(fields[0], 64)
	ub, err2 := strconv.ParseFloat(fields[4], 64)
	if err1 != nil || err2 != nil {
		return
	}
	id := ensureCol(fields[2])
	m.cols[id].LB, m.cols[id].UB = lb, ub
}

// writeMPS emits a simplified fixed-section MPS (NAME/ROWS/COLUMNS/
// RHS/BOUNDS/ENDATA); it is not a general-purpose industry MPS writer.
// Columns and rows are named positionally (C<i>, R<i>) rather than by
// their Name. There is no RANGES section: a Range row is written as an
// L row bounded by its UB, and its LB is not written.
func writeMPS(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "NAME")
	fmt.Fprintln(bw, "ROWS")
	fmt.Fprintln(bw, " N  COST")
	for ri, r := range m.rows {
		if r.deleted {
			continue
		}
		fmt.Fprintf(bw, " %s R%d\n", mpsRowKind(r.Kind), ri)
	}

	fmt.Fprintln(bw, "COLUMNS")
	for ci, c := range m.cols {
		if c.deleted {
			continue
		}
		if c.Obj != 0 {
			fmt.Fprintf(bw, "    C%d  COST  %g\n", ci, c.Obj)
		}
		for ri, r := range m.rows {
			if r.deleted {
				continue
			}
			if coeff := coeffOf(r, ColID(ci)); coeff != 0 {
				fmt.Fprintf(bw, "    C%d  R%d  %g\n", ci, ri, coeff)
			}
		}
	}

	fmt.Fprintln(bw, "RHS")
	for ri, r := range m.rows {
		if r.deleted {
			continue
		}
		bound := r.UB
		if r.Kind == GE {
			bound = r.LB
		}
		fmt.Fprintf(bw, "    RHS  R%d  %g\n", ri, bound)
	}

	fmt.Fprintln(bw, "BOUNDS")
	for ci, c := range m.cols {
		if c.deleted {
			continue
		}
		kind := "BV"
		switch c.Kind {
		case Binary:
			kind = "BV"
		case Integer:
			kind = "UI"
		case Continuous:
			kind = "UP"
		}
		fmt.Fprintf(bw, " %s BND  C%d  %g\n", kind, ci, c.UB)
		if c.LB != 0 {
			fmt.Fprintf(bw, " LO BND  C%d  %g\n", ci, c.LB)
		}
	}
	fmt.Fprintln(bw, "ENDATA")
	return bw.Flush()
}

func mpsRowKind(k RowKind) string {
	switch k {
	case LE:
		return "L"
	case GE:
		return "G"
	case EQ:
		return "E"
	default:
		return "L"
	}
}

// readMPS parses the simplified dialect writeMPS emits.
func readMPS(r io.Reader) (*Model, error) {
	m := NewModel()
	rowKindByName := make(map[string]RowKind)
	rowIDByName := make(map[string]RowID)
	colIDByName := make(map[string]ColID)
	colEntries := make(map[string]map[string]float64)
	colObj := make(map[string]float64)
	rhsByRow := make(map[string]float64)
	colKind := make(map[string]ColKind)
	colLB := make(map[string]float64)
	colUB := make(map[string]float64)

	sc := bufio.NewScanner(r)
	section := ""
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		switch trimmed {
		case "NAME":
			section = "name"
			continue
		case "ROWS":
			section = "rows"
			continue
		case "COLUMNS":
			section = "columns"
			continue
		case "RHS":
			section = "rhs"
			continue
		case "BOUNDS":
			section = "bounds"
			continue
		case "ENDATA":
			section = ""
			continue
		}
		fields := strings.Fields(trimmed)
		switch section {
		case "rows":
			if len(fields) != 2 {
				continue
			}
			switch fields[0] {
			case "N":
				continue
			case "L":
				rowKindByName[fields[1]] = LE
			case "G":
				rowKindByName[fields[1]] = GE
			case "E":
				rowKindByName[fields[1]] = EQ
			}
		case "columns":
			if len(fields) < 3 {
				continue
			}
			col, row, valStr := fields[0], fields[1], fields[2]
			val, err := strconv.ParseFloat(valStr, 64)
			if err != nil {
				return nil, perr.Wrapf(perr.ParseError, "mps columns value %q: %v", valStr, err)
			}
			if row == "COST" {
				colObj[col] = val
				continue
			}
			if colEntries[col] == nil {
				colEntries[col] = make(map[string]float64)
			}
			colEntries[col][row] = val
		case "rhs":
			if len(fields) < 3 {
				continue
			}
			val, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, perr.Wrapf(perr.ParseError, "mps rhs value %q: %v", fields[2], err)
			}
			rhsByRow[fields[1]] = val
		case "bounds":
			// writeMPS emits " <TYPE> BND  C<i>  <value>", plus a
			// separate " LO BND  C<i>  <value>" line when LB != 0.
			// A BV line's value field is ignored (its bound is always [0,1]).
			if len(fields) < 3 {
				continue
			}
			kind, col := fields[0], fields[2]
			var val float64
			if len(fields) >= 4 {
				v, err := strconv.ParseFloat(fields[3], 64)
				if err != nil {
					return nil, perr.Wrapf(perr.ParseError, "mps bounds value %q: %v", fields[3], err)
				}
				val = v
			}
			switch kind {
			case "BV":
				colKind[col] = Binary
				colLB[col] = 0
				colUB[col] = 1
			case "UI":
				colKind[col] = Integer
				colUB[col] = val
			case "UP":
				colKind[col] = Continuous
				colUB[col] = val
			case "LO":
				colLB[col] = val
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, perr.Wrapf(perr.IO, "reading mps format: %v", err)
	}

	ensureCol := func(name string) ColID {
		if id, ok := colIDByName[name]; ok {
			return id
		}
		kind := Continuous
		if k, ok := colKind[name]; ok {
			kind = k
		}
		lb := 0.0
		if v, ok := colLB[name]; ok {
			lb = v
		}
		ub := posInf
		if v, ok := colUB[name]; ok {
			ub = v
		}
		id := m.AddColumn(name, lb, ub, colObj[name], kind)
		colIDByName[name] = id
		return id
	}
	for name := range colEntries {
		ensureCol(name)
	}
	for name := range colObj {
		ensureCol(name)
	}

	for rowName, kind := range rowKindByName {
		coeffs := make(map[ColID]float64)
		for col, entries := range colEntries {
			if v, ok := entries[rowName]; ok {
				coeffs[ensureCol(col)] = v
			}
		}
		rhs := rhsByRow[rowName]
		lb, ub := rhs, rhs
		switch kind {
		case LE:
			lb = negInf
		case GE:
			ub = posInf
		}
		id, err := m.AddRow(rowName, coeffs, lb, ub, kind)
		if err != nil {
			return nil, err
		}
		rowIDByName[rowName] = id
	}
	return m, nil
}
