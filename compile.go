package lattice

// Rect is a rectangular region of cells, inclusive on both ends.
type Rect struct {
	StartRow, StartCol uint32
	EndRow, EndCol     uint32
}

func (r Rect) contains(row, col uint32) bool {
	return row >= r.StartRow && row <= r.EndRow && col >= r.StartCol && col <= r.EndCol
}

func (r Rect) isSingle() bool {
	return r.StartRow == r.EndRow && r.StartCol == r.EndCol
}

func (r Rect) singleRow() bool { return r.StartRow == r.EndRow }
func (r Rect) singleCol() bool { return r.StartCol == r.EndCol }

// CompiledExpr is the evaluatable form of a formula: sheet names resolved
// to ids, precedents extracted, volatility and thread-safety classified.
// It is owned exclusively by the cell it was compiled for.
type CompiledExpr struct {
	root       cexpr
	precedents []CellKey
	volatile   bool
	threadSafe bool
}

// Precedents returns the cells this expression reads.
func (ce *CompiledExpr) Precedents() []CellKey { return ce.precedents }

// IsVolatile reports whether the expression calls a volatile function.
func (ce *CompiledExpr) IsVolatile() bool { return ce.volatile }

// IsThreadSafe reports whether every function the expression calls is
// safe to evaluate concurrently with other cells.
func (ce *CompiledExpr) IsThreadSafe() bool { return ce.threadSafe }

// compiled expression nodes. The closed set of variants keeps evaluation
// a plain type switch with no reflection.
type cexpr interface{ isCexpr() }

type cnum struct{ val float64 }
type ctext struct{ val string }
type cbool struct{ val bool }
type cerr struct{ kind ErrorKind }
type cref struct{ key CellKey }
type crange struct {
	sheet SheetID
	rect  Rect
}
type cbin struct {
	op          BinaryOp
	left, right cexpr
}
type cuna struct {
	op      UnaryOp
	operand cexpr
}
type ccall struct {
	name string
	def  *FuncDef // nil for unknown names
	args []cexpr
}
type cintersect struct{ operand cexpr }

func (cnum) isCexpr()       {}
func (ctext) isCexpr()      {}
func (cbool) isCexpr()      {}
func (cerr) isCexpr()       {}
func (cref) isCexpr()       {}
func (crange) isCexpr()     {}
func (*cbin) isCexpr()      {}
func (*cuna) isCexpr()      {}
func (*ccall) isCexpr()     {}
func (*cintersect) isCexpr() {}

// compiler carries the per-formula compilation state.
type compiler struct {
	origin       CellKey
	resolveSheet func(name string) SheetID // interns, creating sheets lazily
	funcs        *FuncTable
	precedents   map[CellKey]struct{}
	volatile     bool
	threadSafe   bool
}

// compileExpr lowers a parsed formula for the cell at origin. The
// resolver maps sheet names to ids, interning unseen names; unqualified
// references resolve to the origin's sheet.
func compileExpr(e Expr, origin CellKey, resolveSheet func(string) SheetID, funcs *FuncTable) *CompiledExpr {
	c := &compiler{
		origin:       origin,
		resolveSheet: resolveSheet,
		funcs:        funcs,
		precedents:   make(map[CellKey]struct{}),
		threadSafe:   true,
	}
	root := c.lower(e)
	out := &CompiledExpr{
		root:       root,
		volatile:   c.volatile,
		threadSafe: c.threadSafe,
	}
	out.precedents = make([]CellKey, 0, len(c.precedents))
	for key := range c.precedents {
		out.precedents = append(out.precedents, key)
	}
	return out
}

func (c *compiler) sheetFor(name string, hasSheet bool) SheetID {
	if !hasSheet {
		return c.origin.Sheet
	}
	return c.resolveSheet(name)
}

func (c *compiler) lower(e Expr) cexpr {
	switch n := e.(type) {
	case *NumberLit:
		return cnum{val: n.Value}
	case *TextLit:
		return ctext{val: n.Value}
	case *BoolLit:
		return cbool{val: n.Value}

	case *RefExpr:
		key := CellKey{Sheet: c.sheetFor(n.Sheet, n.HasSheet), Row: n.Row, Col: n.Col}
		c.precedents[key] = struct{}{}
		return cref{key: key}

	case *RangeExpr:
		sheet := c.sheetFor(n.Sheet, n.HasSheet)
		rect := normalizeRect(n)
		for row := rect.StartRow; row <= rect.EndRow; row++ {
			for col := rect.StartCol; col <= rect.EndCol; col++ {
				c.precedents[CellKey{Sheet: sheet, Row: row, Col: col}] = struct{}{}
			}
		}
		return crange{sheet: sheet, rect: rect}

	case *NameExpr:
		// no named-range store; unknown names evaluate to #NAME?
		return cerr{kind: ErrName}

	case *BinaryExpr:
		return &cbin{op: n.Op, left: c.lower(n.Left), right: c.lower(n.Right)}

	case *UnaryExpr:
		return &cuna{op: n.Op, operand: c.lower(n.Operand)}

	case *CallExpr:
		def, _ := c.funcs.Lookup(n.Name)
		if def != nil {
			if def.Volatile {
				c.volatile = true
			}
			if !def.ThreadSafe {
				c.threadSafe = false
			}
		} else {
			// unknown functions are conservatively not thread-safe: they
			// force a sequential barrier for any level containing them
			c.threadSafe = false
		}
		args := make([]cexpr, len(n.Args))
		for i, a := range n.Args {
			args[i] = c.lower(a)
		}
		return &ccall{name: n.Name, def: def, args: args}

	case *IntersectExpr:
		return &cintersect{operand: c.lower(n.Operand)}
	}
	return cerr{kind: ErrValue}
}

// normalizeRect orders range endpoints so start <= end in both dimensions.
func normalizeRect(n *RangeExpr) Rect {
	r := Rect{StartRow: n.StartRow, StartCol: n.StartCol, EndRow: n.EndRow, EndCol: n.EndCol}
	if r.StartRow > r.EndRow {
		r.StartRow, r.EndRow = r.EndRow, r.StartRow
	}
	if r.StartCol > r.EndCol {
		r.StartCol, r.EndCol = r.EndCol, r.StartCol
	}
	return r
}
