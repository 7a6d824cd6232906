package lattice

import "math"

// evalContext carries the per-cell evaluation state: the snapshot to read
// from and the cell being computed (needed for implicit intersection).
// Evaluation is pure: it never writes to the workbook or the snapshot.
type evalContext struct {
	snap   *Snapshot
	origin CellKey
	clock  Clock
	rng    RandomSource
}

// operand is the result of evaluating a sub-expression: either a scalar
// Value or a not-yet-dereferenced rectangular reference. Spreadsheet
// functions are reference-transparent (SUM needs the whole range,
// arithmetic needs one number), so dereferencing is deferred to the
// point of use.
type operand struct {
	isRef bool
	val   Value
	sheet SheetID
	rect  Rect
}

func scalarOperand(v Value) operand { return operand{val: v} }

func refOperand(sheet SheetID, rect Rect) operand {
	return operand{isRef: true, sheet: sheet, rect: rect}
}

// scalar dereferences the operand for use in scalar position: a
// single-cell reference yields that cell's value, a multi-cell reference
// yields #SPILL! (dynamic arrays are out of scope).
func (op operand) scalar(ctx *evalContext) Value {
	if !op.isRef {
		return op.val
	}
	if op.rect.isSingle() {
		return ctx.snap.Value(CellKey{Sheet: op.sheet, Row: op.rect.StartRow, Col: op.rect.StartCol})
	}
	return ErrorValue(ErrSpill)
}

// eachValue visits the operand's values in row-major order: the single
// scalar, or every cell of a reference. Returns false if the visitor
// stopped early.
func (op operand) eachValue(ctx *evalContext, visit func(Value) bool) bool {
	if !op.isRef {
		return visit(op.val)
	}
	for row := op.rect.StartRow; row <= op.rect.EndRow; row++ {
		for col := op.rect.StartCol; col <= op.rect.EndCol; col++ {
			if !visit(ctx.snap.Value(CellKey{Sheet: op.sheet, Row: row, Col: col})) {
				return false
			}
		}
	}
	return true
}

// evalScalar evaluates an expression and dereferences the result.
func evalScalar(ctx *evalContext, e cexpr) Value {
	return evalExpr(ctx, e).scalar(ctx)
}

// evalExpr is a single recursive descent over the compiled tree with no
// suspension points.
func evalExpr(ctx *evalContext, e cexpr) operand {
	switch n := e.(type) {
	case cnum:
		return scalarOperand(Number(n.val))
	case ctext:
		return scalarOperand(Text(n.val))
	case cbool:
		return scalarOperand(Boolean(n.val))
	case cerr:
		return scalarOperand(ErrorValue(n.kind))
	case cref:
		return refOperand(n.key.Sheet, Rect{
			StartRow: n.key.Row, StartCol: n.key.Col,
			EndRow: n.key.Row, EndCol: n.key.Col,
		})
	case crange:
		return refOperand(n.sheet, n.rect)
	case *cbin:
		return scalarOperand(evalBinary(ctx, n))
	case *cuna:
		return scalarOperand(evalUnary(ctx, n))
	case *ccall:
		return scalarOperand(evalCall(ctx, n))
	case *cintersect:
		return scalarOperand(intersectValue(ctx, evalExpr(ctx, n.operand)))
	}
	return scalarOperand(ErrorValue(ErrValue))
}

// intersectValue applies implicit intersection: resolve a reference in
// scalar position by aligning it with the current cell. A single cell
// passes through; a one-dimensional range intersects on the matching
// coordinate; a two-dimensional range requires the current cell to fall
// inside the rectangle. Anything off-range is #VALUE!.
func intersectValue(ctx *evalContext, op operand) Value {
	if !op.isRef {
		return op.val
	}
	r := op.rect
	row, col := ctx.origin.Row, ctx.origin.Col
	switch {
	case r.isSingle():
		return ctx.snap.Value(CellKey{Sheet: op.sheet, Row: r.StartRow, Col: r.StartCol})
	case r.singleCol():
		if row >= r.StartRow && row <= r.EndRow {
			return ctx.snap.Value(CellKey{Sheet: op.sheet, Row: row, Col: r.StartCol})
		}
	case r.singleRow():
		if col >= r.StartCol && col <= r.EndCol {
			return ctx.snap.Value(CellKey{Sheet: op.sheet, Row: r.StartRow, Col: col})
		}
	default:
		if r.contains(row, col) {
			return ctx.snap.Value(CellKey{Sheet: op.sheet, Row: row, Col: col})
		}
	}
	return ErrorValue(ErrValue)
}

// evalBinary evaluates operands left to right and short-circuits on the
// first error. The ordering is load-bearing: tests depend on the left
// error winning when both sides fail.
func evalBinary(ctx *evalContext, n *cbin) Value {
	left := evalScalar(ctx, n.left)
	if left.IsError() {
		return left
	}
	right := evalScalar(ctx, n.right)
	if right.IsError() {
		return right
	}
	return applyBinary(n.op, left, right)
}

func applyBinary(op BinaryOp, left, right Value) Value {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpPow:
		l, ok := left.toNumber()
		if !ok {
			return ErrorValue(ErrValue)
		}
		r, ok := right.toNumber()
		if !ok {
			return ErrorValue(ErrValue)
		}
		return applyArith(op, l, r)

	case OpConcat:
		return Text(left.toText() + right.toText())

	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		cmp := compareValues(left, right)
		switch op {
		case OpEq:
			return Boolean(cmp == 0)
		case OpNe:
			return Boolean(cmp != 0)
		case OpLt:
			return Boolean(cmp < 0)
		case OpLe:
			return Boolean(cmp <= 0)
		case OpGt:
			return Boolean(cmp > 0)
		default:
			return Boolean(cmp >= 0)
		}
	}
	return ErrorValue(ErrValue)
}

func applyArith(op BinaryOp, l, r float64) Value {
	var out float64
	switch op {
	case OpAdd:
		out = l + r
	case OpSub:
		out = l - r
	case OpMul:
		out = l * r
	case OpDiv:
		if r == 0 {
			return ErrorValue(ErrDiv0)
		}
		out = l / r
	case OpPow:
		if l == 0 && r == 0 {
			return ErrorValue(ErrNum)
		}
		out = math.Pow(l, r)
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return ErrorValue(ErrNum)
	}
	return Number(out)
}

func evalUnary(ctx *evalContext, n *cuna) Value {
	v := evalScalar(ctx, n.operand)
	if v.IsError() {
		return v
	}
	num, ok := v.toNumber()
	if !ok {
		return ErrorValue(ErrValue)
	}
	switch n.op {
	case OpNeg:
		return Number(-num)
	case OpPlus:
		return Number(num)
	case OpPercent:
		return Number(num / 100)
	}
	return ErrorValue(ErrValue)
}

// evalCall dispatches a function invocation through the static table.
// Unknown names yield #NAME?; argument counts outside the declared arity
// yield #N/A. Lazy functions (IF) receive unevaluated arguments so the
// untaken branch is never computed.
func evalCall(ctx *evalContext, n *ccall) Value {
	if n.def == nil {
		return ErrorValue(ErrName)
	}
	def := n.def
	if len(n.args) < def.MinArgs || (def.MaxArgs >= 0 && len(n.args) > def.MaxArgs) {
		return ErrorValue(ErrNA)
	}
	if def.Lazy != nil {
		return def.Lazy(ctx, n.args)
	}
	args := make([]operand, len(n.args))
	for i, a := range n.args {
		args[i] = evalExpr(ctx, a)
	}
	return def.Impl(ctx, args)
}
