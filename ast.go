package lattice

import (
	"fmt"
	"strings"
)

// BinaryOp identifies binary operators in AST nodes.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpConcat
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpPow:
		return "^"
	case OpConcat:
		return "&"
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	}
	return "?"
}

// precedence returns the binding strength of a binary operator; higher
// binds tighter. Comparisons are loosest, exponentiation tightest.
func (op BinaryOp) precedence() int {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return 1
	case OpConcat:
		return 2
	case OpAdd, OpSub:
		return 3
	case OpMul, OpDiv:
		return 4
	case OpPow:
		return 5
	}
	return 0
}

// UnaryOp identifies unary operators in AST nodes. Percent is postfix.
type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpPlus
	OpPercent
)

// Expr is a parsed formula expression. Sheet names are still textual;
// compilation resolves them to ids.
type Expr interface {
	// String renders the expression back to canonical formula text.
	String() string
}

// NumberLit is a numeric literal.
type NumberLit struct{ Value float64 }

func (n *NumberLit) String() string { return formatNumber(n.Value) }

// TextLit is a string literal.
type TextLit struct{ Value string }

func (n *TextLit) String() string {
	return `"` + strings.ReplaceAll(n.Value, `"`, `""`) + `"`
}

// BoolLit is a TRUE/FALSE literal.
type BoolLit struct{ Value bool }

func (n *BoolLit) String() string {
	if n.Value {
		return "TRUE"
	}
	return "FALSE"
}

// RefExpr is a single-cell reference, optionally sheet-qualified.
// Coordinates are 0-based and already absolute positions in the grid;
// the Abs flags only record the $ markers for display.
type RefExpr struct {
	Sheet    string
	HasSheet bool
	Row, Col uint32
	AbsRow   bool
	AbsCol   bool
}

func (n *RefExpr) String() string {
	var b strings.Builder
	if n.HasSheet {
		b.WriteString(quoteSheetName(n.Sheet))
		b.WriteByte('!')
	}
	if n.AbsCol {
		b.WriteByte('$')
	}
	b.WriteString(columnLabel(n.Col))
	if n.AbsRow {
		b.WriteByte('$')
	}
	fmt.Fprint(&b, n.Row+1)
	return b.String()
}

// RangeExpr is a rectangular range reference, optionally sheet-qualified.
// Endpoints are stored as written; compilation normalizes the rectangle.
type RangeExpr struct {
	Sheet              string
	HasSheet           bool
	StartRow, StartCol uint32
	EndRow, EndCol     uint32
	AbsStartRow        bool
	AbsStartCol        bool
	AbsEndRow          bool
	AbsEndCol          bool
}

func (n *RangeExpr) String() string {
	start := RefExpr{Row: n.StartRow, Col: n.StartCol, AbsRow: n.AbsStartRow, AbsCol: n.AbsStartCol}
	end := RefExpr{Row: n.EndRow, Col: n.EndCol, AbsRow: n.AbsEndRow, AbsCol: n.AbsEndCol}
	prefix := ""
	if n.HasSheet {
		prefix = quoteSheetName(n.Sheet) + "!"
	}
	return prefix + start.String() + ":" + end.String()
}

// NameExpr is an identifier that is neither a reference nor a function
// call. There is no name store, so it evaluates to #NAME?.
type NameExpr struct{ Name string }

func (n *NameExpr) String() string { return n.Name }

// BinaryExpr applies a binary operator.
type BinaryExpr struct {
	Op          BinaryOp
	Left, Right Expr
}

func (n *BinaryExpr) String() string {
	return childString(n.Left, n.Op.precedence()) + n.Op.String() + childString(n.Right, n.Op.precedence()+1)
}

// childString parenthesizes a child whose top-level operator binds looser
// than the parent requires.
func childString(e Expr, minPrec int) string {
	if b, ok := e.(*BinaryExpr); ok && b.Op.precedence() < minPrec {
		return "(" + b.String() + ")"
	}
	return e.String()
}

// UnaryExpr applies a unary operator (prefix +/-, postfix %).
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) String() string {
	inner := n.Operand.String()
	if _, ok := n.Operand.(*BinaryExpr); ok {
		inner = "(" + inner + ")"
	}
	switch n.Op {
	case OpNeg:
		return "-" + inner
	case OpPlus:
		return "+" + inner
	case OpPercent:
		return inner + "%"
	}
	return inner
}

// CallExpr is a function invocation. Name is kept as written; lookup is
// case-insensitive.
type CallExpr struct {
	Name string
	Args []Expr
}

func (n *CallExpr) String() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return strings.ToUpper(n.Name) + "(" + strings.Join(parts, ",") + ")"
}

// IntersectExpr is the @ operator: resolve the operand reference to a
// scalar by implicit intersection with the current cell.
type IntersectExpr struct{ Operand Expr }

func (n *IntersectExpr) String() string { return "@" + n.Operand.String() }
