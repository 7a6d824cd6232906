package lattice

import (
	"fmt"
	"strings"
)

// parser turns a token stream into an AST using precedence climbing.
// Grammar notes:
//   - unary minus binds tighter than ^ (Excel: -2^2 is 4)
//   - postfix % binds tightest
//   - a sheet prefix (Name! or 'Quoted Name'!) may qualify a reference
//     or range; the prefix applies to both endpoints of a range
type parser struct {
	toks []token
	pos  int
}

// ParseFormula parses formula source into an AST. A leading '=' is
// accepted and stripped.
func ParseFormula(src string) (Expr, error) {
	body := strings.TrimSpace(src)
	if strings.HasPrefix(body, "=") {
		body = body[1:]
	}
	if strings.TrimSpace(body) == "" {
		return nil, &ParseError{Pos: 0, Msg: "empty formula"}
	}
	toks, err := lexFormula(body)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.errorf("unexpected %q after expression", p.peek().text)
	}
	return expr, nil
}

func (p *parser) peek() token  { return p.toks[p.pos] }
func (p *parser) next() token  { t := p.toks[p.pos]; p.pos++; return t }
func (p *parser) backup()      { p.pos-- }
func (p *parser) at(k tokenKind) bool { return p.toks[p.pos].kind == k }

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Pos: p.peek().pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseBinary(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := binaryOpForToken(p.peek().kind)
		if !ok || op.precedence() < minPrec {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(op.precedence() + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func binaryOpForToken(k tokenKind) (BinaryOp, bool) {
	switch k {
	case tokPlus:
		return OpAdd, true
	case tokMinus:
		return OpSub, true
	case tokStar:
		return OpMul, true
	case tokSlash:
		return OpDiv, true
	case tokCaret:
		return OpPow, true
	case tokAmp:
		return OpConcat, true
	case tokEq:
		return OpEq, true
	case tokNe:
		return OpNe, true
	case tokLt:
		return OpLt, true
	case tokLe:
		return OpLe, true
	case tokGt:
		return OpGt, true
	case tokGe:
		return OpGe, true
	}
	return 0, false
}

func (p *parser) parseUnary() (Expr, error) {
	switch p.peek().kind {
	case tokMinus:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: OpNeg, Operand: operand}, nil
	case tokPlus:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: OpPlus, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.at(tokPercent) {
		p.next()
		expr = &UnaryExpr{Op: OpPercent, Operand: expr}
	}
	return expr, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	switch t := p.peek(); t.kind {
	case tokNumber:
		p.next()
		return &NumberLit{Value: t.num}, nil

	case tokString:
		p.next()
		return &TextLit{Value: t.text}, nil

	case tokLParen:
		p.next()
		inner, err := p.parseBinary(1)
		if err != nil {
			return nil, err
		}
		if !p.at(tokRParen) {
			return nil, p.errorf("missing closing parenthesis")
		}
		p.next()
		return inner, nil

	case tokAt:
		p.next()
		operand, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &IntersectExpr{Operand: operand}, nil

	case tokQuoted:
		p.next()
		if !p.at(tokBang) {
			return nil, p.errorf("expected '!' after sheet name %q", t.text)
		}
		p.next()
		return p.parseReference(t.text, true)

	case tokIdent:
		p.next()
		// sheet-qualified reference
		if p.at(tokBang) {
			p.next()
			return p.parseReference(t.text, true)
		}
		// function call
		if p.at(tokLParen) {
			return p.parseCall(t.text)
		}
		switch strings.ToUpper(t.text) {
		case "TRUE":
			return &BoolLit{Value: true}, nil
		case "FALSE":
			return &BoolLit{Value: false}, nil
		}
		p.backup()
		return p.parseReference("", false)

	default:
		return nil, p.errorf("unexpected token %q", t.text)
	}
}

// parseCall parses the argument list after a function name. The opening
// paren is the current token.
func (p *parser) parseCall(name string) (Expr, error) {
	p.next() // consume '('
	call := &CallExpr{Name: name}
	if p.at(tokRParen) {
		p.next()
		return call, nil
	}
	for {
		arg, err := p.parseBinary(1)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		switch p.peek().kind {
		case tokComma:
			p.next()
		case tokRParen:
			p.next()
			return call, nil
		default:
			return nil, p.errorf("expected ',' or ')' in %s argument list", strings.ToUpper(name))
		}
	}
}

// parseReference parses a cell reference, a range, or a bare name. The
// current token must be an identifier. When hasSheet is set the sheet
// prefix has already been consumed and the identifier must be a valid
// address.
func (p *parser) parseReference(sheet string, hasSheet bool) (Expr, error) {
	t := p.peek()
	if t.kind != tokIdent {
		return nil, p.errorf("expected cell reference")
	}
	row, col, absRow, absCol, err := parseAddrFull(t.text)
	if err != nil {
		if hasSheet {
			return nil, p.errorf("invalid cell reference %q after sheet name", t.text)
		}
		p.next()
		return &NameExpr{Name: t.text}, nil
	}
	p.next()

	if !p.at(tokColon) {
		return &RefExpr{Sheet: sheet, HasSheet: hasSheet, Row: row, Col: col, AbsRow: absRow, AbsCol: absCol}, nil
	}
	p.next()
	end := p.peek()
	if end.kind != tokIdent {
		return nil, p.errorf("expected range end after ':'")
	}
	endRow, endCol, absEndRow, absEndCol, err := parseAddrFull(end.text)
	if err != nil {
		return nil, p.errorf("invalid range end %q", end.text)
	}
	p.next()
	return &RangeExpr{
		Sheet: sheet, HasSheet: hasSheet,
		StartRow: row, StartCol: col,
		EndRow: endRow, EndCol: endCol,
		AbsStartRow: absRow, AbsStartCol: absCol,
		AbsEndRow: absEndRow, AbsEndCol: absEndCol,
	}, nil
}
