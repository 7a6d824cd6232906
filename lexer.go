package lattice

import (
	"fmt"
	"strconv"
	"strings"
)

// tokenKind classifies formula tokens.
type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString // double-quoted literal, text holds the unescaped value
	tokIdent  // bare identifier: function name, reference text, TRUE/FALSE
	tokQuoted // single-quoted sheet name, text holds the unescaped value
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCaret
	tokAmp
	tokPercent
	tokEq
	tokNe
	tokLt
	tokLe
	tokGt
	tokGe
	tokLParen
	tokRParen
	tokComma
	tokColon
	tokBang
	tokAt
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// ParseError reports a formula that failed to lex or parse. It is
// recovered at the mutation boundary: the target cell is left unmodified.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Msg)
}

// lexFormula tokenizes formula source text (without the leading '=').
func lexFormula(src string) ([]token, error) {
	var toks []token
	i := 0
	n := len(src)
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c >= '0' && c <= '9' || c == '.' && i+1 < n && src[i+1] >= '0' && src[i+1] <= '9':
			start := i
			for i < n && (src[i] >= '0' && src[i] <= '9' || src[i] == '.') {
				i++
			}
			// exponent part
			if i < n && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < n && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < n && src[j] >= '0' && src[j] <= '9' {
					i = j
					for i < n && src[i] >= '0' && src[i] <= '9' {
						i++
					}
				}
			}
			text := src[start:i]
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &ParseError{Pos: start, Msg: "malformed number " + text}
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: num, pos: start})

		case c == '"':
			start := i
			i++
			var b strings.Builder
			closed := false
			for i < n {
				if src[i] == '"' {
					if i+1 < n && src[i+1] == '"' { // doubled quote escape
						b.WriteByte('"')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				b.WriteByte(src[i])
				i++
			}
			if !closed {
				return nil, &ParseError{Pos: start, Msg: "unterminated string literal"}
			}
			toks = append(toks, token{kind: tokString, text: b.String(), pos: start})

		case c == '\'':
			start := i
			i++
			var b strings.Builder
			closed := false
			for i < n {
				if src[i] == '\'' {
					if i+1 < n && src[i+1] == '\'' {
						b.WriteByte('\'')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				b.WriteByte(src[i])
				i++
			}
			if !closed {
				return nil, &ParseError{Pos: start, Msg: "unterminated sheet name"}
			}
			toks = append(toks, token{kind: tokQuoted, text: b.String(), pos: start})

		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})

		default:
			kind, width, ok := lexOperator(src, i)
			if !ok {
				return nil, &ParseError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
			}
			toks = append(toks, token{kind: kind, text: src[i : i+width], pos: i})
			i += width
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: n})
	return toks, nil
}

// lexOperator matches one operator or punctuation token at src[i].
func lexOperator(src string, i int) (tokenKind, int, bool) {
	two := ""
	if i+1 < len(src) {
		two = src[i : i+2]
	}
	switch two {
	case "<>":
		return tokNe, 2, true
	case "<=":
		return tokLe, 2, true
	case ">=":
		return tokGe, 2, true
	}
	switch src[i] {
	case '+':
		return tokPlus, 1, true
	case '-':
		return tokMinus, 1, true
	case '*':
		return tokStar, 1, true
	case '/':
		return tokSlash, 1, true
	case '^':
		return tokCaret, 1, true
	case '&':
		return tokAmp, 1, true
	case '%':
		return tokPercent, 1, true
	case '=':
		return tokEq, 1, true
	case '<':
		return tokLt, 1, true
	case '>':
		return tokGt, 1, true
	case '(':
		return tokLParen, 1, true
	case ')':
		return tokRParen, 1, true
	case ',':
		return tokComma, 1, true
	case ':':
		return tokColon, 1, true
	case '!':
		return tokBang, 1, true
	case '@':
		return tokAt, 1, true
	}
	return tokEOF, 0, false
}

// identifier characters: letters, digits, '_', '$' (absolute markers) and
// '.' (dotted function names like CEILING.MATH).
func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '$'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '.'
}
