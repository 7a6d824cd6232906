package lattice

import (
	"math"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	KindBlank ValueKind = iota
	KindNumber
	KindText
	KindBool
	KindError
)

// ErrorKind represents standard spreadsheet error codes following
// Excel conventions.
type ErrorKind uint8

const (
	ErrNull  ErrorKind = iota + 1 // #NULL! - no cells in common between ranges
	ErrDiv0                       // #DIV/0! - division by zero
	ErrValue                      // #VALUE! - wrong type of argument or operand
	ErrRef                        // #REF! - invalid cell reference
	ErrName                       // #NAME? - unrecognized function or name
	ErrNum                        // #NUM! - number too large or small to be represented
	ErrNA                         // #N/A - value not available / wrong argument count
	ErrSpill                      // #SPILL! - multi-cell reference in scalar position
	ErrCalc                       // #CALC! - unresolved circular reference
)

var errorLabels = map[ErrorKind]string{
	ErrNull:  "#NULL!",
	ErrDiv0:  "#DIV/0!",
	ErrValue: "#VALUE!",
	ErrRef:   "#REF!",
	ErrName:  "#NAME?",
	ErrNum:   "#NUM!",
	ErrNA:    "#N/A",
	ErrSpill: "#SPILL!",
	ErrCalc:  "#CALC!",
}

// Label returns the display form of the error code, e.g. "#DIV/0!".
func (k ErrorKind) Label() string {
	if s, ok := errorLabels[k]; ok {
		return s
	}
	return "#ERROR!"
}

// Value is the tagged union used for cell contents, formula results, and
// error carriers. Values are small and cheap to copy; the zero value
// is Blank.
type Value struct {
	kind    ValueKind
	num     float64
	text    string
	boolean bool
	errKind ErrorKind
}

// Number wraps a float64 in a Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Text wraps a string in a Value. An empty Text is distinct from Blank.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Boolean wraps a bool in a Value.
func Boolean(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Blank returns the empty-cell Value.
func Blank() Value { return Value{} }

// ErrorValue wraps a spreadsheet error code in a Value. Evaluation errors
// are ordinary Values; they are stored and compared without throwing.
func ErrorValue(k ErrorKind) Value { return Value{kind: KindError, errKind: k} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsBlank() bool   { return v.kind == KindBlank }
func (v Value) IsError() bool   { return v.kind == KindError }

// Num returns the numeric payload. Only meaningful for KindNumber.
func (v Value) Num() float64 { return v.num }

// TextValue returns the string payload. Only meaningful for KindText.
func (v Value) TextValue() string { return v.text }

// Bool returns the boolean payload. Only meaningful for KindBool.
func (v Value) Bool() bool { return v.boolean }

// ErrKind returns the error code. Only meaningful for KindError.
func (v Value) ErrKind() ErrorKind { return v.errKind }

// Equal reports exact equality of two Values (same kind, same payload).
// This is storage equality, not the formula-language `=` operator.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.text == o.text
	case KindBool:
		return v.boolean == o.boolean
	case KindError:
		return v.errKind == o.errKind
	}
	return true // both blank
}

// String renders the value the way a cell would display it.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return formatNumber(v.num)
	case KindText:
		return v.text
	case KindBool:
		if v.boolean {
			return "TRUE"
		}
		return "FALSE"
	case KindError:
		return v.errKind.Label()
	}
	return ""
}

// formatNumber renders a float in "General" style: integers without a
// decimal point, everything else in Go's shortest representation.
func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'G', -1, 64)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'G', -1, 64)
}

// toNumber coerces a value to a number. Blank coerces to 0, booleans to
// 0/1, and text only when the whole trimmed string parses as a number.
func (v Value) toNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindBlank:
		return 0, true
	case KindBool:
		if v.boolean {
			return 1, true
		}
		return 0, true
	case KindText:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// toText coerces a value to its text form. Blank coerces to "".
func (v Value) toText() string {
	if v.kind == KindBlank {
		return ""
	}
	return v.String()
}

// toBool coerces a value to a boolean. Blank is false, numbers are
// non-zero, text only "TRUE"/"FALSE" (case-insensitive).
func (v Value) toBool() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.boolean, true
	case KindNumber:
		return v.num != 0, true
	case KindBlank:
		return false, true
	case KindText:
		switch strings.ToUpper(strings.TrimSpace(v.text)) {
		case "TRUE":
			return true, true
		case "FALSE":
			return false, true
		}
		return false, false
	}
	return false, false
}

// compareRank orders value kinds for cross-type comparison:
// Number < Text < Boolean.
func compareRank(k ValueKind) int {
	switch k {
	case KindNumber:
		return 0
	case KindText:
		return 1
	case KindBool:
		return 2
	}
	return -1
}

// compareValues implements the comparison operators' ordering. Blank is
// coerced to the other operand's type before comparison; mixed types
// order Number < Text < Boolean; text compares case-insensitively.
// Callers must filter out errors first.
func compareValues(a, b Value) int {
	if a.kind == KindBlank && b.kind == KindBlank {
		return 0
	}
	if a.kind == KindBlank {
		a = blankAs(b.kind)
	}
	if b.kind == KindBlank {
		b = blankAs(a.kind)
	}
	if a.kind != b.kind {
		ra, rb := compareRank(a.kind), compareRank(b.kind)
		switch {
		case ra < rb:
			return -1
		case ra > rb:
			return 1
		}
		return 0
	}
	switch a.kind {
	case KindNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	case KindText:
		return strings.Compare(strings.ToLower(a.text), strings.ToLower(b.text))
	case KindBool:
		switch {
		case !a.boolean && b.boolean:
			return -1
		case a.boolean && !b.boolean:
			return 1
		}
		return 0
	}
	return 0
}

// blankAs returns the value Blank coerces to in a comparison against the
// given kind.
func blankAs(k ValueKind) Value {
	switch k {
	case KindNumber:
		return Number(0)
	case KindText:
		return Text("")
	case KindBool:
		return Boolean(false)
	}
	return Blank()
}
