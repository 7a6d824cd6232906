package lattice

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalFormula evaluates one formula against a prepared fixture without
// going through the scheduler.
func (f *fixture) eval(src string) Value {
	f.t.Helper()
	f.formula("ZZ999", src).calc()
	return f.value("ZZ999")
}

func TestAggregateFunctions(t *testing.T) {
	f := newFixture(t)
	f.set("A1", Number(1)).set("A2", Number(2)).set("A3", Number(3))
	f.set("B1", Text("skip")).set("B2", Number(10)) // B3 left blank

	assert.Equal(t, Number(6), f.eval("=SUM(A1:A3)"))
	assert.Equal(t, Number(16), f.eval("=SUM(A1:A3,B1:B3)"), "text and blanks in ranges are skipped")
	assert.Equal(t, Number(8), f.eval(`=SUM("5",3)`), "scalar text coerces on full parse")
	assert.Equal(t, ErrorValue(ErrValue), f.eval(`=SUM("abc")`))

	assert.Equal(t, Number(2), f.eval("=AVERAGE(A1:A3)"))
	assert.Equal(t, ErrorValue(ErrDiv0), f.eval("=AVERAGE(B1:B1)"), "no numeric values")

	assert.Equal(t, Number(3), f.eval("=COUNT(A1:A3)"))
	assert.Equal(t, Number(3), f.eval("=COUNT(A1:B3)"), "text not counted")
	assert.Equal(t, Number(5), f.eval("=COUNTA(A1:B3)"), "blank not counted, text counted")

	assert.Equal(t, Number(10), f.eval("=MAX(A1:B3)"))
	assert.Equal(t, Number(1), f.eval("=MIN(A1:A3)"))
	assert.Equal(t, Number(0), f.eval("=MAX(B1:B1)"), "no numerics yields zero")

	assert.Equal(t, Number(2), f.eval("=MEDIAN(A1:A3)"))
	assert.Equal(t, Number(2.5), f.eval("=MEDIAN(1,2,3,4)"))
	assert.Equal(t, Number(2), f.eval("=MODE(1,2,2,3)"))
	assert.Equal(t, ErrorValue(ErrNA), f.eval("=MODE(1,2,3)"), "no repeated value")
}

func TestAverageA(t *testing.T) {
	f := newFixture(t)
	f.set("A1", Number(4)).set("A2", Text("x")).set("A3", Boolean(true))
	// (4 + 0 + 1) / 3
	got := f.eval("=AVERAGEA(A1:A3)")
	require.Equal(t, KindNumber, got.Kind())
	assert.InDelta(t, 5.0/3.0, got.Num(), 1e-12)
}

func TestLogicalFunctions(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, Boolean(true), f.eval("=AND(TRUE,1,\"TRUE\")"))
	assert.Equal(t, Boolean(false), f.eval("=AND(TRUE,0)"))
	assert.Equal(t, Boolean(true), f.eval("=OR(FALSE,0,1)"))
	assert.Equal(t, Boolean(false), f.eval("=OR(FALSE,FALSE)"))
	assert.Equal(t, Boolean(false), f.eval("=NOT(TRUE)"))
	assert.Equal(t, ErrorValue(ErrValue), f.eval(`=AND("nope")`))
}

func TestIfIsLazy(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, Number(1), f.eval("=IF(TRUE,1,1/0)"), "untaken branch never evaluates")
	assert.Equal(t, Number(5), f.eval("=IF(FALSE,1/0,5)"))
	assert.Equal(t, Boolean(false), f.eval("=IF(FALSE,1)"), "missing else yields FALSE")
	assert.Equal(t, ErrorValue(ErrDiv0), f.eval("=IF(1/0,1,2)"), "condition errors propagate")
	assert.Equal(t, ErrorValue(ErrValue), f.eval(`=IF("maybe",1,2)`))
}

func TestTextFunctions(t *testing.T) {
	f := newFixture(t)
	f.set("A1", Text("  Go  "))

	assert.Equal(t, Text("ab3"), f.eval(`=CONCATENATE("a","b",3)`))
	assert.Equal(t, Number(5), f.eval(`=LEN("hello")`))
	assert.Equal(t, Text("HELLO"), f.eval(`=UPPER("hello")`))
	assert.Equal(t, Text("hello"), f.eval(`=LOWER("HELLO")`))
	assert.Equal(t, Text("Go"), f.eval("=TRIM(A1)"))
}

func TestMathFunctions(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, Number(3), f.eval("=ABS(-3)"))
	assert.Equal(t, Number(3.14), f.eval("=ROUND(3.14159,2)"))
	assert.Equal(t, Number(3), f.eval("=ROUND(3.4)"))
	assert.Equal(t, Number(1200), f.eval("=ROUND(1234,-2)"))
	assert.Equal(t, Number(3), f.eval("=FLOOR(3.9)"))
	assert.Equal(t, Number(4), f.eval("=CEILING(3.1)"))
	assert.Equal(t, Number(4), f.eval("=SQRT(16)"))
	assert.Equal(t, ErrorValue(ErrNum), f.eval("=SQRT(-1)"))
	assert.Equal(t, Number(8), f.eval("=POWER(2,3)"))
	assert.Equal(t, Number(1), f.eval("=MOD(7,2)"))
	assert.Equal(t, Number(1), f.eval("=MOD(-3,2)"), "result takes the divisor's sign")
	assert.Equal(t, ErrorValue(ErrDiv0), f.eval("=MOD(1,0)"))

	pi := f.eval("=PI()")
	require.Equal(t, KindNumber, pi.Kind())
	assert.Equal(t, math.Pi, pi.Num())
}

func TestTypePredicates(t *testing.T) {
	f := newFixture(t)
	f.set("A1", Number(1)).set("A2", Text("x")).formula("A3", "=1/0").calc()

	assert.Equal(t, Boolean(true), f.eval("=ISNUMBER(A1)"))
	assert.Equal(t, Boolean(true), f.eval("=ISTEXT(A2)"))
	assert.Equal(t, Boolean(true), f.eval("=ISERROR(A3)"))
	assert.Equal(t, Boolean(false), f.eval("=ISERROR(A1)"))
	assert.Equal(t, Boolean(true), f.eval("=ISBLANK(A9)"))
	assert.Equal(t, Boolean(false), f.eval("=ISBLANK(A2)"))
}

func TestArityViolationsYieldNA(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, ErrorValue(ErrNA), f.eval("=NOT(1,2)"))
	assert.Equal(t, ErrorValue(ErrNA), f.eval("=IF(1)"))
	assert.Equal(t, ErrorValue(ErrNA), f.eval("=PI(1)"))
}

func TestUnknownFunctionIsNameError(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, ErrorValue(ErrName), f.eval("=NOPE(1,2)"))
	assert.Equal(t, ErrorValue(ErrName), f.eval("=BareName+1"))
}

func TestOperatorSemantics(t *testing.T) {
	f := newFixture(t)
	f.set("A1", Text("5"))

	assert.Equal(t, ErrorValue(ErrDiv0), f.eval("=1/0"))
	assert.Equal(t, Number(10), f.eval("=A1*2"), "text coerces in arithmetic")
	assert.Equal(t, ErrorValue(ErrValue), f.eval(`="x"*2`))
	assert.Equal(t, Text("ab"), f.eval(`="a"&"b"`))
	assert.Equal(t, Text("v=5"), f.eval(`="v="&A1`))
	assert.Equal(t, Number(0.5), f.eval("=50%"))
	assert.Equal(t, Number(4), f.eval("=-2^2"))
	assert.Equal(t, ErrorValue(ErrNum), f.eval("=0^0"))

	// comparisons
	assert.Equal(t, Boolean(true), f.eval(`="ABC"="abc"`))
	assert.Equal(t, Boolean(true), f.eval(`=1<"anything"`), "numbers sort before text")
	assert.Equal(t, Boolean(true), f.eval(`="zzz"<TRUE`), "text sorts before booleans")
	assert.Equal(t, Boolean(true), f.eval(`=Z99=""`), "blank equals empty text")
	assert.Equal(t, Boolean(true), f.eval("=Z99=0"), "blank equals zero")

	// left operand's error wins
	assert.Equal(t, ErrorValue(ErrDiv0), f.eval("=1/0+NOPE()"))
	assert.Equal(t, ErrorValue(ErrName), f.eval("=NOPE()+1/0"))
}
