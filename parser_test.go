package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) Expr {
	t.Helper()
	expr, err := ParseFormula(src)
	require.NoError(t, err, src)
	return expr
}

func TestParseCanonicalRender(t *testing.T) {
	// parse then render back to canonical text
	cases := []struct {
		in   string
		want string
	}{
		{"=1+2", "1+2"},
		{"= 1 + 2 ", "1+2"},
		{"1+2*3", "1+2*3"},
		{"(1+2)*3", "(1+2)*3"},
		{"=A1", "A1"},
		{"=$a$1", "$A$1"},
		{"=A1:B3", "A1:B3"},
		{"=sum(A1:A3)", "SUM(A1:A3)"},
		{"=if(A1>0,\"yes\",\"no\")", `IF(A1>0,"yes","no")`},
		{"=Data!B2", "Data!B2"},
		{"='My Data'!B2", "'My Data'!B2"},
		{"=@A1:A3", "@A1:A3"},
		{"=50%", "50%"},
		{"=-A1", "-A1"},
		{"=TRUE", "TRUE"},
		{`="a"&"b"`, `"a"&"b"`},
		{`="say ""hi"""`, `"say ""hi"""`},
		{"=1<=2", "1<=2"},
		{"=1<>2", "1<>2"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, mustParse(t, tc.in).String())
		})
	}
}

func TestParsePrecedence(t *testing.T) {
	// -2^2 binds the minus first
	expr := mustParse(t, "=-2^2")
	bin, ok := expr.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, OpPow, bin.Op)
	_, ok = bin.Left.(*UnaryExpr)
	assert.True(t, ok)

	// comparison is loosest
	expr = mustParse(t, "=1+2>2*1")
	bin, ok = expr.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, OpGt, bin.Op)

	// concat sits between comparison and arithmetic
	expr = mustParse(t, `="n="&1+2`)
	bin, ok = expr.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, OpConcat, bin.Op)
}

func TestParseReferenceShapes(t *testing.T) {
	expr := mustParse(t, "=B12")
	ref, ok := expr.(*RefExpr)
	require.True(t, ok)
	assert.Equal(t, uint32(11), ref.Row)
	assert.Equal(t, uint32(1), ref.Col)
	assert.False(t, ref.HasSheet)

	expr = mustParse(t, "=Data!A1:C3")
	rng, ok := expr.(*RangeExpr)
	require.True(t, ok)
	assert.True(t, rng.HasSheet)
	assert.Equal(t, "Data", rng.Sheet)
	assert.Equal(t, uint32(2), rng.EndRow)
	assert.Equal(t, uint32(2), rng.EndCol)
}

func TestParseBareNameFallsBack(t *testing.T) {
	expr := mustParse(t, "=TaxRate*2")
	bin, ok := expr.(*BinaryExpr)
	require.True(t, ok)
	name, ok := bin.Left.(*NameExpr)
	require.True(t, ok)
	assert.Equal(t, "TaxRate", name.Name)
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"=",
		"=1+",
		"=(1+2",
		`="unterminated`,
		"='Sheet!A1",
		"=SUM(1,)",
		"=SUM(1 2)",
		"=A1:",
		"=Data!notanaddr",
		"=1 2",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := ParseFormula(src)
			require.Error(t, err, src)
			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestCompileCollectsPrecedents(t *testing.T) {
	wb := NewWorkbook()
	sheet := wb.EnsureSheet("Sheet1")
	origin := CellKey{Sheet: sheet, Row: 0, Col: 3}

	expr := mustParse(t, "=A1+SUM(B1:B3)+Data!C1")
	compiled := compileExpr(expr, origin, wb.EnsureSheet, DefaultFuncTable())

	data, ok := wb.SheetIDByName("Data")
	require.True(t, ok, "compiling interns referenced sheets")

	keys := make(map[CellKey]struct{})
	for _, k := range compiled.Precedents() {
		keys[k] = struct{}{}
	}
	assert.Len(t, keys, 5)
	assert.Contains(t, keys, CellKey{Sheet: sheet, Row: 0, Col: 0})
	assert.Contains(t, keys, CellKey{Sheet: sheet, Row: 2, Col: 1})
	assert.Contains(t, keys, CellKey{Sheet: data, Row: 0, Col: 2})
}

func TestCompileClassifiesVolatilityAndThreadSafety(t *testing.T) {
	wb := NewWorkbook()
	origin := CellKey{Sheet: wb.EnsureSheet("Sheet1")}
	funcs := DefaultFuncTable()

	plain := compileExpr(mustParse(t, "=SUM(A1:A3)"), origin, wb.EnsureSheet, funcs)
	assert.False(t, plain.IsVolatile())
	assert.True(t, plain.IsThreadSafe())

	now := compileExpr(mustParse(t, "=NOW()+1"), origin, wb.EnsureSheet, funcs)
	assert.True(t, now.IsVolatile())
	assert.True(t, now.IsThreadSafe())

	rand := compileExpr(mustParse(t, "=RAND()"), origin, wb.EnsureSheet, funcs)
	assert.True(t, rand.IsVolatile())
	assert.False(t, rand.IsThreadSafe())

	unknown := compileExpr(mustParse(t, "=MYSTERY(1)"), origin, wb.EnsureSheet, funcs)
	assert.False(t, unknown.IsThreadSafe(), "unknown functions default to not thread-safe")
}

func TestNormalizeRectOrdersEndpoints(t *testing.T) {
	rng := mustParse(t, "=C3:A1").(*RangeExpr)
	rect := normalizeRect(rng)
	assert.Equal(t, Rect{StartRow: 0, StartCol: 0, EndRow: 2, EndCol: 2}, rect)
}
