package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueZeroIsBlank(t *testing.T) {
	var v Value
	assert.True(t, v.IsBlank())
	assert.True(t, v.Equal(Blank()))
	assert.Equal(t, "", v.String())
}

func TestNumericCoercion(t *testing.T) {
	cases := []struct {
		name string
		in   Value
		want float64
		ok   bool
	}{
		{"number", Number(3.5), 3.5, true},
		{"blank is zero", Blank(), 0, true},
		{"true is one", Boolean(true), 1, true},
		{"false is zero", Boolean(false), 0, true},
		{"numeric text", Text("42"), 42, true},
		{"padded numeric text", Text("  -1.5 "), -1.5, true},
		{"exponent text", Text("1e3"), 1000, true},
		{"partial number rejected", Text("12abc"), 0, false},
		{"plain text rejected", Text("hello"), 0, false},
		{"empty text rejected", Text(""), 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.in.toNumber()
			assert.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestBoolCoercion(t *testing.T) {
	got, ok := Text("true").toBool()
	assert.True(t, ok)
	assert.True(t, got)

	got, ok = Number(0).toBool()
	assert.True(t, ok)
	assert.False(t, got)

	_, ok = Text("yes").toBool()
	assert.False(t, ok)

	got, ok = Blank().toBool()
	assert.True(t, ok)
	assert.False(t, got)
}

func TestCompareValues(t *testing.T) {
	// same type
	assert.Negative(t, compareValues(Number(1), Number(2)))
	assert.Zero(t, compareValues(Text("ABC"), Text("abc")), "text compares case-insensitively")
	assert.Negative(t, compareValues(Boolean(false), Boolean(true)))

	// cross type: Number < Text < Boolean regardless of payload
	assert.Negative(t, compareValues(Number(1e9), Text("")))
	assert.Negative(t, compareValues(Text("zzz"), Boolean(false)))

	// blank coerces to the other operand's type
	assert.Zero(t, compareValues(Blank(), Number(0)))
	assert.Zero(t, compareValues(Blank(), Text("")))
	assert.Zero(t, compareValues(Blank(), Boolean(false)))
	assert.Positive(t, compareValues(Number(1), Blank()))
}

func TestGeneralNumberFormat(t *testing.T) {
	assert.Equal(t, "5", formatNumber(5))
	assert.Equal(t, "-3", formatNumber(-3))
	assert.Equal(t, "1.5", formatNumber(1.5))
	assert.Equal(t, "0", formatNumber(0))
}

func TestErrorLabels(t *testing.T) {
	assert.Equal(t, "#DIV/0!", ErrDiv0.Label())
	assert.Equal(t, "#NAME?", ErrName.Label())
	assert.Equal(t, "#CALC!", ErrCalc.Label())
	assert.Equal(t, "#SPILL!", ErrSpill.Label())
	assert.Equal(t, "#DIV/0!", ErrorValue(ErrDiv0).String())
}
