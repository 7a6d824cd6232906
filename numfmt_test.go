package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatValueNonNumeric(t *testing.T) {
	assert.Equal(t, "", FormatValue(Blank(), "0.00"))
	assert.Equal(t, "hello", FormatValue(Text("hello"), "0.00"))
	assert.Equal(t, "TRUE", FormatValue(Boolean(true), "0.00"))
	assert.Equal(t, "FALSE", FormatValue(Boolean(false), "0.00"))
	assert.Equal(t, "#DIV/0!", FormatValue(ErrorValue(ErrDiv0), "0.00"))
}

func TestFormatValueGeneral(t *testing.T) {
	assert.Equal(t, "5", FormatValue(Number(5), ""))
	assert.Equal(t, "1.5", FormatValue(Number(1.5), "General"))
	assert.Equal(t, "-3", FormatValue(Number(-3), ""))
}

func TestFormatValueNumberSections(t *testing.T) {
	assert.Equal(t, "3.14", FormatValue(Number(3.14159), "0.00"))
	assert.Equal(t, "3.00", FormatValue(Number(3), "0.00"))
	assert.Equal(t, "-3.50", FormatValue(Number(-3.5), "0.00"))
	assert.Equal(t, "1,234,567", FormatValue(Number(1234567), "#,##0"))
	assert.Equal(t, "1,234.50", FormatValue(Number(1234.5), "#,##0.00"))
	assert.Equal(t, "25%", FormatValue(Number(0.25), "0%"))
	assert.Equal(t, "007", FormatValue(Number(7), "000"))
	// hash decimals trim trailing zeros beyond the zero placeholders
	assert.Equal(t, "1.5", FormatValue(Number(1.5), "0.0#"))
	assert.Equal(t, "1.57", FormatValue(Number(1.567), "0.0#"))
	// negative section carries its own display
	assert.Equal(t, "(3.00)", FormatValue(Number(-3), "0.00;(0.00)"))
	assert.Equal(t, "3.00", FormatValue(Number(3), "0.00;(0.00)"))
}

func TestFormatValueDates(t *testing.T) {
	// serial 43831 is 2020-01-01
	assert.Equal(t, "2020-01-01", FormatValue(Number(43831), "yyyy-mm-dd"))
	assert.Equal(t, "01/01/2020", FormatValue(Number(43831), "dd/mm/yyyy"))
	// time-of-day from the fractional part
	assert.Equal(t, "12:00", FormatValue(Number(43831.5), "hh:mm"))
	assert.Equal(t, "06:30 PM", FormatValue(Number(43831.77083333333), "hh:mm AM/PM"))
}

func TestFormatValueElapsed(t *testing.T) {
	assert.Equal(t, "36:00", FormatValue(Number(1.5), "[h]:mm"))
}
