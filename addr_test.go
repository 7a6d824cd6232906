package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddr(t *testing.T) {
	cases := []struct {
		in       string
		row, col uint32
	}{
		{"A1", 0, 0},
		{"a1", 0, 0},
		{"B12", 11, 1},
		{"Z1", 0, 25},
		{"AA1", 0, 26},
		{"XFD1048576", MaxRows - 1, MaxCols - 1},
		{"$C$3", 2, 2},
		{"$C3", 2, 2},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			row, col, err := ParseAddr(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.row, row)
			assert.Equal(t, tc.col, col)
		})
	}
}

func TestParseAddrRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "1A", "A0", "A", "12", "A1B", "XFE1", "A1048577", "A-1"} {
		t.Run(in, func(t *testing.T) {
			_, _, err := ParseAddr(in)
			assert.Error(t, err)
		})
	}
}

func TestParseAddrAbsoluteMarkers(t *testing.T) {
	_, _, absRow, absCol, err := parseAddrFull("$B$2")
	require.NoError(t, err)
	assert.True(t, absRow)
	assert.True(t, absCol)

	_, _, absRow, absCol, err = parseAddrFull("B$2")
	require.NoError(t, err)
	assert.True(t, absRow)
	assert.False(t, absCol)
}

func TestFormatAddrRoundTrip(t *testing.T) {
	for _, addr := range []string{"A1", "Z99", "AA1", "AZ10", "XFD1048576"} {
		row, col, err := ParseAddr(addr)
		require.NoError(t, err)
		assert.Equal(t, addr, FormatAddr(row, col))
	}
}

func TestColumnLabelBoundaries(t *testing.T) {
	assert.Equal(t, "A", columnLabel(0))
	assert.Equal(t, "Z", columnLabel(25))
	assert.Equal(t, "AA", columnLabel(26))
	assert.Equal(t, "ZZ", columnLabel(701))
	assert.Equal(t, "AAA", columnLabel(702))
	assert.Equal(t, "XFD", columnLabel(MaxCols-1))
}

func TestQuoteSheetName(t *testing.T) {
	assert.Equal(t, "Data", quoteSheetName("Data"))
	assert.Equal(t, "'My Data'", quoteSheetName("My Data"))
	assert.Equal(t, "'It''s'", quoteSheetName("It's"))
}
