package lattice

import (
	"fmt"
	"strings"
)

// SheetID is a dense integer assigned on first reference to a sheet name.
// 0 is reserved and never assigned.
type SheetID uint32

// CellKey identifies a cell by sheet and 0-based (row, column) coordinates.
// Keys are value types: the graph and snapshot are plain key->value maps,
// never pointer webs, even though the logical graph can contain cycles.
type CellKey struct {
	Sheet SheetID
	Row   uint32
	Col   uint32
}

// Excel grid limits: rows 1..1048576, columns A..XFD.
const (
	MaxRows uint32 = 1048576
	MaxCols uint32 = 16384
)

// ParseAddr parses an A1-style address like "B12", "$C$3", or "aa10" into
// 0-based (row, col). The $ markers are accepted and ignored; callers that
// need them use parseAddrFull.
func ParseAddr(s string) (row, col uint32, err error) {
	row, col, _, _, err = parseAddrFull(s)
	return row, col, err
}

// parseAddrFull parses an A1-style address and reports which coordinates
// carry a $ absolute marker.
func parseAddrFull(s string) (row, col uint32, absRow, absCol bool, err error) {
	i := 0
	n := len(s)
	if i < n && s[i] == '$' {
		absCol = true
		i++
	}
	colStart := i
	var colVal uint64
	for i < n {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			colVal = colVal*26 + uint64(c-'A'+1)
		} else if c >= 'a' && c <= 'z' {
			colVal = colVal*26 + uint64(c-'a'+1)
		} else {
			break
		}
		if colVal > uint64(MaxCols) {
			return 0, 0, false, false, fmt.Errorf("column out of range in %q", s)
		}
		i++
	}
	if i == colStart {
		return 0, 0, false, false, fmt.Errorf("missing column letters in %q", s)
	}
	if i < n && s[i] == '$' {
		absRow = true
		i++
	}
	rowStart := i
	var rowVal uint64
	for i < n && s[i] >= '0' && s[i] <= '9' {
		rowVal = rowVal*10 + uint64(s[i]-'0')
		if rowVal > uint64(MaxRows) {
			return 0, 0, false, false, fmt.Errorf("row out of range in %q", s)
		}
		i++
	}
	if i == rowStart || rowVal == 0 {
		return 0, 0, false, false, fmt.Errorf("missing or invalid row number in %q", s)
	}
	if i != n {
		return 0, 0, false, false, fmt.Errorf("trailing characters in address %q", s)
	}
	return uint32(rowVal - 1), uint32(colVal - 1), absRow, absCol, nil
}

// isAddr reports whether s parses as an A1-style address.
func isAddr(s string) bool {
	_, _, err := ParseAddr(s)
	return err == nil
}

// FormatAddr renders 0-based (row, col) as an A1-style address.
func FormatAddr(row, col uint32) string {
	return columnLabel(col) + fmt.Sprint(row+1)
}

// columnLabel converts a 0-based column index to base-26 letters.
func columnLabel(col uint32) string {
	var b [3]byte
	i := len(b)
	n := col + 1
	for n > 0 {
		i--
		n--
		b[i] = byte('A' + n%26)
		n /= 26
	}
	return string(b[i:])
}

// sheetNameNeedsQuotes reports whether a sheet name must be quoted in
// formula text.
func sheetNameNeedsQuotes(name string) bool {
	if name == "" {
		return true
	}
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return true
		}
	}
	return false
}

// quoteSheetName renders a sheet name for formula display, quoting when
// needed ('It''s here'!A1).
func quoteSheetName(name string) string {
	if !sheetNameNeedsQuotes(name) {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
