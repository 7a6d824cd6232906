package lattice

// Cell is the authoritative record for one grid position. A Cell with an
// empty Formula is a literal: its Value is authoritative and never
// recomputed. A Cell with a Formula has a derived Value that must equal
// the result of evaluating Compiled whenever the cell is not dirty.
type Cell struct {
	Value      Value
	Formula    string        // original source text, kept for display/edit round-trip
	Compiled   *CompiledExpr // sheet-resolved expression, owned exclusively by this cell
	Volatile   bool
	ThreadSafe bool
}

// IsFormula reports whether the cell holds a formula.
func (c *Cell) IsFormula() bool { return c.Compiled != nil }

// Workbook owns the (sheet, address) -> Cell mapping and the sheet-name
// interning table. Sheets are created lazily on first reference by name
// and never removed; cells are created lazily (by mutation or by being
// referenced as a precedent) and never deleted.
type Workbook struct {
	sheetIDs   map[string]SheetID
	sheetNames []string // index id-1
	cells      map[CellKey]*Cell
}

// NewWorkbook creates an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{
		sheetIDs: make(map[string]SheetID),
		cells:    make(map[CellKey]*Cell),
	}
}

// EnsureSheet returns the id for name, interning it if unseen. O(1)
// amortized; ids are dense and stable for the workbook's lifetime.
func (w *Workbook) EnsureSheet(name string) SheetID {
	if id, ok := w.sheetIDs[name]; ok {
		return id
	}
	w.sheetNames = append(w.sheetNames, name)
	id := SheetID(len(w.sheetNames))
	w.sheetIDs[name] = id
	return id
}

// SheetIDByName returns the id for an existing sheet.
func (w *Workbook) SheetIDByName(name string) (SheetID, bool) {
	id, ok := w.sheetIDs[name]
	return id, ok
}

// SheetName returns the name for a sheet id.
func (w *Workbook) SheetName(id SheetID) (string, bool) {
	if id == 0 || int(id) > len(w.sheetNames) {
		return "", false
	}
	return w.sheetNames[id-1], true
}

// Sheets lists all sheet names in creation order.
func (w *Workbook) Sheets() []string {
	out := make([]string, len(w.sheetNames))
	copy(out, w.sheetNames)
	return out
}

// cell returns the cell at key if it exists.
func (w *Workbook) cell(key CellKey) (*Cell, bool) {
	c, ok := w.cells[key]
	return c, ok
}

// ensureCell returns the cell at key, inserting a Blank literal if absent.
// Used both by direct mutation and by the compiler touching a precedent.
func (w *Workbook) ensureCell(key CellKey) *Cell {
	if c, ok := w.cells[key]; ok {
		return c
	}
	c := &Cell{ThreadSafe: true}
	w.cells[key] = c
	return c
}

// CellValue returns the stored value at key, Blank if the cell does
// not exist.
func (w *Workbook) CellValue(key CellKey) Value {
	if c, ok := w.cells[key]; ok {
		return c.Value
	}
	return Blank()
}

// CellCount returns the number of materialized cells.
func (w *Workbook) CellCount() int { return len(w.cells) }
