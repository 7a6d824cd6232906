package lattice

// Snapshot is the read surface the evaluator consults during one
// recalculation pass. It is captured once before the first level and
// mutated only by the scheduler thread between levels, so workers inside
// a level never observe partially-committed values from that same level.
type Snapshot struct {
	values map[CellKey]Value
}

// newSnapshot captures the committed value of every materialized cell.
func newSnapshot(wb *Workbook) *Snapshot {
	s := &Snapshot{values: make(map[CellKey]Value, len(wb.cells))}
	for key, cell := range wb.cells {
		s.values[key] = cell.Value
	}
	return s
}

// Value returns the committed value at key, Blank if the cell does
// not exist.
func (s *Snapshot) Value(key CellKey) Value {
	if v, ok := s.values[key]; ok {
		return v
	}
	return Blank()
}

// set replaces the committed value for one key. Called by the scheduler
// between levels, never concurrently.
func (s *Snapshot) set(key CellKey, v Value) {
	s.values[key] = v
}
