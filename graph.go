package lattice

// DependencyGraph maintains the precedents/dependents mirror over cell
// keys plus the set of volatile formula cells. The two edge maps are
// strict mutual inverses: b in precedents[a] iff a in dependents[b].
// Entries with an empty set are removed, never tombstoned.
type DependencyGraph struct {
	precedents map[CellKey]map[CellKey]struct{} // cells this cell reads
	dependents map[CellKey]map[CellKey]struct{} // cells that read this cell
	volatile   map[CellKey]struct{}
}

// NewDependencyGraph creates an empty dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		precedents: make(map[CellKey]map[CellKey]struct{}),
		dependents: make(map[CellKey]map[CellKey]struct{}),
		volatile:   make(map[CellKey]struct{}),
	}
}

// SetPrecedents replaces the full precedent set for cell. Formula edits
// can change precedents arbitrarily, so this is a full replace, not a
// diff: every old precedent loses its back-edge first, then every new
// precedent gains one.
func (g *DependencyGraph) SetPrecedents(cell CellKey, precedents []CellKey) {
	if old, ok := g.precedents[cell]; ok {
		for p := range old {
			if deps, ok := g.dependents[p]; ok {
				delete(deps, cell)
				if len(deps) == 0 {
					delete(g.dependents, p)
				}
			}
		}
		delete(g.precedents, cell)
	}

	if len(precedents) == 0 {
		return
	}
	set := make(map[CellKey]struct{}, len(precedents))
	for _, p := range precedents {
		set[p] = struct{}{}
		deps, ok := g.dependents[p]
		if !ok {
			deps = make(map[CellKey]struct{})
			g.dependents[p] = deps
		}
		deps[cell] = struct{}{}
	}
	g.precedents[cell] = set
}

// ClearCell removes all outgoing edges for cell and drops it from the
// volatile set. Incoming edges (other cells reading this one) survive.
func (g *DependencyGraph) ClearCell(cell CellKey) {
	g.SetPrecedents(cell, nil)
	delete(g.volatile, cell)
}

// SetVolatile adds or removes cell from the volatile set.
func (g *DependencyGraph) SetVolatile(cell CellKey, v bool) {
	if v {
		g.volatile[cell] = struct{}{}
	} else {
		delete(g.volatile, cell)
	}
}

// IsVolatile reports whether cell is in the volatile set.
func (g *DependencyGraph) IsVolatile(cell CellKey) bool {
	_, ok := g.volatile[cell]
	return ok
}

// Precedents returns the cells cell reads.
func (g *DependencyGraph) Precedents(cell CellKey) []CellKey {
	set := g.precedents[cell]
	out := make([]CellKey, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

// Dependents returns the cells that read cell.
func (g *DependencyGraph) Dependents(cell CellKey) []CellKey {
	set := g.dependents[cell]
	out := make([]CellKey, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	return out
}

// MarkDirtyDependents inserts every cell transitively reading from (but
// excluding) from into dirty. Used after a literal value changes.
func (g *DependencyGraph) MarkDirtyDependents(from CellKey, dirty map[CellKey]struct{}) {
	g.markDirtyFrom(from, false, dirty)
}

// MarkDirtyIncludingSelf is the same traversal including from itself.
// Used after a formula is (re)installed and for volatile expansion.
func (g *DependencyGraph) MarkDirtyIncludingSelf(from CellKey, dirty map[CellKey]struct{}) {
	g.markDirtyFrom(from, true, dirty)
}

// markDirtyFrom is a breadth-first walk of the dependents edges.
// Membership in dirty doubles as the visited set, so the walk terminates
// even when the graph contains cycles.
func (g *DependencyGraph) markDirtyFrom(from CellKey, includeSelf bool, dirty map[CellKey]struct{}) {
	if includeSelf {
		dirty[from] = struct{}{}
	}
	queue := []CellKey{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range g.dependents[cur] {
			if _, seen := dirty[dep]; seen {
				continue
			}
			dirty[dep] = struct{}{}
			queue = append(queue, dep)
		}
	}
}
