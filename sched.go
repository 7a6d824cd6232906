package lattice

import (
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// levelTask pairs a cell with the slot its result lands in, so parallel
// workers never write to a shared structure.
type levelTask struct {
	key  CellKey
	expr *CompiledExpr
}

// runRecalc drives one recalculation pass to its fixed point: expand the
// dirty set with volatile cells, snapshot the workbook, then peel the
// dirty subgraph level by level in topological order. Cells still
// uncommitted when no ready frontier remains are on or downstream of a
// cycle and resolve to #CALC!.
func (e *Engine) runRecalc(parallel bool) {
	passID := uuid.NewString()[:8]

	for key := range e.graph.volatile {
		e.graph.MarkDirtyIncludingSelf(key, e.dirty)
	}
	if len(e.dirty) == 0 {
		e.logger.Debug("recalc skipped, nothing dirty", "pass", passID)
		return
	}

	snap := newSnapshot(e.wb)

	// in-degree restricted to the dirty subgraph: edges from clean
	// precedents are already satisfied by the snapshot
	indeg := make(map[CellKey]int, len(e.dirty))
	for key := range e.dirty {
		cell, ok := e.wb.cell(key)
		if !ok || cell.Compiled == nil {
			// a stale dirty entry, nothing to compute
			delete(e.dirty, key)
			continue
		}
		count := 0
		for _, prec := range cell.Compiled.precedents {
			if _, ok := e.dirty[prec]; ok {
				count++
			}
		}
		indeg[key] = count
	}

	frontier := make([]CellKey, 0, len(indeg))
	for key, deg := range indeg {
		if deg == 0 {
			frontier = append(frontier, key)
		}
	}
	sortKeys(frontier)

	mode := "single"
	if parallel {
		mode = "multi"
	}
	e.logger.Debug("recalc pass started",
		"pass", passID, "mode", mode, "dirty", len(indeg))

	levels := 0
	for len(frontier) > 0 {
		levels++
		tasks := make([]levelTask, len(frontier))
		barrier := false
		for i, key := range frontier {
			cell, _ := e.wb.cell(key)
			expr := cell.Compiled
			tasks[i] = levelTask{key: key, expr: expr}
			if expr.volatile || !expr.threadSafe {
				barrier = true
			}
		}

		results := make([]Value, len(tasks))
		if parallel && !barrier && len(tasks) > 1 {
			var g errgroup.Group
			g.SetLimit(e.workers)
			for i, task := range tasks {
				i, task := i, task
				g.Go(func() error {
					results[i] = e.evalCell(snap, task)
					return nil
				})
			}
			// tasks never return errors; Wait only synchronizes
			_ = g.Wait()
		} else {
			for i, task := range tasks {
				results[i] = e.evalCell(snap, task)
			}
		}

		// commit the level, then promote dependents whose last dirty
		// precedent just resolved
		next := frontier[:0:0]
		for i, task := range tasks {
			cell, _ := e.wb.cell(task.key)
			cell.Value = results[i]
			snap.set(task.key, results[i])
			delete(e.dirty, task.key)
			for dep := range e.graph.dependents[task.key] {
				if _, ok := e.dirty[dep]; !ok {
					continue
				}
				indeg[dep]--
				if indeg[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sortKeys(next)
		frontier = next
	}

	// anything left is on or downstream of a reference cycle
	if len(e.dirty) > 0 {
		e.logger.Debug("recalc cycle detected",
			"pass", passID, "cells", len(e.dirty))
		for key := range e.dirty {
			if cell, ok := e.wb.cell(key); ok {
				cell.Value = ErrorValue(ErrCalc)
			}
			delete(e.dirty, key)
		}
	}

	e.logger.Debug("recalc pass finished", "pass", passID, "levels", levels)
}

func (e *Engine) evalCell(snap *Snapshot, task levelTask) Value {
	ctx := &evalContext{snap: snap, origin: task.key, clock: e.clock, rng: e.rng}
	return evalScalar(ctx, task.expr.root)
}

// sortKeys orders cells by sheet, then row, then column. Deterministic
// level ordering is what makes single- and multi-threaded passes agree.
func sortKeys(keys []CellKey) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Sheet != b.Sheet {
			return a.Sheet < b.Sheet
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	})
}
