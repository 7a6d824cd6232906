package lattice

import (
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"time"
)

// Clock provides time for NOW and TODAY, swappable in tests.
type Clock interface {
	Now() time.Time
}

// WallClock reads the system clock.
type WallClock struct{}

func (WallClock) Now() time.Time { return time.Now() }

// RandomSource provides random numbers for RAND, swappable in tests.
type RandomSource interface {
	Float64() float64
}

type defaultRandom struct{}

func (defaultRandom) Float64() float64 { return rand.Float64() }

// error codes for mutation-boundary failures
const (
	CodeInvalidAddress = "INVALID_ADDRESS"
	CodeInvalidFormula = "INVALID_FORMULA"
	CodeUnknownSheet   = "UNKNOWN_SHEET"
)

// EngineError is the error shape for all engine API failures.
type EngineError struct {
	Code    string
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Err }

func invalidAddress(sheet, addr string, err error) error {
	return &EngineError{
		Code:    CodeInvalidAddress,
		Message: fmt.Sprintf("invalid address %q on sheet %q", addr, sheet),
		Err:     err,
	}
}

// Engine is the calculation engine: a workbook of cells, the dependency
// graph over them, and the dirty set pending the next recalculation.
// Mutations are cheap graph edits; all evaluation happens inside
// Recalculate. An Engine is not safe for concurrent use; recalculation
// parallelism is internal.
type Engine struct {
	wb      *Workbook
	graph   *DependencyGraph
	dirty   map[CellKey]struct{}
	funcs   *FuncTable
	clock   Clock
	rng     RandomSource
	logger  *slog.Logger
	workers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger for recalculation passes.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock substitutes the time source used by NOW and TODAY.
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithRandom substitutes the random source used by RAND.
func WithRandom(rng RandomSource) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithWorkers bounds evaluation parallelism inside a level. Values
// below 1 are ignored.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.workers = n
		}
	}
}

// WithFuncTable replaces the built-in function table.
func WithFuncTable(t *FuncTable) Option {
	return func(e *Engine) { e.funcs = t }
}

// New creates an empty engine with the default built-in functions.
func New(opts ...Option) *Engine {
	e := &Engine{
		wb:      NewWorkbook(),
		graph:   NewDependencyGraph(),
		dirty:   make(map[CellKey]struct{}),
		funcs:   DefaultFuncTable(),
		clock:   WallClock{},
		rng:     defaultRandom{},
		logger:  slog.Default(),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddSheet creates the named sheet if it does not exist and returns its id.
func (e *Engine) AddSheet(name string) SheetID {
	return e.wb.EnsureSheet(name)
}

// Sheets returns sheet names in creation order.
func (e *Engine) Sheets() []string { return e.wb.Sheets() }

// SetCellValue writes a literal value. Any formula previously on the
// cell is dropped along with its graph edges; dependents are marked
// dirty, the cell itself is not (a literal needs no computation).
func (e *Engine) SetCellValue(sheet, addr string, v Value) error {
	key, err := e.resolveAddr(sheet, addr)
	if err != nil {
		return err
	}
	cell := e.wb.ensureCell(key)
	if cell.IsFormula() {
		e.graph.ClearCell(key)
	}
	cell.Value = v
	cell.Formula = ""
	cell.Compiled = nil
	cell.Volatile = false
	cell.ThreadSafe = true
	delete(e.dirty, key)
	e.graph.MarkDirtyDependents(key, e.dirty)
	return nil
}

// SetCellFormula parses, compiles and installs a formula. On a parse
// error the cell and the graph are left untouched. The compiled
// precedent set replaces the cell's previous edges in full, and the cell
// plus its transitive dependents are marked dirty. The stored value is
// stale until the next recalculation.
func (e *Engine) SetCellFormula(sheet, addr, formula string) error {
	key, err := e.resolveAddr(sheet, addr)
	if err != nil {
		return err
	}
	expr, err := ParseFormula(formula)
	if err != nil {
		return &EngineError{
			Code:    CodeInvalidFormula,
			Message: fmt.Sprintf("cannot parse formula for %s!%s", sheet, addr),
			Err:     err,
		}
	}
	compiled := compileExpr(expr, key, e.wb.EnsureSheet, e.funcs)
	// referenced cells materialize as Blank literals
	for _, prec := range compiled.precedents {
		e.wb.ensureCell(prec)
	}

	cell := e.wb.ensureCell(key)
	cell.Formula = formula
	cell.Compiled = compiled
	cell.Volatile = compiled.volatile
	cell.ThreadSafe = compiled.threadSafe

	e.graph.SetPrecedents(key, compiled.precedents)
	e.graph.SetVolatile(key, compiled.volatile)
	e.graph.MarkDirtyIncludingSelf(key, e.dirty)
	return nil
}

// ClearCell removes the cell's value and formula and marks dependents
// dirty. Clearing a missing cell is a no-op.
func (e *Engine) ClearCell(sheet, addr string) error {
	key, err := e.resolveAddr(sheet, addr)
	if err != nil {
		return err
	}
	if _, ok := e.wb.cell(key); !ok {
		return nil
	}
	return e.SetCellValue(sheet, addr, Blank())
}

// CellValue returns the committed value of a cell. Unknown sheets and
// absent cells read as Blank; an unparsable address reads as #REF!. The
// value may be stale if mutations are pending recalculation.
func (e *Engine) CellValue(sheet, addr string) Value {
	row, col, err := ParseAddr(addr)
	if err != nil {
		return ErrorValue(ErrRef)
	}
	id, ok := e.wb.SheetIDByName(sheet)
	if !ok {
		return Blank()
	}
	return e.wb.CellValue(CellKey{Sheet: id, Row: row, Col: col})
}

// CellFormula returns the formula text stored on a cell, "" for literal
// and absent cells.
func (e *Engine) CellFormula(sheet, addr string) (string, error) {
	row, col, err := ParseAddr(addr)
	if err != nil {
		return "", invalidAddress(sheet, addr, err)
	}
	id, ok := e.wb.SheetIDByName(sheet)
	if !ok {
		return "", nil
	}
	cell, ok := e.wb.cell(CellKey{Sheet: id, Row: row, Col: col})
	if !ok {
		return "", nil
	}
	return cell.Formula, nil
}

// FormattedCellValue renders a cell's value through a number format
// string such as "0.00" or "#,##0".
func (e *Engine) FormattedCellValue(sheet, addr, format string) string {
	return FormatValue(e.CellValue(sheet, addr), format)
}

// Recalculate brings every dirty cell to its fixed point, evaluating
// independent cells in parallel where the level allows it.
func (e *Engine) Recalculate() {
	e.runRecalc(e.workers > 1)
}

// RecalculateSingleThreaded runs the same pass strictly sequentially.
// Results are identical to the parallel mode.
func (e *Engine) RecalculateSingleThreaded() {
	e.runRecalc(false)
}

// RecalculateMultiThreaded runs the pass with parallel levels even when
// the engine was configured with a single worker.
func (e *Engine) RecalculateMultiThreaded() {
	e.runRecalc(true)
}

// Precedents returns the cells the formula at the address reads.
func (e *Engine) Precedents(sheet, addr string) ([]CellKey, error) {
	key, err := e.resolveAddr(sheet, addr)
	if err != nil {
		return nil, err
	}
	return e.graph.Precedents(key), nil
}

// Dependents returns the cells whose formulas read the address.
func (e *Engine) Dependents(sheet, addr string) ([]CellKey, error) {
	key, err := e.resolveAddr(sheet, addr)
	if err != nil {
		return nil, err
	}
	return e.graph.Dependents(key), nil
}

func (e *Engine) resolveAddr(sheet, addr string) (CellKey, error) {
	row, col, err := ParseAddr(addr)
	if err != nil {
		return CellKey{}, invalidAddress(sheet, addr, err)
	}
	return CellKey{Sheet: e.wb.EnsureSheet(sheet), Row: row, Col: col}, nil
}
