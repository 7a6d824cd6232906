package lattice

import (
	"math"
	"sort"
	"strings"
	"time"
)

// FuncDef describes one built-in function: arity bounds, scheduler
// classification, and the implementation. MaxArgs of -1 means variadic.
// Lazy implementations receive unevaluated argument expressions and run
// instead of Impl; everything else gets evaluated operands.
type FuncDef struct {
	Name       string
	MinArgs    int
	MaxArgs    int
	Volatile   bool
	ThreadSafe bool
	Impl       func(ctx *evalContext, args []operand) Value
	Lazy       func(ctx *evalContext, args []cexpr) Value
}

// FuncTable maps upper-cased function names to definitions. It is built
// once at engine construction; no global registration.
type FuncTable struct {
	defs map[string]*FuncDef
}

// NewFuncTable returns an empty table.
func NewFuncTable() *FuncTable {
	return &FuncTable{defs: make(map[string]*FuncDef)}
}

// Register adds or replaces a definition under its upper-cased name.
func (t *FuncTable) Register(def *FuncDef) {
	t.defs[strings.ToUpper(def.Name)] = def
}

// Lookup finds a definition by name, case-insensitively.
func (t *FuncTable) Lookup(name string) (*FuncDef, bool) {
	def, ok := t.defs[strings.ToUpper(name)]
	return def, ok
}

// DefaultFuncTable builds the standard built-in set.
func DefaultFuncTable() *FuncTable {
	t := NewFuncTable()
	for _, def := range builtinDefs {
		t.Register(def)
	}
	return t
}

var builtinDefs = []*FuncDef{
	{Name: "SUM", MinArgs: 1, MaxArgs: -1, ThreadSafe: true, Impl: fnSUM},
	{Name: "AVERAGE", MinArgs: 1, MaxArgs: -1, ThreadSafe: true, Impl: fnAVERAGE},
	{Name: "AVERAGEA", MinArgs: 1, MaxArgs: -1, ThreadSafe: true, Impl: fnAVERAGEA},
	{Name: "COUNT", MinArgs: 1, MaxArgs: -1, ThreadSafe: true, Impl: fnCOUNT},
	{Name: "COUNTA", MinArgs: 1, MaxArgs: -1, ThreadSafe: true, Impl: fnCOUNTA},
	{Name: "MAX", MinArgs: 1, MaxArgs: -1, ThreadSafe: true, Impl: fnMAX},
	{Name: "MIN", MinArgs: 1, MaxArgs: -1, ThreadSafe: true, Impl: fnMIN},
	{Name: "MEDIAN", MinArgs: 1, MaxArgs: -1, ThreadSafe: true, Impl: fnMEDIAN},
	{Name: "MODE", MinArgs: 1, MaxArgs: -1, ThreadSafe: true, Impl: fnMODE},
	{Name: "IF", MinArgs: 2, MaxArgs: 3, ThreadSafe: true, Lazy: fnIF},
	{Name: "AND", MinArgs: 1, MaxArgs: -1, ThreadSafe: true, Impl: fnAND},
	{Name: "OR", MinArgs: 1, MaxArgs: -1, ThreadSafe: true, Impl: fnOR},
	{Name: "NOT", MinArgs: 1, MaxArgs: 1, ThreadSafe: true, Impl: fnNOT},
	{Name: "CONCATENATE", MinArgs: 1, MaxArgs: -1, ThreadSafe: true, Impl: fnCONCATENATE},
	{Name: "LEN", MinArgs: 1, MaxArgs: 1, ThreadSafe: true, Impl: fnLEN},
	{Name: "UPPER", MinArgs: 1, MaxArgs: 1, ThreadSafe: true, Impl: fnUPPER},
	{Name: "LOWER", MinArgs: 1, MaxArgs: 1, ThreadSafe: true, Impl: fnLOWER},
	{Name: "TRIM", MinArgs: 1, MaxArgs: 1, ThreadSafe: true, Impl: fnTRIM},
	{Name: "ABS", MinArgs: 1, MaxArgs: 1, ThreadSafe: true, Impl: fnABS},
	{Name: "ROUND", MinArgs: 1, MaxArgs: 2, ThreadSafe: true, Impl: fnROUND},
	{Name: "FLOOR", MinArgs: 1, MaxArgs: 1, ThreadSafe: true, Impl: fnFLOOR},
	{Name: "CEILING", MinArgs: 1, MaxArgs: 1, ThreadSafe: true, Impl: fnCEILING},
	{Name: "SQRT", MinArgs: 1, MaxArgs: 1, ThreadSafe: true, Impl: fnSQRT},
	{Name: "POWER", MinArgs: 2, MaxArgs: 2, ThreadSafe: true, Impl: fnPOWER},
	{Name: "MOD", MinArgs: 2, MaxArgs: 2, ThreadSafe: true, Impl: fnMOD},
	{Name: "PI", MinArgs: 0, MaxArgs: 0, ThreadSafe: true, Impl: fnPI},
	{Name: "ISBLANK", MinArgs: 1, MaxArgs: 1, ThreadSafe: true, Impl: fnISBLANK},
	{Name: "ISERROR", MinArgs: 1, MaxArgs: 1, ThreadSafe: true, Impl: fnISERROR},
	{Name: "ISNUMBER", MinArgs: 1, MaxArgs: 1, ThreadSafe: true, Impl: fnISNUMBER},
	{Name: "ISTEXT", MinArgs: 1, MaxArgs: 1, ThreadSafe: true, Impl: fnISTEXT},
	{Name: "NOW", MinArgs: 0, MaxArgs: 0, Volatile: true, ThreadSafe: true, Impl: fnNOW},
	{Name: "TODAY", MinArgs: 0, MaxArgs: 0, Volatile: true, ThreadSafe: true, Impl: fnTODAY},
	// RAND draws from a shared source, so it also forces a sequential level
	{Name: "RAND", MinArgs: 0, MaxArgs: 0, Volatile: true, ThreadSafe: false, Impl: fnRAND},
}

// foldNumbers walks every argument's values in order. Scalar arguments
// that fail numeric coercion yield #VALUE!; non-numeric cells inside a
// range are skipped, blanks in a range are skipped too. Errors propagate.
func foldNumbers(ctx *evalContext, args []operand, visit func(float64)) Value {
	for _, arg := range args {
		var failed Value
		arg.eachValue(ctx, func(v Value) bool {
			if v.IsError() {
				failed = v
				return false
			}
			if arg.isRef {
				if v.kind != KindNumber {
					return true
				}
				visit(v.num)
				return true
			}
			num, ok := v.toNumber()
			if !ok {
				failed = ErrorValue(ErrValue)
				return false
			}
			visit(num)
			return true
		})
		if failed.IsError() {
			return failed
		}
	}
	return Value{}
}

func fnSUM(ctx *evalContext, args []operand) Value {
	sum := 0.0
	if err := foldNumbers(ctx, args, func(f float64) { sum += f }); err.IsError() {
		return err
	}
	return Number(sum)
}

func fnAVERAGE(ctx *evalContext, args []operand) Value {
	sum, count := 0.0, 0
	if err := foldNumbers(ctx, args, func(f float64) { sum += f; count++ }); err.IsError() {
		return err
	}
	if count == 0 {
		return ErrorValue(ErrDiv0)
	}
	return Number(sum / float64(count))
}

// fnAVERAGEA counts every non-blank value; text counts as zero, booleans
// as 0/1.
func fnAVERAGEA(ctx *evalContext, args []operand) Value {
	sum, count := 0.0, 0
	for _, arg := range args {
		var failed Value
		arg.eachValue(ctx, func(v Value) bool {
			switch v.kind {
			case KindError:
				failed = v
				return false
			case KindBlank:
			case KindNumber:
				sum += v.num
				count++
			case KindBool:
				if v.boolean {
					sum++
				}
				count++
			case KindText:
				count++
			}
			return true
		})
		if failed.IsError() {
			return failed
		}
	}
	if count == 0 {
		return ErrorValue(ErrDiv0)
	}
	return Number(sum / float64(count))
}

// fnCOUNT counts numeric values only; errors inside ranges are skipped,
// not propagated.
func fnCOUNT(ctx *evalContext, args []operand) Value {
	count := 0
	for _, arg := range args {
		var failed Value
		arg.eachValue(ctx, func(v Value) bool {
			if v.IsError() && !arg.isRef {
				failed = v
				return false
			}
			if v.kind == KindNumber {
				count++
			}
			return true
		})
		if failed.IsError() {
			return failed
		}
	}
	return Number(float64(count))
}

// fnCOUNTA counts every non-blank value, errors included.
func fnCOUNTA(ctx *evalContext, args []operand) Value {
	count := 0
	for _, arg := range args {
		var failed Value
		arg.eachValue(ctx, func(v Value) bool {
			if v.IsError() && !arg.isRef {
				failed = v
				return false
			}
			if v.kind != KindBlank {
				count++
			}
			return true
		})
		if failed.IsError() {
			return failed
		}
	}
	return Number(float64(count))
}

func fnMAX(ctx *evalContext, args []operand) Value {
	best := math.Inf(-1)
	seen := false
	if err := foldNumbers(ctx, args, func(f float64) {
		if f > best {
			best = f
		}
		seen = true
	}); err.IsError() {
		return err
	}
	if !seen {
		return Number(0)
	}
	return Number(best)
}

func fnMIN(ctx *evalContext, args []operand) Value {
	best := math.Inf(1)
	seen := false
	if err := foldNumbers(ctx, args, func(f float64) {
		if f < best {
			best = f
		}
		seen = true
	}); err.IsError() {
		return err
	}
	if !seen {
		return Number(0)
	}
	return Number(best)
}

func fnMEDIAN(ctx *evalContext, args []operand) Value {
	var values []float64
	if err := foldNumbers(ctx, args, func(f float64) { values = append(values, f) }); err.IsError() {
		return err
	}
	if len(values) == 0 {
		return ErrorValue(ErrNum)
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 0 {
		return Number((values[mid-1] + values[mid]) / 2)
	}
	return Number(values[mid])
}

// fnMODE returns the most frequent value, smallest on ties; #N/A when
// every value is unique.
func fnMODE(ctx *evalContext, args []operand) Value {
	freq := make(map[float64]int)
	if err := foldNumbers(ctx, args, func(f float64) { freq[f]++ }); err.IsError() {
		return err
	}
	if len(freq) == 0 {
		return ErrorValue(ErrNum)
	}
	bestFreq := 0
	best := 0.0
	for value, count := range freq {
		if count > bestFreq || count == bestFreq && value < best {
			bestFreq = count
			best = value
		}
	}
	if bestFreq == 1 {
		return ErrorValue(ErrNA)
	}
	return Number(best)
}

// fnIF evaluates only the taken branch. A missing else branch yields
// FALSE.
func fnIF(ctx *evalContext, args []cexpr) Value {
	cond := evalScalar(ctx, args[0])
	if cond.IsError() {
		return cond
	}
	truthy, ok := cond.toBool()
	if !ok {
		return ErrorValue(ErrValue)
	}
	if truthy {
		return evalScalar(ctx, args[1])
	}
	if len(args) == 3 {
		return evalScalar(ctx, args[2])
	}
	return Boolean(false)
}

// foldBools walks boolean-coercible values; blanks and non-coercible
// range cells are skipped, errors propagate.
func foldBools(ctx *evalContext, args []operand, visit func(bool)) (int, Value) {
	seen := 0
	for _, arg := range args {
		var failed Value
		arg.eachValue(ctx, func(v Value) bool {
			if v.IsError() {
				failed = v
				return false
			}
			if v.kind == KindBlank {
				return true
			}
			b, ok := v.toBool()
			if !ok {
				if arg.isRef {
					return true
				}
				failed = ErrorValue(ErrValue)
				return false
			}
			seen++
			visit(b)
			return true
		})
		if failed.IsError() {
			return seen, failed
		}
	}
	return seen, Value{}
}

func fnAND(ctx *evalContext, args []operand) Value {
	all := true
	seen, err := foldBools(ctx, args, func(b bool) { all = all && b })
	if err.IsError() {
		return err
	}
	if seen == 0 {
		return ErrorValue(ErrValue)
	}
	return Boolean(all)
}

func fnOR(ctx *evalContext, args []operand) Value {
	any := false
	seen, err := foldBools(ctx, args, func(b bool) { any = any || b })
	if err.IsError() {
		return err
	}
	if seen == 0 {
		return ErrorValue(ErrValue)
	}
	return Boolean(any)
}

func fnNOT(ctx *evalContext, args []operand) Value {
	v := args[0].scalar(ctx)
	if v.IsError() {
		return v
	}
	b, ok := v.toBool()
	if !ok {
		return ErrorValue(ErrValue)
	}
	return Boolean(!b)
}

func fnCONCATENATE(ctx *evalContext, args []operand) Value {
	var b strings.Builder
	for _, arg := range args {
		v := arg.scalar(ctx)
		if v.IsError() {
			return v
		}
		b.WriteString(v.toText())
	}
	return Text(b.String())
}

func scalarText(ctx *evalContext, arg operand) (string, Value) {
	v := arg.scalar(ctx)
	if v.IsError() {
		return "", v
	}
	return v.toText(), Value{}
}

func fnLEN(ctx *evalContext, args []operand) Value {
	s, err := scalarText(ctx, args[0])
	if err.IsError() {
		return err
	}
	return Number(float64(len([]rune(s))))
}

func fnUPPER(ctx *evalContext, args []operand) Value {
	s, err := scalarText(ctx, args[0])
	if err.IsError() {
		return err
	}
	return Text(strings.ToUpper(s))
}

func fnLOWER(ctx *evalContext, args []operand) Value {
	s, err := scalarText(ctx, args[0])
	if err.IsError() {
		return err
	}
	return Text(strings.ToLower(s))
}

func fnTRIM(ctx *evalContext, args []operand) Value {
	s, err := scalarText(ctx, args[0])
	if err.IsError() {
		return err
	}
	return Text(strings.TrimSpace(s))
}

func scalarNumber(ctx *evalContext, arg operand) (float64, Value) {
	v := arg.scalar(ctx)
	if v.IsError() {
		return 0, v
	}
	num, ok := v.toNumber()
	if !ok {
		return 0, ErrorValue(ErrValue)
	}
	return num, Value{}
}

func fnABS(ctx *evalContext, args []operand) Value {
	num, err := scalarNumber(ctx, args[0])
	if err.IsError() {
		return err
	}
	return Number(math.Abs(num))
}

func fnROUND(ctx *evalContext, args []operand) Value {
	num, err := scalarNumber(ctx, args[0])
	if err.IsError() {
		return err
	}
	places := 0.0
	if len(args) == 2 {
		places, err = scalarNumber(ctx, args[1])
		if err.IsError() {
			return err
		}
	}
	multiplier := math.Pow(10, math.Trunc(places))
	return Number(math.Round(num*multiplier) / multiplier)
}

func fnFLOOR(ctx *evalContext, args []operand) Value {
	num, err := scalarNumber(ctx, args[0])
	if err.IsError() {
		return err
	}
	return Number(math.Floor(num))
}

func fnCEILING(ctx *evalContext, args []operand) Value {
	num, err := scalarNumber(ctx, args[0])
	if err.IsError() {
		return err
	}
	return Number(math.Ceil(num))
}

func fnSQRT(ctx *evalContext, args []operand) Value {
	num, err := scalarNumber(ctx, args[0])
	if err.IsError() {
		return err
	}
	if num < 0 {
		return ErrorValue(ErrNum)
	}
	return Number(math.Sqrt(num))
}

func fnPOWER(ctx *evalContext, args []operand) Value {
	base, err := scalarNumber(ctx, args[0])
	if err.IsError() {
		return err
	}
	exp, err := scalarNumber(ctx, args[1])
	if err.IsError() {
		return err
	}
	return applyArith(OpPow, base, exp)
}

func fnMOD(ctx *evalContext, args []operand) Value {
	dividend, err := scalarNumber(ctx, args[0])
	if err.IsError() {
		return err
	}
	divisor, err := scalarNumber(ctx, args[1])
	if err.IsError() {
		return err
	}
	if divisor == 0 {
		return ErrorValue(ErrDiv0)
	}
	// Excel MOD takes the sign of the divisor
	out := math.Mod(dividend, divisor)
	if out != 0 && (out < 0) != (divisor < 0) {
		out += divisor
	}
	return Number(out)
}

func fnPI(ctx *evalContext, args []operand) Value {
	return Number(math.Pi)
}

func fnISBLANK(ctx *evalContext, args []operand) Value {
	return Boolean(args[0].scalar(ctx).kind == KindBlank)
}

func fnISERROR(ctx *evalContext, args []operand) Value {
	return Boolean(args[0].scalar(ctx).IsError())
}

func fnISNUMBER(ctx *evalContext, args []operand) Value {
	return Boolean(args[0].scalar(ctx).kind == KindNumber)
}

func fnISTEXT(ctx *evalContext, args []operand) Value {
	return Boolean(args[0].scalar(ctx).kind == KindText)
}

// serial date constants. The epoch is December 30, 1899 UTC so that
// serial 2 is January 1, 1900, matching the Lotus-compatible convention.
const (
	excelEpochMS = -2209161600000
	msPerDay     = 86400000
)

func fnNOW(ctx *evalContext, args []operand) Value {
	now := ctx.clock.Now()
	return Number(float64(now.UnixMilli()-excelEpochMS) / msPerDay)
}

func fnTODAY(ctx *evalContext, args []operand) Value {
	now := ctx.clock.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return Number(math.Floor(float64(midnight.UnixMilli()-excelEpochMS) / msPerDay))
}

func fnRAND(ctx *evalContext, args []operand) Value {
	return Number(ctx.rng.Float64())
}
