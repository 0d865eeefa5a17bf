// Package engine executes functions of an llir module in-process. It
// understands the instruction subset the generator emits: stack slots,
// integer and floating-point arithmetic, comparisons, int to double
// conversion, phi, branches, calls and returns.
package engine

import (
	"fmt"
	"math"
	"strconv"

	"github.com/hottestseason/Stone/pkg/domain"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"
)

const DefaultMaxDepth = 10000

// ErrSignature is returned when a function is invoked through a call path
// that does not match its signature.
var ErrSignature = errors.New("signature mismatch")

// Value is a runtime value. Comparison results are integers 0 and 1.
type Value struct {
	Domain domain.Domain
	Int    int64
	Float  float64

	slot *Value
}

func Int(v int64) Value {
	return Value{Domain: domain.Int, Int: v}
}

func Double(f float64) Value {
	return Value{Domain: domain.Double, Float: f}
}

func (v Value) String() string {
	switch v.Domain {
	case domain.Int:
		return strconv.FormatInt(v.Int, 10)
	case domain.Double:
		return domain.FormatDouble(v.Float)
	}
	return ""
}

// RuntimeError stops the evaluation of the function that was invoked.
type RuntimeError struct {
	Func    string
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime-error: in `%s`: %s", e.Func, e.Message)
}

type Options struct {
	// MaxDepth bounds the call depth. Zero means DefaultMaxDepth.
	MaxDepth int
}

type Engine struct {
	opts Options
}

func New(opts Options) *Engine {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Engine{opts: opts}
}

// Call runs fn with args and returns its result. Void functions return a
// Value whose Domain is domain.Void.
func (e *Engine) Call(fn *ir.Func, args ...Value) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(*RuntimeError)
			if !ok {
				panic(r)
			}
			err = rerr
		}
	}()

	if len(args) != len(fn.Params) {
		return Value{}, errors.Wrapf(ErrSignature, "`%s` takes %d arguments, got %d", fn.Name(), len(fn.Params), len(args))
	}
	for i, p := range fn.Params {
		if want := domain.Of(p.Type()); args[i].Domain != want {
			return Value{}, errors.Wrapf(ErrSignature, "argument %d of `%s` must be %s", i+1, fn.Name(), want)
		}
	}

	return e.run(fn, args, 1), nil
}

// CallInt invokes a function without parameters that returns an integer.
func (e *Engine) CallInt(fn *ir.Func) (int64, error) {
	if d := domain.Of(fn.Sig.RetType); d != domain.Int {
		return 0, errors.Wrapf(ErrSignature, "`%s` returns %s, not int", fn.Name(), d)
	}
	v, err := e.Call(fn)
	return v.Int, err
}

// CallDouble invokes a function without parameters that returns a double.
func (e *Engine) CallDouble(fn *ir.Func) (float64, error) {
	if d := domain.Of(fn.Sig.RetType); d != domain.Double {
		return 0, errors.Wrapf(ErrSignature, "`%s` returns %s, not double", fn.Name(), d)
	}
	v, err := e.Call(fn)
	return v.Float, err
}

type frame struct {
	fn     *ir.Func
	values map[value.Value]Value
}

func (f *frame) fail(format string, args ...interface{}) {
	panic(&RuntimeError{Func: f.fn.Name(), Message: fmt.Sprintf(format, args...)})
}

func (f *frame) eval(v value.Value) Value {
	switch v := v.(type) {
	case *constant.Int:
		return Int(v.X.Int64())
	case *constant.Float:
		x, _ := v.X.Float64()
		return Double(x)
	}

	x, ok := f.values[v]
	if !ok {
		f.fail("use of `%s` before it is computed", v.Ident())
	}
	return x
}

func (e *Engine) run(fn *ir.Func, args []Value, depth int) Value {
	f := &frame{fn: fn, values: make(map[value.Value]Value)}
	if depth > e.opts.MaxDepth {
		f.fail("call depth exceeds %d", e.opts.MaxDepth)
	}
	if len(fn.Blocks) == 0 {
		f.fail("function has no body")
	}

	for i, p := range fn.Params {
		f.values[p] = args[i]
	}

	var prev *ir.Block
	block := fn.Blocks[0]
	for {
		e.runBlock(f, block, prev, depth)

		switch term := block.Term.(type) {
		case *ir.TermRet:
			if term.X == nil {
				return Value{Domain: domain.Void}
			}
			return f.eval(term.X)
		case *ir.TermBr:
			prev, block = block, term.Succs()[0]
		case *ir.TermCondBr:
			succs := term.Succs()
			next := succs[1]
			if f.eval(term.Cond).Int != 0 {
				next = succs[0]
			}
			prev, block = block, next
		default:
			f.fail("unsupported terminator %T", block.Term)
		}
	}
}

func (e *Engine) runBlock(f *frame, block *ir.Block, prev *ir.Block, depth int) {
	// Phis read their incoming values before any of them is written.
	phis := map[*ir.InstPhi]Value{}
	for _, inst := range block.Insts {
		phi, ok := inst.(*ir.InstPhi)
		if !ok {
			break
		}
		found := false
		for _, inc := range phi.Incs {
			if prev != nil && inc.Pred == prev {
				phis[phi] = f.eval(inc.X)
				found = true
				break
			}
		}
		if !found {
			f.fail("phi `%s` has no incoming value for this edge", phi.Ident())
		}
	}
	for phi, v := range phis {
		f.values[phi] = v
	}

	for _, inst := range block.Insts {
		switch inst := inst.(type) {
		case *ir.InstPhi:
		case *ir.InstAlloca:
			f.values[inst] = Value{slot: &Value{Domain: domain.Of(inst.ElemType)}}
		case *ir.InstLoad:
			f.values[inst] = *f.pointer(inst.Src)
		case *ir.InstStore:
			*f.pointer(inst.Dst) = f.eval(inst.Src)
		case *ir.InstAdd:
			f.values[inst] = Int(f.eval(inst.X).Int + f.eval(inst.Y).Int)
		case *ir.InstSub:
			f.values[inst] = Int(f.eval(inst.X).Int - f.eval(inst.Y).Int)
		case *ir.InstMul:
			f.values[inst] = Int(f.eval(inst.X).Int * f.eval(inst.Y).Int)
		case *ir.InstSDiv:
			x, y := f.eval(inst.X).Int, f.eval(inst.Y).Int
			if y == 0 {
				f.fail("integer division by zero")
			}
			f.values[inst] = Int(x / y)
		case *ir.InstSRem:
			x, y := f.eval(inst.X).Int, f.eval(inst.Y).Int
			if y == 0 {
				f.fail("integer division by zero")
			}
			f.values[inst] = Int(x % y)
		case *ir.InstFAdd:
			f.values[inst] = Double(f.eval(inst.X).Float + f.eval(inst.Y).Float)
		case *ir.InstFSub:
			f.values[inst] = Double(f.eval(inst.X).Float - f.eval(inst.Y).Float)
		case *ir.InstFMul:
			f.values[inst] = Double(f.eval(inst.X).Float * f.eval(inst.Y).Float)
		case *ir.InstFDiv:
			f.values[inst] = Double(f.eval(inst.X).Float / f.eval(inst.Y).Float)
		case *ir.InstFRem:
			f.values[inst] = Double(math.Mod(f.eval(inst.X).Float, f.eval(inst.Y).Float))
		case *ir.InstICmp:
			f.values[inst] = f.icmp(inst.Pred, f.eval(inst.X).Int, f.eval(inst.Y).Int)
		case *ir.InstFCmp:
			f.values[inst] = f.fcmp(inst.Pred, f.eval(inst.X).Float, f.eval(inst.Y).Float)
		case *ir.InstSIToFP:
			f.values[inst] = Double(float64(f.eval(inst.From).Int))
		case *ir.InstZExt:
			f.values[inst] = Int(f.eval(inst.From).Int)
		case *ir.InstCall:
			callee, ok := inst.Callee.(*ir.Func)
			if !ok {
				f.fail("indirect call through `%s`", inst.Callee.Ident())
			}
			args := make([]Value, len(inst.Args))
			for i, arg := range inst.Args {
				args[i] = f.eval(arg)
			}
			f.values[inst] = e.run(callee, args, depth+1)
		default:
			f.fail("unsupported instruction %T", inst)
		}
	}
}

func (f *frame) pointer(v value.Value) *Value {
	p := f.eval(v)
	if p.slot == nil {
		f.fail("`%s` is not a pointer", v.Ident())
	}
	return p.slot
}

func boolValue(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

func (f *frame) icmp(pred enum.IPred, x, y int64) Value {
	switch pred {
	case enum.IPredEQ:
		return boolValue(x == y)
	case enum.IPredNE:
		return boolValue(x != y)
	case enum.IPredSGT:
		return boolValue(x > y)
	case enum.IPredSGE:
		return boolValue(x >= y)
	case enum.IPredSLT:
		return boolValue(x < y)
	case enum.IPredSLE:
		return boolValue(x <= y)
	}
	f.fail("unsupported integer predicate %s", pred)
	return Value{}
}

// fcmp only knows ordered predicates: they are false when either side is NaN.
func (f *frame) fcmp(pred enum.FPred, x, y float64) Value {
	if math.IsNaN(x) || math.IsNaN(y) {
		return boolValue(false)
	}
	switch pred {
	case enum.FPredOEQ:
		return boolValue(x == y)
	case enum.FPredONE:
		return boolValue(x != y)
	case enum.FPredOGT:
		return boolValue(x > y)
	case enum.FPredOGE:
		return boolValue(x >= y)
	case enum.FPredOLT:
		return boolValue(x < y)
	case enum.FPredOLE:
		return boolValue(x <= y)
	}
	f.fail("unsupported floating-point predicate %s", pred)
	return Value{}
}
