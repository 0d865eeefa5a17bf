package engine

import (
	"testing"

	"github.com/hottestseason/Stone/pkg/domain"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/nalgeon/be"
)

func TestArithmetic(t *testing.T) {
	t.Parallel()
	m := ir.NewModule()
	a := ir.NewParam("a", types.I64)
	b := ir.NewParam("b", types.Double)
	fn := m.NewFunc("f", types.Double, a, b)
	entry := fn.NewBlock("")

	slot := entry.NewAlloca(types.I64)
	entry.NewStore(a, slot)
	x := entry.NewLoad(types.I64, slot)
	sum := entry.NewMul(entry.NewAdd(x, constant.NewInt(types.I64, 1)), constant.NewInt(types.I64, 3))
	entry.NewRet(entry.NewFDiv(entry.NewSIToFP(sum, types.Double), b))

	got, err := New(Options{}).Call(fn, Int(3), Double(2))
	be.Err(t, err, nil)
	be.Equal(t, got, Double(6))
}

func TestPhiFollowsIncomingEdge(t *testing.T) {
	t.Parallel()
	m := ir.NewModule()
	n := ir.NewParam("n", types.I64)
	fn := m.NewFunc("sign", types.I64, n)
	entry := fn.NewBlock("")
	neg := fn.NewBlock("neg")
	pos := fn.NewBlock("pos")
	merge := fn.NewBlock("merge")

	cond := entry.NewICmp(enum.IPredSLT, n, constant.NewInt(types.I64, 0))
	entry.NewCondBr(cond, neg, pos)
	neg.NewBr(merge)
	pos.NewBr(merge)
	phi := merge.NewPhi(
		ir.NewIncoming(constant.NewInt(types.I64, -1), neg),
		ir.NewIncoming(constant.NewInt(types.I64, 1), pos),
	)
	merge.NewRet(phi)

	e := New(Options{})
	got, err := e.Call(fn, Int(-7))
	be.Err(t, err, nil)
	be.Equal(t, got, Int(-1))

	got, err = e.Call(fn, Int(7))
	be.Err(t, err, nil)
	be.Equal(t, got, Int(1))
}

func TestComparisons(t *testing.T) {
	t.Parallel()
	m := ir.NewModule()
	x := ir.NewParam("x", types.Double)
	fn := m.NewFunc("f", types.I64, x)
	entry := fn.NewBlock("")
	gt := entry.NewFCmp(enum.FPredOGT, x, constant.NewFloat(types.Double, 1.5))
	entry.NewRet(entry.NewZExt(gt, types.I64))

	e := New(Options{})
	got, err := e.Call(fn, Double(2))
	be.Err(t, err, nil)
	be.Equal(t, got, Int(1))

	got, err = e.Call(fn, Double(1.5))
	be.Err(t, err, nil)
	be.Equal(t, got, Int(0))
}

func TestDivisionByZero(t *testing.T) {
	t.Parallel()
	m := ir.NewModule()
	d := ir.NewParam("d", types.I64)
	fn := m.NewFunc("div", types.I64, d)
	entry := fn.NewBlock("")
	entry.NewRet(entry.NewSDiv(constant.NewInt(types.I64, 10), d))

	e := New(Options{})
	got, err := e.Call(fn, Int(3))
	be.Err(t, err, nil)
	be.Equal(t, got, Int(3))

	_, err = e.Call(fn, Int(0))
	be.Err(t, err, "runtime-error: in `div`: integer division by zero")
	_, ok := err.(*RuntimeError)
	be.True(t, ok)
}

func TestCallDepth(t *testing.T) {
	t.Parallel()
	m := ir.NewModule()
	fn := m.NewFunc("loop", types.I64)
	entry := fn.NewBlock("")
	entry.NewRet(entry.NewCall(fn))

	_, err := New(Options{MaxDepth: 50}).Call(fn)
	be.Err(t, err, "call depth exceeds 50")
}

func TestCalls(t *testing.T) {
	t.Parallel()
	m := ir.NewModule()
	a := ir.NewParam("a", types.I64)
	b := ir.NewParam("b", types.I64)
	add := m.NewFunc("add", types.I64, a, b)
	addEntry := add.NewBlock("")
	addEntry.NewRet(addEntry.NewAdd(a, b))

	main := m.NewFunc("main", types.I64)
	entry := main.NewBlock("")
	entry.NewRet(entry.NewCall(add, constant.NewInt(types.I64, 2), constant.NewInt(types.I64, 3)))

	got, err := New(Options{}).CallInt(main)
	be.Err(t, err, nil)
	be.Equal(t, got, int64(5))
}

func TestSignatureChecks(t *testing.T) {
	t.Parallel()
	m := ir.NewModule()
	fn := m.NewFunc("half", types.Double)
	entry := fn.NewBlock("")
	entry.NewRet(constant.NewFloat(types.Double, 0.5))

	e := New(Options{})
	_, err := e.CallInt(fn)
	be.Err(t, err, ErrSignature)

	got, err := e.CallDouble(fn)
	be.Err(t, err, nil)
	be.Equal(t, got, 0.5)

	_, err = e.Call(fn, Int(1))
	be.Err(t, err, ErrSignature)
}

func TestVoidReturn(t *testing.T) {
	t.Parallel()
	m := ir.NewModule()
	fn := m.NewFunc("nothing", types.Void)
	fn.NewBlock("").NewRet(nil)

	got, err := New(Options{}).Call(fn)
	be.Err(t, err, nil)
	be.Equal(t, got.Domain, domain.Void)
	be.Equal(t, got.String(), "")
}

func TestValueString(t *testing.T) {
	t.Parallel()
	be.Equal(t, Int(5).String(), "5")
	be.Equal(t, Double(3).String(), "3.0")
	be.Equal(t, Double(4.5).String(), "4.5")
}
