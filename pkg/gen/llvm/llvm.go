package llvmgen

import (
	"fmt"

	"github.com/hottestseason/Stone/pkg/ast"
	"github.com/hottestseason/Stone/pkg/domain"
	"github.com/hottestseason/Stone/pkg/token"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"
)

// Generator lowers definitions into one LLVM module. It keeps the insertion
// point and the variable environment of the function being lowered; both are
// reset between functions. A Generator must not be used concurrently.
type Generator struct {
	module *ir.Module
	funcs  map[string]*ir.Func

	fn    *ir.Func
	entry *ir.Block
	block *ir.Block
	env   *env

	// inferring is the name of the definition whose return type is being
	// inferred.
	inferring string

	blockCount int
	exprCount  int
}

func New() *Generator {
	return &Generator{
		module: ir.NewModule(),
		funcs:  make(map[string]*ir.Func),
	}
}

func (g *Generator) Module() *ir.Module {
	return g.module
}

// Lookup returns a function registered by Define.
func (g *Generator) Lookup(name string) (*ir.Func, bool) {
	fn, ok := g.funcs[name]
	return fn, ok
}

// Wrap turns a bare top-level expression into a function without parameters
// whose return type is left to inference. Every call yields a fresh name that
// cannot clash with a user definition.
func (g *Generator) Wrap(expr ast.Node) *ast.Def {
	g.exprCount++
	name := token.Token{
		Lexeme: fmt.Sprintf("__expr.%d", g.exprCount),
		Type:   token.IDENTIFIER,
		Pos:    expr.ErrorToken().Pos,
	}
	return ast.NewDef(name, nil, expr, "")
}

// Define lowers def into the module and registers it under its name. On
// error nothing is registered and the module is left as it was.
func (g *Generator) Define(def *ast.Def) (fn *ir.Func, err error) {
	name := def.Name()
	if _, ok := g.funcs[name]; ok {
		return nil, &Error{Token: def.Identifier, Err: errors.Wrapf(ErrRedefined, "function `%s`", name)}
	}

	defer func() {
		if r := recover(); r != nil {
			gerr, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			g.erase(name)
			fn, err = nil, gerr
		}
		g.reset()
	}()

	ret := domain.Resolve(def.ReturnType)
	if ret == domain.Unknown {
		ret = g.inferReturnType(def)
		g.reset()
	}

	fn = g.module.NewFunc(name, domain.LLVM(ret), g.genParams(def)...)
	// Registered before the body so that the function can call itself.
	g.funcs[name] = fn
	g.genBody(fn, def, true)

	if err := fn.AssignIDs(); err != nil {
		panic(fmt.Sprintf("internal error: %s", err))
	}
	return fn, nil
}

// erase removes a partially lowered function from the table and the module.
func (g *Generator) erase(name string) {
	fn, ok := g.funcs[name]
	if !ok {
		return
	}
	delete(g.funcs, name)

	funcs := g.module.Funcs[:0]
	for _, f := range g.module.Funcs {
		if f != fn {
			funcs = append(funcs, f)
		}
	}
	g.module.Funcs = funcs
}

func (g *Generator) reset() {
	g.fn = nil
	g.entry = nil
	g.block = nil
	g.env = nil
	g.blockCount = 0
}

func (g *Generator) genParams(def *ast.Def) []*ir.Param {
	params := []*ir.Param{}
	seen := make(map[string]bool)

	for _, formal := range def.Formals() {
		d := domain.Resolve(formal.TypeName)
		if !d.IsNumeric() {
			genError(formal.Identifier, ErrUnknownType, "parameter `%s` of `%s` has type `%s`", formal.Name(), def.Name(), formal.TypeName)
		}
		if seen[formal.Name()] {
			genError(formal.Identifier, ErrRedefined, "parameter `%s` of `%s`", formal.Name(), def.Name())
		}
		seen[formal.Name()] = true
		params = append(params, ir.NewParam(formal.Name(), domain.LLVM(d)))
	}

	return params
}

// genBody lowers def's body into fn and returns the domain of its value.
// Only when commit is set is the value returned from fn; the speculative
// lowering done for inference stops short of that.
func (g *Generator) genBody(fn *ir.Func, def *ast.Def, commit bool) domain.Domain {
	g.fn = fn
	g.env = newEnv()
	g.blockCount = 0
	g.entry = fn.NewBlock("")
	g.block = g.entry

	for i, formal := range def.Formals() {
		param := fn.Params[i]
		b := g.alloca(formal.Name(), domain.Of(param.Type()))
		g.block.NewStore(param, b.slot)
	}

	result := g.genExpression(def.Body)
	d := domain.Of(result.Type())
	if !commit {
		return d
	}

	if domain.Of(fn.Sig.RetType) == domain.Void {
		g.block.NewRet(nil)
	} else {
		result = g.number(result)
		if err := domain.Storable(domain.Of(result.Type()), domain.Of(fn.Sig.RetType)); err != nil {
			genError(def.Identifier, err, "return value of `%s`", def.Name())
		}
		g.block.NewRet(result)
	}

	for _, b := range fn.Blocks {
		if b.Term == nil {
			panic(fmt.Sprintf("internal error: block `%s` of `%s` has no terminator", b.Name(), fn.Name()))
		}
	}
	return d
}

// alloca creates the slot of a variable at the top of the entry block, after
// the slots created so far, and binds name to it.
func (g *Generator) alloca(name string, d domain.Domain) binding {
	slot := ir.NewAlloca(domain.LLVM(d))
	slot.SetName(name + ".addr")

	i := 0
	for i < len(g.entry.Insts) {
		if _, ok := g.entry.Insts[i].(*ir.InstAlloca); !ok {
			break
		}
		i++
	}
	insts := make([]ir.Instruction, 0, len(g.entry.Insts)+1)
	insts = append(insts, g.entry.Insts[:i]...)
	insts = append(insts, slot)
	g.entry.Insts = append(insts, g.entry.Insts[i:]...)

	b := binding{slot: slot, domain: d}
	g.env.bind(name, b)
	return b
}

func (g *Generator) nextBlockID() int {
	g.blockCount++
	return g.blockCount
}

// appendBlock attaches a block created with ir.NewBlock to the current
// function.
func (g *Generator) appendBlock(b *ir.Block) {
	b.Parent = g.fn
	g.fn.Blocks = append(g.fn.Blocks, b)
}

// enter moves the insertion point. The block being left must be terminated.
func (g *Generator) enter(b *ir.Block) {
	if g.block.Term == nil {
		panic(fmt.Sprintf("internal error: leaving block `%s` without a terminator", g.block.Name()))
	}
	g.block = b
}

func isBool(v value.Value) bool {
	t, ok := v.Type().(*types.IntType)
	return ok && t.BitSize == 1
}

// number widens a comparison result to an integer so it can be used as a
// value.
func (g *Generator) number(v value.Value) value.Value {
	if isBool(v) {
		return g.block.NewZExt(v, types.I64)
	}
	return v
}

// convert promotes v to d. Only int to double is ever needed.
func (g *Generator) convert(v value.Value, d domain.Domain) value.Value {
	if d == domain.Double && domain.Of(v.Type()) == domain.Int {
		return g.block.NewSIToFP(v, types.Double)
	}
	return v
}

// condition lowers n into an i1 to branch on: comparisons are used as is,
// numbers are compared against zero.
func (g *Generator) condition(n ast.Node, tok token.Token) value.Value {
	v := g.genExpression(n)
	if isBool(v) {
		return v
	}

	switch domain.Of(v.Type()) {
	case domain.Int:
		return g.block.NewICmp(enum.IPredNE, v, constant.NewInt(types.I64, 0))
	case domain.Double:
		return g.block.NewFCmp(enum.FPredONE, v, constant.NewFloat(types.Double, 0))
	}

	genError(tok, ErrTypeMismatch, "condition of `%s` has no numeric value", tok.Lexeme)
	return nil
}

func (g *Generator) genExpression(node ast.Node) value.Value {
	switch n := node.(type) {
	case *ast.Literal:
		if n.Kind == ast.FloatLiteral {
			return constant.NewFloat(types.Double, n.Float)
		}
		return constant.NewInt(types.I64, n.Int)
	case *ast.VariableRef:
		return g.genVariable(n)
	case *ast.BinaryExpr:
		if n.Operator.Type == token.EQUAL {
			return g.genAssignment(n)
		}
		return g.genBinary(n)
	case *ast.Call:
		return g.genCall(n)
	case *ast.If:
		return g.genIf(n)
	case *ast.While:
		return g.genWhile(n)
	case *ast.Block:
		var last value.Value
		for _, child := range n.List {
			last = g.genExpression(child)
		}
		return last
	case *ast.Arguments:
		panic("internal error: an argument list has no value of its own")
	case *ast.Def, *ast.Top:
		panic(fmt.Sprintf("internal error: `%s` can only appear at the top level", n))
	}

	panic(fmt.Sprintf("internal error: unhandled node %T", node))
}

func (g *Generator) genVariable(v *ast.VariableRef) value.Value {
	b, ok := g.env.lookup(v.Name())
	if !ok {
		genError(v.Identifier, ErrUnresolved, "variable `%s` is not defined", v.Name())
	}
	if v.TypeName != "" && domain.Resolve(v.TypeName) != b.domain {
		genError(v.Identifier, ErrTypeMismatch, "`%s` holds %s values, not %s", v.Name(), b.domain, v.TypeName)
	}

	return g.block.NewLoad(domain.LLVM(b.domain), b.slot)
}

// genAssignment lowers the value first, then stores it into the target's
// slot. The first assignment to a name creates the slot; its domain is the
// annotated one if any, otherwise the domain of the value.
func (g *Generator) genAssignment(e *ast.BinaryExpr) value.Value {
	target := e.Left.(*ast.VariableRef)
	v := g.number(g.genExpression(e.Right))
	vd := domain.Of(v.Type())

	if !vd.IsNumeric() {
		genError(e.Operator, ErrTypeMismatch, "cannot assign a %s value to `%s`", vd, target.Name())
	}

	declared := domain.Unknown
	if target.TypeName != "" {
		declared = domain.Resolve(target.TypeName)
		if !declared.IsNumeric() {
			genError(target.Identifier, ErrUnknownType, "variable `%s` has type `%s`", target.Name(), target.TypeName)
		}
	}

	b, ok := g.env.lookup(target.Name())
	if !ok {
		d := declared
		if d == domain.Unknown {
			d = vd
		}
		b = g.alloca(target.Name(), d)
	} else if declared != domain.Unknown && declared != b.domain {
		genError(target.Identifier, ErrTypeMismatch, "`%s` was declared %s", target.Name(), b.domain)
	}

	if err := domain.Storable(vd, b.domain); err != nil {
		genError(e.Operator, err, "assignment to `%s`", target.Name())
	}

	g.block.NewStore(v, b.slot)
	return v
}

func (g *Generator) operand(n ast.Node, op token.Token) value.Value {
	v := g.number(g.genExpression(n))
	if d := domain.Of(v.Type()); !d.IsNumeric() {
		genError(op, ErrTypeMismatch, "operand of `%s` is %s", op.Lexeme, d)
	}
	return v
}

func (g *Generator) genBinary(e *ast.BinaryExpr) value.Value {
	left := g.operand(e.Left, e.Operator)
	right := g.operand(e.Right, e.Operator)

	d := domain.Promote(domain.Of(left.Type()), domain.Of(right.Type()))
	left = g.convert(left, d)
	right = g.convert(right, d)

	if d == domain.Double {
		switch e.Operator.Type {
		case token.PLUS:
			return g.block.NewFAdd(left, right)
		case token.MINUS:
			return g.block.NewFSub(left, right)
		case token.STAR:
			return g.block.NewFMul(left, right)
		case token.SLASH:
			return g.block.NewFDiv(left, right)
		case token.PERCENT:
			return g.block.NewFRem(left, right)
		case token.GREATER:
			return g.block.NewFCmp(enum.FPredOGT, left, right)
		case token.LESSER:
			return g.block.NewFCmp(enum.FPredOLT, left, right)
		case token.EQUAL_EQUAL:
			return g.block.NewFCmp(enum.FPredOEQ, left, right)
		}
	} else {
		switch e.Operator.Type {
		case token.PLUS:
			return g.block.NewAdd(left, right)
		case token.MINUS:
			return g.block.NewSub(left, right)
		case token.STAR:
			return g.block.NewMul(left, right)
		case token.SLASH:
			return g.block.NewSDiv(left, right)
		case token.PERCENT:
			return g.block.NewSRem(left, right)
		case token.GREATER:
			return g.block.NewICmp(enum.IPredSGT, left, right)
		case token.LESSER:
			return g.block.NewICmp(enum.IPredSLT, left, right)
		case token.EQUAL_EQUAL:
			return g.block.NewICmp(enum.IPredEQ, left, right)
		}
	}

	panic(fmt.Sprintf("internal error: unhandled operator `%s`", e.Operator.Lexeme))
}

// genCall only sees functions defined earlier in the program, and the
// function currently being defined.
func (g *Generator) genCall(c *ast.Call) value.Value {
	name := c.Callee.Lexeme
	if name == g.inferring {
		genError(c.Callee, ErrRecursiveInference, "`%s` calls itself", name)
	}

	callee, ok := g.funcs[name]
	if !ok {
		genError(c.Callee, ErrUnresolved, "function `%s` is not defined", name)
	}
	if len(c.Arguments.List) != len(callee.Params) {
		genError(c.Callee, ErrArity, "`%s` takes %d, got %d", name, len(callee.Params), len(c.Arguments.List))
	}

	args := make([]value.Value, len(c.Arguments.List))
	for i, arg := range c.Arguments.List {
		v := g.number(g.genExpression(arg))
		if err := domain.Storable(domain.Of(v.Type()), domain.Of(callee.Params[i].Type())); err != nil {
			genError(arg.ErrorToken(), err, "argument %d of `%s`", i+1, name)
		}
		args[i] = v
	}

	return g.block.NewCall(callee, args...)
}

// genIf lays out then, else and merge blocks in that order. The phi takes
// each branch's value from the block that branch ended in, which is not the
// block it started in when the branch contains control flow of its own.
func (g *Generator) genIf(n *ast.If) value.Value {
	cond := g.condition(n.Condition, n.IfToken)

	id := g.nextBlockID()
	thenBlock := g.fn.NewBlock(fmt.Sprintf("then.%d", id))
	elseBlock := ir.NewBlock(fmt.Sprintf("else.%d", id))
	mergeBlock := ir.NewBlock(fmt.Sprintf("merge.%d", id))
	g.block.NewCondBr(cond, thenBlock, elseBlock)

	g.enter(thenBlock)
	thenValue := g.number(g.genExpression(n.Then))
	thenEnd := g.block
	thenEnd.NewBr(mergeBlock)

	g.appendBlock(elseBlock)
	g.enter(elseBlock)
	elseValue := g.number(g.genExpression(n.Else))
	elseEnd := g.block
	elseEnd.NewBr(mergeBlock)

	g.appendBlock(mergeBlock)
	g.enter(mergeBlock)

	thenDomain, elseDomain := domain.Of(thenValue.Type()), domain.Of(elseValue.Type())
	if thenDomain != elseDomain {
		genError(n.IfToken, ErrTypeMismatch, "branches of `if` yield %s and %s", thenDomain, elseDomain)
	}
	if thenDomain == domain.Void {
		return thenValue
	}

	return g.block.NewPhi(ir.NewIncoming(thenValue, thenEnd), ir.NewIncoming(elseValue, elseEnd))
}

// genWhile evaluates to integer zero.
func (g *Generator) genWhile(n *ast.While) value.Value {
	id := g.nextBlockID()
	condBlock := g.fn.NewBlock(fmt.Sprintf("cond.%d", id))
	bodyBlock := ir.NewBlock(fmt.Sprintf("body.%d", id))
	doneBlock := ir.NewBlock(fmt.Sprintf("done.%d", id))
	g.block.NewBr(condBlock)

	g.enter(condBlock)
	cond := g.condition(n.Condition, n.WhileToken)
	g.block.NewCondBr(cond, bodyBlock, doneBlock)

	g.appendBlock(bodyBlock)
	g.enter(bodyBlock)
	g.genExpression(n.Body)
	g.block.NewBr(condBlock)

	g.appendBlock(doneBlock)
	g.enter(doneBlock)
	return constant.NewInt(types.I64, 0)
}
