// Package driver evaluates whole programs: definitions are lowered and
// registered, bare top-level expressions are wrapped into functions without
// parameters, lowered and executed right away.
package driver

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/hottestseason/Stone/pkg/ast"
	"github.com/hottestseason/Stone/pkg/domain"
	"github.com/hottestseason/Stone/pkg/engine"
	llvmgen "github.com/hottestseason/Stone/pkg/gen/llvm"
	"github.com/hottestseason/Stone/pkg/parser"
	"github.com/llir/llvm/ir"
)

type Config struct {
	// DumpIR prints every lowered function before its value.
	DumpIR bool
	// Out receives IR dumps and `Evaluated to` lines.
	Out io.Writer
	// Errors receives one report per failed item. Nil discards them.
	Errors io.Writer
	// Log receives phase timings. Nil disables them.
	Log    *log.Logger
	Engine engine.Options
}

// Result is the outcome of one child of a program.
type Result struct {
	Node ast.Node
	// Func is nil when lowering failed.
	Func *ir.Func
	// Expr is set for bare expressions.
	Expr  bool
	Value engine.Value
	Err   error
}

type Driver struct {
	cfg    Config
	gen    *llvmgen.Generator
	engine *engine.Engine
}

func New(cfg Config) *Driver {
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.Errors == nil {
		cfg.Errors = io.Discard
	}
	return &Driver{
		cfg:    cfg,
		gen:    llvmgen.New(),
		engine: engine.New(cfg.Engine),
	}
}

// Module is the module every definition so far was lowered into.
func (d *Driver) Module() *ir.Module {
	return d.gen.Module()
}

func (d *Driver) timing(start time.Time, format string, args ...interface{}) {
	if d.cfg.Log != nil {
		d.cfg.Log.Printf("time: %dus %s", time.Since(start).Microseconds(), fmt.Sprintf(format, args...))
	}
}

// Run parses source and evaluates it. Only syntax errors are returned;
// failures of single items are reported and recorded in the results.
func (d *Driver) Run(path string, source string) ([]Result, error) {
	start := time.Now()
	m, err := parser.Load(path, source)
	if err != nil {
		return nil, err
	}
	d.timing(start, "for lexing and parsing")

	return d.Eval(m), nil
}

// Eval lowers and executes every child of m.Top in order.
func (d *Driver) Eval(m *ast.Module) []Result {
	return d.walk(m, true)
}

// Lower lowers every child of m.Top without executing anything.
func (d *Driver) Lower(m *ast.Module) []Result {
	return d.walk(m, false)
}

func (d *Driver) walk(m *ast.Module, execute bool) []Result {
	results := make([]Result, 0, len(m.Top.List))
	for _, node := range m.Top.List {
		r := d.item(node, execute)
		if r.Err != nil {
			d.report(m, r.Err)
		}
		results = append(results, r)
	}
	return results
}

func (d *Driver) item(node ast.Node, execute bool) Result {
	r := Result{Node: node}

	def, ok := node.(*ast.Def)
	if !ok {
		def = d.gen.Wrap(node)
		r.Expr = true
	}

	start := time.Now()
	fn, err := d.gen.Define(def)
	if err != nil {
		r.Err = err
		return r
	}
	r.Func = fn
	d.timing(start, "to lower `%s`", fn.Name())

	if d.cfg.DumpIR {
		fmt.Fprintln(d.cfg.Out, fn.LLString())
	}
	if !r.Expr || !execute {
		return r
	}

	start = time.Now()
	r.Value, r.Err = d.invoke(fn)
	if r.Err != nil {
		return r
	}
	d.timing(start, "to evaluate `%s`", fn.Name())

	if r.Value.Domain != domain.Void {
		fmt.Fprintf(d.cfg.Out, "Evaluated to %s\n", r.Value)
	}
	return r
}

// invoke picks the call path from the function's return type.
func (d *Driver) invoke(fn *ir.Func) (engine.Value, error) {
	switch domain.Of(fn.Sig.RetType) {
	case domain.Int:
		v, err := d.engine.CallInt(fn)
		return engine.Int(v), err
	case domain.Double:
		v, err := d.engine.CallDouble(fn)
		return engine.Double(v), err
	}
	return d.engine.Call(fn)
}

func (d *Driver) report(m *ast.Module, err error) {
	if gerr, ok := err.(*llvmgen.Error); ok {
		fmt.Fprintf(d.cfg.Errors, "%s\n%s\n", m.TokenSourceContext(&gerr.Token), gerr)
		return
	}
	fmt.Fprintln(d.cfg.Errors, err)
}
