package native

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hottestseason/Stone/pkg/driver"
	"github.com/hottestseason/Stone/pkg/parser"
	"github.com/llir/llvm/ir"
	"github.com/nalgeon/be"
)

func lower(t *testing.T, source string) (*ir.Module, []*ir.Func) {
	t.Helper()
	m, err := parser.Load("test.stone", source)
	be.Err(t, err, nil)

	d := driver.New(driver.Config{})
	var exprs []*ir.Func
	for _, r := range d.Lower(m) {
		be.Err(t, r.Err, nil)
		if r.Expr {
			exprs = append(exprs, r.Func)
		}
	}
	return d.Module(), exprs
}

func TestEmit(t *testing.T) {
	t.Parallel()
	m, exprs := lower(t, "def half(x:int) { x / 2.0 }\nhalf(5)\n1 + 2\nhalf(1)\n")
	be.Equal(t, len(exprs), 3)

	main, err := Emit(m, exprs)
	be.Err(t, err, nil)
	be.Equal(t, main.Name(), "main")
	be.Equal(t, len(main.Blocks), 1)

	// One call per expression, one printf per printed value.
	calls := 0
	for _, inst := range main.Blocks[0].Insts {
		if _, ok := inst.(*ir.InstCall); ok {
			calls++
		}
	}
	be.Equal(t, calls, 6)

	text := m.String()
	be.True(t, strings.Contains(text, "declare i32 @printf("))
	be.True(t, strings.Contains(text, "define i32 @main()"))
	be.True(t, strings.Contains(text, `c"Evaluated to %lld\0A\00"`))
	be.True(t, strings.Contains(text, `c"Evaluated to %g\0A\00"`))
	be.True(t, strings.Contains(text, "ret i32 0"))
}

func TestEmitSharesFormats(t *testing.T) {
	t.Parallel()
	m, exprs := lower(t, "1\n2\n3\n")
	_, err := Emit(m, exprs)
	be.Err(t, err, nil)
	be.Equal(t, len(m.Globals), 1)
}

func TestEmitRejectsReservedNames(t *testing.T) {
	t.Parallel()
	m, exprs := lower(t, "def main(): int { 0 }\nmain()\n")
	_, err := Emit(m, exprs)
	be.Err(t, err, ErrReserved)
}

func TestCompileReportsMissingCompiler(t *testing.T) {
	t.Parallel()
	c := &Compiler{CC: "stone-test-no-such-compiler"}
	output := filepath.Join(t.TempDir(), "a.out")
	err := c.Build(context.Background(), "", output)
	be.Err(t, err, exec.ErrNotFound)
}
