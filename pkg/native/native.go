// Package native turns a lowered module into a standalone executable. A C
// `main` is added that calls every wrapped top-level expression in order and
// prints its value with printf, then clang compiles the textual IR.
package native

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hottestseason/Stone/pkg/domain"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/pkg/errors"
)

const DefaultCC = "clang"

// ErrReserved is returned when the module already defines a symbol that the
// entry point needs.
var ErrReserved = errors.New("reserved symbol")

var reserved = []string{"main", "printf"}

// Emit adds the entry point to m. exprs are the functions without parameters
// whose values are printed, in program order.
func Emit(m *ir.Module, exprs []*ir.Func) (*ir.Func, error) {
	for _, f := range m.Funcs {
		for _, name := range reserved {
			if f.Name() == name {
				return nil, errors.Wrapf(ErrReserved, "`%s` cannot be defined in a program that is built", name)
			}
		}
	}

	printf := m.NewFunc("printf", types.I32, ir.NewParam("format", types.I8Ptr))
	printf.Sig.Variadic = true

	formats := map[domain.Domain]constant.Constant{}
	format := func(d domain.Domain, verb string) constant.Constant {
		if f, ok := formats[d]; ok {
			return f
		}
		raw := "Evaluated to " + verb + "\x0A\x00"
		def := m.NewGlobalDef(fmt.Sprintf(".fmt.%s", d), constant.NewCharArrayFromString(raw))
		def.Linkage = enum.LinkagePrivate
		formats[d] = constant.NewGetElementPtr(
			types.NewArray(uint64(len(raw)), types.I8),
			def,
			constant.NewInt(types.I32, 0),
			constant.NewInt(types.I32, 0),
		)
		return formats[d]
	}

	main := m.NewFunc("main", types.I32)
	entry := main.NewBlock("")
	for _, fn := range exprs {
		if len(fn.Params) != 0 {
			return nil, errors.Errorf("`%s` takes parameters and cannot be run on its own", fn.Name())
		}

		v := entry.NewCall(fn)
		switch domain.Of(fn.Sig.RetType) {
		case domain.Int:
			entry.NewCall(printf, format(domain.Int, "%lld"), v)
		case domain.Double:
			entry.NewCall(printf, format(domain.Double, "%g"), v)
		}
	}
	entry.NewRet(constant.NewInt(types.I32, 0))

	if err := main.AssignIDs(); err != nil {
		return nil, errors.Wrap(err, "entry point")
	}
	return main, nil
}

type Compiler struct {
	// CC is the clang executable. Empty means DefaultCC.
	CC string
	// Stdout and Stderr receive the compiler's output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
	// Log receives timings. Nil disables them.
	Log *log.Logger
}

func (c *Compiler) cc() string {
	if c.CC == "" {
		return DefaultCC
	}
	return c.CC
}

// Compile writes an executable built from the textual IR to output.
func (c *Compiler) Compile(ctx context.Context, irText string, output string) error {
	cmd := exec.CommandContext(ctx, c.cc(), "-x", "ir", "-o", output, "-")
	cmd.Stdin = strings.NewReader(irText)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	if c.Log != nil {
		c.Log.Println(cmd)
	}

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "compiling LLVM IR with `%s`", c.cc())
	}

	if c.Log != nil {
		c.Log.Printf("time: %dms for clang to compile and link", time.Since(start).Milliseconds())
	}
	return nil
}

// Build compiles into a temporary directory first so that a failed build
// leaves output untouched.
func (c *Compiler) Build(ctx context.Context, irText string, output string) error {
	tmpDir, err := os.MkdirTemp("", "stone-tmp--*")
	if err != nil {
		return errors.Wrap(err, "creating temp directory")
	}
	defer os.RemoveAll(tmpDir)

	exe := filepath.Join(tmpDir, "stone-exe.out")
	if err := c.Compile(ctx, irText, exe); err != nil {
		return err
	}
	return copyFile(exe, output)
}

func copyFile(srcPath string, dstPath string) error {
	in, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
