package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/alecthomas/repr"
	"github.com/hottestseason/Stone/pkg/driver"
	"github.com/hottestseason/Stone/pkg/engine"
	"github.com/hottestseason/Stone/pkg/native"
	"github.com/hottestseason/Stone/pkg/parser"
	"github.com/llir/llvm/ir"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const stdinPath = "<stdin>"

// readSource reads the file named by the first argument, or standard input
// when there is none.
func readSource(c *cli.Context) (string, string, error) {
	if c.Args().Len() > 1 {
		return "", "", errors.New("too many arguments: expected at most one source file")
	}

	path := c.Args().First()
	if path == "" {
		code, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", errors.Wrap(err, "reading standard input")
		}
		return stdinPath, string(code), nil
	}

	code, err := os.ReadFile(path)
	if err != nil {
		return "", "", errors.Wrap(err, "reading source file")
	}
	return path, string(code), nil
}

func newLogger(c *cli.Context) *log.Logger {
	if !c.Bool("verbose") {
		return nil
	}
	return log.New(os.Stderr, "stone: ", 0)
}

func newDriver(c *cli.Context) *driver.Driver {
	return driver.New(driver.Config{
		DumpIR: c.Bool("dump-ir"),
		Out:    os.Stdout,
		Errors: os.Stderr,
		Log:    newLogger(c),
		Engine: engine.Options{MaxDepth: c.Int("max-depth")},
	})
}

func failed(results []driver.Result) error {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return errors.Errorf("%d of %d top-level items failed", n, len(results))
}

// lower parses and lowers a whole program, returning the module and the
// wrapped top-level expressions in order.
func lower(c *cli.Context) (*ir.Module, []*ir.Func, error) {
	path, source, err := readSource(c)
	if err != nil {
		return nil, nil, err
	}
	m, err := parser.Load(path, source)
	if err != nil {
		return nil, nil, err
	}

	d := newDriver(c)
	results := d.Lower(m)
	if err := failed(results); err != nil {
		return nil, nil, err
	}

	var exprs []*ir.Func
	for _, r := range results {
		if r.Expr {
			exprs = append(exprs, r.Func)
		}
	}
	return d.Module(), exprs, nil
}

func runAction(c *cli.Context) error {
	path, source, err := readSource(c)
	if err != nil {
		return err
	}
	results, err := newDriver(c).Run(path, source)
	if err != nil {
		return err
	}
	return failed(results)
}

func irAction(c *cli.Context) error {
	m, _, err := lower(c)
	if err != nil {
		return err
	}
	fmt.Print(m.String())
	return nil
}

func astAction(c *cli.Context) error {
	path, source, err := readSource(c)
	if err != nil {
		return err
	}
	m, err := parser.Load(path, source)
	if err != nil {
		return err
	}

	if c.Bool("sexp") {
		for _, node := range m.Top.List {
			fmt.Println(node)
		}
		return nil
	}
	repr.New(os.Stdout, repr.Indent("  "), repr.OmitEmpty(true)).Println(m.Top)
	return nil
}

func buildAction(c *cli.Context) error {
	m, exprs, err := lower(c)
	if err != nil {
		return err
	}
	if _, err := native.Emit(m, exprs); err != nil {
		return err
	}

	compiler := &native.Compiler{
		CC:     c.String("cc"),
		Stdout: os.Stderr,
		Stderr: os.Stderr,
		Log:    newLogger(c),
	}
	return compiler.Build(c.Context, m.String(), c.String("output"))
}

func main() {
	app := &cli.App{
		Name:  "stone",
		Usage: "Lowers Stone programs to LLVM IR and evaluates them.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Print phase timings to standard error.",
			},
			&cli.BoolFlag{
				Name:  "dump-ir",
				Usage: "Print the IR of every function as it is lowered.",
			},
			&cli.IntFlag{
				Name:  "max-depth",
				Value: engine.DefaultMaxDepth,
				Usage: "Maximum call depth during evaluation.",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Evaluates a program and prints the value of every top-level expression.",
				ArgsUsage: "[file]",
				Action:    runAction,
			},
			{
				Name:      "ir",
				Usage:     "Prints the LLVM IR module of a program.",
				ArgsUsage: "[file]",
				Action:    irAction,
			},
			{
				Name:      "ast",
				Usage:     "Prints the parsed tree of a program.",
				ArgsUsage: "[file]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "sexp",
						Usage: "Print every top-level item as an S-expression.",
					},
				},
				Action: astAction,
			},
			{
				Name:      "build",
				Usage:     "Builds a program into an executable that prints its top-level values.",
				ArgsUsage: "[file]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   "a.out",
						Usage:   "Name of the executable.",
					},
					&cli.StringFlag{
						Name:    "cc",
						Value:   native.DefaultCC,
						Usage:   "clang executable used to compile the IR.",
						EnvVars: []string{"STONE_CC"},
					},
				},
				Action: buildAction,
			},
			{
				Name:  "repl",
				Usage: "Reads and evaluates input interactively.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "history",
						Usage: "History file. Defaults to ~/.stone_history.",
					},
				},
				Action: replAction,
			},
			{
				Name:      "watch",
				Usage:     "Evaluates a program again every time its file is written.",
				ArgsUsage: "file",
				Action:    watchAction,
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
