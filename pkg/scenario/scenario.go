// Package scenario reads program scenarios written as Markdown. Each
// scenario starts with a `Test: <name>` heading followed by a ```stone fence
// holding the program, then an ```output fence with what evaluating it
// prints and/or an ```error fence with text the error report must contain.
package scenario

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	FenceProgram = "stone"
	FenceOutput  = "output"
	FenceError   = "error"
)

type Case struct {
	Name   string
	Source string
	// Output is meaningful only when HasOutput is set; an empty output
	// fence expects no output at all.
	Output    string
	HasOutput bool
	Error     string
	// Line is where the heading of the scenario is.
	Line int
}

// Extract returns the scenarios of a Markdown document in order.
func Extract(markdown string) ([]Case, error) {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var cases []Case
	var current *Case

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			heading := nodeText(n, source)
			if !strings.HasPrefix(heading, "Test: ") {
				return ast.WalkContinue, nil
			}
			if current != nil {
				if err := validate(current); err != nil {
					return ast.WalkStop, err
				}
				cases = append(cases, *current)
			}
			current = &Case{Name: strings.TrimPrefix(heading, "Test: "), Line: lineOf(n, source)}

		case *ast.FencedCodeBlock:
			language := string(n.Language(source))
			content := fenceContent(n, source)
			line := lineOf(n, source)

			if current == nil {
				if language != "" {
					return ast.WalkStop, fmt.Errorf("line %d: `%s` fence outside of a scenario", line, language)
				}
				return ast.WalkContinue, nil
			}

			switch language {
			case FenceProgram:
				if current.Source != "" {
					return ast.WalkStop, fmt.Errorf("line %d: scenario '%s' has two programs", line, current.Name)
				}
				current.Source = content
			case FenceOutput:
				if current.HasOutput {
					return ast.WalkStop, fmt.Errorf("line %d: scenario '%s' has two outputs", line, current.Name)
				}
				current.Output = content
				current.HasOutput = true
			case FenceError:
				current.Error = strings.TrimSpace(content)
			case "":
			default:
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence `%s` in scenario '%s'", line, language, current.Name)
			}
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	if current != nil {
		if err := validate(current); err != nil {
			return nil, err
		}
		cases = append(cases, *current)
	}

	return cases, nil
}

func validate(c *Case) error {
	if c.Source == "" {
		return fmt.Errorf("line %d: scenario '%s' has no program", c.Line, c.Name)
	}
	if !c.HasOutput && c.Error == "" {
		return fmt.Errorf("line %d: scenario '%s' expects nothing", c.Line, c.Name)
	}
	return nil
}

func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

func lineOf(node ast.Node, source []byte) int {
	start := -1
	if node.Lines().Len() > 0 {
		start = node.Lines().At(0).Start
	}
	if start < 0 {
		return 1
	}
	return bytes.Count(source[:start], []byte("\n")) + 1
}
