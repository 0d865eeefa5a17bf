package ast

import (
	"fmt"
	"strings"

	"github.com/hottestseason/Stone/pkg/token"
)

// Module is one unit of program text as it moves through lexing and
// parsing.
type Module struct {
	Path   string
	Source string
	Tokens []token.Token
	Top    *Top
}

// TokenSourceContext renders the lines surrounding a token with a caret
// under its first column, for use in diagnostics.
func (m *Module) TokenSourceContext(t *token.Token) string {
	source := strings.ReplaceAll(m.Source, "\r\n", "\n")
	sourceLines := strings.Split(source, "\n")

	if t.Pos.Line < 1 || t.Pos.Line > len(sourceLines) {
		return ""
	}

	line := sourceLines[t.Pos.Line-1]
	column := t.Pos.Column
	if column < 1 {
		column = 1
	}
	if column > len(line)+1 {
		column = len(line) + 1
	}

	offsetHighlight := make([]byte, column)
	for i := 0; i < column-1; i++ {
		if line[i] == '\t' {
			offsetHighlight[i] = '\t'
		} else {
			offsetHighlight[i] = ' '
		}
	}
	offsetHighlight[column-1] = '^'

	var b strings.Builder
	if t.Pos.Line > 1 {
		fmt.Fprintf(&b, "\n%4d | %s", t.Pos.Line-1, sourceLines[t.Pos.Line-2])
	}
	fmt.Fprintf(&b, "\n%4d | %s", t.Pos.Line, line)
	fmt.Fprintf(&b, "\n     | %s", string(offsetHighlight))
	if t.Pos.Line < len(sourceLines) && sourceLines[t.Pos.Line] != "" {
		fmt.Fprintf(&b, "\n%4d | %s", t.Pos.Line+1, sourceLines[t.Pos.Line])
	}
	return b.String()
}
