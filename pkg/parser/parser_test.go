package parser

import (
	"testing"

	"github.com/hottestseason/Stone/pkg/ast"
	"github.com/hottestseason/Stone/pkg/token"
	"github.com/nalgeon/be"
)

func TestParse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{
			name:     "typed definition and call",
			source:   "def add(a:int, b:int): int { a + b }\nadd(2,3)",
			expected: "(top (def add (a:int b:int) int (block (+ a b))) (call add 2 3))",
		},
		{
			name:     "inferred definition with if",
			source:   "def f(x:double) { if x > 0 then x else 0 - x }",
			expected: "(top (def f (x:double) _ (block (if (> x 0) x (- 0 x)))))",
		},
		{
			name:     "mixed literal expression",
			source:   "1 + 2.0",
			expected: "(top (+ 1 2.0))",
		},
		{
			name:     "precedence",
			source:   "1 + 2 * 3 - 4 / 2 % 3",
			expected: "(top (- (+ 1 (* 2 3)) (% (/ 4 2) 3)))",
		},
		{
			name:     "comparison binds looser than arithmetic",
			source:   "a + 1 < b * 2",
			expected: "(top (< (+ a 1) (* b 2)))",
		},
		{
			name:     "assignment is right associative",
			source:   "x = y = 3",
			expected: "(top (= x (= y 3)))",
		},
		{
			name:     "typed assignment target",
			source:   "x:double = 1.5",
			expected: "(top (= x:double 1.5))",
		},
		{
			name:     "grouping",
			source:   "(1 + 2) * 3",
			expected: "(top (* (+ 1 2) 3))",
		},
		{
			name:     "unary minus",
			source:   "-4.5; -x * 2; - -3",
			expected: "(top -4.5 (* (- 0 x) 2) (- 0 -3))",
		},
		{
			name:     "block branches across lines",
			source:   "if 1 {\n  x = 2\n  x\n}\nelse {\n  3\n}",
			expected: "(top (if 1 (block (= x 2) x) (block 3)))",
		},
		{
			name:     "while loop",
			source:   "while i < 10 { i = i + 1 }",
			expected: "(top (while (< i 10) (block (= i (+ i 1)))))",
		},
		{
			name:     "call without arguments",
			source:   "def one(): int { 1 }; one()",
			expected: "(top (def one () int (block 1)) (call one))",
		},
		{
			name:     "expression body",
			source:   "def twice(x:int) x * 2",
			expected: "(top (def twice (x:int) _ (* x 2)))",
		},
		{
			name:     "comments and blank lines",
			source:   "// leading\n\n1 // trailing\n\n2\n",
			expected: "(top 1 2)",
		},
		{
			name:     "empty program",
			source:   "\n\n",
			expected: "(top)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Load("test.stone", tt.source)
			be.Err(t, err, nil)
			be.Equal(t, m.Top.String(), tt.expected)
		})
	}
}

func TestParseMinInt64(t *testing.T) {
	t.Parallel()
	m, err := Load("", "-9223372036854775808")
	be.Err(t, err, nil)

	lit, ok := m.Top.List[0].(*ast.Literal)
	be.True(t, ok)
	be.Equal(t, lit.Int, int64(-9223372036854775808))
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		source  string
		message string
	}{
		{"if without else", "if 1 then 2", "Expect `else` branch"},
		{"untyped parameter", "def f(x) { x }", "Expect `:` and a type after parameter `x`."},
		{"assign to literal", "1 = 2", "Only variables can be assigned to."},
		{"missing operand", "1 +", "Expected expression."},
		{"nested def", "def f(): int { def g(): int { 1 } }", "Functions can only be defined at the top level."},
		{"empty block", "def f(): int { }", "Blocks must contain at least one expression."},
		{"two expressions on a line", "1 2", "Expect `;` or newline after top-level item."},
		{"overflow", "99999999999999999999", "does not fit in 64 bits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("", tt.source)
			be.Err(t, err, tt.message)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	t.Parallel()
	_, err := Load("", "x = 1\ny = )")
	perr, ok := err.(*Error)
	be.True(t, ok)
	be.Equal(t, perr.Pos, token.Pos{Line: 2, Column: 5})
	be.Err(t, err, "parse-error: 2:5: Expected expression.")
	be.True(t, !perr.AtEOF)
}

func TestIsIncomplete(t *testing.T) {
	t.Parallel()
	_, err := Load("", "def f(x:int): int {\n  x + 1")
	be.True(t, IsIncomplete(err))

	_, err = Load("", "if x > 1 then 2")
	be.True(t, IsIncomplete(err))

	_, err = Load("", "1 = 2")
	be.True(t, !IsIncomplete(err))
}
