package ast

import (
	"testing"

	"github.com/hottestseason/Stone/pkg/token"
	"github.com/nalgeon/be"
)

func ident(name string) token.Token {
	return token.Token{Lexeme: name, Type: token.IDENTIFIER, Pos: token.Pos{Line: 1, Column: 1}}
}

func op(lexeme string, typ token.TokenType) token.Token {
	return token.Token{Lexeme: lexeme, Type: typ}
}

func TestString(t *testing.T) {
	t.Parallel()
	params := NewArguments(NewVariableRef(ident("a"), "int"), NewVariableRef(ident("b"), "int"))
	body := NewBinaryExpr(NewVariableRef(ident("a"), ""), op("+", token.PLUS), NewVariableRef(ident("b"), ""))
	def := NewDef(ident("add"), params, body, "int")

	call := NewCall(ident("add"), NewArguments(NewIntLiteral(token.Token{}, 2), NewFloatLiteral(token.Token{}, 3)))
	top := NewTop(def, call)

	be.Equal(t, top.String(), "(top (def add (a:int b:int) int (+ a b)) (call add 2 3.0))")
}

func TestIfAndBlockString(t *testing.T) {
	t.Parallel()
	cond := NewBinaryExpr(NewVariableRef(ident("x"), ""), op(">", token.GREATER), NewIntLiteral(token.Token{}, 0))
	n := NewIf(op("if", token.IF), cond, NewVariableRef(ident("x"), ""), NewBlock(NewIntLiteral(token.Token{}, 1)))
	be.Equal(t, n.String(), "(if (> x 0) x (block 1))")

	def := NewDef(ident("f"), nil, n, "")
	be.Equal(t, def.String(), "(def f () _ (if (> x 0) x (block 1)))")
	be.Equal(t, len(def.Formals()), 0)
}

func TestConstructorsCheckArity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		build func()
	}{
		{"binary without right operand", func() {
			NewBinaryExpr(NewIntLiteral(token.Token{}, 1), op("+", token.PLUS), nil)
		}},
		{"assignment to a literal", func() {
			NewBinaryExpr(NewIntLiteral(token.Token{}, 1), op("=", token.EQUAL), NewIntLiteral(token.Token{}, 2))
		}},
		{"non operator", func() {
			NewBinaryExpr(NewIntLiteral(token.Token{}, 1), op(",", token.COMMA), NewIntLiteral(token.Token{}, 2))
		}},
		{"if without else", func() {
			NewIf(op("if", token.IF), NewIntLiteral(token.Token{}, 1), NewIntLiteral(token.Token{}, 2), nil)
		}},
		{"untyped formal", func() {
			NewDef(ident("f"), NewArguments(NewVariableRef(ident("x"), "")), NewIntLiteral(token.Token{}, 1), "")
		}},
		{"empty block", func() { NewBlock() }},
		{"nameless variable", func() { NewVariableRef(token.Token{}, "") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				be.True(t, recover() != nil)
			}()
			tt.build()
		})
	}
}

func TestTokenSourceContext(t *testing.T) {
	t.Parallel()
	m := Module{Source: "x = 1\ny = x + z\nz"}
	tok := token.Token{Lexeme: "z", Pos: token.Pos{Line: 2, Column: 9}}

	want := "\n   1 | x = 1" +
		"\n   2 | y = x + z" +
		"\n     |         ^" +
		"\n   3 | z"
	be.Equal(t, m.TokenSourceContext(&tok), want)
}

func TestTokenSourceContextOutOfRange(t *testing.T) {
	t.Parallel()
	m := Module{Source: "1"}
	tok := token.Token{Pos: token.Pos{Line: 7, Column: 1}}
	be.Equal(t, m.TokenSourceContext(&tok), "")
}
