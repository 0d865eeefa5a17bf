package lexer

import (
	"fmt"
	"unicode"

	"github.com/hottestseason/Stone/pkg/ast"
	"github.com/hottestseason/Stone/pkg/token"
)

type Lexer struct {
	start     int
	current   int
	line      int
	lineBegin int
	tokens    []token.Token

	Module *ast.Module
}

// Error is a lexing failure at a position of the module's source.
type Error struct {
	Pos     token.Pos
	Message string
	Context string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s\nlex-error: %d:%d: %s", e.Context, e.Pos.Line, e.Pos.Column, e.Message)
}

func (l *Lexer) lexError(message string) error {
	t := token.Token{Pos: l.pos()}
	return &Error{Pos: t.Pos, Message: message, Context: l.Module.TokenSourceContext(&t)}
}

func (l *Lexer) pos() token.Pos {
	return token.Pos{Line: l.line, Column: l.start - l.lineBegin + 1}
}

func (l *Lexer) isAtEnd() bool {
	return l.current >= len(l.Module.Source)
}

func (l *Lexer) advance() byte {
	l.current++
	return l.Module.Source[l.current-1]
}

func (l *Lexer) match(c byte) bool {
	if l.isAtEnd() {
		return false
	} else if l.Module.Source[l.current] == c {
		l.current++
		return true
	} else {
		return false
	}
}

// peek returns 0 past the end of the source.
func (l *Lexer) peek(distance int) byte {
	if l.current+distance >= len(l.Module.Source) {
		return 0
	}
	return l.Module.Source[l.current+distance]
}

func (l *Lexer) addToken(typ token.TokenType) {
	l.tokens = append(l.tokens, token.Token{
		Lexeme: l.Module.Source[l.start:l.current],
		Type:   typ,
		Pos:    l.pos(),
	})
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isIdentStart(b byte) bool {
	return b == '_' || unicode.IsLetter(rune(b))
}

func isAlphaNumeric(b byte) bool {
	return isDigit(b) || isIdentStart(b)
}

func (l *Lexer) lexNumber() {
	t := token.INT

	for isDigit(l.peek(0)) {
		l.advance()
	}

	// Look for a fractional part.
	if l.peek(0) == '.' && isDigit(l.peek(1)) {
		t = token.FLOAT

		// Consume the "."
		l.advance()

		for isDigit(l.peek(0)) {
			l.advance()
		}
	}

	l.addToken(t)
}

func (l *Lexer) lexIdent() {
	for isAlphaNumeric(l.peek(0)) {
		l.advance()
	}

	typ, _ := token.LookupKeyword(l.Module.Source[l.start:l.current])
	l.addToken(typ)
}

// endsStatement reports whether a newline after the last token terminates a
// statement.
func (l *Lexer) endsStatement() bool {
	if len(l.tokens) == 0 {
		return false
	}

	switch l.tokens[len(l.tokens)-1].Type {
	case token.IDENTIFIER, token.INT, token.FLOAT, token.RIGHT_PAREN, token.RIGHT_BRACE:
		return true
	}
	return false
}

func (l *Lexer) ScanToken() error {
	c := l.advance()

	switch c {
	case '(':
		l.addToken(token.LEFT_PAREN)
	case ')':
		l.addToken(token.RIGHT_PAREN)
	case '{':
		l.addToken(token.LEFT_BRACE)
	case '}':
		l.addToken(token.RIGHT_BRACE)
	case ',':
		l.addToken(token.COMMA)
	case ':':
		l.addToken(token.COLON)
	case '<':
		l.addToken(token.LESSER)
	case '>':
		l.addToken(token.GREATER)
	case '-':
		l.addToken(token.MINUS)
	case '+':
		l.addToken(token.PLUS)
	case '*':
		l.addToken(token.STAR)
	case '%':
		l.addToken(token.PERCENT)
	case '=':
		if l.match('=') {
			l.addToken(token.EQUAL_EQUAL)
		} else {
			l.addToken(token.EQUAL)
		}
	case '/':
		if l.match('/') {
			// a comment goes until the end of the line.
			for l.peek(0) != '\n' && !l.isAtEnd() {
				l.advance()
			}
		} else {
			l.addToken(token.SLASH)
		}
	case ' ', '\r', '\t':
		// ignore whitespace.
	case ';':
		l.addToken(token.SEMICOLON)
	case '\n':
		// “if the newline comes after a token that could end a
		// statement, insert a semicolon”.
		// Source: https://golang.org/doc/effective_go#semicolons
		if l.endsStatement() {
			l.tokens = append(l.tokens, token.Token{Lexeme: "\n", Type: token.SEMICOLON, Pos: l.pos()})
		}

		l.line++
		l.lineBegin = l.current
	default:
		if isDigit(c) {
			l.lexNumber()
		} else if isIdentStart(c) {
			l.lexIdent()
		} else {
			return l.lexError(fmt.Sprintf("Unexpected character: %q", c))
		}
	}

	return nil
}

// Lex fills m.Tokens from m.Source. The token stream always ends with EOF.
func Lex(m *ast.Module) error {
	l := Lexer{Module: m, line: 1}

	for !l.isAtEnd() {
		// we are at the beginning of the next lexeme.
		l.start = l.current
		if err := l.ScanToken(); err != nil {
			return err
		}
	}

	if l.endsStatement() {
		l.start = l.current
		l.tokens = append(l.tokens, token.Token{Lexeme: "", Type: token.SEMICOLON, Pos: l.pos()})
	}

	l.start = l.current
	l.tokens = append(l.tokens, token.Token{Lexeme: "", Type: token.EOF, Pos: l.pos()})
	m.Tokens = l.tokens
	return nil
}
