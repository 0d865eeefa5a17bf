package token

import "fmt"

type TokenType int

const (
	INT TokenType = iota
	FLOAT
	IDENTIFIER
	EOF

	KEYWORD_BEGIN
	DEF
	IF
	THEN
	ELSE
	WHILE
	KEYWORD_END

	LEFT_PAREN
	RIGHT_PAREN
	LEFT_BRACE
	RIGHT_BRACE
	COMMA
	COLON

	binaryop_begin
	EQUAL
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT

	LESSER
	GREATER
	EQUAL_EQUAL
	binaryop_end

	SEMICOLON
)

var names = map[TokenType]string{
	INT:         "INT",
	FLOAT:       "FLOAT",
	IDENTIFIER:  "IDENTIFIER",
	EOF:         "EOF",
	DEF:         "def",
	IF:          "if",
	THEN:        "then",
	ELSE:        "else",
	WHILE:       "while",
	LEFT_PAREN:  "(",
	RIGHT_PAREN: ")",
	LEFT_BRACE:  "{",
	RIGHT_BRACE: "}",
	COMMA:       ",",
	COLON:       ":",
	EQUAL:       "=",
	PLUS:        "+",
	MINUS:       "-",
	STAR:        "*",
	SLASH:       "/",
	PERCENT:     "%",
	LESSER:      "<",
	GREATER:     ">",
	EQUAL_EQUAL: "==",
	SEMICOLON:   ";",
}

func (t TokenType) String() string {
	if name, ok := names[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

func (t TokenType) IsBinaryOperator() bool {
	return t > binaryop_begin && t < binaryop_end
}

func (t TokenType) IsComparativeOperator() bool {
	return t >= LESSER && t <= EQUAL_EQUAL
}

type Token struct {
	Lexeme string
	Type   TokenType
	Pos    Pos
}

type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Keywords are laid out in the same order as the keyword token types so the
// lexer can map an index straight to its TokenType.
var Keywords = [...]string{
	"def",
	"if",
	"then",
	"else",
	"while",
}

func LookupKeyword(text string) (TokenType, bool) {
	for i, kw := range Keywords {
		if kw == text {
			return TokenType(int(KEYWORD_BEGIN) + i + 1), true
		}
	}
	return IDENTIFIER, false
}
