package parser

import (
	"fmt"
	"strconv"

	"github.com/hottestseason/Stone/pkg/ast"
	"github.com/hottestseason/Stone/pkg/lexer"
	"github.com/hottestseason/Stone/pkg/token"
)

type Parser struct {
	current int

	Module *ast.Module
}

// Error is a syntax error. AtEOF is set when the parser ran out of tokens,
// which means more input could still complete the program.
type Error struct {
	Pos     token.Pos
	Message string
	Context string
	AtEOF   bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s\nparse-error: %d:%d: %s", e.Context, e.Pos.Line, e.Pos.Column, e.Message)
}

// IsIncomplete reports whether err only complains about missing input.
func IsIncomplete(err error) bool {
	perr, ok := err.(*Error)
	return ok && perr.AtEOF
}

func (p *Parser) parseError(tok token.Token, message string) {
	// The lexer terminates the last line with a semicolon; failing on it is
	// the same as failing on EOF.
	atEOF := tok.Type == token.EOF ||
		(tok.Type == token.SEMICOLON && tok == p.peek(0) && p.peek(1).Type == token.EOF)

	panic(&Error{
		Pos:     tok.Pos,
		Message: message,
		Context: p.Module.TokenSourceContext(&tok),
		AtEOF:   atEOF,
	})
}

func (p *Parser) peek(distance int) token.Token {
	i := p.current + distance
	if i >= len(p.Module.Tokens) {
		return p.Module.Tokens[len(p.Module.Tokens)-1]
	}
	return p.Module.Tokens[i]
}

func (p *Parser) expect(typ token.TokenType, message string) token.Token {
	if p.peek(0).Type != typ {
		p.parseError(p.peek(0), message)
	}

	p.current++
	return p.peek(-1)
}

func (p *Parser) skipSemicolons() {
	for p.peek(0).Type == token.SEMICOLON {
		p.current++
	}
}

func (p *Parser) parseTopLevel() ast.Node {
	if p.peek(0).Type == token.DEF {
		return p.parseDef()
	}
	return p.parseExpression()
}

func (p *Parser) parseDef() *ast.Def {
	p.current++ // skip `def`
	name := p.expect(token.IDENTIFIER, "Expect function name.")
	p.expect(token.LEFT_PAREN, "Expect `(` after function name.")

	params := []ast.Node{}
	if p.peek(0).Type != token.RIGHT_PAREN {
		for {
			paramName := p.expect(token.IDENTIFIER, "Expect name for function parameter.")
			p.expect(token.COLON, fmt.Sprintf("Expect `:` and a type after parameter `%s`.", paramName.Lexeme))
			paramType := p.expect(token.IDENTIFIER, "Expect type name for function parameter.")
			params = append(params, ast.NewVariableRef(paramName, paramType.Lexeme))

			if p.peek(0).Type != token.COMMA {
				break
			} else {
				p.current++ // skip the comma
			}
		}
	}
	p.expect(token.RIGHT_PAREN, "Missing closing `)` after parameter list.")

	returnType := ""
	if p.peek(0).Type == token.COLON {
		p.current++
		returnType = p.expect(token.IDENTIFIER, "Expect return type after `:`.").Lexeme
	}

	var body ast.Node
	if p.peek(0).Type == token.LEFT_BRACE {
		body = p.parseBlock()
	} else {
		body = p.parseExpression()
	}

	return ast.NewDef(name, ast.NewArguments(params...), body, returnType)
}

func (p *Parser) parseBlock() *ast.Block {
	p.expect(token.LEFT_BRACE, "Expect `{` to open a block.")
	p.skipSemicolons()

	list := []ast.Node{}
	for p.peek(0).Type != token.RIGHT_BRACE {
		if p.peek(0).Type == token.EOF {
			p.parseError(p.peek(0), "Unclosed block.")
		}
		if p.peek(0).Type == token.DEF {
			p.parseError(p.peek(0), "Functions can only be defined at the top level.")
		}

		list = append(list, p.parseExpression())

		if p.peek(0).Type != token.RIGHT_BRACE {
			p.expect(token.SEMICOLON, "Expect `;` or newline between expressions in a block.")
			p.skipSemicolons()
		}
	}

	if len(list) == 0 {
		p.parseError(p.peek(0), "Blocks must contain at least one expression.")
	}

	p.current++ // skip the `}`
	return ast.NewBlock(list...)
}

// parseBranch parses the body of an if/while: either a block or a single
// expression.
func (p *Parser) parseBranch() ast.Node {
	if p.peek(0).Type == token.LEFT_BRACE {
		return p.parseBlock()
	}
	return p.parseExpression()
}

func (p *Parser) parseIf() ast.Node {
	ifToken := p.expect(token.IF, "Expect `if`.")
	condition := p.parseExpression()
	if p.peek(0).Type == token.THEN {
		p.current++
	}
	thenBranch := p.parseBranch()

	// A newline may separate the then branch from `else`.
	if p.peek(0).Type == token.SEMICOLON && p.peek(1).Type == token.ELSE {
		p.current++
	}
	p.expect(token.ELSE, "Expect `else` branch: `if` is an expression and needs both branches.")
	elseBranch := p.parseBranch()

	return ast.NewIf(ifToken, condition, thenBranch, elseBranch)
}

func (p *Parser) parseWhile() ast.Node {
	whileToken := p.expect(token.WHILE, "Expect `while`.")
	condition := p.parseExpression()
	body := p.parseBlock()
	return ast.NewWhile(whileToken, condition, body)
}

func (p *Parser) parseExpression() ast.Node {
	return p.parsePrecedenceExpression(p.parseUnary(), 0)
}

type associativity int

const (
	ltr associativity = iota
	rtl
)

type opInfo struct {
	precedence    int
	associativity associativity
}

var operatorPrecedenceMap = map[token.TokenType]opInfo{
	token.PERCENT: {precedence: 4, associativity: ltr},
	token.STAR:    {precedence: 4, associativity: ltr},
	token.SLASH:   {precedence: 4, associativity: ltr},

	token.PLUS:  {precedence: 3, associativity: ltr},
	token.MINUS: {precedence: 3, associativity: ltr},

	token.LESSER:      {precedence: 2, associativity: ltr},
	token.GREATER:     {precedence: 2, associativity: ltr},
	token.EQUAL_EQUAL: {precedence: 2, associativity: ltr},

	token.EQUAL: {precedence: 1, associativity: rtl},
}

func (p *Parser) parsePrecedenceExpression(lhs ast.Node, minPrecedence int) ast.Node {
	lookahead := p.peek(0)
	for lookahead.Type.IsBinaryOperator() &&
		operatorPrecedenceMap[lookahead.Type].precedence >= minPrecedence {

		op := lookahead
		opPrecedence := operatorPrecedenceMap[op.Type].precedence
		p.current++
		rhs := p.parseUnary()
		lookahead = p.peek(0)

		for lookahead.Type.IsBinaryOperator() {
			next := operatorPrecedenceMap[lookahead.Type]
			if next.precedence > opPrecedence {
				rhs = p.parsePrecedenceExpression(rhs, opPrecedence+1)
			} else if next.associativity == rtl && next.precedence == opPrecedence {
				rhs = p.parsePrecedenceExpression(rhs, opPrecedence)
			} else {
				break
			}
			lookahead = p.peek(0)
		}

		if op.Type == token.EQUAL {
			if _, ok := lhs.(*ast.VariableRef); !ok {
				p.parseError(op, "Only variables can be assigned to.")
			}
		}
		lhs = ast.NewBinaryExpr(lhs, op, rhs)
	}

	return lhs
}

func (p *Parser) parseUnary() ast.Node {
	if p.peek(0).Type != token.MINUS {
		return p.parsePrimary()
	}

	minus := p.peek(0)
	p.current++

	// Negative literals are folded so that the most negative int64 can be
	// written down.
	if t := p.peek(0); t.Type == token.INT || t.Type == token.FLOAT {
		p.current++
		return p.parseLiteral(t, "-")
	}

	zero := ast.NewIntLiteral(token.Token{Lexeme: "0", Type: token.INT, Pos: minus.Pos}, 0)
	return ast.NewBinaryExpr(zero, minus, p.parseUnary())
}

func (p *Parser) parseLiteral(t token.Token, sign string) ast.Node {
	if t.Type == token.FLOAT {
		parsedFloat, err := strconv.ParseFloat(sign+t.Lexeme, 64)
		if err != nil {
			p.parseError(t, fmt.Sprintf("Invalid float literal `%s%s`.", sign, t.Lexeme))
		}
		return ast.NewFloatLiteral(t, parsedFloat)
	}

	parsedInt, err := strconv.ParseInt(sign+t.Lexeme, 10, 64)
	if err != nil {
		p.parseError(t, fmt.Sprintf("Integer literal `%s%s` does not fit in 64 bits.", sign, t.Lexeme))
	}
	return ast.NewIntLiteral(t, parsedInt)
}

func (p *Parser) parsePrimary() ast.Node {
	t := p.peek(0)

	switch t.Type {
	case token.INT, token.FLOAT:
		p.current++
		return p.parseLiteral(t, "")
	case token.LEFT_PAREN:
		p.current++
		expr := p.parseExpression()
		p.expect(token.RIGHT_PAREN, "Missing closing `)` in grouping.")
		return expr
	case token.LEFT_BRACE:
		return p.parseBlock()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.IDENTIFIER:
		p.current++
		if p.peek(0).Type == token.LEFT_PAREN {
			return p.parseCall(t)
		}
		if p.peek(0).Type == token.COLON {
			p.current++
			typeName := p.expect(token.IDENTIFIER, "Expect type name after `:`.")
			return ast.NewVariableRef(t, typeName.Lexeme)
		}
		return ast.NewVariableRef(t, "")
	}

	p.parseError(t, "Expected expression.")
	return nil
}

func (p *Parser) parseCall(callee token.Token) ast.Node {
	p.current++ // skip the `(`
	arguments := []ast.Node{}

	if p.peek(0).Type != token.RIGHT_PAREN {
		for {
			arguments = append(arguments, p.parseExpression())

			if p.peek(0).Type != token.COMMA {
				break
			} else {
				p.current++ // skip the comma
			}
		}
	}

	p.expect(token.RIGHT_PAREN, "Missing closing parenthesis in function call.")
	return ast.NewCall(callee, ast.NewArguments(arguments...))
}

// Parse turns m.Tokens into m.Top.
func Parse(m *ast.Module) (err error) {
	p := Parser{Module: m}

	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			err = perr
		}
	}()

	result := []ast.Node{}
	p.skipSemicolons()
	for p.peek(0).Type != token.EOF {
		result = append(result, p.parseTopLevel())

		if p.peek(0).Type != token.EOF {
			p.expect(token.SEMICOLON, "Expect `;` or newline after top-level item.")
		}
		p.skipSemicolons()
	}

	m.Top = ast.NewTop(result...)
	return nil
}

// Load lexes and parses a whole source text.
func Load(path string, source string) (*ast.Module, error) {
	m := &ast.Module{Path: path, Source: source}

	if err := lexer.Lex(m); err != nil {
		return nil, err
	}
	if err := Parse(m); err != nil {
		return nil, err
	}
	return m, nil
}
