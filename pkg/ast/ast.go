package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hottestseason/Stone/pkg/domain"
	"github.com/hottestseason/Stone/pkg/token"
)

// Node is the closed set of tree variants produced by the parser. Every
// node owns its children; nodes are never shared and never mutated once
// built.
type Node interface {
	isNode()
	ErrorToken() token.Token
	String() string
}

type LiteralKind int

const (
	IntLiteral LiteralKind = iota
	FloatLiteral
)

type Literal struct {
	Token token.Token
	Kind  LiteralKind
	Int   int64
	Float float64
}

type VariableRef struct {
	Identifier token.Token
	// TypeName is empty when the reference carries no annotation.
	TypeName string
}

type BinaryExpr struct {
	Left     Node
	Operator token.Token
	Right    Node
}

type Call struct {
	Callee    token.Token
	Arguments *Arguments
}

// Arguments is both the actual argument list of a call and the formal
// parameter list of a definition. In the latter use every entry is a typed
// *VariableRef.
type Arguments struct {
	List []Node
}

type If struct {
	IfToken   token.Token
	Condition Node
	Then      Node
	Else      Node
}

type While struct {
	WhileToken token.Token
	Condition  Node
	Body       Node
}

type Def struct {
	Identifier token.Token
	Parameters *Arguments
	Body       Node
	// ReturnType is empty when the return type has to be inferred.
	ReturnType string
}

type Block struct {
	List []Node
}

type Top struct {
	List []Node
}

func (*Literal) isNode()     {}
func (*VariableRef) isNode() {}
func (*BinaryExpr) isNode()  {}
func (*Call) isNode()        {}
func (*Arguments) isNode()   {}
func (*If) isNode()          {}
func (*While) isNode()       {}
func (*Def) isNode()         {}
func (*Block) isNode()       {}
func (*Top) isNode()         {}

func NewIntLiteral(tok token.Token, v int64) *Literal {
	return &Literal{Token: tok, Kind: IntLiteral, Int: v}
}

func NewFloatLiteral(tok token.Token, v float64) *Literal {
	return &Literal{Token: tok, Kind: FloatLiteral, Float: v}
}

func NewVariableRef(ident token.Token, typeName string) *VariableRef {
	if ident.Lexeme == "" {
		panic("internal error: variable reference without a name")
	}
	return &VariableRef{Identifier: ident, TypeName: typeName}
}

func NewBinaryExpr(left Node, op token.Token, right Node) *BinaryExpr {
	if left == nil || right == nil {
		panic(fmt.Sprintf("internal error: binary `%s` needs two operands", op.Lexeme))
	}
	if !op.Type.IsBinaryOperator() {
		panic(fmt.Sprintf("internal error: `%s` is not a binary operator", op.Lexeme))
	}
	if op.Type == token.EQUAL {
		if _, ok := left.(*VariableRef); !ok {
			panic("internal error: assignment target must be a variable reference")
		}
	}
	return &BinaryExpr{Left: left, Operator: op, Right: right}
}

func NewCall(callee token.Token, args *Arguments) *Call {
	if args == nil {
		args = &Arguments{}
	}
	return &Call{Callee: callee, Arguments: args}
}

func NewArguments(list ...Node) *Arguments {
	for _, n := range list {
		if n == nil {
			panic("internal error: nil argument")
		}
	}
	return &Arguments{List: list}
}

func NewIf(ifToken token.Token, cond, then, els Node) *If {
	if cond == nil || then == nil || els == nil {
		panic("internal error: if needs a condition, a then branch and an else branch")
	}
	return &If{IfToken: ifToken, Condition: cond, Then: then, Else: els}
}

func NewWhile(whileToken token.Token, cond, body Node) *While {
	if cond == nil || body == nil {
		panic("internal error: while needs a condition and a body")
	}
	return &While{WhileToken: whileToken, Condition: cond, Body: body}
}

// NewDef builds a function definition. Formal parameters must be typed
// variable references; a nil parameter list means no parameters.
func NewDef(name token.Token, params *Arguments, body Node, returnType string) *Def {
	if body == nil {
		panic("internal error: def without a body")
	}
	if params == nil {
		params = &Arguments{}
	}
	for _, p := range params.List {
		v, ok := p.(*VariableRef)
		if !ok || v.TypeName == "" {
			panic(fmt.Sprintf("internal error: formal parameter of `%s` must be a typed variable", name.Lexeme))
		}
	}
	return &Def{Identifier: name, Parameters: params, Body: body, ReturnType: returnType}
}

func NewBlock(list ...Node) *Block {
	if len(list) == 0 {
		panic("internal error: empty block")
	}
	return &Block{List: list}
}

func NewTop(list ...Node) *Top {
	return &Top{List: list}
}

func (d *Def) Name() string {
	return d.Identifier.Lexeme
}

// Formals returns the parameter list as variable references.
func (d *Def) Formals() []*VariableRef {
	formals := make([]*VariableRef, len(d.Parameters.List))
	for i, p := range d.Parameters.List {
		formals[i] = p.(*VariableRef)
	}
	return formals
}

func (v *VariableRef) Name() string {
	return v.Identifier.Lexeme
}

func (l *Literal) ErrorToken() token.Token     { return l.Token }
func (v *VariableRef) ErrorToken() token.Token { return v.Identifier }
func (b *BinaryExpr) ErrorToken() token.Token  { return b.Operator }
func (c *Call) ErrorToken() token.Token        { return c.Callee }
func (i *If) ErrorToken() token.Token          { return i.IfToken }
func (w *While) ErrorToken() token.Token       { return w.WhileToken }
func (d *Def) ErrorToken() token.Token         { return d.Identifier }

func (a *Arguments) ErrorToken() token.Token {
	if len(a.List) > 0 {
		return a.List[0].ErrorToken()
	}
	return token.Token{}
}

func (b *Block) ErrorToken() token.Token {
	return b.List[0].ErrorToken()
}

func (t *Top) ErrorToken() token.Token {
	if len(t.List) > 0 {
		return t.List[0].ErrorToken()
	}
	return token.Token{}
}

func (l *Literal) String() string {
	if l.Kind == FloatLiteral {
		return domain.FormatDouble(l.Float)
	}
	return strconv.FormatInt(l.Int, 10)
}

func (v *VariableRef) String() string {
	if v.TypeName != "" {
		return v.Name() + ":" + v.TypeName
	}
	return v.Name()
}

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Operator.Lexeme, b.Left, b.Right)
}

func (c *Call) String() string {
	if len(c.Arguments.List) == 0 {
		return fmt.Sprintf("(call %s)", c.Callee.Lexeme)
	}
	return fmt.Sprintf("(call %s %s)", c.Callee.Lexeme, joinNodes(c.Arguments.List))
}

func (a *Arguments) String() string {
	return "(" + joinNodes(a.List) + ")"
}

func (i *If) String() string {
	return fmt.Sprintf("(if %s %s %s)", i.Condition, i.Then, i.Else)
}

func (w *While) String() string {
	return fmt.Sprintf("(while %s %s)", w.Condition, w.Body)
}

func (d *Def) String() string {
	ret := d.ReturnType
	if ret == "" {
		ret = "_"
	}
	return fmt.Sprintf("(def %s %s %s %s)", d.Name(), d.Parameters, ret, d.Body)
}

func (b *Block) String() string {
	return "(block " + joinNodes(b.List) + ")"
}

func (t *Top) String() string {
	if len(t.List) == 0 {
		return "(top)"
	}
	return "(top " + joinNodes(t.List) + ")"
}

func joinNodes(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, " ")
}
