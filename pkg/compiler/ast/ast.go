// Package ast defines the expression tree produced by the parser.
//
// Every construct of the language, statements included, is an Expr. The set
// of node types is closed: only this package can add an implementation, and
// the evaluator matches on them with a type switch.
package ast

import (
	"strconv"
	"strings"

	"github.com/zurustar/sketch/pkg/compiler/token"
)

type Node interface {
	TokenLiteral() string
	String() string
}

// Expr is implemented by every node type.
type Expr interface {
	Node
	exprNode()
}

// Program is the root node
type Program struct {
	Exprs []Expr
}

func (p *Program) TokenLiteral() string {
	if len(p.Exprs) > 0 {
		return p.Exprs[0].TokenLiteral()
	}
	return ""
}

// String renders one top-level expression per line.
func (p *Program) String() string {
	var out strings.Builder
	for _, e := range p.Exprs {
		out.WriteString(e.String())
		out.WriteString("\n")
	}
	return out.String()
}

// Literal is a constant: float64, string, bool or nil.
type Literal struct {
	Token token.Token
	Value any
}

func (l *Literal) exprNode()            {}
func (l *Literal) TokenLiteral() string { return l.Token.Lexeme }
func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "null"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	}
	return l.Token.Lexeme
}

// Identifier
type Identifier struct {
	Token token.Token // token.IDENT
	Name  string
}

func (i *Identifier) exprNode()            {}
func (i *Identifier) TokenLiteral() string { return i.Token.Lexeme }
func (i *Identifier) String() string       { return i.Name }

// PropertyAccess is `this.Name`.
type PropertyAccess struct {
	Token token.Token // token.THIS
	Name  string
}

func (pa *PropertyAccess) exprNode()            {}
func (pa *PropertyAccess) TokenLiteral() string { return pa.Token.Lexeme }
func (pa *PropertyAccess) String() string       { return "this." + pa.Name }

// ArrayLiteral
type ArrayLiteral struct {
	Token    token.Token // '['
	Elements []Expr
}

func (al *ArrayLiteral) exprNode()            {}
func (al *ArrayLiteral) TokenLiteral() string { return al.Token.Lexeme }
func (al *ArrayLiteral) String() string       { return sexpr("array", al.Elements...) }

// ArrayAccess is `Target[Index]`.
type ArrayAccess struct {
	Token  token.Token // '['
	Target Expr
	Index  Expr
}

func (aa *ArrayAccess) exprNode()            {}
func (aa *ArrayAccess) TokenLiteral() string { return aa.Token.Lexeme }
func (aa *ArrayAccess) String() string       { return sexpr("index", aa.Target, aa.Index) }

// Unary is `-Operand` or `!Operand`.
type Unary struct {
	Token    token.Token
	Operator token.TokenType
	Operand  Expr
}

func (u *Unary) exprNode()            {}
func (u *Unary) TokenLiteral() string { return u.Token.Lexeme }
func (u *Unary) String() string       { return sexpr(u.Operator.String(), u.Operand) }

// Binary is an arithmetic operation: + - * / %.
type Binary struct {
	Token    token.Token // the operator
	Left     Expr
	Operator token.TokenType
	Right    Expr
}

func (b *Binary) exprNode()            {}
func (b *Binary) TokenLiteral() string { return b.Token.Lexeme }
func (b *Binary) String() string       { return sexpr(b.Operator.String(), b.Left, b.Right) }

// Logical is a comparison, equality or boolean operation.
type Logical struct {
	Token    token.Token // the operator
	Left     Expr
	Operator token.TokenType
	Right    Expr
}

func (l *Logical) exprNode()            {}
func (l *Logical) TokenLiteral() string { return l.Token.Lexeme }
func (l *Logical) String() string       { return sexpr(l.Operator.String(), l.Left, l.Right) }

// Increment is `++x`, `x++`, `--x` or `x--`.
type Increment struct {
	Token    token.Token // the operator
	Target   *Identifier
	Operator token.TokenType // token.INCREMENT or token.DECREMENT
	Prefix   bool
}

func (i *Increment) exprNode()            {}
func (i *Increment) TokenLiteral() string { return i.Token.Lexeme }
func (i *Increment) String() string {
	if i.Prefix {
		return "(" + i.Operator.String() + " " + i.Target.String() + ")"
	}
	return "(" + i.Target.String() + " " + i.Operator.String() + ")"
}

// Val binds Value to Target. With Define set it is a declaration
// (`val x = e`, `lev x = e`, `val x;`) and Target is always an Identifier;
// otherwise it is a reassignment and Target is an Identifier, a
// PropertyAccess or an ArrayAccess. A declaration without initialiser has a
// nil Value.
type Val struct {
	Token  token.Token // 'val', 'lev' or '='
	Define bool
	Target Expr
	Value  Expr
}

func (v *Val) exprNode()            {}
func (v *Val) TokenLiteral() string { return v.Token.Lexeme }
func (v *Val) String() string {
	head := "set"
	if v.Define {
		head = "val"
	}
	if v.Value == nil {
		return sexpr(head, v.Target)
	}
	return sexpr(head, v.Target, v.Value)
}

// Ternary is `Cond then Then or Else`.
type Ternary struct {
	Token token.Token // 'then'
	Cond  Expr
	Then  Expr
	Else  Expr
}

func (t *Ternary) exprNode()            {}
func (t *Ternary) TokenLiteral() string { return t.Token.Lexeme }
func (t *Ternary) String() string       { return sexpr("then", t.Cond, t.Then, t.Else) }

// If. Else is nil when there is no else branch.
type If struct {
	Token token.Token // 'if'
	Cond  Expr
	Then  []Expr
	Else  []Expr
}

func (i *If) exprNode()            {}
func (i *If) TokenLiteral() string { return i.Token.Lexeme }
func (i *If) String() string {
	s := "(if " + i.Cond.String() + " " + block(i.Then)
	if i.Else != nil {
		s += " " + block(i.Else)
	}
	return s + ")"
}

// Range is `From -> To` (ascending) or `From <- To` (descending). Both
// bounds are inclusive.
type Range struct {
	Token      token.Token // '->' or '<-'
	From       Expr
	To         Expr
	Descending bool
}

func (r *Range) exprNode()            {}
func (r *Range) TokenLiteral() string { return r.Token.Lexeme }
func (r *Range) String() string       { return sexpr(r.Token.Lexeme, r.From, r.To) }

// For is `for Name (Range) { Body }`.
type For struct {
	Token token.Token // 'for'
	Name  *Identifier
	Range *Range
	Body  []Expr
}

func (f *For) exprNode()            {}
func (f *For) TokenLiteral() string { return f.Token.Lexeme }
func (f *For) String() string {
	return "(for " + f.Name.String() + " " + f.Range.String() + " " + block(f.Body) + ")"
}

// While
type While struct {
	Token token.Token // 'while'
	Cond  Expr
	Body  []Expr
}

func (w *While) exprNode()            {}
func (w *While) TokenLiteral() string { return w.Token.Lexeme }
func (w *While) String() string {
	return "(while " + w.Cond.String() + " " + block(w.Body) + ")"
}

// Each is `each Target -> Element { Body }`.
type Each struct {
	Token   token.Token // 'each'
	Target  Expr
	Element *Identifier
	Body    []Expr
}

func (e *Each) exprNode()            {}
func (e *Each) TokenLiteral() string { return e.Token.Lexeme }
func (e *Each) String() string {
	return "(each " + e.Target.String() + " " + e.Element.String() + " " + block(e.Body) + ")"
}

// FunctionDecl is `fun Name(Params) { Body }`.
type FunctionDecl struct {
	Token  token.Token // 'fun'
	Name   *Identifier
	Params []*Identifier
	Body   []Expr
}

func (fd *FunctionDecl) exprNode()            {}
func (fd *FunctionDecl) TokenLiteral() string { return fd.Token.Lexeme }
func (fd *FunctionDecl) String() string {
	params := make([]string, len(fd.Params))
	for i, p := range fd.Params {
		params[i] = p.Name
	}
	return "(fun " + fd.Name.Name + " (" + strings.Join(params, " ") + ") " + block(fd.Body) + ")"
}

// FunctionCall
type FunctionCall struct {
	Token     token.Token // the function name
	Function  *Identifier
	Arguments []Expr
}

func (fc *FunctionCall) exprNode()            {}
func (fc *FunctionCall) TokenLiteral() string { return fc.Token.Lexeme }
func (fc *FunctionCall) String() string {
	return sexpr("call "+fc.Function.Name, fc.Arguments...)
}

// Return. Value is nil for a bare `return`.
type Return struct {
	Token token.Token // 'return'
	Value Expr
}

func (r *Return) exprNode()            {}
func (r *Return) TokenLiteral() string { return r.Token.Lexeme }
func (r *Return) String() string {
	if r.Value == nil {
		return "(return)"
	}
	return sexpr("return", r.Value)
}

// Break
type Break struct {
	Token token.Token // 'break'
}

func (b *Break) exprNode()            {}
func (b *Break) TokenLiteral() string { return b.Token.Lexeme }
func (b *Break) String() string       { return "(break)" }

// Continue
type Continue struct {
	Token token.Token // 'continue'
}

func (c *Continue) exprNode()            {}
func (c *Continue) TokenLiteral() string { return c.Token.Lexeme }
func (c *Continue) String() string       { return "(continue)" }

// Forward skips Count extra steps of the enclosing for loop. A bare
// `forward` has a literal Count of 1.
type Forward struct {
	Token token.Token // 'forward'
	Count Expr
}

func (f *Forward) exprNode()            {}
func (f *Forward) TokenLiteral() string { return f.Token.Lexeme }
func (f *Forward) String() string       { return sexpr("forward", f.Count) }

// With imports Module.Function from the host under Alias.
type With struct {
	Token    token.Token // 'with'
	Module   string
	Function string
	Alias    string
}

func (w *With) exprNode()            {}
func (w *With) TokenLiteral() string { return w.Token.Lexeme }
func (w *With) String() string {
	return "(with " + w.Module + "." + w.Function + " " + w.Alias + ")"
}

func sexpr(head string, args ...Expr) string {
	var out strings.Builder
	out.WriteString("(")
	out.WriteString(head)
	for _, a := range args {
		out.WriteString(" ")
		out.WriteString(a.String())
	}
	out.WriteString(")")
	return out.String()
}

func block(body []Expr) string {
	return sexpr("block", body...)
}
