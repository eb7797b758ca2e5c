package vm

import (
	"strconv"
	"strings"

	"github.com/zurustar/sketch/pkg/compiler/ast"
)

// Kind identifies the dynamic type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBoolean
	KindArray
	KindFunction
	KindForeign
)

var kindNames = map[Kind]string{
	KindNull:     "null",
	KindNumber:   "number",
	KindString:   "string",
	KindBoolean:  "boolean",
	KindArray:    "array",
	KindFunction: "function",
	KindForeign:  "foreign function",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Value is a Sketch runtime value. The set of implementations is closed:
// Number, String, Boolean, Null, *Array, *Function and *ForeignRef.
type Value interface {
	Kind() Kind
	// Text is the form print and string concatenation use.
	Text() string
	value()
}

// Number is the only numeric type.
type Number float64

// String is an immutable string value.
type String string

// Boolean
type Boolean bool

type nullValue struct{}

// Null is the single null value.
var Null Value = nullValue{}

func (Number) Kind() Kind    { return KindNumber }
func (String) Kind() Kind    { return KindString }
func (Boolean) Kind() Kind   { return KindBoolean }
func (nullValue) Kind() Kind { return KindNull }

func (n Number) Text() string    { return FormatNumber(float64(n)) }
func (s String) Text() string    { return string(s) }
func (b Boolean) Text() string   { return strconv.FormatBool(bool(b)) }
func (nullValue) Text() string   { return "null" }
func (Number) value()            {}
func (String) value()            {}
func (Boolean) value()           {}
func (nullValue) value()         {}
func (n Number) String() string  { return n.Text() }
func (s String) String() string  { return strconv.Quote(string(s)) }
func (b Boolean) String() string { return b.Text() }
func (nullValue) String() string { return "null" }

// Routine is an entry of the function namespace: a *Function or a
// *ForeignRef.
type Routine interface {
	Value
	routine()
}

// Function is a user-defined function. It captures no scope: names in its
// body resolve against the memory chain active at call time.
type Function struct {
	Name   string
	Params []string
	Body   []ast.Expr
}

func (f *Function) Kind() Kind     { return KindFunction }
func (f *Function) Text() string   { return "<fun " + f.Name + ">" }
func (f *Function) String() string { return f.Text() }
func (f *Function) value()         {}
func (f *Function) routine()       {}

// ForeignRef is a handle to a callable provided by the host through a
// Registry.
type ForeignRef struct {
	Module   string
	Function string
	Callable Callable
}

func (r *ForeignRef) Kind() Kind     { return KindForeign }
func (r *ForeignRef) Text() string   { return "<foreign " + r.Module + "." + r.Function + ">" }
func (r *ForeignRef) String() string { return r.Text() }
func (r *ForeignRef) value()         {}
func (r *ForeignRef) routine()       {}

// FormatNumber renders n without a trailing ".0" for whole numbers.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Equal implements == for Sketch values. Null is never equal to anything,
// itself included. Arrays, functions and foreign refs compare by identity.
func Equal(a, b Value) bool {
	if a.Kind() == KindNull || b.Kind() == KindNull {
		return false
	}
	switch a := a.(type) {
	case Number:
		b, ok := b.(Number)
		return ok && a == b
	case String:
		b, ok := b.(String)
		return ok && a == b
	case Boolean:
		b, ok := b.(Boolean)
		return ok && a == b
	case *Array:
		b, ok := b.(*Array)
		return ok && a == b
	case *Function:
		b, ok := b.(*Function)
		return ok && a == b
	case *ForeignRef:
		b, ok := b.(*ForeignRef)
		return ok && a == b
	}
	return false
}

// FromLiteral converts a parsed literal constant into a Value.
func FromLiteral(v any) Value {
	switch v := v.(type) {
	case float64:
		return Number(v)
	case string:
		return String(v)
	case bool:
		return Boolean(v)
	}
	return Null
}

// Concat joins the text forms of values.
func Concat(values ...Value) string {
	var sb strings.Builder
	for _, v := range values {
		sb.WriteString(v.Text())
	}
	return sb.String()
}
