package vm

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zurustar/sketch/pkg/compiler/token"
)

// MaxArraySize is the largest array the array native creates.
const MaxArraySize = 1 << 24

// NativeFunc is a built-in function. Natives are resolved before any user
// function or host import of the same name.
type NativeFunc func(e *Evaluator, tok token.Token, args []Value) (Value, error)

// RegisterNative registers a built-in function, replacing any native with
// the same name.
func (e *Evaluator) RegisterNative(name string, fn NativeFunc) {
	e.natives[name] = fn
}

// NativeNames returns the names of the registered natives, sorted.
func (e *Evaluator) NativeNames() []string {
	names := make([]string, 0, len(e.natives))
	for name := range e.natives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// registerNatives registers the reserved built-in functions.
func (e *Evaluator) registerNatives() {
	// print: each argument on its own line, arrays one element per line
	e.RegisterNative("print", func(e *Evaluator, tok token.Token, args []Value) (Value, error) {
		var sb strings.Builder
		for _, arg := range args {
			if arr, ok := arg.(*Array); ok {
				for _, el := range arr.elements {
					sb.WriteString(el.Text())
					sb.WriteByte('\n')
				}
				continue
			}
			sb.WriteString(arg.Text())
			sb.WriteByte('\n')
		}
		return Null, at(e.write(sb.String()), tok)
	})

	// printf: $name is replaced with the value bound to name
	e.RegisterNative("printf", func(e *Evaluator, tok token.Token, args []Value) (Value, error) {
		if len(args) != 1 {
			return nil, NewArityError(tok, "printf", 1, len(args))
		}
		template, ok := args[0].(String)
		if !ok {
			return nil, NewTypeMismatchError(tok, "printf needs a string, got %s", args[0].Kind())
		}
		text, err := e.interpolate(string(template))
		if err != nil {
			return nil, at(err, tok)
		}
		return Null, at(e.write(text+"\n"), tok)
	})

	e.RegisterNative("len", func(e *Evaluator, tok token.Token, args []Value) (Value, error) {
		if len(args) != 1 {
			return nil, NewArityError(tok, "len", 1, len(args))
		}
		switch v := args[0].(type) {
		case *Array:
			return Number(v.Len()), nil
		case String:
			return Number(utf8.RuneCountInString(string(v))), nil
		case Boolean:
			if v {
				return Number(1), nil
			}
			return Number(0), nil
		case Number:
			return v, nil
		case nullValue:
			return Number(0), nil
		}
		return nil, NewTypeMismatchError(tok, "len cannot be applied on %s", args[0].Kind())
	})

	e.RegisterNative("array", func(e *Evaluator, tok token.Token, args []Value) (Value, error) {
		if len(args) != 1 {
			return nil, NewArityError(tok, "array", 1, len(args))
		}
		n, ok := args[0].(Number)
		if !ok {
			return nil, NewTypeMismatchError(tok, "array needs a number, got %s", args[0].Kind())
		}
		f := float64(n)
		switch {
		case math.IsNaN(f) || math.IsInf(f, 0):
			return nil, NewRuntimeErrorAt(ErrorInvalidOperation, tok, "array size must be finite, got "+n.Text())
		case f < 0:
			return nil, NewRuntimeErrorAt(ErrorInvalidOperation, tok, "array size must not be negative, got "+n.Text())
		case f > MaxArraySize:
			return nil, NewRuntimeErrorAt(ErrorInvalidOperation, tok,
				fmt.Sprintf("array size %s exceeds the limit of %d", n.Text(), MaxArraySize))
		}
		return NewArray(int(f)), nil
	})

	e.RegisterNative("string", func(e *Evaluator, tok token.Token, args []Value) (Value, error) {
		return String(Concat(args...)), nil
	})

	e.RegisterNative("int", func(e *Evaluator, tok token.Token, args []Value) (Value, error) {
		if len(args) != 1 {
			return nil, NewArityError(tok, "int", 1, len(args))
		}
		if n, ok := args[0].(Number); ok {
			return n, nil
		}
		text := strings.TrimSpace(args[0].Text())
		if !isDecimal(text) {
			return nil, NewTypeMismatchError(tok, "Cannot convert %q to a number", text)
		}
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, NewTypeMismatchError(tok, "Cannot convert %q to a number", text)
		}
		return Number(n), nil
	})
}

// isDecimal reports whether s is a number literal as written in source,
// optionally negated: digits with an optional fraction.
func isDecimal(s string) bool {
	s = strings.TrimPrefix(s, "-")
	whole, frac, hasDot := strings.Cut(s, ".")
	if !allDigits(whole) {
		return false
	}
	return !hasDot || allDigits(frac)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// interpolate replaces every $name in template with the text of the value
// bound to name. A $ not followed by an identifier is kept.
func (e *Evaluator) interpolate(template string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '$' || i+1 >= len(template) || !isIdentStart(template[i+1]) {
			sb.WriteByte(c)
			continue
		}

		j := i + 1
		for j < len(template) && isIdentPart(template[j]) {
			j++
		}
		v, err := e.memory.GetVal(template[i+1 : j])
		if err != nil {
			return "", err
		}
		sb.WriteString(v.Text())
		i = j - 1
	}
	return sb.String(), nil
}

func isIdentStart(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || '0' <= c && c <= '9'
}
