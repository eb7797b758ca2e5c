package vm

import (
	"errors"
	"strings"
	"testing"

	"github.com/zurustar/sketch/pkg/compiler/token"
)

func TestRuntimeError_Error(t *testing.T) {
	tok := token.Token{Type: token.IDENT, Lexeme: "x", Line: 42}

	tests := []struct {
		name     string
		err      *RuntimeError
		contains []string
	}{
		{
			name:     "basic error",
			err:      NewRuntimeError(ErrorInvalidOperation, "bad thing"),
			contains: []string{"INVALID_OPERATION", "bad thing"},
		},
		{
			name:     "error with token",
			err:      NewRuntimeErrorAt(ErrorIndexOutOfRange, tok, "index out of range"),
			contains: []string{"INDEX_OUT_OF_RANGE", "index out of range", "line 42"},
		},
		{
			name:     "undefined variable",
			err:      NewUndefinedVariableError("count"),
			contains: []string{"UNDEFINED_VARIABLE", `"count"`},
		},
		{
			name:     "redefined name",
			err:      NewRedefinedError("global", "x"),
			contains: []string{"REDEFINED_NAME", "[global]", `"x"`},
		},
		{
			name:     "arity",
			err:      NewArityError(tok, "add", 2, 3),
			contains: []string{"ARITY_MISMATCH", "add", "2", "3"},
		},
		{
			name:     "stack overflow",
			err:      NewStackOverflowError(tok, 11, 10),
			contains: []string{"STACK_OVERFLOW", "11", "10"},
		},
		{
			name:     "signal escaped",
			err:      NewSignalEscapedError(tok, "break"),
			contains: []string{"SIGNAL_ESCAPED", "break"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(errStr, s) {
					t.Errorf("error string %q should contain %q", errStr, s)
				}
			}
		})
	}
}

func TestRuntimeError_Line(t *testing.T) {
	if got := NewRuntimeError(ErrorIO, "x").Line(); got != -1 {
		t.Errorf("Line() = %d, want -1", got)
	}
	tok := token.Token{Line: 7}
	if got := NewRuntimeErrorAt(ErrorIO, tok, "x").Line(); got != 7 {
		t.Errorf("Line() = %d, want 7", got)
	}
}

func TestOperatorError(t *testing.T) {
	tok := token.Token{Type: token.MINUS, Lexeme: "-", Line: 1}

	t.Run("binary", func(t *testing.T) {
		err := NewOperatorError(tok, Number(1), String("a"))
		want := "Operator '-' cannot be applied on number and string"
		if err.Message != want {
			t.Errorf("Message = %q, want %q", err.Message, want)
		}
		if err.Type != ErrorTypeMismatch {
			t.Errorf("Type = %v, want %v", err.Type, ErrorTypeMismatch)
		}
	})

	t.Run("unary", func(t *testing.T) {
		err := NewOperatorError(tok, Boolean(true))
		want := "Operator '-' cannot be applied on boolean"
		if err.Message != want {
			t.Errorf("Message = %q, want %q", err.Message, want)
		}
	})
}

func TestAtAttachesTokenOnce(t *testing.T) {
	first := token.Token{Line: 3}
	second := token.Token{Line: 9}

	err := at(NewUndefinedVariableError("x"), first)
	err = at(err, second)

	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if re.Line() != 3 {
		t.Errorf("Line() = %d, want 3", re.Line())
	}

	if at(nil, first) != nil {
		t.Error("at(nil) should stay nil")
	}
}

func TestIOErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewIOError(cause)
	if !errors.Is(err, cause) {
		t.Error("expected the write error to be reachable through Unwrap")
	}
	if err.Type != ErrorIO {
		t.Errorf("Type = %v, want %v", err.Type, ErrorIO)
	}
}
