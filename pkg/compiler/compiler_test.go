package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/zurustar/sketch/pkg/compiler/lexer"
	"github.com/zurustar/sketch/pkg/compiler/parser"
)

func TestCompile(t *testing.T) {
	source := `
	val total = 0;
	for i (1 -> 10) {
		total = total + i;
	}
	print(total);
	`
	program, err := Compile(source)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(program.Exprs) != 3 {
		t.Fatalf("expected 3 expressions, got %d", len(program.Exprs))
	}
	want := "(val total 0)\n(for i (-> 1 10) (block (set total (+ total i))))\n(call print total)\n"
	if got := program.String(); got != want {
		t.Errorf("program.String() =\n%s\nwant\n%s", got, want)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		phase  string
		line   int
		column int
	}{
		{"lexer error", "val a = 1;\nval b = @;", "lexer", 2, 9},
		{"unterminated string", "print(\"abc);", "lexer", 1, 7},
		{"parser error", "val a = 1;\nval b = 2;\n1 = a;", "parser", 3, 3},
		{"unexpected end", "fun f() {", "parser", 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.source)
			if err == nil {
				t.Fatal("expected error")
			}
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("error type = %T, want *CompileError", err)
			}
			if ce.Phase != tt.phase {
				t.Errorf("Phase = %q, want %q", ce.Phase, tt.phase)
			}
			if ce.Line != tt.line || ce.Column != tt.column {
				t.Errorf("location = %d:%d, want %d:%d", ce.Line, ce.Column, tt.line, tt.column)
			}
			if ce.Context == "" {
				t.Error("Context should not be empty")
			}
		})
	}
}

func TestCompileErrorUnwrap(t *testing.T) {
	_, err := Compile("#")
	var lexErr *lexer.LexError
	if !errors.As(err, &lexErr) {
		t.Errorf("errors.As(*lexer.LexError) failed for %T", err)
	}

	_, err = Compile("val;")
	var parseErr *parser.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("errors.As(*parser.ParseError) failed for %T", err)
	}
	if !strings.Contains(err.Error(), "(at ';')") {
		t.Errorf("Error() should name the token, got %q", err.Error())
	}
}

func TestTokenize(t *testing.T) {
	tokens, err := Tokenize("val x = 1;")
	if err != nil {
		t.Fatal(err)
	}
	want := "1:1 val val\n1:5 IDENT x\n1:7 = =\n1:9 NUMBER 1\n1:10 ; ;\n1:11 EOF \n"
	if got := DumpTokens(tokens); got != want {
		t.Errorf("DumpTokens() =\n%q\nwant\n%q", got, want)
	}
}
