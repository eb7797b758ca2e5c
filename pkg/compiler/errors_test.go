package compiler

import (
	"strings"
	"testing"
)

func TestCompileErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *CompileError
		expected string
	}{
		{
			name: "lexer error without context",
			err: &CompileError{
				Phase:   "lexer",
				Message: "Unexpected character '@'",
				Line:    5,
				Column:  10,
			},
			expected: "lexer error at line 5, column 10: Unexpected character '@'",
		},
		{
			name: "parser error with context",
			err: &CompileError{
				Phase:   "parser",
				Message: "Expected expression.",
				Line:    1,
				Column:  9,
				Context: "> 1 | val z = ;\n",
			},
			expected: "parser error at line 1, column 9: Expected expression.\n> 1 | val z = ;\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGenerateErrorContext(t *testing.T) {
	source := "val a = 1;\nval b = 2;\nval c = 3;\nval z = ;\nval w = 4;\nval v = 5;\nval u = 6;"

	got := GenerateErrorContext(source, 4, 9)
	want := "  2 | val b = 2;\n" +
		"  3 | val c = 3;\n" +
		"> 4 | val z = ;\n" +
		"    |         ^\n" +
		"  5 | val w = 4;\n" +
		"  6 | val v = 5;\n"
	if got != want {
		t.Errorf("GenerateErrorContext() =\n%s\nwant\n%s", got, want)
	}
}

func TestGenerateErrorContextEdges(t *testing.T) {
	tests := []struct {
		name   string
		source string
		line   int
		column int
		empty  bool
		lines  int
	}{
		{"empty source", "", 1, 1, true, 0},
		{"line zero", "x", 0, 1, true, 0},
		{"line past end", "x", 5, 1, true, 0},
		{"first line", "a\nb\nc\nd", 1, 1, false, 4},
		{"last line", "a\nb\nc\nd", 4, 1, false, 4},
		{"column zero", "abc", 1, 0, false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateErrorContext(tt.source, tt.line, tt.column)
			if tt.empty {
				if got != "" {
					t.Errorf("expected empty context, got %q", got)
				}
				return
			}
			if n := strings.Count(got, "\n"); n != tt.lines {
				t.Errorf("context has %d lines, want %d:\n%s", n, tt.lines, got)
			}
			if !strings.Contains(got, "^") {
				t.Errorf("context has no pointer:\n%s", got)
			}
		})
	}
}
