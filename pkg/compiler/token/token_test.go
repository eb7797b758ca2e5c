package token

import "testing"

func TestTokenTypeString(t *testing.T) {
	tests := []struct {
		tokenType TokenType
		expected  string
	}{
		// Special tokens
		{ILLEGAL, "ILLEGAL"},
		{EOF, "EOF"},

		// Literals
		{IDENT, "IDENT"},
		{NUMBER, "NUMBER"},
		{STRING, "STRING"},

		// Operators
		{PLUS, "+"},
		{INCREMENT, "++"},
		{DECREMENT, "--"},
		{EQ, "=="},
		{NEQ, "!="},
		{AND, "&&"},
		{OR, "||"},
		{BIT_AND, "&"},
		{ARROW, "->"},
		{BACKARROW, "<-"},

		// Delimiters
		{LBRACKET, "["},
		{DOT, "."},
		{SEMICOLON, ";"},

		// Keywords
		{VAL, "val"},
		{LEV, "lev"},
		{ORELSE, "or"},
		{FORWARD, "forward"},
		{WITH, "with"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.tokenType.String(); got != tt.expected {
				t.Errorf("TokenType.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTokenTypeStringUnknown(t *testing.T) {
	unknownType := TokenType(9999)
	if got := unknownType.String(); got != "UNKNOWN" {
		t.Errorf("Unknown TokenType.String() = %q, want %q", got, "UNKNOWN")
	}
}

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		input    string
		expected TokenType
	}{
		{"val", VAL},
		{"fun", FUN},
		{"each", EACH},
		{"then", THEN},
		{"or", ORELSE},
		{"this", THIS},
		{"Val", IDENT}, // keywords are case-sensitive
		{"value", IDENT},
		{"as", IDENT},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := LookupIdent(tt.input); got != tt.expected {
				t.Errorf("LookupIdent(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTokenString(t *testing.T) {
	if got := (Token{Type: EOF}).String(); got != "end of input" {
		t.Errorf("EOF token String() = %q", got)
	}
	if got := (Token{Type: IDENT, Lexeme: "x"}).String(); got != `"x"` {
		t.Errorf("IDENT token String() = %q", got)
	}
}
