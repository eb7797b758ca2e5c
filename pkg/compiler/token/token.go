// Package token defines the lexical alphabet of Sketch scripts.
package token

import "fmt"

// TokenType represents the type of a token.
type TokenType int

// Token types
const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Literals
	IDENT  // identifier
	NUMBER // 12, 3.5
	STRING // "abc"

	// Operators
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	PERCENT   // %
	INCREMENT // ++
	DECREMENT // --
	ASSIGN    // =
	EQ        // ==
	NEQ       // !=
	LT        // <
	GT        // >
	LTE       // <=
	GTE       // >=
	AND       // &&
	OR        // ||
	BIT_AND   // &
	BIT_OR    // |
	BANG      // !
	ARROW     // ->
	BACKARROW // <-

	// Delimiters
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	LBRACKET  // [
	RBRACKET  // ]
	COMMA     // ,
	DOT       // .
	SEMICOLON // ;

	// Keywords
	TRUE     // true
	FALSE    // false
	NULL     // null
	THIS     // this
	VAL      // val
	LEV      // lev
	FUN      // fun
	IF       // if
	ELSE     // else
	THEN     // then
	ORELSE   // or (inline ternary)
	FOR      // for
	WHILE    // while
	EACH     // each
	RETURN   // return
	BREAK    // break
	CONTINUE // continue
	FORWARD  // forward
	WITH     // with
)

// Token represents a lexical token.
// Literal carries the decoded constant for NUMBER (float64), STRING (string)
// and TRUE/FALSE (bool) tokens and is nil otherwise.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal any
	Line    int
	Column  int
}

// String renders the token the way error messages quote it.
func (t Token) String() string {
	if t.Type == EOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.Lexeme)
}

// Is reports whether the token is one of the given types.
func (t Token) Is(types ...TokenType) bool {
	for _, tt := range types {
		if t.Type == tt {
			return true
		}
	}
	return false
}

var tokenTypeNames = map[TokenType]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",

	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	INCREMENT: "++",
	DECREMENT: "--",
	ASSIGN:    "=",
	EQ:        "==",
	NEQ:       "!=",
	LT:        "<",
	GT:        ">",
	LTE:       "<=",
	GTE:       ">=",
	AND:       "&&",
	OR:        "||",
	BIT_AND:   "&",
	BIT_OR:    "|",
	BANG:      "!",
	ARROW:     "->",
	BACKARROW: "<-",

	LPAREN:    "(",
	RPAREN:    ")",
	LBRACE:    "{",
	RBRACE:    "}",
	LBRACKET:  "[",
	RBRACKET:  "]",
	COMMA:     ",",
	DOT:       ".",
	SEMICOLON: ";",

	TRUE:     "true",
	FALSE:    "false",
	NULL:     "null",
	THIS:     "this",
	VAL:      "val",
	LEV:      "lev",
	FUN:      "fun",
	IF:       "if",
	ELSE:     "else",
	THEN:     "then",
	ORELSE:   "or",
	FOR:      "for",
	WHILE:    "while",
	EACH:     "each",
	RETURN:   "return",
	BREAK:    "break",
	CONTINUE: "continue",
	FORWARD:  "forward",
	WITH:     "with",
}

// String returns a string representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// keywords maps keyword spellings to their TokenType. Keywords are case-sensitive.
var keywords = map[string]TokenType{
	"true":     TRUE,
	"false":    FALSE,
	"null":     NULL,
	"this":     THIS,
	"val":      VAL,
	"lev":      LEV,
	"fun":      FUN,
	"if":       IF,
	"else":     ELSE,
	"then":     THEN,
	"or":       ORELSE,
	"for":      FOR,
	"while":    WHILE,
	"each":     EACH,
	"return":   RETURN,
	"break":    BREAK,
	"continue": CONTINUE,
	"forward":  FORWARD,
	"with":     WITH,
}

// LookupIdent checks if the given identifier is a keyword.
// If it is, it returns the corresponding TokenType, otherwise IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
