// Package compiler provides the front-end pipeline for Sketch scripts.
// It transforms source code into an expression tree through two phases:
// 1. Lexer: Tokenization
// 2. Parser: AST generation
//
// The evaluator in pkg/vm walks the resulting tree directly.
package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zurustar/sketch/pkg/compiler/ast"
	"github.com/zurustar/sketch/pkg/compiler/lexer"
	"github.com/zurustar/sketch/pkg/compiler/parser"
	"github.com/zurustar/sketch/pkg/compiler/token"
)

// Compile compiles source code to an expression tree.
// It chains the lexer → parser pipeline and stops at the first error.
//
// Parameters:
//   - source: UTF-8 encoded source code string
//
// Returns:
//   - *ast.Program: The parsed program
//   - error: A *CompileError wrapping the lexer or parser error
func Compile(source string) (*ast.Program, error) {
	// Phase 1: Lexical analysis
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}

	// Phase 2: Syntax analysis
	program, err := parser.Parse(tokens)
	if err != nil {
		return nil, wrapError(err, source)
	}
	return program, nil
}

// Tokenize runs only the lexer.
func Tokenize(source string) ([]token.Token, error) {
	tokens, err := lexer.Scan(source)
	if err != nil {
		return nil, wrapError(err, source)
	}
	return tokens, nil
}

// DumpTokens renders one token per line as "line:column TYPE lexeme".
func DumpTokens(tokens []token.Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		fmt.Fprintf(&sb, "%d:%d %s %s\n", tok.Line, tok.Column, tok.Type, tok.Lexeme)
	}
	return sb.String()
}

// wrapError converts lexer and parser errors into a CompileError with source context.
func wrapError(err error, source string) error {
	var lexErr *lexer.LexError
	if errors.As(err, &lexErr) {
		ce := NewLexerErrorWithContext(lexErr.Message, lexErr.Line, lexErr.Column, source)
		ce.Err = err
		return ce
	}

	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		message := parseErr.Message
		if parseErr.Token.Type == token.EOF {
			message += " (at end of input)"
		} else {
			message += fmt.Sprintf(" (at '%s')", parseErr.Token.Lexeme)
		}
		ce := NewParserErrorWithContext(message, parseErr.Token.Line, parseErr.Token.Column, source)
		ce.Err = err
		return ce
	}

	return err
}
