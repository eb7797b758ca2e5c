// Package lexer provides lexical analysis for Sketch scripts.
package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zurustar/sketch/pkg/compiler/token"
)

// LexError reports an invalid character or an unterminated string.
type LexError struct {
	Message string
	Line    int
	Column  int
}

// Error implements the error interface.
func (e *LexError) Error() string {
	return fmt.Sprintf("[line %d] %s", e.Line, e.Message)
}

// Lexer tokenizes Sketch source code.
type Lexer struct {
	input        string
	position     int  // current position in input
	readPosition int  // current reading position (after current char)
	ch           byte // current char
	line         int  // line of ch
	column       int  // column of ch
}

// New creates a new Lexer.
func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// Scan tokenizes the whole input. The returned slice always ends with an
// EOF token. The first lexical error aborts scanning.
func Scan(input string) ([]token.Token, error) {
	l := New(input)
	tokens := make([]token.Token, 0, len(input)/3+1)
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens, nil
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() (token.Token, error) {
	l.skipWhitespace()

	line, column := l.line, l.column
	var tok token.Token

	switch l.ch {
	case '+':
		tok = l.twoCharToken('+', token.INCREMENT, token.PLUS)
	case '-':
		switch l.peekChar() {
		case '-':
			tok = l.pairToken(token.DECREMENT)
		case '>':
			tok = l.pairToken(token.ARROW)
		default:
			tok = l.newToken(token.MINUS)
		}
	case '<':
		switch l.peekChar() {
		case '=':
			tok = l.pairToken(token.LTE)
		case '-':
			tok = l.pairToken(token.BACKARROW)
		default:
			tok = l.newToken(token.LT)
		}
	case '>':
		tok = l.twoCharToken('=', token.GTE, token.GT)
	case '=':
		tok = l.twoCharToken('=', token.EQ, token.ASSIGN)
	case '!':
		tok = l.twoCharToken('=', token.NEQ, token.BANG)
	case '&':
		tok = l.twoCharToken('&', token.AND, token.BIT_AND)
	case '|':
		tok = l.twoCharToken('|', token.OR, token.BIT_OR)
	case '*':
		tok = l.newToken(token.STAR)
	case '/':
		tok = l.newToken(token.SLASH)
	case '%':
		tok = l.newToken(token.PERCENT)
	case '(':
		tok = l.newToken(token.LPAREN)
	case ')':
		tok = l.newToken(token.RPAREN)
	case '{':
		tok = l.newToken(token.LBRACE)
	case '}':
		tok = l.newToken(token.RBRACE)
	case '[':
		tok = l.newToken(token.LBRACKET)
	case ']':
		tok = l.newToken(token.RBRACKET)
	case ',':
		tok = l.newToken(token.COMMA)
	case '.':
		tok = l.newToken(token.DOT)
	case ';':
		tok = l.newToken(token.SEMICOLON)
	case '"':
		return l.readString(line, column)
	case 0:
		if l.position >= len(l.input) {
			return token.Token{Type: token.EOF, Line: line, Column: column}, nil
		}
		return token.Token{}, l.errorf(line, column, "Unexpected character %q", l.ch)
	default:
		if isLetter(l.ch) {
			return l.readIdentifier(line, column), nil
		}
		if isDigit(l.ch) {
			return l.readNumber(line, column)
		}
		return token.Token{}, l.errorf(line, column, "Unexpected character %q", l.ch)
	}

	l.readChar()
	return tok, nil
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// twoCharToken emits long when the next character is second, short otherwise.
func (l *Lexer) twoCharToken(second byte, long, short token.TokenType) token.Token {
	if l.peekChar() == second {
		return l.pairToken(long)
	}
	return l.newToken(short)
}

// pairToken consumes the current character and emits a two-character token
// ending on the next one.
func (l *Lexer) pairToken(tokenType token.TokenType) token.Token {
	line, column := l.line, l.column
	start := l.position
	l.readChar()
	return token.Token{Type: tokenType, Lexeme: l.input[start : l.position+1], Line: line, Column: column}
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier(line, column int) token.Token {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	lexeme := l.input[position:l.position]
	tok := token.Token{Type: token.LookupIdent(lexeme), Lexeme: lexeme, Line: line, Column: column}
	switch tok.Type {
	case token.TRUE:
		tok.Literal = true
	case token.FALSE:
		tok.Literal = false
	}
	return tok
}

// readNumber reads a decimal number with an optional fractional part.
func (l *Lexer) readNumber(line, column int) (token.Token, error) {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // consume '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	lexeme := l.input[position:l.position]
	value, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		return token.Token{}, l.errorf(line, column, "Invalid number %q", lexeme)
	}
	return token.Token{Type: token.NUMBER, Lexeme: lexeme, Literal: value, Line: line, Column: column}, nil
}

// readString reads a string literal, processing escape sequences.
// Strings may span lines.
func (l *Lexer) readString(line, column int) (token.Token, error) {
	position := l.position
	var sb strings.Builder

	l.readChar() // consume opening quote
	for l.ch != '"' {
		if l.position >= len(l.input) {
			return token.Token{}, l.errorf(line, column, "Unterminated string.")
		}
		if l.ch != '\\' {
			sb.WriteByte(l.ch)
			l.readChar()
			continue
		}

		l.readChar() // consume backslash
		if l.position >= len(l.input) {
			return token.Token{}, l.errorf(line, column, "Unterminated string.")
		}
		switch l.ch {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 's':
			sb.WriteByte(' ')
		case '"', '\'', '\\':
			sb.WriteByte(l.ch)
		default:
			if !isOctal(l.ch) {
				return token.Token{}, l.errorf(l.line, l.column, "Invalid escape sequence \"\\%c\"", l.ch)
			}
			// Octal escape of up to three digits, at most \377.
			code := int(l.ch - '0')
			for i := 0; i < 2 && isOctal(l.peekChar()) && code*8+int(l.peekChar()-'0') <= 0377; i++ {
				l.readChar()
				code = code*8 + int(l.ch-'0')
			}
			sb.WriteByte(byte(code))
		}
		l.readChar()
	}
	l.readChar() // consume closing quote

	return token.Token{
		Type:    token.STRING,
		Lexeme:  l.input[position:l.position],
		Literal: sb.String(),
		Line:    line,
		Column:  column,
	}, nil
}

// skipWhitespace skips whitespace characters.
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// newToken creates a single-character token.
func (l *Lexer) newToken(tokenType token.TokenType) token.Token {
	return token.Token{Type: tokenType, Lexeme: string(l.ch), Line: l.line, Column: l.column}
}

func (l *Lexer) errorf(line, column int, format string, args ...any) *LexError {
	return &LexError{Message: fmt.Sprintf(format, args...), Line: line, Column: column}
}

// isLetter checks if a character may start an identifier.
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

// isDigit checks if a character is a digit.
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isOctal(ch byte) bool {
	return '0' <= ch && ch <= '7'
}
