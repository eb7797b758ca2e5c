// Package parser turns a token stream into the expression tree.
package parser

import (
	"fmt"

	"github.com/zurustar/sketch/pkg/compiler/ast"
	"github.com/zurustar/sketch/pkg/compiler/token"
)

// Precedence levels for operators.
// Everything arithmetic binds tighter than any comparison, and range,
// ternary and assignment bind loosest of all.
const (
	_ int = iota
	LOWEST
	ASSIGN      // =
	RANGE       // -> or <-
	TERNARY     // cond then a or b
	OR          // || or |
	AND         // && or &
	EQUALS      // == or !=
	LESSGREATER // > or <
	SUM         // +
	PRODUCT     // *
	PREFIX      // -X or !X
	INDEX       // array[index]
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:    ASSIGN,
	token.ARROW:     RANGE,
	token.BACKARROW: RANGE,
	token.THEN:      TERNARY,
	token.OR:        OR,
	token.BIT_OR:    OR,
	token.AND:       AND,
	token.BIT_AND:   AND,
	token.EQ:        EQUALS,
	token.NEQ:       EQUALS,
	token.LT:        LESSGREATER,
	token.LTE:       LESSGREATER,
	token.GT:        LESSGREATER,
	token.GTE:       LESSGREATER,
	token.PLUS:      SUM,
	token.MINUS:     SUM,
	token.STAR:      PRODUCT,
	token.SLASH:     PRODUCT,
	token.PERCENT:   PRODUCT,
	token.LBRACKET:  INDEX,
}

// ParseError reports the token the parser could not accept.
type ParseError struct {
	Token   token.Token
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Token.Type == token.EOF {
		return fmt.Sprintf("[line %d] Error at end: %s", e.Token.Line, e.Message)
	}
	return fmt.Sprintf("[line %d] Error at '%s': %s", e.Token.Line, e.Token.Lexeme, e.Message)
}

// Parser parses Sketch tokens into an AST.
// Parsing stops at the first error.
type Parser struct {
	tokens []token.Token
	pos    int // index of peekToken

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

type (
	prefixParseFn func() (ast.Expr, error)
	infixParseFn  func(ast.Expr) (ast.Expr, error)
)

// New creates a new Parser over tokens, which should end with an EOF token
// as produced by lexer.Scan.
func New(tokens []token.Token) *Parser {
	p := &Parser{tokens: tokens}

	// Register prefix parse functions
	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.NUMBER, p.parseLiteral)
	p.registerPrefix(token.STRING, p.parseLiteral)
	p.registerPrefix(token.TRUE, p.parseLiteral)
	p.registerPrefix(token.FALSE, p.parseLiteral)
	p.registerPrefix(token.NULL, p.parseLiteral)
	p.registerPrefix(token.THIS, p.parsePropertyAccess)
	p.registerPrefix(token.BANG, p.parsePrefixExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.INCREMENT, p.parsePrefixIncrement)
	p.registerPrefix(token.DECREMENT, p.parsePrefixIncrement)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.LBRACKET, p.parseArrayLiteral)

	// Register infix parse functions
	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for _, tt := range []token.TokenType{token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT} {
		p.registerInfix(tt, p.parseBinaryExpression)
	}
	for _, tt := range []token.TokenType{
		token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE,
		token.AND, token.OR, token.BIT_AND, token.BIT_OR,
	} {
		p.registerInfix(tt, p.parseLogicalExpression)
	}
	p.registerInfix(token.ARROW, p.parseRangeExpression)
	p.registerInfix(token.BACKARROW, p.parseRangeExpression)
	p.registerInfix(token.THEN, p.parseTernaryExpression)
	p.registerInfix(token.ASSIGN, p.parseAssignExpression)
	p.registerInfix(token.LBRACKET, p.parseIndexExpression)

	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()

	return p
}

// Parse is a convenience wrapper for New(tokens).ParseProgram().
func Parse(tokens []token.Token) (*ast.Program, error) {
	return New(tokens).ParseProgram()
}

// ParseProgram parses the entire program.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	exprs, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if !p.curTokenIs(token.EOF) {
		return nil, p.errorAt(p.curToken, "Unexpected '}'.")
	}
	return &ast.Program{Exprs: exprs}, nil
}

// parseStatements parses a statement list starting at curToken. It returns
// with curToken on the closing '}' or on EOF.
func (p *Parser) parseStatements() ([]ast.Expr, error) {
	exprs := []ast.Expr{}
	for {
		for p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		if p.curTokenIs(token.RBRACE) || p.curTokenIs(token.EOF) {
			return exprs, nil
		}

		expr, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)

		// A statement ending in a block needs no separator.
		if !endsWithBlock(expr) && !p.peekTokenIs(token.SEMICOLON) &&
			!p.peekTokenIs(token.RBRACE) && !p.peekTokenIs(token.EOF) {
			return nil, p.errorAt(p.peekToken, "Expected ';' after expression.")
		}
		p.nextToken()
	}
}

func endsWithBlock(expr ast.Expr) bool {
	switch expr.(type) {
	case *ast.If, *ast.While, *ast.For, *ast.Each, *ast.FunctionDecl:
		return true
	}
	return false
}

// parseStatement parses one statement. On return curToken is the last
// token of the statement.
func (p *Parser) parseStatement() (ast.Expr, error) {
	switch p.curToken.Type {
	case token.VAL, token.LEV:
		return p.parseValStatement()
	case token.FUN:
		return p.parseFunctionDecl()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.EACH:
		return p.parseEachStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.BREAK:
		return &ast.Break{Token: p.curToken}, nil
	case token.CONTINUE:
		return &ast.Continue{Token: p.curToken}, nil
	case token.FORWARD:
		return p.parseForwardStatement()
	case token.WITH:
		return p.parseWithStatement()
	default:
		return p.parseExpression(LOWEST)
	}
}

// parseValStatement parses `val x = e`, `lev x = e` and `val x`.
func (p *Parser) parseValStatement() (ast.Expr, error) {
	stmt := &ast.Val{Token: p.curToken, Define: true}

	if err := p.expectPeek(token.IDENT, "Expected variable name after '"+p.curToken.Lexeme+"'."); err != nil {
		return nil, err
	}
	stmt.Target = &ast.Identifier{Token: p.curToken, Name: p.curToken.Lexeme}

	if p.atStatementEnd() {
		return stmt, nil
	}
	if err := p.expectPeek(token.ASSIGN, "Expected '=' after variable name."); err != nil {
		return nil, err
	}
	p.nextToken()

	value, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	stmt.Value = value
	return stmt, nil
}

// parseFunctionDecl parses `fun name(a, b) { ... }`.
func (p *Parser) parseFunctionDecl() (ast.Expr, error) {
	decl := &ast.FunctionDecl{Token: p.curToken}

	if err := p.expectPeek(token.IDENT, "Expected function name after 'fun'."); err != nil {
		return nil, err
	}
	decl.Name = &ast.Identifier{Token: p.curToken, Name: p.curToken.Lexeme}

	if err := p.expectPeek(token.LPAREN, "Expected '(' after function name."); err != nil {
		return nil, err
	}
	params, err := p.parseFunctionParameters()
	if err != nil {
		return nil, err
	}
	decl.Params = params

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	decl.Body = body
	return decl, nil
}

func (p *Parser) parseFunctionParameters() ([]*ast.Identifier, error) {
	params := []*ast.Identifier{}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params, nil
	}

	seen := make(map[string]bool)
	for {
		if err := p.expectPeek(token.IDENT, "Expected parameter name."); err != nil {
			return nil, err
		}
		if seen[p.curToken.Lexeme] {
			return nil, p.errorAt(p.curToken, "Duplicate parameter name.")
		}
		seen[p.curToken.Lexeme] = true
		params = append(params, &ast.Identifier{Token: p.curToken, Name: p.curToken.Lexeme})

		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}

	if err := p.expectPeek(token.RPAREN, "Expected ')' after parameters."); err != nil {
		return nil, err
	}
	return params, nil
}

// parseIfStatement parses `if (cond) { ... } else { ... }`.
func (p *Parser) parseIfStatement() (ast.Expr, error) {
	stmt := &ast.If{Token: p.curToken}

	cond, err := p.parseCondition("if")
	if err != nil {
		return nil, err
	}
	stmt.Cond = cond

	if stmt.Then, err = p.parseBlock(); err != nil {
		return nil, err
	}

	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		if stmt.Else, err = p.parseBlock(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// parseWhileStatement parses `while (cond) { ... }`.
func (p *Parser) parseWhileStatement() (ast.Expr, error) {
	stmt := &ast.While{Token: p.curToken}

	cond, err := p.parseCondition("while")
	if err != nil {
		return nil, err
	}
	stmt.Cond = cond

	if stmt.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseForStatement parses `for i (a -> b) { ... }`.
func (p *Parser) parseForStatement() (ast.Expr, error) {
	stmt := &ast.For{Token: p.curToken}

	if err := p.expectPeek(token.IDENT, "Expected loop variable after 'for'."); err != nil {
		return nil, err
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Name: p.curToken.Lexeme}

	if err := p.expectPeek(token.LPAREN, "Expected '(' after loop variable."); err != nil {
		return nil, err
	}
	p.nextToken()
	rangeTok := p.curToken

	expr, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	r, ok := expr.(*ast.Range)
	if !ok {
		return nil, p.errorAt(rangeTok, "Expected a range with '->' or '<-'.")
	}
	stmt.Range = r

	if err := p.expectPeek(token.RPAREN, "Expected ')' after range."); err != nil {
		return nil, err
	}
	if stmt.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseEachStatement parses `each target -> element { ... }`.
func (p *Parser) parseEachStatement() (ast.Expr, error) {
	stmt := &ast.Each{Token: p.curToken}
	p.nextToken()

	// Parse above range precedence so that '->' is left for us.
	target, err := p.parseExpression(RANGE)
	if err != nil {
		return nil, err
	}
	stmt.Target = target

	if err := p.expectPeek(token.ARROW, "Expected '->' after each target."); err != nil {
		return nil, err
	}
	if err := p.expectPeek(token.IDENT, "Expected element name after '->'."); err != nil {
		return nil, err
	}
	stmt.Element = &ast.Identifier{Token: p.curToken, Name: p.curToken.Lexeme}

	if stmt.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseReturnStatement() (ast.Expr, error) {
	stmt := &ast.Return{Token: p.curToken}
	if p.atStatementEnd() {
		return stmt, nil
	}
	p.nextToken()

	value, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	stmt.Value = value
	return stmt, nil
}

func (p *Parser) parseForwardStatement() (ast.Expr, error) {
	stmt := &ast.Forward{Token: p.curToken}
	if p.atStatementEnd() {
		stmt.Count = &ast.Literal{Token: p.curToken, Value: 1.0}
		return stmt, nil
	}
	p.nextToken()

	count, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	stmt.Count = count
	return stmt, nil
}

// parseWithStatement parses `with module.function`, optionally followed by
// an alias with or without `as`.
func (p *Parser) parseWithStatement() (ast.Expr, error) {
	stmt := &ast.With{Token: p.curToken}

	if err := p.expectPeek(token.IDENT, "Expected module name after 'with'."); err != nil {
		return nil, err
	}
	stmt.Module = p.curToken.Lexeme
	if err := p.expectPeek(token.DOT, "Expected '.' after module name."); err != nil {
		return nil, err
	}
	if err := p.expectPeek(token.IDENT, "Expected function name after '.'."); err != nil {
		return nil, err
	}
	stmt.Function = p.curToken.Lexeme
	stmt.Alias = stmt.Function

	if p.atStatementEnd() {
		return stmt, nil
	}
	if err := p.expectPeek(token.IDENT, "Expected alias name."); err != nil {
		return nil, err
	}
	if p.curToken.Lexeme == "as" && p.peekTokenIs(token.IDENT) {
		p.nextToken()
	}
	stmt.Alias = p.curToken.Lexeme
	return stmt, nil
}

// parseCondition parses a parenthesized condition following keyword.
func (p *Parser) parseCondition(keyword string) (ast.Expr, error) {
	if err := p.expectPeek(token.LPAREN, "Expected '(' after '"+keyword+"'."); err != nil {
		return nil, err
	}
	p.nextToken()

	cond, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expectPeek(token.RPAREN, "Expected ')' after condition."); err != nil {
		return nil, err
	}
	return cond, nil
}

// parseBlock expects the next token to open a block and returns with
// curToken on the closing '}'.
func (p *Parser) parseBlock() ([]ast.Expr, error) {
	if err := p.expectPeek(token.LBRACE, "Expected '{'."); err != nil {
		return nil, err
	}
	p.nextToken()

	body, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if !p.curTokenIs(token.RBRACE) {
		return nil, p.errorAt(p.curToken, "Expected '}'.")
	}
	return body, nil
}

// parseExpression is the Pratt loop: parse a prefix form, then keep
// extending it while the next operator binds tighter than precedence.
func (p *Parser) parseExpression(precedence int) (ast.Expr, error) {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		return nil, p.errorAt(p.curToken, "Expected expression.")
	}
	left, err := prefix()
	if err != nil {
		return nil, err
	}

	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left, nil
		}
		p.nextToken()
		if left, err = infix(left); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseLiteral() (ast.Expr, error) {
	return &ast.Literal{Token: p.curToken, Value: p.curToken.Literal}, nil
}

// parseIdentifier parses a name, a call `name(args)` or a postfix
// `name++` / `name--`.
func (p *Parser) parseIdentifier() (ast.Expr, error) {
	ident := &ast.Identifier{Token: p.curToken, Name: p.curToken.Lexeme}

	switch {
	case p.peekTokenIs(token.LPAREN):
		p.nextToken()
		args, err := p.parseExpressionList(token.RPAREN)
		if err != nil {
			return nil, err
		}
		return &ast.FunctionCall{Token: ident.Token, Function: ident, Arguments: args}, nil
	case p.peekTokenIs(token.INCREMENT), p.peekTokenIs(token.DECREMENT):
		p.nextToken()
		return &ast.Increment{Token: p.curToken, Target: ident, Operator: p.curToken.Type}, nil
	case p.peekTokenIs(token.DOT):
		return nil, p.errorAt(p.peekToken, "Property access is only allowed on 'this'.")
	}
	return ident, nil
}

func (p *Parser) parsePropertyAccess() (ast.Expr, error) {
	pa := &ast.PropertyAccess{Token: p.curToken}
	if err := p.expectPeek(token.DOT, "Expected '.' after 'this'."); err != nil {
		return nil, err
	}
	if err := p.expectPeek(token.IDENT, "Expected property name after '.'."); err != nil {
		return nil, err
	}
	pa.Name = p.curToken.Lexeme
	return pa, nil
}

func (p *Parser) parsePrefixExpression() (ast.Expr, error) {
	expr := &ast.Unary{Token: p.curToken, Operator: p.curToken.Type}
	p.nextToken()

	operand, err := p.parseExpression(PREFIX)
	if err != nil {
		return nil, err
	}
	expr.Operand = operand
	return expr, nil
}

func (p *Parser) parsePrefixIncrement() (ast.Expr, error) {
	expr := &ast.Increment{Token: p.curToken, Operator: p.curToken.Type, Prefix: true}
	if err := p.expectPeek(token.IDENT, "Expected variable name after '"+p.curToken.Lexeme+"'."); err != nil {
		return nil, err
	}
	expr.Target = &ast.Identifier{Token: p.curToken, Name: p.curToken.Lexeme}
	return expr, nil
}

func (p *Parser) parseGroupedExpression() (ast.Expr, error) {
	p.nextToken()

	expr, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expectPeek(token.RPAREN, "Expected ')'."); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *Parser) parseArrayLiteral() (ast.Expr, error) {
	array := &ast.ArrayLiteral{Token: p.curToken}
	elements, err := p.parseExpressionList(token.RBRACKET)
	if err != nil {
		return nil, err
	}
	array.Elements = elements
	return array, nil
}

// parseExpressionList parses comma-separated expressions up to end. It is
// called with curToken on the opening delimiter.
func (p *Parser) parseExpressionList(end token.TokenType) ([]ast.Expr, error) {
	list := []ast.Expr{}

	if p.peekTokenIs(end) {
		p.nextToken()
		return list, nil
	}

	p.nextToken()
	expr, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	list = append(list, expr)

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		if expr, err = p.parseExpression(LOWEST); err != nil {
			return nil, err
		}
		list = append(list, expr)
	}

	if err := p.expectPeek(end, "Expected '"+end.String()+"'."); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *Parser) parseBinaryExpression(left ast.Expr) (ast.Expr, error) {
	expr := &ast.Binary{Token: p.curToken, Left: left, Operator: p.curToken.Type}

	precedence := p.curPrecedence()
	p.nextToken()
	right, err := p.parseExpression(precedence)
	if err != nil {
		return nil, err
	}
	expr.Right = right
	return expr, nil
}

func (p *Parser) parseLogicalExpression(left ast.Expr) (ast.Expr, error) {
	expr := &ast.Logical{Token: p.curToken, Left: left, Operator: p.curToken.Type}

	precedence := p.curPrecedence()
	p.nextToken()
	right, err := p.parseExpression(precedence)
	if err != nil {
		return nil, err
	}
	expr.Right = right
	return expr, nil
}

func (p *Parser) parseRangeExpression(left ast.Expr) (ast.Expr, error) {
	expr := &ast.Range{Token: p.curToken, From: left, Descending: p.curTokenIs(token.BACKARROW)}
	p.nextToken()

	to, err := p.parseExpression(RANGE)
	if err != nil {
		return nil, err
	}
	expr.To = to
	return expr, nil
}

// parseTernaryExpression parses `cond then a or b`. The else branch is
// right-associative so ternaries chain.
func (p *Parser) parseTernaryExpression(cond ast.Expr) (ast.Expr, error) {
	expr := &ast.Ternary{Token: p.curToken, Cond: cond}
	p.nextToken()

	then, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	expr.Then = then

	if err := p.expectPeek(token.ORELSE, "Expected 'or' in inline expression."); err != nil {
		return nil, err
	}
	p.nextToken()

	els, err := p.parseExpression(TERNARY - 1)
	if err != nil {
		return nil, err
	}
	expr.Else = els
	return expr, nil
}

// parseAssignExpression parses `target = value`. Assignment is
// right-associative.
func (p *Parser) parseAssignExpression(target ast.Expr) (ast.Expr, error) {
	switch target.(type) {
	case *ast.Identifier, *ast.PropertyAccess, *ast.ArrayAccess:
	default:
		return nil, p.errorAt(p.curToken, "Invalid assignment target.")
	}

	expr := &ast.Val{Token: p.curToken, Target: target}
	p.nextToken()

	value, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	expr.Value = value
	return expr, nil
}

func (p *Parser) parseIndexExpression(target ast.Expr) (ast.Expr, error) {
	expr := &ast.ArrayAccess{Token: p.curToken, Target: target}
	p.nextToken()

	index, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	expr.Index = index

	if err := p.expectPeek(token.RBRACKET, "Expected ']' after index."); err != nil {
		return nil, err
	}
	return expr, nil
}

// Helper methods

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	if p.pos < len(p.tokens) {
		p.peekToken = p.tokens[p.pos]
		p.pos++
		return
	}
	// Past the end: keep returning EOF on the last line.
	p.peekToken = token.Token{Type: token.EOF, Line: p.curToken.Line}
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

// atStatementEnd reports whether the statement ends after curToken.
func (p *Parser) atStatementEnd() bool {
	return p.peekTokenIs(token.SEMICOLON) || p.peekTokenIs(token.RBRACE) || p.peekTokenIs(token.EOF)
}

// expectPeek advances if the next token has type t and fails with message
// otherwise.
func (p *Parser) expectPeek(t token.TokenType, message string) error {
	if p.peekTokenIs(t) {
		p.nextToken()
		return nil
	}
	return p.errorAt(p.peekToken, message)
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) errorAt(tok token.Token, message string) *ParseError {
	return &ParseError{Token: tok, Message: message}
}
