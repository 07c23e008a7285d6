// Package parser implements a Pratt (precedence-climbing) parser over the
// lexer's token stream, producing the AST the compiler consumes. Out of
// the CORE per the spec (§1) — an external collaborator with a stated
// node-shape contract (pkg/ast) — but implemented in full so the pipeline
// runs end to end.
package parser

import (
	"strconv"

	"xray/pkg/ast"
	"xray/pkg/lexer"
	"xray/pkg/xerr"
)

const (
	_ int = iota
	LOWEST
	LOGICAL_OR
	LOGICAL_AND
	EQUALS      // == !=
	LESSGREATER // > < >= <=
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -x !x
	CALL        // f(x)
	INDEX       // a[i]
)

var precedences = map[lexer.TokenType]int{
	lexer.LOGICAL_OR:  LOGICAL_OR,
	lexer.LOGICAL_AND: LOGICAL_AND,
	lexer.EQ:          EQUALS,
	lexer.NOT_EQ:      EQUALS,
	lexer.LT:          LESSGREATER,
	lexer.GT:          LESSGREATER,
	lexer.LE:          LESSGREATER,
	lexer.GE:          LESSGREATER,
	lexer.PLUS:        SUM,
	lexer.MINUS:       SUM,
	lexer.ASTERISK:    PRODUCT,
	lexer.SLASH:       PRODUCT,
	lexer.PERCENT:     PRODUCT,
	lexer.LPAREN:      CALL,
	lexer.LBRACKET:    INDEX,
}

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

// Parser turns a lexer's token stream into an *ast.Program.
type Parser struct {
	l *lexer.Lexer

	curToken  lexer.Token
	peekToken lexer.Token

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn

	Errors    []*xerr.Error
	panicMode bool
}

// New constructs a Parser over the given lexer and primes the two-token
// lookahead window.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.INT, p.parseIntLiteral)
	p.registerPrefix(lexer.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.TRUE, p.parseBoolLiteral)
	p.registerPrefix(lexer.FALSE, p.parseBoolLiteral)
	p.registerPrefix(lexer.NULLTOK, p.parseNullLiteral)
	p.registerPrefix(lexer.BANG, p.parsePrefixExpr)
	p.registerPrefix(lexer.MINUS, p.parsePrefixExpr)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedExpr)
	p.registerPrefix(lexer.LBRACKET, p.parseArrayLiteral)
	p.registerPrefix(lexer.FUNCTION, p.parseFunctionLiteral)

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	for _, tt := range []lexer.TokenType{
		lexer.PLUS, lexer.MINUS, lexer.ASTERISK, lexer.SLASH, lexer.PERCENT,
		lexer.EQ, lexer.NOT_EQ, lexer.LT, lexer.GT, lexer.LE, lexer.GE,
		lexer.LOGICAL_AND, lexer.LOGICAL_OR,
	} {
		p.registerInfix(tt, p.parseInfixExpr)
	}
	p.registerInfix(lexer.LPAREN, p.parseCallExpr)
	p.registerInfix(lexer.LBRACKET, p.parseIndexExpr)

	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) registerPrefix(tt lexer.TokenType, fn prefixParseFn) { p.prefixParseFns[tt] = fn }
func (p *Parser) registerInfix(tt lexer.TokenType, fn infixParseFn)   { p.infixParseFns[tt] = fn }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curIs(tt lexer.TokenType) bool  { return p.curToken.Type == tt }
func (p *Parser) peekIs(tt lexer.TokenType) bool { return p.peekToken.Type == tt }

func (p *Parser) expectPeek(tt lexer.TokenType) bool {
	if p.peekIs(tt) {
		p.nextToken()
		return true
	}
	p.errorf("expected next token to be %s, got %s instead", tt, p.peekToken.Type)
	return false
}

func (p *Parser) errorf(format string, args ...interface{}) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.Errors = append(p.Errors, xerr.New(xerr.Syntactic, p.curToken.Line, format, args...))
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

// ParseProgram parses the whole token stream into a Program, recovering at
// statement boundaries per the §4.2 panic-mode discipline.
func (p *Parser) ParseProgram() *ast.Program {
	line := p.curToken.Line
	var stmts []ast.Stmt
	for !p.curIs(lexer.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		if p.panicMode {
			p.synchronize()
		}
		p.nextToken()
	}
	return ast.NewProgram(line, stmts)
}

// synchronize skips tokens until a statement boundary, the same recovery
// strategy §4.2 specifies for the compiler's own panic mode.
func (p *Parser) synchronize() {
	p.panicMode = false
	for !p.curIs(lexer.EOF) {
		if p.curIs(lexer.SEMICOLON) {
			return
		}
		switch p.peekToken.Type {
		case lexer.FUNCTION, lexer.LET, lexer.CONST, lexer.IF, lexer.WHILE, lexer.FOR, lexer.RETURN, lexer.PRINT, lexer.RBRACE:
			return
		}
		p.nextToken()
	}
}

func (p *Parser) parseStatement() ast.Stmt {
	switch p.curToken.Type {
	case lexer.LET:
		return p.parseLetStmt(false)
	case lexer.CONST:
		return p.parseLetStmt(true)
	case lexer.IF:
		return p.parseIfStmt()
	case lexer.WHILE:
		return p.parseWhileStmt()
	case lexer.FOR:
		return p.parseForStmt()
	case lexer.BREAK:
		stmt := ast.NewBreakStmt(p.curToken.Line)
		p.skipOptionalSemicolon()
		return stmt
	case lexer.CONTINUE:
		stmt := ast.NewContinueStmt(p.curToken.Line)
		p.skipOptionalSemicolon()
		return stmt
	case lexer.RETURN:
		return p.parseReturnStmt()
	case lexer.FUNCTION:
		return p.parseFunctionDecl()
	case lexer.PRINT:
		return p.parsePrintStmt()
	case lexer.LBRACE:
		return p.parseBlockStmt()
	default:
		return p.parseExprOrAssignStmt()
	}
}

// skipOptionalSemicolon consumes a trailing ';' if present; §6.2 makes
// semicolons optional except inside a for-header.
func (p *Parser) skipOptionalSemicolon() {
	if p.peekIs(lexer.SEMICOLON) {
		p.nextToken()
	}
}

func (p *Parser) parseLetStmt(isConst bool) ast.Stmt {
	line := p.curToken.Line
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	name := p.curToken.Literal
	if !p.expectPeek(lexer.ASSIGN) {
		return nil
	}
	p.nextToken()
	value := p.parseExpression(LOWEST)
	p.skipOptionalSemicolon()
	return ast.NewLetStmt(line, name, isConst, value)
}

func (p *Parser) parsePrintStmt() ast.Stmt {
	line := p.curToken.Line
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	value := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	p.skipOptionalSemicolon()
	return ast.NewPrintStmt(line, value)
}

func (p *Parser) parseBlockStmt() *ast.BlockStmt {
	line := p.curToken.Line
	var stmts []ast.Stmt
	p.nextToken()
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		if p.panicMode {
			p.synchronize()
		}
		p.nextToken()
	}
	return ast.NewBlockStmt(line, stmts)
}

func (p *Parser) parseIfStmt() ast.Stmt {
	line := p.curToken.Line
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	then := p.parseBlockStmt()

	var els *ast.BlockStmt
	if p.peekIs(lexer.ELSE) {
		p.nextToken()
		if p.peekIs(lexer.IF) {
			p.nextToken()
			// Desugar `else if` into `else { if ... }`.
			elsIf := p.parseIfStmt()
			els = ast.NewBlockStmt(elsIf.Line(), []ast.Stmt{elsIf})
		} else if p.expectPeek(lexer.LBRACE) {
			els = p.parseBlockStmt()
		}
	}
	return ast.NewIfStmt(line, cond, then, els)
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	line := p.curToken.Line
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	body := p.parseBlockStmt()
	return ast.NewWhileStmt(line, cond, body)
}

func (p *Parser) parseForStmt() ast.Stmt {
	line := p.curToken.Line
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}

	var init ast.Stmt
	p.nextToken()
	if !p.curIs(lexer.SEMICOLON) {
		if p.curIs(lexer.LET) || p.curIs(lexer.CONST) {
			init = p.parseLetStmtNoSemi(p.curIs(lexer.CONST))
		} else {
			init = p.parseExprOrAssignStmtNoSemi()
		}
		if !p.expectPeek(lexer.SEMICOLON) {
			return nil
		}
	}

	var cond ast.Expr
	p.nextToken()
	if !p.curIs(lexer.SEMICOLON) {
		cond = p.parseExpression(LOWEST)
		if !p.expectPeek(lexer.SEMICOLON) {
			return nil
		}
	}

	var incr ast.Stmt
	p.nextToken()
	if !p.curIs(lexer.RPAREN) {
		incr = p.parseExprOrAssignStmtNoSemi()
		if !p.expectPeek(lexer.RPAREN) {
			return nil
		}
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	body := p.parseBlockStmt()
	return ast.NewForStmt(line, init, cond, incr, body)
}

// parseLetStmtNoSemi and parseExprOrAssignStmtNoSemi exist because a
// for-header's clauses are terminated by ';' or ')', never by an optional
// semicolon the statement itself consumes.
func (p *Parser) parseLetStmtNoSemi(isConst bool) ast.Stmt {
	line := p.curToken.Line
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	name := p.curToken.Literal
	if !p.expectPeek(lexer.ASSIGN) {
		return nil
	}
	p.nextToken()
	value := p.parseExpression(LOWEST)
	return ast.NewLetStmt(line, name, isConst, value)
}

func (p *Parser) parseExprOrAssignStmtNoSemi() ast.Stmt {
	line := p.curToken.Line
	expr := p.parseExpression(LOWEST)
	if p.peekIs(lexer.ASSIGN) {
		p.nextToken()
		p.nextToken()
		value := p.parseExpression(LOWEST)
		return ast.NewAssignStmt(line, expr, value)
	}
	return ast.NewExprStmt(line, expr)
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	line := p.curToken.Line
	if p.peekIs(lexer.SEMICOLON) || p.peekIs(lexer.RBRACE) {
		p.skipOptionalSemicolon()
		return ast.NewReturnStmt(line, nil)
	}
	p.nextToken()
	value := p.parseExpression(LOWEST)
	p.skipOptionalSemicolon()
	return ast.NewReturnStmt(line, value)
}

func (p *Parser) parseFunctionDecl() ast.Stmt {
	line := p.curToken.Line
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	name := p.curToken.Literal
	params := p.parseParamList()
	if params == nil && !p.curIs(lexer.RPAREN) {
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	body := p.parseBlockStmt()
	return ast.NewFunctionDecl(line, name, params, body)
}

func (p *Parser) parseParamList() []string {
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	var params []string
	if p.peekIs(lexer.RPAREN) {
		p.nextToken()
		return params
	}
	p.nextToken()
	params = append(params, p.curToken.Literal)
	for p.peekIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		params = append(params, p.curToken.Literal)
	}
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return params
}

func (p *Parser) parseExprOrAssignStmt() ast.Stmt {
	line := p.curToken.Line
	expr := p.parseExpression(LOWEST)
	if p.peekIs(lexer.ASSIGN) {
		p.nextToken()
		p.nextToken()
		value := p.parseExpression(LOWEST)
		p.skipOptionalSemicolon()
		return ast.NewAssignStmt(line, expr, value)
	}
	p.skipOptionalSemicolon()
	return ast.NewExprStmt(line, expr)
}

// ---- Expressions ----

func (p *Parser) parseExpression(precedence int) ast.Expr {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorf("no prefix parse function for %s found", p.curToken.Type)
		return nil
	}
	leftExp := prefix()

	for !p.peekIs(lexer.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}
	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expr {
	return ast.NewIdentifier(p.curToken.Line, p.curToken.Literal)
}

func (p *Parser) parseIntLiteral() ast.Expr {
	line := p.curToken.Line
	v, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		p.errorf("could not parse %q as integer", p.curToken.Literal)
		return nil
	}
	return ast.NewIntLit(line, v)
}

func (p *Parser) parseFloatLiteral() ast.Expr {
	line := p.curToken.Line
	v, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf("could not parse %q as float", p.curToken.Literal)
		return nil
	}
	return ast.NewFloatLit(line, v)
}

func (p *Parser) parseStringLiteral() ast.Expr {
	return ast.NewStringLit(p.curToken.Line, p.curToken.Literal)
}

func (p *Parser) parseBoolLiteral() ast.Expr {
	return ast.NewBoolLit(p.curToken.Line, p.curIs(lexer.TRUE))
}

func (p *Parser) parseNullLiteral() ast.Expr {
	return ast.NewNullLit(p.curToken.Line)
}

func (p *Parser) parsePrefixExpr() ast.Expr {
	line := p.curToken.Line
	op := p.curToken.Literal
	p.nextToken()
	right := p.parseExpression(PREFIX)
	return ast.NewUnaryExpr(line, op, right)
}

func (p *Parser) parseInfixExpr(left ast.Expr) ast.Expr {
	line := p.curToken.Line
	op := p.curToken.Literal
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	return ast.NewBinaryExpr(line, op, left, right)
}

func (p *Parser) parseGroupedExpr() ast.Expr {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseArrayLiteral() ast.Expr {
	line := p.curToken.Line
	elems := p.parseExprList(lexer.RBRACKET)
	return ast.NewArrayLit(line, elems)
}

func (p *Parser) parseExprList(end lexer.TokenType) []ast.Expr {
	var list []ast.Expr
	if p.peekIs(end) {
		p.nextToken()
		return list
	}
	p.nextToken()
	list = append(list, p.parseExpression(LOWEST))
	for p.peekIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
	}
	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) parseIndexExpr(left ast.Expr) ast.Expr {
	line := p.curToken.Line
	p.nextToken()
	index := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RBRACKET) {
		return nil
	}
	return ast.NewIndexExpr(line, left, index)
}

func (p *Parser) parseCallExpr(callee ast.Expr) ast.Expr {
	line := p.curToken.Line
	args := p.parseExprList(lexer.RPAREN)
	return ast.NewCallExpr(line, callee, args)
}

func (p *Parser) parseFunctionLiteral() ast.Expr {
	line := p.curToken.Line
	name := ""
	if p.peekIs(lexer.IDENT) {
		p.nextToken()
		name = p.curToken.Literal
	}
	params := p.parseParamList()
	if params == nil && !p.curIs(lexer.RPAREN) {
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	body := p.parseBlockStmt()
	return ast.NewFunctionLit(line, name, params, body)
}
