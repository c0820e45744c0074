// parser.go — recursive-descent parser for Lox.
//
// OVERVIEW
// --------
// The parser consumes the token slice produced by lexer.go strictly left to
// right with one token of lookahead and builds the statement/expression trees
// declared in ast.go. Binary operators are parsed by precedence climbing with
// an iterative left fold, so every binary level is left-associative.
//
// Grammar (lowest to highest precedence):
//
//	program     := declaration* EOF
//	declaration := varDecl | funDecl | statement
//	varDecl     := "var" ID "=" expression ";"
//	funDecl     := "fun" ID "(" params? ")" block
//	statement   := ifStmt | whileStmt | forStmt | printStmt | breakStmt
//	             | block | exprStmt
//	expression  := assignment
//	assignment  := logic_or ( "=" assignment )?
//	logic_or    := logic_and ( "or" logic_and )*
//	logic_and   := equality ( "and" equality )*
//	equality    := comparison ( ( "!=" | "==" ) comparison )*
//	comparison  := term ( ( ">" | ">=" | "<" | "<=" ) term )*
//	term        := factor ( ( "-" | "+" ) factor )*
//	factor      := unary ( ( "/" | "*" ) unary )*
//	unary       := ( "!" | "-" ) unary | call
//	call        := primary ( "(" arguments? ")" )*
//	primary     := NUMBER | STRING | "true" | "false" | "nil" | ID
//	             | "(" expression ")"
//
// "for" loops are desugared here into a block holding the initializer and a
// while loop whose body runs the original body followed by the increment.
//
// Errors
// ------
// A parse error inside a top-level declaration abandons that declaration; the
// parser then skips to the next statement boundary and keeps going so that one
// typo does not hide later diagnostics. Any error still fails the parse as a
// whole: the returned error joins every *ParseError in source order.
//
// Interactive mode (ParseInteractive) marks errors raised at EOF as
// Incomplete so a REPL can ask for another line instead of reporting.
package lox

import (
	"errors"
	"fmt"
	"io"
)

// maxArgs caps both argument and parameter lists.
const maxArgs = 255

////////////////////////////////////////////////////////////////////////////////
//                                  PUBLIC API
////////////////////////////////////////////////////////////////////////////////

// ParseError is a syntax error located at the offending token.
type ParseError struct {
	Line       int
	Col        int
	Near       string // lexeme of the offending token; empty at EOF
	Msg        string
	Incomplete bool // raised at EOF in interactive mode
}

func (e *ParseError) Error() string {
	where := "at end"
	if e.Near != "" {
		where = fmt.Sprintf("near '%s'", e.Near)
	}
	return fmt.Sprintf("PARSE ERROR at %d:%d %s: %s", e.Line, e.Col+1, where, e.Msg)
}

// IsIncomplete reports whether err only contains parse errors raised because
// the input ended early (interactive mode).
func IsIncomplete(err error) bool {
	if err == nil {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs := joined.Unwrap()
		if len(errs) == 0 {
			return false
		}
		for _, e := range errs {
			if !IsIncomplete(e) {
				return false
			}
		}
		return true
	}
	var pe *ParseError
	return errors.As(err, &pe) && pe.Incomplete
}

// ScanAndParse scans and parses a complete source string.
//
// Lexical diagnostics are written to diag, one per line, and never fail the
// call (nil discards them). Parse errors fail it.
func ScanAndParse(src string, diag io.Writer) ([]Stmt, error) {
	toks, lexErr := NewLexer(src).Scan()
	reportLexErrors(diag, lexErr)
	return Parse(toks)
}

// Parse builds a program from an already scanned token slice.
func Parse(toks []Token) ([]Stmt, error) {
	p := &parser{toks: toks}
	return p.program()
}

// ParseInteractive parses in REPL-friendly mode. Lexical diagnostics are
// dropped; use IsIncomplete on the error to detect unterminated input.
func ParseInteractive(src string) ([]Stmt, error) {
	toks, _ := NewLexer(src).Scan()
	p := &parser{toks: toks, interactive: true}
	return p.program()
}

//// END_OF_PUBLIC

////////////////////////////////////////////////////////////////////////////////
///////////////////////////// PRIVATE IMPLEMENTATION ///////////////////////////
////////////////////////////////////////////////////////////////////////////////

type parser struct {
	toks        []Token
	i           int
	interactive bool
	loopDepth   int
	funDepth    int
	errs        []error
}

func reportLexErrors(w io.Writer, err error) {
	if w == nil || err == nil {
		return
	}
	for _, e := range flattenErrors(err) {
		fmt.Fprintln(w, e.Error())
	}
}

// ─────────────────────────── token basics & helpers ─────────────────────────

func (p *parser) atEnd() bool { return p.peek().Type == EOF }
func (p *parser) peek() Token {
	if p.i >= len(p.toks) {
		if len(p.toks) == 0 {
			return Token{Type: EOF, Line: 1}
		}
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i]
}
func (p *parser) prev() Token { return p.toks[p.i-1] }

func (p *parser) advance() Token {
	if !p.atEnd() {
		p.i++
	}
	return p.prev()
}

func (p *parser) check(t TokenType) bool { return p.peek().Type == t }

func (p *parser) match(tt ...TokenType) bool {
	if p.atEnd() {
		return false
	}
	for _, t := range tt {
		if p.peek().Type == t {
			p.i++
			return true
		}
	}
	return false
}

func (p *parser) need(t TokenType, msg string) (Token, error) {
	if p.match(t) {
		return p.prev(), nil
	}
	return Token{}, p.errAt(p.peek(), msg)
}

func (p *parser) errAt(tok Token, msg string) *ParseError {
	e := &ParseError{Line: tok.Line, Col: tok.Col, Near: tok.Lexeme, Msg: msg}
	if tok.Type == EOF {
		e.Near = ""
		e.Incomplete = p.interactive
	}
	return e
}

// synchronize discards tokens until just past a ';' or right before a token
// that starts a statement.
func (p *parser) synchronize() {
	p.advance()
	for !p.atEnd() {
		if p.prev().Type == SEMICOLON {
			return
		}
		switch p.peek().Type {
		case FUNCTION, VAR, FOR, IF, WHILE, PRINT, BREAK, RETURN:
			return
		}
		p.advance()
	}
}

// ─────────────────────────────── statements ────────────────────────────────

func (p *parser) program() ([]Stmt, error) {
	var stmts []Stmt
	for !p.atEnd() {
		p.loopDepth, p.funDepth = 0, 0
		s, err := p.declaration()
		if err != nil {
			p.errs = append(p.errs, err)
			if p.atEnd() {
				break
			}
			p.synchronize()
			continue
		}
		stmts = append(stmts, s)
	}
	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	return stmts, nil
}

func (p *parser) declaration() (Stmt, error) {
	switch {
	case p.match(VAR):
		return p.varDecl()
	case p.match(FUNCTION):
		return p.funDecl()
	}
	return p.statement()
}

func (p *parser) varDecl() (Stmt, error) {
	name, err := p.need(ID, "Expect variable name.")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(ASSIGN, "Expect '=' after variable name."); err != nil {
		return nil, err
	}
	init, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(SEMICOLON, "Expect ';' after variable declaration."); err != nil {
		return nil, err
	}
	return &VarStmt{Name: name, Init: init}, nil
}

func (p *parser) funDecl() (Stmt, error) {
	name, err := p.need(ID, "Expect function name.")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(LROUND, "Expect '(' after function name."); err != nil {
		return nil, err
	}
	var params []Token
	if !p.check(RROUND) {
		for {
			if len(params) >= maxArgs {
				return nil, p.errAt(p.peek(), fmt.Sprintf("Can't have more than %d parameters.", maxArgs))
			}
			param, err := p.need(ID, "Expect parameter name.")
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if !p.match(COMMA) {
				break
			}
		}
	}
	if _, err := p.need(RROUND, "Expect ')' after parameters."); err != nil {
		return nil, err
	}
	if _, err := p.need(LCURLY, "Expect '{' before function body."); err != nil {
		return nil, err
	}

	// A body may break out of a loop at its call site.
	p.funDepth++
	defer func() { p.funDepth-- }()

	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &FunctionStmt{Name: name, Params: params, Body: body}, nil
}

func (p *parser) statement() (Stmt, error) {
	switch {
	case p.match(IF):
		return p.ifStmt()
	case p.match(WHILE):
		return p.whileStmt()
	case p.match(FOR):
		return p.forStmt()
	case p.match(PRINT):
		return p.printStmt()
	case p.match(BREAK):
		return p.breakStmt()
	case p.match(RETURN):
		return nil, p.errAt(p.prev(), "'return' statements are not supported.")
	case p.match(LCURLY):
		return p.block()
	}
	return p.exprStmt()
}

func (p *parser) ifStmt() (Stmt, error) {
	if _, err := p.need(LROUND, "Expect '(' after 'if'."); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(RROUND, "Expect ')' after if condition."); err != nil {
		return nil, err
	}
	then, err := p.statement()
	if err != nil {
		return nil, err
	}
	var els Stmt
	if p.match(ELSE) {
		if els, err = p.statement(); err != nil {
			return nil, err
		}
	}
	return &IfStmt{Cond: cond, Then: then, Else: els}, nil
}

func (p *parser) whileStmt() (Stmt, error) {
	if _, err := p.need(LROUND, "Expect '(' after 'while'."); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(RROUND, "Expect ')' after condition."); err != nil {
		return nil, err
	}
	body, err := p.loopBody()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Cond: cond, Body: body}, nil
}

func (p *parser) loopBody() (Stmt, error) {
	p.loopDepth++
	defer func() { p.loopDepth-- }()
	return p.statement()
}

func (p *parser) forStmt() (Stmt, error) {
	if _, err := p.need(LROUND, "Expect '(' after 'for'."); err != nil {
		return nil, err
	}

	var (
		init Stmt
		err  error
	)
	switch {
	case p.match(SEMICOLON):
	case p.match(VAR):
		init, err = p.varDecl()
	default:
		init, err = p.exprStmt()
	}
	if err != nil {
		return nil, err
	}

	var cond Expr
	if !p.check(SEMICOLON) {
		if cond, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.need(SEMICOLON, "Expect ';' after loop condition."); err != nil {
		return nil, err
	}

	var incr Expr
	if !p.check(RROUND) {
		if incr, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.need(RROUND, "Expect ')' after for clauses."); err != nil {
		return nil, err
	}

	body, err := p.loopBody()
	if err != nil {
		return nil, err
	}

	if incr != nil {
		body = &BlockStmt{Stmts: []Stmt{body, &ExpressionStmt{Expr: incr}}}
	}
	if cond == nil {
		cond = &LiteralExpr{Value: Bool(true)}
	}
	loop := &WhileStmt{Cond: cond, Body: body}

	outer := &BlockStmt{}
	if init != nil {
		outer.Stmts = append(outer.Stmts, init)
	}
	outer.Stmts = append(outer.Stmts, loop)
	return outer, nil
}

func (p *parser) printStmt() (Stmt, error) {
	v, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(SEMICOLON, "Expect ';' after value."); err != nil {
		return nil, err
	}
	return &PrintStmt{Expr: v}, nil
}

// breakStmt records a misplaced break and keeps the statement.
func (p *parser) breakStmt() (Stmt, error) {
	kw := p.prev()
	if _, err := p.need(SEMICOLON, "Expect ';' after 'break'."); err != nil {
		return nil, err
	}
	if p.loopDepth == 0 && p.funDepth == 0 {
		p.errs = append(p.errs, p.errAt(kw, "Can't use 'break' outside of a loop."))
	}
	return &BreakStmt{Keyword: kw}, nil
}

// block parses the statements after an already consumed '{'.
func (p *parser) block() (*BlockStmt, error) {
	b := &BlockStmt{}
	for !p.check(RCURLY) && !p.atEnd() {
		s, err := p.declaration()
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, s)
	}
	if _, err := p.need(RCURLY, "Expect '}' after block."); err != nil {
		return nil, err
	}
	return b, nil
}

func (p *parser) exprStmt() (Stmt, error) {
	e, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(SEMICOLON, "Expect ';' after expression."); err != nil {
		return nil, err
	}
	return &ExpressionStmt{Expr: e}, nil
}

// ─────────────────────────────── expressions ───────────────────────────────

func (p *parser) expression() (Expr, error) { return p.assignment() }

func (p *parser) assignment() (Expr, error) {
	lhs, err := p.logicOr()
	if err != nil {
		return nil, err
	}
	if !p.match(ASSIGN) {
		return lhs, nil
	}
	equals := p.prev()
	value, err := p.assignment()
	if err != nil {
		return nil, err
	}
	if v, ok := lhs.(*VariableExpr); ok {
		return &AssignExpr{Name: v.Name, Value: value}, nil
	}
	return nil, p.errAt(equals, "Invalid assignment target.")
}

func (p *parser) logicOr() (Expr, error) {
	return p.logical(p.logicAnd, OR)
}

func (p *parser) logicAnd() (Expr, error) {
	return p.logical(p.equality, AND)
}

func (p *parser) logical(next func() (Expr, error), op TokenType) (Expr, error) {
	lhs, err := next()
	if err != nil {
		return nil, err
	}
	for p.match(op) {
		tok := p.prev()
		rhs, err := next()
		if err != nil {
			return nil, err
		}
		lhs = &LogicalExpr{Op: tok, Left: lhs, Right: rhs}
	}
	return lhs, nil
}

func (p *parser) equality() (Expr, error) {
	return p.binary(p.comparison, NEQ, EQ)
}

func (p *parser) comparison() (Expr, error) {
	return p.binary(p.term, GREATER, GREATER_EQ, LESS, LESS_EQ)
}

func (p *parser) term() (Expr, error) {
	return p.binary(p.factor, MINUS, PLUS)
}

func (p *parser) factor() (Expr, error) {
	return p.binary(p.unary, DIV, MULT)
}

// binary folds `next (op next)*` to the left.
func (p *parser) binary(next func() (Expr, error), ops ...TokenType) (Expr, error) {
	lhs, err := next()
	if err != nil {
		return nil, err
	}
	for p.match(ops...) {
		tok := p.prev()
		rhs, err := next()
		if err != nil {
			return nil, err
		}
		lhs = &BinaryExpr{Op: tok, Left: lhs, Right: rhs}
	}
	return lhs, nil
}

func (p *parser) unary() (Expr, error) {
	if p.match(BANG, MINUS) {
		op := p.prev()
		rhs, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, Right: rhs}, nil
	}
	return p.call()
}

func (p *parser) call() (Expr, error) {
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.match(LROUND) {
		if e, err = p.finishCall(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (p *parser) finishCall(callee Expr) (Expr, error) {
	var args []Expr
	if !p.check(RROUND) {
		for {
			if len(args) >= maxArgs {
				return nil, p.errAt(p.peek(), fmt.Sprintf("Can't have more than %d arguments.", maxArgs))
			}
			a, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if !p.match(COMMA) {
				break
			}
		}
	}
	paren, err := p.need(RROUND, "Expect ')' after arguments.")
	if err != nil {
		return nil, err
	}
	return &CallExpr{Callee: callee, Paren: paren, Args: args}, nil
}

func (p *parser) primary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case NUMBER:
		p.advance()
		return &LiteralExpr{Value: Num(tok.Literal.(float64))}, nil
	case STRING:
		p.advance()
		return &LiteralExpr{Value: Str(tok.Literal.(string))}, nil
	case TRUE:
		p.advance()
		return &LiteralExpr{Value: Bool(true)}, nil
	case FALSE:
		p.advance()
		return &LiteralExpr{Value: Bool(false)}, nil
	case NIL:
		p.advance()
		return &LiteralExpr{Value: Nil}, nil
	case ID:
		p.advance()
		return &VariableExpr{Name: tok}, nil
	case LROUND:
		p.advance()
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.need(RROUND, "Expect ')' after expression."); err != nil {
			return nil, err
		}
		return &GroupingExpr{Inner: inner}, nil
	}
	return nil, p.errAt(tok, "Expect expression.")
}
