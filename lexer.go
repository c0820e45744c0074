// lexer.go — single-pass scanner for Lox source text.
//
// The lexer walks the source left to right with one byte of lookahead and
// emits a flat []Token terminated by a single EOF token. It never aborts:
// unterminated strings and unexpected characters are recorded as *LexError
// values and scanning resumes with the next byte. Scan returns the complete
// token slice together with the joined diagnostics so callers decide whether
// to print them.
//
// Positions: Line is 1-based, Col is the 0-based byte column of the first
// byte of the token within its line.
package lox

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// TokenType represents the kind of token.
type TokenType int

const (
	// Special
	EOF TokenType = iota

	// Punctuation
	LROUND    // "("
	RROUND    // ")"
	LCURLY    // "{"
	RCURLY    // "}"
	COMMA     // ","
	PERIOD    // "."
	SEMICOLON // ";"

	// Operators
	PLUS
	MINUS
	MULT
	DIV
	BANG       // "!"
	NEQ        // "!="
	ASSIGN     // "="
	EQ         // "=="
	GREATER    // ">"
	GREATER_EQ // ">="
	LESS       // "<"
	LESS_EQ    // "<="

	// Literals & identifiers
	ID
	STRING
	NUMBER

	// Keywords
	AND
	OR
	IF
	ELSE
	WHILE
	FOR
	FUNCTION
	VAR
	PRINT
	TRUE
	FALSE
	NIL
	BREAK
	RETURN
)

var tokenNames = [...]string{
	EOF:        "EOF",
	LROUND:     "LROUND",
	RROUND:     "RROUND",
	LCURLY:     "LCURLY",
	RCURLY:     "RCURLY",
	COMMA:      "COMMA",
	PERIOD:     "PERIOD",
	SEMICOLON:  "SEMICOLON",
	PLUS:       "PLUS",
	MINUS:      "MINUS",
	MULT:       "MULT",
	DIV:        "DIV",
	BANG:       "BANG",
	NEQ:        "NEQ",
	ASSIGN:     "ASSIGN",
	EQ:         "EQ",
	GREATER:    "GREATER",
	GREATER_EQ: "GREATER_EQ",
	LESS:       "LESS",
	LESS_EQ:    "LESS_EQ",
	ID:         "ID",
	STRING:     "STRING",
	NUMBER:     "NUMBER",
	AND:        "AND",
	OR:         "OR",
	IF:         "IF",
	ELSE:       "ELSE",
	WHILE:      "WHILE",
	FOR:        "FOR",
	FUNCTION:   "FUNCTION",
	VAR:        "VAR",
	PRINT:      "PRINT",
	TRUE:       "TRUE",
	FALSE:      "FALSE",
	NIL:        "NIL",
	BREAK:      "BREAK",
	RETURN:     "RETURN",
}

func (t TokenType) String() string {
	if int(t) >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return "TokenType(" + strconv.Itoa(int(t)) + ")"
}

// Token is a lexical token with optional literal value.
//
// Literal is float64 for NUMBER and the decoded text for STRING and ID;
// it is nil for every other kind.
type Token struct {
	Type    TokenType
	Lexeme  string // raw text slice
	Literal any
	Line    int
	Col     int
}

func (t Token) String() string {
	return fmt.Sprintf("%d:%d %s %q", t.Line, t.Col+1, t.Type, t.Lexeme)
}

// keywords map
var keywords = map[string]TokenType{
	"and":    AND,
	"or":     OR,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"for":    FOR,
	"fun":    FUNCTION,
	"var":    VAR,
	"print":  PRINT,
	"true":   TRUE,
	"false":  FALSE,
	"nil":    NIL,
	"break":  BREAK,
	"return": RETURN,
}

// Lexer scans a Lox source string into tokens.
type Lexer struct {
	src    string
	start  int // start index of current token
	cur    int // current index
	line   int // 1-based
	col    int // 0-based column within line
	tokens []Token
	errs   []error

	tokStartLine int
	tokStartCol  int
}

// NewLexer creates a new lexer for the given source.
func NewLexer(src string) *Lexer {
	return &Lexer{
		src:  src,
		line: 1,
	}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.src[l.cur]
}

func (l *Lexer) peekNext() byte {
	if l.cur+1 >= len(l.src) {
		return 0
	}
	return l.src[l.cur+1]
}

func (l *Lexer) advance() byte {
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return ch
}

func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.src[l.cur] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) addToken(tt TokenType, lit any) {
	l.tokens = append(l.tokens, Token{
		Type:    tt,
		Lexeme:  l.src[l.start:l.cur],
		Literal: lit,
		Line:    l.tokStartLine,
		Col:     l.tokStartCol,
	})
}

// helpers

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' }
func isAlphaNum(b byte) bool {
	return isAlpha(b) || isDigit(b)
}

// ----- errors -----

// LexError is a non-fatal scanning diagnostic.
type LexError struct {
	Line int
	Col  int
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("LEXICAL ERROR at %d:%d: %s", e.Line, e.Col+1, e.Msg)
}

func (l *Lexer) report(msg string) {
	l.errs = append(l.errs, &LexError{Line: l.tokStartLine, Col: l.tokStartCol, Msg: msg})
}

// ----- scanners -----

// scanString consumes a '"'-delimited literal. Strings may span lines and
// carry no escape sequences.
func (l *Lexer) scanString() {
	for !l.isAtEnd() && l.peek() != '"' {
		l.advance()
	}
	if l.isAtEnd() {
		l.report("Unterminated string.")
		return
	}
	l.advance() // closing quote
	l.addToken(STRING, l.src[l.start+1:l.cur-1])
}

// scanNumber parses digits with an optional fractional part. A trailing '.'
// without digits is left for the next token.
func (l *Lexer) scanNumber() {
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	// Out-of-range literals keep the IEEE result (+Inf).
	v, err := strconv.ParseFloat(l.src[l.start:l.cur], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		l.report(fmt.Sprintf("Invalid number literal %q.", l.src[l.start:l.cur]))
		return
	}
	l.addToken(NUMBER, v)
}

// scanIdentifier parses [A-Za-z_][A-Za-z0-9_]* and classifies keywords.
func (l *Lexer) scanIdentifier() {
	for isAlphaNum(l.peek()) {
		l.advance()
	}
	lex := l.src[l.start:l.cur]
	if tt, ok := keywords[lex]; ok {
		l.addToken(tt, nil)
		return
	}
	l.addToken(ID, lex)
}

// skipUnexpected reports the offending rune and steps over all of its bytes
// so a multi-byte character yields a single diagnostic.
func (l *Lexer) skipUnexpected(first byte) {
	if first < utf8.RuneSelf {
		l.report(fmt.Sprintf("Unexpected character %q.", rune(first)))
		return
	}
	r, size := utf8.DecodeRuneInString(l.src[l.start:])
	for i := 1; i < size && !l.isAtEnd(); i++ {
		l.advance()
	}
	if r == utf8.RuneError {
		l.report("Invalid UTF-8 in source.")
		return
	}
	l.report(fmt.Sprintf("Unexpected character %q.", r))
}

// ----- main scanner -----

func (l *Lexer) scanToken() {
	l.tokStartLine = l.line
	l.tokStartCol = l.col
	l.start = l.cur

	ch := l.advance()
	switch ch {
	case ' ', '\r', '\t', '\n':
		// whitespace
	case '(':
		l.addToken(LROUND, nil)
	case ')':
		l.addToken(RROUND, nil)
	case '{':
		l.addToken(LCURLY, nil)
	case '}':
		l.addToken(RCURLY, nil)
	case ',':
		l.addToken(COMMA, nil)
	case '.':
		l.addToken(PERIOD, nil)
	case ';':
		l.addToken(SEMICOLON, nil)
	case '+':
		l.addToken(PLUS, nil)
	case '-':
		l.addToken(MINUS, nil)
	case '*':
		l.addToken(MULT, nil)
	case '!':
		if l.match('=') {
			l.addToken(NEQ, nil)
		} else {
			l.addToken(BANG, nil)
		}
	case '=':
		if l.match('=') {
			l.addToken(EQ, nil)
		} else {
			l.addToken(ASSIGN, nil)
		}
	case '<':
		if l.match('=') {
			l.addToken(LESS_EQ, nil)
		} else {
			l.addToken(LESS, nil)
		}
	case '>':
		if l.match('=') {
			l.addToken(GREATER_EQ, nil)
		} else {
			l.addToken(GREATER, nil)
		}
	case '/':
		if l.match('/') {
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		} else {
			l.addToken(DIV, nil)
		}
	case '"':
		l.scanString()
	default:
		switch {
		case isDigit(ch):
			l.scanNumber()
		case isAlpha(ch):
			l.scanIdentifier()
		default:
			l.skipUnexpected(ch)
		}
	}
}

// Scan tokenizes the entire source and returns tokens (EOF included).
//
// The token slice is always complete. The error is nil when the pass was
// clean; otherwise it joins one *LexError per diagnostic, in source order.
func (l *Lexer) Scan() ([]Token, error) {
	for !l.isAtEnd() {
		l.scanToken()
	}
	l.tokens = append(l.tokens, Token{Type: EOF, Line: l.line, Col: l.col})
	return l.tokens, errors.Join(l.errs...)
}
