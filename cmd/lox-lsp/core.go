// cmd/lox-lsp/core.go
//
// ROLE: Shared infrastructure for the LSP server: transport helpers, server
//       state, text/position math, diagnostics and the analysis pipeline
//       (scan + parse + symbol extraction).
//
// What lives here
//   • Content-Length framing over stdio and send/notify wrappers.
//   • server / docState model.
//   • UTF-16 column math and byte↔position conversions (LSP positions are
//     UTF-16 code units; the Lox scanner reports byte columns).
//   • analyze: scan, parse, collect top-level symbols, publish diagnostics.
//
// What does NOT live here
//   • Feature handlers (hover, symbols, formatting); see features.go.
//   • Execution of user programs. Analysis never runs code.

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/iotaledger/hive.go/logger"
	"github.com/pkg/errors"

	"github.com/daios-ai/lox"
)

////////////////////////////////////////////////////////////////////////////////
// Transport (stdio framing) + send/notify
////////////////////////////////////////////////////////////////////////////////

// readMsg reads one framed message body. io.EOF means the client went away.
func readMsg(r *bufio.Reader) ([]byte, error) {
	contentLen := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" {
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, "read header")
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if key, val, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(key), "content-length") {
			n, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return nil, errors.Wrapf(err, "bad Content-Length %q", val)
			}
			contentLen = n
		}
	}
	if contentLen < 0 {
		return nil, errors.New("missing Content-Length header")
	}
	buf := make([]byte, contentLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return buf, nil
}

func writeMsg(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode message")
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n", len(body))
	b.Write(body)
	_, err = w.Write(b.Bytes())
	return err
}

func (s *server) sendResponse(id json.RawMessage, result any, respErr *ResponseError) {
	resp := Response{JSONRPC: "2.0", ID: id, Result: result, Error: respErr}
	if respErr == nil && result == nil {
		resp.Result = json.RawMessage("null")
	}
	s.write(resp)
}

func (s *server) notify(method string, params any) {
	s.write(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

func (s *server) write(v any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if err := writeMsg(s.out, v); err != nil {
		s.LogWarnf("write failed: %v", err)
	}
}

////////////////////////////////////////////////////////////////////////////////
// Server state & document model
////////////////////////////////////////////////////////////////////////////////

// symbolDef is a top-level declaration shown in document symbols and hover.
type symbolDef struct {
	Name   string
	Kind   string // "fun" | "var"
	Params []string
	Range  Range // the declaring statement
	Sel    Range // the name token
}

func (d symbolDef) signature() string {
	if d.Kind == "fun" {
		return "fun " + d.Name + "(" + strings.Join(d.Params, ", ") + ")"
	}
	return "var " + d.Name
}

type docState struct {
	uri     string
	text    string
	lines   []int // line start offsets (byte indices)
	tokens  []lox.Token
	program []lox.Stmt // nil when the document does not parse
	symbols []symbolDef
}

type server struct {
	*logger.WrappedLogger

	mu   sync.RWMutex
	docs map[string]*docState

	outMu sync.Mutex
	out   io.Writer
}

func newServer(out io.Writer, log *logger.Logger) *server {
	return &server{
		WrappedLogger: logger.NewWrappedLogger(log),
		docs:          make(map[string]*docState),
		out:           out,
	}
}

// snapshotDoc returns a read-only copy of a document, or nil.
func (s *server) snapshotDoc(uri string) *docState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.docs[uri]
	if d == nil {
		return nil
	}
	cp := *d
	cp.symbols = append([]symbolDef(nil), d.symbols...)
	return &cp
}

////////////////////////////////////////////////////////////////////////////////
// Text & UTF-16 helpers
////////////////////////////////////////////////////////////////////////////////

// lineOffsets returns the byte offset at which each line starts.
func lineOffsets(text string) []int {
	offs := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offs = append(offs, i+1)
		}
	}
	return offs
}

func toU16(r rune) int {
	if r < 0x10000 {
		return 1
	}
	return 2
}

func posToOffset(lines []int, p Position, text string) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(lines) {
		return len(text)
	}
	i := lines[p.Line]
	need := p.Character
	for i < len(text) && need > 0 {
		r, sz := utf8.DecodeRuneInString(text[i:])
		if r == '\n' {
			break
		}
		need -= toU16(r)
		i += sz
	}
	return i
}

func offsetToPos(lines []int, off int, text string) Position {
	if off < 0 {
		off = 0
	}
	if off > len(text) {
		off = len(text)
	}
	i, j := 0, len(lines)
	for i+1 < j {
		m := (i + j) / 2
		if lines[m] <= off {
			i = m
		} else {
			j = m
		}
	}
	u16 := 0
	for k := lines[i]; k < off && k < len(text); {
		r, sz := utf8.DecodeRuneInString(text[k:])
		if r == '\n' {
			break
		}
		u16 += toU16(r)
		k += sz
	}
	return Position{Line: i, Character: u16}
}

func makeRange(lines []int, start, end int, text string) Range {
	return Range{
		Start: offsetToPos(lines, start, text),
		End:   offsetToPos(lines, end, text),
	}
}

// byteColToOffset maps the scanner's (1-based line, byte column) to a byte
// offset, clamped to the line.
func byteColToOffset(lines []int, line1, byteCol int, text string) int {
	line0 := line1 - 1
	if line0 < 0 {
		line0 = 0
	}
	if line0 >= len(lines) {
		return len(text)
	}
	start := lines[line0]
	end := len(text)
	if line0+1 < len(lines) {
		end = lines[line0+1]
	}
	off := start + byteCol
	if off < start {
		off = start
	}
	if off > end {
		off = end
	}
	return off
}

// tokenSpan is the byte range covered by t.
func tokenSpan(doc *docState, t lox.Token) (start, end int) {
	start = byteColToOffset(doc.lines, t.Line, t.Col, doc.text)
	end = start + len(t.Lexeme)
	if end > len(doc.text) {
		end = len(doc.text)
	}
	return start, end
}

func tokenRange(doc *docState, t lox.Token) Range {
	start, end := tokenSpan(doc, t)
	return makeRange(doc.lines, start, end, doc.text)
}

////////////////////////////////////////////////////////////////////////////////
// Diagnostics
////////////////////////////////////////////////////////////////////////////////

func (s *server) publish(uri string, diags []Diagnostic) {
	if diags == nil {
		diags = []Diagnostic{}
	}
	s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{URI: uri, Diagnostics: diags})
}

// diagnosticsFor maps scanner and parser errors to LSP diagnostics. A parse
// error spans its offending token; everything else spans one character.
func diagnosticsFor(doc *docState, errs []error) []Diagnostic {
	var out []Diagnostic
	for _, err := range errs {
		var (
			line, col, width int
			code, msg        string
		)
		switch e := err.(type) {
		case *lox.LexError:
			line, col, width, code, msg = e.Line, e.Col, 1, "lexical", e.Msg
		case *lox.ParseError:
			line, col, width, code, msg = e.Line, e.Col, len(e.Near), "parse", e.Msg
		default:
			msg = err.Error()
		}
		start := byteColToOffset(doc.lines, line, col, doc.text)
		end := start + width
		if end > len(doc.text) {
			end = len(doc.text)
		}
		out = append(out, Diagnostic{
			Range:    makeRange(doc.lines, start, end, doc.text),
			Severity: 1,
			Code:     code,
			Source:   "lox",
			Message:  msg,
		})
	}
	return out
}

////////////////////////////////////////////////////////////////////////////////
// Analysis
////////////////////////////////////////////////////////////////////////////////

// analyze rebuilds the document caches and publishes diagnostics. Symbols
// come from the token stream so they survive syntax errors elsewhere.
func (s *server) analyze(doc *docState) {
	doc.lines = lineOffsets(doc.text)

	toks, lexErr := lox.NewLexer(doc.text).Scan()
	doc.tokens = toks
	prog, parseErr := lox.Parse(toks)
	doc.program = prog
	doc.symbols = collectTopLevelSymbols(doc)

	errs := append(lox.Errors(lexErr), lox.Errors(parseErr)...)
	s.LogDebugf("analyzed %s: %d tokens, %d symbols, %d diagnostics", doc.uri, len(toks), len(doc.symbols), len(errs))
	s.publish(doc.uri, diagnosticsFor(doc, errs))
}

// collectTopLevelSymbols finds `fun NAME (params)` and `var NAME` at brace
// depth zero.
func collectTopLevelSymbols(doc *docState) []symbolDef {
	var out []symbolDef
	toks := doc.tokens
	depth := 0
	for i := 0; i < len(toks); i++ {
		switch toks[i].Type {
		case lox.LCURLY:
			depth++
			continue
		case lox.RCURLY:
			if depth > 0 {
				depth--
			}
			continue
		case lox.FUNCTION, lox.VAR:
		default:
			continue
		}
		if depth != 0 || i+1 >= len(toks) || toks[i+1].Type != lox.ID {
			continue
		}
		kw, name := toks[i], toks[i+1]
		def := symbolDef{Name: name.Lexeme, Kind: "var", Sel: tokenRange(doc, name)}
		if kw.Type == lox.FUNCTION {
			def.Kind = "fun"
			def.Params = paramNames(toks[i+2:])
		}
		start, _ := tokenSpan(doc, kw)
		_, end := tokenSpan(doc, statementEnd(toks, i))
		def.Range = makeRange(doc.lines, start, end, doc.text)
		out = append(out, def)
	}
	return out
}

// paramNames reads `( a, b )` from the front of toks.
func paramNames(toks []lox.Token) []string {
	if len(toks) == 0 || toks[0].Type != lox.LROUND {
		return nil
	}
	var names []string
	for _, t := range toks[1:] {
		switch t.Type {
		case lox.ID:
			names = append(names, t.Lexeme)
		case lox.COMMA:
		default:
			return names
		}
	}
	return names
}

// statementEnd returns the token closing the declaration starting at i: the
// first ';' at the same depth for var, the matching '}' for fun.
func statementEnd(toks []lox.Token, i int) lox.Token {
	depth := 0
	for j := i; j < len(toks); j++ {
		switch toks[j].Type {
		case lox.LCURLY:
			depth++
		case lox.RCURLY:
			depth--
			if depth == 0 && toks[i].Type == lox.FUNCTION {
				return toks[j]
			}
		case lox.SEMICOLON:
			if depth == 0 && toks[i].Type == lox.VAR {
				return toks[j]
			}
		case lox.EOF:
			if j > i {
				return toks[j-1]
			}
			return toks[j]
		}
	}
	return toks[len(toks)-1]
}

func findSymbol(doc *docState, name string) (symbolDef, bool) {
	for _, d := range doc.symbols {
		if d.Name == name {
			return d, true
		}
	}
	return symbolDef{}, false
}
