// cmd/lox-lsp/features.go
//
// ROLE: LSP feature handlers. Each handler decodes params, reads a document
// snapshot and replies; none of them mutate state except the text sync
// handlers, which re-run analysis.

package main

import (
	"encoding/json"
	"strings"

	"github.com/daios-ai/lox"
)

// keywordDocs is shown on hover over a keyword.
var keywordDocs = map[lox.TokenType]string{
	lox.VAR:      "`var name = value;` declares a variable in the current scope. The initializer is required.",
	lox.FUNCTION: "`fun name(params) { ... }` declares a function. Calls always evaluate to nil.",
	lox.IF:       "`if (cond) stmt else stmt`; the else branch binds to the nearest if.",
	lox.WHILE:    "`while (cond) stmt` repeats while cond is truthy.",
	lox.FOR:      "`for (init; cond; incr) stmt` is sugar for a block holding init and a while loop.",
	lox.BREAK:    "`break;` leaves the nearest enclosing loop.",
	lox.PRINT:    "`print expr;` writes the value followed by a newline.",
	lox.AND:      "Short-circuit conjunction; yields a boolean.",
	lox.OR:       "Short-circuit disjunction; yields a boolean.",
	lox.NIL:      "The absent value. Falsy.",
	lox.RETURN:   "Reserved. Functions cannot return values.",
}

// builtinDocs is shown on hover over a built-in name.
var builtinDocs = map[string]string{
	"clock": "clock() -> number\n\nSeconds since the Unix epoch, with sub-second precision.",
}

func (s *server) onInitialize(id json.RawMessage, _ json.RawMessage) {
	s.sendResponse(id, InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync:           1,
			HoverProvider:              true,
			DocumentSymbolProvider:     true,
			DocumentFormattingProvider: true,
			FoldingRangeProvider:       true,
		},
		ServerInfo: map[string]string{"name": "lox-lsp", "version": lox.Version},
	}, nil)
}

func (s *server) onDidOpen(raw json.RawMessage) {
	var p DidOpenParams
	if err := json.Unmarshal(raw, &p); err != nil {
		s.LogWarnf("didOpen: %v", err)
		return
	}
	doc := &docState{uri: p.TextDocument.URI, text: p.TextDocument.Text}
	s.analyze(doc)

	s.mu.Lock()
	s.docs[doc.uri] = doc
	s.mu.Unlock()
}

// onDidChange applies full-document sync: the last change carries the text.
func (s *server) onDidChange(raw json.RawMessage) {
	var p DidChangeParams
	if err := json.Unmarshal(raw, &p); err != nil {
		s.LogWarnf("didChange: %v", err)
		return
	}
	if len(p.ContentChanges) == 0 {
		return
	}
	doc := &docState{uri: p.TextDocument.URI, text: p.ContentChanges[len(p.ContentChanges)-1].Text}
	s.analyze(doc)

	s.mu.Lock()
	s.docs[doc.uri] = doc
	s.mu.Unlock()
}

func (s *server) onDidClose(raw json.RawMessage) {
	var p DidCloseParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	s.mu.Lock()
	delete(s.docs, p.TextDocument.URI)
	s.mu.Unlock()
	s.publish(p.TextDocument.URI, nil)
}

func (s *server) onHover(id json.RawMessage, raw json.RawMessage) {
	var p TextDocumentPositionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		s.sendResponse(id, nil, &ResponseError{Code: codeInvalidParams, Message: err.Error()})
		return
	}
	doc := s.snapshotDoc(p.TextDocument.URI)
	if doc == nil {
		s.sendResponse(id, nil, nil)
		return
	}
	tok, ok := tokenAt(doc, posToOffset(doc.lines, p.Position, doc.text))
	if !ok {
		s.sendResponse(id, nil, nil)
		return
	}

	var text string
	switch {
	case keywordDocs[tok.Type] != "":
		text = keywordDocs[tok.Type]
	case tok.Type == lox.ID:
		if d, ok := findSymbol(doc, tok.Lexeme); ok {
			text = "```lox\n" + d.signature() + "\n```"
		} else if bd, ok := builtinDocs[tok.Lexeme]; ok {
			text = "```lox\n" + bd + "\n```"
		}
	}
	if text == "" {
		s.sendResponse(id, nil, nil)
		return
	}
	r := tokenRange(doc, tok)
	s.sendResponse(id, Hover{Contents: MarkupContent{Kind: "markdown", Value: text}, Range: &r}, nil)
}

// tokenAt finds the token covering byte offset off.
func tokenAt(doc *docState, off int) (lox.Token, bool) {
	for _, t := range doc.tokens {
		if t.Type == lox.EOF {
			break
		}
		start, end := tokenSpan(doc, t)
		if start <= off && off < end {
			return t, true
		}
	}
	return lox.Token{}, false
}

func (s *server) onDocumentSymbols(id json.RawMessage, raw json.RawMessage) {
	var p DocumentParams
	if err := json.Unmarshal(raw, &p); err != nil {
		s.sendResponse(id, nil, &ResponseError{Code: codeInvalidParams, Message: err.Error()})
		return
	}
	doc := s.snapshotDoc(p.TextDocument.URI)
	out := []DocumentSymbol{}
	if doc != nil {
		for _, d := range doc.symbols {
			kind := symbolKindVariable
			if d.Kind == "fun" {
				kind = symbolKindFunction
			}
			out = append(out, DocumentSymbol{
				Name:           d.Name,
				Detail:         d.signature(),
				Kind:           kind,
				Range:          d.Range,
				SelectionRange: d.Sel,
			})
		}
	}
	s.sendResponse(id, out, nil)
}

// onFormatting replaces the whole document with its canonical layout. It
// declines (null result) when the document does not parse or has comments,
// which the canonical printer cannot keep.
func (s *server) onFormatting(id json.RawMessage, raw json.RawMessage) {
	var p DocumentParams
	if err := json.Unmarshal(raw, &p); err != nil {
		s.sendResponse(id, nil, &ResponseError{Code: codeInvalidParams, Message: err.Error()})
		return
	}
	doc := s.snapshotDoc(p.TextDocument.URI)
	if doc == nil || doc.program == nil || hasComments(doc.text) {
		s.sendResponse(id, nil, nil)
		return
	}
	formatted := lox.FormatProgram(doc.program) + "\n"
	if formatted == doc.text {
		s.sendResponse(id, []TextEdit{}, nil)
		return
	}
	s.sendResponse(id, []TextEdit{{
		Range:   makeRange(doc.lines, 0, len(doc.text), doc.text),
		NewText: formatted,
	}}, nil)
}

// hasComments reports a `//` outside string literals.
func hasComments(text string) bool {
	inStr := false
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '"':
			inStr = !inStr
		case !inStr && c == '/' && i+1 < len(text) && text[i+1] == '/':
			return true
		}
	}
	return false
}

// onFoldingRange folds every brace pair that spans more than one line.
func (s *server) onFoldingRange(id json.RawMessage, raw json.RawMessage) {
	var p DocumentParams
	if err := json.Unmarshal(raw, &p); err != nil {
		s.sendResponse(id, nil, &ResponseError{Code: codeInvalidParams, Message: err.Error()})
		return
	}
	doc := s.snapshotDoc(p.TextDocument.URI)
	out := []FoldingRange{}
	if doc != nil {
		var open []lox.Token
		for _, t := range doc.tokens {
			switch t.Type {
			case lox.LCURLY:
				open = append(open, t)
			case lox.RCURLY:
				if len(open) == 0 {
					continue
				}
				start := open[len(open)-1]
				open = open[:len(open)-1]
				if t.Line > start.Line {
					out = append(out, FoldingRange{StartLine: start.Line - 1, EndLine: t.Line - 1})
				}
			}
		}
	}
	s.sendResponse(id, out, nil)
}

// methodNotFound answers unknown requests; unknown notifications are ignored.
func (s *server) methodNotFound(req Request) {
	if len(req.ID) == 0 {
		return
	}
	s.sendResponse(req.ID, nil, &ResponseError{Code: codeMethodNotFound, Message: "method not found: " + strings.TrimSpace(req.Method)})
}
