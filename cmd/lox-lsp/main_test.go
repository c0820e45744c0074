package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/iotaledger/hive.go/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURI = "file:///t.lox"

// session frames the given messages, runs the server over them and returns
// every message it wrote.
func session(t *testing.T, msgs ...any) []map[string]any {
	t.Helper()
	var in bytes.Buffer
	for _, m := range msgs {
		require.NoError(t, writeMsg(&in, m))
	}
	var out bytes.Buffer
	require.NoError(t, serve(&in, &out, logger.NewNopLogger()))

	var got []map[string]any
	r := bufio.NewReader(&out)
	for {
		body, err := readMsg(r)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(body, &m))
		got = append(got, m)
	}
	return got
}

func request(id int, method string, params any) map[string]any {
	return map[string]any{"jsonrpc": "2.0", "id": id, "method": method, "params": params}
}

func notification(method string, params any) map[string]any {
	return map[string]any{"jsonrpc": "2.0", "method": method, "params": params}
}

func didOpen(text string) map[string]any {
	return notification("textDocument/didOpen", map[string]any{
		"textDocument": map[string]any{"uri": testURI, "languageId": "lox", "version": 1, "text": text},
	})
}

func docParams() map[string]any {
	return map[string]any{"textDocument": map[string]any{"uri": testURI}}
}

func responseTo(t *testing.T, msgs []map[string]any, id int) map[string]any {
	t.Helper()
	for _, m := range msgs {
		if v, ok := m["id"].(float64); ok && int(v) == id {
			return m
		}
	}
	require.Failf(t, "no response", "id %d in %v", id, msgs)
	return nil
}

func diagnostics(msgs []map[string]any) [][]any {
	var out [][]any
	for _, m := range msgs {
		if m["method"] == "textDocument/publishDiagnostics" {
			out = append(out, m["params"].(map[string]any)["diagnostics"].([]any))
		}
	}
	return out
}

func TestFraming_RoundTrip(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, writeMsg(&b, map[string]int{"a": 1}))
	assert.True(t, strings.HasPrefix(b.String(), "Content-Length: 7\r\n\r\n"))

	body, err := readMsg(bufio.NewReader(&b))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(body))

	_, err = readMsg(bufio.NewReader(strings.NewReader("X-Other: 1\r\n\r\n{}")))
	assert.Error(t, err)
}

func TestInitialize_AdvertisesCapabilities(t *testing.T) {
	msgs := session(t, request(1, "initialize", map[string]any{}), notification("exit", nil))
	caps := responseTo(t, msgs, 1)["result"].(map[string]any)["capabilities"].(map[string]any)
	assert.Equal(t, 1.0, caps["textDocumentSync"])
	assert.Equal(t, true, caps["hoverProvider"])
	assert.Equal(t, true, caps["documentFormattingProvider"])
}

func TestDiagnostics_LexAndParseErrors(t *testing.T) {
	msgs := session(t, didOpen("var a = 1;\nprint a @;\nprint (;\n"))
	all := diagnostics(msgs)
	require.Len(t, all, 1)
	diags := all[0]
	require.Len(t, diags, 2)

	lexd := diags[0].(map[string]any)
	assert.Equal(t, "Unexpected character '@'.", lexd["message"])
	assert.Equal(t, "lexical", lexd["code"])
	start := lexd["range"].(map[string]any)["start"].(map[string]any)
	assert.Equal(t, 1.0, start["line"])
	assert.Equal(t, 8.0, start["character"])

	parsed := diags[1].(map[string]any)
	assert.Equal(t, "Expect expression.", parsed["message"])
	end := parsed["range"].(map[string]any)["end"].(map[string]any)
	assert.Equal(t, 2.0, end["line"])
	assert.Equal(t, 8.0, end["character"])
}

func TestDiagnostics_ClearedAfterFix(t *testing.T) {
	msgs := session(t,
		didOpen("print (;"),
		notification("textDocument/didChange", map[string]any{
			"textDocument":   map[string]any{"uri": testURI},
			"contentChanges": []any{map[string]any{"text": "print 1;"}},
		}),
	)
	all := diagnostics(msgs)
	require.Len(t, all, 2)
	assert.Len(t, all[0], 1)
	assert.Empty(t, all[1])
}

func TestDocumentSymbols(t *testing.T) {
	src := "var total = 0;\nfun add(a, b) {\n  var inner = a;\n  total = a + b;\n}\n"
	msgs := session(t, didOpen(src), request(2, "textDocument/documentSymbol", docParams()))
	syms := responseTo(t, msgs, 2)["result"].([]any)
	require.Len(t, syms, 2, "nested declarations are not top-level symbols")

	v := syms[0].(map[string]any)
	assert.Equal(t, "total", v["name"])
	assert.Equal(t, float64(symbolKindVariable), v["kind"])

	f := syms[1].(map[string]any)
	assert.Equal(t, "add", f["name"])
	assert.Equal(t, "fun add(a, b)", f["detail"])
	end := f["range"].(map[string]any)["end"].(map[string]any)
	assert.Equal(t, 4.0, end["line"])
}

func TestHover(t *testing.T) {
	src := "fun greet(name) { print name; }\ngreet(clock);\nwhile (false) {}"
	hover := func(id, line, char int) map[string]any {
		return request(id, "textDocument/hover", map[string]any{
			"textDocument": map[string]any{"uri": testURI},
			"position":     map[string]any{"line": line, "character": char},
		})
	}
	msgs := session(t, didOpen(src), hover(1, 1, 2), hover(2, 1, 8), hover(3, 2, 1), hover(4, 0, 25))

	value := func(id int) string {
		res := responseTo(t, msgs, id)["result"]
		if res == nil {
			return ""
		}
		return res.(map[string]any)["contents"].(map[string]any)["value"].(string)
	}
	assert.Contains(t, value(1), "fun greet(name)")
	assert.Contains(t, value(2), "clock() -> number")
	assert.Contains(t, value(3), "while (cond) stmt")
	assert.Equal(t, "", value(4), "print's operand is a parameter, not a top-level symbol")
}

func TestFormatting(t *testing.T) {
	msgs := session(t, didOpen("var a=1;if(a){print a;}"), request(5, "textDocument/formatting", docParams()))
	edits := responseTo(t, msgs, 5)["result"].([]any)
	require.Len(t, edits, 1)
	assert.Equal(t, "var a = 1;\nif (a) {\n  print a;\n}\n", edits[0].(map[string]any)["newText"])
}

func TestFormatting_DeclinesWithCommentsOrErrors(t *testing.T) {
	for i, src := range []string{"print 1; // keep me", "print (;"} {
		msgs := session(t, didOpen(src), request(i+1, "textDocument/formatting", docParams()))
		assert.Nil(t, responseTo(t, msgs, i+1)["result"], "src %q", src)
	}
	assert.False(t, hasComments(`print "http://x";`))
}

func TestFoldingRanges(t *testing.T) {
	src := "fun f() {\n  while (true) {\n    break;\n  }\n}\n{ }"
	msgs := session(t, didOpen(src), request(3, "textDocument/foldingRange", docParams()))
	ranges := responseTo(t, msgs, 3)["result"].([]any)
	require.Len(t, ranges, 2)
	assert.Equal(t, map[string]any{"startLine": 1.0, "endLine": 3.0}, ranges[0])
	assert.Equal(t, map[string]any{"startLine": 0.0, "endLine": 4.0}, ranges[1])
}

func TestUnknownMethod(t *testing.T) {
	msgs := session(t, request(9, "textDocument/rename", docParams()), notification("$/cancelRequest", nil))
	require.Len(t, msgs, 1)
	errObj := responseTo(t, msgs, 9)["error"].(map[string]any)
	assert.Equal(t, float64(codeMethodNotFound), errObj["code"])
}

func TestPositions_UTF16(t *testing.T) {
	text := "var s = \"é😀\"; x"
	lines := lineOffsets(text)
	off := strings.Index(text, "x")
	pos := offsetToPos(lines, off, text)
	assert.Equal(t, Position{Line: 0, Character: 15}, pos)
	assert.Equal(t, off, posToOffset(lines, pos, text))
	assert.Equal(t, len(text), posToOffset(lines, Position{Line: 5}, text))
}
