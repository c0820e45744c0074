package lox

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustContain(t *testing.T, s, sub string) {
	t.Helper()
	require.True(t, strings.Contains(s, sub), "expected output to contain %q\n--- output ---\n%s", sub, s)
}

func mustRuntimeAtLine(t *testing.T, msg string, line int) {
	t.Helper()
	mustContain(t, msg, "RUNTIME ERROR at "+strconv.Itoa(line)+":")
}

func Test_ErrorWrap_Parse_ShowsCaretAndContext(t *testing.T) {
	src := "var x = 1;\nprint (x;\nprint x;"

	_, err := Pretty(src)
	require.Error(t, err)
	msg := err.Error()

	mustContain(t, msg, "PARSE ERROR at 2:9: near ';': Expect ')' after expression.")
	mustContain(t, msg, "   1 | var x = 1;")
	mustContain(t, msg, "   2 | print (x;")
	mustContain(t, msg, "     |         ^")
	mustContain(t, msg, "   3 | print x;")
}

func Test_ErrorWrap_Lex_ShowsCaretAndContext(t *testing.T) {
	src := "var ok = 1;\nvar s = \"open"
	_, err := NewLexer(src).Scan()
	require.Error(t, err)

	msg := WrapErrorWithSource(err, src).Error()
	mustContain(t, msg, "LEXICAL ERROR at 2:9: Unterminated string.")
	mustContain(t, msg, "   1 | var ok = 1;")
	mustContain(t, msg, "   2 | var s = \"open")
	mustContain(t, msg, "     |         ^")
}

func Test_ErrorWrap_Runtime_WithName(t *testing.T) {
	src := "print 1;\nprint 1 + true;"
	prog := mustParse(t, src)
	ip, _, _ := newTestInterp()
	err := ip.Run(prog)
	require.Error(t, err)

	mustRuntimeAtLine(t, err.Error(), 2)

	msg := WrapErrorWithName(err, "calc.lox", src).Error()
	mustContain(t, msg, "RUNTIME ERROR in calc.lox at 2:9: Operands of '+' must be")
	mustContain(t, msg, "   2 | print 1 + true;")
	assert.False(t, strings.HasSuffix(msg, "\n"))
}

func Test_ErrorWrap_Joined_RendersEachMember(t *testing.T) {
	src := "var = 1;\nprint );"
	_, err := ScanAndParse(src, nil)
	require.Error(t, err)

	msg := WrapErrorWithSource(err, src).Error()
	assert.Equal(t, 2, strings.Count(msg, "PARSE ERROR at"))
	mustContain(t, msg, "at 1:5: near '=': Expect variable name.")
	mustContain(t, msg, "at 2:7: near ')': Expect expression.")
}

func Test_ErrorWrap_AtEnd_HasNoNearClause(t *testing.T) {
	src := "print 1"
	_, err := ScanAndParse(src, nil)
	msg := WrapErrorWithSource(err, src).Error()
	mustContain(t, msg, "PARSE ERROR at 1:8: Expect ';' after value.")
}

func Test_ErrorWrap_PassesThroughUnknownErrors(t *testing.T) {
	plain := errors.New("boom")
	assert.Same(t, plain, WrapErrorWithSource(plain, "src"))
	assert.NoError(t, WrapErrorWithSource(nil, "src"))
}

func Test_ErrorWrap_ClampsOutOfRangePositions(t *testing.T) {
	err := &RuntimeError{Line: 99, Col: -4, Msg: "far away"}
	msg := WrapErrorWithSource(err, "only line").Error()
	mustContain(t, msg, "RUNTIME ERROR at 1:1: far away")
	mustContain(t, msg, "   1 | only line")
	mustContain(t, msg, "     | ^")
}

func Test_IsParseError(t *testing.T) {
	_, perr := ScanAndParse("print ;", nil)
	assert.True(t, IsParseError(perr))
	assert.False(t, IsParseError(&RuntimeError{Msg: "x"}))
	assert.False(t, IsParseError(nil))
	assert.True(t, IsParseError(errors.Join(errors.New("other"), &ParseError{Msg: "y"})))
}
