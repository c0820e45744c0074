// parser_test.go
package lox

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---------------------------------------------------------------

func mustParse(t *testing.T, src string) []Stmt {
	t.Helper()
	prog, err := ScanAndParse(src, nil)
	require.NoError(t, err, "source:\n%s", src)
	return prog
}

func mustFailParseContains(t *testing.T, src string, substr string) error {
	t.Helper()
	_, err := ScanAndParse(src, nil)
	require.Error(t, err, "source:\n%s", src)
	if substr != "" {
		assert.Contains(t, err.Error(), substr, "source:\n%s", src)
	}
	return err
}

func mustIncomplete(t *testing.T, src string) {
	t.Helper()
	_, err := ParseInteractive(src)
	require.Error(t, err, "source:\n%s", src)
	assert.True(t, IsIncomplete(err), "want incomplete, got %v\nsource:\n%s", err, src)
}

// sx renders an expression fully parenthesized, Lisp style, so tests can
// assert on tree shape.
func sx(e Expr) string {
	switch n := e.(type) {
	case *LiteralExpr:
		return n.Value.String()
	case *VariableExpr:
		return n.Name.Lexeme
	case *AssignExpr:
		return "(= " + n.Name.Lexeme + " " + sx(n.Value) + ")"
	case *UnaryExpr:
		return "(" + n.Op.Lexeme + " " + sx(n.Right) + ")"
	case *BinaryExpr:
		return "(" + n.Op.Lexeme + " " + sx(n.Left) + " " + sx(n.Right) + ")"
	case *LogicalExpr:
		return "(" + n.Op.Lexeme + " " + sx(n.Left) + " " + sx(n.Right) + ")"
	case *GroupingExpr:
		return "(group " + sx(n.Inner) + ")"
	case *CallExpr:
		parts := []string{"call", sx(n.Callee)}
		for _, a := range n.Args {
			parts = append(parts, sx(a))
		}
		return "(" + strings.Join(parts, " ") + ")"
	}
	return fmt.Sprintf("<%T>", e)
}

func exprOf(t *testing.T, src string) string {
	t.Helper()
	prog := mustParse(t, src+";")
	require.Len(t, prog, 1)
	es, ok := prog[0].(*ExpressionStmt)
	require.True(t, ok, "want expression statement, got %T", prog[0])
	return sx(es.Expr)
}

// --- tests -----------------------------------------------------------------

func Test_Parser_Literals_And_Id(t *testing.T) {
	assert.Equal(t, "42", exprOf(t, "42"))
	assert.Equal(t, "0.5", exprOf(t, "0.5"))
	assert.Equal(t, `"hi"`, exprOf(t, `"hi"`))
	assert.Equal(t, "true", exprOf(t, "true"))
	assert.Equal(t, "false", exprOf(t, "false"))
	assert.Equal(t, "nil", exprOf(t, "nil"))
	assert.Equal(t, "x", exprOf(t, "x"))
}

func Test_Parser_Precedence(t *testing.T) {
	cases := map[string]string{
		"1 + 2 * 3":             "(+ 1 (* 2 3))",
		"(1 + 2) * 3":           "(* (group (+ 1 2)) 3)",
		"-a * b":                "(* (- a) b)",
		"!!x":                   "(! (! x))",
		"a < b == c >= d":       "(== (< a b) (>= c d))",
		"a or b and c":          "(or a (and b c))",
		"a and b == c":          "(and a (== b c))",
		"x = y = 1 + 2":         "(= x (= y (+ 1 2)))",
		"f(1)(2, 3)":            "(call (call f 1) 2 3)",
		"-f(x)":                 "(- (call f x))",
		"a = b or c":            "(= a (or b c))",
		"1 + 2 < 3 - 4 / 5 * 6": "(< (+ 1 2) (- 3 (* (/ 4 5) 6)))",
	}
	for src, want := range cases {
		assert.Equal(t, want, exprOf(t, src), "source: %s", src)
	}
}

func Test_Parser_Binary_LeftAssociative(t *testing.T) {
	assert.Equal(t, "(- (- 1 2) 3)", exprOf(t, "1 - 2 - 3"))
	assert.Equal(t, "(/ (/ 8 4) 2)", exprOf(t, "8 / 4 / 2"))
	assert.Equal(t, "(== (== a b) c)", exprOf(t, "a == b == c"))
	assert.Equal(t, "(or (or a b) c)", exprOf(t, "a or b or c"))
}

func Test_Parser_Statements(t *testing.T) {
	prog := mustParse(t, `
var a = 1;
print a;
{ var b = 2; }
if (a) print 1; else print 2;
while (a < 3) a = a + 1;
fun add(x, y) { print x + y; }
`)
	require.Len(t, prog, 6)

	v := prog[0].(*VarStmt)
	assert.Equal(t, "a", v.Name.Lexeme)
	assert.Equal(t, "1", sx(v.Init))

	assert.IsType(t, &PrintStmt{}, prog[1])
	assert.Len(t, prog[2].(*BlockStmt).Stmts, 1)

	ifs := prog[3].(*IfStmt)
	assert.Equal(t, "a", sx(ifs.Cond))
	assert.NotNil(t, ifs.Else)

	ws := prog[4].(*WhileStmt)
	assert.Equal(t, "(< a 3)", sx(ws.Cond))

	fn := prog[5].(*FunctionStmt)
	assert.Equal(t, "add", fn.Name.Lexeme)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "y", fn.Params[1].Lexeme)
	assert.Len(t, fn.Body.Stmts, 1)
}

func Test_Parser_DanglingElse_BindsNearestIf(t *testing.T) {
	prog := mustParse(t, "if (a) if (b) print 1; else print 2;")
	outer := prog[0].(*IfStmt)
	assert.Nil(t, outer.Else)
	inner := outer.Then.(*IfStmt)
	assert.NotNil(t, inner.Else)
}

func Test_Parser_For_Desugars(t *testing.T) {
	prog := mustParse(t, "for (var i = 0; i < 3; i = i + 1) print i;")
	require.Len(t, prog, 1)

	outer, ok := prog[0].(*BlockStmt)
	require.True(t, ok, "for desugars into a block, got %T", prog[0])
	require.Len(t, outer.Stmts, 2)
	assert.IsType(t, &VarStmt{}, outer.Stmts[0])

	loop := outer.Stmts[1].(*WhileStmt)
	assert.Equal(t, "(< i 3)", sx(loop.Cond))

	body := loop.Body.(*BlockStmt)
	require.Len(t, body.Stmts, 2)
	assert.IsType(t, &PrintStmt{}, body.Stmts[0])
	assert.Equal(t, "(= i (+ i 1))", sx(body.Stmts[1].(*ExpressionStmt).Expr))
}

func Test_Parser_For_EmptyClauses(t *testing.T) {
	prog := mustParse(t, "for (;;) break;")
	outer := prog[0].(*BlockStmt)
	require.Len(t, outer.Stmts, 1)
	loop := outer.Stmts[0].(*WhileStmt)
	assert.Equal(t, "true", sx(loop.Cond))
	assert.IsType(t, &BreakStmt{}, loop.Body)

	prog = mustParse(t, "for (x = 0; x < 1;) x = 1;")
	outer = prog[0].(*BlockStmt)
	assert.IsType(t, &ExpressionStmt{}, outer.Stmts[0])
	assert.IsType(t, &ExpressionStmt{}, outer.Stmts[1].(*WhileStmt).Body)
}

func Test_Parser_Errors(t *testing.T) {
	cases := []struct{ src, want string }{
		{"1 = 2;", "Invalid assignment target."},
		{"(a) = 2;", "Invalid assignment target."},
		{"var = 1;", "Expect variable name."},
		{"var a;", "Expect '=' after variable name."},
		{"print 1", "Expect ';' after value."},
		{"1 +;", "Expect expression."},
		{"(1;", "Expect ')' after expression."},
		{"if 1) print 1;", "Expect '(' after 'if'."},
		{"while (1 print 1;", "Expect ')' after condition."},
		{"{ print 1;", "Expect '}' after block."},
		{"fun (a) {}", "Expect function name."},
		{"fun f(a, 1) {}", "Expect parameter name."},
		{"fun f() print 1;", "Expect '{' before function body."},
		{"f(1, 2;", "Expect ')' after arguments."},
		{"break;", "Can't use 'break' outside of a loop."},
		{"return 1;", "'return' statements are not supported."},
	}
	for _, tc := range cases {
		mustFailParseContains(t, tc.src, tc.want)
	}
}

func Test_Parser_Break_InsideLoops(t *testing.T) {
	mustParse(t, "while (true) { if (x) break; }")
	mustParse(t, "for (;;) { while (true) break; break; }")
}

func Test_Parser_Break_InsideFunctionBody(t *testing.T) {
	// The loop it leaves is the one around the call.
	prog := mustParse(t, "fun stop() { break; }")
	fn := prog[0].(*FunctionStmt)
	assert.IsType(t, &BreakStmt{}, fn.Body.Stmts[0])

	mustParse(t, "while (true) { fun f() { if (x) break; } f(); }")
}

func Test_Parser_Break_OutsideLoop_SingleError(t *testing.T) {
	src := `{
  break;
}
print 1;
break;`
	_, err := ScanAndParse(src, nil)
	require.Error(t, err)

	errs := Errors(err)
	require.Len(t, errs, 2, "no follow-on errors: %v", err)
	for i, line := range []int{2, 5} {
		pe := errs[i].(*ParseError)
		assert.Equal(t, line, pe.Line)
		assert.Equal(t, "Can't use 'break' outside of a loop.", pe.Msg)
	}
}

func Test_Parser_Error_Position(t *testing.T) {
	err := mustFailParseContains(t, "var x = 1;\nprint (x;", "")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)
	assert.Equal(t, 8, pe.Col)
	assert.Equal(t, ";", pe.Near)
	assert.Equal(t, "PARSE ERROR at 2:9 near ';': Expect ')' after expression.", pe.Error())

	err = mustFailParseContains(t, "print 1", "")
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "", pe.Near)
	assert.Contains(t, pe.Error(), "at end")
	assert.False(t, pe.Incomplete, "batch parses never flag incomplete")
}

func Test_Parser_Recovery_ReportsEveryBadStatement(t *testing.T) {
	src := "var = 1;\nprint 2;\nprint (;\nvar ok = 3;\n1 = 2;"
	prog, err := ScanAndParse(src, nil)
	require.Error(t, err)
	assert.Nil(t, prog, "any parse error fails the whole program")

	errs := Errors(err)
	require.Len(t, errs, 3)
	lines := []int{}
	for _, e := range errs {
		lines = append(lines, e.(*ParseError).Line)
	}
	assert.Equal(t, []int{1, 3, 5}, lines)
}

func Test_Parser_MaxArguments(t *testing.T) {
	args := make([]string, maxArgs)
	for i := range args {
		args[i] = "1"
	}
	mustParse(t, "f("+strings.Join(args, ", ")+");")
	mustFailParseContains(t, "f("+strings.Join(args, ", ")+", 1);", "Can't have more than 255 arguments.")

	params := make([]string, maxArgs+1)
	for i := range params {
		params[i] = fmt.Sprintf("p%d", i)
	}
	mustParse(t, "fun f("+strings.Join(params[:maxArgs], ", ")+") {}")
	mustFailParseContains(t, "fun f("+strings.Join(params, ", ")+") {}", "Can't have more than 255 parameters.")
}

func Test_Parser_LexErrorsDoNotFailParse(t *testing.T) {
	var diag strings.Builder
	prog, err := ScanAndParse("print 1 @;", &diag)
	require.NoError(t, err)
	require.Len(t, prog, 1)
	assert.Equal(t, "LEXICAL ERROR at 1:9: Unexpected character '@'.\n", diag.String())
}

func Test_Parser_Interactive_Incomplete(t *testing.T) {
	mustIncomplete(t, "print 1")
	mustIncomplete(t, "fun f() {")
	mustIncomplete(t, "if (x) {\n  print 1;")
	mustIncomplete(t, "var a = (1 +")
	mustIncomplete(t, "while (true)")

	_, err := ParseInteractive("print 1;")
	assert.NoError(t, err)

	_, err = ParseInteractive("print );")
	require.Error(t, err)
	assert.False(t, IsIncomplete(err), "a real syntax error is not incomplete")

	_, err = ParseInteractive("1 = 2; print 1")
	require.Error(t, err)
	assert.False(t, IsIncomplete(err), "mixed errors are not incomplete")

	assert.False(t, IsIncomplete(nil))
	assert.False(t, IsIncomplete(errors.New("other")))
}
