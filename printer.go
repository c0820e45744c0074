package lox

import (
	"strings"
)

/* ---------- small writer with indentation ---------- */

type out struct {
	b     *strings.Builder
	depth int
}

func (o *out) write(s string) { o.b.WriteString(s) }
func (o *out) nl()            { o.b.WriteByte('\n') }
func (o *out) pad() {
	for i := 0; i < o.depth; i++ {
		o.b.WriteString("  ")
	}
}
func (o *out) line(s string)        { o.pad(); o.b.WriteString(s) }
func (o *out) withIndent(fn func()) { o.depth++; fn(); o.depth-- }

/* ---------- source -> pretty (AST printer) ---------- */

// Pretty parses Lox source and returns it in canonical layout. For loops
// come back in their desugared block/while form.
func Pretty(src string) (string, error) {
	prog, err := ScanAndParse(src, nil)
	if err != nil {
		return "", WrapErrorWithSource(err, src)
	}
	return FormatProgram(prog), nil
}

// FormatProgram prints statements as source text that parses back to the
// same tree.
func FormatProgram(stmts []Stmt) string {
	var b strings.Builder
	p := pp{out: out{b: &b}}
	for _, s := range stmts {
		p.out.pad()
		p.stmt(s)
		p.out.nl()
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatExpr prints a single expression.
func FormatExpr(e Expr) string {
	var b strings.Builder
	p := pp{out: out{b: &b}}
	p.expr(e)
	return b.String()
}

type pp struct {
	out out
}

func (p *pp) write(s string) { p.out.write(s) }

// stmt prints s starting at the current column (the caller has padded).
func (p *pp) stmt(s Stmt) {
	switch n := s.(type) {
	case *ExpressionStmt:
		p.expr(n.Expr)
		p.write(";")
	case *PrintStmt:
		p.write("print ")
		p.expr(n.Expr)
		p.write(";")
	case *VarStmt:
		p.write("var " + n.Name.Lexeme + " = ")
		p.expr(n.Init)
		p.write(";")
	case *BlockStmt:
		p.block(n.Stmts)
	case *IfStmt:
		p.write("if (")
		p.expr(n.Cond)
		p.write(")")
		p.body(n.Then)
		if n.Else != nil {
			if _, ok := n.Then.(*BlockStmt); ok {
				p.write(" else")
			} else {
				p.out.nl()
				p.out.line("else")
			}
			p.body(n.Else)
		}
	case *WhileStmt:
		p.write("while (")
		p.expr(n.Cond)
		p.write(")")
		p.body(n.Body)
	case *FunctionStmt:
		names := make([]string, len(n.Params))
		for i, t := range n.Params {
			names[i] = t.Lexeme
		}
		p.write("fun " + n.Name.Lexeme + "(" + strings.Join(names, ", ") + ") ")
		p.block(n.Body.Stmts)
	case *BreakStmt:
		p.write("break;")
	}
}

// body prints a branch or loop body: blocks stay on the header line, single
// statements go on their own indented line.
func (p *pp) body(s Stmt) {
	if b, ok := s.(*BlockStmt); ok {
		p.write(" ")
		p.block(b.Stmts)
		return
	}
	p.out.nl()
	p.out.withIndent(func() {
		p.out.pad()
		p.stmt(s)
	})
}

func (p *pp) block(stmts []Stmt) {
	if len(stmts) == 0 {
		p.write("{}")
		return
	}
	p.write("{")
	p.out.nl()
	p.out.withIndent(func() {
		for _, s := range stmts {
			p.out.pad()
			p.stmt(s)
			p.out.nl()
		}
	})
	p.out.line("}")
}

func (p *pp) expr(e Expr) {
	switch n := e.(type) {
	case *LiteralExpr:
		if n.Value.Tag == VTStr {
			p.write(`"` + n.Value.Data.(string) + `"`)
		} else {
			p.write(FormatValue(n.Value))
		}
	case *VariableExpr:
		p.write(n.Name.Lexeme)
	case *AssignExpr:
		p.write(n.Name.Lexeme + " = ")
		p.expr(n.Value)
	case *UnaryExpr:
		p.write(n.Op.Lexeme)
		if u, ok := n.Right.(*UnaryExpr); ok && u.Op.Type == n.Op.Type {
			p.write(" ")
		}
		p.expr(n.Right)
	case *BinaryExpr:
		p.expr(n.Left)
		p.write(" " + n.Op.Lexeme + " ")
		p.expr(n.Right)
	case *LogicalExpr:
		p.expr(n.Left)
		p.write(" " + n.Op.Lexeme + " ")
		p.expr(n.Right)
	case *GroupingExpr:
		p.write("(")
		p.expr(n.Inner)
		p.write(")")
	case *CallExpr:
		p.expr(n.Callee)
		p.write("(")
		for i, a := range n.Args {
			if i > 0 {
				p.write(", ")
			}
			p.expr(a)
		}
		p.write(")")
	}
}
