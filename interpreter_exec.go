// interpreter_exec.go — statement execution, calls, and top-level driving.
package lox

import (
	"errors"
	"fmt"
)

// maxCallDepth bounds user-function recursion.
const maxCallDepth = 4096

// breakSignal unwinds out of a loop body, across blocks and calls. It travels
// the error channel but is never shown to users: the nearest enclosing while
// consumes it, and runTop reports one that escapes every loop.
type breakSignal struct {
	Line int
	Col  int
}

func (b *breakSignal) Error() string { return "break outside of a loop" }

// IsBreak reports whether err is the non-local exit raised by `break`.
func IsBreak(err error) bool {
	var bs *breakSignal
	return errors.As(err, &bs)
}

type sourceRef struct {
	name string
	src  string
}

func (ip *Interpreter) runTop(program []Stmt, env *Env, sr *sourceRef) error {
	ip.LogDebugf("running %d top-level statements (scoping=%s)", len(program), ip.scoping)
	var errs []error
	for _, st := range program {
		err := ip.exec(st, env)
		if err == nil {
			continue
		}
		var bs *breakSignal
		if errors.As(err, &bs) {
			err = &RuntimeError{Line: bs.Line, Col: bs.Col, Msg: "Can't use 'break' outside of a loop."}
		}
		ip.reportRuntime(err, sr)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (ip *Interpreter) reportRuntime(err error, sr *sourceRef) {
	ip.metrics.runtimeErrors.Inc()
	ip.LogDebugf("runtime error: %v", err)
	if sr != nil {
		err = WrapErrorWithName(err, sr.name, sr.src)
	}
	fmt.Fprintln(ip.stderr, err.Error())
}

func (ip *Interpreter) exec(st Stmt, env *Env) error {
	ip.metrics.statements.Inc()

	switch s := st.(type) {
	case *ExpressionStmt:
		_, err := ip.eval(s.Expr, env)
		return err

	case *PrintStmt:
		v, err := ip.eval(s.Expr, env)
		if err != nil {
			return err
		}
		fmt.Fprintln(ip.stdout, FormatValue(v))
		return nil

	case *VarStmt:
		v, err := ip.eval(s.Init, env)
		if err != nil {
			return err
		}
		env.Define(s.Name.Lexeme, v)
		return nil

	case *BlockStmt:
		return ip.execBlock(s.Stmts, env.Enclosed())

	case *IfStmt:
		cond, err := ip.eval(s.Cond, env)
		if err != nil {
			return err
		}
		if cond.Truthy() {
			return ip.exec(s.Then, env)
		}
		if s.Else != nil {
			return ip.exec(s.Else, env)
		}
		return nil

	case *WhileStmt:
		for {
			cond, err := ip.eval(s.Cond, env)
			if err != nil {
				return err
			}
			if !cond.Truthy() {
				return nil
			}
			if err := ip.exec(s.Body, env); err != nil {
				if IsBreak(err) {
					return nil
				}
				return err
			}
		}

	case *FunctionStmt:
		params := make([]string, len(s.Params))
		for i, p := range s.Params {
			params[i] = p.Lexeme
		}
		env.Define(s.Name.Lexeme, FunVal(&Fun{
			Name:   s.Name.Lexeme,
			Params: params,
			Body:   s.Body.Stmts,
			Env:    env,
		}))
		return nil

	case *BreakStmt:
		return &breakSignal{Line: s.Keyword.Line, Col: s.Keyword.Col}
	}
	return fmt.Errorf("unknown statement type %T", st)
}

// execBlock runs stmts in env, stopping at the first error or break.
func (ip *Interpreter) execBlock(stmts []Stmt, env *Env) error {
	for _, st := range stmts {
		if err := ip.exec(st, env); err != nil {
			return err
		}
	}
	return nil
}

func (ip *Interpreter) call(c *CallExpr, env *Env) (Value, error) {
	callee, err := ip.eval(c.Callee, env)
	if err != nil {
		return Nil, err
	}
	if callee.Tag != VTFun {
		return Nil, rtErrorf(c.Paren, "Can only call functions, got %s.", callee.Tag)
	}
	fn := callee.Data.(*Fun)
	if len(c.Args) != fn.Arity() {
		return Nil, rtErrorf(c.Paren, "Expected %d arguments but got %d.", fn.Arity(), len(c.Args))
	}

	args := make([]Value, len(c.Args))
	for i, a := range c.Args {
		if args[i], err = ip.eval(a, env); err != nil {
			return Nil, err
		}
	}

	if fn.Native != nil {
		ip.metrics.calls.WithLabelValues("native").Inc()
		v, err := fn.Native(ip, args)
		if err != nil {
			var re *RuntimeError
			if !errors.As(err, &re) {
				err = &RuntimeError{Line: c.Paren.Line, Col: c.Paren.Col, Msg: err.Error(), Err: err}
			}
			return Nil, err
		}
		return v, nil
	}

	ip.metrics.calls.WithLabelValues("user").Inc()
	if ip.depth >= maxCallDepth {
		return Nil, rtErrorf(c.Paren, "Stack overflow calling '%s'.", fn.Name)
	}
	ip.depth++
	defer func() { ip.depth-- }()

	parent := fn.Env
	if ip.scoping == ScopingDynamic || parent == nil {
		parent = env
	}
	frame := parent.Enclosed()
	for i, name := range fn.Params {
		frame.Define(name, args[i])
	}
	// A break signal passes through unchanged to the caller's loop.
	if err := ip.execBlock(fn.Body, frame); err != nil {
		return Nil, err
	}
	return Nil, nil
}

func rtErrorf(tok Token, format string, args ...any) *RuntimeError {
	return &RuntimeError{Line: tok.Line, Col: tok.Col, Msg: fmt.Sprintf(format, args...)}
}
