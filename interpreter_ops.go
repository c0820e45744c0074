// interpreter_ops.go — expression evaluation and operator semantics.
//
// Operators never coerce across kinds, with one exception: `+` with a string
// on the left stringifies a number on the right. Equality is only defined
// between two numbers, two strings or two booleans; any other pairing is a
// runtime error rather than false.
package lox

import (
	"errors"
	"fmt"
)

func (ip *Interpreter) eval(e Expr, env *Env) (Value, error) {
	switch x := e.(type) {
	case *LiteralExpr:
		return x.Value, nil

	case *VariableExpr:
		v, err := env.Get(x.Name.Lexeme)
		if err != nil {
			return Nil, undefinedErr(x.Name, err)
		}
		return v, nil

	case *AssignExpr:
		v, err := ip.eval(x.Value, env)
		if err != nil {
			return Nil, err
		}
		if err := env.Set(x.Name.Lexeme, v); err != nil {
			return Nil, undefinedErr(x.Name, err)
		}
		return v, nil

	case *UnaryExpr:
		rhs, err := ip.eval(x.Right, env)
		if err != nil {
			return Nil, err
		}
		return unaryOp(x.Op, rhs)

	case *BinaryExpr:
		lhs, err := ip.eval(x.Left, env)
		if err != nil {
			return Nil, err
		}
		rhs, err := ip.eval(x.Right, env)
		if err != nil {
			return Nil, err
		}
		return binaryOp(x.Op, lhs, rhs)

	case *LogicalExpr:
		lhs, err := ip.eval(x.Left, env)
		if err != nil {
			return Nil, err
		}
		if x.Op.Type == OR {
			if lhs.Truthy() {
				return Bool(true), nil
			}
		} else if !lhs.Truthy() {
			return Bool(false), nil
		}
		rhs, err := ip.eval(x.Right, env)
		if err != nil {
			return Nil, err
		}
		return Bool(rhs.Truthy()), nil

	case *GroupingExpr:
		return ip.eval(x.Inner, env)

	case *CallExpr:
		return ip.call(x, env)
	}
	return Nil, fmt.Errorf("unknown expression type %T", e)
}

func undefinedErr(name Token, err error) *RuntimeError {
	msg := err.Error()
	if errors.Is(err, ErrUndefinedVariable) {
		msg = fmt.Sprintf("Undefined variable '%s'.", name.Lexeme)
	}
	return &RuntimeError{Line: name.Line, Col: name.Col, Msg: msg, Err: err}
}

func unaryOp(op Token, v Value) (Value, error) {
	switch op.Type {
	case MINUS:
		if v.Tag != VTNum {
			return Nil, rtErrorf(op, "Operand of '-' must be a number, got %s.", v.Tag)
		}
		return Num(-v.Data.(float64)), nil
	case BANG:
		switch v.Tag {
		case VTBool, VTNum, VTStr:
			return Bool(!v.Truthy()), nil
		}
		return Nil, rtErrorf(op, "Operand of '!' must be a boolean, number or string, got %s.", v.Tag)
	}
	return Nil, rtErrorf(op, "Unknown unary operator '%s'.", op.Lexeme)
}

func binaryOp(op Token, a, b Value) (Value, error) {
	switch op.Type {
	case PLUS:
		switch {
		case a.Tag == VTNum && b.Tag == VTNum:
			return Num(a.Data.(float64) + b.Data.(float64)), nil
		case a.Tag == VTStr && b.Tag == VTStr:
			return Str(a.Data.(string) + b.Data.(string)), nil
		case a.Tag == VTStr && b.Tag == VTNum:
			return Str(a.Data.(string) + formatNumber(b.Data.(float64))), nil
		}
		return Nil, rtErrorf(op, "Operands of '+' must be two numbers, two strings, or a string and a number, got %s and %s.", a.Tag, b.Tag)

	case MINUS, MULT, DIV, GREATER, GREATER_EQ, LESS, LESS_EQ:
		if a.Tag != VTNum || b.Tag != VTNum {
			return Nil, rtErrorf(op, "Operands of '%s' must be numbers, got %s and %s.", op.Lexeme, a.Tag, b.Tag)
		}
		x, y := a.Data.(float64), b.Data.(float64)
		switch op.Type {
		case MINUS:
			return Num(x - y), nil
		case MULT:
			return Num(x * y), nil
		case DIV:
			return Num(x / y), nil
		case GREATER:
			return Bool(x > y), nil
		case GREATER_EQ:
			return Bool(x >= y), nil
		case LESS:
			return Bool(x < y), nil
		default:
			return Bool(x <= y), nil
		}

	case EQ, NEQ:
		eq, ok := valuesEqual(a, b)
		if !ok {
			return Nil, rtErrorf(op, "Operands of '%s' must be two numbers, two strings or two booleans, got %s and %s.", op.Lexeme, a.Tag, b.Tag)
		}
		if op.Type == NEQ {
			eq = !eq
		}
		return Bool(eq), nil
	}
	return Nil, rtErrorf(op, "Unknown binary operator '%s'.", op.Lexeme)
}

// valuesEqual compares same-kind primitives; ok is false for any other pair.
func valuesEqual(a, b Value) (eq, ok bool) {
	if a.Tag != b.Tag {
		return false, false
	}
	switch a.Tag {
	case VTNum:
		return a.Data.(float64) == b.Data.(float64), true
	case VTStr:
		return a.Data.(string) == b.Data.(string), true
	case VTBool:
		return a.Data.(bool) == b.Data.(bool), true
	}
	return false, false
}
