// errors.go: user-facing error wrapping and caret-snippet rendering
//
// This file turns positioned diagnostics into readable snippets with a caret
// under the offending column:
//
//	PARSE ERROR in demo.lox at 3:12: near ')': Expect expression.
//
//	   2 | var x = (1 +
//	   3 |            );
//	     |            ^
//	   4 | print x;
//
// It recognizes *LexError (lexer.go), *ParseError (parser.go) and
// *RuntimeError (interpreter.go); all carry a 1-based Line and a 0-based Col.
// Errors built with errors.Join are rendered one snippet per member.
// Anything else is returned unchanged.
package lox

import (
	"errors"
	"fmt"
	"strings"
)

// WrapErrorWithSource returns err augmented with a caret-annotated snippet of
// src. Unrecognized errors are returned as-is.
func WrapErrorWithSource(err error, src string) error {
	return WrapErrorWithName(err, "", src)
}

// WrapErrorWithName is WrapErrorWithSource with the source name shown in the
// header ("... in <name> at L:C").
func WrapErrorWithName(err error, srcName string, src string) error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		parts := joined.Unwrap()
		out := make([]string, 0, len(parts))
		for _, e := range parts {
			out = append(out, WrapErrorWithName(e, srcName, src).Error())
		}
		return fmt.Errorf("%s", strings.Join(out, "\n"))
	}

	switch e := err.(type) {
	case *LexError:
		return fmt.Errorf("%s", prettyErrorStringLabeled(src, "LEXICAL ERROR", srcName, e.Line, e.Col+1, e.Msg))
	case *ParseError:
		msg := e.Msg
		if e.Near != "" {
			msg = fmt.Sprintf("near '%s': %s", e.Near, e.Msg)
		}
		return fmt.Errorf("%s", prettyErrorStringLabeled(src, "PARSE ERROR", srcName, e.Line, e.Col+1, msg))
	case *RuntimeError:
		return fmt.Errorf("%s", prettyErrorStringLabeled(src, "RUNTIME ERROR", srcName, e.Line, e.Col+1, e.Msg))
	default:
		return err
	}
}

// flattenErrors expands an errors.Join tree into its leaves.
func flattenErrors(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flattenErrors(e)...)
		}
		return out
	}
	return []error{err}
}

// Errors returns the leaf errors of a joined error (or err itself).
func Errors(err error) []error { return flattenErrors(err) }

// IsParseError reports whether err contains a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	for _, e := range flattenErrors(err) {
		if errors.As(e, &pe) {
			return true
		}
	}
	return false
}

// prettyErrorStringLabeled builds a snippet with a header and a caret.
// It shows at most one previous and one next line when available.
// Coordinates are treated as 1-based and clamped to the source bounds.
func prettyErrorStringLabeled(src, header, name string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	lineTxt := lines[line-1]

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "%s in %s at %d:%d: %s\n\n", header, name, line, col, msg)
	} else {
		fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	}
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lineTxt)
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return strings.TrimRight(b.String(), "\n")
}
