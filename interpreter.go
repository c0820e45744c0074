// interpreter.go — SINGLE PUBLIC API SURFACE for the Lox runtime.
//
// OVERVIEW
// ========
// This file exposes the public surface of the tree-walking evaluator: the
// runtime value model, functions, environments, the structured RuntimeError,
// and the Interpreter with its entry points. The evaluation algorithms live
// in interpreter_exec.go (statements, calls) and interpreter_ops.go
// (expressions, operators).
//
// EXECUTION & SCOPING SEMANTICS
// -----------------------------
// Programs execute against a chain of *Env frames. Lookups and assignments
// walk parent-ward and stop at the first frame that defines the name; Define
// always writes the current frame. Blocks and function calls push a child
// frame; frames are plain heap objects shared by every child and closure that
// points at them and are reclaimed by the Go GC once unreachable.
//
// Entry points differ only in which root frame they use:
//   - Run executes a program against a fresh root frame holding the
//     built-ins (clock). Nothing leaks between runs.
//   - RunPersistent executes against Global, which survives across calls
//     (REPL sessions).
//   - Execute/Evaluate work on the frame you pass.
//
// Closure capture is selected by Scoping. ScopingLexical (default) makes each
// call frame a child of the frame the function was declared in.
// ScopingDynamic makes it a child of the caller's frame instead, so free
// variables in a body resolve against whatever the call site can see.
//
// RUNTIME ERRORS
// --------------
// Every failing operation returns a *RuntimeError carrying the 1-based line
// and 0-based column of the token that caused it. Run and RunPersistent catch
// the error of each top-level statement, report it to Stderr, and carry on
// with the next statement; the joined errors are returned at the end.
package lox

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/iotaledger/hive.go/logger"
	"github.com/prometheus/client_golang/prometheus"
)

// Version of the interpreter, reported by the CLI.
const Version = "0.3.1"

// BuildDate is stamped by the release build.
var BuildDate = "unknown"

////////////////////////////////////////////////////////////////////////////////
//                              PUBLIC TYPES & CTORS
////////////////////////////////////////////////////////////////////////////////

// ValueTag enumerates all runtime kinds a Value may hold.
type ValueTag int

const (
	VTNil  ValueTag = iota // nothing (no payload)
	VTBool                 // bool
	VTNum                  // float64
	VTStr                  // string
	VTFun                  // *Fun
)

func (t ValueTag) String() string {
	switch t {
	case VTNil:
		return "nil"
	case VTBool:
		return "boolean"
	case VTNum:
		return "number"
	case VTStr:
		return "string"
	case VTFun:
		return "function"
	default:
		return "ValueTag(" + strconv.Itoa(int(t)) + ")"
	}
}

// Value is the universal runtime carrier used by the interpreter.
//
// Invariants:
//   - When Tag==VTNil, Data is nil.
//   - When Tag==VTFun, Data is a non-nil *Fun, shared by every copy.
type Value struct {
	Tag  ValueTag
	Data any
}

// String renders a debug representation; strings are quoted.
// Use FormatValue for the text `print` writes.
func (v Value) String() string {
	if v.Tag == VTStr {
		return strconv.Quote(v.Data.(string))
	}
	return FormatValue(v)
}

// Truthy maps a value to a condition result: nil and false are false, zero
// and the empty string are false, functions are true.
func (v Value) Truthy() bool {
	switch v.Tag {
	case VTBool:
		return v.Data.(bool)
	case VTNum:
		return v.Data.(float64) != 0
	case VTStr:
		return v.Data.(string) != ""
	case VTFun:
		return true
	default:
		return false
	}
}

// Nil is the singleton nothing Value.
var Nil = Value{Tag: VTNil}

// Primitive constructors.
func Bool(b bool) Value { return Value{Tag: VTBool, Data: b} }
func Num(f float64) Value { return Value{Tag: VTNum, Data: f} }
func Str(s string) Value { return Value{Tag: VTStr, Data: s} }
func FunVal(f *Fun) Value { return Value{Tag: VTFun, Data: f} }

// FormatValue returns the text `print` writes for v.
func FormatValue(v Value) string {
	switch v.Tag {
	case VTNil:
		return "nil"
	case VTBool:
		return strconv.FormatBool(v.Data.(bool))
	case VTNum:
		return formatNumber(v.Data.(float64))
	case VTStr:
		return v.Data.(string)
	case VTFun:
		f := v.Data.(*Fun)
		if f.Native != nil {
			return "<native fn " + f.Name + ">"
		}
		return "<fn " + f.Name + ">"
	default:
		return "<unknown>"
	}
}

// formatNumber prints the shortest decimal that round-trips: 7, 10.69, -0.5.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// NativeImpl is the implementation signature for host functions. Returning
// a non-nil error fails the call; plain errors are positioned at the call.
type NativeImpl func(ip *Interpreter, args []Value) (Value, error)

// Fun represents a callable. Functions are immutable once built and are
// shared by reference between every Value that holds them.
//
// Fields:
//   - Name   : declared name (used for printing and errors).
//   - Params : parameter names in order; len(Params) is the arity of user
//     functions.
//   - Body   : statements of the declaration's block, run in the call frame.
//   - Env    : frame active at the declaration (closure frame).
//   - Native : non-nil for host functions; NativeArity is then the arity.
type Fun struct {
	Name   string
	Params []string
	Body   []Stmt
	Env    *Env

	Native      NativeImpl
	NativeArity int
}

// Arity is the exact number of arguments a call must supply.
func (f *Fun) Arity() int {
	if f.Native != nil {
		return f.NativeArity
	}
	return len(f.Params)
}

// ErrUndefinedVariable is wrapped by Env lookups and assignments that find no
// binding anywhere in the chain.
var ErrUndefinedVariable = errors.New("undefined variable")

// Env is a lexical environment frame with a parent link. Lookups walk parent-ward.
// Use Define to bind in the current frame, Set to update an existing visible
// binding (nearest frame), and Get to retrieve.
type Env struct {
	parent *Env
	table  map[string]Value
}

// NewEnv creates a new frame with the given parent (which may be nil).
func NewEnv(parent *Env) *Env { return &Env{parent: parent, table: make(map[string]Value)} }

// Enclosed returns a new child frame of e.
func (e *Env) Enclosed() *Env { return NewEnv(e) }

// Parent returns the enclosing frame, nil for a root.
func (e *Env) Parent() *Env { return e.parent }

// Define binds name to v in the current frame, overwriting any binding of
// the same name in this frame and shadowing outer ones.
func (e *Env) Define(name string, v Value) {
	e.table[name] = v
}

// Set updates the nearest existing binding of name to v. If no binding exists
// in any visible frame, Set returns an error (it does not implicitly define).
func (e *Env) Set(name string, v Value) error {
	for f := e; f != nil; f = f.parent {
		if _, ok := f.table[name]; ok {
			f.table[name] = v
			return nil
		}
	}
	return fmt.Errorf("%w '%s'", ErrUndefinedVariable, name)
}

// Get returns the value bound to name in the nearest frame defining it.
func (e *Env) Get(name string) (Value, error) {
	for f := e; f != nil; f = f.parent {
		if v, ok := f.table[name]; ok {
			return v, nil
		}
	}
	return Nil, fmt.Errorf("%w '%s'", ErrUndefinedVariable, name)
}

// Names lists the names bound in this frame only, sorted.
func (e *Env) Names() []string {
	out := make([]string, 0, len(e.table))
	for k := range e.table {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RuntimeError represents an execution-time failure. Line is 1-based, Col is
// the 0-based column of the token that failed. Err, when set, is the
// underlying cause (e.g. ErrUndefinedVariable) and is reachable through
// errors.Is/As.
type RuntimeError struct {
	Line int
	Col  int
	Msg  string
	Err  error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("RUNTIME ERROR at %d:%d: %s", e.Line, e.Col+1, e.Msg)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Scoping selects how a call frame is parented.
type Scoping int

const (
	ScopingLexical Scoping = iota
	ScopingDynamic
)

func (s Scoping) String() string {
	if s == ScopingDynamic {
		return "dynamic"
	}
	return "lexical"
}

// ParseScoping accepts "lexical" or "dynamic"; empty means lexical.
func ParseScoping(s string) (Scoping, error) {
	switch s {
	case "", "lexical":
		return ScopingLexical, nil
	case "dynamic":
		return ScopingDynamic, nil
	}
	return ScopingLexical, fmt.Errorf("unknown scoping %q (want lexical or dynamic)", s)
}

////////////////////////////////////////////////////////////////////////////////
//                               PUBLIC INTERPRETER
////////////////////////////////////////////////////////////////////////////////

// Interpreter is the entry point for executing Lox programs.
//
// Public fields:
//   - Global : persistent root frame used by RunPersistent; holds built-ins.
//
// Construction: NewInterpreter(opts...). The zero value is not usable.
type Interpreter struct {
	*logger.WrappedLogger

	Global *Env

	stdout  io.Writer
	stderr  io.Writer
	scoping Scoping
	now     func() time.Time

	reg     prometheus.Registerer
	metrics *metrics

	natives []*Fun
	depth   int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithStdout sets where `print` writes (default os.Stdout).
func WithStdout(w io.Writer) Option { return func(ip *Interpreter) { ip.stdout = w } }

// WithStderr sets where diagnostics are reported (default os.Stderr).
func WithStderr(w io.Writer) Option { return func(ip *Interpreter) { ip.stderr = w } }

// WithLogger attaches a structured logger (default: no-op).
func WithLogger(log *logger.Logger) Option {
	return func(ip *Interpreter) {
		if log != nil {
			ip.WrappedLogger = logger.NewWrappedLogger(log)
		}
	}
}

// WithScoping selects closure capture (default ScopingLexical).
func WithScoping(s Scoping) Option { return func(ip *Interpreter) { ip.scoping = s } }

// WithRegisterer registers the interpreter's counters on reg instead of a
// private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(ip *Interpreter) { ip.reg = reg }
}

// WithClock replaces the time source behind the clock built-in.
func WithClock(now func() time.Time) Option { return func(ip *Interpreter) { ip.now = now } }

// NewInterpreter constructs an interpreter with built-ins installed and an
// empty persistent Global frame.
func NewInterpreter(opts ...Option) *Interpreter {
	ip := &Interpreter{
		WrappedLogger: logger.NewWrappedLogger(logger.NewNopLogger()),
		stdout:        os.Stdout,
		stderr:        os.Stderr,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(ip)
	}
	if ip.reg == nil {
		ip.reg = prometheus.NewRegistry()
	}
	ip.metrics = newMetrics(ip.reg)

	registerTimeBuiltins(ip)
	ip.Global = ip.NewRootEnv()
	return ip
}

// Scoping reports the configured closure capture mode.
func (ip *Interpreter) Scoping() Scoping { return ip.scoping }

// RegisterNative installs a host function available under name in every
// root frame created afterwards (and in Global if it already exists).
func (ip *Interpreter) RegisterNative(name string, arity int, impl NativeImpl) {
	f := &Fun{Name: name, Native: impl, NativeArity: arity}
	ip.natives = append(ip.natives, f)
	if ip.Global != nil {
		ip.Global.Define(name, FunVal(f))
	}
}

// NewRootEnv returns a parentless frame pre-populated with the built-ins.
func (ip *Interpreter) NewRootEnv() *Env {
	env := NewEnv(nil)
	for _, f := range ip.natives {
		env.Define(f.Name, FunVal(f))
	}
	return env
}

////////////////////////////////////////////////////////////////////////////////
//                         PUBLIC METHODS (THIN DELEGATIONS)
////////////////////////////////////////////////////////////////////////////////

// Run executes program against a fresh root frame. Each top-level statement's
// runtime error is reported to Stderr and execution continues with the next
// statement. The returned error joins every reported *RuntimeError.
func (ip *Interpreter) Run(program []Stmt) error {
	return ip.runTop(program, ip.NewRootEnv(), nil)
}

// RunPersistent is Run against Global, so bindings survive across calls.
func (ip *Interpreter) RunPersistent(program []Stmt) error {
	return ip.runTop(program, ip.Global, nil)
}

// RunSource scans, parses and runs src against a fresh root frame (or Global
// when persistent is set). Lexical diagnostics and runtime errors are
// reported to Stderr with caret snippets labeled with name.
//
// A parse failure is returned unreported (errors.As finds *ParseError) and
// nothing runs. Otherwise the result is as for Run.
func (ip *Interpreter) RunSource(name, src string, persistent bool) error {
	toks, lexErr := NewLexer(src).Scan()
	for _, e := range flattenErrors(lexErr) {
		ip.metrics.lexicalErrors.Inc()
		ip.LogDebugf("lexical error in %s: %v", name, e)
		fmt.Fprintln(ip.stderr, WrapErrorWithName(e, name, src).Error())
	}
	program, err := Parse(toks)
	if err != nil {
		ip.LogDebugf("parse failed for %s: %v", name, err)
		return err
	}
	env := ip.Global
	if !persistent {
		env = ip.NewRootEnv()
	}
	return ip.runTop(program, env, &sourceRef{name: name, src: src})
}

// Evaluate evaluates one expression in env.
func (ip *Interpreter) Evaluate(e Expr, env *Env) (Value, error) { return ip.eval(e, env) }

// Execute runs one statement in env. A `break` that escapes every loop
// surfaces as an error for which IsBreak reports true.
func (ip *Interpreter) Execute(s Stmt, env *Env) error { return ip.exec(s, env) }

//// END_OF_PUBLIC
