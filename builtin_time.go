// builtin_time.go
//
// Builtins surfaced:
//  1. clock() -> number   seconds since the Unix epoch, sub-second precision
package lox

func registerTimeBuiltins(ip *Interpreter) {
	ip.RegisterNative("clock", 0, func(ip *Interpreter, _ []Value) (Value, error) {
		return Num(float64(ip.now().UnixNano()) / 1e9), nil
	})
}
