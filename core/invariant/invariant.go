// Package invariant provides contract assertions for the MSCI compiler.
//
// Assertions guard the compiler's own tables and data structures: a malformed
// precedence table, an inconsistent display-index table or a tree whose jump
// targets point nowhere. These are compiler defects, never user errors, so
// every function panics with a *Violation. The compile boundary converts the
// panic back into an error with Recover.
package invariant

import (
	"fmt"
	"reflect"
	"runtime"
)

// Violation is the panic value raised by every failed assertion.
type Violation struct {
	Kind     string // PRECONDITION, POSTCONDITION or INVARIANT
	Message  string
	Location string // file:line of the failed assertion
}

func (v *Violation) Error() string {
	msg := v.Kind + " VIOLATION: " + v.Message
	if v.Location != "" {
		msg += "\n  at " + v.Location
	}
	return msg
}

// Precondition checks an input contract at function entry.
//
// Example:
//
//	func (t *Trie) Insert(s *Syntax) error {
//	    invariant.Precondition(s != nil, "syntax must not be nil")
//	    // ... work ...
//	}
func Precondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition checks an output contract before function return.
func Postcondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant checks an internal invariant during function execution.
//
// Example:
//
//	prev := cur
//	for cur.pos < len(tokens) {
//	    // ... consume ...
//	    invariant.Invariant(cur.pos > prev.pos, "cursor must advance")
//	    prev = cur
//	}
func Invariant(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics if value is nil.
func NotNil(value interface{}, name string) {
	if isNil(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

// InRange panics if value is outside [min, max].
func InRange(value, minVal, maxVal int, name string) {
	if value < minVal || value > maxVal {
		fail("PRECONDITION", "%s must be in range [%d, %d], got %d",
			name, minVal, maxVal, value)
	}
}

// ExpectNoError panics if err is not nil.
// This is a postcondition check for operations that should never fail.
func ExpectNoError(err error, msg string) {
	if err != nil {
		fail("POSTCONDITION", "%s must not fail: %v", msg, err)
	}
}

// isNil reports whether value is nil or a typed nil.
func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// Recover converts a Violation panic into an error stored in *errp.
// Any other panic value is re-raised. Use it deferred at a pass boundary:
//
//	func Compile(...) (out *Result, err error) {
//	    defer invariant.Recover(&err)
//	    ...
//	}
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	v, ok := r.(*Violation)
	if !ok {
		panic(r)
	}
	*errp = v
}

// fail panics with a formatted Violation including the caller location.
func fail(kind, format string, args ...interface{}) {
	v := &Violation{Kind: kind, Message: fmt.Sprintf(format, args...)}

	// Skip runtime.Callers, fail and the exported wrapper
	pc := make([]uintptr, 1)
	if runtime.Callers(3, pc) > 0 {
		frames := runtime.CallersFrames(pc)
		if frame, _ := frames.Next(); frame.File != "" {
			v.Location = fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
	}

	panic(v)
}
