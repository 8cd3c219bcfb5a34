// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package protect implements protected calls (spec.md §7): a call boundary
// that snapshots a thread's stack depth and top, runs the call, and on
// any failure — a returned error or a raised Value — restores the thread
// to exactly that snapshot instead of leaving it unwound halfway.
//
// The original runs on C's setjmp/longjmp, deliberately not C++
// exceptions, to cross this boundary. Go's closest equivalent control-flow
// escape is panic/recover, so Raise panics and Call recovers; this is the
// only place in the runtime that does either, everywhere else a panic
// means a genuine bug rather than a scriptable error condition.
package protect

import (
	"fmt"

	"github.com/tosca-rt/corevm/stack"
	"github.com/tosca-rt/corevm/state"
	"github.com/tosca-rt/corevm/value"
)

// Kind classifies a protected call's failure (spec.md §7).
type Kind int

const (
	KindNone Kind = iota
	KindRuntime
	KindSyntax
	KindMemory
	KindGC
)

func (k Kind) String() string {
	switch k {
	case KindRuntime:
		return "runtime error"
	case KindSyntax:
		return "syntax error"
	case KindMemory:
		return "out of memory"
	case KindGC:
		return "error in garbage collection metamethod"
	default:
		return "no error"
	}
}

// Error is what a failed protected call reports: its classification, the
// arbitrary Value the failure carries (spec.md §7: "RuntimeError carries
// arbitrary Value" — a plain Go error is wrapped as a string value), and
// the underlying Go error when there is one.
type Error struct {
	Kind  Kind
	Value value.Value
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// ErrFunc is an optional message handler (spec.md §7's errfunc): it runs
// with the raised value while the stack is still in its pre-unwind shape,
// and its result replaces that value in the returned Error — typically used
// to attach a traceback.
type ErrFunc func(v value.Value) value.Value

// Raise aborts the innermost protect.Call with v as the error value. Only
// meaningful when called from code running underneath a protected call;
// outside of one it panics all the way out, same as any other unrecovered
// panic.
func Raise(v value.Value) { panic(v) }

// Call runs t.Call(nargs, nresults) under protection. On success, the
// callee's results sit on the stack exactly as Thread.Call left them; on
// failure — whether t.Call returned an error or something underneath it
// called Raise or itself panicked — the failure is classified (running
// errfunc), then t is restored to its call depth and top from before this
// Call, and the classified Error is returned.
func Call(t *state.Thread, nargs, nresults int, errfunc ErrFunc) (err *Error) {
	depth := t.Depth()
	// Top() is frame-relative, not an absolute stack position; translate
	// it through Base() so Unwind (which deals in absolute positions) gets
	// the right value to restore.
	relTop := t.Top()
	base := t.Base()

	defer func() {
		if r := recover(); r != nil {
			err = classify(t, r, errfunc)
			t.Unwind(depth, base+relTop)
		}
	}()

	if callErr := t.Call(nargs, nresults); callErr != nil {
		perr := classify(t, callErr, errfunc)
		t.Unwind(depth, base+relTop)
		return perr
	}
	return nil
}

func classify(t *state.Thread, r any, errfunc ErrFunc) *Error {
	var v value.Value
	var cause error
	switch x := r.(type) {
	case *Error:
		return x
	case value.Value:
		v = x
	case error:
		cause = x
		v = errorValue(t, x)
	default:
		cause = fmt.Errorf("%v", x)
		v = errorValue(t, cause)
	}
	kind := KindRuntime
	if cause == stack.ErrStackOverflow {
		kind = KindMemory
	}
	if errfunc != nil {
		v = errfunc(v)
	}
	return &Error{Kind: kind, Value: v, Cause: cause}
}

// errorValue interns cause's message and wraps it as a string Value, so a
// plain Go error (an internal sentinel or a recovered panic) surfaces to
// script-visible code as a descriptive message instead of nil.
func errorValue(t *state.Thread, cause error) value.Value {
	s := t.Global().Strings().Intern([]byte(cause.Error()))
	return value.FromCollectable(s)
}
