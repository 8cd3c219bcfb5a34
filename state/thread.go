// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

import (
	"github.com/tosca-rt/corevm/closure"
	"github.com/tosca-rt/corevm/dispatch"
	"github.com/tosca-rt/corevm/stack"
	"github.com/tosca-rt/corevm/table"
	"github.com/tosca-rt/corevm/value"
)

// MultiResult requested as nresults to Call means "keep every result the
// callee produced", the calling convention's MULTRET.
const MultiResult = -1

// EnvironIndex and GlobalsIndex extend stack.RegistryIndex's pseudo-index
// space; indices below GlobalsIndex address the current foreign closure's
// upvalues (spec.md §4.2).
const (
	EnvironIndex = stack.RegistryIndex - 1
	GlobalsIndex = stack.RegistryIndex - 2
)

// Thread is one activation context within a GlobalState: its own value
// stack and call chain, sharing the universe's string pool, registry and
// (initially) globals table.
type Thread struct {
	global  *GlobalState
	stack   *stack.Stack
	globals *table.Table

	// closures runs parallel to the stack's CallInfo vector: closures[d]
	// is the closure executing at call depth d (closures[0] is nil, the
	// bottom sentinel frame matching CallInfo{Func: -1}).
	closures []*closure.Closure
}

// Global returns the universe this thread belongs to.
func (t *Thread) Global() *GlobalState { return t.global }

// Globals returns the thread's current globals table.
func (t *Thread) Globals() *table.Table { return t.globals }

// Top returns the number of live values in the active frame.
func (t *Thread) Top() int { return t.stack.Len() }

// Base returns the active frame's base as an absolute stack position.
func (t *Thread) Base() int { return t.stack.Base() }

// CheckStack guarantees n additional free slots in the active frame.
func (t *Thread) CheckStack(n int) error { return t.stack.CheckStack(n) }

// Depth returns the number of activation records on the call chain,
// including the bottom sentinel frame.
func (t *Thread) Depth() int { return t.stack.Depth() }

// Unwind forcibly discards every frame pushed since depth and resets top
// to the given absolute position, closing any upvalues that windowed onto
// the discarded frames first. Used by protect.Call to recover from a
// failed or panicking call.
func (t *Thread) Unwind(depth, top int) {
	for d := t.stack.Depth(); d > depth; d-- {
		t.global.openList.CloseFrom(t.stack, t.stack.Base())
		t.stack.UnwindTo(d - 1)
	}
	if len(t.closures) > depth {
		t.closures = t.closures[:depth]
	}
	t.stack.ForceTop(top)
}

// Push pushes v onto the active frame.
func (t *Thread) Push(v value.Value) error { return t.stack.Push(v) }

// Pop removes and returns the top value of the active frame.
func (t *Thread) Pop() value.Value { return t.stack.Pop() }

// SetTop grows or truncates the active frame to exactly n live values, or
// for n < 0, discards -n-1 values from the top (spec.md §6's settop).
func (t *Thread) SetTop(n int) error { return t.stack.SetTop(n) }

// Remove deletes the value at idx, shifting everything above it down by
// one slot (spec.md §6's remove). idx must be an ordinary index.
func (t *Thread) Remove(idx int) error {
	pos, ok := t.stack.ResolvePos(idx)
	if !ok {
		return ErrInvalidPseudoIndex
	}
	top := t.stack.Top()
	for i := pos; i < top-1; i++ {
		t.stack.SetValueAt(i, t.stack.ValueAt(i+1))
	}
	t.stack.SetValueAt(top-1, value.Nil)
	t.stack.ForceTop(top - 1)
	return nil
}

// Insert moves the top value down to idx, shifting everything previously
// at or above idx up by one slot (spec.md §6's insert). idx must be an
// ordinary index.
func (t *Thread) Insert(idx int) error {
	pos, ok := t.stack.ResolvePos(idx)
	if !ok {
		return ErrInvalidPseudoIndex
	}
	top := t.stack.Top()
	v := t.stack.ValueAt(top - 1)
	for i := top - 1; i > pos; i-- {
		t.stack.SetValueAt(i, t.stack.ValueAt(i-1))
	}
	t.stack.SetValueAt(pos, v)
	return nil
}

// Replace pops the top value and writes it to idx, ordinary or pseudo
// alike (spec.md §6's replace).
func (t *Thread) Replace(idx int) error {
	v := t.stack.Pop()
	return t.Set(idx, v)
}

// currentClosure returns the closure executing at the current call depth,
// or nil at the bottom (no-enclosing-function) frame.
func (t *Thread) currentClosure() *closure.Closure {
	d := t.stack.Depth() - 1
	if d >= 0 && d < len(t.closures) {
		return t.closures[d]
	}
	return nil
}

// Get resolves idx — ordinary, registry, environ, globals or upvalue
// pseudo-index alike — per spec.md §4.2.
func (t *Thread) Get(idx int) (value.Value, error) {
	switch {
	case idx == stack.RegistryIndex:
		return value.FromCollectable(t.global.registry), nil
	case idx == EnvironIndex:
		// No stdlib surface distinguishes a function's environment from
		// the thread's globals in this runtime (spec.md's Non-goals
		// exclude the stdlib); ENVIRON_INDEX aliases globals.
		return value.FromCollectable(t.globals), nil
	case idx == GlobalsIndex:
		return value.FromCollectable(t.globals), nil
	case idx < GlobalsIndex:
		cl := t.currentClosure()
		if cl == nil || cl.IsScript() {
			return value.Nil, nil
		}
		k := GlobalsIndex - idx
		return cl.Upvalue(k - 1), nil
	default:
		return t.stack.Get(idx), nil
	}
}

// Set resolves idx and writes v. REGISTRY_INDEX and GLOBALS_INDEX accept a
// table value and replace the thread's/universe's table wholesale (lua's
// lua_replace onto those pseudo-indices); ENVIRON_INDEX is read-only here.
func (t *Thread) Set(idx int, v value.Value) error {
	switch {
	case idx == stack.RegistryIndex:
		tbl, ok := v.AsCollectable().(*table.Table)
		if !ok {
			return ErrNotATable
		}
		t.global.registry = tbl
		return nil
	case idx == EnvironIndex:
		return ErrInvalidPseudoIndex
	case idx == GlobalsIndex:
		tbl, ok := v.AsCollectable().(*table.Table)
		if !ok {
			return ErrNotATable
		}
		t.globals = tbl
		return nil
	case idx < GlobalsIndex:
		cl := t.currentClosure()
		if cl == nil || cl.IsScript() {
			return ErrInvalidPseudoIndex
		}
		k := GlobalsIndex - idx
		return cl.SetUpvalue(k-1, v)
	default:
		return t.stack.Set(idx, v)
	}
}

// pushFrame opens a new activation record for cl at absolute slot funcPos
// and keeps the parallel closures slice in sync with the stack's call
// depth.
func (t *Thread) pushFrame(funcPos int, cl *closure.Closure) *stack.CallInfo {
	ci := t.stack.PushCallInfo(funcPos)
	depth := t.stack.Depth()
	if len(t.closures) < depth {
		grown := make([]*closure.Closure, depth)
		copy(grown, t.closures)
		t.closures = grown
	}
	t.closures[depth-1] = cl
	return ci
}

func (t *Thread) popFrame() {
	t.global.openList.CloseFrom(t.stack, t.stack.Base())
	t.stack.PopCallInfo()
}

// threadHandle adapts Thread to closure.StackHandle for foreign functions,
// exposing only the frame-relative view a callee should see.
type threadHandle struct{ t *Thread }

func (h *threadHandle) Get(idx int) value.Value {
	v, _ := h.t.Get(idx)
	return v
}
func (h *threadHandle) Set(idx int, v value.Value) error { return h.t.Set(idx, v) }
func (h *threadHandle) Push(v value.Value) error         { return h.t.Push(v) }
func (h *threadHandle) Top() int                         { return h.t.Top() }

// Call implements spec.md §4.2's calling convention: the callee must
// already sit at stack position top-(nargs+1); on return, its results
// (truncated or nil-padded to nresults, unless nresults is MultiResult)
// occupy the slots starting at the callee's former position, and top is
// adjusted to match.
func (t *Thread) Call(nargs, nresults int) error {
	top := t.stack.Top()
	funcPos := top - nargs - 1
	if funcPos < t.stack.Base() {
		return ErrStackUnderflow
	}
	fv := t.stack.ValueAt(funcPos)
	cl, ok := fv.AsCollectable().(*closure.Closure)
	if !ok {
		return ErrNotCallable
	}

	ci := t.pushFrame(funcPos, cl)

	if !cl.IsScript() {
		handle := &threadHandle{t: t}
		n, err := cl.Foreign()(handle)
		t.popFrame()
		if err != nil {
			return err
		}
		return t.adjustResults(funcPos, n, nresults)
	}

	p := cl.Prototype()
	if err := t.stack.CheckStack(p.MaxStackSize()); err != nil {
		t.popFrame()
		return err
	}
	ci.Top = ci.Base + p.MaxStackSize()

	if t.global.dispatcher == nil {
		t.popFrame()
		return ErrNoDispatcher
	}

	status, _, err := t.global.dispatcher.Run(t, p, cl, ci.SavedPC)
	nret := t.stack.Top() - ci.Base
	t.popFrame()
	if err != nil {
		return err
	}
	if status == dispatch.StatusError {
		return ErrRuntime
	}
	return t.adjustResults(funcPos, nret, nresults)
}

// adjustResults moves the nret result values currently sitting above the
// just-popped frame's base down to funcPos, truncating or nil-padding to
// nresults (MultiResult keeps them all).
func (t *Thread) adjustResults(funcPos, nret, nresults int) error {
	if nresults == MultiResult {
		nresults = nret
	}
	src := t.stack.Top() - nret
	for i := 0; i < nresults; i++ {
		var v value.Value
		if i < nret {
			v = t.stack.ValueAt(src + i)
		}
		t.stack.SetValueAt(funcPos+i, v)
	}
	newTop := funcPos + nresults
	for i := newTop; i < t.stack.Top(); i++ {
		t.stack.SetValueAt(i, value.Nil)
	}
	t.stack.ForceTop(newTop)
	return nil
}
