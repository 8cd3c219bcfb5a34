// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package stack implements the per-thread value stack and its vector of
// activation records (CallInfo), per spec.md §4.2. Unlike the original's
// raw pointers into the stack buffer, growth here only ever rewrites
// indices — base, top and every CallInfo's Base/Top are plain ints, so a
// reallocating grow leaves nothing dangling.
package stack

import "sync"

import "github.com/tosca-rt/corevm/value"

// ConstError is a sentinel error type, matching the teacher's
// errors.go pattern of declaring fixed, comparable error values.
type ConstError string

func (e ConstError) Error() string { return string(e) }

const (
	ErrStackOverflow ConstError = "stack overflow"
	ErrInvalidIndex  ConstError = "invalid stack index"
)

// Sizing constants, grounded on lstate.c's stack_init: a fresh stack starts
// with headroom for ExtraStack slots above stack_last so error handling
// never itself needs to grow the stack, and a call's initial CallInfo.Top
// leaves MinStack free slots for a foreign function that hasn't yet called
// CheckStack.
const (
	MinStack       = 20
	ExtraStack     = 5
	BasicStackSize = 2 * MinStack
	BasicCISize    = 8
)

// DefaultMaxStackSize bounds how far CheckStack will grow a stack absent an
// explicit limit (spec.md §4.2: "implementation-defined maximum
// (configurable)").
const DefaultMaxStackSize = 1 << 20

// RegistryIndex and everything at or below it are pseudo-indices. Pseudo-
// index resolution (registry/environ/globals/upvalue) needs the owning
// thread's global state and current closure, neither of which this package
// knows about, so it lives in the state package; Stack only resolves the
// ordinary positive/negative indices described in spec.md §4.2.
const RegistryIndex = -10000

// IsPseudo reports whether idx is one of the reserved pseudo-indices rather
// than an ordinary stack position.
func IsPseudo(idx int) bool { return idx <= RegistryIndex }

// CallInfo is one activation record (spec.md §4.2): the callee's slot, the
// frame's base and top, and bookkeeping for script calls.
type CallInfo struct {
	Func      int // index of the callee's slot; -1 for the bottom sentinel frame
	Base      int // index of the frame's first local
	Top       int // index one past the last slot this frame may use
	SavedPC   int // bytecode program counter, meaningful for script calls only
	TailCalls int // debug-introspection counter, bumped on each tail call
	IsTail    bool
}

// Stack is a thread's contiguous value buffer plus its vector of activation
// records.
type Stack struct {
	slots []value.Value
	top   int // index of the first free slot
	base  int // current frame's base
	last  int // stack_last: highest index usable before ExtraStack headroom

	ci    []CallInfo
	ciTop int // index of the active CallInfo within ci

	maxSize int
}

// New allocates a fresh stack sized per stack_init, with a bottom sentinel
// CallInfo (Func -1, meaning "no enclosing function"). maxSize <= 0 selects
// DefaultMaxStackSize.
func New(maxSize int) *Stack {
	if maxSize <= 0 {
		maxSize = DefaultMaxStackSize
	}
	s := &Stack{maxSize: maxSize}
	s.initBuffers()
	return s
}

func (s *Stack) initBuffers() {
	size := BasicStackSize + ExtraStack
	s.slots = make([]value.Value, size)
	s.last = size - ExtraStack - 1
	s.ci = make([]CallInfo, BasicCISize)
	s.ci[0] = CallInfo{Func: -1, Base: 0, Top: MinStack}
	s.top = 0
	s.base = 0
	s.ciTop = 0
}

// ------------------ Stack Pool ------------------
//
// Threads are created and destroyed far more often than the buffers they
// need, so acquisition follows the teacher's stack.go sync.Pool idiom
// rather than allocating fresh slices every time.

var pool = sync.Pool{
	New: func() any { return New(0) },
}

// Acquire returns a reset stack, reusing a pooled one when available.
func Acquire() *Stack {
	return pool.Get().(*Stack)
}

// Release clears s and returns it to the pool.
func Release(s *Stack) {
	s.reset()
	pool.Put(s)
}

func (s *Stack) reset() {
	for i := range s.slots {
		s.slots[i] = value.Nil
	}
	s.top = 0
	s.base = 0
	s.ciTop = 0
	s.ci[0] = CallInfo{Func: -1, Base: 0, Top: MinStack}
}

// ------------------ Accessors ------------------

// Top returns the index of the first free slot.
func (s *Stack) Top() int { return s.top }

// Base returns the current frame's base index.
func (s *Stack) Base() int { return s.base }

// Len returns the number of live values in the current frame.
func (s *Stack) Len() int { return s.top - s.base }

// CurrentCI returns the active activation record. The returned pointer is
// only valid until the next PushCallInfo, which may grow the ci vector.
func (s *Stack) CurrentCI() *CallInfo { return &s.ci[s.ciTop] }

// Depth returns the number of activation records currently on the call
// chain (including the bottom sentinel frame).
func (s *Stack) Depth() int { return s.ciTop + 1 }

// ------------------ Growth ------------------

// grow ensures at least n free slots exist above top, reallocating the
// buffer if necessary. It never shrinks.
func (s *Stack) grow(n int) error {
	needed := s.top + n
	if needed <= s.last {
		return nil
	}
	newSize := len(s.slots)
	for newSize-ExtraStack-1 < needed {
		newSize *= 2
	}
	if newSize > s.maxSize {
		if needed > s.maxSize-ExtraStack-1 {
			return ErrStackOverflow
		}
		newSize = s.maxSize
	}
	grown := make([]value.Value, newSize)
	copy(grown, s.slots)
	for i := len(s.slots); i < newSize; i++ {
		grown[i] = value.Nil
	}
	s.slots = grown
	s.last = newSize - ExtraStack - 1
	return nil
}

// CheckStack guarantees n additional free slots above top, per spec.md
// §4.2. It never shrinks the stack and widens the current frame's ci.Top
// to cover the new headroom, matching lua_checkstack's behaviour of
// raising ci->top when the requested size exceeds it.
func (s *Stack) CheckStack(n int) error {
	if n <= 0 {
		return nil
	}
	if err := s.grow(n); err != nil {
		return err
	}
	ci := s.CurrentCI()
	if ci.Top < s.top+n {
		ci.Top = s.top + n
	}
	return nil
}

// ------------------ Indexing ------------------

// resolvePos implements the ordinary (non-pseudo) half of spec.md §4.2's
// indexing contract. Positive indices must fall within the current frame's
// allocated window (ci.Top); negative indices must not reach below base.
// Both kinds of validity are distinct from "already holds a pushed value"
// (pos < top) — callers needing the latter for a read should fall back to
// the nil sentinel themselves, mirroring index2adr's "o >= top → nil".
func (s *Stack) resolvePos(idx int) (int, bool) {
	switch {
	case idx > 0:
		pos := s.base + idx - 1
		if pos >= s.CurrentCI().Top {
			return 0, false
		}
		return pos, true
	case idx < 0 && idx > RegistryIndex:
		pos := s.top + idx
		if pos < s.base {
			return 0, false
		}
		return pos, true
	default:
		return 0, false
	}
}

// ResolvePos exposes resolvePos for callers outside this package (the
// state package's Remove/Insert/Replace, which need the absolute slot
// position of an ordinary index to shift values around).
func (s *Stack) ResolvePos(idx int) (int, bool) { return s.resolvePos(idx) }

// Get resolves idx and returns its value, or the shared nil value if idx is
// out of range or refers to a slot above top that has not yet been pushed.
func (s *Stack) Get(idx int) value.Value {
	pos, ok := s.resolvePos(idx)
	if !ok || pos >= s.top {
		return value.Nil
	}
	return s.slots[pos]
}

// Set resolves idx and writes v into it. It is an error to address a slot
// outside the current frame's allocated window.
func (s *Stack) Set(idx int, v value.Value) error {
	pos, ok := s.resolvePos(idx)
	if !ok {
		return ErrInvalidIndex
	}
	if pos >= len(s.slots) {
		if err := s.grow(pos - s.top + 1); err != nil {
			return err
		}
	}
	s.slots[pos] = v
	return nil
}

// ValueAt returns the value at absolute slot position pos, bypassing the
// base-relative index resolution Get applies. Used by the call machinery
// in the state package, which deals in absolute positions (a callee's slot
// is top-(nargs+1), not a frame-relative index) when setting up a new
// CallInfo.
func (s *Stack) ValueAt(pos int) value.Value { return s.slots[pos] }

// SetValueAt writes to absolute slot position pos; see ValueAt.
func (s *Stack) SetValueAt(pos int, v value.Value) { s.slots[pos] = v }

// ForceTop sets top directly to an absolute position already computed by
// the caller (used after call-result shuffling in state.Thread.Call, where
// the new top is known exactly rather than derived from a relative delta).
func (s *Stack) ForceTop(n int) { s.top = n }

// ------------------ Push/Pop/SetTop ------------------

// Push appends v above top, growing the buffer if the current frame's
// window is exhausted.
func (s *Stack) Push(v value.Value) error {
	if s.top >= s.CurrentCI().Top {
		if err := s.CheckStack(1); err != nil {
			return err
		}
	}
	s.slots[s.top] = v
	s.top++
	return nil
}

// Pop removes and returns the top value.
func (s *Stack) Pop() value.Value {
	s.top--
	v := s.slots[s.top]
	s.slots[s.top] = value.Nil
	return v
}

// Peek returns the value n slots below top without removing it (Peek(0) is
// the top value).
func (s *Stack) Peek(n int) value.Value {
	return s.slots[s.top-n-1]
}

// SetTop grows or truncates the current frame to exactly n live values
// (n >= 0) or, for n < 0, discards -n-1 values from the top — lua_settop's
// two modes. Slots vacated by truncation are cleared to nil so they don't
// keep garbage reachable.
func (s *Stack) SetTop(n int) error {
	if n >= 0 {
		if err := s.CheckStack(n - s.Len()); err != nil {
			return err
		}
		newTop := s.base + n
		for i := s.top; i < newTop; i++ {
			s.slots[i] = value.Nil
		}
		for i := newTop; i < s.top; i++ {
			s.slots[i] = value.Nil
		}
		s.top = newTop
		return nil
	}
	newTop := s.top + n + 1
	if newTop < s.base {
		return ErrInvalidIndex
	}
	for i := newTop; i < s.top; i++ {
		s.slots[i] = value.Nil
	}
	s.top = newTop
	return nil
}

// ------------------ Calls ------------------

// PushCallInfo opens a new activation record for a call to the value at
// stack index funcIdx, per spec.md §4.2 step 2: base is funcIdx+1, and top
// starts at base+MinStack free slots pending the callee's own CheckStack
// calls (script calls widen it further once the prototype's frame size is
// known).
func (s *Stack) PushCallInfo(funcIdx int) *CallInfo {
	s.ciTop++
	if s.ciTop >= len(s.ci) {
		grown := make([]CallInfo, len(s.ci)*2)
		copy(grown, s.ci)
		s.ci = grown
	}
	ci := &s.ci[s.ciTop]
	*ci = CallInfo{
		Func: funcIdx,
		Base: funcIdx + 1,
		Top:  funcIdx + 1 + MinStack,
	}
	s.base = ci.Base
	return ci
}

// PopCallInfo closes the active activation record and restores base to the
// caller's frame.
func (s *Stack) PopCallInfo() {
	s.ciTop--
	s.base = s.CurrentCI().Base
}

// UnwindTo forcibly discards every CallInfo above depth-1 and restores
// base to that frame's, without running any of the normal per-frame
// teardown (closing upvalues is the caller's responsibility). Used by a
// protected call recovering from a panic that left extra frames pushed.
func (s *Stack) UnwindTo(depth int) {
	if depth < 1 {
		depth = 1
	}
	if depth-1 < s.ciTop {
		s.ciTop = depth - 1
	}
	s.base = s.CurrentCI().Base
}

// ReuseCallInfo rewrites the active activation record in place for a tail
// call (spec.md §4.2: "overwrite current CallInfo's func/base/top without
// nesting"), bumping TailCalls for debug introspection.
func (s *Stack) ReuseCallInfo(funcIdx int) *CallInfo {
	ci := s.CurrentCI()
	tailCalls := ci.TailCalls + 1
	*ci = CallInfo{
		Func:      funcIdx,
		Base:      funcIdx + 1,
		Top:       funcIdx + 1 + MinStack,
		TailCalls: tailCalls,
		IsTail:    true,
	}
	s.base = ci.Base
	return ci
}
