// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package closure

import (
	"unsafe"

	"github.com/tosca-rt/corevm/gc"
	"github.com/tosca-rt/corevm/value"
)

// closureSize is the nominal byte cost charged to the collector for one
// Closure header, independent of however many upvalues it carries (the
// upvalues are not charged; the loop below only runs write barriers over
// them). Matches the flat per-object accounting gc.Noop already performs.
const closureSize = 64

// ConstError is a sentinel error type, matching the teacher's errors.go
// pattern.
type ConstError string

func (e ConstError) Error() string { return string(e) }

const ErrUpvalueRange ConstError = "upvalue index out of range"

// Prototype is the minimal surface a compiled function descriptor must
// provide; the bytecode compiler and interpreter that would produce and
// consume real prototypes are out of scope (spec.md's stated Non-goals),
// so this package only depends on what a closure itself needs to carry one
// around.
type Prototype interface {
	value.Collectable
	NumParams() int
	IsVararg() bool
	MaxStackSize() int
}

// StackHandle is the thread-facing view a foreign function receives when
// called: enough of the embedding API to read its arguments and push its
// results, without exposing the full stack/state machinery.
type StackHandle interface {
	Get(idx int) value.Value
	Set(idx int, v value.Value) error
	Push(v value.Value) error
	Top() int
}

// ForeignFunc is a Go function pluggable into the language as a callable
// value (spec.md §6). It reports how many results it left above the
// current frame's base.
type ForeignFunc func(t StackHandle) (nresults int, err error)

// Closure is either a script closure (a Prototype plus shared Upvalue
// cells) or a foreign closure (a Go function plus its own private upvalue
// vector) — exactly one of the two is set.
type Closure struct {
	proto   Prototype
	foreign ForeignFunc

	scriptUpvals  []*Upvalue     // script closures: cells, possibly shared
	foreignUpvals []value.Value // foreign closures: owned plain values
}

// GCTag implements value.Collectable.
func (*Closure) GCTag() value.Tag { return value.TagClosure }

// Address implements value.Collectable.
func (c *Closure) Address() uintptr { return uintptr(unsafe.Pointer(c)) }

// NewScript builds a script closure over proto, sharing the given upvalue
// cells (resolved by the caller via OpenList.FindOrCreate or inherited from
// the enclosing closure). collector may be nil, in which case the closure
// is built untracked (spec.md §4.7's hooks are best-effort instrumentation,
// not a correctness requirement of the closure itself); when non-nil,
// collector.CheckGC is given a chance to step at this allocation point and
// collector.WriteBarrier is invoked once per shared upvalue cell, since a
// script closure storing a reference to an already-open (and therefore
// already-collectable) Upvalue is exactly the "reference stored into a
// collectable container" case the barrier exists for.
func NewScript(proto Prototype, upvalues []*Upvalue, collector gc.Collector) *Closure {
	c := &Closure{proto: proto, scriptUpvals: upvalues}
	if collector != nil {
		collector.Alloc(closureSize)
		collector.CheckGC()
		for _, uv := range upvalues {
			if uv != nil {
				collector.WriteBarrier(c, uv)
			}
		}
	}
	return c
}

// NewForeign builds a foreign closure around fn, popping n values from the
// creator's stack into the closure's owned upvalue vector (spec.md §4.3:
// "Creation of a foreign closure with n upvalues pops n values from the
// stack into the closure's owned upvalue vector and pushes the closure").
// Callers are expected to have already popped those n values and to pass
// them here in stack order (bottom first). collector may be nil; see
// NewScript.
func NewForeign(fn ForeignFunc, upvalues []value.Value, collector gc.Collector) *Closure {
	owned := append([]value.Value(nil), upvalues...)
	c := &Closure{foreign: fn, foreignUpvals: owned}
	if collector != nil {
		collector.Alloc(closureSize)
		collector.CheckGC()
		for _, v := range owned {
			if ref := v.AsCollectable(); ref != nil {
				collector.WriteBarrier(c, ref)
			}
		}
	}
	return c
}

// IsScript reports whether this is a script closure.
func (c *Closure) IsScript() bool { return c.proto != nil }

// Prototype returns the script closure's prototype, or nil for a foreign
// closure.
func (c *Closure) Prototype() Prototype { return c.proto }

// Foreign returns the foreign closure's function, or nil for a script
// closure.
func (c *Closure) Foreign() ForeignFunc { return c.foreign }

// NumUpvalues returns how many upvalues this closure owns.
func (c *Closure) NumUpvalues() int {
	if c.foreign != nil {
		return len(c.foreignUpvals)
	}
	return len(c.scriptUpvals)
}

// Upvalue returns the i-th upvalue's current value (0-based), or nil if i
// is out of range.
func (c *Closure) Upvalue(i int) value.Value {
	if c.foreign != nil {
		if i < 0 || i >= len(c.foreignUpvals) {
			return value.Nil
		}
		return c.foreignUpvals[i]
	}
	if i < 0 || i >= len(c.scriptUpvals) {
		return value.Nil
	}
	return c.scriptUpvals[i].Get()
}

// SetUpvalue writes the i-th upvalue (0-based).
func (c *Closure) SetUpvalue(i int, v value.Value) error {
	if c.foreign != nil {
		if i < 0 || i >= len(c.foreignUpvals) {
			return ErrUpvalueRange
		}
		c.foreignUpvals[i] = v
		return nil
	}
	if i < 0 || i >= len(c.scriptUpvals) {
		return ErrUpvalueRange
	}
	return c.scriptUpvals[i].Set(v)
}
