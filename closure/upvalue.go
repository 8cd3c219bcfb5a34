// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package closure implements script and foreign closures and the open/
// closed upvalue cells they share, per spec.md §4.3.
package closure

import (
	"unsafe"

	"github.com/tosca-rt/corevm/value"
)

// StackSlot is implemented by anything an open upvalue can read and write
// through — in practice a *stack.Stack. Declared as an interface here
// rather than importing the stack package directly, since stack frames are
// torn down by the same call that closes upvalues and a direct import would
// create a cycle with the thread that owns both.
type StackSlot interface {
	Get(idx int) value.Value
	Set(idx int, v value.Value) error
}

// Upvalue is a cell referencing a script local. While Open it is a window
// onto a slot in the owning stack; once Closed (the owning frame has
// returned) it holds a private copy.
type Upvalue struct {
	owner StackSlot
	index int // 1-based stack index within owner; meaningful only while open
	value value.Value
	open  bool

	prev, next *Upvalue // descending-index-ordered open list, see OpenList
}

// GCTag implements value.Collectable.
func (*Upvalue) GCTag() value.Tag { return value.TagUpvalue }

// Address implements value.Collectable.
func (u *Upvalue) Address() uintptr { return uintptr(unsafe.Pointer(u)) }

func newOpen(owner StackSlot, index int) *Upvalue {
	return &Upvalue{owner: owner, index: index, open: true}
}

// IsOpen reports whether u still windows onto a live stack slot.
func (u *Upvalue) IsOpen() bool { return u.open }

// Get returns the upvalue's current value, through the stack if open.
func (u *Upvalue) Get() value.Value {
	if u.open {
		return u.owner.Get(u.index)
	}
	return u.value
}

// Set writes through to the stack if open, or to the private copy once
// closed.
func (u *Upvalue) Set(v value.Value) error {
	if u.open {
		return u.owner.Set(u.index, v)
	}
	u.value = v
	return nil
}

// Close copies the current value out of the stack and unlinks u from its
// OpenList; called when the frame that owns u's slot returns.
func (u *Upvalue) Close() {
	if !u.open {
		return
	}
	u.value = u.owner.Get(u.index)
	u.open = false
	u.owner = nil
	u.unlink()
}

func (u *Upvalue) unlink() {
	if u.prev != nil {
		u.prev.next = u.next
	}
	if u.next != nil {
		u.next.prev = u.prev
	}
	u.prev, u.next = nil, nil
}

// OpenList is the open-upvalue list: every open cell currently windowing
// onto some thread's stack, kept sorted by descending slot index so a
// closure capturing a local already captured by another closure finds and
// shares the existing cell instead of creating a second one (spec.md §4.3).
type OpenList struct {
	head Upvalue // sentinel; head.next is the highest-index open cell
}

// NewOpenList returns an empty list.
func NewOpenList() *OpenList {
	l := &OpenList{}
	l.head.next = &l.head
	l.head.prev = &l.head
	return l
}

// FindOrCreate returns the open upvalue for owner's slot index, creating
// and linking a fresh one if no existing closure shares that slot.
func (l *OpenList) FindOrCreate(owner StackSlot, index int) *Upvalue {
	cur := l.head.next
	for cur != &l.head && cur.index > index {
		cur = cur.next
	}
	if cur != &l.head && cur.index == index && cur.owner == owner {
		return cur
	}
	u := newOpen(owner, index)
	u.next = cur
	u.prev = cur.prev
	cur.prev.next = u
	cur.prev = u
	return u
}

// CloseFrom closes and unlinks every open upvalue owned by owner at or
// above index — called when a frame whose locals start at index returns.
func (l *OpenList) CloseFrom(owner StackSlot, index int) {
	cur := l.head.next
	for cur != &l.head {
		next := cur.next
		if cur.owner == owner && cur.index >= index {
			cur.Close()
		}
		cur = next
	}
}

// CloseAll closes and unlinks every open upvalue regardless of owner,
// called once when the owning universe shuts down (spec.md §4.4: "close
// all upvalues of all threads").
func (l *OpenList) CloseAll() {
	cur := l.head.next
	for cur != &l.head {
		next := cur.next
		cur.Close()
		cur = next
	}
}
