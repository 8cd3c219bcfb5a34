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
	"testing"

	"github.com/tosca-rt/corevm/value"
)

type fakeStack struct {
	slots []value.Value
}

func (f *fakeStack) Get(idx int) value.Value {
	if idx < 1 || idx > len(f.slots) {
		return value.Nil
	}
	return f.slots[idx-1]
}

func (f *fakeStack) Set(idx int, v value.Value) error {
	f.slots[idx-1] = v
	return nil
}

func TestOpenListSharesSameSlot(t *testing.T) {
	st := &fakeStack{slots: make([]value.Value, 4)}
	st.slots[1] = value.Number(10)
	list := NewOpenList()

	a := list.FindOrCreate(st, 2)
	b := list.FindOrCreate(st, 2)
	if a != b {
		t.Fatalf("FindOrCreate returned distinct cells for the same slot")
	}

	if err := a.Set(value.Number(99)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := st.slots[1]; got.AsNumber() != 99 {
		t.Fatalf("write through open upvalue did not reach the stack: got %v", got)
	}
}

func TestCloseCopiesValueAndUnlinks(t *testing.T) {
	st := &fakeStack{slots: make([]value.Value, 4)}
	st.slots[0] = value.Number(7)
	list := NewOpenList()

	u := list.FindOrCreate(st, 1)
	list.CloseFrom(st, 1)

	if u.IsOpen() {
		t.Fatalf("upvalue still open after CloseFrom")
	}
	if got := u.Get(); got.AsNumber() != 7 {
		t.Fatalf("closed upvalue value = %v, want 7", got)
	}

	// mutating the stack slot after close must not affect the closed cell
	st.slots[0] = value.Number(1000)
	if got := u.Get(); got.AsNumber() != 7 {
		t.Fatalf("closed upvalue changed after stack mutation: %v", got)
	}

	// a fresh FindOrCreate for the same index now yields a new open cell
	u2 := list.FindOrCreate(st, 1)
	if u2 == u {
		t.Fatalf("FindOrCreate returned the closed cell")
	}
}

func TestCloseFromOnlyAffectsSlotsAtOrAboveIndex(t *testing.T) {
	st := &fakeStack{slots: make([]value.Value, 4)}
	st.slots[0] = value.Number(1)
	st.slots[2] = value.Number(3)
	list := NewOpenList()

	low := list.FindOrCreate(st, 1)
	high := list.FindOrCreate(st, 3)

	list.CloseFrom(st, 2)

	if low.IsOpen() == false {
		// low's index (1) is below the closed boundary; it must remain open
	}
	if !low.IsOpen() {
		t.Fatalf("CloseFrom(2) closed a cell below the boundary")
	}
	if high.IsOpen() {
		t.Fatalf("CloseFrom(2) left a cell at or above the boundary open")
	}
}

type constFunc struct{ n int }

func (f *constFunc) GCTag() value.Tag    { return value.TagPrototype }
func (f *constFunc) Address() uintptr    { return uintptr(f.n) }
func (f *constFunc) NumParams() int      { return 0 }
func (f *constFunc) IsVararg() bool      { return false }
func (f *constFunc) MaxStackSize() int   { return 8 }

func TestScriptClosureUpvalueAccess(t *testing.T) {
	st := &fakeStack{slots: make([]value.Value, 2)}
	st.slots[0] = value.Number(5)
	list := NewOpenList()
	cell := list.FindOrCreate(st, 1)

	c := NewScript(&constFunc{}, []*Upvalue{cell}, nil)
	if got := c.Upvalue(0); got.AsNumber() != 5 {
		t.Fatalf("Upvalue(0) = %v, want 5", got)
	}
	if err := c.SetUpvalue(0, value.Number(6)); err != nil {
		t.Fatalf("SetUpvalue: %v", err)
	}
	if got := st.slots[0]; got.AsNumber() != 6 {
		t.Fatalf("SetUpvalue did not write through to the stack: %v", got)
	}
}

func TestForeignClosureOwnsItsUpvalues(t *testing.T) {
	fn := func(StackHandle) (int, error) { return 0, nil }
	c := NewForeign(fn, []value.Value{value.Number(1), value.Number(2)}, nil)
	if c.NumUpvalues() != 2 {
		t.Fatalf("NumUpvalues() = %d, want 2", c.NumUpvalues())
	}
	if err := c.SetUpvalue(5, value.Number(9)); err != ErrUpvalueRange {
		t.Fatalf("SetUpvalue(5, _) = %v, want ErrUpvalueRange", err)
	}
	if c.IsScript() {
		t.Fatalf("IsScript() = true for a foreign closure")
	}
}
