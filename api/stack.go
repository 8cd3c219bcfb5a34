// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package api

import (
	"github.com/tosca-rt/corevm/closure"
	"github.com/tosca-rt/corevm/value"
)

// GetTop returns the number of live values in the current frame.
func (s *State) GetTop() int { return s.thread.Top() }

// SetTop grows or truncates the current frame to n values, or for n < 0
// discards -n-1 values from the top.
func (s *State) SetTop(n int) error { return s.thread.SetTop(n) }

// Pop discards the top n values (spec.md §6's pop(n), equivalent to
// settop(-(n)-1)).
func (s *State) Pop(n int) error { return s.thread.SetTop(-n - 1) }

// PushNil pushes the nil value.
func (s *State) PushNil() error { return s.thread.Push(value.Nil) }

// PushBool pushes a boolean.
func (s *State) PushBool(b bool) error { return s.thread.Push(value.Bool(b)) }

// PushNumber pushes a number.
func (s *State) PushNumber(f float64) error { return s.thread.Push(value.Number(f)) }

// PushInteger pushes an integer, represented as a number (spec.md §3:
// there is no separate integer tag).
func (s *State) PushInteger(i int64) error { return s.thread.Push(value.Number(float64(i))) }

// PushLightPtr pushes an opaque, non-collectable foreign pointer.
func (s *State) PushLightPtr(addr uintptr) error { return s.thread.Push(value.LightPtr(addr)) }

// PushString interns b in the universe's string pool and pushes the
// result.
func (s *State) PushString(b []byte) error {
	str := s.global.Strings().Intern(b)
	return s.thread.Push(value.FromCollectable(str))
}

// PushClosure pushes an already-built closure value (script or foreign).
func (s *State) PushClosure(c *closure.Closure) error {
	return s.thread.Push(value.FromCollectable(c))
}

// PushValue pushes a copy of the value at idx.
func (s *State) PushValue(idx int) error {
	v, err := s.thread.Get(idx)
	if err != nil {
		return err
	}
	return s.thread.Push(v)
}

// Remove deletes the value at idx, shifting values above it down.
func (s *State) Remove(idx int) error { return s.thread.Remove(idx) }

// Insert moves the top value to idx, shifting values at or above it up.
func (s *State) Insert(idx int) error { return s.thread.Insert(idx) }

// Replace pops the top value and writes it to idx.
func (s *State) Replace(idx int) error { return s.thread.Replace(idx) }

// ToNumber returns the value at idx as a float64, or (0, false) if it is
// not a number.
func (s *State) ToNumber(idx int) (float64, bool) {
	v, err := s.thread.Get(idx)
	if err != nil || v.Tag() != value.TagNumber {
		return 0, false
	}
	return v.AsNumber(), true
}

// ToInteger returns the value at idx as an int64 if it round-trips exactly
// through float64 (spec.md §3: numbers have no separate integer
// representation; tointeger is a conversion, not a tag test).
func (s *State) ToInteger(idx int) (int64, bool) {
	f, ok := s.ToNumber(idx)
	if !ok {
		return 0, false
	}
	return value.IsExactInteger(f)
}

// ToBool returns the value at idx's truthiness (spec.md: nil and false are
// false, everything else is true — this mirrors lua_toboolean, not a
// type-strict bool accessor).
func (s *State) ToBool(idx int) bool {
	v, err := s.thread.Get(idx)
	if err != nil {
		return false
	}
	return v.Truthy()
}

// ToString returns the value at idx's bytes if it is a string.
func (s *State) ToString(idx int) ([]byte, bool) {
	v, err := s.thread.Get(idx)
	if err != nil || v.Tag() != value.TagString {
		return nil, false
	}
	return v.AsCollectable().(interface{ Bytes() []byte }).Bytes(), true
}

// ToClosure returns the value at idx if it is a closure.
func (s *State) ToClosure(idx int) (*closure.Closure, bool) {
	v, err := s.thread.Get(idx)
	if err != nil || v.Tag() != value.TagClosure {
		return nil, false
	}
	c, ok := v.AsCollectable().(*closure.Closure)
	return c, ok
}

// TypeOf reports the dynamic type tag of the value at idx.
func (s *State) TypeOf(idx int) value.Tag {
	v, err := s.thread.Get(idx)
	if err != nil {
		return value.TagNil
	}
	return v.Tag()
}

// RawEqual reports whether the values at i and j are raw-equal (spec.md
// §3; no metamethod dispatch — metamethods are stdlib-layer and out of
// scope).
func (s *State) RawEqual(i, j int) bool {
	a, errA := s.thread.Get(i)
	b, errB := s.thread.Get(j)
	if errA != nil || errB != nil {
		return false
	}
	return value.RawEqual(a, b)
}
