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
	"github.com/tosca-rt/corevm/strpool"
	"github.com/tosca-rt/corevm/table"
	"github.com/tosca-rt/corevm/value"
)

// CreateTable pushes a fresh table pre-sized for narr array slots and nrec
// hash slots (spec.md §6's createtable).
func (s *State) CreateTable(narr, nrec int) error {
	t := table.New(narr, nrec, s.global.Collector())
	return s.thread.Push(value.FromCollectable(t))
}

func (s *State) tableAt(idx int) (*table.Table, error) {
	v, err := s.thread.Get(idx)
	if err != nil {
		return nil, err
	}
	t, ok := v.AsCollectable().(*table.Table)
	if !ok {
		return nil, ErrNotATable
	}
	return t, nil
}

// RawGet reads t[k] without metamethod dispatch (spec.md §6's rawget); k
// is the value on top of the stack, popped, and the result is pushed in
// its place.
func (s *State) RawGet(idx int) error {
	t, err := s.tableAt(idx)
	if err != nil {
		return err
	}
	k := s.thread.Pop()
	return s.thread.Push(t.Get(k))
}

// RawGetI reads t[n] (spec.md §6's rawgeti) and pushes the result.
func (s *State) RawGetI(idx int, n int64) error {
	t, err := s.tableAt(idx)
	if err != nil {
		return err
	}
	return s.thread.Push(t.GetNum(n))
}

// RawSet writes t[k] = v, popping both k and v from the top of the stack
// (spec.md §6's rawset).
func (s *State) RawSet(idx int) error {
	t, err := s.tableAt(idx)
	if err != nil {
		return err
	}
	v := s.thread.Pop()
	k := s.thread.Pop()
	return t.Set(k, v)
}

// RawSetI writes t[n] = v, popping v from the top of the stack (spec.md
// §6's rawseti).
func (s *State) RawSetI(idx int, n int64) error {
	t, err := s.tableAt(idx)
	if err != nil {
		return err
	}
	v := s.thread.Pop()
	return t.SetNum(n, v)
}

// GetField reads t[name] and pushes the result (spec.md §6's getfield).
// Metamethod dispatch is part of the stdlib surface and out of scope; this
// is a raw access keyed by an interned string.
func (s *State) GetField(idx int, name string) error {
	t, err := s.tableAt(idx)
	if err != nil {
		return err
	}
	key := s.global.Strings().Intern([]byte(name))
	return s.thread.Push(t.Get(value.FromCollectable(key)))
}

// SetField writes t[name] = v, popping v from the top of the stack
// (spec.md §6's setfield).
func (s *State) SetField(idx int, name string) error {
	t, err := s.tableAt(idx)
	if err != nil {
		return err
	}
	v := s.thread.Pop()
	key := s.global.Strings().Intern([]byte(name))
	return t.Set(value.FromCollectable(key), v)
}

// ObjLen returns the table's border length (spec.md §6's objlen; for
// strings it is simply byte length).
func (s *State) ObjLen(idx int) int {
	v, err := s.thread.Get(idx)
	if err != nil {
		return 0
	}
	switch v.Tag() {
	case value.TagTable:
		return v.AsCollectable().(*table.Table).Len()
	case value.TagString:
		return v.AsCollectable().(*strpool.String).Len()
	default:
		return 0
	}
}

// Next pushes the next key/value pair following the key on top of the
// stack (popped first), returning false once iteration is exhausted
// (spec.md §6's next).
func (s *State) Next(idx int) (bool, error) {
	t, err := s.tableAt(idx)
	if err != nil {
		return false, err
	}
	cur := s.thread.Pop()
	k, v, ok, err := t.Next(cur)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := s.thread.Push(k); err != nil {
		return false, err
	}
	if err := s.thread.Push(v); err != nil {
		return false, err
	}
	return true, nil
}

// GetMetatable returns the table's per-instance metatable if set, falling
// back to the universe's per-type default (spec.md §4.4/§6).
func (s *State) GetMetatable(idx int) (*table.Table, bool) {
	v, err := s.thread.Get(idx)
	if err != nil {
		return nil, false
	}
	if v.Tag() == value.TagTable {
		if mt := v.AsCollectable().(*table.Table).Metatable(); mt != nil {
			return mt, true
		}
	}
	mt := s.global.Metatable(v.Tag())
	return mt, mt != nil
}

// SetMetatable installs the table on top of the stack (popped) as idx's
// per-instance metatable; idx must be a table (spec.md §6's setmetatable).
func (s *State) SetMetatable(idx int) error {
	t, err := s.tableAt(idx)
	if err != nil {
		return err
	}
	v := s.thread.Pop()
	if v.IsNil() {
		t.SetMetatable(nil)
		return nil
	}
	mt, ok := v.AsCollectable().(*table.Table)
	if !ok {
		return ErrNotATable
	}
	t.SetMetatable(mt)
	return nil
}

// Concat pops the top n values and pushes their byte concatenation as a
// single interned string (spec.md §6's concat / T10). concat(0) pushes the
// empty string; concat(1) is a no-op.
func (s *State) Concat(n int) error {
	if n == 0 {
		return s.PushString(nil)
	}
	parts := make([][]byte, n)
	for i := n - 1; i >= 0; i-- {
		v := s.thread.Pop()
		str, ok := v.AsCollectable().(*strpool.String)
		if v.Tag() != value.TagString || !ok {
			return ErrConcatNonString
		}
		parts[i] = str.Bytes()
	}
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	buf := make([]byte, 0, total)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return s.PushString(buf)
}
