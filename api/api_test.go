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
	"testing"

	"github.com/tosca-rt/corevm/closure"
	"github.com/tosca-rt/corevm/protect"
	"github.com/tosca-rt/corevm/value"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	s, err := NewState()
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	return s
}

func TestPushPopNumberRoundTrip(t *testing.T) {
	s := newTestState(t)
	if err := s.PushNumber(42); err != nil {
		t.Fatalf("PushNumber: %v", err)
	}
	f, ok := s.ToNumber(-1)
	if !ok || f != 42 {
		t.Fatalf("ToNumber = (%v, %v), want (42, true)", f, ok)
	}
	if err := s.Pop(1); err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if got := s.GetTop(); got != 0 {
		t.Fatalf("GetTop after Pop = %d, want 0", got)
	}
}

func TestPushStringInternsAndRoundTrips(t *testing.T) {
	s := newTestState(t)
	if err := s.PushString([]byte("hello")); err != nil {
		t.Fatalf("PushString: %v", err)
	}
	b, ok := s.ToString(-1)
	if !ok || string(b) != "hello" {
		t.Fatalf("ToString = (%q, %v)", b, ok)
	}
}

func TestRawSetGetRoundTrip(t *testing.T) {
	s := newTestState(t)
	if err := s.CreateTable(0, 0); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := s.PushString([]byte("k")); err != nil {
		t.Fatalf("PushString key: %v", err)
	}
	if err := s.PushNumber(7); err != nil {
		t.Fatalf("PushNumber value: %v", err)
	}
	if err := s.RawSet(-3); err != nil {
		t.Fatalf("RawSet: %v", err)
	}
	if err := s.PushString([]byte("k")); err != nil {
		t.Fatalf("PushString key again: %v", err)
	}
	if err := s.RawGet(-2); err != nil {
		t.Fatalf("RawGet: %v", err)
	}
	f, ok := s.ToNumber(-1)
	if !ok || f != 7 {
		t.Fatalf("ToNumber after RawGet = (%v, %v), want (7, true)", f, ok)
	}
}

func TestConcatEmptyAndSingle(t *testing.T) {
	s := newTestState(t)
	if err := s.Concat(0); err != nil {
		t.Fatalf("Concat(0): %v", err)
	}
	b, ok := s.ToString(-1)
	if !ok || len(b) != 0 {
		t.Fatalf("Concat(0) = (%q, %v), want empty string", b, ok)
	}
	s.Pop(1)

	if err := s.PushString([]byte("solo")); err != nil {
		t.Fatalf("PushString: %v", err)
	}
	if err := s.Concat(1); err != nil {
		t.Fatalf("Concat(1): %v", err)
	}
	b, ok = s.ToString(-1)
	if !ok || string(b) != "solo" {
		t.Fatalf("Concat(1) = (%q, %v), want (solo, true)", b, ok)
	}
}

func TestConcatJoinsMultipleStrings(t *testing.T) {
	s := newTestState(t)
	s.PushString([]byte("a"))
	s.PushString([]byte("b"))
	s.PushString([]byte("c"))
	if err := s.Concat(3); err != nil {
		t.Fatalf("Concat(3): %v", err)
	}
	b, ok := s.ToString(-1)
	if !ok || string(b) != "abc" {
		t.Fatalf("Concat(3) = (%q, %v), want (abc, true)", b, ok)
	}
}

// T8: after a failed PCall, gettop equals its pre-call value minus nargs,
// and the sole new value is the error object.
func TestPCallRestoresStackToSingleErrorObject(t *testing.T) {
	s := newTestState(t)
	boom := closure.NewForeign(func(h closure.StackHandle) (int, error) {
		protect.Raise(value.Number(99))
		return 0, nil
	}, nil, nil)

	preTop := s.GetTop()
	if err := s.PushClosure(boom); err != nil {
		t.Fatalf("PushClosure: %v", err)
	}
	s.PushNumber(1)
	s.PushNumber(2)

	cerr := s.PCall(2, 0, nil)
	if cerr == nil {
		t.Fatalf("PCall = nil, want a CallError")
	}
	if got, want := s.GetTop(), preTop+1; got != want {
		t.Fatalf("GetTop after failed PCall = %d, want %d", got, want)
	}
	f, ok := s.ToNumber(-1)
	if !ok || f != 99 {
		t.Fatalf("error object = (%v, %v), want (99, true)", f, ok)
	}
}

func TestPCallSuccessLeavesNoErrorObject(t *testing.T) {
	s := newTestState(t)
	noop := closure.NewForeign(func(h closure.StackHandle) (int, error) {
		return 0, nil
	}, nil, nil)
	s.PushClosure(noop)
	if cerr := s.PCall(0, 0, nil); cerr != nil {
		t.Fatalf("PCall = %v, want nil", cerr)
	}
	if got := s.GetTop(); got != 0 {
		t.Fatalf("GetTop after successful PCall = %d, want 0", got)
	}
}

// Calling a non-function value under PCall reports a descriptive string
// error object, not a bare nil one.
func TestPCallOnNonCallableReportsDescriptiveError(t *testing.T) {
	s := newTestState(t)
	s.PushNumber(1)
	cerr := s.PCall(0, 0, nil)
	if cerr == nil {
		t.Fatalf("PCall = nil, want a CallError")
	}
	msg, ok := s.ToString(-1)
	if !ok || len(msg) == 0 {
		t.Fatalf("error object = (%q, %v), want a non-empty string", msg, ok)
	}
}

func TestTypeOfAndRawEqual(t *testing.T) {
	s := newTestState(t)
	s.PushNil()
	s.PushBool(true)
	s.PushNumber(1)
	if got := s.TypeOf(-3); got != value.TagNil {
		t.Fatalf("TypeOf(nil) = %v", got)
	}
	if got := s.TypeOf(-2); got != value.TagBool {
		t.Fatalf("TypeOf(bool) = %v", got)
	}
	s.PushNumber(1)
	if !s.RawEqual(-1, -2) {
		t.Fatalf("RawEqual(1, 1) = false, want true")
	}
}
