// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package stack

import (
	"testing"

	"github.com/tosca-rt/corevm/value"
)

// T6: stack growth preserves values; pushing many distinct integers then
// popping them yields LIFO order, and intermediate CheckStack calls do not
// perturb already-pushed values.
func TestGrowthPreservesLIFOOrder(t *testing.T) {
	s := New(0)
	const n = 10000
	for i := 0; i < n; i++ {
		if i%64 == 0 {
			if err := s.CheckStack(64); err != nil {
				t.Fatalf("CheckStack: %v", err)
			}
		}
		if err := s.Push(value.Number(float64(i))); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}
	for i := n - 1; i >= 0; i-- {
		got := s.Pop()
		if got.AsNumber() != float64(i) {
			t.Fatalf("Pop() = %v, want %d", got, i)
		}
	}
}

// Scenario 5: stack growth stability. Obtain the index of a value, force a
// grow, and confirm the value is still readable at the same index.
func TestGrowthStability(t *testing.T) {
	s := New(0)
	if err := s.Push(value.Number(42)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	idx := s.Len() // positive index (1-based) of the value just pushed
	if err := s.CheckStack(100000); err != nil {
		t.Fatalf("CheckStack: %v", err)
	}
	got := s.Get(idx)
	if got.AsNumber() != 42 {
		t.Fatalf("Get(%d) after growth = %v, want 42", idx, got)
	}
}

func TestPositiveAndNegativeIndexing(t *testing.T) {
	s := New(0)
	mustPush := func(v value.Value) {
		t.Helper()
		if err := s.Push(v); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	mustPush(value.Number(1))
	mustPush(value.Number(2))
	mustPush(value.Number(3))

	if got := s.Get(1); got.AsNumber() != 1 {
		t.Fatalf("Get(1) = %v, want 1", got)
	}
	if got := s.Get(-1); got.AsNumber() != 3 {
		t.Fatalf("Get(-1) = %v, want 3", got)
	}
	if got := s.Get(-2); got.AsNumber() != 2 {
		t.Fatalf("Get(-2) = %v, want 2", got)
	}

	// reading above top yields the shared nil sentinel, not an error
	if got := s.Get(50); !got.IsNil() {
		t.Fatalf("Get(50) = %v, want nil", got)
	}
}

func TestSetTopGrowAndTruncate(t *testing.T) {
	s := New(0)
	if err := s.SetTop(5); err != nil {
		t.Fatalf("SetTop(5): %v", err)
	}
	if s.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", s.Len())
	}
	for i := 1; i <= 5; i++ {
		if got := s.Get(i); !got.IsNil() {
			t.Fatalf("Get(%d) after grow = %v, want nil", i, got)
		}
	}
	if err := s.Set(3, value.Number(99)); err != nil {
		t.Fatalf("Set(3): %v", err)
	}
	if err := s.SetTop(-3); err != nil { // discard top 2 values (settop(-3) == pop 2)
		t.Fatalf("SetTop(-3): %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() after truncate = %d, want 3", s.Len())
	}
	if got := s.Get(3); got.AsNumber() != 99 {
		t.Fatalf("Get(3) after truncate = %v, want 99", got)
	}
}

func TestCallInfoPushPopRestoresBase(t *testing.T) {
	s := New(0)
	mustPush := func(v value.Value) {
		t.Helper()
		if err := s.Push(v); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	mustPush(value.Number(0)) // pretend callee slot
	funcIdx := s.Top() - 1
	outerBase := s.Base()

	ci := s.PushCallInfo(funcIdx)
	if ci.Base != funcIdx+1 {
		t.Fatalf("CallInfo.Base = %d, want %d", ci.Base, funcIdx+1)
	}
	if s.Base() != ci.Base {
		t.Fatalf("Base() = %d, want %d", s.Base(), ci.Base)
	}

	s.PopCallInfo()
	if s.Base() != outerBase {
		t.Fatalf("Base() after pop = %d, want %d", s.Base(), outerBase)
	}
}

func TestReuseCallInfoTailCall(t *testing.T) {
	s := New(0)
	s.Push(value.Number(0))
	first := s.Top() - 1
	ci := s.PushCallInfo(first)
	_ = ci

	s.Push(value.Number(0))
	second := s.Top() - 1
	tailCI := s.ReuseCallInfo(second)
	if !tailCI.IsTail {
		t.Fatalf("ReuseCallInfo: IsTail = false, want true")
	}
	if tailCI.TailCalls != 1 {
		t.Fatalf("TailCalls = %d, want 1", tailCI.TailCalls)
	}
	if s.Depth() != 2 {
		t.Fatalf("Depth() = %d, want 2 (tail call does not nest)", s.Depth())
	}
}

func TestAcquireReleaseResets(t *testing.T) {
	s := Acquire()
	s.Push(value.Number(7))
	Release(s)

	s2 := Acquire()
	if s2.Len() != 0 {
		t.Fatalf("Len() after Release/Acquire = %d, want 0", s2.Len())
	}
}
