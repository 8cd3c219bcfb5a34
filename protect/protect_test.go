// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package protect

import (
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/tosca-rt/corevm/closure"
	"github.com/tosca-rt/corevm/gc"
	"github.com/tosca-rt/corevm/state"
	"github.com/tosca-rt/corevm/strpool"
	"github.com/tosca-rt/corevm/table"
	"github.com/tosca-rt/corevm/value"
)

func mustPush(t *testing.T, th *state.Thread, v value.Value) {
	t.Helper()
	if err := th.Push(v); err != nil {
		t.Fatalf("Push: %v", err)
	}
}

// T8 (lower half): a raised Value is caught and classified rather than
// crashing the host process.
func TestCallRecoversRaisedValue(t *testing.T) {
	_, main, err := state.NewState()
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	boom := closure.NewForeign(func(h closure.StackHandle) (int, error) {
		Raise(value.Number(13))
		return 0, nil
	}, nil, nil)

	preDepth := main.Depth()
	mustPush(t, main, value.FromCollectable(boom))
	if got := Call(main, 0, 0, nil); got == nil {
		t.Fatalf("Call = nil, want an Error")
	} else if got.Value.AsNumber() != 13 {
		t.Fatalf("Error.Value = %v, want 13", got.Value)
	}
	if main.Depth() != preDepth {
		t.Fatalf("Depth() after failed call = %d, want %d", main.Depth(), preDepth)
	}
}

func TestCallRecoversGoPanic(t *testing.T) {
	_, main, _ := state.NewState()
	boom := closure.NewForeign(func(h closure.StackHandle) (int, error) {
		var p *int
		_ = *p // nil dereference
		return 0, nil
	}, nil, nil)
	mustPush(t, main, value.FromCollectable(boom))
	got := Call(main, 0, 0, nil)
	if got == nil {
		t.Fatalf("Call = nil, want an Error for a Go panic")
	}
	if got.Kind != KindRuntime {
		t.Fatalf("Kind = %v, want KindRuntime", got.Kind)
	}
	if got.Value.Tag() != value.TagString {
		t.Fatalf("Value.Tag() = %v, want TagString", got.Value.Tag())
	}
	if got.Cause == nil || got.Value.AsCollectable().(*strpool.String).String() != got.Cause.Error() {
		t.Fatalf("Value = %q, want the panic's message %q", got.Value.AsCollectable(), got.Cause)
	}
}

// T8: an internal sentinel error returned by t.Call (not a raised Value)
// is also wrapped into a descriptive string, not dropped as nil.
func TestCallWrapsSentinelErrorAsStringValue(t *testing.T) {
	_, main, _ := state.NewState()
	mustPush(t, main, value.Number(1)) // not callable
	got := Call(main, 0, 0, nil)
	if got == nil {
		t.Fatalf("Call = nil, want an Error for a non-callable value")
	}
	str, ok := got.Value.AsCollectable().(*strpool.String)
	if !ok {
		t.Fatalf("Value = %v, want a string", got.Value)
	}
	if str.String() != state.ErrNotCallable.Error() {
		t.Fatalf("Value = %q, want %q", str.String(), state.ErrNotCallable.Error())
	}
}

func TestCallInvokesErrFunc(t *testing.T) {
	_, main, _ := state.NewState()
	boom := closure.NewForeign(func(h closure.StackHandle) (int, error) {
		Raise(value.Number(1))
		return 0, nil
	}, nil, nil)
	mustPush(t, main, value.FromCollectable(boom))

	wrapped := false
	errfunc := func(v value.Value) value.Value {
		wrapped = true
		return value.Number(v.AsNumber() + 100)
	}
	got := Call(main, 0, 0, errfunc)
	if !wrapped {
		t.Fatalf("errfunc was not invoked")
	}
	if got.Value.AsNumber() != 101 {
		t.Fatalf("Error.Value = %v, want 101", got.Value)
	}
}

func TestCallSuccessLeavesResultsInPlace(t *testing.T) {
	_, main, _ := state.NewState()
	echo := closure.NewForeign(func(h closure.StackHandle) (int, error) {
		return 0, nil
	}, nil, nil)
	mustPush(t, main, value.FromCollectable(echo))
	if err := Call(main, 0, 0, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
}

// Creating a foreign closure goes through the collector's write barrier for
// every collectable upvalue it owns, and the closure can then be run under a
// protected Call that raises nothing and returns normally.
func TestCalledClosureCreationGoesThroughCollectorBarrier(t *testing.T) {
	ctrl := gomock.NewController(t)
	collector := gc.NewMockCollector(ctrl)
	collector.EXPECT().Alloc(gomock.Any()).AnyTimes()
	collector.EXPECT().CheckGC().AnyTimes()
	collector.EXPECT().ObjectBarrier(gomock.Any()).AnyTimes()
	collector.EXPECT().Control(gomock.Any(), gomock.Any()).AnyTimes().Return(0)

	_, main, err := state.NewState(state.WithCollector(collector))
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	upvalTable := table.New(0, 0, collector)

	var barriered value.Collectable
	collector.EXPECT().WriteBarrier(gomock.Any(), gomock.Any()).Do(
		func(_ value.Collectable, child value.Collectable) { barriered = child },
	)

	echo := closure.NewForeign(func(h closure.StackHandle) (int, error) {
		return 0, nil
	}, []value.Value{value.FromCollectable(upvalTable)}, collector)

	mustPush(t, main, value.FromCollectable(echo))
	if err := Call(main, 0, 0, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if barriered != value.Collectable(upvalTable) {
		t.Fatalf("WriteBarrier child = %v, want the foreign closure's upvalue table", barriered)
	}
}
