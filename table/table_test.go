// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package table

import (
	"fmt"
	"testing"

	"pgregory.net/rand"

	"github.com/tosca-rt/corevm/strpool"
	"github.com/tosca-rt/corevm/value"
)

func mustSet(t *testing.T, tbl *Table, k, v value.Value) {
	t.Helper()
	if err := tbl.Set(k, v); err != nil {
		t.Fatalf("Set(%v, %v): %v", k, v, err)
	}
}

// T1: get reflects the last value set, absent keys return nil.
func TestGetReflectsLastSet(t *testing.T) {
	tbl := New(0, 0, nil)
	mustSet(t, tbl, value.Number(1), value.Number(10))
	mustSet(t, tbl, value.Number(1), value.Number(20))
	if got := tbl.Get(value.Number(1)); got.AsNumber() != 20 {
		t.Fatalf("got %v, want 20", got)
	}
	if got := tbl.Get(value.Number(999)); !got.IsNil() {
		t.Fatalf("absent key: got %v, want nil", got)
	}
}

// T2: Next visits every binding exactly once; value-only mutation doesn't
// change the visited key set.
func TestNextVisitsEachBindingOnce(t *testing.T) {
	tbl := New(0, 0, nil)
	pool := strpool.NewPool(nil)
	keys := []value.Value{
		value.Number(1),
		value.Number(2),
		value.FromCollectable(pool.Intern([]byte("a"))),
		value.FromCollectable(pool.Intern([]byte("b"))),
		value.Bool(true),
	}
	for i, k := range keys {
		mustSet(t, tbl, k, value.Number(float64(i)))
	}

	seen := map[string]bool{}
	cur := value.Nil
	for {
		k, _, ok, err := tbl.Next(cur)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		seen[fmt.Sprint(k)] = true
		cur = k
	}
	if len(seen) != len(keys) {
		t.Fatalf("visited %d bindings, want %d", len(seen), len(keys))
	}

	// perturb values only
	for i, k := range keys {
		mustSet(t, tbl, k, value.Number(float64(i*100)))
	}
	seen2 := map[string]bool{}
	cur = value.Nil
	for {
		k, _, ok, err := tbl.Next(cur)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		seen2[fmt.Sprint(k)] = true
		cur = k
	}
	if len(seen2) != len(seen) {
		t.Fatalf("second traversal visited %d keys, want %d", len(seen2), len(seen))
	}
}

// T3: integer keys within [1, ArraySize] always resolve through the array
// part (checked indirectly: growing the table never relocates an existing
// in-range integer key to a different apparent value).
func TestArrayPartHoldsInRangeIntegerKeys(t *testing.T) {
	tbl := New(0, 0, nil)
	for i := int64(1); i <= 64; i++ {
		mustSet(t, tbl, value.Number(float64(i)), value.Number(float64(i*2)))
	}
	if tbl.ArraySize() < 32 {
		t.Fatalf("expected array part to have grown, size=%d", tbl.ArraySize())
	}
	for i := int64(1); i <= 64; i++ {
		if got := tbl.GetNum(i); got.AsNumber() != float64(i*2) {
			t.Fatalf("GetNum(%d) = %v, want %d", i, got, i*2)
		}
	}
}

// T4: setnum followed by rawgeti (here GetNum) returns the set value.
func TestSetNumGetNum(t *testing.T) {
	tbl := New(0, 0, nil)
	for i := int64(1); i <= 10; i++ {
		if err := tbl.SetNum(i, value.Number(float64(i))); err != nil {
			t.Fatalf("SetNum(%d): %v", i, err)
		}
	}
	for i := int64(1); i <= 10; i++ {
		if got := tbl.GetNum(i); got.AsNumber() != float64(i) {
			t.Fatalf("GetNum(%d) = %v, want %d", i, got, i)
		}
	}
}

func TestSetRejectsNilAndNaN(t *testing.T) {
	tbl := New(0, 0, nil)
	if err := tbl.Set(value.Nil, value.Number(1)); err != ErrNilKey {
		t.Fatalf("Set(nil, _) = %v, want ErrNilKey", err)
	}
	nan := value.Number(0)
	nan = value.Number(nanValue())
	if err := tbl.Set(nan, value.Number(1)); err != ErrNaNKey {
		t.Fatalf("Set(NaN, _) = %v, want ErrNaNKey", err)
	}
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

// Scenario 1: boundary with a hole.
func TestLenWithHole(t *testing.T) {
	tbl := New(0, 0, nil)
	mustSet(t, tbl, value.Number(1), value.Number(10))
	mustSet(t, tbl, value.Number(2), value.Number(20))
	mustSet(t, tbl, value.Number(3), value.Number(30))
	mustSet(t, tbl, value.Number(5), value.Number(50))

	n := tbl.Len()
	if n != 3 && n != 5 {
		t.Fatalf("Len() = %d, want 3 or 5", n)
	}

	mustSet(t, tbl, value.Number(4), value.Number(40))
	if got := tbl.Len(); got != 5 {
		t.Fatalf("Len() after filling hole = %d, want 5", got)
	}

	mustSet(t, tbl, value.Number(3), value.Nil)
	n2 := tbl.Len()
	if n2 != 2 && n2 != 5 {
		t.Fatalf("Len() after re-opening hole = %d, want 2 or 5", n2)
	}
}

// Scenario 2: rehash preserves bindings across interleaved integer and
// string keys.
func TestRehashPreservesBindings(t *testing.T) {
	tbl := New(0, 0, nil)
	pool := strpool.NewPool(nil)
	rng := rand.New(1)

	type op struct {
		isStr bool
		i     int
		s     string
	}
	var ops []op
	for i := 1; i <= 1000; i++ {
		ops = append(ops, op{i: i})
		ops = append(ops, op{isStr: true, s: fmt.Sprintf("k%d", i)})
	}
	rng.Shuffle(len(ops), func(i, j int) { ops[i], ops[j] = ops[j], ops[i] })

	for _, o := range ops {
		if o.isStr {
			var idx int
			fmt.Sscanf(o.s, "k%d", &idx)
			mustSet(t, tbl, value.FromCollectable(pool.Intern([]byte(o.s))), value.Number(float64(idx)))
		} else {
			mustSet(t, tbl, value.Number(float64(o.i)), value.Number(float64(o.i)))
		}
	}

	for i := 1; i <= 1000; i++ {
		if got := tbl.GetNum(int64(i)); got.AsNumber() != float64(i) {
			t.Fatalf("GetNum(%d) = %v, want %d", i, got, i)
		}
		key := fmt.Sprintf("k%d", i)
		if got := tbl.GetStr(pool.Intern([]byte(key))); got.AsNumber() != float64(i) {
			t.Fatalf("GetStr(%q) = %v, want %d", key, got, i)
		}
	}
}

func TestStringKeysInternToSameReference(t *testing.T) {
	pool := strpool.NewPool(nil)
	a := pool.Intern([]byte("abc"))
	b := pool.Intern([]byte("abc"))
	if a != b {
		t.Fatalf("Intern returned distinct references for equal content")
	}
	tbl := New(0, 0, nil)
	mustSet(t, tbl, value.FromCollectable(a), value.Number(42))
	if got := tbl.GetStr(b); got.AsNumber() != 42 {
		t.Fatalf("GetStr via second interned reference = %v, want 42", got)
	}
}
