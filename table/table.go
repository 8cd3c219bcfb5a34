// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package table implements the hybrid array/hash container described in
// spec.md §4.1: a dense array part for small positive-integer keys and a
// chained-scatter hash part (Brent's variation) for everything else.
package table

import (
	"math"
	"unsafe"

	"github.com/tosca-rt/corevm/gc"
	"github.com/tosca-rt/corevm/internal/numeric"
	"github.com/tosca-rt/corevm/strpool"
	"github.com/tosca-rt/corevm/value"
)

// tableSize is the nominal byte cost charged to the collector for a
// Table's header, independent of its array and hash parts (setArrayVector
// and setNodeVector charge those separately, both for New's size hints and
// on each rehash).
const tableSize = 64

// hNode is one slot of the hash part: a (key, value) binding plus the
// index of the next node in its chain, or -1 if it is the chain's tail.
type hNode struct {
	key  value.Value
	val  value.Value
	next int
	dead bool // see MarkDead
}

// Table is the hybrid array+hash container. The zero value is not usable;
// construct with New.
type Table struct {
	array     []value.Value // logical key i lives at array[i-1]
	hash      []hNode       // len(hash) is 0 or a power of two <= 2^maxBits
	lastFree  int           // descending free-slot cursor into hash
	meta      *Table
	metaFlags uint8 // per-key metamethod-presence cache, see Flags
	collector gc.Collector
}

func (*Table) GCTag() value.Tag   { return value.TagTable }
func (t *Table) Address() uintptr { return uintptr(unsafe.Pointer(t)) }

// New creates a table with the given starting capacity hints. Either may
// be zero. collector may be nil, in which case the table is untracked (see
// closure.NewScript for the same convention).
func New(narray, nhash int, collector gc.Collector) *Table {
	t := &Table{metaFlags: 0xFF, collector: collector}
	if narray > 0 {
		t.setArrayVector(narray)
	}
	// setNodeVector never fails for the bounded sizes a fresh table is
	// constructed with; an overflow can only arise from later rehashes.
	_ = t.setNodeVector(nhash)
	if collector != nil {
		collector.Alloc(tableSize)
		collector.CheckGC()
	}
	return t
}

// ArraySize reports the current capacity of the array part (I1).
func (t *Table) ArraySize() int { return len(t.array) }

// HashSize reports the current capacity of the hash part (I2): 0 or a
// power of two.
func (t *Table) HashSize() int { return len(t.hash) }

// Metatable returns the table's associated metatable, or nil.
func (t *Table) Metatable() *Table { return t.meta }

// SetMetatable installs m (possibly nil) as the table's metatable.
func (t *Table) SetMetatable(m *Table) { t.meta = m }

// Flags returns the per-key metamethod-presence cache bits.
func (t *Table) Flags() uint8 { return t.metaFlags }

// SetFlags updates the cache bits (callers set bit i to remember "no
// metamethod i" for fast negative lookups).
func (t *Table) SetFlags(f uint8) { t.metaFlags = f }

// Get returns t[k], or Nil if absent. Never fails: an absent or
// inappropriate key simply yields Nil (I4).
func (t *Table) Get(k value.Value) value.Value {
	if k.IsNil() {
		return value.Nil
	}
	if ik, ok := arrayIndex(k); ok {
		return t.GetNum(int64(ik))
	}
	return t.getHash(k)
}

// GetNum is the specialized fast path for an already-known integer key.
func (t *Table) GetNum(i int64) value.Value {
	if i >= 1 && i <= int64(len(t.array)) {
		return t.array[i-1]
	}
	return t.getHash(value.Number(float64(i)))
}

// GetStr is the specialized fast path for an already-interned string key.
func (t *Table) GetStr(s *strpool.String) value.Value {
	return t.getHash(value.FromCollectable(s))
}

func (t *Table) getHash(k value.Value) value.Value {
	if idx, found := t.findHash(k); found {
		return t.hash[idx].val
	}
	return value.Nil
}

// Set binds t[k] = v, creating the binding if absent. Set(k, Nil) removes
// the binding (I4: nil value is absent). Fails if k is nil or NaN (I5).
func (t *Table) Set(k, v value.Value) error {
	if k.IsNil() {
		return ErrNilKey
	}
	if k.Tag() == value.TagNumber && math.IsNaN(k.AsNumber()) {
		return ErrNaNKey
	}
	ref, err := t.locate(k)
	if err != nil {
		return err
	}
	if ref.isArray {
		t.array[ref.idx] = v
	} else {
		t.hash[ref.idx].val = v
	}
	if t.collector != nil && v.AsCollectable() != nil {
		t.collector.ObjectBarrier(t)
	}
	return nil
}

// SetNum is the specialized fast path for an integer key.
func (t *Table) SetNum(i int64, v value.Value) error {
	return t.Set(value.Number(float64(i)), v)
}

// SetStr is the specialized fast path for an interned string key.
func (t *Table) SetStr(s *strpool.String, v value.Value) error {
	return t.Set(value.FromCollectable(s), v)
}

// slotRef names a binding's current location. It is only ever used
// within a single Set call: growing the hash part rehashes and
// invalidates every previously computed slotRef, exactly as spec.md §4.1
// warns. Nothing outside this package ever sees one.
type slotRef struct {
	isArray bool
	idx     int
}

// locate returns the slot for k, creating one if absent. k must already
// have passed the nil/NaN checks in Set.
func (t *Table) locate(k value.Value) (slotRef, error) {
	if ik, ok := arrayIndex(k); ok && ik >= 1 && ik <= len(t.array) {
		return slotRef{isArray: true, idx: ik - 1}, nil
	}
	if idx, found := t.findHash(k); found {
		return slotRef{isArray: false, idx: idx}, nil
	}
	return t.newKey(k)
}

// findHash looks for k in the hash part's chain at its main position.
func (t *Table) findHash(k value.Value) (int, bool) {
	if len(t.hash) == 0 {
		return 0, false
	}
	idx := t.mainPosition(k)
	for idx != -1 {
		if value.RawEqual(t.hash[idx].key, k) {
			return idx, true
		}
		idx = t.hash[idx].next
	}
	return 0, false
}

// newKey inserts a new binding for k using Brent's variation on chained
// scatter (spec.md §4.1 step 1-4): place k at its main position if free;
// otherwise relocate a displaced occupant out of the way, or claim a free
// slot and splice it into the chain. Rehashes and retries when the hash
// part has no free slot left.
func (t *Table) newKey(k value.Value) (slotRef, error) {
	if len(t.hash) == 0 {
		if err := t.rehash(k); err != nil {
			return slotRef{}, err
		}
		return t.locate(k)
	}

	mp := t.mainPosition(k)
	target := mp
	if !t.hash[mp].key.IsNil() {
		n := t.getFreePos()
		if n < 0 {
			if err := t.rehash(k); err != nil {
				return slotRef{}, err
			}
			return t.locate(k)
		}
		otherMain := t.mainPosition(t.hash[mp].key)
		if otherMain != mp {
			// The occupant of mp is a displaced member of some other
			// chain; move it to the free slot n and reclaim mp for k.
			prev := otherMain
			for t.hash[prev].next != mp {
				prev = t.hash[prev].next
			}
			t.hash[prev].next = n
			t.hash[n] = t.hash[mp]
			t.hash[mp] = hNode{next: -1}
			target = mp
		} else {
			// The occupant is at its own main position; k goes into the
			// free slot n, spliced into mp's chain.
			t.hash[n].next = t.hash[mp].next
			t.hash[mp].next = n
			target = n
		}
	}
	t.hash[target].key = k
	t.hash[target].val = value.Nil
	t.hash[target].dead = false
	t.metaFlags = 0 // table shape changed; forget cached metamethod absence
	if t.collector != nil {
		t.collector.CheckGC()
		if k.AsCollectable() != nil {
			t.collector.ObjectBarrier(t)
		}
	}
	return slotRef{isArray: false, idx: target}, nil
}

// getFreePos returns a free hash slot by scanning lastFree downward, or -1
// if none remain.
func (t *Table) getFreePos() int {
	for t.lastFree > 0 {
		t.lastFree--
		if t.hash[t.lastFree].key.IsNil() {
			return t.lastFree
		}
	}
	return -1
}

// MarkDead marks the key at the given hash slot as dead: its value is
// cleared (so further Get/Set/Next treat the binding as absent) but the
// key itself is left in place so an in-progress Next scan can still
// resolve "same key" by identity. Intended to be invoked by the collector
// seam when a collectable key becomes unreachable except through an
// iterator holding it (spec.md §9, "Dead keys"); reclaiming the key's
// storage itself is the collector's responsibility, out of scope here.
func (t *Table) MarkDead(hashIdx int) {
	t.hash[hashIdx].dead = true
	t.hash[hashIdx].val = value.Nil
}

// mainPosition computes the main position of k in the hash part, which
// must be non-empty.
func (t *Table) mainPosition(k value.Value) int {
	capacity := len(t.hash)
	switch k.Tag() {
	case value.TagNumber:
		mask := uint64(capacity-1) | 1
		return int(numeric.FoldFloat64(k.AsNumber()) % mask)
	case value.TagString:
		s := k.AsCollectable().(*strpool.String)
		return int(s.Hash() & uint64(capacity-1))
	case value.TagBool:
		var v uint64
		if k.AsBool() {
			v = 1
		}
		return int(v & uint64(capacity-1))
	case value.TagLightPtr:
		mask := uint64(capacity-1) | 1
		return int(numeric.FoldUintptr(k.AsLightPtr()) % mask)
	default:
		mask := uint64(capacity-1) | 1
		addr := k.AsCollectable().Address()
		return int(numeric.FoldUintptr(addr) % mask)
	}
}

// arrayIndex reports whether k is an integer key that could live in the
// array part, regardless of whether it currently fits within ArraySize().
func arrayIndex(k value.Value) (int, bool) {
	if k.Tag() != value.TagNumber {
		return 0, false
	}
	ik, ok := value.IsExactInteger(k.AsNumber())
	if !ok || ik < math.MinInt32 || ik > math.MaxInt32 {
		return 0, false
	}
	return int(ik), true
}

// Len returns a boundary: any integer n such that t[n] != nil and
// t[n+1] == nil, or 0 if t[1] == nil. With holes in the integer-key
// domain more than one such n may exist; which one is returned is
// unspecified but deterministic (spec.md §9, open question).
func (t *Table) Len() int {
	j := len(t.array)
	if j > 0 && t.array[j-1].IsNil() {
		i := 0
		for j-i > 1 {
			m := (i + j) / 2
			if t.array[m-1].IsNil() {
				j = m
			} else {
				i = m
			}
		}
		return i
	}
	if len(t.hash) == 0 {
		return j
	}
	return t.unboundSearch(j)
}

func (t *Table) unboundSearch(start int) int {
	i := uint64(start)
	j := i + 1
	for !t.GetNum(int64(j)).IsNil() {
		i = j
		j *= 2
		if j > math.MaxInt32 {
			// Pathological table; fall back to a linear scan.
			i = 1
			for !t.GetNum(int64(i)).IsNil() {
				i++
			}
			return int(i - 1)
		}
	}
	for j-i > 1 {
		m := (i + j) / 2
		if t.GetNum(int64(m)).IsNil() {
			j = m
		} else {
			i = m
		}
	}
	return int(i)
}

// Next yields the binding following k in the iteration order defined by
// I7: array part in index order, then hash part in slot order. Passing
// Nil starts a fresh traversal; ok is false once the traversal is
// exhausted.
func (t *Table) Next(k value.Value) (key, val value.Value, ok bool, err error) {
	start, err := t.findIndex(k)
	if err != nil {
		return value.Nil, value.Nil, false, err
	}
	i := start + 1
	for ; i < len(t.array); i++ {
		if !t.array[i].IsNil() {
			return value.Number(float64(i + 1)), t.array[i], true, nil
		}
	}
	hi := i - len(t.array)
	for ; hi < len(t.hash); hi++ {
		if !t.hash[hi].val.IsNil() {
			return t.hash[hi].key, t.hash[hi].val, true, nil
		}
	}
	return value.Nil, value.Nil, false, nil
}

// findIndex resolves k to its position in the combined array-then-hash
// index space used by Next, or -1 for the start-of-traversal sentinel.
func (t *Table) findIndex(k value.Value) (int, error) {
	if k.IsNil() {
		return -1, nil
	}
	if ik, ok := arrayIndex(k); ok && ik >= 1 && ik <= len(t.array) {
		return ik - 1, nil
	}
	if len(t.hash) == 0 {
		return 0, ErrInvalidNextKey
	}
	idx := t.mainPosition(k)
	for idx != -1 {
		n := &t.hash[idx]
		if value.RawEqual(n.key, k) || (n.dead && sameCollectable(n.key, k)) {
			return idx + len(t.array), nil
		}
		idx = n.next
	}
	return 0, ErrInvalidNextKey
}

func sameCollectable(a, b value.Value) bool {
	if a.Tag() != b.Tag() {
		return false
	}
	ac, bc := a.AsCollectable(), b.AsCollectable()
	if ac == nil || bc == nil {
		return false
	}
	return ac.Address() == bc.Address()
}
