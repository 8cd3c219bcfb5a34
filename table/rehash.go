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
	"unsafe"

	"github.com/tosca-rt/corevm/value"
)

// maxBits bounds the hash part at 2^maxBits slots (I2).
const maxBits = 26

const maxArraySize = 1 << maxBits

// rehash grows the table to fit its current contents plus one additional
// key (the one that triggered the rehash), per spec.md §4.1's rehash
// algorithm: count integer keys per power-of-two bucket across both
// parts, pick the array size with at least 50% load, and move everything.
func (t *Table) rehash(extraKey value.Value) error {
	var nums [maxBits + 1]int

	naSize := t.numUseArray(nums[:])
	totalUse := naSize

	hashUse, extraFromHash := t.numUseHash(nums[:])
	totalUse += hashUse
	naSize += extraFromHash

	if countInt(extraKey, nums[:]) {
		naSize++
	}
	totalUse++

	newArraySize, na := computeSizes(nums[:], naSize)
	return t.resize(newArraySize, totalUse-na)
}

// numUseArray counts non-nil array-part elements, bucketing each by
// ceil(log2(index)) into nums.
func (t *Table) numUseArray(nums []int) int {
	ause := 0
	i := 1
	ttlg := 1
	for lg := 0; lg <= maxBits; lg++ {
		lim := ttlg
		if lim > len(t.array) {
			lim = len(t.array)
			if i > lim {
				break
			}
		}
		lc := 0
		for ; i <= lim; i++ {
			if !t.array[i-1].IsNil() {
				lc++
			}
		}
		nums[lg] += lc
		ause += lc
		ttlg *= 2
	}
	return ause
}

// numUseHash counts non-nil hash-part elements, returning the total count
// and, via countInt, how many of them are integer keys (added into nums
// for the array-sizing decision below).
func (t *Table) numUseHash(nums []int) (totalUse, integerKeys int) {
	for i := len(t.hash) - 1; i >= 0; i-- {
		n := &t.hash[i]
		if !n.val.IsNil() {
			if countInt(n.key, nums) {
				integerKeys++
			}
			totalUse++
		}
	}
	return totalUse, integerKeys
}

// countInt buckets k into nums[ceil(log2(k))] if k is a usable
// array-index key, reporting whether it counted.
func countInt(k value.Value, nums []int) bool {
	ik, ok := arrayIndex(k)
	if ok && ik > 0 && ik <= maxArraySize {
		nums[ceilLog2(ik)]++
		return true
	}
	return false
}

// computeSizes picks the array part's new size: the largest power of two
// n such that more than half of the slots 1..n hold integer keys. na is
// how many of narray's counted keys fall within that chosen size.
func computeSizes(nums []int, narray int) (n, na int) {
	a := 0
	twotoi := 1
	for i := 0; i <= maxBits && twotoi/2 < narray; i++ {
		if nums[i] > 0 {
			a += nums[i]
			if a > twotoi/2 {
				n = twotoi
				na = a
			}
		}
		if a == narray {
			break
		}
		twotoi *= 2
	}
	return n, na
}

// ceilLog2 returns the smallest e such that 1<<e >= x.
func ceilLog2(x int) int {
	e := 0
	sz := 1
	for sz < x {
		sz <<= 1
		e++
	}
	return e
}

// resize grows or shrinks both parts to the given sizes, migrating every
// surviving binding: array elements that no longer fit move to the hash
// part; hash elements are reinserted from scratch into the fresh hash
// part. Order: the array part grows first, then the hash part is replaced
// by a fresh one, then the array part shrinks (moving its spilled elements
// into the new hash part), and the old hash elements are reinserted last.
func (t *Table) resize(newArraySize, newHashSize int) error {
	oldArraySize := len(t.array)
	oldHash := t.hash

	if newArraySize > oldArraySize {
		t.setArrayVector(newArraySize)
	}
	if err := t.setNodeVector(newHashSize); err != nil {
		return err
	}

	if newArraySize < oldArraySize {
		spilled := append([]value.Value(nil), t.array[newArraySize:oldArraySize]...)
		t.array = t.array[:newArraySize]
		for i, v := range spilled {
			if !v.IsNil() {
				if err := t.SetNum(int64(newArraySize+i+1), v); err != nil {
					return err
				}
			}
		}
	}

	for i := len(oldHash) - 1; i >= 0; i-- {
		n := oldHash[i]
		if !n.val.IsNil() {
			if err := t.Set(n.key, n.val); err != nil {
				return err
			}
		}
	}
	return nil
}

// setArrayVector grows the array part to at least n slots, padding with
// Nil. It never shrinks; resize handles shrinking separately so the
// spilled elements can be migrated to the hash part first.
func (t *Table) setArrayVector(n int) {
	if n <= len(t.array) {
		return
	}
	delta := n - len(t.array)
	grown := make([]value.Value, n)
	copy(grown, t.array)
	for i := len(t.array); i < n; i++ {
		grown[i] = value.Nil
	}
	t.array = grown
	if t.collector != nil {
		t.collector.Alloc(delta * int(unsafe.Sizeof(value.Value{})))
	}
}

// setNodeVector replaces the hash part outright with a fresh one sized to
// the next power of two >= size (0 if size is 0, matching the empty-hash
// sentinel of spec.md §4.1: a zero-length hash slice needs no nil check
// on the hot path, the same role the C implementation's dummynode plays).
func (t *Table) setNodeVector(size int) error {
	if size == 0 {
		t.hash = nil
		t.lastFree = 0
		return nil
	}
	lsize := ceilLog2(size)
	if lsize > maxBits {
		return ErrTableOverflow
	}
	size = 1 << lsize
	h := make([]hNode, size)
	for i := range h {
		h[i].next = -1
	}
	old := len(t.hash)
	t.hash = h
	t.lastFree = size
	if t.collector != nil && size > old {
		t.collector.Alloc((size - old) * int(unsafe.Sizeof(hNode{})))
	}
	return nil
}
