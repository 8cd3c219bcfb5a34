// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package numeric holds small bit-twiddling helpers shared by the table's
// hashing rule and the string pool's sampling hash. It is split out of
// package table/strpool because both need the same double-to-bits folding
// discipline and neither should import the other.
package numeric

import "math"

// FoldFloat64 implements the table's numeric main-position rule: normalize
// -0 to +0, then XOR-fold the high and low 32-bit halves of the IEEE-754
// bit pattern together.
func FoldFloat64(f float64) uint64 {
	if f == 0 {
		f = 0 // normalize -0 to +0
	}
	bits := math.Float64bits(f)
	hi := uint32(bits >> 32)
	lo := uint32(bits)
	return uint64(hi ^ lo)
}

// FoldUintptr folds a pointer-sized address down to a uint64 hash input,
// used for light-pointer and reference keys (§4.1: "pointer bits mod
// (capacity-1)|1").
func FoldUintptr(addr uintptr) uint64 {
	return uint64(addr)
}

// SampleHash computes the string pool's long-string hash: an FNV-1 style
// accumulation (multiply, then XOR) over a length-bounded sample of the
// bytes, taking every `step`-th byte for long strings so hashing stays O(1)-ish
// regardless of string length (§4.6).
func SampleHash(b []byte) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	step := 1
	if len(b) > 32 {
		step = len(b) / 32
		if step == 0 {
			step = 1
		}
	}
	for i := 0; i < len(b); i += step {
		h *= prime64
		h ^= uint64(b[i])
	}
	return h
}
