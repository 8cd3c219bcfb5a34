// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package gc defines the interface the runtime consumes from an
// incremental mark-sweep collector. The collector's own internals are out
// of scope (spec.md §1); this package specifies only the allocation hooks,
// write barriers, and lifecycle points named in §4.7.
package gc

import "github.com/tosca-rt/corevm/value"

// Selector identifies one of the gc(what, data) control operations named
// in spec.md §6.
type Selector int

const (
	Stop Selector = iota
	Restart
	Collect
	Count           // returns total tracked bytes in KiB
	CountRemainder  // returns total tracked bytes mod 1024
	Step            // performs a step sized data x 1KiB; returns 1 iff a cycle ended
	SetPause        // returns the previous pause percent, installs the new one
	SetStepMultiplier
)

// Collector is the seam the runtime calls into at allocation points and on
// every store of a collectable reference into a collectable container. It
// is deliberately small: the collector's tri-color bookkeeping, thresholds
// and phases live entirely on the implementer's side of this interface.
type Collector interface {
	// CheckGC is invoked at allocation points to let the collector take an
	// incremental step if its thresholds say it should.
	CheckGC()

	// WriteBarrier is invoked whenever a collectable reference is stored
	// into a collectable container that the collector has already
	// observed and marked black, preserving the tri-color invariant
	// without making every write pay for a full barrier.
	WriteBarrier(container, child value.Collectable)

	// ObjectBarrier is the table-specific barrier variant (objbarrier in
	// spec.md §4.7): instead of graying the child, it moves the
	// container itself back into the gray set, which is cheaper when a
	// single table receives many writes in a row.
	ObjectBarrier(container value.Collectable)

	// Control implements the gc(what, data) embedding API entry point.
	Control(sel Selector, data int) int

	// Alloc and Free are the raw allocation hooks; every collectable
	// object is created and destroyed through them so the collector can
	// track total bytes and trigger CheckGC-driven steps.
	Alloc(size int)
	Free(size int)
}
