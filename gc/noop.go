// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package gc

import (
	"github.com/dsnet/golib/unitconv"

	"github.com/tosca-rt/corevm/value"
)

// Noop is a Collector that tracks a running byte total (for Count /
// CountRemainder) but never actually collects anything. It lets the
// runtime operate standalone — in tests, in the cmd/lvmctl CLI, and in any
// embedder that has not wired in a real collector — without special-casing
// a nil collector everywhere.
type Noop struct {
	bytes int64
	pause int
	step  int
}

// NewNoop returns a ready-to-use no-op collector.
func NewNoop() *Noop {
	return &Noop{pause: 100, step: 100}
}

func (n *Noop) CheckGC()                            {}
func (n *Noop) WriteBarrier(_, _ value.Collectable) {}
func (n *Noop) ObjectBarrier(_ value.Collectable)   {}
func (n *Noop) Alloc(size int)                      { n.bytes += int64(size) }

func (n *Noop) Free(size int) {
	n.bytes -= int64(size)
	if n.bytes < 0 {
		n.bytes = 0
	}
}

func (n *Noop) Control(sel Selector, data int) int {
	switch sel {
	case Count:
		return int(n.bytes / 1024)
	case CountRemainder:
		return int(n.bytes % 1024)
	case SetPause:
		prev := n.pause
		n.pause = data
		return prev
	case SetStepMultiplier:
		prev := n.step
		n.step = data
		return prev
	case Step:
		return 1 // a no-op collector is always "between cycles"
	default:
		return 0
	}
}

// FormatBytes renders the collector's tracked byte total using the
// teacher's own byte-size formatting dependency, for cmd/lvmctl's `status`
// command.
func (n *Noop) FormatBytes() string {
	return unitconv.FormatPrefix(float64(n.bytes), unitconv.IEC, 1) + "B"
}
