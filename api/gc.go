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

import "github.com/tosca-rt/corevm/gc"

// GCSelector re-exports gc.Selector so callers don't need to import the gc
// package directly for the control constants.
type GCSelector = gc.Selector

const (
	GCStop              = gc.Stop
	GCRestart           = gc.Restart
	GCCollect           = gc.Collect
	GCCount             = gc.Count
	GCCountRemainder    = gc.CountRemainder
	GCStep              = gc.Step
	GCSetPause          = gc.SetPause
	GCSetStepMultiplier = gc.SetStepMultiplier
)

// GC drives the universe's collector through the gc(what, data) embedding
// entry point (spec.md §6).
func (s *State) GC(what GCSelector, data int) int {
	return s.global.Collector().Control(what, data)
}
