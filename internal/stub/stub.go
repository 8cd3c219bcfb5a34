// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package stub provides a minimal dispatch.Dispatcher for exercising call
// mechanics without a real bytecode compiler/interpreter, neither of which
// is in scope for this runtime. Each registered program is a fixed list of
// constant Values to push as results — enough to drive Thread.Call's
// argument/result shuffling and upvalue closing end to end.
package stub

import (
	"github.com/tosca-rt/corevm/closure"
	"github.com/tosca-rt/corevm/dispatch"
	"github.com/tosca-rt/corevm/value"
)

// Program is one stub script body: push Results, ignoring any arguments
// already sitting in the frame below them.
type Program struct {
	Results []value.Value
}

// Dispatcher runs Programs keyed by their Prototype's identity.
type Dispatcher struct {
	programs map[closure.Prototype][]value.Value
}

// New returns an empty stub dispatcher.
func New() *Dispatcher {
	return &Dispatcher{programs: make(map[closure.Prototype][]value.Value)}
}

// Bind associates p with the constant results its Prototype should
// "return" whenever dispatched.
func (d *Dispatcher) Bind(p closure.Prototype, results []value.Value) {
	d.programs[p] = results
}

// Run implements dispatch.Dispatcher: it pushes the bound results above
// the current frame's base and reports StatusReturn.
func (d *Dispatcher) Run(t dispatch.Thread, p closure.Prototype, c *closure.Closure, savedPC int) (dispatch.Status, int, error) {
	results, ok := d.programs[p]
	if !ok {
		return dispatch.StatusReturn, 0, nil
	}
	for _, v := range results {
		if err := t.Push(v); err != nil {
			return dispatch.StatusError, 0, err
		}
	}
	return dispatch.StatusReturn, 0, nil
}
