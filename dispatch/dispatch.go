// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package dispatch defines the seam between the runtime core and the
// bytecode interpreter loop. The interpreter itself — opcode decoding,
// the lexer and the compiler that feed it — is explicitly out of scope;
// this package only fixes the contract a script call hands control across
// (spec.md §4.2 step 4: "transfer control to the bytecode interpreter,
// which returns when it encounters RETURN at this frame").
package dispatch

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/tosca-rt/corevm/closure"
	"github.com/tosca-rt/corevm/value"
)

// Status reports how a dispatched frame ended.
type Status int

const (
	// StatusReturn: the frame completed normally; results occupy the stack
	// above the frame's base as left by the dispatcher.
	StatusReturn Status = iota
	// StatusError: a runtime error propagated out of the frame.
	StatusError
	// StatusYield: the thread suspended (coroutines are an Open Question
	// in spec.md §9 — reserved here, not otherwise used).
	StatusYield
)

func (s Status) String() string {
	switch s {
	case StatusReturn:
		return "return"
	case StatusError:
		return "error"
	case StatusYield:
		return "yield"
	default:
		return "unknown"
	}
}

// Thread is the minimal slice of the owning thread a Dispatcher needs:
// enough to read/write the active frame's stack window and resolve
// upvalues, without exposing the rest of the state machinery.
type Thread interface {
	Get(idx int) (value.Value, error)
	Set(idx int, v value.Value) error
	Push(v value.Value) error
	Top() int
	Base() int
}

// Dispatcher executes a single script activation record until it returns,
// errors or yields. Registered implementations plug in a real bytecode
// interpreter; internal/stub provides a trivial one exercised by this
// repository's own tests.
type Dispatcher interface {
	// Run executes proto's code for thread t starting at savedPC, returning
	// the status the frame ended with and the PC to resume at (meaningful
	// only for StatusYield).
	Run(t Thread, p closure.Prototype, c *closure.Closure, savedPC int) (Status, int, error)
}

var registry = map[string]Dispatcher{}

// Register binds name to d. Panics on a duplicate name or a nil
// Dispatcher, matching the teacher's vm registry package's init-time
// registration discipline.
func Register(name string, d Dispatcher) {
	if d == nil {
		panic("dispatch: nil Dispatcher for " + name)
	}
	if _, exists := registry[name]; exists {
		panic("dispatch: duplicate Dispatcher for " + name)
	}
	registry[name] = d
}

// Get looks up a previously registered Dispatcher by name.
func Get(name string) (Dispatcher, bool) {
	d, ok := registry[name]
	return d, ok
}

// Names returns every registered Dispatcher name in sorted order, for
// diagnostics (cmd/lvmctl's status command).
func Names() []string {
	names := maps.Keys(registry)
	slices.Sort(names)
	return names
}
