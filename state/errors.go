// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

// ConstError is a sentinel error type, matching the teacher's errors.go
// pattern.
type ConstError string

func (e ConstError) Error() string { return string(e) }

const (
	// ErrOnlyMainThreadCloses guards GlobalState.Close: only the universe's
	// original thread may tear it down (spec.md §4.4).
	ErrOnlyMainThreadCloses ConstError = "only the main thread may close the state"
	// ErrCrossUniverseMove guards XMove: both threads must share a
	// GlobalState.
	ErrCrossUniverseMove ConstError = "cannot move values between threads of different states"
	// ErrNotATable is returned when a pseudo-index replace (registry or
	// globals) is attempted with a non-table value.
	ErrNotATable ConstError = "value is not a table"
	// ErrInvalidPseudoIndex covers writes to an upvalue pseudo-index when
	// no foreign closure is running, writes to ENVIRON_INDEX, which this
	// runtime exposes as read-only (there is no stdlib surface to give a
	// distinguished environment slot meaning beyond aliasing the globals
	// table), and an invalid index passed to Remove or Insert. A write to an
	// out-of-range upvalue of a running foreign closure reports
	// closure.ErrUpvalueRange instead.
	ErrInvalidPseudoIndex ConstError = "invalid pseudo-index"
	// ErrNotCallable is returned by Call when the value at the callee slot
	// is not a closure.
	ErrNotCallable ConstError = "attempt to call a non-function value"
	// ErrNoDispatcher is returned by Call for a script closure when the
	// state was built without a registered Dispatcher.
	ErrNoDispatcher ConstError = "no dispatcher configured for script calls"
	// ErrRuntime is the status-only-no-error fallback for a dispatcher that
	// reports StatusError without an accompanying error value.
	ErrRuntime ConstError = "runtime error"
	// ErrStackUnderflow is returned by Call when fewer than nargs+1 values
	// are available below top.
	ErrStackUnderflow ConstError = "not enough values on the stack for call"
)
