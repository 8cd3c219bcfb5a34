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

import (
	"github.com/tosca-rt/corevm/protect"
	"github.com/tosca-rt/corevm/state"
)

// MultiResult re-exports state.MultiResult: passing it as nresults to Call
// or PCall keeps every result the callee produced instead of truncating or
// padding to a fixed count.
const MultiResult = state.MultiResult

// ErrFunc re-exports protect.ErrFunc so callers of PCall don't need to
// import the protect package directly.
type ErrFunc = protect.ErrFunc

// CallError re-exports protect.Error, the failure report of PCall.
type CallError = protect.Error

// Call invokes the closure sitting nargs+1 below the top of the stack,
// unprotected: a runtime error or a raised value unwinds past this call
// entirely (spec.md §6's call). Use PCall to contain a failure instead.
func (s *State) Call(nargs, nresults int) error {
	return s.thread.Call(nargs, nresults)
}

// PCall invokes the closure sitting nargs+1 below the top of the stack
// under protection (spec.md §6's pcall / §7). On success the stack is left
// exactly as Call would leave it. On failure every value pushed by the
// attempted call — including the callee and its arguments — is discarded
// and replaced by a single error object, so gettop() after a failed PCall
// always equals gettop() before it, minus nargs.
func (s *State) PCall(nargs, nresults int, errfunc ErrFunc) *CallError {
	preTop := s.thread.Top()
	funcPos := preTop - nargs - 1

	perr := protect.Call(s.thread, nargs, nresults, errfunc)
	if perr == nil {
		return nil
	}
	// protect.Call already restored the thread to its pre-call depth and
	// top; funcPos..preTop-1 still hold the discarded callee and arguments.
	// PCall's job is the stack-visible half of the contract: replace them
	// with the single error object.
	_ = s.thread.SetTop(funcPos)
	_ = s.thread.Push(perr.Value)
	return perr
}

// Error raises the value on top of the stack as the current error object
// (spec.md §6's error()). It never returns: control passes to the nearest
// enclosing PCall via protect.Raise.
func (s *State) Error() {
	v := s.thread.Pop()
	protect.Raise(v)
}
