// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package api is the external, stack-oriented embedding surface of
// spec.md §6: one State per thread, every operation addressing values by
// 1-based positive index from the current frame's base, negative index
// from top, or a reserved pseudo-index for the registry/globals/upvalues.
package api

import (
	"github.com/tosca-rt/corevm/dispatch"
	"github.com/tosca-rt/corevm/gc"
	"github.com/tosca-rt/corevm/state"
)

// State wraps a single thread of a universe with the conceptual embedding
// API spec.md §6 names (newstate, newthread, checkstack, gettop/settop,
// push*/to*, ...). Every method here is atomic with respect to other
// threads of the same universe by construction: it only ever touches this
// thread's own stack, or takes the universe's coarse lock by delegating to
// state.GlobalState methods that already do.
type State struct {
	global *state.GlobalState
	thread *state.Thread
}

// Option re-exports state.Option so callers configuring a new universe
// don't need to import the state package directly.
type Option = state.Option

// WithCollector installs a custom gc.Collector on the new universe.
func WithCollector(c gc.Collector) Option { return state.WithCollector(c) }

// WithDispatcher selects the registered bytecode dispatcher for script
// calls.
func WithDispatcher(name string) Option { return state.WithDispatcher(name) }

// WithMaxStack overrides the per-thread stack growth ceiling.
func WithMaxStack(n int) Option { return state.WithMaxStack(n) }

// NewState creates a fresh universe and returns a State for its main
// thread (spec.md §6's newstate).
func NewState(opts ...Option) (*State, error) {
	g, main, err := state.NewState(opts...)
	if err != nil {
		return nil, err
	}
	return &State{global: g, thread: main}, nil
}

// NewThread creates a new thread sharing s's universe (spec.md §6's
// newthread).
func (s *State) NewThread() *State {
	return &State{global: s.global, thread: s.global.NewThread()}
}

// Close tears down the whole universe; only the State returned by NewState
// may call it (spec.md §4.4).
func (s *State) Close() error {
	return s.global.Close(s.thread)
}

// CheckStack guarantees n additional free slots in the current frame.
func (s *State) CheckStack(n int) error {
	return s.thread.CheckStack(n)
}

// RegisterDispatcher exposes dispatch.Register so an embedder can wire in a
// bytecode interpreter before calling WithDispatcher.
func RegisterDispatcher(name string, d dispatch.Dispatcher) {
	dispatch.Register(name, d)
}
