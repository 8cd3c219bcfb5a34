// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package state implements the thread/global-state lifecycle of spec.md
// §4.4: one GlobalState per runtime universe, shared string pool and
// registry, per-type metatables, and any number of Thread objects sharing
// that universe. Grounded directly on original_source/lstate.c's
// f_luaopen/luaE_newthread/lua_newstate/lua_close sequencing.
package state

import (
	"fmt"
	"sync"

	"github.com/tosca-rt/corevm/closure"
	"github.com/tosca-rt/corevm/dispatch"
	"github.com/tosca-rt/corevm/gc"
	"github.com/tosca-rt/corevm/stack"
	"github.com/tosca-rt/corevm/strpool"
	"github.com/tosca-rt/corevm/table"
	"github.com/tosca-rt/corevm/value"
)

// numTags sizes the per-type metatable array; value.Tag is a small dense
// enum, so a flat array beats a map on the lookup every raw operation on a
// table/string/etc. needs to perform.
const numTags = int(value.TagUpvalue) + 1

// GlobalState is the shared universe one or more Threads live in: the
// string pool, registry table, per-type default metatables, the GC seam
// and the open-upvalue list all live here rather than per-thread
// (original_source/lstate.c's global_State, folded into the main thread's
// allocation in the C original — kept as its own Go value here since Go has
// no analogue to "allocate the two structs adjacently").
type GlobalState struct {
	// mu is the coarse per-universe lock spec.md §5 calls for: this runtime
	// does not support concurrent execution of two threads of the same
	// state. It is taken by NewThread and Close; registry and globals
	// replacement through Thread.Set, and every other Thread method, run
	// without it (the string pool has its own mutex). Running bytecode
	// inside a single thread's Call is not guarded by it — that's governed by the (out-of-scope) interpreter
	// loop's own discipline.
	mu sync.Mutex

	strings    *strpool.Pool
	registry   *table.Table
	globals    *table.Table
	metatables [numTags]*table.Table
	collector  gc.Collector
	dispatcher dispatch.Dispatcher
	openList   *closure.OpenList
	memErrMsg  *strpool.String

	mainThread *Thread
	threads    []*Thread

	maxStack int
	closed   bool
}

// Option configures a GlobalState at construction; see NewState.
type Option func(*options)

type options struct {
	collector      gc.Collector
	dispatcherName string
	maxStack       int
}

// WithCollector installs a custom gc.Collector. Defaults to gc.NewNoop().
func WithCollector(c gc.Collector) Option {
	return func(o *options) { o.collector = c }
}

// WithDispatcher selects the registered dispatch.Dispatcher script calls
// are handed off to. Leaving it unset is valid as long as the program never
// calls a script closure (foreign-only embeddings, or tests exercising
// table/stack/closure mechanics directly).
func WithDispatcher(name string) Option {
	return func(o *options) { o.dispatcherName = name }
}

// WithMaxStack overrides the per-thread stack growth ceiling. Defaults to
// stack.DefaultMaxStackSize.
func WithMaxStack(n int) Option {
	return func(o *options) { o.maxStack = n }
}

// NewState creates a fresh universe with its main thread, grounded on
// lstate.c's f_luaopen: a registry table, a globals table, and the
// pinned out-of-memory message string that must survive even a collector
// too starved to allocate a fresh one.
func NewState(opts ...Option) (*GlobalState, *Thread, error) {
	cfg := options{collector: gc.NewNoop(), maxStack: stack.DefaultMaxStackSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	g := &GlobalState{
		strings:   strpool.NewPool(cfg.collector),
		collector: cfg.collector,
		openList:  closure.NewOpenList(),
		maxStack:  cfg.maxStack,
	}
	if cfg.dispatcherName != "" {
		d, ok := dispatch.Get(cfg.dispatcherName)
		if !ok {
			return nil, nil, fmt.Errorf("state: unknown dispatcher %q", cfg.dispatcherName)
		}
		g.dispatcher = d
	}

	g.registry = table.New(0, 2, g.collector)
	g.globals = table.New(0, 2, g.collector)
	g.memErrMsg = g.strings.InternReserved("not enough memory")

	main := g.newThreadLocked()
	g.mainThread = main
	return g, main, nil
}

// threadAllocSize is the nominal byte cost charged to the collector for one
// Thread's bookkeeping, separate from the stack buffer it acquires (which
// stack.Acquire pools and reuses, rather than allocating fresh each time).
const threadAllocSize = 96

func (g *GlobalState) newThreadLocked() *Thread {
	t := &Thread{
		global:  g,
		stack:   stack.Acquire(),
		globals: g.globals,
	}
	g.threads = append(g.threads, t)
	if g.collector != nil {
		g.collector.Alloc(threadAllocSize)
		g.collector.CheckGC()
	}
	return t
}

// NewThread creates a fresh thread sharing this universe: its own stack and
// call chain, the same string pool, registry and (initially) the same
// globals table (spec.md §4.4). Threads are never explicitly destroyed
// individually; Close tears down the whole universe at once.
func (g *GlobalState) NewThread() *Thread {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.newThreadLocked()
}

// MainThread returns the thread NewState created.
func (g *GlobalState) MainThread() *Thread { return g.mainThread }

// Registry returns the shared registry table (the REGISTRY_INDEX pseudo-
// index target).
func (g *GlobalState) Registry() *table.Table { return g.registry }

// Metatable returns the default metatable currently installed for tag, or
// nil if none is set (spec.md §4.4: "per-type default metatable slots, all
// absent" at creation).
func (g *GlobalState) Metatable(tag value.Tag) *table.Table {
	if int(tag) >= numTags {
		return nil
	}
	return g.metatables[tag]
}

// SetMetatable installs mt as the default metatable for every value of the
// given tag.
func (g *GlobalState) SetMetatable(tag value.Tag, mt *table.Table) {
	if int(tag) >= numTags {
		return
	}
	g.metatables[tag] = mt
}

// Strings returns the universe's shared string pool.
func (g *GlobalState) Strings() *strpool.Pool { return g.strings }

// Collector returns the configured GC seam.
func (g *GlobalState) Collector() gc.Collector { return g.collector }

// XMove pops n values from from's top and pushes them, in order, onto
// to's top. Both threads must share a GlobalState (spec.md §4.4).
func XMove(from, to *Thread, n int) error {
	if from.global != to.global {
		return ErrCrossUniverseMove
	}
	if n == 0 {
		return nil
	}
	moved := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		moved[i] = from.stack.Pop()
	}
	for _, v := range moved {
		if err := to.stack.Push(v); err != nil {
			return err
		}
	}
	return nil
}

// Close tears down the universe: only the thread NewState returned may
// call it. It closes every open upvalue, releases every thread's stack
// buffer back to the pool, and asks the collector to reclaim everything
// else — matching lua_close/close_state's shutdown order, minus the
// userdata-finalizer-retry loop (finalizers are part of the out-of-scope
// GC, not this package).
func (g *GlobalState) Close(main *Thread) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if main != g.mainThread {
		return ErrOnlyMainThreadCloses
	}
	if g.closed {
		return nil
	}
	g.openList.CloseAll()
	for _, t := range g.threads {
		stack.Release(t.stack)
	}
	g.threads = nil
	g.collector.Control(gc.Collect, 0)
	g.closed = true
	return nil
}
