// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package proto defines the compiled-function descriptor that script
// closures reference. The bytecode format and the compiler that produces
// it are out of scope; Prototype only carries the handful of fields the
// calling convention in stack/state needs (spec.md §4.2 step 2: "adjusting
// for vararg via adjust_varargs", "top = base + max_stack_needed").
package proto

import (
	"unsafe"

	"github.com/tosca-rt/corevm/value"
)

// Prototype is a compiled function's static descriptor: how many fixed
// parameters it takes, whether it accepts extra varargs, and how many
// stack slots its frame needs. A real compiler would also attach the
// bytecode array, constant table and debug line info; those live entirely
// behind the dispatch seam (package dispatch) and are not this package's
// concern.
type Prototype struct {
	name         string
	numParams    int
	isVararg     bool
	maxStackSize int
}

// New builds a Prototype with the given calling-convention shape.
func New(name string, numParams int, isVararg bool, maxStackSize int) *Prototype {
	return &Prototype{name: name, numParams: numParams, isVararg: isVararg, maxStackSize: maxStackSize}
}

// GCTag implements value.Collectable.
func (*Prototype) GCTag() value.Tag { return value.TagPrototype }

// Address implements value.Collectable.
func (p *Prototype) Address() uintptr { return uintptr(unsafe.Pointer(p)) }

// Name returns the prototype's debug name (e.g. for error messages).
func (p *Prototype) Name() string { return p.name }

// NumParams returns the number of fixed (non-vararg) parameters.
func (p *Prototype) NumParams() int { return p.numParams }

// IsVararg reports whether calls with more than NumParams arguments
// collect the extras rather than erroring.
func (p *Prototype) IsVararg() bool { return p.isVararg }

// MaxStackSize returns how many stack slots above base this function's
// frame requires.
func (p *Prototype) MaxStackSize() int { return p.maxStackSize }
