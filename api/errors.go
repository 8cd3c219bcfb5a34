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

// ConstError is an immutable sentinel error, matching the pattern used
// throughout the runtime's lower layers.
type ConstError string

func (e ConstError) Error() string { return string(e) }

const (
	ErrNotATable       = ConstError("api: value is not a table")
	ErrConcatNonString = ConstError("api: concat operand is not a string")
	ErrNotAFunction    = ConstError("api: value is not callable")
	ErrNoErrorObject   = ConstError("api: no error object on the stack")
)
