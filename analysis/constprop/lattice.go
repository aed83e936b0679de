// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package constprop

import (
	"go/constant"
	"go/token"
)

type valueKind int

const (
	// uninitialized is the bottom of the lattice: no fact has reached the
	// value yet.
	uninitialized valueKind = iota

	// constantKind means the value is the single constant held alongside.
	constantKind

	// varying is the top of the lattice: the value takes more than one runtime
	// value, or cannot be reasoned about.
	varying
)

// A ConstantValue is the fact attached to one IR value: uninitialized,
// a single known constant, or varying. The lattice has height two, so joins
// always terminate.
type ConstantValue struct {
	kind  valueKind
	value constant.Value
}

// Uninitialized returns the bottom element.
func Uninitialized() ConstantValue { return ConstantValue{} }

// Varying returns the top element.
func Varying() ConstantValue { return ConstantValue{kind: varying} }

// NewConstant returns the element holding the single constant v.
func NewConstant(v constant.Value) ConstantValue {
	return ConstantValue{kind: constantKind, value: v}
}

// IsUninitialized reports whether no fact has reached the value.
func (c ConstantValue) IsUninitialized() bool { return c.kind == uninitialized }

// IsConstant reports whether the value is a single known constant.
func (c ConstantValue) IsConstant() bool { return c.kind == constantKind }

// IsVarying reports whether the value is known to not be a single constant.
func (c ConstantValue) IsVarying() bool { return c.kind == varying }

// Constant returns the held constant, nil unless IsConstant.
func (c ConstantValue) Constant() constant.Value {
	if c.kind != constantKind {
		return nil
	}
	return c.value
}

// Join returns the least upper bound: two distinct constants join to varying.
func (c ConstantValue) Join(other ConstantValue) ConstantValue {
	switch {
	case c.kind == uninitialized:
		return other
	case other.kind == uninitialized:
		return c
	case c.kind == varying || other.kind == varying:
		return Varying()
	case sameConstant(c.value, other.value):
		return c
	default:
		return Varying()
	}
}

// Meet returns the greatest lower bound, the dual of Join.
func (c ConstantValue) Meet(other ConstantValue) ConstantValue {
	switch {
	case c.kind == varying:
		return other
	case other.kind == varying:
		return c
	case c.kind == uninitialized || other.kind == uninitialized:
		return Uninitialized()
	case sameConstant(c.value, other.value):
		return c
	default:
		return Uninitialized()
	}
}

// Equal reports whether both elements hold the same fact.
func (c ConstantValue) Equal(other ConstantValue) bool {
	if c.kind != other.kind {
		return false
	}
	if c.kind != constantKind {
		return true
	}
	return sameConstant(c.value, other.value)
}

func (c ConstantValue) String() string {
	switch c.kind {
	case uninitialized:
		return "<uninitialized>"
	case varying:
		return "<varying>"
	default:
		return c.value.String()
	}
}

func sameConstant(a, b constant.Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if a.Kind() == constant.Bool {
		return constant.BoolVal(a) == constant.BoolVal(b)
	}
	return constant.Compare(a, token.EQL, b)
}
