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

package ir

import "fmt"

// A Type is the type of an IR value. Types are plain names: the analyses in this
// module only ever compare them for equality.
type Type string

// Common types used by the builders and tests. Any other string is a valid type.
const (
	IntType  Type = "int"
	BoolType Type = "bool"
	NoneType Type = "none"
)

// A Value is an SSA value: the result of an operation or a block argument.
// Values are compared by identity; the same *OpResult or *BlockArgument handle
// is returned every time a value is accessed.
type Value interface {
	// Type returns the type of the value.
	Type() Type

	// String returns a printable name for the value.
	String() string

	// Users returns the operations that use this value as an operand. An
	// operation appears once per use.
	Users() []*Operation

	addUser(op *Operation)
}

// An OpResult is a value produced by an operation.
type OpResult struct {
	op    *Operation
	index int
	typ   Type
	users []*Operation
}

// Op returns the operation producing this result.
func (r *OpResult) Op() *Operation { return r.op }

// Index returns the position of this result in the producing operation.
func (r *OpResult) Index() int { return r.index }

// Type returns the type of the result.
func (r *OpResult) Type() Type { return r.typ }

// Users returns the operations using this result as an operand.
func (r *OpResult) Users() []*Operation { return r.users }

func (r *OpResult) addUser(op *Operation) { r.users = append(r.users, op) }

func (r *OpResult) String() string {
	return fmt.Sprintf("%s#%d", r.op.Name(), r.index)
}

// A BlockArgument is a value defined by a block. Block arguments receive their
// values from predecessor branches, region control flow or call sites.
type BlockArgument struct {
	block *Block
	index int
	typ   Type
	users []*Operation
}

// Block returns the block owning this argument.
func (a *BlockArgument) Block() *Block { return a.block }

// Index returns the position of this argument in the block's argument list.
func (a *BlockArgument) Index() int { return a.index }

// Type returns the type of the argument.
func (a *BlockArgument) Type() Type { return a.typ }

// Users returns the operations using this argument as an operand.
func (a *BlockArgument) Users() []*Operation { return a.users }

func (a *BlockArgument) addUser(op *Operation) { a.users = append(a.users, op) }

func (a *BlockArgument) String() string {
	return fmt.Sprintf("%s.arg%d", a.block.String(), a.index)
}
