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

// A Block is a list of operations with a list of arguments. The last operation
// of a block is its terminator; the terminator's successors define the
// control-flow edges out of the block.
type Block struct {
	region *Region
	index  int
	args   []*BlockArgument
	ops    []*Operation
	preds  []*Block
}

// NumArgs returns the number of block arguments.
func (b *Block) NumArgs() int { return len(b.args) }

// Arg returns the i-th block argument.
func (b *Block) Arg(i int) *BlockArgument { return b.args[i] }

// Args returns the argument values of the block.
func (b *Block) Args() []Value {
	values := make([]Value, len(b.args))
	for i, a := range b.args {
		values[i] = a
	}
	return values
}

// Operations returns the operations of the block in order. The returned slice
// must not be modified.
func (b *Block) Operations() []*Operation { return b.ops }

// Terminator returns the last operation of the block, nil if the block is
// empty.
func (b *Block) Terminator() *Operation {
	if len(b.ops) == 0 {
		return nil
	}
	return b.ops[len(b.ops)-1]
}

// Preds returns the predecessor blocks, one entry per incoming control-flow
// edge. A block appears once per terminator successor entry targeting b.
func (b *Block) Preds() []*Block { return b.preds }

// Region returns the region containing the block.
func (b *Block) Region() *Region { return b.region }

// Index returns the position of the block in its region.
func (b *Block) Index() int { return b.index }

// ParentOp returns the operation owning the region containing the block.
func (b *Block) ParentOp() *Operation { return b.region.parent }

// IsEntry reports whether the block is the entry block of its region.
func (b *Block) IsEntry() bool { return b.region.Entry() == b }

// Append creates an operation from spec at the end of the block and returns
// it. If the operation has successors, the corresponding control-flow edges
// are recorded on the successor blocks.
func (b *Block) Append(spec OpSpec) *Operation {
	op := NewOperation(spec)
	op.block = b
	b.ops = append(b.ops, op)
	for _, succ := range op.successors {
		succ.preds = append(succ.preds, b)
	}
	return op
}

func (b *Block) String() string {
	return fmt.Sprintf("%s.r%d.b%d", b.region.parent.Name(), b.region.index, b.index)
}
