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

// An OpSpec describes an operation to create. The zero value of every field is
// valid; an operation with no operands, results, successors or regions is a
// plain nullary operation.
type OpSpec struct {
	// Name is the printable name of the operation, e.g. "go.binop".
	Name string

	// Operands are the values the operation uses.
	Operands []Value

	// Results lists the types of the values the operation produces.
	Results []Type

	// Successors are the blocks an operation terminating a block may transfer
	// control to. Only meaningful on the last operation of a block.
	Successors []*Block

	// Regions is the number of empty nested regions to create. Blocks are added
	// to the regions with [Operation.AddBlock] after creation.
	Regions int

	// Attrs are uninterpreted key/value attributes, e.g. a constant's value.
	Attrs map[string]any

	// Semantics is the capability object of the operation; see AsBranch, AsCall
	// and the other capability queries.
	Semantics any
}

// An Operation is a node of the IR graph: it uses operand values, produces
// result values, and may own nested regions and successor blocks. All behavior
// beyond this structure is carried by the semantics object attached to it.
type Operation struct {
	name       string
	operands   []Value
	results    []*OpResult
	successors []*Block
	regions    []*Region
	block      *Block
	attrs      map[string]any
	semantics  any
}

// NewOperation creates a detached operation, one that is not nested inside any
// block. This is how the top-level operation of an IR module is created; all
// other operations are created with [Block.Append].
func NewOperation(spec OpSpec) *Operation {
	op := &Operation{
		name:      spec.Name,
		operands:  spec.Operands,
		attrs:     spec.Attrs,
		semantics: spec.Semantics,
	}
	for i, typ := range spec.Results {
		op.results = append(op.results, &OpResult{op: op, index: i, typ: typ})
	}
	for i := 0; i < spec.Regions; i++ {
		op.regions = append(op.regions, &Region{parent: op, index: i})
	}
	op.successors = spec.Successors
	for _, operand := range spec.Operands {
		operand.addUser(op)
	}
	return op
}

// Name returns the name of the operation.
func (op *Operation) Name() string { return op.name }

// NumOperands returns the number of operands.
func (op *Operation) NumOperands() int { return len(op.operands) }

// Operand returns the i-th operand.
func (op *Operation) Operand(i int) Value { return op.operands[i] }

// Operands returns the operand list. The returned slice must not be modified.
func (op *Operation) Operands() []Value { return op.operands }

// NumResults returns the number of results.
func (op *Operation) NumResults() int { return len(op.results) }

// Result returns the i-th result.
func (op *Operation) Result(i int) *OpResult { return op.results[i] }

// Results returns the result values of the operation.
func (op *Operation) Results() []Value {
	values := make([]Value, len(op.results))
	for i, r := range op.results {
		values[i] = r
	}
	return values
}

// NumRegions returns the number of nested regions.
func (op *Operation) NumRegions() int { return len(op.regions) }

// Region returns the i-th nested region.
func (op *Operation) Region(i int) *Region { return op.regions[i] }

// Regions returns the nested regions of the operation.
func (op *Operation) Regions() []*Region { return op.regions }

// Successors returns the successor blocks of a block terminator. The returned
// slice must not be modified.
func (op *Operation) Successors() []*Block { return op.successors }

// Block returns the block containing the operation, nil for a detached
// top-level operation.
func (op *Operation) Block() *Block { return op.block }

// ParentOp returns the operation owning the region this operation is nested in,
// nil for a detached top-level operation.
func (op *Operation) ParentOp() *Operation {
	if op.block == nil {
		return nil
	}
	return op.block.region.parent
}

// Attr returns the attribute stored under key, or nil.
func (op *Operation) Attr(key string) any {
	return op.attrs[key]
}

// BoolAttr returns the boolean attribute stored under key, false if absent or
// not a boolean.
func (op *Operation) BoolAttr(key string) bool {
	b, ok := op.attrs[key].(bool)
	return ok && b
}

// Semantics returns the capability object attached to the operation.
func (op *Operation) Semantics() any { return op.semantics }

// AddBlock appends a block with the given argument types to the region-th
// nested region and returns it.
func (op *Operation) AddBlock(region int, argTypes ...Type) *Block {
	r := op.regions[region]
	block := &Block{region: r, index: len(r.blocks)}
	for i, typ := range argTypes {
		block.args = append(block.args, &BlockArgument{block: block, index: i, typ: typ})
	}
	r.blocks = append(r.blocks, block)
	return block
}

// Walk calls fn on op and every operation nested inside it, in depth-first
// pre-order.
func (op *Operation) Walk(fn func(*Operation)) {
	fn(op)
	for _, region := range op.regions {
		for _, block := range region.blocks {
			for _, nested := range block.ops {
				nested.Walk(fn)
			}
		}
	}
}

func (op *Operation) String() string { return op.name }

var _ = fmt.Stringer(&Operation{})
