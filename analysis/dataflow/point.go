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

package dataflow

import (
	"fmt"

	"github.com/quarrylang/quarry/ir"
)

// A Point is a program point the solver can schedule an analysis to visit: an
// operation, a block, or a control-flow edge between two blocks. Exactly one
// field is non-nil, which makes Point a comparable key for the solver's state
// map. The underlying IR node is never owned by the analysis; the point only
// references it.
type Point struct {
	Op    *ir.Operation
	Block *ir.Block
	Edge  *CFGEdge
}

// OpPoint returns the program point of an operation.
func OpPoint(op *ir.Operation) Point { return Point{Op: op} }

// BlockPoint returns the program point of a block.
func BlockPoint(b *ir.Block) Point { return Point{Block: b} }

// EdgePoint returns the program point of a control-flow edge.
func EdgePoint(e *CFGEdge) Point { return Point{Edge: e} }

func (p Point) String() string {
	switch {
	case p.Op != nil:
		return fmt.Sprintf("op(%s)", p.Op)
	case p.Block != nil:
		return fmt.Sprintf("block(%s)", p.Block)
	case p.Edge != nil:
		return fmt.Sprintf("edge(%s -> %s)", p.Edge.From, p.Edge.To)
	}
	return "<nil point>"
}

// A CFGEdge is the control-flow edge between two blocks. Edges are interned by
// the solver so that looking up the same edge twice yields the same program
// point; use [Solver.EdgeBetween] to obtain one.
type CFGEdge struct {
	From, To *ir.Block
}
