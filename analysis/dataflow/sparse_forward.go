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

// ForwardTransfer is the analysis-specific part of a sparse forward analysis:
// the lattice factory and the transfer function. Everything else, the
// propagation along def-use chains, control-flow edges, region control flow
// and the call graph, is handled by the driver.
type ForwardTransfer interface {
	// NewLattice returns the initial (bottom) lattice element for v.
	NewLattice(v ir.Value) AbstractLattice

	// SetToEntryState widens the element to the most conservative value, used
	// wherever no more precise reasoning is statically possible.
	SetToEntryState(l AbstractLattice) ChangeResult

	// VisitOperation computes the result elements of an operation with no
	// special control-flow semantics from its operand elements. Operand
	// elements are read-only; writes to result elements must be reported
	// through the driver's Propagate.
	VisitOperation(op *ir.Operation, operands, results []AbstractLattice)

	// VisitNonControlFlowArguments provides default handling for entry block
	// arguments (or region-branch results) not covered by an explicit region
	// control-flow operand mapping. lattices holds all elements of the block
	// or operation; only the uncovered ones, lattices[:firstIndex] and
	// lattices[firstIndex+covered:], may be written. The covered range is
	// filled by the driver from the forwarded operands and must be left
	// untouched.
	VisitNonControlFlowArguments(op *ir.Operation, succ ir.RegionSuccessor,
		lattices []AbstractLattice, firstIndex, covered int)
}

// SparseForwardAnalysis propagates lattice facts from operands to results, and
// across control-flow and call edges, until fixpoint. A concrete analysis
// embeds the driver and implements ForwardTransfer.
type SparseForwardAnalysis struct {
	solver *Solver
	kind   StateKind
	xfer   ForwardTransfer
}

// NewSparseForwardAnalysis creates a forward driver storing its lattices
// under kind, and loads it into the solver.
func NewSparseForwardAnalysis(solver *Solver, kind StateKind, xfer ForwardTransfer) *SparseForwardAnalysis {
	a := &SparseForwardAnalysis{solver: solver, kind: kind, xfer: xfer}
	solver.Load(a)
	return a
}

// Solver returns the solver the driver is loaded into.
func (a *SparseForwardAnalysis) Solver() *Solver { return a.solver }

// Kind returns the state kind of the driver's lattices.
func (a *SparseForwardAnalysis) Kind() StateKind { return a.kind }

// Propagate reports a lattice mutation to the solver.
func (a *SparseForwardAnalysis) Propagate(l State, changed ChangeResult) {
	a.solver.PropagateIfChanged(l, changed)
}

// Lattice returns the lattice element of v, creating it on first reference.
func (a *SparseForwardAnalysis) Lattice(v ir.Value) AbstractLattice {
	st := a.solver.GetOrCreate(v, a.kind, func() State {
		return a.xfer.NewLattice(v)
	})
	return st.(AbstractLattice)
}

// latticeFor returns the element of v and records that point depends on it.
func (a *SparseForwardAnalysis) latticeFor(point Point, v ir.Value) AbstractLattice {
	l := a.Lattice(v)
	a.solver.AddDependency(l, WorkItem{Point: point, Analysis: a})
	return l
}

// join incorporates rhs into lhs and propagates on change.
func (a *SparseForwardAnalysis) join(lhs AbstractLattice, rhs AbstractLattice) {
	a.Propagate(lhs, lhs.Join(rhs))
}

func (a *SparseForwardAnalysis) setAllToEntryStates(lattices []AbstractLattice) {
	for _, l := range lattices {
		a.Propagate(l, a.xfer.SetToEntryState(l))
	}
}

// Initialize seeds the analysis: the entry block arguments of the top-level
// regions are set to the entry state since nothing constrains them, then every
// operation and block under top is visited once.
func (a *SparseForwardAnalysis) Initialize(top *ir.Operation) error {
	for _, region := range top.Regions() {
		entry := region.Entry()
		if entry == nil {
			continue
		}
		for _, arg := range entry.Args() {
			l := a.Lattice(arg)
			a.Propagate(l, a.xfer.SetToEntryState(l))
		}
	}
	a.initializeRecursively(top)
	return nil
}

func (a *SparseForwardAnalysis) initializeRecursively(op *ir.Operation) {
	a.visitOperation(op)
	for _, region := range op.Regions() {
		for _, block := range region.Blocks() {
			GetExecutable(a.solver, BlockPoint(block)).ContentSubscribe(a)
			a.visitBlock(block)
			for _, nested := range block.Operations() {
				a.initializeRecursively(nested)
			}
		}
	}
}

// Visit re-computes the state at one program point.
func (a *SparseForwardAnalysis) Visit(p Point) error {
	switch {
	case p.Op != nil:
		a.visitOperation(p.Op)
	case p.Block != nil:
		a.visitBlock(p.Block)
	default:
		return fmt.Errorf("forward sparse analysis cannot visit %s", p)
	}
	return nil
}

func (a *SparseForwardAnalysis) visitOperation(op *ir.Operation) {
	// Operations without results carry no sparse state.
	if op.NumResults() == 0 {
		return
	}

	// Skip dead code: facts from unreachable operations must never
	// contaminate the fixpoint.
	if op.Block() != nil && !GetExecutable(a.solver, BlockPoint(op.Block())).IsLive() {
		return
	}

	resultLattices := make([]AbstractLattice, op.NumResults())
	for i, r := range op.Results() {
		resultLattices[i] = a.Lattice(r)
	}

	// The results of a region branch operation are determined by region
	// control flow.
	if _, ok := ir.AsRegionBranch(op); ok {
		a.visitRegionSuccessors(OpPoint(op), op, ir.RegionSuccessor{}, resultLattices)
		return
	}

	// The results of a call are determined by the call graph.
	if _, ok := ir.AsCall(op); ok {
		me := WorkItem{Point: OpPoint(op), Analysis: a}
		preds := a.solver.GetOrCreateFor(OpPoint(op), KindPredecessors, me, func() State {
			return &PredecessorState{}
		}).(*PredecessorState)
		// If not all return sites are known, conservatively assume the
		// data flow cannot be reasoned about.
		if !preds.AllPredecessorsKnown() {
			a.setAllToEntryStates(resultLattices)
			return
		}
		for _, pred := range preds.KnownPredecessors() {
			for i, operand := range pred.Operands() {
				if i >= len(resultLattices) {
					break
				}
				a.join(resultLattices[i], a.latticeFor(OpPoint(op), operand))
			}
		}
		return
	}

	// Ordinary operation: subscribe to the operands and apply the transfer
	// function.
	operandLattices := make([]AbstractLattice, op.NumOperands())
	for i, operand := range op.Operands() {
		l := a.Lattice(operand)
		l.UseDefSubscribe(a)
		operandLattices[i] = l
	}
	a.xfer.VisitOperation(op, operandLattices, resultLattices)
}

func (a *SparseForwardAnalysis) visitBlock(block *ir.Block) {
	if block.NumArgs() == 0 {
		return
	}
	if !GetExecutable(a.solver, BlockPoint(block)).IsLive() {
		return
	}

	argLattices := make([]AbstractLattice, block.NumArgs())
	for i, arg := range block.Args() {
		argLattices[i] = a.Lattice(arg)
	}

	if block.IsEntry() {
		parent := block.ParentOp()
		if parent == nil {
			return
		}

		// The arguments of a callable's entry block are the join of the
		// argument operands of all known call sites.
		if callable, ok := ir.AsCallable(parent); ok && callable.CallableRegion(parent) == block.Region() {
			me := WorkItem{Point: BlockPoint(block), Analysis: a}
			callsites := a.solver.GetOrCreateFor(OpPoint(parent), KindPredecessors, me, func() State {
				return &PredecessorState{}
			}).(*PredecessorState)
			if !callsites.AllPredecessorsKnown() {
				a.setAllToEntryStates(argLattices)
				return
			}
			for _, callsite := range callsites.KnownPredecessors() {
				call, ok := ir.AsCall(callsite)
				if !ok {
					a.setAllToEntryStates(argLattices)
					return
				}
				for i, arg := range call.ArgOperands(callsite) {
					if i >= len(argLattices) {
						break
					}
					a.join(argLattices[i], a.latticeFor(BlockPoint(block), arg))
				}
			}
			return
		}

		// The arguments of the entry block of a region-branch region come
		// from region control flow.
		if _, ok := ir.AsRegionBranch(parent); ok {
			a.visitRegionSuccessors(BlockPoint(block), parent,
				ir.RegionSuccessor{Region: block.Region()}, argLattices)
			return
		}

		// The parent gives no structured control flow to reason about: no
		// argument is covered.
		a.xfer.VisitNonControlFlowArguments(parent,
			ir.RegionSuccessor{Region: block.Region()}, argLattices, 0, 0)
		return
	}

	// Ordinary non-entry block: join the forwarded operands of every live
	// predecessor edge into the argument lattices.
	seen := map[*ir.Block]bool{}
	for _, pred := range block.Preds() {
		if seen[pred] {
			continue
		}
		seen[pred] = true

		edge := GetExecutable(a.solver, EdgePoint(a.solver.EdgeBetween(pred, block)))
		edge.ContentSubscribe(a)
		if !edge.IsLive() {
			continue
		}

		terminator := pred.Terminator()
		if terminator == nil {
			a.setAllToEntryStates(argLattices)
			return
		}
		branch, hasBranch := ir.AsBranch(terminator)
		if !hasBranch {
			// No way to attribute operands to arguments.
			a.setAllToEntryStates(argLattices)
			return
		}

		for succIndex, succ := range terminator.Successors() {
			if succ != block {
				continue
			}
			operands := branch.SuccessorOperands(terminator, succIndex)
			for argIndex, lattice := range argLattices {
				if operandIndex := operands.OperandForArgument(argIndex); operandIndex >= 0 {
					a.join(lattice, a.latticeFor(BlockPoint(block), terminator.Operand(operandIndex)))
				} else {
					// Internally produced argument, e.g. an exception value.
					a.Propagate(lattice, a.xfer.SetToEntryState(lattice))
				}
			}
		}
	}
}

// visitRegionSuccessors computes the lattices of a region successor (the
// entry block arguments of a region, or the results of the region-branch
// operation itself) by joining the forwarded operands of every known
// predecessor. Anywhere the control flow cannot be classified, the lattices
// are widened to the entry state.
func (a *SparseForwardAnalysis) visitRegionSuccessors(point Point, branch *ir.Operation,
	succ ir.RegionSuccessor, lattices []AbstractLattice) {
	me := WorkItem{Point: point, Analysis: a}
	preds := a.solver.GetOrCreateFor(point, KindPredecessors, me, func() State {
		return &PredecessorState{}
	}).(*PredecessorState)
	if !preds.AllPredecessorsKnown() {
		a.setAllToEntryStates(lattices)
		return
	}

	for _, pred := range preds.KnownPredecessors() {
		transfer, ok := a.transferTo(pred, branch, succ)
		if !ok {
			// The predecessor cannot be classified; bail out for soundness.
			a.setAllToEntryStates(lattices)
			return
		}

		inputs := preds.SuccessorInputs(pred)
		operands := transfer.Operands.Values(pred)
		if len(inputs) != len(operands) {
			panic(fmt.Sprintf("region successor of %s: %d inputs for %d operands",
				branch, len(inputs), len(operands)))
		}

		// The successor may cover fewer values than the point owns; default
		// handling fills the uncovered ones, never the covered range.
		firstIndex := 0
		if len(inputs) != len(lattices) {
			if len(inputs) > 0 {
				firstIndex = inputIndex(inputs[0])
			}
			a.xfer.VisitNonControlFlowArguments(branch, succ, lattices, firstIndex, len(inputs))
		}

		for i, operand := range operands {
			target := firstIndex + i
			if target >= len(lattices) {
				break
			}
			a.join(lattices[target], a.latticeFor(point, operand))
		}
	}
}

// transferTo resolves the operand forwarding from pred to the region
// successor succ of branch. pred is either the branch itself (entering its
// regions) or a region terminator nested in it.
func (a *SparseForwardAnalysis) transferTo(pred, branch *ir.Operation,
	succ ir.RegionSuccessor) (ir.RegionTransfer, bool) {
	var transfers []ir.RegionTransfer
	if pred == branch {
		rb, ok := ir.AsRegionBranch(branch)
		if !ok {
			return ir.RegionTransfer{}, false
		}
		transfers = rb.EntryTransfers(branch)
	} else if term, ok := ir.AsRegionTerminator(pred); ok {
		transfers = term.Transfers(pred)
	} else {
		return ir.RegionTransfer{}, false
	}
	for _, t := range transfers {
		if t.SuccessorOf(branch) == succ {
			return t, true
		}
	}
	return ir.RegionTransfer{}, false
}

// inputIndex returns the position of a successor input among the values of
// its owner: the result number or the block argument number.
func inputIndex(v ir.Value) int {
	switch val := v.(type) {
	case *ir.OpResult:
		return val.Index()
	case *ir.BlockArgument:
		return val.Index()
	}
	return 0
}
