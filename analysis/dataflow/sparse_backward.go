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

// BackwardTransfer is the analysis-specific part of a sparse backward
// analysis, the dual of ForwardTransfer: facts flow from result elements back
// into operand elements through Meet.
type BackwardTransfer interface {
	// NewLattice returns the initial (bottom) lattice element for v.
	NewLattice(v ir.Value) AbstractLattice

	// SetToExitState widens the element to the most conservative value, used
	// when the consumers of a value cannot be statically known.
	SetToExitState(l AbstractLattice) ChangeResult

	// VisitOperation computes the operand elements of an operation with no
	// special control-flow semantics from its result elements.
	VisitOperation(op *ir.Operation, operands, results []AbstractLattice)

	// VisitBranchOperand handles an operand of a branch or region-branch
	// operation that is not forwarded to any successor, such as the condition
	// of a conditional. The driver routes each such operand here exactly once
	// per visitation.
	VisitBranchOperand(op *ir.Operation, operandIndex int)

	// VisitCallOperand handles an operand of a call whose callee body is not
	// available for analysis.
	VisitCallOperand(op *ir.Operation, operandIndex int)
}

// SparseBackwardAnalysis propagates lattice facts from results and successor
// inputs back to operands, across branches, region control flow and the call
// graph, until fixpoint. A concrete analysis embeds the driver and implements
// BackwardTransfer.
type SparseBackwardAnalysis struct {
	solver *Solver
	kind   StateKind
	xfer   BackwardTransfer
}

// NewSparseBackwardAnalysis creates a backward driver storing its lattices
// under kind, and loads it into the solver.
func NewSparseBackwardAnalysis(solver *Solver, kind StateKind, xfer BackwardTransfer) *SparseBackwardAnalysis {
	a := &SparseBackwardAnalysis{solver: solver, kind: kind, xfer: xfer}
	solver.Load(a)
	return a
}

// Solver returns the solver the driver is loaded into.
func (a *SparseBackwardAnalysis) Solver() *Solver { return a.solver }

// Kind returns the state kind of the driver's lattices.
func (a *SparseBackwardAnalysis) Kind() StateKind { return a.kind }

// Propagate reports a lattice mutation to the solver.
func (a *SparseBackwardAnalysis) Propagate(l State, changed ChangeResult) {
	a.solver.PropagateIfChanged(l, changed)
}

// Lattice returns the lattice element of v, creating it on first reference.
func (a *SparseBackwardAnalysis) Lattice(v ir.Value) AbstractLattice {
	st := a.solver.GetOrCreate(v, a.kind, func() State {
		return a.xfer.NewLattice(v)
	})
	return st.(AbstractLattice)
}

func (a *SparseBackwardAnalysis) latticeFor(point Point, v ir.Value) AbstractLattice {
	l := a.Lattice(v)
	a.solver.AddDependency(l, WorkItem{Point: point, Analysis: a})
	return l
}

func (a *SparseBackwardAnalysis) lattices(values []ir.Value) []AbstractLattice {
	result := make([]AbstractLattice, len(values))
	for i, v := range values {
		result[i] = a.Lattice(v)
	}
	return result
}

func (a *SparseBackwardAnalysis) latticesFor(point Point, values []ir.Value) []AbstractLattice {
	result := make([]AbstractLattice, len(values))
	for i, v := range values {
		result[i] = a.latticeFor(point, v)
	}
	return result
}

// meet incorporates rhs into lhs and propagates on change.
func (a *SparseBackwardAnalysis) meet(lhs AbstractLattice, rhs AbstractLattice) {
	a.Propagate(lhs, lhs.Meet(rhs))
}

func (a *SparseBackwardAnalysis) setAllToExitStates(lattices []AbstractLattice) {
	for _, l := range lattices {
		a.Propagate(l, a.xfer.SetToExitState(l))
	}
}

// Initialize visits every operation under top once. Within each block,
// operations are initialized in reverse order so that as much information as
// possible propagates without going through the solver queue.
func (a *SparseBackwardAnalysis) Initialize(top *ir.Operation) error {
	a.initializeRecursively(top)
	return nil
}

func (a *SparseBackwardAnalysis) initializeRecursively(op *ir.Operation) {
	a.visitOperation(op)
	for _, region := range op.Regions() {
		for _, block := range region.Blocks() {
			GetExecutable(a.solver, BlockPoint(block)).ContentSubscribe(a)
			ops := block.Operations()
			for i := len(ops) - 1; i >= 0; i-- {
				a.initializeRecursively(ops[i])
			}
		}
	}
}

// Visit re-computes the state at one program point. Visiting a block is a
// no-op for backward analyses: propagation through control flow is handled
// entirely at branch operations and region terminators.
func (a *SparseBackwardAnalysis) Visit(p Point) error {
	switch {
	case p.Op != nil:
		a.visitOperation(p.Op)
	case p.Block != nil:
	default:
		return fmt.Errorf("backward sparse analysis cannot visit %s", p)
	}
	return nil
}

func (a *SparseBackwardAnalysis) visitOperation(op *ir.Operation) {
	if op.Block() != nil && !GetExecutable(a.solver, BlockPoint(op.Block())).IsLive() {
		return
	}

	operandLattices := a.lattices(op.Operands())
	resultLattices := a.latticesFor(OpPoint(op), op.Results())

	// The block arguments of a region branch operation's regions flow back
	// into the operands of the operation itself.
	if branch, ok := ir.AsRegionBranch(op); ok {
		a.visitRegionSuccessors(op, branch, operandLattices)
		return
	}

	// The block arguments of successor blocks flow back into the operands of
	// an unstructured branch.
	if branch, ok := ir.AsBranch(op); ok {
		a.visitBranchSuccessors(op, branch, operandLattices)
		return
	}

	// The entry block arguments of a resolvable callee flow back into the
	// operands of a call. A callee without a body may observe its operands in
	// any way; the transfer decides through VisitCallOperand.
	if call, ok := ir.AsCall(op); ok {
		callee := a.solver.SymbolTable().ResolveCallable(op)
		if callee != nil {
			if callable, isCallable := ir.AsCallable(callee); isCallable {
				a.visitCall(op, call, callable, callee)
				return
			}
		}
		// An unresolvable callee falls through to the generic transfer.
	}

	// A region terminator hands its operands to the successor inputs of its
	// region-branch parent.
	if term, ok := ir.AsRegionTerminator(op); ok {
		if parent := op.ParentOp(); parent != nil {
			if _, parentIsBranch := ir.AsRegionBranch(parent); parentIsBranch {
				a.visitRegionSuccessorsFromTerminator(op, term, parent)
				return
			}
		}
	}

	// Going backwards, the operands of a return are derived from the results
	// of every call site of the enclosing callable.
	if ir.IsReturnLike(op) {
		if callableOp := op.ParentOp(); callableOp != nil {
			if _, isCallable := ir.AsCallable(callableOp); isCallable {
				a.visitReturn(op, callableOp, operandLattices)
				return
			}
		}
	}

	a.xfer.VisitOperation(op, operandLattices, resultLattices)
}

// visitCall meets each argument operand with the callee entry argument
// receiving it. Operands not forwarded as arguments, and every operand when
// the callee body is unavailable, go through VisitCallOperand.
func (a *SparseBackwardAnalysis) visitCall(op *ir.Operation, call ir.CallSemantics,
	callable ir.CallableSemantics, calleeOp *ir.Operation) {
	unaccounted := make([]bool, op.NumOperands())
	for i := range unaccounted {
		unaccounted[i] = true
	}

	if region := callable.CallableRegion(calleeOp); region != nil && region.Entry() != nil {
		args := call.ArgOperands(op)
		operandIndex := op.NumOperands() - len(args)
		for i, blockArg := range region.Entry().Args() {
			if i >= len(args) {
				break
			}
			unaccounted[operandIndex+i] = false
			a.meet(a.Lattice(args[i]), a.latticeFor(OpPoint(op), blockArg))
		}
	}

	for index, external := range unaccounted {
		if external {
			a.xfer.VisitCallOperand(op, index)
		}
	}
}

// visitBranchSuccessors meets each forwarded operand with the successor block
// argument receiving it. Operands forwarded to no successor are structural
// (e.g. the condition of a conditional branch) and are routed to
// VisitBranchOperand; a boolean set tracks them because forwarded ranges may
// be non-contiguous across successors. The set is scoped to this visitation.
func (a *SparseBackwardAnalysis) visitBranchSuccessors(op *ir.Operation, branch ir.BranchSemantics,
	operandLattices []AbstractLattice) {
	unaccounted := make([]bool, op.NumOperands())
	for i := range unaccounted {
		unaccounted[i] = true
	}

	for succIndex, succ := range op.Successors() {
		operands := branch.SuccessorOperands(op, succIndex)
		for offset := 0; offset < operands.Forwarded.Count; offset++ {
			operandIndex := operands.Forwarded.Start + offset
			unaccounted[operandIndex] = false
			argIndex := operands.ArgumentForOperand(operandIndex)
			if argIndex < 0 || argIndex >= succ.NumArgs() {
				continue
			}
			a.meet(operandLattices[operandIndex], a.latticeFor(OpPoint(op), succ.Arg(argIndex)))
		}
	}

	for index, structural := range unaccounted {
		if structural {
			a.xfer.VisitBranchOperand(op, index)
		}
	}
}

// visitRegionSuccessors meets the successor inputs that a region branch
// forwards its operands to back into those operands; unforwarded operands are
// structural and go through VisitBranchOperand.
func (a *SparseBackwardAnalysis) visitRegionSuccessors(op *ir.Operation, branch ir.RegionBranchSemantics,
	operandLattices []AbstractLattice) {
	unaccounted := make([]bool, op.NumOperands())
	for i := range unaccounted {
		unaccounted[i] = true
	}

	for _, transfer := range branch.EntryTransfers(op) {
		inputs := transfer.InputValues(op)
		for offset, input := range inputs {
			operandIndex := transfer.Operands.Start + offset
			if operandIndex >= len(operandLattices) {
				break
			}
			unaccounted[operandIndex] = false
			a.meet(operandLattices[operandIndex], a.latticeFor(OpPoint(op), input))
		}
	}

	for index, structural := range unaccounted {
		if structural {
			a.xfer.VisitBranchOperand(op, index)
		}
	}
}

// visitRegionSuccessorsFromTerminator meets the successor inputs of the
// parent's region successors back into the terminator operands forwarded to
// them.
func (a *SparseBackwardAnalysis) visitRegionSuccessorsFromTerminator(op *ir.Operation,
	term ir.RegionTerminatorSemantics, parent *ir.Operation) {
	unaccounted := make([]bool, op.NumOperands())
	for i := range unaccounted {
		unaccounted[i] = true
	}

	for _, transfer := range term.Transfers(op) {
		inputs := transfer.InputValues(parent)
		for offset, input := range inputs {
			operandIndex := transfer.Operands.Start + offset
			if operandIndex >= op.NumOperands() {
				break
			}
			unaccounted[operandIndex] = false
			a.meet(a.Lattice(op.Operand(operandIndex)), a.latticeFor(OpPoint(op), input))
		}
	}

	for index, structural := range unaccounted {
		if structural {
			a.xfer.VisitBranchOperand(op, index)
		}
	}
}

// visitReturn meets the operands of a function-scope return with the
// corresponding result lattices of every known call site. Unknown call sites
// force the operands to the exit state: any external caller might use the
// returned values in an unconstrained way.
func (a *SparseBackwardAnalysis) visitReturn(op, callableOp *ir.Operation,
	operandLattices []AbstractLattice) {
	me := WorkItem{Point: OpPoint(op), Analysis: a}
	callsites := a.solver.GetOrCreateFor(OpPoint(callableOp), KindPredecessors, me, func() State {
		return &PredecessorState{}
	}).(*PredecessorState)
	if !callsites.AllPredecessorsKnown() {
		a.setAllToExitStates(operandLattices)
		return
	}
	for _, call := range callsites.KnownPredecessors() {
		results := a.latticesFor(OpPoint(op), call.Results())
		for i, operand := range operandLattices {
			if i >= len(results) {
				break
			}
			a.meet(operand, results[i])
		}
	}
}
