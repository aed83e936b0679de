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
	"github.com/quarrylang/quarry/ir"
)

// Executable tracks whether a block or control-flow edge is reachable. The
// sparse drivers consult it to skip dead code; the DeadCodeAnalysis populates
// it. Liveness only ever moves from dead to live.
type Executable struct {
	baseState
	point   Point
	live    bool
	content contentSubscription
}

// IsLive reports whether the block or edge is reachable.
func (e *Executable) IsLive() bool { return e.live }

// SetLive marks the block or edge reachable.
func (e *Executable) SetLive() ChangeResult {
	if e.live {
		return Unchanged
	}
	e.live = true
	return Changed
}

// contentSubscribers lists the analyses to re-invoke on the whole content of
// the block when it becomes live.
type contentSubscription struct {
	subscribers   []Analysis
	subscriberSet map[Analysis]bool
}

func (c *contentSubscription) subscribe(a Analysis) {
	if c.subscriberSet == nil {
		c.subscriberSet = map[Analysis]bool{}
	}
	if c.subscriberSet[a] {
		return
	}
	c.subscriberSet[a] = true
	c.subscribers = append(c.subscribers, a)
}

// ContentSubscribe registers a to be re-invoked on the block (and every
// operation in it) guarded by this executable state when it becomes live. For
// an edge, the guarded block is the edge target.
func (e *Executable) ContentSubscribe(a Analysis) {
	e.content.subscribe(a)
}

// OnUpdate enqueues the dependents of the state plus, for each content
// subscriber, the guarded block and all its operations.
func (e *Executable) OnUpdate(s *Solver) {
	e.baseState.OnUpdate(s)
	block := e.point.Block
	if e.point.Edge != nil {
		block = e.point.Edge.To
	}
	if block == nil {
		return
	}
	for _, a := range e.content.subscribers {
		s.Enqueue(WorkItem{Point: BlockPoint(block), Analysis: a})
		for _, op := range block.Operations() {
			s.Enqueue(WorkItem{Point: OpPoint(op), Analysis: a})
		}
	}
}

// GetExecutable returns the executable state of the block or edge at p,
// creating it (dead) on first reference.
func GetExecutable(s *Solver, p Point) *Executable {
	st := s.GetOrCreate(p, KindExecutable, func() State {
		return &Executable{point: p}
	})
	return st.(*Executable)
}

// PredecessorState records the known control-flow predecessors of a program
// point: the operations that may transfer control (and forward values) to it.
// Call results use the return sites of the callee as predecessors, callable
// entry blocks use the call sites, and region entries and region-branch
// results use the region terminators (or the branch itself). When a
// predecessor cannot be resolved the state is flagged, and consumers must
// widen instead of trusting the known list.
type PredecessorState struct {
	baseState
	unknown  bool
	known    []*ir.Operation
	knownSet map[*ir.Operation]bool
	inputs   map[*ir.Operation][]ir.Value
}

// AllPredecessorsKnown reports whether the known predecessor list is
// exhaustive.
func (p *PredecessorState) AllPredecessorsKnown() bool { return !p.unknown }

// KnownPredecessors returns the known predecessor operations in discovery
// order.
func (p *PredecessorState) KnownPredecessors() []*ir.Operation { return p.known }

// SuccessorInputs returns the values of this point that the given predecessor
// forwards operands to, nil when the predecessor's forwarding could not be
// classified.
func (p *PredecessorState) SuccessorInputs(pred *ir.Operation) []ir.Value {
	return p.inputs[pred]
}

// AddPredecessor records pred as a known predecessor forwarding to inputs.
func (p *PredecessorState) AddPredecessor(pred *ir.Operation, inputs []ir.Value) ChangeResult {
	if p.knownSet == nil {
		p.knownSet = map[*ir.Operation]bool{}
		p.inputs = map[*ir.Operation][]ir.Value{}
	}
	if p.knownSet[pred] {
		return Unchanged
	}
	p.knownSet[pred] = true
	p.known = append(p.known, pred)
	p.inputs[pred] = inputs
	return Changed
}

// SetHasUnknownPredecessors flags the predecessor list as non-exhaustive.
func (p *PredecessorState) SetHasUnknownPredecessors() ChangeResult {
	if p.unknown {
		return Unchanged
	}
	p.unknown = true
	return Changed
}

// GetPredecessorState returns the predecessor state anchored at p, creating
// it on first reference.
func GetPredecessorState(s *Solver, p Point) *PredecessorState {
	st := s.GetOrCreate(p, KindPredecessors, func() State {
		return &PredecessorState{}
	})
	return st.(*PredecessorState)
}

// DeadCodeAnalysis computes the Executable flags of blocks and control-flow
// edges, and the PredecessorState of call operations, callables, region
// entries and region-branch operations. The sparse drivers consume these
// states but never write them.
//
// Liveness is conservative: every successor of a live terminator is
// considered reachable (branch conditions are not evaluated). A block is dead
// only when no chain of edges from an entry point reaches it.
type DeadCodeAnalysis struct {
	solver *Solver
}

// NewDeadCodeAnalysis creates a dead code analysis and loads it into the
// solver.
func NewDeadCodeAnalysis(s *Solver) *DeadCodeAnalysis {
	a := &DeadCodeAnalysis{solver: s}
	s.Load(a)
	return a
}

// Initialize marks the entry blocks under top live, flags public callables as
// having unknown callers, subscribes to the liveness of every block and
// visits every operation once.
func (a *DeadCodeAnalysis) Initialize(top *ir.Operation) error {
	a.markEntryBlocksLive(top)

	top.Walk(func(op *ir.Operation) {
		if callable, ok := ir.AsCallable(op); ok && callable.Public(op) {
			ps := GetPredecessorState(a.solver, OpPoint(op))
			a.solver.PropagateIfChanged(ps, ps.SetHasUnknownPredecessors())
			// Calls into a public callable from unanalyzed code also mean the
			// entry block cannot trust its known call sites.
			if region := callable.CallableRegion(op); region != nil && region.Entry() != nil {
				a.markEntryBlocksLive(op)
			}
		}
		for _, region := range op.Regions() {
			for _, block := range region.Blocks() {
				GetExecutable(a.solver, BlockPoint(block)).ContentSubscribe(a)
			}
		}
		a.visitOperation(op)
	})
	return nil
}

// Visit processes one program point: blocks need no work of their own, all
// liveness and predecessor propagation happens at operations.
func (a *DeadCodeAnalysis) Visit(p Point) error {
	if p.Op != nil {
		a.visitOperation(p.Op)
	}
	return nil
}

// markEntryBlocksLive marks the entry block of every region of op live.
func (a *DeadCodeAnalysis) markEntryBlocksLive(op *ir.Operation) {
	for _, region := range op.Regions() {
		if entry := region.Entry(); entry != nil {
			a.markBlockLive(entry)
		}
	}
}

func (a *DeadCodeAnalysis) markBlockLive(block *ir.Block) {
	exec := GetExecutable(a.solver, BlockPoint(block))
	a.solver.PropagateIfChanged(exec, exec.SetLive())
}

func (a *DeadCodeAnalysis) markEdgeLive(from, to *ir.Block) {
	edge := a.solver.EdgeBetween(from, to)
	exec := GetExecutable(a.solver, EdgePoint(edge))
	a.solver.PropagateIfChanged(exec, exec.SetLive())
	a.markBlockLive(to)
}

// isLive reports whether an operation should propagate liveness: detached
// top-level operations always do, nested operations only when their block is
// live.
func (a *DeadCodeAnalysis) isLive(op *ir.Operation) bool {
	if op.Block() == nil {
		return true
	}
	return GetExecutable(a.solver, BlockPoint(op.Block())).IsLive()
}

func (a *DeadCodeAnalysis) visitOperation(op *ir.Operation) {
	if !a.isLive(op) {
		return
	}

	if _, ok := ir.AsCall(op); ok {
		a.visitCall(op)
		return
	}

	if branch, ok := ir.AsRegionBranch(op); ok {
		a.visitRegionBranch(op, branch)
		// Region branches are not block terminators; fall through is not
		// needed, their CFG successors are inside the regions.
		return
	}

	if term, ok := ir.AsRegionTerminator(op); ok {
		if _, parentIsBranch := ir.AsRegionBranch(op.ParentOp()); parentIsBranch {
			a.visitRegionTerminator(op, term)
			return
		}
	}

	if ir.IsReturnLike(op) {
		a.visitReturn(op)
		return
	}

	// An unclassifiable terminator of a region-branch region still returns
	// control somewhere; record it with no input mapping so consumers widen.
	if op.Block() != nil && op.Block().Terminator() == op && len(op.Successors()) == 0 {
		parent := op.ParentOp()
		if parent != nil {
			if _, parentIsBranch := ir.AsRegionBranch(parent); parentIsBranch {
				ps := GetPredecessorState(a.solver, OpPoint(parent))
				a.solver.PropagateIfChanged(ps, ps.AddPredecessor(op, nil))
			}
		}
	}

	// Mark all successor edges of a live terminator live, whether or not the
	// terminator has branch semantics: liveness never prunes on conditions.
	if op.Block() != nil && op.Block().Terminator() == op {
		for _, succ := range op.Successors() {
			a.markEdgeLive(op.Block(), succ)
		}
	}
}

// visitCall resolves the callee of a live call site. A resolvable callee with
// a body gets the call recorded as a known call site and its entry marked
// live; anything else makes the call's own predecessors (its return sites)
// unknown.
func (a *DeadCodeAnalysis) visitCall(op *ir.Operation) {
	callee := a.solver.SymbolTable().ResolveCallable(op)
	if callee != nil {
		if callable, ok := ir.AsCallable(callee); ok {
			region := callable.CallableRegion(callee)
			if region != nil && region.Entry() != nil {
				a.markBlockLive(region.Entry())
				ps := GetPredecessorState(a.solver, OpPoint(callee))
				a.solver.PropagateIfChanged(ps, ps.AddPredecessor(op, region.Entry().Args()))
				return
			}
		}
	}
	// The callee is external or unknown: the data flow through this call
	// cannot be reasoned about.
	ps := GetPredecessorState(a.solver, OpPoint(op))
	a.solver.PropagateIfChanged(ps, ps.SetHasUnknownPredecessors())
}

// visitRegionBranch records the entry region successors of a structured
// control-flow operation and marks them live.
func (a *DeadCodeAnalysis) visitRegionBranch(op *ir.Operation, branch ir.RegionBranchSemantics) {
	for _, transfer := range branch.EntryTransfers(op) {
		succ := transfer.SuccessorOf(op)
		var ps *PredecessorState
		if succ.IsParent() {
			ps = GetPredecessorState(a.solver, OpPoint(op))
		} else {
			entry := succ.Region.Entry()
			if entry == nil {
				continue
			}
			a.markBlockLive(entry)
			ps = GetPredecessorState(a.solver, BlockPoint(entry))
		}
		a.solver.PropagateIfChanged(ps, ps.AddPredecessor(op, transfer.InputValues(op)))
	}
}

// visitRegionTerminator records a region terminator as a predecessor of the
// region successor(s) it yields control to.
func (a *DeadCodeAnalysis) visitRegionTerminator(op *ir.Operation, term ir.RegionTerminatorSemantics) {
	parent := op.ParentOp()
	for _, transfer := range term.Transfers(op) {
		succ := transfer.SuccessorOf(parent)
		var ps *PredecessorState
		if succ.IsParent() {
			ps = GetPredecessorState(a.solver, OpPoint(parent))
		} else {
			entry := succ.Region.Entry()
			if entry == nil {
				continue
			}
			a.markBlockLive(entry)
			ps = GetPredecessorState(a.solver, BlockPoint(entry))
		}
		a.solver.PropagateIfChanged(ps, ps.AddPredecessor(op, transfer.InputValues(parent)))
	}
}

// visitReturn records a live function-scope return as a predecessor of every
// known call site of the enclosing callable. The dependency on the callable's
// call-site state re-triggers this visit when new call sites appear.
func (a *DeadCodeAnalysis) visitReturn(op *ir.Operation) {
	callableOp := op.ParentOp()
	if callableOp == nil {
		return
	}
	if _, ok := ir.AsCallable(callableOp); !ok {
		return
	}
	me := WorkItem{Point: OpPoint(op), Analysis: a}
	callsites := a.solver.GetOrCreateFor(OpPoint(callableOp), KindPredecessors, me, func() State {
		return &PredecessorState{}
	}).(*PredecessorState)
	for _, call := range callsites.KnownPredecessors() {
		ps := GetPredecessorState(a.solver, OpPoint(call))
		a.solver.PropagateIfChanged(ps, ps.AddPredecessor(op, call.Results()))
	}
}
