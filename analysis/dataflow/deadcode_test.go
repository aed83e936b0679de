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
	"testing"

	"github.com/quarrylang/quarry/analysis/config"
	"github.com/quarrylang/quarry/internal/irtest"
	"github.com/quarrylang/quarry/ir"
)

func runDeadCode(t *testing.T, m *irtest.Module) *Solver {
	t.Helper()
	s := NewSolver(config.NewTestLogGroup(config.ErrLevel), m.Symbols)
	NewDeadCodeAnalysis(s)
	if err := s.RunToFixpoint(m.Top); err != nil {
		t.Fatalf("solver failed: %v", err)
	}
	return s
}

func blockLive(s *Solver, b *ir.Block) bool {
	return GetExecutable(s, BlockPoint(b)).IsLive()
}

func TestDeadCodeBlockReachability(t *testing.T) {
	m := irtest.NewModule()
	f := m.Func("main", true)
	entry := f.Entry()
	reached := f.Block()
	unreached := f.Block()

	cond := irtest.ConstBool(entry, true)
	irtest.CondBr(entry, cond, reached, reached, nil, nil)
	irtest.Return(reached)
	irtest.Return(unreached)

	s := runDeadCode(t, m)
	if !blockLive(s, entry) {
		t.Errorf("the entry block of an exported function should be live")
	}
	if !blockLive(s, reached) {
		t.Errorf("a branch target should be live")
	}
	if blockLive(s, unreached) {
		t.Errorf("a block with no incoming edges should be dead")
	}
}

func TestDeadCodeUncalledPrivateFunction(t *testing.T) {
	m := irtest.NewModule()
	f := m.Func("helper", false)
	irtest.Return(f.Entry())

	s := runDeadCode(t, m)
	if blockLive(s, f.Entry()) {
		t.Errorf("an uncalled private function should be dead")
	}
}

func TestDeadCodeCallMarksCalleeLive(t *testing.T) {
	m := irtest.NewModule()
	callee := m.Func("helper", false, ir.IntType)
	irtest.Return(callee.Entry(), callee.Param(0))

	caller := m.Func("main", true)
	c := irtest.Const(caller.Entry(), 1)
	call := irtest.Call(caller.Entry(), "helper", 1, c)
	irtest.Return(caller.Entry(), call.Result(0))

	s := runDeadCode(t, m)
	if !blockLive(s, callee.Entry()) {
		t.Errorf("the entry of a called function should be live")
	}

	callsites := GetPredecessorState(s, OpPoint(callee.Op))
	if !callsites.AllPredecessorsKnown() {
		t.Errorf("a private function should have all call sites known")
	}
	if len(callsites.KnownPredecessors()) != 1 || callsites.KnownPredecessors()[0] != call {
		t.Errorf("expected the single call site as known predecessor")
	}

	returns := GetPredecessorState(s, OpPoint(call))
	if !returns.AllPredecessorsKnown() || len(returns.KnownPredecessors()) != 1 {
		t.Errorf("the call should know the return site of its callee")
	}
}

func TestDeadCodeExternalCall(t *testing.T) {
	m := irtest.NewModule()
	m.Declare("external")

	f := m.Func("main", true)
	call := irtest.Call(f.Entry(), "external", 1)
	irtest.Return(f.Entry(), call.Result(0))

	s := runDeadCode(t, m)
	returns := GetPredecessorState(s, OpPoint(call))
	if returns.AllPredecessorsKnown() {
		t.Errorf("a call to a body-less function should have unknown predecessors")
	}
}

func TestDeadCodePublicCallableHasUnknownCallers(t *testing.T) {
	m := irtest.NewModule()
	public := m.Func("main", true)
	irtest.Return(public.Entry())
	private := m.Func("helper", false)
	irtest.Return(private.Entry())

	s := runDeadCode(t, m)
	if GetPredecessorState(s, OpPoint(public.Op)).AllPredecessorsKnown() {
		t.Errorf("an exported function should have unknown call sites")
	}
	if !GetPredecessorState(s, OpPoint(private.Op)).AllPredecessorsKnown() {
		t.Errorf("a private function should not have unknown call sites")
	}
}

func TestDeadCodeRegionBranch(t *testing.T) {
	m := irtest.NewModule()
	f := m.Func("main", true)
	cond := irtest.ConstBool(f.Entry(), true)
	ifOp := irtest.NewIf(f.Entry(), cond, ir.IntType)
	thenYield := irtest.Yield(ifOp.Then, irtest.Const(ifOp.Then, 1))
	elseYield := irtest.Yield(ifOp.Else, irtest.Const(ifOp.Else, 2))
	irtest.Return(f.Entry(), ifOp.Op.Result(0))

	s := runDeadCode(t, m)
	if !blockLive(s, ifOp.Then) || !blockLive(s, ifOp.Else) {
		t.Errorf("both regions of a live conditional should be live")
	}

	ps := GetPredecessorState(s, OpPoint(ifOp.Op))
	if !ps.AllPredecessorsKnown() {
		t.Errorf("the region successors of a conditional should be fully known")
	}
	preds := ps.KnownPredecessors()
	if len(preds) != 2 {
		t.Fatalf("expected the two yields as predecessors, got %d", len(preds))
	}
	seen := map[*ir.Operation]bool{preds[0]: true, preds[1]: true}
	if !seen[thenYield] || !seen[elseYield] {
		t.Errorf("expected both yields as predecessors of the conditional")
	}
}

func TestDeadCodeEdgeLiveness(t *testing.T) {
	m := irtest.NewModule()
	f := m.Func("main", true)
	target := f.Block(ir.IntType)
	c := irtest.Const(f.Entry(), 3)
	irtest.Br(f.Entry(), target, c)
	irtest.Return(target, target.Arg(0))

	// A second function branching to its own block, never called.
	g := m.Func("helper", false)
	gTarget := g.Block()
	irtest.Br(g.Entry(), gTarget)
	irtest.Return(gTarget)

	s := runDeadCode(t, m)
	liveEdge := s.EdgeBetween(f.Entry(), target)
	if !GetExecutable(s, EdgePoint(liveEdge)).IsLive() {
		t.Errorf("the edge out of a live block should be live")
	}
	deadEdge := s.EdgeBetween(g.Entry(), gTarget)
	if GetExecutable(s, EdgePoint(deadEdge)).IsLive() {
		t.Errorf("the edge out of a dead block should be dead")
	}
}
