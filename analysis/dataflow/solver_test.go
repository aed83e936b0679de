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
	"github.com/quarrylang/quarry/ir"
)

func testSolver() *Solver {
	return NewSolver(config.NewTestLogGroup(config.ErrLevel), ir.NewSymbolTable())
}

func TestChangeResultOr(t *testing.T) {
	if Unchanged.Or(Unchanged) != Unchanged {
		t.Errorf("unchanged|unchanged should be unchanged")
	}
	if Unchanged.Or(Changed) != Changed || Changed.Or(Unchanged) != Changed {
		t.Errorf("changed should absorb unchanged")
	}
	if Changed.String() != "changed" || Unchanged.String() != "unchanged" {
		t.Errorf("unexpected ChangeResult strings: %s, %s", Changed, Unchanged)
	}
}

func TestEdgeInterning(t *testing.T) {
	s := testSolver()
	top := ir.NewOperation(ir.OpSpec{Name: "test.func", Regions: 1})
	b0 := top.AddBlock(0)
	b1 := top.AddBlock(0)
	e1 := s.EdgeBetween(b0, b1)
	e2 := s.EdgeBetween(b0, b1)
	if e1 != e2 {
		t.Errorf("the same edge should be interned to one instance")
	}
	if s.EdgeBetween(b1, b0) == e1 {
		t.Errorf("the reverse edge should be a distinct instance")
	}
}

func TestStateInterning(t *testing.T) {
	s := testSolver()
	top := ir.NewOperation(ir.OpSpec{Name: "test.func", Regions: 1})
	b0 := top.AddBlock(0)
	s1 := GetExecutable(s, BlockPoint(b0))
	s2 := GetExecutable(s, BlockPoint(b0))
	if s1 != s2 {
		t.Errorf("the state of one anchor and kind should be a single instance")
	}
	if s.Lookup(BlockPoint(b0), KindExecutable) != State(s1) {
		t.Errorf("Lookup should find the created state")
	}
	if s.Lookup(BlockPoint(b0), KindPredecessors) != nil {
		t.Errorf("Lookup of a never-created kind should be nil")
	}
}

// countingAnalysis counts its visits, for testing the dependency machinery.
type countingAnalysis struct {
	visits int
}

func (c *countingAnalysis) Initialize(*ir.Operation) error { return nil }

func (c *countingAnalysis) Visit(Point) error {
	c.visits++
	return nil
}

func TestDependencyRetrigger(t *testing.T) {
	s := testSolver()
	top := ir.NewOperation(ir.OpSpec{Name: "test.func", Regions: 1})
	b0 := top.AddBlock(0)
	counter := &countingAnalysis{}
	s.Load(counter)

	ps := GetPredecessorState(s, BlockPoint(b0))
	s.AddDependency(ps, WorkItem{Point: BlockPoint(b0), Analysis: counter})

	// An unchanged update must not enqueue anything, a changed one must.
	s.PropagateIfChanged(ps, Unchanged)
	s.PropagateIfChanged(ps, ps.SetHasUnknownPredecessors())
	s.PropagateIfChanged(ps, ps.SetHasUnknownPredecessors())

	if err := s.RunToFixpoint(top); err != nil {
		t.Fatalf("solver failed: %v", err)
	}
	if counter.visits != 1 {
		t.Errorf("expected exactly one dependent visit, got %d", counter.visits)
	}
}

// loopingAnalysis re-enqueues itself forever, for testing the visit bound.
type loopingAnalysis struct {
	s *Solver
}

func (l *loopingAnalysis) Initialize(top *ir.Operation) error {
	l.s.Enqueue(WorkItem{Point: OpPoint(top), Analysis: l})
	return nil
}

func (l *loopingAnalysis) Visit(p Point) error {
	l.s.Enqueue(WorkItem{Point: p, Analysis: l})
	return nil
}

func TestMaxVisits(t *testing.T) {
	s := testSolver()
	s.SetMaxVisits(16)
	s.Load(&loopingAnalysis{s: s})
	top := ir.NewOperation(ir.OpSpec{Name: "test.func"})
	if err := s.RunToFixpoint(top); err == nil {
		t.Fatalf("a diverging analysis should exceed the visit bound")
	}
}

func TestPredecessorState(t *testing.T) {
	ps := &PredecessorState{}
	if !ps.AllPredecessorsKnown() {
		t.Errorf("a fresh state should have all predecessors known")
	}
	pred := ir.NewOperation(ir.OpSpec{Name: "test.return"})
	if ps.AddPredecessor(pred, nil) != Changed {
		t.Errorf("adding a new predecessor should report a change")
	}
	if ps.AddPredecessor(pred, nil) != Unchanged {
		t.Errorf("re-adding a predecessor should report no change")
	}
	if len(ps.KnownPredecessors()) != 1 {
		t.Errorf("expected one known predecessor, got %d", len(ps.KnownPredecessors()))
	}
	if ps.SetHasUnknownPredecessors() != Changed || ps.AllPredecessorsKnown() {
		t.Errorf("flagging unknown predecessors should stick")
	}
}
