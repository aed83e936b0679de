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

package constprop_test

import (
	"go/constant"
	"testing"

	"github.com/quarrylang/quarry/analysis/config"
	"github.com/quarrylang/quarry/analysis/constprop"
	"github.com/quarrylang/quarry/analysis/dataflow"
	"github.com/quarrylang/quarry/internal/irtest"
	"github.com/quarrylang/quarry/ir"
)

func run(t *testing.T, m *irtest.Module) *constprop.Analysis {
	t.Helper()
	s := dataflow.NewSolver(config.NewTestLogGroup(config.ErrLevel), m.Symbols)
	dataflow.NewDeadCodeAnalysis(s)
	a := constprop.New(s)
	if err := s.RunToFixpoint(m.Top); err != nil {
		t.Fatalf("solver failed: %v", err)
	}
	return a
}

func expectConstant(t *testing.T, a *constprop.Analysis, v ir.Value, want int64) {
	t.Helper()
	r := a.Result(v)
	if !r.IsConstant() {
		t.Fatalf("expected %s to be the constant %d, got %s", v, want, r)
	}
	got, ok := constant.Int64Val(r.Constant())
	if !ok || got != want {
		t.Errorf("expected %s to be %d, got %s", v, want, r)
	}
}

func expectVarying(t *testing.T, a *constprop.Analysis, v ir.Value) {
	t.Helper()
	if r := a.Result(v); !r.IsVarying() {
		t.Errorf("expected %s to be varying, got %s", v, r)
	}
}

func TestFoldArithmetic(t *testing.T) {
	m := irtest.NewModule()
	f := m.Func("main", true)
	x := irtest.Const(f.Entry(), 2)
	y := irtest.Const(f.Entry(), 3)
	sum := irtest.Add(f.Entry(), x, y)
	product := irtest.Mul(f.Entry(), sum, sum)
	irtest.Return(f.Entry(), product)

	a := run(t, m)
	expectConstant(t, a, sum, 5)
	expectConstant(t, a, product, 25)
}

func TestExportedParametersVary(t *testing.T) {
	m := irtest.NewModule()
	f := m.Func("main", true, ir.IntType)
	one := irtest.Const(f.Entry(), 1)
	sum := irtest.Add(f.Entry(), f.Param(0), one)
	irtest.Return(f.Entry(), sum)

	a := run(t, m)
	expectVarying(t, a, f.Param(0))
	expectVarying(t, a, sum)
}

func TestJoinAtBlockArgument(t *testing.T) {
	m := irtest.NewModule()

	// Both branches forward the same constant: the join keeps it.
	f := m.Func("same", true)
	join := f.Block(ir.IntType)
	c := irtest.Const(f.Entry(), 3)
	cond := irtest.ConstBool(f.Entry(), true)
	irtest.CondBr(f.Entry(), cond, join, join, []ir.Value{c}, []ir.Value{c})
	irtest.Return(join, join.Arg(0))

	// Distinct constants join to varying.
	g := m.Func("different", true)
	gJoin := g.Block(ir.IntType)
	c1 := irtest.Const(g.Entry(), 3)
	c2 := irtest.Const(g.Entry(), 4)
	gCond := irtest.ConstBool(g.Entry(), true)
	irtest.CondBr(g.Entry(), gCond, gJoin, gJoin, []ir.Value{c1}, []ir.Value{c2})
	irtest.Return(gJoin, gJoin.Arg(0))

	a := run(t, m)
	expectConstant(t, a, join.Arg(0), 3)
	expectVarying(t, a, gJoin.Arg(0))
}

func TestDeadPredecessorDoesNotPollute(t *testing.T) {
	m := irtest.NewModule()
	f := m.Func("main", true)
	join := f.Block(ir.IntType)
	unreached := f.Block()

	c := irtest.Const(f.Entry(), 3)
	irtest.Br(f.Entry(), join, c)
	irtest.Return(join, join.Arg(0))

	// The unreachable block forwards a different constant to the same target.
	other := irtest.Const(unreached, 9)
	irtest.Br(unreached, join, other)

	a := run(t, m)
	expectConstant(t, a, join.Arg(0), 3)
}

func TestStructuredConditional(t *testing.T) {
	m := irtest.NewModule()

	f := m.Func("same", true, ir.BoolType)
	ifOp := irtest.NewIf(f.Entry(), f.Param(0), ir.IntType)
	irtest.Yield(ifOp.Then, irtest.Const(ifOp.Then, 7))
	irtest.Yield(ifOp.Else, irtest.Const(ifOp.Else, 7))
	irtest.Return(f.Entry(), ifOp.Op.Result(0))

	g := m.Func("different", true, ir.BoolType)
	gIf := irtest.NewIf(g.Entry(), g.Param(0), ir.IntType)
	irtest.Yield(gIf.Then, irtest.Const(gIf.Then, 7))
	irtest.Yield(gIf.Else, irtest.Const(gIf.Else, 8))
	irtest.Return(g.Entry(), gIf.Op.Result(0))

	a := run(t, m)
	expectConstant(t, a, ifOp.Op.Result(0), 7)
	expectVarying(t, a, gIf.Op.Result(0))
}

func TestPartiallyCoveredRegionResults(t *testing.T) {
	m := irtest.NewModule()
	f := m.Func("main", true, ir.BoolType)

	// Both yields forward their constant to result #1 only; result #0 has no
	// operand mapping. Default handling must widen only the uncovered result.
	ifOp := irtest.NewIf(f.Entry(), f.Param(0), ir.IntType, ir.IntType)
	irtest.YieldTo(ifOp.Then, 1, irtest.Const(ifOp.Then, 7))
	irtest.YieldTo(ifOp.Else, 1, irtest.Const(ifOp.Else, 7))
	irtest.Return(f.Entry(), ifOp.Op.Result(0), ifOp.Op.Result(1))

	a := run(t, m)
	expectVarying(t, a, ifOp.Op.Result(0))
	expectConstant(t, a, ifOp.Op.Result(1), 7)
}

func TestUnclassifiedRegionTerminatorWidens(t *testing.T) {
	m := irtest.NewModule()
	f := m.Func("main", true, ir.BoolType)

	// The then region ends in an operation with no region-terminator
	// semantics: the operand forwarding into the results cannot be resolved,
	// so the else yield's constant must not survive.
	ifOp := irtest.NewIf(f.Entry(), f.Param(0), ir.IntType)
	irtest.Opaque(ifOp.Then, 0)
	irtest.Yield(ifOp.Else, irtest.Const(ifOp.Else, 7))
	irtest.Return(f.Entry(), ifOp.Op.Result(0))

	a := run(t, m)
	expectVarying(t, a, ifOp.Op.Result(0))
}

func TestFixpointIdempotence(t *testing.T) {
	m := irtest.NewModule()

	callee := m.Func("addOne", false, ir.IntType)
	one := irtest.Const(callee.Entry(), 1)
	irtest.Return(callee.Entry(), irtest.Add(callee.Entry(), callee.Param(0), one))

	f := m.Func("main", true, ir.BoolType)
	ifOp := irtest.NewIf(f.Entry(), f.Param(0), ir.IntType)
	irtest.Yield(ifOp.Then, irtest.Const(ifOp.Then, 7))
	irtest.Yield(ifOp.Else, irtest.Const(ifOp.Else, 8))
	call := irtest.Call(f.Entry(), "addOne", 1, ifOp.Op.Result(0))
	irtest.Return(f.Entry(), call.Result(0))

	a := run(t, m)

	var values []ir.Value
	m.Top.Walk(func(op *ir.Operation) {
		values = append(values, op.Results()...)
		for _, region := range op.Regions() {
			for _, block := range region.Blocks() {
				values = append(values, block.Args()...)
			}
		}
	})
	before := make([]constprop.ConstantValue, len(values))
	for i, v := range values {
		before[i] = a.Result(v)
	}

	// Re-visiting every point of a converged analysis must not move any
	// lattice.
	m.Top.Walk(func(op *ir.Operation) {
		if err := a.Visit(dataflow.OpPoint(op)); err != nil {
			t.Fatalf("re-visit of %s failed: %v", op, err)
		}
		for _, region := range op.Regions() {
			for _, block := range region.Blocks() {
				if err := a.Visit(dataflow.BlockPoint(block)); err != nil {
					t.Fatalf("re-visit of %s failed: %v", block, err)
				}
			}
		}
	})
	for i, v := range values {
		if got := a.Result(v); !got.Equal(before[i]) {
			t.Errorf("re-visiting changed %s from %s to %s", v, before[i], got)
		}
	}
}

func TestInterproceduralConstants(t *testing.T) {
	m := irtest.NewModule()

	callee := m.Func("addOne", false, ir.IntType)
	one := irtest.Const(callee.Entry(), 1)
	sum := irtest.Add(callee.Entry(), callee.Param(0), one)
	irtest.Return(callee.Entry(), sum)

	caller := m.Func("main", true)
	four := irtest.Const(caller.Entry(), 4)
	call := irtest.Call(caller.Entry(), "addOne", 1, four)
	irtest.Return(caller.Entry(), call.Result(0))

	a := run(t, m)
	expectConstant(t, a, callee.Param(0), 4)
	expectConstant(t, a, sum, 5)
	expectConstant(t, a, call.Result(0), 5)
}

func TestMultipleCallSitesJoin(t *testing.T) {
	m := irtest.NewModule()

	callee := m.Func("id", false, ir.IntType)
	irtest.Return(callee.Entry(), callee.Param(0))

	caller := m.Func("main", true)
	c3 := irtest.Const(caller.Entry(), 3)
	c4 := irtest.Const(caller.Entry(), 4)
	first := irtest.Call(caller.Entry(), "id", 1, c3)
	second := irtest.Call(caller.Entry(), "id", 1, c4)
	irtest.Return(caller.Entry(), irtest.Add(caller.Entry(), first.Result(0), second.Result(0)))

	a := run(t, m)
	expectVarying(t, a, callee.Param(0))
	expectVarying(t, a, first.Result(0))
}

func TestUnknownCalleeVaries(t *testing.T) {
	m := irtest.NewModule()
	m.Declare("external")

	f := m.Func("main", true)
	call := irtest.Call(f.Entry(), "external", 1)
	irtest.Return(f.Entry(), call.Result(0))

	a := run(t, m)
	expectVarying(t, a, call.Result(0))
}

func TestOpaqueResultsVary(t *testing.T) {
	m := irtest.NewModule()
	f := m.Func("main", true)
	opaque := irtest.Opaque(f.Entry(), 1)
	one := irtest.Const(f.Entry(), 1)
	sum := irtest.Add(f.Entry(), opaque.Result(0), one)
	irtest.Return(f.Entry(), sum)

	a := run(t, m)
	expectVarying(t, a, opaque.Result(0))
	expectVarying(t, a, sum)
}

func TestLoopReachesFixpoint(t *testing.T) {
	m := irtest.NewModule()
	f := m.Func("main", true)
	header := f.Block(ir.IntType)

	zero := irtest.Const(f.Entry(), 0)
	irtest.Br(f.Entry(), header, zero)

	one := irtest.Const(header, 1)
	next := irtest.Add(header, header.Arg(0), one)
	irtest.Br(header, header, next)

	a := run(t, m)
	// The induction value takes 0, 1, 2, ... and must widen to varying.
	expectVarying(t, a, header.Arg(0))
	expectVarying(t, a, next)
}
