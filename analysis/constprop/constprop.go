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

// Package constprop implements sparse conditional constant propagation: a
// forward dataflow analysis computing, for every IR value, whether it is a
// single known constant. It relies on a dead code analysis loaded into the
// same solver so that values only reachable through dead control flow do not
// pollute the result.
package constprop

import (
	"go/constant"

	"github.com/quarrylang/quarry/analysis/dataflow"
	"github.com/quarrylang/quarry/ir"
)

// Kind is the state kind of the constant lattices in the solver.
const Kind dataflow.StateKind = "constprop"

// Analysis is the constant propagation analysis. Create it with New; results
// are available through Result after the solver runs.
type Analysis struct {
	*dataflow.SparseForwardAnalysis
}

// New creates the analysis and loads it into the solver.
func New(s *dataflow.Solver) *Analysis {
	a := &Analysis{}
	a.SparseForwardAnalysis = dataflow.NewSparseForwardAnalysis(s, Kind, a)
	return a
}

// NewLattice returns the uninitialized element for v.
func (a *Analysis) NewLattice(v ir.Value) dataflow.AbstractLattice {
	return dataflow.NewLattice(v, Uninitialized())
}

// SetToEntryState widens the element to varying.
func (a *Analysis) SetToEntryState(l dataflow.AbstractLattice) dataflow.ChangeResult {
	return l.(*dataflow.Lattice[ConstantValue]).JoinValue(Varying())
}

// VisitOperation folds an operation whose operand constants are all known.
// Operations that cannot fold, or that have observable side effects, produce
// varying results.
func (a *Analysis) VisitOperation(op *ir.Operation, operands, results []dataflow.AbstractLattice) {
	folder, foldable := ir.AsFolder(op)
	if !foldable || ir.HasEffects(op) {
		a.markAllVarying(results)
		return
	}

	consts := make([]constant.Value, len(operands))
	for i, operand := range operands {
		v := operand.(*dataflow.Lattice[ConstantValue]).Value()
		// Nothing has reached this operand yet. Wait for a more informative
		// state instead of prematurely going to varying.
		if v.IsUninitialized() {
			return
		}
		consts[i] = v.Constant()
	}

	folded, ok := folder.Fold(op, consts)
	if !ok || len(folded) != len(results) {
		a.markAllVarying(results)
		return
	}
	for i, l := range results {
		if folded[i] == nil {
			a.Propagate(l, a.SetToEntryState(l))
			continue
		}
		a.Propagate(l, l.(*dataflow.Lattice[ConstantValue]).JoinValue(NewConstant(folded[i])))
	}
}

// VisitNonControlFlowArguments marks the elements with no known operand
// mapping as varying. The covered range keeps whatever the driver joins into
// it from the forwarded operands.
func (a *Analysis) VisitNonControlFlowArguments(_ *ir.Operation, _ ir.RegionSuccessor,
	lattices []dataflow.AbstractLattice, firstIndex, covered int) {
	a.markAllVarying(lattices[:firstIndex])
	if end := firstIndex + covered; end < len(lattices) {
		a.markAllVarying(lattices[end:])
	}
}

func (a *Analysis) markAllVarying(lattices []dataflow.AbstractLattice) {
	for _, l := range lattices {
		a.Propagate(l, a.SetToEntryState(l))
	}
}

// Result returns the constant fact of v after the solver has run. A value the
// analysis never reached reports uninitialized.
func (a *Analysis) Result(v ir.Value) ConstantValue {
	st := a.Solver().Lookup(v, Kind)
	if st == nil {
		return Uninitialized()
	}
	return st.(*dataflow.Lattice[ConstantValue]).Value()
}
