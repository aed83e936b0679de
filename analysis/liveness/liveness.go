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

// Package liveness implements a backward sparse analysis marking the IR
// values whose computation can be observed: values feeding operations with
// side effects, branch decisions, or returned values that some caller may
// use. Values never marked live are candidates for removal.
package liveness

import (
	"github.com/quarrylang/quarry/analysis/dataflow"
	"github.com/quarrylang/quarry/ir"
)

// Kind is the state kind of the liveness lattices in the solver.
const Kind dataflow.StateKind = "liveness"

// A Liveness is the fact attached to one IR value. The lattice has two
// points: dead (bottom) and live.
type Liveness struct {
	Live bool
}

// Join returns live if either element is live.
func (l Liveness) Join(other Liveness) Liveness { return Liveness{Live: l.Live || other.Live} }

// Meet returns live if either element is live. Liveness only ever moves from
// dead to live, so meet and join coincide.
func (l Liveness) Meet(other Liveness) Liveness { return l.Join(other) }

// Equal reports whether both elements hold the same fact.
func (l Liveness) Equal(other Liveness) bool { return l.Live == other.Live }

func (l Liveness) String() string {
	if l.Live {
		return "live"
	}
	return "dead"
}

// Analysis is the liveness analysis. Create it with New; results are
// available through IsLive after the solver runs.
type Analysis struct {
	*dataflow.SparseBackwardAnalysis
}

// New creates the analysis and loads it into the solver.
func New(s *dataflow.Solver) *Analysis {
	a := &Analysis{}
	a.SparseBackwardAnalysis = dataflow.NewSparseBackwardAnalysis(s, Kind, a)
	return a
}

// NewLattice returns the dead element for v.
func (a *Analysis) NewLattice(v ir.Value) dataflow.AbstractLattice {
	return dataflow.NewLattice(v, Liveness{})
}

// SetToExitState marks the element live: a value whose consumers are unknown
// must be assumed observed.
func (a *Analysis) SetToExitState(l dataflow.AbstractLattice) dataflow.ChangeResult {
	return l.(*dataflow.Lattice[Liveness]).MeetValue(Liveness{Live: true})
}

// VisitOperation marks the operands of an operation live when the operation
// has observable side effects or any of its results is live.
func (a *Analysis) VisitOperation(op *ir.Operation, operands, results []dataflow.AbstractLattice) {
	live := ir.HasEffects(op)
	if !live {
		for _, r := range results {
			if r.(*dataflow.Lattice[Liveness]).Value().Live {
				live = true
				break
			}
		}
	}
	if !live {
		return
	}
	for _, operand := range operands {
		a.Propagate(operand, a.SetToExitState(operand))
	}
}

// VisitBranchOperand marks a structural branch operand, such as a condition,
// live: it decides which code executes.
func (a *Analysis) VisitBranchOperand(op *ir.Operation, operandIndex int) {
	l := a.Lattice(op.Operand(operandIndex))
	a.Propagate(l, a.SetToExitState(l))
}

// VisitCallOperand marks an operand passed to an unanalyzable callee live.
func (a *Analysis) VisitCallOperand(op *ir.Operation, operandIndex int) {
	l := a.Lattice(op.Operand(operandIndex))
	a.Propagate(l, a.SetToExitState(l))
}

// IsLive reports whether v was marked live. A value the analysis never
// reached reports dead.
func (a *Analysis) IsLive(v ir.Value) bool {
	st := a.Solver().Lookup(v, Kind)
	if st == nil {
		return false
	}
	return st.(*dataflow.Lattice[Liveness]).Value().Live
}
