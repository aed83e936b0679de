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

/*
Package dataflow implements the core of the sparse dataflow analysis framework:
a work-queue [Solver] that drives a set of analyses to a fixpoint, and the
generic forward ([SparseForwardAnalysis]) and backward
([SparseBackwardAnalysis]) drivers that concrete analyses plug a transfer
function into.

A sparse analysis attaches one lattice element to each IR value and propagates
facts only along def-use chains and control-flow edges. The solver owns all
state: lattice elements, the [Executable] liveness flags of blocks and edges,
and the [PredecessorState] call-graph and region control-flow predecessors,
each created lazily on first reference and addressed by (anchor, [StateKind]).
When a state changes, the solver re-enqueues every (point, analysis) pair that
previously read it, so visitation order never affects the final fixpoint as
long as lattice updates are monotone.

To run an analysis, create a solver, load [NewDeadCodeAnalysis] plus the
analyses you are interested in, and call [Solver.RunToFixpoint] on the
top-level operation:

	solver := dataflow.NewSolver(logger, symbols)
	dataflow.NewDeadCodeAnalysis(solver)
	cp := constprop.New(solver)
	if err := solver.RunToFixpoint(module); err != nil { ... }

After the run, query the solver for the lattice of any value.

Termination requires every loaded lattice to satisfy the ascending (forward)
or descending (backward) chain condition; the solver does not bound the number
of visits.
*/
package dataflow
