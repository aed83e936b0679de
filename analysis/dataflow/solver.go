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

	"github.com/quarrylang/quarry/analysis/config"
	"github.com/quarrylang/quarry/ir"
)

// A StateKind names a family of states, so that different analyses can attach
// distinct states to the same anchor. Each concrete analysis picks one kind
// for its lattices; the framework reserves KindExecutable and
// KindPredecessors.
type StateKind string

const (
	// KindExecutable is the kind of the Executable liveness states.
	KindExecutable StateKind = "executable"

	// KindPredecessors is the kind of the PredecessorState states.
	KindPredecessors StateKind = "predecessors"
)

// An Analysis plugs into the solver: it seeds its state in Initialize and is
// re-invoked on program points until nothing changes anymore.
type Analysis interface {
	// Initialize seeds the analysis state by visiting the IR under top once.
	Initialize(top *ir.Operation) error

	// Visit recomputes the state at p from the states it depends on.
	Visit(p Point) error
}

// A WorkItem is one unit of solver work: one analysis visiting one point.
type WorkItem struct {
	Point    Point
	Analysis Analysis
}

// stateKey addresses a state in the solver: states are keyed by the anchor
// they are attached to (a Point or an ir.Value) and their kind.
type stateKey struct {
	anchor any
	kind   StateKind
}

// The Solver owns all analysis state and drives the loaded analyses to a
// global fixpoint over a single-threaded FIFO work queue. Correctness does not
// depend on the order in which enqueued points are processed; monotone,
// idempotent state updates make every order converge to the same fixpoint.
type Solver struct {
	logger    *config.LogGroup
	symbols   *ir.SymbolTable
	analyses  []Analysis
	queue     []WorkItem
	states    map[stateKey]State
	edges     map[CFGEdge]*CFGEdge
	maxVisits int
}

// NewSolver returns a solver with no analyses loaded. The symbol table is used
// by analyses to resolve call targets and may be nil when the IR contains no
// calls.
func NewSolver(logger *config.LogGroup, symbols *ir.SymbolTable) *Solver {
	return &Solver{
		logger:    logger,
		symbols:   symbols,
		states:    map[stateKey]State{},
		edges:     map[CFGEdge]*CFGEdge{},
		maxVisits: -1,
	}
}

// SetMaxVisits bounds the number of point visitations of RunToFixpoint, after
// which it fails instead of looping. A non-positive bound means no limit.
func (s *Solver) SetMaxVisits(n int) {
	s.maxVisits = n
}

// Logger returns the solver's log group.
func (s *Solver) Logger() *config.LogGroup { return s.logger }

// SymbolTable returns the symbol table used for callee resolution.
func (s *Solver) SymbolTable() *ir.SymbolTable { return s.symbols }

// Load registers an analysis with the solver. Analyses are initialized in
// load order.
func (s *Solver) Load(a Analysis) {
	s.analyses = append(s.analyses, a)
}

// EdgeBetween returns the interned control-flow edge between two blocks.
func (s *Solver) EdgeBetween(from, to *ir.Block) *CFGEdge {
	key := CFGEdge{From: from, To: to}
	if e, ok := s.edges[key]; ok {
		return e
	}
	e := &CFGEdge{From: from, To: to}
	s.edges[key] = e
	return e
}

// GetOrCreate returns the state of the given kind attached to anchor, creating
// it with create on first reference. The anchor is either a Point or an
// ir.Value.
func (s *Solver) GetOrCreate(anchor any, kind StateKind, create func() State) State {
	key := stateKey{anchor: anchor, kind: kind}
	if st, ok := s.states[key]; ok {
		return st
	}
	st := create()
	s.states[key] = st
	return st
}

// Lookup returns the state of the given kind attached to anchor, nil if it was
// never created. Useful for reading results after the run.
func (s *Solver) Lookup(anchor any, kind StateKind) State {
	return s.states[stateKey{anchor: anchor, kind: kind}]
}

// AddDependency records that the state must re-enqueue w whenever it changes.
func (s *Solver) AddDependency(st State, w WorkItem) {
	st.addDependent(w)
}

// GetOrCreateFor is GetOrCreate plus an immediate dependency of w on the
// state: whenever the state changes, w is re-enqueued.
func (s *Solver) GetOrCreateFor(anchor any, kind StateKind, w WorkItem, create func() State) State {
	st := s.GetOrCreate(anchor, kind, create)
	s.AddDependency(st, w)
	return st
}

// PropagateIfChanged notifies the solver of the outcome of a state mutation:
// when changed, the state's OnUpdate enqueues all dependent work.
func (s *Solver) PropagateIfChanged(st State, changed ChangeResult) {
	if changed == Changed {
		st.OnUpdate(s)
	}
}

// Enqueue appends one unit of work to the queue. Enqueuing the same item
// multiple times is harmless; re-visiting a converged point reports no change.
func (s *Solver) Enqueue(w WorkItem) {
	s.queue = append(s.queue, w)
}

// RunToFixpoint initializes every loaded analysis on top and then processes
// the work queue until it is empty. The only termination condition is queue
// exhaustion; lattices with infinite ascending chains will not terminate.
func (s *Solver) RunToFixpoint(top *ir.Operation) error {
	for _, a := range s.analyses {
		if err := a.Initialize(top); err != nil {
			return fmt.Errorf("failed to initialize analysis %T: %w", a, err)
		}
	}
	visits := 0
	for len(s.queue) > 0 {
		w := s.queue[0]
		s.queue = s.queue[1:]
		visits++
		if s.maxVisits > 0 && visits > s.maxVisits {
			return fmt.Errorf("solver exceeded %d visits without reaching a fixpoint", s.maxVisits)
		}
		s.logger.Tracef("visit %s with %T", w.Point, w.Analysis)
		if err := w.Analysis.Visit(w.Point); err != nil {
			return fmt.Errorf("analysis %T failed at %s: %w", w.Analysis, w.Point, err)
		}
	}
	s.logger.Debugf("solver reached fixpoint after %d visits", visits)
	return nil
}
