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

// ChangeResult reports whether a state update changed anything. Every mutation
// of analysis state returns one so the caller can feed it to
// [Solver.PropagateIfChanged].
type ChangeResult int

const (
	// Unchanged means the update had no effect.
	Unchanged ChangeResult = iota

	// Changed means the state was modified and dependents must be re-visited.
	Changed
)

// Or combines two change results.
func (c ChangeResult) Or(other ChangeResult) ChangeResult {
	if c == Changed || other == Changed {
		return Changed
	}
	return Unchanged
}

func (c ChangeResult) String() string {
	if c == Changed {
		return "changed"
	}
	return "unchanged"
}

// A State is a piece of information computed by an analysis and attached to a
// program point or value. States are created lazily by the solver, mutated
// only monotonically, and destroyed with the solver.
type State interface {
	// OnUpdate is called by the solver when the state has changed. It enqueues
	// all work that depends on the state. Implementations embedding baseState
	// that override OnUpdate must call the embedded version as well.
	OnUpdate(s *Solver)

	addDependent(w WorkItem)
}

// baseState carries the dependency bookkeeping shared by all states: the set
// of (point, analysis) pairs to re-enqueue when the state changes. Dependents
// are only ever added during a run, never removed.
type baseState struct {
	dependents   []WorkItem
	dependentSet map[WorkItem]bool
}

func (b *baseState) addDependent(w WorkItem) {
	if b.dependentSet == nil {
		b.dependentSet = map[WorkItem]bool{}
	}
	if b.dependentSet[w] {
		return
	}
	b.dependentSet[w] = true
	b.dependents = append(b.dependents, w)
}

// OnUpdate enqueues all recorded dependents.
func (b *baseState) OnUpdate(s *Solver) {
	for _, w := range b.dependents {
		s.Enqueue(w)
	}
}
