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

import "github.com/quarrylang/quarry/ir"

// An AbstractLattice is a dataflow fact attached to one IR value, ordered by
// join (forward analyses) or meet (backward analyses). Updates must be
// monotone: repeated joins only ever move toward more information, repeated
// meets toward more conservative information, and re-applying an already
// incorporated fact reports Unchanged.
type AbstractLattice interface {
	State

	// Anchor returns the value the lattice element is attached to.
	Anchor() ir.Value

	// Join incorporates other into the receiver; forward-monotone.
	Join(other AbstractLattice) ChangeResult

	// Meet incorporates other into the receiver; backward-monotone.
	Meet(other AbstractLattice) ChangeResult

	// UseDefSubscribe registers an analysis to be re-invoked on every user of
	// the anchor value whenever this element changes. This is how facts flow
	// from a value's definition site to all its uses.
	UseDefSubscribe(a Analysis)
}

// LatticeBase implements the bookkeeping shared by lattice elements: the
// anchor value and the use-def subscriber list. Concrete lattices embed it.
type LatticeBase struct {
	baseState
	value         ir.Value
	subscribers   []Analysis
	subscriberSet map[Analysis]bool
}

// NewLatticeBase returns a lattice base anchored at v.
func NewLatticeBase(v ir.Value) LatticeBase {
	return LatticeBase{value: v}
}

// Anchor returns the value the element is attached to.
func (l *LatticeBase) Anchor() ir.Value { return l.value }

// UseDefSubscribe registers a for use-def re-visitation.
func (l *LatticeBase) UseDefSubscribe(a Analysis) {
	if l.subscriberSet == nil {
		l.subscriberSet = map[Analysis]bool{}
	}
	if l.subscriberSet[a] {
		return
	}
	l.subscriberSet[a] = true
	l.subscribers = append(l.subscribers, a)
}

// OnUpdate enqueues the dependents of the element and, for every use-def
// subscribed analysis, all users of the anchor value.
func (l *LatticeBase) OnUpdate(s *Solver) {
	l.baseState.OnUpdate(s)
	for _, user := range l.value.Users() {
		for _, a := range l.subscribers {
			s.Enqueue(WorkItem{Point: OpPoint(user), Analysis: a})
		}
	}
}

// A LatticeValue is the immutable value held by a Lattice. Join and Meet must
// be idempotent, commutative and associative in effect: the order in which
// facts are combined must not change the final fixpoint.
type LatticeValue[T any] interface {
	// Join returns the least upper bound of the receiver and other.
	Join(other T) T

	// Meet returns the greatest lower bound of the receiver and other.
	Meet(other T) T

	// Equal reports whether the receiver and other hold the same fact.
	Equal(other T) bool
}

// Lattice adapts a LatticeValue to the AbstractLattice interface. Most
// concrete analyses only define a LatticeValue and use this adapter.
type Lattice[T LatticeValue[T]] struct {
	LatticeBase
	val T
}

// NewLattice returns a lattice element for v holding bottom.
func NewLattice[T LatticeValue[T]](v ir.Value, bottom T) *Lattice[T] {
	return &Lattice[T]{LatticeBase: NewLatticeBase(v), val: bottom}
}

// Value returns the current lattice value.
func (l *Lattice[T]) Value() T { return l.val }

// Join incorporates other, which must hold the same value type.
func (l *Lattice[T]) Join(other AbstractLattice) ChangeResult {
	return l.JoinValue(other.(*Lattice[T]).val)
}

// JoinValue joins a raw value into the element.
func (l *Lattice[T]) JoinValue(v T) ChangeResult {
	joined := l.val.Join(v)
	if joined.Equal(l.val) {
		return Unchanged
	}
	l.val = joined
	return Changed
}

// Meet incorporates other, which must hold the same value type.
func (l *Lattice[T]) Meet(other AbstractLattice) ChangeResult {
	return l.MeetValue(other.(*Lattice[T]).val)
}

// MeetValue meets a raw value into the element.
func (l *Lattice[T]) MeetValue(v T) ChangeResult {
	met := l.val.Meet(v)
	if met.Equal(l.val) {
		return Unchanged
	}
	l.val = met
	return Changed
}
