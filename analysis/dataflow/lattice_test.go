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

	"github.com/quarrylang/quarry/internal/irtest"
	"github.com/quarrylang/quarry/ir"
)

// flags is a small powerset lattice ordered by inclusion: join is union, meet
// is intersection.
type flags struct {
	bits uint8
}

func (f flags) Join(other flags) flags { return flags{bits: f.bits | other.bits} }
func (f flags) Meet(other flags) flags { return flags{bits: f.bits & other.bits} }
func (f flags) Equal(other flags) bool { return f.bits == other.bits }

func latticeAnchor() ir.Value {
	m := irtest.NewModule()
	f := m.Func("f", true)
	return irtest.Const(f.Entry(), 0)
}

func TestJoinValueMonotone(t *testing.T) {
	l := NewLattice(latticeAnchor(), flags{})

	if l.JoinValue(flags{bits: 0b01}) != Changed {
		t.Fatalf("joining a new fact must report Changed")
	}
	if l.JoinValue(flags{bits: 0b01}) != Unchanged {
		t.Errorf("re-joining an incorporated fact must report Unchanged")
	}
	if l.JoinValue(flags{bits: 0b11}) != Changed {
		t.Fatalf("joining a strictly greater fact must report Changed")
	}
	if l.JoinValue(flags{bits: 0b10}) != Unchanged {
		t.Errorf("joining a subsumed fact must report Unchanged")
	}
	if got := l.Value(); got.bits != 0b11 {
		t.Errorf("expected bits 0b11, got %#b", got.bits)
	}
}

func TestMeetValueMonotone(t *testing.T) {
	l := NewLattice(latticeAnchor(), flags{bits: 0b11})

	if l.MeetValue(flags{bits: 0b01}) != Changed {
		t.Fatalf("meeting a new fact must report Changed")
	}
	if l.MeetValue(flags{bits: 0b01}) != Unchanged {
		t.Errorf("re-meeting an incorporated fact must report Unchanged")
	}
	if l.MeetValue(flags{bits: 0b11}) != Unchanged {
		t.Errorf("meeting a weaker fact must report Unchanged")
	}
	if got := l.Value(); got.bits != 0b01 {
		t.Errorf("expected bits 0b01, got %#b", got.bits)
	}
}

func TestJoinThroughAbstractLattice(t *testing.T) {
	anchor := latticeAnchor()
	lhs := NewLattice(anchor, flags{})
	rhs := NewLattice(anchor, flags{bits: 0b10})

	if lhs.Join(rhs) != Changed {
		t.Fatalf("joining a new element must report Changed")
	}
	if lhs.Join(rhs) != Unchanged {
		t.Errorf("re-joining the same element must report Unchanged")
	}
	if !lhs.Value().Equal(rhs.Value()) {
		t.Errorf("expected %#b, got %#b", rhs.Value().bits, lhs.Value().bits)
	}
}
