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

package graphutil

// sccState carries the bookkeeping of one run of Tarjan's algorithm.
type sccState[T comparable] struct {
	successors func(T) []T
	stack      []T
	onStack    map[T]bool
	index      map[T]int
	lowlink    map[T]int
	nextIndex  int
	sccs       [][]T
}

// StronglyConnectedComponents computes the strongly connected components of
// the directed graph whose nodes are nodes and whose edges are given by
// successors, using Tarjan's algorithm. The order within each component is
// arbitrary. Components are toposorted so that successors appear first; for
// bottom-up summary computations the result is already in the desired order.
func StronglyConnectedComponents[T comparable](nodes []T, successors func(T) []T) [][]T {
	s := &sccState[T]{
		successors: successors,
		onStack:    map[T]bool{},
		index:      map[T]int{},
		lowlink:    map[T]int{},
	}
	for _, v := range nodes {
		if _, seen := s.index[v]; !seen {
			s.visit(v)
		}
	}
	return s.sccs
}

func (s *sccState[T]) visit(v T) {
	s.index[v] = s.nextIndex
	s.lowlink[v] = s.nextIndex
	s.nextIndex++
	s.stack = append(s.stack, v)
	s.onStack[v] = true

	for _, w := range s.successors(v) {
		if _, seen := s.index[w]; !seen {
			s.visit(w)
			if s.lowlink[w] < s.lowlink[v] {
				s.lowlink[v] = s.lowlink[w]
			}
		} else if s.onStack[w] && s.index[w] < s.lowlink[v] {
			s.lowlink[v] = s.index[w]
		}
	}

	if s.lowlink[v] != s.index[v] {
		return
	}
	var scc []T
	for {
		w := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]
		s.onStack[w] = false
		scc = append(scc, w)
		if w == v {
			break
		}
	}
	s.sccs = append(s.sccs, scc)
}
