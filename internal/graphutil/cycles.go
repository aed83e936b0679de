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

import (
	"sort"

	"github.com/yourbasic/graph"
)

// FindAllElementaryCycles finds all elementary cycles of the control-flow
// graph, using Donald B. Johnson's algorithm from "Finding All The Elementary
// Circuits of a Directed Graph", 1975. Each cycle is reported as the list of
// node ids along it, with the start node repeated at the end. Single-node
// loops are not reported.
func FindAllElementaryCycles(cg CFG) [][]int64 {
	j := &johnson{
		blocked:   map[int64]bool{},
		blockedBy: map[int64]map[int64]bool{},
	}
	start := 0
	for start < len(cg.Keys) {
		sub := Subgraph(cg, cg.Keys[start:])
		found := false
		for _, component := range graph.StrongComponents(sub) {
			if len(component) < 2 {
				continue
			}
			found = true
			sort.Slice(component, func(a, b int) bool { return component[a] < component[b] })
			least := component[0]
			j.stack = j.stack[:0]
			j.blocked = map[int64]bool{}
			j.blockedBy = map[int64]map[int64]bool{}
			j.circuit(int64(least), int64(least), sub)
			start = least + 1
		}
		if !found {
			break
		}
	}
	return j.cycles
}

// johnson holds the blocked sets and the current path of one run of the
// algorithm.
type johnson struct {
	blocked   map[int64]bool
	blockedBy map[int64]map[int64]bool
	stack     []int64
	cycles    [][]int64
}

func (j *johnson) unblock(u int64) {
	j.blocked[u] = false
	for w := range j.blockedBy[u] {
		if j.blocked[w] {
			j.unblock(w)
		}
	}
}

// circuit extends the current path from v, recording every elementary circuit
// that closes back at the start node s. It returns true if any circuit was
// found from v.
func (j *johnson) circuit(v int64, s int64, g CFG) bool {
	found := false
	j.stack = append(j.stack, v)
	j.blocked[v] = true
	for w := range g.Edges[v] {
		switch {
		case w == s:
			cycle := make([]int64, len(j.stack), len(j.stack)+1)
			copy(cycle, j.stack)
			j.cycles = append(j.cycles, append(cycle, w))
			found = true
		case !j.blocked[w]:
			if j.circuit(w, s, g) {
				found = true
			}
		}
	}

	if found {
		j.unblock(v)
	} else {
		for w := range g.Edges[v] {
			if j.blockedBy[w] == nil {
				j.blockedBy[w] = map[int64]bool{}
			}
			j.blockedBy[w][v] = true
		}
	}
	j.stack = j.stack[:len(j.stack)-1]
	return found
}
