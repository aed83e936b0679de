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

	"gonum.org/v1/gonum/graph"

	"github.com/quarrylang/quarry/ir"
)

// CFG is an abstraction over the block graph of one IR region to work with existing graph libraries.
// It implements the methods to satisfy graph.Iterator and Gonum's graph.Graph. Node ids are the
// block indices within the region.
type CFG struct {
	// The order of the graph
	order int

	// The region the CFG was constructed from
	Region *ir.Region

	// IDMap maps from node IDs to BlockNodes
	IDMap map[int64]BlockNode

	// Keys are all the node IDs
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge between IDMap[x] and IDMap[y]
	Edges map[int64]map[int64]bool
}

// NewCFG returns a new control-flow graph iterator over the blocks of region, where node ids
// correspond to the index of each block
func NewCFG(region *ir.Region) CFG {
	blocks := region.Blocks()
	n := len(blocks)
	idmap := make(map[int64]BlockNode, n)
	edges := make(map[int64]map[int64]bool, n)
	keys := make([]int64, n)
	for i, block := range blocks {
		id := int64(block.Index())
		keys[i] = id
		idmap[id] = BlockNode{block}
		edges[id] = map[int64]bool{}
		if term := block.Terminator(); term != nil {
			for _, succ := range term.Successors() {
				edges[id][int64(succ.Index())] = true
			}
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return CFG{
		order:  n,
		Region: region,
		IDMap:  idmap,
		Edges:  edges,
		Keys:   keys,
	}
}

// Subgraph returns a new graph that is the original graph with only the nodes in include. Only the edges that have
// both the origin and destination nodes in the include nodes are kept in the resulting graph.
// The subgraph's order, Region and IDMap are the same as in the original, meaning that node indices stay consistent
// across subgraphs.
func Subgraph(original CFG, include []int64) CFG {
	idmap := make(map[int64]BlockNode, len(include))
	edges := make(map[int64]map[int64]bool, len(include))
	keys := make([]int64, len(include))

	for j, i := range include {
		keys[j] = i
		idmap[i] = original.IDMap[i]
	}

	for _, i := range include {
		edges[i] = map[int64]bool{}
		for e := range original.Edges[i] {
			if _, ok := idmap[e]; ok {
				edges[i][e] = true
			}
		}
	}

	return CFG{
		order:  original.Order(),
		Region: original.Region,
		IDMap:  original.IDMap,
		Edges:  edges,
		Keys:   keys,
	}
}

// Order implements the order of the graph.Iterator interface for the CFG
func (c CFG) Order() int {
	return c.order
}

// Visit implements the graph.Iterator interface for the CFG
func (c CFG) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	if _, ok := c.IDMap[int64(v)]; !ok {
		return false
	}
	for w := range c.Edges[int64(v)] {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// *************** Graph interface implementation **********************

// Node implements the Graph interface
func (c CFG) Node(v int) graph.Node {
	return c.IDMap[int64(v)]
}

// Nodes returns the set of nodes in the graph
func (c CFG) Nodes() graph.Nodes {
	keys := make([]int64, len(c.IDMap))

	i := 0
	for k := range c.IDMap {
		keys[i] = k
		i++
	}
	return &NodeSet{
		nodes: c.IDMap,
		ids:   keys,
		cur:   0,
	}
}

// From returns the set of nodes reachable from the id
func (c CFG) From(id int64) graph.Nodes {
	var keys []int64

	for out := range c.Edges[id] {
		keys = append(keys, out)
	}
	return &NodeSet{
		nodes: c.IDMap,
		ids:   keys,
		cur:   0,
	}
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (c CFG) HasEdgeBetween(xid, yid int64) bool {
	xe := c.Edges[xid]
	ye := c.Edges[yid]
	return xe[yid] || ye[xid]
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (c CFG) Edge(uid, vid int64) graph.Edge {
	ue := c.Edges[uid]
	if ue != nil {
		if ue[vid] {
			return BlockEdge{from: c.IDMap[uid], to: c.IDMap[vid]}
		}
	}
	return nil
}

// *************** Nodes implementation **********************

// BlockNode is a wrapper around an *ir.Block that implements the graph.Node interface
type BlockNode struct {
	Block *ir.Block
}

// ID returns the id of the node
func (n BlockNode) ID() int64 {
	return int64(n.Block.Index())
}

func (n BlockNode) String() string {
	if n.Block == nil {
		return ""
	}
	return n.Block.String()
}

// NodeSet implements the graph.Nodes interface, an iterator over a set of nodes
type NodeSet struct {
	// nodes is the set of nodes in the iterator
	nodes map[int64]BlockNode

	// ids is the set of node ids in the iterator
	// invariant: len(ids) = len(nodes)
	ids []int64

	// cur is the current index of the iterator. The current node is nodes[ids[cur]]
	// invariant: 0 <= cur < len(nodes)
	cur int
}

// Next moves the current node to the next, and returns true if such a node exists. Otherwise, returns false
// and the current node has not changed.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len returns the length of the node set
func (ns *NodeSet) Len() int {
	return len(ns.ids)
}

// Reset resets the id of the current node in the set
func (ns *NodeSet) Reset() {
	ns.cur = 0
}

// Node return the current node in the set
func (ns *NodeSet) Node() graph.Node {
	return ns.nodes[ns.ids[ns.cur]]
}

// *************** Edge implementation **********************

// BlockEdge implements the graph.Edge interface
type BlockEdge struct {
	from BlockNode
	to   BlockNode
}

// From returns the origin of the edge
func (e BlockEdge) From() graph.Node {
	return e.from
}

// To returns the destination of the edge
func (e BlockEdge) To() graph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e BlockEdge) ReversedEdge() graph.Edge {
	return BlockEdge{from: e.to, to: e.from}
}
