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

package graphutil_test

import (
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/yourbasic/graph"
	"golang.org/x/exp/slices"

	"github.com/quarrylang/quarry/internal/funcutil"
	"github.com/quarrylang/quarry/internal/graphutil"
	"github.com/quarrylang/quarry/internal/irtest"
)

func TestFindAllElementaryCycles(t *testing.T) {
	// entry -> b1 <-> b2 -> b3, and b3 loops on itself.
	m := irtest.NewModule()
	f := m.Func("loops", true)
	b1 := f.Block()
	b2 := f.Block()
	b3 := f.Block()
	irtest.Br(f.Entry(), b1)
	irtest.Br(b1, b2)
	cond := irtest.ConstBool(b2, true)
	irtest.CondBr(b2, cond, b1, b3, nil, nil)
	irtest.Br(b3, b3)

	iterator := graphutil.NewCFG(f.Entry().Region())
	stats := graph.Check(iterator)
	if stats.Loops != 1 {
		t.Errorf("expected one self loop, got %d", stats.Loops)
	}

	// Self loops are single-node components and are not reported.
	cycles := graphutil.FindAllElementaryCycles(iterator)
	expected := []string{"121"}

	results := make([]string, len(cycles))
	for i, cycle := range cycles {
		results[i] = strings.Join(
			funcutil.Map(cycle, func(id int64) string { return strconv.Itoa(int(id)) }),
			"")
	}
	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	if !slices.Equal(results, expected) {
		t.Fatalf("expected cycles %v, got %v", expected, results)
	}
}

func TestCFGSubgraph(t *testing.T) {
	m := irtest.NewModule()
	f := m.Func("linear", true)
	b1 := f.Block()
	b2 := f.Block()
	irtest.Br(f.Entry(), b1)
	irtest.Br(b1, b2)
	irtest.Return(b2)

	cfg := graphutil.NewCFG(f.Entry().Region())
	sub := graphutil.Subgraph(cfg, []int64{1, 2})
	if len(sub.Keys) != 2 {
		t.Fatalf("expected 2 nodes in the subgraph, got %d", len(sub.Keys))
	}
	if !sub.Edges[1][2] {
		t.Errorf("the b1 -> b2 edge should survive in the subgraph")
	}
	if len(sub.Edges[2]) != 0 {
		t.Errorf("edges leaving the subgraph should be dropped")
	}
}
