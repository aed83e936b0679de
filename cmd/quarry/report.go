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

package main

import (
	"fmt"
	"strings"

	"github.com/quarrylang/quarry/analysis/config"
	"github.com/quarrylang/quarry/analysis/constprop"
	"github.com/quarrylang/quarry/analysis/dataflow"
	"github.com/quarrylang/quarry/analysis/liveness"
	"github.com/quarrylang/quarry/analysis/ssair"
	"github.com/quarrylang/quarry/internal/formatutil"
	"github.com/quarrylang/quarry/internal/funcutil"
	"github.com/quarrylang/quarry/internal/graphutil"
	"github.com/quarrylang/quarry/ir"
)

// reportResults prints the analysis results for every function matching the
// config's function filter.
func reportResults(cfg *config.Config, logger *config.LogGroup, s *dataflow.Solver,
	m *ssair.Module, consts *constprop.Analysis, live *liveness.Analysis) {

	deadFuncs := map[string]bool{}
	for _, op := range functionOps(m) {
		name, _ := op.Attr("sym").(string)
		if !cfg.MatchFuncFilter(name) {
			continue
		}
		callable, ok := ir.AsCallable(op)
		if !ok {
			continue
		}
		body := callable.CallableRegion(op)
		if body == nil || body.Empty() {
			continue
		}
		if !dataflow.GetExecutable(s, dataflow.BlockPoint(body.Entry())).IsLive() {
			deadFuncs[name] = true
			continue
		}
		fmt.Printf("%s %s\n", formatutil.Bold("function"), formatutil.Sanitize(name))
		reportFunction(s, op, body, consts, live)
		if showLoops {
			reportLoops(logger, name, body)
		}
	}

	if cfg.RunAnalysis("deadcode") {
		for _, name := range funcutil.SetToOrderedSlice(deadFuncs) {
			fmt.Printf("  %s %s is never called\n", formatutil.Red("dead:"), formatutil.Sanitize(name))
		}
	}
	reportRecursiveGroups(cfg, m)
}

// functionOps returns the callable operations of the module in definition
// order.
func functionOps(m *ssair.Module) []*ir.Operation {
	return m.Top.Region(0).Entry().Operations()
}

func reportFunction(s *dataflow.Solver, fn *ir.Operation, body *ir.Region,
	consts *constprop.Analysis, live *liveness.Analysis) {

	for _, block := range body.Blocks() {
		if !dataflow.GetExecutable(s, dataflow.BlockPoint(block)).IsLive() {
			fmt.Printf("  %s %s is unreachable\n", formatutil.Red("dead:"), block)
			continue
		}
		for _, op := range block.Operations() {
			reportOperation(op, consts, live)
		}
	}
}

func reportOperation(op *ir.Operation, consts *constprop.Analysis, live *liveness.Analysis) {
	for _, v := range op.Results() {
		if consts != nil {
			if c := consts.Result(v); c.IsConstant() {
				fmt.Printf("  %s %s = %s\n", formatutil.Green("const:"), v, c)
			}
		}
		if live != nil && !live.IsLive(v) {
			fmt.Printf("  %s %s is never used\n", formatutil.Faint("dead value:"), v)
		}
	}
	for _, region := range op.Regions() {
		for _, block := range region.Blocks() {
			for _, nested := range block.Operations() {
				reportOperation(nested, consts, live)
			}
		}
	}
}

func reportLoops(logger *config.LogGroup, name string, body *ir.Region) {
	cfg := graphutil.NewCFG(body)
	cycles := graphutil.FindAllElementaryCycles(cfg)
	for _, cycle := range cycles {
		blocks := funcutil.Map(cycle, func(id int64) string {
			return cfg.IDMap[id].Block.String()
		})
		fmt.Printf("  %s %s\n", formatutil.Cyan("loop:"), strings.Join(blocks, " -> "))
	}
	logger.Debugf("%s: %d elementary loops", name, len(cycles))
}

// reportRecursiveGroups prints the groups of mutually recursive functions,
// computed from the static call edges of the module.
func reportRecursiveGroups(cfg *config.Config, m *ssair.Module) {
	callees := map[string][]string{}
	var names []string
	for _, fn := range functionOps(m) {
		name, _ := fn.Attr("sym").(string)
		names = append(names, name)
		fn.Walk(func(op *ir.Operation) {
			call, ok := ir.AsCall(op)
			if !ok {
				return
			}
			if callee := call.CalleeName(op); callee != "" {
				callees[name] = append(callees[name], callee)
			}
		})
	}

	sccs := graphutil.StronglyConnectedComponents(names, func(n string) []string {
		return callees[n]
	})
	for _, scc := range sccs {
		if len(scc) < 2 && !funcutil.Contains(callees[scc[0]], scc[0]) {
			continue
		}
		if !funcutil.Exists(scc, cfg.MatchFuncFilter) {
			continue
		}
		fmt.Printf("%s %s\n", formatutil.Purple("recursive:"), strings.Join(scc, ", "))
	}
}
