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

package ssair

import (
	"go/constant"
	"os"
	"path"
	"runtime"
	"testing"

	"golang.org/x/tools/go/loader"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/quarrylang/quarry/analysis/config"
	"github.com/quarrylang/quarry/analysis/constprop"
	"github.com/quarrylang/quarry/analysis/dataflow"
	"github.com/quarrylang/quarry/analysis/liveness"
	"github.com/quarrylang/quarry/ir"
)

func loadProgram(t *testing.T, file string) *ssa.Program {
	t.Helper()
	_, filename, _, _ := runtime.Caller(0)
	dir := path.Join(path.Dir(filename), "testdata/src/basic")
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("could not enter testdata dir: %v", err)
	}
	cfg := loader.Config{}
	cfg.CreateFromFilenames("main", file)
	prog, err := cfg.Load()
	if err != nil {
		t.Fatalf("could not load program: %v", err)
	}
	program := ssautil.CreateProgram(prog, 0)
	program.Build()
	return program
}

func findFunction(t *testing.T, prog *ssa.Program, name string) *ssa.Function {
	t.Helper()
	for fn := range ssautil.AllFunctions(prog) {
		if fn.Name() == name && fn.Blocks != nil {
			return fn
		}
	}
	t.Fatalf("function %s not found", name)
	return nil
}

func TestConversionStructure(t *testing.T) {
	prog := loadProgram(t, "main.go")
	m := BuildProgram(prog)

	looper := findFunction(t, prog, "looper")
	op := m.FuncOp(looper)
	if op == nil {
		t.Fatalf("looper was not converted")
	}
	region := op.Region(0)
	if len(region.Blocks()) != len(looper.Blocks) {
		t.Errorf("expected %d blocks, got %d", len(looper.Blocks), len(region.Blocks()))
	}
	if region.Entry().NumArgs() != len(looper.Params) {
		t.Errorf("entry should carry one argument per parameter")
	}

	// Every phi maps to a block argument of the phi's block.
	for _, block := range looper.Blocks {
		for _, instr := range block.Instrs {
			phi, ok := instr.(*ssa.Phi)
			if !ok {
				continue
			}
			v := m.ValueOf(phi)
			if v == nil {
				t.Fatalf("phi %s has no converted value", phi.Name())
			}
			if _, isArg := v.(*ir.BlockArgument); !isArg {
				t.Errorf("phi %s should convert to a block argument", phi.Name())
			}
		}
	}

	if m.Symbols.Lookup(looper.String()) != op {
		t.Errorf("the symbol table should resolve %s", looper)
	}
}

func runAnalyses(t *testing.T, m *Module) (*constprop.Analysis, *liveness.Analysis) {
	t.Helper()
	s := dataflow.NewSolver(config.NewTestLogGroup(config.ErrLevel), m.Symbols)
	dataflow.NewDeadCodeAnalysis(s)
	cp := constprop.New(s)
	lv := liveness.New(s)
	if err := s.RunToFixpoint(m.Top); err != nil {
		t.Fatalf("solver failed: %v", err)
	}
	return cp, lv
}

func TestConstantsThroughCalls(t *testing.T) {
	prog := loadProgram(t, "main.go")
	m := BuildProgram(prog)
	cp, lv := runAnalyses(t, m)

	addMul := findFunction(t, prog, "addMul")
	param := m.ValueOf(addMul.Params[0])
	r := cp.Result(param)
	if !r.IsConstant() {
		t.Fatalf("the parameter of addMul should be constant, got %s", r)
	}
	if v, _ := constant.Int64Val(r.Constant()); v != 2 {
		t.Errorf("expected addMul's parameter to be 2, got %s", r)
	}

	// The binary operations fold: 2*10 = 20 and 20+3 = 23.
	want := map[int64]bool{20: false, 23: false}
	for _, block := range addMul.Blocks {
		for _, instr := range block.Instrs {
			binop, ok := instr.(*ssa.BinOp)
			if !ok {
				continue
			}
			res := cp.Result(m.ValueOf(binop))
			if !res.IsConstant() {
				t.Fatalf("expected %s to fold, got %s", binop, res)
			}
			v, _ := constant.Int64Val(res.Constant())
			if _, expected := want[v]; !expected {
				t.Errorf("unexpected folded value %d", v)
			}
			want[v] = true
		}
	}
	for v, seen := range want {
		if !seen {
			t.Errorf("no binary operation folded to %d", v)
		}
	}

	// The folded chain feeds main's println, so it is observable.
	if !lv.IsLive(param) {
		t.Errorf("the parameter of addMul should be live")
	}
}

func TestPhiJoins(t *testing.T) {
	prog := loadProgram(t, "main.go")
	m := BuildProgram(prog)
	cp, _ := runAnalyses(t, m)

	pick := findFunction(t, prog, "pick")
	b := m.ValueOf(pick.Params[0])
	if r := cp.Result(b); !r.IsConstant() || !constant.BoolVal(r.Constant()) {
		t.Errorf("pick's parameter should be the constant true, got %s", cp.Result(b))
	}

	// Reachability is not pruned on the condition, so the phi of 1 and 2
	// varies.
	phis := 0
	for _, block := range pick.Blocks {
		for _, instr := range block.Instrs {
			if phi, ok := instr.(*ssa.Phi); ok {
				phis++
				if r := cp.Result(m.ValueOf(phi)); !r.IsVarying() {
					t.Errorf("expected the phi of distinct constants to vary, got %s", r)
				}
			}
		}
	}
	if phis == 0 {
		t.Fatalf("expected at least one phi in pick")
	}
}

func TestLoopInduction(t *testing.T) {
	prog := loadProgram(t, "main.go")
	m := BuildProgram(prog)
	cp, _ := runAnalyses(t, m)

	looper := findFunction(t, prog, "looper")
	for _, block := range looper.Blocks {
		for _, instr := range block.Instrs {
			if phi, ok := instr.(*ssa.Phi); ok {
				if r := cp.Result(m.ValueOf(phi)); !r.IsVarying() {
					t.Errorf("loop-carried %s should vary, got %s", phi.Name(), r)
				}
			}
		}
	}
}
