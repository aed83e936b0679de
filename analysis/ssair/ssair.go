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
	"fmt"
	"go/token"
	"go/types"
	"sort"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/quarrylang/quarry/ir"
)

// A Module is the converted form of a set of SSA functions: a top-level
// operation whose single region holds one callable operation per function,
// and the symbol table resolving calls between them.
type Module struct {
	Top     *ir.Operation
	Symbols *ir.SymbolTable

	funcOps map[*ssa.Function]*ir.Operation
	values  map[ssa.Value]ir.Value
	tuples  map[ssa.Value]*ir.Operation
}

// BuildProgram converts every function of the program that has a body.
func BuildProgram(prog *ssa.Program) *Module {
	var fns []*ssa.Function
	for fn := range ssautil.AllFunctions(prog) {
		if fn.Blocks != nil {
			fns = append(fns, fn)
		}
	}
	return BuildFunctions(fns...)
}

// BuildFunctions converts the given functions. Functions without a body are
// declared but not defined; calls to them are treated conservatively.
func BuildFunctions(fns ...*ssa.Function) *Module {
	sorted := make([]*ssa.Function, len(fns))
	copy(sorted, fns)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	m := &Module{
		Top:     ir.NewOperation(ir.OpSpec{Name: "go.module", Regions: 1}),
		Symbols: ir.NewSymbolTable(),
		funcOps: map[*ssa.Function]*ir.Operation{},
		values:  map[ssa.Value]ir.Value{},
		tuples:  map[ssa.Value]*ir.Operation{},
	}
	body := m.Top.AddBlock(0)

	for _, fn := range sorted {
		name := fn.String()
		op := body.Append(ir.OpSpec{
			Name:    "go.func",
			Regions: 1,
			Attrs:   map[string]any{"sym": name},
			Semantics: ir.Callable{
				Region:   0,
				Exported: isPublic(fn),
			},
		})
		m.funcOps[fn] = op
		m.Symbols.Define(name, op)
	}

	for _, fn := range sorted {
		if fn.Blocks != nil {
			newFuncBuilder(m, fn).build()
		}
	}
	return m
}

// FuncOp returns the callable operation of fn, nil if fn was not converted.
func (m *Module) FuncOp(fn *ssa.Function) *ir.Operation {
	return m.funcOps[fn]
}

// ValueOf returns the IR value corresponding to the SSA value v, nil if v has
// no single-value counterpart.
func (m *Module) ValueOf(v ssa.Value) ir.Value {
	return m.values[v]
}

// isPublic reports whether call sites outside the converted functions must be
// assumed for fn: exported functions, main and init, and synthetic or
// anonymous functions whose address may escape.
func isPublic(fn *ssa.Function) bool {
	if fn.Name() == "main" || fn.Name() == "init" {
		return true
	}
	if obj := fn.Object(); obj != nil {
		return obj.Exported()
	}
	return true
}

func typeOf(t types.Type) ir.Type {
	if basic, ok := t.Underlying().(*types.Basic); ok {
		info := basic.Info()
		if info&types.IsBoolean != 0 {
			return ir.BoolType
		}
		if info&types.IsInteger != 0 {
			return ir.IntType
		}
	}
	return ir.Type(t.String())
}

// resultTypes flattens the type of an SSA register into result types: tuples
// become one result per member, everything else a single result.
func resultTypes(t types.Type) []ir.Type {
	if tuple, ok := t.(*types.Tuple); ok {
		types := make([]ir.Type, tuple.Len())
		for i := 0; i < tuple.Len(); i++ {
			types[i] = typeOf(tuple.At(i).Type())
		}
		return types
	}
	return []ir.Type{typeOf(t)}
}

type funcBuilder struct {
	m      *Module
	fn     *ssa.Function
	op     *ir.Operation
	blocks map[*ssa.BasicBlock]*ir.Block
}

func newFuncBuilder(m *Module, fn *ssa.Function) *funcBuilder {
	return &funcBuilder{m: m, fn: fn, op: m.funcOps[fn], blocks: map[*ssa.BasicBlock]*ir.Block{}}
}

func (fb *funcBuilder) build() {
	entryTypes := make([]ir.Type, len(fb.fn.Params))
	for i, p := range fb.fn.Params {
		entryTypes[i] = typeOf(p.Type())
	}
	entry := fb.op.AddBlock(0, entryTypes...)
	fb.blocks[fb.fn.Blocks[0]] = entry
	for i, p := range fb.fn.Params {
		fb.m.values[p] = entry.Arg(i)
	}

	// Phi nodes become block arguments; the branches of the predecessors
	// forward the incoming values.
	for _, block := range fb.fn.Blocks[1:] {
		var argTypes []ir.Type
		for _, phi := range phisOf(block) {
			argTypes = append(argTypes, typeOf(phi.Type()))
		}
		fb.blocks[block] = fb.op.AddBlock(0, argTypes...)
	}
	for _, block := range fb.fn.Blocks[1:] {
		for i, phi := range phisOf(block) {
			fb.m.values[phi] = fb.blocks[block].Arg(i)
		}
	}

	// Constants, globals, free variables and function references used as
	// operands are materialized in the entry block before any instruction, so
	// every later use finds them defined.
	for _, block := range fb.fn.Blocks {
		for _, instr := range block.Instrs {
			for _, rand := range instr.Operands(nil) {
				fb.materialize(entry, *rand)
			}
		}
	}

	// Instructions are emitted in dominator-tree preorder: defs precede uses
	// everywhere except phi edges, which are read at the predecessor branch.
	for _, block := range fb.fn.DomPreorder() {
		for _, instr := range block.Instrs {
			fb.emit(fb.blocks[block], instr)
		}
	}
}

func phisOf(block *ssa.BasicBlock) []*ssa.Phi {
	var phis []*ssa.Phi
	for _, instr := range block.Instrs {
		if phi, ok := instr.(*ssa.Phi); ok {
			phis = append(phis, phi)
		}
	}
	return phis
}

// materialize defines an IR value in the entry block for an SSA operand that
// is not an instruction result or parameter. It is idempotent per value.
func (fb *funcBuilder) materialize(entry *ir.Block, v ssa.Value) {
	if v == nil {
		return
	}
	if _, done := fb.m.values[v]; done {
		return
	}
	switch val := v.(type) {
	case *ssa.Const:
		spec := ir.OpSpec{
			Name:    "go.const",
			Results: []ir.Type{typeOf(val.Type())},
			Attrs:   map[string]any{"value": val.Value},
		}
		if val.Value != nil {
			spec.Semantics = constSemantics{value: val.Value}
		}
		fb.m.values[v] = entry.Append(spec).Result(0)
	case *ssa.Global:
		fb.m.values[v] = entry.Append(ir.OpSpec{
			Name:    "go.global",
			Results: []ir.Type{typeOf(val.Type())},
			Attrs:   map[string]any{"sym": val.String()},
		}).Result(0)
	case *ssa.FreeVar:
		fb.m.values[v] = entry.Append(ir.OpSpec{
			Name:    "go.freevar",
			Results: []ir.Type{typeOf(val.Type())},
		}).Result(0)
	case *ssa.Function:
		fb.m.values[v] = entry.Append(ir.OpSpec{
			Name:    "go.funcref",
			Results: []ir.Type{typeOf(val.Type())},
			Attrs:   map[string]any{"sym": val.String()},
		}).Result(0)
	case *ssa.Builtin:
		fb.m.values[v] = entry.Append(ir.OpSpec{
			Name:    "go.builtin",
			Results: []ir.Type{ir.NoneType},
			Attrs:   map[string]any{"sym": val.Name()},
		}).Result(0)
	}
}

// value returns the IR value of an SSA value. Every operand is either a block
// argument, a materialized entry value, or the result of an already emitted
// instruction.
func (fb *funcBuilder) value(v ssa.Value) ir.Value {
	if iv, ok := fb.m.values[v]; ok {
		return iv
	}
	panic(fmt.Sprintf("ssair: operand %s of %s has no converted value", v.Name(), fb.fn))
}

func (fb *funcBuilder) valueList(vs []ssa.Value) []ir.Value {
	out := make([]ir.Value, len(vs))
	for i, v := range vs {
		out[i] = fb.value(v)
	}
	return out
}

// operandList resolves the generic operand list of an instruction, dropping
// operands with no value counterpart.
func (fb *funcBuilder) operandList(instr ssa.Instruction) []ir.Value {
	var out []ir.Value
	for _, rand := range instr.Operands(nil) {
		if *rand == nil {
			continue
		}
		if v, ok := fb.m.values[*rand]; ok {
			out = append(out, v)
		}
	}
	return out
}

func (fb *funcBuilder) emit(b *ir.Block, instr ssa.Instruction) {
	switch in := instr.(type) {
	case *ssa.Phi, *ssa.DebugRef:
		// Phis are block arguments; debug info carries no data flow.

	case *ssa.BinOp:
		op := b.Append(ir.OpSpec{
			Name:      "go.binop",
			Operands:  []ir.Value{fb.value(in.X), fb.value(in.Y)},
			Results:   []ir.Type{typeOf(in.Type())},
			Attrs:     map[string]any{"op": in.Op.String()},
			Semantics: binopSemantics{tok: in.Op},
		})
		fb.m.values[in] = op.Result(0)

	case *ssa.UnOp:
		fb.emitUnOp(b, in)

	case *ssa.Call:
		fb.emitCall(b, in)

	case *ssa.Return:
		b.Append(ir.OpSpec{
			Name:      "go.return",
			Operands:  fb.valueList(in.Results),
			Semantics: ir.Return{},
		})

	case *ssa.Jump:
		succ := in.Block().Succs[0]
		args := fb.phiArgs(succ, in.Block())
		b.Append(ir.OpSpec{
			Name:       "go.br",
			Operands:   args,
			Successors: []*ir.Block{fb.blocks[succ]},
			Semantics: ir.Branch{Succs: []ir.SuccessorOperands{
				{Forwarded: ir.OperandRange{Start: 0, Count: len(args)}},
			}},
		})

	case *ssa.If:
		tSucc, fSucc := in.Block().Succs[0], in.Block().Succs[1]
		tArgs := fb.phiArgs(tSucc, in.Block())
		fArgs := fb.phiArgs(fSucc, in.Block())
		operands := []ir.Value{fb.value(in.Cond)}
		operands = append(operands, tArgs...)
		operands = append(operands, fArgs...)
		b.Append(ir.OpSpec{
			Name:       "go.condbr",
			Operands:   operands,
			Successors: []*ir.Block{fb.blocks[tSucc], fb.blocks[fSucc]},
			Semantics: ir.Branch{Succs: []ir.SuccessorOperands{
				{Forwarded: ir.OperandRange{Start: 1, Count: len(tArgs)}},
				{Forwarded: ir.OperandRange{Start: 1 + len(tArgs), Count: len(fArgs)}},
			}},
		})

	case *ssa.Extract:
		fb.m.values[in] = fb.m.tuples[in.Tuple].Result(in.Index)

	case *ssa.Store:
		fb.emitEffect(b, "go.store", instr)
	case *ssa.Send:
		fb.emitEffect(b, "go.send", instr)
	case *ssa.MapUpdate:
		fb.emitEffect(b, "go.mapupdate", instr)
	case *ssa.Panic:
		fb.emitEffect(b, "go.panic", instr)
	case *ssa.Defer:
		fb.emitEffect(b, "go.defer", instr)
	case *ssa.Go:
		fb.emitEffect(b, "go.go", instr)
	case *ssa.RunDefers:
		fb.emitEffect(b, "go.rundefers", instr)

	default:
		// Every remaining register-producing instruction (allocations, field
		// and index accesses, conversions, closures, range/next, ...) becomes
		// an unclassified operation. Loads and channel receives carry effects
		// through emitUnOp above; the rest are pure value producers.
		fb.emitOpaque(b, instr)
	}
}

func (fb *funcBuilder) emitUnOp(b *ir.Block, in *ssa.UnOp) {
	spec := ir.OpSpec{
		Name:     "go.unop",
		Operands: []ir.Value{fb.value(in.X)},
		Results:  []ir.Type{typeOf(in.Type())},
		Attrs:    map[string]any{"op": in.Op.String()},
	}
	if in.Op == token.MUL || in.Op == token.ARROW {
		// Load or channel receive: the result depends on memory.
		spec.Attrs["effects"] = true
	} else {
		spec.Semantics = unopSemantics{tok: in.Op}
	}
	fb.m.values[in] = b.Append(spec).Result(0)
}

func (fb *funcBuilder) emitCall(b *ir.Block, in *ssa.Call) {
	cc := in.Common()
	if callee := cc.StaticCallee(); callee != nil && !cc.IsInvoke() {
		if calleeOp := fb.m.funcOps[callee]; calleeOp != nil {
			op := b.Append(ir.OpSpec{
				Name:      "go.call",
				Operands:  fb.valueList(cc.Args),
				Results:   resultTypes(in.Type()),
				Semantics: ir.Call{Callee: callee.String()},
			})
			fb.registerResults(in, op)
			return
		}
	}
	// Indirect, interface or unconverted call: unknown body, unknown effects.
	op := b.Append(ir.OpSpec{
		Name:     "go.call",
		Operands: fb.operandList(in),
		Results:  resultTypes(in.Type()),
		Attrs:    map[string]any{"effects": true},
	})
	fb.registerResults(in, op)
}

// registerResults maps an SSA register to the results of op: tuple-typed
// registers are read through Extract and keep the whole operation, others map
// to the single result.
func (fb *funcBuilder) registerResults(reg ssa.Value, op *ir.Operation) {
	if _, isTuple := reg.Type().(*types.Tuple); isTuple {
		fb.m.tuples[reg] = op
		return
	}
	if op.NumResults() > 0 {
		fb.m.values[reg] = op.Result(0)
	}
}

func (fb *funcBuilder) emitEffect(b *ir.Block, name string, instr ssa.Instruction) {
	b.Append(ir.OpSpec{
		Name:     name,
		Operands: fb.operandList(instr),
		Attrs:    map[string]any{"effects": true},
	})
}

func (fb *funcBuilder) emitOpaque(b *ir.Block, instr ssa.Instruction) {
	reg, isValue := instr.(ssa.Value)
	if !isValue {
		fb.emitEffect(b, "go.opaque", instr)
		return
	}
	op := b.Append(ir.OpSpec{
		Name:     "go." + opcodeName(instr),
		Operands: fb.operandList(instr),
		Results:  resultTypes(reg.Type()),
	})
	fb.registerResults(reg, op)
}

// phiArgs returns the values that pred forwards to the phi block arguments of
// succ along the pred -> succ edge.
func (fb *funcBuilder) phiArgs(succ, pred *ssa.BasicBlock) []ir.Value {
	predIndex := -1
	for i, p := range succ.Preds {
		if p == pred {
			predIndex = i
			break
		}
	}
	var args []ir.Value
	for _, phi := range phisOf(succ) {
		args = append(args, fb.value(phi.Edges[predIndex]))
	}
	return args
}
