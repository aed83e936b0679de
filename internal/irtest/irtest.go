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

// Package irtest provides builders for a small operation set used by analysis
// tests: constants, arithmetic, branches, structured conditionals, functions
// and calls. The operations use the generic semantics types of the ir package
// so tests exercise the same capability queries the analyses rely on.
package irtest

import (
	"go/constant"
	"go/token"

	"github.com/quarrylang/quarry/ir"
)

// A Module holds a top-level operation whose single region contains function
// definitions, together with the symbol table resolving calls between them.
type Module struct {
	Top     *ir.Operation
	Symbols *ir.SymbolTable
	body    *ir.Block
}

// NewModule creates an empty module.
func NewModule() *Module {
	top := ir.NewOperation(ir.OpSpec{Name: "test.module", Regions: 1})
	return &Module{
		Top:     top,
		Symbols: ir.NewSymbolTable(),
		body:    top.AddBlock(0),
	}
}

// A Func wraps a function definition operation and its body region.
type Func struct {
	Op    *ir.Operation
	entry *ir.Block
}

// Func appends a function definition with the given parameter types to the
// module and defines it in the symbol table. Exported functions are assumed to
// have call sites outside the module.
func (m *Module) Func(name string, exported bool, params ...ir.Type) *Func {
	op := m.body.Append(ir.OpSpec{
		Name:      "test.func",
		Regions:   1,
		Attrs:     map[string]any{"sym": name},
		Semantics: ir.Callable{Region: 0, Exported: exported},
	})
	m.Symbols.Define(name, op)
	return &Func{Op: op, entry: op.AddBlock(0, params...)}
}

// Declare appends a body-less function declaration and defines it in the
// symbol table. Calls to a declaration cannot be analyzed past the call.
func (m *Module) Declare(name string) *ir.Operation {
	op := m.body.Append(ir.OpSpec{
		Name:      "test.func",
		Attrs:     map[string]any{"sym": name},
		Semantics: ir.Callable{Exported: true},
	})
	m.Symbols.Define(name, op)
	return op
}

// Entry returns the entry block of the function body.
func (f *Func) Entry() *ir.Block { return f.entry }

// Param returns the i-th entry block argument.
func (f *Func) Param(i int) ir.Value { return f.entry.Arg(i) }

// Block appends a new block with the given argument types to the function
// body.
func (f *Func) Block(args ...ir.Type) *ir.Block {
	return f.Op.AddBlock(0, args...)
}

type constSemantics struct {
	value constant.Value
}

func (c constSemantics) Fold(*ir.Operation, []constant.Value) ([]constant.Value, bool) {
	return []constant.Value{c.value}, true
}

// Const appends an integer constant.
func Const(b *ir.Block, v int64) ir.Value {
	op := b.Append(ir.OpSpec{
		Name:      "test.const",
		Results:   []ir.Type{ir.IntType},
		Attrs:     map[string]any{"value": v},
		Semantics: constSemantics{value: constant.MakeInt64(v)},
	})
	return op.Result(0)
}

// ConstBool appends a boolean constant.
func ConstBool(b *ir.Block, v bool) ir.Value {
	op := b.Append(ir.OpSpec{
		Name:      "test.const",
		Results:   []ir.Type{ir.BoolType},
		Attrs:     map[string]any{"value": v},
		Semantics: constSemantics{value: constant.MakeBool(v)},
	})
	return op.Result(0)
}

type binopSemantics struct {
	op token.Token
}

func (s binopSemantics) Fold(_ *ir.Operation, operands []constant.Value) ([]constant.Value, bool) {
	if operands[0] == nil || operands[1] == nil {
		return nil, false
	}
	return []constant.Value{constant.BinaryOp(operands[0], s.op, operands[1])}, true
}

// Add appends an integer addition.
func Add(b *ir.Block, x, y ir.Value) ir.Value {
	op := b.Append(ir.OpSpec{
		Name:      "test.add",
		Operands:  []ir.Value{x, y},
		Results:   []ir.Type{ir.IntType},
		Semantics: binopSemantics{op: token.ADD},
	})
	return op.Result(0)
}

// Mul appends an integer multiplication.
func Mul(b *ir.Block, x, y ir.Value) ir.Value {
	op := b.Append(ir.OpSpec{
		Name:      "test.mul",
		Operands:  []ir.Value{x, y},
		Results:   []ir.Type{ir.IntType},
		Semantics: binopSemantics{op: token.MUL},
	})
	return op.Result(0)
}

// Br appends an unconditional branch forwarding args to the arguments of
// dest.
func Br(b *ir.Block, dest *ir.Block, args ...ir.Value) *ir.Operation {
	return b.Append(ir.OpSpec{
		Name:       "test.br",
		Operands:   args,
		Successors: []*ir.Block{dest},
		Semantics: ir.Branch{Succs: []ir.SuccessorOperands{
			{Forwarded: ir.OperandRange{Start: 0, Count: len(args)}},
		}},
	})
}

// CondBr appends a conditional branch. The condition is operand 0 and is not
// forwarded to either successor; thenArgs feed the arguments of then, elseArgs
// the arguments of els.
func CondBr(b *ir.Block, cond ir.Value, then, els *ir.Block, thenArgs, elseArgs []ir.Value) *ir.Operation {
	operands := []ir.Value{cond}
	operands = append(operands, thenArgs...)
	operands = append(operands, elseArgs...)
	return b.Append(ir.OpSpec{
		Name:       "test.condbr",
		Operands:   operands,
		Successors: []*ir.Block{then, els},
		Semantics: ir.Branch{Succs: []ir.SuccessorOperands{
			{Forwarded: ir.OperandRange{Start: 1, Count: len(thenArgs)}},
			{Forwarded: ir.OperandRange{Start: 1 + len(thenArgs), Count: len(elseArgs)}},
		}},
	})
}

// Return appends a function-scope return.
func Return(b *ir.Block, vals ...ir.Value) *ir.Operation {
	return b.Append(ir.OpSpec{
		Name:      "test.return",
		Operands:  vals,
		Semantics: ir.Return{},
	})
}

// Call appends a direct call to the named symbol with the given result count.
func Call(b *ir.Block, callee string, results int, args ...ir.Value) *ir.Operation {
	types := make([]ir.Type, results)
	for i := range types {
		types[i] = ir.IntType
	}
	return b.Append(ir.OpSpec{
		Name:      "test.call",
		Operands:  args,
		Results:   types,
		Semantics: ir.Call{Callee: callee},
	})
}

// IndirectCall appends a call whose callee is not statically known.
func IndirectCall(b *ir.Block, results int, args ...ir.Value) *ir.Operation {
	types := make([]ir.Type, results)
	for i := range types {
		types[i] = ir.IntType
	}
	return b.Append(ir.OpSpec{
		Name:      "test.call_indirect",
		Operands:  args,
		Results:   types,
		Semantics: ir.Call{},
	})
}

// An If wraps a structured conditional with a then and an else region, each
// holding a single empty block. Both regions must be terminated with Yield
// operations whose operand types match the results.
type If struct {
	Op   *ir.Operation
	Then *ir.Block
	Else *ir.Block
}

// NewIf appends a structured conditional. The condition is operand 0; neither
// region receives entry arguments, so the condition is a structural operand
// from the point of view of backward analyses.
func NewIf(b *ir.Block, cond ir.Value, results ...ir.Type) *If {
	op := b.Append(ir.OpSpec{
		Name:     "test.if",
		Operands: []ir.Value{cond},
		Results:  results,
		Regions:  2,
		Semantics: ir.RegionBranch{Entry: []ir.RegionTransfer{
			{Region: 0},
			{Region: 1},
		}},
	})
	return &If{Op: op, Then: op.AddBlock(0), Else: op.AddBlock(1)}
}

// Yield appends a region terminator forwarding vals to the results of the
// enclosing region-branch operation.
func Yield(b *ir.Block, vals ...ir.Value) *ir.Operation {
	return YieldTo(b, 0, vals...)
}

// YieldTo appends a region terminator forwarding vals to a sub-range of the
// results of the enclosing region-branch operation, starting at result index
// first. Results outside the range are not covered by this terminator.
func YieldTo(b *ir.Block, first int, vals ...ir.Value) *ir.Operation {
	return b.Append(ir.OpSpec{
		Name:     "test.yield",
		Operands: vals,
		Semantics: ir.RegionTerminator{Succs: []ir.RegionTransfer{{
			Region:   -1,
			Operands: ir.OperandRange{Start: 0, Count: len(vals)},
			Inputs:   ir.OperandRange{Start: first, Count: len(vals)},
		}}},
	})
}

// Opaque appends an operation with no semantics and observable side effects.
// Analyses must treat its results conservatively and must not assume its
// operands are unused.
func Opaque(b *ir.Block, results int, args ...ir.Value) *ir.Operation {
	types := make([]ir.Type, results)
	for i := range types {
		types[i] = ir.IntType
	}
	return b.Append(ir.OpSpec{
		Name:     "test.opaque",
		Operands: args,
		Results:  types,
		Attrs:    map[string]any{"effects": true},
	})
}
