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

package ir

import "go/constant"

// An OperandRange designates a contiguous range of an operation's operands
// (or, for successor inputs, of a value list).
type OperandRange struct {
	Start, Count int
}

// Values returns the operand values of op designated by the range.
func (r OperandRange) Values(op *Operation) []Value {
	return op.Operands()[r.Start : r.Start+r.Count]
}

// Slice returns the sub-list of values designated by the range.
func (r OperandRange) Slice(values []Value) []Value {
	return values[r.Start : r.Start+r.Count]
}

// SuccessorOperands describes how a branch terminator feeds the arguments of
// one successor block: the first Produced arguments are produced internally by
// the branch itself, the remaining ones receive the forwarded operand range.
type SuccessorOperands struct {
	Produced  int
	Forwarded OperandRange
}

// Size returns the number of successor arguments covered.
func (s SuccessorOperands) Size() int { return s.Produced + s.Forwarded.Count }

// OperandForArgument returns the index of the operand forwarded to successor
// argument arg, or -1 if the argument is produced internally by the branch.
func (s SuccessorOperands) OperandForArgument(arg int) int {
	if arg < s.Produced || arg >= s.Size() {
		return -1
	}
	return s.Forwarded.Start + (arg - s.Produced)
}

// ArgumentForOperand returns the successor argument index fed by operand
// index, or -1 if the operand is not forwarded to this successor.
func (s SuccessorOperands) ArgumentForOperand(index int) int {
	if index < s.Forwarded.Start || index >= s.Forwarded.Start+s.Forwarded.Count {
		return -1
	}
	return s.Produced + (index - s.Forwarded.Start)
}

// BranchSemantics is implemented by the semantics of unstructured branch
// terminators that forward operands to the arguments of their successor
// blocks.
type BranchSemantics interface {
	// SuccessorOperands returns the operand forwarding for the succ-th
	// successor of op.
	SuccessorOperands(op *Operation, succ int) SuccessorOperands
}

// CallSemantics is implemented by the semantics of call operations.
type CallSemantics interface {
	// CalleeName returns the symbol name of the callee; an empty string means
	// the callee is not statically known.
	CalleeName(op *Operation) string

	// ArgOperands returns the operands passed as callee arguments, aligned
	// with the entry block arguments of the callee body.
	ArgOperands(op *Operation) []Value
}

// CallableSemantics is implemented by the semantics of operations that define
// a callable body, such as functions.
type CallableSemantics interface {
	// CallableRegion returns the body region, nil if the callable is only a
	// declaration.
	CallableRegion(op *Operation) *Region

	// Public reports whether call sites outside the analyzed IR may exist.
	// The predecessors of a public callable are never fully known.
	Public(op *Operation) bool
}

// A RegionSuccessor identifies where control may flow when entering or leaving
// a region-branch operation: into one of its regions, or back to the operation
// itself. In the latter case Region is nil and the successor inputs are the
// operation's results.
type RegionSuccessor struct {
	Region *Region
}

// IsParent reports whether the successor is the region-branch operation
// itself.
func (s RegionSuccessor) IsParent() bool { return s.Region == nil }

// A RegionTransfer is one entry of a region control-flow table: control may
// flow to the successor identified by Region, forwarding the Operands range of
// the source operation to the Inputs range of the successor's inputs (entry
// block arguments, or parent results when Region is -1).
type RegionTransfer struct {
	// Region is the index of the target region in the region-branch operation,
	// or -1 when control flows back to the operation itself.
	Region int

	// Operands is the forwarded operand range of the source operation.
	Operands OperandRange

	// Inputs is the range of successor inputs receiving the operands.
	Inputs OperandRange
}

// SuccessorOf resolves the transfer target relative to the region-branch
// operation branch.
func (t RegionTransfer) SuccessorOf(branch *Operation) RegionSuccessor {
	if t.Region < 0 {
		return RegionSuccessor{}
	}
	return RegionSuccessor{Region: branch.Region(t.Region)}
}

// InputValues returns the successor input values receiving the forwarded
// operands: a range of the target region's entry block arguments, or of the
// parent operation's results.
func (t RegionTransfer) InputValues(branch *Operation) []Value {
	if t.Region < 0 {
		return t.Inputs.Slice(branch.Results())
	}
	entry := branch.Region(t.Region).Entry()
	if entry == nil {
		return nil
	}
	return t.Inputs.Slice(entry.Args())
}

// RegionBranchSemantics is implemented by the semantics of structured
// control-flow operations whose nested regions determine data flow, such as
// conditionals and loops.
type RegionBranchSemantics interface {
	// EntryTransfers returns where control may flow when the operation first
	// executes, with the operand forwarding for each possible successor.
	EntryTransfers(op *Operation) []RegionTransfer
}

// RegionTerminatorSemantics is implemented by the semantics of operations that
// terminate a region of a region-branch operation and hand control back to one
// of the parent's region successors.
type RegionTerminatorSemantics interface {
	// Transfers returns the region successors of the parent operation that
	// this terminator may yield control to.
	Transfers(op *Operation) []RegionTransfer
}

// ReturnLikeSemantics marks the semantics of function-scope return
// terminators.
type ReturnLikeSemantics interface {
	ReturnLike()
}

// Folder is implemented by the semantics of operations whose results can be
// computed from constant operands.
type Folder interface {
	// Fold computes the result constants of op given its operand constants;
	// entries of operands are nil for operands with no known constant. The
	// boolean result is false when the operation cannot be folded.
	Fold(op *Operation, operands []constant.Value) ([]constant.Value, bool)
}

// AsBranch returns the branch capability of op, if any.
func AsBranch(op *Operation) (BranchSemantics, bool) {
	s, ok := op.semantics.(BranchSemantics)
	return s, ok
}

// AsCall returns the call capability of op, if any.
func AsCall(op *Operation) (CallSemantics, bool) {
	s, ok := op.semantics.(CallSemantics)
	return s, ok
}

// AsCallable returns the callable capability of op, if any.
func AsCallable(op *Operation) (CallableSemantics, bool) {
	s, ok := op.semantics.(CallableSemantics)
	return s, ok
}

// AsRegionBranch returns the region-branch capability of op, if any.
func AsRegionBranch(op *Operation) (RegionBranchSemantics, bool) {
	s, ok := op.semantics.(RegionBranchSemantics)
	return s, ok
}

// AsRegionTerminator returns the region-terminator capability of op, if any.
func AsRegionTerminator(op *Operation) (RegionTerminatorSemantics, bool) {
	s, ok := op.semantics.(RegionTerminatorSemantics)
	return s, ok
}

// AsFolder returns the folding capability of op, if any.
func AsFolder(op *Operation) (Folder, bool) {
	s, ok := op.semantics.(Folder)
	return s, ok
}

// IsReturnLike reports whether op is a function-scope return terminator.
func IsReturnLike(op *Operation) bool {
	_, ok := op.semantics.(ReturnLikeSemantics)
	return ok
}

// HasEffects reports whether op may have observable side effects. Operations
// are effect-free unless marked with the "effects" attribute; analyses that
// need soundness in the presence of unknown operations should mark them.
func HasEffects(op *Operation) bool {
	return op.BoolAttr("effects")
}

// Generic semantics implementations. Most operation sets can describe their
// control flow with fixed tables and do not need custom semantics types.

// Branch implements BranchSemantics with one fixed forwarding entry per
// successor.
type Branch struct {
	Succs []SuccessorOperands
}

// SuccessorOperands returns the forwarding table entry for successor succ.
func (b Branch) SuccessorOperands(_ *Operation, succ int) SuccessorOperands {
	return b.Succs[succ]
}

// Call implements CallSemantics for a direct call to a named symbol, passing
// all operands as arguments. An empty Callee means an indirect call.
type Call struct {
	Callee string
}

// CalleeName returns the callee symbol name.
func (c Call) CalleeName(*Operation) string { return c.Callee }

// ArgOperands returns all operands of the call.
func (c Call) ArgOperands(op *Operation) []Value { return op.Operands() }

// Callable implements CallableSemantics for an operation whose body is one of
// its nested regions.
type Callable struct {
	Region   int
	Exported bool
}

// CallableRegion returns the body region.
func (c Callable) CallableRegion(op *Operation) *Region {
	if c.Region >= op.NumRegions() {
		return nil
	}
	return op.Region(c.Region)
}

// Public reports whether unknown external call sites must be assumed.
func (c Callable) Public(*Operation) bool { return c.Exported }

// RegionBranch implements RegionBranchSemantics with a fixed entry transfer
// table.
type RegionBranch struct {
	Entry []RegionTransfer
}

// EntryTransfers returns the entry transfer table.
func (r RegionBranch) EntryTransfers(*Operation) []RegionTransfer { return r.Entry }

// RegionTerminator implements RegionTerminatorSemantics with a fixed transfer
// table.
type RegionTerminator struct {
	Succs []RegionTransfer
}

// Transfers returns the transfer table.
func (r RegionTerminator) Transfers(*Operation) []RegionTransfer { return r.Succs }

// Return implements ReturnLikeSemantics.
type Return struct{}

// ReturnLike marks the semantics as return-like.
func (Return) ReturnLike() {}
