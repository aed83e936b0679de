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
	"go/constant"
	"go/token"
	"strings"

	"golang.org/x/tools/go/ssa"

	"github.com/quarrylang/quarry/ir"
)

// constSemantics folds a materialized constant to its value.
type constSemantics struct {
	value constant.Value
}

func (c constSemantics) Fold(*ir.Operation, []constant.Value) ([]constant.Value, bool) {
	return []constant.Value{c.value}, true
}

// binopSemantics folds a binary operation when both operand constants are
// known and the operation is safe to evaluate at analysis time.
type binopSemantics struct {
	tok token.Token
}

func (s binopSemantics) Fold(_ *ir.Operation, operands []constant.Value) ([]constant.Value, bool) {
	x, y := operands[0], operands[1]
	if x == nil || y == nil || x.Kind() == constant.Unknown || y.Kind() == constant.Unknown {
		return nil, false
	}
	switch s.tok {
	case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
		if x.Kind() != y.Kind() {
			return nil, false
		}
		return []constant.Value{constant.MakeBool(constant.Compare(x, s.tok, y))}, true

	case token.SHL, token.SHR:
		shift, exact := constant.Uint64Val(y)
		if !exact || shift > 256 {
			return nil, false
		}
		return []constant.Value{constant.Shift(x, s.tok, uint(shift))}, true

	case token.QUO, token.REM:
		if y.Kind() != constant.Int || constant.Sign(y) == 0 || x.Kind() != constant.Int {
			return nil, false
		}
		// token.QUO_ASSIGN requests integer division from go/constant.
		tok := s.tok
		if tok == token.QUO {
			tok = token.QUO_ASSIGN
		}
		return []constant.Value{constant.BinaryOp(x, tok, y)}, true

	case token.ADD, token.SUB, token.MUL, token.AND, token.OR, token.XOR, token.AND_NOT,
		token.LAND, token.LOR:
		if x.Kind() != y.Kind() {
			return nil, false
		}
		return []constant.Value{constant.BinaryOp(x, s.tok, y)}, true

	default:
		return nil, false
	}
}

// unopSemantics folds negation and logical not; other unary operations are
// left unfolded since their result depends on the operand's machine width.
type unopSemantics struct {
	tok token.Token
}

func (s unopSemantics) Fold(_ *ir.Operation, operands []constant.Value) ([]constant.Value, bool) {
	x := operands[0]
	if x == nil || x.Kind() == constant.Unknown {
		return nil, false
	}
	switch s.tok {
	case token.SUB, token.NOT:
		return []constant.Value{constant.UnaryOp(s.tok, x, 0)}, true
	default:
		return nil, false
	}
}

// opcodeName returns a short lower-case name for an unclassified instruction.
func opcodeName(instr ssa.Instruction) string {
	switch instr.(type) {
	case *ssa.Alloc:
		return "alloc"
	case *ssa.MakeSlice:
		return "makeslice"
	case *ssa.MakeMap:
		return "makemap"
	case *ssa.MakeChan:
		return "makechan"
	case *ssa.MakeClosure:
		return "makeclosure"
	case *ssa.MakeInterface:
		return "makeinterface"
	case *ssa.ChangeType:
		return "changetype"
	case *ssa.ChangeInterface:
		return "changeinterface"
	case *ssa.Convert:
		return "convert"
	case *ssa.SliceToArrayPointer:
		return "slicetoarrayptr"
	case *ssa.TypeAssert:
		return "typeassert"
	case *ssa.Field:
		return "field"
	case *ssa.FieldAddr:
		return "fieldaddr"
	case *ssa.Index:
		return "index"
	case *ssa.IndexAddr:
		return "indexaddr"
	case *ssa.Slice:
		return "slice"
	case *ssa.Lookup:
		return "lookup"
	case *ssa.Range:
		return "range"
	case *ssa.Next:
		return "next"
	case *ssa.Select:
		return "select"
	default:
		return strings.ToLower(strings.TrimLeft(fmt.Sprintf("%T", instr), "*ssa."))
	}
}
