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

// A SymbolTable maps symbol names to the callable operations defining them.
// Call operations are resolved to their callees through a symbol table.
type SymbolTable struct {
	syms map[string]*Operation
}

// NewSymbolTable returns an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{syms: map[string]*Operation{}}
}

// Define binds name to the callable operation op. A later definition of the
// same name replaces the earlier one.
func (t *SymbolTable) Define(name string, op *Operation) {
	t.syms[name] = op
}

// Lookup returns the operation defining name, nil if there is none.
func (t *SymbolTable) Lookup(name string) *Operation {
	return t.syms[name]
}

// ResolveCallable resolves the callee of the call operation op. It returns nil
// when op is not a call, the callee is not statically known, or the symbol is
// not defined in the table.
func (t *SymbolTable) ResolveCallable(op *Operation) *Operation {
	call, ok := AsCall(op)
	if !ok {
		return nil
	}
	name := call.CalleeName(op)
	if name == "" {
		return nil
	}
	return t.syms[name]
}

// Symbols returns the defined symbol names. The order is unspecified.
func (t *SymbolTable) Symbols() []string {
	names := make([]string, 0, len(t.syms))
	for name := range t.syms {
		names = append(names, name)
	}
	return names
}
