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

// Package ssair converts the SSA form of golang.org/x/tools/go/ssa into the
// region-structured IR of the analyses. Each function becomes a callable
// operation holding one region; phi nodes become block arguments, with the
// incoming values forwarded by the predecessor branches; constants are
// materialized as foldable operations in the entry block. Instructions the
// converter cannot model precisely become operations with observable side
// effects, which the analyses treat conservatively.
package ssair
