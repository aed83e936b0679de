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

/*
Package ir defines the region-structured SSA intermediate representation that the
analyses in this module operate on.

The object model is deliberately small. An [Operation] is a generic node with a
name, operands, results, attached successor blocks and nested regions; a [Region]
is a list of blocks; a [Block] holds arguments and operations. A [Value] is either
an [OpResult] or a [BlockArgument], and values are compared by identity.

Operations carry no built-in control-flow meaning. Instead, control-flow and
call-graph behavior is attached through a semantics object and queried through
capability functions such as [AsBranch], [AsCall], [AsCallable], [AsRegionBranch],
[AsRegionTerminator] and [IsReturnLike]. An analysis never switches on operation
names; it only queries capabilities, which keeps the analyses independent of the
concrete operation set they run on.

The IR is built once through [NewOperation], [Operation.AddBlock] and
[Block.Append] and is immutable afterwards, which is what allows the dataflow
framework to attach state to values and program points by identity.
*/
package ir
