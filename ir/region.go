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

// A Region is a list of blocks nested inside an operation. The first block of
// a region is its entry block; control enters a region only through it.
type Region struct {
	parent *Operation
	index  int
	blocks []*Block
}

// Blocks returns the blocks of the region. The returned slice must not be
// modified.
func (r *Region) Blocks() []*Block { return r.blocks }

// Entry returns the entry block of the region, nil if the region is empty.
func (r *Region) Entry() *Block {
	if len(r.blocks) == 0 {
		return nil
	}
	return r.blocks[0]
}

// Empty reports whether the region has no blocks.
func (r *Region) Empty() bool { return len(r.blocks) == 0 }

// Parent returns the operation owning the region.
func (r *Region) Parent() *Operation { return r.parent }

// Index returns the position of the region in its parent operation.
func (r *Region) Index() int { return r.index }
