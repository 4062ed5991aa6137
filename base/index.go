// Copyright 2026 reelrank Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package base

// NotID represents an ID that doesn't exist in an Index.
const NotID = int32(-1)

// Index manages the map between sparse ids and dense indices. A sparse id is
// a user id or item id from the dataset. The dense index is the internal row
// number optimized for faster parameter access and less memory usage.
type Index struct {
	Numbers map[int]int32 // sparse id -> dense index
	IDs     []int         // dense index -> sparse id
}

// NewIndex creates an Index.
func NewIndex() *Index {
	index := new(Index)
	index.Numbers = make(map[int]int32)
	index.IDs = make([]int, 0)
	return index
}

// Len returns the number of indexed ids.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.IDs)
}

// Add adds a new id to the index.
func (idx *Index) Add(id int) {
	if _, exist := idx.Numbers[id]; !exist {
		idx.Numbers[id] = int32(len(idx.IDs))
		idx.IDs = append(idx.IDs, id)
	}
}

// ToNumber converts a sparse id to a dense index, or NotID if unknown.
func (idx *Index) ToNumber(id int) int32 {
	if idx == nil {
		return NotID
	}
	if number, exist := idx.Numbers[id]; exist {
		return number
	}
	return NotID
}

// ToID converts a dense index back to the sparse id.
func (idx *Index) ToID(number int32) int {
	return idx.IDs[number]
}
