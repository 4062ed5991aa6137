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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndex(t *testing.T) {
	index := NewIndex()
	for _, id := range []int{5, 7, 3, 7, 11} {
		index.Add(id)
	}
	assert.Equal(t, 4, index.Len())
	assert.Equal(t, int32(0), index.ToNumber(5))
	assert.Equal(t, int32(1), index.ToNumber(7))
	assert.Equal(t, int32(2), index.ToNumber(3))
	assert.Equal(t, int32(3), index.ToNumber(11))
	assert.Equal(t, NotID, index.ToNumber(4))
	assert.Equal(t, 3, index.ToID(2))
}

func TestRandomGenerator(t *testing.T) {
	a := NewRandomGenerator(42).UniformVector(100, -0.005, 0.005)
	b := NewRandomGenerator(42).UniformVector(100, -0.005, 0.005)
	assert.Equal(t, a, b)
	for _, v := range a {
		assert.GreaterOrEqual(t, v, -0.005)
		assert.Less(t, v, 0.005)
	}
	c := NewRandomGenerator(43).UniformVector(100, -0.005, 0.005)
	assert.NotEqual(t, a, c)
}
