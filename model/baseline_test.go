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

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reelrank/reelrank/dataset"
)

func TestGlobalAverage(t *testing.T) {
	avg := NewGlobalAverage()
	avg.Fit([]dataset.Interaction{
		{UserID: 1, ItemID: 1, Weight: 5},
		{UserID: 2, ItemID: 2, Weight: 3},
	}, nil)
	assert.InDelta(t, 4.0, avg.Predict(1, 1), 1e-9)
	assert.InDelta(t, 4.0, avg.Predict(99, 99), 1e-9)
	assert.Empty(t, avg.RecommendTopN(1, 10, nil))
}

func TestUserAverage(t *testing.T) {
	avg := NewUserAverage()
	avg.Fit([]dataset.Interaction{
		{UserID: 1, ItemID: 1, Weight: 5},
		{UserID: 1, ItemID: 2, Weight: 3},
		{UserID: 2, ItemID: 1, Weight: 2},
	}, nil)
	assert.InDelta(t, 4.0, avg.Predict(1, 9), 1e-9)
	assert.InDelta(t, 2.0, avg.Predict(2, 9), 1e-9)
	// unknown users fall back to the global mean
	assert.InDelta(t, 10.0/3.0, avg.Predict(99, 9), 1e-9)
	assert.Empty(t, avg.RecommendTopN(1, 10, nil))
}
