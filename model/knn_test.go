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

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"

	"github.com/reelrank/reelrank/dataset"
)

var knnTrain = []dataset.Interaction{
	{UserID: 1, ItemID: 10, Weight: 5},
	{UserID: 1, ItemID: 20, Weight: 3},
	{UserID: 2, ItemID: 10, Weight: 4},
	{UserID: 2, ItemID: 20, Weight: 2},
	{UserID: 2, ItemID: 30, Weight: 5},
	{UserID: 3, ItemID: 20, Weight: 4},
	{UserID: 3, ItemID: 30, Weight: 4},
}

func TestCosineSimilarity(t *testing.T) {
	vectorA := map[int]float64{1: 5, 2: 4}
	vectorB := map[int]float64{1: 3, 2: 2, 3: 4}
	// dot = 5*3 + 4*2 = 23, |A| = sqrt(41), |B| = sqrt(29)
	assert.InDelta(t, 0.667017, cosineSimilarity(vectorA, vectorB), 1e-6)
	// symmetry
	assert.InDelta(t, cosineSimilarity(vectorA, vectorB), cosineSimilarity(vectorB, vectorA), 1e-9)
	// no shared user
	assert.Zero(t, cosineSimilarity(map[int]float64{1: 5}, map[int]float64{2: 5}))
	assert.Zero(t, cosineSimilarity(nil, vectorB))
}

func TestItemItemCFFit(t *testing.T) {
	knn := NewItemItemCF(nil)
	knn.Fit(knnTrain, NewFitConfig().SetJobs(2))
	for itemID, row := range knn.neighbors {
		for i, neighbor := range row {
			assert.NotEqual(t, itemID, neighbor.ItemID)
			assert.Greater(t, neighbor.Similarity, 0.01)
			if i > 0 {
				assert.GreaterOrEqual(t, row[i-1].Similarity, neighbor.Similarity)
			}
		}
	}
	// similarity rows are symmetric across items
	simFromRow := func(from, to int) float64 {
		for _, neighbor := range knn.neighbors[from] {
			if neighbor.ItemID == to {
				return neighbor.Similarity
			}
		}
		return 0
	}
	assert.InDelta(t, simFromRow(10, 20), simFromRow(20, 10), 1e-9)
}

func TestItemItemCFTopK(t *testing.T) {
	knn := NewItemItemCF(Params{K: 1})
	knn.Fit(knnTrain, nil)
	for _, row := range knn.neighbors {
		assert.LessOrEqual(t, len(row), 1)
	}
}

func TestItemItemCFPredict(t *testing.T) {
	knn := NewItemItemCF(nil)
	knn.Fit(knnTrain, nil)
	// similarity-weighted average stays inside the user's rating range
	predicted := knn.Predict(1, 30)
	assert.GreaterOrEqual(t, predicted, 3.0)
	assert.LessOrEqual(t, predicted, 5.0)
	assert.Zero(t, knn.Predict(99, 30))
}

func TestItemItemCFRecommend(t *testing.T) {
	knn := NewItemItemCF(nil)
	knn.Fit(knnTrain, nil)
	recommendations := knn.RecommendTopN(1, 5, nil)
	// items the user already rated never surface
	assert.Equal(t, []int{30}, recItemIDs(recommendations))
	assert.Empty(t, knn.RecommendTopN(1, 5, mapset.NewSet(30)))
	assert.Empty(t, knn.RecommendTopN(99, 5, nil))
	assert.LessOrEqual(t, len(knn.RecommendTopN(2, 1, nil)), 1)
}
