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
	"math"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"

	"github.com/reelrank/reelrank/dataset"
)

var mfTrain = []dataset.Interaction{
	{UserID: 1, ItemID: 10, Weight: 5},
	{UserID: 1, ItemID: 20, Weight: 1},
	{UserID: 2, ItemID: 10, Weight: 4},
	{UserID: 2, ItemID: 20, Weight: 2},
	{UserID: 3, ItemID: 10, Weight: 5},
	{UserID: 3, ItemID: 30, Weight: 3},
}

func TestMatrixFactorizationFit(t *testing.T) {
	mf := NewMatrixFactorization(Params{NFactors: 2, NIterations: 5, RandomState: 42})
	mf.Fit(mfTrain, NewFitConfig().SetJobs(2))
	// predictions for known pairs are finite
	for _, interaction := range mfTrain {
		predicted := mf.Predict(interaction.UserID, interaction.ItemID)
		assert.False(t, math.IsNaN(predicted))
		assert.False(t, math.IsInf(predicted, 0))
	}
	// final reconstruction error is finite and non-negative
	rmse := computeRMSE(buildUserRows(mf, mfTrain), mf.userFactor, mf.itemFactor)
	assert.False(t, math.IsNaN(rmse))
	assert.GreaterOrEqual(t, rmse, 0.0)
	// unknown ids predict 0
	assert.Zero(t, mf.Predict(99, 10))
	assert.Zero(t, mf.Predict(1, 99))
}

func buildUserRows(mf *MatrixFactorization, train []dataset.Interaction) [][]ratedEntry {
	rows := make([][]ratedEntry, mf.userIndex.Len())
	for _, interaction := range train {
		u := mf.userIndex.ToNumber(interaction.UserID)
		i := mf.itemIndex.ToNumber(interaction.ItemID)
		rows[u] = append(rows[u], ratedEntry{index: i, weight: interaction.Weight})
	}
	return rows
}

func TestMatrixFactorizationRecommend(t *testing.T) {
	mf := NewMatrixFactorization(Params{NFactors: 2, NIterations: 5, RandomState: 42})
	mf.Fit(mfTrain, nil)
	recommendations := mf.RecommendTopN(1, 2, mapset.NewSet(10))
	assert.LessOrEqual(t, len(recommendations), 2)
	assert.NotContains(t, recItemIDs(recommendations), 10)
	// scores are min-max rescaled into [1, 5]
	for _, recommendation := range recommendations {
		assert.GreaterOrEqual(t, recommendation.Score, 1.0)
		assert.LessOrEqual(t, recommendation.Score, 5.0)
	}
	for i := 1; i < len(recommendations); i++ {
		assert.GreaterOrEqual(t, recommendations[i-1].Score, recommendations[i].Score)
	}
}

func TestMatrixFactorizationSingleCandidate(t *testing.T) {
	mf := NewMatrixFactorization(Params{NFactors: 2, NIterations: 5, RandomState: 42})
	mf.Fit(mfTrain, nil)
	// a single candidate has zero score range and collapses to the midpoint
	recommendations := mf.RecommendTopN(1, 5, mapset.NewSet(10, 20))
	assert.Equal(t, []int{30}, recItemIDs(recommendations))
	assert.InDelta(t, 3.0, recommendations[0].Score, 1e-9)
}

func TestMatrixFactorizationDeterminism(t *testing.T) {
	first := NewMatrixFactorization(Params{NFactors: 4, NIterations: 3, RandomState: 7})
	first.Fit(mfTrain, NewFitConfig().SetJobs(4))
	second := NewMatrixFactorization(Params{NFactors: 4, NIterations: 3, RandomState: 7})
	second.Fit(mfTrain, NewFitConfig().SetJobs(1))
	// the same random state reproduces the same model regardless of job count
	for _, interaction := range mfTrain {
		assert.InDelta(t,
			first.Predict(interaction.UserID, interaction.ItemID),
			second.Predict(interaction.UserID, interaction.ItemID), 1e-9)
	}
}

func TestMatrixFactorizationColdStart(t *testing.T) {
	mf := NewMatrixFactorization(Params{NFactors: 2, NIterations: 5, RandomState: 42})
	mf.Fit(mfTrain, nil)
	// an unseen user with no live interactions has no recommendations
	assert.Empty(t, mf.RecommendTopN(99, 5, nil))
	// with live ratings on known items, a factor is synthesized
	mf.SetLiveInteractions([]dataset.Interaction{
		{UserID: 99, ItemID: 10, Weight: 5},
		{UserID: 99, ItemID: 77, Weight: 4}, // unknown item, ignored
	})
	recommendations := mf.RecommendTopN(99, 5, nil)
	assert.NotEmpty(t, recommendations)
	// live ratings touching only unknown items still cannot help
	mf.SetLiveInteractions([]dataset.Interaction{{UserID: 98, ItemID: 77, Weight: 4}})
	assert.Empty(t, mf.RecommendTopN(98, 5, nil))
}
