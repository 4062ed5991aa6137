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

var graphTrain = []dataset.Interaction{
	{UserID: 1, ItemID: 10, Weight: 5},
	{UserID: 1, ItemID: 20, Weight: 3},
	{UserID: 2, ItemID: 10, Weight: 4},
	{UserID: 2, ItemID: 30, Weight: 5},
	{UserID: 3, ItemID: 20, Weight: 4},
	{UserID: 3, ItemID: 30, Weight: 4},
}

func TestCumulate(t *testing.T) {
	cum := cumulate([]float64{1, 1, 2})
	assert.InDelta(t, 0.25, cum[0], 1e-9)
	assert.InDelta(t, 0.5, cum[1], 1e-9)
	assert.InDelta(t, 1.0, cum[2], 1e-9)
	assert.Nil(t, cumulate(nil))
}

func TestSampleIndex(t *testing.T) {
	cum := []float64{0.25, 0.5, 1}
	assert.Equal(t, 0, sampleIndex(cum, 0.1))
	assert.Equal(t, 1, sampleIndex(cum, 0.3))
	assert.Equal(t, 2, sampleIndex(cum, 0.9))
	assert.Equal(t, 2, sampleIndex(cum, 1))
}

func TestGraphBasedPredict(t *testing.T) {
	graph := NewGraphBased(Params{NumWalks: 200, WalkLength: 10, RandomState: 1})
	graph.Fit(graphTrain, NewFitConfig().SetJobs(2))
	// visit probabilities live in [0, 1]
	predicted := graph.Predict(1, 30)
	assert.GreaterOrEqual(t, predicted, 0.0)
	assert.LessOrEqual(t, predicted, 1.0)
	// directly rated items are visited often
	assert.Greater(t, graph.Predict(1, 10), 0.0)
	// unknown ids predict 0
	assert.Zero(t, graph.Predict(99, 10))
	assert.Zero(t, graph.Predict(1, 99))
}

func TestGraphBasedDeterminism(t *testing.T) {
	first := NewGraphBased(Params{NumWalks: 100, WalkLength: 10, RandomState: 7})
	first.Fit(graphTrain, NewFitConfig().SetJobs(4))
	second := NewGraphBased(Params{NumWalks: 100, WalkLength: 10, RandomState: 7})
	second.Fit(graphTrain, NewFitConfig().SetJobs(1))
	// each walk derives its own generator, so results do not depend on the
	// worker count or scheduling
	assert.Equal(t, first.RecommendTopN(1, 5, nil), second.RecommendTopN(1, 5, nil))
	assert.InDelta(t, first.Predict(1, 30), second.Predict(1, 30), 1e-12)
}

func TestGraphBasedRecommend(t *testing.T) {
	graph := NewGraphBased(Params{NumWalks: 200, WalkLength: 10, RandomState: 1})
	graph.Fit(graphTrain, nil)
	recommendations := graph.RecommendTopN(1, 5, nil)
	// user 1 rated 10 and 20, so only 30 can surface
	assert.Equal(t, []int{30}, recItemIDs(recommendations))
	assert.Empty(t, graph.RecommendTopN(1, 5, mapset.NewSet(30)))
	for i := 1; i < len(recommendations); i++ {
		assert.GreaterOrEqual(t, recommendations[i-1].Score, recommendations[i].Score)
	}
}

func TestGraphBasedColdStart(t *testing.T) {
	graph := NewGraphBased(Params{NumWalks: 200, WalkLength: 10, RandomState: 1})
	graph.Fit(graphTrain, nil)
	// no node and no live interactions
	assert.Empty(t, graph.RecommendTopN(99, 5, nil))
	graph.SetLiveInteractions([]dataset.Interaction{
		{UserID: 99, ItemID: 10, Weight: 5},
	})
	recommendations := graph.RecommendTopN(99, 5, nil)
	assert.NotEmpty(t, recommendations)
	// the rated item counts as a direct neighbor and never surfaces
	assert.NotContains(t, recItemIDs(recommendations), 10)
	// the synthetic node persists
	_, exist := graph.users[99]
	assert.True(t, exist)
	assert.Greater(t, graph.Predict(99, 10), 0.0)
}
