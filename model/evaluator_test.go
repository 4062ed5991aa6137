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

const evalEpsilon = 1e-5

func recList(itemIDs ...int) []Recommendation {
	recommendations := make([]Recommendation, len(itemIDs))
	for i, itemID := range itemIDs {
		recommendations[i] = Recommendation{ItemID: itemID, Score: float64(len(itemIDs) - i)}
	}
	return recommendations
}

func TestPrecisionRecallMRR(t *testing.T) {
	relevant := mapset.NewThreadUnsafeSet(10, 30)
	recommendations := recList(10, 99, 30, 42, 7)
	assert.InDelta(t, 2.0/3.0, PrecisionAtK(recommendations, relevant, 3), evalEpsilon)
	assert.InDelta(t, 1.0, RecallAtK(recommendations, relevant, 3), evalEpsilon)
	assert.InDelta(t, 1.0, MRR(recommendations, relevant), evalEpsilon)
}

func TestPrecisionShortList(t *testing.T) {
	// the denominator stays k even when fewer items were recommended
	relevant := mapset.NewThreadUnsafeSet(10)
	assert.InDelta(t, 0.2, PrecisionAtK(recList(10), relevant, 5), evalEpsilon)
}

func TestRecallEmptyRelevant(t *testing.T) {
	relevant := mapset.NewThreadUnsafeSet[int]()
	assert.Zero(t, RecallAtK(recList(10, 20), relevant, 2))
}

func TestNDCGPerfectRanking(t *testing.T) {
	// the top min(k, |relevant|) items are exactly the relevant set, in any order
	relevant := mapset.NewThreadUnsafeSet(10, 30)
	assert.InDelta(t, 1.0, NDCGAtK(recList(30, 10, 99), relevant, 3), evalEpsilon)
	assert.InDelta(t, 1.0, NDCGAtK(recList(10, 30, 99), relevant, 3), evalEpsilon)
}

func TestNDCGPartial(t *testing.T) {
	// DCG = 1/log2(2) + 1/log2(4) = 1.5, IDCG = 1 + 1/log2(3)
	relevant := mapset.NewThreadUnsafeSet(1, 2)
	assert.InDelta(t, 0.919721, NDCGAtK(recList(1, 3, 2), relevant, 3), evalEpsilon)
}

func TestNDCGNoRelevant(t *testing.T) {
	relevant := mapset.NewThreadUnsafeSet[int]()
	assert.Zero(t, NDCGAtK(recList(1, 2), relevant, 2))
}

func TestMRRDeepHit(t *testing.T) {
	// MRR scans the full list, beyond k
	relevant := mapset.NewThreadUnsafeSet(7)
	assert.InDelta(t, 0.25, MRR(recList(1, 2, 3, 7), relevant), evalEpsilon)
	assert.Zero(t, MRR(recList(1, 2, 3), relevant))
}

func TestCoverage(t *testing.T) {
	assert.InDelta(t, 0.4, Coverage(mapset.NewThreadUnsafeSet(1, 2), 5), evalEpsilon)
	assert.Zero(t, Coverage(mapset.NewThreadUnsafeSet[int](), 5))
	assert.Zero(t, Coverage(mapset.NewThreadUnsafeSet(1), 0))
}

func TestMetricsInUnitInterval(t *testing.T) {
	relevant := mapset.NewThreadUnsafeSet(2, 5, 9)
	recommendations := recList(5, 1, 9, 4)
	for _, value := range []float32{
		PrecisionAtK(recommendations, relevant, 4),
		RecallAtK(recommendations, relevant, 4),
		NDCGAtK(recommendations, relevant, 4),
		MRR(recommendations, relevant),
	} {
		assert.GreaterOrEqual(t, value, float32(0))
		assert.LessOrEqual(t, value, float32(1))
	}
}

// cannedModel serves fixed recommendation lists per user.
type cannedModel struct {
	lists map[int][]Recommendation
}

func (canned *cannedModel) Name() string                                     { return "canned" }
func (canned *cannedModel) Fit([]dataset.Interaction, *FitConfig)            {}
func (canned *cannedModel) Predict(userID, itemID int) float64               { return 0 }
func (canned *cannedModel) RecommendTopN(userID, n int, _ mapset.Set[int]) []Recommendation {
	recommendations := canned.lists[userID]
	if len(recommendations) > n {
		recommendations = recommendations[:n]
	}
	return recommendations
}

func TestEvaluateModel(t *testing.T) {
	data := dataset.NewDataset(nil, map[int]dataset.Item{
		10: {ID: 10}, 20: {ID: 20}, 30: {ID: 30}, 40: {ID: 40},
	})
	test := []dataset.Interaction{
		{UserID: 1, ItemID: 10, Weight: 5},
		{UserID: 1, ItemID: 30, Weight: 4},
		{UserID: 2, ItemID: 20, Weight: 3},
	}
	canned := &cannedModel{lists: map[int][]Recommendation{
		// user 1: perfect top-2, user 2: no predictions at all
		1: recList(10, 30, 40),
	}}
	metrics := EvaluateModel(canned, nil, test, data, 3, 2)
	// user 2 has a relevant set but no predictions, so only user 1 counts
	assert.Equal(t, 1, metrics.NumUsers)
	assert.InDelta(t, 2.0/3.0, metrics.Precision, evalEpsilon)
	assert.InDelta(t, 1.0, metrics.Recall, evalEpsilon)
	assert.InDelta(t, 1.0, metrics.NDCG, evalEpsilon)
	assert.InDelta(t, 1.0, metrics.MRR, evalEpsilon)
	// 3 distinct recommended items over a 4 item catalog
	assert.InDelta(t, 0.75, metrics.Coverage, evalEpsilon)
}
