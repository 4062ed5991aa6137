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
	"context"
	"sync"
	"time"

	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/base/log"
	"github.com/reelrank/reelrank/base/parallel"
	"github.com/reelrank/reelrank/dataset"
)

/* Evaluate Item Ranking */

// Metrics is the macro-averaged outcome of one evaluation run. Precision,
// recall, NDCG and MRR average over users with both a relevant set and at
// least one recommendation; coverage counts distinct recommended items over
// the whole catalog.
type Metrics struct {
	Precision float32 `json:"precision"`
	Recall    float32 `json:"recall"`
	NDCG      float32 `json:"ndcg"`
	MRR       float32 `json:"mrr"`
	Coverage  float32 `json:"coverage"`
	NumUsers  int     `json:"numUsers"`
}

// PrecisionAtK is the fraction of the first k recommendations that are
// relevant. The denominator is always k, even for shorter lists.
func PrecisionAtK(recommendations []Recommendation, relevant mapset.Set[int], k int) float32 {
	if k == 0 {
		return 0
	}
	hit := float32(0)
	for _, recommendation := range topK(recommendations, k) {
		if relevant.Contains(recommendation.ItemID) {
			hit++
		}
	}
	return hit / float32(k)
}

// RecallAtK is the fraction of relevant items retrieved in the first k
// recommendations, 0 for an empty relevant set.
func RecallAtK(recommendations []Recommendation, relevant mapset.Set[int], k int) float32 {
	if relevant.Cardinality() == 0 {
		return 0
	}
	hit := 0
	for _, recommendation := range topK(recommendations, k) {
		if relevant.Contains(recommendation.ItemID) {
			hit++
		}
	}
	return float32(hit) / float32(relevant.Cardinality())
}

// NDCGAtK is the normalized discounted cumulative gain with binary gains.
// The ideal DCG places min(k, |relevant|) hits at the top of the list.
func NDCGAtK(recommendations []Recommendation, relevant mapset.Set[int], k int) float32 {
	// IDCG = \sum^{min(k,|REL|)}_{i=1} \frac {1} {\log_2(i+1)}
	idcg := float32(0)
	for i := 0; i < k && i < relevant.Cardinality(); i++ {
		idcg += 1.0 / math32.Log2(float32(i)+2.0)
	}
	if idcg == 0 {
		return 0
	}
	// DCG = \sum^{k}_{i=1} \frac {rel_i} {\log_2(i+1)}
	dcg := float32(0)
	for i, recommendation := range topK(recommendations, k) {
		if relevant.Contains(recommendation.ItemID) {
			dcg += 1.0 / math32.Log2(float32(i)+2.0)
		}
	}
	return dcg / idcg
}

// MRR is the reciprocal of the 1-based rank of the first relevant item
// anywhere in the full list, 0 without any hit.
func MRR(recommendations []Recommendation, relevant mapset.Set[int]) float32 {
	for i, recommendation := range recommendations {
		if relevant.Contains(recommendation.ItemID) {
			return 1.0 / float32(i+1)
		}
	}
	return 0
}

// Coverage is the share of the catalog appearing in at least one user's
// recommendation list.
func Coverage(recommended mapset.Set[int], catalogSize int) float32 {
	if catalogSize == 0 {
		return 0
	}
	return float32(recommended.Cardinality()) / float32(catalogSize)
}

func topK(recommendations []Recommendation, k int) []Recommendation {
	if len(recommendations) > k {
		return recommendations[:k]
	}
	return recommendations
}

// EvaluateModel ranks k recommendations for every test user and macro-averages
// precision, recall, NDCG and MRR over users with a non-empty relevant set and
// at least one recommendation. Users failing either condition are skipped, not
// counted as zero. Items the user interacted with in train are excluded from
// their candidates.
func EvaluateModel(m Model, train, test []dataset.Interaction, data *dataset.Dataset, k, nJobs int) Metrics {
	start := time.Now()
	relevantSets := make(map[int]mapset.Set[int])
	for _, interaction := range test {
		if _, exist := relevantSets[interaction.UserID]; !exist {
			relevantSets[interaction.UserID] = mapset.NewThreadUnsafeSet[int]()
		}
		relevantSets[interaction.UserID].Add(interaction.ItemID)
	}
	trainSets := make(map[int]mapset.Set[int])
	for _, interaction := range train {
		if _, exist := trainSets[interaction.UserID]; !exist {
			trainSets[interaction.UserID] = mapset.NewSet[int]()
		}
		trainSets[interaction.UserID].Add(interaction.ItemID)
	}
	userIDs := make([]int, 0, len(relevantSets))
	for userID := range relevantSets {
		userIDs = append(userIDs, userID)
	}
	if nJobs < 1 {
		nJobs = 1
	}
	partSum := make([][4]float32, nJobs)
	partCount := make([]int, nJobs)
	var recommendedMu sync.Mutex
	recommended := mapset.NewThreadUnsafeSet[int]()
	_ = parallel.Parallel(context.Background(), len(userIDs), nJobs, func(workerId, jobId int) error {
		userID := userIDs[jobId]
		relevant := relevantSets[userID]
		recommendations := m.RecommendTopN(userID, k, trainSets[userID])
		if relevant.Cardinality() == 0 || len(recommendations) == 0 {
			return nil
		}
		recommendedMu.Lock()
		for _, recommendation := range recommendations {
			recommended.Add(recommendation.ItemID)
		}
		recommendedMu.Unlock()
		partSum[workerId][0] += PrecisionAtK(recommendations, relevant, k)
		partSum[workerId][1] += RecallAtK(recommendations, relevant, k)
		partSum[workerId][2] += NDCGAtK(recommendations, relevant, k)
		partSum[workerId][3] += MRR(recommendations, relevant)
		partCount[workerId]++
		return nil
	})
	var sum [4]float32
	count := 0
	for w := 0; w < nJobs; w++ {
		for j := range sum {
			sum[j] += partSum[w][j]
		}
		count += partCount[w]
	}
	metrics := Metrics{NumUsers: count}
	if count > 0 {
		metrics.Precision = sum[0] / float32(count)
		metrics.Recall = sum[1] / float32(count)
		metrics.NDCG = sum[2] / float32(count)
		metrics.MRR = sum[3] / float32(count)
	}
	metrics.Coverage = Coverage(recommended, data.ItemCount())
	log.Logger().Info("evaluate complete",
		zap.String("model", m.Name()),
		zap.Int("top_k", k),
		zap.Int("n_users", count),
		zap.Float32("precision", metrics.Precision),
		zap.Float32("recall", metrics.Recall),
		zap.Float32("ndcg", metrics.NDCG),
		zap.Float32("mrr", metrics.MRR),
		zap.Float32("coverage", metrics.Coverage),
		zap.Duration("eval_time", time.Since(start)))
	return metrics
}
