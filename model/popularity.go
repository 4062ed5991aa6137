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
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/base/log"
	"github.com/reelrank/reelrank/dataset"
)

// Popularity recommends globally popular items. The score of an item is
// interactionCount * meanWeight. It does not personalize: Predict ignores the
// user id.
type Popularity struct {
	scores map[int]float64
	sorted []int // item ids by descending score, ascending id on ties
}

// NewPopularity creates a Popularity model.
func NewPopularity() *Popularity {
	return &Popularity{}
}

func (pop *Popularity) Name() string {
	return "Popularity"
}

// Fit counts interactions per item and pre-sorts the catalog once.
func (pop *Popularity) Fit(train []dataset.Interaction, config *FitConfig) {
	start := time.Now()
	counts := make(map[int]int)
	weights := make(map[int]float64)
	for _, interaction := range train {
		counts[interaction.ItemID]++
		weights[interaction.ItemID] += interaction.Weight
	}
	scores := make(map[int]float64, len(counts))
	sorted := make([]int, 0, len(counts))
	for itemID, count := range counts {
		meanWeight := weights[itemID] / float64(count)
		scores[itemID] = float64(count) * meanWeight
		sorted = append(sorted, itemID)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if scores[sorted[i]] != scores[sorted[j]] {
			return scores[sorted[i]] > scores[sorted[j]]
		}
		return sorted[i] < sorted[j]
	})
	pop.scores = scores
	pop.sorted = sorted
	log.Logger().Info("fit popularity complete",
		zap.Int("n_items", len(sorted)),
		zap.Duration("fit_time", time.Since(start)))
}

func (pop *Popularity) Predict(userID, itemID int) float64 {
	return pop.scores[itemID]
}

// RecommendTopN walks the pre-sorted list once, skipping excluded items.
func (pop *Popularity) RecommendTopN(userID, n int, exclude mapset.Set[int]) []Recommendation {
	if n <= 0 {
		return nil
	}
	recommendations := make([]Recommendation, 0, n)
	for _, itemID := range pop.sorted {
		if excluded(exclude, itemID) {
			continue
		}
		recommendations = append(recommendations, Recommendation{
			ItemID:      itemID,
			Score:       pop.scores[itemID],
			Explanation: "Popular item",
		})
		if len(recommendations) >= n {
			break
		}
	}
	return recommendations
}
