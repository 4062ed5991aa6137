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
	"math"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/base/log"
	"github.com/reelrank/reelrank/base/parallel"
	"github.com/reelrank/reelrank/dataset"
)

// Neighbor is one entry of an item's similarity row.
type Neighbor struct {
	ItemID     int     `json:"itemId"`
	Similarity float64 `json:"similarity"`
}

// ItemItemCF is item-item collaborative filtering over cosine similarity.
// Similarity candidates are restricted to items sharing at least one
// co-rating user, similarities at or below the low bound are discarded, and
// only the top-K most similar items are retained per item.
type ItemItemCF struct {
	// hyper parameters
	topK     int
	lowBound float64
	// learned parameters
	userItems map[int]map[int]float64
	neighbors map[int][]Neighbor // descending similarity, ascending id on ties
}

// NewItemItemCF creates an ItemItemCF model.
func NewItemItemCF(params Params) *ItemItemCF {
	return &ItemItemCF{
		topK:     params.GetInt(K, 50),
		lowBound: params.GetFloat64(SimLowBound, 0.01),
	}
}

func (knn *ItemItemCF) Name() string {
	return "ItemItemCF"
}

// Fit builds the sparse rating maps and the per-item similarity rows.
func (knn *ItemItemCF) Fit(train []dataset.Interaction, config *FitConfig) {
	config = config.LoadDefaultIfNil()
	start := time.Now()
	userItems := make(map[int]map[int]float64)
	itemUsers := make(map[int]map[int]float64)
	for _, interaction := range train {
		if _, exist := userItems[interaction.UserID]; !exist {
			userItems[interaction.UserID] = make(map[int]float64)
		}
		userItems[interaction.UserID][interaction.ItemID] = interaction.Weight
		if _, exist := itemUsers[interaction.ItemID]; !exist {
			itemUsers[interaction.ItemID] = make(map[int]float64)
		}
		itemUsers[interaction.ItemID][interaction.UserID] = interaction.Weight
	}
	items := make([]int, 0, len(itemUsers))
	for itemID := range itemUsers {
		items = append(items, itemID)
	}
	sort.Ints(items)
	log.Logger().Info("fit item-item cf",
		zap.Int("train_set_size", len(train)),
		zap.Int("n_items", len(items)),
		zap.Int("top_k", knn.topK),
		zap.Int("jobs", config.Jobs))
	// each job writes only its own row, so aggregation is order-independent
	rows := make([][]Neighbor, len(items))
	_ = parallel.Parallel(context.Background(), len(items), config.Jobs, func(_, jobId int) error {
		itemID := items[jobId]
		users := itemUsers[itemID]
		// candidates share at least one co-rating user
		candidates := mapset.NewThreadUnsafeSet[int]()
		for userID := range users {
			for candidateID := range userItems[userID] {
				if candidateID != itemID {
					candidates.Add(candidateID)
				}
			}
		}
		row := make([]Neighbor, 0, candidates.Cardinality())
		for candidateID := range candidates.Iter() {
			similarity := cosineSimilarity(users, itemUsers[candidateID])
			if similarity > knn.lowBound {
				row = append(row, Neighbor{ItemID: candidateID, Similarity: similarity})
			}
		}
		sort.Slice(row, func(a, b int) bool {
			if row[a].Similarity != row[b].Similarity {
				return row[a].Similarity > row[b].Similarity
			}
			return row[a].ItemID < row[b].ItemID
		})
		if len(row) > knn.topK {
			row = row[:knn.topK]
		}
		rows[jobId] = row
		return nil
	})
	neighbors := make(map[int][]Neighbor, len(items))
	for jobId, itemID := range items {
		if len(rows[jobId]) > 0 {
			neighbors[itemID] = rows[jobId]
		}
	}
	knn.userItems = userItems
	knn.neighbors = neighbors
	log.Logger().Info("fit item-item cf complete",
		zap.Duration("fit_time", time.Since(start)))
}

// cosineSimilarity compares two items over their shared-user rating vectors.
func cosineSimilarity(vectorA, vectorB map[int]float64) float64 {
	dotProduct := 0.0
	normA := 0.0
	normB := 0.0
	for userID, ratingA := range vectorA {
		if ratingB, exist := vectorB[userID]; exist {
			dotProduct += ratingA * ratingB
		}
		normA += ratingA * ratingA
	}
	for _, ratingB := range vectorB {
		normB += ratingB * ratingB
	}
	denominator := math.Sqrt(normA) * math.Sqrt(normB)
	if denominator == 0 {
		return 0
	}
	return dotProduct / denominator
}

// Predict estimates a rating as the similarity-weighted average of the user's
// ratings on items similar to itemID, 0 without any overlap.
func (knn *ItemItemCF) Predict(userID, itemID int) float64 {
	userRatings := knn.userItems[userID]
	if userRatings == nil {
		return 0
	}
	numerator := 0.0
	denominator := 0.0
	for _, neighbor := range knn.neighbors[itemID] {
		if rating, exist := userRatings[neighbor.ItemID]; exist {
			numerator += neighbor.Similarity * rating
			denominator += neighbor.Similarity
		}
	}
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// RecommendTopN fans out from every item the user rated to its similarity
// row, accumulating similarity * rating per candidate. Items the user already
// rated never surface.
func (knn *ItemItemCF) RecommendTopN(userID, n int, exclude mapset.Set[int]) []Recommendation {
	userRatings := knn.userItems[userID]
	if n <= 0 || userRatings == nil {
		return nil
	}
	scores := make(map[int]float64)
	for ratedItemID, rating := range userRatings {
		for _, neighbor := range knn.neighbors[ratedItemID] {
			if excluded(exclude, neighbor.ItemID) {
				continue
			}
			if _, rated := userRatings[neighbor.ItemID]; rated {
				continue
			}
			scores[neighbor.ItemID] += neighbor.Similarity * rating
		}
	}
	recommendations := make([]Recommendation, 0, len(scores))
	for itemID, score := range scores {
		recommendations = append(recommendations, Recommendation{
			ItemID:      itemID,
			Score:       score,
			Explanation: "Similar to items you liked",
		})
	}
	sortRecommendations(recommendations)
	if len(recommendations) > n {
		recommendations = recommendations[:n]
	}
	return recommendations
}
