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
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/reelrank/reelrank/base"
	"github.com/reelrank/reelrank/base/log"
	"github.com/reelrank/reelrank/base/parallel"
	"github.com/reelrank/reelrank/dataset"
)

const gaussSeidelSweeps = 5

// MatrixFactorization learns dense user and item factors with alternating
// least squares. Each row solve runs a fixed 5-pass Gauss-Seidel sweep over
// the regularized normal equations instead of an exact solve, trading
// precision for speed.
type MatrixFactorization struct {
	// hyper parameters
	nFactors    int
	nIterations int
	reg         float64
	randState   int64
	// learned parameters
	userIndex  *base.Index
	itemIndex  *base.Index
	userFactor *mat.Dense // users x factors
	itemFactor *mat.Dense // items x factors
	// live interactions for cold-start users
	liveMu sync.RWMutex
	live   []dataset.Interaction
}

// NewMatrixFactorization creates a MatrixFactorization model.
func NewMatrixFactorization(params Params) *MatrixFactorization {
	return &MatrixFactorization{
		nFactors:    params.GetInt(NFactors, 30),
		nIterations: params.GetInt(NIterations, 5),
		reg:         params.GetFloat64(Reg, 0.1),
		randState:   params.GetInt64(RandomState, 0),
	}
}

func (mf *MatrixFactorization) Name() string {
	return "MatrixFactorization"
}

// ratedEntry is one known cell of the sparse rating matrix, keyed by the
// dense index of the opposite side.
type ratedEntry struct {
	index  int32
	weight float64
}

// Fit trains user and item factors from scratch.
func (mf *MatrixFactorization) Fit(train []dataset.Interaction, config *FitConfig) {
	config = config.LoadDefaultIfNil()
	start := time.Now()
	log.Logger().Info("fit matrix factorization",
		zap.Int("train_set_size", len(train)),
		zap.Int("n_factors", mf.nFactors),
		zap.Int("n_iterations", mf.nIterations),
		zap.Float64("reg", mf.reg),
		zap.Int("jobs", config.Jobs))
	// index users and items
	userIndex := base.NewIndex()
	itemIndex := base.NewIndex()
	for _, interaction := range train {
		userIndex.Add(interaction.UserID)
		itemIndex.Add(interaction.ItemID)
	}
	// build sparse rating rows; a later duplicate of (user, item) overwrites
	// the earlier weight
	userCells := make([]map[int32]float64, userIndex.Len())
	for i := range userCells {
		userCells[i] = make(map[int32]float64)
	}
	for _, interaction := range train {
		u := userIndex.ToNumber(interaction.UserID)
		i := itemIndex.ToNumber(interaction.ItemID)
		userCells[u][i] = interaction.Weight
	}
	userRows := make([][]ratedEntry, userIndex.Len())
	itemRows := make([][]ratedEntry, itemIndex.Len())
	for u, cells := range userCells {
		userRows[u] = flattenCells(cells)
		for i, weight := range cells {
			itemRows[i] = append(itemRows[i], ratedEntry{index: int32(u), weight: weight})
		}
	}
	for i := range itemRows {
		sort.Slice(itemRows[i], func(a, b int) bool {
			return itemRows[i][a].index < itemRows[i][b].index
		})
	}
	if userIndex.Len() == 0 || itemIndex.Len() == 0 {
		mf.userIndex = userIndex
		mf.itemIndex = itemIndex
		mf.userFactor = nil
		mf.itemFactor = nil
		return
	}
	// initialize factors with small uniform noise
	rng := base.NewRandomGenerator(mf.randState)
	userFactor := mat.NewDense(userIndex.Len(), mf.nFactors,
		rng.UniformVector(userIndex.Len()*mf.nFactors, -0.005, 0.005))
	itemFactor := mat.NewDense(itemIndex.Len(), mf.nFactors,
		rng.UniformVector(itemIndex.Len()*mf.nFactors, -0.005, 0.005))
	// alternate row solves
	for iteration := 1; iteration <= mf.nIterations; iteration++ {
		iterStart := time.Now()
		_ = parallel.Parallel(context.Background(), userIndex.Len(), config.Jobs, func(_, u int) error {
			userFactor.SetRow(u, mf.solveFactor(userRows[u], itemFactor))
			return nil
		})
		_ = parallel.Parallel(context.Background(), itemIndex.Len(), config.Jobs, func(_, i int) error {
			itemFactor.SetRow(i, mf.solveFactor(itemRows[i], userFactor))
			return nil
		})
		if config.Verbose > 0 && iteration%config.Verbose == 0 {
			rmse := computeRMSE(userRows, userFactor, itemFactor)
			log.Logger().Info("als iteration",
				zap.Int("iteration", iteration),
				zap.Int("n_iterations", mf.nIterations),
				zap.Float64("rmse", rmse),
				zap.Duration("iter_time", time.Since(iterStart)))
		}
	}
	mf.userIndex = userIndex
	mf.itemIndex = itemIndex
	mf.userFactor = userFactor
	mf.itemFactor = itemFactor
	log.Logger().Info("fit matrix factorization complete",
		zap.Duration("fit_time", time.Since(start)))
}

func flattenCells(cells map[int32]float64) []ratedEntry {
	entries := make([]ratedEntry, 0, len(cells))
	for index, weight := range cells {
		entries = append(entries, ratedEntry{index: index, weight: weight})
	}
	sort.Slice(entries, func(a, b int) bool {
		return entries[a].index < entries[b].index
	})
	return entries
}

// solveFactor solves (VᵗV + λI) x = Vᵗr for one row with a fixed number of
// Gauss-Seidel sweeps. The regularization term keeps the system away from
// singularity, so the sweep never divides by zero for λ > 0.
func (mf *MatrixFactorization) solveFactor(row []ratedEntry, factors *mat.Dense) []float64 {
	k := mf.nFactors
	a := make([][]float64, k)
	for p := range a {
		a[p] = make([]float64, k)
	}
	b := make([]float64, k)
	for _, entry := range row {
		factor := factors.RawRowView(int(entry.index))
		for p := 0; p < k; p++ {
			for q := 0; q < k; q++ {
				a[p][q] += factor[p] * factor[q]
			}
			b[p] += entry.weight * factor[p]
		}
	}
	for p := 0; p < k; p++ {
		a[p][p] += mf.reg
	}
	result := make([]float64, k)
	for sweep := 0; sweep < gaussSeidelSweeps; sweep++ {
		for i := 0; i < k; i++ {
			if a[i][i] == 0 {
				continue
			}
			sum := b[i]
			for j := 0; j < k; j++ {
				if i != j {
					sum -= a[i][j] * result[j]
				}
			}
			result[i] = sum / a[i][i]
		}
	}
	return result
}

// computeRMSE evaluates the reconstruction error over all known cells.
func computeRMSE(userRows [][]ratedEntry, userFactor, itemFactor *mat.Dense) float64 {
	sum := 0.0
	count := 0
	for u, row := range userRows {
		for _, entry := range row {
			predicted := mat.Dot(userFactor.RowView(u), itemFactor.RowView(int(entry.index)))
			sum += (entry.weight - predicted) * (entry.weight - predicted)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(count))
}

// Predict returns the raw dot product of the user and item factors, 0 if
// either id is unknown.
func (mf *MatrixFactorization) Predict(userID, itemID int) float64 {
	u := mf.userIndex.ToNumber(userID)
	i := mf.itemIndex.ToNumber(itemID)
	if u == base.NotID || i == base.NotID {
		return 0
	}
	return mat.Dot(mf.userFactor.RowView(int(u)), mf.itemFactor.RowView(int(i)))
}

// SetLiveInteractions supplies post-training interactions consulted by the
// cold-start path for users without learned factors.
func (mf *MatrixFactorization) SetLiveInteractions(interactions []dataset.Interaction) {
	mf.liveMu.Lock()
	defer mf.liveMu.Unlock()
	mf.live = interactions
}

// RecommendTopN scores every non-excluded catalog item for the user, then
// rescales the scores of exactly that candidate set to [1, 5] via min-max
// normalization (a zero-range candidate set collapses to 3.0). Because the
// scale is recomputed per call, scores are only meaningful within a single
// response and are not comparable across calls or models.
func (mf *MatrixFactorization) RecommendTopN(userID, n int, exclude mapset.Set[int]) []Recommendation {
	if n <= 0 {
		return nil
	}
	var userFactor []float64
	if u := mf.userIndex.ToNumber(userID); u != base.NotID {
		userFactor = mf.userFactor.RawRowView(int(u))
	} else {
		userFactor = mf.synthesizeFactor(userID)
	}
	if userFactor == nil {
		return nil
	}
	recommendations := make([]Recommendation, 0, mf.itemIndex.Len())
	for i := 0; i < mf.itemIndex.Len(); i++ {
		itemID := mf.itemIndex.ToID(int32(i))
		if excluded(exclude, itemID) {
			continue
		}
		score := dot(userFactor, mf.itemFactor.RawRowView(i))
		recommendations = append(recommendations, Recommendation{
			ItemID:      itemID,
			Score:       score,
			Explanation: "Matrix factorization",
		})
	}
	rescaleScores(recommendations)
	sortRecommendations(recommendations)
	if len(recommendations) > n {
		recommendations = recommendations[:n]
	}
	return recommendations
}

// synthesizeFactor builds a factor for an unseen user as the rating-weighted
// average of the factors of the items they rated live. Returns nil if no live
// rating touches a known item.
func (mf *MatrixFactorization) synthesizeFactor(userID int) []float64 {
	mf.liveMu.RLock()
	defer mf.liveMu.RUnlock()
	ratings := make(map[int]float64)
	for _, interaction := range mf.live {
		if interaction.UserID == userID {
			ratings[interaction.ItemID] = interaction.Weight
		}
	}
	if len(ratings) == 0 {
		return nil
	}
	factor := make([]float64, mf.nFactors)
	totalWeight := 0.0
	for itemID, rating := range ratings {
		i := mf.itemIndex.ToNumber(itemID)
		if i == base.NotID {
			continue
		}
		itemFactor := mf.itemFactor.RawRowView(int(i))
		for p := 0; p < mf.nFactors; p++ {
			factor[p] += itemFactor[p] * rating
		}
		totalWeight += rating
	}
	if totalWeight == 0 {
		return nil
	}
	for p := 0; p < mf.nFactors; p++ {
		factor[p] /= totalWeight
	}
	return factor
}

// rescaleScores min-max normalizes scores to [1, 5] over the given set.
func rescaleScores(recommendations []Recommendation) {
	if len(recommendations) == 0 {
		return
	}
	minScore, maxScore := recommendations[0].Score, recommendations[0].Score
	for _, recommendation := range recommendations[1:] {
		minScore = math.Min(minScore, recommendation.Score)
		maxScore = math.Max(maxScore, recommendation.Score)
	}
	scoreRange := maxScore - minScore
	for i := range recommendations {
		if scoreRange > 0 {
			recommendations[i].Score = (recommendations[i].Score-minScore)/scoreRange*4 + 1
		} else {
			recommendations[i].Score = 3.0
		}
	}
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
