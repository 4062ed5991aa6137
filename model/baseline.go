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
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/reelrank/reelrank/dataset"
)

// GlobalAverage predicts the global mean weight for every pair. It cannot
// rank items, so RecommendTopN is always empty.
type GlobalAverage struct {
	mean float64
}

func NewGlobalAverage() *GlobalAverage {
	return &GlobalAverage{}
}

func (avg *GlobalAverage) Name() string {
	return "GlobalAverage"
}

func (avg *GlobalAverage) Fit(train []dataset.Interaction, _ *FitConfig) {
	sum := 0.0
	for _, interaction := range train {
		sum += interaction.Weight
	}
	if len(train) > 0 {
		avg.mean = sum / float64(len(train))
	} else {
		avg.mean = 0
	}
}

func (avg *GlobalAverage) Predict(userID, itemID int) float64 {
	return avg.mean
}

func (avg *GlobalAverage) RecommendTopN(userID, n int, exclude mapset.Set[int]) []Recommendation {
	return nil
}

// UserAverage predicts each user's mean weight, falling back to the global
// mean for unknown users. Like GlobalAverage it cannot rank items.
type UserAverage struct {
	means  map[int]float64
	global float64
}

func NewUserAverage() *UserAverage {
	return &UserAverage{}
}

func (avg *UserAverage) Name() string {
	return "UserAverage"
}

func (avg *UserAverage) Fit(train []dataset.Interaction, _ *FitConfig) {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	total := 0.0
	for _, interaction := range train {
		sums[interaction.UserID] += interaction.Weight
		counts[interaction.UserID]++
		total += interaction.Weight
	}
	means := make(map[int]float64, len(sums))
	for userID, sum := range sums {
		means[userID] = sum / float64(counts[userID])
	}
	avg.means = means
	if len(train) > 0 {
		avg.global = total / float64(len(train))
	} else {
		avg.global = 0
	}
}

func (avg *UserAverage) Predict(userID, itemID int) float64 {
	if mean, exist := avg.means[userID]; exist {
		return mean
	}
	return avg.global
}

func (avg *UserAverage) RecommendTopN(userID, n int, exclude mapset.Set[int]) []Recommendation {
	return nil
}
