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

package dataset

import (
	"sort"
)

// TrainTestSplit partitions interactions for offline evaluation.
type TrainTestSplit struct {
	Train []Interaction
	Test  []Interaction
}

// groupByUser buckets interactions per user, keeping users in order of first
// appearance so splits are reproducible.
func groupByUser(interactions []Interaction) ([]int, map[int][]Interaction) {
	var order []int
	groups := make(map[int][]Interaction)
	for _, interaction := range interactions {
		if _, exist := groups[interaction.UserID]; !exist {
			order = append(order, interaction.UserID)
		}
		groups[interaction.UserID] = append(groups[interaction.UserID], interaction)
	}
	return order, groups
}

func sortByTimestamp(interactions []Interaction) {
	sort.SliceStable(interactions, func(i, j int) bool {
		return interactions[i].Timestamp < interactions[j].Timestamp
	})
}

// TemporalSplit splits each user's interactions chronologically: the earliest
// floor((1-testRatio)*count) go to train, the remainder to test. Missing
// timestamps sort as zero.
func TemporalSplit(interactions []Interaction, testRatio float64) TrainTestSplit {
	order, groups := groupByUser(interactions)
	var split TrainTestSplit
	for _, userID := range order {
		sorted := groups[userID]
		sortByTimestamp(sorted)
		splitPoint := int(float64(len(sorted)) * (1 - testRatio))
		split.Train = append(split.Train, sorted[:splitPoint]...)
		split.Test = append(split.Test, sorted[splitPoint:]...)
	}
	return split
}

// RandomSplit shuffles the whole interaction sequence with a seeded linear
// congruential generator and cuts at floor((1-testRatio)*total). The same
// seed reproduces the same split.
func RandomSplit(interactions []Interaction, testRatio float64, seed int64) TrainTestSplit {
	shuffled := make([]Interaction, len(interactions))
	copy(shuffled, interactions)
	shuffleWithSeed(shuffled, seed)
	splitPoint := int(float64(len(shuffled)) * (1 - testRatio))
	return TrainTestSplit{
		Train: shuffled[:splitPoint],
		Test:  shuffled[splitPoint:],
	}
}

// LeaveOneOut moves each user's single latest interaction to test. Users with
// exactly one interaction stay entirely in train.
func LeaveOneOut(interactions []Interaction) TrainTestSplit {
	order, groups := groupByUser(interactions)
	var split TrainTestSplit
	for _, userID := range order {
		sorted := groups[userID]
		if len(sorted) == 1 {
			split.Train = append(split.Train, sorted[0])
			continue
		}
		sortByTimestamp(sorted)
		split.Train = append(split.Train, sorted[:len(sorted)-1]...)
		split.Test = append(split.Test, sorted[len(sorted)-1])
	}
	return split
}

// shuffleWithSeed is a Fisher-Yates shuffle driven by a small linear
// congruential generator. The constants are fixed so that split membership
// for a given seed never changes across releases.
func shuffleWithSeed(interactions []Interaction, seed int64) {
	state := seed
	next := func() float64 {
		state = (state*9301 + 49297) % 233280
		if state < 0 {
			state = -state
		}
		return float64(state) / 233280
	}
	for i := len(interactions) - 1; i > 0; i-- {
		j := int(next() * float64(i+1))
		interactions[i], interactions[j] = interactions[j], interactions[i]
	}
}
