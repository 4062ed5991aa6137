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
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/base"
	"github.com/reelrank/reelrank/base/log"
	"github.com/reelrank/reelrank/base/parallel"
	"github.com/reelrank/reelrank/dataset"
)

// node kinds in the bipartite graph
const (
	userNode = iota
	itemNode
)

// GraphBased estimates personalized proximity on the user-item bipartite
// graph with Monte-Carlo random walks with restart. Edge weights are
// interaction weights, symmetric in both directions, normalized per node into
// a probability distribution over neighbors.
type GraphBased struct {
	// hyper parameters
	restartProb float64
	numWalks    int
	walkLength  int
	randState   int64
	jobs        int // walk parallelism, fixed at fit time
	// graph state. mu guards the cold-start induction path, which appends
	// synthetic user nodes at serving time; walks hold the read lock.
	mu       sync.RWMutex
	users    map[int]int32 // user id -> node
	items    map[int]int32 // item id -> node
	kinds    []uint8       // node -> kind
	ids      []int         // node -> user/item id
	adjacent [][]int32     // node -> neighbor nodes
	cum      [][]float64   // node -> cumulative normalized edge weights
	// live interactions for cold-start users
	live []dataset.Interaction
}

// NewGraphBased creates a GraphBased model.
func NewGraphBased(params Params) *GraphBased {
	return &GraphBased{
		restartProb: params.GetFloat64(RestartProb, 0.15),
		numWalks:    params.GetInt(NumWalks, 100),
		walkLength:  params.GetInt(WalkLength, 10),
		randState:   params.GetInt64(RandomState, 0),
	}
}

func (graph *GraphBased) Name() string {
	return "GraphBased"
}

// Fit builds the bipartite graph and normalizes every node's outgoing edge
// weights to sum to 1.
func (graph *GraphBased) Fit(train []dataset.Interaction, config *FitConfig) {
	config = config.LoadDefaultIfNil()
	start := time.Now()
	users := make(map[int]int32)
	items := make(map[int]int32)
	var kinds []uint8
	var ids []int
	var adjacent [][]int32
	var weights [][]float64
	addNode := func(kind uint8, id int) int32 {
		node := int32(len(kinds))
		kinds = append(kinds, kind)
		ids = append(ids, id)
		adjacent = append(adjacent, nil)
		weights = append(weights, nil)
		return node
	}
	addEdge := func(from, to int32, weight float64) {
		for i, neighbor := range adjacent[from] {
			if neighbor == to {
				// a repeated interaction overwrites the edge weight
				weights[from][i] = weight
				return
			}
		}
		adjacent[from] = append(adjacent[from], to)
		weights[from] = append(weights[from], weight)
	}
	for _, interaction := range train {
		u, exist := users[interaction.UserID]
		if !exist {
			u = addNode(userNode, interaction.UserID)
			users[interaction.UserID] = u
		}
		i, exist := items[interaction.ItemID]
		if !exist {
			i = addNode(itemNode, interaction.ItemID)
			items[interaction.ItemID] = i
		}
		addEdge(u, i, interaction.Weight)
		addEdge(i, u, interaction.Weight)
	}
	cum := make([][]float64, len(weights))
	for node := range weights {
		cum[node] = cumulate(weights[node])
	}
	graph.mu.Lock()
	graph.users = users
	graph.items = items
	graph.kinds = kinds
	graph.ids = ids
	graph.adjacent = adjacent
	graph.cum = cum
	graph.jobs = config.Jobs
	graph.mu.Unlock()
	log.Logger().Info("fit graph complete",
		zap.Int("n_user_nodes", len(users)),
		zap.Int("n_item_nodes", len(items)),
		zap.Duration("fit_time", time.Since(start)))
}

// cumulate turns edge weights into a cumulative distribution for sampling.
func cumulate(weights []float64) []float64 {
	if len(weights) == 0 {
		return nil
	}
	total := 0.0
	for _, weight := range weights {
		total += weight
	}
	cum := make([]float64, len(weights))
	running := 0.0
	for i, weight := range weights {
		running += weight / total
		cum[i] = running
	}
	cum[len(cum)-1] = 1
	return cum
}

// walk runs numWalks independent walks from start and returns per-node visit
// counts. Every step counts one visit, including restarts, so the total is
// always numWalks * walkLength. Each walk derives its own generator from the
// random state, which keeps results independent of worker scheduling.
func (graph *GraphBased) walk(start int32, jobs int) []int64 {
	if jobs < 1 {
		jobs = 1
	}
	partial := make([][]int64, jobs)
	for w := range partial {
		partial[w] = make([]int64, len(graph.kinds))
	}
	_ = parallel.Parallel(context.Background(), graph.numWalks, jobs, func(workerId, walkId int) error {
		visits := partial[workerId]
		rng := base.NewRandomGenerator(graph.randState + int64(walkId))
		current := start
		for step := 0; step < graph.walkLength; step++ {
			visits[current]++
			if rng.Float64() < graph.restartProb {
				current = start
				continue
			}
			neighbors := graph.adjacent[current]
			if len(neighbors) == 0 {
				current = start
				continue
			}
			current = neighbors[sampleIndex(graph.cum[current], rng.Float64())]
		}
		return nil
	})
	counts := make([]int64, len(graph.kinds))
	for _, visits := range partial {
		for node, count := range visits {
			counts[node] += count
		}
	}
	return counts
}

// sampleIndex picks the first cumulative bucket exceeding r.
func sampleIndex(cum []float64, r float64) int {
	index := sort.SearchFloat64s(cum, r)
	if index == len(cum) {
		index = len(cum) - 1
	}
	return index
}

// Predict estimates the visit probability of the item node on walks restarted
// at the user node, 0 if either node is unknown.
func (graph *GraphBased) Predict(userID, itemID int) float64 {
	graph.mu.RLock()
	defer graph.mu.RUnlock()
	u, exist := graph.users[userID]
	if !exist {
		return 0
	}
	i, exist := graph.items[itemID]
	if !exist {
		return 0
	}
	counts := graph.walk(u, graph.jobs)
	total := int64(graph.numWalks) * int64(graph.walkLength)
	if total == 0 {
		return 0
	}
	return float64(counts[i]) / float64(total)
}

// SetLiveInteractions supplies post-training interactions consulted when a
// request arrives for a user without a node in the graph.
func (graph *GraphBased) SetLiveInteractions(interactions []dataset.Interaction) {
	graph.mu.Lock()
	defer graph.mu.Unlock()
	graph.live = interactions
}

// RecommendTopN walks from the user's node and ranks visited item nodes by
// estimated visit probability, excluding the user's direct neighbors (their
// rated items) and the exclusion set.
func (graph *GraphBased) RecommendTopN(userID, n int, exclude mapset.Set[int]) []Recommendation {
	if n <= 0 {
		return nil
	}
	graph.mu.RLock()
	u, exist := graph.users[userID]
	if !exist {
		graph.mu.RUnlock()
		u, exist = graph.induceNode(userID)
		if !exist {
			return nil
		}
		graph.mu.RLock()
	}
	defer graph.mu.RUnlock()
	counts := graph.walk(u, graph.jobs)
	total := int64(graph.numWalks) * int64(graph.walkLength)
	if total == 0 {
		return nil
	}
	rated := mapset.NewThreadUnsafeSet[int]()
	for _, neighbor := range graph.adjacent[u] {
		if graph.kinds[neighbor] == itemNode {
			rated.Add(graph.ids[neighbor])
		}
	}
	recommendations := make([]Recommendation, 0)
	for node, count := range counts {
		if count == 0 || graph.kinds[node] != itemNode {
			continue
		}
		itemID := graph.ids[node]
		if rated.Contains(itemID) || excluded(exclude, itemID) {
			continue
		}
		recommendations = append(recommendations, Recommendation{
			ItemID:      itemID,
			Score:       float64(count) / float64(total),
			Explanation: "Graph proximity",
		})
	}
	sortRecommendations(recommendations)
	if len(recommendations) > n {
		recommendations = recommendations[:n]
	}
	return recommendations
}

// induceNode inserts a synthetic node for a user known only through live
// interactions, with edges to items already in the graph and only that node's
// outgoing weights normalized. The node persists across subsequent calls.
func (graph *GraphBased) induceNode(userID int) (int32, bool) {
	graph.mu.Lock()
	defer graph.mu.Unlock()
	if node, exist := graph.users[userID]; exist {
		// lost the race against another request for the same user
		return node, true
	}
	var neighbors []int32
	var weights []float64
	position := make(map[int32]int)
	for _, interaction := range graph.live {
		if interaction.UserID != userID {
			continue
		}
		i, exist := graph.items[interaction.ItemID]
		if !exist {
			continue
		}
		if at, seen := position[i]; seen {
			weights[at] = interaction.Weight
			continue
		}
		position[i] = len(neighbors)
		neighbors = append(neighbors, i)
		weights = append(weights, interaction.Weight)
	}
	if len(neighbors) == 0 {
		return 0, false
	}
	node := int32(len(graph.kinds))
	graph.kinds = append(graph.kinds, userNode)
	graph.ids = append(graph.ids, userID)
	graph.adjacent = append(graph.adjacent, neighbors)
	graph.cum = append(graph.cum, cumulate(weights))
	graph.users[userID] = node
	log.Logger().Info("induced cold-start graph node",
		zap.Int("user_id", userID),
		zap.Int("n_edges", len(neighbors)))
	return node, true
}
